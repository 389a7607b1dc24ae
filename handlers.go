package oxpatch

import (
	"fmt"
	"sort"

	"github.com/tokenlayer/oxpatch/debug"
	"github.com/tokenlayer/oxpatch/patchop"
	"github.com/tokenlayer/oxpatch/xmlir"
	"github.com/tokenlayer/oxpatch/xmlir/epath"
	"github.com/tokenlayer/oxpatch/xmlns"
)

// applySet writes the attribute named by an attribute-step target, or
// replaces the text content of matched elements. Only a plain text
// payload applies; anything else is a type mismatch for recovery to
// coerce or reject.
func (rc *runContext) applySet(op patchop.Operation, matches []epath.Match) (patchop.Result, error) {
	if op.Value.Kind != patchop.ValueText {
		form := "text"
		if matches[0].IsAttr() {
			form = "attribute"
		}
		return patchop.Result{}, &patchop.TypeMismatchError{
			Kind: op.Kind, ValueKind: op.Value.Kind, TargetForm: form,
		}
	}
	text := op.Value.Text
	for _, m := range matches {
		if m.IsAttr() {
			m.Node.SetAttr(m.Attr, text)
		} else {
			m.Node.SetText(text)
		}
	}
	if debug.Patch() {
		debug.Logf("set: %s = %q on %d nodes\n", op.Target, text, len(matches))
	}
	return patchop.Succeeded(op, len(matches)), nil
}

// applyInsert builds nodes from the payload once, then inserts a fresh
// copy at the configured position relative to every match. Payload
// problems surface before the first mutation, so a failed insert never
// leaves a half-patched tree.
func (rc *runContext) applyInsert(op patchop.Operation, matches []epath.Match, eff map[string]string) (patchop.Result, error) {
	if matches[0].IsAttr() {
		return patchop.Result{}, &patchop.TypeMismatchError{
			Kind: op.Kind, ValueKind: op.Value.Kind, TargetForm: "attribute",
		}
	}
	build, err := buildNodes(op.Kind, op.Value, eff)
	if err != nil {
		return patchop.Result{}, err
	}
	for _, m := range matches {
		nodes := cloneAll(build)
		insertAt(m.Node, op.Position, nodes)
		for _, n := range nodes {
			if n.Type == xmlir.ElementType {
				xmlir.EnsureDeclared(n)
			}
		}
	}
	if debug.Patch() {
		debug.Logf("insert: %d nodes %s %s on %d matches\n", len(build), op.Position, op.Target, len(matches))
	}
	return patchop.Succeeded(op, len(matches)), nil
}

// applyExtend appends one child per list item to every match. The
// payload must be a list; a mismatch is reported on the result and
// never raised out of the run.
func (rc *runContext) applyExtend(op patchop.Operation, matches []epath.Match, eff map[string]string) (patchop.Result, error) {
	if op.Value.Kind != patchop.ValueList {
		return patchop.Result{}, &patchop.TypeMismatchError{
			Kind: op.Kind, ValueKind: op.Value.Kind, TargetForm: "element",
		}
	}
	if matches[0].IsAttr() {
		return patchop.Result{}, &patchop.TypeMismatchError{
			Kind: op.Kind, ValueKind: op.Value.Kind, TargetForm: "attribute",
		}
	}
	var build []*xmlir.Node
	for i, item := range op.Value.List {
		switch item.Kind {
		case patchop.ValueText:
			build = append(build, xmlir.NewText(item.Text))
		case patchop.ValueFragment, patchop.ValueMapping:
			nodes, err := buildNodes(op.Kind, item, eff)
			if err != nil {
				return patchop.Result{}, fmt.Errorf("list item %d: %w", i, err)
			}
			build = append(build, nodes...)
		default:
			return patchop.Result{}, &patchop.TypeMismatchError{
				Kind: op.Kind, ValueKind: item.Kind, TargetForm: "element",
			}
		}
	}
	for _, m := range matches {
		for _, n := range cloneAll(build) {
			m.Node.Append(n)
			if n.Type == xmlir.ElementType {
				xmlir.EnsureDeclared(n)
			}
		}
	}
	return patchop.Succeeded(op, len(matches)), nil
}

// applyMerge folds a mapping of attribute and text keys into every
// match. Update overwrites; Append concatenates onto existing values
// with a single space.
func (rc *runContext) applyMerge(op patchop.Operation, matches []epath.Match, eff map[string]string) (patchop.Result, error) {
	if op.Value.Kind != patchop.ValueMapping {
		return patchop.Result{}, &patchop.TypeMismatchError{
			Kind: op.Kind, ValueKind: op.Value.Kind, TargetForm: "element",
		}
	}
	if matches[0].IsAttr() {
		return patchop.Result{}, &patchop.TypeMismatchError{
			Kind: op.Kind, ValueKind: op.Value.Kind, TargetForm: "attribute",
		}
	}

	type entry struct {
		text bool
		name xmlir.Name
		val  string
	}
	keys := sortedKeys(op.Value.Map)
	entries := make([]entry, 0, len(keys))
	for _, k := range keys {
		item := op.Value.Map[k]
		if item.Kind != patchop.ValueText {
			return patchop.Result{}, &patchop.TypeMismatchError{
				Kind: op.Kind, ValueKind: item.Kind, TargetForm: "attribute",
			}
		}
		if k == patchop.MergeText {
			entries = append(entries, entry{text: true, val: item.Text})
			continue
		}
		name, err := resolveAttrName(k, eff)
		if err != nil {
			return patchop.Result{}, err
		}
		entries = append(entries, entry{name: name, val: item.Text})
	}

	appendMode := op.MergeStrategy == patchop.AppendMerge
	for _, m := range matches {
		for _, e := range entries {
			switch {
			case e.text && appendMode && m.Node.Text() != "":
				m.Node.SetText(m.Node.Text() + " " + e.val)
			case e.text:
				m.Node.SetText(e.val)
			default:
				if appendMode {
					if cur, ok := m.Node.AttrValue(e.name); ok && cur != "" {
						m.Node.SetAttr(e.name, cur+" "+e.val)
						continue
					}
				}
				m.Node.SetAttr(e.name, e.val)
			}
		}
	}
	return patchop.Succeeded(op, len(matches)), nil
}

// applyRelationship validates the descriptor shape and reports the
// relationship part the container layer would rewrite. Relationship
// files live outside the XML parts this engine mutates, so the
// operation itself is a recorded no-op.
func (rc *runContext) applyRelationship(op patchop.Operation) (patchop.Result, error) {
	if op.Value.Kind != patchop.ValueMapping {
		return patchop.Result{}, &patchop.TypeMismatchError{
			Kind: op.Kind, ValueKind: op.Value.Kind, TargetForm: "element",
		}
	}
	for _, k := range []string{patchop.RelType, patchop.RelTarget} {
		v, ok := op.Value.Map[k]
		if !ok || v.Kind != patchop.ValueText || v.Text == "" {
			return patchop.Result{}, &patchop.ValidationError{
				Field: "value." + k, Msg: "relationship_add requires a non-empty " + k,
			}
		}
	}
	res := patchop.Succeeded(op, 0)
	res.Message = "relationship validated; relationship parts are written by the container layer"
	res.AffectedFiles = []string{rc.relsPart()}
	return res, nil
}

// relsPart names the .rels file paired with the document being
// patched, inferred from its root element.
func (rc *runContext) relsPart() string {
	switch rc.doc.Name.URI {
	case xmlns.WordMain:
		return "word/_rels/document.xml.rels"
	case xmlns.SpreadsheetMain:
		return "xl/_rels/workbook.xml.rels"
	case xmlns.PresentationMain:
		return "ppt/_rels/presentation.xml.rels"
	}
	switch rc.doc.Name.Local {
	case "document":
		return "word/_rels/document.xml.rels"
	case "workbook":
		return "xl/_rels/workbook.xml.rels"
	case "presentation":
		return "ppt/_rels/presentation.xml.rels"
	}
	return "_rels/.rels"
}

// buildNodes turns an insertable payload into a detached node list.
func buildNodes(kind patchop.Kind, v patchop.Value, eff map[string]string) ([]*xmlir.Node, error) {
	switch v.Kind {
	case patchop.ValueFragment, patchop.ValueText:
		return xmlir.ParseFragment(v.Text, eff)
	case patchop.ValueMapping:
		n, err := buildElement(kind, v, eff)
		if err != nil {
			return nil, err
		}
		return []*xmlir.Node{n}, nil
	default:
		return nil, &patchop.TypeMismatchError{Kind: kind, ValueKind: v.Kind, TargetForm: "element"}
	}
}

// buildElement constructs one element from a {tag, attributes?, text?}
// mapping. Unknown keys are ignored, matching the permissive descriptor
// contract.
func buildElement(kind patchop.Kind, v patchop.Value, eff map[string]string) (*xmlir.Node, error) {
	tag, ok := v.Map[patchop.InsertTag]
	if !ok || tag.Kind != patchop.ValueText || tag.Text == "" {
		return nil, &patchop.ValidationError{Field: "value.tag", Msg: "element mapping requires a tag"}
	}
	name, err := resolveAttrName(tag.Text, eff)
	if err != nil {
		return nil, err
	}
	n := &xmlir.Node{Type: xmlir.ElementType, Name: name}

	if attrs, ok := v.Map[patchop.InsertAttrs]; ok {
		if attrs.Kind != patchop.ValueMapping {
			return nil, &patchop.TypeMismatchError{Kind: kind, ValueKind: attrs.Kind, TargetForm: "attribute"}
		}
		for _, k := range sortedKeys(attrs.Map) {
			av := attrs.Map[k]
			if av.Kind != patchop.ValueText {
				return nil, &patchop.TypeMismatchError{Kind: kind, ValueKind: av.Kind, TargetForm: "attribute"}
			}
			an, err := resolveAttrName(k, eff)
			if err != nil {
				return nil, err
			}
			n.SetAttr(an, av.Text)
		}
	}
	if txt, ok := v.Map[patchop.InsertText]; ok {
		if txt.Kind != patchop.ValueText {
			return nil, &patchop.TypeMismatchError{Kind: kind, ValueKind: txt.Kind, TargetForm: "text"}
		}
		n.SetText(txt.Text)
	}
	return n, nil
}

// resolveAttrName parses a possibly prefixed name and resolves its
// namespace against the effective map. Unprefixed names stay in no
// namespace.
func resolveAttrName(s string, eff map[string]string) (xmlir.Name, error) {
	name, err := xmlir.ParseName(s)
	if err != nil {
		return xmlir.Name{}, &patchop.ValidationError{Field: "value", Msg: err.Error()}
	}
	if name.Prefix != "" && name.Prefix != "xml" {
		uri, ok := eff[name.Prefix]
		if !ok {
			return xmlir.Name{}, &xmlns.ResolveError{Prefix: name.Prefix, Target: s}
		}
		name.URI = uri
	}
	return name, nil
}

// insertAt places nodes relative to target. Before and After on a root
// element degrade to prepend and append inside it, since a root has no
// siblings.
func insertAt(target *xmlir.Node, pos patchop.Position, nodes []*xmlir.Node) {
	switch pos {
	case patchop.Prepend:
		for i, n := range nodes {
			target.InsertChild(i, n)
		}
	case patchop.Before:
		if target.Parent == nil {
			insertAt(target, patchop.Prepend, nodes)
			return
		}
		at := target.ParentIndex
		for i, n := range nodes {
			target.Parent.InsertChild(at+i, n)
		}
	case patchop.After:
		if target.Parent == nil {
			insertAt(target, patchop.Append, nodes)
			return
		}
		at := target.ParentIndex + 1
		for i, n := range nodes {
			target.Parent.InsertChild(at+i, n)
		}
	default: // Append
		for _, n := range nodes {
			target.Append(n)
		}
	}
}

func cloneAll(nodes []*xmlir.Node) []*xmlir.Node {
	out := make([]*xmlir.Node, len(nodes))
	for i, n := range nodes {
		out[i] = n.Clone()
	}
	return out
}

func sortedKeys(m map[string]patchop.Value) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
