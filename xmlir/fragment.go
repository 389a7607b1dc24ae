package xmlir

import (
	"sort"
	"strings"
)

// ParseFragment parses a fragment of markup that may contain several
// top-level elements and text runs. Prefixes used by the fragment resolve
// against ns first and against declarations inside the fragment itself
// second. Prefixes that resolve to nothing make the parse fail with a
// *FragmentError naming them, so callers can redeclare and retry.
//
// Whitespace-only text between top-level elements is dropped; interior
// text is kept verbatim.
func ParseFragment(s string, ns map[string]string) ([]*Node, error) {
	var b strings.Builder
	b.WriteString("<fragment-wrapper")
	for _, prefix := range sortedPrefixes(ns) {
		b.WriteString(" ")
		if prefix == "" {
			b.WriteString("xmlns")
		} else {
			b.WriteString("xmlns:")
			b.WriteString(prefix)
		}
		b.WriteString(`="`)
		b.WriteString(escapeAttr(ns[prefix]))
		b.WriteByte('"')
	}
	b.WriteByte('>')
	b.WriteString(s)
	b.WriteString("</fragment-wrapper>")

	wrapper, err := Parse([]byte(b.String()))
	if err != nil {
		return nil, &FragmentError{Fragment: s, Err: err}
	}
	if missing := missingPrefixes(wrapper); len(missing) > 0 {
		return nil, &FragmentError{Fragment: s, MissingPrefixes: missing}
	}

	var nodes []*Node
	for _, c := range wrapper.Children {
		if c.Type == TextType && strings.TrimSpace(c.Data) == "" {
			continue
		}
		c.Parent = nil
		c.ParentIndex = 0
		nodes = append(nodes, c)
	}
	return nodes, nil
}

func sortedPrefixes(ns map[string]string) []string {
	prefixes := make([]string, 0, len(ns))
	for p := range ns {
		prefixes = append(prefixes, p)
	}
	sort.Strings(prefixes)
	return prefixes
}

func missingPrefixes(root *Node) []string {
	seen := map[string]bool{}
	root.Visit(func(n *Node, isPost bool) (bool, error) {
		if isPost || n.Type != ElementType {
			return true, nil
		}
		if n.Name.Prefix != "" && n.Name.Prefix != "xml" && n.Name.URI == "" {
			seen[n.Name.Prefix] = true
		}
		for _, a := range n.Attrs {
			if a.Name.Prefix == "" || a.Name.Prefix == "xml" || a.Name.Prefix == "xmlns" {
				continue
			}
			if a.Name.URI == "" {
				seen[a.Name.Prefix] = true
			}
		}
		return true, nil
	})
	missing := make([]string, 0, len(seen))
	for p := range seen {
		missing = append(missing, p)
	}
	sort.Strings(missing)
	return missing
}

// EnsureDeclared adds xmlns declarations on n for every prefix its subtree
// uses that is not already in scope where n sits. Grafting a parsed
// fragment into a document calls this so the serialized part stays
// well-formed even when the insertion point does not inherit the
// fragment's prefixes.
func EnsureDeclared(n *Node) {
	if n.Type != ElementType {
		return
	}
	scope := map[string]string{"xml": XMLNamespaceURI}
	if n.Parent != nil {
		for p, uri := range n.Parent.ScopeNamespaces() {
			scope[p] = uri
		}
	}
	for p, uri := range n.Declarations() {
		scope[p] = uri
	}
	var need []Name
	have := map[string]bool{}
	n.Visit(func(c *Node, isPost bool) (bool, error) {
		if isPost || c.Type != ElementType {
			return true, nil
		}
		names := []Name{c.Name}
		for _, a := range c.Attrs {
			names = append(names, a.Name)
		}
		for _, nm := range names {
			if nm.Prefix == "" || nm.Prefix == "xml" || nm.Prefix == "xmlns" || nm.URI == "" {
				continue
			}
			if scope[nm.Prefix] == nm.URI || have[nm.Prefix] {
				continue
			}
			have[nm.Prefix] = true
			need = append(need, nm)
		}
		return true, nil
	})
	for _, nm := range need {
		n.SetAttr(Name{Prefix: "xmlns", Local: nm.Prefix}, nm.URI)
	}
}
