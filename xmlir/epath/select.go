package epath

import (
	"github.com/tokenlayer/oxpatch/xmlir"
)

// Resolver maps a namespace prefix to its URI. A nil Resolver, or one that
// reports !ok, drops selection back to comparing prefix strings as written.
type Resolver func(prefix string) (uri string, ok bool)

// Match is one selected target. Attr is set when the expression ends in an
// attribute step; the attribute itself may not exist yet on Node, which is
// what lets a set operation create it.
type Match struct {
	Node *xmlir.Node
	Attr xmlir.Name
}

// IsAttr reports whether the match targets an attribute rather than the
// element itself.
func (m Match) IsAttr() bool { return m.Attr.Local != "" }

// Select evaluates the expression against the tree rooted at root.
// Absolute paths test their first step against the root element itself;
// relative paths start at the root's children. Zero matches returns an
// empty slice, never an error.
func (e *Expr) Select(root *xmlir.Node, resolve Resolver) []Match {
	if len(e.Steps) == 0 || root == nil {
		return nil
	}
	steps := e.Steps
	var attrStep *Step
	if steps[len(steps)-1].Attr {
		attrStep = &steps[len(steps)-1]
		steps = steps[:len(steps)-1]
	}

	current := []*xmlir.Node{root}
	for i, st := range steps {
		if i == 0 && e.Absolute {
			current = e.seedAbsolute(root, st, resolve)
			continue
		}
		current = e.applyStep(current, st, resolve)
		if len(current) == 0 {
			break
		}
	}

	matches := make([]Match, 0, len(current))
	for _, n := range current {
		m := Match{Node: n}
		if attrStep != nil {
			m.Attr = resolveName(attrStep.Name, resolve)
		}
		matches = append(matches, m)
	}
	return matches
}

// seedAbsolute matches the first step of an absolute path. A plain step
// tests the root element itself; a descendant step ("//a") tests the root
// and everything beneath it.
func (e *Expr) seedAbsolute(root *xmlir.Node, st Step, resolve Resolver) []*xmlir.Node {
	cands := []*xmlir.Node{root}
	if st.Descendant {
		cands = append(cands, descendants(root)...)
	}
	var out []*xmlir.Node
	pos := map[*xmlir.Node]int{}
	for _, c := range cands {
		if !e.nameMatches(st, c, resolve) {
			continue
		}
		pos[c.Parent]++
		if st.Index > 0 && pos[c.Parent] != st.Index {
			continue
		}
		if st.Pred != nil && !predMatches(st.Pred, c, resolve) {
			continue
		}
		out = append(out, c)
	}
	return out
}

func (e *Expr) applyStep(current []*xmlir.Node, st Step, resolve Resolver) []*xmlir.Node {
	var out []*xmlir.Node
	seen := map[*xmlir.Node]bool{}
	for _, n := range current {
		var cands []*xmlir.Node
		if st.Descendant {
			cands = descendants(n)
		} else {
			cands = n.Elements()
		}
		pos := map[*xmlir.Node]int{}
		for _, c := range cands {
			if !e.nameMatches(st, c, resolve) {
				continue
			}
			pos[c.Parent]++
			if st.Index > 0 && pos[c.Parent] != st.Index {
				continue
			}
			if st.Pred != nil && !predMatches(st.Pred, c, resolve) {
				continue
			}
			if seen[c] {
				continue
			}
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}

// nameMatches applies the step's name test to an element. Prefixed names
// compare by resolved URI when both sides have one; either side missing a
// URI falls back to comparing the prefix as written. Unprefixed steps
// match only unprefixed elements, so a default-namespaced document and an
// unqualified path still line up the way authors expect.
func (e *Expr) nameMatches(st Step, n *xmlir.Node, resolve Resolver) bool {
	if n.Type != xmlir.ElementType {
		return false
	}
	if !st.Wildcard {
		if n.Name.Local != st.Name.Local {
			return false
		}
		if e.AnyNS {
			return true
		}
	}
	if st.Name.Prefix == "" {
		return st.Wildcard || n.Name.Prefix == ""
	}
	if e.AnyNS {
		return true
	}
	if uri, ok := resolveURI(st.Name.Prefix, resolve); ok {
		if n.Name.URI != "" {
			return n.Name.URI == uri
		}
	}
	return n.Name.Prefix == st.Name.Prefix
}

func predMatches(pred *AttrPred, n *xmlir.Node, resolve Resolver) bool {
	v, ok := n.AttrValue(resolveName(pred.Name, resolve))
	return ok && v == pred.Value
}

func resolveName(nm xmlir.Name, resolve Resolver) xmlir.Name {
	if nm.Prefix == "" || nm.URI != "" {
		return nm
	}
	if uri, ok := resolveURI(nm.Prefix, resolve); ok {
		nm.URI = uri
	}
	return nm
}

func resolveURI(prefix string, resolve Resolver) (string, bool) {
	if prefix == "xml" {
		return xmlir.XMLNamespaceURI, true
	}
	if resolve == nil {
		return "", false
	}
	uri, ok := resolve(prefix)
	return uri, ok && uri != ""
}

// descendants returns every element strictly below n in document order.
func descendants(n *xmlir.Node) []*xmlir.Node {
	var res []*xmlir.Node
	n.Visit(func(x *xmlir.Node, isPost bool) (bool, error) {
		if isPost || x == n {
			return true, nil
		}
		if x.Type == xmlir.ElementType {
			res = append(res, x)
		}
		return true, nil
	})
	return res
}
