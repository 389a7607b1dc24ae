package oxpatch

import (
	"fmt"

	"github.com/tokenlayer/oxpatch/xmlir"
	"github.com/tokenlayer/oxpatch/xmlir/epath"
	"github.com/tokenlayer/oxpatch/xmlns"
)

// PrefixBinding is one prefix of an inspected target together with the
// namespace it resolves to. Source is "declared" for document
// declarations, "override" for caller bindings and "well-known" for the
// canonical OOXML table; an unresolved prefix has an empty Source.
type PrefixBinding struct {
	Prefix string `json:"prefix"`
	URI    string `json:"uri,omitempty"`
	Source string `json:"source,omitempty"`
}

// Inspection is the diagnostic view of one target against one document.
// Matches is the number of nodes the target selects with the resolvable
// bindings; it stays zero when any prefix is unresolved.
type Inspection struct {
	Target   string          `json:"target"`
	Prefixes []PrefixBinding `json:"prefixes,omitempty"`
	Matches  int             `json:"matches"`
}

// Resolved reports whether every prefix of the target has a binding the
// selection can use. Well-known prefixes do not count: they are advice
// about which override to pass, not bindings in scope.
func (i *Inspection) Resolved() bool {
	for _, b := range i.Prefixes {
		if b.Source != "declared" && b.Source != "override" {
			return false
		}
	}
	return true
}

// Inspect reports the namespaces in scope for target and how many nodes
// it selects. namespaces holds caller bindings layered over the
// document's declarations, the same shape Process takes. Diagnostic
// only, off the hot path: nothing is registered, cached or mutated.
func Inspect(doc *xmlir.Node, target string, namespaces map[string]string) (*Inspection, error) {
	if doc == nil || doc.Type != xmlir.ElementType {
		return nil, fmt.Errorf("oxpatch: document is not a parsed element tree")
	}
	expr, err := epath.Parse(target)
	if err != nil {
		return nil, err
	}

	eff := doc.DeclaredNamespaces()
	source := make(map[string]string, len(eff)+len(namespaces))
	for prefix := range eff {
		source[prefix] = "declared"
	}
	for prefix, uri := range namespaces {
		eff[prefix] = uri
		source[prefix] = "override"
	}

	insp := &Inspection{Target: target}
	for _, prefix := range expr.Prefixes() {
		b := PrefixBinding{Prefix: prefix}
		if uri, ok := eff[prefix]; ok {
			b.URI = uri
			b.Source = source[prefix]
		} else if uri, ok := xmlns.KnownLookup(prefix); ok {
			b.URI = uri
			b.Source = "well-known"
		}
		insp.Prefixes = append(insp.Prefixes, b)
	}
	if insp.Resolved() {
		matches := expr.Select(doc, func(prefix string) (string, bool) {
			uri, ok := eff[prefix]
			return uri, ok
		})
		insp.Matches = len(matches)
	}
	return insp, nil
}
