package oxpatch

import (
	"maps"
	"slices"
	"strings"

	"github.com/tokenlayer/oxpatch/debug"
	"github.com/tokenlayer/oxpatch/optimize"
	"github.com/tokenlayer/oxpatch/patchop"
	"github.com/tokenlayer/oxpatch/recovery"
	"github.com/tokenlayer/oxpatch/xmlir"
	"github.com/tokenlayer/oxpatch/xmlir/epath"
	"github.com/tokenlayer/oxpatch/xmlns"
)

// runContext is the per-Process state: one document, one precomputed
// effective namespace map per operation, and the index of the
// operation currently executing. A run belongs to a single goroutine.
type runContext struct {
	p     *Processor
	doc   *xmlir.Node
	docID uint64

	// eff holds each operation's effective namespace map in submission
	// order: document declarations, then run-level bindings, then the
	// inherited override chain, then the operation's own overrides.
	eff []map[string]string
	cur int
}

func newRun(p *Processor, doc *xmlir.Node, ops []patchop.Operation, namespaces map[string]string) *runContext {
	rc := &runContext{p: p, doc: doc, docID: doc.DocID()}

	base := doc.DeclaredNamespaces()
	p.ns.RegisterAll(base)
	if len(namespaces) > 0 {
		p.ns.RegisterAll(namespaces)
		maps.Copy(base, namespaces)
	}

	// Inherit chains depend only on submission order, which keeps
	// resolution identical whatever execution order the optimizer picks.
	inherited := map[string]string{}
	rc.eff = make([]map[string]string, len(ops))
	for i, op := range ops {
		chain := map[string]string{}
		if op.InheritNamespaces {
			maps.Copy(chain, inherited)
		}
		if len(op.NamespaceOverrides) > 0 {
			p.ns.RegisterAll(op.NamespaceOverrides)
			maps.Copy(chain, op.NamespaceOverrides)
		}
		eff := make(map[string]string, len(base)+len(chain))
		maps.Copy(eff, base)
		maps.Copy(eff, chain)
		rc.eff[i] = eff
		inherited = chain
	}
	return rc
}

func (rc *runContext) runOne(idx int, op patchop.Operation) patchop.Result {
	rc.cur = idx
	key := optimize.KeyFor(op, rc.docID)
	if res, ok := rc.p.opt.Lookup(key); ok {
		return res
	}
	res, err := rc.execute(op, recovery.Mode{})
	if err != nil {
		res = rc.p.recov.Handle(err, op, rc)
	}
	rc.p.opt.Store(key, res)
	return res
}

// Execute implements recovery.Executor: fallbacks re-run adjusted
// operations against this run's document.
func (rc *runContext) Execute(op patchop.Operation, mode recovery.Mode) (patchop.Result, error) {
	return rc.execute(op, mode)
}

func (rc *runContext) execute(op patchop.Operation, mode recovery.Mode) (patchop.Result, error) {
	expr, err := rc.p.opt.CompilePath(op.Target)
	if err != nil {
		return patchop.Result{}, err
	}
	if op.Kind == patchop.RelationshipAdd {
		// Validated no-op; it never touches the tree.
		return rc.applyRelationship(op)
	}

	eff := rc.effective(op)
	if mode.LocalNames {
		expr = expr.LocalNames()
	} else {
		for _, prefix := range expr.Prefixes() {
			if _, ok := eff[prefix]; !ok {
				return patchop.Result{}, &xmlns.ResolveError{Prefix: prefix, Target: op.Target}
			}
		}
	}
	resolve := func(prefix string) (string, bool) {
		uri, ok := eff[prefix]
		return uri, ok
	}

	matches := expr.Select(rc.doc, resolve)
	if debug.Resolve() {
		debug.Logf("resolve: %s -> %d matches (doc %d)\n", op.Target, len(matches), rc.docID)
	}
	if len(matches) == 0 {
		if s := rc.suggest(expr); s != "" {
			return patchop.Result{}, &patchop.LookupError{
				Target:     op.Target,
				Missing:    "matching nodes",
				Suggestion: s,
			}
		}
		return patchop.ZeroMatch(op), nil
	}

	switch op.Kind {
	case patchop.Set:
		return rc.applySet(op, matches)
	case patchop.Insert:
		return rc.applyInsert(op, matches, eff)
	case patchop.Extend:
		return rc.applyExtend(op, matches, eff)
	case patchop.Merge:
		return rc.applyMerge(op, matches, eff)
	default:
		return patchop.Result{}, &patchop.ValidationError{Field: "kind", Msg: "unknown operation kind"}
	}
}

// effective returns the namespace map for the executing operation.
// Fallback retries arrive with grown override maps, which are layered
// over the precomputed map for the current index.
func (rc *runContext) effective(op patchop.Operation) map[string]string {
	base := rc.eff[rc.cur]
	if len(op.NamespaceOverrides) == 0 {
		return base
	}
	out := make(map[string]string, len(base)+len(op.NamespaceOverrides))
	maps.Copy(out, base)
	maps.Copy(out, op.NamespaceOverrides)
	return out
}

// suggest looks for a case-insensitive near miss of the final element
// step's name among the document's elements and returns the corrected
// target, or "" when there is nothing to suggest.
func (rc *runContext) suggest(e *epath.Expr) string {
	last := -1
	for i := len(e.Steps) - 1; i >= 0; i-- {
		if !e.Steps[i].Attr {
			last = i
			break
		}
	}
	if last < 0 || e.Steps[last].Wildcard {
		return ""
	}
	want := e.Steps[last].Name.Local
	found := ""
	rc.doc.Visit(func(n *xmlir.Node, post bool) (bool, error) {
		if post || found != "" || n.Type != xmlir.ElementType {
			return found == "", nil
		}
		if n.Name.Local != want && strings.EqualFold(n.Name.Local, want) {
			found = n.Name.Local
		}
		return found == "", nil
	})
	if found == "" {
		return ""
	}
	fixed := *e
	fixed.Steps = slices.Clone(e.Steps)
	fixed.Steps[last].Name.Local = found
	return fixed.String()
}
