package optimize

import (
	"sort"
	"strings"

	"github.com/tokenlayer/oxpatch/patchop"
)

// costOf ranks an operation by how much tree work it implies. A
// single-value set touches text on matched nodes; extend and merge
// build or rewrite structure under every match.
func costOf(op patchop.Operation) int {
	switch op.Kind {
	case patchop.Set:
		if op.Value.Kind == patchop.ValueText {
			return 0
		}
		return 1
	case patchop.RelationshipAdd:
		return 1
	case patchop.Insert:
		return 2
	case patchop.Merge:
		return 3
	case patchop.Extend:
		return 4
	default:
		return 5
	}
}

// PlanOrder returns the indices of ops in execution order: cheap
// operations first so trivial failures surface early and cache entries
// build up before the heavy work. Equal-cost operations keep their
// submission order, and callers still report results in submission
// order whatever this returns.
func (o *Optimizer) PlanOrder(ops []patchop.Operation) []int {
	order := make([]int, len(ops))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return costOf(ops[order[a]]) < costOf(ops[order[b]])
	})
	for i, idx := range order {
		if i != idx {
			o.mu.Lock()
			o.plans++
			o.mu.Unlock()
			break
		}
	}
	return order
}

// Batch is a run of consecutive planned operations sharing a target
// and a namespace signature. The processor resolves the target once
// per batch.
type Batch struct {
	// Indices into the original ops slice, in execution order.
	Indices []int
}

// GroupBatches splits an execution order into runs whose operations
// share a target and namespace-override signature. Grouping amortizes
// path resolution only; it preserves the given order exactly.
func (o *Optimizer) GroupBatches(ops []patchop.Operation, order []int) []Batch {
	var (
		batches []Batch
		lastSig string
		shared  uint64
	)
	for _, idx := range order {
		sig := batchSignature(ops[idx])
		if len(batches) == 0 || sig != lastSig {
			batches = append(batches, Batch{Indices: []int{idx}})
			lastSig = sig
			continue
		}
		last := &batches[len(batches)-1]
		last.Indices = append(last.Indices, idx)
		if len(last.Indices) == 2 {
			shared += 2
		} else {
			shared++
		}
	}
	if shared > 0 {
		o.mu.Lock()
		o.batched += shared
		o.mu.Unlock()
	}
	return batches
}

func batchSignature(op patchop.Operation) string {
	var b strings.Builder
	b.WriteString(op.Target)
	b.WriteByte(0)
	if op.InheritNamespaces {
		b.WriteByte(1)
	}
	keys := make([]string, 0, len(op.NamespaceOverrides))
	for k := range op.NamespaceOverrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteByte(0)
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(op.NamespaceOverrides[k])
	}
	return b.String()
}
