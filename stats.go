package oxpatch

import (
	"github.com/tokenlayer/oxpatch/optimize"
	"github.com/tokenlayer/oxpatch/recovery"
	"github.com/tokenlayer/oxpatch/xmlns"
)

// EngineStats are the processor's own counters. Failed counts results
// of Error severity or worse; zero-match warnings land in Warned only.
type EngineStats struct {
	Processed   uint64  `json:"operations_processed"`
	Applied     uint64  `json:"operations_applied"`
	Failed      uint64  `json:"operations_failed"`
	Warned      uint64  `json:"operations_with_warnings"`
	SuccessRate float64 `json:"success_rate"`
	ErrorRate   float64 `json:"error_rate"`
}

// Stats merges the counters of every engine layer into one snapshot.
type Stats struct {
	Engine     EngineStats    `json:"engine"`
	Optimizer  optimize.Stats `json:"optimizer"`
	Namespaces xmlns.Stats    `json:"namespaces"`
	Recovery   recovery.Stats `json:"recovery"`
}

func (p *Processor) Stats() Stats {
	processed := p.processed.Load()
	eng := EngineStats{
		Processed: processed,
		Applied:   p.applied.Load(),
		Failed:    p.failed.Load(),
		Warned:    p.warned.Load(),
	}
	if processed > 0 {
		eng.SuccessRate = float64(eng.Applied) / float64(processed)
		eng.ErrorRate = float64(eng.Failed) / float64(processed)
	}
	return Stats{
		Engine:     eng,
		Optimizer:  p.opt.Stats(),
		Namespaces: p.ns.Stats(),
		Recovery:   p.recov.Stats(),
	}
}

// ResetStats zeroes every numeric counter across the engine, the
// optimizer, the namespace context and the recovery handler. Caches
// and namespace bindings survive.
func (p *Processor) ResetStats() {
	p.processed.Store(0)
	p.applied.Store(0)
	p.failed.Store(0)
	p.warned.Store(0)
	p.opt.Reset()
	p.ns.ResetStats()
	p.recov.Reset()
}
