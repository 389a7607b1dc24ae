package oxpatch

import (
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/tokenlayer/oxpatch/debug"
	"github.com/tokenlayer/oxpatch/optimize"
	"github.com/tokenlayer/oxpatch/patchop"
	"github.com/tokenlayer/oxpatch/recovery"
	"github.com/tokenlayer/oxpatch/xmldiff"
	"github.com/tokenlayer/oxpatch/xmlir"
	"github.com/tokenlayer/oxpatch/xmlns"
)

// Config configures a Processor. Nil pointer fields get private
// defaults from New.
type Config struct {
	// Strategy decides what happens after a failed operation. The zero
	// value is FailFast; DefaultConfig selects RetryWithFallback.
	Strategy recovery.Strategy
	// Optimizer may be shared between processors. Sharing pools the
	// result and compiled-path caches.
	Optimizer *optimize.Optimizer
	// Namespaces collects prefix registrations and collision aliases
	// across runs.
	Namespaces *xmlns.Context
	Log        *slog.Logger
	// Diff logs a unified diff of the document around each run at
	// debug level.
	Diff bool
}

func DefaultConfig() *Config {
	return &Config{Strategy: recovery.RetryWithFallback}
}

// Processor applies patch operations to parsed OOXML parts. One
// Processor may serve several documents concurrently; each document
// must be owned by exactly one Process call at a time.
type Processor struct {
	strategy recovery.Strategy
	opt      *optimize.Optimizer
	ns       *xmlns.Context
	recov    *recovery.Handler
	log      *slog.Logger
	diff     bool

	processed atomic.Uint64
	applied   atomic.Uint64
	failed    atomic.Uint64
	warned    atomic.Uint64
}

func New(cfg *Config) *Processor {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	opt := cfg.Optimizer
	if opt == nil {
		opt = optimize.New(nil)
	}
	ns := cfg.Namespaces
	if ns == nil {
		ns = xmlns.NewContext()
	}
	lg := cfg.Log
	if lg == nil {
		lg = slog.Default()
	}
	lg = lg.With("component", "oxpatch")
	return &Processor{
		strategy: cfg.Strategy,
		opt:      opt,
		ns:       ns,
		recov:    recovery.NewHandler(&recovery.Config{Strategy: cfg.Strategy, Log: lg}),
		log:      lg,
		diff:     cfg.Diff,
	}
}

// Strategy returns the configured recovery strategy.
func (p *Processor) Strategy() recovery.Strategy { return p.strategy }

// Namespaces returns the session namespace context.
func (p *Processor) Namespaces() *xmlns.Context { return p.ns }

// Optimizer returns the processor's optimizer.
func (p *Processor) Optimizer() *optimize.Optimizer { return p.opt }

// Process applies ops to doc and returns one result per operation, in
// submission order, whatever execution order the optimizer picked.
// Under FailFast the list is truncated after the first Error-or-worse
// failure. namespaces holds run-level prefix bindings layered over the
// document's own declarations. The only hard error is a document that
// is not a parsed element tree; everything else lands in the results.
// The engine does not retain doc after returning.
func (p *Processor) Process(doc *xmlir.Node, ops []patchop.Operation, namespaces map[string]string) ([]patchop.Result, error) {
	if doc == nil || doc.Type != xmlir.ElementType {
		return nil, fmt.Errorf("oxpatch: document is not a parsed element tree")
	}
	rc := newRun(p, doc, ops, namespaces)

	var before string
	if p.diff {
		before = doc.XML()
	}

	results := make([]patchop.Result, len(ops))
	if p.strategy == recovery.FailFast {
		// Submission order so truncation matches what the caller sent.
		for i, op := range ops {
			res := rc.runOne(i, op)
			res.Index = i
			results[i] = res
			p.account(res)
			if !res.Success && res.Severity.AtLeast(patchop.Error) {
				p.log.Warn("halting batch",
					"index", i, "kind", op.Kind.String(), "target", op.Target, "message", res.Message)
				results = results[:i+1]
				break
			}
		}
	} else {
		order := p.opt.PlanOrder(ops)
		batches := p.opt.GroupBatches(ops, order)
		p.log.Debug("planned batch", "operations", len(ops), "batches", len(batches))
		if debug.Batch() {
			debug.Logf("batch: %d ops in %d batches\n", len(ops), len(batches))
		}
		for _, b := range batches {
			for _, idx := range b.Indices {
				res := rc.runOne(idx, ops[idx])
				res.Index = idx
				results[idx] = res
				p.account(res)
			}
		}
	}

	if p.diff {
		if after := doc.XML(); after != before {
			p.log.Debug("document changed", "diff", xmldiff.Unified(before, after))
		}
	}
	return results, nil
}

// ProcessText parses the document, applies ops and serializes the
// patched tree. Parse failures are hard errors, per the processing
// contract.
func (p *Processor) ProcessText(doc []byte, ops []patchop.Operation, namespaces map[string]string) ([]byte, []patchop.Result, error) {
	root, err := xmlir.Parse(doc)
	if err != nil {
		return nil, nil, err
	}
	results, err := p.Process(root, ops, namespaces)
	if err != nil {
		return nil, nil, err
	}
	return xmlir.Serialize(root), results, nil
}

func (p *Processor) account(res patchop.Result) {
	p.processed.Add(1)
	if res.Success {
		p.applied.Add(1)
	} else if res.Severity.AtLeast(patchop.Error) {
		p.failed.Add(1)
	}
	if len(res.Warnings) > 0 || res.Severity == patchop.Warning {
		p.warned.Add(1)
	}
}
