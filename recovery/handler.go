package recovery

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/tokenlayer/oxpatch/debug"
	"github.com/tokenlayer/oxpatch/patchop"
	"github.com/tokenlayer/oxpatch/xmlir"
	"github.com/tokenlayer/oxpatch/xmlns"
)

// Mode carries the adjustments a fallback asks the executor to apply
// on a retry. The zero Mode is a plain re-execution.
type Mode struct {
	// LocalNames matches path steps by local name only, ignoring
	// namespace bindings.
	LocalNames bool
}

// Executor re-runs an operation against the current document. The
// processor implements it; fallbacks hand it adjusted copies of the
// failed operation.
type Executor interface {
	Execute(op patchop.Operation, mode Mode) (patchop.Result, error)
}

type Config struct {
	Strategy Strategy
	Log      *slog.Logger
}

func DefaultConfig() *Config {
	return &Config{Strategy: RetryWithFallback}
}

// Handler turns pipeline failures into results according to one
// Strategy. Counters are atomic so shared stats reads don't race a
// processing run.
type Handler struct {
	strategy Strategy
	log      *slog.Logger

	attempts  atomic.Uint64
	successes atomic.Uint64
}

func NewHandler(cfg *Config) *Handler {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	lg := cfg.Log
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{strategy: cfg.Strategy, log: lg}
}

func (h *Handler) Strategy() Strategy { return h.strategy }

type Stats struct {
	Attempts    uint64  `json:"fallback_attempts"`
	Successes   uint64  `json:"fallback_successes"`
	SuccessRate float64 `json:"fallback_success_rate"`
}

func (h *Handler) Stats() Stats {
	a := h.attempts.Load()
	s := h.successes.Load()
	st := Stats{Attempts: a, Successes: s}
	if a > 0 {
		st.SuccessRate = float64(s) / float64(a)
	}
	return st
}

func (h *Handler) Reset() {
	h.attempts.Store(0)
	h.successes.Store(0)
}

// Handle converts a failed operation into its recorded result. Under
// the retrying strategies it drives fallbacks through exec; under
// FailFast and SkipFailed exec is unused and may be nil.
func (h *Handler) Handle(err error, op patchop.Operation, exec Executor) patchop.Result {
	cat := Classify(err)
	failed := patchop.Failed(op, cat.Severity(), cat.String(), err.Error())
	failed.RecoveryStrategy = h.strategy.String()

	switch h.strategy {
	case RetryWithFallback:
		fb := h.categoryFallback(cat)
		if fb == nil {
			return failed
		}
		res, ok, executed := h.try(fb, err, op, exec)
		if ok {
			return res
		}
		failed.RecoveryAttempted = executed
		return failed
	case BestEffort:
		for _, fb := range allFallbacks {
			res, ok, executed := h.try(fb, err, op, exec)
			if ok {
				return res
			}
			failed.RecoveryAttempted = failed.RecoveryAttempted || executed
		}
		return failed
	default: // FailFast, SkipFailed
		return failed
	}
}

// fallback repairs one class of failure. apply reports false without
// touching the counters when the error is not its shape.
type fallback struct {
	name  string
	apply func(err error, op patchop.Operation) (patchop.Operation, Mode, bool)
}

// Fixed order for BestEffort sweeps. The targeted repairs run first;
// the namespace-agnostic path match is the sweep of last resort.
var allFallbacks = []*fallback{fbNamespace, fbFragment, fbLookup, fbValue, fbLocalNames}

func (h *Handler) categoryFallback(cat Category) *fallback {
	switch cat {
	case CategoryPath:
		return fbLocalNames
	case CategoryNamespace:
		return fbNamespace
	case CategoryFragment:
		return fbFragment
	case CategoryLookup:
		return fbLookup
	case CategoryValue:
		return fbValue
	default:
		return nil
	}
}

func (h *Handler) try(fb *fallback, err error, op patchop.Operation, exec Executor) (res patchop.Result, recovered, executed bool) {
	if exec == nil {
		return patchop.Result{}, false, false
	}
	adjusted, mode, ok := fb.apply(err, op)
	if !ok {
		return patchop.Result{}, false, false
	}
	h.attempts.Add(1)
	res, rerr := exec.Execute(adjusted, mode)
	if debug.Recover() {
		debug.Logf("recovery: fallback %s for %s %s: err=%v success=%v\n", fb.name, op.Kind, op.Target, rerr, res.Success)
	}
	if rerr != nil || !res.Success {
		h.log.Debug("fallback failed", "fallback", fb.name, "kind", op.Kind.String(), "target", op.Target, "error", rerr)
		return patchop.Result{}, false, true
	}
	h.successes.Add(1)
	h.log.Debug("fallback recovered operation", "fallback", fb.name, "kind", op.Kind.String(), "target", op.Target)
	res.Severity = patchop.Warning
	res.RecoveryAttempted = true
	res.FallbackApplied = true
	res.RecoveryStrategy = h.strategy.String()
	res.Warn(fmt.Sprintf("recovered via %s after: %v", fb.name, err))
	return res, true, true
}

// fbLocalNames retries the unmodified operation with namespace-agnostic
// path matching. Applicable to any failure whose operation has a
// target, so it doubles as the sweep-of-last-resort under BestEffort.
var fbLocalNames = &fallback{
	name: "local_names",
	apply: func(err error, op patchop.Operation) (patchop.Operation, Mode, bool) {
		if op.Target == "" {
			return op, Mode{}, false
		}
		return op, Mode{LocalNames: true}, true
	},
}

// fbNamespace rebinds an unresolved prefix from the registry of
// well-known OOXML namespaces and retries.
var fbNamespace = &fallback{
	name: "known_namespace",
	apply: func(err error, op patchop.Operation) (patchop.Operation, Mode, bool) {
		var nsErr *xmlns.ResolveError
		if !errors.As(err, &nsErr) {
			return op, Mode{}, false
		}
		uri, ok := xmlns.KnownLookup(nsErr.Prefix)
		if !ok {
			return op, Mode{}, false
		}
		adjusted := op
		adjusted.NamespaceOverrides = withBinding(op.NamespaceOverrides, nsErr.Prefix, uri)
		return adjusted, Mode{}, true
	},
}

// fbFragment repairs a fragment that used undeclared prefixes by
// binding each one from the operation's overrides, then from the
// well-known registry, and reparsing.
var fbFragment = &fallback{
	name: "fragment_namespaces",
	apply: func(err error, op patchop.Operation) (patchop.Operation, Mode, bool) {
		var fragErr *xmlir.FragmentError
		if !errors.As(err, &fragErr) || len(fragErr.MissingPrefixes) == 0 {
			return op, Mode{}, false
		}
		adjusted := op
		repaired := 0
		for _, p := range fragErr.MissingPrefixes {
			uri, ok := op.NamespaceOverrides[p]
			if !ok {
				uri, ok = xmlns.KnownLookup(p)
			}
			if !ok {
				continue
			}
			adjusted.NamespaceOverrides = withBinding(adjusted.NamespaceOverrides, p, uri)
			repaired++
		}
		if repaired < len(fragErr.MissingPrefixes) {
			return op, Mode{}, false
		}
		return adjusted, Mode{}, true
	},
}

// fbLookup retries with the corrected target the lookup error
// suggested, typically a case or spelling repair.
var fbLookup = &fallback{
	name: "corrected_target",
	apply: func(err error, op patchop.Operation) (patchop.Operation, Mode, bool) {
		var lookupErr *patchop.LookupError
		if !errors.As(err, &lookupErr) || lookupErr.Suggestion == "" || lookupErr.Suggestion == op.Target {
			return op, Mode{}, false
		}
		adjusted := op
		adjusted.Target = lookupErr.Suggestion
		return adjusted, Mode{}, true
	},
}

// fbValue coerces a structured payload down to plain text when the
// target only takes a string, rewriting inserts into sets so the
// coerced text has somewhere to land.
var fbValue = &fallback{
	name: "string_coercion",
	apply: func(err error, op patchop.Operation) (patchop.Operation, Mode, bool) {
		var typeErr *patchop.TypeMismatchError
		if !errors.As(err, &typeErr) {
			return op, Mode{}, false
		}
		text, ok := coerceText(op.Value)
		if !ok {
			return op, Mode{}, false
		}
		adjusted := op
		adjusted.Value = patchop.TextValue(text)
		if adjusted.Kind == patchop.Insert {
			adjusted.Kind = patchop.Set
		}
		return adjusted, Mode{}, true
	},
}

func coerceText(v patchop.Value) (string, bool) {
	switch v.Kind {
	case patchop.ValueText, patchop.ValueFragment:
		return v.Text, v.Text != ""
	case patchop.ValueList:
		parts, ok := v.Strings()
		if !ok || len(parts) == 0 {
			return "", false
		}
		return strings.Join(parts, " "), true
	default:
		return "", false
	}
}

func withBinding(m map[string]string, prefix, uri string) map[string]string {
	out := make(map[string]string, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	out[prefix] = uri
	return out
}
