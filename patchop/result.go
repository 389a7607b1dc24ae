package patchop

// Result is the outcome of one operation. A process run returns exactly
// one Result per submitted operation, in submission order, whatever
// execution order the optimizer chose. Successful results carry severity
// Info or Warning, never worse.
type Result struct {
	Index            int      `json:"index"`
	Kind             Kind     `json:"kind"`
	Target           string   `json:"target"`
	Success          bool     `json:"success"`
	AffectedElements int      `json:"affected_elements"`
	Severity         Severity `json:"severity"`
	Message          string   `json:"message,omitempty"`
	Warnings         []string `json:"warnings,omitempty"`

	// AffectedFiles names the document parts a successful mutation
	// touched, for rollback bookkeeping outside the engine.
	AffectedFiles []string `json:"affected_files,omitempty"`

	RecoveryAttempted bool   `json:"recovery_attempted,omitempty"`
	RecoveryStrategy  string `json:"recovery_strategy_used,omitempty"`
	FallbackApplied   bool   `json:"fallback_applied,omitempty"`

	// CacheHit marks a result served from the optimizer's result cache
	// without touching the document.
	CacheHit bool `json:"cache_hit,omitempty"`

	Exception *ExceptionInfo `json:"exception_info,omitempty"`
}

// ExceptionInfo carries the classified failure attached to a Result.
type ExceptionInfo struct {
	Category string `json:"category"`
	Message  string `json:"message"`
	Detail   string `json:"detail,omitempty"`
}

// Succeeded builds the plain success result for an operation.
func Succeeded(op Operation, affected int) Result {
	return Result{
		Kind:             op.Kind,
		Target:           op.Target,
		Success:          true,
		AffectedElements: affected,
		Severity:         Info,
	}
}

// ZeroMatch builds the result for a target that matched nothing: not a
// success, but only Warning severity. Nothing was modified and the run
// goes on.
func ZeroMatch(op Operation) Result {
	return Result{
		Kind:     op.Kind,
		Target:   op.Target,
		Severity: Warning,
		Message:  "target matched no nodes",
		Warnings: []string{"target matched no nodes: " + op.Target},
		Exception: &ExceptionInfo{
			Category: "target_not_found",
			Message:  "target matched no nodes: " + op.Target,
		},
	}
}

// Failed builds a failure result.
func Failed(op Operation, sev Severity, category, msg string) Result {
	return Result{
		Kind:     op.Kind,
		Target:   op.Target,
		Severity: sev,
		Message:  msg,
		Exception: &ExceptionInfo{
			Category: category,
			Message:  msg,
		},
	}
}

// Warn appends a warning message, raising the severity to Warning when
// the result was plain Info.
func (r *Result) Warn(msg string) {
	r.Warnings = append(r.Warnings, msg)
	if r.Severity < Warning {
		r.Severity = Warning
	}
}
