package recovery

import (
	"fmt"
	"strings"
)

// Strategy is the run-level policy for what happens after an operation
// fails. It is fixed for the duration of one processing run.
type Strategy uint8

const (
	// FailFast turns the first Error-or-worse failure into a terminal
	// result; the processor stops the queue there.
	FailFast Strategy = iota
	// SkipFailed records the failure and moves on.
	SkipFailed
	// RetryWithFallback dispatches to the one fallback keyed by the
	// failure's category before giving up on the operation.
	RetryWithFallback
	// BestEffort tries every applicable fallback in a fixed order and
	// never lets an operation abort the run.
	BestEffort
)

func (s Strategy) String() string {
	switch s {
	case FailFast:
		return "fail_fast"
	case SkipFailed:
		return "skip_failed"
	case RetryWithFallback:
		return "retry_with_fallback"
	case BestEffort:
		return "best_effort"
	default:
		return fmt.Sprintf("Strategy(%d)", uint8(s))
	}
}

func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fail_fast", "failfast":
		return FailFast, nil
	case "skip_failed", "skipfailed":
		return SkipFailed, nil
	case "", "retry_with_fallback", "retrywithfallback", "retry":
		return RetryWithFallback, nil
	case "best_effort", "besteffort":
		return BestEffort, nil
	}
	return FailFast, fmt.Errorf("unknown recovery strategy %q", s)
}

func (s Strategy) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Strategy) UnmarshalText(d []byte) error {
	v, err := ParseStrategy(string(d))
	if err != nil {
		return err
	}
	*s = v
	return nil
}
