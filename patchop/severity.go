package patchop

import (
	"fmt"
	"strings"
)

// Severity ranks how bad an outcome was. The order is meaningful:
// Info < Warning < Error < Critical, so severities compare with <.
type Severity uint8

const (
	Info Severity = iota
	Warning
	Error
	Critical
)

func (s Severity) String() string {
	switch s {
	case Info:
		return "info"
	case Warning:
		return "warning"
	case Error:
		return "error"
	case Critical:
		return "critical"
	default:
		return fmt.Sprintf("Severity(%d)", uint8(s))
	}
}

func ParseSeverity(s string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return Info, nil
	case "warning", "warn":
		return Warning, nil
	case "error":
		return Error, nil
	case "critical":
		return Critical, nil
	}
	return Info, fmt.Errorf("unknown severity %q", s)
}

func (s Severity) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Severity) UnmarshalText(d []byte) error {
	v, err := ParseSeverity(string(d))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// AtLeast reports whether s is v or worse.
func (s Severity) AtLeast(v Severity) bool { return s >= v }
