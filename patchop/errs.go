package patchop

import "fmt"

// ValidationError rejects a descriptor before any processing happens.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid operation: %s: %s", e.Field, e.Msg)
}

// TypeMismatchError reports a payload whose shape cannot apply to the
// matched target, like extending an attribute with a list.
type TypeMismatchError struct {
	Kind       Kind
	ValueKind  ValueKind
	TargetForm string // "attribute", "element", "text"
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("%s with %s value cannot apply to %s target",
		e.Kind, e.ValueKind, e.TargetForm)
}

// LookupError reports something an operation needed but the document does
// not have: a part, an element, an attribute. Suggestion, when set, names
// a near miss recovery may try instead.
type LookupError struct {
	Target     string
	Missing    string
	Suggestion string
}

func (e *LookupError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("lookup failed at %s: no %s (did you mean %s?)",
			e.Target, e.Missing, e.Suggestion)
	}
	return fmt.Sprintf("lookup failed at %s: no %s", e.Target, e.Missing)
}
