package patchop

import (
	"fmt"
)

// Attribute names a relationship mapping must or may carry. They match
// the attribute names of a Relationship element in OOXML package rels.
const (
	RelID         = "Id"
	RelType       = "Type"
	RelTarget     = "Target"
	RelTargetMode = "TargetMode"
)

// Keys of the mapping form an insert payload may take.
const (
	InsertTag   = "tag"
	InsertAttrs = "attributes"
	InsertText  = "text"
)

// MergeText is the mapping key a merge payload uses to address text
// content; every other key names an attribute.
const MergeText = "text"

// Operation is one validated patch instruction. It is immutable once
// built; handlers that retry with adjustments work on copies.
type Operation struct {
	Kind   Kind   `json:"kind"`
	Target string `json:"target"`
	Value  Value  `json:"value"`

	// Position applies to insert; other kinds ignore it.
	Position Position `json:"position,omitempty"`
	// MergeStrategy applies to merge; other kinds ignore it.
	MergeStrategy MergeStrategy `json:"merge_strategy,omitempty"`

	// NamespaceOverrides resolve path and fragment prefixes before the
	// document's own declarations do.
	NamespaceOverrides map[string]string `json:"namespace_overrides,omitempty"`
	// InheritNamespaces additionally carries forward the overrides of
	// preceding operations in the same run.
	InheritNamespaces bool `json:"inherit_namespaces,omitempty"`
}

// Descriptor is the wire form of an operation as it appears in patch
// sets and requests, before validation.
type Descriptor struct {
	Kind              string            `json:"kind" yaml:"kind"`
	Target            string            `json:"target" yaml:"target"`
	Value             any               `json:"value,omitempty" yaml:"value"`
	ValueKind         string            `json:"value_kind,omitempty" yaml:"value_kind"`
	Position          string            `json:"position,omitempty" yaml:"position"`
	MergeStrategy     string            `json:"merge_strategy,omitempty" yaml:"merge_strategy"`
	Namespaces        map[string]string `json:"namespace_overrides,omitempty" yaml:"namespace_overrides"`
	InheritNamespaces bool              `json:"inherit_namespaces,omitempty" yaml:"inherit_namespaces"`
}

// FromDescriptor validates a descriptor and builds the operation.
// Validation rejects only malformed construction: a missing or unknown
// kind, a missing target, a missing or undecodable value, and enum fields
// that do not parse. Whether the payload shape fits the operation kind is
// a processing-time question, answered per matched target, so that one
// bad pairing fails its own result instead of the whole batch.
func FromDescriptor(d Descriptor) (Operation, error) {
	var op Operation

	kind, err := ParseKind(d.Kind)
	if err != nil {
		return op, &ValidationError{Field: "kind", Msg: err.Error()}
	}
	op.Kind = kind

	if d.Target == "" {
		return op, &ValidationError{Field: "target", Msg: "missing target path"}
	}
	op.Target = d.Target

	val, err := FromAny(d.Value)
	if err != nil {
		return op, &ValidationError{Field: "value", Msg: err.Error()}
	}
	if d.ValueKind != "" {
		declared, err := ParseValueKind(d.ValueKind)
		if err != nil {
			return op, &ValidationError{Field: "value_kind", Msg: err.Error()}
		}
		val, err = coerceKind(val, declared)
		if err != nil {
			return op, &ValidationError{Field: "value_kind", Msg: err.Error()}
		}
	} else if kind == Insert && val.Kind == ValueText {
		// A bare string for insert is markup, not text.
		val.Kind = ValueFragment
	}
	if val.IsZero() {
		return op, &ValidationError{Field: "value", Msg: "missing value"}
	}
	op.Value = val

	if op.Position, err = ParsePosition(d.Position); err != nil {
		return op, &ValidationError{Field: "position", Msg: err.Error()}
	}
	if op.MergeStrategy, err = ParseMergeStrategy(d.MergeStrategy); err != nil {
		return op, &ValidationError{Field: "merge_strategy", Msg: err.Error()}
	}
	op.NamespaceOverrides = d.Namespaces
	op.InheritNamespaces = d.InheritNamespaces
	return op, nil
}

// Descriptor converts the operation back to its wire form.
func (o Operation) Descriptor() Descriptor {
	d := Descriptor{
		Kind:              o.Kind.String(),
		Target:            o.Target,
		ValueKind:         o.Value.Kind.String(),
		Value:             valueToAny(o.Value),
		Namespaces:        o.NamespaceOverrides,
		InheritNamespaces: o.InheritNamespaces,
	}
	if o.Value.IsZero() {
		d.ValueKind = ""
	}
	if o.Kind == Insert {
		d.Position = o.Position.String()
	}
	if o.Kind == Merge {
		d.MergeStrategy = o.MergeStrategy.String()
	}
	return d
}

func valueToAny(v Value) any {
	switch v.Kind {
	case ValueText, ValueFragment:
		return v.Text
	case ValueList:
		res := make([]any, len(v.List))
		for i, it := range v.List {
			res[i] = valueToAny(it)
		}
		return res
	case ValueMapping:
		res := make(map[string]any, len(v.Map))
		for k, it := range v.Map {
			res[k] = valueToAny(it)
		}
		return res
	}
	return nil
}

func coerceKind(v Value, declared ValueKind) (Value, error) {
	if declared == ValueNone || v.Kind == declared {
		return v, nil
	}
	// Text and fragment share the string arm; everything else must
	// already have the declared shape.
	if (v.Kind == ValueText && declared == ValueFragment) ||
		(v.Kind == ValueFragment && declared == ValueText) {
		v.Kind = declared
		return v, nil
	}
	return v, fmt.Errorf("declared %s but value is %s", declared, v.Kind)
}

func (o Operation) String() string {
	return fmt.Sprintf("%s %s %s", o.Kind, o.Target, o.Value)
}
