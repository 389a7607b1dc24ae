package patchop

import (
	"fmt"
	"strings"
)

// Kind is the operation discriminator.
type Kind uint8

const (
	KindUnknown Kind = iota
	Set
	Insert
	Extend
	Merge
	RelationshipAdd
)

func (k Kind) String() string {
	switch k {
	case Set:
		return "set"
	case Insert:
		return "insert"
	case Extend:
		return "extend"
	case Merge:
		return "merge"
	case RelationshipAdd:
		return "relationship_add"
	default:
		return "unknown"
	}
}

// ParseKind reads an operation kind. Both snake_case and CamelCase
// spellings are accepted; matching ignores case.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "set":
		return Set, nil
	case "insert":
		return Insert, nil
	case "extend":
		return Extend, nil
	case "merge":
		return Merge, nil
	case "relationship_add", "relationshipadd":
		return RelationshipAdd, nil
	}
	return KindUnknown, fmt.Errorf("unknown operation kind %q", s)
}

func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *Kind) UnmarshalText(d []byte) error {
	v, err := ParseKind(string(d))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// ValueKind discriminates the payload forms an operation can carry.
type ValueKind uint8

const (
	ValueNone ValueKind = iota
	ValueText
	ValueFragment
	ValueList
	ValueMapping
)

func (v ValueKind) String() string {
	switch v {
	case ValueText:
		return "text"
	case ValueFragment:
		return "xml_fragment"
	case ValueList:
		return "list"
	case ValueMapping:
		return "mapping"
	default:
		return "none"
	}
}

func ParseValueKind(s string) (ValueKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text":
		return ValueText, nil
	case "xml_fragment", "xmlfragment", "fragment":
		return ValueFragment, nil
	case "list":
		return ValueList, nil
	case "mapping", "map":
		return ValueMapping, nil
	case "", "none":
		return ValueNone, nil
	}
	return ValueNone, fmt.Errorf("unknown value kind %q", s)
}

func (v ValueKind) MarshalText() ([]byte, error) { return []byte(v.String()), nil }

func (v *ValueKind) UnmarshalText(d []byte) error {
	k, err := ParseValueKind(string(d))
	if err != nil {
		return err
	}
	*v = k
	return nil
}

// Position says where an insert lands relative to its target.
type Position uint8

const (
	Append Position = iota // last child of the target
	Prepend                // first child of the target
	Before                 // previous sibling of the target
	After                  // next sibling of the target
)

func (p Position) String() string {
	switch p {
	case Append:
		return "append"
	case Prepend:
		return "prepend"
	case Before:
		return "before"
	case After:
		return "after"
	default:
		return fmt.Sprintf("Position(%d)", uint8(p))
	}
}

func ParsePosition(s string) (Position, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "append":
		return Append, nil
	case "prepend":
		return Prepend, nil
	case "before":
		return Before, nil
	case "after":
		return After, nil
	}
	return Append, fmt.Errorf("unknown position %q", s)
}

func (p Position) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *Position) UnmarshalText(d []byte) error {
	v, err := ParsePosition(string(d))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// MergeStrategy controls how merge combines the payload with what the
// target already holds.
type MergeStrategy uint8

const (
	Update MergeStrategy = iota // replace what the payload names
	AppendMerge                 // add after what is already there
)

func (m MergeStrategy) String() string {
	switch m {
	case Update:
		return "update"
	case AppendMerge:
		return "append"
	default:
		return fmt.Sprintf("MergeStrategy(%d)", uint8(m))
	}
}

func ParseMergeStrategy(s string) (MergeStrategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "update":
		return Update, nil
	case "append":
		return AppendMerge, nil
	}
	return Update, fmt.Errorf("unknown merge strategy %q", s)
}

func (m MergeStrategy) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m *MergeStrategy) UnmarshalText(d []byte) error {
	v, err := ParseMergeStrategy(string(d))
	if err != nil {
		return err
	}
	*m = v
	return nil
}
