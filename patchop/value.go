package patchop

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"sort"

	"lukechampine.com/blake3"
)

// Value is the payload of an operation: plain text, an XML fragment, a
// list of values, or a string-keyed mapping of values. Exactly one arm is
// active, selected by Kind; Text carries both the text and fragment arms.
// Lists and mappings nest, so a payload like
// {tag: "w:p", attributes: {w:rsidR: "00A1"}} carries through intact.
type Value struct {
	Kind ValueKind        `json:"kind"`
	Text string           `json:"text,omitempty"`
	List []Value          `json:"list,omitempty"`
	Map  map[string]Value `json:"map,omitempty"`
}

func TextValue(s string) Value     { return Value{Kind: ValueText, Text: s} }
func FragmentValue(s string) Value { return Value{Kind: ValueFragment, Text: s} }

func ListValue(items ...Value) Value { return Value{Kind: ValueList, List: items} }

// StringList builds a list of text values.
func StringList(items ...string) Value {
	vs := make([]Value, len(items))
	for i, s := range items {
		vs[i] = TextValue(s)
	}
	return ListValue(vs...)
}

func MapValue(m map[string]Value) Value { return Value{Kind: ValueMapping, Map: m} }

// StringMap builds a mapping of text values.
func StringMap(m map[string]string) Value {
	vm := make(map[string]Value, len(m))
	for k, s := range m {
		vm[k] = TextValue(s)
	}
	return MapValue(vm)
}

// FromAny builds a Value from decoded JSON or YAML. Strings become text
// (descriptors that mean markup say so through value_kind), sequences
// become lists, mappings become string-keyed maps, and scalar numbers and
// bools become their text form. Nesting is preserved.
func FromAny(v any) (Value, error) {
	switch x := v.(type) {
	case nil:
		return Value{}, nil
	case Value:
		return x, nil
	case string:
		return TextValue(x), nil
	case []string:
		return StringList(x...), nil
	case map[string]string:
		return StringMap(x), nil
	case []any:
		items := make([]Value, 0, len(x))
		for i, it := range x {
			val, err := FromAny(it)
			if err != nil {
				return Value{}, fmt.Errorf("list item %d: %w", i, err)
			}
			items = append(items, val)
		}
		return ListValue(items...), nil
	case map[string]any:
		m := make(map[string]Value, len(x))
		for k, it := range x {
			val, err := FromAny(it)
			if err != nil {
				return Value{}, fmt.Errorf("mapping key %q: %w", k, err)
			}
			m[k] = val
		}
		return MapValue(m), nil
	case map[any]any:
		m := make(map[string]Value, len(x))
		for k, it := range x {
			ks, ok := scalarString(k)
			if !ok {
				return Value{}, fmt.Errorf("mapping key %v: unsupported key type %T", k, k)
			}
			val, err := FromAny(it)
			if err != nil {
				return Value{}, fmt.Errorf("mapping key %q: %w", ks, err)
			}
			m[ks] = val
		}
		return MapValue(m), nil
	}
	if s, ok := scalarString(v); ok {
		return TextValue(s), nil
	}
	return Value{}, fmt.Errorf("unsupported value type %T", v)
}

func scalarString(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case bool, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64, float32, float64:
		return fmt.Sprintf("%v", x), true
	}
	return "", false
}

// IsZero reports an absent payload.
func (v Value) IsZero() bool { return v.Kind == ValueNone }

// TextOrEmpty returns the text arm when the value is text or a fragment.
func (v Value) TextOrEmpty() string {
	if v.Kind == ValueText || v.Kind == ValueFragment {
		return v.Text
	}
	return ""
}

// Strings flattens a list of text items. It reports false when the value
// is not a list or any item is not text.
func (v Value) Strings() ([]string, bool) {
	if v.Kind != ValueList {
		return nil, false
	}
	res := make([]string, 0, len(v.List))
	for _, it := range v.List {
		if it.Kind != ValueText && it.Kind != ValueFragment {
			return nil, false
		}
		res = append(res, it.Text)
	}
	return res, true
}

// StringMapView flattens a mapping whose values are all text.
func (v Value) StringMapView() (map[string]string, bool) {
	if v.Kind != ValueMapping {
		return nil, false
	}
	res := make(map[string]string, len(v.Map))
	for k, it := range v.Map {
		if it.Kind != ValueText && it.Kind != ValueFragment {
			return nil, false
		}
		res[k] = it.Text
	}
	return res, true
}

// ContentHash returns a short stable digest of the payload, independent of
// map iteration order. Result caching keys on it.
func (v Value) ContentHash() string {
	h := blake3.New(16, nil)
	v.hashInto(h)
	return hex.EncodeToString(h.Sum(nil))
}

type hashWriter interface {
	Write(p []byte) (int, error)
}

func (v Value) hashInto(h hashWriter) {
	var scratch [8]byte
	writeStr := func(s string) {
		binary.LittleEndian.PutUint64(scratch[:], uint64(len(s)))
		h.Write(scratch[:])
		h.Write([]byte(s))
	}
	h.Write([]byte{byte(v.Kind)})
	switch v.Kind {
	case ValueText, ValueFragment:
		writeStr(v.Text)
	case ValueList:
		binary.LittleEndian.PutUint64(scratch[:], uint64(len(v.List)))
		h.Write(scratch[:])
		for _, it := range v.List {
			it.hashInto(h)
		}
	case ValueMapping:
		keys := make([]string, 0, len(v.Map))
		for k := range v.Map {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		binary.LittleEndian.PutUint64(scratch[:], uint64(len(keys)))
		h.Write(scratch[:])
		for _, k := range keys {
			writeStr(k)
			v.Map[k].hashInto(h)
		}
	}
}

func (v Value) String() string {
	switch v.Kind {
	case ValueText:
		return fmt.Sprintf("text(%q)", v.Text)
	case ValueFragment:
		return fmt.Sprintf("fragment(%d bytes)", len(v.Text))
	case ValueList:
		return fmt.Sprintf("list(%d items)", len(v.List))
	case ValueMapping:
		return fmt.Sprintf("mapping(%d keys)", len(v.Map))
	}
	return "none"
}
