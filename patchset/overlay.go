package patchset

import (
	"encoding/json"
	"fmt"

	jsonpatch "github.com/evanphx/json-patch"
	"github.com/goccy/go-yaml"
)

// ApplyOverlay applies an RFC 6902 patch document to the set and
// returns the patched set. The overlay may be YAML or JSON; it is
// evaluated against the JSON form of the set, so paths address the
// wire field names: /patches/0/value, /tokens/author, /namespaces/w.
// The receiver is not modified.
func (s *Set) ApplyOverlay(overlay []byte) (*Set, error) {
	var raw any
	if err := yaml.Unmarshal(overlay, &raw); err != nil {
		return nil, fmt.Errorf("overlay: %w", err)
	}
	pd, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("overlay: %w", err)
	}
	ops, err := jsonpatch.DecodePatch(pd)
	if err != nil {
		return nil, fmt.Errorf("overlay: %w", err)
	}

	base, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	out, err := ops.Apply(base)
	if err != nil {
		return nil, fmt.Errorf("overlay: %w", err)
	}

	res, err := Load(out)
	if err != nil {
		return nil, err
	}
	res.File = s.File
	return res, nil
}
