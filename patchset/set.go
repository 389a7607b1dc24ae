package patchset

import (
	"errors"
	"fmt"
	"os"

	"github.com/goccy/go-yaml"

	"github.com/tokenlayer/oxpatch/debug"
	"github.com/tokenlayer/oxpatch/patchop"
)

// Version is the patch set document version this package reads.
const Version = 1

// Set is one patch set document: a batch of patch descriptors plus the
// run-level namespace bindings and interpolation tokens they share.
type Set struct {
	Version    int                  `json:"version" yaml:"version"`
	Kind       string               `json:"kind,omitempty" yaml:"kind"`
	Namespaces map[string]string    `json:"namespaces,omitempty" yaml:"namespaces"`
	Tokens     map[string]any       `json:"tokens,omitempty" yaml:"tokens"`
	Patches    []patchop.Descriptor `json:"patches" yaml:"patches"`

	// File is the source path, kept for diagnostics. Empty when the set
	// was loaded from bytes.
	File string `json:"-" yaml:"-"`
}

// Load reads a patch set from YAML or JSON bytes. An absent version
// means the current one; any other version is rejected here rather than
// misread later.
func Load(data []byte) (*Set, error) {
	var s Set
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("patchset: %w", err)
	}
	if s.Version == 0 {
		s.Version = Version
	}
	if s.Version != Version {
		return nil, fmt.Errorf("patchset: unsupported version %d", s.Version)
	}
	if debug.Load() {
		debug.Logf("load: patch set with %d patches, %d tokens\n", len(s.Patches), len(s.Tokens))
	}
	return &s, nil
}

// LoadFile is Load on the contents of path.
func LoadFile(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s, err := Load(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	s.File = path
	return s, nil
}

// Issue is one validation finding, addressed back to the document by
// patch index.
type Issue struct {
	Index int    `json:"index"`
	Field string `json:"field,omitempty"`
	Msg   string `json:"message"`
}

func (i Issue) String() string {
	if i.Field != "" {
		return fmt.Sprintf("patches[%d].%s: %s", i.Index, i.Field, i.Msg)
	}
	return fmt.Sprintf("patches[%d]: %s", i.Index, i.Msg)
}

// Compile validates every descriptor and builds the operations.
// Operations come back only when the whole set is valid; otherwise the
// issues name each bad patch so an editor can mark all of them at once.
func (s *Set) Compile() ([]patchop.Operation, []Issue) {
	var issues []Issue
	ops := make([]patchop.Operation, 0, len(s.Patches))
	for i, d := range s.Patches {
		op, err := patchop.FromDescriptor(d)
		if err != nil {
			issues = append(issues, issueFor(i, err))
			continue
		}
		ops = append(ops, op)
	}
	if len(issues) > 0 {
		return nil, issues
	}
	return ops, nil
}

func issueFor(index int, err error) Issue {
	var v *patchop.ValidationError
	if errors.As(err, &v) {
		return Issue{Index: index, Field: v.Field, Msg: v.Msg}
	}
	return Issue{Index: index, Msg: err.Error()}
}
