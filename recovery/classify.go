package recovery

import (
	"errors"
	"fmt"

	"github.com/tokenlayer/oxpatch/patchop"
	"github.com/tokenlayer/oxpatch/xmlir"
	"github.com/tokenlayer/oxpatch/xmlir/epath"
	"github.com/tokenlayer/oxpatch/xmlns"
)

// Category groups failures by what broke, which in turn decides the
// severity of the recorded result and which fallback may repair it.
type Category uint8

const (
	CategoryUnknown Category = iota
	// CategoryStructure covers document-level parse failures.
	CategoryStructure
	// CategoryPath covers path syntax and evaluation failures.
	CategoryPath
	// CategoryNamespace covers prefixes with no binding in scope.
	CategoryNamespace
	// CategoryLookup covers targets that resolve to nothing.
	CategoryLookup
	// CategoryFragment covers fragment payloads that fail to parse.
	CategoryFragment
	// CategoryValue covers payloads of the wrong shape for the target.
	CategoryValue
)

func (c Category) String() string {
	switch c {
	case CategoryStructure:
		return "structure"
	case CategoryPath:
		return "path"
	case CategoryNamespace:
		return "namespace"
	case CategoryLookup:
		return "lookup"
	case CategoryFragment:
		return "fragment"
	case CategoryValue:
		return "value"
	default:
		return "unknown"
	}
}

// Severity is the grade a failure of this category earns when no
// fallback rescues it. Broken documents are unrecoverable, so
// structural failures are Critical. Missing bindings and empty lookups
// leave the document untouched, so they stay at Warning.
func (c Category) Severity() patchop.Severity {
	switch c {
	case CategoryStructure:
		return patchop.Critical
	case CategoryNamespace, CategoryLookup:
		return patchop.Warning
	default:
		return patchop.Error
	}
}

func (c Category) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

func (c *Category) UnmarshalText(d []byte) error {
	switch string(d) {
	case "structure":
		*c = CategoryStructure
	case "path":
		*c = CategoryPath
	case "namespace":
		*c = CategoryNamespace
	case "lookup":
		*c = CategoryLookup
	case "fragment":
		*c = CategoryFragment
	case "value":
		*c = CategoryValue
	case "unknown", "":
		*c = CategoryUnknown
	default:
		return fmt.Errorf("unknown failure category %q", string(d))
	}
	return nil
}

// Classify maps an error from the processing pipeline onto a Category.
// A FragmentError wraps the underlying ParseError, so it is checked
// before the more general parse case.
func Classify(err error) Category {
	var (
		fragErr   *xmlir.FragmentError
		parseErr  *xmlir.ParseError
		pathErr   *epath.SyntaxError
		nsErr     *xmlns.ResolveError
		lookupErr *patchop.LookupError
		typeErr   *patchop.TypeMismatchError
		validErr  *patchop.ValidationError
	)
	switch {
	case errors.As(err, &fragErr):
		return CategoryFragment
	case errors.As(err, &parseErr):
		return CategoryStructure
	case errors.As(err, &pathErr):
		return CategoryPath
	case errors.As(err, &nsErr):
		return CategoryNamespace
	case errors.As(err, &lookupErr):
		return CategoryLookup
	case errors.As(err, &typeErr):
		return CategoryValue
	case errors.As(err, &validErr):
		return CategoryValue
	default:
		return CategoryUnknown
	}
}
