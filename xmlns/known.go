package xmlns

import (
	"fmt"
	"sort"
)

// Namespace URIs that come up across OOXML document families.
const (
	XMLNamespace = "http://www.w3.org/XML/1998/namespace"

	WordMain         = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	SpreadsheetMain  = "http://schemas.openxmlformats.org/spreadsheetml/2006/main"
	PresentationMain = "http://schemas.openxmlformats.org/presentationml/2006/main"

	DrawingMain        = "http://schemas.openxmlformats.org/drawingml/2006/main"
	WordDrawing        = "http://schemas.openxmlformats.org/drawingml/2006/wordprocessingDrawing"
	SpreadsheetDrawing = "http://schemas.openxmlformats.org/drawingml/2006/spreadsheetDrawing"
	DrawingPicture     = "http://schemas.openxmlformats.org/drawingml/2006/picture"
	DrawingChart       = "http://schemas.openxmlformats.org/drawingml/2006/chart"

	OfficeRelationships  = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	PackageRelationships = "http://schemas.openxmlformats.org/package/2006/relationships"
	ContentTypes         = "http://schemas.openxmlformats.org/package/2006/content-types"
	CoreProperties       = "http://schemas.openxmlformats.org/package/2006/metadata/core-properties"
	ExtendedProperties   = "http://schemas.openxmlformats.org/officeDocument/2006/extended-properties"
	OfficeMath           = "http://schemas.openxmlformats.org/officeDocument/2006/math"

	MarkupCompat = "http://schemas.openxmlformats.org/markup-compatibility/2006"

	WordML2010 = "http://schemas.microsoft.com/office/word/2010/wordml"
	WordML2012 = "http://schemas.microsoft.com/office/word/2012/wordml"
	VML        = "urn:schemas-microsoft-com:vml"

	DublinCore      = "http://purl.org/dc/elements/1.1/"
	DublinCoreTerms = "http://purl.org/dc/terms/"
)

// Known maps the canonical OOXML prefixes to their namespaces. It is the
// last resort of prefix resolution: document declarations and operation
// overrides always win over it.
var Known = map[string]string{
	"w":       WordMain,
	"x":       SpreadsheetMain,
	"p":       PresentationMain,
	"a":       DrawingMain,
	"wp":      WordDrawing,
	"xdr":     SpreadsheetDrawing,
	"pic":     DrawingPicture,
	"c":       DrawingChart,
	"r":       OfficeRelationships,
	"rel":     PackageRelationships,
	"ct":      ContentTypes,
	"cp":      CoreProperties,
	"ep":      ExtendedProperties,
	"m":       OfficeMath,
	"mc":      MarkupCompat,
	"w14":     WordML2010,
	"w15":     WordML2012,
	"v":       VML,
	"dc":      DublinCore,
	"dcterms": DublinCoreTerms,
	"xml":     XMLNamespace,
}

// KnownLookup resolves a prefix against the canonical table.
func KnownLookup(prefix string) (string, bool) {
	uri, ok := Known[prefix]
	return uri, ok
}

// Format names an OOXML document family.
type Format int

const (
	FormatUnknown Format = iota
	FormatWord
	FormatSpreadsheet
	FormatPresentation
)

func (f Format) String() string {
	switch f {
	case FormatWord:
		return "word"
	case FormatSpreadsheet:
		return "spreadsheet"
	case FormatPresentation:
		return "presentation"
	default:
		return "unknown"
	}
}

// ParseFormat reads a family name as written by String.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "word", "docx":
		return FormatWord, nil
	case "spreadsheet", "xlsx":
		return FormatSpreadsheet, nil
	case "presentation", "pptx":
		return FormatPresentation, nil
	case "unknown", "":
		return FormatUnknown, nil
	}
	return FormatUnknown, fmt.Errorf("unknown document format %q", s)
}

func (f Format) MarshalText() ([]byte, error) { return []byte(f.String()), nil }

func (f *Format) UnmarshalText(d []byte) error {
	v, err := ParseFormat(string(d))
	if err != nil {
		return err
	}
	*f = v
	return nil
}

var familyMain = map[Format]string{
	FormatWord:         WordMain,
	FormatSpreadsheet:  SpreadsheetMain,
	FormatPresentation: PresentationMain,
}

var familyDrawing = map[Format]string{
	FormatWord:        WordDrawing,
	FormatSpreadsheet: SpreadsheetDrawing,
}

// MigrateForFormat rewrites family-specific URIs in ns to their equivalents
// in the target family and reports how many entries changed. URIs with no
// equivalent in the target family, and URIs shared by all families, pass
// through untouched. The input map is not modified.
func (c *Context) MigrateForFormat(ns map[string]string, target Format) (map[string]string, int) {
	res := make(map[string]string, len(ns))
	changed := 0
	for prefix, uri := range ns {
		if next, ok := migrateURI(uri, target); ok && next != uri {
			res[prefix] = next
			changed++
			continue
		}
		res[prefix] = uri
	}
	c.mu.Lock()
	c.migrations += changed
	c.mu.Unlock()
	return res, changed
}

func migrateURI(uri string, target Format) (string, bool) {
	if targetMain, ok := familyMain[target]; ok {
		for _, main := range familyMain {
			if uri == main {
				return targetMain, true
			}
		}
	}
	if targetDrawing, ok := familyDrawing[target]; ok {
		for _, d := range familyDrawing {
			if uri == d {
				return targetDrawing, true
			}
		}
	}
	return "", false
}

// InvalidURI describes one rejected entry from ValidateURIs.
type InvalidURI struct {
	Prefix string `json:"prefix"`
	URI    string `json:"uri"`
	Reason string `json:"reason"`
}

// ValidateURIs checks a prefix map for URIs that cannot be namespace
// names: empty strings and values with neither a URL scheme nor an urn
// form. It reports findings and never fails; a questionable namespace
// still resolves, it just gets flagged.
func ValidateURIs(ns map[string]string) []InvalidURI {
	var res []InvalidURI
	for prefix, uri := range ns {
		reason := uriProblem(uri)
		if reason == "" {
			continue
		}
		res = append(res, InvalidURI{Prefix: prefix, URI: uri, Reason: reason})
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Prefix < res[j].Prefix })
	return res
}

func uriProblem(uri string) string {
	if uri == "" {
		return "empty URI"
	}
	for i := 0; i < len(uri); i++ {
		c := uri[i]
		if c == ':' {
			if i == 0 {
				return "missing scheme"
			}
			return ""
		}
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '+' || c == '-' || c == '.') {
			return "no URI scheme"
		}
	}
	return "no URI scheme"
}

