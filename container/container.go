package container

import (
	"archive/zip"
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/klauspost/compress/flate"
	"lukechampine.com/blake3"

	"github.com/tokenlayer/oxpatch/debug"
	"github.com/tokenlayer/oxpatch/xmlir"
	"github.com/tokenlayer/oxpatch/xmlns"
)

// ErrNoPart reports a part name the package does not contain.
var ErrNoPart = errors.New("container: no such part")

// Doc is one OOXML package held in memory: the original zip entries
// plus any staged part replacements. The zero value is not usable; use
// Open, OpenBytes or OpenReader.
type Doc struct {
	path   string
	names  []string
	files  map[string]*zip.File
	staged map[string][]byte
	format xmlns.Format
}

// Open reads the package at path into memory.
func Open(path string) (*Doc, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	d, err := OpenBytes(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	d.path = path
	return d, nil
}

// OpenBytes reads a package from zip bytes. The bytes back the returned
// Doc and must not be modified while it is in use.
func OpenBytes(data []byte) (*Doc, error) {
	return OpenReader(bytes.NewReader(data), int64(len(data)))
}

// OpenReader reads a package from r.
func OpenReader(r io.ReaderAt, size int64) (*Doc, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("container: %w", err)
	}
	d := &Doc{
		files:  make(map[string]*zip.File, len(zr.File)),
		staged: map[string][]byte{},
	}
	for _, f := range zr.File {
		if strings.HasSuffix(f.Name, "/") {
			continue
		}
		if _, dup := d.files[f.Name]; dup {
			return nil, fmt.Errorf("container: duplicate part %s", f.Name)
		}
		d.files[f.Name] = f
		d.names = append(d.names, f.Name)
	}
	d.format = d.detectFormat()
	if debug.Load() {
		debug.Logf("load: %d parts, format %s\n", len(d.names), d.format)
	}
	return d, nil
}

// Path returns the file the package was opened from, or "".
func (d *Doc) Path() string { return d.path }

// Format reports the detected document family.
func (d *Doc) Format() xmlns.Format { return d.format }

// Parts lists the part names in archive order, staged additions last.
func (d *Doc) Parts() []string {
	return append([]string(nil), d.names...)
}

// Has reports whether the package contains the named part.
func (d *Doc) Has(name string) bool {
	if _, ok := d.staged[name]; ok {
		return true
	}
	_, ok := d.files[name]
	return ok
}

// Part returns the content of the named part, staged replacement first.
func (d *Doc) Part(name string) ([]byte, error) {
	if data, ok := d.staged[name]; ok {
		return data, nil
	}
	f, ok := d.files[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoPart, name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("container: %s: %w", name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("container: %s: %w", name, err)
	}
	return data, nil
}

// Tree parses the named part into an element tree.
func (d *Doc) Tree(name string) (*xmlir.Node, error) {
	data, err := d.Part(name)
	if err != nil {
		return nil, err
	}
	root, err := xmlir.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("container: %s: %w", name, err)
	}
	return root, nil
}

// SetPart stages a replacement for the named part, or a new part when
// the name is not in the package yet. Staged parts take effect on the
// next Write or Save.
func (d *Doc) SetPart(name string, data []byte) {
	if !d.Has(name) {
		d.names = append(d.names, name)
	}
	d.staged[name] = data
}

// SetTree serializes root and stages it as the named part.
func (d *Doc) SetTree(name string, root *xmlir.Node) {
	d.SetPart(name, xmlir.Serialize(root))
}

// Modified lists the staged part names, in staging-independent archive
// order.
func (d *Doc) Modified() []string {
	var res []string
	for _, name := range d.names {
		if _, ok := d.staged[name]; ok {
			res = append(res, name)
		}
	}
	return res
}

// Select returns the part names matching a doublestar glob, such as
// word/**/*.xml, in archive order.
func (d *Doc) Select(pattern string) ([]string, error) {
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("container: bad pattern %q", pattern)
	}
	var res []string
	for _, name := range d.names {
		if ok, _ := doublestar.Match(pattern, name); ok {
			res = append(res, name)
		}
	}
	return res, nil
}

// Fingerprint returns the blake3 digest of the named part's current
// content, staged replacements included.
func (d *Doc) Fingerprint(name string) (string, error) {
	data, err := d.Part(name)
	if err != nil {
		return "", err
	}
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Fingerprints digests every part, keyed by name.
func (d *Doc) Fingerprints() (map[string]string, error) {
	res := make(map[string]string, len(d.names))
	for _, name := range d.names {
		fp, err := d.Fingerprint(name)
		if err != nil {
			return nil, err
		}
		res[name] = fp
	}
	return res, nil
}

// Write writes the package to w. Parts without a staged replacement are
// copied entry-for-entry from the source archive without recompression;
// staged parts are deflated fresh.
func (d *Doc) Write(w io.Writer) error {
	zw := zip.NewWriter(w)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.DefaultCompression)
	})
	for _, name := range d.names {
		data, ok := d.staged[name]
		if !ok {
			if err := zw.Copy(d.files[name]); err != nil {
				return fmt.Errorf("container: %s: %w", name, err)
			}
			continue
		}
		fw, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
		if err != nil {
			return fmt.Errorf("container: %s: %w", name, err)
		}
		if _, err := fw.Write(data); err != nil {
			return fmt.Errorf("container: %s: %w", name, err)
		}
	}
	return zw.Close()
}

// Save writes the package to path.
func (d *Doc) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := d.Write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Bytes renders the package in memory.
func (d *Doc) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := d.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MainPart names the format's main document part, or "" when the
// format is unknown.
func (d *Doc) MainPart() string {
	switch d.format {
	case xmlns.FormatWord:
		return "word/document.xml"
	case xmlns.FormatSpreadsheet:
		return "xl/workbook.xml"
	case xmlns.FormatPresentation:
		return "ppt/presentation.xml"
	}
	return ""
}

const contentTypesPart = "[Content_Types].xml"

// Content type markers for the main parts of each family.
const (
	wordMainType         = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"
	spreadsheetMainType  = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet.main+xml"
	presentationMainType = "application/vnd.openxmlformats-officedocument.presentationml.presentation.main+xml"
)

// detectFormat reads [Content_Types].xml for a main part declaration,
// falling back to the conventional part layout for packages with a
// missing or unreadable type map.
func (d *Doc) detectFormat() xmlns.Format {
	if data, err := d.Part(contentTypesPart); err == nil {
		s := string(data)
		switch {
		case strings.Contains(s, wordMainType):
			return xmlns.FormatWord
		case strings.Contains(s, spreadsheetMainType):
			return xmlns.FormatSpreadsheet
		case strings.Contains(s, presentationMainType):
			return xmlns.FormatPresentation
		}
	}
	switch {
	case d.Has("word/document.xml"):
		return xmlns.FormatWord
	case d.Has("xl/workbook.xml"):
		return xmlns.FormatSpreadsheet
	case d.Has("ppt/presentation.xml"):
		return xmlns.FormatPresentation
	}
	return xmlns.FormatUnknown
}
