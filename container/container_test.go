package container

import (
	"archive/zip"
	"bytes"
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/tokenlayer/oxpatch/xmlns"
)

const testContentTypes = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
  <Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
  <Default Extension="xml" ContentType="application/xml"/>
  <Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>`

const testDocument = `<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body><w:p><w:r><w:t>hello</w:t></w:r></w:p></w:body></w:document>`

func buildDocx(t *testing.T, parts map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range []string{
		"[Content_Types].xml",
		"_rels/.rels",
		"word/document.xml",
		"word/_rels/document.xml.rels",
		"docProps/core.xml",
	} {
		content, ok := parts[name]
		if !ok {
			continue
		}
		fw, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := fw.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func defaultParts() map[string]string {
	return map[string]string{
		"[Content_Types].xml":          testContentTypes,
		"_rels/.rels":                  `<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"/>`,
		"word/document.xml":            testDocument,
		"word/_rels/document.xml.rels": `<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"/>`,
		"docProps/core.xml":            `<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties"/>`,
	}
}

func TestOpenBytes(t *testing.T) {
	d, err := OpenBytes(buildDocx(t, defaultParts()))
	if err != nil {
		t.Fatal(err)
	}
	if d.Format() != xmlns.FormatWord {
		t.Errorf("format = %s", d.Format())
	}
	if d.MainPart() != "word/document.xml" {
		t.Errorf("main part = %q", d.MainPart())
	}
	if got := d.Parts(); len(got) != 5 || got[2] != "word/document.xml" {
		t.Errorf("parts = %v", got)
	}
	if !d.Has("docProps/core.xml") || d.Has("word/styles.xml") {
		t.Error("part membership wrong")
	}
}

func TestFormatFallbackWithoutContentTypes(t *testing.T) {
	parts := defaultParts()
	delete(parts, "[Content_Types].xml")
	d, err := OpenBytes(buildDocx(t, parts))
	if err != nil {
		t.Fatal(err)
	}
	if d.Format() != xmlns.FormatWord {
		t.Errorf("format = %s", d.Format())
	}
}

func TestPartAndTree(t *testing.T) {
	d, err := OpenBytes(buildDocx(t, defaultParts()))
	if err != nil {
		t.Fatal(err)
	}
	data, err := d.Part("word/document.xml")
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != testDocument {
		t.Errorf("part content = %s", data)
	}

	root, err := d.Tree("word/document.xml")
	if err != nil {
		t.Fatal(err)
	}
	if root.Name.Local != "document" || root.Name.URI != xmlns.WordMain {
		t.Errorf("root = %+v", root.Name)
	}

	if _, err := d.Part("word/styles.xml"); !errors.Is(err, ErrNoPart) {
		t.Errorf("missing part error = %v", err)
	}
}

func TestSelect(t *testing.T) {
	d, err := OpenBytes(buildDocx(t, defaultParts()))
	if err != nil {
		t.Fatal(err)
	}
	got, err := d.Select("word/**/*.xml")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, []string{"word/document.xml"}) {
		t.Errorf("select = %v", got)
	}
	rels, err := d.Select("**/*.rels")
	if err != nil {
		t.Fatal(err)
	}
	if len(rels) != 2 {
		t.Errorf("rels = %v", rels)
	}
	if _, err := d.Select("[bad"); err == nil {
		t.Error("bad pattern accepted")
	}
}

func TestSetPartAndWrite(t *testing.T) {
	d, err := OpenBytes(buildDocx(t, defaultParts()))
	if err != nil {
		t.Fatal(err)
	}
	edited := strings.Replace(testDocument, "hello", "patched", 1)
	d.SetPart("word/document.xml", []byte(edited))
	d.SetPart("word/newpart.xml", []byte("<new/>"))

	if got := d.Modified(); !reflect.DeepEqual(got, []string{"word/document.xml", "word/newpart.xml"}) {
		t.Errorf("modified = %v", got)
	}

	out, err := d.Bytes()
	if err != nil {
		t.Fatal(err)
	}
	re, err := OpenBytes(out)
	if err != nil {
		t.Fatal(err)
	}
	got, err := re.Part("word/document.xml")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != edited {
		t.Errorf("round-tripped part = %s", got)
	}
	if added, err := re.Part("word/newpart.xml"); err != nil || string(added) != "<new/>" {
		t.Errorf("added part = %s, %v", added, err)
	}
	// Untouched parts survive the round trip unchanged.
	core, err := re.Part("docProps/core.xml")
	if err != nil {
		t.Fatal(err)
	}
	if string(core) != defaultParts()["docProps/core.xml"] {
		t.Errorf("untouched part changed: %s", core)
	}
}

func TestSaveAndOpen(t *testing.T) {
	d, err := OpenBytes(buildDocx(t, defaultParts()))
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "out.docx")
	if err := d.Save(path); err != nil {
		t.Fatal(err)
	}
	re, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if re.Path() != path || re.Format() != xmlns.FormatWord {
		t.Errorf("reopened: path=%q format=%s", re.Path(), re.Format())
	}
}

func TestFingerprints(t *testing.T) {
	d, err := OpenBytes(buildDocx(t, defaultParts()))
	if err != nil {
		t.Fatal(err)
	}
	before, err := d.Fingerprint("word/document.xml")
	if err != nil {
		t.Fatal(err)
	}
	if len(before) != 64 {
		t.Errorf("digest length = %d", len(before))
	}

	d.SetPart("word/document.xml", []byte("<w:document/>"))
	after, err := d.Fingerprint("word/document.xml")
	if err != nil {
		t.Fatal(err)
	}
	if before == after {
		t.Error("fingerprint unchanged after edit")
	}

	all, err := d.Fingerprints()
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 5 || all["word/document.xml"] != after {
		t.Errorf("fingerprints = %v", all)
	}
	unchanged, err := d.Fingerprint("docProps/core.xml")
	if err != nil {
		t.Fatal(err)
	}
	if all["docProps/core.xml"] != unchanged {
		t.Error("untouched fingerprint differs")
	}
}

func TestOpenRejectsGarbage(t *testing.T) {
	if _, err := OpenBytes([]byte("not a zip")); err == nil {
		t.Error("garbage accepted")
	}
}
