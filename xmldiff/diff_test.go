package xmldiff

import (
	"strings"
	"testing"
)

const beforeDoc = `<w:document>
  <w:body>
    <w:p>
      <w:t>old</w:t>
    </w:p>
  </w:body>
</w:document>`

func TestUnifiedIdentical(t *testing.T) {
	if out := Unified(beforeDoc, beforeDoc); out != "" {
		t.Errorf("identical documents produced a diff:\n%s", out)
	}
}

func TestUnifiedChange(t *testing.T) {
	after := strings.Replace(beforeDoc, "<w:t>old</w:t>", "<w:t>new</w:t>", 1)
	out := Unified(beforeDoc, after)
	if !strings.Contains(out, "-      <w:t>old</w:t>\n") {
		t.Errorf("missing deletion line:\n%s", out)
	}
	if !strings.Contains(out, "+      <w:t>new</w:t>\n") {
		t.Errorf("missing insertion line:\n%s", out)
	}
	// Context lines around the change carry a leading space.
	if !strings.Contains(out, "    <w:p>\n") {
		t.Errorf("missing context line:\n%s", out)
	}
}

func TestUnifiedCollapsesUnchanged(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 20; i++ {
		b.WriteString("  <w:p/>\n")
	}
	body := b.String()
	before := "<first/>\n" + body + "<last/>"
	after := "<changed/>\n" + body + "<last/>"

	out := Unified(before, after)
	if !strings.Contains(out, "@@") {
		t.Errorf("long unchanged run not collapsed:\n%s", out)
	}
	if strings.Count(out, "<w:p/>") > 2*contextLines {
		t.Errorf("too many context lines:\n%s", out)
	}
}

func TestLines(t *testing.T) {
	edits := Lines("a\nb\nc", "a\nx\nc")
	want := []Edit{
		{Keep, "a"},
		{Delete, "b"},
		{Insert, "x"},
		{Keep, "c"},
	}
	if len(edits) != len(want) {
		t.Fatalf("edits = %+v", edits)
	}
	for i, e := range edits {
		if e != want[i] {
			t.Errorf("edit %d = %+v, want %+v", i, e, want[i])
		}
	}
}

func TestPrettyPlainMatchesUnified(t *testing.T) {
	after := strings.Replace(beforeDoc, "old", "new", 1)
	if Pretty(beforeDoc, after, false) != Unified(beforeDoc, after) {
		t.Error("plain pretty output diverges from unified")
	}
}
