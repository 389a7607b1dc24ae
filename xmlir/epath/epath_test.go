package epath

import (
	"errors"
	"testing"

	"github.com/tokenlayer/oxpatch/xmlir"
)

const wordMain = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"

const testDoc = `<w:document xmlns:w="` + wordMain + `">` +
	`<w:body>` +
	`<w:p w:rsidR="00A1"><w:r><w:t>one</w:t></w:r></w:p>` +
	`<w:p w:rsidR="00B2"><w:r><w:t>two</w:t></w:r><w:r><w:t>three</w:t></w:r></w:p>` +
	`<w:sectPr/>` +
	`</w:body>` +
	`</w:document>`

func testResolver(prefix string) (string, bool) {
	if prefix == "w" {
		return wordMain, true
	}
	return "", false
}

func parseDoc(t *testing.T) *xmlir.Node {
	t.Helper()
	n, err := xmlir.Parse([]byte(testDoc))
	if err != nil {
		t.Fatal(err)
	}
	return n
}

func texts(ms []Match) []string {
	var res []string
	for _, m := range ms {
		res = append(res, m.Node.Text())
	}
	return res
}

func TestSelect(t *testing.T) {
	doc := parseDoc(t)
	tests := []struct {
		path string
		want []string // Text() of each match, in document order
	}{
		{"/w:document/w:body/w:p/w:r/w:t", []string{"one", "two", "three"}},
		{"w:body/w:p/w:r/w:t", []string{"one", "two", "three"}},
		{"//w:t", []string{"one", "two", "three"}},
		{"w:body/w:p[2]/w:r/w:t", []string{"two", "three"}},
		{"w:body/w:p[2]/w:r[1]/w:t", []string{"two"}},
		{"w:body/w:p[@w:rsidR='00B2']/w:r[2]/w:t", []string{"three"}},
		{"w:body/w:p[@w:rsidR='none']", nil},
		{"/w:document//w:r/w:t", []string{"one", "two", "three"}},
		{"w:body/w:missing", nil},
		{"/x:document/w:body", nil},
	}
	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			e, err := Parse(tc.path)
			if err != nil {
				t.Fatal(err)
			}
			got := texts(e.Select(doc, testResolver))
			if len(got) != len(tc.want) {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Fatalf("got %v, want %v", got, tc.want)
				}
			}
		})
	}
}

func TestSelectWildcard(t *testing.T) {
	doc := parseDoc(t)
	e := MustParse("w:body/*")
	ms := e.Select(doc, testResolver)
	if len(ms) != 3 {
		t.Fatalf("wildcard matched %d, want 3", len(ms))
	}
	if ms[2].Node.Name.Local != "sectPr" {
		t.Fatalf("last wildcard match %s", ms[2].Node.Name)
	}
}

func TestSelectAttrStep(t *testing.T) {
	doc := parseDoc(t)
	e := MustParse("w:body/w:p[1]/@w:rsidR")
	ms := e.Select(doc, testResolver)
	if len(ms) != 1 || !ms[0].IsAttr() {
		t.Fatalf("matches %+v", ms)
	}
	if ms[0].Attr.URI != wordMain || ms[0].Attr.Local != "rsidR" {
		t.Fatalf("attr name %+v", ms[0].Attr)
	}
	if v, ok := ms[0].Node.AttrValue(ms[0].Attr); !ok || v != "00A1" {
		t.Fatalf("attr value %q, %v", v, ok)
	}
}

func TestSelectAttrMayNotExist(t *testing.T) {
	doc := parseDoc(t)
	ms := MustParse("w:body/w:sectPr/@w:new").Select(doc, testResolver)
	if len(ms) != 1 {
		t.Fatalf("got %d matches, want the owning element", len(ms))
	}
	if _, ok := ms[0].Node.AttrValue(ms[0].Attr); ok {
		t.Fatal("attribute unexpectedly present")
	}
}

func TestLocalNamesFallback(t *testing.T) {
	doc := parseDoc(t)
	e := MustParse("/v:document/v:body/v:sectPr")
	if got := e.Select(doc, testResolver); len(got) != 0 {
		t.Fatalf("wrong-prefix path matched %d nodes", len(got))
	}
	fb := e.LocalNames()
	if got := fb.Select(doc, testResolver); len(got) != 1 {
		t.Fatalf("local-name fallback matched %d nodes, want 1", len(got))
	}
	if e.AnyNS {
		t.Fatal("LocalNames mutated the receiver")
	}
}

func TestPrefixFallbackWhenUnresolved(t *testing.T) {
	doc := parseDoc(t)
	// No resolver: prefixes compare as written.
	ms := MustParse("w:body/w:sectPr").Select(doc, nil)
	if len(ms) != 1 {
		t.Fatalf("prefix fallback matched %d, want 1", len(ms))
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		path string
	}{
		{"empty", ""},
		{"blank", "   "},
		{"slash only", "/"},
		{"trailing slash", "w:body/"},
		{"empty step", "w:body//"},
		{"attr not last", "@id/w:p"},
		{"zero index", "w:p[0]"},
		{"negative index", "w:p[-1]"},
		{"bad index", "w:p[two]"},
		{"unterminated pred", "w:p[@w:x='v'"},
		{"unterminated quote", "w:p[@w:x='v]"},
		{"missing eq", "w:p[@w:x'v']"},
		{"double colon", "w:x:y"},
		{"attr with pred", "w:p/@w:x[1]"},
		{"duplicate index", "w:p[1][2]"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(tc.path)
			if err == nil {
				t.Fatalf("no error for %q", tc.path)
			}
			var se *SyntaxError
			if !errors.As(err, &se) {
				t.Fatalf("error %T (%v), want *SyntaxError", err, err)
			}
		})
	}
}

func TestStringCanonical(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"/w:document/w:body", "/w:document/w:body"},
		{"w:body/w:p[2]", "w:body/w:p[2]"},
		{"//w:t", "//w:t"},
		{"w:p[@w:id='x']/@w:val", "w:p[@w:id='x']/@w:val"},
	}
	for _, tc := range tests {
		e, err := Parse(tc.in)
		if err != nil {
			t.Fatalf("%s: %v", tc.in, err)
		}
		if got := e.String(); got != tc.want {
			t.Errorf("String(%q) = %q, want %q", tc.in, got, tc.want)
		}
		var rt Expr
		if err := rt.UnmarshalText([]byte(tc.want)); err != nil {
			t.Fatalf("unmarshal %q: %v", tc.want, err)
		}
		if rt.String() != tc.want {
			t.Errorf("text round trip %q -> %q", tc.want, rt.String())
		}
	}
}

func TestPrefixes(t *testing.T) {
	e := MustParse("/w:document/w:body/a:graphic[@r:embed='rId1']")
	got := e.Prefixes()
	want := []string{"w", "a", "r"}
	if len(got) != len(want) {
		t.Fatalf("prefixes %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("prefixes %v, want %v", got, want)
		}
	}
}
