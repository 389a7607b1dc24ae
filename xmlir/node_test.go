package xmlir

import (
	"testing"
)

func mustParse(t *testing.T, src string) *Node {
	t.Helper()
	n, err := Parse([]byte(src))
	if err != nil {
		t.Fatalf("parse %q: %v", src, err)
	}
	return n
}

func TestInsertChildReindexes(t *testing.T) {
	p := NewElement("p")
	for _, s := range []string{"a", "b", "c"} {
		p.Append(NewElement(s))
	}
	p.InsertChild(1, NewElement("x"))
	var order []string
	for i, c := range p.Children {
		if c.ParentIndex != i {
			t.Fatalf("child %s has ParentIndex %d, want %d", c.Name, c.ParentIndex, i)
		}
		order = append(order, c.Name.Local)
	}
	want := []string{"a", "x", "b", "c"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order %v, want %v", order, want)
		}
	}
	p.RemoveChild(0)
	for i, c := range p.Children {
		if c.ParentIndex != i {
			t.Fatalf("after remove: child %s has ParentIndex %d, want %d", c.Name, c.ParentIndex, i)
		}
	}
}

func TestSetText(t *testing.T) {
	n := mustParse(t, `<t>old<b/>tail</t>`)
	n.SetText("new")
	if got := n.Text(); got != "new" {
		t.Fatalf("text %q, want %q", got, "new")
	}
	if len(n.Elements()) != 1 {
		t.Fatal("element child lost by SetText")
	}
}

func TestSetAttrMatching(t *testing.T) {
	n := mustParse(t, `<w:p xmlns:w="`+wordMain+`" w:rsidR="00AA"/>`)
	// Matching by resolved URI, regardless of prefix spelling.
	if !n.SetAttr(Name{Prefix: "w", Local: "rsidR", URI: wordMain}, "00BB") {
		t.Fatal("SetAttr reported a new attribute for an existing one")
	}
	if v, _ := n.AttrValue(Name{Prefix: "w", Local: "rsidR"}); v != "00BB" {
		t.Fatalf("value %q, want 00BB", v)
	}
	if len(n.Attrs) != 2 {
		t.Fatalf("attr count %d, want 2 (xmlns decl + rsidR)", len(n.Attrs))
	}
	if n.SetAttr(Name{Local: "plain"}, "v") {
		t.Fatal("SetAttr reported existing for a fresh attribute")
	}
}

func TestCloneIndependence(t *testing.T) {
	orig := mustParse(t, docPart)
	origID := orig.DocID()
	c := orig.Clone()
	if c.DocID() == origID {
		t.Fatal("clone shares document identity with the original")
	}
	c.Elements()[0].Elements()[0].Elements()[0].Elements()[0].SetText("changed")
	if got := orig.Elements()[0].Elements()[0].Elements()[0].Elements()[0].Text(); got != "hello" {
		t.Fatalf("original mutated through clone: %q", got)
	}
	if c.XMLDecl != orig.XMLDecl {
		t.Fatal("clone dropped the XML declaration")
	}
}

func TestDocIDStable(t *testing.T) {
	root := mustParse(t, docPart)
	id := root.DocID()
	if id == 0 {
		t.Fatal("zero DocID")
	}
	leaf := root.Elements()[0].Elements()[0]
	if leaf.DocID() != id {
		t.Fatal("descendant resolved a different DocID")
	}
	root.Append(NewElement("extra"))
	if root.DocID() != id {
		t.Fatal("DocID changed after mutation")
	}
}

func TestScopeNamespaces(t *testing.T) {
	root := mustParse(t, `<a xmlns:p="outer"><b xmlns:p="inner"><c/></b></a>`)
	c := root.Elements()[0].Elements()[0]
	if got := c.ScopeNamespaces()["p"]; got != "inner" {
		t.Fatalf("scope p=%q, want inner", got)
	}
	if got := root.Elements()[0].Parent.ScopeNamespaces()["p"]; got != "outer" {
		t.Fatalf("outer scope p=%q, want outer", got)
	}
}

func TestPath(t *testing.T) {
	root := mustParse(t, `<a><b/><b><c/></b></a>`)
	c := root.Elements()[1].Elements()[0]
	if got := c.Path(); got != "/a/b[2]/c" {
		t.Fatalf("path %q, want /a/b[2]/c", got)
	}
}
