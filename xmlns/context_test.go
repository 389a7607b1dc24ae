package xmlns

import (
	"testing"
)

func TestRegisterAlias(t *testing.T) {
	c := NewContext()
	if got := c.Register("w", WordMain); got != "w" {
		t.Fatalf("first registration got %q", got)
	}
	if got := c.Register("w", WordMain); got != "w" {
		t.Fatalf("re-registration got %q", got)
	}
	if got := c.Register("w", WordML2010); got != "w#2" {
		t.Fatalf("colliding registration got %q, want w#2", got)
	}
	if got := c.Register("w", WordML2012); got != "w#3" {
		t.Fatalf("second collision got %q, want w#3", got)
	}
	// Same pair again reuses the alias without a fresh collision.
	if got := c.Register("w", WordML2010); got != "w#2" {
		t.Fatalf("repeat collision got %q, want w#2", got)
	}

	if uri, _ := c.Lookup("w"); uri != WordMain {
		t.Fatalf("original binding displaced: %q", uri)
	}
	if uri, _ := c.Lookup("w#2"); uri != WordML2010 {
		t.Fatalf("alias binding %q", uri)
	}

	st := c.Stats()
	if st.Collisions != 2 {
		t.Fatalf("collisions %d, want 2", st.Collisions)
	}
	if st.Registrations != 5 {
		t.Fatalf("registrations %d, want 5", st.Registrations)
	}
	evs := c.Collisions()
	if len(evs) != 2 || evs[0].Alias != "w#2" || evs[0].Existing != WordMain {
		t.Fatalf("collision events %+v", evs)
	}
}

func TestRegisterAllDeterministic(t *testing.T) {
	for i := 0; i < 10; i++ {
		c := NewContext()
		c.Register("w", WordMain)
		c.RegisterAll(map[string]string{
			"w": WordML2010,
			"a": DrawingMain,
			"r": OfficeRelationships,
		})
		if uri, _ := c.Lookup("w#2"); uri != WordML2010 {
			t.Fatalf("alias resolution %q", uri)
		}
		if uri, ok := c.Lookup("a"); !ok || uri != DrawingMain {
			t.Fatalf("a -> %q, %v", uri, ok)
		}
	}
}

func TestLookupXMLBuiltin(t *testing.T) {
	c := NewContext()
	if uri, ok := c.Lookup("xml"); !ok || uri != XMLNamespace {
		t.Fatalf("xml -> %q, %v", uri, ok)
	}
}

func TestMigrateForFormat(t *testing.T) {
	c := NewContext()
	ns := map[string]string{
		"w":  WordMain,
		"wp": WordDrawing,
		"r":  OfficeRelationships,
		"v":  VML,
	}
	out, changed := c.MigrateForFormat(ns, FormatSpreadsheet)
	if changed != 2 {
		t.Fatalf("changed %d, want 2", changed)
	}
	if out["w"] != SpreadsheetMain {
		t.Fatalf("main migrated to %q", out["w"])
	}
	if out["wp"] != SpreadsheetDrawing {
		t.Fatalf("drawing migrated to %q", out["wp"])
	}
	if out["r"] != OfficeRelationships || out["v"] != VML {
		t.Fatal("shared namespaces should pass through")
	}
	if ns["w"] != WordMain {
		t.Fatal("input map was modified")
	}
	if c.Stats().Migrations != 2 {
		t.Fatalf("migrations counter %d", c.Stats().Migrations)
	}

	// No drawing analog in the presentation family: passes through.
	out, changed = c.MigrateForFormat(map[string]string{"wp": WordDrawing}, FormatPresentation)
	if changed != 0 || out["wp"] != WordDrawing {
		t.Fatalf("presentation drawing migration: %v (%d changed)", out, changed)
	}
}

func TestValidateURIs(t *testing.T) {
	bad := ValidateURIs(map[string]string{
		"w":    WordMain,
		"v":    VML, // urn form is fine
		"none": "",
		"rel":  "not a uri",
	})
	if len(bad) != 2 {
		t.Fatalf("got %d findings, want 2: %+v", len(bad), bad)
	}
	if bad[0].Prefix != "none" || bad[0].Reason != "empty URI" {
		t.Fatalf("first finding %+v", bad[0])
	}
	if bad[1].Prefix != "rel" {
		t.Fatalf("second finding %+v", bad[1])
	}
}

func TestFormatRoundTrip(t *testing.T) {
	for _, f := range []Format{FormatUnknown, FormatWord, FormatSpreadsheet, FormatPresentation} {
		got, err := ParseFormat(f.String())
		if err != nil {
			t.Fatal(err)
		}
		if got != f {
			t.Fatalf("round trip %v -> %v", f, got)
		}
	}
	if _, err := ParseFormat("rtf"); err == nil {
		t.Fatal("no error for unknown format")
	}
}
