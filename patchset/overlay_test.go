package patchset

import (
	"strings"
	"testing"
)

func TestApplyOverlay(t *testing.T) {
	base, err := Load([]byte(sampleSet))
	if err != nil {
		t.Fatal(err)
	}
	overlay := []byte(`
- op: replace
  path: /patches/0/value
  value: overridden
- op: add
  path: /tokens/stage
  value: prod
- op: remove
  path: /patches/2
`)
	got, err := base.ApplyOverlay(overlay)
	if err != nil {
		t.Fatal(err)
	}
	if got.Patches[0].Value != "overridden" {
		t.Errorf("patch 0 value = %v", got.Patches[0].Value)
	}
	if got.Tokens["stage"] != "prod" {
		t.Errorf("tokens = %v", got.Tokens)
	}
	if len(got.Patches) != 2 {
		t.Errorf("got %d patches", len(got.Patches))
	}
	// The base set is untouched.
	if base.Patches[0].Value != "hello" || len(base.Patches) != 3 {
		t.Errorf("base modified: %+v", base.Patches)
	}
}

func TestApplyOverlayTestOp(t *testing.T) {
	base, err := Load([]byte(sampleSet))
	if err != nil {
		t.Fatal(err)
	}
	failing := []byte(`
- op: test
  path: /kind
  value: xlsx
`)
	if _, err := base.ApplyOverlay(failing); err == nil {
		t.Error("failed test op accepted")
	}
	passing := []byte(`
- op: test
  path: /kind
  value: docx
- op: replace
  path: /kind
  value: xlsx
`)
	got, err := base.ApplyOverlay(passing)
	if err != nil {
		t.Fatal(err)
	}
	if got.Kind != "xlsx" {
		t.Errorf("kind = %q", got.Kind)
	}
}

func TestApplyOverlayRejectsGarbage(t *testing.T) {
	base := &Set{Version: Version}
	if _, err := base.ApplyOverlay([]byte("op: not-a-list")); err == nil {
		t.Error("non-list overlay accepted")
	}
	if _, err := base.ApplyOverlay([]byte("- op: replace\n  path: /nope/nope\n  value: 1\n")); err == nil {
		t.Error("bad path accepted")
	}
}

func TestOverlayThenCompile(t *testing.T) {
	base, err := Load([]byte(sampleSet))
	if err != nil {
		t.Fatal(err)
	}
	got, err := base.ApplyOverlay([]byte(`
- op: replace
  path: /patches/1/target
  value: //w:body/w:p[1]
`))
	if err != nil {
		t.Fatal(err)
	}
	ops, issues := got.Compile()
	if len(issues) != 0 {
		t.Fatalf("issues = %v", issues)
	}
	if !strings.Contains(ops[1].Target, "w:p[1]") {
		t.Errorf("target = %q", ops[1].Target)
	}
}
