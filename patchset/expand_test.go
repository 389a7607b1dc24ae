package patchset

import (
	"strings"
	"testing"
)

type expandTest struct {
	in, out string
}

func TestExpandString(t *testing.T) {
	env := Env{
		"author":   "Jane",
		"revision": 7,
		"draft":    true,
		"env":      map[string]string{"STAGE": "prod"},
	}
	tests := []expandTest{
		{in: "abc", out: "abc"},
		{in: "$[author]", out: "Jane"},
		{in: "rev $[revision] by $[author]", out: "rev 7 by Jane"},
		{in: "$[ revision + 1 ]", out: "8"},
		{in: "$[draft]", out: "true"},
		{in: "$[env.STAGE]", out: "prod"},
		{in: "${STAGE}", out: "prod"},
		{in: "${MISSING}", out: ""},
		{in: "$[", out: "$["},
		{in: "$[author", out: "$[author"},
		{in: "${STAGE", out: "${STAGE"},
		{in: "$abc", out: "$abc"},
		{in: `$['a\]b']`, out: "a]b"},
	}
	for i := range tests {
		tc := &tests[i]
		got, err := ExpandString(tc.in, env)
		if err != nil {
			t.Errorf("%q: %v", tc.in, err)
			continue
		}
		if got != tc.out {
			t.Errorf("%q: got %q want %q", tc.in, got, tc.out)
		}
	}
}

func TestExpandStringError(t *testing.T) {
	if _, err := ExpandString("$[nosuch + 1]", Env{}); err == nil {
		t.Error("unknown identifier evaluated")
	}
}

func TestExpandSet(t *testing.T) {
	s, err := Load([]byte(`
tokens:
  style: Heading$[level]
  level: 2
patches:
  - kind: set
    target: //w:pStyle/@w:val
    value: $[style]
  - kind: set
    target: //w:t
    value: "level ${DEPTH}"
  - kind: extend
    target: //w:p
    value:
      - "$[items]"
`))
	if err != nil {
		t.Fatal(err)
	}
	env := s.BaseEnv()
	env["items"] = []any{"a", "b"}
	env["env"] = map[string]string{"DEPTH": "3"}

	if err := s.Expand(env); err != nil {
		t.Fatal(err)
	}
	// Tokens are environment, not targets: the token text itself is not
	// rewritten, its uses are.
	if got := s.Patches[0].Value; got != "Heading$[level]" {
		t.Errorf("patch 0 value = %v", got)
	}
	if got := s.Patches[1].Value; got != "level 3" {
		t.Errorf("patch 1 value = %v", got)
	}
	list, ok := s.Patches[2].Value.([]any)
	if !ok || len(list) != 1 {
		t.Fatalf("patch 2 value = %#v", s.Patches[2].Value)
	}
	inner, ok := list[0].([]any)
	if !ok || len(inner) != 2 || inner[0] != "a" {
		t.Errorf("raw expression did not keep its shape: %#v", list[0])
	}
}

func TestExpandReportsPatchIndex(t *testing.T) {
	s, err := Load([]byte(`
patches:
  - kind: set
    target: //w:t
    value: ok
  - kind: set
    target: //w:t
    value: $[boom +]
`))
	if err != nil {
		t.Fatal(err)
	}
	err = s.Expand(Env{})
	if err == nil {
		t.Fatal("bad expression expanded")
	}
	if got := err.Error(); !strings.Contains(got, "patches[1]") {
		t.Errorf("err = %q", got)
	}
}
