package patchset

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/expr-lang/expr"
)

// Env is the evaluation environment for $[...] expressions.
type Env map[string]any

// BaseEnv is the default environment: the set's tokens at the top level
// and the process environment as the "env" map, so $[author] and
// $[env.HOME] both work.
func (s *Set) BaseEnv() Env {
	env := make(Env, len(s.Tokens)+1)
	for k, v := range s.Tokens {
		env[k] = v
	}
	osEnv := map[string]string{}
	for _, kv := range os.Environ() {
		k, v, _ := strings.Cut(kv, "=")
		osEnv[k] = v
	}
	env["env"] = osEnv
	return env
}

// Expand evaluates the expressions in every patch target and value, in
// place. A nil env means BaseEnv. A value that is exactly one $[...]
// expression is replaced by the evaluation result itself, so a token
// holding a list or mapping carries its shape into the patch.
func (s *Set) Expand(env Env) error {
	if env == nil {
		env = s.BaseEnv()
	}
	for i := range s.Patches {
		d := &s.Patches[i]
		t, err := ExpandString(d.Target, env)
		if err != nil {
			return fmt.Errorf("patches[%d].target: %w", i, err)
		}
		d.Target = t
		v, err := expandAny(d.Value, env)
		if err != nil {
			return fmt.Errorf("patches[%d].value: %w", i, err)
		}
		d.Value = v
	}
	return nil
}

func expandAny(v any, env Env) (any, error) {
	switch x := v.(type) {
	case string:
		if raw := rawExpr(x); raw != "" {
			return expr.Eval(raw, map[string]any(env))
		}
		return ExpandString(x, env)
	case []any:
		for i := range x {
			xv, err := expandAny(x[i], env)
			if err != nil {
				return nil, err
			}
			x[i] = xv
		}
		return x, nil
	case map[string]any:
		for k := range x {
			xv, err := expandAny(x[k], env)
			if err != nil {
				return nil, err
			}
			x[k] = xv
		}
		return x, nil
	default:
		return v, nil
	}
}

// rawExpr returns the expression body when the whole string is a single
// $[...] reference, otherwise "".
func rawExpr(s string) string {
	if !strings.HasPrefix(s, "$[") || !strings.HasSuffix(s, "]") {
		return ""
	}
	body := s[2 : len(s)-1]
	if strings.Contains(body, "$[") {
		return ""
	}
	return body
}

// ExpandString replaces $[expr] runs in v with their evaluated text and
// ${VAR} runs with the named entry of the environment's "env" map.
// Inside $[...], backslash escaping applies: \] is a literal bracket
// and \\ a literal backslash. An expression left unclosed is kept as
// literal text.
func ExpandString(v string, env Env) (string, error) {
	if !strings.ContainsRune(v, '$') {
		return v, nil
	}
	var out strings.Builder
	i := 0
	for i < len(v) {
		c := v[i]
		if c != '$' || i+1 >= len(v) {
			out.WriteByte(c)
			i++
			continue
		}
		switch v[i+1] {
		case '[':
			body, next, ok := scanExpr(v, i+2)
			if !ok {
				out.WriteString(v[i:])
				return out.String(), nil
			}
			x, err := expr.Eval(strings.TrimSpace(body), map[string]any(env))
			if err != nil {
				return "", fmt.Errorf("evaluating %q: %w", body, err)
			}
			text, err := anyToText(x)
			if err != nil {
				return "", fmt.Errorf("rendering %q: %w", body, err)
			}
			out.WriteString(text)
			i = next
		case '{':
			j := strings.IndexByte(v[i+2:], '}')
			if j < 0 {
				out.WriteString(v[i:])
				return out.String(), nil
			}
			name := v[i+2 : i+2+j]
			out.WriteString(envVar(env, name))
			i += 2 + j + 1
		default:
			out.WriteByte(c)
			i++
		}
	}
	return out.String(), nil
}

// scanExpr reads an expression body from v starting just past "$[",
// honoring backslash escapes, and returns the body, the index after the
// closing bracket, and whether a closing bracket was found.
func scanExpr(v string, start int) (string, int, bool) {
	var body strings.Builder
	for i := start; i < len(v); i++ {
		switch v[i] {
		case '\\':
			if i+1 < len(v) {
				body.WriteByte(v[i+1])
				i++
				continue
			}
			body.WriteByte('\\')
		case ']':
			return body.String(), i + 1, true
		default:
			body.WriteByte(v[i])
		}
	}
	return "", 0, false
}

func envVar(env Env, name string) string {
	if m, ok := env["env"].(map[string]string); ok {
		return m[name]
	}
	return ""
}

// anyToText renders an evaluation result for splicing into a string.
// Structured results are rendered as JSON.
func anyToText(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "", nil
	case string:
		return x, nil
	case bool:
		return strconv.FormatBool(x), nil
	case int:
		return strconv.Itoa(x), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case uint64:
		return strconv.FormatUint(x, 10), nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	case json.Number:
		return x.String(), nil
	default:
		d, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		return string(d), nil
	}
}
