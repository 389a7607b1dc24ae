// Package epath compiles and evaluates the element paths used to target
// nodes inside an XML part.
//
// The syntax is a small XPath-like subset:
//   - "/w:document/w:body/w:p" → absolute path, one element per step
//   - "w:body/w:p" → relative path, resolved from the document root
//   - "//w:t" → descendant step, matches at any depth
//   - "w:p[2]" → positional predicate, 1-based among same-named siblings
//   - "w:p[@w:rsidR='00AA']" → attribute-equality predicate
//   - "w:sectPr/@w:val" → attribute step, only valid as the final step
//   - "*" → wildcard step, any element ("w:*" restricts to one namespace)
//
// Prefixes are resolved to namespace URIs at selection time through a
// Resolver; compilation never needs namespace bindings, so compiled
// expressions are shareable across documents.
package epath

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tokenlayer/oxpatch/xmlir"
)

// Expr is a compiled element path.
type Expr struct {
	Raw      string
	Absolute bool
	Steps    []Step

	// AnyNS makes selection compare local names only, ignoring both
	// prefixes and namespace URIs. See LocalNames.
	AnyNS bool
}

// Step is one path segment.
type Step struct {
	Name       xmlir.Name
	Attr       bool // @name step, terminal only
	Descendant bool // step preceded by "//"
	Wildcard   bool // name written as "*"
	Index      int  // 1-based positional predicate, 0 when absent
	Pred       *AttrPred
}

// AttrPred is an attribute-equality predicate, [@name='value'].
type AttrPred struct {
	Name  xmlir.Name
	Value string
}

// SyntaxError reports a malformed path with the byte offset of the
// offending token.
type SyntaxError struct {
	Expr string
	Pos  int
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("path %q: offset %d: %s", e.Expr, e.Pos, e.Msg)
}

// Parse compiles a path expression.
func Parse(target string) (*Expr, error) {
	p := &parser{src: target}
	return p.parse()
}

// MustParse is Parse for paths known valid at compile time.
func MustParse(target string) *Expr {
	e, err := Parse(target)
	if err != nil {
		panic(err)
	}
	return e
}

// LocalNames returns a copy of the expression that matches on local names
// only. Recovery uses it to retry a path whose prefixes did not line up
// with the document's declarations.
func (e *Expr) LocalNames() *Expr {
	c := *e
	c.Steps = append([]Step(nil), e.Steps...)
	c.AnyNS = true
	return &c
}

// IsAttr reports whether the expression targets an attribute.
func (e *Expr) IsAttr() bool {
	return len(e.Steps) > 0 && e.Steps[len(e.Steps)-1].Attr
}

// Prefixes returns the distinct namespace prefixes the expression uses, in
// order of first appearance.
func (e *Expr) Prefixes() []string {
	var res []string
	seen := map[string]bool{}
	add := func(p string) {
		if p == "" || p == "xml" || seen[p] {
			return
		}
		seen[p] = true
		res = append(res, p)
	}
	for _, st := range e.Steps {
		add(st.Name.Prefix)
		if st.Pred != nil {
			add(st.Pred.Name.Prefix)
		}
	}
	return res
}

// String renders the canonical form of the expression.
func (e *Expr) String() string {
	var b strings.Builder
	for i, st := range e.Steps {
		switch {
		case st.Descendant:
			b.WriteString("//")
		case i > 0 || e.Absolute:
			b.WriteByte('/')
		}
		if st.Attr {
			b.WriteByte('@')
		}
		b.WriteString(st.Name.String())
		if st.Index > 0 {
			fmt.Fprintf(&b, "[%d]", st.Index)
		}
		if st.Pred != nil {
			fmt.Fprintf(&b, "[@%s='%s']", st.Pred.Name, st.Pred.Value)
		}
	}
	return b.String()
}

func (e *Expr) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

func (e *Expr) UnmarshalText(d []byte) error {
	p, err := Parse(string(d))
	if err != nil {
		return err
	}
	*e = *p
	return nil
}

type parser struct {
	src string
	i   int
}

func (p *parser) parse() (*Expr, error) {
	if strings.TrimSpace(p.src) == "" {
		return nil, p.errAt(0, "empty path")
	}
	e := &Expr{Raw: p.src}
	if p.eat('/') {
		e.Absolute = true
	}
	for {
		desc := p.eat('/')
		st, err := p.step()
		if err != nil {
			return nil, err
		}
		st.Descendant = desc
		e.Steps = append(e.Steps, st)
		if p.done() {
			break
		}
		if !p.eat('/') {
			return nil, p.errAt(p.i, fmt.Sprintf("unexpected %q", p.src[p.i]))
		}
	}
	for i, st := range e.Steps[:len(e.Steps)-1] {
		if st.Attr {
			return nil, p.errAt(0, fmt.Sprintf("attribute step @%s is not last (step %d)", st.Name, i+1))
		}
	}
	return e, nil
}

func (p *parser) step() (Step, error) {
	var st Step
	start := p.i
	if p.eat('@') {
		st.Attr = true
	}
	raw, err := p.name()
	if err != nil {
		return st, err
	}
	nm, err := xmlir.ParseName(raw)
	if err != nil {
		return st, p.errAt(start, err.Error())
	}
	st.Name = nm
	st.Wildcard = nm.Local == "*"
	for !p.done() && p.src[p.i] == '[' {
		if err := p.pred(&st); err != nil {
			return st, err
		}
	}
	if st.Attr && (st.Index != 0 || st.Pred != nil) {
		return st, p.errAt(start, "attribute step takes no predicates")
	}
	if st.Wildcard && st.Attr {
		return st, p.errAt(start, "attribute step cannot be a wildcard")
	}
	return st, nil
}

func (p *parser) pred(st *Step) error {
	start := p.i
	p.i++ // consume '['
	if p.done() {
		return p.errAt(start, "unterminated predicate")
	}
	if p.src[p.i] == '@' {
		p.i++
		raw, err := p.name()
		if err != nil {
			return err
		}
		nm, err := xmlir.ParseName(raw)
		if err != nil {
			return p.errAt(start, err.Error())
		}
		if !p.eat('=') {
			return p.errAt(p.i, "expected '=' in attribute predicate")
		}
		val, err := p.quoted()
		if err != nil {
			return err
		}
		if !p.eat(']') {
			return p.errAt(p.i, "expected ']'")
		}
		if st.Pred != nil {
			return p.errAt(start, "duplicate attribute predicate")
		}
		st.Pred = &AttrPred{Name: nm, Value: val}
		return nil
	}
	j := strings.IndexByte(p.src[p.i:], ']')
	if j == -1 {
		return p.errAt(start, "unterminated predicate")
	}
	digits := p.src[p.i : p.i+j]
	n, err := strconv.Atoi(digits)
	if err != nil {
		return p.errAt(p.i, fmt.Sprintf("invalid predicate %q", digits))
	}
	if n < 1 {
		return p.errAt(p.i, "positional predicate is 1-based")
	}
	if st.Index != 0 {
		return p.errAt(start, "duplicate positional predicate")
	}
	st.Index = n
	p.i += j + 1
	return nil
}

func (p *parser) quoted() (string, error) {
	if p.done() || (p.src[p.i] != '\'' && p.src[p.i] != '"') {
		return "", p.errAt(p.i, "expected quoted value")
	}
	q := p.src[p.i]
	p.i++
	j := strings.IndexByte(p.src[p.i:], q)
	if j == -1 {
		return "", p.errAt(p.i-1, "unterminated quoted value")
	}
	val := p.src[p.i : p.i+j]
	p.i += j + 1
	return val, nil
}

func (p *parser) name() (string, error) {
	start := p.i
	for !p.done() && !strings.ContainsRune("/[]@='\" \t\r\n", rune(p.src[p.i])) {
		p.i++
	}
	if p.i == start {
		return "", p.errAt(start, "expected name")
	}
	return p.src[start:p.i], nil
}

func (p *parser) eat(c byte) bool {
	if p.done() || p.src[p.i] != c {
		return false
	}
	p.i++
	return true
}

func (p *parser) done() bool { return p.i >= len(p.src) }

func (p *parser) errAt(pos int, msg string) *SyntaxError {
	return &SyntaxError{Expr: p.src, Pos: pos, Msg: msg}
}
