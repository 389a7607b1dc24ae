// Package xmldiff renders line diffs of serialized XML parts, for
// debug logging and CLI reporting.
package xmldiff

import (
	"fmt"
	"strings"

	diffpatch "github.com/sergi/go-diff/diffmatchpatch"
)

// Op says what happened to one line.
type Op int8

const (
	Keep Op = iota
	Delete
	Insert
)

// Edit is one output line of a computed diff.
type Edit struct {
	Op   Op
	Text string
}

// Lines diffs two documents line by line. Distinct lines are interned
// to runes so the character diff engine compares whole lines.
func Lines(before, after string) []Edit {
	intern := map[string]rune{}
	byRune := map[rune]string{}
	a := internLines(intern, byRune, before)
	b := internLines(intern, byRune, after)

	cfg := diffpatch.New()
	diffs := cfg.DiffMainRunes(a, b, false)

	var edits []Edit
	for i := range diffs {
		d := &diffs[i]
		op := Keep
		switch d.Type {
		case diffpatch.DiffDelete:
			op = Delete
		case diffpatch.DiffInsert:
			op = Insert
		}
		for _, r := range d.Text {
			edits = append(edits, Edit{Op: op, Text: byRune[r]})
		}
	}
	return edits
}

func internLines(m map[string]rune, im map[rune]string, doc string) []rune {
	split := strings.Split(strings.TrimSuffix(doc, "\n"), "\n")
	rs := make([]rune, len(split))
	for i, line := range split {
		r, ok := m[line]
		if !ok {
			r = rune(len(m))
			m[line] = r
			im[r] = line
		}
		rs[i] = r
	}
	return rs
}

// Unchanged lines kept around each change when rendering.
const contextLines = 2

// Unified renders a plain -/+ diff with long unchanged runs collapsed.
// Identical documents render as "".
func Unified(before, after string) string {
	return render(Lines(before, after), func(_ Op, line string) string { return line })
}

func render(edits []Edit, paint func(Op, string) string) string {
	show := make([]bool, len(edits))
	changed := false
	for i, e := range edits {
		if e.Op == Keep {
			continue
		}
		changed = true
		for j := max(0, i-contextLines); j <= min(len(edits)-1, i+contextLines); j++ {
			show[j] = true
		}
	}
	if !changed {
		return ""
	}

	var b strings.Builder
	skipped := 0
	flush := func() {
		if skipped > 0 {
			fmt.Fprintf(&b, "@@ %d unchanged @@\n", skipped)
			skipped = 0
		}
	}
	for i, e := range edits {
		if !show[i] {
			skipped++
			continue
		}
		flush()
		marker := " "
		switch e.Op {
		case Delete:
			marker = "-"
		case Insert:
			marker = "+"
		}
		b.WriteString(paint(e.Op, marker+e.Text))
		b.WriteByte('\n')
	}
	flush()
	return b.String()
}
