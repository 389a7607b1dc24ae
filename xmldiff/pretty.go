package xmldiff

import (
	"github.com/fatih/color"
)

var (
	delColor = color.New(color.FgRed)
	insColor = color.New(color.FgGreen)
)

// Pretty renders the diff for a terminal, coloring removals red and
// insertions green. With colored false it matches Unified.
func Pretty(before, after string, colored bool) string {
	if !colored {
		return Unified(before, after)
	}
	return render(Lines(before, after), func(op Op, line string) string {
		switch op {
		case Delete:
			return delColor.Sprint(line)
		case Insert:
			return insColor.Sprint(line)
		default:
			return line
		}
	})
}
