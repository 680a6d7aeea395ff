package errs

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// Reporter formats a *LambdaError against a named source, Rust-style:
// a colored "error[CODE]: message" header, a "--> name:line:col"
// location line, the offending source line, and a caret underneath it.
type Reporter struct {
	Name   string
	Source string
	lines  []string
}

func NewReporter(name, source string) *Reporter {
	return &Reporter{Name: name, Source: source, lines: strings.Split(source, "\n")}
}

// Format renders err for a human reader. It never fails: a missing
// position degrades gracefully to a header-only message.
func (r *Reporter) Format(err *LambdaError) string {
	var b strings.Builder

	header := color.New(color.FgRed, color.Bold).Sprintf("error[%s]", err.Code)
	fmt.Fprintf(&b, "%s: %s\n", header, err.Message)

	if err.Pos != nil {
		fmt.Fprintf(&b, "  --> %s:%d:%d\n", r.Name, err.Pos.Line, err.Pos.Column)
		if err.Pos.Line >= 1 && err.Pos.Line <= len(r.lines) {
			line := r.lines[err.Pos.Line-1]
			fmt.Fprintf(&b, "   | %s\n", line)
			col := err.Pos.Column
			if col < 1 {
				col = 1
			}
			fmt.Fprintf(&b, "   | %s%s\n", strings.Repeat(" ", col-1), color.New(color.FgRed).Sprint("^"))
		}
	}

	if err.Help != "" {
		fmt.Fprintf(&b, "   = %s: %s\n", color.New(color.FgCyan).Sprint("help"), err.Help)
	}

	return b.String()
}
