// Package repl is a line-oriented REPL over an io.Reader/io.Writer pair,
// grounded on the teacher's repl/repl.go. A leading '@' on a line is the
// exit sentinel spec.md §6 specifies for the REPL collaborator.
package repl

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/mathisgroup/pylambda/internal/session"
)

const prompt = ">> "

// Start runs the REPL loop against in/out until a line starting with '@'
// is seen or the input is exhausted. Each non-empty line is fed to
// sess.ReduceLambda as its own top-level call. A line beginning with
// 'eval'/'let' is passed through, with ';' appended if it does not
// already end in one; bare expressions are auto-wrapped as
// `eval <line>;` so a REPL user need not type the full command syntax
// every time.
func Start(in io.Reader, out io.Writer, sess *session.Session) {
	scanner := bufio.NewScanner(in)

	for {
		fmt.Fprint(out, prompt)
		if !scanner.Scan() {
			return
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "@") {
			return
		}

		result, err := sess.ReduceLambda(wrap(line))
		if err != nil {
			fmt.Fprintf(out, "error: %s\n", err)
			continue
		}
		fmt.Fprintln(out, result)
	}
}

func wrap(line string) string {
	trimmed := strings.TrimSpace(line)
	if strings.HasPrefix(trimmed, "eval ") || strings.HasPrefix(trimmed, "let ") {
		if strings.HasSuffix(trimmed, ";") {
			return trimmed
		}
		return trimmed + ";"
	}
	return "eval " + trimmed + ";"
}
