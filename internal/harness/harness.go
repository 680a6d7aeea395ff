// Package harness implements the line-for-line lambda.test/lambda.res
// regression runner spec.md §1 calls out as an external collaborator,
// not part of the core: feed each line of a .test file through a
// session as its own ReduceLambda call, and require the result to
// equal the corresponding line of the paired .res file. Consumed by
// both `go test` (internal/harness/harness_test.go) and the CLI's mode
// 0, the way the original's bespoke C driver fed lambda.test against
// lambda.res by hand.
package harness

import (
	"bufio"
	"fmt"
	"os"

	"github.com/pkg/errors"

	"github.com/mathisgroup/pylambda/internal/randx"
	"github.com/mathisgroup/pylambda/internal/session"
	"github.com/mathisgroup/pylambda/internal/sortutil"
)

// Mismatch records one line where the session's output didn't match
// the expected .res line.
type Mismatch struct {
	Line     int
	Source   string
	Got      string
	Expected string
}

// Report summarizes a full .test/.res run.
type Report struct {
	Total      int
	Mismatches []Mismatch
}

// Passed reports whether every line matched.
func (r *Report) Passed() bool { return len(r.Mismatches) == 0 }

// Run feeds testPath line by line into one Session, Reset before each
// line (matching the original's one-shot-per-top-level-call model), and
// compares each result against the same line number of resPath. I/O
// failures are wrapped with github.com/pkg/errors so the caller's
// error chain distinguishes "couldn't open the fixture" from "fixture
// content mismatched".
func Run(p session.Params, testPath, resPath string) (*Report, error) {
	testLines, err := readLines(testPath)
	if err != nil {
		return nil, errors.Wrapf(err, "reading test fixture %s", testPath)
	}
	resLines, err := readLines(resPath)
	if err != nil {
		return nil, errors.Wrapf(err, "reading result fixture %s", resPath)
	}

	report := &Report{Total: len(testLines)}
	sess := session.New(p)

	for i, src := range testLines {
		sess.Reset()
		got, _ := sess.ReduceLambda(src)

		var want string
		if i < len(resLines) {
			want = resLines[i]
		}
		if got != want {
			report.Mismatches = append(report.Mismatches, Mismatch{
				Line:     i + 1,
				Source:   src,
				Got:      got,
				Expected: want,
			})
		}
	}

	if len(report.Mismatches) > 0 {
		lineNumbers := make([]int, len(report.Mismatches))
		for i, m := range report.Mismatches {
			lineNumbers[i] = m.Line
		}
		sortutil.HeapSort(lineNumbers)
		for i := range report.Mismatches {
			report.Mismatches[i].Line = lineNumbers[i]
		}
	}

	return report, nil
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	return lines, sc.Err()
}

// FuzzIdentifierStability generates n random identity-style programs
// — `eval (\<id>.<id>)<id2>;`, where id2 is free — with random identifier
// spellings drawn from randx, and checks that every one reduces to the
// expected argument regardless of spelling. This is the randomized
// property exercise SPEC_FULL.md assigns to randx/sortutil: neither
// package is otherwise reachable from the reduction core.
func FuzzIdentifierStability(p session.Params, seed int64, n int) (*Report, error) {
	src := randx.NewSource(seed)
	report := &Report{Total: n}
	sess := session.New(p)

	for i := 0; i < n; i++ {
		sess.Reset()
		id := randx.Identifier(src, 1+randx.IntURN(src, 0, 4), p.NameLength)
		arg := randx.Identifier(src, 1+randx.IntURN(src, 0, 4), p.NameLength)
		if id == arg {
			continue
		}
		program := fmt.Sprintf("eval (\\%s.%s)%s;", id, id, arg)
		got, _ := sess.ReduceLambda(program)
		if got != arg {
			report.Mismatches = append(report.Mismatches, Mismatch{
				Line: i + 1, Source: program, Got: got, Expected: arg,
			})
		}
	}
	return report, nil
}
