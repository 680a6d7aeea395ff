// Command pylambda is the reduction engine's CLI collaborator: mode 0
// runs the lambda.test/lambda.res regression harness, mode 1 drops into
// an interactive REPL, and `pylambda run <file>` feeds a whole source
// file through ReduceLambda non-interactively. Grounded on the
// teacher's cmd/kanso-cli/main.go (file-argument handling, fatih/color
// run-summary lines).
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"

	"github.com/mathisgroup/pylambda/internal/harness"
	"github.com/mathisgroup/pylambda/internal/session"
	"github.com/mathisgroup/pylambda/repl"
)

func main() {
	if len(os.Args) >= 3 && os.Args[1] == "run" {
		runFile(os.Args[2])
		return
	}

	fmt.Print("mode (0 = regression harness, 1 = REPL): ")
	reader := bufio.NewReader(os.Stdin)
	choice, _ := reader.ReadString('\n')

	switch strings.TrimSpace(choice) {
	case "0":
		runHarness()
	case "1":
		sess := session.New(session.DefaultParams())
		repl.Start(os.Stdin, os.Stdout, sess)
	default:
		fmt.Println("unrecognized mode")
		os.Exit(1)
	}
}

func runFile(path string) {
	source, err := os.ReadFile(path)
	if err != nil {
		color.Red("failed to read %s: %s", path, err)
		os.Exit(1)
	}

	sess := session.New(session.DefaultParams())
	result, rerr := sess.ReduceLambda(string(source))
	if rerr != nil {
		color.Red("❌ %s", rerr)
		os.Exit(1)
	}

	fmt.Println(result)
	color.Green("✅ Successfully reduced %s", path)
}

func runHarness() {
	report, err := harness.Run(session.DefaultParams(), "lambda.test", "lambda.res")
	if err != nil {
		color.Red("failed to run regression harness: %s", err)
		os.Exit(1)
	}

	if report.Passed() {
		color.Green("✅ %d/%d lines matched", report.Total, report.Total)
		return
	}

	color.Red("❌ %d/%d lines mismatched", len(report.Mismatches), report.Total)
	for _, m := range report.Mismatches {
		fmt.Printf("  line %d: %q\n    got:      %q\n    expected: %q\n", m.Line, m.Source, m.Got, m.Expected)
	}
	os.Exit(1)
}
