package harness_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mathisgroup/pylambda/internal/harness"
	"github.com/mathisgroup/pylambda/internal/session"
)

func writeFixture(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRunReportsNoMismatchesOnAMatchingFixture(t *testing.T) {
	testPath := writeFixture(t, "lambda.test", "eval (\\x.x)y;\neval (iota)3;\n")
	resPath := writeFixture(t, "lambda.res", "y\n[1,2,3]\n")

	report, err := harness.Run(session.DefaultParams(), testPath, resPath)
	require.NoError(t, err)
	require.True(t, report.Passed())
	require.Equal(t, 2, report.Total)
}

func TestRunReportsAMismatchWithItsLineNumber(t *testing.T) {
	testPath := writeFixture(t, "lambda.test", "eval (\\x.x)y;\neval (iota)3;\n")
	resPath := writeFixture(t, "lambda.res", "y\n[1,2,4]\n")

	report, err := harness.Run(session.DefaultParams(), testPath, resPath)
	require.NoError(t, err)
	require.False(t, report.Passed())
	require.Len(t, report.Mismatches, 1)
	require.Equal(t, 2, report.Mismatches[0].Line)
	require.Equal(t, "[1,2,3]", report.Mismatches[0].Got)
	require.Equal(t, "[1,2,4]", report.Mismatches[0].Expected)
}

func TestRunFailsFastOnAMissingFixture(t *testing.T) {
	_, err := harness.Run(session.DefaultParams(), "/nonexistent/lambda.test", "/nonexistent/lambda.res")
	require.Error(t, err)
}

func TestFuzzIdentifierStabilityFindsNoMismatches(t *testing.T) {
	report, err := harness.FuzzIdentifierStability(session.DefaultParams(), 1, 25)
	require.NoError(t, err)
	require.True(t, report.Passed())
}
