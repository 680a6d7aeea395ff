package session_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mathisgroup/pylambda/internal/session"
)

func newTestSession() *session.Session {
	p := session.DefaultParams()
	p.Output = &bytes.Buffer{}
	p.ErrorFP = &bytes.Buffer{}
	return session.New(p)
}

// The six concrete scenarios from the governing spec's testable
// properties section, each checked after standardize so variable
// spelling differences don't cause spurious failures.
func TestConcreteScenarios(t *testing.T) {
	cases := []struct {
		name   string
		source string
		want   string
	}{
		{"identity", `eval (\x.x)y;`, "y"},
		{"k-combinator", `let K _ \x.\y.x; eval ((K)a)b;`, "a"},
		{"factorial-via-y", `let fact _ (?)\f.\n.(((zero)n)1)((*)n)(f)(pred)n; eval (fact)4;`, "24"},
		{"iota", `eval (iota)3;`, "[1,2,3]"},
		{"map-square", `eval ((map)\x.((*)x)x)[1,2,3];`, "[1,4,9]"},
		{"head-of-append", `eval (^)((append)[1,2])[3,4];`, "1"},
		{"tail", `eval (~)[1,2,3];`, "[2,3]"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sess := newTestSession()
			result, err := sess.ReduceLambda(tc.source)
			require.NoError(t, err)

			standardized, serr := sess.Standardize(result)
			require.NoError(t, serr)
			require.Equal(t, tc.want, standardized)
		})
	}
}

func TestYCombinatorFixedPoint(t *testing.T) {
	sess := newTestSession()
	// (Y)f unfolds to (f)(Y)f; applying the factorial generator directly
	// through the Y combinator token (no `let`/recurve involved) checks
	// that unfolding terminates and folds correctly for a concrete n.
	result, err := sess.ReduceLambda(`eval ((?)\f.\n.(((zero)n)1)((*)n)(f)(pred)n)3;`)
	require.NoError(t, err)
	require.Equal(t, "6", result)
}

func TestStandardizeIsIdempotent(t *testing.T) {
	sess := newTestSession()
	once, err := sess.Standardize(`\a.\b.(a)b`)
	require.NoError(t, err)

	twice, err := sess.Standardize(once)
	require.NoError(t, err)

	require.Equal(t, once, twice)
}

func TestStandardizeIgnoresBoundVariableSpelling(t *testing.T) {
	sess1 := newTestSession()
	a, err := sess1.Standardize(`\foo.\bar.(foo)bar`)
	require.NoError(t, err)

	sess2 := newTestSession()
	b, err := sess2.Standardize(`\q.\z.(q)z`)
	require.NoError(t, err)

	require.Equal(t, a, b)
}

func TestBindAllFreeVarsClosesTheTerm(t *testing.T) {
	sess := newTestSession()
	closed, err := sess.BindAllFreeVars(`(x)y`)
	require.NoError(t, err)
	require.Equal(t, `\x.\y.(x)y`, closed)

	result, ferr := sess.FreeVariables(closed)
	require.NoError(t, ferr)
	require.Equal(t, session.NoFreeVars, result)
}

func TestFreeVariablesDetectsFreeOccurrence(t *testing.T) {
	sess := newTestSession()
	result, err := sess.FreeVariables(`\x.(x)y`)
	require.NoError(t, err)
	require.Equal(t, session.HasFreeVars, result)

	result, err = sess.FreeVariables(`\x.\y.(x)y`)
	require.NoError(t, err)
	require.Equal(t, session.NoFreeVars, result)
}

func TestSpaceLimitAbortsOnlyTheOffendingEval(t *testing.T) {
	p := session.DefaultParams()
	p.HeapSize = 8 // far too small for iota 100
	p.Output = &bytes.Buffer{}
	p.ErrorFP = &bytes.Buffer{}
	sess := session.New(p)

	result, err := sess.ReduceLambda(`eval (iota)100; eval (pred)2;`)
	require.NoError(t, err, "space_limit should abort only the offending eval, not the whole call")
	require.Equal(t, "1", result)
	require.Greater(t, sess.Counters().Count("E0101"), 0)
}

func TestCycleLimitAborts(t *testing.T) {
	p := session.DefaultParams()
	p.CycleLimit = 5
	p.Output = &bytes.Buffer{}
	p.ErrorFP = &bytes.Buffer{}
	sess := session.New(p)

	result, err := sess.ReduceLambda(`let omega _ (\x.(x)x)\x.(x)x; eval (omega)omega;`)
	require.NoError(t, err)
	require.Equal(t, "", result)
	require.Greater(t, sess.Counters().Count("E0102"), 0)
}

func TestLetDefinitionVisibleToLaterEval(t *testing.T) {
	sess := newTestSession()
	result, err := sess.ReduceLambda(`let id _ \x.x; eval (id)42;`)
	require.NoError(t, err)
	require.Equal(t, "42", result)
}

func TestLetDefinitionPersistsAcrossCalls(t *testing.T) {
	sess := newTestSession()
	_, err := sess.ReduceLambda(`let id _ \x.x;`)
	require.NoError(t, err)

	result, err := sess.ReduceLambda(`eval (id)7;`)
	require.NoError(t, err)
	require.Equal(t, "7", result)
}

func TestResetForgetsDefinitions(t *testing.T) {
	sess := newTestSession()
	_, err := sess.ReduceLambda(`let id _ \x.x;`)
	require.NoError(t, err)

	sess.Reset()

	result, err := sess.ReduceLambda(`eval id;`)
	require.NoError(t, err)
	require.Equal(t, "id", result, "after Reset, 'id' is once again an unbound free variable")
}

func TestArithmeticAndRelations(t *testing.T) {
	sess := newTestSession()

	result, err := sess.ReduceLambda(`eval ((+)3)4;`)
	require.NoError(t, err)
	require.Equal(t, "7", result)

	result, err = sess.ReduceLambda(`eval ((<)3)4;`)
	require.NoError(t, err)
	require.Equal(t, "true", result)

	result, err = sess.ReduceLambda(`eval ((/)7)2;`)
	require.NoError(t, err)
	require.Equal(t, "3", result)

	result, err = sess.ReduceLambda(`eval ((/)7.0)2;`)
	require.NoError(t, err)
	require.Equal(t, "3.5", result)
}

func TestListArithmeticFoldsTheList(t *testing.T) {
	sess := newTestSession()
	result, err := sess.ReduceLambda(`eval (add)[1,2,3,4];`)
	require.NoError(t, err)
	require.Equal(t, "10", result)
}

func TestBooleanFolding(t *testing.T) {
	sess := newTestSession()

	result, err := sess.ReduceLambda(`eval ((and)true)false;`)
	require.NoError(t, err)
	require.Equal(t, "false", result)

	result, err = sess.ReduceLambda(`eval (not)true;`)
	require.NoError(t, err)
	require.Equal(t, "false", result)
}

func TestDivisionByZeroIsFatal(t *testing.T) {
	sess := newTestSession()
	_, err := sess.ReduceLambda(`eval ((/)1)0;`)
	require.Error(t, err)
}

func TestWrongOperandForHeadIsFatal(t *testing.T) {
	sess := newTestSession()
	_, err := sess.ReduceLambda(`eval (^)5;`)
	require.Error(t, err)
}
