package interp

import (
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rockorager/rz/internal/ast"
	"github.com/rockorager/rz/internal/env"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func simpleCmd(words ...string) ast.Command {
	args := make([]*ast.Argument, len(words))
	for i, w := range words {
		args[i] = ast.Word([]byte(w))
	}
	return ast.Command{Kind: ast.CmdSimple, Arguments: args}
}

func TestExecAssignmentDoesNotTouchStatus(t *testing.T) {
	e := env.New()
	e.SetStatus(5)
	it := New(e, testLogger())

	it.Exec([]ast.Command{{Kind: ast.CmdAssignment, Name: "x", AssignValue: ast.Word([]byte("1"))}})

	assert.Equal(t, 5, e.Status())
	v, ok := e.Get("x")
	require.True(t, ok)
	assert.Equal(t, "1", v)
}

func TestExecIfZeroSkipsOnNonzeroStatus(t *testing.T) {
	e := env.New()
	it := New(e, testLogger())

	cmds := []ast.Command{
		simpleCmd("builtin", "cd", "/this/path/does/not/exist/rz-test"),
		{Kind: ast.CmdIfZero},
		simpleCmd("builtin", "cd", os.TempDir()),
	}
	it.Exec(cmds)

	assert.NotEqual(t, 0, e.Status(), "the gated cd should have been skipped, leaving the failing cd's status")
}

func TestExecIfNonZeroRunsOnFailure(t *testing.T) {
	e := env.New()
	it := New(e, testLogger())

	cmds := []ast.Command{
		simpleCmd("builtin", "cd", "/this/path/does/not/exist/rz-test"),
		{Kind: ast.CmdIfNonZero},
		simpleCmd("builtin", "cd", os.TempDir()),
	}
	it.Exec(cmds)

	assert.Equal(t, 0, e.Status(), "the || gate should have let the recovery cd run")
}

func TestExecIfZeroRunsOnSuccess(t *testing.T) {
	e := env.New()
	it := New(e, testLogger())

	cmds := []ast.Command{
		simpleCmd("builtin", "cd", os.TempDir()),
		{Kind: ast.CmdIfZero},
		simpleCmd("builtin", "cd", "/this/path/does/not/exist/rz-test"),
	}
	it.Exec(cmds)

	assert.NotEqual(t, 0, e.Status(), "the && gate should have let the second, failing cd run")
}

func TestResolveVariableAndSubscript(t *testing.T) {
	e := env.New()
	e.SetList("xs", []string{"a", "b", "c"})
	it := New(e, testLogger())

	vals, err := it.resolveArg(ast.Variable("xs"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, vals)

	vals, err = it.resolveArg(ast.VariableSubscript("xs", ast.List([]*ast.Argument{ast.Word([]byte("2"))})))
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, vals)

	// out-of-range indices are dropped, not errors
	vals, err = it.resolveArg(ast.VariableSubscript("xs", ast.List([]*ast.Argument{ast.Word([]byte("99"))})))
	require.NoError(t, err)
	assert.Empty(t, vals)

	_, err = it.resolveArg(ast.VariableSubscript("xs", ast.List([]*ast.Argument{ast.Word([]byte("nope"))})))
	assert.Error(t, err)
}

func TestResolveVariableCountAbsentIsZero(t *testing.T) {
	e := env.New()
	it := New(e, testLogger())
	vals, err := it.resolveArg(ast.VariableCount("missing"))
	require.NoError(t, err)
	assert.Equal(t, []string{"0"}, vals)
}

func TestResolveVariableStringJoinsWithSpace(t *testing.T) {
	e := env.New()
	e.SetList("xs", []string{"a", "b", "c"})
	it := New(e, testLogger())
	vals, err := it.resolveArg(ast.VariableString("xs"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a b c"}, vals)
}

func TestResolveConcatenateBroadcast(t *testing.T) {
	e := env.New()
	e.SetList("xs", []string{"a", "b"})
	it := New(e, testLogger())
	vals, err := it.resolveArg(ast.Concatenate(ast.Variable("xs"), ast.Word([]byte(".c"))))
	require.NoError(t, err)
	assert.Equal(t, []string{"a.c", "b.c"}, vals)
}

func TestResolveConcatenateUnequalLengthsIsError(t *testing.T) {
	e := env.New()
	e.SetList("xs", []string{"a", "b"})
	e.SetList("ys", []string{"1", "2", "3"})
	it := New(e, testLogger())
	_, err := it.resolveArg(ast.Concatenate(ast.Variable("xs"), ast.Variable("ys")))
	assert.Error(t, err)
}

func TestLocalAssignmentRestoredAfterCommand(t *testing.T) {
	e := env.New()
	e.Set("x", "outer")
	it := New(e, testLogger())

	cmd := ast.Command{
		Kind:        ast.CmdSimple,
		Assignments: []ast.Assignment{{Key: "x", Value: ast.Word([]byte("inner"))}},
		Arguments:   []*ast.Argument{ast.Word([]byte("builtin")), ast.Word([]byte("cd")), ast.Word([]byte("."))},
	}
	it.execSimple(cmd)

	v, _ := e.Get("x")
	assert.Equal(t, "outer", v, "the local assignment must not leak past the command")
}

func TestSplitIFSDefault(t *testing.T) {
	e := env.New()
	it := New(e, testLogger())
	assert.Equal(t, []string{"a", "b", "c"}, splitIFS("a b\tc\n", it))
}
