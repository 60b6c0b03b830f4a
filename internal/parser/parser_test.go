package parser

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rockorager/rz/internal/ast"
)

func mustParse(t *testing.T, src string) []ast.Command {
	t.Helper()
	cmds, err := Parse([]byte(src), nil)
	require.NoError(t, err)
	return cmds
}

func TestParseSimpleCommand(t *testing.T) {
	cmds := mustParse(t, "echo hello world")
	require.Len(t, cmds, 1)
	require.Equal(t, ast.CmdSimple, cmds[0].Kind)
	require.Len(t, cmds[0].Arguments, 3)
}

func TestParseAssignment(t *testing.T) {
	cmds := mustParse(t, "foo=bar")
	require.Len(t, cmds, 1)
	require.Equal(t, ast.CmdAssignment, cmds[0].Kind)
	require.Equal(t, "foo", cmds[0].Name)
}

func TestParseLocalAssignmentPrefix(t *testing.T) {
	cmds := mustParse(t, "foo=bar echo baz")
	require.Len(t, cmds, 1)
	require.Equal(t, ast.CmdSimple, cmds[0].Kind)
	require.Len(t, cmds[0].Assignments, 1)
	require.Equal(t, "foo", cmds[0].Assignments[0].Key)
}

func TestParsePipe(t *testing.T) {
	cmds := mustParse(t, "a | b | c")
	require.Len(t, cmds, 1)
	require.Equal(t, ast.CmdPipe, cmds[0].Kind)
	// a | b | c parses left-nested: pipe(pipe(a,b),c)
	require.Equal(t, ast.CmdPipe, cmds[0].LHS.Kind)
	require.Equal(t, ast.CmdSimple, cmds[0].RHS.Kind)
}

func TestParseSentinels(t *testing.T) {
	cmds := mustParse(t, "a && b || c")
	require.Len(t, cmds, 5)
	require.Equal(t, ast.CmdSimple, cmds[0].Kind)
	require.Equal(t, ast.CmdIfZero, cmds[1].Kind)
	require.Equal(t, ast.CmdSimple, cmds[2].Kind)
	require.Equal(t, ast.CmdIfNonZero, cmds[3].Kind)
	require.Equal(t, ast.CmdSimple, cmds[4].Kind)
}

func TestParseGroup(t *testing.T) {
	cmds := mustParse(t, "{ a; b }")
	require.Len(t, cmds, 1)
	require.Equal(t, ast.CmdGroup, cmds[0].Kind)
	require.Len(t, cmds[0].Commands, 2)
}

func TestParseFunctionCapturesRawBody(t *testing.T) {
	cmds := mustParse(t, "fn greet { echo hi $1 }")
	require.Len(t, cmds, 1)
	require.Equal(t, ast.CmdFunction, cmds[0].Kind)
	require.Equal(t, "greet", cmds[0].Name)
	require.Equal(t, " echo hi $1 ", cmds[0].BodySource)
}

func TestParseFunctionBodyWithNestedBraces(t *testing.T) {
	cmds := mustParse(t, "fn f { { a } }")
	require.Equal(t, " { a } ", cmds[0].BodySource)
}

func TestParseRedirectionPlain(t *testing.T) {
	cmds := mustParse(t, "echo hi > out.txt")
	require.Len(t, cmds[0].Redirections, 1)
	r := cmds[0].Redirections[0]
	require.Equal(t, ast.RedirOut, r.Direction)
	require.EqualValues(t, 1, r.Fd)
	require.False(t, r.Append)
}

func TestParseRedirectionAppend(t *testing.T) {
	cmds := mustParse(t, "echo hi >> out.txt")
	require.True(t, cmds[0].Redirections[0].Append)
}

func TestParseRedirectionBracketedFd(t *testing.T) {
	cmds := mustParse(t, "cmd >[2] err.txt")
	r := cmds[0].Redirections[0]
	require.EqualValues(t, 2, r.Fd)
}

func TestParseRedirectionFdAliasConcatenates(t *testing.T) {
	// >[2=1] lexes as Word("[2") Equal Word("1]") and must concatenate into
	// one file argument string, resolved later by the interpreter.
	cmds := mustParse(t, "cmd >[2=1]")
	r := cmds[0].Redirections[0]
	require.Equal(t, ast.ArgConcatenate, r.File.Kind)
}

func TestParseVariableSubscript(t *testing.T) {
	cmds := mustParse(t, "echo $list(1)")
	arg := cmds[0].Arguments[1]
	require.Equal(t, ast.ArgVariableSubscript, arg.Kind)
	require.Equal(t, "list", arg.Name)
}

func TestParseConcatenationShapes(t *testing.T) {
	// foo$bar: implicit continuation right-nests at the variable boundary.
	cmds := mustParse(t, "echo foo$bar")
	arg := cmds[0].Arguments[1]
	require.Equal(t, ast.ArgConcatenate, arg.Kind)
	require.Equal(t, ast.ArgWord, arg.LHS.Kind)
	require.Equal(t, "foo", string(arg.LHS.Literal))
	require.Equal(t, ast.ArgVariable, arg.RHS.Kind)
	require.Equal(t, "bar", arg.RHS.Name)
}

func TestParseConcatenationExplicitCaretLeftFolds(t *testing.T) {
	// foo^$bar^.c left-folds explicit carets: Concatenate(Concatenate(foo,$bar), .c)
	cmds := mustParse(t, "echo foo^$bar^.c")
	arg := cmds[0].Arguments[1]
	require.Equal(t, ast.ArgConcatenate, arg.Kind)
	require.Equal(t, ast.ArgConcatenate, arg.LHS.Kind)
	require.Equal(t, ast.ArgWord, arg.LHS.LHS.Kind)
	require.Equal(t, "foo", string(arg.LHS.LHS.Literal))
	require.Equal(t, ast.ArgVariable, arg.LHS.RHS.Kind)
	require.Equal(t, "bar", arg.LHS.RHS.Name)
	require.Equal(t, ast.ArgWord, arg.RHS.Kind)
	require.Equal(t, ".c", string(arg.RHS.Literal))
}

func TestParseList(t *testing.T) {
	cmds := mustParse(t, "echo (a b c)")
	arg := cmds[0].Arguments[1]
	require.Equal(t, ast.ArgList, arg.Kind)
	require.Len(t, arg.Items, 3)
}

func TestParseSubstitution(t *testing.T) {
	cmds := mustParse(t, "echo `{echo hi}")
	arg := cmds[0].Arguments[1]
	require.Equal(t, ast.ArgSubstitution, arg.Kind)
	require.Len(t, arg.Commands, 1)
}

func TestParseUnterminatedGroupIsSyntaxError(t *testing.T) {
	_, err := Parse([]byte("{ a"), nil)
	require.Error(t, err)
	var syn *SyntaxError
	require.ErrorAs(t, err, &syn)
}

func TestParseUnterminatedFunctionIsSyntaxError(t *testing.T) {
	_, err := Parse([]byte("fn f { a"), nil)
	require.Error(t, err)
}

func TestParseBareFnWithoutNameIsSyntaxError(t *testing.T) {
	_, err := Parse([]byte("fn { a }"), nil)
	require.Error(t, err)
}
