package interp

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rockorager/rz/internal/ast"
)

// RuntimeSyntaxError is the resolver/interpreter-side counterpart of
// parser.SyntaxError (spec.md §4.3, §7): malformed argument resolution
// (bad subscript, empty concatenation side, malformed redirection target)
// is a syntax error too, just one only detectable at resolve time.
type RuntimeSyntaxError struct {
	Msg string
}

func (e *RuntimeSyntaxError) Error() string { return "syntax error: " + e.Msg }

func syntaxErr(format string, args ...any) error {
	return &RuntimeSyntaxError{Msg: fmt.Sprintf(format, args...)}
}

// resolveArg implements spec.md §4.3's resolver rules, mapping one
// Argument AST node to an ordered sequence of resolved strings.
func (it *Interpreter) resolveArg(a *ast.Argument) ([]string, error) {
	switch a.Kind {
	case ast.ArgWord:
		return []string{string(a.Literal)}, nil

	case ast.ArgQuotedWord:
		if len(a.Literal) < 2 {
			return nil, nil
		}
		inner := a.Literal[1 : len(a.Literal)-1]
		unquoted := strings.ReplaceAll(string(inner), "''", "'")
		return []string{unquoted}, nil

	case ast.ArgVariable:
		list, ok := it.Env.List(a.Name)
		if !ok {
			return nil, nil
		}
		return list, nil

	case ast.ArgVariableCount:
		list, ok := it.Env.List(a.Name)
		if !ok {
			return []string{"0"}, nil
		}
		return []string{strconv.Itoa(len(list))}, nil

	case ast.ArgVariableString:
		v, ok := it.Env.Get(a.Name)
		if !ok {
			return nil, nil
		}
		return []string{strings.ReplaceAll(v, "\x01", " ")}, nil

	case ast.ArgVariableSubscript:
		return it.resolveSubscript(a)

	case ast.ArgConcatenate:
		return it.resolveConcatenate(a)

	case ast.ArgList:
		var out []string
		for _, item := range a.Items {
			vals, err := it.resolveArg(item)
			if err != nil {
				return nil, err
			}
			out = append(out, vals...)
		}
		return out, nil

	case ast.ArgSubstitution:
		return it.resolveSubstitution(a)

	default:
		return nil, syntaxErr("unknown argument kind %d", a.Kind)
	}
}

// resolveArgs flattens a slice of arguments into one argument vector, as
// spec.md §4.4 step 2 requires of a Simple command's arguments.
func (it *Interpreter) resolveArgs(args []*ast.Argument) ([]string, error) {
	var out []string
	for _, a := range args {
		vals, err := it.resolveArg(a)
		if err != nil {
			return nil, err
		}
		out = append(out, vals...)
	}
	return out, nil
}

func (it *Interpreter) resolveSubscript(a *ast.Argument) ([]string, error) {
	list, _ := it.Env.List(a.Name) // absent => empty list, not an error
	indices, err := it.resolveArg(a.Fields)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, idx := range indices {
		n, err := strconv.Atoi(idx)
		if err != nil {
			return nil, syntaxErr("non-numeric subscript %q on $%s", idx, a.Name)
		}
		if n == 0 {
			continue
		}
		if n < 1 || n > len(list) {
			continue
		}
		out = append(out, list[n-1])
	}
	return out, nil
}

func (it *Interpreter) resolveConcatenate(a *ast.Argument) ([]string, error) {
	lhs, err := it.resolveArg(a.LHS)
	if err != nil {
		return nil, err
	}
	rhs, err := it.resolveArg(a.RHS)
	if err != nil {
		return nil, err
	}
	if len(lhs) == 0 || len(rhs) == 0 {
		return nil, syntaxErr("concatenation of an empty side")
	}
	switch {
	case len(lhs) == len(rhs):
		out := make([]string, len(lhs))
		for i := range lhs {
			out[i] = lhs[i] + rhs[i]
		}
		return out, nil
	case len(lhs) > 1 && len(rhs) == 1:
		out := make([]string, len(lhs))
		for i := range lhs {
			out[i] = lhs[i] + rhs[0]
		}
		return out, nil
	case len(lhs) == 1 && len(rhs) > 1:
		out := make([]string, len(rhs))
		for i := range rhs {
			out[i] = lhs[0] + rhs[i]
		}
		return out, nil
	default:
		// Unequal multi-element sides: spec.md §9 leaves this undefined in
		// the source and recommends treating it consistently as an error.
		return nil, syntaxErr("concatenation of unequal-length lists (%d, %d)", len(lhs), len(rhs))
	}
}
