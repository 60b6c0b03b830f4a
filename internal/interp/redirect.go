package interp

import (
	"os"
	"strconv"
	"strings"

	"github.com/rockorager/rz/internal/ast"
	"github.com/rockorager/rz/internal/fdtable"
)

// parseFdBracket recognizes the "[n]", "[n=m]", and "[n=]" redirection
// target forms spec.md §4.4 describes. ok is false for a plain filename.
func parseFdBracket(s string) (lhs int, rhs int, hasRhs bool, ok bool) {
	if len(s) < 3 || s[0] != '[' || s[len(s)-1] != ']' {
		return 0, 0, false, false
	}
	inner := s[1 : len(s)-1]
	if eq := strings.IndexByte(inner, '='); eq >= 0 {
		l, err := strconv.Atoi(inner[:eq])
		if err != nil {
			return 0, 0, false, false
		}
		rhsStr := inner[eq+1:]
		if rhsStr == "" {
			return l, 0, false, true
		}
		r, err := strconv.Atoi(rhsStr)
		if err != nil {
			return 0, 0, false, false
		}
		return l, r, true, true
	}
	l, err := strconv.Atoi(inner)
	if err != nil {
		return 0, 0, false, false
	}
	return l, 0, false, true
}

// applyRedirections resolves and applies c's redirections in order,
// returning the Interpreter to run the command body against and a cleanup
// to invoke once it's done (always, including on error).
//
// When it is not already running inside a pipeline stage (stdin/stdout both
// nil), redirections of fd 0/1/2 take the literal dup2-on-the-real-process
// path spec.md §5 describes, via internal/fdtable. Inside a pipeline stage,
// a sibling stage's goroutine shares the same process-wide fd table, so
// fd 0/1 redirections instead clone the Interpreter with a stream override
// (see withStreams); this is the one deliberate deviation from a literal
// dup2 reading of spec.md's concurrency model, recorded in DESIGN.md.
func (it *Interpreter) applyRedirections(redirs []ast.Redirection) (*Interpreter, func(), error) {
	if len(redirs) == 0 {
		return it, func() {}, nil
	}

	eff := it
	var cleanups []func()
	cleanupAll := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}
	realFds := it.stdin == nil && it.stdout == nil

	var guard *fdtable.Guard
	if realFds {
		g, err := fdtable.Save()
		if err != nil {
			return nil, func() {}, err
		}
		guard = g
		cleanups = append(cleanups, func() { _ = guard.Restore() })
	}

	for _, r := range redirs {
		vals, err := it.resolveArg(r.File)
		if err != nil {
			cleanupAll()
			return nil, func() {}, err
		}
		if len(vals) != 1 {
			cleanupAll()
			return nil, func() {}, syntaxErr("redirection target must resolve to exactly one word, got %d", len(vals))
		}
		target := vals[0]

		if lhs, rhs, hasRhs, ok := parseFdBracket(target); ok {
			if realFds {
				if hasRhs {
					if err := fdtable.Dup2(rhs, lhs); err != nil {
						cleanupAll()
						return nil, func() {}, err
					}
				} else if err := fdtable.Close(lhs); err != nil {
					cleanupAll()
					return nil, func() {}, err
				}
				continue
			}
			eff = it.applyOverrideAlias(eff, lhs, rhs, hasRhs)
			continue
		}

		f, err := fdtable.OpenRedirect(target, r.Direction == ast.RedirOut, r.Append)
		if err != nil {
			cleanupAll()
			return nil, func() {}, err
		}
		cleanups = append(cleanups, func() { _ = f.Close() })

		fd := int(r.Fd)
		if realFds {
			if err := fdtable.Dup2(int(f.Fd()), fd); err != nil {
				cleanupAll()
				return nil, func() {}, err
			}
			continue
		}
		switch fd {
		case 0:
			eff = eff.withStreams(f, nil)
		case 1:
			eff = eff.withStreams(nil, f)
		default:
			it.Logger.Warn("redirection on fd >= 2 inside a pipeline stage is best-effort", "fd", fd)
		}
	}

	return eff, cleanupAll, nil
}

// applyOverrideAlias implements [n] / [n=m] / [n=] when real process-wide
// dup2 isn't safe to use (inside a pipeline stage). Only fd 0 and 1 are
// meaningfully represented by the stream-override model.
func (it *Interpreter) applyOverrideAlias(eff *Interpreter, lhs, rhs int, hasRhs bool) *Interpreter {
	source := func(fd int) *os.File {
		switch fd {
		case 0:
			return eff.effectiveStdin()
		case 1:
			return eff.effectiveStdout()
		default:
			return nil
		}
	}
	if !hasRhs {
		devNull, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
		if err != nil {
			return eff
		}
		switch lhs {
		case 0:
			return eff.withStreams(devNull, nil)
		case 1:
			return eff.withStreams(nil, devNull)
		}
		return eff
	}
	src := source(rhs)
	if src == nil {
		return eff
	}
	switch lhs {
	case 0:
		return eff.withStreams(src, nil)
	case 1:
		return eff.withStreams(nil, src)
	}
	return eff
}
