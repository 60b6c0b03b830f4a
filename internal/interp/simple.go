package interp

import (
	"errors"
	"os"
	"os/exec"

	"github.com/rockorager/rz/internal/ast"
	"github.com/rockorager/rz/internal/parser"
)

// execSimple runs one Simple command: local assignments, argument
// resolution, redirection, then dispatch to a function, a builtin, or an
// external process (spec.md §4.4).
func (it *Interpreter) execSimple(c ast.Command) (code int, handled bool) {
	restore, err := it.applyLocalAssignments(c.Assignments)
	if err != nil {
		it.Logger.Warn("syntax error in local assignment", "err", err)
		it.Env.SetStatus(1)
		return 1, true
	}
	defer restore()

	words, err := it.resolveArgs(c.Arguments)
	if err != nil {
		it.Logger.Warn("syntax error resolving arguments", "err", err)
		it.Env.SetStatus(1)
		return 1, true
	}
	if len(words) == 0 {
		return 0, false
	}

	eff, cleanup, err := it.applyRedirections(c.Redirections)
	if err != nil {
		it.Logger.Warn("redirection failed", "err", err)
		it.Env.SetStatus(1)
		return 1, true
	}
	defer cleanup()

	if words[0] == "prompt" {
		saved := it.Env.Status()
		eff.dispatch(words)
		it.Env.SetStatus(saved)
		return saved, true
	}

	if words[0] == "builtin" {
		if len(words) < 2 {
			return 0, false
		}
		return eff.runBuiltinForced(words[1], words[2:]), false
	}

	return eff.dispatch(words), false
}

// applyLocalAssignments stores a Simple command's key=value prefix for the
// duration of the command, returning a restore func that re-establishes
// whatever each key held before (or removes it, if it was absent).
func (it *Interpreter) applyLocalAssignments(assigns []ast.Assignment) (func(), error) {
	if len(assigns) == 0 {
		return func() {}, nil
	}
	type saved struct {
		key  string
		list []string
		had  bool
	}
	var stack []saved
	for _, a := range assigns {
		vals, err := it.resolveArg(a.Value)
		if err != nil {
			for i := len(stack) - 1; i >= 0; i-- {
				s := stack[i]
				if s.had {
					it.Env.SetList(s.key, s.list)
				} else {
					it.Env.Unset(s.key)
				}
			}
			return func() {}, err
		}
		prev, had := it.Env.List(a.Key)
		stack = append(stack, saved{key: a.Key, list: prev, had: had})
		it.Env.SetList(a.Key, vals)
	}
	return func() {
		for i := len(stack) - 1; i >= 0; i-- {
			s := stack[i]
			if s.had {
				it.Env.SetList(s.key, s.list)
			} else {
				it.Env.Unset(s.key)
			}
		}
	}, nil
}

// dispatch resolves words[0] against function storage, then builtins, then
// an executable on the process's PATH (exec.LookPath), in that order
// (spec.md §4.4 step 4). rz's own $path variable is not consulted for this
// lookup.
func (it *Interpreter) dispatch(words []string) int {
	name := words[0]

	if body, ok := it.Env.FuncBody(name); ok {
		return it.runFunction(name, body, words[1:])
	}

	if code, ok := it.tryBuiltin(name, words[1:]); ok {
		return code
	}

	return it.runExternal(words)
}

func (it *Interpreter) runFunction(name, body string, argv []string) int {
	prevStar, hadStar := it.Env.List("*")
	it.Env.SetList("*", argv)
	defer func() {
		if hadStar {
			it.Env.SetList("*", prevStar)
		} else {
			it.Env.Unset("*")
		}
	}()

	cmds, err := parser.Parse([]byte(body), it.Logger)
	if err != nil {
		it.Logger.Warn("syntax error in function body", "name", name, "err", err)
		return 1
	}
	return it.Exec(cmds)
}

func (it *Interpreter) runExternal(words []string) int {
	path, err := exec.LookPath(words[0])
	if err != nil {
		it.suggestCommand(words[0])
		return 127
	}
	cmd := exec.Command(path, words[1:]...)
	cmd.Args[0] = words[0]
	cmd.Env = it.Env.Snapshot()
	cmd.Stdin = it.effectiveStdin()
	cmd.Stdout = it.effectiveStdout()
	cmd.Stderr = os.Stderr
	if dir, ok := it.Env.Get("PWD"); ok {
		cmd.Dir = dir
	}

	err = cmd.Run()
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	it.Logger.Warn("exec failed", "command", words[0], "err", err)
	return 1
}
