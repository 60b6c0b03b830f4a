// Package interp is the tree-walking interpreter over internal/ast command
// trees (spec.md §4.3-§4.5): it resolves arguments, applies redirections,
// and dispatches Simple commands to functions, builtins, or external
// processes, mirroring the teacher's runtime/executor package split between
// a pipeline runner and a persistent command dispatcher.
package interp

import (
	"log/slog"
	"os"

	"github.com/rockorager/rz/internal/ast"
	"github.com/rockorager/rz/internal/env"
	"github.com/rockorager/rz/internal/parser"
)

// Interpreter walks a parsed command tree against one Env. A pipeline stage
// runs against a shallow clone carrying its own stdin/stdout override (see
// withStreams) — Env itself is shared and already mutex-protected, so clones
// are cheap and race-free.
type Interpreter struct {
	Env    *env.Env
	Logger *slog.Logger

	// stdin/stdout override the process's real fd 0/1 for this
	// interpreter context. nil means "use the real process fd," which is
	// the case everywhere except inside a concurrently-running pipeline
	// stage (see pipeline.go) — real dup2 there would race against
	// sibling stages sharing the same process-wide fd table.
	stdin  *os.File
	stdout *os.File
}

// New returns an Interpreter over e, using the real process fds.
func New(e *env.Env, logger *slog.Logger) *Interpreter {
	return &Interpreter{Env: e, Logger: logger}
}

// Run parses src and executes it against e, returning the resulting
// top-level $status per spec.md §6's exit code mapping.
func Run(src []byte, e *env.Env, logger *slog.Logger) int {
	cmds, err := parser.Parse(src, logger)
	if err != nil {
		logger.Warn("syntax error", "err", err)
		return 255
	}
	return New(e, logger).Exec(cmds)
}

func (it *Interpreter) withStreams(stdin, stdout *os.File) *Interpreter {
	clone := *it
	if stdin != nil {
		clone.stdin = stdin
	}
	if stdout != nil {
		clone.stdout = stdout
	}
	return &clone
}

func (it *Interpreter) effectiveStdin() *os.File {
	if it.stdin != nil {
		return it.stdin
	}
	return os.Stdin
}

func (it *Interpreter) effectiveStdout() *os.File {
	if it.stdout != nil {
		return it.stdout
	}
	return os.Stdout
}

// sentinel tracks a pending &&/|| gate between two adjacent commands.
type sentinel int

const (
	sentinelNone sentinel = iota
	sentinelIfZero
	sentinelIfNonZero
)

// Exec runs a sequence of commands in order, implementing the &&/||
// short-circuit sentinels spec.md §4.4 describes: CmdIfZero/CmdIfNonZero
// nodes gate only the single command immediately following them. It
// returns the status of the last command actually executed.
func (it *Interpreter) Exec(cmds []ast.Command) int {
	pending := sentinelNone
	status := it.Env.Status()
	for _, c := range cmds {
		switch c.Kind {
		case ast.CmdIfZero:
			pending = sentinelIfZero
			continue
		case ast.CmdIfNonZero:
			pending = sentinelIfNonZero
			continue
		}

		gate := pending
		pending = sentinelNone
		if gate == sentinelIfZero && it.Env.Status() != 0 {
			continue
		}
		if gate == sentinelIfNonZero && it.Env.Status() == 0 {
			continue
		}

		code, handled := it.execCommand(c)
		status = code
		if !handled {
			it.Env.SetStatus(code)
		}
	}
	return status
}

// execCommand dispatches one Command. handled reports whether the command
// has already resolved $status itself (assignments never touch $status;
// errors always set it directly so the caller doesn't clobber a more
// specific code).
func (it *Interpreter) execCommand(c ast.Command) (code int, handled bool) {
	switch c.Kind {
	case ast.CmdAssignment:
		vals, err := it.resolveArg(c.AssignValue)
		if err != nil {
			it.Logger.Warn("syntax error in assignment", "name", c.Name, "err", err)
			it.Env.SetStatus(1)
			return 1, true
		}
		it.Env.SetList(c.Name, vals)
		return 0, true

	case ast.CmdFunction:
		it.Env.SetFuncBody(c.Name, c.BodySource)
		return 0, false

	case ast.CmdGroup:
		return it.Exec(c.Commands), false

	case ast.CmdPipe:
		return it.execPipe(c), false

	case ast.CmdSimple:
		return it.execSimple(c)

	default:
		it.Logger.Warn("unexpected command kind at exec time", "kind", c.Kind)
		return 1, false
	}
}
