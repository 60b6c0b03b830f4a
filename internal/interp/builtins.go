package interp

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// tryBuiltin runs name as a builtin if it is one. ok is false for any name
// that isn't a recognized builtin, so the caller can fall through to an
// external process.
func (it *Interpreter) tryBuiltin(name string, args []string) (int, bool) {
	switch name {
	case "cd":
		return it.builtinCd(args), true
	case "clear":
		return it.builtinClear(args), true
	case "exit":
		return it.builtinExit(args), true
	default:
		return 0, false
	}
}

// runBuiltinForced is "builtin name args...": it bypasses function lookup
// entirely, so a user function can shadow a builtin's name and still reach
// the real builtin explicitly.
func (it *Interpreter) runBuiltinForced(name string, args []string) int {
	if code, ok := it.tryBuiltin(name, args); ok {
		return code
	}
	it.suggestCommand(name)
	return 127
}

// builtinCd resolves target logically against $PWD rather than handing it
// straight to the kernel: split $PWD on "/", walk target's own segments
// against that stack (".." pops, "." and empty segments are no-ops), then
// chdir to the rejoined absolute path. This keeps $PWD a logical path that
// never follows a symlinked component the way os.Chdir("..") would.
func (it *Interpreter) builtinCd(args []string) int {
	target := it.Env.Home()
	if len(args) > 0 {
		target = args[0]
	}
	pwd, _ := it.Env.Get("PWD")
	resolved := logicalPath(pwd, target)
	if err := os.Chdir(resolved); err != nil {
		fmt.Fprintln(it.effectiveStdout(), "cd:", err)
		return 1
	}
	it.Env.Set("PWD", resolved)
	return 0
}

// logicalPath joins target against base by string manipulation alone,
// honoring ".." by popping a path component rather than by asking the
// kernel to resolve it.
func logicalPath(base, target string) string {
	var comps []string
	if !strings.HasPrefix(target, "/") {
		comps = pathComponents(base)
	}
	for _, seg := range strings.Split(target, "/") {
		switch seg {
		case "", ".":
		case "..":
			if len(comps) > 0 {
				comps = comps[:len(comps)-1]
			}
		default:
			comps = append(comps, seg)
		}
	}
	return "/" + strings.Join(comps, "/")
}

func pathComponents(p string) []string {
	var out []string
	for _, seg := range strings.Split(p, "/") {
		if seg == "" || seg == "." {
			continue
		}
		out = append(out, seg)
	}
	return out
}

// builtinClear writes the terminal reset, cursor-home, and erase-below
// escape sequences (spec.md §4.4); it never touches the environment.
func (it *Interpreter) builtinClear(args []string) int {
	fmt.Fprint(it.effectiveStdout(), "\x1bc\x1b[H\x1b[J")
	return 0
}

func (it *Interpreter) builtinExit(args []string) int {
	code := 0
	if len(args) > 0 {
		if n, err := parseExitCode(args[0]); err == nil {
			code = n
		}
	}
	os.Exit(code)
	return code
}

// parseExitCode constrains the parsed code to an 8-bit unsigned value
// (spec.md §4.4), matching shell exit-status truncation: -1 becomes 255.
func parseExitCode(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	return n & 0xFF, nil
}

// suggestCommand logs a "did you mean" hint on a 127, scanning $path's
// directories for plausible near-matches. This is cosmetic only: it never
// changes $status or blocks dispatch, and failures to list a directory are
// silently ignored.
func (it *Interpreter) suggestCommand(name string) {
	it.Logger.Warn("command not found", "name", name)
	pathDirs, _ := it.Env.List("path")
	var candidates []string
	for _, dir := range pathDirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			candidates = append(candidates, e.Name())
		}
	}
	matches := fuzzy.RankFindFold(name, candidates)
	if len(matches) == 0 {
		return
	}
	it.Logger.Info("did you mean", "suggestion", matches[0].Target)
}
