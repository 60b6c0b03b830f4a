package interp

import (
	"io"
	"strings"

	"github.com/rockorager/rz/internal/ast"
	"github.com/rockorager/rz/internal/fdtable"
)

// resolveSubstitution runs a `{...} command substitution and splits its
// captured stdout on $ifs (spec.md §4.5). The read end of the capture pipe
// is opened non-blocking (internal/fdtable.PipeNonblocking) so Go's runtime
// poller drives io.ReadAll instead of a manual drain loop — the idiomatic
// Go shape of spec.md's "set the read end non-blocking" instruction.
func (it *Interpreter) resolveSubstitution(a *ast.Argument) ([]string, error) {
	r, w, err := fdtable.PipeNonblocking()
	if err != nil {
		return nil, err
	}

	sub := it.withStreams(nil, w)
	done := make(chan struct{})
	go func() {
		sub.Exec(a.Commands)
		_ = w.Close()
		close(done)
	}()

	captured, readErr := io.ReadAll(r)
	_ = r.Close()
	<-done
	if readErr != nil {
		return nil, readErr
	}

	return splitIFS(string(captured), it), nil
}

// splitIFS splits s on any byte in $ifs (space, tab, newline by default),
// dropping empty fields produced by runs of separators, matching the word
// splitting spec.md §4.5 describes for substitution output.
func splitIFS(s string, it *Interpreter) []string {
	ifs, ok := it.Env.List("ifs")
	if !ok || len(ifs) == 0 {
		ifs = []string{" ", "\t", "\n"}
	}
	cutset := strings.Join(ifs, "")
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return strings.ContainsRune(cutset, r)
	})
	return fields
}
