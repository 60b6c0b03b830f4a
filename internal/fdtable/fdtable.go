// Package fdtable wraps the raw dup2/pipe primitives the interpreter uses
// for redirection, pipelines, and command substitution: the
// fd table is the second of the two process-wide singletons spec.md §9
// names (the other is internal/env), and is likewise encapsulated here as
// an explicit handle rather than touched ad hoc.
//
// It is built on golang.org/x/sys/unix rather than bare os.Dup-style
// stdlib helpers (the stdlib exposes no direct dup2 or fd-aliasing
// primitive) — the same low-level package the teacher's runtime carries as
// an indirect dependency of its crypto/sys stack, promoted here to a
// direct one since the interpreter calls it by name.
package fdtable

import (
	"fmt"
	"os"

	"github.com/rockorager/rz/internal/invariant"
	"golang.org/x/sys/unix"
)

// Guard captures stdin/stdout/stderr (fds 0, 1, 2) so they can be restored
// after a command that may have redirected them. A redirected Simple
// command running on the real process fds acquires one of these. The
// top-level interpreter entry does not acquire one, and neither do command
// substitution or pipeline stages: those redirect through per-interpreter
// stream overrides and never dup2 over fds 0, 1, 2.
type Guard struct {
	saved [3]int
}

// Save dup's fds 0, 1, 2 aside and returns a Guard to restore them later.
// The release path (Restore) must run on every exit, including error paths.
func Save() (*Guard, error) {
	var g Guard
	for fd := 0; fd < 3; fd++ {
		saved, err := unix.Dup(fd)
		if err != nil {
			for j := 0; j < fd; j++ {
				_ = unix.Close(g.saved[j])
			}
			return nil, fmt.Errorf("fdtable: save fd %d: %w", fd, err)
		}
		g.saved[fd] = saved
	}
	return &g, nil
}

// Restore dup2's the saved fds back over 0, 1, 2 and closes the saved
// copies. Every Guard passed here must come from a completed Save: this is
// the save/restore balance spec.md §5 requires.
func (g *Guard) Restore() error {
	invariant.Precondition(g != nil, "fdtable: restore called on nil guard")
	var firstErr error
	for fd := 0; fd < 3; fd++ {
		invariant.Invariant(g.saved[fd] >= 0, "fdtable: fd %d has no saved copy to restore", fd)
		if err := unix.Dup2(g.saved[fd], fd); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("fdtable: restore fd %d: %w", fd, err)
		}
		_ = unix.Close(g.saved[fd])
	}
	return firstErr
}

// Dup2 aliases newfd to the same underlying file as oldfd, closing any
// prior newfd. Used both for the [n=m] redirection form and to apply a
// freshly opened redirection file onto a standard fd.
func Dup2(oldfd, newfd int) error {
	if err := unix.Dup2(oldfd, newfd); err != nil {
		return fmt.Errorf("fdtable: dup2 %d->%d: %w", oldfd, newfd, err)
	}
	return nil
}

// Close closes a raw fd, as used by the [n=] redirection form.
func Close(fd int) error {
	if err := unix.Close(fd); err != nil {
		return fmt.Errorf("fdtable: close %d: %w", fd, err)
	}
	return nil
}

// OpenRedirect opens path per spec.md §4.4 step 3's file-redirection modes:
// read-only for input, O_WRONLY|O_CREAT|O_TRUNC for output, and
// O_WRONLY|O_CREAT|O_APPEND for append output.
func OpenRedirect(path string, out, append bool) (*os.File, error) {
	if !out {
		return os.OpenFile(path, os.O_RDONLY, 0)
	}
	flags := os.O_WRONLY | os.O_CREATE
	if append {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	return os.OpenFile(path, flags, 0644)
}

// PipeNonblocking allocates an OS pipe with the read end set non-blocking,
// for command substitution's capture pipe, which the caller drains with
// io.ReadAll.
func PipeNonblocking() (r, w *os.File, err error) {
	var fds [2]int
	if err := unix.Pipe(fds[:]); err != nil {
		return nil, nil, fmt.Errorf("fdtable: pipe: %w", err)
	}
	if err := unix.SetNonblock(fds[0], true); err != nil {
		_ = unix.Close(fds[0])
		_ = unix.Close(fds[1])
		return nil, nil, fmt.Errorf("fdtable: set nonblocking: %w", err)
	}
	return os.NewFile(uintptr(fds[0]), "|0"), os.NewFile(uintptr(fds[1]), "|1"), nil
}

// Pipe allocates a plain blocking OS pipe, for pipeline stages (spec.md
// §4.5 "Pipe A | B").
func Pipe() (r, w *os.File, err error) {
	var fds [2]int
	if err := unix.Pipe(fds[:]); err != nil {
		return nil, nil, fmt.Errorf("fdtable: pipe: %w", err)
	}
	return os.NewFile(uintptr(fds[0]), "|0"), os.NewFile(uintptr(fds[1]), "|1"), nil
}
