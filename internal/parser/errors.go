package parser

import "fmt"

// SyntaxError is the single error type the parser returns for any malformed
// construct, per spec.md §4.2 "Error model". Position is a byte offset into
// the source that produced the token where the error was detected.
type SyntaxError struct {
	Pos int
	Msg string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at byte %d: %s", e.Pos, e.Msg)
}

func syntaxErrorf(pos int, format string, args ...any) *SyntaxError {
	return &SyntaxError{Pos: pos, Msg: fmt.Sprintf(format, args...)}
}
