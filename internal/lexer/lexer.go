// Package lexer turns rz source bytes into a token stream.
//
// The scanner is a deterministic byte scanner with one-byte lookahead,
// modeled on the ASCII-lookup-table lexer in the teacher's
// runtime/lexer/lexer.go: classification tables are built once in init so
// scanning a word or a variable name is one table lookup per byte.
package lexer

import (
	"log/slog"

	"github.com/rockorager/rz/internal/invariant"
	"github.com/rockorager/rz/internal/token"
)

// isStop marks bytes that terminate a Word run: whitespace, control
// characters, and every byte that starts a punctuation or quoting token.
var isStop [256]bool

// isVarNameByte marks the alphabet of a variable name: [A-Za-z0-9_*].
var isVarNameByte [256]bool

func init() {
	for _, b := range []byte(" \t\r\n#;&|^$`'{}()<>=~!@") {
		isStop[b] = true
	}
	for c := 'a'; c <= 'z'; c++ {
		isVarNameByte[c] = true
	}
	for c := 'A'; c <= 'Z'; c++ {
		isVarNameByte[c] = true
	}
	for c := '0'; c <= '9'; c++ {
		isVarNameByte[c] = true
	}
	isVarNameByte['_'] = true
	isVarNameByte['*'] = true
}

// Lexer is a single-pass byte scanner over one source buffer.
type Lexer struct {
	src    []byte
	pos    int
	logger *slog.Logger
}

// New creates a Lexer over src. A nil logger falls back to slog.Default().
func New(src []byte, logger *slog.Logger) *Lexer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Lexer{src: src, logger: logger}
}

// Lex scans the entire source and returns its tokens, terminated by one
// EOF token. It never fails: malformed input still produces tokens (an
// unterminated quote simply runs to end of input), leaving validation to
// the parser.
func Lex(src []byte, logger *slog.Logger) []token.Token {
	l := New(src, logger)
	return l.All()
}

// All drains the lexer into a token slice. Ranges are checked for
// monotonicity as they're produced: each token's end can't precede its own
// start, and the next token can't start before the last one ended.
func (l *Lexer) All() []token.Token {
	var toks []token.Token
	prevEnd := 0
	for {
		tok := l.Next()
		invariant.Invariant(tok.End >= tok.Start, "token end %d precedes start %d", tok.End, tok.Start)
		invariant.Invariant(tok.Start >= prevEnd, "token start %d precedes previous token end %d", tok.Start, prevEnd)
		prevEnd = tok.End
		toks = append(toks, tok)
		if tok.Tag == token.EOF {
			return toks
		}
	}
}

func (l *Lexer) byteAt(i int) byte {
	if i < 0 || i >= len(l.src) {
		return 0
	}
	return l.src[i]
}

// Next scans and returns the next token, advancing the cursor.
func (l *Lexer) Next() token.Token {
	if l.pos >= len(l.src) {
		return token.Token{Tag: token.EOF, Start: l.pos, End: l.pos}
	}

	start := l.pos
	c := l.src[l.pos]

	switch {
	case c == ' ' || c == '\t' || c == '\r':
		return l.lexWhitespace(start)
	case c == '\n':
		l.pos++
		return token.Token{Tag: token.Newline, Start: start, End: l.pos}
	case c == '#':
		return l.lexComment(start)
	case c == '\'':
		return l.lexQuotedWord(start)
	case c == '$':
		return l.lexVariable(start)
	case c == '^':
		l.pos++
		return token.Token{Tag: token.Caret, Start: start, End: l.pos}
	case c == '&':
		return l.lexTwoByte(start, '&', token.AmpAmp, token.Amp)
	case c == '|':
		return l.lexTwoByte(start, '|', token.PipePipe, token.Pipe)
	case c == ';':
		l.pos++
		return token.Token{Tag: token.Semicolon, Start: start, End: l.pos}
	case c == '`':
		return l.lexBacktick(start)
	case c == '{':
		l.pos++
		return token.Token{Tag: token.LBrace, Start: start, End: l.pos}
	case c == '}':
		l.pos++
		return token.Token{Tag: token.RBrace, Start: start, End: l.pos}
	case c == '(':
		l.pos++
		return token.Token{Tag: token.LParen, Start: start, End: l.pos}
	case c == ')':
		l.pos++
		return token.Token{Tag: token.RParen, Start: start, End: l.pos}
	case c == '<':
		return l.lexLAngle(start)
	case c == '>':
		return l.lexRAngle(start)
	case c == '=':
		l.pos++
		return token.Token{Tag: token.Equal, Start: start, End: l.pos}
	case c == '~':
		l.pos++
		return token.Token{Tag: token.Tilde, Start: start, End: l.pos}
	case c == '!':
		l.pos++
		return token.Token{Tag: token.Bang, Start: start, End: l.pos}
	case c == '@':
		l.pos++
		return token.Token{Tag: token.At, Start: start, End: l.pos}
	default:
		return l.lexWord(start)
	}
}

// lexWhitespace collapses a run of space/tab/CR into one token.
func (l *Lexer) lexWhitespace(start int) token.Token {
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		if c != ' ' && c != '\t' && c != '\r' {
			break
		}
		l.pos++
	}
	return token.Token{Tag: token.Whitespace, Start: start, End: l.pos}
}

// lexComment spans '#' through the byte before the next newline. The
// newline itself is consumed but not included in any token — the one
// documented gap in otherwise-total token coverage of the source.
func (l *Lexer) lexComment(start int) token.Token {
	l.pos++ // '#'
	for l.pos < len(l.src) && l.src[l.pos] != '\n' {
		l.pos++
	}
	end := l.pos
	if l.pos < len(l.src) && l.src[l.pos] == '\n' {
		l.pos++ // swallow the newline without emitting a token for it
	}
	return token.Token{Tag: token.Comment, Start: start, End: end}
}

// lexWord scans a maximal run of bytes outside the stop set.
func (l *Lexer) lexWord(start int) token.Token {
	for l.pos < len(l.src) && !isStop[l.src[l.pos]] {
		l.pos++
	}
	if l.pos == start {
		// A stop byte with no dedicated case (shouldn't happen given the
		// switch above) — emit it as a one-byte word rather than loop.
		l.pos++
	}
	word := l.src[start:l.pos]
	if tag, ok := token.Lookup(string(word)); ok {
		return token.Token{Tag: tag, Start: start, End: l.pos}
	}
	return token.Token{Tag: token.Word, Start: start, End: l.pos}
}

// lexQuotedWord scans '...' with '' as an embedded quote. The token range
// includes both surrounding quote bytes; the interpreter is responsible
// for unquoting per spec.md's resolver rules.
func (l *Lexer) lexQuotedWord(start int) token.Token {
	l.pos++ // opening '
	for l.pos < len(l.src) {
		if l.src[l.pos] == '\'' {
			if l.byteAt(l.pos+1) == '\'' {
				l.pos += 2 // embedded '' — two quote events, not a terminator
				continue
			}
			l.pos++ // closing quote
			break
		}
		l.pos++
	}
	return token.Token{Tag: token.QuotedWord, Start: start, End: l.pos}
}

// lexVariable scans $name, $#name, or $"name. A lone '$' at end of input
// produces a variable token covering just the '$', with an empty name.
func (l *Lexer) lexVariable(start int) token.Token {
	l.pos++ // '$'
	tag := token.Variable
	switch l.byteAt(l.pos) {
	case '#':
		tag = token.VariableCount
		l.pos++
	case '"':
		tag = token.VariableString
		l.pos++
	}
	for l.pos < len(l.src) && isVarNameByte[l.src[l.pos]] {
		l.pos++
	}
	return token.Token{Tag: tag, Start: start, End: l.pos}
}

// lexBacktick recognizes `{ greedily, otherwise a lone backtick.
func (l *Lexer) lexBacktick(start int) token.Token {
	l.pos++ // '`'
	if l.byteAt(l.pos) == '{' {
		l.pos++
		return token.Token{Tag: token.BacktickBrace, Start: start, End: l.pos}
	}
	return token.Token{Tag: token.Backtick, Start: start, End: l.pos}
}

// lexLAngle recognizes <, <<, <{, <>{.
func (l *Lexer) lexLAngle(start int) token.Token {
	l.pos++ // '<'
	switch {
	case l.byteAt(l.pos) == '<':
		l.pos++
		return token.Token{Tag: token.LAngleLAngle, Start: start, End: l.pos}
	case l.byteAt(l.pos) == '{':
		l.pos++
		return token.Token{Tag: token.LAngleBrace, Start: start, End: l.pos}
	case l.byteAt(l.pos) == '>' && l.byteAt(l.pos+1) == '{':
		l.pos += 2
		return token.Token{Tag: token.LAngleRAngleBrace, Start: start, End: l.pos}
	default:
		return token.Token{Tag: token.LAngle, Start: start, End: l.pos}
	}
}

// lexRAngle recognizes >, >>, >{.
func (l *Lexer) lexRAngle(start int) token.Token {
	l.pos++ // '>'
	switch l.byteAt(l.pos) {
	case '>':
		l.pos++
		return token.Token{Tag: token.RAngleRAngle, Start: start, End: l.pos}
	case '{':
		l.pos++
		return token.Token{Tag: token.RAngleBrace, Start: start, End: l.pos}
	default:
		return token.Token{Tag: token.RAngle, Start: start, End: l.pos}
	}
}

// lexTwoByte recognizes either a doubled operator (e.g. &&) or its single
// form (e.g. &), greedily preferring the doubled form.
func (l *Lexer) lexTwoByte(start int, second byte, double, single token.Tag) token.Token {
	l.pos++
	if l.byteAt(l.pos) == second {
		l.pos++
		return token.Token{Tag: double, Start: start, End: l.pos}
	}
	return token.Token{Tag: single, Start: start, End: l.pos}
}
