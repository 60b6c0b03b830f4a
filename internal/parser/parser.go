// Package parser turns a token stream into the command tree defined by
// internal/ast, per spec.md §4.2.
//
// The parser walks a flat token slice with an integer cursor, in the style
// of the teacher's runtime/parser/parser.go. There is no separate arena
// allocator (see the internal/ast.Argument doc): command and argument nodes
// are ordinary heap values whose lifetime is the caller's, which is the Go
// equivalent of spec.md's "one arena whose lifetime encloses the subsequent
// execution of that parse result".
package parser

import (
	"log/slog"
	"strconv"

	"github.com/rockorager/rz/internal/ast"
	"github.com/rockorager/rz/internal/lexer"
	"github.com/rockorager/rz/internal/token"
)

// Parser holds the flat token list and cursor for one parse.
type Parser struct {
	src    []byte
	toks   []token.Token
	pos    int
	logger *slog.Logger
}

// Parse lexes and parses src, returning the top-level command list. On any
// SyntaxError the partial command list is discarded, per spec.md §4.2.
func Parse(src []byte, logger *slog.Logger) ([]ast.Command, error) {
	if logger == nil {
		logger = slog.Default()
	}
	toks := lexer.Lex(src, logger)
	p := &Parser{src: src, toks: toks, logger: logger}
	cmds, err := p.parseCommands(false)
	if err != nil {
		return nil, err
	}
	return cmds, nil
}

func (p *Parser) cur() token.Token {
	if p.pos >= len(p.toks) {
		return token.Token{Tag: token.EOF, Start: len(p.src), End: len(p.src)}
	}
	return p.toks[p.pos]
}

func (p *Parser) tag() token.Tag { return p.cur().Tag }

func (p *Parser) text(t token.Token) string { return t.String(p.src) }

func (p *Parser) advance() token.Token {
	t := p.cur()
	if p.pos < len(p.toks) {
		p.pos++
	}
	return t
}

// skipWS skips Whitespace and Comment tokens, stopping at Newline — used
// while gathering a single statement's pieces (arguments, redirections,
// assignment tuples), where a newline must end the statement rather than
// be silently skipped.
func (p *Parser) skipWS() {
	for p.tag() == token.Whitespace || p.tag() == token.Comment {
		p.advance()
	}
}

// skipTrivia skips Whitespace, Comment, and Newline — used between
// top-level statements, per spec.md §4.2's top-level loop.
func (p *Parser) skipTrivia() {
	for p.tag() == token.Whitespace || p.tag() == token.Comment || p.tag() == token.Newline {
		p.advance()
	}
}

func isArgStartTag(t token.Tag) bool {
	switch t {
	case token.Word, token.QuotedWord, token.Variable, token.VariableCount,
		token.VariableString, token.LParen, token.BacktickBrace:
		return true
	default:
		return false
	}
}

func isStatementTerminator(t token.Tag) bool {
	switch t {
	case token.EOF, token.Newline, token.Semicolon, token.AmpAmp, token.PipePipe,
		token.Pipe, token.RBrace:
		return true
	default:
		return false
	}
}

// parseCommands is the top-level statement loop (spec.md §4.2). When
// stopAtRBrace is true it is being used to parse a group or substitution
// body and consumes the matching RBrace before returning.
func (p *Parser) parseCommands(stopAtRBrace bool) ([]ast.Command, error) {
	var out []ast.Command
	pipeLHS := -1 // index into out of a command awaiting a pipe RHS, or -1

	appendCmd := func(c ast.Command) {
		if pipeLHS >= 0 {
			lhs := out[pipeLHS]
			out = out[:pipeLHS]
			out = append(out, ast.Command{Kind: ast.CmdPipe, LHS: &lhs, RHS: &c})
			pipeLHS = -1
			return
		}
		out = append(out, c)
	}

	for {
		p.skipTrivia()
		switch p.tag() {
		case token.EOF:
			if stopAtRBrace {
				return nil, syntaxErrorf(p.cur().Start, "unexpected end of input, expected '}'")
			}
			return out, nil
		case token.RBrace:
			if stopAtRBrace {
				p.advance()
				return out, nil
			}
			return nil, syntaxErrorf(p.cur().Start, "unexpected '}'")
		case token.LBrace:
			p.advance()
			inner, err := p.parseCommands(true)
			if err != nil {
				return nil, err
			}
			appendCmd(ast.Command{Kind: ast.CmdGroup, Commands: inner})
		case token.KeywordFn:
			fn, err := p.parseFunction()
			if err != nil {
				return nil, err
			}
			appendCmd(fn)
		case token.AmpAmp:
			p.advance()
			appendCmd(ast.Command{Kind: ast.CmdIfZero})
		case token.PipePipe:
			p.advance()
			appendCmd(ast.Command{Kind: ast.CmdIfNonZero})
		case token.Pipe:
			if len(out) == 0 {
				return nil, syntaxErrorf(p.cur().Start, "'|' with no preceding command")
			}
			p.advance()
			pipeLHS = len(out) - 1
		case token.Semicolon:
			p.advance()
		default:
			if !isArgStartTag(p.tag()) {
				return nil, syntaxErrorf(p.cur().Start, "unexpected token %s", p.tag())
			}
			cmds, err := p.parseAssignmentsOrSimple()
			if err != nil {
				return nil, err
			}
			for _, c := range cmds {
				appendCmd(c)
			}
		}
	}
}

// parseAssignmentsOrSimple implements spec.md §4.2's "Assignment prefix"
// plus the Simple command it may lead into. It returns one or more
// commands: either exactly one Simple command (carrying any local
// assignments), or one or more standalone top-level Assignment commands
// when no command followed the assignment prefix.
func (p *Parser) parseAssignmentsOrSimple() ([]ast.Command, error) {
	assigns, err := p.parseAssignments()
	if err != nil {
		return nil, err
	}
	p.skipWS()
	if isArgStartTag(p.tag()) {
		simple, err := p.parseSimple(assigns)
		if err != nil {
			return nil, err
		}
		return []ast.Command{simple}, nil
	}
	if len(assigns) == 0 {
		// parseAssignments found nothing and nothing else starts here either;
		// the caller already checked isArgStartTag before calling us, so this
		// is unreachable in practice, but fail closed rather than loop.
		return nil, syntaxErrorf(p.cur().Start, "expected command or assignment")
	}
	out := make([]ast.Command, 0, len(assigns))
	for _, a := range assigns {
		out = append(out, ast.Command{Kind: ast.CmdAssignment, Name: a.Key, AssignValue: a.Value})
	}
	return out, nil
}

// parseAssignments tries to consume WORD '=' Argument tuples separated by
// whitespace. On any mismatch it rewinds to the start of that tuple attempt
// and returns the assignments collected so far.
func (p *Parser) parseAssignments() ([]ast.Assignment, error) {
	var out []ast.Assignment
	for {
		tupleStart := p.pos
		if p.tag() != token.Word {
			p.pos = tupleStart
			break
		}
		key := p.text(p.cur())
		keyTok := p.pos
		_ = keyTok
		next := p.pos + 1
		if next >= len(p.toks) || p.toks[next].Tag != token.Equal {
			p.pos = tupleStart
			break
		}
		p.pos = next + 1 // consume WORD and '='
		if !isArgStartTag(p.tag()) {
			p.pos = tupleStart
			break
		}
		val, err := p.parseArgument()
		if err != nil {
			return nil, err
		}
		out = append(out, ast.Assignment{Key: key, Value: val})

		if p.tag() != token.Whitespace {
			break
		}
		p.skipWS()
	}
	return out, nil
}

// parseSimple parses a Simple command's arguments and redirections,
// attaching the already-parsed local assigns.
func (p *Parser) parseSimple(assigns []ast.Assignment) (ast.Command, error) {
	var args []*ast.Argument
	var redirs []ast.Redirection
	for {
		p.skipWS()
		tag := p.tag()
		switch {
		case isStatementTerminator(tag):
			return ast.Command{Kind: ast.CmdSimple, Arguments: args, Redirections: redirs, Assignments: assigns}, nil
		case tag == token.LAngle || tag == token.RAngle || tag == token.RAngleRAngle ||
			tag == token.LAngleBrace || tag == token.RAngleBrace || tag == token.LAngleRAngleBrace:
			r, err := p.parseRedirection()
			if err != nil {
				return ast.Command{}, err
			}
			redirs = append(redirs, r)
		case isArgStartTag(tag):
			a, err := p.parseArgument()
			if err != nil {
				return ast.Command{}, err
			}
			args = append(args, a)
		default:
			return ast.Command{}, syntaxErrorf(p.cur().Start, "unexpected token %s in command", tag)
		}
	}
}

// parseRedirection implements spec.md §4.2's redirection grammar, including
// the fd-target form <[n] / >[n] (a single Word token of exactly "[" digits
// "]"). The fd-aliasing form >[n=m] is NOT special-cased here — per
// spec.md, '=' splits the bracket text into separate tokens, so it reaches
// here as an ordinary (concatenated) file argument and is decoded later by
// the interpreter.
func (p *Parser) parseRedirection() (ast.Redirection, error) {
	op := p.advance()
	r := ast.Redirection{}
	switch op.Tag {
	case token.LAngle, token.LAngleBrace, token.LAngleRAngleBrace:
		r.Direction = ast.RedirIn
		r.Fd = 0
	case token.RAngle:
		r.Direction = ast.RedirOut
		r.Fd = 1
	case token.RAngleRAngle:
		r.Direction = ast.RedirOut
		r.Fd = 1
		r.Append = true
	}

	// <{, >{, <>{: the "file" is itself a command-substitution-style block.
	if op.Tag == token.LAngleBrace || op.Tag == token.RAngleBrace || op.Tag == token.LAngleRAngleBrace {
		cmds, err := p.parseCommands(true)
		if err != nil {
			return ast.Redirection{}, err
		}
		r.File = ast.Substitution(cmds)
		return r, nil
	}

	p.skipWS()

	if p.tag() == token.Word {
		if fd, ok := bracketedFd(p.text(p.cur())); ok {
			p.advance()
			r.Fd = fd
			p.skipWS()
		}
	}

	if !isArgStartTag(p.tag()) {
		return ast.Redirection{}, syntaxErrorf(p.cur().Start, "expected file after redirection operator")
	}
	file, err := p.parseArgument()
	if err != nil {
		return ast.Redirection{}, err
	}
	r.File = file
	return r, nil
}

// bracketedFd recognizes a Word token of the exact shape "[" digits "]"
// with nothing else, returning the decimal value.
func bracketedFd(s string) (int32, bool) {
	if len(s) < 3 || s[0] != '[' || s[len(s)-1] != ']' {
		return 0, false
	}
	digits := s[1 : len(s)-1]
	if digits == "" {
		return 0, false
	}
	for _, c := range digits {
		if c < '0' || c > '9' {
			return 0, false
		}
	}
	n, err := strconv.ParseInt(digits, 10, 32)
	if err != nil {
		return 0, false
	}
	return int32(n), true
}

// parseFunction implements "fn WORD { body }" per spec.md §4.2: the body is
// captured as a raw, unparsed source slice found by brace-counting over
// tokens (LBrace, <{, >{, `{ all increment the opener count).
func (p *Parser) parseFunction() (ast.Command, error) {
	p.advance() // 'fn'
	p.skipWS()
	if p.tag() != token.Word {
		return ast.Command{}, syntaxErrorf(p.cur().Start, "expected function name after 'fn'")
	}
	name := p.text(p.cur())
	p.advance()
	p.skipWS()
	if p.tag() != token.LBrace {
		return ast.Command{}, syntaxErrorf(p.cur().Start, "expected '{' to open function body")
	}
	p.advance()
	bodyStart := p.cur().Start
	if p.pos > 0 {
		bodyStart = p.toks[p.pos-1].End
	}

	depth := 1
	for {
		if p.tag() == token.EOF {
			return ast.Command{}, syntaxErrorf(p.cur().Start, "unterminated function body")
		}
		switch p.tag() {
		case token.LBrace, token.LAngleBrace, token.RAngleBrace, token.BacktickBrace:
			depth++
		case token.RBrace:
			depth--
			if depth == 0 {
				bodyEnd := p.cur().Start
				p.advance() // consume the matching '}'
				return ast.Command{
					Kind:       ast.CmdFunction,
					Name:       name,
					BodySource: string(p.src[bodyStart:bodyEnd]),
				}, nil
			}
		}
		p.advance()
	}
}

// parseArgument parses one Argument, folding concatenation per the
// free-caret rule (spec.md §4.2, §8).
func (p *Parser) parseArgument() (*ast.Argument, error) {
	lhs, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}

	// Explicit '^': always eaten greedily, left-folding each rhs primary
	// onto the accumulated lhs.
	for p.tag() == token.Caret {
		p.advance()
		if !isArgStartTag(p.tag()) {
			return nil, syntaxErrorf(p.cur().Start, "expected argument after '^'")
		}
		rhs, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		lhs = ast.Concatenate(lhs, rhs)
	}

	// Implicit free-caret concatenation: only with no intervening whitespace,
	// and only into a continuation token. The rhs is a full recursive
	// parseArgument call, which is what produces the right-leaning shape at
	// variable boundaries documented in spec.md §8.
	if p.isImplicitContinuation(lhs) {
		rhs, err := p.parseArgument()
		if err != nil {
			return nil, err
		}
		lhs = ast.Concatenate(lhs, rhs)
	}

	return lhs, nil
}

// isImplicitContinuation reports whether the current token, with no
// intervening whitespace, continues lhs via the free-caret rule.
func (p *Parser) isImplicitContinuation(lhs *ast.Argument) bool {
	switch p.tag() {
	case token.Word, token.QuotedWord, token.Variable, token.VariableCount,
		token.VariableString, token.Equal:
		return true
	case token.LParen:
		// Variables cannot implicitly concatenate with a following '(' —
		// that position is reserved for variable subscripting, which is
		// consumed inside parsePrimary itself, not here. Words can.
		return lhs.Kind == ast.ArgWord || lhs.Kind == ast.ArgQuotedWord
	default:
		return false
	}
}

// parsePrimary parses one non-concatenated Argument primary.
func (p *Parser) parsePrimary() (*ast.Argument, error) {
	tok := p.cur()
	switch tok.Tag {
	case token.Word:
		p.advance()
		return ast.Word([]byte(p.text(tok))), nil
	case token.QuotedWord:
		p.advance()
		return ast.QuotedWord([]byte(p.text(tok))), nil
	case token.Variable:
		name := p.text(tok)[1:] // strip '$'
		p.advance()
		if p.tag() == token.LParen {
			fields, err := p.parseParenList()
			if err != nil {
				return nil, err
			}
			return ast.VariableSubscript(name, fields), nil
		}
		return ast.Variable(name), nil
	case token.VariableCount:
		name := p.text(tok)[2:] // strip '$#'
		p.advance()
		return ast.VariableCount(name), nil
	case token.VariableString:
		name := p.text(tok)[2:] // strip '$"'
		p.advance()
		return ast.VariableString(name), nil
	case token.LParen:
		return p.parseParenList()
	case token.Equal:
		// Only reachable via parseArgument's implicit-continuation recursion
		// (isImplicitContinuation treats Equal as a continuation token) — the
		// shape that lets a redirection target like "[2=1]" lex as separate
		// Word/Equal/Word tokens and still concatenate into one string.
		p.advance()
		return ast.Word([]byte("=")), nil
	case token.BacktickBrace:
		p.advance()
		cmds, err := p.parseCommands(true)
		if err != nil {
			return nil, err
		}
		return ast.Substitution(cmds), nil
	default:
		return nil, syntaxErrorf(tok.Start, "expected argument, found %s", tok.Tag)
	}
}

// parseParenList parses "( items... )", flattening nested lists into the
// containing list per spec.md §4.2.
func (p *Parser) parseParenList() (*ast.Argument, error) {
	p.advance() // '('
	var items []*ast.Argument
	for {
		p.skipWS()
		// Lists may also span newlines, matching rc's tolerance for
		// multi-line literal lists; comments and blank lines are trivia.
		for p.tag() == token.Newline {
			p.advance()
			p.skipWS()
		}
		if p.tag() == token.RParen {
			p.advance()
			return ast.List(items), nil
		}
		if p.tag() == token.EOF {
			return nil, syntaxErrorf(p.cur().Start, "unterminated list, expected ')'")
		}
		if !isArgStartTag(p.tag()) {
			return nil, syntaxErrorf(p.cur().Start, "unexpected token %s in list", p.tag())
		}
		arg, err := p.parseArgument()
		if err != nil {
			return nil, err
		}
		if arg.Kind == ast.ArgList {
			items = append(items, arg.Items...)
		} else {
			items = append(items, arg)
		}
	}
}
