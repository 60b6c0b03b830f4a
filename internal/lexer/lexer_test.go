package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rockorager/rz/internal/token"
)

func tags(toks []token.Token) []token.Tag {
	out := make([]token.Tag, len(toks))
	for i, t := range toks {
		out[i] = t.Tag
	}
	return out
}

func TestLexKeywordExactMatch(t *testing.T) {
	toks := Lex([]byte("fn foo"), nil)
	assert.Equal(t, []token.Tag{token.KeywordFn, token.Whitespace, token.Word, token.EOF}, tags(toks))
}

func TestLexKeywordPrefixIsNotReclassified(t *testing.T) {
	toks := Lex([]byte("fnord"), nil)
	assert.Equal(t, []token.Tag{token.Word, token.EOF}, tags(toks))
	assert.Equal(t, "fnord", toks[0].String([]byte("fnord")))
}

func TestLexQuotedWordEmbeddedQuote(t *testing.T) {
	src := []byte(`'it''s'`)
	toks := Lex(src, nil)
	assert.Equal(t, []token.Tag{token.QuotedWord, token.EOF}, tags(toks))
	assert.Equal(t, `'it''s'`, toks[0].String(src))
}

func TestLexVariableForms(t *testing.T) {
	src := []byte(`$foo $#foo $"foo`)
	toks := Lex(src, nil)
	assert.Equal(t, []token.Tag{
		token.Variable, token.Whitespace,
		token.VariableCount, token.Whitespace,
		token.VariableString, token.EOF,
	}, tags(toks))
}

func TestLexLoneDollarAtEOF(t *testing.T) {
	toks := Lex([]byte("$"), nil)
	assert.Equal(t, []token.Tag{token.Variable, token.EOF}, tags(toks))
	assert.Equal(t, 1, toks[0].End-toks[0].Start) // just the '$', zero-length name
}

func TestLexTwoByteOperators(t *testing.T) {
	src := []byte("& && | ||")
	toks := Lex(src, nil)
	assert.Equal(t, []token.Tag{
		token.Amp, token.Whitespace,
		token.AmpAmp, token.Whitespace,
		token.Pipe, token.Whitespace,
		token.PipePipe, token.EOF,
	}, tags(toks))
}

func TestLexAngleForms(t *testing.T) {
	src := []byte("< << <{ <>{ > >> >{")
	toks := Lex(src, nil)
	got := tags(toks)
	want := []token.Tag{
		token.LAngle, token.Whitespace,
		token.LAngleLAngle, token.Whitespace,
		token.LAngleBrace, token.Whitespace,
		token.LAngleRAngleBrace, token.Whitespace,
		token.RAngle, token.Whitespace,
		token.RAngleRAngle, token.Whitespace,
		token.RAngleBrace, token.EOF,
	}
	assert.Equal(t, want, got)
}

func TestLexCommentSwallowsNewline(t *testing.T) {
	src := []byte("# hi\nfoo")
	toks := Lex(src, nil)
	assert.Equal(t, []token.Tag{token.Comment, token.Word, token.EOF}, tags(toks))
}

// TestLexTotalCoverage checks the lexer's near-total coverage property
// (spec.md §8): concatenating every token's byte range reconstructs the
// source, except for the one documented gap (a comment's trailing
// newline is swallowed, not tokenized).
func TestLexTotalCoverage(t *testing.T) {
	src := []byte("echo $foo '' # trailing comment\nfn x { y }\n")
	toks := Lex(src, nil)
	var rebuilt []byte
	for _, tok := range toks {
		if tok.Tag == token.EOF {
			continue
		}
		rebuilt = append(rebuilt, tok.Bytes(src)...)
		if tok.Tag == token.Comment {
			rebuilt = append(rebuilt, '\n')
		}
	}
	assert.Equal(t, string(src), string(rebuilt))
}
