package frontend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vslac/src/token"
)

func kinds(tokens []token.Token) []token.Kind {
	out := make([]token.Kind, len(tokens))
	for i, t := range tokens {
		out[i] = t.Kind
	}
	return out
}

func TestLexSimpleDeclaration(t *testing.T) {
	tokens, err := Lex("int x = 1 + 2 * 3;")
	require.NoError(t, err)
	assert.Equal(t, []token.Kind{
		token.INT, token.IDENTIFIER, token.ASSIGN, token.INTEGER,
		token.PLUS, token.INTEGER, token.STAR, token.INTEGER,
		token.SEMICOLON, token.EOF,
	}, kinds(tokens))
}

func TestLexKeywordsAndPunctuation(t *testing.T) {
	tokens, err := Lex("unsafe { int* p = &x; }")
	require.NoError(t, err)
	assert.Equal(t, []token.Kind{
		token.UNSAFE, token.LBRACE, token.INT, token.STAR, token.IDENTIFIER,
		token.ASSIGN, token.AMP, token.IDENTIFIER, token.SEMICOLON, token.RBRACE,
		token.EOF,
	}, kinds(tokens))
}

func TestLexSkipsComments(t *testing.T) {
	tokens, err := Lex("int x; // trailing comment\n/* block\ncomment */ int y;")
	require.NoError(t, err)
	assert.Equal(t, []token.Kind{
		token.INT, token.IDENTIFIER, token.SEMICOLON,
		token.INT, token.IDENTIFIER, token.SEMICOLON, token.EOF,
	}, kinds(tokens))
}

func TestLexTwoCharOperatorsPreferredOverOneChar(t *testing.T) {
	tokens, err := Lex("a == b && c <= d")
	require.NoError(t, err)
	assert.Equal(t, []token.Kind{
		token.IDENTIFIER, token.EQ, token.IDENTIFIER,
		token.AND, token.IDENTIFIER, token.LE, token.IDENTIFIER, token.EOF,
	}, kinds(tokens))
}

func TestLexUnterminatedStringIsError(t *testing.T) {
	_, err := Lex(`"abc`)
	assert.Error(t, err)
}

func TestIsKeyword(t *testing.T) {
	ok, kind := isKeyword("return")
	assert.True(t, ok)
	assert.Equal(t, token.RETURN, kind)

	ok, kind = isKeyword("foobar")
	assert.False(t, ok)
	assert.Equal(t, token.IDENTIFIER, kind)
}
