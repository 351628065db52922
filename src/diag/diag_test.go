package diag

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"vslac/src/token"
)

func TestBagAccumulatesInOrder(t *testing.T) {
	var b Bag
	assert.False(t, b.HasErrors())

	tokA := token.Token{Text: "a", Pos: token.Position{Line: 1, Col: 1}}
	tokB := token.Token{Text: "b", Pos: token.Position{Line: 2, Col: 3}}

	b.Error(tokA, "Unbound symbol %q", "a")
	b.Warn(tokB, "Unnecessary unsafe statement")

	assert.True(t, b.HasErrors())
	assert.Len(t, b.Errors(), 1)
	assert.Len(t, b.Warnings(), 1)
	assert.Equal(t, `Unbound symbol "a"`, b.Errors()[0].Message)
	assert.Contains(t, b.Errors()[0].String(), "1:1")
}

func TestBagStringRendersErrorsThenWarnings(t *testing.T) {
	var b Bag
	tok := token.Token{Text: "x", Pos: token.Position{Line: 1, Col: 1}}
	b.Error(tok, "boom")
	b.Warn(tok, "heads up")

	s := b.String()
	assert.Contains(t, s, "error: boom")
	assert.Contains(t, s, "warning: heads up")
}
