package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/czarbot/czarbot/internal/cards"
)

func answerCards(texts ...string) []*cards.AnswerCard {
	out := make([]*cards.AnswerCard, len(texts))
	for i, t := range texts {
		out[i] = &cards.AnswerCard{Text: t, Pack: "test"}
	}
	return out
}

func TestHandAddAndRemove(t *testing.T) {
	h := &Hand[*cards.AnswerCard]{}
	cs := answerCards("a", "b", "c")
	h.AddAll(cs)
	require.Equal(t, 3, h.Len())

	c, ok := h.Card(1)
	require.True(t, ok)
	assert.Equal(t, "b", c.Text)

	removed, ok := h.Remove(1)
	require.True(t, ok)
	assert.Equal(t, "b", removed.Text)
	assert.Equal(t, []*cards.AnswerCard{cs[0], cs[2]}, h.Cards())

	_, ok = h.Remove(5)
	assert.False(t, ok)
	_, ok = h.Card(-1)
	assert.False(t, ok)
}

func TestHandRemoveCards(t *testing.T) {
	h := &Hand[*cards.AnswerCard]{}
	cs := answerCards("a", "b", "c", "d")
	h.AddAll(cs)

	h.RemoveCards([]*cards.AnswerCard{cs[0], cs[2]})
	assert.Equal(t, []*cards.AnswerCard{cs[1], cs[3]}, h.Cards())

	// Removing a card that is not held is a no-op.
	h.RemoveCards(answerCards("x"))
	assert.Equal(t, 2, h.Len())
}

func TestHandClearAndRestore(t *testing.T) {
	h := &Hand[*cards.AnswerCard]{}
	cs := answerCards("a", "b")
	h.AddAll(cs)

	h.Clear()
	assert.Equal(t, 0, h.Len())

	h.Restore(cs)
	assert.Equal(t, cs, h.Cards())
}

func TestHandCardsReturnsCopy(t *testing.T) {
	h := &Hand[*cards.AnswerCard]{}
	h.AddAll(answerCards("a", "b"))

	got := h.Cards()
	got[0] = &cards.AnswerCard{Text: "mutated"}
	assert.Equal(t, "a", h.Cards()[0].Text)
}

func TestPlayerIdentityAndScore(t *testing.T) {
	p := NewPlayer("Alice")
	assert.Equal(t, "alice", p.Key())
	assert.Equal(t, 0, p.Score())

	p.Trophies.Add(&cards.PromptCard{Text: "w", Blanks: 1})
	assert.Equal(t, 1, p.Score())
}

func TestPlayString(t *testing.T) {
	p := NewPlayer("bob")
	play := NewPlay(p, answerCards("first", "second"))
	assert.Equal(t, "first, second", play.String())
	assert.Same(t, p, play.Player())
	assert.Len(t, play.Cards(), 2)
}
