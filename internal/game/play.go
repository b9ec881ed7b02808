package game

import (
	"strings"

	"github.com/czarbot/czarbot/internal/cards"
)

// Play is the immutable association of a player with the ordered
// answer cards they submitted for one round.
type Play struct {
	player *Player
	cards  []*cards.AnswerCard
}

// NewPlay creates a play for the given player and cards.
func NewPlay(player *Player, submitted []*cards.AnswerCard) *Play {
	cs := make([]*cards.AnswerCard, len(submitted))
	copy(cs, submitted)
	return &Play{player: player, cards: cs}
}

// Player returns the player that made this play.
func (p *Play) Player() *Player { return p.player }

// Cards returns the submitted cards in order.
func (p *Play) Cards() []*cards.AnswerCard {
	out := make([]*cards.AnswerCard, len(p.cards))
	copy(out, p.cards)
	return out
}

// String returns the play's card texts, comma separated.
func (p *Play) String() string {
	texts := make([]string, len(p.cards))
	for i, c := range p.cards {
		texts[i] = c.Text
	}
	return strings.Join(texts, ", ")
}
