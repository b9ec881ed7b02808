package game

import (
	"strings"

	"github.com/czarbot/czarbot/internal/cards"
)

// Player is a participant in one game. Identity is the normalized
// (lowercased) chat handle; the display name keeps the original
// casing. A player owns two hands: answer cards in play and prompt
// cards won, which double as the score.
type Player struct {
	Name     string
	Hand     *Hand[*cards.AnswerCard]
	Trophies *Hand[*cards.PromptCard]
}

// NewPlayer creates a player with empty hands.
func NewPlayer(name string) *Player {
	return &Player{
		Name:     name,
		Hand:     &Hand[*cards.AnswerCard]{},
		Trophies: &Hand[*cards.PromptCard]{},
	}
}

// Key returns the player's normalized identity.
func (p *Player) Key() string {
	return NormalizeHandle(p.Name)
}

// Score returns the number of rounds the player has won.
func (p *Player) Score() int {
	return p.Trophies.Len()
}

// NormalizeHandle lowercases a chat handle for identity comparison.
func NormalizeHandle(handle string) string {
	return strings.ToLower(handle)
}
