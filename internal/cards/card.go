package cards

// PromptCard is a prompt with one or more blanks that players answer.
// Cards are immutable after parsing; pool and hand membership is
// tracked by pointer identity, so every dealt card is a distinct
// instance even when two packs contain the same text.
type PromptCard struct {
	Text   string
	Pack   string // name of the source pack, not an owning reference
	Blanks int
}

// Playable reports whether the card can be dealt as the active prompt.
// Cards outside the 1-10 blank range are skipped, never dealt.
func (c *PromptCard) Playable() bool {
	return c.Blanks >= 1 && c.Blanks <= 10
}

// AnswerCard is a card submitted by a player to fill a prompt's blank.
type AnswerCard struct {
	Text string
	Pack string
}
