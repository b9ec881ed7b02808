package cards

// Pack is a named, versioned collection of prompt and answer cards.
// Packs are immutable once parsing completes; the deck borrows card
// references from its packs and never copies or mutates them.
type Pack struct {
	Name        string
	Description string
	Author      string

	prompts []*PromptCard
	answers []*AnswerCard
}

// NewPack creates an empty pack with the given name.
func NewPack(name string) *Pack {
	return &Pack{Name: name}
}

// NewPackWithCards builds a pack from already-constructed cards. Used
// for programmatic packs; file-based packs go through the parser.
func NewPackWithCards(name string, prompts []*PromptCard, answers []*AnswerCard) *Pack {
	p := NewPack(name)
	p.prompts = append(p.prompts, prompts...)
	p.answers = append(p.answers, answers...)
	return p
}

// Prompts returns the pack's prompt cards in file order.
func (p *Pack) Prompts() []*PromptCard {
	out := make([]*PromptCard, len(p.prompts))
	copy(out, p.prompts)
	return out
}

// Answers returns the pack's answer cards in file order.
func (p *Pack) Answers() []*AnswerCard {
	out := make([]*AnswerCard, len(p.answers))
	copy(out, p.answers)
	return out
}

// PromptCount returns the number of prompt cards in the pack.
func (p *Pack) PromptCount() int { return len(p.prompts) }

// AnswerCount returns the number of answer cards in the pack.
func (p *Pack) AnswerCount() int { return len(p.answers) }

func (p *Pack) addPrompt(text string) {
	p.prompts = append(p.prompts, &PromptCard{
		Text:   text,
		Pack:   p.Name,
		Blanks: CountBlanks(text),
	})
}

func (p *Pack) addAnswer(text string) {
	p.answers = append(p.answers, &AnswerCard{Text: text, Pack: p.Name})
}
