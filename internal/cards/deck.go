package cards

import (
	rand "math/rand/v2"
	"sync"
)

// Deck owns the drawable copies of every card in its packs. It keeps
// two independent pools, one per card kind. The answer pool
// repopulates itself from the packs when it runs dry; the prompt pool
// does not, because running out of prompts ends the game.
//
// A card instance is in at most one pool or one hand at a time. Draws
// remove the instance from the pool, and repopulation takes an exclude
// set of held cards so that an instance is never dealt twice.
type Deck struct {
	packs []*Pack

	mu      sync.Mutex
	rng     *rand.Rand
	prompts []*PromptCard
	answers []*AnswerCard
}

// NewDeck creates a deck sourced from the given packs, with both pools
// filled. The RNG drives draw order; inject a seeded one for
// deterministic tests.
func NewDeck(packs []*Pack, rng *rand.Rand) *Deck {
	d := &Deck{packs: packs, rng: rng}
	for _, p := range packs {
		d.prompts = append(d.prompts, p.prompts...)
		d.answers = append(d.answers, p.answers...)
	}
	return d
}

// Packs returns the packs this deck draws from.
func (d *Deck) Packs() []*Pack {
	out := make([]*Pack, len(d.packs))
	copy(out, d.packs)
	return out
}

// DrawPrompt removes and returns a uniformly random prompt card from
// the pool, or nil if the pool is exhausted. Exhaustion is terminal;
// callers end the game rather than retry.
func (d *Deck) DrawPrompt() *PromptCard {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.prompts) == 0 {
		return nil
	}
	i := d.rng.IntN(len(d.prompts))
	card := d.prompts[i]
	d.prompts[i] = d.prompts[len(d.prompts)-1]
	d.prompts = d.prompts[:len(d.prompts)-1]
	return card
}

// DrawAnswer removes and returns a uniformly random answer card. If
// the pool is empty it is first repopulated from the packs' complete
// answer sets, excluding every card present in exclude. Returns nil
// only when repopulation yields nothing, meaning every answer card is
// currently held.
func (d *Deck) DrawAnswer(exclude [][]*AnswerCard) *AnswerCard {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.answers) == 0 {
		d.repopulateAnswers(exclude)
	}
	if len(d.answers) == 0 {
		return nil
	}
	i := d.rng.IntN(len(d.answers))
	card := d.answers[i]
	d.answers[i] = d.answers[len(d.answers)-1]
	d.answers = d.answers[:len(d.answers)-1]
	return card
}

// repopulateAnswers refills the answer pool from every pack, skipping
// cards held in the exclude set. Caller holds d.mu.
func (d *Deck) repopulateAnswers(exclude [][]*AnswerCard) {
	held := make(map[*AnswerCard]struct{})
	for _, hand := range exclude {
		for _, c := range hand {
			held[c] = struct{}{}
		}
	}
	for _, p := range d.packs {
		for _, c := range p.answers {
			if _, ok := held[c]; ok {
				continue
			}
			d.answers = append(d.answers, c)
		}
	}
}

// PromptCount returns the total number of prompt cards across packs.
func (d *Deck) PromptCount() int {
	n := 0
	for _, p := range d.packs {
		n += p.PromptCount()
	}
	return n
}

// AnswerCount returns the total number of answer cards across packs.
func (d *Deck) AnswerCount() int {
	n := 0
	for _, p := range d.packs {
		n += p.AnswerCount()
	}
	return n
}

// UnusedPromptCount returns the number of prompt cards still drawable.
func (d *Deck) UnusedPromptCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.prompts)
}

// UnusedAnswerCount returns the number of answer cards still drawable.
func (d *Deck) UnusedAnswerCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.answers)
}
