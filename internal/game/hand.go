package game

import "sync"

// Hand is an ordered, mutable collection of cards owned by one player.
// It is used both for answer cards in play and for won prompt cards.
// All operations are safe for concurrent use; the command dispatcher
// and the countdown timer may touch a hand from different goroutines.
type Hand[C comparable] struct {
	mu    sync.Mutex
	cards []C
}

// Add appends a card to the hand.
func (h *Hand[C]) Add(card C) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cards = append(h.cards, card)
}

// AddAll appends cards to the hand in order.
func (h *Hand[C]) AddAll(cards []C) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cards = append(h.cards, cards...)
}

// Card returns the card at index i, or the zero value and false if the
// index is out of range.
func (h *Hand[C]) Card(i int) (C, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if i < 0 || i >= len(h.cards) {
		var zero C
		return zero, false
	}
	return h.cards[i], true
}

// Cards returns a copy of the hand's contents in order.
func (h *Hand[C]) Cards() []C {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]C, len(h.cards))
	copy(out, h.cards)
	return out
}

// Len returns the number of cards held.
func (h *Hand[C]) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.cards)
}

// Remove removes and returns the card at index i.
func (h *Hand[C]) Remove(i int) (C, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if i < 0 || i >= len(h.cards) {
		var zero C
		return zero, false
	}
	card := h.cards[i]
	h.cards = append(h.cards[:i], h.cards[i+1:]...)
	return card, true
}

// RemoveCards removes the first occurrence of each given card.
func (h *Hand[C]) RemoveCards(cards []C) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, card := range cards {
		for i, held := range h.cards {
			if held == card {
				h.cards = append(h.cards[:i], h.cards[i+1:]...)
				break
			}
		}
	}
}

// Clear empties the hand.
func (h *Hand[C]) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cards = nil
}

// Restore replaces the hand's contents with the given cards.
func (h *Hand[C]) Restore(cards []C) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cards = make([]C, len(cards))
	copy(h.cards, cards)
}
