package game

import (
	"errors"
	"fmt"
	"sync"

	"github.com/czarbot/czarbot/internal/cards"
)

// RoundStage is the state of one prompt-card cycle.
type RoundStage int

const (
	// StageIdle is the stage of a freshly constructed round, before the
	// game opens it for submissions.
	StageIdle RoundStage = iota
	// StageWaitingForPlayers accepts one play per non-czar player.
	StageWaitingForPlayers
	// StageWaitingForCzar waits for the czar to pick the winning play.
	StageWaitingForCzar
	// StageResolved is terminal; the winner has been awarded.
	StageResolved
)

func (s RoundStage) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StageWaitingForPlayers:
		return "waiting for players"
	case StageWaitingForCzar:
		return "waiting for czar"
	case StageResolved:
		return "resolved"
	}
	return fmt.Sprintf("RoundStage(%d)", int(s))
}

var (
	// ErrNotAcceptingPlays is returned when a play is submitted outside
	// the waiting-for-players stage.
	ErrNotAcceptingPlays = errors.New("round is not accepting plays")
	// ErrCzarCannotPlay is returned when the czar submits a play.
	ErrCzarCannotPlay = errors.New("the czar cannot submit a play")
	// ErrAlreadyPlayed is returned on a second play by the same player.
	ErrAlreadyPlayed = errors.New("you have already played this round")
	// ErrNotJudging is returned when a winner is picked outside the
	// waiting-for-czar stage.
	ErrNotJudging = errors.New("round is not waiting on the czar")
	// ErrInvalidWinner is returned for an out-of-range winning number.
	ErrInvalidWinner = errors.New("not a valid play number")
)

// Round is one prompt-card cycle: it collects a play from every
// non-czar player, then the czar picks a winner, which is awarded the
// prompt card as a trophy.
//
// Plays are presented to the czar numbered from 1 in submission order;
// the same numbering resolves ChooseWinningPlay.
type Round struct {
	game   *Game
	number int
	prompt *cards.PromptCard
	czar   *Player

	mu     sync.Mutex
	stage  RoundStage
	plays  []*Play
	winner *Play
}

func newRound(g *Game, number int, prompt *cards.PromptCard, czar *Player) *Round {
	return &Round{
		game:   g,
		number: number,
		prompt: prompt,
		czar:   czar,
		stage:  StageIdle,
	}
}

// Number returns the 1-based round number.
func (r *Round) Number() int { return r.number }

// Prompt returns the round's prompt card.
func (r *Round) Prompt() *cards.PromptCard { return r.prompt }

// Czar returns the round's judge.
func (r *Round) Czar() *Player { return r.czar }

// Stage returns the round's current stage.
func (r *Round) Stage() RoundStage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stage
}

// Winner returns the winning play once the round is resolved.
func (r *Round) Winner() *Play {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.winner
}

// Plays returns the submitted plays in submission order.
func (r *Round) Plays() []*Play {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Play, len(r.plays))
	copy(out, r.plays)
	return out
}

// AdvanceStage moves the round to its next stage and runs that stage's
// side effects.
func (r *Round) AdvanceStage() {
	r.mu.Lock()
	switch r.stage {
	case StageIdle:
		r.stage = StageWaitingForPlayers
	case StageWaitingForPlayers:
		r.stage = StageWaitingForCzar
	case StageWaitingForCzar:
		r.stage = StageResolved
	default:
		r.mu.Unlock()
		return
	}
	next := r.stage
	r.mu.Unlock()
	r.processStage(next)
}

// processStage runs the side effects of entering a stage.
func (r *Round) processStage(stage RoundStage) {
	switch stage {
	case StageWaitingForPlayers:
		r.game.broadcastf("Use %spick <number ...> to play your cards.", r.game.commandPrefix())
	case StageWaitingForCzar:
		r.game.broadcast("Everyone has played! Here are the choices:")
		for i, play := range r.Plays() {
			r.game.broadcastf("%d. %s", i+1, play)
		}
		r.game.broadcastf("%s: pick the winning play with %spick <number>.", r.czar.Name, r.game.commandPrefix())
	case StageResolved:
		r.game.AdvanceStage()
	}
}

// HasPlayed reports whether the player already submitted this round.
func (r *Round) HasPlayed(p *Player) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.playedLocked(p)
}

func (r *Round) playedLocked(p *Player) bool {
	for _, play := range r.plays {
		if play.Player().Key() == p.Key() {
			return true
		}
	}
	return false
}

// HasAllPlaysMade reports whether every active non-czar player has
// submitted exactly one play.
func (r *Round) HasAllPlaysMade() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.allPlaysMadeLocked()
}

func (r *Round) allPlaysMadeLocked() bool {
	for _, p := range r.game.Players() {
		if p.Key() == r.czar.Key() {
			continue
		}
		if !r.playedLocked(p) {
			return false
		}
	}
	return true
}

// AddPlay records a play, removing the played cards from the owner's
// hand. Once every non-czar active player has played, the round
// advances to the judging stage.
func (r *Round) AddPlay(play *Play) error {
	r.mu.Lock()
	if r.stage != StageWaitingForPlayers {
		r.mu.Unlock()
		return ErrNotAcceptingPlays
	}
	if play.Player().Key() == r.czar.Key() {
		r.mu.Unlock()
		return ErrCzarCannotPlay
	}
	if r.playedLocked(play.Player()) {
		r.mu.Unlock()
		return ErrAlreadyPlayed
	}
	r.plays = append(r.plays, play)
	play.Player().Hand.RemoveCards(play.Cards())
	done := r.allPlaysMadeLocked()
	r.mu.Unlock()

	if done {
		r.AdvanceStage()
	}
	return nil
}

// ChooseWinningPlay resolves the round with the play at the given
// 1-based number, awarding the prompt card to the winner and starting
// the next round. The caller validates that the chooser is the czar.
func (r *Round) ChooseWinningPlay(number int) error {
	r.mu.Lock()
	if r.stage != StageWaitingForCzar {
		r.mu.Unlock()
		return ErrNotJudging
	}
	if number < 1 || number > len(r.plays) {
		r.mu.Unlock()
		return fmt.Errorf("%d is %w", number, ErrInvalidWinner)
	}
	r.winner = r.plays[number-1]
	winner := r.winner
	r.mu.Unlock()

	winner.Player().Trophies.Add(r.prompt)
	r.game.broadcastf("%s wins the round with: %s", winner.Player().Name, winner)
	r.AdvanceStage()
	return nil
}

// ReturnCards hands every submitted play's cards back to their owners
// and clears the submissions. Used when the round is aborted early.
func (r *Round) ReturnCards() {
	r.mu.Lock()
	plays := r.plays
	r.plays = nil
	r.mu.Unlock()

	for _, play := range plays {
		play.Player().Hand.AddAll(play.Cards())
	}
}
