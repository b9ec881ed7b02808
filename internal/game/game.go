package game

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/czarbot/czarbot/internal/cards"
)

// Status is the state of one game session.
type Status int

const (
	// StatusIdle is the state before Start is called.
	StatusIdle Status = iota
	// StatusJoining runs the join countdown; players sign up.
	StatusJoining
	// StatusPlaying covers every round until the session stops.
	StatusPlaying
	// StatusEnded is terminal.
	StatusEnded
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusJoining:
		return "joining"
	case StatusPlaying:
		return "playing"
	case StatusEnded:
		return "ended"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// answerSupplyFactor is the per-player card estimate used by the
// join-time supply check. It is deliberately lower than the hand size
// of 10 so that short packs fail fast at join time instead of mid-game.
const answerSupplyFactor = 7

// Config holds per-game tunables.
type Config struct {
	// HandSize is the answer-card count hands are topped up to at
	// round boundaries.
	HandSize int
	// MinPlayers is the roster size required to start and continue.
	MinPlayers int
	// CountdownInterval is the delay between join-countdown ticks.
	CountdownInterval time.Duration
	// CountdownTicks is the number of countdown ticks before play
	// starts.
	CountdownTicks int
	// CommandPrefix is echoed in instructional messages.
	CommandPrefix string
}

// DefaultConfig returns the standard game settings.
func DefaultConfig() Config {
	return Config{
		HandSize:          10,
		MinPlayers:        3,
		CountdownInterval: 15 * time.Second,
		CountdownTicks:    3,
		CommandPrefix:     "!",
	}
}

// Game is one session's state machine. It owns the ordered active
// roster (order determines czar rotation), the all-time roster used to
// restore rejoining players, the deck, the current round, and the host
// bookkeeping.
//
// Each shared collection has its own lock; multi-step sequences such
// as "check roster size, then mutate the round" are not atomic as a
// whole. A removal racing a round advancement is an accepted race, not
// a corruption hazard.
type Game struct {
	logger    *log.Logger
	transport Transport
	registry  Registry
	clock     quartz.Clock
	channel   string
	cfg       Config
	deck      *cards.Deck

	playersMu sync.Mutex
	players   []*Player

	allMu      sync.Mutex
	allPlayers []*Player

	stateMu   sync.Mutex
	status    Status
	current   *Round
	host      *Player
	countdown *countdown
}

// NewGame creates an idle game for the given channel.
func NewGame(channel string, deck *cards.Deck, transport Transport, registry Registry, clock quartz.Clock, logger *log.Logger, cfg Config) *Game {
	return &Game{
		logger:    logger.WithPrefix("game").With("channel", channel),
		transport: transport,
		registry:  registry,
		clock:     clock,
		channel:   channel,
		cfg:       cfg,
		deck:      deck,
	}
}

// Channel returns the chat channel this game runs in.
func (g *Game) Channel() string { return g.channel }

// Deck returns the game's deck.
func (g *Game) Deck() *cards.Deck { return g.deck }

// Status returns the game's current status.
func (g *Game) Status() Status {
	g.stateMu.Lock()
	defer g.stateMu.Unlock()
	return g.status
}

// CurrentRound returns the round in progress, or nil before the first
// round starts.
func (g *Game) CurrentRound() *Round {
	g.stateMu.Lock()
	defer g.stateMu.Unlock()
	return g.current
}

// Host returns the game's host, or nil if none has been set.
func (g *Game) Host() *Player {
	g.stateMu.Lock()
	defer g.stateMu.Unlock()
	return g.host
}

// Players returns a copy of the active roster in czar-rotation order.
func (g *Game) Players() []*Player {
	g.playersMu.Lock()
	defer g.playersMu.Unlock()
	out := make([]*Player, len(g.players))
	copy(out, g.players)
	return out
}

// AllPlayers returns a copy of everyone who has ever played.
func (g *Game) AllPlayers() []*Player {
	g.allMu.Lock()
	defer g.allMu.Unlock()
	out := make([]*Player, len(g.allPlayers))
	copy(out, g.allPlayers)
	return out
}

// PlayerNamed returns the active player with the given handle, or nil.
func (g *Game) PlayerNamed(handle string) *Player {
	key := NormalizeHandle(handle)
	g.playersMu.Lock()
	defer g.playersMu.Unlock()
	for _, p := range g.players {
		if p.Key() == key {
			return p
		}
	}
	return nil
}

// HasPlayer reports whether the handle is in the active roster.
func (g *Game) HasPlayer(handle string) bool {
	return g.PlayerNamed(handle) != nil
}

// Start moves an idle game into the joining stage. Any other state is
// a no-op.
func (g *Game) Start() {
	if g.Status() != StatusIdle {
		return
	}
	g.AdvanceStage()
}

// AdvanceStage moves the game forward: Idle to Joining, Joining to
// Playing. Repeated rounds stay within Playing; there is no path back.
func (g *Game) AdvanceStage() {
	g.stateMu.Lock()
	switch g.status {
	case StatusIdle:
		g.status = StatusJoining
	case StatusJoining:
		g.status = StatusPlaying
		if g.countdown != nil {
			g.countdown.cancel()
		}
	case StatusEnded:
		g.stateMu.Unlock()
		return
	}
	status := g.status
	g.stateMu.Unlock()
	g.processStatus(status)
}

// processStatus runs the side effects of entering a status.
func (g *Game) processStatus(status Status) {
	switch status {
	case StatusJoining:
		g.broadcast("A new game is starting!")
		names := make([]string, 0, len(g.deck.Packs()))
		for _, p := range g.deck.Packs() {
			names = append(names, p.Name)
		}
		g.broadcastf("Card packs for this game: %s", strings.Join(names, ", "))
		g.ShowCardCounts()
		g.broadcastf("Use %sjoin to join.", g.commandPrefix())
		g.startCountdown()

	case StatusPlaying:
		if !g.hasEnoughPlayers() {
			return
		}
		prev := g.CurrentRound()
		if prev != nil {
			g.ShowScores()
			g.ShowCardCounts()
		}
		players := g.Players()
		idx := 0
		if prev != nil {
			for i, p := range players {
				if p.Key() == prev.Czar().Key() {
					idx = i + 1
					break
				}
			}
			if idx >= len(players) {
				idx = 0
			}
		}
		var prompt *cards.PromptCard
		for {
			prompt = g.deck.DrawPrompt()
			if prompt == nil {
				g.broadcast("There are no more prompt cards!")
				g.Stop()
				return
			}
			if prompt.Playable() {
				break
			}
			g.broadcastf("Prompt %q was skipped because it is unplayable.", prompt.Text)
		}
		number := 1
		if prev != nil {
			number = prev.Number() + 1
		}
		round := newRound(g, number, prompt, players[idx])
		g.stateMu.Lock()
		g.current = round
		g.stateMu.Unlock()
		g.dealAll()
		g.broadcastf("Round %d!", number)
		g.broadcastf("%s is the card czar.", round.Czar().Name)
		g.broadcast(prompt.Text)
		g.showHands()
		round.AdvanceStage()
	}
}

// AddPlayer admits a handle to the game and deals it a hand. Admitting
// an active player is a no-op. A handle that previously left a
// still-running game gets its old hands and trophies back and rejoins
// the rotation directly.
func (g *Game) AddPlayer(handle string) *Player {
	if p := g.PlayerNamed(handle); p != nil {
		return p
	}
	p := g.restoreFormerPlayer(handle)
	rejoined := p != nil
	if p == nil {
		p = NewPlayer(handle)
		g.playersMu.Lock()
		g.players = append(g.players, p)
		g.playersMu.Unlock()
		g.allMu.Lock()
		g.allPlayers = append(g.allPlayers, p)
		g.allMu.Unlock()
	}

	// Early warning, checked on every join: the factor is a low
	// estimate of per-player consumption, not the real hand size.
	if len(g.Players())*answerSupplyFactor >= g.deck.AnswerCount() {
		g.broadcast("Not enough answer cards to play!")
		g.Stop()
		return nil
	}

	g.deal(p)
	if g.Status() != StatusJoining {
		g.ShowHand(p)
	}
	if rejoined {
		g.broadcastf("%s has rejoined the game!", p.Name)
	} else {
		g.broadcastf("%s has joined the game!", p.Name)
	}
	return p
}

// restoreFormerPlayer re-admits a handle found in the all-time roster,
// hands and trophies intact. Returns nil for first-time joiners.
func (g *Game) restoreFormerPlayer(handle string) *Player {
	key := NormalizeHandle(handle)
	g.allMu.Lock()
	var former *Player
	for _, p := range g.allPlayers {
		if p.Key() == key {
			former = p
			break
		}
	}
	g.allMu.Unlock()
	if former == nil {
		return nil
	}
	g.playersMu.Lock()
	g.players = append(g.players, former)
	g.playersMu.Unlock()
	g.logger.Info("Restored returning player", "player", former.Name, "cards", former.Hand.Len(), "trophies", former.Score())
	return former
}

// RemovePlayer drops a handle from the active roster. The all-time
// roster keeps the player for rejoin restoration. Departure of the
// host or the czar triggers the corresponding recovery.
func (g *Game) RemovePlayer(handle string) {
	key := NormalizeHandle(handle)
	g.playersMu.Lock()
	idx := -1
	var p *Player
	for i, q := range g.players {
		if q.Key() == key {
			p, idx = q, i
			break
		}
	}
	if p == nil {
		g.playersMu.Unlock()
		return
	}
	g.players = append(g.players[:idx], g.players[idx+1:]...)
	g.playersMu.Unlock()

	g.broadcastf("%s has left the game.", p.Name)
	if h := g.Host(); h != nil && h.Key() == key {
		g.nextHost()
	}
	if r := g.CurrentRound(); r != nil && g.Status() == StatusPlaying {
		if r.Czar().Key() == key {
			g.broadcast("The czar has left! Returning your cards and starting a new round.")
			r.ReturnCards()
			g.AdvanceStage()
			return
		}
		// The round must not stall waiting on a player who is gone.
		if r.Stage() == StageWaitingForPlayers && r.HasAllPlaysMade() {
			r.AdvanceStage()
		}
	}
	if g.Status() == StatusPlaying {
		g.hasEnoughPlayers()
	}
}

// hasEnoughPlayers stops the game if the roster has shrunk below the
// minimum, announcing why. Returns true when play can continue.
func (g *Game) hasEnoughPlayers() bool {
	if len(g.Players()) < g.cfg.MinPlayers {
		g.broadcast("Not enough players to continue!")
		g.Stop()
		return false
	}
	return true
}

// SetHost makes the player the game's host and grants the channel
// privilege marking it.
func (g *Game) SetHost(p *Player) {
	g.stateMu.Lock()
	g.host = p
	g.stateMu.Unlock()
	g.transport.SetVoice(g.channel, p.Name, true)
}

// nextHost revokes the departed host's privilege and promotes the
// first active player.
func (g *Game) nextHost() {
	g.stateMu.Lock()
	old := g.host
	g.host = nil
	g.stateMu.Unlock()
	if old != nil {
		g.transport.SetVoice(g.channel, old.Name, false)
	}
	players := g.Players()
	if len(players) == 0 {
		return
	}
	g.SetHost(players[0])
}

// Stop ends the game: it deregisters the session, revokes the host
// privilege, cancels any pending countdown, and announces the final
// scores unless nobody got to play. Safe to call more than once.
func (g *Game) Stop() {
	g.stateMu.Lock()
	if g.status == StatusEnded {
		g.stateMu.Unlock()
		return
	}
	prev := g.status
	g.status = StatusEnded
	host := g.host
	g.host = nil
	if g.countdown != nil {
		g.countdown.cancel()
	}
	g.stateMu.Unlock()

	g.registry.Remove(g.channel)
	if host != nil {
		g.transport.SetVoice(g.channel, host.Name, false)
	}
	if prev != StatusIdle {
		g.broadcast("The game has ended.")
		if prev != StatusJoining {
			g.ShowScores()
		}
	}
	g.logger.Info("Game stopped", "previous_status", prev)
}

// deal tops the player's hand up to the configured size. Cards held
// anywhere, including in-flight plays, are excluded when the pool
// repopulates.
func (g *Game) deal(p *Player) {
	for p.Hand.Len() < g.cfg.HandSize {
		c := g.deck.DrawAnswer(g.heldAnswerCards())
		if c == nil {
			g.logger.Warn("Answer pool exhausted while dealing", "player", p.Name)
			return
		}
		p.Hand.Add(c)
	}
}

// dealAll tops up every active player's hand.
func (g *Game) dealAll() {
	for _, p := range g.Players() {
		g.deal(p)
	}
}

// heldAnswerCards collects every answer card currently outside the
// pool: all-time players' hands plus the current round's submissions.
func (g *Game) heldAnswerCards() [][]*cards.AnswerCard {
	var held [][]*cards.AnswerCard
	for _, p := range g.AllPlayers() {
		held = append(held, p.Hand.Cards())
	}
	if r := g.CurrentRound(); r != nil {
		for _, play := range r.Plays() {
			held = append(held, play.Cards())
		}
	}
	return held
}

// ShowHand sends the player a private, numbered listing of their hand.
func (g *Game) ShowHand(p *Player) {
	var sb strings.Builder
	sb.WriteString("Your cards: ")
	for i, c := range p.Hand.Cards() {
		fmt.Fprintf(&sb, "%d. %s ", i+1, c.Text)
	}
	g.transport.Notice(p.Name, strings.TrimSpace(sb.String()))
}

// showHands reveals hands to every non-czar active player.
func (g *Game) showHands() {
	r := g.CurrentRound()
	for _, p := range g.Players() {
		if r != nil && p.Key() == r.Czar().Key() {
			continue
		}
		g.ShowHand(p)
	}
}

// ShowScores announces every player's score, highest first.
func (g *Game) ShowScores() {
	players := g.AllPlayers()
	sort.SliceStable(players, func(i, j int) bool {
		if players[i].Score() != players[j].Score() {
			return players[i].Score() > players[j].Score()
		}
		return players[i].Name < players[j].Name
	})
	parts := make([]string, len(players))
	for i, p := range players {
		parts[i] = fmt.Sprintf("%s: %d", p.Name, p.Score())
	}
	g.broadcastf("Scores: %s", strings.Join(parts, ", "))
}

// CardCounts describes the deck's remaining and total card counts.
func (g *Game) CardCounts() string {
	return fmt.Sprintf("Card counts: %d unused/%d prompt cards, %d unused/%d answer cards",
		g.deck.UnusedPromptCount(), g.deck.PromptCount(),
		g.deck.UnusedAnswerCount(), g.deck.AnswerCount())
}

// ShowCardCounts announces the current card counts.
func (g *Game) ShowCardCounts() {
	g.broadcast(g.CardCounts())
}

// redact splits every active player's handle found in the message with
// a zero-width space so a broadcast never triggers a transport-level
// mention. Any text can coincidentally contain a handle, so this runs
// on every broadcast.
func (g *Game) redact(message string) string {
	for _, p := range g.Players() {
		if utf8.RuneCountInString(p.Name) <= 1 {
			continue
		}
		_, size := utf8.DecodeRuneInString(p.Name)
		split := p.Name[:size] + "​" + p.Name[size:]
		message = strings.ReplaceAll(message, p.Name, split)
	}
	return message
}

func (g *Game) broadcast(message string) {
	g.transport.Broadcast(g.channel, g.redact(message))
}

func (g *Game) broadcastf(format string, args ...any) {
	g.broadcast(fmt.Sprintf(format, args...))
}

func (g *Game) commandPrefix() string {
	if g.cfg.CommandPrefix == "" {
		return "!"
	}
	return g.cfg.CommandPrefix
}
