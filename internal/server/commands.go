package server

import (
	"fmt"
	rand "math/rand/v2"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/czarbot/czarbot/internal/cards"
	"github.com/czarbot/czarbot/internal/game"
)

// Dispatcher turns prefixed chat lines into game operations. It owns
// the session registry plus everything needed to construct new games:
// the parsed card packs, the clock, and an RNG source.
//
// Handler panics are recovered here, logged, and reported to the
// invoking user as a generic failure; the session is left running.
type Dispatcher struct {
	logger    *log.Logger
	registry  *Registry
	transport game.Transport
	packs     []*cards.Pack
	clock     quartz.Clock
	gameCfg   game.Config

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewDispatcher creates a dispatcher. The RNG seeds per-game deck
// randomness; pass a fixed-seed rand for deterministic tests.
func NewDispatcher(registry *Registry, transport game.Transport, packs []*cards.Pack, clock quartz.Clock, rng *rand.Rand, logger *log.Logger, gameCfg game.Config) *Dispatcher {
	return &Dispatcher{
		logger:    logger.WithPrefix("dispatch"),
		registry:  registry,
		transport: transport,
		packs:     packs,
		clock:     clock,
		gameCfg:   gameCfg,
		rng:       rng,
	}
}

// newGameRNG derives an independent RNG for one game's deck, so
// concurrent sessions never share a rand source.
func (d *Dispatcher) newGameRNG() *rand.Rand {
	d.rngMu.Lock()
	defer d.rngMu.Unlock()
	return rand.New(rand.NewPCG(d.rng.Uint64(), d.rng.Uint64()))
}

func (d *Dispatcher) prefix() string {
	if d.gameCfg.CommandPrefix == "" {
		return "!"
	}
	return d.gameCfg.CommandPrefix
}

// HandleChat inspects a chat line and runs it as a command when it
// carries the command prefix. Non-command chatter is ignored.
func (d *Dispatcher) HandleChat(handle, channel, text string) {
	prefix := d.prefix()
	if !strings.HasPrefix(text, prefix) {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("Command handler panicked", "handle", handle, "channel", channel, "text", text, "panic", r)
			d.transport.Notice(handle, "Something went wrong running that command.")
		}
	}()

	fields := strings.Fields(strings.TrimPrefix(text, prefix))
	if len(fields) == 0 {
		return
	}
	command, args := strings.ToLower(fields[0]), fields[1:]

	switch command {
	case "start":
		d.handleStart(handle, channel)
	case "join", "joingame":
		d.handleJoin(handle, channel)
	case "leave", "leavegame":
		d.handleLeave(handle, channel)
	case "pick", "pickcard", "p", "pc", "play", "playcard":
		d.handlePick(handle, channel, args)
	case "packs":
		d.handlePacks(handle, channel)
	case "cardcounts", "cards":
		d.handleCardCounts(handle, channel)
	case "scores", "score":
		d.handleScores(handle, channel)
	case "who":
		d.handleWho(handle, channel)
	case "skip":
		d.handleSkip(handle, channel)
	case "stop":
		d.handleStop(handle, channel)
	default:
		d.transport.Notice(handle, fmt.Sprintf("Unknown command %q.", command))
	}
}

// HandleDeparture removes a handle from the channel's game when the
// player parts the channel or disconnects.
func (d *Dispatcher) HandleDeparture(handle, channel string) {
	g := d.registry.Game(channel)
	if g == nil || !g.HasPlayer(handle) {
		return
	}
	g.RemovePlayer(handle)
}

// gameIn fetches the channel's game, noticing the user if none runs.
func (d *Dispatcher) gameIn(handle, channel string) *game.Game {
	g := d.registry.Game(channel)
	if g == nil {
		d.transport.Notice(handle, fmt.Sprintf("There's no game right now. Start one with %sstart.", d.prefix()))
	}
	return g
}

func (d *Dispatcher) handleStart(handle, channel string) {
	if d.registry.Game(channel) != nil {
		d.transport.Notice(handle, "A game is already running in this channel.")
		return
	}
	if other := d.registry.GameFor(handle); other != nil {
		d.transport.Notice(handle, "You can't be in more than one game at a time!")
		return
	}
	deck := cards.NewDeck(d.packs, d.newGameRNG())
	g := game.NewGame(channel, deck, d.transport, d.registry, d.clock, d.logger, d.gameCfg)
	if !d.registry.Register(g) {
		d.transport.Notice(handle, "A game is already running in this channel.")
		return
	}
	d.logger.Info("Game starting", "channel", channel, "host", handle)
	g.Start()
	if p := g.AddPlayer(handle); p != nil {
		g.SetHost(p)
	}
}

func (d *Dispatcher) handleJoin(handle, channel string) {
	g := d.gameIn(handle, channel)
	if g == nil {
		return
	}
	if g.HasPlayer(handle) {
		d.transport.Notice(handle, "You can't join a game you're already in!")
		return
	}
	if other := d.registry.GameFor(handle); other != nil {
		d.transport.Notice(handle, "You can't be in more than one game at a time!")
		return
	}
	g.AddPlayer(handle)
}

func (d *Dispatcher) handleLeave(handle, channel string) {
	g := d.gameIn(handle, channel)
	if g == nil {
		return
	}
	if !g.HasPlayer(handle) {
		d.transport.Notice(handle, "You're not in this game.")
		return
	}
	g.RemovePlayer(handle)
}

func (d *Dispatcher) handlePick(handle, channel string, args []string) {
	g := d.gameIn(handle, channel)
	if g == nil {
		return
	}
	if len(args) < 1 {
		d.transport.Notice(handle, fmt.Sprintf("Usage: %spick <number ...>", d.prefix()))
		return
	}
	if g.Status() != game.StatusPlaying {
		d.transport.Notice(handle, "The game has not started!")
		return
	}
	p := g.PlayerNamed(handle)
	if p == nil {
		d.transport.Notice(handle, "You're not in this game.")
		return
	}
	r := g.CurrentRound()
	if r == nil {
		d.transport.Notice(handle, "You cannot pick a card right now.")
		return
	}
	switch r.Stage() {
	case game.StageWaitingForCzar:
		d.czarPick(g, r, p, args)
	case game.StageWaitingForPlayers:
		d.playerPick(g, r, p, args)
	default:
		d.transport.Notice(handle, "You cannot pick a card right now.")
	}
}

// czarPick resolves the round with the czar's chosen play number.
func (d *Dispatcher) czarPick(g *game.Game, r *game.Round, p *game.Player, args []string) {
	if r.Czar().Key() != p.Key() {
		d.transport.Notice(p.Name, "You can't pick any cards right now.")
		return
	}
	number, err := strconv.Atoi(args[0])
	if err != nil {
		d.transport.Notice(p.Name, fmt.Sprintf("%s is not a valid number.", args[0]))
		return
	}
	if err := r.ChooseWinningPlay(number); err != nil {
		d.transport.Notice(p.Name, capitalize(err.Error())+".")
		return
	}
	d.transport.Notice(p.Name, "Play picked!")
}

// playerPick validates a submission against the prompt's blank count
// and the player's hand before handing it to the round.
func (d *Dispatcher) playerPick(g *game.Game, r *game.Round, p *game.Player, args []string) {
	if r.Czar().Key() == p.Key() {
		d.transport.Notice(p.Name, "You're the card czar! Wait until all the players have chosen their cards.")
		return
	}
	if r.HasPlayed(p) {
		d.transport.Notice(p.Name, "You've already played!")
		return
	}
	if len(args) != r.Prompt().Blanks {
		d.transport.Notice(p.Name, fmt.Sprintf("Wrong amount of cards! You need to pick exactly %d.", r.Prompt().Blanks))
		return
	}
	picked := make([]*cards.AnswerCard, 0, len(args))
	for _, arg := range args {
		number, err := strconv.Atoi(arg)
		if err != nil {
			d.transport.Notice(p.Name, fmt.Sprintf("%s is not a valid number.", arg))
			return
		}
		card, ok := p.Hand.Card(number - 1)
		if !ok {
			d.transport.Notice(p.Name, fmt.Sprintf("%d is not a valid choice.", number))
			return
		}
		for _, already := range picked {
			if already == card {
				d.transport.Notice(p.Name, "You cannot play the same card twice!")
				return
			}
		}
		picked = append(picked, card)
	}
	if err := r.AddPlay(game.NewPlay(p, picked)); err != nil {
		d.transport.Notice(p.Name, capitalize(err.Error())+".")
		return
	}
	if len(picked) == 1 {
		d.transport.Notice(p.Name, "Card picked.")
	} else {
		d.transport.Notice(p.Name, "Cards picked.")
	}
}

func (d *Dispatcher) handlePacks(handle, channel string) {
	if len(d.packs) == 0 {
		d.transport.Notice(handle, "No card packs are loaded.")
		return
	}
	for _, p := range d.packs {
		desc := p.Description
		if desc == "" {
			desc = "no description"
		}
		author := p.Author
		if author == "" {
			author = "unknown"
		}
		d.transport.Notice(handle, fmt.Sprintf("%s: %s (by %s) - %d prompts, %d answers",
			p.Name, desc, author, p.PromptCount(), p.AnswerCount()))
	}
}

func (d *Dispatcher) handleCardCounts(handle, channel string) {
	g := d.gameIn(handle, channel)
	if g == nil {
		return
	}
	g.ShowCardCounts()
}

func (d *Dispatcher) handleScores(handle, channel string) {
	g := d.gameIn(handle, channel)
	if g == nil {
		return
	}
	g.ShowScores()
}

func (d *Dispatcher) handleWho(handle, channel string) {
	g := d.gameIn(handle, channel)
	if g == nil {
		return
	}
	r := g.CurrentRound()
	host := g.Host()
	parts := make([]string, 0, len(g.Players()))
	for _, p := range g.Players() {
		name := p.Name
		if host != nil && host.Key() == p.Key() {
			name += " (host)"
		}
		if r != nil && r.Czar().Key() == p.Key() {
			name += " (czar)"
		}
		parts = append(parts, name)
	}
	d.transport.Notice(handle, fmt.Sprintf("Players: %s", strings.Join(parts, ", ")))
}

// handleSkip lets the host or the czar throw away the current prompt:
// submissions go back to their owners and a fresh round begins.
func (d *Dispatcher) handleSkip(handle, channel string) {
	g := d.gameIn(handle, channel)
	if g == nil {
		return
	}
	r := g.CurrentRound()
	if g.Status() != game.StatusPlaying || r == nil {
		d.transport.Notice(handle, "There's nothing to skip right now.")
		return
	}
	key := game.NormalizeHandle(handle)
	host := g.Host()
	isHost := host != nil && host.Key() == key
	isCzar := r.Czar().Key() == key
	if !isHost && !isCzar {
		d.transport.Notice(handle, "Only the host or the czar can skip the prompt.")
		return
	}
	d.transport.Broadcast(channel, "Skipping the current prompt.")
	r.ReturnCards()
	g.AdvanceStage()
}

func (d *Dispatcher) handleStop(handle, channel string) {
	g := d.gameIn(handle, channel)
	if g == nil {
		return
	}
	host := g.Host()
	if host == nil || host.Key() != game.NormalizeHandle(handle) {
		d.transport.Notice(handle, "Only the host can stop the game.")
		return
	}
	g.Stop()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
