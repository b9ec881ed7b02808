package game

import (
	"context"
	"fmt"
	"io"
	rand "math/rand/v2"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/czarbot/czarbot/internal/cards"
)

// fakeTransport records outbound traffic for assertions.
type fakeTransport struct {
	mu         sync.Mutex
	broadcasts []string
	notices    map[string][]string
	voices     []string
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{notices: make(map[string][]string)}
}

func (t *fakeTransport) Broadcast(channel, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.broadcasts = append(t.broadcasts, message)
}

func (t *fakeTransport) Notice(handle, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.notices[handle] = append(t.notices[handle], message)
}

func (t *fakeTransport) SetVoice(channel, handle string, granted bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	sign := "-"
	if granted {
		sign = "+"
	}
	t.voices = append(t.voices, sign+handle)
}

func (t *fakeTransport) broadcastLog() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return strings.Join(t.broadcasts, "\n")
}

func (t *fakeTransport) lastBroadcast() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.broadcasts) == 0 {
		return ""
	}
	return t.broadcasts[len(t.broadcasts)-1]
}

type fakeRegistry struct {
	mu      sync.Mutex
	removed []string
}

func (r *fakeRegistry) Remove(channel string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removed = append(r.removed, channel)
}

func (r *fakeRegistry) removals() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.removed)
}

func testDeck(prompts, answers int) *cards.Deck {
	var ps []*cards.PromptCard
	for i := 0; i < prompts; i++ {
		ps = append(ps, &cards.PromptCard{Text: fmt.Sprintf("Prompt %d: _?", i), Pack: "test", Blanks: 1})
	}
	var as []*cards.AnswerCard
	for i := 0; i < answers; i++ {
		as = append(as, &cards.AnswerCard{Text: fmt.Sprintf("Answer %d", i), Pack: "test"})
	}
	pack := cards.NewPackWithCards("test", ps, as)
	return cards.NewDeck([]*cards.Pack{pack}, rand.New(rand.NewPCG(7, 11)))
}

func testLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel})
}

// newTestGame returns a game wired to fakes with a mock clock.
func newTestGame(t *testing.T, deck *cards.Deck) (*Game, *fakeTransport, *fakeRegistry, *quartz.Mock) {
	t.Helper()
	transport := newFakeTransport()
	registry := &fakeRegistry{}
	clock := quartz.NewMock(t)
	g := NewGame("#play", deck, transport, registry, clock, testLogger(), DefaultConfig())
	return g, transport, registry, clock
}

// startPlaying drives a game through the countdown with the given
// players joined.
func startPlaying(t *testing.T, g *Game, clock *quartz.Mock, handles ...string) {
	t.Helper()
	g.Start()
	for _, h := range handles {
		g.AddPlayer(h)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for i := 0; i < g.cfg.CountdownTicks; i++ {
		clock.Advance(g.cfg.CountdownInterval).MustWait(ctx)
	}
	require.Equal(t, StatusPlaying, g.Status())
}

func TestGameStartsAfterCountdown(t *testing.T) {
	g, transport, _, clock := newTestGame(t, testDeck(10, 60))

	g.Start()
	require.Equal(t, StatusJoining, g.Status())
	assert.Contains(t, transport.broadcastLog(), "45 seconds remain")

	g.AddPlayer("alice")
	g.AddPlayer("bob")
	g.AddPlayer("carol")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	clock.Advance(15 * time.Second).MustWait(ctx)
	assert.Contains(t, transport.broadcastLog(), "30 seconds remain")
	clock.Advance(15 * time.Second).MustWait(ctx)
	assert.Contains(t, transport.broadcastLog(), "15 seconds remain")
	require.Equal(t, StatusJoining, g.Status())

	clock.Advance(15 * time.Second).MustWait(ctx)
	require.Equal(t, StatusPlaying, g.Status())

	r := g.CurrentRound()
	require.NotNil(t, r)
	assert.Equal(t, 1, r.Number())
	assert.Equal(t, "alice", r.Czar().Name)
	assert.Equal(t, StageWaitingForPlayers, r.Stage())
	// Everyone is dealt a full hand at the round boundary.
	for _, p := range g.Players() {
		assert.Equal(t, 10, p.Hand.Len())
	}
}

func TestCountdownStopsGameWithoutEnoughPlayers(t *testing.T) {
	g, transport, registry, clock := newTestGame(t, testDeck(10, 60))

	g.Start()
	g.AddPlayer("alice")
	g.AddPlayer("bob")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for i := 0; i < 3; i++ {
		clock.Advance(15 * time.Second).MustWait(ctx)
	}

	assert.Equal(t, StatusEnded, g.Status())
	assert.Contains(t, transport.broadcastLog(), "At least 3 people are required")
	assert.Equal(t, 1, registry.removals())
}

func TestCountdownCancelledOnStop(t *testing.T) {
	g, transport, _, clock := newTestGame(t, testDeck(10, 60))

	g.Start()
	g.Stop()
	before := len(strings.Split(transport.broadcastLog(), "\n"))

	// A tick pending at stop time must be a no-op.
	clock.Advance(15 * time.Second)
	assert.Equal(t, StatusEnded, g.Status())
	assert.Equal(t, before, len(strings.Split(transport.broadcastLog(), "\n")))
}

func TestAddPlayerIsNoOpWhenActive(t *testing.T) {
	g, _, _, _ := newTestGame(t, testDeck(10, 60))
	g.Start()

	p1 := g.AddPlayer("alice")
	p2 := g.AddPlayer("Alice") // handles are case-insensitive
	assert.Same(t, p1, p2)
	assert.Len(t, g.Players(), 1)
	assert.Len(t, g.AllPlayers(), 1)
}

func TestAddPlayerAbortsWhenSupplyTooSmall(t *testing.T) {
	// 3 players x 7 = 21 >= 20 answer cards.
	g, transport, registry, _ := newTestGame(t, testDeck(10, 20))
	g.Start()

	g.AddPlayer("alice")
	g.AddPlayer("bob")
	g.AddPlayer("carol")

	assert.Equal(t, StatusEnded, g.Status())
	assert.Contains(t, transport.broadcastLog(), "Not enough answer cards")
	assert.Equal(t, 1, registry.removals())
}

func TestRejoinRestoresHandAndTrophies(t *testing.T) {
	g, _, _, clock := newTestGame(t, testDeck(10, 80))
	startPlaying(t, g, clock, "alice", "bob", "carol", "dave")

	bob := g.PlayerNamed("bob")
	require.NotNil(t, bob)
	bob.Trophies.Add(&cards.PromptCard{Text: "won", Blanks: 1})
	held := bob.Hand.Cards()
	require.Len(t, held, 10)

	g.RemovePlayer("bob")
	require.Nil(t, g.PlayerNamed("bob"))
	require.Equal(t, StatusPlaying, g.Status())

	p := g.AddPlayer("bob")
	require.NotNil(t, p)
	assert.Same(t, bob, p, "rejoin must restore the stored player")
	assert.Equal(t, held, p.Hand.Cards(), "hand restored card for card")
	assert.Equal(t, 1, p.Score())
	assert.True(t, g.HasPlayer("bob"))
}

func TestRemovePlayerRotatesHost(t *testing.T) {
	g, transport, _, clock := newTestGame(t, testDeck(10, 80))
	startPlaying(t, g, clock, "alice", "bob", "carol", "dave")
	g.SetHost(g.PlayerNamed("alice"))

	g.RemovePlayer("alice")

	require.NotNil(t, g.Host())
	assert.Equal(t, "bob", g.Host().Name)
	assert.Contains(t, transport.voices, "+alice")
	assert.Contains(t, transport.voices, "-alice")
	assert.Contains(t, transport.voices, "+bob")
}

func TestCzarLeavingRestartsRound(t *testing.T) {
	g, transport, _, clock := newTestGame(t, testDeck(10, 80))
	startPlaying(t, g, clock, "alice", "bob", "carol", "dave")

	r := g.CurrentRound()
	require.Equal(t, "alice", r.Czar().Name)

	bob := g.PlayerNamed("bob")
	submitted := bob.Hand.Cards()[:1]
	require.NoError(t, r.AddPlay(NewPlay(bob, submitted)))
	require.Equal(t, 9, bob.Hand.Len())

	g.RemovePlayer("alice")

	assert.Contains(t, transport.broadcastLog(), "The czar has left!")
	// Bob got his card back before being dealt up for the new round.
	assert.Contains(t, bob.Hand.Cards(), submitted[0])
	assert.Equal(t, 10, bob.Hand.Len())

	r2 := g.CurrentRound()
	require.NotSame(t, r, r2)
	assert.Equal(t, 2, r2.Number())
	assert.Equal(t, "bob", r2.Czar().Name, "rotation restarts at the roster head")
	assert.Equal(t, StatusPlaying, g.Status())
}

func TestRemovePlayerCompletesRound(t *testing.T) {
	g, _, _, clock := newTestGame(t, testDeck(10, 80))
	startPlaying(t, g, clock, "alice", "bob", "carol", "dave")

	r := g.CurrentRound()
	bob := g.PlayerNamed("bob")
	carol := g.PlayerNamed("carol")
	require.NoError(t, r.AddPlay(NewPlay(bob, bob.Hand.Cards()[:1])))
	require.NoError(t, r.AddPlay(NewPlay(carol, carol.Hand.Cards()[:1])))
	require.Equal(t, StageWaitingForPlayers, r.Stage())

	// Dave never played; his departure must not leave the round stalled.
	g.RemovePlayer("dave")
	assert.Equal(t, StageWaitingForCzar, r.Stage())
	assert.Equal(t, StatusPlaying, g.Status())
}

func TestRemovePlayerStopsShortRoster(t *testing.T) {
	g, transport, _, clock := newTestGame(t, testDeck(10, 80))
	startPlaying(t, g, clock, "alice", "bob", "carol")

	g.RemovePlayer("carol")

	assert.Equal(t, StatusEnded, g.Status())
	assert.Contains(t, transport.broadcastLog(), "Not enough players to continue!")
}

func TestUnplayablePromptsAreSkipped(t *testing.T) {
	var answers []*cards.AnswerCard
	for i := 0; i < 80; i++ {
		answers = append(answers, &cards.AnswerCard{Text: fmt.Sprintf("a%d", i), Pack: "test"})
	}

	t.Run("skipped then redrawn", func(t *testing.T) {
		// A single unplayable prompt is drawn, announced, and
		// discarded; the redraw exhausts the pool and stops the game.
		prompts := []*cards.PromptCard{{Text: "no blanks", Pack: "test", Blanks: 0}}
		pack := cards.NewPackWithCards("test", prompts, answers)
		deck := cards.NewDeck([]*cards.Pack{pack}, rand.New(rand.NewPCG(1, 2)))

		g, transport, _, clock := newTestGame(t, deck)
		g.Start()
		g.AddPlayer("alice")
		g.AddPlayer("bob")
		g.AddPlayer("carol")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		for i := 0; i < 3; i++ {
			clock.Advance(15 * time.Second).MustWait(ctx)
		}

		assert.Contains(t, transport.broadcastLog(), "skipped because it is unplayable")
		assert.Contains(t, transport.broadcastLog(), "There are no more prompt cards!")
		assert.Equal(t, StatusEnded, g.Status())
	})

	t.Run("redraw finds a playable prompt", func(t *testing.T) {
		prompts := []*cards.PromptCard{
			{Text: "no blanks", Pack: "test", Blanks: 0},
			{Text: "too many _", Pack: "test", Blanks: 11},
			{Text: "good _", Pack: "test", Blanks: 1},
		}
		pack := cards.NewPackWithCards("test", prompts, answers)
		deck := cards.NewDeck([]*cards.Pack{pack}, rand.New(rand.NewPCG(1, 2)))

		g, _, _, clock := newTestGame(t, deck)
		startPlaying(t, g, clock, "alice", "bob", "carol")

		r := g.CurrentRound()
		require.NotNil(t, r)
		assert.Equal(t, "good _", r.Prompt().Text)
	})
}

func TestPromptExhaustionStopsGame(t *testing.T) {
	g, transport, registry, clock := newTestGame(t, testDeck(1, 80))
	startPlaying(t, g, clock, "alice", "bob", "carol")

	r := g.CurrentRound()
	require.NotNil(t, r)

	bob := g.PlayerNamed("bob")
	carol := g.PlayerNamed("carol")
	require.NoError(t, r.AddPlay(NewPlay(bob, bob.Hand.Cards()[:1])))
	require.NoError(t, r.AddPlay(NewPlay(carol, carol.Hand.Cards()[:1])))
	require.Equal(t, StageWaitingForCzar, r.Stage())

	// Resolving the round advances the game, which finds no prompts.
	require.NoError(t, r.ChooseWinningPlay(1))

	assert.Equal(t, StatusEnded, g.Status())
	assert.Contains(t, transport.broadcastLog(), "There are no more prompt cards!")
	assert.Equal(t, 1, registry.removals())
}

func TestStopIsIdempotent(t *testing.T) {
	g, _, registry, clock := newTestGame(t, testDeck(10, 80))
	startPlaying(t, g, clock, "alice", "bob", "carol")

	g.Stop()
	g.Stop()

	assert.Equal(t, StatusEnded, g.Status())
	assert.Equal(t, 1, registry.removals())
}

func TestBroadcastRedactsHandles(t *testing.T) {
	g, transport, _, _ := newTestGame(t, testDeck(10, 80))
	g.Start()
	g.AddPlayer("alice")

	g.broadcast("alice did something, and malice too")

	last := transport.lastBroadcast()
	assert.NotContains(t, last, "alice")
	assert.Contains(t, last, "a​lice")
	// Coincidental substrings are split as well; only contiguous
	// matches of the handle are affected.
	assert.Contains(t, last, "ma​lice")
}

func TestBroadcastRedactsMultibyteHandles(t *testing.T) {
	g, transport, _, _ := newTestGame(t, testDeck(10, 80))
	g.Start()
	g.AddPlayer("Ülrich")

	g.broadcast("Ülrich wins everything")

	last := transport.lastBroadcast()
	assert.True(t, utf8.ValidString(last), "broadcast is invalid UTF-8: %q", last)
	assert.NotContains(t, last, "Ülrich")
	assert.Contains(t, last, "Ü​lrich")
}

func TestShowScoresSortsDescending(t *testing.T) {
	g, transport, _, clock := newTestGame(t, testDeck(10, 80))
	startPlaying(t, g, clock, "alice", "bob", "carol")

	g.PlayerNamed("bob").Trophies.Add(&cards.PromptCard{Text: "w1", Blanks: 1})
	g.PlayerNamed("bob").Trophies.Add(&cards.PromptCard{Text: "w2", Blanks: 1})
	g.PlayerNamed("carol").Trophies.Add(&cards.PromptCard{Text: "w3", Blanks: 1})

	g.ShowScores()

	last := transport.lastBroadcast()
	clean := strings.ReplaceAll(last, "​", "")
	assert.Equal(t, "Scores: bob: 2, carol: 1, alice: 0", clean)
}

func TestCardCounts(t *testing.T) {
	g, _, _, _ := newTestGame(t, testDeck(5, 30))
	assert.Equal(t, "Card counts: 5 unused/5 prompt cards, 30 unused/30 answer cards", g.CardCounts())
}

func TestShowHandNumbersCardsFromOne(t *testing.T) {
	g, transport, _, clock := newTestGame(t, testDeck(10, 80))
	startPlaying(t, g, clock, "alice", "bob", "carol")

	bob := g.PlayerNamed("bob")
	g.ShowHand(bob)

	notices := transport.notices["bob"]
	require.NotEmpty(t, notices)
	assert.True(t, strings.HasPrefix(notices[len(notices)-1], "Your cards: 1. "))
}
