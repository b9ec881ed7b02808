// Package game implements the session and round engine for the
// prompt/answer card-matching game.
//
// The main type is Game, which manages one session per chat channel:
// player membership, czar rotation, the join countdown, and a sequence
// of rounds. A Round collects one Play per non-czar player, then the
// czar picks the winner, which is awarded the prompt card as a trophy.
//
// # Basic Usage
//
// Create a game for a channel and start it:
//
//	deck := cards.NewDeck(packs, rng)
//	g := game.NewGame("#play", deck, transport, registry, quartz.NewReal(), logger, game.DefaultConfig())
//	g.Start()
//	g.AddPlayer("alice")
//
// # Deterministic Testing
//
// The quartz.Clock parameter controls the join countdown; pass
// quartz.NewMock(t) in tests and advance it explicitly. The deck takes
// a *rand.Rand, so a fixed seed makes draw order reproducible.
//
// # Concurrency
//
// The active roster, all-time roster, and deck pools each carry their
// own lock, and every exported operation is collection-scoped and
// atomic. Sequences spanning collections are intentionally not atomic;
// see the Game type's documentation.
package game
