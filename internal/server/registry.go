package server

import (
	"sync"

	"github.com/charmbracelet/log"

	"github.com/czarbot/czarbot/internal/game"
)

// Registry maps chat channels to their running games. At most one game
// runs per channel, and a handle plays in at most one game across
// channels. Games remove themselves through the game.Registry
// interface when they stop.
type Registry struct {
	logger *log.Logger
	mu     sync.RWMutex
	games  map[string]*game.Game
}

// NewRegistry constructs an empty session registry.
func NewRegistry(logger *log.Logger) *Registry {
	return &Registry{
		logger: logger.WithPrefix("registry"),
		games:  make(map[string]*game.Game),
	}
}

// Game returns the game running in the channel, or nil.
func (r *Registry) Game(channel string) *game.Game {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.games[channel]
}

// Register records a game for its channel. Returns false if the
// channel already has one.
func (r *Registry) Register(g *game.Game) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.games[g.Channel()]; exists {
		return false
	}
	r.games[g.Channel()] = g
	r.logger.Info("Game registered", "channel", g.Channel())
	return true
}

// Remove deletes the channel's game. Implements game.Registry.
func (r *Registry) Remove(channel string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.games[channel]; exists {
		delete(r.games, channel)
		r.logger.Info("Game removed", "channel", channel)
	}
}

// GameFor returns the game the handle is actively playing in, or nil.
func (r *Registry) GameFor(handle string) *game.Game {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, g := range r.games {
		if g.HasPlayer(handle) {
			return g
		}
	}
	return nil
}

// Games returns every running game.
func (r *Registry) Games() []*game.Game {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*game.Game, 0, len(r.games))
	for _, g := range r.games {
		out = append(out, g)
	}
	return out
}
