package main

import (
	"errors"
	"fmt"
	rand "math/rand/v2"
	"net/http"
	"time"

	"github.com/coder/quartz"
	"golang.org/x/sync/errgroup"

	"github.com/czarbot/czarbot/cmd/czarbot/shared"
	"github.com/czarbot/czarbot/internal/cards"
	"github.com/czarbot/czarbot/internal/server"
)

// ServeCmd runs the websocket game server
type ServeCmd struct {
	Config string   `kong:"default='czarbot.hcl',help='Path to HCL configuration file'"`
	Addr   string   `kong:"help='Listen address, overrides the config file'"`
	Pack   []string `kong:"help='Card pack file to load, repeatable, overrides the config file'"`
	Seed   *uint64  `kong:"help='Deterministic RNG seed (optional)'"`
	Debug  bool     `kong:"help='Enable debug logging'"`
}

func (c *ServeCmd) Run() error {
	cfg, err := server.LoadConfig(c.Config)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := shared.SetupLogger(cfg.Server.LogLevel, c.Debug)

	addr := cfg.ListenAddress()
	if c.Addr != "" {
		addr = c.Addr
	}

	packFiles := cfg.PackFiles()
	if len(c.Pack) > 0 {
		packFiles = c.Pack
	}
	packs := cards.ParsePackFiles(packFiles, logger)
	if len(packs) == 0 {
		return fmt.Errorf("no usable card packs, provide pack blocks in %s or --pack flags", c.Config)
	}

	var seed uint64
	if c.Seed != nil {
		seed = *c.Seed
		logger.Info("Using deterministic seed", "seed", seed)
	} else {
		seed = uint64(time.Now().UnixNano())
	}
	rng := rand.New(rand.NewPCG(seed, seed))

	srv := server.NewServer(addr, logger)
	registry := server.NewRegistry(logger)
	dispatcher := server.NewDispatcher(registry, srv, packs, quartz.NewReal(), rng, logger, cfg.GameConfig())
	srv.SetDispatcher(dispatcher)

	logger.Info("Starting czarbot server",
		"address", addr,
		"packs", len(packs),
		"hand_size", cfg.Game.HandSize,
		"min_players", cfg.Game.MinPlayers)

	ctx := shared.SetupSignalHandler(logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server...")
		return srv.Stop()
	})
	return g.Wait()
}
