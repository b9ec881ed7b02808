package main

import (
	"fmt"

	"github.com/czarbot/czarbot/cmd/czarbot/shared"
	"github.com/czarbot/czarbot/internal/client"
)

// ClientCmd connects an interactive terminal client to a server
type ClientCmd struct {
	Server  string `kong:"default='http://localhost:8080',help='Server URL'"`
	Handle  string `kong:"required,help='Your handle on the server'"`
	Channel string `kong:"default='#games',help='Channel to join'"`
	Debug   bool   `kong:"help='Enable debug logging'"`
}

func (c *ClientCmd) Run() error {
	logger := shared.SetupLogger("warn", c.Debug)

	cl := client.NewClient(c.Server, logger)
	if err := cl.Connect(); err != nil {
		return err
	}
	defer func() { _ = cl.Disconnect() }()

	if err := cl.Hello(c.Handle); err != nil {
		return fmt.Errorf("failed to register handle: %w", err)
	}
	if err := cl.JoinChannel(c.Channel); err != nil {
		return fmt.Errorf("failed to join channel: %w", err)
	}

	return client.Run(cl, c.Channel, logger)
}
