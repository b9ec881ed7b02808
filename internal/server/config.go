package server

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/czarbot/czarbot/internal/game"
)

// Config represents the complete server configuration
type Config struct {
	Server ServerSettings `hcl:"server,block"`
	Game   GameSettings   `hcl:"game,block"`
	Packs  []PackConfig   `hcl:"pack,block"`
}

// ServerSettings contains server-level configuration
type ServerSettings struct {
	Address  string `hcl:"address,optional"`
	Port     int    `hcl:"port,optional"`
	LogLevel string `hcl:"log_level,optional"`
}

// GameSettings tunes the per-channel game sessions
type GameSettings struct {
	HandSize         int    `hcl:"hand_size,optional"`
	MinPlayers       int    `hcl:"min_players,optional"`
	CountdownSeconds int    `hcl:"countdown_seconds,optional"`
	CountdownTicks   int    `hcl:"countdown_ticks,optional"`
	CommandPrefix    string `hcl:"command_prefix,optional"`
}

// PackConfig names a card pack file to load at startup
type PackConfig struct {
	Name string `hcl:"name,label"`
	File string `hcl:"file"`
}

// DefaultConfig returns default server configuration
func DefaultConfig() *Config {
	def := game.DefaultConfig()
	return &Config{
		Server: ServerSettings{
			Address:  "localhost",
			Port:     8080,
			LogLevel: "info",
		},
		Game: GameSettings{
			HandSize:         def.HandSize,
			MinPlayers:       def.MinPlayers,
			CountdownSeconds: int(def.CountdownInterval / time.Second),
			CountdownTicks:   def.CountdownTicks,
			CommandPrefix:    def.CommandPrefix,
		},
	}
}

// LoadConfig loads server configuration from an HCL file. A missing
// file yields the defaults.
func LoadConfig(filename string) (*Config, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var config Config
	diags = gohcl.DecodeBody(file.Body, nil, &config)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	// Apply defaults for missing values
	def := DefaultConfig()
	if config.Server.Address == "" {
		config.Server.Address = def.Server.Address
	}
	if config.Server.Port == 0 {
		config.Server.Port = def.Server.Port
	}
	if config.Server.LogLevel == "" {
		config.Server.LogLevel = def.Server.LogLevel
	}
	if config.Game.HandSize == 0 {
		config.Game.HandSize = def.Game.HandSize
	}
	if config.Game.MinPlayers == 0 {
		config.Game.MinPlayers = def.Game.MinPlayers
	}
	if config.Game.CountdownSeconds == 0 {
		config.Game.CountdownSeconds = def.Game.CountdownSeconds
	}
	if config.Game.CountdownTicks == 0 {
		config.Game.CountdownTicks = def.Game.CountdownTicks
	}
	if config.Game.CommandPrefix == "" {
		config.Game.CommandPrefix = def.Game.CommandPrefix
	}

	return &config, nil
}

// Validate validates the server configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if c.Game.HandSize < 1 {
		return fmt.Errorf("hand_size must be positive")
	}
	if c.Game.MinPlayers < 2 {
		return fmt.Errorf("min_players must be at least 2")
	}
	if c.Game.CountdownSeconds < 1 {
		return fmt.Errorf("countdown_seconds must be positive")
	}
	if c.Game.CountdownTicks < 1 {
		return fmt.Errorf("countdown_ticks must be positive")
	}
	for _, p := range c.Packs {
		if p.File == "" {
			return fmt.Errorf("pack %s: file must be set", p.Name)
		}
	}
	return nil
}

// GameConfig converts the decoded settings into a game configuration
func (c *Config) GameConfig() game.Config {
	return game.Config{
		HandSize:          c.Game.HandSize,
		MinPlayers:        c.Game.MinPlayers,
		CountdownInterval: time.Duration(c.Game.CountdownSeconds) * time.Second,
		CountdownTicks:    c.Game.CountdownTicks,
		CommandPrefix:     c.Game.CommandPrefix,
	}
}

// ListenAddress returns the full listen address
func (c *Config) ListenAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}

// PackFiles returns the configured pack file paths in order
func (c *Config) PackFiles() []string {
	files := make([]string, 0, len(c.Packs))
	for _, p := range c.Packs {
		files = append(files, p.File)
	}
	return files
}
