package main

import (
	"fmt"

	"github.com/czarbot/czarbot/internal/cards"
)

// PacksCmd parses pack files and prints a summary for each, which
// doubles as a validation pass before putting a pack in the config.
type PacksCmd struct {
	Files []string `kong:"arg,required,help='Card pack files to inspect'"`
}

func (c *PacksCmd) Run() error {
	var failed int
	for _, path := range c.Files {
		pack, err := cards.ParsePackFile(path)
		if err != nil {
			fmt.Printf("%s: ERROR: %v\n", path, err)
			failed++
			continue
		}
		desc := pack.Description
		if desc == "" {
			desc = "(no description)"
		}
		fmt.Printf("%s: %s by %s - %d prompts, %d answers\n",
			pack.Name, desc, pack.Author, pack.PromptCount(), pack.AnswerCount())
		for _, prompt := range pack.Prompts() {
			if !prompt.Playable() {
				fmt.Printf("  unplayable prompt (%d blanks): %s\n", prompt.Blanks, prompt.Text)
			}
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d pack(s) failed to parse", failed)
	}
	return nil
}
