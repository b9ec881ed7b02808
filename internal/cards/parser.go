package cards

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
)

// Pack files are line oriented. A file has up to three sections, each
// introduced by a header line:
//
//	___METADATA___   key: value pairs (description, author)
//	___PROMPTS___    one prompt card per line, blanks written as runs of _
//	___ANSWERS___    one answer card per line
//
// Blank lines and lines starting with # are ignored everywhere.

type parseStage int

const (
	stageMetadata parseStage = iota
	stagePrompts
	stageAnswers
)

var stageHeaders = map[string]parseStage{
	"___METADATA___": stageMetadata,
	"___PROMPTS___":  stagePrompts,
	"___ANSWERS___":  stageAnswers,
}

// parse consumes one line and returns the stage for the next line.
// Header lines switch stages; everything else is handled by the
// current stage.
func (s parseStage) parse(p *Pack, line string) parseStage {
	if next, ok := stageHeaders[line]; ok {
		return next
	}
	switch s {
	case stageMetadata:
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			return s
		}
		value = strings.TrimSpace(value)
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "description":
			p.Description = value
		case "author":
			p.Author = value
		}
	case stagePrompts:
		p.addPrompt(line)
	case stageAnswers:
		p.addAnswer(line)
	}
	return s
}

// ParsePack reads a pack with the given name from r.
func ParsePack(name string, r io.Reader) (*Pack, error) {
	p := NewPack(name)
	stage := stageMetadata
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		stage = stage.parse(p, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading pack %s: %w", name, err)
	}
	return p, nil
}

// ParsePackFile parses the pack contained in the named file. The pack
// name is the file name without its extension.
func ParsePackFile(path string) (*Pack, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening pack file: %w", err)
	}
	defer f.Close()

	base := filepath.Base(path)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return ParsePack(name, f)
}

// ParsePackFiles parses every named file, logging and skipping any
// that fail. The returned slice preserves argument order.
func ParsePackFiles(paths []string, logger *log.Logger) []*Pack {
	packs := make([]*Pack, 0, len(paths))
	for _, path := range paths {
		p, err := ParsePackFile(path)
		if err != nil {
			logger.Warn("Skipping unreadable card pack", "path", path, "error", err)
			continue
		}
		packs = append(packs, p)
	}
	return packs
}

// CountBlanks returns the number of blanks in a prompt's text, where a
// blank is a maximal run of underscores. Prompts with no written blank
// are open-ended questions answered by a single card.
func CountBlanks(text string) int {
	blanks := 0
	inBlank := false
	for _, r := range text {
		if r == '_' {
			if !inBlank {
				blanks++
				inBlank = true
			}
		} else {
			inBlank = false
		}
	}
	if blanks == 0 {
		return 1
	}
	return blanks
}
