package cards

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePack = `
# A sample pack used by the parser tests.
___METADATA___
description: Cards for testing
author: The Test Suite

___PROMPTS___
What is _?
_ and _ make a great pair.
Why?

___ANSWERS___
A rubber duck.
Twelve angry geese.
The concept of time.
`

func TestParsePack(t *testing.T) {
	p, err := ParsePack("sample", strings.NewReader(samplePack))
	require.NoError(t, err)

	assert.Equal(t, "sample", p.Name)
	assert.Equal(t, "Cards for testing", p.Description)
	assert.Equal(t, "The Test Suite", p.Author)

	prompts := p.Prompts()
	require.Len(t, prompts, 3)
	assert.Equal(t, "What is _?", prompts[0].Text)
	assert.Equal(t, 1, prompts[0].Blanks)
	assert.Equal(t, 2, prompts[1].Blanks)
	// Open-ended prompts take a single answer card.
	assert.Equal(t, 1, prompts[2].Blanks)

	answers := p.Answers()
	require.Len(t, answers, 3)
	assert.Equal(t, "A rubber duck.", answers[0].Text)
	for _, c := range answers {
		assert.Equal(t, "sample", c.Pack)
	}
}

func TestParsePackSkipsCommentsAndBlankLines(t *testing.T) {
	input := "___ANSWERS___\n# not a card\n\nReal card.\n"
	p, err := ParsePack("p", strings.NewReader(input))
	require.NoError(t, err)
	require.Equal(t, 1, p.AnswerCount())
	assert.Equal(t, "Real card.", p.Answers()[0].Text)
}

func TestParsePackMetadataBeforeHeader(t *testing.T) {
	// The metadata stage is implicit at the top of the file.
	input := "description: implicit\n___ANSWERS___\nCard.\n"
	p, err := ParsePack("p", strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, "implicit", p.Description)
	assert.Equal(t, 1, p.AnswerCount())
}

func TestCountBlanks(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"What is _?", 1},
		{"_ and _.", 2},
		{"A run ____ counts once.", 1},
		{"No blanks at all.", 1},
		{"_ _ _ _ _ _ _ _ _ _ _", 11},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, CountBlanks(tt.text))
		})
	}
}

func TestPromptCardPlayable(t *testing.T) {
	assert.True(t, (&PromptCard{Blanks: 1}).Playable())
	assert.True(t, (&PromptCard{Blanks: 10}).Playable())
	assert.False(t, (&PromptCard{Blanks: 0}).Playable())
	assert.False(t, (&PromptCard{Blanks: 11}).Playable())
}
