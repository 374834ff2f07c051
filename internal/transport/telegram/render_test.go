package telegram

import (
	"strings"
	"testing"

	notification "github.com/reshetovitsme/relaybot/internal/modules/notification/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderCard(t *testing.T) {
	card := notification.Card{
		Title:       "Q&A <live>",
		URL:         "https://example.com/v?a=1&b=2",
		Author:      "Chan",
		AuthorURL:   "https://example.com/c",
		Description: "<code>1.2.3.4</code>",
		Fields:      []notification.Field{{Name: "Players", Value: "3 / 16"}},
		Footer:      "YouTube",
	}

	got := RenderCard(card)

	assert.Equal(t, `<b><a href="https://example.com/v?a=1&amp;b=2">Q&amp;A &lt;live&gt;</a></b>
<a href="https://example.com/c">Chan</a>
<code>1.2.3.4</code>
<b>Players:</b> 3 / 16
<i>YouTube</i>`, got)
}

func TestRenderMessages_PrefixAndSplit(t *testing.T) {
	var cards []notification.Card
	for i := 0; i < 10; i++ {
		cards = append(cards, notification.Card{Title: "t", Description: strings.Repeat("d", 900)})
	}

	texts := RenderMessages(cards, "@everyone, new stream")

	require.Greater(t, len(texts), 1)
	assert.True(t, strings.HasPrefix(texts[0], "@everyone, new stream"))
	total := 0
	for _, text := range texts {
		assert.LessOrEqual(t, len([]rune(text)), MaxMessageLength)
		total += strings.Count(text, "<b>t</b>")
	}
	assert.Equal(t, 10, total)
}

func TestPreviewFor(t *testing.T) {
	single := previewFor([]notification.Card{{Image: "https://img"}})
	require.NotNil(t, single.URL)
	assert.Equal(t, "https://img", *single.URL)

	many := previewFor([]notification.Card{{Image: "a"}, {Image: "b"}})
	require.NotNil(t, many.IsDisabled)
	assert.True(t, *many.IsDisabled)
}
