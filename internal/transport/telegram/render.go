package telegram

import (
	"fmt"
	"html"
	"strings"

	"github.com/go-telegram/bot/models"
	notification "github.com/reshetovitsme/relaybot/internal/modules/notification/domain"
	"github.com/samber/lo"
)

// MaxMessageLength is the messenger's limit for one text message.
const MaxMessageLength = 4096

// RenderCard formats a card as an HTML message block. Titles, authors and
// field names are escaped; descriptions are already HTML.
func RenderCard(card notification.Card) string {
	var b strings.Builder

	title := html.EscapeString(card.Title)
	if card.URL != "" {
		title = fmt.Sprintf(`<a href="%s">%s</a>`, html.EscapeString(card.URL), title)
	}
	b.WriteString("<b>" + title + "</b>")

	if card.Author != "" {
		author := html.EscapeString(card.Author)
		if card.AuthorURL != "" {
			author = fmt.Sprintf(`<a href="%s">%s</a>`, html.EscapeString(card.AuthorURL), author)
		}
		b.WriteString("\n" + author)
	}
	if card.Description != "" {
		b.WriteString("\n" + card.Description)
	}
	for _, f := range card.Fields {
		fmt.Fprintf(&b, "\n<b>%s:</b> %s", html.EscapeString(f.Name), html.EscapeString(f.Value))
	}
	if card.Footer != "" {
		b.WriteString("\n<i>" + html.EscapeString(card.Footer) + "</i>")
	}
	return b.String()
}

// RenderMessages formats cards into message texts that fit the length limit.
// The prefix opens the first message.
func RenderMessages(cards []notification.Card, prefix string) []string {
	blocks := lo.Map(cards, func(c notification.Card, _ int) string { return RenderCard(c) })
	if prefix = strings.TrimSpace(prefix); prefix != "" {
		blocks = append([]string{html.EscapeString(prefix)}, blocks...)
	}

	lines := make([]string, 0, len(blocks)*2)
	for i, block := range blocks {
		if i > 0 {
			lines = append(lines, "")
		}
		lines = append(lines, block)
	}
	chunks := notification.SplitLines(lines, MaxMessageLength)
	return lo.Map(chunks, func(c string, _ int) string { return strings.TrimSpace(c) })
}

// previewFor shows the image of a lone card above the text and disables
// previews otherwise.
func previewFor(cards []notification.Card) *models.LinkPreviewOptions {
	if len(cards) == 1 && cards[0].Image != "" {
		return &models.LinkPreviewOptions{
			URL:              lo.ToPtr(cards[0].Image),
			PreferLargeMedia: lo.ToPtr(true),
			ShowAboveText:    lo.ToPtr(true),
		}
	}
	return &models.LinkPreviewOptions{IsDisabled: lo.ToPtr(true)}
}
