package domain

import (
	"strings"
	"time"

	"github.com/samber/lo"
)

// MaxCardsPerMessage is the number of cards one outbound message may carry.
const MaxCardsPerMessage = 10

// Card colors, RGB.
const (
	ColorDirectory   = 0x1474A6
	ColorVoice       = 0x00C8FF
	ColorUnavailable = 0x808080
)

// Card is a display value built once per event. It is never persisted.
type Card struct {
	Title       string    `json:"title"`
	URL         string    `json:"url,omitempty"`
	Description string    `json:"description,omitempty"`
	Author      string    `json:"author,omitempty"`
	AuthorURL   string    `json:"author_url,omitempty"`
	AuthorIcon  string    `json:"author_icon,omitempty"`
	Image       string    `json:"image,omitempty"`
	Color       int       `json:"color"`
	Fields      []Field   `json:"fields,omitempty"`
	Footer      string    `json:"footer,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
	// Source is the tracked link the card was produced for.
	Source string `json:"source,omitempty"`
}

type Field struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

// Unavailable builds the placeholder shown when a source could not be read.
func Unavailable(title, reason string) Card {
	return Card{
		Title:       title,
		Description: reason,
		Color:       ColorUnavailable,
	}
}

// Batch splits cards into groups of at most MaxCardsPerMessage.
func Batch(cards []Card) [][]Card {
	if len(cards) == 0 {
		return nil
	}
	return lo.Chunk(cards, MaxCardsPerMessage)
}

// Prefix joins the mention and the per-link text with ", ", skipping blanks.
func Prefix(mention, text string) string {
	parts := lo.Filter([]string{mention, text}, func(s string, _ int) bool {
		return strings.TrimSpace(s) != ""
	})
	return strings.Join(parts, ", ")
}

// SplitLines packs lines into chunks no longer than limit characters.
// A single line longer than limit is cut.
func SplitLines(lines []string, limit int) []string {
	var chunks []string
	var b strings.Builder
	for _, line := range lines {
		if len([]rune(line)) > limit {
			line = string([]rune(line)[:limit])
		}
		if b.Len() > 0 && len([]rune(b.String()))+1+len([]rune(line)) > limit {
			chunks = append(chunks, b.String())
			b.Reset()
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)
	}
	if b.Len() > 0 {
		chunks = append(chunks, b.String())
	}
	return chunks
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
