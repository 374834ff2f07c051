package domain

import (
	"strings"
	"time"

	"github.com/samber/lo"

	voiceDomain "github.com/reshetovitsme/relaybot/internal/modules/voice/domain"
)

// Community is a consumer tenant with its own tracked sources and output channels.
type Community struct {
	ID        string            `json:"id"`
	Title     string            `json:"title"`
	AddedBy   int64             `json:"added_by"`
	AddedAt   time.Time         `json:"added_at"`
	Enabled   bool              `json:"enabled"`
	Media     MediaSettings     `json:"media"`
	Directory DirectorySettings `json:"directory"`
	Voice     VoiceSettings     `json:"voice"`
}

// MediaSettings holds the tracked content links and where to announce them.
type MediaSettings struct {
	ChannelID int64    `json:"channel_id"`
	Mention   string   `json:"mention,omitempty"`
	Links     []string `json:"links"`
	// Notifications holds optional per-link text appended after the mention.
	Notifications map[string]string `json:"notifications,omitempty"`
}

// DirectorySettings holds the game servers rendered to a status channel.
type DirectorySettings struct {
	ChannelID int64    `json:"channel_id"`
	Servers   []string `json:"servers"`
}

// VoiceSettings holds the voice servers rendered to a status channel.
type VoiceSettings struct {
	ChannelID int64                           `json:"channel_id"`
	Servers   []voiceDomain.VoiceServerConfig `json:"servers"`
}

// HasMediaOutput reports whether the community wants media announcements.
func (c *Community) HasMediaOutput() bool {
	return c.Enabled && c.Media.ChannelID != 0 && len(c.Media.Links) > 0
}

func (c *Community) HasDirectoryOutput() bool {
	return c.Enabled && c.Directory.ChannelID != 0 && len(c.Directory.Servers) > 0
}

func (c *Community) HasVoiceOutput() bool {
	return c.Enabled && c.Voice.ChannelID != 0 && len(c.Voice.Servers) > 0
}

// Normalize trims tracked links and drops blanks and repeats.
func (c *Community) Normalize() {
	links := lo.FilterMap(c.Media.Links, func(link string, _ int) (string, bool) {
		link = strings.TrimSpace(link)
		return link, link != ""
	})
	c.Media.Links = lo.Uniq(links)
}

func (c *Community) TracksLink(link string) bool {
	return lo.Contains(c.Media.Links, link)
}

// NotificationText returns the per-link text, if any.
func (c *Community) NotificationText(link string) string {
	return c.Media.Notifications[link]
}

// AddLink registers a link once. It reports whether the link was new.
func (c *Community) AddLink(link, text string) bool {
	link = strings.TrimSpace(link)
	added := !c.TracksLink(link)
	if added {
		c.Media.Links = append(c.Media.Links, link)
	}
	if text != "" {
		if c.Media.Notifications == nil {
			c.Media.Notifications = make(map[string]string)
		}
		c.Media.Notifications[link] = text
	}
	return added
}

// RemoveLink drops a link and its notification text.
func (c *Community) RemoveLink(link string) bool {
	link = strings.TrimSpace(link)
	if !c.TracksLink(link) {
		return false
	}
	c.Media.Links = lo.Without(c.Media.Links, link)
	delete(c.Media.Notifications, link)
	return true
}
