package service

import (
	"fmt"
	"html"
	"strings"

	"github.com/gorilla/feeds"
	communityDomain "github.com/reshetovitsme/relaybot/internal/modules/community/domain"
	notificationService "github.com/reshetovitsme/relaybot/internal/modules/notification/service"
	"github.com/samber/oops"
)

// FeedSize is the number of delivered cards exported per community.
const FeedSize = 50

type CommunityReader interface {
	GetCommunity(communityID string) (*communityDomain.Community, error)
}

type JournalReader interface {
	Recent(communityID string, limit int) []notificationService.Entry
}

// Service renders the cards recently delivered to a community as a feed
type Service struct {
	communities CommunityReader
	journal     JournalReader
}

func New(communities CommunityReader, journal JournalReader) *Service {
	return &Service{
		communities: communities,
		journal:     journal,
	}
}

// GenerateFeed generates a feed of the last FeedSize cards delivered to a community
func (s *Service) GenerateFeed(communityID string, baseURL string) (*feeds.Feed, error) {
	community, err := s.communities.GetCommunity(communityID)
	if err != nil {
		return nil, oops.With("community_id", communityID, "context", "community not found").Wrap(err)
	}

	feed := &feeds.Feed{
		Title:       fmt.Sprintf("%s - announcements", community.Title),
		Link:        &feeds.Link{Href: fmt.Sprintf("%s/rss/%s", baseURL, community.ID)},
		Description: fmt.Sprintf("New videos and streams announced to %s", community.Title),
		Created:     community.AddedAt,
	}

	entries := s.journal.Recent(communityID, FeedSize)
	for i, entry := range entries {
		if i == 0 {
			feed.Updated = entry.DeliveredAt
		}
		feed.Items = append(feed.Items, entryToFeedItem(communityID, entry))
	}
	return feed, nil
}

func entryToFeedItem(communityID string, entry notificationService.Entry) *feeds.Item {
	card := entry.Card

	created := card.Timestamp
	if created.IsZero() {
		created = entry.DeliveredAt
	}

	description := card.Description
	if description == "" {
		description = card.Title
	}

	var content strings.Builder
	fmt.Fprintf(&content, "<p>%s</p>", html.EscapeString(description))
	if card.Image != "" {
		fmt.Fprintf(&content, `<p><img src="%s" alt="%s"/></p>`, html.EscapeString(card.Image), html.EscapeString(card.Title))
	}

	item := &feeds.Item{
		Title:       truncate(card.Title, 100),
		Link:        &feeds.Link{Href: card.URL},
		Description: description,
		Content:     content.String(),
		Author:      &feeds.Author{Name: card.Author},
		Created:     created,
		Id:          fmt.Sprintf("%s-%s-%d", communityID, card.URL, entry.DeliveredAt.UnixNano()),
	}
	if card.Image != "" {
		item.Enclosure = &feeds.Enclosure{Url: card.Image, Type: "image/jpeg", Length: "0"}
	}
	return item
}

func truncate(s string, maxLen int) string {
	if len([]rune(s)) <= maxLen {
		return s
	}
	return string([]rune(s)[:maxLen]) + "..."
}
