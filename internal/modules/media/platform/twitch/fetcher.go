package twitch

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/nicklaw5/helix/v2"
	"github.com/reshetovitsme/relaybot/internal/modules/media/domain"
	notification "github.com/reshetovitsme/relaybot/internal/modules/notification/domain"
	"github.com/reshetovitsme/relaybot/internal/shared/errors"
	"github.com/samber/lo"
)

const (
	Color        = 0x6441A4
	Logo         = "https://assets.help.twitch.tv/Glitch_Purple_RGB.png"
	pollInterval = 2 * time.Minute
	channelURL   = "https://www.twitch.tv/%s"
)

var linkPattern = regexp.MustCompile(`^https?://(?:\w+\.)?twitch\.tv/(\w+)(?:[?/].*)?$`)

// Fetcher reports live streams as posts, one per stream id.
type Fetcher struct {
	api API
}

func New(api API) *Fetcher {
	return &Fetcher{api: api}
}

// NewFromCredentials returns a Permanent error when credentials are missing.
func NewFromCredentials(clientID, clientSecret string, httpClient *http.Client) (*Fetcher, error) {
	if clientID == "" || clientSecret == "" {
		return nil, errors.Permanent("twitch client id and/or secret not configured")
	}
	api, err := NewHelixAPI(clientID, clientSecret, httpClient)
	if err != nil {
		return nil, err
	}
	return New(api), nil
}

func (f *Fetcher) Platform() domain.Platform   { return domain.PlatformTwitch }
func (f *Fetcher) PollInterval() time.Duration { return pollInterval }

func (f *Fetcher) Recognizes(link string) bool {
	return linkPattern.MatchString(link)
}

// Canonical returns the channel URL for the lower-cased login.
func (f *Fetcher) Canonical(_ context.Context, link string) (string, error) {
	login, err := loginOf(link)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(channelURL, login), nil
}

func (f *Fetcher) ResolveTitle(ctx context.Context, link string) (string, error) {
	login, err := loginOf(link)
	if err != nil {
		return "", err
	}
	user, err := f.api.User(ctx, login)
	if err != nil {
		return "", err
	}
	return user.DisplayName, nil
}

func (f *Fetcher) Latest(ctx context.Context, link string, limit int) ([]domain.Post, error) {
	login, err := loginOf(link)
	if err != nil {
		return nil, err
	}

	streams, err := f.api.Streams(ctx, login, limit)
	if err != nil {
		return nil, err
	}
	if len(streams) == 0 {
		return nil, nil
	}

	user, err := f.api.User(ctx, login)
	if err != nil {
		return nil, err
	}

	return lo.Map(streams, func(s helix.Stream, _ int) domain.Post {
		return domain.Post{
			ID:         s.ID,
			Link:       link,
			Timestamp:  s.StartedAt.UnixMilli(),
			Title:      s.Title,
			URL:        fmt.Sprintf(channelURL, s.UserLogin),
			Author:     s.UserName,
			AuthorURL:  fmt.Sprintf(channelURL, s.UserLogin),
			AuthorIcon: user.ProfileImageURL,
			Image:      thumbnail(s.ThumbnailURL, 440, 248),
			Category:   s.GameName,
		}
	}), nil
}

func (f *Fetcher) Card(post domain.Post) notification.Card {
	card := notification.Card{
		Title:      post.Title,
		URL:        post.URL,
		Author:     post.Author,
		AuthorURL:  post.AuthorURL,
		AuthorIcon: post.AuthorIcon,
		Image:      post.Image,
		Color:      Color,
		Footer:     "Twitch",
		Timestamp:  time.UnixMilli(post.Timestamp),
	}
	if post.Category != "" {
		card.Fields = []notification.Field{{Name: "Category", Value: post.Category, Inline: true}}
	}
	return card
}

func loginOf(link string) (string, error) {
	m := linkPattern.FindStringSubmatch(link)
	if m == nil {
		return "", errors.Validation("not a twitch channel link: %s", link)
	}
	return strings.ToLower(m[1]), nil
}

func thumbnail(template string, width, height int) string {
	r := strings.NewReplacer("{width}", fmt.Sprint(width), "{height}", fmt.Sprint(height))
	return r.Replace(template)
}
