package trovo

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"time"

	"github.com/reshetovitsme/relaybot/internal/modules/media/domain"
	notification "github.com/reshetovitsme/relaybot/internal/modules/notification/domain"
	"github.com/reshetovitsme/relaybot/internal/shared/errors"
)

const (
	Color        = 0x1AAB77
	Logo         = "https://upload.wikimedia.org/wikipedia/commons/b/b9/Trovo_Logo.png"
	pollInterval = 2 * time.Minute
	channelURL   = "https://trovo.live/s/%s"
)

var linkPattern = regexp.MustCompile(`^https?://(?:\w+\.)?trovo\.live/s/(\w+)(?:[?/].*)?$`)

// API is implemented by Client.
type API interface {
	User(ctx context.Context, username string) (*User, error)
	Channel(ctx context.Context, channelID string) (*Channel, error)
}

// Fetcher reports the current live stream of a channel as a post.
type Fetcher struct {
	api API
}

func New(api API) *Fetcher {
	return &Fetcher{api: api}
}

// NewFromClientID returns a Permanent error when the client id is missing.
func NewFromClientID(clientID string, httpClient *http.Client) (*Fetcher, error) {
	if clientID == "" {
		return nil, errors.Permanent("trovo client id not configured")
	}
	return New(NewClient(DefaultBaseURL, clientID, httpClient)), nil
}

func (f *Fetcher) Platform() domain.Platform   { return domain.PlatformTrovo }
func (f *Fetcher) PollInterval() time.Duration { return pollInterval }

func (f *Fetcher) Recognizes(link string) bool {
	return linkPattern.MatchString(link)
}

// Canonical returns the channel URL for the username, dropping subdomains,
// query strings and trailing path segments.
func (f *Fetcher) Canonical(_ context.Context, link string) (string, error) {
	username, err := usernameOf(link)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(channelURL, username), nil
}

func (f *Fetcher) ResolveTitle(ctx context.Context, link string) (string, error) {
	username, err := usernameOf(link)
	if err != nil {
		return "", err
	}
	user, err := f.api.User(ctx, username)
	if err != nil {
		return "", err
	}
	if user.Nickname == "" {
		return username, nil
	}
	return user.Nickname, nil
}

// Latest returns at most one post: the running stream, if any.
func (f *Fetcher) Latest(ctx context.Context, link string, _ int) ([]domain.Post, error) {
	username, err := usernameOf(link)
	if err != nil {
		return nil, err
	}

	user, err := f.api.User(ctx, username)
	if errors.Is(err, errors.ErrNotFound) {
		return nil, errors.Validation("trovo user %s not found", username)
	}
	if err != nil {
		return nil, err
	}

	ch, err := f.api.Channel(ctx, user.ChannelID)
	if err != nil {
		return nil, err
	}
	if !ch.IsLive {
		return nil, nil
	}

	startedSec, err := ch.StartedAt.Int64()
	if err != nil {
		return nil, errors.Transient(err, "username", username)
	}
	ts := startedSec * 1000

	return []domain.Post{{
		ID:         fmt.Sprintf("%s:%d", ch.LiveTitle, ts),
		Link:       link,
		Timestamp:  ts,
		Title:      ch.LiveTitle,
		URL:        fmt.Sprintf(channelURL, username),
		Author:     username,
		AuthorURL:  fmt.Sprintf(channelURL, username),
		AuthorIcon: ch.ProfilePic,
		Image:      ch.Thumbnail,
		Category:   ch.CategoryName,
	}}, nil
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
		Footer:     "Trovo",
		Timestamp:  time.UnixMilli(post.Timestamp),
	}
	if post.Category != "" {
		card.Fields = []notification.Field{{Name: "Category", Value: post.Category, Inline: true}}
	}
	return card
}

func usernameOf(link string) (string, error) {
	m := linkPattern.FindStringSubmatch(link)
	if m == nil {
		return "", errors.Validation("not a trovo channel link: %s", link)
	}
	return m[1], nil
}
