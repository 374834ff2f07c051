package youtube

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/reshetovitsme/relaybot/internal/modules/media/domain"
	notification "github.com/reshetovitsme/relaybot/internal/modules/notification/domain"
	"github.com/reshetovitsme/relaybot/internal/shared/errors"
	"github.com/samber/lo"
	"github.com/samber/oops"
	"google.golang.org/api/googleapi"
	yt "google.golang.org/api/youtube/v3"
)

const (
	Color         = 0xFF0202
	Logo          = "https://upload.wikimedia.org/wikipedia/commons/thumb/0/09/YouTube_full-color_icon_%282017%29.svg/1024px-YouTube_full-color_icon_%282017%29.svg.png"
	pollInterval  = 15 * time.Minute
	channelsBatch = 50
	snippetLength = 200
	videoURL      = "https://youtube.com/watch?v=%s"
	channelURL    = "https://www.youtube.com/channel/%s"
)

var (
	channelPattern = regexp.MustCompile(`^https?://(?:\w+\.)?youtube\.com/channel/([\w-]+)(?:[?/].*)?$`)
	aliasPattern   = regexp.MustCompile(`^https?://(?:\w+\.)?youtube\.com/(?:@[\w.-]+|c/[\w-]+|user/[\w-]+)(?:[?/].*)?$`)
)

// cacheResetPoints are the local times at which the channel cache is dropped.
var cacheResetPoints = []struct{ hour, minute int }{
	{15, 5},
	{18, 5},
	{22, 5},
}

// Fetcher reads channel uploads from the YouTube Data API.
type Fetcher struct {
	api      API
	resolver CanonicalResolver
	clock    clockwork.Clock

	mu        sync.Mutex
	linkIDs   map[string]string // "" marks a link that cannot be resolved
	channels  map[string]*yt.Channel
	nextReset time.Time
}

func New(api API, resolver CanonicalResolver, clock clockwork.Clock) *Fetcher {
	return &Fetcher{
		api:      api,
		resolver: resolver,
		clock:    clock,
		linkIDs:  make(map[string]string),
		channels: make(map[string]*yt.Channel),
	}
}

// NewFromKey returns a Permanent error when the key is missing.
func NewFromKey(ctx context.Context, apiKey string, httpClient *http.Client, clock clockwork.Clock) (*Fetcher, error) {
	if apiKey == "" {
		return nil, errors.Permanent("youtube api key not configured")
	}
	api, err := NewAPI(ctx, apiKey, httpClient)
	if err != nil {
		return nil, err
	}
	return New(api, NewPageResolver(httpClient), clock), nil
}

func (f *Fetcher) Platform() domain.Platform   { return domain.PlatformYoutube }
func (f *Fetcher) PollInterval() time.Duration { return pollInterval }

// Recognizes matches channel links and alias links (handles, custom and user
// URLs) without a network call. Aliases already known to be unresolvable are
// rejected.
func (f *Fetcher) Recognizes(link string) bool {
	if channelPattern.MatchString(link) {
		return true
	}
	if !aliasPattern.MatchString(link) {
		return false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	id, cached := f.linkIDs[link]
	return !cached || id != ""
}

// Canonical returns the /channel/<id> URL. Alias links are resolved through
// the link cache, so after Prepare this makes no network call.
func (f *Fetcher) Canonical(ctx context.Context, link string) (string, error) {
	id, err := f.channelID(ctx, link)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(channelURL, id), nil
}

func (f *Fetcher) ResolveTitle(ctx context.Context, link string) (string, error) {
	ch, err := f.channelForLink(ctx, link)
	if err != nil {
		return "", err
	}
	return ch.Snippet.Title, nil
}

// Prepare loads every uncached channel in batches so per-link fetches in the
// same tick hit the cache.
func (f *Fetcher) Prepare(ctx context.Context, links []string) error {
	ids := lo.Uniq(lo.FilterMap(links, func(link string, _ int) (string, bool) {
		id, err := f.channelID(ctx, link)
		return id, err == nil
	}))

	f.mu.Lock()
	f.expireLocked()
	missing := lo.Filter(ids, func(id string, _ int) bool {
		_, ok := f.channels[id]
		return !ok
	})
	f.mu.Unlock()

	for _, batch := range lo.Chunk(missing, channelsBatch) {
		found, err := f.api.Channels(ctx, batch)
		if err != nil {
			return classify(err)
		}
		f.store(found...)
	}
	return nil
}

func (f *Fetcher) Latest(ctx context.Context, link string, limit int) ([]domain.Post, error) {
	ch, err := f.channelForLink(ctx, link)
	if err != nil {
		return nil, err
	}

	uploads := ""
	if ch.ContentDetails != nil && ch.ContentDetails.RelatedPlaylists != nil {
		uploads = ch.ContentDetails.RelatedPlaylists.Uploads
	}
	if uploads == "" {
		slog.ErrorContext(ctx, "Uploads playlist does not exist", "channel", ch.Snippet.Title, "link", link)
		return nil, nil
	}

	ids, err := f.api.PlaylistVideoIDs(ctx, uploads, limit)
	if err != nil {
		return nil, classify(err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	videos, err := f.api.Videos(ctx, ids)
	if err != nil {
		return nil, classify(err)
	}

	return lo.FilterMap(videos, func(v *yt.Video, _ int) (domain.Post, bool) {
		return toPost(link, ch, v)
	}), nil
}

func (f *Fetcher) Card(post domain.Post) notification.Card {
	return notification.Card{
		Title:       post.Title,
		URL:         post.URL,
		Description: post.Description,
		Author:      post.Author,
		AuthorURL:   post.AuthorURL,
		AuthorIcon:  post.AuthorIcon,
		Image:       post.Image,
		Color:       Color,
		Footer:      "YouTube",
		Timestamp:   time.UnixMilli(post.Timestamp),
	}
}

func (f *Fetcher) channelForLink(ctx context.Context, link string) (*yt.Channel, error) {
	id, err := f.channelID(ctx, link)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	f.expireLocked()
	ch, ok := f.channels[id]
	f.mu.Unlock()
	if ok {
		return ch, nil
	}

	slog.WarnContext(ctx, "Loading single channel outside batch", "channel_id", id)
	found, err := f.api.Channels(ctx, []string{id})
	if err != nil {
		return nil, classify(err)
	}
	if len(found) == 0 || found[0].Snippet == nil {
		return nil, oops.With("channel_id", id).Wrap(errors.ErrNotFound)
	}
	f.store(found[0])
	return found[0], nil
}

// channelID maps a link to a channel id, resolving alias links through the
// page's canonical URL. Results, including failures, are cached per link.
func (f *Fetcher) channelID(ctx context.Context, link string) (string, error) {
	if m := channelPattern.FindStringSubmatch(link); m != nil {
		return m[1], nil
	}

	f.mu.Lock()
	id, cached := f.linkIDs[link]
	f.mu.Unlock()
	if cached {
		if id == "" {
			return "", errors.Validation("not a youtube channel link: %s", link)
		}
		return id, nil
	}

	if !aliasPattern.MatchString(link) {
		return "", errors.Validation("not a youtube channel link: %s", link)
	}

	canonical, err := f.resolver.Canonical(ctx, link)
	if err != nil {
		return "", errors.Transient(err, "link", link)
	}

	if m := channelPattern.FindStringSubmatch(canonical); m != nil {
		id = m[1]
	}
	f.mu.Lock()
	f.linkIDs[link] = id
	f.mu.Unlock()

	if id == "" {
		return "", errors.Validation("not a youtube channel link: %s", link)
	}
	return id, nil
}

func (f *Fetcher) store(channels ...*yt.Channel) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range channels {
		if ch != nil && ch.Snippet != nil {
			f.channels[ch.Id] = ch
		}
	}
}

// expireLocked drops the channel cache once the next reset point has passed.
func (f *Fetcher) expireLocked() {
	now := f.clock.Now()
	if !f.nextReset.IsZero() && now.Before(f.nextReset) {
		return
	}
	clear(f.channels)
	f.nextReset = nextResetAfter(now)
}

func nextResetAfter(now time.Time) time.Time {
	for _, p := range cacheResetPoints {
		t := time.Date(now.Year(), now.Month(), now.Day(), p.hour, p.minute, 0, 0, now.Location())
		if now.Before(t) {
			return t
		}
	}
	first := cacheResetPoints[0]
	return time.Date(now.Year(), now.Month(), now.Day()+1, first.hour, first.minute, 0, 0, now.Location())
}

func toPost(link string, ch *yt.Channel, v *yt.Video) (domain.Post, bool) {
	if v == nil || v.Snippet == nil {
		return domain.Post{}, false
	}
	published, err := time.Parse(time.RFC3339, v.Snippet.PublishedAt)
	if err != nil {
		return domain.Post{}, false
	}

	post := domain.Post{
		ID:          v.Id,
		Link:        link,
		Timestamp:   published.UnixMilli(),
		Title:       v.Snippet.Title,
		Description: snippet(v.Snippet.Description),
		URL:         fmt.Sprintf(videoURL, v.Id),
		Author:      ch.Snippet.Title,
		AuthorURL:   fmt.Sprintf(channelURL, ch.Id),
	}
	if th := ch.Snippet.Thumbnails; th != nil && th.Default != nil {
		post.AuthorIcon = th.Default.Url
	}
	if th := v.Snippet.Thumbnails; th != nil && th.Medium != nil {
		post.Image = th.Medium.Url
	}
	return post, true
}

func snippet(s string) string {
	s = strings.TrimSpace(s)
	if len([]rune(s)) <= snippetLength {
		return s
	}
	return notification.Truncate(s, snippetLength) + "..."
}

// classify maps API failures onto the error taxonomy. Rejected keys disable
// the adapter; quota and server errors are retried.
func classify(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusBadRequest, http.StatusUnauthorized:
			if hasReason(apiErr, "keyInvalid") {
				return errors.Permanent("youtube rejected the api key: %s", apiErr.Message)
			}
		case http.StatusForbidden:
			if hasReason(apiErr, "accessNotConfigured", "forbidden") {
				return errors.Permanent("youtube api access denied: %s", apiErr.Message)
			}
		case http.StatusNotFound:
			return errors.Validation("youtube resource not found: %s", apiErr.Message)
		}
	}
	return errors.Classify(err)
}

func hasReason(apiErr *googleapi.Error, reasons ...string) bool {
	return lo.SomeBy(apiErr.Errors, func(item googleapi.ErrorItem) bool {
		return lo.Contains(reasons, item.Reason)
	})
}
