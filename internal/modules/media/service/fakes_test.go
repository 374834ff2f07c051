package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/reshetovitsme/relaybot/internal/modules/media/domain"
	notification "github.com/reshetovitsme/relaybot/internal/modules/notification/domain"
	apperrors "github.com/reshetovitsme/relaybot/internal/shared/errors"
)

type fakeFetcher struct {
	mu       sync.Mutex
	prefix   string
	interval time.Duration
	posts    map[string][]domain.Post
	errs     map[string]error
	calls    map[string]int
	limits   []int
	prepared [][]string
}

func newFakeFetcher(prefix string) *fakeFetcher {
	return &fakeFetcher{
		prefix:   prefix,
		interval: 2 * time.Minute,
		posts:    make(map[string][]domain.Post),
		errs:     make(map[string]error),
		calls:    make(map[string]int),
	}
}

func (f *fakeFetcher) Platform() domain.Platform       { return domain.PlatformTwitch }
func (f *fakeFetcher) Recognizes(link string) bool     { return strings.HasPrefix(link, f.prefix) }
func (f *fakeFetcher) PollInterval() time.Duration     { return f.interval }
func (f *fakeFetcher) Card(p domain.Post) notification.Card {
	return notification.Card{Title: p.Title, URL: p.URL}
}

// Canonical lower-cases the link, the way channel logins are case-insensitive.
func (f *fakeFetcher) Canonical(_ context.Context, link string) (string, error) {
	if !f.Recognizes(link) {
		return "", apperrors.Validation("unrecognized link %s", link)
	}
	return strings.ToLower(link), nil
}

func (f *fakeFetcher) ResolveTitle(_ context.Context, link string) (string, error) {
	return "title of " + link, nil
}

func (f *fakeFetcher) Prepare(_ context.Context, links []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prepared = append(f.prepared, links)
	return nil
}

func (f *fakeFetcher) Latest(_ context.Context, link string, limit int) ([]domain.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[link]++
	f.limits = append(f.limits, limit)
	if err := f.errs[link]; err != nil {
		return nil, err
	}
	posts := f.posts[link]
	if len(posts) > limit {
		posts = posts[:limit]
	}
	return posts, nil
}

// publish prepends a post so it becomes the newest upstream item.
func (f *fakeFetcher) publish(link, id string, ts int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := domain.Post{ID: id, Link: link, Timestamp: ts, Title: id}
	f.posts[link] = append([]domain.Post{p}, f.posts[link]...)
}

func (f *fakeFetcher) setErr(link string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[link] = err
}

func (f *fakeFetcher) callCount(link string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[link]
}

type delivery struct {
	communityID string
	channelID   int64
	cards       []notification.Card
	prefix      string
}

type fakeDeliverer struct {
	mu         sync.Mutex
	deliveries []delivery
}

func (d *fakeDeliverer) Deliver(_ context.Context, communityID string, channelID int64, cards []notification.Card, prefix string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.deliveries = append(d.deliveries, delivery{communityID, channelID, cards, prefix})
	return nil
}

func (d *fakeDeliverer) forCommunity(id string) []delivery {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []delivery
	for _, del := range d.deliveries {
		if del.communityID == id {
			out = append(out, del)
		}
	}
	return out
}

func domainPost(id, link string) domain.Post {
	return domain.Post{ID: id, Link: link, Title: id}
}
