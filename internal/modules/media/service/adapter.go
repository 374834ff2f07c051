package service

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/reshetovitsme/relaybot/internal/metrics"
	"github.com/reshetovitsme/relaybot/internal/modules/media/domain"
	"github.com/reshetovitsme/relaybot/internal/modules/media/repository"
	notification "github.com/reshetovitsme/relaybot/internal/modules/notification/domain"
	"github.com/reshetovitsme/relaybot/internal/shared/errors"
	"github.com/samber/lo"
	"github.com/samber/oops"
)

const (
	firstPageSize = 1
	pageSize      = 5
)

// SourceAdapter polls one content platform.
type SourceAdapter interface {
	Platform() domain.Platform
	// Recognizes never fails; malformed input yields false.
	Recognizes(link string) bool
	// Canonical maps a recognized link to the form that identifies its
	// upstream channel. Watermarks are keyed by it.
	Canonical(ctx context.Context, link string) (string, error)
	ResolveTitle(ctx context.Context, link string) (string, error)
	IsDue(now time.Time) bool
	ScheduleNext(now time.Time)
	// Prepare is called once per due tick with every recognized link before
	// the per-link fetches.
	Prepare(ctx context.Context, links []string) error
	FetchNewPosts(ctx context.Context, link string) ([]domain.Post, error)
	Card(post domain.Post) notification.Card
	Disable(err error)
	Disabled() bool
}

// Fetcher is the platform-specific part of an adapter.
type Fetcher interface {
	Platform() domain.Platform
	Recognizes(link string) bool
	PollInterval() time.Duration
	Canonical(ctx context.Context, link string) (string, error)
	ResolveTitle(ctx context.Context, link string) (string, error)
	// Latest returns up to limit most recent posts for link, in any order.
	Latest(ctx context.Context, link string, limit int) ([]domain.Post, error)
	Card(post domain.Post) notification.Card
}

// Preparer is implemented by fetchers that can batch work across links.
type Preparer interface {
	Prepare(ctx context.Context, links []string) error
}

// Adapter combines a Fetcher with watermark and recency-ring deduplication.
type Adapter struct {
	fetcher Fetcher
	repo    repository.Repository
	clock   clockwork.Clock
	ring    *domain.Ring
	locks   keyedMutex

	mu              sync.Mutex
	nextAllowedPoll time.Time
	disabledBy      error
}

func NewAdapter(fetcher Fetcher, repo repository.Repository, clock clockwork.Clock, ringSize int) *Adapter {
	return &Adapter{
		fetcher: fetcher,
		repo:    repo,
		clock:   clock,
		ring:    domain.NewRing(ringSize),
	}
}

func (a *Adapter) Platform() domain.Platform   { return a.fetcher.Platform() }
func (a *Adapter) Recognizes(link string) bool { return a.fetcher.Recognizes(link) }

func (a *Adapter) Card(post domain.Post) notification.Card {
	card := a.fetcher.Card(post)
	card.Source = post.Link
	return card
}

func (a *Adapter) Canonical(ctx context.Context, link string) (string, error) {
	if err := a.disabledErr(); err != nil {
		return "", err
	}
	canonical, err := a.fetcher.Canonical(ctx, link)
	if err != nil {
		return "", errors.Classify(oops.With("platform", a.Platform(), "link", link).Wrap(err))
	}
	return canonical, nil
}

func (a *Adapter) ResolveTitle(ctx context.Context, link string) (string, error) {
	if err := a.disabledErr(); err != nil {
		return "", err
	}
	return a.fetcher.ResolveTitle(ctx, link)
}

func (a *Adapter) IsDue(now time.Time) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.nextAllowedPoll.IsZero() || now.After(a.nextAllowedPoll)
}

func (a *Adapter) ScheduleNext(now time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nextAllowedPoll = now.Add(a.fetcher.PollInterval())
}

func (a *Adapter) Prepare(ctx context.Context, links []string) error {
	p, ok := a.fetcher.(Preparer)
	if !ok {
		return nil
	}
	return errors.Classify(p.Prepare(ctx, links))
}

func (a *Adapter) Disable(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.disabledBy != nil {
		return
	}
	a.disabledBy = err
	metrics.AdaptersDisabled.WithLabelValues(a.Platform().String()).Set(1)
	slog.Error("Source adapter disabled", "platform", a.Platform(), "error", err)
}

func (a *Adapter) Disabled() bool {
	return a.disabledErr() != nil
}

func (a *Adapter) disabledErr() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.disabledBy
}

// FetchNewPosts returns posts for link not announced before, oldest first.
// The watermark and the ring are updated before it returns. Callers pass the
// canonical link so aliases share one watermark.
func (a *Adapter) FetchNewPosts(ctx context.Context, link string) ([]domain.Post, error) {
	if err := a.disabledErr(); err != nil {
		return nil, err
	}
	unlock := a.locks.Lock(link)
	defer unlock()

	watermark, seen, err := a.repo.GetWatermark(ctx, link)
	if err != nil {
		return nil, errors.Transient(err, "link", link)
	}

	limit := pageSize
	if !seen {
		limit = firstPageSize
	}

	posts, err := a.fetcher.Latest(ctx, link, limit)
	if err != nil {
		return nil, errors.Classify(oops.With("platform", a.Platform(), "link", link).Wrap(err))
	}

	posts = lo.UniqBy(posts, func(p domain.Post) string { return p.ID })
	fresh := lo.Filter(posts, func(p domain.Post, _ int) bool {
		if a.ring.Contains(p.ID) {
			return false
		}
		return !seen || p.Timestamp > watermark
	})
	if len(fresh) == 0 {
		return nil, nil
	}
	sort.SliceStable(fresh, func(i, j int) bool { return fresh[i].Timestamp < fresh[j].Timestamp })

	latest := fresh[len(fresh)-1].Timestamp
	if _, err := a.repo.SaveWatermark(ctx, link, latest); err != nil {
		return nil, errors.Transient(err, "link", link)
	}
	for _, p := range fresh {
		a.ring.Push(p.ID)
	}

	return fresh, nil
}

// keyedMutex serializes work per key.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*sync.Mutex)
	}
	l, ok := k.locks[key]
	if !ok {
		l = &sync.Mutex{}
		k.locks[key] = l
	}
	k.mu.Unlock()

	l.Lock()
	return l.Unlock
}
