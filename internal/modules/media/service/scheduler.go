package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/reshetovitsme/relaybot/internal/metrics"
	communityDomain "github.com/reshetovitsme/relaybot/internal/modules/community/domain"
	"github.com/reshetovitsme/relaybot/internal/modules/media/domain"
	notification "github.com/reshetovitsme/relaybot/internal/modules/notification/domain"
	"github.com/reshetovitsme/relaybot/internal/shared/errors"
	"github.com/reshetovitsme/relaybot/internal/shared/ticker"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

// CommunitySource supplies the communities that want media announcements.
type CommunitySource interface {
	MediaCommunities() ([]*communityDomain.Community, error)
}

// Deliverer hands cards to a community's output channel.
type Deliverer interface {
	Deliver(ctx context.Context, communityID string, channelID int64, cards []notification.Card, prefix string) error
}

type SchedulerConfig struct {
	Interval     time.Duration
	FetchTimeout time.Duration
	Concurrency  int
}

// Scheduler aggregates tracked links across communities, fetches each link
// once per due adapter and distributes the cards to the communities that
// track the link.
type Scheduler struct {
	cfg         SchedulerConfig
	adapters    Registry
	communities CommunitySource
	deliverer   Deliverer
	clock       clockwork.Clock

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewScheduler(cfg SchedulerConfig, adapters []SourceAdapter, communities CommunitySource, deliverer Deliverer, clock clockwork.Clock) *Scheduler {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cfg:         cfg,
		adapters:    adapters,
		communities: communities,
		deliverer:   deliverer,
		clock:       clock,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start runs Tick immediately and then every Interval until Stop.
func (s *Scheduler) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker.Run(s.ctx, s.clock, s.cfg.Interval, s.Tick)
	}()
}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

// Adapters returns the registered adapters.
func (s *Scheduler) Adapters() []SourceAdapter {
	return s.adapters.Adapters()
}

// AdapterFor returns the first adapter that recognizes link.
func (s *Scheduler) AdapterFor(link string) (SourceAdapter, bool) {
	return s.adapters.AdapterFor(link)
}

// Tick performs one aggregate, fetch and distribute pass.
func (s *Scheduler) Tick(ctx context.Context) {
	start := s.clock.Now()
	metrics.TicksTotal.WithLabelValues("media").Inc()
	defer func() {
		metrics.TickDuration.WithLabelValues("media").Observe(s.clock.Since(start).Seconds())
	}()

	communities, err := s.communities.MediaCommunities()
	if err != nil {
		slog.ErrorContext(ctx, "Failed to load communities", "error", err)
		return
	}

	interest := Interest(communities)
	if len(interest) == 0 {
		return
	}

	results := s.Collect(ctx, interest)
	s.Distribute(ctx, communities, results)
}

// Interest is the de-duplicated union of every community's tracked links.
func Interest(communities []*communityDomain.Community) []string {
	return lo.Uniq(lo.FlatMap(communities, func(c *communityDomain.Community, _ int) []string {
		return c.Media.Links
	}))
}

// Results holds one tick's cards by canonical link, and the canonical form of
// every tracked link that resolved.
type Results struct {
	Cards     map[string][]notification.Card
	Canonical map[string]string
}

func NewResults() Results {
	return Results{
		Cards:     make(map[string][]notification.Card),
		Canonical: make(map[string]string),
	}
}

// For returns the canonical link of a tracked link and the cards collected
// for it.
func (r Results) For(link string) (string, []notification.Card, bool) {
	canonical, ok := r.Canonical[link]
	if !ok {
		return "", nil, false
	}
	cards, ok := r.Cards[canonical]
	return canonical, cards, ok
}

// Collect fetches new posts for every upstream channel in interest exactly
// once, using the adapter that recognizes it. Links that normalize to the
// same channel share one fetch and one watermark.
func (s *Scheduler) Collect(ctx context.Context, interest []string) Results {
	results := NewResults()

	for _, adapter := range s.adapters {
		if adapter.Disabled() {
			continue
		}
		links := lo.Filter(interest, func(link string, _ int) bool { return adapter.Recognizes(link) })
		if len(links) == 0 {
			continue
		}
		now := s.clock.Now()
		if !adapter.IsDue(now) {
			continue
		}

		sources, byLink, ok := s.fetchAdapter(ctx, adapter, links)
		for _, src := range sources {
			for _, alias := range src.Aliases {
				results.Canonical[alias] = src.Link
			}
		}
		for link, cards := range byLink {
			results.Cards[link] = cards
		}

		if ok {
			adapter.ScheduleNext(now)
		}
	}

	return results
}

// outcomes tracks the failures of one adapter pass.
type outcomes struct {
	platform string
	log      *slog.Logger

	mu        sync.Mutex
	transient bool
	permanent error
}

// record classifies err and reports whether the step succeeded.
func (o *outcomes) record(ctx context.Context, link string, err error) bool {
	if err == nil {
		return true
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	switch {
	case errors.IsValidation(err):
		metrics.FetchesTotal.WithLabelValues(o.platform, "invalid").Inc()
		o.log.WarnContext(ctx, "Skipping malformed link", "link", link, "error", err)
	case errors.IsPermanent(err):
		metrics.FetchesTotal.WithLabelValues(o.platform, "permanent").Inc()
		o.permanent = err
	default:
		metrics.FetchesTotal.WithLabelValues(o.platform, "transient").Inc()
		o.transient = true
		o.log.WarnContext(ctx, "Fetch failed, retrying next tick", "link", link, "error", err)
	}
	return false
}

// fetchAdapter resolves links to their upstream channels and fetches each
// channel once. It reports whether the adapter's schedule may advance, which
// is false after any transient failure.
func (s *Scheduler) fetchAdapter(ctx context.Context, adapter SourceAdapter, links []string) ([]domain.MediaSource, map[string][]notification.Card, bool) {
	platform := adapter.Platform().String()
	out := &outcomes{platform: platform, log: slog.With("platform", platform)}

	prepCtx, cancel := context.WithTimeout(ctx, s.cfg.FetchTimeout)
	err := adapter.Prepare(prepCtx, links)
	cancel()
	if err != nil {
		if errors.IsPermanent(err) {
			adapter.Disable(err)
			return nil, nil, false
		}
		out.log.WarnContext(ctx, "Source prepare failed, retrying next tick", "error", err)
		return nil, nil, false
	}

	sources := s.resolve(ctx, adapter, links, out)
	if out.permanent != nil {
		adapter.Disable(out.permanent)
		return nil, nil, false
	}

	var (
		mu     sync.Mutex
		byLink = make(map[string][]notification.Card)
	)

	var g errgroup.Group
	g.SetLimit(s.cfg.Concurrency)
	for _, src := range sources {
		g.Go(func() error {
			fetchCtx, cancel := context.WithTimeout(ctx, s.cfg.FetchTimeout)
			defer cancel()

			posts, err := adapter.FetchNewPosts(fetchCtx, src.Link)
			if !out.record(ctx, src.Link, err) {
				return nil
			}
			metrics.FetchesTotal.WithLabelValues(platform, "ok").Inc()
			if len(posts) == 0 {
				return nil
			}
			metrics.PostsDiscovered.WithLabelValues(platform).Add(float64(len(posts)))
			cards := lo.Map(posts, func(p domain.Post, _ int) notification.Card { return adapter.Card(p) })
			out.log.InfoContext(ctx, "New posts", "link", src.Link, "count", len(posts))

			mu.Lock()
			defer mu.Unlock()
			byLink[src.Link] = cards
			return nil
		})
	}
	_ = g.Wait()

	if out.permanent != nil {
		adapter.Disable(out.permanent)
		return sources, byLink, false
	}
	return sources, byLink, !out.transient
}

// resolve groups links by canonical link. Links that fail to resolve are
// recorded in out and left out.
func (s *Scheduler) resolve(ctx context.Context, adapter SourceAdapter, links []string, out *outcomes) []domain.MediaSource {
	var (
		mu      sync.Mutex
		order   []string
		aliases = make(map[string][]string)
	)

	var g errgroup.Group
	g.SetLimit(s.cfg.Concurrency)
	for _, link := range links {
		g.Go(func() error {
			resolveCtx, cancel := context.WithTimeout(ctx, s.cfg.FetchTimeout)
			defer cancel()

			canonical, err := adapter.Canonical(resolveCtx, link)
			if !out.record(ctx, link, err) {
				return nil
			}

			mu.Lock()
			defer mu.Unlock()
			if _, seen := aliases[canonical]; !seen {
				order = append(order, canonical)
			}
			aliases[canonical] = append(aliases[canonical], link)
			return nil
		})
	}
	_ = g.Wait()

	return lo.Map(order, func(canonical string, _ int) domain.MediaSource {
		return domain.MediaSource{Link: canonical, Platform: adapter.Platform(), Aliases: aliases[canonical]}
	})
}

// Distribute sends each community the cards for the links it tracks, once per
// upstream channel even when the community lists it under several links.
// Links sharing the same prefix text are delivered together.
func (s *Scheduler) Distribute(ctx context.Context, communities []*communityDomain.Community, results Results) {
	if len(results.Cards) == 0 {
		return
	}

	for _, c := range communities {
		var prefixes []string
		grouped := make(map[string][]notification.Card)
		delivered := make(map[string]bool)
		for _, link := range c.Media.Links {
			canonical, cards, ok := results.For(link)
			if !ok || delivered[canonical] {
				continue
			}
			delivered[canonical] = true

			prefix := notification.Prefix(c.Media.Mention, c.NotificationText(link))
			if _, seen := grouped[prefix]; !seen {
				prefixes = append(prefixes, prefix)
			}
			grouped[prefix] = append(grouped[prefix], cards...)
		}

		for _, prefix := range prefixes {
			if err := s.deliverer.Deliver(ctx, c.ID, c.Media.ChannelID, grouped[prefix], prefix); err != nil {
				slog.WarnContext(ctx, "Delivery failed", "community_id", c.ID, "error", err)
			}
		}
	}
}
