package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/reshetovitsme/relaybot/internal/metrics"
	communityDomain "github.com/reshetovitsme/relaybot/internal/modules/community/domain"
	"github.com/reshetovitsme/relaybot/internal/modules/directory/domain"
	notification "github.com/reshetovitsme/relaybot/internal/modules/notification/domain"
	notificationService "github.com/reshetovitsme/relaybot/internal/modules/notification/service"
	"github.com/reshetovitsme/relaybot/internal/shared/ticker"
)

// BoardKey identifies the directory board in a community's status channel.
const BoardKey = "directory"

type CommunitySource interface {
	DirectoryCommunities() ([]*communityDomain.Community, error)
}

// Watcher renders each community's tracked servers to its status channel.
type Watcher struct {
	cache       *Cache
	communities CommunitySource
	display     notificationService.Display
	clock       clockwork.Clock
	interval    time.Duration
	timeout     time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewWatcher(cache *Cache, communities CommunitySource, display notificationService.Display, clock clockwork.Clock, interval, timeout time.Duration) *Watcher {
	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		cache:       cache,
		communities: communities,
		display:     display,
		clock:       clock,
		interval:    interval,
		timeout:     timeout,
		ctx:         ctx,
		cancel:      cancel,
	}
}

func (w *Watcher) Start() {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		ticker.Run(w.ctx, w.clock, w.interval, w.Tick)
	}()
}

func (w *Watcher) Stop() {
	w.cancel()
	w.wg.Wait()
}

func (w *Watcher) Tick(ctx context.Context) {
	start := w.clock.Now()
	metrics.TicksTotal.WithLabelValues("directory").Inc()
	defer func() {
		metrics.TickDuration.WithLabelValues("directory").Observe(w.clock.Since(start).Seconds())
	}()

	communities, err := w.communities.DirectoryCommunities()
	if err != nil {
		slog.ErrorContext(ctx, "Failed to load communities", "error", err)
		return
	}

	for _, c := range communities {
		cards := w.Render(ctx, c.Directory.Servers)
		if err := w.display.Show(ctx, c.Directory.ChannelID, BoardKey, cards); err != nil {
			slog.ErrorContext(ctx, "Failed to update directory board",
				"community_id", c.ID,
				"channel_id", c.Directory.ChannelID,
				"error", err)
		}
	}
}

// Render builds one card per tracked address, in the order given.
func (w *Watcher) Render(ctx context.Context, servers []string) []notification.Card {
	cards := make([]notification.Card, 0, len(servers))
	for _, ip := range servers {
		cards = append(cards, w.card(ctx, ip))
	}
	return cards
}

func (w *Watcher) card(ctx context.Context, ip string) notification.Card {
	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	rec, err := w.cache.LookupByKey(ctx, ip)
	if err != nil {
		slog.WarnContext(ctx, "Invalid tracked server address", "ip", ip, "error", err)
		return notification.Unavailable(ip, "invalid server address")
	}
	if rec == nil {
		return domain.NotFoundCard(ip, w.cache.Count())
	}
	return rec.Card(w.clock.Now())
}
