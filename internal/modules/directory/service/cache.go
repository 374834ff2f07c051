package service

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/reshetovitsme/relaybot/internal/metrics"
	"github.com/reshetovitsme/relaybot/internal/modules/directory/domain"
	"github.com/samber/lo"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultTTL     = 30 * time.Second
	MaxSearch      = 25
	MinSearchQuery = 2
)

// Cache holds the latest directory snapshot. A read past nextRefresh
// triggers a refresh; a failed refresh keeps the previous snapshot.
type Cache struct {
	source Source
	clock  clockwork.Clock
	ttl    time.Duration
	group  singleflight.Group

	mu          sync.RWMutex
	servers     []domain.ServerRecord
	byIP        map[string]domain.ServerRecord
	loaded      bool
	nextRefresh time.Time
}

func NewCache(source Source, clock clockwork.Clock, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		source: source,
		clock:  clock,
		ttl:    ttl,
		byIP:   make(map[string]domain.ServerRecord),
	}
}

func (c *Cache) State() domain.CacheState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	switch {
	case !c.loaded:
		return domain.CacheStateEmpty
	case c.clock.Now().Before(c.nextRefresh):
		return domain.CacheStateFresh
	default:
		return domain.CacheStateStale
	}
}

// LookupByKey returns the record for an address. The address is normalized
// first; malformed input is a validation error.
func (c *Cache) LookupByKey(ctx context.Context, ip string) (*domain.ServerRecord, error) {
	key, err := domain.NormalizeIP(ip)
	if err != nil {
		return nil, err
	}
	c.ensureFresh(ctx)

	c.mu.RLock()
	defer c.mu.RUnlock()
	rec, ok := c.byIP[key]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

// Search matches server names case-insensitively. A query that is exactly an
// address is looked up by key instead.
func (c *Cache) Search(ctx context.Context, query string) ([]domain.ServerRecord, error) {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < MinSearchQuery {
		return nil, nil
	}

	if domain.IsIP(query) {
		rec, err := c.LookupByKey(ctx, query)
		if err != nil || rec == nil {
			return nil, err
		}
		return []domain.ServerRecord{*rec}, nil
	}

	c.ensureFresh(ctx)

	needle := strings.ToLower(query)
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []domain.ServerRecord
	for _, s := range c.servers {
		if strings.Contains(strings.ToLower(s.Name), needle) {
			out = append(out, s)
			if len(out) == MaxSearch {
				break
			}
		}
	}
	return out, nil
}

// Count is the size of the current snapshot without triggering a refresh.
func (c *Cache) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.servers)
}

func (c *Cache) ensureFresh(ctx context.Context) {
	c.mu.RLock()
	due := !c.loaded || !c.clock.Now().Before(c.nextRefresh)
	c.mu.RUnlock()
	if !due {
		return
	}

	_, _, _ = c.group.Do("refresh", func() (any, error) {
		c.mu.RLock()
		due := !c.loaded || !c.clock.Now().Before(c.nextRefresh)
		c.mu.RUnlock()
		if !due {
			return nil, nil
		}
		return nil, c.refresh(ctx)
	})
}

func (c *Cache) refresh(ctx context.Context) error {
	fetchedAt := c.clock.Now()
	raw, err := c.source.FetchServers(ctx)
	if err != nil {
		metrics.DirectoryRefreshes.WithLabelValues("error").Inc()
		slog.ErrorContext(ctx, "Directory refresh failed, serving previous snapshot",
			"error", err,
			"cached", c.Count())
		return err
	}

	servers := lo.FilterMap(raw, func(s domain.RawServer, _ int) (domain.ServerRecord, bool) {
		return s.Record(fetchedAt)
	})
	index := lo.SliceToMap(servers, func(s domain.ServerRecord) (string, domain.ServerRecord) {
		return s.IP, s
	})

	c.mu.Lock()
	c.servers = servers
	c.byIP = index
	c.loaded = true
	c.nextRefresh = c.clock.Now().Add(c.ttl)
	c.mu.Unlock()

	metrics.DirectoryRefreshes.WithLabelValues("ok").Inc()
	metrics.DirectoryServers.Set(float64(len(servers)))
	slog.DebugContext(ctx, "Directory refreshed", "servers", len(servers), "skipped", len(raw)-len(servers))
	return nil
}
