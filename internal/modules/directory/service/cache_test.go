package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/reshetovitsme/relaybot/internal/modules/directory/domain"
	"github.com/reshetovitsme/relaybot/internal/shared/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	mu      sync.Mutex
	servers []domain.RawServer
	err     error
	calls   int
}

func (f *fakeSource) FetchServers(context.Context) ([]domain.RawServer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.servers, nil
}

func (f *fakeSource) set(servers []domain.RawServer, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.servers = servers
	f.err = err
}

func (f *fakeSource) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func raw(ip, name string) domain.RawServer {
	return domain.RawServer{
		IPAddress:   domain.Scalar(ip),
		Port:        "10308",
		Name:        domain.Scalar(name),
		MissionName: "Mission",
		Players:     "1",
		PlayersMax:  "8",
		MissionTime: "00:10:00",
	}
}

func TestCache_TTL(t *testing.T) {
	clock := clockwork.NewFakeClock()
	src := &fakeSource{servers: []domain.RawServer{raw("1.2.3.4", "Alpha")}}
	cache := NewCache(src, clock, DefaultTTL)
	ctx := context.Background()

	assert.Equal(t, domain.CacheStateEmpty, cache.State())

	rec, err := cache.LookupByKey(ctx, "1.2.3.4")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, 1, src.callCount())
	assert.Equal(t, domain.CacheStateFresh, cache.State())

	rec, err = cache.LookupByKey(ctx, "1.2.3.4:10308")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, 1, src.callCount(), "lookup within ttl must not refetch")

	clock.Advance(29 * time.Second)
	_, _ = cache.LookupByKey(ctx, "1.2.3.4")
	assert.Equal(t, 1, src.callCount())

	clock.Advance(time.Second)
	assert.Equal(t, domain.CacheStateStale, cache.State())
	_, _ = cache.LookupByKey(ctx, "1.2.3.4")
	assert.Equal(t, 2, src.callCount(), "lookup at ttl must refetch exactly once")

	_, _ = cache.LookupByKey(ctx, "1.2.3.4")
	assert.Equal(t, 2, src.callCount())
}

func TestCache_ServesStaleOnError(t *testing.T) {
	clock := clockwork.NewFakeClock()
	src := &fakeSource{servers: []domain.RawServer{raw("1.2.3.4", "Alpha")}}
	cache := NewCache(src, clock, DefaultTTL)
	ctx := context.Background()

	before, err := cache.LookupByKey(ctx, "1.2.3.4")
	require.NoError(t, err)
	require.NotNil(t, before)

	src.set(nil, errors.Transient(fmt.Errorf("connection reset")))
	clock.Advance(DefaultTTL)

	after, err := cache.LookupByKey(ctx, "1.2.3.4")
	require.NoError(t, err)
	require.NotNil(t, after)
	assert.Equal(t, *before, *after)
	assert.Equal(t, 2, src.callCount())
	assert.Equal(t, 1, cache.Count())

	// failed refresh leaves the cache stale so the next read retries
	_, _ = cache.LookupByKey(ctx, "1.2.3.4")
	assert.Equal(t, 3, src.callCount())
}

func TestCache_EmptyOnFirstFailure(t *testing.T) {
	clock := clockwork.NewFakeClock()
	src := &fakeSource{err: errors.Transient(fmt.Errorf("timeout"))}
	cache := NewCache(src, clock, DefaultTTL)

	rec, err := cache.LookupByKey(context.Background(), "1.2.3.4")
	require.NoError(t, err)
	assert.Nil(t, rec)
	assert.Equal(t, domain.CacheStateEmpty, cache.State())
}

func TestCache_SnapshotReplacedWholesale(t *testing.T) {
	clock := clockwork.NewFakeClock()
	src := &fakeSource{servers: []domain.RawServer{raw("1.2.3.4", "Alpha"), raw("5.6.7.8", "Beta")}}
	cache := NewCache(src, clock, DefaultTTL)
	ctx := context.Background()

	_, _ = cache.LookupByKey(ctx, "1.2.3.4")
	assert.Equal(t, 2, cache.Count())

	src.set([]domain.RawServer{raw("5.6.7.8", "Beta")}, nil)
	clock.Advance(DefaultTTL)

	rec, err := cache.LookupByKey(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.Nil(t, rec)
	assert.Equal(t, 1, cache.Count())
}

func TestCache_LookupRejectsMalformedAddress(t *testing.T) {
	src := &fakeSource{}
	cache := NewCache(src, clockwork.NewFakeClock(), DefaultTTL)

	_, err := cache.LookupByKey(context.Background(), "not-an-ip")
	assert.True(t, errors.IsValidation(err))
	assert.Zero(t, src.callCount())
}

func TestCache_Search(t *testing.T) {
	var servers []domain.RawServer
	for i := 0; i < 40; i++ {
		servers = append(servers, raw(fmt.Sprintf("10.0.0.%d", i), fmt.Sprintf("Training Server %d", i)))
	}
	servers = append(servers, raw("1.2.3.4", "Alpha Squadron"))

	src := &fakeSource{servers: servers}
	cache := NewCache(src, clockwork.NewFakeClock(), DefaultTTL)
	ctx := context.Background()

	t.Run("case insensitive", func(t *testing.T) {
		got, err := cache.Search(ctx, "alpha")
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "Alpha Squadron", got[0].Name)
	})

	t.Run("capped", func(t *testing.T) {
		got, err := cache.Search(ctx, "TRAINING")
		require.NoError(t, err)
		assert.Len(t, got, MaxSearch)
	})

	t.Run("exact ip", func(t *testing.T) {
		got, err := cache.Search(ctx, "1.2.3.4")
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "1.2.3.4:10308", got[0].IP)
	})

	t.Run("unknown ip", func(t *testing.T) {
		got, err := cache.Search(ctx, "9.9.9.9:1234")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("too short", func(t *testing.T) {
		got, err := cache.Search(ctx, "a")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	assert.Equal(t, 1, src.callCount())
}

func TestCache_ConcurrentReadsShareRefresh(t *testing.T) {
	src := &blockingSource{release: make(chan struct{}), servers: []domain.RawServer{raw("1.2.3.4", "Alpha")}}
	cache := NewCache(src, clockwork.NewFakeClock(), DefaultTTL)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = cache.LookupByKey(context.Background(), "1.2.3.4")
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(src.release)
	wg.Wait()

	assert.Equal(t, 1, src.callCount())
}

type blockingSource struct {
	fakeSource
	release chan struct{}
	servers []domain.RawServer
}

func (b *blockingSource) FetchServers(ctx context.Context) ([]domain.RawServer, error) {
	b.mu.Lock()
	b.calls++
	b.mu.Unlock()
	<-b.release
	return b.servers, nil
}
