package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/reshetovitsme/relaybot/internal/modules/media/repository"
	apperrors "github.com/reshetovitsme/relaybot/internal/shared/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const link = "https://twitch.tv/pilot"

func newTestAdapter(t *testing.T) (*Adapter, *fakeFetcher, repository.Repository, *clockwork.FakeClock) {
	t.Helper()
	repo, err := repository.NewFileStorage(t.TempDir())
	require.NoError(t, err)
	clock := clockwork.NewFakeClock()
	f := newFakeFetcher("https://twitch.tv/")
	return NewAdapter(f, repo, clock, 100), f, repo, clock
}

func TestFetchNewPosts_FirstFetchIsBaseline(t *testing.T) {
	a, f, repo, _ := newTestAdapter(t)
	ctx := context.Background()
	f.publish(link, "old", 1000)
	f.publish(link, "newest", 2000)

	posts, err := a.FetchNewPosts(ctx, link)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "newest", posts[0].ID)
	assert.Equal(t, []int{1}, f.limits)

	ts, ok, err := repo.GetWatermark(ctx, link)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(2000), ts)

	posts, err = a.FetchNewPosts(ctx, link)
	require.NoError(t, err)
	assert.Empty(t, posts)
	assert.Equal(t, []int{1, 5}, f.limits)
}

func TestFetchNewPosts_ReturnsOnlyNewerAscending(t *testing.T) {
	a, f, _, _ := newTestAdapter(t)
	ctx := context.Background()
	f.publish(link, "p1", 1000)

	_, err := a.FetchNewPosts(ctx, link)
	require.NoError(t, err)

	f.publish(link, "p3", 3000)
	f.publish(link, "p2", 2000)

	posts, err := a.FetchNewPosts(ctx, link)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, "p2", posts[0].ID)
	assert.Equal(t, "p3", posts[1].ID)
}

func TestFetchNewPosts_RingSuppressesReorderedIDs(t *testing.T) {
	a, f, repo, _ := newTestAdapter(t)
	ctx := context.Background()
	f.publish(link, "p1", 1000)
	_, err := a.FetchNewPosts(ctx, link)
	require.NoError(t, err)

	f.publish(link, "p2", 2000)
	posts, err := a.FetchNewPosts(ctx, link)
	require.NoError(t, err)
	require.Len(t, posts, 1)

	// The platform re-reports p2 with a later timestamp.
	f.publish(link, "p2", 2500)
	posts, err = a.FetchNewPosts(ctx, link)
	require.NoError(t, err)
	assert.Empty(t, posts)

	ts, _, err := repo.GetWatermark(ctx, link)
	require.NoError(t, err)
	assert.Equal(t, int64(2000), ts)
}

func TestFetchNewPosts_NoDuplicateIDsAcrossCalls(t *testing.T) {
	a, f, _, _ := newTestAdapter(t)
	ctx := context.Background()

	seen := make(map[string]bool)
	for i := 0; i < 30; i++ {
		// Timestamps jitter backwards every third post.
		ts := int64(1000 + i*100)
		if i%3 == 0 {
			ts -= 250
		}
		f.publish(link, fmt.Sprintf("p%d", i), ts)
		if i%2 == 0 {
			f.publish(link, fmt.Sprintf("p%d", i), ts+50)
		}

		posts, err := a.FetchNewPosts(ctx, link)
		require.NoError(t, err)
		for _, p := range posts {
			assert.False(t, seen[p.ID], "post %s returned twice", p.ID)
			seen[p.ID] = true
		}
	}
}

func TestFetchNewPosts_WatermarkMonotonic(t *testing.T) {
	a, f, repo, _ := newTestAdapter(t)
	ctx := context.Background()

	var last int64
	for i, ts := range []int64{5000, 4000, 7000, 6000, 6500, 9000} {
		f.publish(link, fmt.Sprintf("p%d", i), ts)
		_, err := a.FetchNewPosts(ctx, link)
		require.NoError(t, err)

		wm, _, err := repo.GetWatermark(ctx, link)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, wm, last)
		last = wm
	}
	assert.Equal(t, int64(9000), last)
}

func TestFetchNewPosts_ErrorsAreClassified(t *testing.T) {
	a, f, repo, _ := newTestAdapter(t)
	ctx := context.Background()

	f.setErr(link, errors.New("connection reset"))
	_, err := a.FetchNewPosts(ctx, link)
	assert.True(t, apperrors.IsTransient(err))

	f.setErr(link, apperrors.Validation("bad channel id"))
	_, err = a.FetchNewPosts(ctx, link)
	assert.True(t, apperrors.IsValidation(err))

	_, ok, err := repo.GetWatermark(ctx, link)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFetchNewPosts_ConcurrentSameLink(t *testing.T) {
	a, f, _, _ := newTestAdapter(t)
	ctx := context.Background()
	f.publish(link, "p1", 1000)
	_, err := a.FetchNewPosts(ctx, link)
	require.NoError(t, err)
	f.publish(link, "p2", 2000)

	var mu sync.Mutex
	total := 0
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			posts, err := a.FetchNewPosts(ctx, link)
			assert.NoError(t, err)
			mu.Lock()
			total += len(posts)
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, total)
}

func TestIsDueAndScheduleNext(t *testing.T) {
	a, _, _, clock := newTestAdapter(t)

	assert.True(t, a.IsDue(clock.Now()))
	a.ScheduleNext(clock.Now())
	assert.False(t, a.IsDue(clock.Now()))

	clock.Advance(2 * time.Minute)
	assert.False(t, a.IsDue(clock.Now()))

	clock.Advance(time.Second)
	assert.True(t, a.IsDue(clock.Now()))
}

func TestDisable(t *testing.T) {
	a, _, _, _ := newTestAdapter(t)
	assert.False(t, a.Disabled())

	a.Disable(apperrors.Permanent("no credentials"))
	assert.True(t, a.Disabled())

	_, err := a.FetchNewPosts(context.Background(), link)
	assert.True(t, apperrors.IsPermanent(err))
	_, err = a.ResolveTitle(context.Background(), link)
	assert.True(t, apperrors.IsPermanent(err))
	_, err = a.Canonical(context.Background(), link)
	assert.True(t, apperrors.IsPermanent(err))
}

func TestCanonical(t *testing.T) {
	a, _, _, _ := newTestAdapter(t)

	got, err := a.Canonical(context.Background(), "https://twitch.tv/Pilot")
	require.NoError(t, err)
	assert.Equal(t, link, got)

	_, err = a.Canonical(context.Background(), "gopher://nowhere")
	assert.True(t, apperrors.IsValidation(err))
}

func TestRegistry_AdapterFor(t *testing.T) {
	a, _, _, _ := newTestAdapter(t)
	registry := Registry{a}

	found, ok := registry.AdapterFor(link)
	assert.True(t, ok)
	assert.Same(t, a, found)

	_, ok = registry.AdapterFor("gopher://nowhere")
	assert.False(t, ok)
}

func TestCard_CarriesSourceLink(t *testing.T) {
	a, _, _, _ := newTestAdapter(t)
	card := a.Card(domainPost("x", link))
	assert.Equal(t, link, card.Source)
}
