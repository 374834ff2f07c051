package service

import (
	"context"
	"sync"
	"testing"

	"github.com/jonboulle/clockwork"
	communityDomain "github.com/reshetovitsme/relaybot/internal/modules/community/domain"
	"github.com/reshetovitsme/relaybot/internal/modules/directory/domain"
	notification "github.com/reshetovitsme/relaybot/internal/modules/notification/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCommunities struct {
	communities []*communityDomain.Community
}

func (f *fakeCommunities) DirectoryCommunities() ([]*communityDomain.Community, error) {
	return f.communities, nil
}

type shown struct {
	channelID int64
	key       string
	cards     []notification.Card
}

type fakeDisplay struct {
	mu    sync.Mutex
	shown []shown
}

func (f *fakeDisplay) Show(_ context.Context, channelID int64, key string, cards []notification.Card) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shown = append(f.shown, shown{channelID: channelID, key: key, cards: cards})
	return nil
}

func TestWatcher_Tick(t *testing.T) {
	clock := clockwork.NewFakeClock()
	src := &fakeSource{servers: []domain.RawServer{raw("1.2.3.4", "Alpha"), raw("5.6.7.8", "Beta")}}
	cache := NewCache(src, clock, DefaultTTL)
	display := &fakeDisplay{}
	communities := &fakeCommunities{communities: []*communityDomain.Community{
		{ID: "one", Directory: communityDomain.DirectorySettings{ChannelID: 10, Servers: []string{"1.2.3.4", "9.9.9.9", "bogus"}}},
		{ID: "two", Directory: communityDomain.DirectorySettings{ChannelID: 20, Servers: []string{"5.6.7.8:10308"}}},
	}}

	w := NewWatcher(cache, communities, display, clock, 0, 0)
	w.Tick(context.Background())

	require.Len(t, display.shown, 2)
	assert.Equal(t, 1, src.callCount(), "one refresh serves every community")

	first := display.shown[0]
	assert.Equal(t, int64(10), first.channelID)
	assert.Equal(t, BoardKey, first.key)
	require.Len(t, first.cards, 3)
	assert.Equal(t, "Alpha", first.cards[0].Title)
	assert.Contains(t, first.cards[1].Description, "2 servers cached")
	assert.Equal(t, notification.ColorUnavailable, first.cards[2].Color)

	second := display.shown[1]
	require.Len(t, second.cards, 1)
	assert.Equal(t, "Beta", second.cards[0].Title)
}
