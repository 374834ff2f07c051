package service

import (
	"testing"

	"github.com/reshetovitsme/relaybot/internal/modules/community/domain"
	"github.com/reshetovitsme/relaybot/internal/modules/community/repository"
	voiceDomain "github.com/reshetovitsme/relaybot/internal/modules/voice/domain"
	"github.com/reshetovitsme/relaybot/internal/shared/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T) (*Service, repository.Repository) {
	t.Helper()
	repo, err := repository.NewFileStorage(t.TempDir())
	require.NoError(t, err)
	return New(repo), repo
}

func TestMediaCommunities(t *testing.T) {
	svc, repo := newService(t)
	require.NoError(t, repo.SaveCommunity(&domain.Community{
		ID: "a", Enabled: true,
		Media: domain.MediaSettings{ChannelID: 1, Links: []string{"l1"}},
	}))
	require.NoError(t, repo.SaveCommunity(&domain.Community{
		ID: "b", Enabled: true,
		Media: domain.MediaSettings{Links: []string{"l1"}},
	}))
	require.NoError(t, repo.SaveCommunity(&domain.Community{
		ID: "c", Enabled: false,
		Media: domain.MediaSettings{ChannelID: 1, Links: []string{"l1"}},
	}))

	got, err := svc.MediaCommunities()
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].ID)
}

func TestSnapshot_NormalizesLinks(t *testing.T) {
	svc, repo := newService(t)
	require.NoError(t, repo.SaveCommunity(&domain.Community{
		ID: "a", Enabled: true,
		Media: domain.MediaSettings{ChannelID: 1, Links: []string{"l1", " l1", ""}},
	}))

	got, err := svc.Snapshot()
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []string{"l1"}, got[0].Media.Links)
}

func TestTrackUntrackLink(t *testing.T) {
	svc, repo := newService(t)
	require.NoError(t, repo.SaveCommunity(&domain.Community{ID: "a", Enabled: true}))

	added, err := svc.TrackLink("a", "https://twitch.tv/x", "live!")
	require.NoError(t, err)
	assert.True(t, added)

	added, err = svc.TrackLink("a", "https://twitch.tv/x", "")
	require.NoError(t, err)
	assert.False(t, added)

	stored, err := repo.GetCommunity("a")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://twitch.tv/x"}, stored.Media.Links)
	assert.Equal(t, "live!", stored.NotificationText("https://twitch.tv/x"))

	removed, err := svc.UntrackLink("a", "https://twitch.tv/x")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = svc.UntrackLink("a", "https://twitch.tv/x")
	require.NoError(t, err)
	assert.False(t, removed)

	stored, err = repo.GetCommunity("a")
	require.NoError(t, err)
	assert.Empty(t, stored.Media.Links)
	assert.Empty(t, stored.NotificationText("https://twitch.tv/x"))
}

func TestTrackLink_UnknownCommunity(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.TrackLink("missing", "https://twitch.tv/x", "")
	assert.ErrorIs(t, err, errors.ErrCommunityNotFound)
}

func TestDesiredVoiceServers_DedupesByHash(t *testing.T) {
	a := voiceDomain.VoiceServerConfig{Host: "ts1", Login: "q", Password: "p"}
	renamed := a
	renamed.Title = "Other title"
	b := voiceDomain.VoiceServerConfig{Host: "ts2", Login: "q", Password: "p"}

	got := DesiredVoiceServers([]*domain.Community{
		{Voice: domain.VoiceSettings{Servers: []voiceDomain.VoiceServerConfig{a, b}}},
		{Voice: domain.VoiceSettings{Servers: []voiceDomain.VoiceServerConfig{renamed}}},
	})

	assert.Len(t, got, 2)
}
