package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigHash_IgnoresTitle(t *testing.T) {
	a := VoiceServerConfig{Host: "ts.example.com", Login: "query", Password: "secret", VirtualServerID: 1, Title: "Main"}
	b := a
	b.Title = "Renamed"

	assert.Equal(t, a.ConfigHash(), b.ConfigHash())
}

func TestConfigHash_ChangesWithIdentity(t *testing.T) {
	base := VoiceServerConfig{Host: "ts.example.com", Login: "query", Password: "secret"}

	other := base
	other.Password = "changed"
	assert.NotEqual(t, base.ConfigHash(), other.ConfigHash())

	vs := base
	vs.VirtualServerID = 2
	assert.NotEqual(t, base.ConfigHash(), vs.ConfigHash())

	explicit := base
	explicit.VirtualServerID = 1
	assert.Equal(t, base.ConfigHash(), explicit.ConfigHash())
}

func TestAddress(t *testing.T) {
	assert.Equal(t, "ts.example.com:10011", VoiceServerConfig{Host: "ts.example.com"}.Address())
	assert.Equal(t, "ts.example.com:9987", VoiceServerConfig{Host: "ts.example.com:9987"}.Address())
}

func TestDisplayTitle(t *testing.T) {
	assert.Equal(t, "ts.example.com", VoiceServerConfig{Host: "ts.example.com"}.DisplayTitle())
	assert.Equal(t, "Main", VoiceServerConfig{Host: "ts.example.com", Title: "Main"}.DisplayTitle())
}

func TestRoster(t *testing.T) {
	r := Roster{"Lobby": {"a", "b"}, "AFK": {"c"}}
	assert.Equal(t, []string{"AFK", "Lobby"}, r.Channels())
	assert.Equal(t, 3, r.Size())
}
