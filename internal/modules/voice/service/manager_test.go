package service

import (
	"context"
	"testing"
	"time"

	"github.com/reshetovitsme/relaybot/internal/modules/voice/domain"
	"github.com/reshetovitsme/relaybot/internal/shared/errors"
	"github.com/reshetovitsme/relaybot/internal/shared/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testManagerConfig() ManagerConfig {
	return ManagerConfig{
		Retry:            retry.Policy{MaxAttempts: 2, InitialBackoff: time.Millisecond},
		FailureThreshold: 2,
		BreakerDelay:     time.Hour,
	}
}

func TestManager_ReconcileKeepsUnchangedHandles(t *testing.T) {
	dialer := newFakeDialer()
	m := NewManager(dialer, testManagerConfig())
	ctx := context.Background()
	a, b, c := server("a.example"), server("b.example"), server("c.example")

	m.Reconcile(ctx, []domain.VoiceServerConfig{a, b})
	connA, ok := m.Connection(a.ConfigHash())
	require.True(t, ok)
	connB, ok := m.Connection(b.ConfigHash())
	require.True(t, ok)

	m.Reconcile(ctx, []domain.VoiceServerConfig{b, c})

	_, ok = m.Connection(a.ConfigHash())
	assert.False(t, ok, "A closed")
	assert.Equal(t, 1, connA.Session.(*fakeSession).closed)

	sameB, ok := m.Connection(b.ConfigHash())
	require.True(t, ok)
	assert.Same(t, connB, sameB, "B untouched")
	assert.Same(t, connB.Session, sameB.Session)
	assert.Equal(t, 1, dialer.dialCount("b.example"))

	_, ok = m.Connection(c.ConfigHash())
	assert.True(t, ok, "C opened")
	assert.ElementsMatch(t, []string{b.ConfigHash(), c.ConfigHash()}, m.Hashes())
}

func TestManager_TitleChangeDoesNotReconnect(t *testing.T) {
	dialer := newFakeDialer()
	m := NewManager(dialer, testManagerConfig())
	ctx := context.Background()

	cfg := server("a.example")
	m.Reconcile(ctx, []domain.VoiceServerConfig{cfg})
	before, _ := m.Connection(cfg.ConfigHash())

	cfg.Title = "Squadron comms"
	m.Reconcile(ctx, []domain.VoiceServerConfig{cfg})
	after, _ := m.Connection(cfg.ConfigHash())

	assert.Same(t, before, after)
	assert.Equal(t, "Squadron comms", after.Title())
	assert.Equal(t, 1, dialer.dialCount("a.example"))
}

func TestManager_RemovedTitleRevertsToServerName(t *testing.T) {
	dialer := newFakeDialer()
	dialer.names["a.example"] = "Alpha TS"
	m := NewManager(dialer, testManagerConfig())
	ctx := context.Background()

	cfg := server("a.example")
	cfg.Title = "Squadron comms"
	m.Reconcile(ctx, []domain.VoiceServerConfig{cfg})
	conn, _ := m.Connection(cfg.ConfigHash())
	assert.Equal(t, "Squadron comms", conn.Title())

	cfg.Title = ""
	m.Reconcile(ctx, []domain.VoiceServerConfig{cfg})
	conn, _ = m.Connection(cfg.ConfigHash())
	assert.Equal(t, "Alpha TS", conn.Title())
	assert.Equal(t, 1, dialer.dialCount("a.example"))
}

func TestManager_FetchesServerNameWhenUntitled(t *testing.T) {
	dialer := newFakeDialer()
	dialer.names["a.example"] = "Alpha TS"
	m := NewManager(dialer, testManagerConfig())

	cfg := server("a.example")
	m.Reconcile(context.Background(), []domain.VoiceServerConfig{cfg})

	conn, ok := m.Connection(cfg.ConfigHash())
	require.True(t, ok)
	assert.Equal(t, "Alpha TS", conn.Title())

	titled := server("b.example")
	titled.Title = "Configured"
	dialer.names["b.example"] = "Ignored"
	m.Reconcile(context.Background(), []domain.VoiceServerConfig{cfg, titled})
	conn, _ = m.Connection(titled.ConfigHash())
	assert.Equal(t, "Configured", conn.Title())
}

func TestManager_ReconnectsDeadSession(t *testing.T) {
	dialer := newFakeDialer()
	m := NewManager(dialer, testManagerConfig())
	ctx := context.Background()
	cfg := server("a.example")

	m.Reconcile(ctx, []domain.VoiceServerConfig{cfg})
	dialer.session("a.example").kill()

	_, err := m.Roster(ctx, cfg.ConfigHash())
	assert.True(t, errors.IsConnection(err))

	m.Reconcile(ctx, []domain.VoiceServerConfig{cfg})
	assert.Equal(t, 2, dialer.dialCount("a.example"))

	_, err = m.Roster(ctx, cfg.ConfigHash())
	assert.NoError(t, err)
}

func TestManager_FailureIsolatedAndBreakerOpens(t *testing.T) {
	dialer := newFakeDialer()
	dialer.failing["bad.example"] = true
	m := NewManager(dialer, testManagerConfig())
	ctx := context.Background()
	good, bad := server("good.example"), server("bad.example")

	m.Reconcile(ctx, []domain.VoiceServerConfig{good, bad})
	_, ok := m.Connection(good.ConfigHash())
	assert.True(t, ok)
	_, ok = m.Connection(bad.ConfigHash())
	assert.False(t, ok)
	assert.Equal(t, 2, dialer.dialCount("bad.example"), "retried within the tick")

	m.Reconcile(ctx, []domain.VoiceServerConfig{good, bad})
	assert.Equal(t, 4, dialer.dialCount("bad.example"))

	// two failed opens trip the breaker; further reconciles do not dial
	m.Reconcile(ctx, []domain.VoiceServerConfig{good, bad})
	assert.Equal(t, 4, dialer.dialCount("bad.example"))
	assert.Equal(t, 1, dialer.dialCount("good.example"))
}

func TestManager_RosterRequiresOpenConnection(t *testing.T) {
	m := NewManager(newFakeDialer(), testManagerConfig())

	roster, err := m.Roster(context.Background(), server("nowhere").ConfigHash())
	assert.Nil(t, roster)
	assert.True(t, errors.IsConnection(err))
}

func TestManager_Close(t *testing.T) {
	dialer := newFakeDialer()
	m := NewManager(dialer, testManagerConfig())
	ctx := context.Background()

	m.Reconcile(ctx, []domain.VoiceServerConfig{server("a.example"), server("b.example")})
	m.Close(ctx)

	assert.Empty(t, m.Hashes())
	assert.Equal(t, 1, dialer.session("a.example").closed)
	assert.Equal(t, 1, dialer.session("b.example").closed)
}
