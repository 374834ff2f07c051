package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"github.com/reshetovitsme/relaybot/internal/metrics"
	"github.com/reshetovitsme/relaybot/internal/modules/voice/domain"
	"github.com/reshetovitsme/relaybot/internal/modules/voice/query"
	"github.com/reshetovitsme/relaybot/internal/shared/errors"
	"github.com/reshetovitsme/relaybot/internal/shared/retry"
	"github.com/samber/lo"
	"github.com/samber/oops"
)

// Connection is an open session together with the config it was opened for.
// ServerName is fetched once at connect time.
type Connection struct {
	Config     domain.VoiceServerConfig
	Session    query.Session
	ServerName string
}

// Title is the configured title, the fetched server name, or the host.
func (c *Connection) Title() string {
	return TitleFor(c.Config, c)
}

// TitleFor renders the title for cfg: its own title, then the server name of
// the open connection, then the host. Communities sharing one server keep
// their own titles.
func TitleFor(cfg domain.VoiceServerConfig, conn *Connection) string {
	if cfg.Title == "" && conn != nil && conn.ServerName != "" {
		return conn.ServerName
	}
	return cfg.DisplayTitle()
}

type ManagerConfig struct {
	Retry            retry.Policy
	FailureThreshold uint
	BreakerDelay     time.Duration
}

func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		Retry: retry.Policy{
			MaxAttempts:    3,
			InitialBackoff: time.Second,
			MaxBackoff:     5 * time.Second,
		},
		FailureThreshold: 3,
		BreakerDelay:     2 * time.Minute,
	}
}

// Manager owns every voice connection and reconciles them against the
// configured servers, keyed by config hash.
type Manager struct {
	dialer query.Dialer
	cfg    ManagerConfig

	mu       sync.Mutex
	open     map[string]*Connection
	breakers map[string]circuitbreaker.CircuitBreaker[any]
}

func NewManager(dialer query.Dialer, cfg ManagerConfig) *Manager {
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 1
	}
	return &Manager{
		dialer:   dialer,
		cfg:      cfg,
		open:     make(map[string]*Connection),
		breakers: make(map[string]circuitbreaker.CircuitBreaker[any]),
	}
}

// Reconcile opens connections for new hashes, closes connections whose hash
// is no longer desired and leaves the rest untouched. A connection whose
// session died is reopened, subject to its circuit breaker.
func (m *Manager) Reconcile(ctx context.Context, desired []domain.VoiceServerConfig) {
	m.mu.Lock()
	defer m.mu.Unlock()

	want := lo.SliceToMap(desired, func(c domain.VoiceServerConfig) (string, domain.VoiceServerConfig) {
		return c.ConfigHash(), c
	})

	for hash, conn := range m.open {
		if _, ok := want[hash]; !ok {
			m.close(ctx, hash, conn)
			delete(m.breakers, hash)
		}
	}

	for hash, cfg := range want {
		conn, ok := m.open[hash]
		switch {
		case ok && conn.Session.Alive():
			conn.Config = cfg
		case ok:
			slog.WarnContext(ctx, "Voice connection lost, reconnecting", "host", cfg.Host)
			m.close(ctx, hash, conn)
			m.connect(ctx, hash, cfg)
		default:
			m.connect(ctx, hash, cfg)
		}
	}

	metrics.VoiceConnectionsOpen.Set(float64(len(m.open)))
}

func (m *Manager) connect(ctx context.Context, hash string, cfg domain.VoiceServerConfig) {
	breaker := m.breaker(hash, cfg.Host)
	if !breaker.TryAcquirePermit() {
		slog.DebugContext(ctx, "Voice reconnect suppressed by circuit breaker", "host", cfg.Host)
		metrics.VoiceReconcileActions.WithLabelValues("open", "suppressed").Inc()
		return
	}

	session, err := retry.Do(ctx, m.cfg.Retry, retry.ByTaxonomy, func(ctx context.Context) (query.Session, error) {
		return m.dialer.Dial(ctx, cfg)
	})
	if err != nil {
		breaker.RecordError(err)
		metrics.VoiceReconcileActions.WithLabelValues("open", "error").Inc()
		slog.ErrorContext(ctx, "Failed to open voice connection",
			"host", cfg.Host,
			"virtual_server_id", cfg.ServerID(),
			"error", err)
		return
	}
	breaker.RecordSuccess()

	conn := &Connection{Config: cfg, Session: session}
	if name, err := session.ServerName(); err == nil {
		conn.ServerName = name
	} else {
		slog.WarnContext(ctx, "Failed to fetch voice server name", "host", cfg.Host, "error", err)
	}

	m.open[hash] = conn
	metrics.VoiceReconcileActions.WithLabelValues("open", "ok").Inc()
	slog.InfoContext(ctx, "Voice connection opened", "host", cfg.Host, "title", conn.Title())
}

func (m *Manager) close(ctx context.Context, hash string, conn *Connection) {
	delete(m.open, hash)
	if err := conn.Session.Close(); err != nil {
		metrics.VoiceReconcileActions.WithLabelValues("close", "error").Inc()
		slog.WarnContext(ctx, "Failed to close voice connection", "host", conn.Config.Host, "error", err)
		return
	}
	metrics.VoiceReconcileActions.WithLabelValues("close", "ok").Inc()
	slog.InfoContext(ctx, "Voice connection closed", "host", conn.Config.Host)
}

func (m *Manager) breaker(hash, host string) circuitbreaker.CircuitBreaker[any] {
	if cb, ok := m.breakers[hash]; ok {
		return cb
	}
	cb := circuitbreaker.Builder[any]().
		WithFailureThreshold(m.cfg.FailureThreshold).
		WithDelay(m.cfg.BreakerDelay).
		WithSuccessThreshold(1).
		OnStateChanged(func(e circuitbreaker.StateChangedEvent) {
			slog.Warn("Circuit breaker state changed",
				"component", "voice",
				"host", host,
				"from", e.OldState.String(),
				"to", e.NewState.String())
			metrics.CircuitBreakerStateChanges.WithLabelValues("voice", e.NewState.String()).Inc()
		}).
		Build()
	m.breakers[hash] = cb
	return cb
}

// Connection returns the open connection for a config hash.
func (m *Manager) Connection(hash string) (*Connection, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	conn, ok := m.open[hash]
	return conn, ok
}

// Hashes returns the hashes of the open connections.
func (m *Manager) Hashes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return lo.Keys(m.open)
}

// Roster reads the roster of an open connection. A hash with no open, live
// connection is a connection error rather than an empty roster.
func (m *Manager) Roster(ctx context.Context, hash string) (domain.Roster, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Connection(err, "hash", hash)
	}
	conn, ok := m.Connection(hash)
	if !ok || !conn.Session.Alive() {
		return nil, errors.Connection(oops.With("hash", hash).Errorf("voice connection not open"))
	}
	return conn.Session.Roster()
}

// Close logs out of every connection.
func (m *Manager) Close(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for hash, conn := range m.open {
		m.close(ctx, hash, conn)
	}
	metrics.VoiceConnectionsOpen.Set(0)
}
