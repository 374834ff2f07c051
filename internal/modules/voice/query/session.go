package query

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/multiplay/go-ts3"
	"github.com/reshetovitsme/relaybot/internal/modules/voice/domain"
	"github.com/reshetovitsme/relaybot/internal/shared/errors"
	"github.com/samber/lo"
)

const (
	DefaultTimeout = 10 * time.Second

	// client_type of a regular voice client; query clients report 1.
	voiceClientType = 0
)

// Session is an authenticated ServerQuery connection bound to one virtual server.
type Session interface {
	ServerName() (string, error)
	Roster() (domain.Roster, error)
	Alive() bool
	Close() error
}

// Dialer opens, authenticates and selects the virtual server of a session.
type Dialer interface {
	Dial(ctx context.Context, cfg domain.VoiceServerConfig) (Session, error)
}

type TS3Dialer struct {
	Timeout time.Duration
}

func (d TS3Dialer) Dial(ctx context.Context, cfg domain.VoiceServerConfig) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Connection(err, "host", cfg.Host)
	}
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	client, err := ts3.NewClient(cfg.Address(), ts3.Timeout(timeout))
	if err != nil {
		return nil, errors.Connection(err, "host", cfg.Host)
	}
	if err := client.Login(cfg.Login, cfg.Password); err != nil {
		_ = client.Close()
		return nil, errors.Connection(err, "host", cfg.Host, "login", cfg.Login)
	}
	if err := client.Use(cfg.ServerID()); err != nil {
		_ = client.Logout()
		_ = client.Close()
		return nil, errors.Connection(err, "host", cfg.Host, "virtual_server_id", cfg.ServerID())
	}

	s := &ts3Session{client: client, host: cfg.Host}
	s.alive.Store(true)
	return s, nil
}

type ts3Session struct {
	client *ts3.Client
	host   string
	alive  atomic.Bool
}

func (s *ts3Session) ServerName() (string, error) {
	info, err := s.client.Server.Info()
	if err != nil {
		return "", s.fail(err)
	}
	return info.Name, nil
}

// Roster groups human clients by the name of the channel they sit in.
// Channels without clients are omitted.
func (s *ts3Session) Roster() (domain.Roster, error) {
	if !s.Alive() {
		return nil, errors.Connection(errors.ErrNotFound, "host", s.host, "reason", "session closed")
	}

	channels, err := s.client.Server.ChannelList()
	if err != nil {
		return nil, s.fail(err)
	}
	clients, err := s.client.Server.ClientList()
	if err != nil {
		return nil, s.fail(err)
	}

	return groupRoster(channels, clients), nil
}

func groupRoster(channels []*ts3.Channel, clients []*ts3.OnlineClient) domain.Roster {
	names := lo.SliceToMap(channels, func(ch *ts3.Channel) (int, string) {
		return ch.ID, ch.ChannelName
	})
	roster := domain.Roster{}
	for _, c := range clients {
		if c.Type != voiceClientType {
			continue
		}
		name := names[c.ChannelID]
		roster[name] = append(roster[name], c.Nickname)
	}
	return roster
}

func (s *ts3Session) Alive() bool {
	return s.alive.Load()
}

func (s *ts3Session) Close() error {
	if !s.alive.Swap(false) {
		return s.client.Close()
	}
	_ = s.client.Logout()
	return s.client.Close()
}

// fail wraps err as a connection error. Anything other than a query protocol
// error means the transport is gone and the session is marked dead.
func (s *ts3Session) fail(err error) error {
	var protocolErr *ts3.Error
	if !errors.As(err, &protocolErr) {
		s.alive.Store(false)
	}
	return errors.Connection(err, "host", s.host)
}
