package service

import (
	"context"
	"fmt"
	"sync"

	communityDomain "github.com/reshetovitsme/relaybot/internal/modules/community/domain"
	notification "github.com/reshetovitsme/relaybot/internal/modules/notification/domain"
	"github.com/reshetovitsme/relaybot/internal/modules/voice/domain"
	"github.com/reshetovitsme/relaybot/internal/modules/voice/query"
	"github.com/reshetovitsme/relaybot/internal/shared/errors"
)

type fakeSession struct {
	mu        sync.Mutex
	name      string
	roster    domain.Roster
	rosterErr error
	alive     bool
	closed    int
}

func (s *fakeSession) ServerName() (string, error) { return s.name, nil }

func (s *fakeSession) Roster() (domain.Roster, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roster, s.rosterErr
}

func (s *fakeSession) Alive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.alive
}

func (s *fakeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alive = false
	s.closed++
	return nil
}

func (s *fakeSession) kill() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alive = false
}

type fakeDialer struct {
	mu       sync.Mutex
	dials    map[string]int
	sessions map[string]*fakeSession
	failing  map[string]bool
	names    map[string]string
	rosters  map[string]domain.Roster
}

func newFakeDialer() *fakeDialer {
	return &fakeDialer{
		dials:    make(map[string]int),
		sessions: make(map[string]*fakeSession),
		failing:  make(map[string]bool),
		names:    make(map[string]string),
		rosters:  make(map[string]domain.Roster),
	}
}

func (d *fakeDialer) Dial(_ context.Context, cfg domain.VoiceServerConfig) (query.Session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials[cfg.Host]++
	if d.failing[cfg.Host] {
		return nil, errors.Connection(fmt.Errorf("dial %s: connection refused", cfg.Host))
	}
	s := &fakeSession{name: d.names[cfg.Host], roster: d.rosters[cfg.Host], alive: true}
	d.sessions[cfg.Host] = s
	return s, nil
}

func (d *fakeDialer) dialCount(host string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials[host]
}

func (d *fakeDialer) session(host string) *fakeSession {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sessions[host]
}

func server(host string) domain.VoiceServerConfig {
	return domain.VoiceServerConfig{Host: host, Login: "serveradmin", Password: "pw"}
}

type fakeCommunities struct {
	communities []*communityDomain.Community
}

func (f *fakeCommunities) VoiceCommunities() ([]*communityDomain.Community, error) {
	return f.communities, nil
}

type fakeDisplay struct {
	mu    sync.Mutex
	shown map[int64][]notification.Card
}

func (f *fakeDisplay) Show(_ context.Context, channelID int64, _ string, cards []notification.Card) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.shown == nil {
		f.shown = make(map[int64][]notification.Card)
	}
	f.shown[channelID] = cards
	return nil
}
