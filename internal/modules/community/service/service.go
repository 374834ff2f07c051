package service

import (
	"sync"

	"github.com/reshetovitsme/relaybot/internal/modules/community/domain"
	"github.com/reshetovitsme/relaybot/internal/modules/community/repository"
	voiceDomain "github.com/reshetovitsme/relaybot/internal/modules/voice/domain"
	"github.com/samber/lo"
	"github.com/samber/oops"
)

// Service handles community config access
type Service struct {
	repo repository.Repository
	// mu serializes read-modify-write cycles on community files.
	mu sync.Mutex
}

// New creates a new community service
func New(repo repository.Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) GetCommunity(communityID string) (*domain.Community, error) {
	community, err := s.repo.GetCommunity(communityID)
	if err != nil {
		return nil, err
	}
	community.Normalize()
	return community, nil
}

// TrackLink adds a media link to a community, optionally with its
// notification text. It reports whether the link was not tracked before.
func (s *Service) TrackLink(communityID, link, text string) (bool, error) {
	var added bool
	err := s.update(communityID, func(c *domain.Community) bool {
		added = c.AddLink(link, text)
		return added || text != ""
	})
	return added, err
}

// UntrackLink removes a media link from a community. It reports whether the
// link was tracked.
func (s *Service) UntrackLink(communityID, link string) (bool, error) {
	var removed bool
	err := s.update(communityID, func(c *domain.Community) bool {
		removed = c.RemoveLink(link)
		return removed
	})
	return removed, err
}

func (s *Service) update(communityID string, mutate func(*domain.Community) bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	community, err := s.GetCommunity(communityID)
	if err != nil {
		return err
	}
	if !mutate(community) {
		return nil
	}
	if err := s.repo.SaveCommunity(community); err != nil {
		return oops.With("community_id", communityID, "context", "failed to save community").Wrap(err)
	}
	return nil
}

// Snapshot returns every stored community. Schedulers call it once per tick.
func (s *Service) Snapshot() ([]*domain.Community, error) {
	communities, err := s.repo.GetAllCommunities()
	if err != nil {
		return nil, oops.With("context", "failed to load communities").Wrap(err)
	}
	for _, c := range communities {
		c.Normalize()
	}
	return communities, nil
}

// MediaCommunities returns communities with an enabled media output.
func (s *Service) MediaCommunities() ([]*domain.Community, error) {
	return s.filtered((*domain.Community).HasMediaOutput)
}

// DirectoryCommunities returns communities with an enabled directory board.
func (s *Service) DirectoryCommunities() ([]*domain.Community, error) {
	return s.filtered((*domain.Community).HasDirectoryOutput)
}

// VoiceCommunities returns communities with an enabled voice board.
func (s *Service) VoiceCommunities() ([]*domain.Community, error) {
	return s.filtered((*domain.Community).HasVoiceOutput)
}

// DesiredVoiceServers returns the union of voice configs across communities,
// one entry per config hash.
func DesiredVoiceServers(communities []*domain.Community) []voiceDomain.VoiceServerConfig {
	all := lo.FlatMap(communities, func(c *domain.Community, _ int) []voiceDomain.VoiceServerConfig {
		return c.Voice.Servers
	})
	return lo.UniqBy(all, voiceDomain.VoiceServerConfig.ConfigHash)
}

func (s *Service) filtered(keep func(*domain.Community) bool) ([]*domain.Community, error) {
	communities, err := s.Snapshot()
	if err != nil {
		return nil, err
	}
	return lo.Filter(communities, func(c *domain.Community, _ int) bool { return keep(c) }), nil
}
