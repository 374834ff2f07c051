package repository

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/reshetovitsme/relaybot/internal/modules/community/domain"
	"github.com/reshetovitsme/relaybot/internal/shared/errors"
	"github.com/samber/lo"
	"github.com/samber/oops"
)

// FileStorage implements Repository with one JSON file per community
type FileStorage struct {
	basePath string
	mu       sync.RWMutex
}

// NewFileStorage creates a new file-based community repository
func NewFileStorage(basePath string) (Repository, error) {
	communityPath := filepath.Join(basePath, "communities")
	if err := os.MkdirAll(communityPath, 0755); err != nil {
		return nil, oops.With("base_path", basePath, "context", "failed to create communities directory").Wrap(err)
	}

	return &FileStorage{basePath: communityPath}, nil
}

func (s *FileStorage) SaveCommunity(community *domain.Community) error {
	if err := validateID(community.ID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(community, "", "  ")
	if err != nil {
		return oops.With("community_id", community.ID, "context", "failed to marshal community").Wrap(err)
	}

	return os.WriteFile(s.path(community.ID), data, 0644)
}

func (s *FileStorage) GetCommunity(communityID string) (*domain.Community, error) {
	if err := validateID(communityID); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.path(communityID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ErrCommunityNotFound
		}
		return nil, oops.With("community_id", communityID, "context", "failed to read community").Wrap(err)
	}

	var community domain.Community
	if err := json.Unmarshal(data, &community); err != nil {
		return nil, oops.With("community_id", communityID, "context", "failed to unmarshal community").Wrap(err)
	}

	return &community, nil
}

func (s *FileStorage) GetAllCommunities() ([]*domain.Community, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		return nil, oops.With("directory", s.basePath, "context", "failed to read communities directory").Wrap(err)
	}

	communities := lo.FilterMap(entries, func(entry os.DirEntry, _ int) (*domain.Community, bool) {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			return nil, false
		}

		data, err := os.ReadFile(filepath.Join(s.basePath, entry.Name()))
		if err != nil {
			return nil, false
		}

		var community domain.Community
		if err := json.Unmarshal(data, &community); err != nil {
			return nil, false
		}

		return &community, true
	})

	sort.Slice(communities, func(i, j int) bool { return communities[i].ID < communities[j].ID })
	return communities, nil
}

// validateID rejects ids that would escape the storage directory.
func validateID(communityID string) error {
	if communityID == "" || filepath.Base(communityID) != communityID {
		return errors.Validation("invalid community id %q", communityID)
	}
	return nil
}

func (s *FileStorage) path(communityID string) string {
	return filepath.Join(s.basePath, communityID+".json")
}
