package repository

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/reshetovitsme/relaybot/internal/modules/operator/domain"
	"github.com/reshetovitsme/relaybot/internal/shared/errors"
	"github.com/samber/oops"
)

// FileStorage implements Repository with one JSON file per operator
type FileStorage struct {
	basePath string
	mu       sync.RWMutex
}

// NewFileStorage creates a new file-based operator repository
func NewFileStorage(basePath string) (Repository, error) {
	operatorPath := filepath.Join(basePath, "operators")
	if err := os.MkdirAll(operatorPath, 0755); err != nil {
		return nil, oops.With("base_path", basePath, "context", "failed to create operators directory").Wrap(err)
	}

	return &FileStorage{basePath: operatorPath}, nil
}

func (s *FileStorage) SaveOperator(operator *domain.Operator) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(operator, "", "  ")
	if err != nil {
		return oops.With("operator_id", operator.ID, "context", "failed to marshal operator").Wrap(err)
	}

	return os.WriteFile(s.path(operator.ID), data, 0644)
}

func (s *FileStorage) GetOperator(operatorID int64) (*domain.Operator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.path(operatorID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, oops.With("operator_id", operatorID).Wrap(errors.ErrNotFound)
		}
		return nil, oops.With("operator_id", operatorID, "context", "failed to read operator").Wrap(err)
	}

	var operator domain.Operator
	if err := json.Unmarshal(data, &operator); err != nil {
		return nil, oops.With("operator_id", operatorID, "context", "failed to unmarshal operator").Wrap(err)
	}

	return &operator, nil
}

func (s *FileStorage) GetAllOperators() ([]*domain.Operator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		return nil, oops.With("directory", s.basePath, "context", "failed to read operators directory").Wrap(err)
	}

	var operators []*domain.Operator
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}

		data, err := os.ReadFile(filepath.Join(s.basePath, entry.Name()))
		if err != nil {
			slog.Warn("Skipping unreadable operator file", "file", entry.Name(), "error", err)
			continue
		}

		var operator domain.Operator
		if err := json.Unmarshal(data, &operator); err != nil {
			slog.Warn("Skipping malformed operator file", "file", entry.Name(), "error", err)
			continue
		}

		operators = append(operators, &operator)
	}

	sort.Slice(operators, func(i, j int) bool { return operators[i].ID < operators[j].ID })
	return operators, nil
}

func (s *FileStorage) path(operatorID int64) string {
	return filepath.Join(s.basePath, fmt.Sprintf("%d.json", operatorID))
}
