package repository

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/reshetovitsme/relaybot/internal/modules/media/domain"
	"github.com/samber/lo"
	"github.com/samber/oops"
)

// FileStorage keeps all watermarks in one JSON file, rewritten on change.
type FileStorage struct {
	path    string
	mu      sync.RWMutex
	records map[string]int64
}

// NewFileStorage creates a file-based watermark repository under basePath.
func NewFileStorage(basePath string) (Repository, error) {
	dir := filepath.Join(basePath, "watermarks")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, oops.With("base_path", basePath, "context", "failed to create watermarks directory").Wrap(err)
	}

	s := &FileStorage{
		path:    filepath.Join(dir, "watermarks.json"),
		records: make(map[string]int64),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileStorage) GetWatermark(_ context.Context, link string) (int64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ts, ok := s.records[link]
	return ts, ok, nil
}

func (s *FileStorage) SaveWatermark(_ context.Context, link string, ts int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cur, ok := s.records[link]; ok && cur >= ts {
		return cur, nil
	}
	prev, had := s.records[link]
	s.records[link] = ts
	if err := s.flush(); err != nil {
		if had {
			s.records[link] = prev
		} else {
			delete(s.records, link)
		}
		return prev, oops.With("link", link, "context", "failed to persist watermark").Wrap(err)
	}
	return ts, nil
}

func (s *FileStorage) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return oops.With("path", s.path, "context", "failed to read watermarks").Wrap(err)
	}

	var records []domain.PostRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return oops.With("path", s.path, "context", "failed to unmarshal watermarks").Wrap(err)
	}
	s.records = lo.SliceToMap(records, func(r domain.PostRecord) (string, int64) {
		return r.Link, r.LastPostedTimestamp
	})
	return nil
}

func (s *FileStorage) flush() error {
	records := lo.MapToSlice(s.records, func(link string, ts int64) domain.PostRecord {
		return domain.PostRecord{Link: link, LastPostedTimestamp: ts}
	})
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
