package service

import (
	"sync"
	"time"

	"github.com/reshetovitsme/relaybot/internal/modules/notification/domain"
)

const defaultJournalSize = 50

// Entry is a delivered card together with the time it was handed to the sink.
type Entry struct {
	Card        domain.Card
	DeliveredAt time.Time
}

// Journal keeps the last delivered cards per community in memory.
type Journal struct {
	size    int
	mu      sync.RWMutex
	entries map[string][]Entry
}

func NewJournal(size int) *Journal {
	if size <= 0 {
		size = defaultJournalSize
	}
	return &Journal{
		size:    size,
		entries: make(map[string][]Entry),
	}
}

func (j *Journal) Record(communityID string, at time.Time, cards ...domain.Card) {
	if len(cards) == 0 {
		return
	}
	j.mu.Lock()
	defer j.mu.Unlock()

	list := j.entries[communityID]
	for _, c := range cards {
		list = append(list, Entry{Card: c, DeliveredAt: at})
	}
	if over := len(list) - j.size; over > 0 {
		list = append([]Entry(nil), list[over:]...)
	}
	j.entries[communityID] = list
}

// Recent returns up to limit entries, newest first.
func (j *Journal) Recent(communityID string, limit int) []Entry {
	j.mu.RLock()
	defer j.mu.RUnlock()

	list := j.entries[communityID]
	if limit <= 0 || limit > len(list) {
		limit = len(list)
	}
	out := make([]Entry, 0, limit)
	for i := len(list) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, list[i])
	}
	return out
}
