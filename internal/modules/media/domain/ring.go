package domain

import "sync"

// DefaultRingSize is the number of recent post ids remembered per adapter.
const DefaultRingSize = 10000

// Ring remembers the last N ids pushed into it. Safe for concurrent use.
type Ring struct {
	mu    sync.Mutex
	ids   []string
	index map[string]int
	next  int
	full  bool
}

func NewRing(size int) *Ring {
	if size <= 0 {
		size = DefaultRingSize
	}
	return &Ring{
		ids:   make([]string, size),
		index: make(map[string]int, size),
	}
}

func (r *Ring) Contains(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.index[id]
	return ok
}

// Push records id, evicting the oldest entry when full. Pushing an id already
// present is a no-op.
func (r *Ring) Push(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.index[id]; ok {
		return
	}
	if r.full {
		delete(r.index, r.ids[r.next])
	}
	r.ids[r.next] = id
	r.index[id] = r.next
	r.next = (r.next + 1) % len(r.ids)
	if r.next == 0 {
		r.full = true
	}
}

func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.index)
}
