package tournament

import "sync"

// Registry tracks the matches the bot is orchestrating, addressable both by
// the tournament system's match id (for creation dedup) and by the room id
// (for chat and room events).
type Registry struct {
	mu         sync.RWMutex
	byBancho   map[int]*Match
	byMisirlou map[int]*Match
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byBancho:   make(map[int]*Match),
		byMisirlou: make(map[int]*Match),
	}
}

// Add registers a created match. Reports false when a match with the same
// tournament-system id is already tracked.
func (r *Registry) Add(m *Match) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.byMisirlou[m.ID]; dup {
		return false
	}
	r.byMisirlou[m.ID] = m
	if m.BanchoID != 0 {
		r.byBancho[m.BanchoID] = m
	}
	return true
}

// Link binds the match to its room id once the room exists.
func (r *Registry) Link(m *Match, banchoID int) {
	m.SetBanchoID(banchoID)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byBancho[banchoID] = m
}

// ByBancho returns the match played in a room.
func (r *Registry) ByBancho(id int) (*Match, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.byBancho[id]
	return m, ok
}

// Tracked reports whether a tournament-system match id is already managed.
func (r *Registry) Tracked(misirlouID int) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byMisirlou[misirlouID]
	return ok
}

// Remove forgets a finished match.
func (r *Registry) Remove(m *Match) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byMisirlou, m.ID)
	if m.BanchoID != 0 {
		delete(r.byBancho, m.BanchoID)
	}
}

// All snapshots the tracked matches.
func (r *Registry) All() []*Match {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Match, 0, len(r.byMisirlou))
	for _, m := range r.byMisirlou {
		out = append(out, m)
	}
	return out
}
