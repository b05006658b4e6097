package team

import (
	"sync"

	"github.com/wricardo/heroduel/game/engine"
)

// Store keeps one roster per participant
type Store interface {
	Save(participant string, heroes []engine.HeroBuild)
	Load(participant string) ([]engine.HeroBuild, bool)
}

// MemoryStore is a process-lifetime Store; the last Save wins
type MemoryStore struct {
	teams map[string][]engine.HeroBuild
	mu    sync.RWMutex
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{teams: make(map[string][]engine.HeroBuild)}
}

// Save replaces the roster of participant
func (m *MemoryStore) Save(participant string, heroes []engine.HeroBuild) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.teams[participant] = append([]engine.HeroBuild(nil), heroes...)
}

// Load returns a copy of the roster of participant
func (m *MemoryStore) Load(participant string) ([]engine.HeroBuild, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	heroes, ok := m.teams[participant]
	if !ok {
		return nil, false
	}
	return append([]engine.HeroBuild(nil), heroes...), true
}
