package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/wricardo/heroduel/game/engine"
)

var (
	ErrHeroNotFound = errors.New("hero not found")
	ErrMapNotFound  = errors.New("map not found")
)

// Moveset is everything a hero can field, as served by GET /moveset
type Moveset struct {
	Name       string                `json:"name"`
	MoveType   engine.MoveType       `json:"moveType"`
	WeaponType engine.WeaponType     `json:"weaponType"`
	Color      string                `json:"color"`
	Stats      engine.Stats          `json:"stats"`
	Weapons    []engine.WeaponSkill  `json:"weapons"`
	Assists    []engine.AssistSkill  `json:"assists"`
	Specials   []engine.SpecialSkill `json:"specials"`
	PassivesA  []engine.PassiveSkill `json:"passivesA"`
	PassivesB  []engine.PassiveSkill `json:"passivesB"`
	PassivesC  []engine.PassiveSkill `json:"passivesC"`
	Seals      []string              `json:"seals"`
}

// Manager loads hero and skill data on top of the built-in dataset and
// builds simulations from it
type Manager struct {
	dir     string
	mapID   string
	dataset *engine.Dataset
	files   []string
	mu      sync.RWMutex
}

// NewManager creates a catalog manager. An empty dir serves the built-in
// dataset only; otherwise every *.json file in dir is merged over it.
func NewManager(dir string) (*Manager, error) {
	if dir != "" {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			return nil, fmt.Errorf("catalog directory does not exist: %s", dir)
		}
	}

	m := &Manager{dir: dir, mapID: engine.DefaultMapID}
	if err := m.Reload(); err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	return m, nil
}

// Reload rebuilds the dataset from disk. The previous dataset stays in use if loading fails.
func (m *Manager) Reload() error {
	dataset := engine.DefaultDataset()
	var files []string

	if m.dir != "" {
		entries, err := os.ReadDir(m.dir)
		if err != nil {
			return fmt.Errorf("failed to read catalog directory: %w", err)
		}
		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
				continue
			}
			extra, err := engine.LoadDatasetFile(filepath.Join(m.dir, entry.Name()))
			if err != nil {
				return err
			}
			dataset.Merge(extra)
			files = append(files, entry.Name())
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.dataset = dataset
	m.files = files
	return nil
}

// Dataset returns the current dataset. Callers must not modify it.
func (m *Manager) Dataset() *engine.Dataset {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.dataset
}

// Files lists the dataset files merged on the last load
func (m *Manager) Files() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.files...)
}

// SetMap selects the map new simulations are built on
func (m *Manager) SetMap(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.dataset.Maps[id]; !ok {
		return fmt.Errorf("%w: %s", ErrMapNotFound, id)
	}
	m.mapID = id
	return nil
}

// ListHeroes returns the sorted hero names
func (m *Manager) ListHeroes() []string {
	return m.Dataset().HeroNames()
}

// ValidateTeam implements engine.Validator
func (m *Manager) ValidateTeam(heroes []engine.HeroBuild) []engine.ValidationError {
	return m.Dataset().ValidateTeam(heroes)
}

// NewSimulation implements engine.Factory on the selected map
func (m *Manager) NewSimulation(ctx context.Context, teams [2]engine.Team) (engine.Simulation, error) {
	m.mu.RLock()
	dataset, mapID := m.dataset, m.mapID
	m.mu.RUnlock()
	return engine.NewFactory(dataset, mapID).NewSimulation(ctx, teams)
}

// Moveset returns a hero's learnable kit. Names match case-insensitively.
func (m *Manager) Moveset(name string) (*Moveset, error) {
	d := m.Dataset()

	def, ok := d.Heroes[name]
	if !ok {
		for key, h := range d.Heroes {
			if strings.EqualFold(key, name) {
				def, ok = h, true
				break
			}
		}
	}
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrHeroNotFound, name)
	}

	ms := &Moveset{
		Name:       def.Name,
		MoveType:   def.MoveType,
		WeaponType: def.WeaponType,
		Color:      def.WeaponType.Color(),
		Stats:      def.Stats,
		Weapons:    []engine.WeaponSkill{},
		Assists:    []engine.AssistSkill{},
		Specials:   []engine.SpecialSkill{},
		PassivesA:  []engine.PassiveSkill{},
		PassivesB:  []engine.PassiveSkill{},
		PassivesC:  []engine.PassiveSkill{},
		Seals:      []string{},
	}
	for _, n := range def.Weapons {
		if w, ok := d.Weapons[n]; ok {
			ms.Weapons = append(ms.Weapons, w)
		}
	}
	for _, n := range def.Assists {
		if a, ok := d.Assists[n]; ok {
			ms.Assists = append(ms.Assists, a)
		}
	}
	for _, n := range def.Specials {
		if s, ok := d.Specials[n]; ok {
			ms.Specials = append(ms.Specials, s)
		}
	}
	for _, slot := range []struct {
		names []string
		out   *[]engine.PassiveSkill
	}{{def.PassivesA, &ms.PassivesA}, {def.PassivesB, &ms.PassivesB}, {def.PassivesC, &ms.PassivesC}} {
		for _, n := range slot.names {
			if p, ok := d.Passives[n]; ok {
				*slot.out = append(*slot.out, p)
			}
		}
	}
	for n, p := range d.Passives {
		if p.Seal {
			ms.Seals = append(ms.Seals, n)
		}
	}
	sort.Strings(ms.Seals)

	return ms, nil
}
