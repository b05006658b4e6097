package engine

import (
	"encoding/json"
	"fmt"
	"os"
)

// MapConfig describes a battle map. Layout rows run top (y=0) to bottom,
// one character per tile: '.' plain, 'F' forest, 'M' mountain, 'W' water, '#' wall.
type MapConfig struct {
	ID      string     `json:"id"`
	Name    string     `json:"name"`
	Layout  []string   `json:"layout"`
	SpawnsA []Position `json:"spawnsA"`
	SpawnsB []Position `json:"spawnsB"`
}

var terrainByChar = map[rune]Terrain{
	'.': Plain,
	'F': Forest,
	'M': Mountain,
	'W': Water,
	'#': Wall,
}

// DefaultMapID is the map used when a factory is not told otherwise
const DefaultMapID = "arena"

// DefaultMap returns the built-in 6x8 arena
func DefaultMap() MapConfig {
	return MapConfig{
		ID:   DefaultMapID,
		Name: "Arena",
		Layout: []string{
			"......",
			".F..F.",
			"..MM..",
			".W..W.",
			".W..W.",
			"..MM..",
			".F..F.",
			"......",
		},
		SpawnsA: []Position{{1, 7}, {2, 7}, {3, 7}, {4, 7}},
		SpawnsB: []Position{{1, 0}, {2, 0}, {3, 0}, {4, 0}},
	}
}

// Width returns the number of columns
func (m *MapConfig) Width() int {
	if len(m.Layout) == 0 {
		return 0
	}
	return len(m.Layout[0])
}

// Height returns the number of rows
func (m *MapConfig) Height() int {
	return len(m.Layout)
}

// TerrainAt returns the terrain of a tile; ok is false outside the board
func (m *MapConfig) TerrainAt(p Position) (Terrain, bool) {
	if p.Y < 0 || p.Y >= len(m.Layout) || p.X < 0 || p.X >= len(m.Layout[p.Y]) {
		return "", false
	}
	t, ok := terrainByChar[rune(m.Layout[p.Y][p.X])]
	return t, ok
}

// ValidateMapConfig validates a map for correctness and playability
func ValidateMapConfig(config *MapConfig) error {
	if config.ID == "" {
		return fmt.Errorf("map validation: id is required")
	}
	if len(config.Layout) == 0 || len(config.Layout) > MaxBoardSize {
		return fmt.Errorf("map validation: layout must have between 1 and %d rows, got %d", MaxBoardSize, len(config.Layout))
	}

	width := len(config.Layout[0])
	if width == 0 || width > MaxBoardSize {
		return fmt.Errorf("map validation: rows must have between 1 and %d tiles, got %d", MaxBoardSize, width)
	}
	for i, row := range config.Layout {
		if len(row) != width {
			return fmt.Errorf("map validation: row %d must have %d tiles, got %d", i+1, width, len(row))
		}
		for j, char := range row {
			if _, ok := terrainByChar[char]; !ok {
				return fmt.Errorf("map validation: invalid character '%c' at row %d, col %d", char, i+1, j+1)
			}
		}
	}

	seen := make(map[Position]bool)
	for _, group := range []struct {
		name   string
		spawns []Position
	}{{"spawnsA", config.SpawnsA}, {"spawnsB", config.SpawnsB}} {
		if len(group.spawns) < MaxTeamSize {
			return fmt.Errorf("map validation: %s needs %d tiles, got %d", group.name, MaxTeamSize, len(group.spawns))
		}
		for _, p := range group.spawns {
			t, ok := config.TerrainAt(p)
			if !ok {
				return fmt.Errorf("map validation: %s tile (%d,%d) is off the board", group.name, p.X, p.Y)
			}
			if t == Wall || t == Water {
				return fmt.Errorf("map validation: %s tile (%d,%d) is %s", group.name, p.X, p.Y, t)
			}
			if seen[p] {
				return fmt.Errorf("map validation: tile (%d,%d) is used by more than one spawn", p.X, p.Y)
			}
			seen[p] = true
		}
	}

	return nil
}

// LoadDatasetFile reads a dataset JSON file
func LoadDatasetFile(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset file: %w", err)
	}

	d := NewDataset()
	if err := json.Unmarshal(data, d); err != nil {
		return nil, fmt.Errorf("failed to parse dataset file %s: %w", path, err)
	}
	for id, m := range d.Maps {
		if m.ID == "" {
			m.ID = id
			d.Maps[id] = m
		}
		if err := ValidateMapConfig(&m); err != nil {
			return nil, err
		}
	}
	return d, nil
}
