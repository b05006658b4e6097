package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateMapConfig(t *testing.T) {
	t.Run("default map", func(t *testing.T) {
		m := DefaultMap()
		assert.NoError(t, ValidateMapConfig(&m))
		assert.Equal(t, 6, m.Width())
		assert.Equal(t, 8, m.Height())
	})

	tests := []struct {
		name   string
		mutate func(m *MapConfig)
	}{
		{"missing id", func(m *MapConfig) { m.ID = "" }},
		{"ragged rows", func(m *MapConfig) { m.Layout[2] = "..." }},
		{"unknown terrain", func(m *MapConfig) { m.Layout[0] = "..X..." }},
		{"too tall", func(m *MapConfig) {
			for i := 0; i < 3; i++ {
				m.Layout = append(m.Layout, "......")
			}
		}},
		{"spawn on water", func(m *MapConfig) { m.SpawnsA[0] = Position{1, 3} }},
		{"spawn off board", func(m *MapConfig) { m.SpawnsB[0] = Position{9, 9} }},
		{"shared spawn", func(m *MapConfig) { m.SpawnsB[0] = m.SpawnsA[0] }},
		{"too few spawns", func(m *MapConfig) { m.SpawnsA = m.SpawnsA[:2] }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := DefaultMap()
			tt.mutate(&m)
			assert.Error(t, ValidateMapConfig(&m))
		})
	}
}

func TestTerrainAt(t *testing.T) {
	m := DefaultMap()

	terrain, ok := m.TerrainAt(Position{1, 6})
	require.True(t, ok)
	assert.Equal(t, Forest, terrain)

	terrain, ok = m.TerrainAt(Position{2, 2})
	require.True(t, ok)
	assert.Equal(t, Mountain, terrain)

	_, ok = m.TerrainAt(Position{6, 0})
	assert.False(t, ok)
	_, ok = m.TerrainAt(Position{0, -1})
	assert.False(t, ok)
}

func TestLoadDatasetFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "extra.json")
	content := `{
		"heroes": {"Fjorm": {"name": "Fjorm", "moveType": "infantry", "weaponType": "lance",
			"stats": {"hp": 42, "atk": 16, "spd": 35, "def": 27, "res": 32}, "weapons": ["Iron Lance"]}},
		"maps": {"small": {"layout": ["....", "...."],
			"spawnsA": [{"x":0,"y":1},{"x":1,"y":1},{"x":2,"y":1},{"x":3,"y":1}],
			"spawnsB": [{"x":0,"y":0},{"x":1,"y":0},{"x":2,"y":0},{"x":3,"y":0}]}}
	}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	d, err := LoadDatasetFile(path)
	require.NoError(t, err)
	assert.Contains(t, d.Heroes, "Fjorm")
	assert.Equal(t, "small", d.Maps["small"].ID)

	merged := DefaultDataset()
	merged.Merge(d)
	assert.Contains(t, merged.HeroNames(), "Fjorm")
	assert.Contains(t, merged.HeroNames(), "Alfonse")

	t.Run("invalid map", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{"maps": {"x": {"layout": ["..."]}}}`), 0644))
		_, err := LoadDatasetFile(bad)
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadDatasetFile(filepath.Join(dir, "nope.json"))
		assert.Error(t, err)
	})
}
