package catalog

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/heroduel/game/engine"
)

const extraHeroes = `{
	"heroes": {
		"Fjorm": {"name": "Fjorm", "moveType": "infantry", "weaponType": "lance",
			"stats": {"hp": 42, "atk": 16, "spd": 35, "def": 27, "res": 32},
			"weapons": ["Iron Lance", "Leiptr"], "specials": ["Moonbow"]}
	},
	"weapons": {"Leiptr": {"name": "Leiptr", "type": "lance", "might": 16, "range": 1}},
	"maps": {"corridor": {"layout": ["........", "........"],
		"spawnsA": [{"x":0,"y":1},{"x":1,"y":1},{"x":2,"y":1},{"x":3,"y":1}],
		"spawnsB": [{"x":4,"y":0},{"x":5,"y":0},{"x":6,"y":0},{"x":7,"y":0}]}}
}`

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func TestNewManager(t *testing.T) {
	t.Run("built-in only", func(t *testing.T) {
		m, err := NewManager("")
		require.NoError(t, err)
		assert.Contains(t, m.ListHeroes(), "Alfonse")
		assert.Empty(t, m.Files())
	})

	t.Run("missing directory", func(t *testing.T) {
		_, err := NewManager(filepath.Join(t.TempDir(), "missing"))
		assert.Error(t, err)
	})

	t.Run("merges directory files", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "extra.json", extraHeroes)
		writeFile(t, dir, "notes.txt", "ignored")

		m, err := NewManager(dir)
		require.NoError(t, err)
		assert.Equal(t, []string{"extra.json"}, m.Files())
		assert.Contains(t, m.ListHeroes(), "Fjorm")
		assert.Contains(t, m.ListHeroes(), "Anna")
	})

	t.Run("broken file", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "broken.json", "{not json")
		_, err := NewManager(dir)
		assert.Error(t, err)
	})
}

func TestReloadKeepsPreviousDatasetOnError(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "extra.json", extraHeroes)
	m, err := NewManager(dir)
	require.NoError(t, err)

	writeFile(t, dir, "zz-broken.json", "{")
	assert.Error(t, m.Reload())
	assert.Contains(t, m.ListHeroes(), "Fjorm")
}

func TestMoveset(t *testing.T) {
	m, err := NewManager("")
	require.NoError(t, err)

	ms, err := m.Moveset("alfonse")
	require.NoError(t, err)
	assert.Equal(t, "Alfonse", ms.Name)
	assert.Equal(t, "red", ms.Color)
	assert.Equal(t, engine.Infantry, ms.MoveType)
	require.Len(t, ms.Weapons, 3)
	assert.Equal(t, "Iron Sword", ms.Weapons[0].Name)
	assert.Len(t, ms.Assists, 2)
	assert.Len(t, ms.PassivesB, 1)
	assert.Contains(t, ms.Seals, "Attack +3")
	assert.NotContains(t, ms.Seals, "Fury 3")

	_, err = m.Moveset("Nobody")
	assert.ErrorIs(t, err, ErrHeroNotFound)
}

func TestValidateTeamAndSimulation(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "extra.json", extraHeroes)
	m, err := NewManager(dir)
	require.NoError(t, err)

	fjorm := engine.HeroBuild{Name: "Fjorm", Weapon: "Leiptr", Rarity: engine.DefaultRarity}
	assert.Empty(t, m.ValidateTeam([]engine.HeroBuild{fjorm}))

	require.ErrorIs(t, m.SetMap("nowhere"), ErrMapNotFound)
	require.NoError(t, m.SetMap("corridor"))

	sim, err := m.NewSimulation(context.Background(), [2]engine.Team{
		{Owner: "alice", Heroes: []engine.HeroBuild{fjorm}},
		{Owner: "bob", Heroes: []engine.HeroBuild{{Name: "Anna", Rarity: engine.DefaultRarity}}},
	})
	require.NoError(t, err)
	assert.Equal(t, "corridor", sim.MapID())

	u, ok := sim.Unit("bob-unit-1")
	require.True(t, ok)
	assert.Equal(t, engine.Position{X: 4, Y: 0}, u.Pos)
}

func TestConcurrentAccess(t *testing.T) {
	m, err := NewManager("")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = m.Moveset("Anna")
		}()
		go func() {
			defer wg.Done()
			_ = m.Reload()
		}()
	}
	wg.Wait()
	assert.Contains(t, m.ListHeroes(), "Anna")
}
