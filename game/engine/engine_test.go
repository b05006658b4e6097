package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hero(name, weapon string) HeroBuild {
	return HeroBuild{Name: name, Weapon: weapon, Rarity: DefaultRarity}
}

// plainMap is a 6x3 field with no terrain. SideA spawns on the bottom row, SideB on the top.
func plainMap() MapConfig {
	return MapConfig{
		ID:      "plain",
		Layout:  []string{"......", "......", "......"},
		SpawnsA: []Position{{0, 2}, {1, 2}, {2, 2}, {3, 2}},
		SpawnsB: []Position{{0, 0}, {1, 0}, {2, 0}, {3, 0}},
	}
}

func newBattle(t *testing.T, mapCfg MapConfig, a, b []HeroBuild) *Battle {
	t.Helper()
	dataset := DefaultDataset()
	dataset.Maps[mapCfg.ID] = mapCfg
	battle, err := NewBattle(dataset, mapCfg.ID, [2]Team{
		{Owner: "alice", Heroes: a},
		{Owner: "bob", Heroes: b},
	})
	require.NoError(t, err)
	return battle
}

func TestNewBattle(t *testing.T) {
	battle := newBattle(t, DefaultMap(),
		[]HeroBuild{hero("Alfonse", "Silver Sword"), hero("Sharena", "Silver Lance")},
		[]HeroBuild{hero("Anna", "Silver Axe")},
	)

	assert.Equal(t, DefaultMapID, battle.MapID())
	assert.Equal(t, TurnState{Turn: 1, CurrentSide: SideA, Sequence: 1}, battle.TurnState())

	units := battle.Units()
	require.Len(t, units, 3)
	assert.Equal(t, "alice-unit-1", units[0].ID)
	assert.Equal(t, Position{1, 7}, units[0].Pos)
	assert.Equal(t, SideA, units[0].Side)
	assert.Equal(t, "alice-unit-2", units[1].ID)
	assert.Equal(t, "bob-unit-1", units[2].ID)
	assert.Equal(t, SideB, units[2].Side)
	assert.Equal(t, Position{1, 0}, units[2].Pos)

	t.Run("stats include weapon might", func(t *testing.T) {
		u, ok := battle.Unit("alice-unit-1")
		require.True(t, ok)
		assert.Equal(t, 19+11, u.Stats.Atk)
		assert.Equal(t, 43, u.HP)
	})

	t.Run("unknown map", func(t *testing.T) {
		_, err := NewBattle(DefaultDataset(), "nowhere", [2]Team{{Owner: "a"}, {Owner: "b"}})
		assert.ErrorIs(t, err, ErrMapNotFound)
	})

	t.Run("empty team", func(t *testing.T) {
		_, err := NewBattle(DefaultDataset(), DefaultMapID, [2]Team{
			{Owner: "alice", Heroes: []HeroBuild{hero("Alfonse", "")}},
			{Owner: "bob"},
		})
		assert.ErrorIs(t, err, ErrInvalidTeam)
	})

	t.Run("same owner twice", func(t *testing.T) {
		_, err := NewBattle(DefaultDataset(), DefaultMapID, [2]Team{
			{Owner: "alice", Heroes: []HeroBuild{hero("Alfonse", "")}},
			{Owner: "alice", Heroes: []HeroBuild{hero("Anna", "")}},
		})
		assert.ErrorIs(t, err, ErrInvalidTeam)
	})
}

func TestBuildUnitModifiers(t *testing.T) {
	d := DefaultDataset()

	base, err := d.BuildUnit(hero("Anna", "Iron Axe"))
	require.NoError(t, err)

	build := hero("Anna", "Iron Axe")
	build.Asset = "atk"
	build.Flaw = "hp"
	build.Merges = 1
	build.PassiveA = "Attack +3"
	tuned, err := d.BuildUnit(build)
	require.NoError(t, err)

	// asset +3, one merge gives hp+1 and atk+1, Attack +3
	assert.Equal(t, base.Stats.Atk+3+1+3, tuned.Stats.Atk)
	assert.Equal(t, base.Stats.HP-3+1, tuned.Stats.HP)
	assert.Equal(t, tuned.Stats.HP, tuned.HP)

	t.Run("default weapon", func(t *testing.T) {
		u, err := d.BuildUnit(hero("Anna", ""))
		require.NoError(t, err)
		assert.Equal(t, "Iron Axe", u.Weapon.Name)
	})

	t.Run("unknown hero", func(t *testing.T) {
		_, err := d.BuildUnit(hero("Nobody", ""))
		assert.Error(t, err)
	})
}

func TestFactory(t *testing.T) {
	factory := NewFactory(DefaultDataset(), "")
	teams := [2]Team{
		{Owner: "alice", Heroes: []HeroBuild{hero("Alfonse", "")}},
		{Owner: "bob", Heroes: []HeroBuild{hero("Anna", "")}},
	}

	sim, err := factory.NewSimulation(context.Background(), teams)
	require.NoError(t, err)
	assert.Equal(t, DefaultMapID, sim.MapID())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = factory.NewSimulation(ctx, teams)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMoveUnit(t *testing.T) {
	battle := newBattle(t, DefaultMap(),
		[]HeroBuild{hero("Alfonse", "Silver Sword")},
		[]HeroBuild{hero("Anna", "Silver Axe")},
	)

	t.Run("unreachable tile", func(t *testing.T) {
		_, err := battle.MoveUnit("alice-unit-1", Position{5, 0})
		assert.ErrorIs(t, err, ErrIllegalAction)
		u, _ := battle.Unit("alice-unit-1")
		assert.Equal(t, Position{1, 7}, u.Pos)
		assert.Equal(t, uint64(1), battle.TurnState().Sequence)
	})

	t.Run("enemy unit out of turn", func(t *testing.T) {
		_, err := battle.MoveUnit("bob-unit-1", Position{1, 1})
		assert.ErrorIs(t, err, ErrWrongSide)
	})

	t.Run("unknown unit", func(t *testing.T) {
		_, err := battle.MoveUnit("carol-unit-1", Position{0, 0})
		assert.ErrorIs(t, err, ErrUnitNotFound)
	})

	t.Run("legal move", func(t *testing.T) {
		res, err := battle.MoveUnit("alice-unit-1", Position{0, 6})
		require.NoError(t, err)
		assert.Equal(t, Position{0, 6}, res.Position)
		assert.Equal(t, uint64(2), res.Turn.Sequence)

		u, _ := battle.Unit("alice-unit-1")
		assert.True(t, u.Acted)
	})

	t.Run("second action in the same turn", func(t *testing.T) {
		_, err := battle.MoveUnit("alice-unit-1", Position{0, 7})
		assert.ErrorIs(t, err, ErrIllegalAction)
	})
}

func TestEndTurn(t *testing.T) {
	battle := newBattle(t, DefaultMap(),
		[]HeroBuild{hero("Alfonse", "Silver Sword")},
		[]HeroBuild{hero("Anna", "Silver Axe")},
	)

	_, err := battle.EndAction("alice-unit-1", Position{1, 7})
	require.NoError(t, err)

	state, err := battle.EndTurn()
	require.NoError(t, err)
	assert.Equal(t, 1, state.Turn)
	assert.Equal(t, SideB, state.CurrentSide)
	assert.Equal(t, uint64(3), state.Sequence)

	// alice's unit stays spent during bob's phase
	u, _ := battle.Unit("alice-unit-1")
	assert.True(t, u.Acted)

	state, err = battle.EndTurn()
	require.NoError(t, err)
	assert.Equal(t, 2, state.Turn)
	assert.Equal(t, SideA, state.CurrentSide)
	assert.Equal(t, uint64(4), state.Sequence)

	u, _ = battle.Unit("alice-unit-1")
	assert.False(t, u.Acted)
}

func TestSnapshot(t *testing.T) {
	battle := newBattle(t, DefaultMap(),
		[]HeroBuild{{Name: "Alfonse", Weapon: "Silver Sword", Special: "Glimmer", PassiveA: "Death Blow 3", PassiveC: "Spur Atk 2", Rarity: 5}},
		[]HeroBuild{hero("Anna", "Silver Axe")},
	)
	_, err := battle.MoveUnit("alice-unit-1", Position{0, 7})
	require.NoError(t, err)

	snap := battle.Snapshot()
	assert.Equal(t, DefaultMapID, snap.MapID)
	require.Len(t, snap.Entities, 2)

	alfonse := snap.Entities[0]
	assert.Equal(t, "alice-unit-1", alfonse.ID)
	assert.Equal(t, []string{"Hero", "team1", "FinishedTurn"}, alfonse.Tags)

	counts := map[string]int{}
	for _, c := range alfonse.Components {
		counts[c.Type]++
	}
	assert.Equal(t, 1, counts["Position"])
	assert.Equal(t, 1, counts["Special"])
	assert.Equal(t, 2, counts["Skill"])
	assert.Equal(t, 0, counts["Assist"])

	assert.Equal(t, []string{"Hero", "team2"}, snap.Entities[1].Tags)
}
