package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/heroduel/game/engine"
	"github.com/wricardo/heroduel/game/turn"
	"github.com/wricardo/heroduel/transport/wire"
)

func battle(t *testing.T) *engine.Battle {
	t.Helper()
	d := engine.DefaultDataset()
	d.Maps["plain"] = engine.MapConfig{
		ID:      "plain",
		Layout:  []string{"......", "......", "......"},
		SpawnsA: []engine.Position{{X: 0, Y: 2}, {X: 1, Y: 2}, {X: 2, Y: 2}, {X: 3, Y: 2}},
		SpawnsB: []engine.Position{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 2, Y: 0}, {X: 3, Y: 0}},
	}
	b, err := engine.NewBattle(d, "plain", [2]engine.Team{
		{Owner: "alice", Heroes: []engine.HeroBuild{{Name: "Alfonse", Weapon: "Silver Sword", Rarity: engine.DefaultRarity}}},
		{Owner: "bob", Heroes: []engine.HeroBuild{{Name: "Anna", Weapon: "Iron Axe", Rarity: engine.DefaultRarity}}},
	})
	require.NoError(t, err)
	return b
}

// boardOf round-trips a snapshot through the wire encoding
func boardOf(t *testing.T, b *engine.Battle) board {
	t.Helper()
	frame, err := wire.Encode("update-entities", b.Snapshot())
	require.NoError(t, err)
	env, err := wire.Decode(frame)
	require.NoError(t, err)
	bd, err := parseBoard(env.Data)
	require.NoError(t, err)
	return bd
}

func previewOf(t *testing.T, b *engine.Battle, unitID string) *turn.MovementPreview {
	t.Helper()
	p, err := b.PreviewMovement(unitID)
	require.NoError(t, err)
	return &turn.MovementPreview{
		UnitID:     unitID,
		Movement:   engine.EncodeTiles(p.Movement),
		Targetable: engine.EncodeTiles(p.Targetable),
	}
}

func TestParseBoard(t *testing.T) {
	b := battle(t)
	bd := boardOf(t, b)
	require.Len(t, bd, 2)

	alfonse := bd["alice-unit-1"]
	assert.Equal(t, "Alfonse", alfonse.Name)
	assert.Equal(t, engine.SideA, alfonse.Side)
	assert.Equal(t, engine.Position{X: 0, Y: 2}, alfonse.Pos)
	assert.Equal(t, 1, alfonse.Range)
	assert.False(t, alfonse.Acted)

	anna, _ := b.Unit("bob-unit-1")
	assert.Equal(t, anna.HP, bd["bob-unit-1"].HP)
	assert.Equal(t, engine.SideB, bd["bob-unit-1"].Side)

	_, err := b.EndAction("alice-unit-1", engine.Position{X: 0, Y: 2})
	require.NoError(t, err)
	bd = boardOf(t, b)
	assert.True(t, bd["alice-unit-1"].Acted)
	assert.Empty(t, bd.idle(engine.SideA))

	t.Run("malformed", func(t *testing.T) {
		_, err := parseBoard([]byte(`[1,2]`))
		assert.Error(t, err)
		_, err = parseBoard([]byte(`{"x":{"tags":[],"components":{"Position":["nope"]}}}`))
		assert.Error(t, err)
	})
}

func TestBoardQueries(t *testing.T) {
	bd := board{
		"a2": {ID: "a2", Side: engine.SideA, Pos: engine.Position{X: 1, Y: 1}},
		"a1": {ID: "a1", Side: engine.SideA, Pos: engine.Position{X: 0, Y: 1}},
		"a3": {ID: "a3", Side: engine.SideA, Acted: true},
		"b1": {ID: "b1", Side: engine.SideB, Pos: engine.Position{X: 4, Y: 4}},
	}

	idle := bd.idle(engine.SideA)
	require.Len(t, idle, 2)
	assert.Equal(t, "a1", idle[0].ID)
	assert.Equal(t, "a2", idle[1].ID)

	u, ok := bd.at(engine.Position{X: 4, Y: 4})
	assert.True(t, ok)
	assert.Equal(t, "b1", u.ID)
	_, ok = bd.at(engine.Position{X: 5, Y: 5})
	assert.False(t, ok)

	assert.Len(t, bd.enemies(engine.SideA), 1)
}

func TestAttackPlans(t *testing.T) {
	t.Run("from a real preview", func(t *testing.T) {
		b := battle(t)
		bd := boardOf(t, b)
		plans := attackPlans(bd["alice-unit-1"], previewOf(t, b, "alice-unit-1"), bd)
		require.Len(t, plans, 1)
		assert.Equal(t, plan{kind: planAttack, from: engine.Position{X: 0, Y: 1}, target: engine.Position{X: 0, Y: 0}}, plans[0])

		_, err := b.PreviewCombat("alice-unit-1", plans[0].from, plans[0].target)
		assert.NoError(t, err)
	})

	t.Run("weakest target first", func(t *testing.T) {
		u := unitView{ID: "a1", Side: engine.SideA, Pos: engine.Position{X: 2, Y: 2}, Range: 1}
		bd := board{
			"a1":    u,
			"tough": {ID: "tough", Side: engine.SideB, Pos: engine.Position{X: 2, Y: 0}, HP: 30},
			"weak":  {ID: "weak", Side: engine.SideB, Pos: engine.Position{X: 0, Y: 2}, HP: 10},
		}
		preview := &turn.MovementPreview{
			Movement:   []int{12, 21, 22},
			Targetable: []int{2, 20},
		}

		plans := attackPlans(u, preview, bd)
		require.Len(t, plans, 2)
		assert.Equal(t, engine.Position{X: 0, Y: 2}, plans[0].target)
		assert.Equal(t, engine.Position{X: 1, Y: 2}, plans[0].from)
		assert.Equal(t, engine.Position{X: 2, Y: 0}, plans[1].target)
		assert.Equal(t, engine.Position{X: 2, Y: 1}, plans[1].from)
	})

	t.Run("no weapon range", func(t *testing.T) {
		u := unitView{ID: "a1", Side: engine.SideA}
		assert.Empty(t, attackPlans(u, &turn.MovementPreview{Movement: []int{0}, Targetable: []int{1}}, board{}))
	})
}

func TestApproach(t *testing.T) {
	t.Run("moves closer on the arena", func(t *testing.T) {
		d := engine.DefaultDataset()
		b, err := engine.NewBattle(d, engine.DefaultMapID, [2]engine.Team{
			{Owner: "alice", Heroes: []engine.HeroBuild{{Name: "Alfonse", Rarity: engine.DefaultRarity}}},
			{Owner: "bob", Heroes: []engine.HeroBuild{{Name: "Anna", Rarity: engine.DefaultRarity}}},
		})
		require.NoError(t, err)

		bd := boardOf(t, b)
		u := bd["alice-unit-1"]
		foe := bd["bob-unit-1"]
		preview := previewOf(t, b, u.ID)

		p := approach(u, preview, bd)
		require.Equal(t, planMove, p.kind)
		assert.Less(t, engine.ManhattanDistance(p.from, foe.Pos), engine.ManhattanDistance(u.Pos, foe.Pos))
		assert.Contains(t, preview.Movement, engine.EncodeTile(p.from))

		_, err = b.MoveUnit(u.ID, p.from)
		assert.NoError(t, err)
	})

	t.Run("waits without enemies", func(t *testing.T) {
		u := unitView{ID: "a1", Side: engine.SideA}
		p := approach(u, &turn.MovementPreview{Movement: []int{0, 1}}, board{"a1": u})
		assert.Equal(t, plan{kind: planWait, from: u.Pos}, p)
	})

	t.Run("waits when nothing is closer", func(t *testing.T) {
		u := unitView{ID: "a1", Side: engine.SideA, Pos: engine.Position{X: 0, Y: 1}}
		bd := board{"a1": u, "b1": {ID: "b1", Side: engine.SideB, Pos: engine.Position{X: 0, Y: 0}}}
		p := approach(u, &turn.MovementPreview{Movement: []int{1, 2}}, bd)
		assert.Equal(t, planWait, p.kind)
	})
}
