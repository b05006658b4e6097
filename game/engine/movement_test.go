package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreviewMovement(t *testing.T) {
	t.Run("infantry next to allies", func(t *testing.T) {
		alfonse := hero("Alfonse", "Silver Sword")
		alfonse.Assist = "Reposition"
		battle := newBattle(t, DefaultMap(),
			[]HeroBuild{alfonse, hero("Sharena", "Silver Lance"), hero("Anna", "Silver Axe")},
			[]HeroBuild{hero("Draug", "Silver Sword")},
		)

		preview, err := battle.PreviewMovement("alice-unit-1")
		require.NoError(t, err)

		// forest at (1,6) costs the whole move, (2,7) holds an assistable ally
		assert.Equal(t, []Position{{0, 6}, {0, 7}, {1, 6}, {1, 7}, {2, 6}, {2, 7}}, preview.Movement)
		assert.Equal(t, []Position{{2, 7}}, preview.Assist)
		assert.Empty(t, preview.Warp)
		assert.Empty(t, preview.Targetable)
		assert.NotContains(t, preview.Attack, Position{2, 7})
		assert.Contains(t, preview.Attack, Position{0, 5})
		assert.Equal(t, map[string]bool{"bob-unit-1": false}, preview.Effectiveness)
	})

	t.Run("allies are not destinations without an assist", func(t *testing.T) {
		battle := newBattle(t, DefaultMap(),
			[]HeroBuild{hero("Alfonse", "Silver Sword"), hero("Sharena", "Silver Lance")},
			[]HeroBuild{hero("Draug", "Silver Sword")},
		)

		preview, err := battle.PreviewMovement("alice-unit-1")
		require.NoError(t, err)
		assert.NotContains(t, preview.Movement, Position{2, 7})
		assert.Empty(t, preview.Assist)
	})

	t.Run("cavalry cannot enter forest", func(t *testing.T) {
		battle := newBattle(t, DefaultMap(),
			[]HeroBuild{hero("Cain", "Silver Sword")},
			[]HeroBuild{hero("Draug", "Silver Sword")},
		)

		preview, err := battle.PreviewMovement("alice-unit-1")
		require.NoError(t, err)
		assert.NotContains(t, preview.Movement, Position{1, 6})
		assert.Contains(t, preview.Movement, Position{4, 7})
	})

	t.Run("fliers cross water", func(t *testing.T) {
		mapCfg := DefaultMap()
		mapCfg.SpawnsA = []Position{{1, 5}, {2, 7}, {3, 7}, {4, 7}}
		battle := newBattle(t, mapCfg,
			[]HeroBuild{hero("Palla", "Silver Lance")},
			[]HeroBuild{hero("Draug", "Silver Sword")},
		)

		preview, err := battle.PreviewMovement("alice-unit-1")
		require.NoError(t, err)
		assert.Contains(t, preview.Movement, Position{1, 3})
	})

	t.Run("effectiveness and targets", func(t *testing.T) {
		battle := newBattle(t, plainMap(),
			[]HeroBuild{hero("Virion", "Silver Bow")},
			[]HeroBuild{hero("Palla", "Silver Lance"), hero("Draug", "Silver Sword")},
		)

		preview, err := battle.PreviewMovement("alice-unit-1")
		require.NoError(t, err)
		assert.True(t, preview.Effectiveness["bob-unit-1"])
		assert.False(t, preview.Effectiveness["bob-unit-2"])
		assert.Contains(t, preview.Targetable, Position{0, 0})
	})

	t.Run("spent unit has no options", func(t *testing.T) {
		battle := newBattle(t, DefaultMap(),
			[]HeroBuild{hero("Alfonse", "Silver Sword")},
			[]HeroBuild{hero("Draug", "Silver Sword")},
		)
		_, err := battle.EndAction("alice-unit-1", Position{1, 7})
		require.NoError(t, err)

		preview, err := battle.PreviewMovement("alice-unit-1")
		require.NoError(t, err)
		assert.Empty(t, preview.Movement)
		assert.Empty(t, preview.Warp)
	})

	t.Run("unknown unit", func(t *testing.T) {
		battle := newBattle(t, DefaultMap(),
			[]HeroBuild{hero("Alfonse", "Silver Sword")},
			[]HeroBuild{hero("Draug", "Silver Sword")},
		)
		_, err := battle.PreviewMovement("alice-unit-9")
		assert.ErrorIs(t, err, ErrUnitNotFound)
	})
}

func TestWarpTiles(t *testing.T) {
	mapCfg := MapConfig{
		ID:      "long",
		Layout:  []string{"........", "........"},
		SpawnsA: []Position{{0, 1}, {1, 1}, {6, 1}, {7, 1}},
		SpawnsB: []Position{{0, 0}, {1, 0}, {6, 0}, {7, 0}},
	}
	alfonse := hero("Alfonse", "Silver Sword")
	alfonse.PassiveB = "Wings of Mercy 3"
	battle := newBattle(t, mapCfg,
		[]HeroBuild{alfonse, hero("Anna", "Silver Axe"), hero("Sharena", "Silver Lance")},
		[]HeroBuild{hero("Draug", "Silver Sword")},
	)

	preview, err := battle.PreviewMovement("alice-unit-1")
	require.NoError(t, err)
	assert.Empty(t, preview.Warp)

	battle.units["alice-unit-3"].HP = 10

	preview, err = battle.PreviewMovement("alice-unit-1")
	require.NoError(t, err)
	assert.Equal(t, []Position{{5, 1}, {6, 0}, {7, 1}}, preview.Warp)
	assert.Equal(t, []Position{{0, 1}, {1, 0}, {2, 1}}, preview.Movement)

	res, err := battle.MoveUnit("alice-unit-1", Position{6, 0})
	require.NoError(t, err)
	assert.Equal(t, Position{6, 0}, res.Position)
}

func TestThreatRange(t *testing.T) {
	battle := newBattle(t, plainMap(),
		[]HeroBuild{hero("Alfonse", "Silver Sword")},
		[]HeroBuild{hero("Linde", "Thoron")},
	)

	tiles, err := battle.ThreatRange(SideB)
	require.NoError(t, err)
	assert.Contains(t, tiles, Position{0, 2})
	assert.NotContains(t, tiles, Position{5, 2})

	_, err = battle.ThreatRange(Side("team3"))
	assert.ErrorIs(t, err, ErrIllegalAction)
}

func TestTileEncoding(t *testing.T) {
	tests := []struct {
		pos  Position
		tile int
	}{
		{Position{0, 0}, 0},
		{Position{1, 7}, 17},
		{Position{5, 3}, 53},
		{Position{9, 9}, 99},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.tile, EncodeTile(tt.pos))
		p, err := DecodeTile(tt.tile)
		require.NoError(t, err)
		assert.Equal(t, tt.pos, p)
	}

	_, err := DecodeTile(100)
	assert.Error(t, err)
	_, err = DecodeTile(-1)
	assert.Error(t, err)
}
