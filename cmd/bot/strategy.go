package main

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/wricardo/heroduel/game/engine"
	"github.com/wricardo/heroduel/game/turn"
)

// unitView is what the bot knows about one hero on the board
type unitView struct {
	ID    string
	Name  string
	Side  engine.Side
	Pos   engine.Position
	HP    int
	Range int
	Acted bool
}

// board maps unit ids to their last known state
type board map[string]unitView

// entityFrame is one entity of an update-entities payload
type entityFrame struct {
	Tags       []string                     `json:"tags"`
	Components map[string][]json.RawMessage `json:"components"`
}

// parseBoard reads an update-entities payload
func parseBoard(data json.RawMessage) (board, error) {
	var frames map[string]entityFrame
	if err := json.Unmarshal(data, &frames); err != nil {
		return nil, fmt.Errorf("parse board: %w", err)
	}

	out := make(board, len(frames))
	for id, f := range frames {
		u := unitView{ID: id}
		for _, tag := range f.Tags {
			if tag == "FinishedTurn" {
				u.Acted = true
			}
		}

		var name struct {
			Value string `json:"value"`
		}
		var side struct {
			Value engine.Side `json:"value"`
		}
		var stats struct {
			HP int `json:"hp"`
		}
		var weapon struct {
			Range int `json:"range"`
		}
		decode := []struct {
			component string
			into      interface{}
		}{
			{"Name", &name},
			{"Side", &side},
			{"Position", &u.Pos},
			{"Stats", &stats},
			{"Weapon", &weapon},
		}
		for _, d := range decode {
			raw := f.Components[d.component]
			if len(raw) == 0 {
				continue
			}
			if err := json.Unmarshal(raw[0], d.into); err != nil {
				return nil, fmt.Errorf("parse %s of %s: %w", d.component, id, err)
			}
		}

		u.Name, u.Side, u.HP, u.Range = name.Value, side.Value, stats.HP, weapon.Range
		out[id] = u
	}
	return out, nil
}

// idle returns the side's units that can still act, in id order
func (b board) idle(side engine.Side) []unitView {
	var out []unitView
	for _, u := range b {
		if u.Side == side && !u.Acted {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (b board) at(p engine.Position) (unitView, bool) {
	for _, u := range b {
		if u.Pos == p {
			return u, true
		}
	}
	return unitView{}, false
}

func (b board) enemies(side engine.Side) []unitView {
	var out []unitView
	for _, u := range b {
		if u.Side != side {
			out = append(out, u)
		}
	}
	return out
}

type planKind int

const (
	planWait planKind = iota
	planMove
	planAttack
)

// plan is one action for one unit
type plan struct {
	kind   planKind
	from   engine.Position
	target engine.Position
}

func decodeTiles(tiles []int) []engine.Position {
	out := make([]engine.Position, 0, len(tiles))
	for _, t := range tiles {
		if p, err := engine.DecodeTile(t); err == nil {
			out = append(out, p)
		}
	}
	return out
}

// attackPlans lists every tile and target pair the preview allows,
// weakest target first, then the shortest walk
func attackPlans(u unitView, preview *turn.MovementPreview, b board) []plan {
	if u.Range <= 0 {
		return nil
	}
	stand := decodeTiles(preview.Movement)

	type scored struct {
		plan
		hp, walk int
	}
	var options []scored
	for _, target := range decodeTiles(preview.Targetable) {
		foe, ok := b.at(target)
		if !ok || foe.Side == u.Side {
			continue
		}
		for _, from := range stand {
			if engine.ManhattanDistance(from, target) != u.Range {
				continue
			}
			options = append(options, scored{
				plan: plan{kind: planAttack, from: from, target: target},
				hp:   foe.HP,
				walk: engine.ManhattanDistance(u.Pos, from),
			})
		}
	}

	sort.SliceStable(options, func(i, j int) bool {
		a, c := options[i], options[j]
		if a.hp != c.hp {
			return a.hp < c.hp
		}
		if a.walk != c.walk {
			return a.walk < c.walk
		}
		if ea, ec := engine.EncodeTile(a.target), engine.EncodeTile(c.target); ea != ec {
			return ea < ec
		}
		return engine.EncodeTile(a.from) < engine.EncodeTile(c.from)
	})

	out := make([]plan, 0, len(options))
	for _, o := range options {
		out = append(out, o.plan)
	}
	return out
}

// approach moves toward the nearest enemy, or waits in place when no
// offered tile gets closer
func approach(u unitView, preview *turn.MovementPreview, b board) plan {
	foes := b.enemies(u.Side)
	if len(foes) == 0 {
		return plan{kind: planWait, from: u.Pos}
	}

	nearest := func(p engine.Position) int {
		best := -1
		for _, f := range foes {
			if d := engine.ManhattanDistance(p, f.Pos); best < 0 || d < best {
				best = d
			}
		}
		return best
	}

	best, bestDist := u.Pos, nearest(u.Pos)
	for _, p := range decodeTiles(preview.Movement) {
		d := nearest(p)
		if d < bestDist {
			best, bestDist = p, d
		}
	}

	if best == u.Pos {
		return plan{kind: planWait, from: u.Pos}
	}
	return plan{kind: planMove, from: best}
}
