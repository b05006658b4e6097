package engine

import "fmt"

// moveRange returns how many movement points a unit of the given type spends per turn
func moveRange(mt MoveType) int {
	switch mt {
	case Armored:
		return 1
	case Cavalry:
		return 3
	default:
		return 2
	}
}

// tileCost returns the movement cost of entering terrain; ok is false when impassable
func tileCost(mt MoveType, t Terrain) (int, bool) {
	switch t {
	case Plain:
		return 1, true
	case Forest:
		switch mt {
		case Infantry:
			return 2, true
		case Cavalry:
			return 0, false
		}
		return 1, true
	case Mountain, Water:
		if mt == Flier {
			return 1, true
		}
	}
	return 0, false
}

// CanStand reports whether a unit of the given type may occupy terrain
func CanStand(mt MoveType, t Terrain) bool {
	_, ok := tileCost(mt, t)
	return ok
}

type reachResult struct {
	cost      map[Position]int
	parent    map[Position]Position
	stoppable positionSet
	allies    positionSet
}

// reach runs a uniform-cost search from the unit's tile. Allies can be
// crossed but not stood on; enemies block.
func (b *Battle) reach(u *Unit) reachResult {
	r := reachResult{
		cost:      map[Position]int{u.Pos: 0},
		parent:    map[Position]Position{},
		stoppable: positionSet{u.Pos: true},
		allies:    positionSet{},
	}
	limit := moveRange(u.MoveType)

	frontier := []Position{u.Pos}
	for len(frontier) > 0 {
		// pick the cheapest frontier tile; boards are tiny
		best := 0
		for i := range frontier {
			if r.cost[frontier[i]] < r.cost[frontier[best]] {
				best = i
			}
		}
		cur := frontier[best]
		frontier = append(frontier[:best], frontier[best+1:]...)

		for _, next := range neighbors(cur) {
			terrain, ok := b.board.TerrainAt(next)
			if !ok {
				continue
			}
			step, ok := tileCost(u.MoveType, terrain)
			if !ok {
				continue
			}
			occupant := b.unitAt(next)
			if occupant != nil && occupant.Side != u.Side {
				continue
			}
			c := r.cost[cur] + step
			if c > limit {
				continue
			}
			if prev, seen := r.cost[next]; seen && prev <= c {
				continue
			}
			r.cost[next] = c
			r.parent[next] = cur
			frontier = append(frontier, next)
			if occupant == nil {
				r.stoppable[next] = true
			} else {
				r.allies[next] = true
			}
		}
	}
	return r
}

// path reconstructs the route from the unit's tile to dest
func (r reachResult) path(from, dest Position) []Position {
	if _, ok := r.cost[dest]; !ok {
		return nil
	}
	route := []Position{dest}
	for cur := dest; cur != from; {
		cur = r.parent[cur]
		route = append([]Position{cur}, route...)
	}
	return route
}

// warpTiles lists tiles the unit may teleport to this turn
func (b *Battle) warpTiles(u *Unit, r reachResult) positionSet {
	tiles := positionSet{}
	addAround := func(ally *Unit) {
		for _, p := range neighbors(ally.Pos) {
			t, ok := b.board.TerrainAt(p)
			if !ok || !CanStand(u.MoveType, t) || b.unitAt(p) != nil || r.stoppable[p] {
				continue
			}
			tiles[p] = true
		}
	}

	mercy, hasMercy := u.HasPassive(EffectAllyLowHPWarp)
	escape, hasEscape := u.HasPassive(EffectSelfLowHPWarp)
	selfWeak := hasEscape && u.HP*100 <= u.MaxHP()*escape.Threshold

	for _, id := range b.order {
		ally := b.units[id]
		if ally.ID == u.ID || ally.Side != u.Side {
			continue
		}
		allyWeak := hasMercy && ally.HP*100 <= ally.MaxHP()*mercy.Threshold
		if allyWeak || selfWeak {
			addAround(ally)
		}
	}
	return tiles
}

// assistTiles lists allied tiles the unit could assist from some tile it can stop on
func (b *Battle) assistTiles(u *Unit, r reachResult) positionSet {
	tiles := positionSet{}
	if u.Assist == nil {
		return tiles
	}
	for _, id := range b.order {
		ally := b.units[id]
		if ally.ID == u.ID || ally.Side != u.Side {
			continue
		}
		for s := range r.stoppable {
			if ManhattanDistance(s, ally.Pos) == u.Assist.Range {
				tiles[ally.Pos] = true
				break
			}
		}
	}
	return tiles
}

// effective reports whether a weapon deals bonus damage to a movement type
func effective(w WeaponSkill, mt MoveType) bool {
	for _, target := range w.EffectiveAgainst {
		if target == mt {
			return true
		}
	}
	return false
}

// PreviewMovement computes every tile set for a unit without changing anything.
// Movement includes allied tiles the unit could assist; callers that need
// only standable tiles subtract Assist.
func (b *Battle) PreviewMovement(unitID string) (*MovementPreview, error) {
	u, ok := b.units[unitID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnitNotFound, unitID)
	}

	preview := &MovementPreview{
		UnitID:        u.ID,
		Movement:      []Position{},
		Attack:        []Position{},
		Warp:          []Position{},
		Targetable:    []Position{},
		Assist:        []Position{},
		Effectiveness: map[string]bool{},
	}
	for _, id := range b.order {
		if foe := b.units[id]; foe.Side != u.Side {
			preview.Effectiveness[foe.ID] = effective(u.Weapon, foe.MoveType)
		}
	}
	if u.Acted || b.turn.Winner != "" {
		return preview, nil
	}

	r := b.reach(u)
	assist := b.assistTiles(u, r)

	movement := positionSet{}
	for p := range r.stoppable {
		movement[p] = true
	}
	for p := range r.allies {
		if assist[p] {
			movement[p] = true
		}
	}

	attack, targets := positionSet{}, positionSet{}
	for s := range r.stoppable {
		for _, p := range b.ring(s, u.Weapon.Range) {
			occupant := b.unitAt(p)
			if occupant != nil && occupant.Side != u.Side {
				targets[p] = true
			}
			if movement[p] || (occupant != nil && occupant.Side == u.Side) {
				continue
			}
			attack[p] = true
		}
	}

	preview.Movement = movement.sorted()
	preview.Attack = attack.sorted()
	preview.Warp = b.warpTiles(u, r).sorted()
	preview.Targetable = targets.sorted()
	preview.Assist = assist.sorted()
	return preview, nil
}

// ThreatRange returns every tile units of side could strike next turn
func (b *Battle) ThreatRange(side Side) ([]Position, error) {
	if side != SideA && side != SideB {
		return nil, fmt.Errorf("%w: unknown side %q", ErrIllegalAction, side)
	}
	threat := positionSet{}
	for _, id := range b.order {
		u := b.units[id]
		if u.Side != side {
			continue
		}
		r := b.reach(u)
		for s := range r.stoppable {
			for _, p := range b.ring(s, u.Weapon.Range) {
				threat[p] = true
			}
		}
	}
	return threat.sorted(), nil
}
