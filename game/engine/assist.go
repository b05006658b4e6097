package engine

import "fmt"

// freeFor reports whether unit u could end up standing on p once mover has left its tile
func (b *Battle) freeFor(mt MoveType, p Position, mover *Unit) bool {
	t, ok := b.board.TerrainAt(p)
	if !ok || !CanStand(mt, t) {
		return false
	}
	occupant := b.unitAt(p)
	return occupant == nil || occupant == mover
}

func (b *Battle) assistOutcome(u *Unit, from, target Position) (*AssistForecast, *Unit, error) {
	if u.Assist == nil {
		return nil, nil, fmt.Errorf("%w: %s has no assist", ErrIllegalAction, u.ID)
	}
	if err := b.destination(u, from); err != nil {
		return nil, nil, err
	}
	ally := b.unitAt(target)
	if ally == nil || ally.Side != u.Side || ally.ID == u.ID {
		return nil, nil, fmt.Errorf("%w: no ally at (%d,%d)", ErrIllegalAction, target.X, target.Y)
	}
	if ManhattanDistance(from, target) != u.Assist.Range {
		return nil, nil, fmt.Errorf("%w: ally out of assist range", ErrIllegalAction)
	}

	f := &AssistForecast{
		Assist:      u.Assist.Name,
		SourceID:    u.ID,
		TargetID:    ally.ID,
		Source:      from,
		Target:      target,
		SourceAfter: from,
		TargetAfter: target,
		TargetHP:    ally.HP,
	}
	away := Position{X: 2*from.X - target.X, Y: 2*from.Y - target.Y}

	switch u.Assist.Kind {
	case AssistHeal:
		if ally.HP >= ally.MaxHP() {
			return nil, nil, fmt.Errorf("%w: %s is not wounded", ErrIllegalAction, ally.ID)
		}
		f.TargetHP = min(ally.HP+u.Assist.Amount, ally.MaxHP())
	case AssistRally:
		f.Buff = u.Assist.Buff
	case AssistReposition:
		if !b.freeFor(ally.MoveType, away, u) {
			return nil, nil, fmt.Errorf("%w: %s cannot be placed at (%d,%d)", ErrIllegalAction, ally.ID, away.X, away.Y)
		}
		f.TargetAfter = away
	case AssistSwap:
		if !b.freeFor(ally.MoveType, from, u) || !b.freeFor(u.MoveType, target, ally) {
			return nil, nil, fmt.Errorf("%w: cannot swap with %s", ErrIllegalAction, ally.ID)
		}
		f.SourceAfter, f.TargetAfter = target, from
	case AssistDrawBack:
		if !b.freeFor(u.MoveType, away, u) || !b.freeFor(ally.MoveType, from, u) {
			return nil, nil, fmt.Errorf("%w: no room to draw back", ErrIllegalAction)
		}
		f.SourceAfter, f.TargetAfter = away, from
	default:
		return nil, nil, fmt.Errorf("%w: unsupported assist kind %q", ErrIllegalAction, u.Assist.Kind)
	}
	return f, ally, nil
}

// PreviewAssist forecasts a support action on the ally at target after moving to from
func (b *Battle) PreviewAssist(unitID string, from, target Position) (*AssistForecast, error) {
	u, err := b.previewer(unitID)
	if err != nil {
		return nil, err
	}
	f, _, err := b.assistOutcome(u, from, target)
	return f, err
}

// ResolveAssist applies a support action and spends the unit's action
func (b *Battle) ResolveAssist(unitID string, from, target Position) (*AssistResult, error) {
	u, err := b.actor(unitID)
	if err != nil {
		return nil, err
	}
	f, ally, err := b.assistOutcome(u, from, target)
	if err != nil {
		return nil, err
	}

	u.Pos = f.SourceAfter
	ally.Pos = f.TargetAfter
	ally.HP = f.TargetHP
	ally.Buffs = strongest(ally.Buffs, f.Buff)
	u.Acted = true

	return &AssistResult{
		AssistForecast: *f,
		ActionResult:   *b.commit(u, "assist", nil),
	}, nil
}

// strongest keeps the larger bonus per stat; buffs of one kind do not stack
func strongest(a, b Stats) Stats {
	return Stats{
		HP:  max(a.HP, b.HP),
		Atk: max(a.Atk, b.Atk),
		Spd: max(a.Spd, b.Spd),
		Def: max(a.Def, b.Def),
		Res: max(a.Res, b.Res),
	}
}
