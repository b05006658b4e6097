package engine

import "fmt"

// fighter is one participant of a combat being simulated
type fighter struct {
	unit      *Unit
	pos       Position
	stats     Stats
	hp        int
	cooldown  int
	effective bool
	advantage int
	strikes   int
	damage    int
}

// triangle returns +1 when attacker has weapon triangle advantage, -1 when disadvantaged
func triangle(attacker, defender WeaponType) int {
	beats := map[string]string{"red": "green", "green": "blue", "blue": "red"}
	a, d := attacker.Color(), defender.Color()
	switch {
	case beats[a] == d:
		return 1
	case beats[d] == a:
		return -1
	}
	return 0
}

// combatStats returns the stats a unit fights with from pos
func (b *Battle) combatStats(u *Unit, pos Position, initiating bool) Stats {
	s := u.Stats.Add(u.Buffs)
	if initiating {
		if p, ok := u.HasPassive(EffectInitiate); ok {
			s = s.Add(p.Stats)
		}
	}
	for _, id := range b.order {
		ally := b.units[id]
		if ally.ID == u.ID || ally.Side != u.Side || ManhattanDistance(ally.Pos, pos) != 1 {
			continue
		}
		if p, ok := ally.HasPassive(EffectAura); ok {
			s = s.Add(p.Stats)
		}
	}
	return s
}

func (b *Battle) newFighter(u *Unit, pos Position, foe *Unit, initiating bool) *fighter {
	return &fighter{
		unit:      u,
		pos:       pos,
		stats:     b.combatStats(u, pos, initiating),
		hp:        u.HP,
		cooldown:  u.Cooldown,
		effective: effective(u.Weapon, foe.MoveType),
		advantage: triangle(u.Weapon.Type, foe.Weapon.Type),
	}
}

// strike performs one hit on target and charges both specials
func (f *fighter) strike(target *fighter) Strike {
	atk := f.stats.Atk
	if f.effective {
		atk += atk / 2
	}
	atk += percent(atk, 20) * f.advantage

	mit := target.stats.Def
	if f.unit.Weapon.Type.Magic() {
		mit = target.stats.Res
	}

	s := Strike{AttackerID: f.unit.ID, TargetID: target.unit.ID}
	special := f.unit.Special != nil && f.cooldown == 0
	if special {
		mit -= percent(mit, f.unit.Special.IgnorePct)
	}

	dmg := max(atk-mit, 0)
	if f.damage == 0 {
		f.damage = dmg
	}
	if special {
		sp := f.unit.Special
		dmg += percent(dmg, sp.BoostPct) + percent(f.stats.Def, sp.FromDefPct) + percent(atk, sp.FromAtkPct)
		f.cooldown = sp.Cooldown
		s.Special = sp.Name
	} else if f.unit.Special != nil && f.cooldown > 0 {
		f.cooldown--
	}
	if target.unit.Special != nil && target.cooldown > 0 {
		target.cooldown--
	}

	target.hp = max(target.hp-dmg, 0)
	f.strikes++
	s.Damage = dmg
	s.RemainingHP = target.hp
	return s
}

// fight runs the strike order: attack, counter, then a follow-up for the faster side
func fight(att, def *fighter, canCounter bool) []Strike {
	var strikes []Strike
	alive := func() bool { return att.hp > 0 && def.hp > 0 }

	strikes = append(strikes, att.strike(def))
	if alive() && canCounter {
		strikes = append(strikes, def.strike(att))
	}
	switch {
	case !alive():
	case att.stats.Spd >= def.stats.Spd+FollowUpMargin:
		strikes = append(strikes, att.strike(def))
	case canCounter && def.stats.Spd >= att.stats.Spd+FollowUpMargin:
		strikes = append(strikes, def.strike(att))
	}
	return strikes
}

// previewer returns a unit that is able to act, without checking whose turn it is
func (b *Battle) previewer(unitID string) (*Unit, error) {
	if b.turn.Winner != "" {
		return nil, ErrMatchOver
	}
	u, ok := b.units[unitID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnitNotFound, unitID)
	}
	if u.Acted {
		return nil, fmt.Errorf("%w: %s has already acted this turn", ErrIllegalAction, unitID)
	}
	return u, nil
}

func (b *Battle) simulateCombat(u *Unit, from, target Position) (*CombatForecast, *fighter, *fighter, error) {
	if err := b.destination(u, from); err != nil {
		return nil, nil, nil, err
	}
	foe := b.unitAt(target)
	if foe == nil || foe.Side == u.Side {
		return nil, nil, nil, fmt.Errorf("%w: no enemy at (%d,%d)", ErrIllegalAction, target.X, target.Y)
	}
	if ManhattanDistance(from, target) != u.Weapon.Range {
		return nil, nil, nil, fmt.Errorf("%w: target out of range", ErrIllegalAction)
	}

	att := b.newFighter(u, from, foe, true)
	def := b.newFighter(foe, foe.Pos, u, false)
	strikes := fight(att, def, ManhattanDistance(from, target) == foe.Weapon.Range)

	path := b.reach(u).path(u.Pos, from)
	if path == nil {
		path = []Position{u.Pos, from}
	}

	forecast := &CombatForecast{
		Attacker: Combatant{UnitID: u.ID, HPBefore: u.HP, HPAfter: att.hp, Damage: att.damage, Strikes: att.strikes, Effective: att.effective, Advantage: att.advantage},
		Defender: Combatant{UnitID: foe.ID, HPBefore: foe.HP, HPAfter: def.hp, Damage: def.damage, Strikes: def.strikes, Effective: def.effective, Advantage: def.advantage},
		From:     from,
		Target:   target,
		Path:     path,
		Strikes:  strikes,
	}
	return forecast, att, def, nil
}

// PreviewCombat forecasts an attack on target after moving to from
func (b *Battle) PreviewCombat(unitID string, from, target Position) (*CombatForecast, error) {
	u, err := b.previewer(unitID)
	if err != nil {
		return nil, err
	}
	forecast, _, _, err := b.simulateCombat(u, from, target)
	return forecast, err
}

// ResolveCombat moves the unit to from, fights the unit on target and spends the action
func (b *Battle) ResolveCombat(unitID string, from, target Position) (*CombatResult, error) {
	u, err := b.actor(unitID)
	if err != nil {
		return nil, err
	}
	forecast, att, def, err := b.simulateCombat(u, from, target)
	if err != nil {
		return nil, err
	}

	foe := def.unit
	u.Pos = from
	u.HP, u.Cooldown = att.hp, att.cooldown
	foe.HP, foe.Cooldown = def.hp, def.cooldown
	u.Acted = true

	var defeated []string
	for _, f := range []*fighter{def, att} {
		if f.hp == 0 {
			defeated = append(defeated, f.unit.ID)
		}
	}
	if len(defeated) > 0 {
		b.remove(defeated...)
	}

	return &CombatResult{
		CombatForecast: *forecast,
		ActionResult:   *b.commit(u, "attack", defeated),
	}, nil
}
