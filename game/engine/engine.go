package engine

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrUnitNotFound  = errors.New("unit not found")
	ErrIllegalAction = errors.New("illegal action")
	ErrWrongSide     = errors.New("unit does not belong to the side in play")
	ErrMatchOver     = errors.New("match is over")
	ErrInvalidTeam   = errors.New("invalid team")
	ErrMapNotFound   = errors.New("map not found")
)

// Simulation is a single running battle. Implementations are not safe for
// concurrent use; callers serialize access.
type Simulation interface {
	MapID() string
	TurnState() TurnState
	Unit(id string) (Unit, bool)
	Units() []Unit

	PreviewMovement(unitID string) (*MovementPreview, error)
	MoveUnit(unitID string, to Position) (*ActionResult, error)
	PreviewCombat(unitID string, from, target Position) (*CombatForecast, error)
	ResolveCombat(unitID string, from, target Position) (*CombatResult, error)
	PreviewAssist(unitID string, from, target Position) (*AssistForecast, error)
	ResolveAssist(unitID string, from, target Position) (*AssistResult, error)
	EndAction(unitID string, at Position) (*ActionResult, error)
	EndTurn() (TurnState, error)
	ThreatRange(side Side) ([]Position, error)

	Snapshot() Snapshot
}

// Factory builds simulations from two teams. teams[0] plays SideA.
type Factory interface {
	NewSimulation(ctx context.Context, teams [2]Team) (Simulation, error)
}

// Validator checks roster legality
type Validator interface {
	ValidateTeam(heroes []HeroBuild) []ValidationError
}

// DatasetFactory builds Battles on one map of a dataset
type DatasetFactory struct {
	dataset *Dataset
	mapID   string
}

// NewFactory creates a factory; an empty mapID selects DefaultMapID
func NewFactory(dataset *Dataset, mapID string) *DatasetFactory {
	if mapID == "" {
		mapID = DefaultMapID
	}
	return &DatasetFactory{dataset: dataset, mapID: mapID}
}

// NewSimulation implements Factory
func (f *DatasetFactory) NewSimulation(ctx context.Context, teams [2]Team) (Simulation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return NewBattle(f.dataset, f.mapID, teams)
}

// Battle is the reference Simulation
type Battle struct {
	mapID string
	board MapConfig
	units map[string]*Unit
	order []string
	turn  TurnState
}

// NewBattle deploys both teams on the given map and starts turn 1 with SideA in play
func NewBattle(dataset *Dataset, mapID string, teams [2]Team) (*Battle, error) {
	board, ok := dataset.Maps[mapID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMapNotFound, mapID)
	}
	if err := ValidateMapConfig(&board); err != nil {
		return nil, err
	}

	b := &Battle{
		mapID: mapID,
		board: board,
		units: make(map[string]*Unit),
		turn:  TurnState{Turn: 1, CurrentSide: SideA, Sequence: 1},
	}

	for i, team := range teams {
		side, spawns := SideA, board.SpawnsA
		if i == 1 {
			side, spawns = SideB, board.SpawnsB
		}
		if team.Owner == "" {
			return nil, fmt.Errorf("%w: team %d has no owner", ErrInvalidTeam, i+1)
		}
		if len(team.Heroes) == 0 || len(team.Heroes) > len(spawns) {
			return nil, fmt.Errorf("%w: team %d must field between 1 and %d heroes", ErrInvalidTeam, i+1, len(spawns))
		}
		for n, build := range team.Heroes {
			unit, err := dataset.BuildUnit(build)
			if err != nil {
				return nil, fmt.Errorf("%w: team %d hero %d: %v", ErrInvalidTeam, i+1, n+1, err)
			}
			unit.ID = fmt.Sprintf("%s-unit-%d", team.Owner, n+1)
			unit.Owner = team.Owner
			unit.Side = side
			unit.Pos = spawns[n]
			if _, dup := b.units[unit.ID]; dup {
				return nil, fmt.Errorf("%w: duplicate unit id %s", ErrInvalidTeam, unit.ID)
			}
			b.units[unit.ID] = unit
			b.order = append(b.order, unit.ID)
		}
	}

	return b, nil
}

// BuildUnit computes a unit's final stats from a roster entry
func (d *Dataset) BuildUnit(build HeroBuild) (*Unit, error) {
	def, ok := d.Heroes[build.Name]
	if !ok {
		return nil, fmt.Errorf("unknown hero %q", build.Name)
	}

	weaponName := build.Weapon
	if weaponName == "" && len(def.Weapons) > 0 {
		weaponName = def.Weapons[0]
	}
	weapon, ok := d.Weapons[weaponName]
	if !ok {
		return nil, fmt.Errorf("unknown weapon %q", weaponName)
	}

	stats := def.Stats
	stats = applyModifier(stats, build.Asset, 3)
	stats = applyModifier(stats, build.Flaw, -3)
	stats = applyMerges(stats, build.Merges)
	stats.Atk += weapon.Might

	unit := &Unit{
		Name:     def.Name,
		MoveType: def.MoveType,
		Weapon:   weapon,
	}

	if build.Assist != "" {
		a, ok := d.Assists[build.Assist]
		if !ok {
			return nil, fmt.Errorf("unknown assist %q", build.Assist)
		}
		unit.Assist = &a
	}
	if build.Special != "" {
		s, ok := d.Specials[build.Special]
		if !ok {
			return nil, fmt.Errorf("unknown special %q", build.Special)
		}
		unit.Special = &s
		unit.Cooldown = s.Cooldown
	}
	for _, name := range []string{build.PassiveA, build.PassiveB, build.PassiveC, build.PassiveS} {
		if name == "" {
			continue
		}
		p, ok := d.Passives[name]
		if !ok {
			return nil, fmt.Errorf("unknown passive %q", name)
		}
		if p.Effect == EffectStats {
			stats = stats.Add(p.Stats)
		}
		unit.Passives = append(unit.Passives, p)
	}

	unit.Stats = stats
	unit.HP = stats.HP
	return unit, nil
}

var statOrder = []string{"hp", "atk", "spd", "def", "res"}

func applyModifier(s Stats, stat string, delta int) Stats {
	switch stat {
	case "hp":
		s.HP += delta
	case "atk":
		s.Atk += delta
	case "spd":
		s.Spd += delta
	case "def":
		s.Def += delta
	case "res":
		s.Res += delta
	}
	return s
}

// applyMerges grants +1 to two stats per merge, cycling through statOrder
func applyMerges(s Stats, merges int) Stats {
	for i := 0; i < merges; i++ {
		s = applyModifier(s, statOrder[(2*i)%len(statOrder)], 1)
		s = applyModifier(s, statOrder[(2*i+1)%len(statOrder)], 1)
	}
	return s
}

// MapID returns the id of the map the battle runs on
func (b *Battle) MapID() string {
	return b.mapID
}

// TurnState returns the current turn counter
func (b *Battle) TurnState() TurnState {
	return b.turn
}

// Unit returns a copy of a living unit
func (b *Battle) Unit(id string) (Unit, bool) {
	u, ok := b.units[id]
	if !ok {
		return Unit{}, false
	}
	return *u, true
}

// Units returns copies of all living units in deployment order
func (b *Battle) Units() []Unit {
	out := make([]Unit, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, *b.units[id])
	}
	return out
}

// unitAt returns the unit standing on p, if any
func (b *Battle) unitAt(p Position) *Unit {
	for _, id := range b.order {
		if u := b.units[id]; u.Pos == p {
			return u
		}
	}
	return nil
}

// actor returns a unit that may act right now
func (b *Battle) actor(unitID string) (*Unit, error) {
	if b.turn.Winner != "" {
		return nil, ErrMatchOver
	}
	u, ok := b.units[unitID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnitNotFound, unitID)
	}
	if u.Side != b.turn.CurrentSide {
		return nil, fmt.Errorf("%w: %s", ErrWrongSide, unitID)
	}
	if u.Acted {
		return nil, fmt.Errorf("%w: %s has already acted this turn", ErrIllegalAction, unitID)
	}
	return u, nil
}

// destination checks that u may end its move on p
func (b *Battle) destination(u *Unit, p Position) error {
	if p == u.Pos {
		return nil
	}
	r := b.reach(u)
	if r.stoppable[p] || b.warpTiles(u, r)[p] {
		return nil
	}
	return fmt.Errorf("%w: (%d,%d) is not reachable for %s", ErrIllegalAction, p.X, p.Y, u.ID)
}

func (b *Battle) commit(u *Unit, kind string, defeated []string) *ActionResult {
	b.turn.Sequence++
	return &ActionResult{
		UnitID:   u.ID,
		Kind:     kind,
		Position: u.Pos,
		Defeated: defeated,
		Turn:     b.turn,
	}
}

// MoveUnit moves a unit and spends its action
func (b *Battle) MoveUnit(unitID string, to Position) (*ActionResult, error) {
	u, err := b.actor(unitID)
	if err != nil {
		return nil, err
	}
	if err := b.destination(u, to); err != nil {
		return nil, err
	}
	u.Pos = to
	u.Acted = true
	return b.commit(u, "move", nil), nil
}

// EndAction spends a unit's action at the given tile without combat
func (b *Battle) EndAction(unitID string, at Position) (*ActionResult, error) {
	u, err := b.actor(unitID)
	if err != nil {
		return nil, err
	}
	if err := b.destination(u, at); err != nil {
		return nil, err
	}
	u.Pos = at
	u.Acted = true
	return b.commit(u, "wait", nil), nil
}

// EndTurn hands control to the other side. A full round ends when SideB passes.
func (b *Battle) EndTurn() (TurnState, error) {
	if b.turn.Winner != "" {
		return b.turn, ErrMatchOver
	}
	next := b.turn.CurrentSide.Opponent()
	if next == SideA {
		b.turn.Turn++
	}
	b.turn.CurrentSide = next
	for _, id := range b.order {
		if u := b.units[id]; u.Side == next {
			u.Acted = false
			u.Buffs = Stats{}
		}
	}
	b.turn.Sequence++
	return b.turn, nil
}

// remove takes defeated units off the board and settles the winner
func (b *Battle) remove(ids ...string) {
	for _, id := range ids {
		delete(b.units, id)
		for i, o := range b.order {
			if o == id {
				b.order = append(b.order[:i], b.order[i+1:]...)
				break
			}
		}
	}

	alive := map[Side]int{}
	for _, id := range b.order {
		alive[b.units[id].Side]++
	}
	switch {
	case alive[SideA] == 0:
		b.turn.Winner = SideB
	case alive[SideB] == 0:
		b.turn.Winner = SideA
	}
}

// Snapshot returns every unit as tags plus typed components
func (b *Battle) Snapshot() Snapshot {
	snap := Snapshot{MapID: b.mapID, Turn: b.turn}
	for _, id := range b.order {
		snap.Entities = append(snap.Entities, unitEntity(b.units[id]))
	}
	return snap
}

func unitEntity(u *Unit) Entity {
	tags := []string{"Hero", string(u.Side)}
	if u.Acted {
		tags = append(tags, "FinishedTurn")
	}

	components := []Component{
		{Type: "Name", Data: map[string]interface{}{"value": u.Name}},
		{Type: "Side", Data: map[string]interface{}{"value": u.Side, "owner": u.Owner}},
		{Type: "Position", Data: u.Pos},
		{Type: "MovementType", Data: map[string]interface{}{"value": u.MoveType}},
		{Type: "Stats", Data: map[string]interface{}{
			"hp": u.HP, "maxHp": u.MaxHP(),
			"atk": u.Stats.Atk, "spd": u.Stats.Spd, "def": u.Stats.Def, "res": u.Stats.Res,
		}},
		{Type: "Weapon", Data: map[string]interface{}{
			"name": u.Weapon.Name, "type": u.Weapon.Type, "color": u.Weapon.Type.Color(),
			"might": u.Weapon.Might, "range": u.Weapon.Range,
		}},
	}
	if u.Assist != nil {
		components = append(components, Component{Type: "Assist", Data: map[string]interface{}{"name": u.Assist.Name, "range": u.Assist.Range}})
	}
	if u.Special != nil {
		components = append(components, Component{Type: "Special", Data: map[string]interface{}{
			"name": u.Special.Name, "cooldown": u.Cooldown, "maxCooldown": u.Special.Cooldown,
		}})
	}
	for _, p := range u.Passives {
		components = append(components, Component{Type: "Skill", Data: map[string]interface{}{"name": p.Name, "slot": p.Slot}})
	}
	if u.Buffs != (Stats{}) {
		components = append(components, Component{Type: "MapBuff", Data: u.Buffs})
	}

	return Entity{ID: u.ID, Tags: tags, Components: components}
}
