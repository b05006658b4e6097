package turn

import (
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/wricardo/heroduel/game/engine"
)

var (
	ErrUnitNotFound = errors.New("unit not found")
	ErrInvalidMove  = errors.New("invalid move")
	ErrNotYourTurn  = errors.New("not your turn")
	ErrEngineFault  = errors.New("engine fault")
	ErrMatchOver    = errors.New("match is over")
)

// Options tunes a Mediator
type Options struct {
	// StrictEndTurn rejects end-turn requests from the participant who is not in play
	StrictEndTurn bool
	Logger        *zap.Logger
}

type gateKey struct {
	participant string
	unitID      string
	kind        RequestKind
}

// gate records what a preview allowed, valid for the rest of the turn in
// which it was taken or until its unit acts
type gate struct {
	turn   int
	side   engine.Side
	tiles  map[engine.Position]bool
	from   engine.Position
	target engine.Position
}

// Mediator sits between participants and a Simulation. Every mutation must
// be preceded by a preview of the same kind and parameters taken during the
// current turn, and only the participant whose side is in play may
// mutate. A Mediator is not safe for concurrent use; the owning room
// serializes calls.
type Mediator struct {
	sim          engine.Simulation
	participants [2]string
	gates        map[gateKey]gate
	strict       bool
	logger       *zap.Logger
}

// New wraps sim. participants[0] controls SideA and participants[1] SideB.
func New(sim engine.Simulation, participants [2]string, opts Options) *Mediator {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Mediator{
		sim:          sim,
		participants: participants,
		gates:        make(map[gateKey]gate),
		strict:       opts.StrictEndTurn,
		logger:       logger,
	}
}

// Participants returns the participants in side order
func (m *Mediator) Participants() [2]string {
	return m.participants
}

// SideOf returns the side a participant controls
func (m *Mediator) SideOf(participant string) (engine.Side, bool) {
	switch participant {
	case "":
		return "", false
	case m.participants[0]:
		return engine.SideA, true
	case m.participants[1]:
		return engine.SideB, true
	}
	return "", false
}

// TurnState returns the simulation's turn counter
func (m *Mediator) TurnState() engine.TurnState {
	return m.sim.TurnState()
}

// Handle dispatches a tagged request to the matching operation. The reply
// may be non-nil alongside an error (a rejected movement still reports the
// unit's position).
func (m *Mediator) Handle(participant string, req Request) (interface{}, error) {
	from := engine.Position{X: req.X, Y: req.Y}
	target := engine.Position{X: req.TargetX, Y: req.TargetY}

	switch req.Kind {
	case PreviewMovement:
		preview, stats, err := m.PreviewMovement(participant, req.UnitID)
		if err != nil {
			return nil, err
		}
		return &MovementReply{Preview: preview, Stats: stats}, nil
	case ConfirmMovement:
		return m.ConfirmMovement(participant, req.UnitID, from)
	case PreviewCombat:
		return m.PreviewCombat(participant, req.UnitID, from, target)
	case ConfirmCombat:
		return m.ConfirmCombat(participant, req.UnitID, from, target)
	case PreviewAssist:
		return m.PreviewAssist(participant, req.UnitID, from, target)
	case ConfirmAssist:
		return m.ConfirmAssist(participant, req.UnitID, from, target)
	case EndAction:
		return m.EndAction(participant, req.UnitID, from)
	case EndTurn:
		return m.EndTurn(participant)
	case QueryRange:
		return m.QueryEnemyRange(participant, req.Toggle)
	}
	return nil, fmt.Errorf("%w: unknown request %q", ErrInvalidMove, req.Kind)
}

// PreviewMovement returns the unit's options and records a movement gate
// for the requester. Previews are read-only and allowed at any time.
func (m *Mediator) PreviewMovement(participant, unitID string) (*MovementPreview, *UnitMapStats, error) {
	u, err := m.unit(unitID)
	if err != nil {
		return nil, nil, err
	}

	var preview *engine.MovementPreview
	err = m.guard("preview movement", func() (err error) {
		preview, err = m.sim.PreviewMovement(unitID)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	assist := make(map[engine.Position]bool, len(preview.Assist))
	for _, p := range preview.Assist {
		assist[p] = true
	}
	allowed := make(map[engine.Position]bool)
	movement := make([]engine.Position, 0, len(preview.Movement))
	for _, p := range preview.Movement {
		if assist[p] {
			continue
		}
		movement = append(movement, p)
		allowed[p] = true
	}
	for _, p := range preview.Warp {
		allowed[p] = true
	}

	state := m.sim.TurnState()
	m.gates[gateKey{participant, unitID, PreviewMovement}] = gate{
		turn:  state.Turn,
		side:  state.CurrentSide,
		tiles: allowed,
	}

	return &MovementPreview{
		UnitID:        unitID,
		Movement:      engine.EncodeTiles(movement),
		Attack:        engine.EncodeTiles(preview.Attack),
		Warp:          engine.EncodeTiles(preview.Warp),
		Targetable:    engine.EncodeTiles(preview.Targetable),
		Assist:        engine.EncodeTiles(preview.Assist),
		Effectiveness: preview.Effectiveness,
	}, mapStats(u), nil
}

// ConfirmMovement moves a unit to a tile its last preview offered. On
// rejection the result carries the unit's unchanged position and Valid=false.
func (m *Mediator) ConfirmMovement(participant, unitID string, to engine.Position) (*MoveResult, error) {
	return m.settle(participant, unitID, to, "confirm movement", true, m.sim.MoveUnit)
}

// EndAction freezes a unit in place, or on a tile its last preview offered
func (m *Mediator) EndAction(participant, unitID string, at engine.Position) (*MoveResult, error) {
	return m.settle(participant, unitID, at, "end action", false, m.sim.EndAction)
}

// settle applies a movement-like action. A gated action always needs a
// current movement preview; an ungated one only when it leaves the unit's tile.
func (m *Mediator) settle(participant, unitID string, to engine.Position, op string, gated bool,
	apply func(string, engine.Position) (*engine.ActionResult, error)) (*MoveResult, error) {
	u, err := m.unit(unitID)
	if err != nil {
		return nil, err
	}
	rejected := &MoveResult{UnitID: unitID, X: u.Pos.X, Y: u.Pos.Y}

	if err := m.authorize(participant, u); err != nil {
		return rejected, err
	}
	if !onBoard(to) {
		return rejected, fmt.Errorf("%w: tile (%d,%d) is off the board", ErrInvalidMove, to.X, to.Y)
	}
	if gated || to != u.Pos {
		g, ok := m.gates[gateKey{participant, unitID, PreviewMovement}]
		if !ok || !m.current(g) {
			return rejected, fmt.Errorf("%w: no current movement preview for %s", ErrInvalidMove, unitID)
		}
		if !g.tiles[to] {
			return rejected, fmt.Errorf("%w: tile (%d,%d) was not offered", ErrInvalidMove, to.X, to.Y)
		}
	}

	var res *engine.ActionResult
	err = m.guard(op, func() (err error) {
		res, err = apply(unitID, to)
		return err
	})
	if err != nil {
		return rejected, err
	}
	m.release(unitID)

	m.logger.Debug("unit settled",
		zap.String("op", op),
		zap.String("unit", unitID),
		zap.Int("x", res.Position.X),
		zap.Int("y", res.Position.Y),
		zap.Uint64("sequence", res.Turn.Sequence))

	return &MoveResult{UnitID: unitID, X: res.Position.X, Y: res.Position.Y, Valid: true, Action: res}, nil
}

// PreviewCombat forecasts the unit attacking target from a tile
func (m *Mediator) PreviewCombat(participant, unitID string, from, target engine.Position) (*engine.CombatForecast, error) {
	if _, err := m.unit(unitID); err != nil {
		return nil, err
	}
	var forecast *engine.CombatForecast
	err := m.guard("preview combat", func() (err error) {
		forecast, err = m.sim.PreviewCombat(unitID, from, target)
		return err
	})
	if err != nil {
		return nil, err
	}
	m.open(participant, unitID, PreviewCombat, from, target)
	return forecast, nil
}

// ConfirmCombat resolves the combat its last preview forecast
func (m *Mediator) ConfirmCombat(participant, unitID string, from, target engine.Position) (*engine.CombatResult, error) {
	if err := m.admit(participant, unitID, PreviewCombat, from, target); err != nil {
		return nil, err
	}
	var res *engine.CombatResult
	err := m.guard("confirm combat", func() (err error) {
		res, err = m.sim.ResolveCombat(unitID, from, target)
		return err
	})
	if err != nil {
		return nil, err
	}
	m.release(unitID)
	m.release(res.ActionResult.Defeated...)

	m.logger.Info("combat resolved",
		zap.String("unit", unitID),
		zap.Strings("defeated", res.ActionResult.Defeated),
		zap.String("winner", string(res.ActionResult.Turn.Winner)))
	return res, nil
}

// PreviewAssist forecasts the unit's assist on target from a tile
func (m *Mediator) PreviewAssist(participant, unitID string, from, target engine.Position) (*engine.AssistForecast, error) {
	if _, err := m.unit(unitID); err != nil {
		return nil, err
	}
	var forecast *engine.AssistForecast
	err := m.guard("preview assist", func() (err error) {
		forecast, err = m.sim.PreviewAssist(unitID, from, target)
		return err
	})
	if err != nil {
		return nil, err
	}
	m.open(participant, unitID, PreviewAssist, from, target)
	return forecast, nil
}

// ConfirmAssist applies the assist its last preview forecast
func (m *Mediator) ConfirmAssist(participant, unitID string, from, target engine.Position) (*engine.AssistResult, error) {
	if err := m.admit(participant, unitID, PreviewAssist, from, target); err != nil {
		return nil, err
	}
	var (
		res    *engine.AssistResult
		helped []string
	)
	err := m.guard("confirm assist", func() (err error) {
		for _, u := range m.sim.Units() {
			if u.Pos == target {
				helped = append(helped, u.ID)
			}
		}
		res, err = m.sim.ResolveAssist(unitID, from, target)
		return err
	})
	if err != nil {
		return nil, err
	}
	m.release(unitID)
	m.release(helped...)
	return res, nil
}

// EndTurn hands control to the other side. Any participant of the room may
// end the turn unless StrictEndTurn is set.
func (m *Mediator) EndTurn(participant string) (engine.TurnState, error) {
	side, ok := m.SideOf(participant)
	if !ok {
		return engine.TurnState{}, fmt.Errorf("%w: %s does not play in this room", ErrNotYourTurn, participant)
	}
	current := m.sim.TurnState()
	if current.Winner != "" {
		return current, ErrMatchOver
	}
	if m.strict && side != current.CurrentSide {
		return current, fmt.Errorf("%w: %s is in play", ErrNotYourTurn, current.CurrentSide)
	}

	var state engine.TurnState
	err := m.guard("end turn", func() (err error) {
		state, err = m.sim.EndTurn()
		return err
	})
	if err != nil {
		return current, err
	}
	m.reset()

	m.logger.Info("turn ended",
		zap.String("participant", participant),
		zap.Int("turn", state.Turn),
		zap.String("side", string(state.CurrentSide)))
	return state, nil
}

// QueryEnemyRange returns the tiles the requester's opponent threatens, or
// nothing when the overlay is toggled off
func (m *Mediator) QueryEnemyRange(participant string, toggle bool) (*EnemyRange, error) {
	side, ok := m.SideOf(participant)
	if !ok {
		return nil, fmt.Errorf("%w: %s does not play in this room", ErrNotYourTurn, participant)
	}
	if !toggle {
		return &EnemyRange{Tiles: []int{}}, nil
	}
	var tiles []engine.Position
	err := m.guard("enemy range", func() (err error) {
		tiles, err = m.sim.ThreatRange(side.Opponent())
		return err
	})
	if err != nil {
		return nil, err
	}
	return &EnemyRange{Tiles: engine.EncodeTiles(tiles)}, nil
}

// Snapshot returns the whole board state
func (m *Mediator) Snapshot() (engine.Snapshot, error) {
	var snap engine.Snapshot
	err := m.guard("snapshot", func() error {
		snap = m.sim.Snapshot()
		return nil
	})
	return snap, err
}

// AllowControl tells participant which side it controls and who is in play
func (m *Mediator) AllowControl(participant string) (*ControlGrant, error) {
	side, ok := m.SideOf(participant)
	if !ok {
		return nil, fmt.Errorf("%w: %s does not play in this room", ErrNotYourTurn, participant)
	}
	return &ControlGrant{
		IDs:         []string{m.participants[0], m.participants[1]},
		ID:          participant,
		CurrentSide: m.sim.TurnState().CurrentSide,
		Side:        side,
	}, nil
}

func (m *Mediator) unit(unitID string) (engine.Unit, error) {
	var (
		u  engine.Unit
		ok bool
	)
	err := m.guard("unit lookup", func() error {
		u, ok = m.sim.Unit(unitID)
		return nil
	})
	if err != nil {
		return engine.Unit{}, err
	}
	if !ok {
		return engine.Unit{}, fmt.Errorf("%w: %s", ErrUnitNotFound, unitID)
	}
	return u, nil
}

// authorize checks that participant may act with u right now
func (m *Mediator) authorize(participant string, u engine.Unit) error {
	state := m.sim.TurnState()
	if state.Winner != "" {
		return ErrMatchOver
	}
	side, ok := m.SideOf(participant)
	if !ok || side != state.CurrentSide {
		return fmt.Errorf("%w: %s is in play", ErrNotYourTurn, state.CurrentSide)
	}
	if u.Owner != participant {
		return fmt.Errorf("%w: %s belongs to %s", ErrNotYourTurn, u.ID, u.Owner)
	}
	return nil
}

func (m *Mediator) open(participant, unitID string, kind RequestKind, from, target engine.Position) {
	state := m.sim.TurnState()
	m.gates[gateKey{participant, unitID, kind}] = gate{
		turn:   state.Turn,
		side:   state.CurrentSide,
		from:   from,
		target: target,
	}
}

// current reports whether g was taken during the turn in play
func (m *Mediator) current(g gate) bool {
	state := m.sim.TurnState()
	return g.turn == state.Turn && g.side == state.CurrentSide
}

// admit checks ownership and that a matching preview was taken this turn
func (m *Mediator) admit(participant, unitID string, kind RequestKind, from, target engine.Position) error {
	u, err := m.unit(unitID)
	if err != nil {
		return err
	}
	if err := m.authorize(participant, u); err != nil {
		return err
	}
	g, ok := m.gates[gateKey{participant, unitID, kind}]
	if !ok || !m.current(g) {
		return fmt.Errorf("%w: no current %s for %s", ErrInvalidMove, kind, unitID)
	}
	if g.from != from || g.target != target {
		return fmt.Errorf("%w: request differs from the last %s", ErrInvalidMove, kind)
	}
	return nil
}

// release drops every gate held on the given units
func (m *Mediator) release(unitIDs ...string) {
	for _, id := range unitIDs {
		for key := range m.gates {
			if key.unitID == id {
				delete(m.gates, key)
			}
		}
	}
}

// reset drops every gate once the turn passes
func (m *Mediator) reset() {
	m.gates = make(map[gateKey]gate)
}

// guard runs fn, mapping engine errors onto mediator errors and turning a
// panic into ErrEngineFault
func (m *Mediator) guard(op string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("engine panic", zap.String("op", op), zap.Any("panic", r))
			err = fmt.Errorf("%w: %s: %v", ErrEngineFault, op, r)
		}
	}()
	if err := fn(); err != nil {
		return classify(op, err)
	}
	return nil
}

func classify(op string, err error) error {
	switch {
	case errors.Is(err, engine.ErrUnitNotFound):
		return fmt.Errorf("%w: %v", ErrUnitNotFound, err)
	case errors.Is(err, engine.ErrIllegalAction):
		return fmt.Errorf("%w: %v", ErrInvalidMove, err)
	case errors.Is(err, engine.ErrWrongSide):
		return fmt.Errorf("%w: %v", ErrNotYourTurn, err)
	case errors.Is(err, engine.ErrMatchOver):
		return fmt.Errorf("%w: %v", ErrMatchOver, err)
	}
	return fmt.Errorf("%w: %s: %v", ErrEngineFault, op, err)
}

func onBoard(p engine.Position) bool {
	return p.X >= 0 && p.Y >= 0 && p.X < engine.MaxBoardSize && p.Y < engine.MaxBoardSize
}

func mapStats(u engine.Unit) *UnitMapStats {
	stats := &UnitMapStats{
		UnitID:   u.ID,
		Name:     u.Name,
		Side:     u.Side,
		Owner:    u.Owner,
		MoveType: u.MoveType,
		Position: u.Pos,
		HP:       u.HP,
		MaxHP:    u.MaxHP(),
		Stats:    u.Stats,
		Buffs:    u.Buffs,
		Weapon:   u.Weapon.Name,
		Cooldown: u.Cooldown,
		Passives: []string{},
		Acted:    u.Acted,
	}
	if u.Assist != nil {
		stats.Assist = u.Assist.Name
	}
	if u.Special != nil {
		stats.Special = u.Special.Name
	}
	for _, p := range u.Passives {
		stats.Passives = append(stats.Passives, p.Name)
	}
	sort.Strings(stats.Passives)
	return stats
}
