package turn

import "github.com/wricardo/heroduel/game/engine"

// RequestKind tags an ActionRequest
type RequestKind string

const (
	PreviewMovement RequestKind = "preview-movement"
	ConfirmMovement RequestKind = "confirm-movement"
	PreviewCombat   RequestKind = "preview-combat"
	ConfirmCombat   RequestKind = "confirm-combat"
	PreviewAssist   RequestKind = "preview-assist"
	ConfirmAssist   RequestKind = "confirm-assist"
	EndAction       RequestKind = "end-action"
	EndTurn         RequestKind = "end-turn"
	QueryRange      RequestKind = "query-range"
)

// Mutating reports whether a request kind can change the simulation
func (k RequestKind) Mutating() bool {
	switch k {
	case ConfirmMovement, ConfirmCombat, ConfirmAssist, EndAction, EndTurn:
		return true
	}
	return false
}

// Request is one action a participant asks the mediator to perform.
// X,Y is the destination (movement, end action) or the tile the unit acts
// from (combat, assist); TargetX,TargetY is the tile acted upon.
type Request struct {
	Kind    RequestKind `json:"kind"`
	UnitID  string      `json:"unitId,omitempty"`
	X       int         `json:"x"`
	Y       int         `json:"y"`
	TargetX int         `json:"targetX"`
	TargetY int         `json:"targetY"`
	Toggle  bool        `json:"toggle,omitempty"`
}

// MovementPreview is a unit's tile sets, encoded for the wire
type MovementPreview struct {
	UnitID        string          `json:"unitId"`
	Movement      []int           `json:"movement"`
	Attack        []int           `json:"attack"`
	Warp          []int           `json:"warpTiles"`
	Targetable    []int           `json:"targetableTiles"`
	Assist        []int           `json:"assistArray"`
	Effectiveness map[string]bool `json:"effectiveness"`
}

// UnitMapStats is the stat panel shown next to a movement preview
type UnitMapStats struct {
	UnitID   string          `json:"unitId"`
	Name     string          `json:"name"`
	Side     engine.Side     `json:"side"`
	Owner    string          `json:"owner"`
	MoveType engine.MoveType `json:"moveType"`
	Position engine.Position `json:"position"`
	HP       int             `json:"hp"`
	MaxHP    int             `json:"maxHp"`
	Stats    engine.Stats    `json:"stats"`
	Buffs    engine.Stats    `json:"buffs"`
	Weapon   string          `json:"weapon"`
	Assist   string          `json:"assist,omitempty"`
	Special  string          `json:"special,omitempty"`
	Cooldown int             `json:"cooldown"`
	Passives []string        `json:"passives"`
	Acted    bool            `json:"acted"`
}

// MovementReply bundles the two answers to a movement preview
type MovementReply struct {
	Preview *MovementPreview
	Stats   *UnitMapStats
}

// MoveResult answers a movement confirmation or a freeze. A rejected
// request carries the unit's unchanged position and Valid=false.
type MoveResult struct {
	UnitID string               `json:"unitId"`
	X      int                  `json:"x"`
	Y      int                  `json:"y"`
	Valid  bool                 `json:"valid"`
	Action *engine.ActionResult `json:"actionResult,omitempty"`
}

// ControlGrant tells a participant who is in the room and whose turn it is
type ControlGrant struct {
	IDs         []string    `json:"ids"`
	ID          string      `json:"id"`
	CurrentSide engine.Side `json:"currentSide"`
	Side        engine.Side `json:"side"`
}

// EnemyRange is the answer to a threat-range query
type EnemyRange struct {
	Tiles []int `json:"tiles"`
}
