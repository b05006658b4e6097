package engine

// Terrain represents the kind of a map tile
type Terrain string

const (
	Plain    Terrain = "plain"
	Forest   Terrain = "forest"
	Mountain Terrain = "mountain"
	Water    Terrain = "water"
	Wall     Terrain = "wall"

	// Validation constants
	MaxBoardSize   = 10
	MaxTeamSize    = 4
	MaxMerges      = 10
	DefaultRarity  = 5
	FollowUpMargin = 5
)

// MoveType decides how far a unit travels and which terrain it may cross
type MoveType string

const (
	Infantry MoveType = "infantry"
	Armored  MoveType = "armored"
	Cavalry  MoveType = "cavalry"
	Flier    MoveType = "flier"
)

// WeaponType is the weapon family a hero wields
type WeaponType string

const (
	Sword     WeaponType = "sword"
	Lance     WeaponType = "lance"
	Axe       WeaponType = "axe"
	Bow       WeaponType = "bow"
	Staff     WeaponType = "staff"
	RedTome   WeaponType = "red-tome"
	BlueTome  WeaponType = "blue-tome"
	GreenTome WeaponType = "green-tome"
)

// Color returns the weapon triangle color for the weapon type
func (w WeaponType) Color() string {
	switch w {
	case Sword, RedTome:
		return "red"
	case Lance, BlueTome:
		return "blue"
	case Axe, GreenTome:
		return "green"
	default:
		return "colorless"
	}
}

// Magic reports whether attacks with this weapon target resistance
func (w WeaponType) Magic() bool {
	switch w {
	case Staff, RedTome, BlueTome, GreenTome:
		return true
	}
	return false
}

// Side identifies one of the two opposing teams
type Side string

const (
	SideA Side = "team1"
	SideB Side = "team2"
)

// Opponent returns the other side
func (s Side) Opponent() Side {
	if s == SideA {
		return SideB
	}
	return SideA
}

// Position represents x,y coordinates on the board
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Stats is the five-stat block shared by heroes, skills and buffs
type Stats struct {
	HP  int `json:"hp"`
	Atk int `json:"atk"`
	Spd int `json:"spd"`
	Def int `json:"def"`
	Res int `json:"res"`
}

// Add returns the sum of two stat blocks
func (s Stats) Add(o Stats) Stats {
	return Stats{HP: s.HP + o.HP, Atk: s.Atk + o.Atk, Spd: s.Spd + o.Spd, Def: s.Def + o.Def, Res: s.Res + o.Res}
}

// HeroBuild is a normalized roster entry: a hero and the skills it brings
type HeroBuild struct {
	Name     string `json:"name"`
	Weapon   string `json:"weapon"`
	Assist   string `json:"assist"`
	Special  string `json:"special"`
	PassiveA string `json:"passivea"`
	PassiveB string `json:"passiveb"`
	PassiveC string `json:"passivec"`
	PassiveS string `json:"passives"`
	Asset    string `json:"asset"`
	Flaw     string `json:"flaw"`
	Merges   int    `json:"merges"`
	Rarity   int    `json:"rarity"`
}

// Team is one side's roster bound to its owner
type Team struct {
	Owner  string      `json:"owner"`
	Side   Side        `json:"side"`
	Heroes []HeroBuild `json:"heroes"`
}

// ValidationError describes a single roster legality problem
type ValidationError struct {
	Index   int    `json:"index"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// TurnState is the externally visible turn counter of a simulation
type TurnState struct {
	Turn        int    `json:"turn"`
	CurrentSide Side   `json:"currentSide"`
	Sequence    uint64 `json:"sequence"`
	Winner      Side   `json:"winner,omitempty"`
}

// Unit is a hero deployed on the board
type Unit struct {
	ID       string         `json:"id"`
	Owner    string         `json:"owner"`
	Side     Side           `json:"side"`
	Name     string         `json:"name"`
	MoveType MoveType       `json:"moveType"`
	Pos      Position       `json:"position"`
	HP       int            `json:"hp"`
	Stats    Stats          `json:"stats"`
	Buffs    Stats          `json:"buffs"`
	Weapon   WeaponSkill    `json:"weapon"`
	Assist   *AssistSkill   `json:"assist,omitempty"`
	Special  *SpecialSkill  `json:"special,omitempty"`
	Cooldown int            `json:"cooldown"`
	Passives []PassiveSkill `json:"passives,omitempty"`
	Acted    bool           `json:"acted"`
}

// MaxHP returns the unit's hit point ceiling
func (u *Unit) MaxHP() int {
	return u.Stats.HP
}

// HasPassive reports whether the unit carries a passive with the given effect
func (u *Unit) HasPassive(effect PassiveEffect) (PassiveSkill, bool) {
	for _, p := range u.Passives {
		if p.Effect == effect {
			return p, true
		}
	}
	return PassiveSkill{}, false
}

// MovementPreview lists every option a unit has from its current tile
type MovementPreview struct {
	UnitID        string          `json:"unitId"`
	Movement      []Position      `json:"movement"`
	Attack        []Position      `json:"attack"`
	Warp          []Position      `json:"warp"`
	Targetable    []Position      `json:"targetable"`
	Assist        []Position      `json:"assist"`
	Effectiveness map[string]bool `json:"effectiveness"`
}

// Strike is one hit inside a combat
type Strike struct {
	AttackerID  string `json:"attackerId"`
	TargetID    string `json:"targetId"`
	Damage      int    `json:"damage"`
	Special     string `json:"special,omitempty"`
	RemainingHP int    `json:"remainingHp"`
}

// Combatant summarizes one side of a combat
type Combatant struct {
	UnitID    string `json:"unitId"`
	HPBefore  int    `json:"hpBefore"`
	HPAfter   int    `json:"hpAfter"`
	Damage    int    `json:"damage"`
	Strikes   int    `json:"strikes"`
	Effective bool   `json:"effective"`
	Advantage int    `json:"advantage"`
}

// CombatForecast is the outcome of a combat without applying it
type CombatForecast struct {
	Attacker Combatant  `json:"attacker"`
	Defender Combatant  `json:"defender"`
	From     Position   `json:"attackerCoordinates"`
	Target   Position   `json:"target"`
	Path     []Position `json:"path"`
	Strikes  []Strike   `json:"strikes"`
}

// AssistForecast is the outcome of a support action without applying it
type AssistForecast struct {
	Assist      string   `json:"assist"`
	SourceID    string   `json:"sourceId"`
	TargetID    string   `json:"targetId"`
	Source      Position `json:"source"`
	Target      Position `json:"target"`
	SourceAfter Position `json:"sourceAfter"`
	TargetAfter Position `json:"targetAfter"`
	TargetHP    int      `json:"targetHp"`
	Buff        Stats    `json:"buff"`
}

// ActionResult reports a committed mutation
type ActionResult struct {
	UnitID   string    `json:"unitId"`
	Kind     string    `json:"kind"`
	Position Position  `json:"position"`
	Defeated []string  `json:"defeated,omitempty"`
	Turn     TurnState `json:"turn"`
}

// CombatResult is a resolved combat
type CombatResult struct {
	CombatForecast
	ActionResult ActionResult `json:"result"`
}

// AssistResult is a resolved support action
type AssistResult struct {
	AssistForecast
	ActionResult ActionResult `json:"result"`
}

// Component is one typed payload attached to an entity
type Component struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Entity is a snapshot record of a unit as tags plus components
type Entity struct {
	ID         string      `json:"id"`
	Tags       []string    `json:"tags"`
	Components []Component `json:"components"`
}

// Snapshot is a full read of a simulation
type Snapshot struct {
	MapID    string    `json:"mapId"`
	Turn     TurnState `json:"turn"`
	Entities []Entity  `json:"entities"`
}
