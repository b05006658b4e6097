package engine

import "sort"

// WeaponSkill describes a weapon
type WeaponSkill struct {
	Name             string     `json:"name"`
	Type             WeaponType `json:"type"`
	Might            int        `json:"might"`
	Range            int        `json:"range"`
	EffectiveAgainst []MoveType `json:"effectiveAgainst,omitempty"`
}

// AssistKind groups support actions by how they resolve
type AssistKind string

const (
	AssistHeal       AssistKind = "heal"
	AssistReposition AssistKind = "reposition"
	AssistSwap       AssistKind = "swap"
	AssistDrawBack   AssistKind = "draw-back"
	AssistRally      AssistKind = "rally"
)

// AssistSkill describes a support action
type AssistSkill struct {
	Name   string     `json:"name"`
	Kind   AssistKind `json:"kind"`
	Range  int        `json:"range"`
	Amount int        `json:"amount,omitempty"`
	Buff   Stats      `json:"buff,omitempty"`
}

// SpecialSkill is a damage special that charges as combat goes on.
// Percentages are whole numbers.
type SpecialSkill struct {
	Name       string `json:"name"`
	Cooldown   int    `json:"cooldown"`
	IgnorePct  int    `json:"ignorePct,omitempty"`
	BoostPct   int    `json:"boostPct,omitempty"`
	FromDefPct int    `json:"fromDefPct,omitempty"`
	FromAtkPct int    `json:"fromAtkPct,omitempty"`
}

// PassiveEffect is the behavior a passive skill plugs into
type PassiveEffect string

const (
	EffectStats         PassiveEffect = "stats"
	EffectInitiate      PassiveEffect = "initiate"
	EffectAllyLowHPWarp PassiveEffect = "warp-to-weak-ally"
	EffectSelfLowHPWarp PassiveEffect = "warp-when-weak"
	EffectAura          PassiveEffect = "aura"
)

// PassiveSkill is an A/B/C/S skill
type PassiveSkill struct {
	Name      string        `json:"name"`
	Slot      string        `json:"slot"`
	Effect    PassiveEffect `json:"effect"`
	Stats     Stats         `json:"stats,omitempty"`
	Threshold int           `json:"threshold,omitempty"`
	Seal      bool          `json:"seal,omitempty"`
}

// HeroDefinition is the catalog entry of a hero at 5 stars level 40, without weapon
type HeroDefinition struct {
	Name       string     `json:"name"`
	MoveType   MoveType   `json:"moveType"`
	WeaponType WeaponType `json:"weaponType"`
	Stats      Stats      `json:"stats"`
	Weapons    []string   `json:"weapons"`
	Assists    []string   `json:"assists,omitempty"`
	Specials   []string   `json:"specials,omitempty"`
	PassivesA  []string   `json:"passivesA,omitempty"`
	PassivesB  []string   `json:"passivesB,omitempty"`
	PassivesC  []string   `json:"passivesC,omitempty"`
}

// Dataset holds every hero, skill and map known to the simulation
type Dataset struct {
	Heroes   map[string]HeroDefinition `json:"heroes"`
	Weapons  map[string]WeaponSkill    `json:"weapons"`
	Assists  map[string]AssistSkill    `json:"assists"`
	Specials map[string]SpecialSkill   `json:"specials"`
	Passives map[string]PassiveSkill   `json:"passives"`
	Maps     map[string]MapConfig      `json:"maps"`
}

// NewDataset returns an empty dataset with all maps allocated
func NewDataset() *Dataset {
	return &Dataset{
		Heroes:   make(map[string]HeroDefinition),
		Weapons:  make(map[string]WeaponSkill),
		Assists:  make(map[string]AssistSkill),
		Specials: make(map[string]SpecialSkill),
		Passives: make(map[string]PassiveSkill),
		Maps:     make(map[string]MapConfig),
	}
}

// Merge copies every entry of other into d, overwriting same-named entries
func (d *Dataset) Merge(other *Dataset) {
	if other == nil {
		return
	}
	for k, v := range other.Heroes {
		d.Heroes[k] = v
	}
	for k, v := range other.Weapons {
		d.Weapons[k] = v
	}
	for k, v := range other.Assists {
		d.Assists[k] = v
	}
	for k, v := range other.Specials {
		d.Specials[k] = v
	}
	for k, v := range other.Passives {
		d.Passives[k] = v
	}
	for k, v := range other.Maps {
		d.Maps[k] = v
	}
}

// HeroNames returns the sorted hero names
func (d *Dataset) HeroNames() []string {
	names := make([]string, 0, len(d.Heroes))
	for name := range d.Heroes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultDataset returns the built-in heroes, skills and maps
func DefaultDataset() *Dataset {
	d := NewDataset()

	for _, w := range []WeaponSkill{
		{Name: "Iron Sword", Type: Sword, Might: 6, Range: 1},
		{Name: "Silver Sword", Type: Sword, Might: 11, Range: 1},
		{Name: "Armorslayer", Type: Sword, Might: 8, Range: 1, EffectiveAgainst: []MoveType{Armored}},
		{Name: "Fólkvangr", Type: Sword, Might: 16, Range: 1},
		{Name: "Iron Lance", Type: Lance, Might: 6, Range: 1},
		{Name: "Silver Lance", Type: Lance, Might: 11, Range: 1},
		{Name: "Fensalir", Type: Lance, Might: 16, Range: 1},
		{Name: "Iron Axe", Type: Axe, Might: 6, Range: 1},
		{Name: "Silver Axe", Type: Axe, Might: 11, Range: 1},
		{Name: "Nóatún", Type: Axe, Might: 16, Range: 1},
		{Name: "Iron Bow", Type: Bow, Might: 4, Range: 2, EffectiveAgainst: []MoveType{Flier}},
		{Name: "Silver Bow", Type: Bow, Might: 9, Range: 2, EffectiveAgainst: []MoveType{Flier}},
		{Name: "Thoron", Type: BlueTome, Might: 9, Range: 2},
		{Name: "Elthunder", Type: BlueTome, Might: 7, Range: 2},
		{Name: "Assault", Type: Staff, Might: 10, Range: 2},
	} {
		d.Weapons[w.Name] = w
	}

	for _, a := range []AssistSkill{
		{Name: "Heal", Kind: AssistHeal, Range: 1, Amount: 5},
		{Name: "Mend", Kind: AssistHeal, Range: 1, Amount: 10},
		{Name: "Recover", Kind: AssistHeal, Range: 1, Amount: 15},
		{Name: "Reposition", Kind: AssistReposition, Range: 1},
		{Name: "Swap", Kind: AssistSwap, Range: 1},
		{Name: "Draw Back", Kind: AssistDrawBack, Range: 1},
		{Name: "Rally Attack", Kind: AssistRally, Range: 1, Buff: Stats{Atk: 4}},
		{Name: "Rally Speed", Kind: AssistRally, Range: 1, Buff: Stats{Spd: 4}},
	} {
		d.Assists[a.Name] = a
	}

	for _, s := range []SpecialSkill{
		{Name: "Glimmer", Cooldown: 2, BoostPct: 50},
		{Name: "Moonbow", Cooldown: 2, IgnorePct: 30},
		{Name: "Luna", Cooldown: 3, IgnorePct: 50},
		{Name: "Bonfire", Cooldown: 3, FromDefPct: 50},
		{Name: "Draconic Aura", Cooldown: 3, FromAtkPct: 30},
		{Name: "Astra", Cooldown: 4, BoostPct: 150},
	} {
		d.Specials[s.Name] = s
	}

	for _, p := range []PassiveSkill{
		{Name: "Attack +3", Slot: "A", Effect: EffectStats, Stats: Stats{Atk: 3}, Seal: true},
		{Name: "Speed +3", Slot: "A", Effect: EffectStats, Stats: Stats{Spd: 3}, Seal: true},
		{Name: "Defense +3", Slot: "A", Effect: EffectStats, Stats: Stats{Def: 3}, Seal: true},
		{Name: "HP +5", Slot: "A", Effect: EffectStats, Stats: Stats{HP: 5}, Seal: true},
		{Name: "Fury 3", Slot: "A", Effect: EffectStats, Stats: Stats{Atk: 3, Spd: 3, Def: 3, Res: 3}},
		{Name: "Death Blow 3", Slot: "A", Effect: EffectInitiate, Stats: Stats{Atk: 6}},
		{Name: "Darting Blow 3", Slot: "A", Effect: EffectInitiate, Stats: Stats{Spd: 6}},
		{Name: "Wings of Mercy 3", Slot: "B", Effect: EffectAllyLowHPWarp, Threshold: 50},
		{Name: "Escape Route 3", Slot: "B", Effect: EffectSelfLowHPWarp, Threshold: 50},
		{Name: "Spur Atk 2", Slot: "C", Effect: EffectAura, Stats: Stats{Atk: 3}, Seal: true},
		{Name: "Spur Def 2", Slot: "C", Effect: EffectAura, Stats: Stats{Def: 3}},
		{Name: "Spur Res 2", Slot: "C", Effect: EffectAura, Stats: Stats{Res: 3}},
	} {
		d.Passives[p.Name] = p
	}

	for _, h := range []HeroDefinition{
		{
			Name: "Alfonse", MoveType: Infantry, WeaponType: Sword,
			Stats:     Stats{HP: 43, Atk: 19, Spd: 25, Def: 32, Res: 22},
			Weapons:   []string{"Iron Sword", "Silver Sword", "Fólkvangr"},
			Assists:   []string{"Reposition", "Swap"},
			Specials:  []string{"Glimmer", "Luna"},
			PassivesA: []string{"Death Blow 3", "Attack +3"},
			PassivesB: []string{"Wings of Mercy 3"},
			PassivesC: []string{"Spur Atk 2"},
		},
		{
			Name: "Sharena", MoveType: Infantry, WeaponType: Lance,
			Stats:     Stats{HP: 43, Atk: 16, Spd: 32, Def: 29, Res: 22},
			Weapons:   []string{"Iron Lance", "Silver Lance", "Fensalir"},
			Assists:   []string{"Rally Attack", "Reposition"},
			Specials:  []string{"Moonbow", "Luna"},
			PassivesA: []string{"Fury 3", "Speed +3"},
			PassivesB: []string{"Escape Route 3"},
			PassivesC: []string{"Spur Def 2"},
		},
		{
			Name: "Anna", MoveType: Infantry, WeaponType: Axe,
			Stats:     Stats{HP: 41, Atk: 29, Spd: 38, Def: 22, Res: 28},
			Weapons:   []string{"Iron Axe", "Silver Axe", "Nóatún"},
			Assists:   []string{"Draw Back"},
			Specials:  []string{"Astra", "Glimmer"},
			PassivesA: []string{"Darting Blow 3", "Speed +3"},
			PassivesB: []string{"Escape Route 3"},
			PassivesC: []string{"Spur Res 2"},
		},
		{
			Name: "Draug", MoveType: Armored, WeaponType: Sword,
			Stats:     Stats{HP: 50, Atk: 24, Spd: 19, Def: 38, Res: 18},
			Weapons:   []string{"Iron Sword", "Silver Sword", "Armorslayer"},
			Assists:   []string{"Swap"},
			Specials:  []string{"Bonfire"},
			PassivesA: []string{"Defense +3", "HP +5"},
			PassivesC: []string{"Spur Def 2"},
		},
		{
			Name: "Cain", MoveType: Cavalry, WeaponType: Sword,
			Stats:     Stats{HP: 42, Atk: 24, Spd: 30, Def: 28, Res: 20},
			Weapons:   []string{"Iron Sword", "Silver Sword"},
			Assists:   []string{"Draw Back"},
			Specials:  []string{"Moonbow", "Bonfire"},
			PassivesA: []string{"Death Blow 3"},
			PassivesC: []string{"Spur Atk 2"},
		},
		{
			Name: "Palla", MoveType: Flier, WeaponType: Lance,
			Stats:     Stats{HP: 39, Atk: 22, Spd: 30, Def: 27, Res: 29},
			Weapons:   []string{"Iron Lance", "Silver Lance"},
			Assists:   []string{"Rally Speed"},
			Specials:  []string{"Draconic Aura", "Moonbow"},
			PassivesA: []string{"Speed +3", "Darting Blow 3"},
			PassivesB: []string{"Wings of Mercy 3"},
		},
		{
			Name: "Virion", MoveType: Infantry, WeaponType: Bow,
			Stats:     Stats{HP: 41, Atk: 24, Spd: 27, Def: 25, Res: 16},
			Weapons:   []string{"Iron Bow", "Silver Bow"},
			Specials:  []string{"Luna", "Draconic Aura"},
			PassivesA: []string{"Death Blow 3", "Attack +3"},
			PassivesB: []string{"Escape Route 3"},
		},
		{
			Name: "Linde", MoveType: Infantry, WeaponType: BlueTome,
			Stats:     Stats{HP: 35, Atk: 25, Spd: 35, Def: 14, Res: 30},
			Weapons:   []string{"Elthunder", "Thoron"},
			Specials:  []string{"Draconic Aura", "Glimmer"},
			PassivesA: []string{"Speed +3", "Attack +3"},
			PassivesC: []string{"Spur Res 2"},
		},
		{
			Name: "Serra", MoveType: Infantry, WeaponType: Staff,
			Stats:     Stats{HP: 33, Atk: 20, Spd: 28, Def: 17, Res: 32},
			Weapons:   []string{"Assault"},
			Assists:   []string{"Heal", "Mend", "Recover"},
			PassivesA: []string{"HP +5"},
			PassivesB: []string{"Wings of Mercy 3"},
			PassivesC: []string{"Spur Res 2"},
		},
	} {
		d.Heroes[h.Name] = h
	}

	arena := DefaultMap()
	d.Maps[arena.ID] = arena

	return d
}
