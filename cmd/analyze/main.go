// Command analyze prints quick, human-readable matchup heuristics for the
// hero catalog. Every hero is fielded with the last weapon of its learnset
// and made to attack every other hero on an open field; the report shows
// damage per strike, strike counts and whether the attack kills.
//
// Usage: analyze [catalog dir] [hero...]
package main

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/wricardo/heroduel/game/catalog"
	"github.com/wricardo/heroduel/game/engine"
)

const fieldID = "analysis-field"

// field is an empty 3x3 board: the attacker spawns at the bottom and the
// defender at the top
var field = engine.MapConfig{
	ID:      fieldID,
	Name:    "Analysis field",
	Layout:  []string{"...", "...", "..."},
	SpawnsA: []engine.Position{{X: 0, Y: 2}, {X: 1, Y: 2}, {X: 2, Y: 2}, {X: 2, Y: 1}},
	SpawnsB: []engine.Position{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 2, Y: 0}, {X: 1, Y: 1}},
}

// Matchup is one attacker/defender forecast
type Matchup struct {
	Attacker string
	Defender string
	Forecast *engine.CombatForecast
}

// Kills reports whether the attack leaves the defender at 0 HP
func (m Matchup) Kills() bool {
	return m.Forecast.Defender.HPAfter == 0
}

// Dies reports whether the counterattack kills the attacker
func (m Matchup) Dies() bool {
	return m.Forecast.Attacker.HPAfter == 0
}

// buildFor fields a hero with the last weapon it can learn
func buildFor(d *engine.Dataset, name string) (engine.HeroBuild, error) {
	def, ok := d.Heroes[name]
	if !ok {
		return engine.HeroBuild{}, fmt.Errorf("unknown hero %s", name)
	}
	build := engine.HeroBuild{Name: name, Rarity: engine.DefaultRarity}
	if len(def.Weapons) > 0 {
		build.Weapon = def.Weapons[len(def.Weapons)-1]
	}
	return build, nil
}

// analyzeMatchup forecasts attacker hitting defender from its weapon's range
func analyzeMatchup(d *engine.Dataset, attacker, defender engine.HeroBuild) (*engine.CombatForecast, error) {
	battle, err := engine.NewBattle(d, fieldID, [2]engine.Team{
		{Owner: "attacker", Heroes: []engine.HeroBuild{attacker}},
		{Owner: "defender", Heroes: []engine.HeroBuild{defender}},
	})
	if err != nil {
		return nil, err
	}

	unit, ok := battle.Unit("attacker-unit-1")
	if !ok {
		return nil, fmt.Errorf("attacker was not deployed")
	}
	target := field.SpawnsB[0]
	from := engine.Position{X: target.X, Y: target.Y + unit.Weapon.Range}

	return battle.PreviewCombat(unit.ID, from, target)
}

// analyze runs every ordered pair of the named heroes, or of the whole
// dataset when names is empty
func analyze(d *engine.Dataset, names []string) ([]Matchup, error) {
	d.Maps[fieldID] = field
	if len(names) == 0 {
		names = d.HeroNames()
	}
	sort.Strings(names)

	builds := make(map[string]engine.HeroBuild, len(names))
	for _, name := range names {
		b, err := buildFor(d, name)
		if err != nil {
			return nil, err
		}
		builds[name] = b
	}

	var out []Matchup
	for _, a := range names {
		for _, b := range names {
			if a == b {
				continue
			}
			forecast, err := analyzeMatchup(d, builds[a], builds[b])
			if err != nil {
				return nil, fmt.Errorf("%s vs %s: %w", a, b, err)
			}
			out = append(out, Matchup{Attacker: a, Defender: b, Forecast: forecast})
		}
	}
	return out, nil
}

func report(w io.Writer, matchups []Matchup) {
	current := ""
	for _, m := range matchups {
		if m.Attacker != current {
			current = m.Attacker
			fmt.Fprintf(w, "\n=== %s attacking ===\n", current)
		}
		att, def := m.Forecast.Attacker, m.Forecast.Defender

		outcome := ""
		switch {
		case m.Kills():
			outcome = "  ✅ KO"
		case m.Dies():
			outcome = "  ⚠️  dies to counter"
		}
		fmt.Fprintf(w, "vs %-10s deals %2dx%d (HP %d→%d) takes %2dx%d (HP %d→%d)%s\n",
			m.Defender, att.Damage, att.Strikes, def.HPBefore, def.HPAfter,
			def.Damage, def.Strikes, att.HPBefore, att.HPAfter, outcome)
	}

	kills := 0
	for _, m := range matchups {
		if m.Kills() {
			kills++
		}
	}
	fmt.Fprintf(w, "\n%d matchups, %d one-round KOs\n", len(matchups), kills)
}

func main() {
	dir := ""
	var names []string
	if len(os.Args) > 1 {
		dir = os.Args[1]
		names = os.Args[2:]
	}

	cat, err := catalog.NewManager(dir)
	if err != nil {
		fmt.Printf("Error loading catalog: %v\n", err)
		os.Exit(1)
	}

	d := engine.NewDataset()
	d.Merge(cat.Dataset())

	matchups, err := analyze(d, names)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	report(os.Stdout, matchups)
}
