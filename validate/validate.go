// Command validate checks the hero catalog directory before a server loads it.
//
// Usage: validate [dir] (default ./catalog)
//
// Every dir/*.json is a dataset file. It checks:
//   - JSON structure and map layouts (via the engine loader)
//   - Spawn connectivity: each side's spawns reach the other side's spawns
//     for ground movement types
//   - Hero learnsets reference skills that exist
//
// Every dir/teams/*.json is a roster, validated against the merged catalog
// exactly as POST /team would.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/wricardo/heroduel/game/catalog"
	"github.com/wricardo/heroduel/game/engine"
	"github.com/wricardo/heroduel/game/team"
)

// ValidationResult captures the outcome of validating a single file.
// If Valid is true, Errors contains informational messages; otherwise it
// accumulates the validation errors that were found.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
}

func (r *ValidationResult) fail(format string, args ...interface{}) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *ValidationResult) info(format string, args ...interface{}) {
	r.Errors = append(r.Errors, "✓ "+fmt.Sprintf(format, args...))
}

// validateDataset loads one dataset file and checks what the loader does not:
// map connectivity and learnset references. Learnsets are resolved against
// the built-in dataset merged with the file.
func validateDataset(filePath string) ValidationResult {
	result := ValidationResult{
		File:   filepath.Base(filePath),
		Valid:  true,
		Errors: []string{},
	}

	d, err := engine.LoadDatasetFile(filePath)
	if err != nil {
		result.fail("Failed to load dataset: %v", err)
		return result
	}

	merged := engine.DefaultDataset()
	merged.Merge(d)

	for _, name := range sortedKeys(d.Heroes) {
		hero := d.Heroes[name]
		for _, w := range hero.Weapons {
			if _, ok := merged.Weapons[w]; !ok {
				result.fail("Hero %s learns unknown weapon %q", name, w)
			}
		}
		for _, a := range hero.Assists {
			if _, ok := merged.Assists[a]; !ok {
				result.fail("Hero %s learns unknown assist %q", name, a)
			}
		}
		for _, s := range hero.Specials {
			if _, ok := merged.Specials[s]; !ok {
				result.fail("Hero %s learns unknown special %q", name, s)
			}
		}
	}

	for _, id := range sortedKeys(d.Maps) {
		m := d.Maps[id]
		conn := validateConnectivity(&m)
		if !conn.Valid {
			result.Valid = false
		}
		result.Errors = append(result.Errors, conn.Errors...)
	}

	if result.Valid {
		result.info("Heroes: %d", len(d.Heroes))
		result.info("Skills: %d weapons, %d assists, %d specials, %d passives",
			len(d.Weapons), len(d.Assists), len(d.Specials), len(d.Passives))
		for _, id := range sortedKeys(d.Maps) {
			m := d.Maps[id]
			result.info("Map %s: %dx%d", id, m.Width(), m.Height())
		}
	}

	return result
}

// validateConnectivity ensures every spawn of one side can reach a spawn of
// the other side, ignoring units, for infantry and cavalry.
func validateConnectivity(m *engine.MapConfig) ValidationResult {
	result := ValidationResult{
		Valid:  true,
		Errors: []string{},
	}

	for _, mt := range []engine.MoveType{engine.Infantry, engine.Cavalry} {
		var stranded []string
		for _, side := range []struct {
			from, to []engine.Position
			name     string
		}{{m.SpawnsA, m.SpawnsB, "A"}, {m.SpawnsB, m.SpawnsA, "B"}} {
			for _, p := range side.from {
				if !reachesAny(m, mt, p, side.to) {
					stranded = append(stranded, fmt.Sprintf("spawn %s (%d,%d)", side.name, p.X, p.Y))
				}
			}
		}

		if len(stranded) > 0 {
			result.fail("Map %s: %d spawn(s) cannot reach the enemy as %s", m.ID, len(stranded), mt)
			for _, s := range stranded {
				result.fail("Unreachable for %s: %s", mt, s)
			}
		} else {
			result.info("Map %s: connected for %s", m.ID, mt)
		}
	}

	return result
}

// reachesAny flood fills from start over tiles mt can stand on
func reachesAny(m *engine.MapConfig, mt engine.MoveType, start engine.Position, goals []engine.Position) bool {
	want := make(map[engine.Position]bool, len(goals))
	for _, g := range goals {
		want[g] = true
	}

	visited := map[engine.Position]bool{start: true}
	queue := []engine.Position{start}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if want[current] {
			return true
		}

		for _, dir := range []engine.Position{{X: -1}, {X: 1}, {Y: -1}, {Y: 1}} {
			next := engine.Position{X: current.X + dir.X, Y: current.Y + dir.Y}
			if visited[next] {
				continue
			}
			t, ok := m.TerrainAt(next)
			if !ok || !engine.CanStand(mt, t) {
				continue
			}
			visited[next] = true
			queue = append(queue, next)
		}
	}
	return false
}

// validateRoster checks a roster file against the catalog
func validateRoster(cat *catalog.Manager, filePath string) ValidationResult {
	result := ValidationResult{
		File:   filepath.Join("teams", filepath.Base(filePath)),
		Valid:  true,
		Errors: []string{},
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.fail("Failed to read file: %v", err)
		return result
	}

	var roster team.Roster
	if err := json.Unmarshal(data, &roster); err != nil {
		result.fail("Invalid JSON: %v", err)
		return result
	}

	for _, ve := range cat.ValidateTeam(team.Normalize(roster)) {
		if ve.Index >= 0 {
			result.fail("Hero %d %s: %s", ve.Index+1, ve.Field, ve.Message)
		} else {
			result.fail("%s", ve.Message)
		}
	}

	if result.Valid {
		names := make([]string, 0, len(roster))
		for _, h := range roster {
			names = append(names, h.Name)
		}
		result.info("Team: %s", strings.Join(names, ", "))
	}
	return result
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// run validates dir and returns every result
func run(dir string) ([]ValidationResult, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("error finding catalog files: %w", err)
	}

	var results []ValidationResult
	for _, file := range files {
		results = append(results, validateDataset(file))
	}

	teams, err := filepath.Glob(filepath.Join(dir, "teams", "*.json"))
	if err != nil {
		return nil, fmt.Errorf("error finding team files: %w", err)
	}
	if len(teams) == 0 {
		return results, nil
	}

	cat, err := catalog.NewManager(dir)
	for _, file := range teams {
		if err != nil {
			result := ValidationResult{File: filepath.Join("teams", filepath.Base(file)), Valid: true}
			result.fail("Catalog failed to load: %v", err)
			results = append(results, result)
			continue
		}
		results = append(results, validateRoster(cat, file))
	}
	return results, nil
}

// main prints a concise report and exits with non-zero status if any file is invalid
func main() {
	dir := "./catalog"
	if len(os.Args) > 1 {
		dir = os.Args[1]
	}

	results, err := run(dir)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	allValid := true
	for _, result := range results {
		fmt.Printf("\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Println("✅ VALID")
			for _, info := range result.Errors {
				fmt.Println("  " + info)
			}
		} else {
			fmt.Println("❌ INVALID")
			allValid = false
			for _, err := range result.Errors {
				if !strings.HasPrefix(err, "✓") {
					fmt.Println("  ❌ " + err)
				}
			}
		}
	}

	fmt.Printf("\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Printf("✅ %d file(s) valid!\n", len(results))
	} else {
		fmt.Println("❌ Some files have errors")
		os.Exit(1)
	}
}
