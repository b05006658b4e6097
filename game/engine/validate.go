package engine

import (
	"fmt"
	"strings"
)

// ValidateTeam implements Validator against the dataset's learnsets.
// Team-wide problems carry Index -1.
func (d *Dataset) ValidateTeam(heroes []HeroBuild) []ValidationError {
	var errs []ValidationError
	add := func(i int, field, format string, args ...interface{}) {
		errs = append(errs, ValidationError{Index: i, Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if len(heroes) == 0 {
		add(-1, "", "team must contain at least one hero")
		return errs
	}
	if len(heroes) > MaxTeamSize {
		add(-1, "", "team may contain at most %d heroes, got %d", MaxTeamSize, len(heroes))
	}

	seen := make(map[string]int)
	for i, h := range heroes {
		if h.Name == "" {
			add(i, "name", "hero name is required")
			continue
		}
		def, ok := d.Heroes[h.Name]
		if !ok {
			add(i, "name", "unknown hero %q", h.Name)
			continue
		}
		if first, dup := seen[h.Name]; dup {
			add(i, "name", "%s is already in the team at position %d", h.Name, first+1)
		} else {
			seen[h.Name] = i
		}

		slots := []struct {
			field, value string
			learnable    []string
		}{
			{"weapon", h.Weapon, def.Weapons},
			{"assist", h.Assist, def.Assists},
			{"special", h.Special, def.Specials},
			{"passivea", h.PassiveA, def.PassivesA},
			{"passiveb", h.PassiveB, def.PassivesB},
			{"passivec", h.PassiveC, def.PassivesC},
		}
		for _, slot := range slots {
			if slot.value != "" && !contains(slot.learnable, slot.value) {
				add(i, slot.field, "%s cannot learn %s", h.Name, slot.value)
			}
		}
		if h.PassiveS != "" {
			if p, ok := d.Passives[h.PassiveS]; !ok || !p.Seal {
				add(i, "passives", "%s is not a sacred seal", h.PassiveS)
			}
		}

		for _, m := range []struct{ field, value string }{{"asset", h.Asset}, {"flaw", h.Flaw}} {
			if m.value != "" && !contains(statOrder, m.value) {
				add(i, m.field, "unknown stat %q, expected one of %s", m.value, strings.Join(statOrder, ", "))
			}
		}
		if h.Asset != "" && h.Asset == h.Flaw {
			add(i, "flaw", "asset and flaw must differ")
		}
		if h.Merges < 0 || h.Merges > MaxMerges {
			add(i, "merges", "merges must be between 0 and %d, got %d", MaxMerges, h.Merges)
		}
		if h.Rarity != DefaultRarity {
			add(i, "rarity", "rarity must be %d, got %d", DefaultRarity, h.Rarity)
		}
	}

	return errs
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
