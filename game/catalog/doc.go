// Package catalog provides hero and skill data for the duel server.
//
// The catalog package handles:
//   - Serving the built-in heroes, skills and maps of the engine
//   - Merging extra dataset JSON files from a catalog directory
//   - Hero moveset lookup for the /moveset endpoint
//   - Roster validation and simulation construction against the current data
//
// Dataset Format:
//
// Each *.json file in the catalog directory is a partial engine.Dataset with
// any of the keys heroes, weapons, assists, specials, passives and maps.
// Files are merged in directory order; a later entry with the same name
// replaces an earlier one, including built-in entries.
//
// Usage:
//
//	manager, err := catalog.NewManager("catalog")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	moveset, err := manager.Moveset("Alfonse")
//	errs := manager.ValidateTeam(roster)
//	sim, err := manager.NewSimulation(ctx, teams)
package catalog
