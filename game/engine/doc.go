// Package engine is the tactical combat simulation a duel runs on.
//
// The package has two halves:
//   - The contracts the rest of the server talks to: Simulation, Factory
//     and Validator. Nothing outside this package depends on how a battle
//     is computed.
//   - Battle, a small deterministic reference implementation of those
//     contracts, and Dataset, the heroes, skills and maps it reads.
//
// Core Types:
//
// A Battle is built from two Teams by a Factory. Units are named
// "<owner>-unit-<n>" in roster order; SideA moves first and a turn ends
// when SideB passes. Every mutation bumps the TurnState sequence number.
//
// Board:
//
// Maps are described by MapConfig layouts of at most 10x10 tiles. Movement
// uses a uniform-cost search over terrain costs per MoveType; allies can be
// crossed, enemies block. Coordinates cross the wire as x*10+y, see EncodeTile.
//
// Combat:
//
// Damage follows the weapon triangle, effectiveness and a follow-up strike
// for the unit that is FollowUpMargin or more speed ahead. Damage specials
// charge by one per strike given or taken.
//
// Usage:
//
//	dataset := engine.DefaultDataset()
//	factory := engine.NewFactory(dataset, engine.DefaultMapID)
//	sim, err := factory.NewSimulation(ctx, [2]engine.Team{alice, bob})
//	if err != nil {
//		return err
//	}
//	preview, err := sim.PreviewMovement("alice-unit-1")
package engine
