// Package session keeps track of rooms and the participants inside them.
//
// A room is created by one participant and waits, Open, for a second one.
// The second join activates it: both participants' stored rosters are read,
// a simulation is built through an engine.Factory and wrapped in a
// turn.Mediator. From then on the room is Active until every participant has
// left, at which point it is closed and the simulation dropped.
//
// Concurrency:
//
// The Registry guards its maps with a single mutex. Activation reserves the
// seat under it, builds the simulation unlocked and commits afterwards, so a
// slow build holds up only that room. Each room additionally
// runs its own actor goroutine; Registry.Do queues a task on that actor so
// every request touching one match is applied in arrival order while
// different rooms proceed in parallel. Tasks re-check that the room is still
// Active when the actor picks them up.
//
// Usage:
//
//	reg := session.NewRegistry(session.Options{Factory: factory, Teams: teams})
//	info, _ := reg.CreateRoom(ctx, "alice")
//	_, _ = reg.JoinRoom(ctx, info.ID, "bob")
//
//	err := reg.Do(ctx, info.ID, func(room *session.Room, m *turn.Mediator) error {
//		_, err := m.EndTurn("alice")
//		return err
//	})
//
// Cleanup:
//
// Rooms that never find a second participant are closed by
// CleanupExpiredRooms, which the server calls periodically.
package session
