// Package service is the layer transports talk to.
//
// GameService ties the session registry, team intake and hero catalog
// together and turns every accepted request into named events delivered
// through a Notifier. Replies (previews, enemy range, control grants) go to
// the requesting participant only; anything that changes the board is
// broadcast to the whole room and followed by an update-entities snapshot.
// Room events are emitted from inside the room's actor, so both participants
// observe them in mutation order.
//
// Usage:
//
//	svc := service.NewGameService(registry, teams, catalog, service.Options{Notifier: hub})
//	info, err := svc.CreateSession(ctx, "alice", roster)
//	...
//	_, err = svc.Act(ctx, info.ID, "alice", turn.Request{Kind: turn.EndTurn})
package service
