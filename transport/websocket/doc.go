// Package websocket is the connection gateway between clients and the game.
//
// Architecture:
//
// A central Hub owns every connection. Each connection runs a read pump and
// a write pump; the hub loop is the only place connections are added,
// removed or written to, and every outbound frame passes through its single
// outbound channel. Events sent to one participant therefore arrive in the
// order they were produced.
//
// Message Protocol:
//
// Every frame is a JSON envelope {"event": name, "data": payload}, one event
// per text frame. Inbound events are dispatched by the Gateway, which checks
// required fields, binds the connection to a participant on create-session
// or join and calls the GameService. Problems are answered with an "error"
// event on the same connection.
//
// Participants:
//
// A connection is bound to at most one participant, either through the
// ?participant= query parameter or the participantId of its first
// create-session or join. When a participant's last connection closes the
// Gateway removes it from its rooms and the remaining peer is told.
//
// Usage:
//
//	hub := websocket.NewHub(websocket.HubOptions{Logger: logger})
//	svc := service.NewGameService(rooms, teams, catalog, service.Options{Notifier: hub})
//	hub.SetHandler(websocket.NewGateway(svc, websocket.GatewayOptions{Logger: logger}))
//	go hub.Run(ctx)
//
//	router.HandleFunc("/ws", hub.ServeWS)
//
// Slow clients whose send buffer fills up are dropped.
package websocket
