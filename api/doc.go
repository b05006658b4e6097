// Package api provides the HTTP surface of the duel server.
//
// Endpoints:
//
//   - GET /worlds/{id} - Board of an active room, regrouped per entity
//   - GET /moveset?name=<hero> - Everything a hero may equip
//   - POST /team - Store a roster; the Authorization header names the participant
//   - GET /rooms - Room summaries
//   - GET /healthz - Liveness probe
//   - GET /ws - WebSocket upgrade, handled by the transport/websocket hub
//
// Request/Response Format:
//
// All endpoints return JSON except the 404 of /worlds/{id}, which is the
// plain text "No active session found". A refused roster answers 400 with
//
//	{"validationErrors": [{"index": 0, "field": "weapon", "message": "..."}]}
//
// and other failures answer {"error": "..."}. Every response carries
// Access-Control-Allow-Origin: *.
//
// Usage:
//
//	server := api.NewServer(gameService, hub.ServeWS, api.Options{Logger: logger})
//	http.ListenAndServe(":8080", server)
package api
