// Package mcp exposes the duel server to AI agents over the Model Context Protocol.
//
// The Client is a thin proxy: every tool calls the REST API and formats the
// answer as text. Matches are still played over the websocket; the tools
// cover what an agent needs around a match.
//
// MCP Tools:
//   - list_rooms: Room summaries
//   - get_world: Heroes of an active room with position, tile code and HP
//   - describe_unit: Every component of one hero
//   - get_moveset: What a hero may equip
//   - submit_team: Validate and store a roster for a participant
//   - game_rules: How a match is played
//
// Transport Modes:
//   - Stdio: `heroduel mcp --api http://localhost:8080`
//   - HTTP: POST /mcp on the main server
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
package mcp
