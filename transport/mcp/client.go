package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wricardo/heroduel/game/catalog"
	"github.com/wricardo/heroduel/game/engine"
	"github.com/wricardo/heroduel/game/session"
	"github.com/wricardo/heroduel/game/team"
	"github.com/wricardo/heroduel/transport/wire"
)

// APIError is a non-2xx answer from the REST API
type APIError struct {
	Status     int
	Message    string
	Validation []engine.ValidationError
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if len(e.Validation) > 0 {
		return fmt.Sprintf("roster rejected with %d validation errors", len(e.Validation))
	}
	return fmt.Sprintf("API error: %d", e.Status)
}

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Hero Duel",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Hero Duel - MCP Interface

This is a thin client that proxies all requests to the REST API server.
Matches themselves are played over the websocket; these tools let you
inspect rooms and prepare teams.

AVAILABLE TOOLS:
- list_rooms: List every room and who sits in it
- get_world: Board of an active room (heroes, positions, HP)
- describe_unit: Every component of one hero on a board
- get_moveset: Weapons, assists, specials and passives a hero may equip
- submit_team: Store a roster (1 to 4 heroes) for a participant
- game_rules: How a match is played`),
	)

	c.registerTools()
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_rooms",
		Description: "List all rooms with their state and participants",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListRooms)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_world",
		Description: "Get the board of an active room",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"room_id": map[string]interface{}{
					"type":        "string",
					"description": "Room ID",
				},
			},
			Required: []string{"room_id"},
		},
	}, c.handleGetWorld)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "describe_unit",
		Description: "Describe one hero of an active room, including skills and buffs",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"room_id": map[string]interface{}{
					"type":        "string",
					"description": "Room ID",
				},
				"unit_id": map[string]interface{}{
					"type":        "string",
					"description": "Unit ID, e.g. alice-unit-1",
				},
			},
			Required: []string{"room_id", "unit_id"},
		},
	}, c.handleDescribeUnit)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_moveset",
		Description: "Get every skill a hero may equip",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"name": map[string]interface{}{
					"type":        "string",
					"description": "Hero name, case-insensitive",
				},
			},
			Required: []string{"name"},
		},
	}, c.handleGetMoveset)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "submit_team",
		Description: "Validate and store a roster for a participant. The last accepted roster is used when a room starts.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"participant": map[string]interface{}{
					"type":        "string",
					"description": "Participant key",
				},
				"roster": map[string]interface{}{
					"type": "array",
					"items": map[string]interface{}{
						"type": "object",
						"properties": map[string]interface{}{
							"name":     map[string]interface{}{"type": "string"},
							"weapon":   map[string]interface{}{"type": "string"},
							"assist":   map[string]interface{}{"type": "string"},
							"special":  map[string]interface{}{"type": "string"},
							"passivea": map[string]interface{}{"type": "string"},
							"passiveb": map[string]interface{}{"type": "string"},
							"passivec": map[string]interface{}{"type": "string"},
							"passives": map[string]interface{}{"type": "string"},
							"asset":    map[string]interface{}{"type": "string"},
							"flaw":     map[string]interface{}{"type": "string"},
							"merges":   map[string]interface{}{"type": "integer"},
						},
						"required": []string{"name"},
					},
					"description": "One to four heroes",
				},
			},
			Required: []string{"participant", "roster"},
		},
	}, c.handleSubmitTeam)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_rules",
		Description: "Get the rules of a match",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleGameRules)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(method, path string, body interface{}, result interface{}) error {
	return c.apiCallAs("", method, path, body, result)
}

// apiCallAs sends the request with participant as the Authorization key
func (c *Client) apiCallAs(participant, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if participant != "" {
		req.Header.Set("Authorization", "Bearer "+participant)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeAPIError(resp)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))

	var errResp struct {
		Error            string                   `json:"error"`
		ValidationErrors []engine.ValidationError `json:"validationErrors"`
	}
	if json.Unmarshal(raw, &errResp) == nil {
		apiErr.Message = errResp.Error
		apiErr.Validation = errResp.ValidationErrors
	} else {
		apiErr.Message = strings.TrimSpace(string(raw))
	}
	return apiErr
}

func stringArg(request mcp.CallToolRequest, key string) string {
	args, _ := request.Params.Arguments.(map[string]interface{})
	s, _ := args[key].(string)
	return s
}

// Tool handlers

func (c *Client) handleListRooms(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var resp struct {
		Count int                 `json:"count"`
		Rooms []session.RoomInfo `json:"rooms"`
	}
	if err := c.apiCall("GET", "/rooms", nil, &resp); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatRooms(resp.Rooms)), nil
}

func (c *Client) handleGetWorld(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	roomID := stringArg(request, "room_id")
	if roomID == "" {
		return mcp.NewToolResultError("room_id is required"), nil
	}

	var world wire.World
	if err := c.apiCall("GET", "/worlds/"+url.PathEscape(roomID), nil, &world); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatWorld(roomID, world)), nil
}

func (c *Client) handleDescribeUnit(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	roomID := stringArg(request, "room_id")
	unitID := stringArg(request, "unit_id")
	if roomID == "" || unitID == "" {
		return mcp.NewToolResultError("room_id and unit_id are required"), nil
	}

	var world wire.World
	if err := c.apiCall("GET", "/worlds/"+url.PathEscape(roomID), nil, &world); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	hero, ok := world.Heroes[unitID]
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("no unit %s in room %s (it may have been defeated)", unitID, roomID)), nil
	}

	return mcp.NewToolResultText(formatUnit(unitID, hero)), nil
}

func (c *Client) handleGetMoveset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := stringArg(request, "name")
	if name == "" {
		return mcp.NewToolResultError("name is required"), nil
	}

	var moveset catalog.Moveset
	if err := c.apiCall("GET", "/moveset?name="+url.QueryEscape(name), nil, &moveset); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatMoveset(&moveset)), nil
}

func (c *Client) handleSubmitTeam(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	participant := stringArg(request, "participant")
	if participant == "" {
		return mcp.NewToolResultError("participant is required"), nil
	}

	args, _ := request.Params.Arguments.(map[string]interface{})
	raw, err := json.Marshal(args["roster"])
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid roster: %v", err)), nil
	}
	var roster team.Roster
	if err := json.Unmarshal(raw, &roster); err != nil || roster == nil {
		return mcp.NewToolResultError("roster must be an array of heroes"), nil
	}

	if err := c.apiCallAs(participant, "POST", "/team", roster, nil); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && len(apiErr.Validation) > 0 {
			return mcp.NewToolResultError(formatValidation(apiErr.Validation)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}

	names := make([]string, 0, len(roster))
	for _, h := range roster {
		names = append(names, h.Name)
	}
	return mcp.NewToolResultText(fmt.Sprintf("Team stored for %s: %s\n", participant, strings.Join(names, ", "))), nil
}

func (c *Client) handleGameRules(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rules := `Hero Duel - Rules

MATCH FLOW:
1. Each participant submits a team of 1 to 4 heroes (submit_team or POST /team).
2. One participant creates a room, the other joins it. The match starts on the second join.
3. The creator plays team1 and moves first. Turns alternate between team1 and team2.

DURING A TURN:
• Every hero of the side in play may act once: move, then attack, assist or wait.
• Moves are previewed first; only a tile from the latest preview can be confirmed.
• The turn ends when every hero has acted or the player ends it early.

COMBAT:
• Sword beats axe, axe beats lance, lance beats sword (20% attack swing).
• The faster hero strikes twice when its speed is at least 5 higher.
• Specials charge with every strike and fire when their cooldown reaches 0.

VICTORY:
A side wins when the other side has no heroes left.

TILES:
Tiles are encoded as x*10+y, so tile 27 is column 2, row 7.`

	return mcp.NewToolResultText(rules), nil
}

// Formatting helpers

func formatRooms(rooms []session.RoomInfo) string {
	if len(rooms) == 0 {
		return "No rooms.\n"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d room(s):\n", len(rooms))
	for _, r := range rooms {
		fmt.Fprintf(&b, "- %s [%s] owner=%s participants=%s created=%s\n",
			r.ID, r.State, r.Owner, strings.Join(r.Participants, ","), r.CreatedAt.Format(time.RFC3339))
	}
	return b.String()
}

// heroLine summarizes one grouped entity
type heroLine struct {
	id       string
	name     string
	side     string
	x, y     int
	hp, max  int
	finished bool
}

func summarize(id string, view wire.EntityView) heroLine {
	line := heroLine{id: id}
	if v := first(view, "Name"); v != nil {
		line.name, _ = v["value"].(string)
	}
	if v := first(view, "Side"); v != nil {
		line.side, _ = v["value"].(string)
	}
	if v := first(view, "Position"); v != nil {
		line.x = number(v["x"])
		line.y = number(v["y"])
	}
	if v := first(view, "Stats"); v != nil {
		line.hp = number(v["hp"])
		line.max = number(v["maxHp"])
	}
	for _, tag := range view.Tags {
		if tag == "FinishedTurn" {
			line.finished = true
		}
	}
	return line
}

func formatWorld(roomID string, world wire.World) string {
	ids := make([]string, 0, len(world.Heroes))
	for id := range world.Heroes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var b strings.Builder
	fmt.Fprintf(&b, "Room %s on map %s, %d hero(es):\n", roomID, world.MapID, len(ids))
	for _, id := range ids {
		h := summarize(id, world.Heroes[id])
		status := ""
		if h.finished {
			status = " (acted)"
		}
		fmt.Fprintf(&b, "- %s %s [%s] at (%d,%d) tile %d HP %d/%d%s\n",
			h.id, h.name, h.side, h.x, h.y, engine.EncodeTile(engine.Position{X: h.x, Y: h.y}), h.hp, h.max, status)
	}
	return b.String()
}

func formatUnit(id string, view wire.EntityView) string {
	h := summarize(id, view)

	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s), side %s\n", h.name, h.id, h.side)
	fmt.Fprintf(&b, "Position: (%d,%d) tile %d\n", h.x, h.y, engine.EncodeTile(engine.Position{X: h.x, Y: h.y}))
	fmt.Fprintf(&b, "HP: %d/%d\n", h.hp, h.max)
	fmt.Fprintf(&b, "Tags: %s\n", strings.Join(view.Tags, ", "))

	types := make([]string, 0, len(view.Components))
	for t := range view.Components {
		types = append(types, t)
	}
	sort.Strings(types)
	for _, t := range types {
		for _, payload := range view.Components[t] {
			data, _ := json.Marshal(payload)
			fmt.Fprintf(&b, "%s: %s\n", t, data)
		}
	}
	return b.String()
}

func formatMoveset(m *catalog.Moveset) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s - %s %s (%s)\n", m.Name, m.Color, m.WeaponType, m.MoveType)
	fmt.Fprintf(&b, "Stats: HP %d Atk %d Spd %d Def %d Res %d\n", m.Stats.HP, m.Stats.Atk, m.Stats.Spd, m.Stats.Def, m.Stats.Res)

	list := func(label string, names []string) {
		if len(names) == 0 {
			names = []string{"-"}
		}
		fmt.Fprintf(&b, "%s: %s\n", label, strings.Join(names, ", "))
	}

	var names []string
	for _, w := range m.Weapons {
		names = append(names, w.Name)
	}
	list("Weapons", names)

	names = nil
	for _, a := range m.Assists {
		names = append(names, a.Name)
	}
	list("Assists", names)

	names = nil
	for _, s := range m.Specials {
		names = append(names, s.Name)
	}
	list("Specials", names)

	for _, slot := range []struct {
		label  string
		skills []engine.PassiveSkill
	}{{"Passive A", m.PassivesA}, {"Passive B", m.PassivesB}, {"Passive C", m.PassivesC}} {
		names = nil
		for _, p := range slot.skills {
			names = append(names, p.Name)
		}
		list(slot.label, names)
	}
	list("Seals", m.Seals)
	return b.String()
}

func formatValidation(errs []engine.ValidationError) string {
	var b strings.Builder
	b.WriteString("Roster rejected:\n")
	for _, e := range errs {
		if e.Index >= 0 {
			fmt.Fprintf(&b, "- hero %d", e.Index+1)
		} else {
			b.WriteString("- team")
		}
		if e.Field != "" {
			fmt.Fprintf(&b, " %s", e.Field)
		}
		fmt.Fprintf(&b, ": %s\n", e.Message)
	}
	return b.String()
}

func first(view wire.EntityView, component string) map[string]interface{} {
	list := view.Components[component]
	if len(list) == 0 {
		return nil
	}
	m, _ := list[0].(map[string]interface{})
	return m
}

func number(v interface{}) int {
	f, _ := v.(float64)
	return int(f)
}
