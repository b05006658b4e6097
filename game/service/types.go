package service

import "github.com/wricardo/heroduel/game/engine"

// Outbound event names
const (
	EventSid             = "sid"
	EventJoinSession     = "join-session"
	EventAllowControl    = "allow-control"
	EventPreviewMovement = "response preview movement"
	EventUnitMapStats    = "response unit map stats"
	EventConfirmMovement = "response confirm movement"
	EventResponse        = "response"
	EventPreviewBattle   = "response preview battle"
	EventConfirmBattle   = "response confirm battle"
	EventPreviewAssist   = "response preview assist"
	EventConfirmAssist   = "response confirm assist"
	EventFreezeUnit      = "response freeze unit"
	EventEnemyRange      = "response enemy range"
	EventUpdateEntities  = "update-entities"
	EventOpponentLeft    = "opponent-left"
	EventError           = "error"
)

// DebugRoomID is the id of the pre-built room started with --debug-world
const DebugRoomID = "debug"

// RoomPayload names a room
type RoomPayload struct {
	RoomID string `json:"roomId"`
}

// ActionResponse tells the requester what its confirmed action did
type ActionResponse struct {
	ActionResult *engine.ActionResult `json:"actionResult"`
}

// TurnResponse announces a new turn state to the room
type TurnResponse struct {
	TurnState engine.TurnState `json:"turnState"`
}

// OpponentLeft tells the remaining participant that its peer disconnected
type OpponentLeft struct {
	RoomID        string `json:"roomId"`
	ParticipantID string `json:"participantId"`
}

// World is the public view of an active room
type World struct {
	RoomID   string           `json:"roomId"`
	MapID    string           `json:"mapId"`
	Turn     engine.TurnState `json:"turn"`
	Snapshot engine.Snapshot  `json:"snapshot"`
}
