package service

import (
	"context"
	"time"

	"github.com/wricardo/heroduel/game/catalog"
	"github.com/wricardo/heroduel/game/engine"
	"github.com/wricardo/heroduel/game/session"
	"github.com/wricardo/heroduel/game/team"
	"github.com/wricardo/heroduel/game/turn"
)

// GameService defines all game-related operations
type GameService interface {
	// Session Management
	CreateSession(ctx context.Context, participant string, roster team.Roster) (*session.RoomInfo, error)
	JoinSession(ctx context.Context, roomID, participant string, roster team.Roster) (*session.RoomInfo, error)
	LoadingComplete(ctx context.Context, roomID, participant string) (*turn.ControlGrant, error)
	Disconnect(participant string) []session.LeaveResult
	ListSessions(ctx context.Context) ([]*session.RoomInfo, error)
	CleanupExpiredSessions(maxAge time.Duration) int
	StartDebugWorld(ctx context.Context) (*session.RoomInfo, error)

	// Game Operations
	Act(ctx context.Context, roomID, participant string, req turn.Request) (interface{}, error)
	RequestUpdate(ctx context.Context, roomID, participant string) (*engine.Snapshot, error)

	// Game State
	GetWorld(ctx context.Context, roomID string) (*World, error)

	// Teams and catalog
	SubmitTeam(ctx context.Context, participant string, roster team.Roster) error
	GetMoveset(ctx context.Context, name string) (*catalog.Moveset, error)
}

// RoomRegistry defines room storage operations
type RoomRegistry interface {
	CreateRoom(ctx context.Context, initiator string) (*session.RoomInfo, error)
	CreateNamedRoom(ctx context.Context, id, initiator string) (*session.RoomInfo, error)
	JoinRoomWithTeam(ctx context.Context, roomID, participant string, heroes []engine.HeroBuild) (*session.RoomInfo, error)
	LeaveRoom(participant string) []session.LeaveResult
	Lookup(roomID string) (*session.RoomInfo, error)
	List() []*session.RoomInfo
	Do(ctx context.Context, roomID string, fn func(*session.Room, *turn.Mediator) error) error
	CleanupExpiredRooms(maxAge time.Duration) int
}

// TeamIntake validates and stores rosters
type TeamIntake interface {
	SubmitTeam(ctx context.Context, participant string, roster team.Roster) ([]engine.HeroBuild, error)
	ValidateTeam(ctx context.Context, participant string, roster team.Roster) ([]engine.HeroBuild, error)
	StoreTeam(participant string, heroes []engine.HeroBuild)
}

// MovesetCatalog answers moveset lookups
type MovesetCatalog interface {
	Moveset(name string) (*catalog.Moveset, error)
}

// Notifier delivers named events to participants. Implementations must
// preserve call order per participant.
type Notifier interface {
	Send(participant, event string, payload interface{})
	Broadcast(participants []string, event string, payload interface{})
}
