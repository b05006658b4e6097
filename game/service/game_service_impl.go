package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/wricardo/heroduel/game/catalog"
	"github.com/wricardo/heroduel/game/engine"
	"github.com/wricardo/heroduel/game/session"
	"github.com/wricardo/heroduel/game/team"
	"github.com/wricardo/heroduel/game/turn"
)

var ErrNotInRoom = errors.New("participant is not in this session")

// Options configures the game service
type Options struct {
	Notifier Notifier
	Logger   *zap.Logger
}

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	rooms    RoomRegistry
	teams    TeamIntake
	movesets MovesetCatalog
	notifier Notifier
	logger   *zap.Logger
}

// NewGameService creates a new game service instance
func NewGameService(rooms RoomRegistry, teams TeamIntake, movesets MovesetCatalog, opts Options) GameService {
	s := &gameServiceImpl{
		rooms:    rooms,
		teams:    teams,
		movesets: movesets,
		notifier: opts.Notifier,
		logger:   opts.Logger,
	}
	if s.notifier == nil {
		s.notifier = nopNotifier{}
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// CreateSession opens a room for participant. A given roster is validated
// up front and stored only once the room exists.
func (s *gameServiceImpl) CreateSession(ctx context.Context, participant string, roster team.Roster) (*session.RoomInfo, error) {
	heroes, err := s.validateRoster(ctx, participant, roster)
	if err != nil {
		return nil, err
	}

	info, err := s.rooms.CreateRoom(ctx, participant)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	if heroes != nil {
		s.teams.StoreTeam(participant, heroes)
	}

	s.notifier.Send(participant, EventSid, RoomPayload{RoomID: info.ID})
	return info, nil
}

// JoinSession seats participant in a room and tells everyone in it. A given
// roster fields the match this join activates and is stored only if the
// join succeeds.
func (s *gameServiceImpl) JoinSession(ctx context.Context, roomID, participant string, roster team.Roster) (*session.RoomInfo, error) {
	heroes, err := s.validateRoster(ctx, participant, roster)
	if err != nil {
		return nil, err
	}

	info, err := s.rooms.JoinRoomWithTeam(ctx, roomID, participant, heroes)
	if err != nil {
		return nil, fmt.Errorf("failed to join session: %w", err)
	}
	if heroes != nil {
		s.teams.StoreTeam(participant, heroes)
	}

	err = s.rooms.Do(ctx, roomID, func(room *session.Room, _ *turn.Mediator) error {
		s.notifier.Broadcast(room.Participants(), EventJoinSession, RoomPayload{RoomID: roomID})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return info, nil
}

// LoadingComplete grants control once a client has rendered the board
func (s *gameServiceImpl) LoadingComplete(ctx context.Context, roomID, participant string) (*turn.ControlGrant, error) {
	var grant *turn.ControlGrant
	err := s.rooms.Do(ctx, roomID, func(room *session.Room, m *turn.Mediator) error {
		if !room.Has(participant) {
			return fmt.Errorf("%w: %s", ErrNotInRoom, roomID)
		}
		g, err := m.AllowControl(participant)
		if err != nil {
			return err
		}
		grant = g
		s.notifier.Send(participant, EventAllowControl, g)
		return nil
	})
	return grant, err
}

// Disconnect removes participant from its rooms and warns the peers left behind
func (s *gameServiceImpl) Disconnect(participant string) []session.LeaveResult {
	results := s.rooms.LeaveRoom(participant)
	for _, res := range results {
		if res.Closed || len(res.Remaining) == 0 {
			continue
		}
		s.notifier.Broadcast(res.Remaining, EventOpponentLeft, OpponentLeft{
			RoomID:        res.RoomID,
			ParticipantID: participant,
		})
	}
	return results
}

// ListSessions returns every room
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*session.RoomInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.rooms.List(), nil
}

// CleanupExpiredSessions closes rooms that waited too long for an opponent
func (s *gameServiceImpl) CleanupExpiredSessions(maxAge time.Duration) int {
	return s.rooms.CleanupExpiredRooms(maxAge)
}

// StartDebugWorld registers a ready-to-inspect room between two built-in
// participants, each fielding a single Alfonse
func (s *gameServiceImpl) StartDebugWorld(ctx context.Context) (*session.RoomInfo, error) {
	roster := team.Roster{{Name: "Alfonse", Weapon: "Fólkvangr", Assist: "Swap", Special: "Luna"}}
	players := [2]string{DebugRoomID + "-a", DebugRoomID + "-b"}

	for _, p := range players {
		if err := s.SubmitTeam(ctx, p, roster); err != nil {
			return nil, fmt.Errorf("debug world roster: %w", err)
		}
	}
	if _, err := s.rooms.CreateNamedRoom(ctx, DebugRoomID, players[0]); err != nil {
		return nil, err
	}
	info, err := s.rooms.JoinRoomWithTeam(ctx, DebugRoomID, players[1], nil)
	if err != nil {
		return nil, err
	}

	s.logger.Info("debug world started", zap.String("room", info.ID))
	return info, nil
}

// Act runs one mediator request on the room's actor and emits its events.
// Replies go to the requester; anything that changed the board is
// broadcast to the room followed by a fresh snapshot.
func (s *gameServiceImpl) Act(ctx context.Context, roomID, participant string, req turn.Request) (interface{}, error) {
	var reply interface{}
	err := s.rooms.Do(ctx, roomID, func(room *session.Room, m *turn.Mediator) error {
		if !room.Has(participant) {
			return fmt.Errorf("%w: %s", ErrNotInRoom, roomID)
		}

		out, err := m.Handle(participant, req)
		reply = out
		if err != nil {
			if res, ok := out.(*turn.MoveResult); ok && res != nil {
				event := EventConfirmMovement
				if req.Kind == turn.EndAction {
					event = EventFreezeUnit
				}
				s.notifier.Send(participant, event, res)
			}
			s.logger.Debug("request rejected",
				zap.String("room", roomID),
				zap.String("participant", participant),
				zap.String("kind", string(req.Kind)),
				zap.Error(err))
			return err
		}

		s.emit(room, m, participant, req.Kind, out)
		return nil
	})
	if err != nil {
		return reply, err
	}
	return reply, nil
}

func (s *gameServiceImpl) emit(room *session.Room, m *turn.Mediator, participant string, kind turn.RequestKind, out interface{}) {
	everyone := room.Participants()

	switch kind {
	case turn.PreviewMovement:
		reply := out.(*turn.MovementReply)
		s.notifier.Send(participant, EventPreviewMovement, reply.Preview)
		s.notifier.Send(participant, EventUnitMapStats, reply.Stats)
	case turn.ConfirmMovement:
		res := out.(*turn.MoveResult)
		s.notifier.Broadcast(everyone, EventConfirmMovement, res)
		s.notifier.Send(participant, EventResponse, ActionResponse{ActionResult: res.Action})
	case turn.PreviewCombat:
		s.notifier.Send(participant, EventPreviewBattle, out)
	case turn.ConfirmCombat:
		s.notifier.Broadcast(everyone, EventConfirmBattle, out)
	case turn.PreviewAssist:
		s.notifier.Send(participant, EventPreviewAssist, out)
	case turn.ConfirmAssist:
		s.notifier.Broadcast(everyone, EventConfirmAssist, out)
	case turn.EndAction:
		s.notifier.Broadcast(everyone, EventFreezeUnit, out)
	case turn.EndTurn:
		s.notifier.Broadcast(everyone, EventResponse, TurnResponse{TurnState: out.(engine.TurnState)})
	case turn.QueryRange:
		s.notifier.Send(participant, EventEnemyRange, out)
	}

	if kind.Mutating() {
		snap, err := m.Snapshot()
		if err != nil {
			s.logger.Error("snapshot after mutation failed", zap.String("room", room.ID), zap.Error(err))
			return
		}
		s.notifier.Broadcast(everyone, EventUpdateEntities, snap)
	}
}

// RequestUpdate sends the requester the current board
func (s *gameServiceImpl) RequestUpdate(ctx context.Context, roomID, participant string) (*engine.Snapshot, error) {
	var snap engine.Snapshot
	err := s.rooms.Do(ctx, roomID, func(room *session.Room, m *turn.Mediator) error {
		if !room.Has(participant) {
			return fmt.Errorf("%w: %s", ErrNotInRoom, roomID)
		}
		var err error
		snap, err = m.Snapshot()
		if err != nil {
			return err
		}
		s.notifier.Send(participant, EventUpdateEntities, snap)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

// GetWorld returns the board of an active room
func (s *gameServiceImpl) GetWorld(ctx context.Context, roomID string) (*World, error) {
	var world *World
	err := s.rooms.Do(ctx, roomID, func(room *session.Room, m *turn.Mediator) error {
		snap, err := m.Snapshot()
		if err != nil {
			return err
		}
		world = &World{
			RoomID:   room.ID,
			MapID:    snap.MapID,
			Turn:     m.TurnState(),
			Snapshot: snap,
		}
		return nil
	})
	return world, err
}

// SubmitTeam validates and stores participant's roster. A refused roster
// returns *team.RejectedError.
func (s *gameServiceImpl) SubmitTeam(ctx context.Context, participant string, roster team.Roster) error {
	heroes, err := s.teams.SubmitTeam(ctx, participant, roster)
	if err != nil {
		return err
	}
	s.logger.Info("team stored", zap.String("participant", participant), zap.Int("heroes", len(heroes)))
	return nil
}

func (s *gameServiceImpl) validateRoster(ctx context.Context, participant string, roster team.Roster) ([]engine.HeroBuild, error) {
	if roster == nil {
		return nil, nil
	}
	return s.teams.ValidateTeam(ctx, participant, roster)
}

// GetMoveset looks a hero up in the catalog
func (s *gameServiceImpl) GetMoveset(ctx context.Context, name string) (*catalog.Moveset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, fmt.Errorf("%w: empty name", catalog.ErrHeroNotFound)
	}
	return s.movesets.Moveset(name)
}

type nopNotifier struct{}

func (nopNotifier) Send(string, string, interface{})        {}
func (nopNotifier) Broadcast([]string, string, interface{}) {}
