package websocket

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/wricardo/heroduel/game/engine"
	"github.com/wricardo/heroduel/game/service"
	"github.com/wricardo/heroduel/game/team"
	"github.com/wricardo/heroduel/game/turn"
	"github.com/wricardo/heroduel/transport/wire"
)

// Inbound event names
const (
	eventCreateSession   = "create-session"
	eventJoin            = "join"
	eventLoadingComplete = "loading-complete"
	eventPreviewMovement = "request preview movement"
	eventConfirmMovement = "request confirm movement"
	eventPreviewBattle   = "request preview battle"
	eventConfirmBattle   = "request confirm battle"
	eventPreviewAssist   = "request preview assist"
	eventConfirmAssist   = "request confirm assist"
	eventFreezeUnit      = "request freeze unit"
	eventEnemyRange      = "request enemy range"
	eventUpdate          = "request update"
	eventEndTurn         = "request end turn"

	eventError = service.EventError
)

const defaultRequestTimeout = 10 * time.Second

// ClientProtocolError is a request rejected before it reaches the game:
// malformed payloads, unknown events, missing fields
type ClientProtocolError struct {
	Event  string
	Reason string
}

func (e *ClientProtocolError) Error() string {
	if e.Event == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Event, e.Reason)
}

type errorPayload struct {
	Message string `json:"message"`
}

// request is the union of every inbound payload
type request struct {
	RoomID        string      `json:"roomId"`
	ParticipantID string      `json:"participantId"`
	UnitID        string      `json:"unitId"`
	X             *int        `json:"x"`
	Y             *int        `json:"y"`
	TargetX       *int        `json:"targetX"`
	TargetY       *int        `json:"targetY"`
	State         *bool       `json:"state"`
	Roster        team.Roster `json:"roster"`
}

// needs lists the fields an action event must carry
type needs uint8

const (
	needUnit needs = 1 << iota
	needXY
	needTarget
	needState
)

type action struct {
	kind  turn.RequestKind
	needs needs
}

var actions = map[string]action{
	eventPreviewMovement: {turn.PreviewMovement, needUnit},
	eventConfirmMovement: {turn.ConfirmMovement, needUnit | needXY},
	eventPreviewBattle:   {turn.PreviewCombat, needUnit | needXY | needTarget},
	eventConfirmBattle:   {turn.ConfirmCombat, needUnit | needXY | needTarget},
	eventPreviewAssist:   {turn.PreviewAssist, needUnit | needXY | needTarget},
	eventConfirmAssist:   {turn.ConfirmAssist, needUnit | needXY | needTarget},
	eventFreezeUnit:      {turn.EndAction, needUnit | needXY},
	eventEnemyRange:      {turn.QueryRange, needState},
	eventEndTurn:         {turn.EndTurn, 0},
}

// GatewayOptions configures a Gateway
type GatewayOptions struct {
	Logger         *zap.Logger
	RequestTimeout time.Duration
}

// Gateway turns inbound events into GameService calls
type Gateway struct {
	svc     service.GameService
	logger  *zap.Logger
	timeout time.Duration
}

// NewGateway creates a gateway over svc
func NewGateway(svc service.GameService, opts GatewayOptions) *Gateway {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = defaultRequestTimeout
	}
	return &Gateway{svc: svc, logger: opts.Logger, timeout: opts.RequestTimeout}
}

// HandleDisconnect implements Handler
func (g *Gateway) HandleDisconnect(participant string) {
	results := g.svc.Disconnect(participant)
	g.logger.Info("participant disconnected",
		zap.String("participant", participant),
		zap.Int("rooms", len(results)))
}

// HandleMessage implements Handler. Failures are answered on the same
// connection with an error event.
func (g *Gateway) HandleMessage(c *Client, env *wire.Envelope) {
	ctx, cancel := context.WithTimeout(context.Background(), g.timeout)
	defer cancel()

	if err := g.dispatch(ctx, c, env); err != nil {
		var protocol *ClientProtocolError
		if errors.As(err, &protocol) {
			g.logger.Debug("protocol error", zap.String("conn", c.ID()), zap.Error(err))
		}
		c.Send(eventError, errorPayload{Message: err.Error()})
	}
}

func (g *Gateway) dispatch(ctx context.Context, c *Client, env *wire.Envelope) error {
	var req request
	if err := env.Bind(&req); err != nil {
		return &ClientProtocolError{Event: env.Event, Reason: err.Error()}
	}

	switch env.Event {
	case eventCreateSession:
		participant, err := g.bind(c, env.Event, req.ParticipantID)
		if err != nil {
			return err
		}
		_, err = g.svc.CreateSession(ctx, participant, req.Roster)
		return err

	case eventJoin:
		if req.RoomID == "" {
			return missing(env.Event, "roomId")
		}
		participant, err := g.bind(c, env.Event, req.ParticipantID)
		if err != nil {
			return err
		}
		_, err = g.svc.JoinSession(ctx, req.RoomID, participant, req.Roster)
		return err

	case eventLoadingComplete:
		participant, err := g.room(c, env.Event, req)
		if err != nil {
			return err
		}
		_, err = g.svc.LoadingComplete(ctx, req.RoomID, participant)
		return err

	case eventUpdate:
		participant, err := g.room(c, env.Event, req)
		if err != nil {
			return err
		}
		_, err = g.svc.RequestUpdate(ctx, req.RoomID, participant)
		return err
	}

	act, ok := actions[env.Event]
	if !ok {
		return &ClientProtocolError{Event: env.Event, Reason: "unknown event"}
	}
	participant, err := g.room(c, env.Event, req)
	if err != nil {
		return err
	}
	turnReq, err := build(env.Event, act, req)
	if err != nil {
		return err
	}
	_, err = g.svc.Act(ctx, req.RoomID, participant, turnReq)
	return err
}

// bind resolves the participant of a create or join, binding the connection
func (g *Gateway) bind(c *Client, event, participant string) (string, error) {
	if participant == "" {
		participant = c.Participant()
	}
	if participant == "" {
		return "", missing(event, "participantId")
	}
	if err := c.Bind(participant); err != nil {
		return "", &ClientProtocolError{Event: event, Reason: err.Error()}
	}
	return participant, nil
}

// room checks that the event names a room and comes from a bound connection
func (g *Gateway) room(c *Client, event string, req request) (string, error) {
	if req.RoomID == "" {
		return "", missing(event, "roomId")
	}
	participant := c.Participant()
	if participant == "" {
		return "", &ClientProtocolError{Event: event, Reason: "connection has not joined a session"}
	}
	return participant, nil
}

func build(event string, act action, req request) (turn.Request, error) {
	out := turn.Request{Kind: act.kind, UnitID: req.UnitID}

	if act.needs&needUnit != 0 && req.UnitID == "" {
		return out, missing(event, "unitId")
	}
	if act.needs&needXY != 0 {
		if req.X == nil || req.Y == nil {
			return out, missing(event, "x and y")
		}
		if !onBoard(*req.X, *req.Y) {
			return out, &ClientProtocolError{Event: event, Reason: "x and y must be between 0 and 9"}
		}
		out.X, out.Y = *req.X, *req.Y
	}
	if act.needs&needTarget != 0 {
		if req.TargetX == nil || req.TargetY == nil {
			return out, missing(event, "targetX and targetY")
		}
		if !onBoard(*req.TargetX, *req.TargetY) {
			return out, &ClientProtocolError{Event: event, Reason: "targetX and targetY must be between 0 and 9"}
		}
		out.TargetX, out.TargetY = *req.TargetX, *req.TargetY
	}
	if act.needs&needState != 0 {
		if req.State == nil {
			return out, missing(event, "state")
		}
		out.Toggle = *req.State
	}
	return out, nil
}

func missing(event, field string) error {
	return &ClientProtocolError{Event: event, Reason: "missing " + field}
}

func onBoard(x, y int) bool {
	return x >= 0 && y >= 0 && x < engine.MaxBoardSize && y < engine.MaxBoardSize
}
