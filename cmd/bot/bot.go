package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/wricardo/heroduel/game/engine"
	"github.com/wricardo/heroduel/game/team"
	"github.com/wricardo/heroduel/game/turn"
	"github.com/wricardo/heroduel/transport/wire"
)

var (
	ErrOpponentLeft = errors.New("opponent left the room")
	ErrTimeout      = errors.New("timed out waiting for the server")
)

// ServerError is an error event sent back by the server
type ServerError struct {
	Message string
}

func (e *ServerError) Error() string {
	return "server: " + e.Message
}

// Config describes one bot
type Config struct {
	ServerURL   string
	Participant string
	// RoomID joins an existing room; empty creates one
	RoomID   string
	Roster   team.Roster
	MaxTurns int
	// Timeout bounds each request/response exchange
	Timeout time.Duration
	Logger  *zap.Logger
}

// Result summarizes a finished match
type Result struct {
	RoomID  string
	Side    engine.Side
	Winner  engine.Side
	Turns   int
	Attacks int
	Moves   int
}

// Bot plays one side of a duel over the websocket gateway
type Bot struct {
	cfg    Config
	http   *http.Client
	conn   *websocket.Conn
	events chan *wire.Envelope
	errs   chan error
	done   chan struct{}
	logger *zap.Logger

	roomID string
	side   engine.Side
	turn   engine.TurnState
	board  board
	result Result
}

// NewBot creates a bot
func NewBot(cfg Config) *Bot {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	cfg.ServerURL = strings.TrimSuffix(cfg.ServerURL, "/")
	return &Bot{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		events: make(chan *wire.Envelope, 64),
		errs:   make(chan error, 1),
		done:   make(chan struct{}),
		logger: cfg.Logger.With(zap.String("participant", cfg.Participant)),
		board:  board{},
	}
}

// Play registers the roster, enters a room and plays until the match is
// decided, MaxTurns rounds have passed or the opponent leaves
func (b *Bot) Play(ctx context.Context) (*Result, error) {
	if len(b.cfg.Roster) > 0 {
		if err := b.submitTeam(ctx); err != nil {
			return nil, err
		}
	}
	if err := b.connect(ctx); err != nil {
		return nil, err
	}
	defer b.close()

	if err := b.enter(ctx); err != nil {
		return nil, err
	}

	for {
		if b.turn.Winner != "" {
			b.logger.Info("match decided", zap.String("winner", string(b.turn.Winner)))
			break
		}
		if b.cfg.MaxTurns > 0 && b.turn.Turn > b.cfg.MaxTurns {
			b.logger.Info("turn limit reached", zap.Int("turn", b.turn.Turn))
			break
		}
		if b.turn.CurrentSide != b.side {
			if _, err := b.next(ctx, 0); err != nil {
				return b.finish(), err
			}
			continue
		}
		if err := b.playTurn(ctx); err != nil {
			return b.finish(), err
		}
	}
	return b.finish(), nil
}

func (b *Bot) finish() *Result {
	r := b.result
	r.RoomID, r.Side, r.Winner, r.Turns = b.roomID, b.side, b.turn.Winner, b.turn.Turn
	return &r
}

// submitTeam stores the roster through the REST API
func (b *Bot) submitTeam(ctx context.Context) error {
	body, err := json.Marshal(b.cfg.Roster)
	if err != nil {
		return fmt.Errorf("marshal roster: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.cfg.ServerURL+"/team", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+b.cfg.Participant)

	resp, err := b.http.Do(req)
	if err != nil {
		return fmt.Errorf("submit team: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("submit team failed: %s - %s", resp.Status, strings.TrimSpace(string(msg)))
	}
	return nil
}

func (b *Bot) connect(ctx context.Context) error {
	url := "ws" + strings.TrimPrefix(b.cfg.ServerURL, "http") + "/ws?participant=" + b.cfg.Participant
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", url, err)
	}
	b.conn = conn

	go b.readLoop()
	return nil
}

func (b *Bot) close() {
	close(b.done)
	b.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	b.conn.Close()
}

func (b *Bot) readLoop() {
	for {
		_, frame, err := b.conn.ReadMessage()
		if err != nil {
			select {
			case b.errs <- err:
			default:
			}
			return
		}
		env, err := wire.Decode(frame)
		if err != nil {
			b.logger.Warn("dropping frame", zap.Error(err))
			continue
		}
		select {
		case b.events <- env:
		case <-b.done:
			return
		}
	}
}

func (b *Bot) send(event string, data map[string]interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	frame, err := json.Marshal(wire.Envelope{Event: event, Data: payload})
	if err != nil {
		return err
	}
	b.conn.SetWriteDeadline(time.Now().Add(b.cfg.Timeout))
	return b.conn.WriteMessage(websocket.TextMessage, frame)
}

// next reads one event and folds it into the bot's view of the match.
// A zero timeout waits until ctx is done.
func (b *Bot) next(ctx context.Context, timeout time.Duration) (*wire.Envelope, error) {
	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-expired:
		return nil, ErrTimeout
	case err := <-b.errs:
		return nil, fmt.Errorf("connection lost: %w", err)
	case env := <-b.events:
		return env, b.observe(env)
	}
}

// await skips events until one of names arrives. An error event fails the wait.
func (b *Bot) await(ctx context.Context, names ...string) (*wire.Envelope, error) {
	for {
		env, err := b.next(ctx, b.cfg.Timeout)
		if err != nil {
			return env, err
		}
		for _, name := range names {
			if env.Event == name {
				return env, nil
			}
		}
	}
}

func (b *Bot) observe(env *wire.Envelope) error {
	switch env.Event {
	case "error":
		var e struct {
			Message string `json:"message"`
		}
		json.Unmarshal(env.Data, &e)
		return &ServerError{Message: e.Message}

	case "update-entities":
		bd, err := parseBoard(env.Data)
		if err != nil {
			return err
		}
		b.board = bd

	case "response", "response confirm battle", "response confirm assist":
		var r struct {
			TurnState    *engine.TurnState    `json:"turnState"`
			ActionResult *engine.ActionResult `json:"actionResult"`
			Result       *engine.ActionResult `json:"result"`
		}
		if err := json.Unmarshal(env.Data, &r); err != nil {
			return fmt.Errorf("parse %q: %w", env.Event, err)
		}
		for _, a := range []*engine.ActionResult{r.ActionResult, r.Result} {
			if a != nil {
				b.turn = a.Turn
			}
		}
		if r.TurnState != nil {
			b.turn = *r.TurnState
		}

	case "opponent-left":
		return ErrOpponentLeft
	}
	return nil
}

// enter creates or joins the room and waits for control
func (b *Bot) enter(ctx context.Context) error {
	if b.cfg.RoomID == "" {
		if err := b.send("create-session", map[string]interface{}{"participantId": b.cfg.Participant}); err != nil {
			return err
		}
		env, err := b.await(ctx, "sid")
		if err != nil {
			return fmt.Errorf("create session: %w", err)
		}
		var sid struct {
			RoomID string `json:"roomId"`
		}
		if err := env.Bind(&sid); err != nil {
			return err
		}
		b.roomID = sid.RoomID
		b.logger.Info("room created, waiting for an opponent", zap.String("room", b.roomID))

		// the opponent may take a while
		for {
			env, err := b.next(ctx, 0)
			if err != nil {
				return err
			}
			if env.Event == "join-session" {
				break
			}
		}
	} else {
		b.roomID = b.cfg.RoomID
		if err := b.send("join", map[string]interface{}{"roomId": b.roomID, "participantId": b.cfg.Participant}); err != nil {
			return err
		}
		if _, err := b.await(ctx, "join-session"); err != nil {
			return fmt.Errorf("join %s: %w", b.roomID, err)
		}
	}

	if err := b.send("loading-complete", map[string]interface{}{"roomId": b.roomID}); err != nil {
		return err
	}
	env, err := b.await(ctx, "allow-control")
	if err != nil {
		return fmt.Errorf("loading complete: %w", err)
	}
	var grant turn.ControlGrant
	if err := env.Bind(&grant); err != nil {
		return err
	}
	b.side = grant.Side
	b.turn.CurrentSide = grant.CurrentSide

	if err := b.send("request update", map[string]interface{}{"roomId": b.roomID}); err != nil {
		return err
	}
	if _, err := b.await(ctx, "update-entities"); err != nil {
		return err
	}

	b.logger.Info("match started", zap.String("room", b.roomID), zap.String("side", string(b.side)))
	return nil
}

// playTurn acts with every idle unit, then ends the turn
func (b *Bot) playTurn(ctx context.Context) error {
	skipped := map[string]bool{}
	for b.turn.Winner == "" {
		var u *unitView
		for _, candidate := range b.board.idle(b.side) {
			if !skipped[candidate.ID] {
				c := candidate
				u = &c
				break
			}
		}
		if u == nil {
			break
		}

		acted, err := b.act(ctx, *u)
		if err != nil {
			return err
		}
		if !acted {
			skipped[u.ID] = true
		}
	}
	if b.turn.Winner != "" {
		return nil
	}

	if err := b.send("request end turn", map[string]interface{}{"roomId": b.roomID}); err != nil {
		return err
	}
	if _, err := b.await(ctx, "response"); err != nil {
		return fmt.Errorf("end turn: %w", err)
	}
	_, err := b.await(ctx, "update-entities")
	return err
}

// act spends one unit's action. It reports false when the server refused
// every option, leaving the unit idle.
func (b *Bot) act(ctx context.Context, u unitView) (bool, error) {
	log := b.logger.With(zap.String("unit", u.ID))

	if err := b.send("request preview movement", map[string]interface{}{"roomId": b.roomID, "unitId": u.ID}); err != nil {
		return false, err
	}
	env, err := b.await(ctx, "response preview movement")
	if err != nil {
		return false, refused(err)
	}
	var preview turn.MovementPreview
	if err := env.Bind(&preview); err != nil {
		return false, err
	}

	for _, p := range attackPlans(u, &preview, b.board) {
		ok, err := b.attack(ctx, u, p)
		if err != nil {
			return false, err
		}
		if ok {
			log.Debug("attacked", zap.Any("from", p.from), zap.Any("target", p.target))
			b.result.Attacks++
			return true, nil
		}
	}

	p := approach(u, &preview, b.board)
	event, reply := "request freeze unit", "response freeze unit"
	if p.kind == planMove {
		event, reply = "request confirm movement", "response confirm movement"
	}
	if err := b.send(event, map[string]interface{}{"roomId": b.roomID, "unitId": u.ID, "x": p.from.X, "y": p.from.Y}); err != nil {
		return false, err
	}
	env, err = b.await(ctx, reply)
	if err != nil {
		return false, refused(err)
	}
	var res turn.MoveResult
	if err := env.Bind(&res); err != nil {
		return false, err
	}
	if !res.Valid {
		// the rejection is followed by an error event
		if _, err := b.await(ctx, "error"); refused(err) != nil {
			return false, err
		}
		return false, nil
	}
	if p.kind == planMove {
		b.result.Moves++
	}
	if _, err := b.await(ctx, "update-entities"); err != nil {
		return false, err
	}
	return true, nil
}

// attack previews then confirms one combat. A refused preview is not an error.
func (b *Bot) attack(ctx context.Context, u unitView, p plan) (bool, error) {
	data := map[string]interface{}{
		"roomId": b.roomID, "unitId": u.ID,
		"x": p.from.X, "y": p.from.Y,
		"targetX": p.target.X, "targetY": p.target.Y,
	}

	if err := b.send("request preview battle", data); err != nil {
		return false, err
	}
	if _, err := b.await(ctx, "response preview battle"); err != nil {
		return false, refused(err)
	}

	if err := b.send("request confirm battle", data); err != nil {
		return false, err
	}
	if _, err := b.await(ctx, "response confirm battle"); err != nil {
		return false, refused(err)
	}
	if _, err := b.await(ctx, "update-entities"); err != nil {
		return false, err
	}
	return true, nil
}

// refused swallows server-side rejections and keeps every other failure
func refused(err error) error {
	var se *ServerError
	if errors.As(err, &se) {
		return nil
	}
	return err
}
