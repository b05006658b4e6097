package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/wricardo/heroduel/game/engine"
	"github.com/wricardo/heroduel/game/turn"
)

var (
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionFull        = errors.New("session is full")
	ErrAlreadyJoined      = errors.New("participant already joined this session")
	ErrAlreadyInRoom      = errors.New("participant already owns an open session")
	ErrSessionExists      = errors.New("session already exists")
	ErrTeamMissing        = errors.New("participant has not submitted a team")
	ErrNotActive          = errors.New("session is not active")
	ErrMissingParticipant = errors.New("participant id is required")
)

// DefaultOpenRoomTTL is how long a room may wait for its second participant
const DefaultOpenRoomTTL = 15 * time.Minute

const idAttempts = 16

// TeamSource provides the stored roster of a participant
type TeamSource interface {
	RetrieveTeam(participant string) ([]engine.HeroBuild, bool)
}

// Options configures a Registry
type Options struct {
	Factory  engine.Factory
	Teams    TeamSource
	Mediator turn.Options
	Logger   *zap.Logger

	// NewID overrides room id generation
	NewID func() string
	// Now overrides the clock used for room ages
	Now func() time.Time
	// InboxSize bounds the tasks queued on one room
	InboxSize int
}

// LeaveResult describes one room a departing participant was removed from
type LeaveResult struct {
	RoomID    string
	Remaining []string
	Closed    bool
}

// Registry owns every room and the participant to room index
type Registry struct {
	rooms       map[string]*Room
	memberships map[string]map[string]bool
	opts        Options
	logger      *zap.Logger
	mu          sync.Mutex
}

// NewRegistry creates an empty registry
func NewRegistry(opts Options) *Registry {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.NewID == nil {
		opts.NewID = generateRoomID
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.InboxSize <= 0 {
		opts.InboxSize = 32
	}
	if opts.Mediator.Logger == nil {
		opts.Mediator.Logger = opts.Logger
	}
	return &Registry{
		rooms:       make(map[string]*Room),
		memberships: make(map[string]map[string]bool),
		opts:        opts,
		logger:      opts.Logger,
	}
}

// CreateRoom opens a room with initiator in the first seat
func (g *Registry) CreateRoom(ctx context.Context, initiator string) (*RoomInfo, error) {
	return g.create(ctx, "", initiator)
}

// CreateNamedRoom opens a room under a fixed id
func (g *Registry) CreateNamedRoom(ctx context.Context, id, initiator string) (*RoomInfo, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: empty id", ErrSessionNotFound)
	}
	return g.create(ctx, id, initiator)
}

func (g *Registry) create(ctx context.Context, id, initiator string) (*RoomInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if initiator == "" {
		return nil, ErrMissingParticipant
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	for roomID := range g.memberships[initiator] {
		room := g.rooms[roomID]
		if room != nil && room.Owner == initiator && room.State() == StateOpen {
			return nil, fmt.Errorf("%w: %s", ErrAlreadyInRoom, roomID)
		}
	}

	if id == "" {
		id = g.freeID()
		if id == "" {
			return nil, fmt.Errorf("could not allocate a session id after %d attempts", idAttempts)
		}
	} else if _, taken := g.rooms[id]; taken {
		return nil, fmt.Errorf("%w: %s", ErrSessionExists, id)
	}

	room := newRoom(id, initiator, g.opts.Now(), g.opts.InboxSize, g.logger)
	g.rooms[id] = room
	g.addMembership(initiator, id)
	go room.loop()

	g.logger.Info("room created", zap.String("room", id), zap.String("participant", initiator))
	return room.Info(), nil
}

// JoinRoom seats participant in a room. The second participant to join
// activates the room: both stored rosters are read and a simulation is built
// with the first seat on SideA. Any failure while activating leaves the room
// Open with only its first participant.
func (g *Registry) JoinRoom(ctx context.Context, roomID, participant string) (*RoomInfo, error) {
	return g.JoinRoomWithTeam(ctx, roomID, participant, nil)
}

// JoinRoomWithTeam is JoinRoom with heroes standing in for participant's
// stored roster when the join activates the room. A nil heroes reads the
// stored roster. The simulation is built without holding the registry lock;
// meanwhile other joins on the same room fail with ErrSessionFull.
func (g *Registry) JoinRoomWithTeam(ctx context.Context, roomID, participant string, heroes []engine.HeroBuild) (*RoomInfo, error) {
	if participant == "" {
		return nil, ErrMissingParticipant
	}

	room, info, err := g.reserve(roomID, participant)
	if err != nil || info != nil {
		return info, err
	}

	seats := [2]string{room.Owner, participant}
	mediator, err := g.activate(ctx, seats, heroes)

	g.mu.Lock()
	defer g.mu.Unlock()
	room.mu.Lock()
	defer room.mu.Unlock()
	room.joining = false

	if err != nil {
		g.logger.Warn("room activation failed",
			zap.String("room", roomID),
			zap.String("participant", participant),
			zap.Error(err))
		return nil, err
	}
	if room.state != StateOpen || room.seats[0] != seats[0] {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, roomID)
	}

	room.seats[1] = participant
	room.present[1] = true
	room.mediator = mediator
	room.state = StateActive
	g.addMembership(participant, roomID)

	g.logger.Info("room active",
		zap.String("room", roomID),
		zap.Strings("participants", room.seats[:]))
	return roomInfoLocked(room), nil
}

// reserve settles every join that needs no simulation. It returns the
// room's info for a rejoin, or the room marked as joining when the caller
// must activate it.
func (g *Registry) reserve(roomID, participant string) (*Room, *RoomInfo, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	room, ok := g.rooms[roomID]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrSessionNotFound, roomID)
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	if room.state == StateClosed {
		return nil, nil, fmt.Errorf("%w: %s", ErrSessionNotFound, roomID)
	}
	seat := room.seat(participant)
	if seat >= 0 && room.present[seat] {
		return nil, nil, fmt.Errorf("%w: %s in %s", ErrAlreadyJoined, participant, roomID)
	}

	if room.state == StateActive {
		if seat < 0 {
			return nil, nil, fmt.Errorf("%w: %s", ErrSessionFull, roomID)
		}
		room.present[seat] = true
		g.addMembership(participant, roomID)
		g.logger.Info("participant rejoined", zap.String("room", roomID), zap.String("participant", participant))
		return room, roomInfoLocked(room), nil
	}

	if room.joining || (room.seats[1] != "" && room.present[1]) {
		return nil, nil, fmt.Errorf("%w: %s", ErrSessionFull, roomID)
	}
	room.joining = true
	return room, nil, nil
}

func (g *Registry) activate(ctx context.Context, seats [2]string, joiner []engine.HeroBuild) (mediator *turn.Mediator, err error) {
	var teams [2]engine.Team
	for i, p := range seats {
		heroes, ok := joiner, i == 1 && joiner != nil
		if !ok {
			heroes, ok = g.opts.Teams.RetrieveTeam(p)
		}
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrTeamMissing, p)
		}
		teams[i] = engine.Team{Owner: p, Heroes: heroes}
	}
	teams[0].Side, teams[1].Side = engine.SideA, engine.SideB

	defer func() {
		if r := recover(); r != nil {
			mediator, err = nil, fmt.Errorf("%w: building simulation: %v", turn.ErrEngineFault, r)
		}
	}()
	sim, err := g.opts.Factory.NewSimulation(ctx, teams)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: building simulation: %v", turn.ErrEngineFault, err)
	}
	return turn.New(sim, seats, g.opts.Mediator), nil
}

// LeaveRoom disconnects participant from every room it is in. Rooms left
// without anyone connected are closed.
func (g *Registry) LeaveRoom(participant string) []LeaveResult {
	g.mu.Lock()
	defer g.mu.Unlock()

	ids := make([]string, 0, len(g.memberships[participant]))
	for id := range g.memberships[participant] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	delete(g.memberships, participant)

	results := make([]LeaveResult, 0, len(ids))
	for _, id := range ids {
		room, ok := g.rooms[id]
		if !ok {
			continue
		}
		room.mu.Lock()
		if seat := room.seat(participant); seat >= 0 {
			room.present[seat] = false
			if room.state == StateOpen {
				room.seats[seat] = ""
			}
		}
		res := LeaveResult{RoomID: id, Remaining: room.participants()}
		if len(res.Remaining) == 0 {
			room.close()
			delete(g.rooms, id)
			res.Closed = true
		}
		room.mu.Unlock()

		g.logger.Info("participant left",
			zap.String("room", id),
			zap.String("participant", participant),
			zap.Bool("closed", res.Closed))
		results = append(results, res)
	}
	return results
}

// Lookup returns a summary of a room
func (g *Registry) Lookup(roomID string) (*RoomInfo, error) {
	g.mu.Lock()
	room, ok := g.rooms[roomID]
	g.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, roomID)
	}
	return room.Info(), nil
}

// LookupParticipant returns the most recently created room participant is connected to
func (g *Registry) LookupParticipant(participant string) (*RoomInfo, error) {
	g.mu.Lock()
	var latest *Room
	for id := range g.memberships[participant] {
		room := g.rooms[id]
		if room == nil {
			continue
		}
		if latest == nil || room.CreatedAt.After(latest.CreatedAt) {
			latest = room
		}
	}
	g.mu.Unlock()
	if latest == nil {
		return nil, fmt.Errorf("%w: no session for %s", ErrSessionNotFound, participant)
	}
	return latest.Info(), nil
}

// List returns every room ordered by creation time
func (g *Registry) List() []*RoomInfo {
	g.mu.Lock()
	rooms := make([]*Room, 0, len(g.rooms))
	for _, room := range g.rooms {
		rooms = append(rooms, room)
	}
	g.mu.Unlock()

	out := make([]*RoomInfo, 0, len(rooms))
	for _, room := range rooms {
		out = append(out, room.Info())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Count returns the number of rooms
func (g *Registry) Count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.rooms)
}

// Do runs fn on the room's actor with the room's mediator. Tasks on one room
// never overlap; tasks on different rooms run independently. Once queued a
// task runs even if ctx is cancelled while waiting for its result.
func (g *Registry) Do(ctx context.Context, roomID string, fn func(*Room, *turn.Mediator) error) error {
	g.mu.Lock()
	room, ok := g.rooms[roomID]
	g.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, roomID)
	}

	t := task{fn: fn, result: make(chan error, 1)}
	select {
	case room.inbox <- t:
	case <-room.done:
		return fmt.Errorf("%w: %s", ErrSessionNotFound, roomID)
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-t.result:
		return err
	case <-room.done:
		select {
		case err := <-t.result:
			return err
		default:
			return fmt.Errorf("%w: %s closed", ErrSessionNotFound, roomID)
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// CleanupExpiredRooms closes Open rooms older than maxAge and returns how many were closed
func (g *Registry) CleanupExpiredRooms(maxAge time.Duration) int {
	g.mu.Lock()
	defer g.mu.Unlock()

	cutoff := g.opts.Now().Add(-maxAge)
	removed := 0

	for id, room := range g.rooms {
		room.mu.Lock()
		if room.state == StateOpen && room.CreatedAt.Before(cutoff) {
			for _, p := range room.seats {
				if p != "" {
					g.removeMembership(p, id)
				}
			}
			room.close()
			delete(g.rooms, id)
			removed++
		}
		room.mu.Unlock()
	}

	if removed > 0 {
		g.logger.Info("expired open rooms", zap.Int("count", removed))
	}
	return removed
}

// Close shuts every room down and waits for their actors to exit
func (g *Registry) Close() {
	g.mu.Lock()
	rooms := make([]*Room, 0, len(g.rooms))
	for id, room := range g.rooms {
		room.mu.Lock()
		room.close()
		room.mu.Unlock()
		rooms = append(rooms, room)
		delete(g.rooms, id)
	}
	g.memberships = make(map[string]map[string]bool)
	g.mu.Unlock()

	for _, room := range rooms {
		<-room.done
	}
}

func (g *Registry) freeID() string {
	for i := 0; i < idAttempts; i++ {
		id := g.opts.NewID()
		if _, taken := g.rooms[id]; !taken && id != "" {
			return id
		}
	}
	return ""
}

func (g *Registry) addMembership(participant, roomID string) {
	if g.memberships[participant] == nil {
		g.memberships[participant] = make(map[string]bool)
	}
	g.memberships[participant][roomID] = true
}

func (g *Registry) removeMembership(participant, roomID string) {
	delete(g.memberships[participant], roomID)
	if len(g.memberships[participant]) == 0 {
		delete(g.memberships, participant)
	}
}

func roomInfoLocked(r *Room) *RoomInfo {
	return &RoomInfo{
		ID:           r.ID,
		Owner:        r.Owner,
		State:        r.state,
		Participants: r.participants(),
		CreatedAt:    r.CreatedAt,
	}
}

// generateRoomID generates a random 4-character room ID
func generateRoomID() string {
	bytes := make([]byte, 2)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}
