package session

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/wricardo/heroduel/game/turn"
)

// State is a room's lifecycle stage
type State string

const (
	StateOpen   State = "open"
	StateActive State = "active"
	StateClosed State = "closed"
)

// RoomInfo is a point-in-time summary of a room
type RoomInfo struct {
	ID           string    `json:"id"`
	Owner        string    `json:"owner"`
	State        State     `json:"state"`
	Participants []string  `json:"participants"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Room pairs up to two participants with one match. Seats are fixed once
// taken: seat 0 plays the first side and seat 1 the second. A seated
// participant who disconnects from an Active room keeps the seat and may
// rejoin.
type Room struct {
	ID        string
	Owner     string
	CreatedAt time.Time

	mu       sync.RWMutex
	state    State
	seats    [2]string
	present  [2]bool
	mediator *turn.Mediator
	// joining is set while a second participant's simulation is being built
	joining bool

	inbox  chan task
	quit   chan struct{}
	done   chan struct{}
	logger *zap.Logger
}

type task struct {
	fn     func(*Room, *turn.Mediator) error
	result chan error
}

func newRoom(id, owner string, now time.Time, inbox int, logger *zap.Logger) *Room {
	r := &Room{
		ID:        id,
		Owner:     owner,
		CreatedAt: now,
		state:     StateOpen,
		inbox:     make(chan task, inbox),
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
		logger:    logger.With(zap.String("room", id)),
	}
	r.seats[0] = owner
	r.present[0] = true
	return r
}

// State returns the room's lifecycle stage
func (r *Room) State() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

// Participants returns the connected participants in seat order
func (r *Room) Participants() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.participants()
}

func (r *Room) participants() []string {
	out := make([]string, 0, 2)
	for i, p := range r.seats {
		if p != "" && r.present[i] {
			out = append(out, p)
		}
	}
	return out
}

// Has reports whether participant is currently connected to the room
func (r *Room) Has(participant string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seat := r.seat(participant)
	return seat >= 0 && r.present[seat]
}

func (r *Room) seat(participant string) int {
	for i, p := range r.seats {
		if p != "" && p == participant {
			return i
		}
	}
	return -1
}

// Info returns a summary of the room
func (r *Room) Info() *RoomInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return roomInfoLocked(r)
}

// loop is the room's actor. Tasks run one at a time in arrival order.
func (r *Room) loop() {
	defer close(r.done)
	for {
		select {
		case <-r.quit:
			return
		case t := <-r.inbox:
			t.result <- r.run(t.fn)
		}
	}
}

// run re-checks that the room is still Active before handing fn the mediator
func (r *Room) run(fn func(*Room, *turn.Mediator) error) (err error) {
	r.mu.RLock()
	state, mediator := r.state, r.mediator
	r.mu.RUnlock()
	if state != StateActive || mediator == nil {
		return fmt.Errorf("%w: room %s is %s", ErrNotActive, r.ID, state)
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("room task panicked", zap.Any("panic", rec))
			err = fmt.Errorf("%w: %v", turn.ErrEngineFault, rec)
		}
	}()
	return fn(r, mediator)
}

// close stops the actor and drops the match. Callers hold r.mu.
func (r *Room) close() {
	if r.state == StateClosed {
		return
	}
	r.state = StateClosed
	r.mediator = nil
	close(r.quit)
}
