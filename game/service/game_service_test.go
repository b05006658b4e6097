package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/heroduel/game/catalog"
	"github.com/wricardo/heroduel/game/engine"
	"github.com/wricardo/heroduel/game/service"
	"github.com/wricardo/heroduel/game/session"
	"github.com/wricardo/heroduel/game/team"
	"github.com/wricardo/heroduel/game/turn"
)

type sent struct {
	to      string
	event   string
	payload interface{}
}

// recorder implements service.Notifier for testing
type recorder struct {
	mu   sync.Mutex
	sent []sent
}

func (r *recorder) Send(participant, event string, payload interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sent{participant, event, payload})
}

func (r *recorder) Broadcast(participants []string, event string, payload interface{}) {
	for _, p := range participants {
		r.Send(p, event, payload)
	}
}

// take returns and forgets everything delivered to participant
func (r *recorder) take(participant string) []sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var mine, rest []sent
	for _, s := range r.sent {
		if s.to == participant {
			mine = append(mine, s)
		} else {
			rest = append(rest, s)
		}
	}
	r.sent = rest
	return mine
}

func events(msgs []sent) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.event)
	}
	return out
}

func newService(t *testing.T, ids ...string) (service.GameService, *recorder) {
	t.Helper()
	cat, err := catalog.NewManager("")
	require.NoError(t, err)

	teams := team.NewService(cat, team.Options{})
	opts := session.Options{Factory: cat, Teams: teams}
	if len(ids) > 0 {
		next := 0
		opts.NewID = func() string {
			if next >= len(ids) {
				return ""
			}
			next++
			return ids[next-1]
		}
	}
	reg := session.NewRegistry(opts)
	t.Cleanup(reg.Close)

	rec := &recorder{}
	return service.NewGameService(reg, teams, cat, service.Options{Notifier: rec}), rec
}

func aliceRoster() team.Roster {
	return team.Roster{
		{Name: "Alfonse", Weapon: "Silver Sword", Assist: "Reposition"},
		{Name: "Sharena", Weapon: "Silver Lance"},
		{Name: "Anna", Weapon: "Silver Axe"},
	}
}

func bobRoster() team.Roster {
	return team.Roster{{Name: "Draug", Weapon: "Silver Sword"}}
}

func TestMatchScenario(t *testing.T) {
	ctx := context.Background()
	svc, rec := newService(t, "r1")

	info, err := svc.CreateSession(ctx, "alice", aliceRoster())
	require.NoError(t, err)
	assert.Equal(t, "r1", info.ID)
	msgs := rec.take("alice")
	require.Len(t, msgs, 1)
	assert.Equal(t, service.EventSid, msgs[0].event)
	assert.Equal(t, service.RoomPayload{RoomID: "r1"}, msgs[0].payload)

	info, err = svc.JoinSession(ctx, "r1", "bob", bobRoster())
	require.NoError(t, err)
	assert.Equal(t, session.StateActive, info.State)
	assert.Equal(t, []string{service.EventJoinSession}, events(rec.take("alice")))
	assert.Equal(t, []string{service.EventJoinSession}, events(rec.take("bob")))

	grant, err := svc.LoadingComplete(ctx, "r1", "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, grant.IDs)
	assert.Equal(t, engine.SideA, grant.CurrentSide)
	assert.Equal(t, []string{service.EventAllowControl}, events(rec.take("alice")))

	t.Run("preview goes to the requester only", func(t *testing.T) {
		_, err := svc.Act(ctx, "r1", "alice", turn.Request{Kind: turn.PreviewMovement, UnitID: "alice-unit-1"})
		require.NoError(t, err)

		msgs := rec.take("alice")
		require.Equal(t, []string{service.EventPreviewMovement, service.EventUnitMapStats}, events(msgs))
		preview := msgs[0].payload.(*turn.MovementPreview)
		assert.Equal(t, []int{6, 7, 16, 17, 26}, preview.Movement)
		assert.Equal(t, []int{27}, preview.Assist)
		assert.Empty(t, rec.take("bob"))
	})

	t.Run("confirm is broadcast", func(t *testing.T) {
		_, err := svc.Act(ctx, "r1", "alice", turn.Request{Kind: turn.ConfirmMovement, UnitID: "alice-unit-1", X: 0, Y: 6})
		require.NoError(t, err)

		assert.Equal(t,
			[]string{service.EventConfirmMovement, service.EventResponse, service.EventUpdateEntities},
			events(rec.take("alice")))

		msgs := rec.take("bob")
		require.Equal(t, []string{service.EventConfirmMovement, service.EventUpdateEntities}, events(msgs))
		res := msgs[0].payload.(*turn.MoveResult)
		assert.Equal(t, &turn.MoveResult{UnitID: "alice-unit-1", X: 0, Y: 6, Valid: true, Action: res.Action}, res)
	})

	t.Run("out of turn confirm is rejected privately", func(t *testing.T) {
		_, err := svc.Act(ctx, "r1", "bob", turn.Request{Kind: turn.ConfirmMovement, UnitID: "bob-unit-1", X: 1, Y: 1})
		assert.ErrorIs(t, err, turn.ErrNotYourTurn)

		msgs := rec.take("bob")
		require.Len(t, msgs, 1)
		assert.False(t, msgs[0].payload.(*turn.MoveResult).Valid)
		assert.Empty(t, rec.take("alice"))
	})

	t.Run("end turn", func(t *testing.T) {
		_, err := svc.Act(ctx, "r1", "bob", turn.Request{Kind: turn.EndTurn})
		require.NoError(t, err)

		for _, p := range []string{"alice", "bob"} {
			msgs := rec.take(p)
			require.Equal(t, []string{service.EventResponse, service.EventUpdateEntities}, events(msgs))
			state := msgs[0].payload.(service.TurnResponse).TurnState
			assert.Equal(t, engine.SideB, state.CurrentSide)
			assert.Equal(t, uint64(3), state.Sequence)
		}
	})

	t.Run("outsider", func(t *testing.T) {
		_, err := svc.Act(ctx, "r1", "carol", turn.Request{Kind: turn.QueryRange, Toggle: true})
		assert.ErrorIs(t, err, service.ErrNotInRoom)
	})

	world, err := svc.GetWorld(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, engine.DefaultMapID, world.MapID)
	assert.Len(t, world.Snapshot.Entities, 4)

	svc.Disconnect("bob")
	msgs = rec.take("alice")
	require.Len(t, msgs, 1)
	assert.Equal(t, service.EventOpponentLeft, msgs[0].event)
	assert.Equal(t, service.OpponentLeft{RoomID: "r1", ParticipantID: "bob"}, msgs[0].payload)

	results := svc.Disconnect("alice")
	require.Len(t, results, 1)
	assert.True(t, results[0].Closed)

	_, err = svc.GetWorld(ctx, "r1")
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
}

func TestCreateSessionWithInvalidRoster(t *testing.T) {
	ctx := context.Background()
	svc, rec := newService(t)

	_, err := svc.CreateSession(ctx, "alice", team.Roster{{Name: "Marth"}})
	var rejected *team.RejectedError
	require.True(t, errors.As(err, &rejected))
	assert.Equal(t, "name", rejected.Errors[0].Field)
	assert.Empty(t, rec.take("alice"))

	rooms, err := svc.ListSessions(ctx)
	require.NoError(t, err)
	assert.Empty(t, rooms)
}

func TestJoinWithoutTeam(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, "r1")

	_, err := svc.CreateSession(ctx, "alice", aliceRoster())
	require.NoError(t, err)

	_, err = svc.JoinSession(ctx, "r1", "bob", nil)
	assert.ErrorIs(t, err, session.ErrTeamMissing)

	_, err = svc.Act(ctx, "r1", "alice", turn.Request{Kind: turn.EndTurn})
	assert.ErrorIs(t, err, session.ErrNotActive)

	_, err = svc.GetWorld(ctx, "r1")
	assert.ErrorIs(t, err, session.ErrNotActive)
}

func TestRejectedJoinKeepsStoredTeam(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, "r1", "r2")

	require.NoError(t, svc.SubmitTeam(ctx, "bob", bobRoster()))
	_, err := svc.JoinSession(ctx, "nowhere", "bob", aliceRoster())
	assert.ErrorIs(t, err, session.ErrSessionNotFound)

	_, err = svc.CreateSession(ctx, "alice", aliceRoster())
	require.NoError(t, err)
	_, err = svc.JoinSession(ctx, "r1", "bob", nil)
	require.NoError(t, err)

	world, err := svc.GetWorld(ctx, "r1")
	require.NoError(t, err)
	assert.Len(t, world.Snapshot.Entities, 4, "the stored single-hero roster is used")

	t.Run("full room", func(t *testing.T) {
		require.NoError(t, svc.SubmitTeam(ctx, "carol", bobRoster()))
		_, err := svc.JoinSession(ctx, "r1", "carol", aliceRoster())
		assert.ErrorIs(t, err, session.ErrSessionFull)

		_, err = svc.CreateSession(ctx, "carol", nil)
		require.NoError(t, err)
		_, err = svc.JoinSession(ctx, "r2", "dave", bobRoster())
		require.NoError(t, err)

		world, err := svc.GetWorld(ctx, "r2")
		require.NoError(t, err)
		assert.Len(t, world.Snapshot.Entities, 2)
	})
}

func TestRequestUpdate(t *testing.T) {
	ctx := context.Background()
	svc, rec := newService(t, "r1")
	_, err := svc.CreateSession(ctx, "alice", aliceRoster())
	require.NoError(t, err)
	_, err = svc.JoinSession(ctx, "r1", "bob", bobRoster())
	require.NoError(t, err)
	rec.take("alice")
	rec.take("bob")

	snap, err := svc.RequestUpdate(ctx, "r1", "bob")
	require.NoError(t, err)
	assert.Len(t, snap.Entities, 4)
	assert.Equal(t, []string{service.EventUpdateEntities}, events(rec.take("bob")))
	assert.Empty(t, rec.take("alice"))
}

func TestDebugWorld(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	info, err := svc.StartDebugWorld(ctx)
	require.NoError(t, err)
	assert.Equal(t, service.DebugRoomID, info.ID)
	assert.Equal(t, session.StateActive, info.State)

	world, err := svc.GetWorld(ctx, service.DebugRoomID)
	require.NoError(t, err)
	assert.Len(t, world.Snapshot.Entities, 2)

	_, err = svc.StartDebugWorld(ctx)
	assert.ErrorIs(t, err, session.ErrSessionExists)
}

func TestGetMoveset(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	ms, err := svc.GetMoveset(ctx, "alfonse")
	require.NoError(t, err)
	assert.Equal(t, "Alfonse", ms.Name)

	_, err = svc.GetMoveset(ctx, "")
	assert.ErrorIs(t, err, catalog.ErrHeroNotFound)

	_, err = svc.GetMoveset(ctx, "Marth")
	assert.ErrorIs(t, err, catalog.ErrHeroNotFound)
}

func TestCleanupExpiredSessions(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, "r1")
	_, err := svc.CreateSession(ctx, "alice", aliceRoster())
	require.NoError(t, err)

	assert.Equal(t, 1, svc.CleanupExpiredSessions(-time.Minute))
	rooms, err := svc.ListSessions(ctx)
	require.NoError(t, err)
	assert.Empty(t, rooms)
}
