package main

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/heroduel/api"
	"github.com/wricardo/heroduel/game/catalog"
	"github.com/wricardo/heroduel/game/service"
	"github.com/wricardo/heroduel/game/session"
	"github.com/wricardo/heroduel/game/team"
	"github.com/wricardo/heroduel/transport/websocket"
)

func stack(t *testing.T) (*httptest.Server, *session.Registry) {
	t.Helper()
	cat, err := catalog.NewManager("")
	require.NoError(t, err)
	teams := team.NewService(cat, team.Options{})
	reg := session.NewRegistry(session.Options{
		Factory: cat,
		Teams:   teams,
		NewID:   func() string { return "r1" },
	})

	hub := websocket.NewHub(websocket.HubOptions{})
	svc := service.NewGameService(reg, teams, cat, service.Options{Notifier: hub})
	hub.SetHandler(websocket.NewGateway(svc, websocket.GatewayOptions{}))

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	srv := httptest.NewServer(api.NewServer(svc, hub.ServeWS, api.Options{}))
	t.Cleanup(func() {
		srv.Close()
		cancel()
		reg.Close()
	})
	return srv, reg
}

type outcome struct {
	res *Result
	err error
}

func TestBotsPlayAMatch(t *testing.T) {
	srv, reg := stack(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	play := func(participant, room string) <-chan outcome {
		out := make(chan outcome, 1)
		bot := NewBot(Config{
			ServerURL:   srv.URL,
			Participant: participant,
			RoomID:      room,
			Roster:      roster(defaultHeroes),
			MaxTurns:    3,
		})
		go func() {
			res, err := bot.Play(ctx)
			out <- outcome{res, err}
		}()
		return out
	}

	alice := play("alice", "")
	require.Eventually(t, func() bool { return reg.Count() == 1 }, 5*time.Second, 10*time.Millisecond)
	bob := play("bob", "r1")

	for _, ch := range []<-chan outcome{alice, bob} {
		o := <-ch
		require.NoError(t, o.err)
		require.NotNil(t, o.res)
		assert.Equal(t, "r1", o.res.RoomID)
		if o.res.Winner == "" {
			assert.Greater(t, o.res.Turns, 3)
		}
		assert.Positive(t, o.res.Attacks+o.res.Moves)
	}
}

func TestBotErrors(t *testing.T) {
	srv, _ := stack(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	t.Run("rejected roster", func(t *testing.T) {
		bot := NewBot(Config{ServerURL: srv.URL, Participant: "carol", Roster: roster([]string{"Marth"})})
		_, err := bot.Play(ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "400")
	})

	t.Run("unknown room", func(t *testing.T) {
		bot := NewBot(Config{ServerURL: srv.URL, Participant: "dave", RoomID: "nope", Roster: roster(defaultHeroes)})
		_, err := bot.Play(ctx)
		require.Error(t, err)
		var se *ServerError
		require.ErrorAs(t, err, &se)
		assert.Contains(t, se.Message, "session not found")
	})

	t.Run("unreachable server", func(t *testing.T) {
		bot := NewBot(Config{ServerURL: "http://127.0.0.1:1", Participant: "erin", Timeout: time.Second})
		_, err := bot.Play(ctx)
		assert.Error(t, err)
	})
}

func TestRoster(t *testing.T) {
	r := roster([]string{"Alfonse", " ", " Anna "})
	assert.Equal(t, team.Roster{{Name: "Alfonse"}, {Name: "Anna"}}, r)
}
