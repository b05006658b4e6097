package main

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/wricardo/heroduel/game/engine"
	"github.com/wricardo/heroduel/game/session"
)

func TestConstants(t *testing.T) {
	assert.Equal(t, "1.0.0", Version)
	assert.Equal(t, "Hero Duel Server", AppName)
}

// parse runs the command with args and returns the config the chosen action saw
func parse(t *testing.T, args ...string) serverConfig {
	t.Helper()
	cmd := newCommand()
	var got serverConfig
	capture := func(ctx context.Context, c *cli.Command) error {
		got = configFrom(c)
		return nil
	}
	cmd.Action = capture
	for _, sub := range cmd.Commands {
		sub.Action = capture
	}
	require.NoError(t, cmd.Run(context.Background(), append([]string{"heroduel"}, args...)))
	return got
}

func TestFlagDefaults(t *testing.T) {
	cfg := parse(t)

	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, "", cfg.CatalogDir)
	assert.Equal(t, engine.DefaultMapID, cfg.MapID)
	assert.Equal(t, session.DefaultOpenRoomTTL, cfg.OpenRoomTTL)
	assert.Equal(t, time.Minute, cfg.CleanupInterval)
	assert.False(t, cfg.StrictEndTurn)
	assert.False(t, cfg.DebugWorld)
	assert.False(t, cfg.Ngrok)
}

func TestFlagOverrides(t *testing.T) {
	t.Run("root", func(t *testing.T) {
		cfg := parse(t, "--port", "9000", "--strict-end-turn", "--open-room-ttl", "5m", "--debug-world")
		assert.Equal(t, 9000, cfg.Port)
		assert.True(t, cfg.StrictEndTurn)
		assert.True(t, cfg.DebugWorld)
		assert.Equal(t, 5*time.Minute, cfg.OpenRoomTTL)
		assert.Equal(t, "localhost:9000", cfg.addr())
	})

	t.Run("serve subcommand", func(t *testing.T) {
		cfg := parse(t, "serve", "--host", "0.0.0.0", "--port", "7070")
		assert.Equal(t, "0.0.0.0:7070", cfg.addr())
	})

	t.Run("env", func(t *testing.T) {
		t.Setenv("HERODUEL_OPEN_ROOM_TTL", "30s")
		t.Setenv("HERODUEL_PORT", "8181")
		cfg := parse(t)
		assert.Equal(t, 30*time.Second, cfg.OpenRoomTTL)
		assert.Equal(t, 8181, cfg.Port)
	})
}

func testConfig() serverConfig {
	return serverConfig{MapID: engine.DefaultMapID, OpenRoomTTL: session.DefaultOpenRoomTTL}
}

func TestBuildApp(t *testing.T) {
	cfg := testConfig()
	cfg.DebugWorld = true

	a, err := buildApp(context.Background(), cfg, "http://127.0.0.1:1", zap.NewNop())
	require.NoError(t, err)
	defer a.registry.Close()

	srv := httptest.NewServer(a.handler)
	defer srv.Close()

	t.Run("health", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/healthz")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("debug world", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/worlds/debug")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		body, _ := io.ReadAll(resp.Body)
		assert.Contains(t, string(body), "Alfonse")
	})

	t.Run("mcp initialize", func(t *testing.T) {
		req := `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05","capabilities":{},"clientInfo":{"name":"test","version":"1"}}}`
		resp, err := http.Post(srv.URL+"/mcp", "application/json", strings.NewReader(req))
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		body, _ := io.ReadAll(resp.Body)
		assert.Contains(t, string(body), "Hero Duel")
	})

	t.Run("mcp rejects GET", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/mcp")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	})
}

func TestBuildApp_Errors(t *testing.T) {
	t.Run("missing catalog dir", func(t *testing.T) {
		cfg := testConfig()
		cfg.CatalogDir = "/non/existent/path"
		_, err := buildApp(context.Background(), cfg, "", zap.NewNop())
		assert.Error(t, err)
	})

	t.Run("unknown map", func(t *testing.T) {
		cfg := testConfig()
		cfg.MapID = "nowhere"
		_, err := buildApp(context.Background(), cfg, "", zap.NewNop())
		assert.Error(t, err)
	})
}

func TestServe(t *testing.T) {
	a, err := buildApp(context.Background(), testConfig(), "", zap.NewNop())
	require.NoError(t, err)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.serve(ctx, testConfig(), listener) }()

	resp, err := http.Get("http://" + listener.Addr().String() + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, apiAvailable("http://"+listener.Addr().String()))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after cancel")
	}
	assert.Equal(t, 0, a.registry.Count())
}

func TestCleanupRoutine(t *testing.T) {
	a, err := buildApp(context.Background(), testConfig(), "", zap.NewNop())
	require.NoError(t, err)
	defer a.registry.Close()

	_, err = a.registry.CreateRoom(context.Background(), "alice")
	require.NoError(t, err)
	require.Equal(t, 1, a.registry.Count())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.cleanupRoutine(ctx, 10*time.Millisecond, -time.Minute) }()

	assert.Eventually(t, func() bool { return a.registry.Count() == 0 }, 2*time.Second, 10*time.Millisecond)
	cancel()
	assert.NoError(t, <-done)
}

func TestAPIAvailable(t *testing.T) {
	assert.False(t, apiAvailable("http://127.0.0.1:1"))
}
