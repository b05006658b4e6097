// Command heroduel starts the duel server.
//
// It supports two modes:
//  1. "serve" (default) - runs the HTTP server exposing the REST API, the
//     WebSocket gateway and an /mcp HTTP endpoint
//  2. "mcp" - runs an MCP stdio server against an existing API, starting an
//     internal one if none answers
//
// Flags control host/port, the catalog directory, debug logging, room
// expiry and optional ngrok tunneling for easy external access during
// development. Every flag can also be set from the environment or a .env file.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
	"golang.org/x/sync/errgroup"

	"github.com/wricardo/heroduel/api"
	"github.com/wricardo/heroduel/game/catalog"
	"github.com/wricardo/heroduel/game/engine"
	"github.com/wricardo/heroduel/game/service"
	"github.com/wricardo/heroduel/game/session"
	"github.com/wricardo/heroduel/game/team"
	"github.com/wricardo/heroduel/game/turn"
	"github.com/wricardo/heroduel/transport/mcp"
	"github.com/wricardo/heroduel/transport/websocket"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Hero Duel Server"
)

// serverConfig is everything the serve mode reads from flags
type serverConfig struct {
	Host            string
	Port            int
	CatalogDir      string
	MapID           string
	Debug           bool
	OpenRoomTTL     time.Duration
	CleanupInterval time.Duration
	StrictEndTurn   bool
	DebugWorld      bool
	StaticDir       string
	Ngrok           bool
	NgrokAuth       string
	NgrokDomain     string
}

func (c serverConfig) addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Warning: Error loading .env file: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newCommand().Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", AppName, err)
		os.Exit(1)
	}
}

// serverFlags are defined on the root command and inherited by its subcommands
func serverFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "host", Value: "localhost", Usage: "HTTP server host", Sources: cli.EnvVars("HERODUEL_HOST")},
		&cli.IntFlag{Name: "port", Value: 8080, Usage: "HTTP server port", Sources: cli.EnvVars("HERODUEL_PORT", "PORT")},
		&cli.StringFlag{Name: "catalog-dir", Usage: "Directory of extra hero/map dataset files", Sources: cli.EnvVars("HERODUEL_CATALOG_DIR")},
		&cli.StringFlag{Name: "map", Value: engine.DefaultMapID, Usage: "Map new matches are played on", Sources: cli.EnvVars("HERODUEL_MAP")},
		&cli.BoolFlag{Name: "debug", Usage: "Enable debug logging", Sources: cli.EnvVars("HERODUEL_DEBUG")},
		&cli.DurationFlag{Name: "open-room-ttl", Value: session.DefaultOpenRoomTTL, Usage: "How long a room waits for a second participant", Sources: cli.EnvVars("HERODUEL_OPEN_ROOM_TTL")},
		&cli.DurationFlag{Name: "cleanup-interval", Value: time.Minute, Usage: "How often expired rooms are closed", Sources: cli.EnvVars("HERODUEL_CLEANUP_INTERVAL")},
		&cli.BoolFlag{Name: "strict-end-turn", Usage: "Only the participant whose side is in play may end the turn", Sources: cli.EnvVars("HERODUEL_STRICT_END_TURN")},
		&cli.BoolFlag{Name: "debug-world", Usage: "Register the inspectable room \"debug\" at startup", Sources: cli.EnvVars("HERODUEL_DEBUG_WORLD")},
		&cli.StringFlag{Name: "static-dir", Usage: "Serve a web client from this directory", Sources: cli.EnvVars("HERODUEL_STATIC_DIR")},
		&cli.BoolFlag{Name: "ngrok", Usage: "Enable ngrok tunnel", Sources: cli.EnvVars("NGROK_ENABLED")},
		&cli.StringFlag{Name: "ngrok-auth", Usage: "Ngrok auth token", Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN")},
		&cli.StringFlag{Name: "ngrok-domain", Usage: "Custom ngrok domain (optional)", Sources: cli.EnvVars("NGROK_DOMAIN")},
	}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:    "heroduel",
		Usage:   "real-time two-player tactical duels",
		Version: Version,
		Flags:   serverFlags(),
		Action:  serveAction,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run HTTP server with API, WebSocket, and MCP endpoint (default)",
				Action: serveAction,
			},
			{
				Name:  "mcp",
				Usage: "Run MCP stdio server, starting an internal HTTP server if needed",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "api", Value: "http://localhost:8080", Usage: "REST API to proxy", Sources: cli.EnvVars("HERODUEL_API_URL")},
				},
				Action: mcpAction,
			},
		},
	}
}

func configFrom(cmd *cli.Command) serverConfig {
	return serverConfig{
		Host:            cmd.String("host"),
		Port:            cmd.Int("port"),
		CatalogDir:      cmd.String("catalog-dir"),
		MapID:           cmd.String("map"),
		Debug:           cmd.Bool("debug"),
		OpenRoomTTL:     cmd.Duration("open-room-ttl"),
		CleanupInterval: cmd.Duration("cleanup-interval"),
		StrictEndTurn:   cmd.Bool("strict-end-turn"),
		DebugWorld:      cmd.Bool("debug-world"),
		StaticDir:       cmd.String("static-dir"),
		Ngrok:           cmd.Bool("ngrok"),
		NgrokAuth:       cmd.String("ngrok-auth"),
		NgrokDomain:     cmd.String("ngrok-domain"),
	}
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// app is the wired server
type app struct {
	catalog  *catalog.Manager
	registry *session.Registry
	hub      *websocket.Hub
	service  service.GameService
	handler  http.Handler
	logger   *zap.Logger
}

// buildApp wires catalog, team intake, rooms, the websocket gateway and the
// HTTP routes. baseURL is where the /mcp endpoint sends its REST calls.
func buildApp(ctx context.Context, cfg serverConfig, baseURL string, logger *zap.Logger) (*app, error) {
	cat, err := catalog.NewManager(cfg.CatalogDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create catalog: %w", err)
	}
	if cfg.MapID != "" {
		if err := cat.SetMap(cfg.MapID); err != nil {
			return nil, err
		}
	}

	teams := team.NewService(cat, team.Options{Logger: logger.Named("team")})
	registry := session.NewRegistry(session.Options{
		Factory:  cat,
		Teams:    teams,
		Mediator: turn.Options{StrictEndTurn: cfg.StrictEndTurn, Logger: logger.Named("turn")},
		Logger:   logger.Named("session"),
	})

	hub := websocket.NewHub(websocket.HubOptions{Logger: logger.Named("hub")})
	svc := service.NewGameService(registry, teams, cat, service.Options{
		Notifier: hub,
		Logger:   logger.Named("service"),
	})
	hub.SetHandler(websocket.NewGateway(svc, websocket.GatewayOptions{Logger: logger.Named("gateway")}))

	if cfg.DebugWorld {
		if _, err := svc.StartDebugWorld(ctx); err != nil {
			registry.Close()
			return nil, fmt.Errorf("failed to start debug world: %w", err)
		}
	}

	apiServer := api.NewServer(svc, hub.ServeWS, api.Options{Logger: logger.Named("api"), StaticDir: cfg.StaticDir})
	mcpClient := mcp.NewClient(baseURL)

	mux := http.NewServeMux()
	mux.Handle("/", apiServer)
	mux.HandleFunc("/mcp", mcpHandler(mcpClient))

	return &app{
		catalog:  cat,
		registry: registry,
		hub:      hub,
		service:  svc,
		handler:  mux,
		logger:   logger,
	}, nil
}

// mcpHandler answers MCP JSON-RPC messages posted over HTTP
func mcpHandler(client *mcp.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := client.GetMCPServer().HandleMessage(r.Context(), body)

		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(responseData)
	}
}

// cleanupRoutine closes rooms that waited too long for an opponent
func (a *app) cleanupRoutine(ctx context.Context, interval, ttl time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if removed := a.service.CleanupExpiredSessions(ttl); removed > 0 {
				a.logger.Info("closed expired rooms", zap.Int("rooms", removed))
			}
		}
	}
}

// serve runs the hub, the HTTP listener, the cleanup routine and the
// optional ngrok tunnel until ctx is done or one of them fails
func (a *app) serve(ctx context.Context, cfg serverConfig, listener net.Listener) error {
	g, ctx := errgroup.WithContext(ctx)

	httpServer := &http.Server{
		Handler:     a.handler,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	g.Go(func() error {
		a.hub.Run(ctx)
		return nil
	})

	g.Go(func() error {
		a.logger.Info("HTTP server listening",
			zap.String("addr", listener.Addr().String()),
			zap.String("websocket", fmt.Sprintf("ws://%s/ws?participant=<id>", listener.Addr())),
			zap.String("mcp", fmt.Sprintf("http://%s/mcp", listener.Addr())))
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			a.logger.Warn("HTTP server shutdown error", zap.Error(err))
		}
		return nil
	})

	if cfg.CleanupInterval > 0 {
		g.Go(func() error {
			return a.cleanupRoutine(ctx, cfg.CleanupInterval, cfg.OpenRoomTTL)
		})
	}

	if cfg.Ngrok {
		g.Go(func() error {
			a.serveNgrok(ctx, cfg)
			return nil
		})
	}

	err := g.Wait()
	a.registry.Close()
	return err
}

// serveNgrok exposes the handler through an ngrok tunnel. Failures are
// logged and leave the local server running.
func (a *app) serveNgrok(ctx context.Context, cfg serverConfig) {
	if cfg.NgrokAuth == "" {
		a.logger.Warn("ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN, or NGROK_AUTH_TOKEN)")
		return
	}

	var tunnel ngrokConfig.Tunnel
	if cfg.NgrokDomain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(cfg.NgrokDomain))
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(cfg.NgrokAuth))
	if err != nil {
		a.logger.Error("failed to start ngrok tunnel", zap.Error(err))
		return
	}

	ngrokURL := tun.URL()
	a.logger.Info("ngrok tunnel established",
		zap.String("url", ngrokURL),
		zap.String("websocket", ngrokURL+"/ws?participant=<id>"),
		zap.String("mcp", ngrokURL+"/mcp"))

	go func() {
		<-ctx.Done()
		tun.Close()
	}()

	if err := http.Serve(tun, a.handler); err != nil && ctx.Err() == nil {
		a.logger.Warn("ngrok server error", zap.Error(err))
	}
	a.logger.Info("ngrok tunnel closed")
}

func serveAction(ctx context.Context, cmd *cli.Command) error {
	cfg := configFrom(cmd)
	logger, err := newLogger(cfg.Debug)
	if err != nil {
		return err
	}
	defer logger.Sync()

	logger.Info("starting", zap.String("app", AppName), zap.String("version", Version))

	a, err := buildApp(ctx, cfg, "http://"+cfg.addr(), logger)
	if err != nil {
		return err
	}

	listener, err := net.Listen("tcp", cfg.addr())
	if err != nil {
		a.registry.Close()
		return fmt.Errorf("failed to listen on %s: %w", cfg.addr(), err)
	}

	return a.serve(ctx, cfg, listener)
}

// apiAvailable reports whether a REST API answers at baseURL
func apiAvailable(baseURL string) bool {
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(baseURL + "/healthz")
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode < 500
}

// mcpAction runs an MCP stdio server. It reuses the API at --api when one
// answers; otherwise it starts an internal server on a loopback port.
func mcpAction(ctx context.Context, cmd *cli.Command) error {
	cfg := configFrom(cmd)
	logger, err := newLogger(cfg.Debug)
	if err != nil {
		return err
	}
	defer logger.Sync()

	baseURL := cmd.String("api")
	if apiAvailable(baseURL) {
		logger.Info("using external API for MCP", zap.String("api", baseURL))
	} else {
		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("failed to get available port: %w", err)
		}
		baseURL = "http://" + listener.Addr().String()

		a, err := buildApp(ctx, cfg, baseURL, logger)
		if err != nil {
			listener.Close()
			return err
		}

		cfg.Ngrok = false
		go func() {
			if err := a.serve(ctx, cfg, listener); err != nil {
				logger.Error("internal HTTP server error", zap.Error(err))
			}
		}()
		logger.Info("started internal API for MCP", zap.String("api", baseURL))
	}

	mcpClient := mcp.NewClient(baseURL)
	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}
