// Command bot plays a duel against the server over the websocket gateway.
//
// One bot creates a room and prints its id; a second one joins it:
//
//	bot --participant alice
//	bot --participant bob --room <id>
//
// Each unit attacks the weakest enemy it can reach, otherwise walks toward
// the nearest one.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/wricardo/heroduel/game/team"
)

var defaultHeroes = []string{"Alfonse", "Sharena", "Anna", "Serra"}

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newCommand().Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "bot:", err)
		os.Exit(1)
	}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:  "bot",
		Usage: "play a duel automatically",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: "http://localhost:8080", Usage: "Game server URL", Sources: cli.EnvVars("HERODUEL_API_URL")},
			&cli.StringFlag{Name: "participant", Usage: "Participant id", Required: true},
			&cli.StringFlag{Name: "room", Usage: "Join this room instead of creating one"},
			&cli.StringSliceFlag{Name: "hero", Value: defaultHeroes, Usage: "Heroes to field, in order"},
			&cli.IntFlag{Name: "max-turns", Value: 50, Usage: "Stop after this many rounds (0 = no limit)"},
			&cli.DurationFlag{Name: "timeout", Usage: "Per-request timeout"},
			&cli.BoolFlag{Name: "v", Usage: "Verbose output"},
		},
		Action: run,
	}
}

func roster(names []string) team.Roster {
	out := make(team.Roster, 0, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, team.Hero{Name: n})
		}
	}
	return out
}

func run(ctx context.Context, cmd *cli.Command) error {
	newLogger := zap.NewProduction
	if cmd.Bool("v") {
		newLogger = zap.NewDevelopment
	}
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	bot := NewBot(Config{
		ServerURL:   cmd.String("url"),
		Participant: cmd.String("participant"),
		RoomID:      cmd.String("room"),
		Roster:      roster(cmd.StringSlice("hero")),
		MaxTurns:    cmd.Int("max-turns"),
		Timeout:     cmd.Duration("timeout"),
		Logger:      logger,
	})

	res, err := bot.Play(ctx)
	if res != nil {
		fmt.Printf("room %s as %s: %d turn(s), %d attack(s), %d move(s)\n",
			res.RoomID, res.Side, res.Turns, res.Attacks, res.Moves)
		switch {
		case res.Winner == "":
			fmt.Println("no winner")
		case res.Winner == res.Side:
			fmt.Println("🎉 VICTORY")
		default:
			fmt.Println("❌ defeat")
		}
	}
	return err
}
