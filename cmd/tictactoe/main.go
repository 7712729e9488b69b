package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"ctchen222/Tic-Tac-Toe-Solo/internal/bot"
	"ctchen222/Tic-Tac-Toe-Solo/internal/config"
	"ctchen222/Tic-Tac-Toe-Solo/internal/logger"
	"ctchen222/Tic-Tac-Toe-Solo/internal/session"

	"github.com/google/uuid"
	"github.com/muesli/termenv"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	// Keep the board readable: only warnings and errors reach stderr.
	level, _ := config.ParseLevel(cfg.LogLevel)
	slog.SetDefault(logger.New(os.Stderr, max(level, slog.LevelWarn)))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s := session.New(uuid.New().String(), bot.NewRandomPolicy())
	g := newTerminalGame(s, termenv.NewOutput(os.Stdout), cfg.Game.OpponentDelay)
	g.clearScreen = true

	if err := g.run(ctx, os.Stdin); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
