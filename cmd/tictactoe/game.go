package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"time"

	"ctchen222/Tic-Tac-Toe-Solo/internal/render"
	"ctchen222/Tic-Tac-Toe-Solo/internal/session"

	"github.com/muesli/termenv"
)

type opponentResult struct {
	snap session.Snapshot
	err  error
}

// terminalGame drives one session from line-based keyboard input.
type terminalGame struct {
	session     *session.Session
	out         *termenv.Output
	renderer    *render.Renderer
	delay       time.Duration
	clearScreen bool
}

func newTerminalGame(s *session.Session, out *termenv.Output, delay time.Duration) *terminalGame {
	return &terminalGame{
		session:  s,
		out:      out,
		renderer: render.New(out),
		delay:    delay,
	}
}

// run plays until the player quits, input ends, or ctx is cancelled.
func (g *terminalGame) run(ctx context.Context, in io.Reader) error {
	done := make(chan struct{})
	defer close(done)
	lines := readLines(in, done)
	g.draw(g.session.Snapshot(), "")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case line, ok := <-lines:
			if !ok {
				return nil
			}
			cmd, err := parseInput(line)
			if err != nil {
				g.draw(g.session.Snapshot(), err.Error())
				continue
			}
			if cmd.kind == cmdQuit {
				return nil
			}

			snap, err := g.apply(ctx, cmd)
			if err != nil {
				g.draw(snap, err.Error())
				continue
			}
			g.draw(snap, "")

			if snap.State == session.StateOpponentThinking {
				snap, err = g.awaitOpponent(ctx)
				if err != nil {
					return err
				}
				g.draw(snap, "")
			}
		}
	}
}

func (g *terminalGame) apply(ctx context.Context, cmd command) (session.Snapshot, error) {
	switch cmd.kind {
	case cmdPlace:
		return g.session.SubmitMove(ctx, cmd.index)
	case cmdNewRound:
		return g.session.StartNewRound(ctx)
	case cmdAbandon:
		return g.session.AbandonRound(ctx), nil
	case cmdResetScore:
		return g.session.ResetScore(ctx), nil
	default:
		return g.session.Snapshot(), fmt.Errorf("%w: command %d", errUnknownInput, cmd.kind)
	}
}

// awaitOpponent blocks while the computer "thinks", then returns the board with its move.
func (g *terminalGame) awaitOpponent(ctx context.Context) (session.Snapshot, error) {
	results := make(chan opponentResult, 1)
	stop, err := g.session.ScheduleOpponentMove(ctx, g.delay, func(snap session.Snapshot, err error) {
		results <- opponentResult{snap: snap, err: err}
	})
	if err != nil {
		return session.Snapshot{}, err
	}

	select {
	case <-ctx.Done():
		stop()
		return session.Snapshot{}, ctx.Err()
	case res := <-results:
		return res.snap, res.err
	}
}

func (g *terminalGame) draw(snap session.Snapshot, message string) {
	if g.clearScreen {
		g.out.ClearScreen()
	}
	fmt.Fprint(g.out, g.renderer.Frame(snap))
	if message != "" {
		fmt.Fprintln(g.out, g.out.String(message).Italic())
	}
	fmt.Fprint(g.out, "> ")
}

// readLines streams lines from in until EOF or until done is closed.
func readLines(in io.Reader, done <-chan struct{}) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-done:
				return
			}
		}
	}()
	return lines
}
