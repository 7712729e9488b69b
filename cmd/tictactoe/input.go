package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

type commandKind int

const (
	cmdPlace commandKind = iota
	cmdNewRound
	cmdAbandon
	cmdResetScore
	cmdQuit
)

type command struct {
	kind  commandKind
	index int // board index 0-8, for cmdPlace
}

var errUnknownInput = errors.New("unknown input")

// parseInput reads one line of player input. Cells are numbered 1-9 on screen.
func parseInput(line string) (command, error) {
	line = strings.ToLower(strings.TrimSpace(line))
	switch line {
	case "n":
		return command{kind: cmdNewRound}, nil
	case "a":
		return command{kind: cmdAbandon}, nil
	case "r":
		return command{kind: cmdResetScore}, nil
	case "q", "quit", "exit":
		return command{kind: cmdQuit}, nil
	}

	n, err := strconv.Atoi(line)
	if err != nil {
		return command{}, fmt.Errorf("%w: %q", errUnknownInput, line)
	}
	// Range is left to the game rules so the player sees the same error as any other client.
	return command{kind: cmdPlace, index: n - 1}, nil
}
