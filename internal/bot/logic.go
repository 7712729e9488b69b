package bot

import (
	"errors"
	"math/rand/v2"
	"sync"

	"ctchen222/Tic-Tac-Toe-Solo/internal/game"
)

// ErrNoLegalMoves is returned when a policy is asked to move on a board with no open cell.
var ErrNoLegalMoves = errors.New("no legal moves")

// RandomPolicy picks uniformly among the legal moves, independently on every call.
// It implements session.MovePolicy.
type RandomPolicy struct {
	mu  sync.Mutex
	rng *rand.Rand // nil means the global source
}

// NewRandomPolicy creates a policy backed by the global random source.
func NewRandomPolicy() *RandomPolicy {
	return &RandomPolicy{}
}

// NewSeededRandomPolicy creates a policy with a reproducible sequence of choices.
func NewSeededRandomPolicy(seed1, seed2 uint64) *RandomPolicy {
	return &RandomPolicy{rng: rand.New(rand.NewPCG(seed1, seed2))}
}

// ChooseMove returns one element of legalMoves. The board is not consulted.
func (p *RandomPolicy) ChooseMove(board game.Board, legalMoves []int) (int, error) {
	if len(legalMoves) == 0 {
		return -1, ErrNoLegalMoves
	}
	return legalMoves[p.intN(len(legalMoves))], nil
}

func (p *RandomPolicy) intN(n int) int {
	if p.rng == nil {
		return rand.IntN(n)
	}
	// *rand.Rand is not safe for concurrent use.
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rng.IntN(n)
}
