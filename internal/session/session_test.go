package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"ctchen222/Tic-Tac-Toe-Solo/internal/bot"
	"ctchen222/Tic-Tac-Toe-Solo/internal/events"
	"ctchen222/Tic-Tac-Toe-Solo/internal/game"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// scriptedPolicy returns a policy that plays the given cells in order.
func scriptedPolicy(t *testing.T, moves ...int) *MockMovePolicy {
	t.Helper()
	ctrl := gomock.NewController(t)
	policy := NewMockMovePolicy(ctrl)
	calls := make([]any, 0, len(moves))
	for _, m := range moves {
		calls = append(calls, policy.EXPECT().ChooseMove(gomock.Any(), gomock.Any()).Return(m, nil))
	}
	gomock.InOrder(calls...)
	return policy
}

// playRound alternates human moves with opponent resolutions until the human moves run out or the round ends.
func playRound(t *testing.T, s *Session, human ...int) Snapshot {
	t.Helper()
	ctx := context.Background()
	var snap Snapshot
	for _, idx := range human {
		var err error
		snap, err = s.SubmitMove(ctx, idx)
		require.NoError(t, err)
		if snap.State == StateRoundOver {
			return snap
		}
		require.Equal(t, StateOpponentThinking, snap.State)

		snap, err = s.ResolveOpponentMove(ctx)
		require.NoError(t, err)
		if snap.State == StateRoundOver {
			return snap
		}
	}
	return snap
}

func TestNew(t *testing.T) {
	// When: a session is created
	s := New("s1", bot.NewRandomPolicy())

	// Then: it starts in round 1, human to move, empty board, zero score
	snap := s.Snapshot()
	assert.Equal(t, "s1", snap.SessionID)
	assert.Equal(t, uint64(1), snap.Round)
	assert.Equal(t, StateHumanTurn, snap.State)
	assert.Equal(t, game.PlayerX, snap.Turn)
	assert.Equal(t, game.InProgress, snap.Outcome)
	assert.Equal(t, [game.CellCount]game.PlayerMark{}, snap.Board)
	assert.Equal(t, Score{}, snap.Score)
	assert.Len(t, snap.LegalMoves, game.CellCount)
	assert.Nil(t, snap.WinningLine)
}

func TestSubmitMove_HandsTurnToOpponent(t *testing.T) {
	s := New("s1", scriptedPolicy(t))

	// When: the human plays the centre
	snap, err := s.SubmitMove(context.Background(), 4)

	// Then: the opponent has not moved yet
	require.NoError(t, err)
	assert.Equal(t, StateOpponentThinking, snap.State)
	assert.Equal(t, game.PlayerX, snap.Board[4])
	assert.Equal(t, game.PlayerO, snap.Turn)
	assert.Len(t, snap.LegalMoves, 8)
}

func TestSubmitMove_TwiceWithoutOpponent(t *testing.T) {
	s := New("s1", scriptedPolicy(t))
	ctx := context.Background()

	_, err := s.SubmitMove(ctx, 4)
	require.NoError(t, err)
	before := s.Board()

	// When: the human tries to move again before the opponent resolves
	_, err = s.SubmitMove(ctx, 0)

	// Then: the call is refused and nothing changes
	require.ErrorIs(t, err, ErrIllegalState)
	assert.Equal(t, before, s.Board())
	assert.Equal(t, StateOpponentThinking, s.State())
}

func TestSubmitMove_InvalidMoveLeavesStateAlone(t *testing.T) {
	tests := []struct {
		name  string
		index int
	}{
		{name: "negative", index: -1},
		{name: "past the board", index: 9},
		{name: "occupied", index: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New("s1", scriptedPolicy(t, 0))
			playRound(t, s, 4)
			before := s.Snapshot()

			_, err := s.SubmitMove(context.Background(), tt.index)

			require.ErrorIs(t, err, game.ErrInvalidMove)
			assert.Equal(t, before, s.Snapshot())
		})
	}
}

func TestScenario_OccupiedCellAfterOpponentReply(t *testing.T) {
	// X@4, O@0, X@0 -> InvalidMove, board unchanged
	s := New("s1", scriptedPolicy(t, 0))
	playRound(t, s, 4)
	before := s.Board()

	_, err := s.SubmitMove(context.Background(), 0)

	require.ErrorIs(t, err, game.ErrInvalidMove)
	assert.Equal(t, before, s.Board())
	assert.Equal(t, StateHumanTurn, s.State())
}

func TestScenario_HumanWinsTopRow(t *testing.T) {
	// X@0, O@3, X@1, O@4, X@2
	s := New("s1", scriptedPolicy(t, 3, 4))

	snap := playRound(t, s, 0, 1, 2)

	assert.Equal(t, StateRoundOver, snap.State)
	assert.Equal(t, game.Win(game.PlayerX), snap.Outcome)
	assert.Equal(t, []int{0, 1, 2}, snap.WinningLine)
	assert.Equal(t, Score{HumanWins: 1}, snap.Score)
	assert.Empty(t, snap.LegalMoves)

	line, ok := s.WinningLine()
	require.True(t, ok)
	assert.Equal(t, game.WinLine{0, 1, 2}, line)
}

func TestScenario_OpponentWins(t *testing.T) {
	// X@0, O@3, X@8, O@4, X@1, O@5
	s := New("s1", scriptedPolicy(t, 3, 4, 5))

	snap := playRound(t, s, 0, 8, 1)

	assert.Equal(t, StateRoundOver, snap.State)
	assert.Equal(t, game.Win(game.PlayerO), snap.Outcome)
	assert.Equal(t, []int{3, 4, 5}, snap.WinningLine)
	assert.Equal(t, Score{OpponentWins: 1}, snap.Score)
}

func TestScenario_DrawScoresNothing(t *testing.T) {
	// X@0, O@1, X@2, O@4, X@3, O@5, X@7, O@6, X@8
	s := New("s1", scriptedPolicy(t, 1, 4, 5, 6))

	snap := playRound(t, s, 0, 2, 3, 7, 8)

	assert.Equal(t, StateRoundOver, snap.State)
	assert.Equal(t, game.Draw, snap.Outcome)
	assert.Nil(t, snap.WinningLine)
	assert.Equal(t, Score{}, snap.Score)
}

func TestResolveOpponentMove_OutsideThinking(t *testing.T) {
	s := New("s1", scriptedPolicy(t))

	_, err := s.ResolveOpponentMove(context.Background())

	require.ErrorIs(t, err, ErrIllegalState)
	assert.Equal(t, StateHumanTurn, s.State())
}

func TestCommandsAfterRoundOver(t *testing.T) {
	s := New("s1", scriptedPolicy(t, 3, 4))
	playRound(t, s, 0, 1, 2)
	before := s.Snapshot()
	ctx := context.Background()

	_, err := s.SubmitMove(ctx, 8)
	require.ErrorIs(t, err, ErrIllegalState)

	_, err = s.ResolveOpponentMove(ctx)
	require.ErrorIs(t, err, ErrIllegalState)

	assert.Equal(t, before, s.Snapshot())
}

func TestStartNewRound(t *testing.T) {
	t.Run("Refused while the round is running", func(t *testing.T) {
		s := New("s1", scriptedPolicy(t))

		_, err := s.StartNewRound(context.Background())

		require.ErrorIs(t, err, ErrIllegalState)
		assert.Equal(t, uint64(1), s.Round())
	})

	t.Run("Clears the board and keeps the score", func(t *testing.T) {
		s := New("s1", scriptedPolicy(t, 3, 4))
		playRound(t, s, 0, 1, 2)
		scoreBefore := s.Score()

		snap, err := s.StartNewRound(context.Background())

		require.NoError(t, err)
		assert.Equal(t, StateHumanTurn, snap.State)
		assert.Equal(t, [game.CellCount]game.PlayerMark{}, snap.Board)
		assert.Equal(t, game.PlayerX, snap.Turn)
		assert.Equal(t, game.InProgress, snap.Outcome)
		assert.Equal(t, scoreBefore, snap.Score)
		assert.Equal(t, uint64(2), snap.Round)
	})
}

func TestScoreAccumulatesAcrossRounds(t *testing.T) {
	s := New("s1", scriptedPolicy(t, 3, 4, 3, 4, 5))
	ctx := context.Background()

	playRound(t, s, 0, 1, 2)
	_, err := s.StartNewRound(ctx)
	require.NoError(t, err)
	snap := playRound(t, s, 0, 8, 1)

	assert.Equal(t, Score{HumanWins: 1, OpponentWins: 1}, snap.Score)
	assert.Equal(t, uint64(2), snap.Round)
}

func TestResetScore(t *testing.T) {
	s := New("s1", scriptedPolicy(t, 3, 4))
	playRound(t, s, 0, 1, 2)

	snap := s.ResetScore(context.Background())

	assert.Equal(t, Score{}, snap.Score)
	assert.Equal(t, StateHumanTurn, snap.State)
	assert.Equal(t, [game.CellCount]game.PlayerMark{}, snap.Board)
	assert.Equal(t, uint64(2), snap.Round)
}

func TestAbandonRound(t *testing.T) {
	s := New("s1", scriptedPolicy(t, 3, 4))
	playRound(t, s, 0, 1)
	require.Equal(t, StateHumanTurn, s.State())
	scoreBefore := s.Score()

	snap := s.AbandonRound(context.Background())

	assert.Equal(t, StateHumanTurn, snap.State)
	assert.Equal(t, [game.CellCount]game.PlayerMark{}, snap.Board)
	assert.Equal(t, scoreBefore, snap.Score)
	assert.Equal(t, uint64(2), snap.Round)
}

func TestResolveOpponentMoveForRound_StaleRound(t *testing.T) {
	s := New("s1", scriptedPolicy(t))
	ctx := context.Background()

	// Given: the human moved in round 1 and the opponent is pending
	_, err := s.SubmitMove(ctx, 4)
	require.NoError(t, err)
	scheduledFor := s.Round()

	// When: the round is reset before the delayed resolution fires
	s.AbandonRound(ctx)
	_, err = s.SubmitMove(ctx, 0)
	require.NoError(t, err)
	before := s.Board()

	_, err = s.ResolveOpponentMoveForRound(ctx, scheduledFor)

	// Then: the stale resolution is refused and the new round is untouched
	require.ErrorIs(t, err, ErrStaleRound)
	require.ErrorIs(t, err, ErrIllegalState)
	assert.Equal(t, before, s.Board())
	assert.Equal(t, StateOpponentThinking, s.State())
}

func TestResolveOpponentMove_PolicyViolations(t *testing.T) {
	t.Run("Index outside the legal set", func(t *testing.T) {
		s := New("s1", scriptedPolicy(t, 4))
		_, err := s.SubmitMove(context.Background(), 4)
		require.NoError(t, err)
		before := s.Snapshot()

		_, err = s.ResolveOpponentMove(context.Background())

		require.ErrorIs(t, err, ErrPolicyViolation)
		assert.Equal(t, before, s.Snapshot())
	})

	t.Run("Policy reports no legal moves", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		policy := NewMockMovePolicy(ctrl)
		policy.EXPECT().ChooseMove(gomock.Any(), gomock.Any()).Return(-1, bot.ErrNoLegalMoves)

		s := New("s1", policy)
		_, err := s.SubmitMove(context.Background(), 4)
		require.NoError(t, err)

		_, err = s.ResolveOpponentMove(context.Background())

		require.ErrorIs(t, err, ErrPolicyViolation)
		require.ErrorIs(t, err, bot.ErrNoLegalMoves)
		assert.Equal(t, StateOpponentThinking, s.State())
	})
}

func TestResolveOpponentMove_PassesLegalMoves(t *testing.T) {
	ctrl := gomock.NewController(t)
	policy := NewMockMovePolicy(ctrl)
	policy.EXPECT().ChooseMove(gomock.Any(), gomock.Any()).DoAndReturn(func(board game.Board, legal []int) (int, error) {
		assert.Equal(t, []int{0, 1, 2, 3, 5, 6, 7, 8}, legal)
		assert.Equal(t, game.PlayerX, board.Cell(4))
		return legal[0], nil
	})

	s := New("s1", policy)
	_, err := s.SubmitMove(context.Background(), 4)
	require.NoError(t, err)

	snap, err := s.ResolveOpponentMove(context.Background())
	require.NoError(t, err)
	assert.Equal(t, game.PlayerO, snap.Board[0])
	assert.Equal(t, StateHumanTurn, snap.State)
}

func TestScheduleOpponentMove(t *testing.T) {
	t.Run("Resolves after the delay", func(t *testing.T) {
		s := New("s1", bot.NewRandomPolicy())
		_, err := s.SubmitMove(context.Background(), 4)
		require.NoError(t, err)

		done := make(chan Snapshot, 1)
		_, err = s.ScheduleOpponentMove(context.Background(), 10*time.Millisecond, func(snap Snapshot, err error) {
			assert.NoError(t, err)
			done <- snap
		})
		require.NoError(t, err)

		// The turn boundary stays visible until the timer fires.
		select {
		case snap := <-done:
			assert.Equal(t, StateHumanTurn, snap.State)
			assert.Len(t, snap.LegalMoves, 7)
		case <-time.After(2 * time.Second):
			t.Fatal("opponent move was never resolved")
		}
	})

	t.Run("Stop cancels a pending resolution", func(t *testing.T) {
		s := New("s1", scriptedPolicy(t))
		_, err := s.SubmitMove(context.Background(), 4)
		require.NoError(t, err)

		stop, err := s.ScheduleOpponentMove(context.Background(), time.Hour, nil)
		require.NoError(t, err)

		assert.True(t, stop())
		assert.Equal(t, StateOpponentThinking, s.State())
	})

	t.Run("Stale after a reset", func(t *testing.T) {
		s := New("s1", scriptedPolicy(t))
		_, err := s.SubmitMove(context.Background(), 4)
		require.NoError(t, err)

		done := make(chan error, 1)
		_, err = s.ScheduleOpponentMove(context.Background(), 100*time.Millisecond, func(_ Snapshot, err error) {
			done <- err
		})
		require.NoError(t, err)
		s.ResetScore(context.Background())

		select {
		case err := <-done:
			assert.ErrorIs(t, err, ErrStaleRound)
		case <-time.After(2 * time.Second):
			t.Fatal("scheduled resolution never ran")
		}
		assert.Equal(t, StateHumanTurn, s.State())
		assert.Equal(t, [game.CellCount]game.PlayerMark{}, s.Board().Cells())
	})

	t.Run("Refused when nothing is pending", func(t *testing.T) {
		s := New("s1", scriptedPolicy(t))

		_, err := s.ScheduleOpponentMove(context.Background(), time.Millisecond, nil)

		require.ErrorIs(t, err, ErrIllegalState)
	})
}

func TestPublishesEvents(t *testing.T) {
	ctrl := gomock.NewController(t)
	pub := NewMockPublisher(ctrl)

	var got []string
	pub.EXPECT().Publish(gomock.Any(), events.SessionChannel("s1"), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, e events.Event) error {
			got = append(got, e.Type)
			return nil
		}).AnyTimes()

	s := New("s1", scriptedPolicy(t, 3, 4), WithPublisher(pub))
	playRound(t, s, 0, 1, 2)
	_, err := s.StartNewRound(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{
		events.TypeMoveApplied, events.TypeMoveApplied, events.TypeMoveApplied,
		events.TypeMoveApplied, events.TypeMoveApplied, events.TypeRoundOver,
		events.TypeRoundStarted,
	}, got)
}

func TestPublishFailureDoesNotFailCommand(t *testing.T) {
	ctrl := gomock.NewController(t)
	pub := NewMockPublisher(ctrl)
	pub.EXPECT().Publish(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("redis down")).AnyTimes()

	s := New("s1", scriptedPolicy(t), WithPublisher(pub))

	snap, err := s.SubmitMove(context.Background(), 4)

	require.NoError(t, err)
	assert.Equal(t, StateOpponentThinking, snap.State)
}

func TestLastActiveTracksCommands(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s := New("s1", scriptedPolicy(t), WithClock(func() time.Time { return now }))
	assert.Equal(t, now, s.LastActive())

	now = now.Add(time.Minute)
	_, err := s.SubmitMove(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, now, s.LastActive())

	// A rejected command is not activity.
	later := now
	now = now.Add(time.Minute)
	_, _ = s.SubmitMove(context.Background(), 4)
	assert.Equal(t, later, s.LastActive())
}

func TestRandomSessionsKeepInvariants(t *testing.T) {
	s := New("s1", bot.NewSeededRandomPolicy(3, 5))
	ctx := context.Background()
	human := bot.NewSeededRandomPolicy(8, 13)

	var wins, losses int
	for round := 0; round < 200; round++ {
		for s.State() != StateRoundOver {
			board := s.Board()
			idx, err := human.ChooseMove(board, board.LegalMoves())
			require.NoError(t, err)
			snap, err := s.SubmitMove(ctx, idx)
			require.NoError(t, err)
			if snap.State == StateRoundOver {
				break
			}
			_, err = s.ResolveOpponentMove(ctx)
			require.NoError(t, err)
		}

		outcome := s.Outcome()
		require.True(t, outcome.IsTerminal())
		switch outcome.Winner {
		case game.PlayerX:
			wins++
		case game.PlayerO:
			losses++
		}
		require.Equal(t, Score{HumanWins: wins, OpponentWins: losses}, s.Score())

		_, err := s.StartNewRound(ctx)
		require.NoError(t, err)
	}
}

func TestPublishKeepsCommandOrderUnderSlowPublisher(t *testing.T) {
	ctrl := gomock.NewController(t)
	pub := NewMockPublisher(ctrl)

	var (
		mu      sync.Mutex
		got     []string
		entered = make(chan struct{})
		release = make(chan struct{})
	)
	pub.EXPECT().Publish(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, e events.Event) error {
			mu.Lock()
			got = append(got, e.Type)
			mu.Unlock()
			if e.Type == events.TypeMoveApplied {
				close(entered)
				<-release
			}
			return nil
		}).AnyTimes()

	s := New("s1", scriptedPolicy(t), WithPublisher(pub))

	// Given: the move's event is stuck in the publisher
	moved := make(chan struct{})
	go func() {
		defer close(moved)
		_, err := s.SubmitMove(context.Background(), 4)
		assert.NoError(t, err)
	}()
	<-entered

	// When: the round is abandoned meanwhile
	abandoned := make(chan Snapshot, 1)
	go func() { abandoned <- s.AbandonRound(context.Background()) }()

	// Then: the state changes at once, but its event waits for the earlier one
	assert.Eventually(t, func() bool { return s.Round() == 2 }, time.Second, 5*time.Millisecond)
	mu.Lock()
	assert.Equal(t, []string{events.TypeMoveApplied}, got)
	mu.Unlock()

	close(release)
	<-moved
	snap := <-abandoned
	assert.Equal(t, uint64(2), snap.Round)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{events.TypeMoveApplied, events.TypeRoundStarted}, got)
}

func TestWatchSignalsChanges(t *testing.T) {
	s := New("s1", scriptedPolicy(t, 0))
	changes, cancel := s.Watch()

	// A rejected command changes nothing.
	_, err := s.StartNewRound(context.Background())
	require.ErrorIs(t, err, ErrIllegalState)
	select {
	case <-changes:
		t.Fatal("signalled without a change")
	default:
	}

	_, err = s.SubmitMove(context.Background(), 4)
	require.NoError(t, err)
	_, err = s.ResolveOpponentMove(context.Background())
	require.NoError(t, err)

	// Signals coalesce into one pending wake-up.
	select {
	case <-changes:
	default:
		t.Fatal("no signal after a move")
	}
	select {
	case <-changes:
		t.Fatal("signals should coalesce")
	default:
	}

	cancel()
	s.AbandonRound(context.Background())
	select {
	case <-changes:
		t.Fatal("signalled after cancel")
	default:
	}
}
