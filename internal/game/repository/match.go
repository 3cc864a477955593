package repository

import (
	"context"
	"errors"

	"codebattle/internal/game/model"
	problemmodel "codebattle/internal/problem/model"
)

var (
	ErrMatchNotFound = errors.New("match not found")
	ErrDuplicateRoom = errors.New("room id already exists")
)

// MatchRepository persists matches. Every state change is a single conditional
// write; a false result means the precondition did not hold, not a failure.
type MatchRepository interface {
	Create(ctx context.Context, match *model.Match) error
	GetByRoomID(ctx context.Context, roomID string) (*model.Match, error)

	// AssignProblem sets the problem only while the match has no test cases.
	AssignProblem(ctx context.Context, roomID, problemID string, testCases []problemmodel.TestCase) (bool, error)

	// Join moves a waiting match to active with player2 set.
	Join(ctx context.Context, roomID, userID string) (bool, error)

	// FinishIfOpen records winner and moves the match to finished unless it already is.
	// false means another submission won first.
	FinishIfOpen(ctx context.Context, roomID, winner string) (bool, error)
}
