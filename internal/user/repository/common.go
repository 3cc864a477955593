package repository

import (
	"context"
	"errors"

	"codebattle/internal/user/model"
)

var ErrUserNotFound = errors.New("user not found")

// UserRepository persists player statistics.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*model.User, error)

	// RecordWin increments wins and matchesPlayed by one and stores the rank
	// derived from the incremented win count. Returns the updated user.
	RecordWin(ctx context.Context, id string) (*model.User, error)
}

// Leaderboard ranks players by accumulated wins.
type Leaderboard interface {
	IncrWin(ctx context.Context, userID string) (int64, error)
	Top(ctx context.Context, limit int) ([]model.LeaderboardEntry, error)

	// Size is the number of players with at least one recorded win.
	Size(ctx context.Context) (int64, error)
}
