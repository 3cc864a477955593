package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"codebattle/internal/user/model"
	"codebattle/internal/user/repository"
	appErr "codebattle/pkg/errors"
	"codebattle/pkg/utils/logger"

	"go.uber.org/zap"
)

const (
	defaultLeaderboardLimit = 10
	maxLeaderboardLimit     = 100
)

// StatsService maintains player win statistics and the leaderboard.
type StatsService struct {
	users       repository.UserRepository
	leaderboard repository.Leaderboard
}

// NewStatsService creates a stats service. leaderboard may be nil when Redis is disabled.
func NewStatsService(users repository.UserRepository, leaderboard repository.Leaderboard) (*StatsService, error) {
	if users == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	return &StatsService{users: users, leaderboard: leaderboard}, nil
}

// RecordWin credits userID with a win. Guests are skipped without touching storage.
func (s *StatsService) RecordWin(ctx context.Context, userID string) (*model.User, error) {
	userID = strings.TrimSpace(userID)
	if model.IsGuest(userID) {
		logger.Debug(ctx, "skip stats for guest winner")
		return nil, nil
	}

	user, err := s.users.RecordWin(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, appErr.New(appErr.UserNotFound).WithDetail("user_id", userID)
		}
		return nil, appErr.Wrapf(err, appErr.UserUpdateFailed, "record win failed")
	}

	if s.leaderboard != nil {
		if _, err := s.leaderboard.IncrWin(ctx, userID); err != nil {
			logger.Warn(ctx, "leaderboard increment failed", zap.String("user_id", userID), zap.Error(err))
		}
	}
	logger.Info(ctx, "win recorded",
		zap.String("user_id", userID),
		zap.Int64("wins", user.Wins),
		zap.String("rank", string(user.Rank)),
	)
	return user, nil
}

// GetStats returns the persisted statistics of a user.
func (s *StatsService) GetStats(ctx context.Context, userID string) (*model.User, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, appErr.ValidationError("id", "required")
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, appErr.New(appErr.UserNotFound)
		}
		return nil, appErr.Wrapf(err, appErr.DatabaseError, "get user failed")
	}
	user.Rank = model.RankFor(user.Wins)
	return user, nil
}

// Leaderboard returns the top players by wins. limit is clamped to [1, 100].
// When the player count cannot be read, Total falls back to the number of returned rows.
func (s *StatsService) Leaderboard(ctx context.Context, limit int) (*model.LeaderboardPage, error) {
	if s.leaderboard == nil {
		return nil, appErr.New(appErr.ServiceUnavailable).WithMessage("leaderboard is not configured")
	}
	if limit <= 0 {
		limit = defaultLeaderboardLimit
	}
	if limit > maxLeaderboardLimit {
		limit = maxLeaderboardLimit
	}
	entries, err := s.leaderboard.Top(ctx, limit)
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.LeaderboardFailed, "read leaderboard failed")
	}
	total, err := s.leaderboard.Size(ctx)
	if err != nil {
		logger.Warn(ctx, "leaderboard size failed", zap.Error(err))
		total = int64(len(entries))
	}
	return &model.LeaderboardPage{Items: entries, Total: total}, nil
}
