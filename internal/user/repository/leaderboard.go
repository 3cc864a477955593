package repository

import (
	"context"

	"codebattle/internal/common/cache"
	"codebattle/internal/user/model"
)

const defaultLeaderboardKey = "leaderboard:wins"

// RedisLeaderboard keeps win counts in a sorted set.
type RedisLeaderboard struct {
	zset cache.ZSetOps
	key  string
}

func NewRedisLeaderboard(zset cache.ZSetOps, key string) *RedisLeaderboard {
	if key == "" {
		key = defaultLeaderboardKey
	}
	return &RedisLeaderboard{zset: zset, key: key}
}

func (l *RedisLeaderboard) IncrWin(ctx context.Context, userID string) (int64, error) {
	score, err := l.zset.ZIncrBy(ctx, l.key, 1, userID)
	if err != nil {
		return 0, err
	}
	return int64(score), nil
}

func (l *RedisLeaderboard) Size(ctx context.Context) (int64, error) {
	return l.zset.ZCard(ctx, l.key)
}

func (l *RedisLeaderboard) Top(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	if limit <= 0 {
		return []model.LeaderboardEntry{}, nil
	}
	members, err := l.zset.ZRevRangeWithScores(ctx, l.key, 0, int64(limit-1))
	if err != nil {
		return nil, err
	}
	entries := make([]model.LeaderboardEntry, 0, len(members))
	for i, m := range members {
		wins := int64(m.Score)
		entries = append(entries, model.LeaderboardEntry{
			Position: i + 1,
			UserID:   m.Member,
			Wins:     wins,
			Rank:     model.RankFor(wins),
		})
	}
	return entries, nil
}
