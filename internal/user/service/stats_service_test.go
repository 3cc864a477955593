package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"codebattle/internal/user/model"
	"codebattle/internal/user/repository"
	appErr "codebattle/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*model.User
	calls int
	err   error
}

func newFakeUserRepo(users ...*model.User) *fakeUserRepo {
	repo := &fakeUserRepo{users: make(map[string]*model.User)}
	for _, u := range users {
		repo.users[u.ID] = u
	}
	return repo
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserRepo) RecordWin(_ context.Context, id string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	u.Wins++
	u.MatchesPlayed++
	u.Rank = model.RankFor(u.Wins)
	cp := *u
	return &cp, nil
}

type fakeLeaderboard struct {
	scores  map[string]int64
	err     error
	sizeErr error
}

func (f *fakeLeaderboard) Size(_ context.Context) (int64, error) {
	if f.sizeErr != nil {
		return 0, f.sizeErr
	}
	return int64(len(f.scores)), nil
}

func (f *fakeLeaderboard) IncrWin(_ context.Context, userID string) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.scores[userID]++
	return f.scores[userID], nil
}

func (f *fakeLeaderboard) Top(_ context.Context, limit int) ([]model.LeaderboardEntry, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]model.LeaderboardEntry, 0, limit)
	for id, wins := range f.scores {
		if len(out) == limit {
			break
		}
		out = append(out, model.LeaderboardEntry{Position: len(out) + 1, UserID: id, Wins: wins, Rank: model.RankFor(wins)})
	}
	return out, nil
}

func TestRecordWinPromotesOnPostIncrementWins(t *testing.T) {
	repo := newFakeUserRepo(&model.User{ID: "u1", Wins: 2, MatchesPlayed: 4, Rank: model.RankNovice})
	board := &fakeLeaderboard{scores: map[string]int64{}}
	svc, err := NewStatsService(repo, board)
	require.NoError(t, err)

	user, err := svc.RecordWin(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), user.Wins)
	assert.Equal(t, int64(5), user.MatchesPlayed)
	assert.Equal(t, model.RankApprentice, user.Rank)
	assert.Equal(t, int64(1), board.scores["u1"])
}

func TestRecordWinSkipsGuests(t *testing.T) {
	repo := newFakeUserRepo()
	svc, err := NewStatsService(repo, nil)
	require.NoError(t, err)

	for _, id := range []string{"", "guest", "guest_user"} {
		user, err := svc.RecordWin(context.Background(), id)
		assert.NoError(t, err)
		assert.Nil(t, user)
	}
	assert.Zero(t, repo.calls)
}

func TestRecordWinErrors(t *testing.T) {
	svc, err := NewStatsService(newFakeUserRepo(), nil)
	require.NoError(t, err)
	_, err = svc.RecordWin(context.Background(), "missing")
	assert.Equal(t, appErr.UserNotFound, appErr.GetCode(err))

	broken := newFakeUserRepo(&model.User{ID: "u1"})
	broken.err = errors.New("deadlock")
	svc, err = NewStatsService(broken, nil)
	require.NoError(t, err)
	_, err = svc.RecordWin(context.Background(), "u1")
	assert.Equal(t, appErr.UserUpdateFailed, appErr.GetCode(err))
}

func TestRecordWinIgnoresLeaderboardFailure(t *testing.T) {
	repo := newFakeUserRepo(&model.User{ID: "u1"})
	svc, err := NewStatsService(repo, &fakeLeaderboard{err: errors.New("redis down")})
	require.NoError(t, err)

	user, err := svc.RecordWin(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), user.Wins)
}

func TestLeaderboard(t *testing.T) {
	svc, err := NewStatsService(newFakeUserRepo(), nil)
	require.NoError(t, err)
	_, err = svc.Leaderboard(context.Background(), 5)
	assert.Equal(t, appErr.ServiceUnavailable, appErr.GetCode(err))

	board := &fakeLeaderboard{scores: map[string]int64{"a": 51, "b": 2, "c": 7}}
	svc, err = NewStatsService(newFakeUserRepo(), board)
	require.NoError(t, err)
	page, err := svc.Leaderboard(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, int64(3), page.Total)

	board.scores = map[string]int64{"a": 51}
	page, err = svc.Leaderboard(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, model.RankGrandmaster, page.Items[0].Rank)

	board.sizeErr = errors.New("zcard failed")
	page, err = svc.Leaderboard(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)

	board.err = errors.New("boom")
	_, err = svc.Leaderboard(context.Background(), 500)
	assert.Equal(t, appErr.LeaderboardFailed, appErr.GetCode(err))
}

func TestGetStats(t *testing.T) {
	svc, err := NewStatsService(newFakeUserRepo(&model.User{ID: "u1", Wins: 26, Rank: model.RankCoder}), nil)
	require.NoError(t, err)

	user, err := svc.GetStats(context.Background(), " u1 ")
	require.NoError(t, err)
	assert.Equal(t, model.RankHacker, user.Rank)

	_, err = svc.GetStats(context.Background(), "nope")
	assert.Equal(t, appErr.UserNotFound, appErr.GetCode(err))
}
