package controller

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"codebattle/internal/common/cache"
	"codebattle/internal/user/model"
	"codebattle/internal/user/repository"
	"codebattle/internal/user/service"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apiResponse struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type stubUsers struct{}

func (stubUsers) GetByID(_ context.Context, id string) (*model.User, error) {
	if id == "u1" {
		return &model.User{ID: "u1", Username: "alice", Wins: 10}, nil
	}
	return nil, repository.ErrUserNotFound
}

func (stubUsers) RecordWin(context.Context, string) (*model.User, error) {
	return nil, repository.ErrUserNotFound
}

func newTestRouter(t *testing.T) (*gin.Engine, *repository.RedisLeaderboard) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	mr := miniredis.RunT(t)
	redisCache, err := cache.NewRedisCacheWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	require.NoError(t, err)
	board := repository.NewRedisLeaderboard(redisCache, "")
	svc, err := service.NewStatsService(stubUsers{}, board)
	require.NoError(t, err)

	router := gin.New()
	NewUserController(svc).RegisterRoutes(router.Group("/api/users"))
	return router, board
}

func perform(router http.Handler, method, path string) (*httptest.ResponseRecorder, apiResponse) {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	var resp apiResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	return rec, resp
}

func TestLeaderboardRoute(t *testing.T) {
	router, board := newTestRouter(t)
	_, err := board.IncrWin(context.Background(), "alice")
	require.NoError(t, err)

	rec, resp := perform(router, http.MethodGet, "/api/users/leaderboard?limit=5")
	require.Equal(t, http.StatusOK, rec.Code)

	var data LeaderboardResponse
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	require.Len(t, data.Items, 1)
	assert.Equal(t, "alice", data.Items[0].UserID)
	assert.Equal(t, int64(1), data.Total)

	rec, _ = perform(router, http.MethodGet, "/api/users/leaderboard?limit=abc")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetStatsRoute(t *testing.T) {
	router, _ := newTestRouter(t)

	rec, resp := perform(router, http.MethodGet, "/api/users/u1")
	require.Equal(t, http.StatusOK, rec.Code)
	var user model.User
	require.NoError(t, json.Unmarshal(resp.Data, &user))
	assert.Equal(t, model.RankCoder, user.Rank)

	rec, _ = perform(router, http.MethodGet, "/api/users/nobody")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
