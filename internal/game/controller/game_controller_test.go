package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"codebattle/internal/game/model"
	"codebattle/internal/game/repository"
	"codebattle/internal/game/service"
	"codebattle/internal/judge/executor"
	problemmodel "codebattle/internal/problem/model"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apiResponse struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type memMatches struct {
	mu      sync.Mutex
	matches map[string]*model.Match
}

func (r *memMatches) Create(_ context.Context, match *model.Match) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *match
	r.matches[match.RoomID] = &cp
	return nil
}

func (r *memMatches) GetByRoomID(_ context.Context, roomID string) (*model.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.matches[roomID]
	if !ok {
		return nil, repository.ErrMatchNotFound
	}
	cp := *m
	return &cp, nil
}

func (r *memMatches) AssignProblem(_ context.Context, roomID, problemID string, cases []problemmodel.TestCase) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.matches[roomID]
	if !ok || len(m.TestCases) > 0 {
		return false, nil
	}
	m.ProblemID, m.TestCases = problemID, cases
	return true, nil
}

func (r *memMatches) Join(_ context.Context, roomID, userID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.matches[roomID]
	if !ok || m.Status != model.StatusWaiting {
		return false, nil
	}
	m.Player2, m.Status = userID, model.StatusActive
	return true, nil
}

func (r *memMatches) FinishIfOpen(_ context.Context, roomID, winner string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.matches[roomID]
	if !ok || m.Status == model.StatusFinished {
		return false, nil
	}
	m.Winner, m.Status = winner, model.StatusFinished
	return true, nil
}

type echoExecutor map[string]executor.Result

func (e echoExecutor) Execute(_ context.Context, req executor.Request) (executor.Result, error) {
	return e[req.Stdin], nil
}

type fallbackProblems struct{}

func (fallbackProblems) Pick(context.Context) *problemmodel.Problem { return problemmodel.Fallback() }

func (fallbackProblems) Get(context.Context, string) (*problemmodel.Problem, error) {
	return problemmodel.Fallback(), nil
}

func newTestRouter(t *testing.T, exec echoExecutor) (*gin.Engine, *memMatches) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	matches := &memMatches{matches: make(map[string]*model.Match)}
	svc, err := service.NewGameService(service.Config{
		Matches:  matches,
		Sessions: repository.NewLRUSessionCache(8, time.Minute),
		Problems: fallbackProblems{},
		Executor: exec,
	})
	require.NoError(t, err)

	router := gin.New()
	NewGameController(svc).RegisterRoutes(router.Group("/api/game"))
	return router, matches
}

func post(router http.Handler, path string, body interface{}) (*httptest.ResponseRecorder, apiResponse) {
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	var resp apiResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	return rec, resp
}

func createStartedRoom(t *testing.T, router http.Handler) string {
	t.Helper()
	rec, resp := post(router, "/api/game/create", CreateRoomRequest{UserID: "alice"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created CreateRoomResponse
	require.NoError(t, json.Unmarshal(resp.Data, &created))

	rec, _ = post(router, "/api/game/start", StartGameRequest{RoomID: created.RoomID})
	require.Equal(t, http.StatusOK, rec.Code)
	return created.RoomID
}

func TestCreateAndStart(t *testing.T) {
	router, matches := newTestRouter(t, echoExecutor{})

	rec, resp := post(router, "/api/game/create", CreateRoomRequest{UserID: "alice"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created CreateRoomResponse
	require.NoError(t, json.Unmarshal(resp.Data, &created))
	assert.True(t, created.Success)
	assert.Len(t, created.RoomID, 6)
	assert.Equal(t, model.StatusWaiting, created.Match.Status)
	assert.NotContains(t, string(resp.Data), "testCases")

	rec, resp = post(router, "/api/game/start", StartGameRequest{RoomID: created.RoomID})
	require.Equal(t, http.StatusOK, rec.Code)
	var started StartGameResponse
	require.NoError(t, json.Unmarshal(resp.Data, &started))
	assert.Equal(t, "Start game via socket", started.Message)
	assert.Equal(t, problemmodel.FallbackProblemID, started.Problem.ProblemID)
	assert.NotContains(t, string(resp.Data), "expectedOutput")

	stored, err := matches.GetByRoomID(context.Background(), created.RoomID)
	require.NoError(t, err)
	assert.Len(t, stored.TestCases, 3)
}

func TestCreateWithoutBodyIsGuest(t *testing.T) {
	router, _ := newTestRouter(t, echoExecutor{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/game/create", nil))
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"player1":"guest"`)
}

func TestJoin(t *testing.T) {
	router, _ := newTestRouter(t, echoExecutor{})
	roomID := createStartedRoom(t, router)

	rec, resp := post(router, "/api/game/join", JoinRoomRequest{RoomID: roomID, UserID: "bob"})
	require.Equal(t, http.StatusOK, rec.Code)
	var joined JoinRoomResponse
	require.NoError(t, json.Unmarshal(resp.Data, &joined))
	assert.Equal(t, model.StatusActive, joined.Match.Status)

	rec, _ = post(router, "/api/game/join", JoinRoomRequest{RoomID: roomID, UserID: "carol"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, _ = post(router, "/api/game/join", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRun(t *testing.T) {
	router, _ := newTestRouter(t, echoExecutor{"2 3": {Stdout: "5\n"}})
	roomID := createStartedRoom(t, router)

	rec, resp := post(router, "/api/game/run", RunRequest{RoomID: roomID, SourceCode: "print(5)", Language: "python"})
	require.Equal(t, http.StatusOK, rec.Code)
	var out RunResponse
	require.NoError(t, json.Unmarshal(resp.Data, &out))
	assert.True(t, out.Success)
	require.NotNil(t, out.Result)
	assert.Equal(t, model.CaseResult{Passed: true, Input: "2 3", Actual: "5", Expected: "5"}, *out.Result)
}

func TestRunExecutionErrorIsOK(t *testing.T) {
	router, _ := newTestRouter(t, echoExecutor{"2 3": {Error: "SyntaxError: invalid syntax"}})
	roomID := createStartedRoom(t, router)

	rec, resp := post(router, "/api/game/run", RunRequest{RoomID: roomID, SourceCode: "print(", Language: "python"})
	require.Equal(t, http.StatusOK, rec.Code)
	var out RunResponse
	require.NoError(t, json.Unmarshal(resp.Data, &out))
	assert.False(t, out.Success)
	assert.Equal(t, "SyntaxError: invalid syntax", out.Error)
}

func TestRunUnknownRoom(t *testing.T) {
	router, _ := newTestRouter(t, echoExecutor{})

	rec, resp := post(router, "/api/game/run", RunRequest{RoomID: "NOPE00", SourceCode: "x"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "No test cases found for this room", resp.Message)
}

func TestSubmitWinThenLate(t *testing.T) {
	router, _ := newTestRouter(t, echoExecutor{
		"2 3":   {Stdout: "5"},
		"10 20": {Stdout: "30"},
		"-4 9":  {Stdout: "5"},
	})
	roomID := createStartedRoom(t, router)

	rec, resp := post(router, "/api/game/submit", SubmitRequest{RoomID: roomID, UserID: "alice", SourceCode: "code"})
	require.Equal(t, http.StatusOK, rec.Code)
	var first SubmitResponse
	require.NoError(t, json.Unmarshal(resp.Data, &first))
	assert.True(t, first.Success)
	assert.True(t, first.IsWin)
	require.Len(t, first.Results, 3)
	assert.Equal(t, 1, first.Results[0].ID)
	assert.Equal(t, 3, first.Results[2].ID)

	_, resp = post(router, "/api/game/submit", SubmitRequest{RoomID: roomID, UserID: "bob", SourceCode: "code"})
	var late SubmitResponse
	require.NoError(t, json.Unmarshal(resp.Data, &late))
	assert.True(t, late.Success)
	assert.False(t, late.IsWin)
}

func TestSubmitExecutionFault(t *testing.T) {
	router, _ := newTestRouter(t, echoExecutor{
		"2 3":   {Stdout: "5"},
		"10 20": {Error: "Compilation failed"},
	})
	roomID := createStartedRoom(t, router)

	rec, _ := post(router, "/api/game/submit", SubmitRequest{RoomID: roomID, UserID: "alice", SourceCode: "code"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `"data":{"success":false,"results":[],"isWin":false,"error":"Compilation failed"}`))
}

func TestSubmitSessionErrors(t *testing.T) {
	router, matches := newTestRouter(t, echoExecutor{})
	require.NoError(t, matches.Create(context.Background(), &model.Match{RoomID: "EMPTY0", Status: model.StatusWaiting}))

	rec, resp := post(router, "/api/game/submit", SubmitRequest{RoomID: "NOPE00", SourceCode: "code"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Game session not found", resp.Message)

	rec, resp = post(router, "/api/game/submit", SubmitRequest{RoomID: "EMPTY0", SourceCode: "code"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Game corrupted (No test cases)", resp.Message)
}
