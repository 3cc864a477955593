package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"codebattle/internal/common/cache"
	"codebattle/internal/common/mq"
	"codebattle/internal/common/storage"
	"codebattle/internal/common/task"
	"codebattle/internal/game/model"
	"codebattle/internal/game/repository"
	"codebattle/internal/judge/executor"
	problemmodel "codebattle/internal/problem/model"
	usermodel "codebattle/internal/user/model"
	appErr "codebattle/pkg/errors"
	"codebattle/pkg/utils/contextkey"
	"codebattle/pkg/utils/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	roomCodeLength     = 6
	maxCreateAttempts  = 3
	defaultEventTopic  = "battle.match.finished"
	defaultArchiveRoot = "submissions"
)

// ProblemPicker supplies problems for rooms.
type ProblemPicker interface {
	Pick(ctx context.Context) *problemmodel.Problem
	Get(ctx context.Context, problemID string) (*problemmodel.Problem, error)
}

// WinRecorder credits a winner's statistics.
type WinRecorder interface {
	RecordWin(ctx context.Context, userID string) (*usermodel.User, error)
}

// RateLimitConfig caps run/submit calls per room and player in a fixed window.
type RateLimitConfig struct {
	Max    int           `yaml:"max"`
	Window time.Duration `yaml:"window"`
}

// TimeoutConfig holds timeout settings for external calls.
type TimeoutConfig struct {
	DB      time.Duration `yaml:"db"`
	Cache   time.Duration `yaml:"cache"`
	MQ      time.Duration `yaml:"mq"`
	Storage time.Duration `yaml:"storage"`
}

// Config holds game service dependencies and settings.
// Matches, Sessions and Executor are required; the rest are optional.
type Config struct {
	Matches  repository.MatchRepository
	Sessions repository.SessionCache
	Problems ProblemPicker
	Executor executor.Executor
	Stats    WinRecorder
	Tasks    *task.Runner

	Events        mq.Producer
	EventTopic    string
	Archive       storage.ObjectStorage
	ArchiveBucket string
	ArchivePrefix string
	RateCache     cache.BasicOps

	RateLimit    RateLimitConfig
	MaxCodeBytes int
	Timeouts     TimeoutConfig
}

// GameService orchestrates rooms, runs and ranked submissions.
type GameService struct {
	matches  repository.MatchRepository
	sessions repository.SessionCache
	problems ProblemPicker
	executor executor.Executor
	stats    WinRecorder
	tasks    *task.Runner

	events        mq.Producer
	eventTopic    string
	archive       storage.ObjectStorage
	archiveBucket string
	archivePrefix string
	rateCache     cache.BasicOps

	rateLimit    RateLimitConfig
	maxCodeBytes int
	timeouts     TimeoutConfig

	newRoomCode func() string
	now         func() time.Time
}

// CreateRoomOutput is the result of CreateRoom.
type CreateRoomOutput struct {
	RoomID string
	Match  *model.Match
}

// StartOutput is the result of StartGame.
type StartOutput struct {
	RoomID  string
	Problem problemmodel.PublicProblem
}

// RunInput describes a public run request.
type RunInput struct {
	RoomID     string
	UserID     string
	SourceCode string
	Language   string
	ClientIP   string
}

// SubmitInput describes a ranked submission.
type SubmitInput struct {
	RoomID     string
	UserID     string
	SourceCode string
	Language   string
	ClientIP   string
}

func NewGameService(cfg Config) (*GameService, error) {
	if cfg.Matches == nil {
		return nil, fmt.Errorf("match repository is required")
	}
	if cfg.Sessions == nil {
		return nil, fmt.Errorf("session cache is required")
	}
	if cfg.Executor == nil {
		return nil, fmt.Errorf("executor is required")
	}
	if cfg.EventTopic == "" {
		cfg.EventTopic = defaultEventTopic
	}
	if cfg.ArchivePrefix == "" {
		cfg.ArchivePrefix = defaultArchiveRoot
	}
	if cfg.Archive != nil && cfg.ArchiveBucket == "" {
		return nil, fmt.Errorf("archive bucket is required")
	}
	return &GameService{
		matches:       cfg.Matches,
		sessions:      cfg.Sessions,
		problems:      cfg.Problems,
		executor:      cfg.Executor,
		stats:         cfg.Stats,
		tasks:         cfg.Tasks,
		events:        cfg.Events,
		eventTopic:    cfg.EventTopic,
		archive:       cfg.Archive,
		archiveBucket: cfg.ArchiveBucket,
		archivePrefix: cfg.ArchivePrefix,
		rateCache:     cfg.RateCache,
		rateLimit:     cfg.RateLimit,
		maxCodeBytes:  cfg.MaxCodeBytes,
		timeouts:      cfg.Timeouts,
		newRoomCode:   newRoomCode,
		now:           time.Now,
	}, nil
}

// CreateRoom opens a waiting room owned by userID, or by the guest player when userID is empty.
func (s *GameService) CreateRoom(ctx context.Context, userID string) (*CreateRoomOutput, error) {
	player1 := strings.TrimSpace(userID)
	if player1 == "" {
		player1 = model.GuestPlayer
	}

	var lastErr error
	for attempt := 1; attempt <= maxCreateAttempts; attempt++ {
		match := &model.Match{
			RoomID:    s.newRoomCode(),
			Player1:   player1,
			Status:    model.StatusWaiting,
			CreatedAt: s.now(),
		}
		ctxDB := withTimeout(ctx, s.timeouts.DB)
		err := s.matches.Create(ctxDB.ctx, match)
		ctxDB.cancel()
		if err == nil {
			logger.Info(ctx, "room created", zap.String("room_id", match.RoomID), zap.String("player1", player1))
			return &CreateRoomOutput{RoomID: match.RoomID, Match: match}, nil
		}
		lastErr = err
		if !errors.Is(err, repository.ErrDuplicateRoom) {
			break
		}
		logger.Warn(ctx, "room code collision, retrying", zap.String("room_id", match.RoomID), zap.Int("attempt", attempt))
	}
	return nil, appErr.Wrapf(lastErr, appErr.RoomCreateFailed, "create room failed")
}

// JoinRoom seats userID as the second player and activates the match.
func (s *GameService) JoinRoom(ctx context.Context, roomID, userID string) (*model.Match, error) {
	roomID = strings.TrimSpace(roomID)
	player2 := strings.TrimSpace(userID)
	if player2 == "" {
		player2 = model.GuestPlayer
	}
	if _, err := s.loadMatch(ctx, roomID); err != nil {
		return nil, err
	}

	ctxDB := withTimeout(ctx, s.timeouts.DB)
	joined, err := s.matches.Join(ctxDB.ctx, roomID, player2)
	ctxDB.cancel()
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.DatabaseError, "join room failed")
	}

	match, err := s.loadMatch(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !joined {
		return nil, appErr.New(appErr.RoomNotJoinable).WithDetail("status", string(match.Status))
	}
	logger.Info(ctx, "room joined", zap.String("room_id", roomID), zap.String("player2", player2))
	return match, nil
}

// StartGame makes sure the room has a problem and returns its public view.
// The first caller assigns the problem; test cases never change afterwards.
func (s *GameService) StartGame(ctx context.Context, roomID string) (*StartOutput, error) {
	roomID = strings.TrimSpace(roomID)
	match, err := s.loadMatch(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if s.problems == nil {
		return nil, appErr.New(appErr.ServiceUnavailable).WithMessage("problem source is not configured")
	}

	if len(match.TestCases) > 0 {
		return &StartOutput{RoomID: roomID, Problem: s.publicProblem(ctx, match)}, nil
	}

	problem := s.problems.Pick(ctx)
	ctxDB := withTimeout(ctx, s.timeouts.DB)
	assigned, err := s.matches.AssignProblem(ctxDB.ctx, roomID, problem.ProblemID, problem.TestCases)
	ctxDB.cancel()
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.DatabaseError, "assign problem failed")
	}
	s.sessions.Invalidate(roomID)

	if !assigned {
		match, err = s.loadMatch(ctx, roomID)
		if err != nil {
			return nil, err
		}
		return &StartOutput{RoomID: roomID, Problem: s.publicProblem(ctx, match)}, nil
	}
	logger.Info(ctx, "problem assigned",
		zap.String("room_id", roomID),
		zap.String("problem_id", problem.ProblemID),
		zap.Int("test_cases", len(problem.TestCases)),
	)
	return &StartOutput{RoomID: roomID, Problem: problem.Public()}, nil
}

// ResolveSession returns the room's problem and test cases, consulting the
// session cache before the match repository.
func (s *GameService) ResolveSession(ctx context.Context, roomID string) (model.SessionData, error) {
	roomID = strings.TrimSpace(roomID)
	if roomID == "" {
		return model.SessionData{}, appErr.New(appErr.RoomNotFound)
	}
	if data, ok := s.sessions.Get(roomID); ok {
		return data, nil
	}

	match, err := s.loadMatch(ctx, roomID)
	if err != nil {
		return model.SessionData{}, err
	}
	if len(match.TestCases) == 0 {
		return model.SessionData{}, appErr.New(appErr.SessionCorrupted)
	}
	data := model.SessionData{ProblemID: match.ProblemID, TestCases: match.TestCases}
	s.sessions.Put(roomID, data)
	return data, nil
}

// Run executes the first test case only. It never scores and never reveals other cases.
func (s *GameService) Run(ctx context.Context, input RunInput) (*model.RunResult, error) {
	input.RoomID = strings.TrimSpace(input.RoomID)
	ctx = context.WithValue(ctx, contextkey.RoomID, input.RoomID)
	if err := s.validateCode(input.SourceCode); err != nil {
		return nil, err
	}
	if err := s.checkRateLimit(ctx, input.RoomID, input.UserID, input.ClientIP); err != nil {
		return nil, err
	}

	session, err := s.ResolveSession(ctx, input.RoomID)
	if err != nil {
		if appErr.Is(err, appErr.RoomNotFound) || appErr.Is(err, appErr.SessionCorrupted) {
			return nil, appErr.New(appErr.TestCaseNotFound)
		}
		return nil, err
	}

	tc := session.TestCases[0]
	res, err := s.execute(ctx, input.SourceCode, input.Language, tc.Input)
	if err != nil {
		return nil, err
	}
	if res.Failed() {
		return &model.RunResult{Outcome: model.OutcomeExecutionError, Error: res.Error}, nil
	}
	verdict := judge(tc, res.Stdout)
	return &model.RunResult{Outcome: model.OutcomeEvaluated, Result: &verdict}, nil
}

// Submit runs every test case in stored order and decides the win.
// An execution fault aborts the loop and discards results gathered so far.
func (s *GameService) Submit(ctx context.Context, input SubmitInput) (*model.SubmitResult, error) {
	input.RoomID = strings.TrimSpace(input.RoomID)
	input.UserID = strings.TrimSpace(input.UserID)
	ctx = context.WithValue(ctx, contextkey.RoomID, input.RoomID)
	if err := s.validateCode(input.SourceCode); err != nil {
		return nil, err
	}
	if err := s.checkRateLimit(ctx, input.RoomID, input.UserID, input.ClientIP); err != nil {
		return nil, err
	}

	session, err := s.ResolveSession(ctx, input.RoomID)
	if err != nil {
		return nil, err
	}

	results := make([]model.CaseResult, 0, len(session.TestCases))
	allPassed := true
	for i, tc := range session.TestCases {
		res, err := s.execute(ctx, input.SourceCode, input.Language, tc.Input)
		if err != nil {
			return nil, err
		}
		if res.Failed() {
			logger.Info(ctx, "submission aborted by execution fault", zap.Int("test_case", i+1))
			out := &model.SubmitResult{Outcome: model.OutcomeExecutionError, Results: []model.CaseResult{}, Error: res.Error}
			s.archiveSubmission(ctx, input, session.ProblemID, out)
			return out, nil
		}
		verdict := judge(tc, res.Stdout)
		verdict.ID = i + 1
		if !verdict.Passed {
			allPassed = false
		}
		results = append(results, verdict)
	}

	out := &model.SubmitResult{Outcome: model.OutcomeEvaluated, Results: results}
	if allPassed {
		won, err := s.finish(ctx, input.RoomID, winnerOf(input.UserID))
		if err != nil {
			return nil, err
		}
		out.IsWin = won
		if won {
			s.onWin(ctx, input, session.ProblemID)
		}
	}
	s.archiveSubmission(ctx, input, session.ProblemID, out)
	return out, nil
}

func (s *GameService) finish(ctx context.Context, roomID, winner string) (bool, error) {
	ctxDB := withTimeout(ctx, s.timeouts.DB)
	defer ctxDB.cancel()
	won, err := s.matches.FinishIfOpen(ctxDB.ctx, roomID, winner)
	if err != nil {
		return false, appErr.Wrapf(err, appErr.SubmissionFailed, "finish match failed")
	}
	if !won {
		logger.Info(ctx, "full pass after match already finished", zap.String("user_id", winner))
	}
	return won, nil
}

func (s *GameService) execute(ctx context.Context, source, language, stdin string) (executor.Result, error) {
	res, err := s.executor.Execute(ctx, executor.Request{Source: source, Language: language, Stdin: stdin})
	if err != nil {
		if errors.Is(err, executor.ErrNotConfigured) {
			return executor.Result{}, appErr.ConfigError(appErr.ExecutorNotConfigured, "JDOODLE_CLIENT_ID/JDOODLE_CLIENT_SECRET")
		}
		return executor.Result{}, appErr.Wrapf(err, appErr.ExecutionFailed, "execute code failed")
	}
	return res, nil
}

func (s *GameService) loadMatch(ctx context.Context, roomID string) (*model.Match, error) {
	if roomID == "" {
		return nil, appErr.New(appErr.RoomNotFound)
	}
	ctxDB := withTimeout(ctx, s.timeouts.DB)
	defer ctxDB.cancel()
	match, err := s.matches.GetByRoomID(ctxDB.ctx, roomID)
	if err != nil {
		if errors.Is(err, repository.ErrMatchNotFound) {
			return nil, appErr.New(appErr.RoomNotFound)
		}
		return nil, appErr.Wrapf(err, appErr.DatabaseError, "load match failed")
	}
	return match, nil
}

func (s *GameService) publicProblem(ctx context.Context, match *model.Match) problemmodel.PublicProblem {
	if p, err := s.problems.Get(ctx, match.ProblemID); err == nil {
		return p.Public()
	}
	return problemmodel.PublicProblem{ProblemID: match.ProblemID, SampleCount: len(match.TestCases)}
}

func (s *GameService) validateCode(source string) error {
	if strings.TrimSpace(source) == "" {
		return appErr.ValidationError("sourceCode", "required")
	}
	if s.maxCodeBytes > 0 && len(source) > s.maxCodeBytes {
		return appErr.New(appErr.CodeTooLarge)
	}
	return nil
}

// judge compares trimmed stdout with the trimmed expected output.
func judge(tc problemmodel.TestCase, stdout string) model.CaseResult {
	actual := strings.TrimSpace(stdout)
	expected := strings.TrimSpace(tc.ExpectedOutput)
	return model.CaseResult{
		Passed:   actual == expected,
		Input:    tc.Input,
		Actual:   actual,
		Expected: expected,
	}
}

func winnerOf(userID string) string {
	if userID == "" {
		return model.GuestPlayer
	}
	return userID
}

func newRoomCode() string {
	return strings.ToUpper(uuid.NewString()[:roomCodeLength])
}

type timeoutCtx struct {
	ctx    context.Context
	cancel context.CancelFunc
}

func withTimeout(ctx context.Context, timeout time.Duration) timeoutCtx {
	if timeout <= 0 {
		return timeoutCtx{ctx: ctx, cancel: func() {}}
	}
	ctxTimeout, cancel := context.WithTimeout(ctx, timeout)
	return timeoutCtx{ctx: ctxTimeout, cancel: cancel}
}
