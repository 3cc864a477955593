package service

import (
	"context"
	"errors"
	"io"
	"sync"

	"codebattle/internal/common/mq"
	"codebattle/internal/game/model"
	"codebattle/internal/game/repository"
	"codebattle/internal/judge/executor"
	problemmodel "codebattle/internal/problem/model"
	usermodel "codebattle/internal/user/model"
)

type memMatchRepo struct {
	mu      sync.Mutex
	matches map[string]*model.Match
	getErr  error
	creates int
	dupes   int
}

func newMemMatchRepo() *memMatchRepo {
	return &memMatchRepo{matches: make(map[string]*model.Match)}
}

func (r *memMatchRepo) Create(ctx context.Context, match *model.Match) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.creates++
	if r.dupes > 0 {
		r.dupes--
		return repository.ErrDuplicateRoom
	}
	if _, ok := r.matches[match.RoomID]; ok {
		return repository.ErrDuplicateRoom
	}
	cp := *match
	r.matches[match.RoomID] = &cp
	return nil
}

func (r *memMatchRepo) GetByRoomID(ctx context.Context, roomID string) (*model.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	m, ok := r.matches[roomID]
	if !ok {
		return nil, repository.ErrMatchNotFound
	}
	cp := *m
	return &cp, nil
}

func (r *memMatchRepo) AssignProblem(ctx context.Context, roomID, problemID string, testCases []problemmodel.TestCase) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.matches[roomID]
	if !ok || len(m.TestCases) > 0 {
		return false, nil
	}
	m.ProblemID = problemID
	m.TestCases = testCases
	return true, nil
}

func (r *memMatchRepo) Join(ctx context.Context, roomID, userID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.matches[roomID]
	if !ok || m.Status != model.StatusWaiting {
		return false, nil
	}
	m.Player2 = userID
	m.Status = model.StatusActive
	return true, nil
}

func (r *memMatchRepo) FinishIfOpen(ctx context.Context, roomID, winner string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.matches[roomID]
	if !ok || m.Status == model.StatusFinished {
		return false, nil
	}
	m.Status = model.StatusFinished
	m.Winner = winner
	return true, nil
}

func (r *memMatchRepo) put(m *model.Match) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.matches[m.RoomID] = m
}

func (r *memMatchRepo) get(roomID string) model.Match {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.matches[roomID]
}

// scriptedExecutor answers by stdin; unknown stdin echoes nothing.
type scriptedExecutor struct {
	mu      sync.Mutex
	outputs map[string]executor.Result
	err     error
	calls   []string
}

func (e *scriptedExecutor) Execute(ctx context.Context, req executor.Request) (executor.Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, req.Stdin)
	if e.err != nil {
		return executor.Result{}, e.err
	}
	return e.outputs[req.Stdin], nil
}

func (e *scriptedExecutor) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.calls)
}

type stubProblems struct {
	problem *problemmodel.Problem
	picks   int
}

func (p *stubProblems) Pick(ctx context.Context) *problemmodel.Problem {
	p.picks++
	return p.problem
}

func (p *stubProblems) Get(ctx context.Context, problemID string) (*problemmodel.Problem, error) {
	if p.problem != nil && p.problem.ProblemID == problemID {
		return p.problem, nil
	}
	return nil, errors.New("not found")
}

type countingStats struct {
	mu    sync.Mutex
	wins  map[string]int
	err   error
	calls int
}

func (s *countingStats) RecordWin(ctx context.Context, userID string) (*usermodel.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if usermodel.IsGuest(userID) {
		return nil, nil
	}
	if s.wins == nil {
		s.wins = make(map[string]int)
	}
	s.wins[userID]++
	return &usermodel.User{ID: userID, Wins: int64(s.wins[userID])}, nil
}

type recordingProducer struct {
	mu       sync.Mutex
	topics   []string
	messages []*mq.Message
}

func (p *recordingProducer) Publish(ctx context.Context, topic string, message *mq.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	p.messages = append(p.messages, message)
	return nil
}

func (p *recordingProducer) Close() error { return nil }

type memStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func newMemStorage() *memStorage {
	return &memStorage{objects: make(map[string][]byte), types: make(map[string]string)}
}

func (s *memStorage) PutObject(ctx context.Context, bucket, objectKey string, reader io.Reader, sizeBytes int64, contentType string) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[bucket+"/"+objectKey] = data
	s.types[bucket+"/"+objectKey] = contentType
	return nil
}
