package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"codebattle/internal/problem/model"
	"codebattle/internal/problem/repository"
	"codebattle/internal/problem/source"
	pkgerrors "codebattle/pkg/errors"
	"codebattle/pkg/utils/logger"

	"go.uber.org/zap"
)

// Config wires the problem service. Repo and Fetcher are optional.
type Config struct {
	Repo    repository.ProblemRepository
	Fetcher source.Fetcher
	// PoolFirst prefers the persisted pool over a fresh scrape.
	PoolFirst bool
	Timeout   time.Duration
}

// ProblemService picks problems for new rooms.
type ProblemService struct {
	repo      repository.ProblemRepository
	fetcher   source.Fetcher
	poolFirst bool
	timeout   time.Duration
}

func NewProblemService(cfg Config) *ProblemService {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 8 * time.Second
	}
	return &ProblemService{
		repo:      cfg.Repo,
		fetcher:   cfg.Fetcher,
		poolFirst: cfg.PoolFirst,
		timeout:   cfg.Timeout,
	}
}

// Pick returns a problem with at least one test case. It never fails:
// the persisted pool and the external judge are tried first, then the built-in fallback.
func (s *ProblemService) Pick(ctx context.Context) *model.Problem {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	sources := []func(context.Context) (*model.Problem, error){s.fromScrape, s.fromPool}
	if s.poolFirst {
		sources[0], sources[1] = sources[1], sources[0]
	}
	for _, pick := range sources {
		p, err := pick(ctx)
		if err != nil {
			logger.Warn(ctx, "problem source unavailable", zap.Error(err))
			continue
		}
		if p != nil && len(p.TestCases) > 0 {
			return p
		}
	}
	logger.Info(ctx, "using fallback problem")
	return model.Fallback()
}

// Get returns a stored problem by id.
func (s *ProblemService) Get(ctx context.Context, problemID string) (*model.Problem, error) {
	problemID = strings.TrimSpace(problemID)
	if problemID == "" {
		return nil, pkgerrors.ValidationError("problem_id", "required")
	}
	if problemID == model.FallbackProblemID {
		return model.Fallback(), nil
	}
	if s.repo == nil {
		return nil, pkgerrors.New(pkgerrors.ProblemNotFound)
	}
	p, err := s.repo.GetByID(ctx, problemID)
	if err != nil {
		if errors.Is(err, repository.ErrProblemNotFound) {
			return nil, pkgerrors.New(pkgerrors.ProblemNotFound)
		}
		return nil, pkgerrors.Wrapf(err, pkgerrors.DatabaseError, "get problem failed")
	}
	return p, nil
}

// Refresh scrapes up to n problems into the pool and returns how many were stored.
func (s *ProblemService) Refresh(ctx context.Context, n int) (int, error) {
	if s.repo == nil || s.fetcher == nil {
		return 0, pkgerrors.New(pkgerrors.ServiceUnavailable).WithMessage("problem pool is not configured")
	}
	stored := 0
	var lastErr error
	for i := 0; i < n; i++ {
		p, err := s.fetcher.Fetch(ctx)
		if err != nil {
			lastErr = err
			continue
		}
		if err := s.repo.Save(ctx, p); err != nil {
			lastErr = err
			continue
		}
		stored++
	}
	if stored == 0 && lastErr != nil {
		return 0, pkgerrors.Wrapf(lastErr, pkgerrors.ProblemSourceFailed, "refresh problem pool failed")
	}
	return stored, nil
}

func (s *ProblemService) fromPool(ctx context.Context) (*model.Problem, error) {
	if s.repo == nil {
		return nil, nil
	}
	id, err := s.repo.RandomID(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrProblemNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

func (s *ProblemService) fromScrape(ctx context.Context) (*model.Problem, error) {
	if s.fetcher == nil {
		return nil, nil
	}
	p, err := s.fetcher.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	if s.repo != nil {
		if err := s.repo.Save(ctx, p); err != nil {
			logger.Warn(ctx, "persist scraped problem failed", zap.String("problem_id", p.ProblemID), zap.Error(err))
		}
	}
	return p, nil
}
