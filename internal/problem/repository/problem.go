package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"codebattle/internal/common/cache"
	"codebattle/internal/problem/model"
)

var ErrProblemNotFound = errors.New("problem not found")

const (
	defaultProblemTTL      = 30 * time.Minute
	defaultProblemEmptyTTL = 5 * time.Minute
	problemInfoKeyPrefix   = "problem:info:"
)

// ProblemRepository stores the pool of playable problems.
type ProblemRepository interface {
	// Save inserts or replaces a problem keyed by its id.
	Save(ctx context.Context, problem *model.Problem) error
	GetByID(ctx context.Context, problemID string) (*model.Problem, error)
	// RandomID returns the id of a random stored problem, or ErrProblemNotFound when the pool is empty.
	RandomID(ctx context.Context) (string, error)
	Count(ctx context.Context) (int64, error)
}

// CachedProblemRepository adds a Redis read-through cache to GetByID.
type CachedProblemRepository struct {
	ProblemRepository
	cache    cache.BasicOps
	ttl      time.Duration
	emptyTTL time.Duration
}

func NewCachedProblemRepository(inner ProblemRepository, cacheClient cache.BasicOps) *CachedProblemRepository {
	return &CachedProblemRepository{
		ProblemRepository: inner,
		cache:             cacheClient,
		ttl:               defaultProblemTTL,
		emptyTTL:          defaultProblemEmptyTTL,
	}
}

func (r *CachedProblemRepository) Save(ctx context.Context, problem *model.Problem) error {
	return cache.UpdateCached(ctx, r.cache, problemInfoKey(problem.ProblemID), func(ctx context.Context) error {
		return r.ProblemRepository.Save(ctx, problem)
	})
}

func (r *CachedProblemRepository) GetByID(ctx context.Context, problemID string) (*model.Problem, error) {
	problem, err := cache.GetWithCached[*model.Problem](
		ctx,
		r.cache,
		problemInfoKey(problemID),
		cache.JitterTTL(r.ttl),
		cache.JitterTTL(r.emptyTTL),
		func(p *model.Problem) bool { return p == nil },
		marshalProblem,
		unmarshalProblem,
		func(ctx context.Context) (*model.Problem, error) {
			p, err := r.ProblemRepository.GetByID(ctx, problemID)
			if errors.Is(err, ErrProblemNotFound) {
				return nil, nil
			}
			return p, err
		},
	)
	if err != nil {
		return nil, err
	}
	if problem == nil {
		return nil, ErrProblemNotFound
	}
	return problem, nil
}

func problemInfoKey(problemID string) string {
	return problemInfoKeyPrefix + problemID
}

func marshalProblem(p *model.Problem) string {
	if p == nil {
		return ""
	}
	data, err := json.Marshal(p)
	if err != nil {
		return ""
	}
	return string(data)
}

func unmarshalProblem(data string) (*model.Problem, error) {
	var p model.Problem
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return nil, err
	}
	return &p, nil
}
