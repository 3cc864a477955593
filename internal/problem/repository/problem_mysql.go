package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"codebattle/internal/common/db"
	"codebattle/internal/problem/model"
)

const problemColumns = "problem_id, title, description, description_url, test_cases, starter_code, source, created_at"

// MySQLProblemRepository stores problems with JSON columns for test cases and starter code.
type MySQLProblemRepository struct {
	dbProvider db.Provider
}

func NewMySQLProblemRepository(provider db.Provider) *MySQLProblemRepository {
	return &MySQLProblemRepository{dbProvider: provider}
}

func (r *MySQLProblemRepository) Save(ctx context.Context, problem *model.Problem) error {
	if problem == nil {
		return fmt.Errorf("problem is nil")
	}
	cases, err := json.Marshal(problem.TestCases)
	if err != nil {
		return fmt.Errorf("encode test cases failed: %w", err)
	}
	starter, err := json.Marshal(problem.StarterCode)
	if err != nil {
		return fmt.Errorf("encode starter code failed: %w", err)
	}

	querier, err := db.GetProviderQuerier(r.dbProvider, nil)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO problems (problem_id, title, description, description_url, test_cases, starter_code, source)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			title = VALUES(title),
			description = VALUES(description),
			description_url = VALUES(description_url),
			test_cases = VALUES(test_cases),
			starter_code = VALUES(starter_code),
			source = VALUES(source)`
	_, err = querier.Exec(ctx, query,
		problem.ProblemID, problem.Title, problem.Description, problem.DescriptionURL,
		string(cases), string(starter), problem.Source,
	)
	return err
}

func (r *MySQLProblemRepository) GetByID(ctx context.Context, problemID string) (*model.Problem, error) {
	querier, err := db.GetProviderQuerier(r.dbProvider, nil)
	if err != nil {
		return nil, err
	}
	row := querier.QueryRow(ctx, "SELECT "+problemColumns+" FROM problems WHERE problem_id = ?", problemID)
	problem, err := scanProblem(row)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrProblemNotFound
		}
		return nil, err
	}
	return problem, nil
}

func (r *MySQLProblemRepository) RandomID(ctx context.Context) (string, error) {
	querier, err := db.GetProviderQuerier(r.dbProvider, nil)
	if err != nil {
		return "", err
	}
	var id string
	if err := querier.QueryRow(ctx, "SELECT problem_id FROM problems ORDER BY RAND() LIMIT 1").Scan(&id); err != nil {
		if db.IsNoRows(err) {
			return "", ErrProblemNotFound
		}
		return "", err
	}
	return id, nil
}

func (r *MySQLProblemRepository) Count(ctx context.Context) (int64, error) {
	querier, err := db.GetProviderQuerier(r.dbProvider, nil)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := querier.QueryRow(ctx, "SELECT COUNT(*) FROM problems").Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func scanProblem(row db.Row) (*model.Problem, error) {
	var (
		p                     model.Problem
		casesJSON, starterRaw []byte
	)
	if err := row.Scan(&p.ProblemID, &p.Title, &p.Description, &p.DescriptionURL, &casesJSON, &starterRaw, &p.Source, &p.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(casesJSON, &p.TestCases); err != nil {
		return nil, fmt.Errorf("decode test cases failed: %w", err)
	}
	if len(starterRaw) > 0 {
		if err := json.Unmarshal(starterRaw, &p.StarterCode); err != nil {
			return nil, fmt.Errorf("decode starter code failed: %w", err)
		}
	}
	return &p, nil
}
