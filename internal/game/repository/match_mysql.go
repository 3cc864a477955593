package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"codebattle/internal/common/db"
	"codebattle/internal/game/model"
	problemmodel "codebattle/internal/problem/model"
)

const matchColumns = "room_id, player1, player2, status, problem_id, test_cases, winner, created_at, finished_at"

// MySQLMatchRepository stores matches in MySQL.
type MySQLMatchRepository struct {
	dbProvider db.Provider
}

func NewMySQLMatchRepository(provider db.Provider) *MySQLMatchRepository {
	return &MySQLMatchRepository{dbProvider: provider}
}

func (r *MySQLMatchRepository) Create(ctx context.Context, match *model.Match) error {
	if match == nil {
		return fmt.Errorf("match is nil")
	}
	querier, err := db.GetProviderQuerier(r.dbProvider, nil)
	if err != nil {
		return err
	}
	query := "INSERT INTO matches (room_id, player1, player2, status, problem_id, winner, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)"
	_, err = querier.Exec(ctx, query,
		match.RoomID, match.Player1, match.Player2, string(match.Status), match.ProblemID, match.Winner, match.CreatedAt,
	)
	if err != nil {
		if _, ok := db.UniqueViolation(err); ok {
			return ErrDuplicateRoom
		}
		return err
	}
	return nil
}

func (r *MySQLMatchRepository) GetByRoomID(ctx context.Context, roomID string) (*model.Match, error) {
	querier, err := db.GetProviderQuerier(r.dbProvider, nil)
	if err != nil {
		return nil, err
	}
	match, err := scanMatch(querier.QueryRow(ctx, "SELECT "+matchColumns+" FROM matches WHERE room_id = ?", roomID))
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	return match, nil
}

func (r *MySQLMatchRepository) AssignProblem(ctx context.Context, roomID, problemID string, testCases []problemmodel.TestCase) (bool, error) {
	payload, err := json.Marshal(testCases)
	if err != nil {
		return false, fmt.Errorf("encode test cases failed: %w", err)
	}
	query := `
		UPDATE matches SET problem_id = ?, test_cases = ?
		WHERE room_id = ? AND (test_cases IS NULL OR JSON_LENGTH(test_cases) = 0)`
	return r.conditionalUpdate(ctx, query, problemID, string(payload), roomID)
}

func (r *MySQLMatchRepository) Join(ctx context.Context, roomID, userID string) (bool, error) {
	query := "UPDATE matches SET player2 = ?, status = ? WHERE room_id = ? AND status = ?"
	return r.conditionalUpdate(ctx, query, userID, string(model.StatusActive), roomID, string(model.StatusWaiting))
}

func (r *MySQLMatchRepository) FinishIfOpen(ctx context.Context, roomID, winner string) (bool, error) {
	query := "UPDATE matches SET status = ?, winner = ?, finished_at = NOW() WHERE room_id = ? AND status <> ?"
	return r.conditionalUpdate(ctx, query, string(model.StatusFinished), winner, roomID, string(model.StatusFinished))
}

func (r *MySQLMatchRepository) conditionalUpdate(ctx context.Context, query string, args ...interface{}) (bool, error) {
	querier, err := db.GetProviderQuerier(r.dbProvider, nil)
	if err != nil {
		return false, err
	}
	result, err := querier.Exec(ctx, query, args...)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

func scanMatch(row db.Row) (*model.Match, error) {
	var (
		m          model.Match
		status     string
		casesJSON  []byte
		finishedAt sql.NullTime
	)
	if err := row.Scan(&m.RoomID, &m.Player1, &m.Player2, &status, &m.ProblemID, &casesJSON, &m.Winner, &m.CreatedAt, &finishedAt); err != nil {
		return nil, err
	}
	m.Status = model.Status(status)
	if len(casesJSON) > 0 {
		if err := json.Unmarshal(casesJSON, &m.TestCases); err != nil {
			return nil, fmt.Errorf("decode test cases failed: %w", err)
		}
	}
	if finishedAt.Valid {
		t := finishedAt.Time
		m.FinishedAt = &t
	}
	return &m, nil
}
