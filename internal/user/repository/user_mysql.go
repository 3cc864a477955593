package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"codebattle/internal/common/cache"
	"codebattle/internal/common/db"
	"codebattle/internal/user/model"
)

const (
	userColumns = "id, username, wins, matches_played, rank_label, created_at, updated_at"

	userInfoKeyPrefix        = "user:info:"
	defaultUserCacheTTL      = 30 * time.Minute
	defaultUserCacheEmptyTTL = 5 * time.Minute
)

// MySQLUserRepository stores users in MySQL with an optional read-through cache.
type MySQLUserRepository struct {
	dbProvider db.Provider
	cache      cache.BasicOps
	ttl        time.Duration
	emptyTTL   time.Duration
}

// NewMySQLUserRepository creates a repository. cacheClient may be nil.
func NewMySQLUserRepository(provider db.Provider, cacheClient cache.BasicOps) *MySQLUserRepository {
	return &MySQLUserRepository{
		dbProvider: provider,
		cache:      cacheClient,
		ttl:        defaultUserCacheTTL,
		emptyTTL:   defaultUserCacheEmptyTTL,
	}
}

func (r *MySQLUserRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	if r.cache == nil {
		return r.getByIDFromDB(ctx, nil, id)
	}
	user, err := cache.GetWithCached[*model.User](
		ctx,
		r.cache,
		userInfoKey(id),
		cache.JitterTTL(r.ttl),
		cache.JitterTTL(r.emptyTTL),
		func(user *model.User) bool { return user == nil },
		marshalUser,
		unmarshalUser,
		func(ctx context.Context) (*model.User, error) {
			user, err := r.getByIDFromDB(ctx, nil, id)
			if errors.Is(err, ErrUserNotFound) {
				return nil, nil
			}
			return user, err
		},
	)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (r *MySQLUserRepository) RecordWin(ctx context.Context, id string) (*model.User, error) {
	database, err := db.CurrentDatabase(r.dbProvider)
	if err != nil {
		return nil, err
	}

	var updated *model.User
	err = database.Transaction(ctx, func(tx db.Transaction) error {
		row := tx.QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE id = ? FOR UPDATE", id)
		user, err := scanUser(row)
		if err != nil {
			if db.IsNoRows(err) {
				return ErrUserNotFound
			}
			return err
		}

		user.Wins++
		user.MatchesPlayed++
		user.Rank = model.RankFor(user.Wins)

		_, err = tx.Exec(ctx,
			"UPDATE users SET wins = ?, matches_played = ?, rank_label = ?, updated_at = NOW() WHERE id = ?",
			user.Wins, user.MatchesPlayed, string(user.Rank), id,
		)
		if err != nil {
			return err
		}
		updated = user
		return nil
	})
	if err != nil {
		return nil, err
	}

	if r.cache != nil {
		_ = r.cache.Del(ctx, userInfoKey(id))
	}
	return updated, nil
}

func (r *MySQLUserRepository) getByIDFromDB(ctx context.Context, tx db.Transaction, id string) (*model.User, error) {
	querier, err := db.GetProviderQuerier(r.dbProvider, tx)
	if err != nil {
		return nil, err
	}
	user, err := scanUser(querier.QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id))
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func scanUser(row db.Row) (*model.User, error) {
	var (
		user model.User
		rank string
	)
	if err := row.Scan(&user.ID, &user.Username, &user.Wins, &user.MatchesPlayed, &rank, &user.CreatedAt, &user.UpdatedAt); err != nil {
		return nil, err
	}
	user.Rank = model.Rank(rank)
	return &user, nil
}

func userInfoKey(id string) string {
	return userInfoKeyPrefix + id
}

func marshalUser(user *model.User) string {
	if user == nil {
		return ""
	}
	data, err := json.Marshal(user)
	if err != nil {
		return ""
	}
	return string(data)
}

func unmarshalUser(data string) (*model.User, error) {
	var user model.User
	if err := json.Unmarshal([]byte(data), &user); err != nil {
		return nil, err
	}
	return &user, nil
}
