package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophidentity/internal/common"
	"github.com/dmitrijs2005/gophidentity/internal/dbx"
	"github.com/dmitrijs2005/gophidentity/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const selectUser = `SELECT id, username, normalized_username, email, full_name, password_hash,
		access_failed_count, lockout_end, created_at, updated_at
		FROM users`

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {

	query :=
		`INSERT INTO users (username, normalized_username, email, full_name, password_hash)
         VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		user.UserName, user.NormalizedUserName, user.Email, user.FullName, user.PasswordHash).
		Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return r.getOne(ctx, selectUser+` WHERE id = $1`, id)
}

func (r *PostgresRepository) GetUserByLogin(ctx context.Context, normalizedUserName string) (*models.User, error) {
	return r.getOne(ctx, selectUser+` WHERE normalized_username = $1`, normalizedUserName)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg string) (*models.User, error) {
	user := &models.User{}
	var lockoutEnd sql.NullTime

	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID, &user.UserName, &user.NormalizedUserName, &user.Email, &user.FullName, &user.PasswordHash,
		&user.AccessFailedCount, &lockoutEnd, &user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if lockoutEnd.Valid {
		t := lockoutEnd.Time
		user.LockoutEnd = &t
	}

	return user, nil
}

func (r *PostgresRepository) UpdateProfile(ctx context.Context, user *models.User) error {
	query :=
		`UPDATE users SET username = $2, normalized_username = $3, email = $4, full_name = $5, updated_at = now()
		 WHERE id = $1
		 `

	res, err := r.db.ExecContext(ctx, query,
		user.ID, user.UserName, user.NormalizedUserName, user.Email, user.FullName)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return common.ErrorAlreadyExists
		}
		return fmt.Errorf("db error: %w", err)
	}

	return expectOneRow(res)
}

func (r *PostgresRepository) UpdatePasswordHash(ctx context.Context, id string, passwordHash string) error {
	query :=
		`UPDATE users SET password_hash = $2, updated_at = now()
		 WHERE id = $1
		 `

	res, err := r.db.ExecContext(ctx, query, id, passwordHash)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return expectOneRow(res)
}

// RecordFailedAttempt increments the failed counter in a single statement.
// Reaching maxAttempts sets lockout_end and resets the counter to zero.
func (r *PostgresRepository) RecordFailedAttempt(ctx context.Context, id string, maxAttempts int, lockoutEnd time.Time) (models.LockoutState, error) {
	query :=
		`UPDATE users SET
		   access_failed_count = CASE WHEN access_failed_count + 1 >= $2 THEN 0 ELSE access_failed_count + 1 END,
		   lockout_end = CASE WHEN access_failed_count + 1 >= $2 THEN $3 ELSE lockout_end END,
		   updated_at = now()
		 WHERE id = $1
		 RETURNING access_failed_count, lockout_end
		 `

	var (
		state models.LockoutState
		end   sql.NullTime
	)

	err := r.db.QueryRowContext(ctx, query, id, maxAttempts, lockoutEnd).Scan(&state.AccessFailedCount, &end)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.LockoutState{}, common.ErrorNotFound
		}
		return models.LockoutState{}, fmt.Errorf("db error: %w", err)
	}

	if end.Valid {
		t := end.Time
		state.LockoutEnd = &t
	}

	return state, nil
}

func (r *PostgresRepository) ResetLockout(ctx context.Context, id string) error {
	query :=
		`UPDATE users SET access_failed_count = 0, lockout_end = NULL, updated_at = now()
		 WHERE id = $1
		 `

	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return expectOneRow(res)
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
