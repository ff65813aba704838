package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"

	"go-user-api/internal/model"
)

const sqliteUserColumns = `id, email, username, password_hash, created_at, updated_at`

type SQLiteUserRepository struct {
	db *sqlx.DB
}

func NewSQLiteUserRepository(db *sqlx.DB) *SQLiteUserRepository {
	return &SQLiteUserRepository{db: db}
}

func (r *SQLiteUserRepository) Create(ctx context.Context, u model.User) (model.User, error) {
	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	if u.UpdatedAt.IsZero() {
		u.UpdatedAt = u.CreatedAt
	}

	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO users (email, username, password_hash, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 RETURNING id`,
		u.Email, u.Username, u.PasswordHash, u.CreatedAt, u.UpdatedAt).Scan(&u.ID)
	if isSQLiteUniqueViolation(err) {
		return model.User{}, fmt.Errorf("create user %q: %w", u.Email, model.ErrUserAlreadyExists)
	}
	if err != nil {
		return model.User{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

func (r *SQLiteUserRepository) FindAll(ctx context.Context) ([]model.User, error) {
	users := make([]model.User, 0)
	if err := r.db.SelectContext(ctx, &users, `SELECT `+sqliteUserColumns+` FROM users ORDER BY id`); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (r *SQLiteUserRepository) FindByID(ctx context.Context, id int64) (model.User, error) {
	var u model.User
	err := r.db.GetContext(ctx, &u, `SELECT `+sqliteUserColumns+` FROM users WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, fmt.Errorf("find user %d: %w", id, model.ErrUserNotFound)
	}
	if err != nil {
		return model.User{}, fmt.Errorf("find user by id: %w", err)
	}
	return u, nil
}

func (r *SQLiteUserRepository) FindBy(ctx context.Context, field model.UserField, value string) (model.User, error) {
	column, ok := columnFor(field)
	if !ok {
		return model.User{}, fmt.Errorf("find user by %q: %w", field, model.ErrInvalidInput)
	}

	var u model.User
	err := r.db.GetContext(ctx, &u,
		`SELECT `+sqliteUserColumns+` FROM users WHERE `+column+` = ? COLLATE NOCASE ORDER BY id LIMIT 1`,
		strings.TrimSpace(value))
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, fmt.Errorf("find user by %s: %w", column, model.ErrUserNotFound)
	}
	if err != nil {
		return model.User{}, fmt.Errorf("find user by %s: %w", column, err)
	}
	return u, nil
}

func (r *SQLiteUserRepository) Update(ctx context.Context, id int64, patch model.UserPatch) (model.User, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users
		    SET email = COALESCE(?, email),
		        username = COALESCE(?, username),
		        password_hash = COALESCE(?, password_hash),
		        updated_at = ?
		  WHERE id = ?`,
		patch.Email, patch.Username, patch.PasswordHash, time.Now().UTC(), id)
	if isSQLiteUniqueViolation(err) {
		return model.User{}, fmt.Errorf("update user %d: %w", id, model.ErrUserAlreadyExists)
	}
	if err != nil {
		return model.User{}, fmt.Errorf("update user: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return model.User{}, fmt.Errorf("update user: %w", err)
	}
	if affected == 0 {
		return model.User{}, fmt.Errorf("update user %d: %w", id, model.ErrUserNotFound)
	}

	return r.FindByID(ctx, id)
}

func (r *SQLiteUserRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("delete user %d: %w", id, model.ErrUserNotFound)
	}
	return nil
}

func (r *SQLiteUserRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM users`); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return count, nil
}

func (r *SQLiteUserRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func isSQLiteUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}
