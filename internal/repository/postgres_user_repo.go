package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"go-user-api/internal/model"
)

const pgUniqueViolation = "23505"

const pgUserColumns = `id, email, username, password_hash, created_at, updated_at`

type PostgresUserRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresUserRepository(pool *pgxpool.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

func (r *PostgresUserRepository) Create(ctx context.Context, u model.User) (model.User, error) {
	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	if u.UpdatedAt.IsZero() {
		u.UpdatedAt = u.CreatedAt
	}

	err := r.pool.QueryRow(ctx,
		`INSERT INTO users (email, username, password_hash, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		u.Email, u.Username, u.PasswordHash, u.CreatedAt, u.UpdatedAt).Scan(&u.ID)
	if isPgUniqueViolation(err) {
		return model.User{}, fmt.Errorf("create user %q: %w", u.Email, model.ErrUserAlreadyExists)
	}
	if err != nil {
		return model.User{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

func (r *PostgresUserRepository) FindAll(ctx context.Context) ([]model.User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+pgUserColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := make([]model.User, 0)
	for rows.Next() {
		u, err := scanPgUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *PostgresUserRepository) FindByID(ctx context.Context, id int64) (model.User, error) {
	u, err := scanPgUser(r.pool.QueryRow(ctx,
		`SELECT `+pgUserColumns+` FROM users WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.User{}, fmt.Errorf("find user %d: %w", id, model.ErrUserNotFound)
	}
	if err != nil {
		return model.User{}, fmt.Errorf("find user by id: %w", err)
	}
	return u, nil
}

func (r *PostgresUserRepository) FindBy(ctx context.Context, field model.UserField, value string) (model.User, error) {
	column, ok := columnFor(field)
	if !ok {
		return model.User{}, fmt.Errorf("find user by %q: %w", field, model.ErrInvalidInput)
	}

	u, err := scanPgUser(r.pool.QueryRow(ctx,
		`SELECT `+pgUserColumns+` FROM users WHERE lower(`+column+`) = lower($1) ORDER BY id LIMIT 1`,
		strings.TrimSpace(value)))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.User{}, fmt.Errorf("find user by %s: %w", column, model.ErrUserNotFound)
	}
	if err != nil {
		return model.User{}, fmt.Errorf("find user by %s: %w", column, err)
	}
	return u, nil
}

func (r *PostgresUserRepository) Update(ctx context.Context, id int64, patch model.UserPatch) (model.User, error) {
	u, err := scanPgUser(r.pool.QueryRow(ctx,
		`UPDATE users
		    SET email = COALESCE($2, email),
		        username = COALESCE($3, username),
		        password_hash = COALESCE($4, password_hash),
		        updated_at = $5
		  WHERE id = $1
		  RETURNING `+pgUserColumns,
		id, patch.Email, patch.Username, patch.PasswordHash, time.Now().UTC()))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.User{}, fmt.Errorf("update user %d: %w", id, model.ErrUserNotFound)
	}
	if isPgUniqueViolation(err) {
		return model.User{}, fmt.Errorf("update user %d: %w", id, model.ErrUserAlreadyExists)
	}
	if err != nil {
		return model.User{}, fmt.Errorf("update user: %w", err)
	}
	return u, nil
}

func (r *PostgresUserRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete user %d: %w", id, model.ErrUserNotFound)
	}
	return nil
}

func (r *PostgresUserRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return count, nil
}

func (r *PostgresUserRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func scanPgUser(row pgx.Row) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Email, &u.Username, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

func isPgUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
