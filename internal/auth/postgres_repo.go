package auth

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/notiongate/notiongate/internal/shared"
)

const uniqueViolation = "23505"

const userColumns = `id::text, name, email, password_hash, COALESCE(session_token, ''), session_expiry,
	COALESCE(refresh_token, ''), refresh_expiry, last_login, COALESCE(user_agent, ''),
	failed_login_attempts, created_at`

// PostgresRepository implements Repository using PostgreSQL. The unique
// index on email turns the signup race into a conflict.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository constructs a PostgreSQL repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// FindByEmail fetches a user by email.
func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, shared.Upstream("postgres: find user", err)
	}
	return &user, nil
}

// CreateUser inserts a user row.
func (r *PostgresRepository) CreateUser(ctx context.Context, user NewUser) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO users (name, email, password_hash, failed_login_attempts, created_at) VALUES ($1, $2, $3, 0, $4)`,
		user.Name, user.Email, user.PasswordHash, user.CreatedAt.UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return shared.ErrConflict
		}
		return shared.Upstream("postgres: create user", err)
	}
	return nil
}

// UpdateSession overwrites the session fields and resets failed attempts.
func (r *PostgresRepository) UpdateSession(ctx context.Context, update SessionUpdate) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET
		session_token = $2, session_expiry = $3, refresh_token = $4, refresh_expiry = $5,
		last_login = $6, user_agent = $7, failed_login_attempts = 0
		WHERE email = $1`,
		update.Email, update.SessionToken, update.SessionExpiry.UTC(), update.RefreshToken,
		update.RefreshExpiry.UTC(), update.LoginAt.UTC(), truncateUserAgent(update.UserAgent))
	if err != nil {
		return shared.Upstream("postgres: update session", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// IncrementFailedAttempts bumps the failed login counter atomically.
func (r *PostgresRepository) IncrementFailedAttempts(ctx context.Context, email string) error {
	if _, err := r.pool.Exec(ctx, `UPDATE users SET failed_login_attempts = failed_login_attempts + 1 WHERE email = $1`, email); err != nil {
		return shared.Upstream("postgres: increment failed attempts", err)
	}
	return nil
}

// FindBySessionToken returns users holding an unexpired session token.
func (r *PostgresRepository) FindBySessionToken(ctx context.Context, token string, now time.Time) ([]User, error) {
	return r.query(ctx, `SELECT `+userColumns+` FROM users WHERE session_token = $1 AND session_expiry > $2`, token, now.UTC())
}

// FindByRefreshToken returns users holding an unexpired refresh token.
func (r *PostgresRepository) FindByRefreshToken(ctx context.Context, token string, now time.Time) ([]User, error) {
	return r.query(ctx, `SELECT `+userColumns+` FROM users WHERE refresh_token = $1 AND refresh_expiry > $2`, token, now.UTC())
}

func (r *PostgresRepository) query(ctx context.Context, sql string, args ...any) ([]User, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, shared.Upstream("postgres: query users", err)
	}
	defer rows.Close()
	var users []User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, shared.Upstream("postgres: scan user", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.Upstream("postgres: query users", err)
	}
	return users, nil
}

func scanUser(row pgx.Row) (User, error) {
	var u User
	var sessionExpiry, refreshExpiry, lastLogin pgtype.Timestamptz
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.SessionToken, &sessionExpiry,
		&u.RefreshToken, &refreshExpiry, &lastLogin, &u.UserAgent, &u.FailedLoginAttempts, &u.CreatedAt)
	if err != nil {
		return User{}, err
	}
	u.SessionExpiry = sessionExpiry.Time
	u.RefreshExpiry = refreshExpiry.Time
	u.LastLogin = lastLogin.Time
	return u, nil
}

var _ Repository = (*PostgresRepository)(nil)
