// Package postgres implements authgate.UserStore on PostgreSQL.
//
// Username uniqueness is a UNIQUE constraint and email uniqueness a unique
// index on lower(email), so one INSERT decides both atomically. The schema is
// managed by goose migrations embedded in the binary; see [Migrate].
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MrEthical07/authgate"
)

const (
	uniqueViolation    = "23505"
	usernameConstraint = "users_username_key"
	emailConstraint    = "users_email_lower_key"
	selectUserColumns  = `id, username, email, password_hash, role, active, created_at`
)

// Store implements authgate.UserStore backed by a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

var _ authgate.UserStore = (*Store)(nil)

// New returns a Store using pool. The schema must already be migrated.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Connect connects to dsn without touching the schema.
func Connect(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	return New(pool), nil
}

// Open connects to dsn, applies pending migrations and returns a Store.
func Open(ctx context.Context, dsn string) (*Store, error) {
	s, err := Connect(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if _, err := Migrate(ctx, s.pool); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// Pool returns the underlying connection pool.
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

// Close closes the underlying connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %v", authgate.ErrUserStoreUnavailable, err)
	}
	return nil
}

func (s *Store) Create(ctx context.Context, u authgate.User) (authgate.User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}

	err := s.pool.QueryRow(ctx,
		`INSERT INTO users (id, username, email, password_hash, role, active)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING created_at`,
		u.ID, u.Username, u.Email, u.PasswordHash, u.Role, u.Active,
	).Scan(&u.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			switch pgErr.ConstraintName {
			case usernameConstraint:
				return authgate.User{}, authgate.ErrDuplicateUsername
			case emailConstraint:
				return authgate.User{}, authgate.ErrDuplicateEmail
			}
		}
		return authgate.User{}, unavailable(err)
	}
	return u, nil
}

func (s *Store) FindByUsername(ctx context.Context, username string) (authgate.User, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+selectUserColumns+` FROM users WHERE username = $1`, username)
	return scanUser(row)
}

func (s *Store) FindByID(ctx context.Context, id string) (authgate.User, error) {
	if !validID(id) {
		return authgate.User{}, authgate.ErrUserNotFound
	}
	row := s.pool.QueryRow(ctx,
		`SELECT `+selectUserColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func (s *Store) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	if !validID(id) {
		return authgate.ErrUserNotFound
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET password_hash = $2 WHERE id = $1`, id, hash)
	if err != nil {
		return unavailable(err)
	}
	if tag.RowsAffected() == 0 {
		return authgate.ErrUserNotFound
	}
	return nil
}

// SetRole changes a user's role.
func (s *Store) SetRole(ctx context.Context, id, role string) error {
	if !validID(id) {
		return authgate.ErrUserNotFound
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET role = $2 WHERE id = $1`, id, role)
	if err != nil {
		return unavailable(err)
	}
	if tag.RowsAffected() == 0 {
		return authgate.ErrUserNotFound
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return authgate.ErrUserNotFound
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return unavailable(err)
	}
	if tag.RowsAffected() == 0 {
		return authgate.ErrUserNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (authgate.User, error) {
	var u authgate.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.Active, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return authgate.User{}, authgate.ErrUserNotFound
		}
		return authgate.User{}, unavailable(err)
	}
	return u, nil
}

// validID reports whether id can name a row. Ids are UUIDs, so anything
// else is an unknown user rather than a query error.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", authgate.ErrUserStoreUnavailable, err)
}
