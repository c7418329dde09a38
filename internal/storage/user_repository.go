package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/lumenworks/frameio-relay/internal/db"
)

type User struct {
	ID          string
	Email       string
	CreatedAt   time.Time
	LastLoginAt *time.Time
}

type UserRepository struct {
	pool *db.Pool
}

func NewUserRepository(pool *db.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (User, error) {
	var user User
	err := r.pool.QueryRow(ctx, `
		SELECT id, email, created_at, last_login_at
		FROM users
		WHERE id = $1
	`, id).Scan(&user.ID, &user.Email, &user.CreatedAt, &user.LastLoginAt)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (User, error) {
	var user User
	err := r.pool.QueryRow(ctx, `
		SELECT id, email, created_at, last_login_at
		FROM users
		WHERE email = $1
	`, email).Scan(&user.ID, &user.Email, &user.CreatedAt, &user.LastLoginAt)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

// GetOrCreate is the primary entry point after a magic link is redeemed:
// first sign-in creates the row, later sign-ins reuse it.
func (r *UserRepository) GetOrCreate(ctx context.Context, email string) (User, error) {
	user, err := r.GetByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !IsNotFound(err) {
		return User{}, err
	}

	user = User{ID: uuid.NewString(), Email: email}
	err = r.pool.QueryRow(ctx, `
		INSERT INTO users (id, email)
		VALUES ($1, $2)
		ON CONFLICT (email) DO UPDATE SET email = EXCLUDED.email
		RETURNING id, email, created_at, last_login_at
	`, user.ID, user.Email).Scan(&user.ID, &user.Email, &user.CreatedAt, &user.LastLoginAt)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (r *UserRepository) TouchLogin(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE users
		SET last_login_at = now()
		WHERE id = $1
	`, id)
	return err
}

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
