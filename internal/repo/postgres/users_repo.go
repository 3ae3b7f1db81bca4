package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/qcheck-dev/qcheck/internal/domain/user"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrEmailAlreadyUsed = errors.New("email already used")
)

type UsersRepo struct {
	pool *pgxpool.Pool
}

func NewUsersRepo(pool *pgxpool.Pool) *UsersRepo {
	return &UsersRepo{pool: pool}
}

// Create inserts the credential row and profile fields in one statement, so a
// failed registration never leaves a partial user behind.
func (r *UsersRepo) Create(ctx context.Context, email, passwordHash, name, role string) (user.User, error) {
	now := time.Now().UTC()

	u := user.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: passwordHash,
		Name:         name,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO users (id, email, password_hash, name, role, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		u.ID, u.Email, u.PasswordHash, u.Name, u.Role, u.CreatedAt, u.UpdatedAt,
	)

	if err != nil {
		var pgErr *pgconn.PgError

		// unique_violation on the email index
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return user.User{}, ErrEmailAlreadyUsed
		}

		return user.User{}, err
	}

	return u, nil
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	return r.getWhere(ctx, `LOWER(email) = LOWER($1)`, email)
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	return r.getWhere(ctx, `id = $1`, id)
}

func (r *UsersRepo) getWhere(ctx context.Context, cond string, arg any) (user.User, error) {
	var u user.User

	err := r.pool.QueryRow(
		ctx,
		`SELECT id, email, password_hash, name, role, created_at, updated_at
         FROM users
         WHERE `+cond,
		arg,
	).Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.Name,
		&u.Role,
		&u.CreatedAt,
		&u.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, ErrUserNotFound
		}

		return user.User{}, err
	}
	return u, nil
}

// UpdateName is the only profile mutation the settings page performs; email
// and role stay read-only here.
func (r *UsersRepo) UpdateName(ctx context.Context, id, name string) (user.User, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET name = $2, updated_at = NOW() WHERE id = $1`, id, name)

	if err != nil {
		return user.User{}, err
	}

	if tag.RowsAffected() == 0 {
		return user.User{}, ErrUserNotFound
	}

	return r.GetByID(ctx, id)
}
