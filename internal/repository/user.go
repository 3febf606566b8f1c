package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Shivanand-hulikatti/festival-booking/internal/model"
)

// UserRepository is the user directory.
type UserRepository struct {
	db *pgxpool.Pool
}

// NewUserRepository constructs a UserRepository.
func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, COALESCE(google_id, ''), email, name, email_opt_in, is_admin, created_at, updated_at`

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	if err := row.Scan(&u.ID, &u.GoogleID, &u.Email, &u.Name, &u.EmailOptIn, &u.IsAdmin, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) getOne(ctx context.Context, where string, arg any) (*model.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE `+where, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// GetByID returns the user or ErrUserNotFound.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	return r.getOne(ctx, `id = $1`, id)
}

// GetByEmail matches email case-insensitively.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.getOne(ctx, `lower(email) = lower($1)`, email)
}

// GetByGoogleID looks a user up by their Google subject.
func (r *UserRepository) GetByGoogleID(ctx context.Context, googleID string) (*model.User, error) {
	return r.getOne(ctx, `google_id = $1`, googleID)
}

// CreateUser inserts a new user.
func (r *UserRepository) CreateUser(ctx context.Context, u *model.User) error {
	var googleID *string
	if u.GoogleID != "" {
		googleID = &u.GoogleID
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO users (id, google_id, email, name, email_opt_in, is_admin, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		u.ID, googleID, u.Email, u.Name, u.EmailOptIn, u.IsAdmin, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert user: %w", translate(err))
	}
	return nil
}

// UpdateProfile applies the non-nil fields of upd.
func (r *UserRepository) UpdateProfile(ctx context.Context, id string, upd model.UserUpdate, now time.Time) (*model.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx,
		`UPDATE users
		 SET name = COALESCE($2, name),
		     email_opt_in = COALESCE($3, email_opt_in),
		     updated_at = $4
		 WHERE id = $1
		 RETURNING `+userColumns,
		id, upd.Name, upd.EmailOptIn, now,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrUserNotFound
		}
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return u, nil
}

// ListUsers returns all users ordered by name.
func (r *UserRepository) ListUsers(ctx context.Context) ([]model.User, error) {
	rows, err := r.db.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY lower(name) ASC`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}
