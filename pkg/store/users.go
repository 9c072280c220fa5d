package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/teamace/ballshop/pkg/auth"
)

// Users handles user persistence.
type Users struct {
	db *sql.DB
}

// NewUsers creates a user store.
func NewUsers(db *sql.DB) *Users {
	return &Users{db: db}
}

// uniqueViolation is the Postgres error code for unique constraint violations.
const uniqueViolation = "23505"

// Create inserts the user and fills in ID and timestamps. Unique constraint
// violations surface as auth.ErrDuplicateEmail or auth.ErrDuplicateNickname.
func (s *Users) Create(ctx context.Context, user *auth.User) error {
	query := `
		INSERT INTO users (email, password, nickname, role, provider, provider_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	now := time.Now()
	err := s.db.QueryRowContext(ctx, query,
		user.Email,
		user.Password,
		user.Nickname,
		string(user.Role),
		nullString(user.Provider),
		nullString(user.ProviderID),
		now,
		now,
	).Scan(&user.ID)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			if strings.Contains(pqErr.Constraint, "nickname") {
				return auth.ErrDuplicateNickname
			}
			return auth.ErrDuplicateEmail
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	user.CreatedAt = now
	user.UpdatedAt = now
	return nil
}

// FindByEmail retrieves a user by email.
func (s *Users) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	return s.findOne(ctx, "email = $1", email)
}

// FindByID retrieves a user by primary key.
func (s *Users) FindByID(ctx context.Context, id int64) (*auth.User, error) {
	return s.findOne(ctx, "id = $1", id)
}

// FindByProvider retrieves a federated user by provider and provider ID.
func (s *Users) FindByProvider(ctx context.Context, provider, providerID string) (*auth.User, error) {
	query := `
		SELECT id, email, password, nickname, role, provider, provider_id, created_at, updated_at
		FROM users
		WHERE provider = $1 AND provider_id = $2
	`
	return s.scanOne(s.db.QueryRowContext(ctx, query, provider, providerID))
}

func (s *Users) findOne(ctx context.Context, where string, arg interface{}) (*auth.User, error) {
	query := `
		SELECT id, email, password, nickname, role, provider, provider_id, created_at, updated_at
		FROM users
		WHERE ` + where
	return s.scanOne(s.db.QueryRowContext(ctx, query, arg))
}

func (s *Users) scanOne(row *sql.Row) (*auth.User, error) {
	var user auth.User
	var role string
	var provider, providerID sql.NullString

	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Password,
		&user.Nickname,
		&role,
		&provider,
		&providerID,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, auth.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	user.Role = auth.ParseRole(role)
	user.Provider = provider.String
	user.ProviderID = providerID.String
	return &user, nil
}

// UpdateNickname changes the user's nickname. The new value must still be
// unique.
func (s *Users) UpdateNickname(ctx context.Context, id int64, nickname string) error {
	query := `UPDATE users SET nickname = $1, updated_at = $2 WHERE id = $3`

	result, err := s.db.ExecContext(ctx, query, nickname, time.Now(), id)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return auth.ErrDuplicateNickname
		}
		return fmt.Errorf("failed to update nickname: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return auth.ErrUserNotFound
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
