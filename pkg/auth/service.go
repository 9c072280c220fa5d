package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Identity errors shared between the service and its backing store.
var (
	// ErrUnauthorized is returned for any failed local login. Unknown email
	// and wrong password are deliberately indistinguishable to the caller.
	ErrUnauthorized = errors.New("auth: invalid email or password")

	// ErrUserNotFound indicates no user record matched the lookup.
	ErrUserNotFound = errors.New("auth: user not found")

	// ErrDuplicateEmail indicates the email is already registered.
	ErrDuplicateEmail = errors.New("auth: email already in use")

	// ErrDuplicateNickname indicates the nickname is already taken.
	ErrDuplicateNickname = errors.New("auth: nickname already in use")

	// ErrWeakPassword indicates the password does not meet the minimum
	// length requirement.
	ErrWeakPassword = fmt.Errorf("auth: password must be at least %d characters", MinPasswordLength)
)

// UserFinder looks up local user records by email.
type UserFinder interface {
	// FindByEmail returns the user or ErrUserNotFound.
	FindByEmail(ctx context.Context, email string) (*User, error)
}

// UserStore persists user records.
type UserStore interface {
	UserFinder

	// Create inserts the user and fills in its generated fields. Unique
	// violations surface as ErrDuplicateEmail or ErrDuplicateNickname.
	Create(ctx context.Context, user *User) error
}

// Service issues tokens after successful local or federated authentication.
type Service struct {
	users  UserStore
	hasher *PasswordHasher
	codec  *TokenCodec
	now    func() time.Time
}

// NewService creates the token issuance service.
func NewService(users UserStore, hasher *PasswordHasher, codec *TokenCodec) *Service {
	return &Service{
		users:  users,
		hasher: hasher,
		codec:  codec,
		now:    time.Now,
	}
}

// Codec exposes the underlying token codec.
func (s *Service) Codec() *TokenCodec { return s.codec }

// Register creates a local account with role USER. An empty nickname
// defaults to the local part of the email. The returned user carries the
// generated ID and timestamps.
func (s *Service) Register(ctx context.Context, email, password, nickname string) (*User, error) {
	email = strings.TrimSpace(email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: email is required", ErrInvalidInput)
	}
	if len(password) < MinPasswordLength {
		return nil, ErrWeakPassword
	}
	nickname = strings.TrimSpace(nickname)
	if nickname == "" {
		nickname = email[:strings.Index(email, "@")]
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("auth: failed to hash password: %w", err)
	}

	user := &User{
		Email:    email,
		Password: hash,
		Nickname: nickname,
		Role:     RoleUser,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// LoginLocal verifies the credentials and returns a signed token plus the
// matched user. Every failure path returns ErrUnauthorized.
func (s *Service) LoginLocal(ctx context.Context, email, password string) (string, *User, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return "", nil, ErrUnauthorized
	}
	if user.Federated() || !s.hasher.Compare(user.Password, password) {
		return "", nil, ErrUnauthorized
	}

	token, err := s.codec.Issue(user.Email, user.Role, s.now())
	if err != nil {
		return "", nil, fmt.Errorf("auth: failed to issue token: %w", err)
	}
	return token, user, nil
}

// IssueForFederated signs a token for an already-resolved identity. It is
// called after OAuth2 reconciliation and always succeeds for a valid user.
func (s *Service) IssueForFederated(user *User) (string, error) {
	role := user.Role
	if !role.Valid() {
		role = RoleUser
	}
	return s.codec.Issue(user.Email, role, s.now())
}
