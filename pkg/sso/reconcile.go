package sso

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/teamace/ballshop/pkg/auth"
)

// fakeEmailDomainSuffix closes over federated accounts whose provider never
// shared an email. The synthesized address is deterministic per identity so
// repeat logins land on the same account.
const fakeEmailDomainSuffix = ".oauth.fakeemail.local"

// UserDirectory is the slice of user persistence reconciliation needs.
type UserDirectory interface {
	FindByEmail(ctx context.Context, email string) (*auth.User, error)
	Create(ctx context.Context, user *auth.User) error
}

// Reconciler maps provider identities onto local user accounts.
type Reconciler struct {
	users UserDirectory
}

// NewReconciler creates the reconciler.
func NewReconciler(users UserDirectory) *Reconciler {
	return &Reconciler{users: users}
}

// FindOrCreate resolves the identity to a local account, creating one on
// first login. Existing accounts are returned untouched: attributes from
// the provider never overwrite what is already stored.
func (r *Reconciler) FindOrCreate(ctx context.Context, identity *Identity) (*auth.User, error) {
	if identity.ProviderID == "" {
		return nil, &AttributeMissingError{Provider: identity.Provider, Attribute: "provider id"}
	}

	email := identity.Email
	if email == "" {
		email = synthesizeEmail(identity)
	}

	user, err := r.users.FindByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, auth.ErrUserNotFound) {
		return nil, fmt.Errorf("sso: reconciliation lookup failed: %w", err)
	}

	user = &auth.User{
		Email:      email,
		Password:   auth.UnusablePassword(),
		Nickname:   nicknameFor(identity, email),
		Role:       auth.RoleUser,
		Provider:   identity.Provider,
		ProviderID: identity.ProviderID,
	}
	err = r.users.Create(ctx, user)
	if err == nil {
		return user, nil
	}

	// Lost a create race, or the nickname collided with an existing
	// account. Re-read for the former; retry with a disambiguated nickname
	// for the latter.
	if errors.Is(err, auth.ErrDuplicateEmail) {
		return r.users.FindByEmail(ctx, email)
	}
	if errors.Is(err, auth.ErrDuplicateNickname) {
		user.Nickname = fmt.Sprintf("%s_%s", user.Nickname, identity.ProviderID)
		if err := r.users.Create(ctx, user); err != nil {
			return nil, fmt.Errorf("sso: failed to create federated account: %w", err)
		}
		return user, nil
	}
	return nil, fmt.Errorf("sso: failed to create federated account: %w", err)
}

func synthesizeEmail(identity *Identity) string {
	return identity.ProviderID + "@" + identity.Provider + fakeEmailDomainSuffix
}

func nicknameFor(identity *Identity, email string) string {
	if identity.Nickname != "" {
		return identity.Nickname
	}
	if at := strings.Index(email, "@"); at > 0 {
		return email[:at]
	}
	return identity.Provider + "_" + identity.ProviderID
}
