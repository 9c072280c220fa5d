package sso

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teamace/ballshop/pkg/auth"
)

type fakeDirectory struct {
	byEmail map[string]*auth.User
	nextID  int64
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{byEmail: map[string]*auth.User{}}
}

func (f *fakeDirectory) FindByEmail(_ context.Context, email string) (*auth.User, error) {
	if u, ok := f.byEmail[email]; ok {
		return u, nil
	}
	return nil, auth.ErrUserNotFound
}

func (f *fakeDirectory) Create(_ context.Context, user *auth.User) error {
	if _, ok := f.byEmail[user.Email]; ok {
		return auth.ErrDuplicateEmail
	}
	for _, u := range f.byEmail {
		if u.Nickname == user.Nickname {
			return auth.ErrDuplicateNickname
		}
	}
	f.nextID++
	user.ID = f.nextID
	f.byEmail[user.Email] = user
	return nil
}

func TestReconciler_CreatesOnFirstLogin(t *testing.T) {
	dir := newFakeDirectory()
	rec := NewReconciler(dir)

	user, err := rec.FindOrCreate(context.Background(), &Identity{
		Provider:   ProviderKakao,
		ProviderID: "12345",
		Email:      "k@kakao.test",
		Nickname:   "slugger",
	})
	require.NoError(t, err)
	assert.Equal(t, "k@kakao.test", user.Email)
	assert.Equal(t, "slugger", user.Nickname)
	assert.Equal(t, auth.RoleUser, user.Role)
	assert.Equal(t, ProviderKakao, user.Provider)
	assert.True(t, user.Federated())
}

func TestReconciler_Idempotent(t *testing.T) {
	dir := newFakeDirectory()
	rec := NewReconciler(dir)
	identity := &Identity{Provider: ProviderNaver, ProviderID: "n1", Email: "n@naver.test", Nickname: "c"}

	first, err := rec.FindOrCreate(context.Background(), identity)
	require.NoError(t, err)

	// The provider now reports a different nickname; the stored account is
	// returned untouched.
	identity.Nickname = "renamed"
	second, err := rec.FindOrCreate(context.Background(), identity)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "c", second.Nickname)
}

func TestReconciler_SynthesizesMissingEmail(t *testing.T) {
	dir := newFakeDirectory()
	rec := NewReconciler(dir)

	user, err := rec.FindOrCreate(context.Background(), &Identity{
		Provider:   ProviderKakao,
		ProviderID: "999",
		Nickname:   "noemail",
	})
	require.NoError(t, err)
	assert.Equal(t, "999@kakao.oauth.fakeemail.local", user.Email)

	// Repeat login with the same identity maps to the same account.
	again, err := rec.FindOrCreate(context.Background(), &Identity{
		Provider:   ProviderKakao,
		ProviderID: "999",
		Nickname:   "noemail",
	})
	require.NoError(t, err)
	assert.Equal(t, user.ID, again.ID)
}

func TestReconciler_NicknameCollisionRetries(t *testing.T) {
	dir := newFakeDirectory()
	require.NoError(t, dir.Create(context.Background(), &auth.User{
		Email: "taken@x.com", Nickname: "slugger", Role: auth.RoleUser,
	}))

	rec := NewReconciler(dir)
	user, err := rec.FindOrCreate(context.Background(), &Identity{
		Provider:   ProviderKakao,
		ProviderID: "12345",
		Email:      "k@kakao.test",
		Nickname:   "slugger",
	})
	require.NoError(t, err)
	assert.Equal(t, "slugger_12345", user.Nickname)
}

func TestReconciler_RejectsMissingProviderID(t *testing.T) {
	rec := NewReconciler(newFakeDirectory())

	_, err := rec.FindOrCreate(context.Background(), &Identity{Provider: ProviderKakao})
	var missing *AttributeMissingError
	require.ErrorAs(t, err, &missing)
}
