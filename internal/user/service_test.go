package user

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/wesavefood/wesavefood/internal/domain"
	"github.com/wesavefood/wesavefood/internal/logger"
	pkgErrors "github.com/wesavefood/wesavefood/pkg/errors"
)

type fakeUserRepo struct {
	users   map[string]domain.User
	byPhone map[string]string
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		users:   make(map[string]domain.User),
		byPhone: make(map[string]string),
	}
}

func (f *fakeUserRepo) List(_ context.Context) ([]domain.User, error) {
	out := make([]domain.User, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, u)
	}
	return out, nil
}

func (f *fakeUserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	if u, ok := f.users[id]; ok {
		return &u, nil
	}
	return nil, nil
}

func (f *fakeUserRepo) FindByPhone(_ context.Context, phone string) (*domain.User, error) {
	if id, ok := f.byPhone[phone]; ok {
		u := f.users[id]
		return &u, nil
	}
	return nil, nil
}

func (f *fakeUserRepo) Store(_ context.Context, user domain.User) error {
	if _, ok := f.users[user.ID]; ok {
		return domain.ErrDuplicate
	}
	f.users[user.ID] = user
	f.byPhone[user.Phone] = user.ID
	return nil
}

func (f *fakeUserRepo) Update(_ context.Context, id string, fields domain.Document) error {
	u, ok := f.users[id]
	if !ok {
		return domain.ErrNotFound
	}
	if name, ok := fields["name"].(string); ok {
		u.Name = name
	}
	f.users[id] = u
	return nil
}

func (f *fakeUserRepo) UpdatePreferences(_ context.Context, id string, prefs domain.Preferences) error {
	u, ok := f.users[id]
	if !ok {
		return domain.ErrNotFound
	}
	u.Preferences = prefs
	f.users[id] = u
	return nil
}

func (f *fakeUserRepo) UpdateAPITokenHash(_ context.Context, id string, hash string) error {
	u, ok := f.users[id]
	if !ok {
		return domain.ErrNotFound
	}
	u.APITokenHash = hash
	f.users[id] = u
	return nil
}

func (f *fakeUserRepo) Delete(_ context.Context, id string) error {
	u, ok := f.users[id]
	if !ok {
		return domain.ErrNotFound
	}
	delete(f.byPhone, u.Phone)
	delete(f.users, id)
	return nil
}

func testLogger() logger.Logger {
	return logger.Mock()
}

func TestService_FindOrCreateByPhone_CreatesNewUser(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewService(repo, testLogger())

	u, err := svc.FindOrCreateByPhone(context.Background(), "+998 90 123 45 67")
	require.NoError(t, err)
	require.NotNil(t, u)

	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "+998 90 123 45 67", u.Phone)
	assert.Equal(t, domain.ProfileTypeClient, u.ProfileType)
	assert.True(t, u.Preferences.Notifications)
	assert.Equal(t, 10.0, u.Preferences.MaxDistance)
}

func TestService_FindOrCreateByPhone_ReturnsExisting(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewService(repo, testLogger())

	first, err := svc.FindOrCreateByPhone(context.Background(), "+998 90 123 45 67")
	require.NoError(t, err)

	second, err := svc.FindOrCreateByPhone(context.Background(), "+998 90 123 45 67")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, repo.users, 1)
}

func TestService_UpdateProfile_FiltersFields(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewService(repo, testLogger())

	u, err := svc.FindOrCreateByPhone(context.Background(), "+998 90 123 45 67")
	require.NoError(t, err)

	err = svc.UpdateProfile(context.Background(), u.ID, domain.Document{
		"name":  "Aziz",
		"phone": "+998 99 999 99 99",
		"id":    "evil",
	})
	require.NoError(t, err)

	stored := repo.users[u.ID]
	assert.Equal(t, "Aziz", stored.Name)
	assert.Equal(t, "+998 90 123 45 67", stored.Phone)
}

func TestService_UpdateProfile_NoUpdatableFields(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewService(repo, testLogger())

	err := svc.UpdateProfile(context.Background(), "some-id", domain.Document{"phone": "x"})
	assert.Error(t, err)
}

func TestService_ResetAndRetrieveAPIToken(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewService(repo, testLogger())

	u, err := svc.FindOrCreateByPhone(context.Background(), "+998 90 123 45 67")
	require.NoError(t, err)

	plain, err := svc.ResetAndRetrieveAPIToken(context.Background(), u.ID)
	require.NoError(t, err)
	require.NotEmpty(t, plain)

	stored := repo.users[u.ID]
	require.NotEmpty(t, stored.APITokenHash)
	assert.NotEqual(t, plain, stored.APITokenHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.APITokenHash), []byte(plain)))
}

func TestService_AuthenticateByToken(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewService(repo, testLogger())

	u, err := svc.FindOrCreateByPhone(context.Background(), "+998 90 123 45 67")
	require.NoError(t, err)

	plain, err := svc.ResetAndRetrieveAPIToken(context.Background(), u.ID)
	require.NoError(t, err)

	authed, err := svc.AuthenticateByToken(context.Background(), plain)
	require.NoError(t, err)
	assert.Equal(t, u.ID, authed.ID)

	_, err = svc.AuthenticateByToken(context.Background(), "not-a-token")
	assert.True(t, pkgErrors.Is(err, ErrAuthenticationFailed))

	_, err = svc.AuthenticateByToken(context.Background(), "")
	assert.True(t, pkgErrors.Is(err, ErrAuthenticationFailed))
}
