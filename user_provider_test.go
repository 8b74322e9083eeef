package authapi_test

import (
	"context"
	"testing"

	authapi "github.com/goliatone/go-auth-api"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubUserStore struct {
	users map[string]*authapi.User
}

func (s *stubUserStore) GetByIdentifier(_ context.Context, identifier string, _ ...repository.SelectCriteria) (*authapi.User, error) {
	if user, ok := s.users[identifier]; ok {
		return user, nil
	}
	return nil, repository.NewRecordNotFound()
}

func TestUserProvider_VerifyIdentity(t *testing.T) {
	hash, err := authapi.HashPassword("secret1")
	require.NoError(t, err)

	user := &authapi.User{
		ID:           uuid.New(),
		Name:         "Ann",
		Email:        "ann@x.com",
		PasswordHash: hash,
	}

	store := &stubUserStore{users: map[string]*authapi.User{"ann@x.com": user}}
	provider := authapi.NewUserProvider(store)

	t.Run("returns the identity for valid credentials", func(t *testing.T) {
		identity, err := provider.VerifyIdentity(context.Background(), "ann@x.com", "secret1")
		require.NoError(t, err)
		assert.Equal(t, user.ID.String(), identity.ID())
		assert.Equal(t, "ann@x.com", identity.Email())
		assert.Equal(t, "Ann", identity.Name())
	})

	t.Run("wrong password maps to credential mismatch", func(t *testing.T) {
		_, err := provider.VerifyIdentity(context.Background(), "ann@x.com", "wrong")
		assert.ErrorIs(t, err, authapi.ErrMismatchedHashAndPassword)
	})

	t.Run("unknown user maps to credential mismatch", func(t *testing.T) {
		// Same error as a bad password so callers cannot probe for accounts.
		_, err := provider.VerifyIdentity(context.Background(), "nobody@x.com", "secret1")
		assert.ErrorIs(t, err, authapi.ErrMismatchedHashAndPassword)
	})
}

func TestUserProvider_FindIdentityByIdentifier(t *testing.T) {
	user := &authapi.User{
		ID:    uuid.New(),
		Name:  "Ann",
		Email: "ann@x.com",
	}

	store := &stubUserStore{users: map[string]*authapi.User{user.ID.String(): user}}
	provider := authapi.NewUserProvider(store)

	t.Run("finds identity by id", func(t *testing.T) {
		identity, err := provider.FindIdentityByIdentifier(context.Background(), user.ID.String())
		require.NoError(t, err)
		assert.Equal(t, user.Email, identity.Email())
	})

	t.Run("propagates not found", func(t *testing.T) {
		_, err := provider.FindIdentityByIdentifier(context.Background(), uuid.NewString())
		assert.Error(t, err)
	})
}
