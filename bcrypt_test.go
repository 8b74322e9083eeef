package authapi_test

import (
	"strings"
	"testing"

	authapi "github.com/goliatone/go-auth-api"
	"github.com/stretchr/testify/assert"
)

func TestHashPassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{
			name:     "Valid password",
			password: "securePassword123!",
			wantErr:  false,
		},
		{
			name:     "Empty password",
			password: "",
			wantErr:  true, // bcrypt can hash empty strings!
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := authapi.HashPassword(tt.password)

			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			assert.NoError(t, err)
			assert.NotEmpty(t, hash)

			err = authapi.ComparePasswordAndHash(tt.password, hash)
			assert.NoError(t, err)
		})
	}
}

func TestComparePasswordAndHash(t *testing.T) {
	password := "testPassword123!"
	hash, err := authapi.HashPassword(password)
	assert.NoError(t, err)

	tests := []struct {
		name     string
		password string
		hash     string
		wantErr  bool
	}{
		{
			name:     "Matching password",
			password: password,
			hash:     hash,
			wantErr:  false,
		},
		{
			name:     "Wrong password",
			password: "wrongPassword",
			hash:     hash,
			wantErr:  true,
		},
		{
			name:     "Invalid hash",
			password: password,
			hash:     "invalidhash",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := authapi.ComparePasswordAndHash(tt.password, tt.hash)

			if tt.wantErr {
				assert.Error(t, err)
				if tt.hash == hash {
					assert.Equal(t, authapi.ErrMismatchedHashAndPassword, err)
				}
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRandomPassword(t *testing.T) {
	t.Run("generates passwords of the requested length", func(t *testing.T) {
		pwd, err := authapi.RandomPassword(6)
		assert.NoError(t, err)
		assert.Len(t, pwd, 6)
	})

	t.Run("two passwords differ", func(t *testing.T) {
		a, err := authapi.RandomPassword(12)
		assert.NoError(t, err)
		b, err := authapi.RandomPassword(12)
		assert.NoError(t, err)
		assert.NotEqual(t, a, b)
	})

	t.Run("only uses unambiguous characters", func(t *testing.T) {
		pwd, err := authapi.RandomPassword(64)
		assert.NoError(t, err)
		for _, r := range pwd {
			assert.False(t, strings.ContainsRune("0O1lI", r), "found ambiguous character %q", r)
		}
	})

	t.Run("rejects non positive length", func(t *testing.T) {
		_, err := authapi.RandomPassword(0)
		assert.Error(t, err)
	})
}
