package model

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestRegisterRequestValidate(t *testing.T) {
	t.Parallel()

	t.Run("accepts a complete payload", func(t *testing.T) {
		req := RegisterRequest{Email: "a@x.com", Username: "a", Password: "pw"}
		require.NoError(t, req.Validate())
	})

	t.Run("rejects missing fields", func(t *testing.T) {
		err := RegisterRequest{}.Validate()
		require.Error(t, err)
		require.Contains(t, err.Error(), "email")
		require.Contains(t, err.Error(), "username")
		require.Contains(t, err.Error(), "password")
	})

	t.Run("rejects malformed email", func(t *testing.T) {
		err := RegisterRequest{Email: "not-an-email", Username: "a", Password: "pw"}.Validate()
		require.Error(t, err)
		require.Contains(t, err.Error(), "email")
	})

	t.Run("rejects whitespace-only username", func(t *testing.T) {
		err := RegisterRequest{Email: "a@x.com", Username: " \t ", Password: "pw"}.Validate()
		require.Error(t, err)
		require.Contains(t, err.Error(), "username")
	})

	t.Run("rejects passwords bcrypt would truncate", func(t *testing.T) {
		err := RegisterRequest{Email: "a@x.com", Username: "a", Password: strings.Repeat("x", 73)}.Validate()
		require.Error(t, err)
		require.Contains(t, err.Error(), "password")
	})
}

func TestUpdateUserRequestValidate(t *testing.T) {
	t.Parallel()

	require.True(t, UpdateUserRequest{}.IsEmpty())
	require.NoError(t, UpdateUserRequest{Username: strPtr("renamed")}.Validate())
	require.Error(t, UpdateUserRequest{Email: strPtr("")}.Validate())
	require.Error(t, UpdateUserRequest{Username: strPtr("\t")}.Validate())
	require.Error(t, UpdateUserRequest{Username: strPtr("   ")}.Validate())
	require.Error(t, UpdateUserRequest{Email: strPtr("nope")}.Validate())
	require.Error(t, UpdateUserRequest{Password: strPtr(strings.Repeat("p", 100))}.Validate())
}

func TestLoginRequestValidate(t *testing.T) {
	t.Parallel()

	require.NoError(t, LoginRequest{Email: "a@x.com", Password: "pw"}.Validate())
	require.Error(t, LoginRequest{Email: "a@x.com"}.Validate())
}

func TestUserPatchApply(t *testing.T) {
	t.Parallel()

	u := User{ID: 1, Email: "a@x.com", Username: "a", PasswordHash: "old"}
	patch := UserPatch{Username: strPtr("b"), PasswordHash: strPtr("new")}
	require.False(t, patch.IsEmpty())

	patch.Apply(&u, u.CreatedAt)
	require.Equal(t, "a@x.com", u.Email)
	require.Equal(t, "b", u.Username)
	require.Equal(t, "new", u.PasswordHash)
}

func TestNormalizeEmail(t *testing.T) {
	t.Parallel()

	require.Equal(t, "a@x.com", NormalizeEmail("  A@X.com "))
	require.True(t, FieldEmail.Valid())
	require.False(t, UserField("password_hash").Valid())
}
