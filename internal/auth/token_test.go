package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"go-user-api/internal/model"
)

func newTestIssuer(t *testing.T, secret string) *TokenIssuer {
	t.Helper()

	issuer, err := NewTokenIssuer(secret, 10*time.Minute, "go-user-api")
	require.NoError(t, err)
	return issuer
}

func TestTokenIssuerRoundTrip(t *testing.T) {
	t.Parallel()

	issuer := newTestIssuer(t, "test-secret")

	token, err := issuer.Issue(model.SessionClaims{UserID: 42, Email: "a@x.com"})
	require.NoError(t, err)
	require.Equal(t, "Bearer", token.TokenType)
	require.Equal(t, int64(600), token.ExpiresIn)

	claims, err := issuer.Verify(token.AccessToken)
	require.NoError(t, err)
	require.Equal(t, int64(42), claims.UserID)
	require.Equal(t, "a@x.com", claims.Email)
	require.NotEmpty(t, claims.TokenID)
	require.WithinDuration(t, claims.IssuedAt.Add(10*time.Minute), claims.ExpiresAt, time.Second)
}

func TestTokenIssuerExpiry(t *testing.T) {
	t.Parallel()

	issuer := newTestIssuer(t, "test-secret")
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	issuer.SetClock(func() time.Time { return base })

	token, err := issuer.Issue(model.SessionClaims{UserID: 1, Email: "a@x.com"})
	require.NoError(t, err)

	issuer.SetClock(func() time.Time { return base.Add(9 * time.Minute) })
	_, err = issuer.Verify(token.AccessToken)
	require.NoError(t, err)

	issuer.SetClock(func() time.Time { return base.Add(10*time.Minute + time.Second) })
	_, err = issuer.Verify(token.AccessToken)
	require.ErrorIs(t, err, model.ErrTokenExpired)
}

func TestTokenIssuerRejectsForeignSignature(t *testing.T) {
	t.Parallel()

	token, err := newTestIssuer(t, "right-secret").Issue(model.SessionClaims{UserID: 1, Email: "a@x.com"})
	require.NoError(t, err)

	_, err = newTestIssuer(t, "wrong-secret").Verify(token.AccessToken)
	require.ErrorIs(t, err, model.ErrTokenInvalidSignature)
}

func TestTokenIssuerRejectsMalformed(t *testing.T) {
	t.Parallel()

	issuer := newTestIssuer(t, "test-secret")

	for _, raw := range []string{"", "garbage", "not.a.jwt", "a.b"} {
		_, err := issuer.Verify(raw)
		require.ErrorIs(t, err, model.ErrTokenMalformed, raw)
	}
}

func TestTokenIssuerRejectsNoneAlgorithm(t *testing.T) {
	t.Parallel()

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub":   "1",
		"email": "a@x.com",
		"iss":   "go-user-api",
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
	raw, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = newTestIssuer(t, "test-secret").Verify(raw)
	require.ErrorIs(t, err, model.ErrTokenInvalidSignature)
}

func TestTokenIssuerRejectsNonNumericSubject(t *testing.T) {
	t.Parallel()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "alice",
		"iss": "go-user-api",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	raw, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = newTestIssuer(t, "test-secret").Verify(raw)
	require.ErrorIs(t, err, model.ErrTokenMalformed)
}

func TestTokenIssuerRejectsOtherIssuer(t *testing.T) {
	t.Parallel()

	other, err := NewTokenIssuer("test-secret", time.Minute, "someone-else")
	require.NoError(t, err)
	token, err := other.Issue(model.SessionClaims{UserID: 1, Email: "a@x.com"})
	require.NoError(t, err)

	_, err = newTestIssuer(t, "test-secret").Verify(token.AccessToken)
	require.ErrorIs(t, err, model.ErrTokenInvalid)
}

func TestNewTokenIssuerRequiresSecret(t *testing.T) {
	t.Parallel()

	_, err := NewTokenIssuer("   ", time.Minute, "")
	require.Error(t, err)

	issuer, err := NewTokenIssuer("s", 0, "")
	require.NoError(t, err)
	require.Equal(t, DefaultAccessTTL, issuer.TTL())

	_, err = issuer.Issue(model.SessionClaims{UserID: 0})
	require.ErrorIs(t, err, model.ErrInvalidInput)
}
