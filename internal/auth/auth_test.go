package auth

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, secret, subject string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Name: "Test User",
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestVerify(t *testing.T) {
	v := NewVerifier("s3cret")

	claims, err := v.Verify(signToken(t, "s3cret", "alice"))
	require.NoError(t, err)
	require.Equal(t, "alice", claims.Subject)

	// Bearer prefix is tolerated.
	claims, err = v.Verify("Bearer " + signToken(t, "s3cret", "alice"))
	require.NoError(t, err)
	require.Equal(t, "alice", claims.Subject)
}

func TestVerifyRejectsBadTokens(t *testing.T) {
	v := NewVerifier("s3cret")

	_, err := v.Verify("")
	require.Error(t, err)

	_, err = v.Verify(signToken(t, "wrong-secret", "alice"))
	require.Error(t, err)

	_, err = v.Verify(signToken(t, "s3cret", ""))
	require.Error(t, err)
}

func TestExtractTokenFromRequest(t *testing.T) {
	r := httptest.NewRequest("GET", "/ws/lobby?token=abc", nil)
	require.Equal(t, "abc", ExtractTokenFromRequest(r))

	r = httptest.NewRequest("GET", "/ws/lobby", nil)
	r.Header.Set("Authorization", "Bearer xyz")
	require.Equal(t, "xyz", ExtractTokenFromRequest(r))

	r = httptest.NewRequest("GET", "/ws/lobby", nil)
	require.Empty(t, ExtractTokenFromRequest(r))
}
