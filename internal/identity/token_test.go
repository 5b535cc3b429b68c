package identity

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signHS256(t *testing.T, secret string, claims jwt.RegisteredClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestJWTVerifierReturnsSubject(t *testing.T) {
	verifier := NewJWTVerifier("handshake-secret")
	token := signHS256(t, "handshake-secret", jwt.RegisteredClaims{
		Subject:   "user-42",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})

	subject, err := verifier.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-42", subject)
}

func TestJWTVerifierRejectsWrongSecret(t *testing.T) {
	verifier := NewJWTVerifier("handshake-secret")
	token := signHS256(t, "some-other-secret", jwt.RegisteredClaims{Subject: "user-42"})

	_, err := verifier.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTVerifierRejectsExpiredToken(t *testing.T) {
	verifier := NewJWTVerifier("handshake-secret")
	token := signHS256(t, "handshake-secret", jwt.RegisteredClaims{
		Subject:   "user-42",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	})

	_, err := verifier.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTVerifierRejectsMissingSubject(t *testing.T) {
	verifier := NewJWTVerifier("handshake-secret")
	token := signHS256(t, "handshake-secret", jwt.RegisteredClaims{})

	_, err := verifier.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTVerifierRejectsEmptyAndGarbageTokens(t *testing.T) {
	verifier := NewJWTVerifier("handshake-secret")

	_, err := verifier.Verify("")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = verifier.Verify("not.a.jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTVerifierRejectsUnsignedToken(t *testing.T) {
	verifier := NewJWTVerifier("handshake-secret")
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone,
		jwt.RegisteredClaims{Subject: "user-42"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
