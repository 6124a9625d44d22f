package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService() *Service {
	return NewService("unit-test-secret", DefaultUsers())
}

func TestLoginAndVerify(t *testing.T) {
	svc := newTestService()

	user, token, err := svc.Login("test", "test")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.Equal(t, "test@shadow-goose.com", user.Email)
	assert.True(t, user.IsAdmin())

	resolved, err := svc.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.Username, resolved.Username)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc := newTestService()

	_, _, err := svc.Login("test", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = svc.Login("nobody", "test")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	svc := newTestService()

	_, err := svc.VerifyToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	other := NewService("a-different-secret", DefaultUsers())
	_, token, err := other.Login("test", "test")
	require.NoError(t, err)

	_, err = newTestService().VerifyToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	svc := newTestService()

	claims := jwt.MapClaims{
		"sub": "test",
		"exp": jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).
		SignedString([]byte("unit-test-secret"))
	require.NoError(t, err)

	_, err = svc.VerifyToken(expired)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestVerifyRejectsUnknownSubject(t *testing.T) {
	svc := newTestService()

	claims := jwt.MapClaims{
		"sub": "ghost",
		"exp": jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).
		SignedString([]byte("unit-test-secret"))
	require.NoError(t, err)

	_, err = svc.VerifyToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestMiddleware(t *testing.T) {
	svc := newTestService()

	var seen *User
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, ok := UserFromContext(r.Context())
		require.True(t, ok)
		seen = u
		w.WriteHeader(http.StatusOK)
	})
	handler := svc.Middleware(next)

	t.Run("valid token", func(t *testing.T) {
		_, token, err := svc.Login("test", "test")
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, seen)
		assert.Equal(t, "test", seen.Username)
	})

	t.Run("missing header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("malformed token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer junk")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.JSONEq(t, `{"error":"invalid token"}`, rec.Body.String())
	})
}
