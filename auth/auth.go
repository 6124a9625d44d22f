// Package auth issues and verifies the bearer tokens protecting the API.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
)

const tokenLifetime = 30 * time.Minute

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")
)

// User is an account known to the service.
type User struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`

	// Password is never serialised.
	Password string `json:"-"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool { return u.Role == "admin" }

// Service signs tokens and resolves them back to users.
type Service struct {
	secret []byte
	users  map[string]*User
}

// NewService builds an auth service over a static user set.
func NewService(secret string, users []*User) *Service {
	byName := make(map[string]*User, len(users))
	for _, u := range users {
		byName[u.Username] = u
	}
	return &Service{secret: []byte(secret), users: byName}
}

// DefaultUsers returns the development account set.
func DefaultUsers() []*User {
	return []*User{
		{ID: 1, Username: "test", Email: "test@shadow-goose.com", Role: "admin", Password: "test"},
	}
}

// Users returns every known account.
func (s *Service) Users() []*User {
	out := make([]*User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	return out
}

// Login checks credentials and returns the user plus a signed token.
func (s *Service) Login(username, password string) (*User, string, error) {
	u, ok := s.users[username]
	if !ok || u.Password != password {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.issueToken(username)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

func (s *Service) issueToken(username string) (string, error) {
	claims := jwt.MapClaims{
		"sub": username,
		"exp": jwt.NewNumericDate(time.Now().Add(tokenLifetime)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", err
	}
	return signed, nil
}

// VerifyToken parses a signed token and returns the user it names.
func (s *Service) VerifyToken(raw string) (*User, error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	username, _ := claims["sub"].(string)
	if username == "" {
		return nil, ErrInvalidToken
	}

	u, ok := s.users[username]
	if !ok {
		return nil, ErrInvalidToken
	}
	return u, nil
}

type contextKey struct{}

// UserFromContext returns the authenticated user stored by Middleware.
func UserFromContext(ctx context.Context) (*User, bool) {
	u, ok := ctx.Value(contextKey{}).(*User)
	return u, ok
}

// Middleware rejects requests without a valid bearer token and stores the
// resolved user on the request context.
func (s *Service) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		raw, found := strings.CutPrefix(header, "Bearer ")
		if !found || raw == "" {
			unauthorized(w, "missing bearer token")
			return
		}

		u, err := s.VerifyToken(raw)
		if err != nil {
			log.Debug().Err(err).Msg("token verification failed")
			if errors.Is(err, ErrTokenExpired) {
				unauthorized(w, "token expired")
			} else {
				unauthorized(w, "invalid token")
			}
			return
		}

		ctx := context.WithValue(r.Context(), contextKey{}, u)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"` + message + `"}`))
}
