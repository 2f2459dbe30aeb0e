// Package auth resolves the caller's owner id from a request. Issuing and
// revoking credentials belong to an external identity provider.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrUnauthorized is returned when a request carries no usable identity.
var ErrUnauthorized = errors.New("unauthorized")

type ctxKey string

const ownerIDKey ctxKey = "owner_id"

// Authenticator extracts an owner id from a request.
type Authenticator interface {
	Authenticate(r *http.Request) (string, error)
}

// JWTAuthenticator accepts HS256 bearer tokens and uses the sub claim as the
// owner id.
type JWTAuthenticator struct {
	secret []byte
	now    func() time.Time
}

func NewJWTAuthenticator(secret string) *JWTAuthenticator {
	return &JWTAuthenticator{secret: []byte(secret), now: time.Now}
}

func (a *JWTAuthenticator) Authenticate(r *http.Request) (string, error) {
	h := r.Header.Get("Authorization")
	if h == "" || !strings.HasPrefix(h, "Bearer ") {
		return "", fmt.Errorf("%w: missing bearer token", ErrUnauthorized)
	}
	tokenStr := strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))

	token, err := jwt.ParseWithClaims(tokenStr, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil || !token.Valid {
		return "", fmt.Errorf("%w: invalid token", ErrUnauthorized)
	}

	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", fmt.Errorf("%w: token has no subject", ErrUnauthorized)
	}
	return sub, nil
}

// IssueToken signs an HS256 token for ownerID. A zero ttl yields a token
// without expiry.
func IssueToken(secret, ownerID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:  ownerID,
		IssuedAt: jwt.NewNumericDate(now),
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// HeaderAuthenticator trusts an owner id set by an upstream proxy.
type HeaderAuthenticator struct {
	header string
}

func NewHeaderAuthenticator(header string) *HeaderAuthenticator {
	return &HeaderAuthenticator{header: header}
}

func (a *HeaderAuthenticator) Authenticate(r *http.Request) (string, error) {
	owner := strings.TrimSpace(r.Header.Get(a.header))
	if owner == "" {
		return "", fmt.Errorf("%w: missing %s header", ErrUnauthorized, a.header)
	}
	return owner, nil
}

// New picks an authenticator for mode ("jwt" or "header").
func New(mode, secret, header string) (Authenticator, error) {
	switch mode {
	case "jwt":
		if secret == "" {
			return nil, errors.New("jwt auth requires a secret")
		}
		return NewJWTAuthenticator(secret), nil
	case "header":
		return NewHeaderAuthenticator(header), nil
	default:
		return nil, fmt.Errorf("unknown auth mode %q", mode)
	}
}

// Middleware stores the authenticated owner id in the request context and
// hands failures to onError.
func Middleware(a Authenticator, onError func(http.ResponseWriter, *http.Request, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			owner, err := a.Authenticate(r)
			if err != nil {
				onError(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithOwner(r.Context(), owner)))
		})
	}
}

func WithOwner(ctx context.Context, ownerID string) context.Context {
	return context.WithValue(ctx, ownerIDKey, ownerID)
}

// OwnerFromContext returns the owner id set by Middleware.
func OwnerFromContext(ctx context.Context) (string, error) {
	owner, ok := ctx.Value(ownerIDKey).(string)
	if !ok || owner == "" {
		return "", ErrUnauthorized
	}
	return owner, nil
}
