// Package auth turns bearer tokens into the Principal the settlement engine acts for
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/gamevault-settlement/internal/domain/shared"
)

// ErrInvalidToken covers every reason a bearer token is refused
var ErrInvalidToken = errors.New("invalid token")

type contextKey string

const principalContextKey contextKey = "principal"

// Claims are the token claims issued by the account service
type Claims struct {
	IsAdmin bool `json:"is_admin"`
	jwt.RegisteredClaims
}

// JWTVerifier validates HS256 tokens
type JWTVerifier struct {
	secret []byte
	leeway time.Duration
}

// NewJWTVerifier creates a verifier for tokens signed with secret
func NewJWTVerifier(secret string, leeway time.Duration) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret), leeway: leeway}
}

// Verify parses tokenString and returns the principal in its subject
func (v *JWTVerifier) Verify(tokenString string) (shared.Principal, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(v.leeway),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !tok.Valid {
		return shared.Principal{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	accountID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return shared.Principal{}, fmt.Errorf("%w: subject is not an account id", ErrInvalidToken)
	}

	return shared.Principal{AccountID: accountID, IsAdmin: claims.IsAdmin}, nil
}

// WithPrincipal stores p in ctx
func WithPrincipal(ctx context.Context, p shared.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, p)
}

// PrincipalFromContext returns the principal stored by WithPrincipal
func PrincipalFromContext(ctx context.Context) (shared.Principal, bool) {
	p, ok := ctx.Value(principalContextKey).(shared.Principal)
	return p, ok
}
