package identity

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidBearer = errors.New("invalid bearer token")

// BearerClaims are the JWT claims the platform identity service puts into
// access tokens. Only the subject (account id) is trusted for lookups; the
// rest is informational.
type BearerClaims struct {
	Email string `json:"email,omitempty"`
	Role  Role   `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// BearerVerifier validates HMAC-signed access tokens issued by the platform.
type BearerVerifier struct {
	secret []byte
}

// NewBearerVerifier creates a verifier for the given shared secret.
func NewBearerVerifier(secret string) *BearerVerifier {
	return &BearerVerifier{secret: []byte(secret)}
}

// Verify parses and validates a bearer token, returning its claims.
// Any parse, signature, or expiry failure yields ErrInvalidBearer.
func (v *BearerVerifier) Verify(tokenString string) (*BearerClaims, error) {
	if len(v.secret) == 0 {
		return nil, ErrInvalidBearer
	}

	token, err := jwt.ParseWithClaims(tokenString, &BearerClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidBearer
	}

	claims, ok := token.Claims.(*BearerClaims)
	if !ok || claims.Subject == "" {
		return nil, ErrInvalidBearer
	}
	return claims, nil
}

// Issue signs a bearer token for an account. Used by tests and by the dev
// mode bootstrap; production tokens come from the platform identity service.
func (v *BearerVerifier) Issue(account *Account, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &BearerClaims{
		Email: account.Email,
		Role:  account.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   string(account.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
