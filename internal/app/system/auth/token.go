package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/clubhub/internal/domain/models"
	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DefaultTokenTTL is the lifetime of an issued bearer token.
const DefaultTokenTTL = 24 * time.Hour

// MinSecretLen is the shortest HS256 secret accepted.
const MinSecretLen = 32

// ErrInvalidToken is returned for malformed, expired, or badly signed tokens.
var ErrInvalidToken = errors.New("invalid token")

// Claims is the payload of a bearer token.
type Claims struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies HS256 bearer tokens.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer builds an issuer. A zero ttl means DefaultTokenTTL.
func NewTokenIssuer(secret string, ttl time.Duration) (*TokenIssuer, error) {
	if len(secret) < MinSecretLen {
		return nil, fmt.Errorf("jwt secret must be at least %d characters", MinSecretLen)
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// Issue returns a signed token for u and its expiry.
func (ti *TokenIssuer) Issue(id primitive.ObjectID, email string, role models.Role) (string, time.Time, error) {
	now := ti.now().UTC()
	exp := now.Add(ti.ttl)
	claims := Claims{
		ID:    id.Hex(),
		Email: email,
		Role:  string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.Hex(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(ti.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Parse verifies raw and returns its claims.
func (ti *TokenIssuer) Parse(raw string) (*Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		return ti.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(ti.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if _, err := primitive.ObjectIDFromHex(claims.ID); err != nil {
		return nil, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}
	return &claims, nil
}

// UserID returns the token's user id.
func (c *Claims) UserID() primitive.ObjectID {
	id, _ := primitive.ObjectIDFromHex(c.ID)
	return id
}

// WithClock returns a copy of ti that reads the time from now.
func (ti *TokenIssuer) WithClock(now func() time.Time) *TokenIssuer {
	cp := *ti
	cp.now = now
	return &cp
}
