package utils // package utils provides helper functions for token creation and hashing

import (
	"errors"  // sentinel errors for token verification
	"strconv" // subject claim is the decimal viewer id
	"time"    // time utilities for generating expirations

	"github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
)

// DefaultTokenTTL is how long a session token stays valid when no TTL is
// configured.
const DefaultTokenTTL = 7 * 24 * time.Hour

// ErrInvalidToken is returned for any token that fails verification:
// malformed, wrongly signed, signed with another algorithm, or expired.
var ErrInvalidToken = errors.New("invalid or expired token")

// SessionClaims is the payload of a session token. Role is a snapshot taken
// at issue time and is informational only; authorization re-reads the role
// from storage.
type SessionClaims struct {
	ViewerID uint64 `json:"viewerId"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// AccessToken represents a signed session token along with its expiry.
type AccessToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// NewAccessToken builds and signs an HS256 JWT binding the viewer id,
// email and role. The subject (sub) carries the id as well so generic
// tooling can read it.
func NewAccessToken(secret string, viewerID uint64, email, role string, ttl time.Duration) (AccessToken, error) {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	now := time.Now().UTC()
	exp := now.Add(ttl)
	claims := SessionClaims{
		ViewerID: viewerID,
		Email:    email,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(viewerID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	// Sign the token with the provided secret and obtain the string form.
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

// ParseAccessToken verifies raw against secret and returns its claims. Only
// HS256 is accepted and an expiry is required.
func ParseAccessToken(secret, raw string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || !tok.Valid || claims.ViewerID == 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
