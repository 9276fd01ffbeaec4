package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims mirrors the access tokens issued by the identity platform.
type Claims struct {
	Email        string       `json:"email,omitempty"`
	UserMetadata UserMetadata `json:"user_metadata,omitempty"`
	jwt.RegisteredClaims
}

type UserMetadata struct {
	Name string `json:"name,omitempty"`
}

var errNoSubject = errors.New("token has no subject")

// Issue signs claims with HS256. The API never issues tokens itself; this is
// used by the seeder and tests to mint platform-compatible tokens.
func Issue(secret string, c Claims) (string, error) {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := tok.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// NewClaims fills the registered claims for a token valid for ttl.
func NewClaims(identityID, tokenID, email, name string, now time.Time, ttl time.Duration) Claims {
	return Claims{
		Email:        email,
		UserMetadata: UserMetadata{Name: name},
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identityID,
			ID:        tokenID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
}

func parse(secret []byte, raw string, now func() time.Time) (*Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(now),
	)
	if err != nil {
		return nil, err
	}
	if claims.Subject == "" {
		return nil, errNoSubject
	}
	return &claims, nil
}
