package auth

import (
	"errors"
	"os"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/rfachrizal/mutabaah/internal/model"
)

const tokenTTL = 30 * 24 * time.Hour

type Claims struct {
	Role     string `json:"role"`
	ClassTag string `json:"class,omitempty"`
	jwt.RegisteredClaims
}

func secret() []byte {
	s := os.Getenv("MUTABAAH_JWT_SECRET")
	if s == "" {
		s = "mutabaah-dev-secret"
	}
	return []byte(s)
}

// SignToken mints a bearer token for an identity. Sessions are long-lived
// because the app is used daily for a month from shared devices with no
// refresh flow.
func SignToken(id Identity) (string, error) {
	now := time.Now()
	claims := Claims{
		Role:     string(id.Role),
		ClassTag: id.ClassTag,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret())
}

// ParseToken validates a bearer token and recovers the identity it encodes.
func ParseToken(tok string) (Identity, error) {
	t, err := jwt.ParseWithClaims(tok, &Claims{}, func(token *jwt.Token) (interface{}, error) { return secret(), nil })
	if err != nil {
		return Identity{}, err
	}
	c, ok := t.Claims.(*Claims)
	if !ok || !t.Valid {
		return Identity{}, errors.New("invalid token")
	}
	return Identity{ID: c.Subject, Role: model.Role(c.Role), ClassTag: c.ClassTag}, nil
}
