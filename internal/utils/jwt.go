package utils // package utils provides helpers for the admin gate token and secret compare

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// GateToken is the signed token handed out after the shared-secret
// compare succeeds.  It only transports the gate result so the secret
// is not re-sent on every admin call; there are no users, roles beyond
// ADMIN, or refresh tokens behind it.
type GateToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// NewGateToken builds and signs a short-lived HS256 token carrying the
// ADMIN role claim.
func NewGateToken(secret string, ttl time.Duration) (GateToken, error) {
	now := time.Now().UTC()
	exp := now.Add(ttl)
	claims := jwt.MapClaims{
		"role": "ADMIN",
		"exp":  exp.Unix(),
		"iat":  now.Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return GateToken{}, err
	}
	return GateToken{Token: signed, Exp: exp}, nil
}

// VerifyGateToken parses a token string and reports whether it is a
// valid, unexpired admin gate token signed with the given secret.
func VerifyGateToken(secret, raw string) error {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid {
		return errors.New("invalid token")
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return errors.New("invalid claims")
	}
	if role, _ := claims["role"].(string); role != "ADMIN" {
		return errors.New("not an admin token")
	}
	return nil
}
