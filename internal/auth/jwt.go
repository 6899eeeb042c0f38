package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"fleetkeys/internal/models"
)

// Sign issues an HS256 token for one session. The jti ties the token to a
// Session row so logout can revoke it server-side.
func Sign(secret []byte, userID string, role models.Role, jti string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  userID,
		"role": string(role),
		"jti":  jti,
		"exp":  now.Add(ttl).Unix(),
		"iat":  now.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// Verify parses and validates a token. Tampered or expired tokens fail here;
// revocation is checked against the Session row by the middleware.
func Verify(secret []byte, tokenStr string) (Claims, error) {
	tok, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !tok.Valid {
		return Claims{}, errors.New("invalid token")
	}
	mapc, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, errors.New("invalid claims")
	}
	sub, _ := mapc["sub"].(string)
	role, _ := mapc["role"].(string)
	jti, _ := mapc["jti"].(string)
	if sub == "" || jti == "" || !models.Role(role).Valid() {
		return Claims{}, errors.New("incomplete claims")
	}
	return Claims{Subject: sub, Role: models.Role(role), JWTID: jti}, nil
}
