package utils

import (
	"errors"
	"time"

	"sessionbook/models"

	"github.com/golang-jwt/jwt"
)

var ErrInvalidToken = errors.New("invalid token")

// ActorClaims carries the caller identity. Tokens are issued elsewhere; this service only reads them.
type ActorClaims struct {
	Role string `json:"role"`
	jwt.StandardClaims
}

// GenerateToken signs an HS256 token for subject acting in role. Used by tooling and tests.
func GenerateToken(secret, subject string, role models.Role, duration time.Duration) (string, error) {
	now := time.Now()
	claims := ActorClaims{
		Role: string(role),
		StandardClaims: jwt.StandardClaims{
			Subject:   subject,
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(duration).Unix(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ValidateToken parses and validates a token string and returns its claims if valid.
func ValidateToken(secret, tokenString string) (*ActorClaims, error) {
	if secret == "" {
		return nil, ErrInvalidToken
	}
	claims := &ActorClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		// Ensure that the token's signing method is HMAC.
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ActorFromToken extracts the caller identity from a valid token.
func ActorFromToken(secret, tokenString string) (models.Actor, error) {
	claims, err := ValidateToken(secret, tokenString)
	if err != nil {
		return models.Actor{}, err
	}
	role := models.Role(claims.Role)
	if claims.Subject == "" || !role.Valid() {
		return models.Actor{}, errors.New("token does not carry a valid subject and role")
	}
	return models.Actor{ID: claims.Subject, Role: role}, nil
}
