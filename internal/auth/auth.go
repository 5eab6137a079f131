package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

type Authenticator interface {
	GenerateAccessToken(userID int64, roles []string) (token string, expiresAt time.Time, err error)
	ValidateAccessToken(token string) (*Claims, error)
}

// Claims is the payload of an access token. The subject is the user id.
type Claims struct {
	jwt.RegisteredClaims
	Roles []string `json:"roles"`
}
