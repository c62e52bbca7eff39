package token

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Worldstreet-team/xtreme-livestream/internal/domain"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// AuthClaims are the claims carried by access tokens from the external
// identity provider.
type AuthClaims struct {
	jwt.RegisteredClaims
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar,omitempty"`
}

// Verifier validates access tokens with the shared HMAC secret.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify parses and validates a token, returning the verified
// identity. The identity is handed to callers explicitly; nothing here
// installs it into any ambient state.
func (v *Verifier) Verify(tokenString string) (domain.Identity, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AuthClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return v.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return domain.Identity{}, ErrExpiredToken
		}
		return domain.Identity{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(*AuthClaims)
	if !ok || !token.Valid {
		return domain.Identity{}, ErrInvalidToken
	}

	userID := claims.UserID
	if userID == "" {
		userID = claims.Subject
	}
	if userID == "" || claims.Username == "" {
		return domain.Identity{}, ErrInvalidToken
	}

	return domain.Identity{
		UserID:   userID,
		Username: claims.Username,
		Avatar:   claims.Avatar,
	}, nil
}
