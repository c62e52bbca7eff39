package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// MediaGrant describes what a media room token permits.
type MediaGrant struct {
	Room       string `json:"room"`
	RoomJoin   bool   `json:"roomJoin"`
	CanPublish bool   `json:"canPublish"`
}

// MediaClaims is the claim set the media SFU expects: the api key as
// issuer, the participant identity as subject, and a video grant.
type MediaClaims struct {
	jwt.RegisteredClaims
	Name  string     `json:"name,omitempty"`
	Video MediaGrant `json:"video"`
}

// MediaMinter mints room access tokens for the media SFU. Publishers
// (stream owners) can publish; viewers can only join.
type MediaMinter struct {
	apiKey    string
	apiSecret []byte
	ttl       time.Duration
}

func NewMediaMinter(apiKey, apiSecret string, ttl time.Duration) *MediaMinter {
	return &MediaMinter{
		apiKey:    apiKey,
		apiSecret: []byte(apiSecret),
		ttl:       ttl,
	}
}

// Mint produces a signed room token for one participant.
func (m *MediaMinter) Mint(roomName, participantID, participantName string, canPublish bool) (string, error) {
	now := time.Now()
	claims := &MediaClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.apiKey,
			Subject:   participantID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
		Name: participantName,
		Video: MediaGrant{
			Room:       roomName,
			RoomJoin:   true,
			CanPublish: canPublish,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.apiSecret)
}
