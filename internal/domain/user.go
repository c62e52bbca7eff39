package domain

import "time"

// ChatSettings are per-stream chat controls read from the owning
// user's profile. They are external configuration, not computed here.
type ChatSettings struct {
	SlowMode        bool `json:"slowMode"`
	SubscriberOnly  bool `json:"subscriberOnly"`
	ProfanityFilter bool `json:"profanityFilter"`
	AutoRecord      bool `json:"autoRecord"`
}

// User mirrors a profile for a verified identity from the external
// identity provider. Credential handling lives entirely outside this
// system.
type User struct {
	ID          string       `json:"id"`
	AuthUserID  string       `json:"authUserId"`
	Username    string       `json:"username"`
	DisplayName string       `json:"displayName"`
	Avatar      string       `json:"avatar"`
	Bio         string       `json:"bio,omitempty"`
	Followers   int          `json:"followers"`
	Following   int          `json:"following"`
	Settings    ChatSettings `json:"settings"`
	CreatedAt   time.Time    `json:"createdAt"`
}

// Identity is the verified identity threaded explicitly through
// handlers and into chat views; never stored in a process global.
type Identity struct {
	UserID   string
	Username string
	Avatar   string
}

// UpdateSettingsRequest represents a settings patch.
type UpdateSettingsRequest struct {
	SlowMode        *bool `json:"slowMode"`
	SubscriberOnly  *bool `json:"subscriberOnly"`
	ProfanityFilter *bool `json:"profanityFilter"`
	AutoRecord      *bool `json:"autoRecord"`
}
