package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Kind identifies the chat message variant. The set is closed: every
// switch over Kind handles all three cases.
type Kind string

const (
	KindText     Kind = "text"
	KindReaction Kind = "reaction"
	KindTip      Kind = "tip"
)

// ParseKind validates a wire kind string.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindText, KindReaction, KindTip:
		return Kind(s), nil
	default:
		return "", fmt.Errorf("unknown message kind %q", s)
	}
}

// Payload is the kind-specific part of a chat message.
type Payload interface {
	Kind() Kind
}

// TextPayload carries a plain chat line.
type TextPayload struct {
	Body string
}

func (TextPayload) Kind() Kind { return KindText }

// ReactionPayload carries a single emoji token.
type ReactionPayload struct {
	Emoji string
}

func (ReactionPayload) Kind() Kind { return KindReaction }

// TipPayload carries a display-only tip. Amount is a decimal string;
// no settlement happens anywhere in this system.
type TipPayload struct {
	Amount   string
	Currency string
}

func (TipPayload) Kind() Kind { return KindTip }

// Sender is a role snapshot taken at send time. IsMod is never
// re-evaluated retroactively.
type Sender struct {
	ID       string `json:"senderId"`
	Username string `json:"senderUsername"`
	Avatar   string `json:"senderAvatar"`
	IsMod    bool   `json:"isMod"`
}

// ChatMessage is the central entity. ID is either a durable id assigned
// by the history store or a locally generated ephemeral id; CreatedAt
// is assigned once and is the sole ordering key within a stream.
type ChatMessage struct {
	ID        string
	StreamID  string
	Sender    Sender
	Payload   Payload
	CreatedAt time.Time
}

// Kind returns the message kind of the payload.
func (m *ChatMessage) Kind() Kind {
	return m.Payload.Kind()
}

// Content returns the display line persisted alongside the payload,
// matching the stored record's content column for every kind.
func (m *ChatMessage) Content() string {
	switch p := m.Payload.(type) {
	case TextPayload:
		return p.Body
	case ReactionPayload:
		return p.Emoji
	case TipPayload:
		return "Sent a tip!"
	default:
		return ""
	}
}

// record is the flat persisted representation of a message.
type record struct {
	ID             string    `json:"id"`
	StreamID       string    `json:"streamId"`
	SenderID       string    `json:"senderId"`
	SenderUsername string    `json:"senderUsername"`
	SenderAvatar   string    `json:"senderAvatar"`
	IsMod          bool      `json:"isMod"`
	Content        string    `json:"content"`
	Kind           string    `json:"kind"`
	TipAmount      string    `json:"tipAmount,omitempty"`
	TipCurrency    string    `json:"tipCurrency,omitempty"`
	Emoji          string    `json:"emoji,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

// MarshalJSON writes the flat record shape consumed by the read API.
func (m ChatMessage) MarshalJSON() ([]byte, error) {
	r := record{
		ID:             m.ID,
		StreamID:       m.StreamID,
		SenderID:       m.Sender.ID,
		SenderUsername: m.Sender.Username,
		SenderAvatar:   m.Sender.Avatar,
		IsMod:          m.Sender.IsMod,
		Content:        m.Content(),
		Kind:           string(m.Kind()),
		CreatedAt:      m.CreatedAt,
	}
	switch p := m.Payload.(type) {
	case TextPayload:
	case ReactionPayload:
		r.Emoji = p.Emoji
	case TipPayload:
		r.TipAmount = p.Amount
		r.TipCurrency = p.Currency
	default:
		return nil, fmt.Errorf("unknown payload type %T", p)
	}
	return json.Marshal(r)
}

// UnmarshalJSON reads the flat record shape back into the tagged variant.
func (m *ChatMessage) UnmarshalJSON(data []byte) error {
	var r record
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}

	kind, err := ParseKind(r.Kind)
	if err != nil {
		return err
	}

	m.ID = r.ID
	m.StreamID = r.StreamID
	m.Sender = Sender{
		ID:       r.SenderID,
		Username: r.SenderUsername,
		Avatar:   r.SenderAvatar,
		IsMod:    r.IsMod,
	}
	m.CreatedAt = r.CreatedAt

	switch kind {
	case KindText:
		m.Payload = TextPayload{Body: r.Content}
	case KindReaction:
		emoji := r.Emoji
		if emoji == "" {
			emoji = r.Content
		}
		m.Payload = ReactionPayload{Emoji: emoji}
	case KindTip:
		m.Payload = TipPayload{Amount: r.TipAmount, Currency: r.TipCurrency}
	}
	return nil
}

// MessageDraft is a message before persistence: no id, no server timestamp.
type MessageDraft struct {
	StreamID string
	Sender   Sender
	Payload  Payload
}

// HistoryPage is one page of chat history in chronological order.
// NextCursor, when HasMore is set, is the id to pass as the next
// request's before-cursor to page further into the past.
type HistoryPage struct {
	Messages   []ChatMessage `json:"messages"`
	NextCursor string        `json:"nextCursor,omitempty"`
	HasMore    bool          `json:"hasMore"`
}
