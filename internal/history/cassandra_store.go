package history

import (
	"context"
	"crypto/rand"
	"fmt"
	"strings"
	"time"

	"github.com/gocql/gocql"
	"github.com/oklog/ulid/v2"

	"github.com/Worldstreet-team/xtreme-livestream/internal/config"
	"github.com/Worldstreet-team/xtreme-livestream/internal/domain"
)

// createTableCQL defines the message log. The partition key is the
// stream id and rows cluster newest-first by message id; message ids
// are ULIDs, so id order is creation-time order and the before-cursor
// is a single clustering range scan.
const createTableCQL = `
CREATE TABLE IF NOT EXISTS messages_by_stream (
	stream_id    text,
	message_id   text,
	sender_id    text,
	username     text,
	avatar       text,
	is_mod       boolean,
	kind         text,
	content      text,
	tip_amount   text,
	tip_currency text,
	emoji        text,
	created_at   timestamp,
	PRIMARY KEY ((stream_id), message_id)
) WITH CLUSTERING ORDER BY (message_id DESC)`

// CassandraStore implements Store on a Cassandra message log.
type CassandraStore struct {
	session *gocql.Session
}

// NewCassandraStore connects to the cluster and ensures the schema.
func NewCassandraStore(cfg config.CassandraConfig) (*CassandraStore, error) {
	cluster := gocql.NewCluster(cfg.Hosts...)
	cluster.Keyspace = cfg.Keyspace
	cluster.Consistency = parseConsistency(cfg.Consistency)
	cluster.ConnectTimeout = cfg.ConnectTimeout
	cluster.Timeout = cfg.Timeout

	if cfg.Username != "" && cfg.Password != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: cfg.Username,
			Password: cfg.Password,
		}
	}

	cluster.RetryPolicy = &gocql.ExponentialBackoffRetryPolicy{
		NumRetries: 3,
		Min:        100 * time.Millisecond,
		Max:        2 * time.Second,
	}

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create cassandra session: %w", err)
	}

	if err := session.Query(createTableCQL).Exec(); err != nil {
		session.Close()
		return nil, fmt.Errorf("failed to ensure messages table: %w", err)
	}

	return &CassandraStore{session: session}, nil
}

// Append writes one record, assigning the durable id and server
// timestamp.
func (s *CassandraStore) Append(ctx context.Context, draft domain.MessageDraft) (*domain.ChatMessage, error) {
	now := time.Now().UTC()
	id, err := ulid.New(ulid.Timestamp(now), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate message id: %w", err)
	}

	msg := &domain.ChatMessage{
		ID:        id.String(),
		StreamID:  draft.StreamID,
		Sender:    draft.Sender,
		Payload:   draft.Payload,
		CreatedAt: now,
	}

	var tipAmount, tipCurrency, emoji string
	switch p := draft.Payload.(type) {
	case domain.TextPayload:
	case domain.ReactionPayload:
		emoji = p.Emoji
	case domain.TipPayload:
		tipAmount = p.Amount
		tipCurrency = p.Currency
	}

	query := `INSERT INTO messages_by_stream (
		stream_id, message_id, sender_id, username, avatar, is_mod,
		kind, content, tip_amount, tip_currency, emoji, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	err = s.session.Query(query,
		msg.StreamID,
		msg.ID,
		msg.Sender.ID,
		msg.Sender.Username,
		msg.Sender.Avatar,
		msg.Sender.IsMod,
		string(msg.Kind()),
		msg.Content(),
		tipAmount,
		tipCurrency,
		emoji,
		msg.CreatedAt,
	).WithContext(ctx).Exec()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	return msg, nil
}

// FetchPage queries newest-first, bounded by beforeID when present,
// then reverses so callers always receive chronological order.
func (s *CassandraStore) FetchPage(ctx context.Context, streamID string, limit int, beforeID string) ([]domain.ChatMessage, error) {
	// Callers may probe one row past MaxLimit to detect further pages.
	if limit < 1 {
		limit = DefaultLimit
	} else if limit > MaxLimit+1 {
		limit = MaxLimit + 1
	}

	var query string
	var args []interface{}

	if beforeID == "" {
		query = `SELECT message_id, sender_id, username, avatar, is_mod,
				kind, content, tip_amount, tip_currency, emoji, created_at
			FROM messages_by_stream
			WHERE stream_id = ?
			ORDER BY message_id DESC
			LIMIT ?`
		args = []interface{}{streamID, limit}
	} else {
		query = `SELECT message_id, sender_id, username, avatar, is_mod,
				kind, content, tip_amount, tip_currency, emoji, created_at
			FROM messages_by_stream
			WHERE stream_id = ? AND message_id < ?
			ORDER BY message_id DESC
			LIMIT ?`
		args = []interface{}{streamID, beforeID, limit}
	}

	iter := s.session.Query(query, args...).WithContext(ctx).Iter()

	var messages []domain.ChatMessage
	var (
		messageID, senderID, username, avatar    string
		kind, content, tipAmount, tipCur, emoji  string
		isMod                                    bool
		createdAt                                time.Time
	)

	for iter.Scan(&messageID, &senderID, &username, &avatar, &isMod,
		&kind, &content, &tipAmount, &tipCur, &emoji, &createdAt) {

		payload, err := rowPayload(kind, content, tipAmount, tipCur, emoji)
		if err != nil {
			// Unknown kind in storage; skip the row rather than fail the page.
			continue
		}

		messages = append(messages, domain.ChatMessage{
			ID:       messageID,
			StreamID: streamID,
			Sender: domain.Sender{
				ID:       senderID,
				Username: username,
				Avatar:   avatar,
				IsMod:    isMod,
			},
			Payload:   payload,
			CreatedAt: createdAt,
		})
	}

	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	return Reverse(messages), nil
}

// Close shuts down the Cassandra session.
func (s *CassandraStore) Close() error {
	s.session.Close()
	return nil
}

func rowPayload(kind, content, tipAmount, tipCurrency, emoji string) (domain.Payload, error) {
	k, err := domain.ParseKind(kind)
	if err != nil {
		return nil, err
	}
	switch k {
	case domain.KindText:
		return domain.TextPayload{Body: content}, nil
	case domain.KindReaction:
		if emoji == "" {
			emoji = content
		}
		return domain.ReactionPayload{Emoji: emoji}, nil
	default:
		return domain.TipPayload{Amount: tipAmount, Currency: tipCurrency}, nil
	}
}

func parseConsistency(s string) gocql.Consistency {
	switch strings.ToUpper(s) {
	case "ANY":
		return gocql.Any
	case "ONE":
		return gocql.One
	case "QUORUM":
		return gocql.Quorum
	case "ALL":
		return gocql.All
	case "LOCAL_QUORUM":
		return gocql.LocalQuorum
	case "LOCAL_ONE":
		return gocql.LocalOne
	default:
		return gocql.LocalQuorum
	}
}
