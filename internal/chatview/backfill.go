package chatview

import (
	"sort"
	"time"

	"github.com/Worldstreet-team/xtreme-livestream/internal/domain"
)

// dedupTolerance bounds the timestamp skew under which a backfill
// record and a feed entry with matching sender and content count as
// the same message. Local echoes carry client clocks, persisted rows
// carry the store clock; they are close but never identical.
const dedupTolerance = 2 * time.Second

// applyBackfillLocked merges one page of history (chronological order)
// into the feed. Records already present, by identity or by echo
// equivalence, are skipped, so replaying the same page is a no-op.
// Callers hold v.mu.
func (v *View) applyBackfillLocked(page []domain.ChatMessage) {
	for _, rec := range page {
		if v.containsLocked(rec) {
			continue
		}
		v.insertChronologicalLocked(rec)
	}
}

// containsLocked reports whether the feed already holds rec, either as
// the exact record or as a local echo of the same send.
func (v *View) containsLocked(rec domain.ChatMessage) bool {
	for i := range v.feed {
		if v.feed[i].ID == rec.ID {
			return true
		}
		if sameSend(&v.feed[i], &rec) {
			return true
		}
	}
	return false
}

// insertChronologicalLocked places rec at its timestamp position in
// the feed, after any entries with an equal timestamp.
func (v *View) insertChronologicalLocked(rec domain.ChatMessage) {
	i := sort.Search(len(v.feed), func(i int) bool {
		return v.feed[i].CreatedAt.After(rec.CreatedAt)
	})
	if i == len(v.feed) {
		v.appendLocked(rec)
		return
	}
	v.feed = append(v.feed, domain.ChatMessage{})
	copy(v.feed[i+1:], v.feed[i:])
	v.feed[i] = rec
	v.emitLocked(rec)
}

// sameSend matches two messages as duplicates of one logical send:
// same sender, same kind, equal payload, timestamps within tolerance.
func sameSend(a, b *domain.ChatMessage) bool {
	if a.Sender.ID != b.Sender.ID || a.Kind() != b.Kind() {
		return false
	}
	if !samePayload(a.Payload, b.Payload) {
		return false
	}
	d := a.CreatedAt.Sub(b.CreatedAt)
	if d < 0 {
		d = -d
	}
	return d <= dedupTolerance
}

func samePayload(a, b domain.Payload) bool {
	switch pa := a.(type) {
	case domain.TextPayload:
		pb, ok := b.(domain.TextPayload)
		return ok && pa.Body == pb.Body
	case domain.ReactionPayload:
		pb, ok := b.(domain.ReactionPayload)
		return ok && pa.Emoji == pb.Emoji
	case domain.TipPayload:
		pb, ok := b.(domain.TipPayload)
		return ok && pa.Amount == pb.Amount && pa.Currency == pb.Currency
	default:
		return false
	}
}
