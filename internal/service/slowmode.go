package service

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// maxSlowModeEntries bounds the limiter map; stale entries are pruned
// once the map grows past it.
const maxSlowModeEntries = 4096

type slowModeEntry struct {
	limiter  *rate.Limiter
	lastUsed time.Time
}

// slowModeGate tracks one cooldown limiter per sender per stream.
type slowModeGate struct {
	mu       sync.Mutex
	cooldown time.Duration
	entries  map[string]*slowModeEntry
}

func newSlowModeGate(cooldown time.Duration) *slowModeGate {
	return &slowModeGate{
		cooldown: cooldown,
		entries:  make(map[string]*slowModeEntry),
	}
}

// allow reports whether the sender may post now, consuming the token
// when it may.
func (g *slowModeGate) allow(streamID, userID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	key := streamID + ":" + userID
	now := time.Now()

	entry, ok := g.entries[key]
	if !ok {
		if len(g.entries) >= maxSlowModeEntries {
			g.pruneLocked(now)
		}
		entry = &slowModeEntry{limiter: rate.NewLimiter(rate.Every(g.cooldown), 1)}
		g.entries[key] = entry
	}
	entry.lastUsed = now

	return entry.limiter.Allow()
}

// pruneLocked drops entries idle long enough that their token has
// fully refilled. Callers hold g.mu.
func (g *slowModeGate) pruneLocked(now time.Time) {
	cutoff := now.Add(-2 * g.cooldown)
	for key, entry := range g.entries {
		if entry.lastUsed.Before(cutoff) {
			delete(g.entries, key)
		}
	}
}
