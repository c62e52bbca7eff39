package history

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Worldstreet-team/xtreme-livestream/internal/domain"
)

func TestClampLimit(t *testing.T) {
	assert.Equal(t, DefaultLimit, ClampLimit(0))
	assert.Equal(t, DefaultLimit, ClampLimit(-5))
	assert.Equal(t, 1, ClampLimit(1))
	assert.Equal(t, 75, ClampLimit(75))
	assert.Equal(t, MaxLimit, ClampLimit(MaxLimit))
	assert.Equal(t, MaxLimit, ClampLimit(MaxLimit+100))
}

func TestReverse(t *testing.T) {
	now := time.Now()
	msgs := []domain.ChatMessage{
		{ID: "c", CreatedAt: now},
		{ID: "b", CreatedAt: now.Add(-time.Second)},
		{ID: "a", CreatedAt: now.Add(-2 * time.Second)},
	}

	Reverse(msgs)

	assert.Equal(t, "a", msgs[0].ID)
	assert.Equal(t, "b", msgs[1].ID)
	assert.Equal(t, "c", msgs[2].ID)

	var empty []domain.ChatMessage
	Reverse(empty)
	assert.Empty(t, empty)
}
