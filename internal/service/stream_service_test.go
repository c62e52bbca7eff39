package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Worldstreet-team/xtreme-livestream/internal/domain"
)

// streamRepoWithState extends the base fake with enough behavior for
// lifecycle tests.
type streamRepoWithState struct {
	fakeStreamRepo
	liveByOwner map[string]int
	created     []*domain.Stream
	endedIDs    []string
}

func (r *streamRepoWithState) Create(ctx context.Context, stream *domain.Stream) error {
	stream.ID = "generated-id"
	r.created = append(r.created, stream)
	return nil
}

func (r *streamRepoWithState) CountLiveStreamsByOwner(ctx context.Context, ownerID string) (int, error) {
	return r.liveByOwner[ownerID], nil
}

func (r *streamRepoWithState) End(ctx context.Context, id string) error {
	r.endedIDs = append(r.endedIDs, id)
	return nil
}

func TestCreateStream(t *testing.T) {
	repo := &streamRepoWithState{liveByOwner: map[string]int{}}
	svc := NewStreamService(repo, &fakeChannel{})

	stream, err := svc.Create(context.Background(), domain.Identity{UserID: "owner-1", Username: "streamer"}, &domain.CreateStreamRequest{
		Title:    "degen hour",
		Category: "trading",
	})
	require.NoError(t, err)
	assert.Equal(t, "owner-1", stream.OwnerID)
	assert.Equal(t, "degen hour", stream.Title)
	assert.NotEmpty(t, stream.MediaRoomName)
}

func TestCreateStreamOnePerOwner(t *testing.T) {
	repo := &streamRepoWithState{liveByOwner: map[string]int{"owner-1": 1}}
	svc := NewStreamService(repo, &fakeChannel{})

	_, err := svc.Create(context.Background(), domain.Identity{UserID: "owner-1", Username: "streamer"}, &domain.CreateStreamRequest{Title: "second show"})
	assert.Error(t, err)
	assert.Empty(t, repo.created)
}

func TestEndStream(t *testing.T) {
	repo := &streamRepoWithState{
		fakeStreamRepo: fakeStreamRepo{streams: map[string]*domain.Stream{
			"s1": liveStream("s1", "owner-1"),
		}},
	}
	channel := &fakeChannel{}
	svc := NewStreamService(repo, channel)

	// Only the owner may end the stream.
	err := svc.End(context.Background(), domain.Identity{UserID: "viewer-1"}, "s1")
	assert.ErrorIs(t, err, domain.ErrNotStreamOwner)
	assert.Empty(t, channel.ended)

	err = svc.End(context.Background(), domain.Identity{UserID: "owner-1"}, "s1")
	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, repo.endedIDs)
	assert.Equal(t, []string{"s1"}, channel.ended)
}

func TestEndStreamAlreadyEnded(t *testing.T) {
	ended := liveStream("s1", "owner-1")
	ended.Status = domain.StreamStatusEnded
	repo := &streamRepoWithState{
		fakeStreamRepo: fakeStreamRepo{streams: map[string]*domain.Stream{"s1": ended}},
	}
	svc := NewStreamService(repo, &fakeChannel{})

	err := svc.End(context.Background(), domain.Identity{UserID: "owner-1"}, "s1")
	assert.ErrorIs(t, err, domain.ErrStreamEnded)
}
