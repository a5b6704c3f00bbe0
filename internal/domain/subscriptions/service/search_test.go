package service

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TrishadhiWickramasinghe/SubTrack-sub005/internal/domain/subscriptions/repository"
)

func indexedSub(userID uuid.UUID, name string, status repository.Status) *repository.Subscription {
	return &repository.Subscription{
		ID:     uuid.New(),
		UserID: userID,
		Name:   name,
		Status: status,
	}
}

func TestSearchIndex_Scoping(t *testing.T) {
	index, err := NewSearchIndex()
	require.NoError(t, err)
	defer index.Close()

	alice := uuid.New()
	bob := uuid.New()

	subs := []*repository.Subscription{
		indexedSub(alice, "Netflix", repository.StatusActive),
		indexedSub(alice, "Cloud Backup", repository.StatusPaused),
		indexedSub(bob, "Netflix", repository.StatusActive),
	}
	require.NoError(t, index.IndexBatch(subs))

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), count)

	hits, err := index.Search(alice, "netflix", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, subs[0].ID, hits[0].ID)
	assert.Equal(t, "Netflix", hits[0].Name)
	assert.Equal(t, "active", hits[0].Status)
	assert.Greater(t, hits[0].Score, 0.0)
}

func TestSearchIndex_TypoTolerance(t *testing.T) {
	index, err := NewSearchIndex()
	require.NoError(t, err)
	defer index.Close()

	userID := uuid.New()
	sub := indexedSub(userID, "Spotify", repository.StatusActive)
	require.NoError(t, index.IndexSubscription(sub))

	hits, err := index.Search(userID, "spotfy", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, sub.ID, hits[0].ID)
}

func TestSearchIndex_MultiWordNames(t *testing.T) {
	index, err := NewSearchIndex()
	require.NoError(t, err)
	defer index.Close()

	userID := uuid.New()
	require.NoError(t, index.IndexBatch([]*repository.Subscription{
		indexedSub(userID, "The Morning Paper", repository.StatusActive),
		indexedSub(userID, "Paper Crafts Box", repository.StatusActive),
		indexedSub(userID, "Streaming Plus", repository.StatusActive),
	}))

	hits, err := index.Search(userID, "paper", 10)
	require.NoError(t, err)
	assert.Len(t, hits, 2)
}

func TestSearchIndex_Delete(t *testing.T) {
	index, err := NewSearchIndex()
	require.NoError(t, err)
	defer index.Close()

	userID := uuid.New()
	sub := indexedSub(userID, "Gym Membership", repository.StatusActive)
	require.NoError(t, index.IndexSubscription(sub))
	require.NoError(t, index.DeleteSubscription(sub.ID))

	hits, err := index.Search(userID, "gym", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSearchIndex_LimitDefaults(t *testing.T) {
	index, err := NewSearchIndex()
	require.NoError(t, err)
	defer index.Close()

	userID := uuid.New()
	require.NoError(t, index.IndexSubscription(indexedSub(userID, "News Daily", repository.StatusActive)))

	// A non-positive limit falls back to the default page size
	hits, err := index.Search(userID, "news", 0)
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}
