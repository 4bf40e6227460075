package review

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdholdren/cardfeed/internal/cardfeed"
)

type fakeRefresher struct {
	mu    sync.Mutex
	feeds []string
	err   error
}

func (f *fakeRefresher) MaybeRefreshFeed(_ context.Context, feed cardfeed.Feed) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.feeds = append(f.feeds, feed.ID)
	return true, f.err
}

func TestBuildQueue(t *testing.T) {
	var (
		ctx       = context.Background()
		repo      = newTestRepo(t)
		refresher = &fakeRefresher{err: errors.New("remote is down")}
		s         = newTestService(repo, refresher)
		deck      = mustDeck(t, repo, "user-1")
	)

	// Created in reverse so insertion order isn't review order
	third := mustCard(t, repo, deck.ID, "third", now.Add(-1*time.Hour))
	second := mustCard(t, repo, deck.ID, "second", now.Add(-2*time.Hour))
	first := mustCard(t, repo, deck.ID, "first", now.Add(-3*time.Hour))

	busy := mustFeed(t, repo, "https://busy.example/feed.xml", "b1", "b2", "b3", "b4", "b5")
	quiet := mustFeed(t, repo, "https://quiet.example/feed.xml", "q1")
	hidden := mustFeed(t, repo, "https://hidden.example/feed.xml", "h1", "h2")

	mustSubscribe(t, repo, "user-1", busy.ID, cardfeed.DefaultSubscriptionConfig())
	mustSubscribe(t, repo, "user-1", quiet.ID, cardfeed.DefaultSubscriptionConfig())
	mustSubscribe(t, repo, "user-1", hidden.ID, cardfeed.SubscriptionConfig{Order: cardfeed.OrderNewest, ShuffleIntoReview: false})

	queue, err := s.BuildQueue(ctx, "user-1", now)
	require.NoError(t, err)
	require.Len(t, queue, 5)

	cards := []string{}
	items := []string{}
	for _, q := range queue {
		switch q.Kind {
		case KindCard:
			require.NotNil(t, q.Card)
			cards = append(cards, q.Card.ID)
		case KindItem:
			require.NotNil(t, q.Item)
			assert.NotEqual(t, hidden.ID, q.Item.FeedID)
			items = append(items, q.Item.RemoteID)
		}
	}
	assert.Equal(t, []string{first.ID, second.ID, third.ID}, cards, "oldest due first")
	assert.Len(t, items, MaxQueueItems)

	// Refresh failures don't stop the queue
	assert.ElementsMatch(t, []string{busy.ID, quiet.ID}, refresher.feeds)
}

func TestBuildQueue_OldestFirstFeed(t *testing.T) {
	var (
		ctx  = context.Background()
		repo = newTestRepo(t)
		s    = newTestService(repo, nil)
		feed = mustFeed(t, repo, "https://example.com/feed.xml", "old", "middle", "new")
	)
	mustSubscribe(t, repo, "user-1", feed.ID, cardfeed.SubscriptionConfig{Order: cardfeed.OrderOldest, ShuffleIntoReview: true})

	queue, err := s.BuildQueue(ctx, "user-1", now)
	require.NoError(t, err)
	require.Len(t, queue, 2)
	assert.Equal(t, "old", queue[0].Item.RemoteID)
	assert.Equal(t, "middle", queue[1].Item.RemoteID)

	require.NoError(t, s.MarkRead(ctx, "user-1", queue[0].Item.ID))
	queue, err = s.BuildQueue(ctx, "user-1", now)
	require.NoError(t, err)
	require.Len(t, queue, 2)
	assert.Equal(t, "middle", queue[0].Item.RemoteID)
	assert.Equal(t, "new", queue[1].Item.RemoteID)
}

func TestBuildQueue_Empty(t *testing.T) {
	queue, err := newTestService(newTestRepo(t), nil).BuildQueue(context.Background(), "user-1", now)
	require.NoError(t, err)
	assert.Empty(t, queue)
}
