package review

import (
	"context"
	"math/rand/v2"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/jdholdren/cardfeed/internal/cardfeed"
	"github.com/jdholdren/cardfeed/internal/migrations"
	"github.com/jdholdren/cardfeed/internal/sqlite"
)

var now = time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)

func newTestRepo(t *testing.T) sqlite.Repo {
	t.Helper()

	dbx, err := sqlx.Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	dbx.SetMaxOpenConns(1)
	t.Cleanup(func() { dbx.Close() })

	require.NoError(t, migrations.Run(dbx))
	return sqlite.New(dbx)
}

func newTestService(repo Repository, refresher Refresher) *Service {
	s := NewService(repo, nil, refresher)
	s.newRand = func() *rand.Rand { return seeded(7) }
	return s
}

func mustDeck(t *testing.T, repo sqlite.Repo, userID string) cardfeed.Deck {
	t.Helper()
	deck, err := repo.InsertDeck(context.Background(), cardfeed.Deck{Name: "deck", AuthorID: userID})
	require.NoError(t, err)
	return deck
}

func mustCard(t *testing.T, repo sqlite.Repo, deckID, front string, created time.Time) cardfeed.Card {
	t.Helper()
	card, err := repo.InsertCard(context.Background(), cardfeed.Card{DeckID: deckID, Front: front, Back: front, CreatedAt: created})
	require.NoError(t, err)
	return card
}

func mustImpression(t *testing.T, repo sqlite.Repo, cardID, userID string, at time.Time, res cardfeed.Resolution) {
	t.Helper()
	_, err := repo.InsertCardImpression(context.Background(), cardfeed.CardImpression{CardID: cardID, UserID: userID, Date: at, Resolution: res})
	require.NoError(t, err)
}

func mustFeed(t *testing.T, repo sqlite.Repo, url string, remoteIDs ...string) cardfeed.Feed {
	t.Helper()
	ctx := context.Background()

	feed, err := repo.InsertFeed(ctx, url)
	require.NoError(t, err)

	items := []cardfeed.RSSItem{}
	for i, id := range remoteIDs {
		items = append(items, cardfeed.RSSItem{
			FeedID:   feed.ID,
			RemoteID: id,
			Title:    id,
			PubDate:  now.Add(time.Duration(i) * time.Hour),
		})
	}
	_, err = repo.InsertItems(ctx, items)
	require.NoError(t, err)

	return feed
}

func mustSubscribe(t *testing.T, repo sqlite.Repo, userID, feedID string, cfg cardfeed.SubscriptionConfig) cardfeed.Subscription {
	t.Helper()
	sub, err := repo.InsertSubscription(context.Background(), cardfeed.Subscription{FeedID: feedID, UserID: userID, Config: cfg})
	require.NoError(t, err)
	return sub
}
