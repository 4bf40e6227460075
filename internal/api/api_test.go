package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/mmcdole/gofeed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdholdren/cardfeed/internal/cardfeed"
	"github.com/jdholdren/cardfeed/internal/feedsync"
	"github.com/jdholdren/cardfeed/internal/migrations"
	"github.com/jdholdren/cardfeed/internal/review"
	"github.com/jdholdren/cardfeed/internal/sqlite"
)

var now = time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)

type fetcherFunc func(ctx context.Context, url string) (*gofeed.Feed, error)

func (f fetcherFunc) Fetch(ctx context.Context, url string) (*gofeed.Feed, error) {
	return f(ctx, url)
}

func remoteFeed(ctx context.Context, url string) (*gofeed.Feed, error) {
	return &gofeed.Feed{
		Title: "Remote",
		Items: []*gofeed.Item{
			{GUID: "a", Title: "first", Link: "https://example.com/a"},
			{GUID: "b", Title: "second", Link: "https://example.com/b"},
		},
	}, nil
}

func newTestApiServer(t *testing.T) (*Server, sqlite.Repo) {
	t.Helper()

	dbx, err := sqlx.Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	dbx.SetMaxOpenConns(1)
	t.Cleanup(func() { dbx.Close() })
	require.NoError(t, migrations.Run(dbx))

	var (
		repo    = sqlite.New(dbx)
		syncer  = feedsync.New(repo, fetcherFunc(remoteFeed), nil)
		reviews = review.NewService(repo, nil, syncer)
		s       = NewServer(ServerConfig{Port: 0, CorsHeader: "http://localhost:3000"}, repo, reviews, syncer, nil)
	)
	s.now = func() time.Time { return now }

	return s, repo
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, httptest.NewRequest(method, path, r))
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func mustCard(t *testing.T, repo sqlite.Repo, userID string) cardfeed.Card {
	t.Helper()
	ctx := context.Background()

	deck, err := repo.InsertDeck(ctx, cardfeed.Deck{Name: "deck", AuthorID: userID})
	require.NoError(t, err)
	card, err := repo.InsertCard(ctx, cardfeed.Card{DeckID: deck.ID, Front: "front", Back: "back", CreatedAt: now.Add(-time.Hour)})
	require.NoError(t, err)
	return card
}

func TestGetDue(t *testing.T) {
	s, repo := newTestApiServer(t)
	card := mustCard(t, repo, "user-1")

	rec := do(t, s, http.MethodGet, "/api/users/user-1/due", "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[DueResp](t, rec)
	assert.Equal(t, 1, resp.Count)
	require.Len(t, resp.Cards, 1)
	assert.Equal(t, card.ID, resp.Cards[0].ID)

	// Before the card existed nothing is due
	rec = do(t, s, http.MethodGet, "/api/users/user-1/due?at=2024-06-15T08:00:00Z", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, decode[DueResp](t, rec).Count)

	rec = do(t, s, http.MethodGet, "/api/users/user-1/due?at=yesterday", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPostImpressions(t *testing.T) {
	s, repo := newTestApiServer(t)
	card := mustCard(t, repo, "user-1")

	rec := do(t, s, http.MethodPost, "/api/users/user-1/impressions", `{"card_id": "`+card.ID+`", "resolution": "easy", "time_spent_ms": 1500}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	imp := decode[cardfeed.CardImpression](t, rec)
	assert.Equal(t, card.ID, imp.CardID)
	assert.Equal(t, "user-1", imp.UserID)
	assert.Equal(t, int64(1500), imp.TimeSpent)
	assert.True(t, now.Equal(imp.Date))

	// Just reviewed, so it's not due anymore
	rec = do(t, s, http.MethodGet, "/api/users/user-1/due", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, decode[DueResp](t, rec).Count)
}

func TestPostImpressions_Errors(t *testing.T) {
	s, repo := newTestApiServer(t)
	card := mustCard(t, repo, "user-1")

	orphan := mustCard(t, repo, "user-1")
	require.NoError(t, repo.SoftDeleteDeck(context.Background(), orphan.DeckID))

	tests := []struct {
		name   string
		userID string
		body   string
		status int
	}{
		{name: "unknown resolution", userID: "user-1", body: `{"card_id": "` + card.ID + `", "resolution": "meh"}`, status: http.StatusBadRequest},
		{name: "missing resolution", userID: "user-1", body: `{"card_id": "` + card.ID + `"}`, status: http.StatusBadRequest},
		{name: "negative time", userID: "user-1", body: `{"card_id": "` + card.ID + `", "resolution": "hard", "time_spent_ms": -1}`, status: http.StatusBadRequest},
		{name: "unknown card", userID: "user-1", body: `{"card_id": "nope", "resolution": "hard"}`, status: http.StatusNotFound},
		{name: "deleted deck", userID: "user-1", body: `{"card_id": "` + orphan.ID + `", "resolution": "hard"}`, status: http.StatusNotFound},
		{name: "someone else's deck", userID: "user-2", body: `{"card_id": "` + card.ID + `", "resolution": "hard"}`, status: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodPost, "/api/users/"+tt.userID+"/impressions", tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}

func TestSubscribeAndRead(t *testing.T) {
	s, _ := newTestApiServer(t)

	rec := do(t, s, http.MethodPost, "/api/users/user-1/subscriptions", `{"feed_url": "https://example.com/feed.xml", "config": {"order": "oldest", "unknown": 1}}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	sub := decode[cardfeed.Subscription](t, rec)
	assert.Equal(t, cardfeed.OrderOldest, sub.Config.Order)
	assert.True(t, sub.Config.ShuffleIntoReview)

	unreadPath := "/api/users/user-1/feeds/" + sub.FeedID + "/unread"
	rec = do(t, s, http.MethodGet, unreadPath+"?limit=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	unread := decode[UnreadResp](t, rec)
	assert.Len(t, unread.Items, 1)
	assert.Equal(t, 2, unread.Pagination.Total)
	assert.Equal(t, 1, unread.Pagination.Limit)

	rec = do(t, s, http.MethodPost, "/api/users/user-1/reads", `{"item_ids": ["`+unread.Items[0].ID+`"]}`)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = do(t, s, http.MethodGet, unreadPath+"/count", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[UnreadCountResp](t, rec).Count)

	// Someone else hasn't read anything
	rec = do(t, s, http.MethodGet, "/api/users/user-2/feeds/"+sub.FeedID+"/unread/count", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, decode[UnreadCountResp](t, rec).Count)

	rec = do(t, s, http.MethodGet, "/api/users/user-1/unread", "")
	require.Equal(t, http.StatusOK, rec.Code)
	counts := decode[UnreadCountsResp](t, rec)
	require.Len(t, counts.Feeds, 1)
	assert.Equal(t, 1, counts.Feeds[0].Unread)

	rec = do(t, s, http.MethodPost, "/api/users/user-1/reads", `{"item_ids": []}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubscription_BlockDirectAccess(t *testing.T) {
	s, _ := newTestApiServer(t)

	rec := do(t, s, http.MethodPost, "/api/users/user-1/subscriptions", `{"feed_url": "https://example.com/feed.xml", "config": {"block_direct_access": true}}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	sub := decode[cardfeed.Subscription](t, rec)

	rec = do(t, s, http.MethodGet, "/api/users/user-1/feeds/"+sub.FeedID+"/unread", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Still shows up in the review queue
	rec = do(t, s, http.MethodGet, "/api/users/user-1/queue", "")
	require.Equal(t, http.StatusOK, rec.Code)
	queue := decode[QueueResp](t, rec)
	require.Len(t, queue.Items, 2)
	for _, item := range queue.Items {
		assert.Equal(t, review.KindItem, item.Kind)
	}
}

func TestSubscription_Manage(t *testing.T) {
	s, _ := newTestApiServer(t)

	rec := do(t, s, http.MethodPost, "/api/users/user-1/subscriptions", `{"feed_url": "https://example.com/feed.xml"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	sub := decode[cardfeed.Subscription](t, rec)
	subPath := "/api/users/user-1/subscriptions/" + sub.ID

	rec = do(t, s, http.MethodPatch, subPath, `{"config": {"shuffle_into_review": false, "category": "news"}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	patched := decode[cardfeed.Subscription](t, rec)
	assert.False(t, patched.Config.ShuffleIntoReview)
	assert.Equal(t, "news", patched.Config.Category)

	rec = do(t, s, http.MethodPatch, subPath, `{"config": {"order": "sideways"}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Only the owner can touch it
	rec = do(t, s, http.MethodPatch, "/api/users/user-2/subscriptions/"+sub.ID, `{"config": {"category": "mine"}}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = do(t, s, http.MethodDelete, "/api/users/user-2/subscriptions/"+sub.ID, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, s, http.MethodDelete, subPath, "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, s, http.MethodPatch, subPath, `{"config": {}}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/users/user-1/subscriptions", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[SubscriptionsResp](t, rec).Subscriptions)
}

func TestPostSubscriptions_Validation(t *testing.T) {
	s, _ := newTestApiServer(t)

	rec := do(t, s, http.MethodPost, "/api/users/user-1/subscriptions", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodPost, "/api/users/user-1/subscriptions", `{"feed_url": "not a url"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetFeedPreview(t *testing.T) {
	s, repo := newTestApiServer(t)

	rec := do(t, s, http.MethodGet, "/api/feeds/preview?url=https://example.com/feed.xml", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	polled := decode[feedsync.PolledFeed](t, rec)
	assert.Equal(t, "Remote", polled.Title)
	assert.Len(t, polled.Items, 2)

	// Nothing got stored
	_, err := repo.FeedByURL(context.Background(), "https://example.com/feed.xml")
	assert.ErrorIs(t, err, cardfeed.ErrNotFound)
}

func TestGetFeedDiscover_RequiresURL(t *testing.T) {
	s, _ := newTestApiServer(t)

	rec := do(t, s, http.MethodGet, "/api/feeds/discover", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPostFeedRefresh(t *testing.T) {
	s, repo := newTestApiServer(t)

	feed, err := repo.InsertFeed(context.Background(), "https://example.com/feed.xml")
	require.NoError(t, err)

	rec := do(t, s, http.MethodPost, "/api/feeds/"+feed.ID+"/refresh", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[RefreshResp](t, rec)
	assert.Equal(t, 2, resp.Inserted)
	assert.Equal(t, "Remote", resp.Feed.Title)
	assert.NotNil(t, resp.Feed.LastSync)

	rec = do(t, s, http.MethodPost, "/api/feeds/missing/refresh", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPage(t *testing.T) {
	s := []int{1, 2, 3, 4, 5}
	assert.Equal(t, []int{1, 2}, page(s, 2, 0))
	assert.Equal(t, []int{5}, page(s, 2, 4))
	assert.Equal(t, []int{}, page(s, 2, 5))
}
