package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/jdholdren/cardfeed/internal/cardfeed"
)

const (
	feedNamespace = "-fd"
	itemNamespace = "-itm"

	// Rows per INSERT so a large feed stays under sqlite's bound-variable limit.
	itemInsertBatch = 100
)

func (r Repo) Feed(ctx context.Context, id string) (cardfeed.Feed, error) {
	const q = `SELECT * FROM feeds WHERE id = ?;`

	var feed cardfeed.Feed
	err := r.db.GetContext(ctx, &feed, q, id)
	if errors.Is(err, sql.ErrNoRows) {
		return cardfeed.Feed{}, cardfeed.ErrNotFound
	}
	if err != nil {
		return cardfeed.Feed{}, fmt.Errorf("error fetching feed: %w", err)
	}

	return feed, nil
}

func (r Repo) FeedByURL(ctx context.Context, url string) (cardfeed.Feed, error) {
	const q = `SELECT * FROM feeds WHERE rss_url = ?;`

	var feed cardfeed.Feed
	err := r.db.GetContext(ctx, &feed, q, url)
	if errors.Is(err, sql.ErrNoRows) {
		return cardfeed.Feed{}, cardfeed.ErrNotFound
	}
	if err != nil {
		return cardfeed.Feed{}, fmt.Errorf("error fetching feed: %w", err)
	}

	return feed, nil
}

func (r Repo) InsertFeed(ctx context.Context, url string) (cardfeed.Feed, error) {
	const q = `INSERT INTO feeds (id, rss_url, created_at) VALUES (:id, :rss_url, :created_at);`

	f := cardfeed.Feed{
		ID:        newID(feedNamespace),
		RSSURL:    url,
		CreatedAt: dbTime(time.Now()),
	}
	_, err := r.db.NamedExecContext(ctx, q, f)
	if isUniqueViolation(err) {
		return cardfeed.Feed{}, fmt.Errorf("feed already exists: %w", cardfeed.ErrConflict)
	}
	if err != nil {
		return cardfeed.Feed{}, fmt.Errorf("error inserting feed: %w", err)
	}

	return r.Feed(ctx, f.ID)
}

func (r Repo) UpdateFeed(ctx context.Context, id string, args cardfeed.UpdateFeedArgs) error {
	if args.Title == "" && args.LastSynced.IsZero() {
		return nil
	}

	q := sq.Update("feeds")
	if args.Title != "" {
		q = q.Set("title", args.Title)
	}
	if !args.LastSynced.IsZero() {
		q = q.Set("last_sync", dbTime(args.LastSynced))
	}
	q = q.Where(sq.Eq{"id": id})

	query, qArgs, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("error constructing sql: %s", err)
	}
	if _, err := r.db.ExecContext(ctx, query, qArgs...); err != nil {
		return fmt.Errorf("error executing feed update: %w", err)
	}

	return nil
}

// SubscribedFeeds returns every feed at least one user is actively subscribed to.
func (r Repo) SubscribedFeeds(ctx context.Context) ([]cardfeed.Feed, error) {
	const q = `
	SELECT f.*
	FROM feeds f
	WHERE EXISTS (
		SELECT 1 FROM subscriptions s WHERE s.feed_id = f.id AND s.deleted = 0
	)
	ORDER BY f.created_at;
	`

	feeds := []cardfeed.Feed{}
	if err := r.db.SelectContext(ctx, &feeds, q); err != nil {
		return nil, fmt.Errorf("error selecting subscribed feeds: %w", err)
	}

	return feeds, nil
}

func (r Repo) FeedItems(ctx context.Context, feedID string) ([]cardfeed.RSSItem, error) {
	const q = `SELECT * FROM rss_items WHERE feed_id = ? ORDER BY pub_date DESC;`

	items := []cardfeed.RSSItem{}
	if err := r.db.SelectContext(ctx, &items, q, feedID); err != nil {
		return nil, fmt.Errorf("error selecting items: %w", err)
	}

	return items, nil
}

func (r Repo) Item(ctx context.Context, id string) (cardfeed.RSSItem, error) {
	const q = `SELECT * FROM rss_items WHERE id = ?;`

	var item cardfeed.RSSItem
	err := r.db.GetContext(ctx, &item, q, id)
	if errors.Is(err, sql.ErrNoRows) {
		return cardfeed.RSSItem{}, cardfeed.ErrNotFound
	}
	if err != nil {
		return cardfeed.RSSItem{}, fmt.Errorf("error fetching item: %w", err)
	}

	return item, nil
}

// InsertItems writes the items, quietly skipping any whose (feed_id, remote_id) is
// already present. Two syncs racing on the same feed both end up here, so the
// conflict is expected and not an error.
func (r Repo) InsertItems(ctx context.Context, items []cardfeed.RSSItem) (int, error) {
	const q = `INSERT INTO rss_items (id, feed_id, remote_id, title, link, content, pub_date, created_at)
	VALUES (:id, :feed_id, :remote_id, :title, :link, :content, :pub_date, :created_at)
	ON CONFLICT(feed_id, remote_id) DO NOTHING;`

	if len(items) == 0 {
		return 0, nil
	}

	rows := make([]cardfeed.RSSItem, len(items))
	now := time.Now()
	for i, item := range items {
		item.ID = newID(itemNamespace)
		item.PubDate = dbTime(item.PubDate)
		item.CreatedAt = dbTime(now)
		rows[i] = item
	}

	var inserted int
	for start := 0; start < len(rows); start += itemInsertBatch {
		end := min(start+itemInsertBatch, len(rows))

		res, err := r.db.NamedExecContext(ctx, q, rows[start:end])
		if err != nil {
			return inserted, fmt.Errorf("error inserting items: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return inserted, fmt.Errorf("error counting inserted items: %w", err)
		}
		inserted += int(n)
	}

	return inserted, nil
}
