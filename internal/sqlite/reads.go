package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/jdholdren/cardfeed/internal/cardfeed"
)

const readNamespace = "-read"

func (r Repo) UnreadItems(ctx context.Context, userID, feedID string) ([]cardfeed.RSSItem, error) {
	const q = `
	SELECT i.*
	FROM rss_items i
	WHERE i.feed_id = ? AND NOT EXISTS (
		SELECT 1 FROM rss_impressions ri WHERE ri.rss_item_id = i.id AND ri.user_id = ?
	)
	ORDER BY i.pub_date DESC;
	`

	items := []cardfeed.RSSItem{}
	if err := r.db.SelectContext(ctx, &items, q, feedID, userID); err != nil {
		return nil, fmt.Errorf("error selecting unread items: %w", err)
	}

	return items, nil
}

func (r Repo) UnreadCount(ctx context.Context, userID, feedID string) (int, error) {
	const q = `
	SELECT COUNT(*)
	FROM rss_items i
	WHERE i.feed_id = ? AND NOT EXISTS (
		SELECT 1 FROM rss_impressions ri WHERE ri.rss_item_id = i.id AND ri.user_id = ?
	);
	`

	var count int
	if err := r.db.GetContext(ctx, &count, q, feedID, userID); err != nil {
		return 0, fmt.Errorf("error counting unread items: %w", err)
	}

	return count, nil
}

func (r Repo) MarkRead(ctx context.Context, userID string, itemIDs ...string) error {
	const q = `INSERT OR IGNORE INTO rss_impressions (id, user_id, rss_item_id, created_at)
	VALUES (:id, :user_id, :rss_item_id, :created_at);`

	if len(itemIDs) == 0 {
		return nil
	}

	now := dbTime(time.Now())
	rows := make([]cardfeed.RSSImpression, 0, len(itemIDs))
	for _, itemID := range itemIDs {
		rows = append(rows, cardfeed.RSSImpression{
			ID:        newID(readNamespace),
			UserID:    userID,
			RSSItemID: itemID,
			CreatedAt: now,
		})
	}

	for start := 0; start < len(rows); start += itemInsertBatch {
		end := min(start+itemInsertBatch, len(rows))
		if _, err := r.db.NamedExecContext(ctx, q, rows[start:end]); err != nil {
			return fmt.Errorf("error marking items read: %w", err)
		}
	}

	return nil
}
