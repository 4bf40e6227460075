package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jdholdren/cardfeed/internal/cardfeed"
)

const subscriptionNamespace = "-sub"

func (r Repo) Subscription(ctx context.Context, id string) (cardfeed.Subscription, error) {
	const q = `SELECT * FROM subscriptions WHERE id = ?;`

	var sub cardfeed.Subscription
	err := r.db.GetContext(ctx, &sub, q, id)
	if errors.Is(err, sql.ErrNoRows) {
		return cardfeed.Subscription{}, cardfeed.ErrNotFound
	}
	if err != nil {
		return cardfeed.Subscription{}, fmt.Errorf("error fetching subscription: %w", err)
	}

	return sub, nil
}

func (r Repo) UserSubscriptions(ctx context.Context, userID string) ([]cardfeed.Subscription, error) {
	const q = `SELECT * FROM subscriptions WHERE user_id = ? AND deleted = 0 ORDER BY created_at;`

	subs := []cardfeed.Subscription{}
	if err := r.db.SelectContext(ctx, &subs, q, userID); err != nil {
		return nil, fmt.Errorf("error selecting subscriptions: %w", err)
	}

	return subs, nil
}

// InsertSubscription subscribes the user to the feed. Subscribing again revives a
// deleted subscription with the new config.
func (r Repo) InsertSubscription(ctx context.Context, sub cardfeed.Subscription) (cardfeed.Subscription, error) {
	const q = `INSERT INTO subscriptions (id, feed_id, user_id, config, created_at)
	VALUES (:id, :feed_id, :user_id, :config, :created_at)
	ON CONFLICT(user_id, feed_id) DO UPDATE SET deleted = 0, config = excluded.config;`

	sub.ID = newID(subscriptionNamespace)
	sub.CreatedAt = dbTime(sub.CreatedAt)
	if _, err := r.db.NamedExecContext(ctx, q, sub); err != nil {
		return cardfeed.Subscription{}, fmt.Errorf("error inserting subscription: %w", err)
	}

	const sel = `SELECT * FROM subscriptions WHERE user_id = ? AND feed_id = ?;`
	var stored cardfeed.Subscription
	if err := r.db.GetContext(ctx, &stored, sel, sub.UserID, sub.FeedID); err != nil {
		return cardfeed.Subscription{}, fmt.Errorf("error fetching subscription: %w", err)
	}

	return stored, nil
}

func (r Repo) UpdateSubscriptionConfig(ctx context.Context, id string, cfg cardfeed.SubscriptionConfig) error {
	const q = `UPDATE subscriptions SET config = ? WHERE id = ? AND deleted = 0;`

	res, err := r.db.ExecContext(ctx, q, cfg, id)
	if err != nil {
		return fmt.Errorf("error updating subscription: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("error checking updated rows: %w", err)
	} else if n == 0 {
		return cardfeed.ErrNotFound
	}

	return nil
}

func (r Repo) SoftDeleteSubscription(ctx context.Context, id string) error {
	return r.softDelete(ctx, "subscriptions", id)
}
