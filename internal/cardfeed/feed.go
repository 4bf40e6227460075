package cardfeed

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

type (
	// Feed represents an RSS or Atom source. It's shared by everyone subscribed to it.
	Feed struct {
		ID        string     `db:"id" json:"id"`
		RSSURL    string     `db:"rss_url" json:"rss_url"`
		Title     string     `db:"title" json:"title"`
		LastSync  *time.Time `db:"last_sync" json:"last_sync"`
		CreatedAt time.Time  `db:"created_at" json:"created_at"`
	}

	// RSSItem is a unique entry in a feed, identified within it by RemoteID.
	RSSItem struct {
		ID        string    `db:"id" json:"id"`
		FeedID    string    `db:"feed_id" json:"feed_id"`
		RemoteID  string    `db:"remote_id" json:"remote_id"`
		Title     string    `db:"title" json:"title"`
		Link      string    `db:"link" json:"link"`
		Content   string    `db:"content" json:"content"`
		PubDate   time.Time `db:"pub_date" json:"pub_date"`
		CreatedAt time.Time `db:"created_at" json:"created_at"`
	}

	Subscription struct {
		ID        string             `db:"id" json:"id"`
		FeedID    string             `db:"feed_id" json:"feed_id"`
		UserID    string             `db:"user_id" json:"user_id"`
		Config    SubscriptionConfig `db:"config" json:"config"`
		Deleted   bool               `db:"deleted" json:"-"`
		CreatedAt time.Time          `db:"created_at" json:"created_at"`
	}

	// RSSImpression marks an item as read by a user. There's no way back to unread.
	RSSImpression struct {
		ID        string    `db:"id" json:"id"`
		UserID    string    `db:"user_id" json:"user_id"`
		RSSItemID string    `db:"rss_item_id" json:"rss_item_id"`
		CreatedAt time.Time `db:"created_at" json:"created_at"`
	}

	// Holds the optional fields for updating a feed.
	UpdateFeedArgs struct {
		Title      string
		LastSynced time.Time
	}
)

// IsStale reports whether the feed hasn't been synced within the interval.
// A feed that was never synced is always stale.
func (f Feed) IsStale(now time.Time, interval time.Duration) bool {
	if f.LastSync == nil {
		return true
	}
	return now.Sub(*f.LastSync) >= interval
}

// ItemOrder is the order a subscription's items are presented in.
type ItemOrder string

const (
	OrderNewest ItemOrder = "newest"
	OrderOldest ItemOrder = "oldest"
)

// SubscriptionConfig is the per-user presentation settings of a subscription.
type SubscriptionConfig struct {
	Order             ItemOrder `json:"order"`
	ShuffleIntoReview bool      `json:"shuffle_into_review"`
	BlockDirectAccess bool      `json:"block_direct_access"`
	Category          string    `json:"category"`
}

// DefaultSubscriptionConfig is what a new subscription starts with.
func DefaultSubscriptionConfig() SubscriptionConfig {
	return SubscriptionConfig{
		Order:             OrderNewest,
		ShuffleIntoReview: true,
	}
}

// ParseSubscriptionConfig layers the known keys of raw on top of the defaults.
//
// Unknown keys are dropped rather than rejected. A known key holding the wrong
// type is a validation error.
func ParseSubscriptionConfig(raw map[string]any) (SubscriptionConfig, error) {
	cfg := DefaultSubscriptionConfig()
	for k, v := range raw {
		switch k {
		case "order":
			s, ok := v.(string)
			if !ok || (ItemOrder(s) != OrderNewest && ItemOrder(s) != OrderOldest) {
				return SubscriptionConfig{}, fmt.Errorf("%w: order must be %q or %q", ErrValidation, OrderNewest, OrderOldest)
			}
			cfg.Order = ItemOrder(s)
		case "shuffle_into_review":
			b, ok := v.(bool)
			if !ok {
				return SubscriptionConfig{}, fmt.Errorf("%w: shuffle_into_review must be a boolean", ErrValidation)
			}
			cfg.ShuffleIntoReview = b
		case "block_direct_access":
			b, ok := v.(bool)
			if !ok {
				return SubscriptionConfig{}, fmt.Errorf("%w: block_direct_access must be a boolean", ErrValidation)
			}
			cfg.BlockDirectAccess = b
		case "category":
			s, ok := v.(string)
			if !ok {
				return SubscriptionConfig{}, fmt.Errorf("%w: category must be a string", ErrValidation)
			}
			cfg.Category = s
		}
	}

	return cfg, nil
}

// Value stores the config as a JSON document.
func (c SubscriptionConfig) Value() (driver.Value, error) {
	if c.Order == "" {
		c.Order = OrderNewest
	}
	byts, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return string(byts), nil
}

// Scan reads a config stored by Value. Unknown keys in the stored document are ignored.
func (c *SubscriptionConfig) Scan(src any) error {
	var byts []byte
	switch src := src.(type) {
	case nil:
		*c = DefaultSubscriptionConfig()
		return nil
	case string:
		byts = []byte(src)
	case []byte:
		byts = src
	default:
		return fmt.Errorf("unsupported config type %T", src)
	}

	raw := map[string]any{}
	if err := json.Unmarshal(byts, &raw); err != nil {
		return fmt.Errorf("error decoding subscription config: %w", err)
	}
	cfg, err := ParseSubscriptionConfig(raw)
	if err != nil {
		return err
	}
	*c = cfg

	return nil
}
