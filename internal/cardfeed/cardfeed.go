// Package cardfeed holds the shared types and storage surfaces for the flashcard
// reviewer and its feed reader.
//
// Nothing in here does I/O itself: the sqlite package implements the repositories,
// and the schedule, review and feedsync packages build behavior on top of them.
package cardfeed

import (
	"context"
	"errors"
)

var (
	ErrNotFound     = errors.New("resource not found")
	ErrConflict     = errors.New("resource already exists")
	ErrAccessDenied = errors.New("access denied")
	ErrValidation   = errors.New("invalid input")
)

// Repository is the full persistence surface the application needs.
type Repository interface {
	DeckRepo
	CardRepo
	FeedRepo
	SubscriptionRepo
	ReadRepo
	JobRepo
}

type (
	DeckRepo interface {
		Deck(ctx context.Context, id string) (Deck, error)
		// Only decks that haven't been deleted.
		UserDecks(ctx context.Context, userID string) ([]Deck, error)
		InsertDeck(ctx context.Context, deck Deck) (Deck, error)
		SoftDeleteDeck(ctx context.Context, id string) error
	}

	CardRepo interface {
		Card(ctx context.Context, id string) (Card, error)
		// Only cards that haven't been deleted.
		DeckCards(ctx context.Context, deckID string) ([]Card, error)
		InsertCard(ctx context.Context, card Card) (Card, error)
		SoftDeleteCard(ctx context.Context, id string) error
		// Impressions left by the user on any of the cards, oldest first.
		CardImpressions(ctx context.Context, cardIDs []string, userID string) ([]CardImpression, error)
		InsertCardImpression(ctx context.Context, imp CardImpression) (CardImpression, error)
	}

	FeedRepo interface {
		Feed(ctx context.Context, id string) (Feed, error)
		FeedByURL(ctx context.Context, url string) (Feed, error)
		InsertFeed(ctx context.Context, url string) (Feed, error)
		UpdateFeed(ctx context.Context, id string, args UpdateFeedArgs) error
		// Feeds with at least one subscription that isn't deleted.
		SubscribedFeeds(ctx context.Context) ([]Feed, error)
		FeedItems(ctx context.Context, feedID string) ([]RSSItem, error)
		Item(ctx context.Context, id string) (RSSItem, error)
		// Inserts the items, ignoring any that collide on (feed_id, remote_id).
		// Returns how many rows were actually written.
		InsertItems(ctx context.Context, items []RSSItem) (int, error)
	}

	SubscriptionRepo interface {
		Subscription(ctx context.Context, id string) (Subscription, error)
		UserSubscriptions(ctx context.Context, userID string) ([]Subscription, error)
		InsertSubscription(ctx context.Context, sub Subscription) (Subscription, error)
		UpdateSubscriptionConfig(ctx context.Context, id string, cfg SubscriptionConfig) error
		SoftDeleteSubscription(ctx context.Context, id string) error
	}

	ReadRepo interface {
		// Items in the feed the user has no read impression for, newest first.
		UnreadItems(ctx context.Context, userID, feedID string) ([]RSSItem, error)
		UnreadCount(ctx context.Context, userID, feedID string) (int, error)
		// Marking an item that is already read is a no-op.
		MarkRead(ctx context.Context, userID string, itemIDs ...string) error
	}

	JobRepo interface {
		// Claims a single tick of a job. Returns ErrConflict when someone else already has.
		ClaimJobRun(ctx context.Context, name string, tick int64) (JobRun, error)
		FinishJobRun(ctx context.Context, id string, errMsg string) error
	}
)
