// Package review builds what a user reviews: the cards that are due, the unread
// items of their feeds, the shuffled queue mixing the two, and the session that
// walks through that queue.
package review

import (
	"context"
	"math/rand/v2"

	"github.com/jdholdren/cardfeed/internal/cardfeed"
	"github.com/jdholdren/cardfeed/internal/schedule"
)

type Repository interface {
	cardfeed.DeckRepo
	cardfeed.CardRepo
	cardfeed.FeedRepo
	cardfeed.SubscriptionRepo
	cardfeed.ReadRepo
}

// Refresher brings a feed up to date before its items are read.
type Refresher interface {
	MaybeRefreshFeed(ctx context.Context, feed cardfeed.Feed) (bool, error)
}

type Service struct {
	repo      Repository
	strategy  schedule.Strategy
	refresher Refresher
	newRand   func() *rand.Rand
}

// NewService creates the review service. A nil strategy uses the default one and a
// nil refresher skips refreshing feeds while building queues.
func NewService(repo Repository, strategy schedule.Strategy, refresher Refresher) *Service {
	if strategy == nil {
		strategy = schedule.Default
	}

	return &Service{
		repo:      repo,
		strategy:  strategy,
		refresher: refresher,
		newRand: func() *rand.Rand {
			return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
		},
	}
}
