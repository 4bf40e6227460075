// Package schedule decides when a card should be reviewed again.
//
// A Strategy is everything needed to schedule reviews: its defaults, the state
// it starts cards and decks in, how it derives a due date from a card's
// impressions, and which due cards it wants reviewed first. All state is plain
// data so it can be stored as JSON alongside a deck.
package schedule

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/jdholdren/cardfeed/internal/cardfeed"
)

var ErrUnknownStrategy = errors.New("unknown scheduling strategy")

type (
	Strategy interface {
		Name() string
		DefaultConfig() Config
		InitialCardState() CardState
		InitialDeckState() DeckState
		// NextDue is when the card becomes due, given every impression left on it.
		NextDue(card cardfeed.Card, impressions []cardfeed.CardImpression) time.Time
		// ReviewOrder picks and orders the cards that should be reviewed right now.
		ReviewOrder(cards []DueCard, now time.Time) []DueCard
		// Apply folds a single review into the card's state.
		Apply(state CardState, imp cardfeed.CardImpression) CardState
	}

	// Config tunes a strategy. Zero-valued intervals fall back to the strategy's defaults.
	Config struct {
		Intervals map[cardfeed.Resolution]time.Duration `json:"intervals"`
		// Upper bound on the cards returned by ReviewOrder. Zero means no limit.
		MaxReviews int `json:"max_reviews"`
	}

	// CardState is what a strategy tracks per card.
	CardState struct {
		Reviews        int                 `json:"reviews"`
		LastReview     *time.Time          `json:"last_review"`
		LastResolution cardfeed.Resolution `json:"last_resolution,omitempty"`
		Due            time.Time           `json:"due"`
	}

	// DeckState is what a strategy tracks per deck.
	DeckState struct {
		Strategy string `json:"strategy"`
		Config   Config `json:"config"`
	}

	DueCard struct {
		Card cardfeed.Card
		Due  time.Time
	}
)

// DefaultIntervals are the fixed waits after each resolution.
var DefaultIntervals = map[cardfeed.Resolution]time.Duration{
	cardfeed.ResolutionEasy:   time.Hour,
	cardfeed.ResolutionHard:   5 * time.Minute,
	cardfeed.ResolutionRepeat: 5 * time.Second,
}

// Default is the strategy used when a deck doesn't name one.
var Default Strategy = FixedInterval{}

var registry = map[string]Strategy{
	FixedInterval{}.Name(): FixedInterval{},
	Stepped{}.Name():       Stepped{},
}

// Lookup finds a strategy by name. An empty name gets the default.
func Lookup(name string) (Strategy, error) {
	if name == "" {
		return Default, nil
	}
	s, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}

	return s, nil
}

// ComputeNextDueDate is the default strategy's NextDue.
func ComputeNextDueDate(card cardfeed.Card, impressions []cardfeed.CardImpression) time.Time {
	return Default.NextDue(card, impressions)
}

// Replay rebuilds a card's state from scratch by applying its impressions in order.
func Replay(s Strategy, card cardfeed.Card, impressions []cardfeed.CardImpression) CardState {
	state := s.InitialCardState()
	state.Due = card.CreatedAt
	for _, imp := range sortedByDate(impressions) {
		state = s.Apply(state, imp)
	}

	return state
}

// Returns a copy of the impressions sorted oldest first; the input is left alone.
func sortedByDate(impressions []cardfeed.CardImpression) []cardfeed.CardImpression {
	sorted := slices.Clone(impressions)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	return sorted
}

// Oldest due first, capped at limit when it's positive.
func oldestDueFirst(cards []DueCard, limit int) []DueCard {
	ordered := slices.Clone(cards)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Due.Before(ordered[j].Due)
	})
	if limit > 0 && len(ordered) > limit {
		ordered = ordered[:limit]
	}

	return ordered
}
