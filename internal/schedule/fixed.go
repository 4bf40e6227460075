package schedule

import (
	"time"

	"github.com/jdholdren/cardfeed/internal/cardfeed"
)

// FixedInterval waits a fixed amount of time after a review depending only on
// the last resolution. Anything it doesn't recognize is treated as easy.
type FixedInterval struct{}

var _ Strategy = FixedInterval{}

func (FixedInterval) Name() string { return "fixed" }

func (FixedInterval) DefaultConfig() Config {
	return Config{Intervals: DefaultIntervals}
}

func (FixedInterval) InitialCardState() CardState {
	return CardState{}
}

func (f FixedInterval) InitialDeckState() DeckState {
	return DeckState{Strategy: f.Name(), Config: f.DefaultConfig()}
}

func (FixedInterval) NextDue(card cardfeed.Card, impressions []cardfeed.CardImpression) time.Time {
	if len(impressions) == 0 {
		return card.CreatedAt
	}

	sorted := sortedByDate(impressions)
	last := sorted[len(sorted)-1]
	return last.Date.Add(fixedWait(last.Resolution))
}

func (FixedInterval) ReviewOrder(cards []DueCard, now time.Time) []DueCard {
	return oldestDueFirst(cards, 0)
}

func (FixedInterval) Apply(state CardState, imp cardfeed.CardImpression) CardState {
	return applyWait(state, imp, fixedWait(imp.Resolution))
}

func fixedWait(r cardfeed.Resolution) time.Duration {
	switch r {
	case cardfeed.ResolutionHard:
		return DefaultIntervals[cardfeed.ResolutionHard]
	case cardfeed.ResolutionRepeat:
		return DefaultIntervals[cardfeed.ResolutionRepeat]
	default:
		return DefaultIntervals[cardfeed.ResolutionEasy]
	}
}

func applyWait(state CardState, imp cardfeed.CardImpression, wait time.Duration) CardState {
	at := imp.Date
	state.Reviews++
	state.LastReview = &at
	state.LastResolution = imp.Resolution
	state.Due = at.Add(wait)

	return state
}
