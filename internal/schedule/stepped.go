package schedule

import (
	"time"

	"github.com/jdholdren/cardfeed/internal/cardfeed"
)

// Stepped behaves like FixedInterval, but with waits and a review cap taken from Config.
type Stepped struct {
	Config Config
}

var _ Strategy = Stepped{}

func (Stepped) Name() string { return "stepped" }

func (Stepped) DefaultConfig() Config {
	return Config{Intervals: DefaultIntervals, MaxReviews: 50}
}

func (Stepped) InitialCardState() CardState {
	return CardState{}
}

func (s Stepped) InitialDeckState() DeckState {
	return DeckState{Strategy: s.Name(), Config: s.DefaultConfig()}
}

func (s Stepped) NextDue(card cardfeed.Card, impressions []cardfeed.CardImpression) time.Time {
	if len(impressions) == 0 {
		return card.CreatedAt
	}

	sorted := sortedByDate(impressions)
	last := sorted[len(sorted)-1]
	return last.Date.Add(s.wait(last.Resolution))
}

func (s Stepped) ReviewOrder(cards []DueCard, now time.Time) []DueCard {
	limit := s.Config.MaxReviews
	if limit == 0 {
		limit = s.DefaultConfig().MaxReviews
	}
	return oldestDueFirst(cards, limit)
}

func (s Stepped) Apply(state CardState, imp cardfeed.CardImpression) CardState {
	return applyWait(state, imp, s.wait(imp.Resolution))
}

func (s Stepped) wait(r cardfeed.Resolution) time.Duration {
	if !r.IsValid() {
		r = cardfeed.ResolutionEasy
	}
	if d := s.Config.Intervals[r]; d > 0 {
		return d
	}
	return DefaultIntervals[r]
}
