package review

import (
	"context"
	"fmt"
	"time"

	"github.com/jdholdren/cardfeed/internal/cardfeed"
)

// RecordImpression stores the outcome of the user reviewing a card. Only the
// owner of the card's deck may review it.
func (s *Service) RecordImpression(ctx context.Context, userID, cardID string, res cardfeed.Resolution, timeSpent time.Duration, at time.Time) (cardfeed.CardImpression, error) {
	if !res.IsValid() {
		return cardfeed.CardImpression{}, fmt.Errorf("%w: unknown resolution %q", cardfeed.ErrValidation, res)
	}
	if timeSpent < 0 {
		return cardfeed.CardImpression{}, fmt.Errorf("%w: negative time spent", cardfeed.ErrValidation)
	}

	card, err := s.repo.Card(ctx, cardID)
	if err != nil {
		return cardfeed.CardImpression{}, fmt.Errorf("error fetching card: %w", err)
	}
	if card.Deleted {
		return cardfeed.CardImpression{}, fmt.Errorf("card %s was deleted: %w", cardID, cardfeed.ErrNotFound)
	}
	deck, err := s.repo.Deck(ctx, card.DeckID)
	if err != nil {
		return cardfeed.CardImpression{}, fmt.Errorf("error fetching deck: %w", err)
	}
	if deck.Deleted {
		return cardfeed.CardImpression{}, fmt.Errorf("deck %s was deleted: %w", deck.ID, cardfeed.ErrNotFound)
	}
	if deck.AuthorID != userID {
		return cardfeed.CardImpression{}, cardfeed.ErrAccessDenied
	}

	imp, err := s.repo.InsertCardImpression(ctx, cardfeed.CardImpression{
		CardID:     cardID,
		UserID:     userID,
		Date:       at,
		TimeSpent:  timeSpent.Milliseconds(),
		Resolution: res,
	})
	if err != nil {
		return cardfeed.CardImpression{}, fmt.Errorf("error inserting impression: %w", err)
	}

	return imp, nil
}
