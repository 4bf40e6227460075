package review

import (
	"context"
	"fmt"
	"time"

	"github.com/jdholdren/cardfeed/internal/cardfeed"
	"github.com/jdholdren/cardfeed/internal/fanout"
	"github.com/jdholdren/cardfeed/internal/schedule"
)

// DueCards returns the user's cards that became due strictly before now. Only
// the user's own impressions count and deleted decks and cards are left out.
func (s *Service) DueCards(ctx context.Context, userID string, now time.Time) ([]cardfeed.Card, error) {
	due, err := s.dueCards(ctx, userID, now)
	if err != nil {
		return nil, err
	}

	cards := make([]cardfeed.Card, 0, len(due))
	for _, d := range due {
		cards = append(cards, d.Card)
	}
	return cards, nil
}

// DueCount is how many cards DueCards would return.
func (s *Service) DueCount(ctx context.Context, userID string, now time.Time) (int, error) {
	due, err := s.dueCards(ctx, userID, now)
	if err != nil {
		return 0, err
	}
	return len(due), nil
}

func (s *Service) dueCards(ctx context.Context, userID string, now time.Time) ([]schedule.DueCard, error) {
	decks, err := s.repo.UserDecks(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error loading decks: %w", err)
	}

	perDeck, err := fanout.Map(ctx, fanout.DefaultLimit, decks, func(ctx context.Context, deck cardfeed.Deck) ([]schedule.DueCard, error) {
		return s.deckDueCards(ctx, deck, userID, now)
	})
	if err != nil {
		return nil, err
	}

	due := []schedule.DueCard{}
	for _, cards := range perDeck {
		due = append(due, cards...)
	}
	return due, nil
}

func (s *Service) deckDueCards(ctx context.Context, deck cardfeed.Deck, userID string, now time.Time) ([]schedule.DueCard, error) {
	cards, err := s.repo.DeckCards(ctx, deck.ID)
	if err != nil {
		return nil, fmt.Errorf("error loading cards of deck %s: %w", deck.ID, err)
	}
	if len(cards) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(cards))
	for _, card := range cards {
		ids = append(ids, card.ID)
	}
	imps, err := s.repo.CardImpressions(ctx, ids, userID)
	if err != nil {
		return nil, fmt.Errorf("error loading impressions of deck %s: %w", deck.ID, err)
	}
	byCard := make(map[string][]cardfeed.CardImpression, len(cards))
	for _, imp := range imps {
		byCard[imp.CardID] = append(byCard[imp.CardID], imp)
	}

	due := []schedule.DueCard{}
	for _, card := range cards {
		at := s.strategy.NextDue(card, byCard[card.ID])
		if at.Before(now) {
			due = append(due, schedule.DueCard{Card: card, Due: at})
		}
	}
	return due, nil
}
