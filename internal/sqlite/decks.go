package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/jdholdren/cardfeed/internal/cardfeed"
)

const (
	deckNamespace       = "-dck"
	cardNamespace       = "-crd"
	impressionNamespace = "-imp"
)

// Deck fetches a deck by id, deleted or not.
func (r Repo) Deck(ctx context.Context, id string) (cardfeed.Deck, error) {
	const q = `SELECT * FROM decks WHERE id = ?;`

	var deck cardfeed.Deck
	err := r.db.GetContext(ctx, &deck, q, id)
	if errors.Is(err, sql.ErrNoRows) {
		return cardfeed.Deck{}, cardfeed.ErrNotFound
	}
	if err != nil {
		return cardfeed.Deck{}, fmt.Errorf("error fetching deck: %w", err)
	}

	return deck, nil
}

func (r Repo) UserDecks(ctx context.Context, userID string) ([]cardfeed.Deck, error) {
	const q = `SELECT * FROM decks WHERE author_id = ? AND deleted = 0 ORDER BY created_at;`

	decks := []cardfeed.Deck{}
	if err := r.db.SelectContext(ctx, &decks, q, userID); err != nil {
		return nil, fmt.Errorf("error selecting decks: %w", err)
	}

	return decks, nil
}

func (r Repo) InsertDeck(ctx context.Context, deck cardfeed.Deck) (cardfeed.Deck, error) {
	const q = `INSERT INTO decks (id, name, author_id, created_at) VALUES (:id, :name, :author_id, :created_at);`

	deck.ID = newID(deckNamespace)
	deck.CreatedAt = dbTime(deck.CreatedAt)
	deck.Deleted = false
	if _, err := r.db.NamedExecContext(ctx, q, deck); err != nil {
		return cardfeed.Deck{}, fmt.Errorf("error inserting deck: %w", err)
	}

	return deck, nil
}

func (r Repo) SoftDeleteDeck(ctx context.Context, id string) error {
	return r.softDelete(ctx, "decks", id)
}

// Card fetches a card by id, deleted or not.
func (r Repo) Card(ctx context.Context, id string) (cardfeed.Card, error) {
	const q = `SELECT * FROM cards WHERE id = ?;`

	var card cardfeed.Card
	err := r.db.GetContext(ctx, &card, q, id)
	if errors.Is(err, sql.ErrNoRows) {
		return cardfeed.Card{}, cardfeed.ErrNotFound
	}
	if err != nil {
		return cardfeed.Card{}, fmt.Errorf("error fetching card: %w", err)
	}

	return card, nil
}

func (r Repo) DeckCards(ctx context.Context, deckID string) ([]cardfeed.Card, error) {
	const q = `SELECT * FROM cards WHERE deck_id = ? AND deleted = 0 ORDER BY created_at;`

	cards := []cardfeed.Card{}
	if err := r.db.SelectContext(ctx, &cards, q, deckID); err != nil {
		return nil, fmt.Errorf("error selecting cards: %w", err)
	}

	return cards, nil
}

func (r Repo) InsertCard(ctx context.Context, card cardfeed.Card) (cardfeed.Card, error) {
	const q = `INSERT INTO cards (id, deck_id, front, back, created_at)
	VALUES (:id, :deck_id, :front, :back, :created_at);`

	card.ID = newID(cardNamespace)
	card.CreatedAt = dbTime(card.CreatedAt)
	card.Deleted = false
	if _, err := r.db.NamedExecContext(ctx, q, card); err != nil {
		return cardfeed.Card{}, fmt.Errorf("error inserting card: %w", err)
	}

	return card, nil
}

func (r Repo) SoftDeleteCard(ctx context.Context, id string) error {
	return r.softDelete(ctx, "cards", id)
}

func (r Repo) CardImpressions(ctx context.Context, cardIDs []string, userID string) ([]cardfeed.CardImpression, error) {
	if len(cardIDs) == 0 {
		return []cardfeed.CardImpression{}, nil
	}

	query, args, err := sq.Select("*").
		From("card_impressions").
		Where(sq.Eq{"card_id": cardIDs, "user_id": userID}).
		OrderBy("date ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("error constructing sql: %s", err)
	}

	imps := []cardfeed.CardImpression{}
	if err := r.db.SelectContext(ctx, &imps, query, args...); err != nil {
		return nil, fmt.Errorf("error selecting impressions: %w", err)
	}

	return imps, nil
}

func (r Repo) InsertCardImpression(ctx context.Context, imp cardfeed.CardImpression) (cardfeed.CardImpression, error) {
	const q = `INSERT INTO card_impressions (id, card_id, user_id, date, time_spent, resolution)
	VALUES (:id, :card_id, :user_id, :date, :time_spent, :resolution);`

	imp.ID = newID(impressionNamespace)
	imp.Date = dbTime(imp.Date)
	if _, err := r.db.NamedExecContext(ctx, q, imp); err != nil {
		return cardfeed.CardImpression{}, fmt.Errorf("error inserting impression: %w", err)
	}

	return imp, nil
}

func (r Repo) softDelete(ctx context.Context, table, id string) error {
	query, args, err := sq.Update(table).Set("deleted", true).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("error constructing sql: %s", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("error deleting from %s: %w", table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error checking deleted rows: %w", err)
	}
	if n == 0 {
		return cardfeed.ErrNotFound
	}

	return nil
}
