package cardfeed

import (
	"fmt"
	"time"
)

type (
	// Deck is a named collection of cards owned by a single author.
	Deck struct {
		ID        string    `db:"id" json:"id"`
		Name      string    `db:"name" json:"name"`
		AuthorID  string    `db:"author_id" json:"author_id"`
		Deleted   bool      `db:"deleted" json:"-"`
		CreatedAt time.Time `db:"created_at" json:"created_at"`
	}

	Card struct {
		ID        string    `db:"id" json:"id"`
		DeckID    string    `db:"deck_id" json:"deck_id"`
		Front     string    `db:"front" json:"front"`
		Back      string    `db:"back" json:"back"`
		CreatedAt time.Time `db:"created_at" json:"created_at"`
		Deleted   bool      `db:"deleted" json:"-"`
	}

	// CardImpression is one review of a card. They're never updated; a card's
	// schedule is derived from the whole log of them.
	CardImpression struct {
		ID         string     `db:"id" json:"id"`
		CardID     string     `db:"card_id" json:"card_id"`
		UserID     string     `db:"user_id" json:"user_id"`
		Date       time.Time  `db:"date" json:"date"`
		TimeSpent  int64      `db:"time_spent" json:"time_spent_ms"` // Milliseconds between flip and resolution
		Resolution Resolution `db:"resolution" json:"resolution"`
	}
)

// Resolution is the outcome the user picked after flipping a card.
type Resolution string

const (
	ResolutionEasy   Resolution = "easy"
	ResolutionHard   Resolution = "hard"
	ResolutionRepeat Resolution = "repeat"
)

func (r Resolution) String() string {
	return string(r)
}

// IsValid reports whether r is one of the known resolutions.
func (r Resolution) IsValid() bool {
	switch r {
	case ResolutionEasy, ResolutionHard, ResolutionRepeat:
		return true
	}
	return false
}

// MarshalText writes the stored value as is. Only input is validated.
func (r Resolution) MarshalText() ([]byte, error) {
	return []byte(r), nil
}

func (r *Resolution) UnmarshalText(text []byte) error {
	v := Resolution(text)
	if !v.IsValid() {
		return fmt.Errorf("%w: unknown resolution %q", ErrValidation, text)
	}
	*r = v
	return nil
}
