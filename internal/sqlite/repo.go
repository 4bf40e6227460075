// Package sqlite implements the cardfeed repositories on top of sqlite.
package sqlite

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"modernc.org/sqlite"

	"github.com/jdholdren/cardfeed/internal/cardfeed"
)

// Ensure Repo implements the Repository interface
var _ cardfeed.Repository = (*Repo)(nil)

// sqlite's extended code for a UNIQUE constraint failing.
const codeConstraintUnique = 2067

type Repo struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) Repo {
	return Repo{db: db}
}

func newID(namespace string) string {
	return fmt.Sprintf("%s%s", uuid.NewString(), namespace)
}

func isUniqueViolation(err error) bool {
	sqliteErr := &sqlite.Error{}
	return errors.As(err, &sqliteErr) && sqliteErr.Code() == codeConstraintUnique
}

// Times are always stored in UTC so they sort correctly as text.
func dbTime(t time.Time) time.Time {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC()
}
