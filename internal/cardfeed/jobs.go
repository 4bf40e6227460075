package cardfeed

import "time"

// JobRun is the claim an instance makes on a single tick of a scheduled job.
type JobRun struct {
	ID         string     `db:"id"`
	Name       string     `db:"name"`
	Tick       int64      `db:"tick"` // Unix seconds of the scheduled fire time
	StartedAt  time.Time  `db:"started_at"`
	FinishedAt *time.Time `db:"finished_at"`
	Error      *string    `db:"error"`
}
