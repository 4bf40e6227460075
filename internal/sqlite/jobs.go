package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/jdholdren/cardfeed/internal/cardfeed"
)

const jobRunNamespace = "-run"

// ClaimJobRun records that this instance is running the tick. Only the first
// claim for a (name, tick) succeeds; the rest get ErrConflict.
func (r Repo) ClaimJobRun(ctx context.Context, name string, tick int64) (cardfeed.JobRun, error) {
	const q = `INSERT INTO job_runs (id, name, tick, started_at) VALUES (:id, :name, :tick, :started_at);`

	run := cardfeed.JobRun{
		ID:        newID(jobRunNamespace),
		Name:      name,
		Tick:      tick,
		StartedAt: dbTime(time.Now()),
	}
	_, err := r.db.NamedExecContext(ctx, q, run)
	if isUniqueViolation(err) {
		return cardfeed.JobRun{}, fmt.Errorf("job run already claimed: %w", cardfeed.ErrConflict)
	}
	if err != nil {
		return cardfeed.JobRun{}, fmt.Errorf("error claiming job run: %w", err)
	}

	return run, nil
}

// FinishJobRun stamps the run as done. A non-empty errMsg marks it as failed.
func (r Repo) FinishJobRun(ctx context.Context, id string, errMsg string) error {
	const q = `UPDATE job_runs SET finished_at = ?, error = ? WHERE id = ?;`

	var errCol *string
	if errMsg != "" {
		errCol = &errMsg
	}
	if _, err := r.db.ExecContext(ctx, q, dbTime(time.Now()), errCol, id); err != nil {
		return fmt.Errorf("error finishing job run: %w", err)
	}

	return nil
}

// JobRuns lists the recorded runs of a job, latest first.
func (r Repo) JobRuns(ctx context.Context, name string) ([]cardfeed.JobRun, error) {
	const q = `SELECT * FROM job_runs WHERE name = ? ORDER BY tick DESC;`

	runs := []cardfeed.JobRun{}
	if err := r.db.SelectContext(ctx, &runs, q, name); err != nil {
		return nil, fmt.Errorf("error selecting job runs: %w", err)
	}

	return runs, nil
}
