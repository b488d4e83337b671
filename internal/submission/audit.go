package submission

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/flowforge/flowcore/common/db"
	"github.com/flowforge/flowcore/common/logger"
)

// AuditRepository persists submission lifecycle and per-run events to
// Postgres: one row per submission in submission_audit, one row per
// lifecycle event in run_event. Grounded on common/db.DB's pgxpool wrapper
// rather than the teacher's broader artifact-kind model (DAGVersion/
// PatchSet/RunManifest/RunSnapshot), since spec.md's Non-goals rule out
// persisting graph versions — only the narrower run/event shape survives.
type AuditRepository struct {
	db  *db.DB
	log *logger.Logger
}

// NewAuditRepository wraps an open database pool.
func NewAuditRepository(database *db.DB, log *logger.Logger) *AuditRepository {
	return &AuditRepository{db: database, log: log}
}

// RecordSubmission inserts the initial submission_audit row.
func (r *AuditRepository) RecordSubmission(ctx context.Context, submissionID, manifestLocator string, concurrency int, jobTimeout time.Duration, debug bool) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO submission_audit (submission_id, manifest_locator, concurrency, job_timeout_ms, debug, status, created_at)
		VALUES ($1, $2, $3, $4, $5, 'running', now())
	`, submissionID, manifestLocator, concurrency, jobTimeout.Milliseconds(), debug)
	if err != nil {
		return fmt.Errorf("recording submission %s: %w", submissionID, err)
	}
	return nil
}

// RecordEvent appends a run_event row. data is marshaled to JSON; callers
// pass a map or struct describing the event (job id/function id/error
// string/metrics, depending on kind).
func (r *AuditRepository) RecordEvent(ctx context.Context, submissionID, kind string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshaling event payload: %w", err)
	}
	_, err = r.db.Exec(ctx, `
		INSERT INTO run_event (submission_id, kind, payload, created_at)
		VALUES ($1, $2, $3, now())
	`, submissionID, kind, payload)
	if err != nil {
		r.log.Error("failed to record run event", "submission_id", submissionID, "kind", kind, "error", err)
		return fmt.Errorf("recording event %s for %s: %w", kind, submissionID, err)
	}
	return nil
}

// Finish updates the submission_audit row's terminal status.
func (r *AuditRepository) Finish(ctx context.Context, submissionID string, ok bool, errMsg string) error {
	status := "completed"
	if !ok {
		status = "failed"
	}
	_, err := r.db.Exec(ctx, `
		UPDATE submission_audit SET status = $2, error = $3, finished_at = now()
		WHERE submission_id = $1
	`, submissionID, status, errMsg)
	if err != nil {
		return fmt.Errorf("finishing submission %s: %w", submissionID, err)
	}
	return nil
}

// Schema is the DDL for the two tables this repository uses. Callers run
// it once at startup (or via an external migration tool); it's exposed here
// rather than hidden behind an auto-migrate step, matching common/db's
// connect-only responsibility.
const Schema = `
CREATE TABLE IF NOT EXISTS submission_audit (
	submission_id    TEXT PRIMARY KEY,
	manifest_locator TEXT NOT NULL,
	concurrency      INT NOT NULL,
	job_timeout_ms   BIGINT NOT NULL,
	debug            BOOLEAN NOT NULL DEFAULT false,
	status           TEXT NOT NULL,
	error            TEXT,
	created_at       TIMESTAMPTZ NOT NULL,
	finished_at      TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS run_event (
	id            BIGSERIAL PRIMARY KEY,
	submission_id TEXT NOT NULL REFERENCES submission_audit(submission_id),
	kind          TEXT NOT NULL,
	payload       JSONB NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS run_event_submission_idx ON run_event(submission_id);
`
