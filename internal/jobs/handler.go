package jobs

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/dvloznov/ledgerplan/internal/pipeline"
)

// Committer persists a previewed import.
type Committer interface {
	Commit(ctx context.Context, p *pipeline.Preview, mode pipeline.Mode) (pipeline.BatchResult, error)
}

// NewImportHandler returns a JobHandler that commits ImportJobs. Partial
// failures are returned as errors so the queue retries; saves are keyed by
// deterministic IDs, which makes the retry safe.
func NewImportHandler(c Committer, log zerolog.Logger) JobHandler {
	return func(ctx context.Context, job Job) error {
		ij, ok := job.(*ImportJob)
		if !ok {
			return fmt.Errorf("import handler: unexpected job type %s", job.GetType())
		}
		if ij.Preview == nil {
			return fmt.Errorf("import handler: job %s has no preview", ij.JobID)
		}

		res, err := c.Commit(ctx, ij.Preview, ij.Mode)
		if err != nil {
			return fmt.Errorf("import handler: %w", err)
		}
		ij.Result = &res

		log.Info().
			Str("job_id", ij.JobID).
			Int("succeeded", res.Succeeded).
			Int("failed", res.Failed).
			Msg("import job processed")

		if res.Failed > 0 {
			return fmt.Errorf("import handler: %d of %d records failed", res.Failed, res.Attempted)
		}
		return nil
	}
}
