package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/dvloznov/ledgerplan/internal/pipeline"
)

var (
	// ErrJobNotFound is returned by JobStore lookups.
	ErrJobNotFound = errors.New("job not found")

	// ErrQueueClosed is returned when publishing to or starting a stopped queue.
	ErrQueueClosed = errors.New("queue is closed")

	// ErrStatusConflict is returned by CompareAndSetStatus when the job is
	// no longer in the expected status.
	ErrStatusConflict = errors.New("job status changed")
)

// JobType represents the type of job to be executed.
type JobType string

const (
	// JobTypeImportCommit persists a previewed import.
	JobTypeImportCommit JobType = "import_commit"
)

// JobStatus represents the current status of a job.
type JobStatus string

const (
	// JobStatusAwaitingDecision indicates a preview waiting for the user to pick a commit mode.
	JobStatusAwaitingDecision JobStatus = "awaiting_decision"
	// JobStatusPending indicates the job is waiting to be processed.
	JobStatusPending JobStatus = "pending"
	// JobStatusRunning indicates the job is currently being processed.
	JobStatusRunning JobStatus = "running"
	// JobStatusCompleted indicates the job completed successfully.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates the job failed.
	JobStatusFailed JobStatus = "failed"
	// JobStatusRetrying indicates the job failed and is being retried.
	JobStatusRetrying JobStatus = "retrying"
)

// ImportJob tracks one import from preview to commit.
type ImportJob struct {
	// JobID is the unique identifier for this job.
	JobID string `json:"job_id"`

	UserID  string `json:"user_id"`
	CardID  string `json:"card_id"`
	BatchID string `json:"batch_id"`

	// Mode is chosen by the user when committing.
	Mode pipeline.Mode `json:"mode,omitempty"`

	// Preview holds the parsed drafts and the duplicate report.
	Preview *pipeline.Preview `json:"preview,omitempty"`

	// Result is set once the commit has run.
	Result *pipeline.BatchResult `json:"result,omitempty"`

	// Status is the current status of the job.
	Status JobStatus `json:"status"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Error contains error details if the job failed.
	Error string `json:"error,omitempty"`

	RetryCount int `json:"retry_count"`
	MaxRetries int `json:"max_retries"`
}

// Job is a generic interface for all job types.
type Job interface {
	GetID() string
	GetType() JobType
	GetStatus() JobStatus
}

// GetID implements the Job interface.
func (j *ImportJob) GetID() string {
	return j.JobID
}

// GetType implements the Job interface.
func (j *ImportJob) GetType() JobType {
	return JobTypeImportCommit
}

// GetStatus implements the Job interface.
func (j *ImportJob) GetStatus() JobStatus {
	return j.Status
}

// Publisher enqueues jobs.
type Publisher interface {
	// PublishImport enqueues an import commit.
	PublishImport(ctx context.Context, job *ImportJob) error

	// Close closes the publisher and releases resources.
	Close() error
}

// Consumer processes jobs from a queue.
type Consumer interface {
	// Start begins consuming jobs from the queue.
	// The handler function is called for each job received.
	Start(ctx context.Context, handler JobHandler) error

	// Stop stops consuming jobs and waits for in-flight jobs to complete.
	Stop(ctx context.Context) error
}

// JobHandler processes a job. A returned error triggers a retry.
type JobHandler func(ctx context.Context, job Job) error

// JobStore keeps job state.
type JobStore interface {
	// SaveJob saves or updates a job's state.
	SaveJob(ctx context.Context, job *ImportJob) error

	// GetJob retrieves a job by ID.
	GetJob(ctx context.Context, jobID string) (*ImportJob, error)

	// ListJobs retrieves jobs with optional filtering, newest first.
	ListJobs(ctx context.Context, filter JobFilter) ([]*ImportJob, error)

	// UpdateJobStatus updates the status of a job.
	UpdateJobStatus(ctx context.Context, jobID string, status JobStatus, errorMsg string) error

	// CompareAndSetStatus moves a job from one status to another in a
	// single step, returning ErrStatusConflict if it is not in from.
	CompareAndSetStatus(ctx context.Context, jobID string, from, to JobStatus) error
}

// JobFilter defines filtering criteria for listing jobs.
type JobFilter struct {
	UserID string
	Status JobStatus
	Limit  int
	Offset int
}
