package jobs

import (
	"context"
	"time"
)

// JobType represents the type of job to be executed.
type JobType string

const (
	// JobTypeRecategorize represents an organization-wide recategorization job.
	JobTypeRecategorize JobType = "recategorize"
)

// JobStatus represents the current status of a job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusRetrying  JobStatus = "retrying"
)

// RecategorizeJob asks for one organization's full account set to be
// recategorized. Forced jobs invalidate the categorization cache first;
// unforced jobs reuse cache entries that are still valid.
type RecategorizeJob struct {
	// JobID is the unique identifier for this job.
	JobID string `json:"job_id"`

	// OrganizationID scopes the run.
	OrganizationID string `json:"organization_id"`

	// Forced drops the organization's cache before the run.
	Forced bool `json:"forced"`

	// Status is the current status of the job.
	Status JobStatus `json:"status"`

	// CreatedAt is when the job was created.
	CreatedAt time.Time `json:"created_at"`

	// StartedAt is when the job started processing.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// CompletedAt is when the job completed (success or failure).
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Error contains error details if the job failed.
	Error string `json:"error,omitempty"`

	// RetryCount is the number of times this job has been retried.
	RetryCount int `json:"retry_count"`

	// MaxRetries is the maximum number of retries allowed.
	MaxRetries int `json:"max_retries"`

	// AccountsProcessed is filled in on completion.
	AccountsProcessed int `json:"accounts_processed,omitempty"`
}

// Job is a generic interface for all job types.
type Job interface {
	GetID() string
	GetType() JobType
	GetStatus() JobStatus
}

// GetID implements the Job interface.
func (j *RecategorizeJob) GetID() string {
	return j.JobID
}

// GetType implements the Job interface.
func (j *RecategorizeJob) GetType() JobType {
	return JobTypeRecategorize
}

// GetStatus implements the Job interface.
func (j *RecategorizeJob) GetStatus() JobStatus {
	return j.Status
}

// Publisher defines the interface for publishing jobs to a queue. The
// abstraction allows different queue backends (in-memory, Cloud Tasks,
// Pub/Sub) without touching callers.
type Publisher interface {
	// PublishRecategorize publishes an organization recategorization job.
	PublishRecategorize(ctx context.Context, job *RecategorizeJob) error

	// Close closes the publisher and releases resources.
	Close() error
}

// Consumer defines the interface for consuming jobs from a queue.
type Consumer interface {
	// Start begins consuming jobs; handler is called for each one.
	Start(ctx context.Context, handler JobHandler) error

	// Stop stops consuming and waits for in-flight jobs to complete.
	Stop(ctx context.Context) error
}

// JobHandler processes one job. A returned error marks the job failed and
// eligible for retry.
type JobHandler func(ctx context.Context, job Job) error

// JobStore tracks job state so callers can poll run progress.
type JobStore interface {
	// SaveJob saves or updates a job's state.
	SaveJob(ctx context.Context, job *RecategorizeJob) error

	// GetJob retrieves a job by ID.
	GetJob(ctx context.Context, jobID string) (*RecategorizeJob, error)

	// ListJobs retrieves jobs with optional filtering.
	ListJobs(ctx context.Context, filter JobFilter) ([]*RecategorizeJob, error)
}

// JobFilter defines filtering criteria for listing jobs.
type JobFilter struct {
	// OrganizationID filters jobs by organization.
	OrganizationID string

	// Status filters jobs by status.
	Status JobStatus

	// Limit limits the number of results.
	Limit int
}
