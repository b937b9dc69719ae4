package domain

import "time"

// ProviderKind tags a job with the adapter that owns its handle. Set at
// submission time so polling never has to guess from the id format.
type ProviderKind string

const (
	ProviderKindGemini ProviderKind = "gemini"
	ProviderKindWanx   ProviderKind = "wanx"
	ProviderKindImagen ProviderKind = "imagen"
)

// JobStatus enumerates generation job lifecycle states.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Terminal reports whether the job can no longer change state.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Job is one provider-side asynchronous generation task belonging to an order.
// ID is the provider-scoped handle (operation name, task id) and is only
// meaningful to the adapter identified by Provider.
type Job struct {
	ID          string
	OrderID     string
	Provider    ProviderKind
	Model       string
	Status      JobStatus
	ResultRef   string
	ErrorKind   ErrorKind
	ErrorDetail string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Terminal reports whether the job reached a final state.
func (j *Job) Terminal() bool {
	return j.Status.Terminal()
}
