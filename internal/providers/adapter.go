// Package providers defines the uniform contract every generation backend
// implements: submit work, poll a handle, translate raw provider errors into
// the fixed taxonomy.
package providers

import (
	"context"

	"motionlab/internal/domain"
)

// SubmitRequest carries the inputs for one generation attempt.
type SubmitRequest struct {
	OrderID        string
	PhotoRef       string
	SecondPhotoRef string
	Prompt         string
}

// PollResult is one poll observation for a job. Progress is the provider's
// native completion estimate in [0,1], or -1 when the provider reports none.
type PollResult struct {
	Status    domain.JobStatus
	ResultRef string
	Progress  float64
	ErrorRaw  string
}

// Adapter is the capability interface per generation backend.
//
// Submit returns the jobs it created, tagged with the adapter's kind. Fan-out
// adapters return one job per backend that accepted the submission and
// tolerate partial failure as long as at least one handle was produced.
// Single-channel adapters return exactly one job, possibly already completed
// when the backend answered synchronously.
type Adapter interface {
	Kind() domain.ProviderKind
	Submit(ctx context.Context, req SubmitRequest) ([]domain.Job, error)
	Poll(ctx context.Context, job domain.Job) (PollResult, error)
	TranslateError(raw string) domain.ErrorKind
}
