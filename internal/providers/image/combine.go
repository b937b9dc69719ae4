// Package image holds the stage-one image adapters for two-stage pipelines.
package image

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"motionlab/internal/domain"
	"motionlab/internal/providers"
	"motionlab/internal/providers/genai"
)

const defaultCombineModel = "gemini-2.5-flash-image"

// CombineAdapter merges two input photos into one image through a synchronous
// generateContent call. The response is immediate, so Submit returns a single
// already-completed job and Poll is a no-op for it.
type CombineAdapter struct {
	client *genai.Client
	model  string
	logger zerolog.Logger
}

// NewCombineAdapter creates the image-combine adapter.
func NewCombineAdapter(client *genai.Client, model string, logger zerolog.Logger) *CombineAdapter {
	if model == "" {
		model = defaultCombineModel
	}
	return &CombineAdapter{client: client, model: model, logger: logger}
}

func (a *CombineAdapter) Kind() domain.ProviderKind {
	return domain.ProviderKindImagen
}

// Submit merges the two photos. The job id is locally generated because the
// synchronous API hands back no handle.
func (a *CombineAdapter) Submit(ctx context.Context, req providers.SubmitRequest) ([]domain.Job, error) {
	ref, err := a.client.CombineImages(ctx, genai.CombineRequest{
		Model:          a.model,
		Prompt:         req.Prompt,
		FirstImageRef:  req.PhotoRef,
		SecondImageRef: req.SecondPhotoRef,
	})
	if err != nil {
		return nil, err
	}
	a.logger.Debug().Str("order_id", req.OrderID).Msg("images combined")
	return []domain.Job{{
		ID:        uuid.NewString(),
		OrderID:   req.OrderID,
		Provider:  domain.ProviderKindImagen,
		Model:     a.model,
		Status:    domain.JobStatusCompleted,
		ResultRef: ref,
	}}, nil
}

// Poll reflects the job's recorded state; combine jobs are terminal at
// submission time.
func (a *CombineAdapter) Poll(ctx context.Context, job domain.Job) (providers.PollResult, error) {
	return providers.PollResult{
		Status:    job.Status,
		ResultRef: job.ResultRef,
		Progress:  1,
		ErrorRaw:  job.ErrorDetail,
	}, nil
}

func (a *CombineAdapter) TranslateError(raw string) domain.ErrorKind {
	return providers.TranslateText(raw)
}

var _ providers.Adapter = (*CombineAdapter)(nil)
