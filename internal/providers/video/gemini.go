// Package video holds the image-to-video generation adapters.
package video

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"motionlab/internal/domain"
	"motionlab/internal/providers"
	"motionlab/internal/providers/genai"
)

// GeminiAdapter fans one submission out to a fixed list of Veo model backends
// through the Gemini long-running-operations API. Each accepting backend
// yields one job; partial submission failure is tolerated as long as at least
// one backend accepted.
type GeminiAdapter struct {
	client *genai.Client
	models []string
	logger zerolog.Logger
}

// NewGeminiAdapter creates the fan-out adapter over the given model backends.
func NewGeminiAdapter(client *genai.Client, models []string, logger zerolog.Logger) *GeminiAdapter {
	return &GeminiAdapter{client: client, models: models, logger: logger}
}

func (a *GeminiAdapter) Kind() domain.ProviderKind {
	return domain.ProviderKindGemini
}

// Submit starts the same request on every configured backend in parallel.
// Returns the jobs for the backends that accepted, in configuration order.
func (a *GeminiAdapter) Submit(ctx context.Context, req providers.SubmitRequest) ([]domain.Job, error) {
	if len(a.models) == 0 {
		return nil, errors.New("gemini: no video models configured")
	}

	var (
		mu       sync.Mutex
		accepted = make([]domain.Job, len(a.models))
		firstErr error
	)

	g, gctx := errgroup.WithContext(ctx)
	for i, model := range a.models {
		g.Go(func() error {
			opName, err := a.client.StartVideoJob(gctx, genai.VideoJobRequest{
				Model:    model,
				Prompt:   req.Prompt,
				ImageRef: req.PhotoRef,
			})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				a.logger.Warn().Err(err).Str("model", model).Str("order_id", req.OrderID).Msg("video submission rejected")
				if firstErr == nil {
					firstErr = err
				}
				return nil
			}
			accepted[i] = domain.Job{
				ID:       opName,
				OrderID:  req.OrderID,
				Provider: domain.ProviderKindGemini,
				Model:    model,
				Status:   domain.JobStatusProcessing,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	jobs := make([]domain.Job, 0, len(accepted))
	for _, j := range accepted {
		if j.ID != "" {
			jobs = append(jobs, j)
		}
	}
	if len(jobs) == 0 {
		if firstErr != nil {
			return nil, firstErr
		}
		return nil, domain.ErrNoProviderAccepted
	}
	return jobs, nil
}

// Poll reads the long-running operation behind the job handle.
func (a *GeminiAdapter) Poll(ctx context.Context, job domain.Job) (providers.PollResult, error) {
	op, err := a.client.GetOperation(ctx, job.ID)
	if err != nil {
		return providers.PollResult{}, err
	}
	res := providers.PollResult{Status: domain.JobStatusProcessing, Progress: op.Progress}
	if op.ErrorMessage != "" {
		res.Status = domain.JobStatusFailed
		res.ErrorRaw = op.ErrorMessage
		return res, nil
	}
	if op.Done {
		res.Status = domain.JobStatusCompleted
		res.ResultRef = op.VideoURI
	}
	return res, nil
}

func (a *GeminiAdapter) TranslateError(raw string) domain.ErrorKind {
	return providers.TranslateText(raw)
}

var _ providers.Adapter = (*GeminiAdapter)(nil)
