package video

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"motionlab/internal/domain"
	"motionlab/internal/providers"
)

// ErrMissingAPIKey indicates the adapter was configured without credentials.
var ErrMissingAPIKey = errors.New("wanx: api key is required")

// WanxOptions configures the DashScope Wanx image-to-video adapter.
type WanxOptions struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

// WanxAdapter is the single-channel adapter for the DashScope Wanx task API.
// One submission yields one task: either an immediate synchronous result or an
// opaque task id polled via GET /tasks/{id}. The API reports no native
// progress.
type WanxAdapter struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewWanxAdapter constructs the adapter with sane defaults.
func NewWanxAdapter(opts WanxOptions) (*WanxAdapter, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = "https://dashscope-intl.aliyuncs.com/api/v1"
	}
	model := opts.Model
	if model == "" {
		model = "wanx2.1-i2v-turbo"
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &WanxAdapter{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    base,
		model:      model,
		httpClient: httpClient,
		logger:     opts.Logger,
	}, nil
}

func (a *WanxAdapter) Kind() domain.ProviderKind {
	return domain.ProviderKindWanx
}

type wanxSubmitRequest struct {
	Model string `json:"model"`
	Input struct {
		Prompt   string `json:"prompt"`
		ImageURL string `json:"img_url"`
	} `json:"input"`
	Parameters struct {
		Resolution string `json:"resolution,omitempty"`
	} `json:"parameters"`
}

type wanxTaskResponse struct {
	RequestID string `json:"request_id"`
	Output    struct {
		TaskID     string `json:"task_id"`
		TaskStatus string `json:"task_status"`
		VideoURL   string `json:"video_url"`
		Message    string `json:"message"`
	} `json:"output"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Submit starts one generation task. A synchronous SUCCEEDED answer produces
// an already-completed job; otherwise the task id becomes the poll handle.
func (a *WanxAdapter) Submit(ctx context.Context, req providers.SubmitRequest) ([]domain.Job, error) {
	payload := wanxSubmitRequest{Model: a.model}
	payload.Input.Prompt = req.Prompt
	payload.Input.ImageURL = req.PhotoRef

	var resp wanxTaskResponse
	if err := a.doJSON(ctx, http.MethodPost, a.baseURL+"/services/aigc/video-generation/generation", payload, &resp); err != nil {
		return nil, err
	}
	if resp.Code != "" {
		return nil, fmt.Errorf("wanx: submission rejected: %s", resp.Message)
	}
	if resp.Output.TaskID == "" {
		return nil, errors.New("wanx: task id missing in response")
	}

	job := domain.Job{
		ID:       resp.Output.TaskID,
		OrderID:  req.OrderID,
		Provider: domain.ProviderKindWanx,
		Model:    a.model,
		Status:   domain.JobStatusProcessing,
	}
	if strings.EqualFold(resp.Output.TaskStatus, "SUCCEEDED") && resp.Output.VideoURL != "" {
		job.Status = domain.JobStatusCompleted
		job.ResultRef = resp.Output.VideoURL
	}
	return []domain.Job{job}, nil
}

// Poll reads the task state behind the job handle. Progress is always -1; the
// API does not report one.
func (a *WanxAdapter) Poll(ctx context.Context, job domain.Job) (providers.PollResult, error) {
	var resp wanxTaskResponse
	if err := a.doJSON(ctx, http.MethodGet, a.baseURL+"/tasks/"+job.ID, nil, &resp); err != nil {
		return providers.PollResult{}, err
	}

	res := providers.PollResult{Status: domain.JobStatusProcessing, Progress: -1}
	switch strings.ToUpper(resp.Output.TaskStatus) {
	case "SUCCEEDED":
		res.Status = domain.JobStatusCompleted
		res.ResultRef = resp.Output.VideoURL
		if res.ResultRef == "" {
			res.Status = domain.JobStatusFailed
			res.ErrorRaw = "task succeeded without a video result"
		}
	case "FAILED", "CANCELED":
		res.Status = domain.JobStatusFailed
		res.ErrorRaw = resp.Output.Message
		if res.ErrorRaw == "" {
			res.ErrorRaw = resp.Message
		}
	}
	return res, nil
}

func (a *WanxAdapter) TranslateError(raw string) domain.ErrorKind {
	// DashScope signals moderation with a dedicated code before any prose.
	if strings.Contains(raw, "DataInspection") {
		return domain.ErrorKindContentModeration
	}
	return providers.TranslateText(raw)
}

func (a *WanxAdapter) doJSON(ctx context.Context, method, endpoint string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("wanx: encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("wanx: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+a.apiKey)
	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-DashScope-Async", "enable")
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("wanx: %s: %w", method, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("wanx: read response: %w", err)
	}
	a.logger.Debug().Str("method", method).Str("endpoint", endpoint).Int("status", resp.StatusCode).Msg("wanx call")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr wanxTaskResponse
		if jsonErr := json.Unmarshal(raw, &apiErr); jsonErr == nil && apiErr.Message != "" {
			return fmt.Errorf("wanx: api error %s: %s", apiErr.Code, apiErr.Message)
		}
		return fmt.Errorf("wanx: unexpected status %d", resp.StatusCode)
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("wanx: decode response: %w", err)
		}
	}
	return nil
}

var _ providers.Adapter = (*WanxAdapter)(nil)
