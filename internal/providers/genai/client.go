package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"motionlab/internal/infra"
)

// ErrMissingAPIKey indicates that the client was configured without credentials.
var ErrMissingAPIKey = errors.New("genai: api key is required")

// Options controls how the Gemini client is configured.
type Options struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// Client performs HTTP calls against the Gemini generative language API. Video
// generation is a long-running operation: a start call returns an operation
// name which is then polled until done.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *infra.Logger
}

// NewClient constructs a Gemini client with sane defaults. Callers may provide
// a nil HTTP client; a reusable one with sensible timeouts will be created.
func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = "https://generativelanguage.googleapis.com/v1beta"
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Client{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    base,
		httpClient: httpClient,
		logger:     opts.Logger,
	}, nil
}

// APIError is a provider-reported failure, as opposed to a transport error.
// The message feeds the adapter's error translation.
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("genai: api error %d: %s", e.Code, e.Message)
}

// VideoJobRequest starts one image-to-video generation on a single model.
type VideoJobRequest struct {
	Model    string
	Prompt   string
	ImageRef string
}

// Operation is the normalized state of a long-running video generation.
// Progress is in [0,1], or -1 when the API did not report one.
type Operation struct {
	Name         string
	Done         bool
	Progress     float64
	VideoURI     string
	ErrorMessage string
}

// CombineRequest merges two input images into one via a synchronous
// generateContent call.
type CombineRequest struct {
	Model          string
	Prompt         string
	FirstImageRef  string
	SecondImageRef string
}

type predictLongRunningRequest struct {
	Instances []videoInstance `json:"instances"`
}

type videoInstance struct {
	Prompt string      `json:"prompt"`
	Image  *imageInput `json:"image,omitempty"`
}

type imageInput struct {
	FileURI  string `json:"fileUri,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
}

type operationResponse struct {
	Name     string `json:"name"`
	Done     bool   `json:"done"`
	Metadata struct {
		ProgressPercent *int `json:"progressPercent"`
	} `json:"metadata"`
	Response struct {
		GenerateVideoResponse struct {
			GeneratedSamples []struct {
				Video struct {
					URI string `json:"uri"`
				} `json:"video"`
			} `json:"generatedSamples"`
		} `json:"generateVideoResponse"`
	} `json:"response"`
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type generateContentRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text     string    `json:"text,omitempty"`
	FileData *fileData `json:"fileData,omitempty"`
}

type fileData struct {
	MimeType string `json:"mimeType,omitempty"`
	FileURI  string `json:"fileUri,omitempty"`
}

type generateContentResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason,omitempty"`
	} `json:"candidates"`
}

type apiErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// StartVideoJob submits an image-to-video generation and returns the operation
// name used for polling.
func (c *Client) StartVideoJob(ctx context.Context, req VideoJobRequest) (string, error) {
	if req.Model == "" {
		return "", errors.New("genai: model is required")
	}
	payload := predictLongRunningRequest{
		Instances: []videoInstance{{
			Prompt: req.Prompt,
			Image:  &imageInput{FileURI: req.ImageRef, MimeType: "image/jpeg"},
		}},
	}
	endpoint := fmt.Sprintf("%s/models/%s:predictLongRunning", c.baseURL, url.PathEscape(req.Model))

	var resp operationResponse
	if err := c.doJSON(ctx, http.MethodPost, endpoint, payload, &resp); err != nil {
		return "", err
	}
	if resp.Name == "" {
		return "", errors.New("genai: operation name missing in response")
	}
	return resp.Name, nil
}

// GetOperation polls a long-running video operation by name.
func (c *Client) GetOperation(ctx context.Context, name string) (*Operation, error) {
	endpoint := fmt.Sprintf("%s/%s", c.baseURL, strings.TrimPrefix(name, "/"))

	var resp operationResponse
	if err := c.doJSON(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		return nil, err
	}

	op := &Operation{Name: resp.Name, Done: resp.Done, Progress: -1}
	if resp.Metadata.ProgressPercent != nil {
		op.Progress = float64(*resp.Metadata.ProgressPercent) / 100
	}
	if resp.Error.Message != "" {
		op.ErrorMessage = resp.Error.Message
		return op, nil
	}
	if samples := resp.Response.GenerateVideoResponse.GeneratedSamples; len(samples) > 0 {
		op.VideoURI = samples[0].Video.URI
	}
	if resp.Done && op.VideoURI == "" && op.ErrorMessage == "" {
		op.ErrorMessage = "operation finished without a video result"
	}
	return op, nil
}

// CombineImages merges two photos into one image and returns its reference.
// The call is synchronous; there is no handle to poll.
func (c *Client) CombineImages(ctx context.Context, req CombineRequest) (string, error) {
	if req.Model == "" {
		return "", errors.New("genai: model is required")
	}
	payload := generateContentRequest{
		Contents: []content{{
			Role: "user",
			Parts: []part{
				{Text: req.Prompt},
				{FileData: &fileData{MimeType: "image/jpeg", FileURI: req.FirstImageRef}},
				{FileData: &fileData{MimeType: "image/jpeg", FileURI: req.SecondImageRef}},
			},
		}},
	}
	endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, url.PathEscape(req.Model))

	var resp generateContentResponse
	if err := c.doJSON(ctx, http.MethodPost, endpoint, payload, &resp); err != nil {
		return "", err
	}
	for _, cand := range resp.Candidates {
		for _, p := range cand.Content.Parts {
			if p.FileData != nil && p.FileData.FileURI != "" {
				return p.FileData.FileURI, nil
			}
		}
	}
	return "", &APIError{Message: "no image produced"}
}

func (c *Client) doJSON(ctx context.Context, method, endpoint string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("genai: encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("genai: build request: %w", err)
	}
	req.Header.Set("x-goog-api-key", c.apiKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("genai: %s: %w", method, err)
	}
	defer resp.Body.Close()

	if c.logger != nil {
		c.logger.Debug().Str("method", method).Str("endpoint", endpoint).Int("status", resp.StatusCode).Msg("genai call")
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("genai: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr apiErrorResponse
		if jsonErr := json.Unmarshal(raw, &apiErr); jsonErr == nil && apiErr.Error.Message != "" {
			return &APIError{Code: apiErr.Error.Code, Message: apiErr.Error.Message}
		}
		return &APIError{Code: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("genai: decode response: %w", err)
		}
	}
	return nil
}
