package video

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"motionlab/internal/domain"
	"motionlab/internal/providers"
	"motionlab/internal/providers/genai"
)

func newGeminiTestAdapter(t *testing.T, models []string, handler http.HandlerFunc) *GeminiAdapter {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := genai.NewClient(genai.Options{
		APIKey:     "test-key",
		BaseURL:    srv.URL,
		HTTPClient: srv.Client(),
	})
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	return NewGeminiAdapter(client, models, zerolog.Nop())
}

func TestGeminiSubmitFanout(t *testing.T) {
	adapter := newGeminiTestAdapter(t, []string{"veo-3.0-generate-001", "veo-2.0-generate-001"}, func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "veo-3.0") {
			_, _ = w.Write([]byte(`{"name":"models/veo-3.0-generate-001/operations/op-3"}`))
			return
		}
		_, _ = w.Write([]byte(`{"name":"models/veo-2.0-generate-001/operations/op-2"}`))
	})

	jobs, err := adapter.Submit(context.Background(), providers.SubmitRequest{
		OrderID:  "order-1",
		PhotoRef: "https://cdn.example.com/in.jpg",
		Prompt:   "animate this",
	})
	if err != nil {
		t.Fatalf("Submit error: %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(jobs))
	}
	// Jobs come back in configuration order regardless of response order.
	if jobs[0].Model != "veo-3.0-generate-001" || jobs[1].Model != "veo-2.0-generate-001" {
		t.Fatalf("unexpected model order: %s, %s", jobs[0].Model, jobs[1].Model)
	}
	for _, j := range jobs {
		if j.Provider != domain.ProviderKindGemini {
			t.Fatalf("job missing provider tag: %+v", j)
		}
	}
}

func TestGeminiSubmitPartialFailure(t *testing.T) {
	adapter := newGeminiTestAdapter(t, []string{"veo-3.0-generate-001", "veo-2.0-generate-001"}, func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "veo-3.0") {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":{"code":429,"message":"quota exceeded"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"name":"models/veo-2.0-generate-001/operations/op-2"}`))
	})

	jobs, err := adapter.Submit(context.Background(), providers.SubmitRequest{OrderID: "order-1"})
	if err != nil {
		t.Fatalf("Submit error: %v", err)
	}
	if len(jobs) != 1 || jobs[0].Model != "veo-2.0-generate-001" {
		t.Fatalf("expected the surviving backend only, got %+v", jobs)
	}
}

func TestGeminiSubmitAllRejected(t *testing.T) {
	adapter := newGeminiTestAdapter(t, []string{"veo-3.0-generate-001"}, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":400,"message":"invalid image"}}`))
	})

	if _, err := adapter.Submit(context.Background(), providers.SubmitRequest{OrderID: "order-1"}); err == nil {
		t.Fatal("expected error when every backend rejects")
	}
}

func TestGeminiPoll(t *testing.T) {
	progress := 40
	tests := []struct {
		name         string
		resp         map[string]any
		wantStatus   domain.JobStatus
		wantProgress float64
		wantResult   string
		wantError    string
	}{
		{
			name: "running with progress",
			resp: map[string]any{
				"name":     "op-1",
				"done":     false,
				"metadata": map[string]any{"progressPercent": progress},
			},
			wantStatus:   domain.JobStatusProcessing,
			wantProgress: 0.4,
		},
		{
			name: "done with result",
			resp: map[string]any{
				"name": "op-1",
				"done": true,
				"response": map[string]any{
					"generateVideoResponse": map[string]any{
						"generatedSamples": []map[string]any{
							{"video": map[string]any{"uri": "https://cdn.example.com/v.mp4"}},
						},
					},
				},
			},
			wantStatus:   domain.JobStatusCompleted,
			wantProgress: -1,
			wantResult:   "https://cdn.example.com/v.mp4",
		},
		{
			name: "provider failure",
			resp: map[string]any{
				"name":  "op-1",
				"done":  true,
				"error": map[string]any{"code": 3, "message": "Request blocked by safety filters"},
			},
			wantStatus:   domain.JobStatusFailed,
			wantProgress: -1,
			wantError:    "Request blocked by safety filters",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			adapter := newGeminiTestAdapter(t, []string{"veo-3.0-generate-001"}, func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewEncoder(w).Encode(tc.resp)
			})

			res, err := adapter.Poll(context.Background(), domain.Job{ID: "op-1", Provider: domain.ProviderKindGemini})
			if err != nil {
				t.Fatalf("Poll error: %v", err)
			}
			if res.Status != tc.wantStatus {
				t.Fatalf("status = %s, want %s", res.Status, tc.wantStatus)
			}
			if res.Progress != tc.wantProgress {
				t.Fatalf("progress = %f, want %f", res.Progress, tc.wantProgress)
			}
			if res.ResultRef != tc.wantResult {
				t.Fatalf("result = %q, want %q", res.ResultRef, tc.wantResult)
			}
			if res.ErrorRaw != tc.wantError {
				t.Fatalf("error = %q, want %q", res.ErrorRaw, tc.wantError)
			}
		})
	}
}
