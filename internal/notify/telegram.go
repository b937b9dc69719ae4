// Package notify delivers user-facing text and progress updates. The engine
// depends only on domain.Notifier; this package provides the Telegram Bot API
// implementation.
package notify

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
)

// ErrMissingToken indicates the notifier was configured without a bot token.
var ErrMissingToken = errors.New("notify: bot token is required")

// TelegramOptions configures the Telegram notifier.
type TelegramOptions struct {
	Token      string
	BaseURL    string
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

// Telegram sends and edits chat messages through the Bot API. The owner
// reference is the chat id; the message reference is the message id returned
// by sendMessage.
type Telegram struct {
	token      string
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewTelegram constructs the notifier with sane defaults.
func NewTelegram(opts TelegramOptions) (*Telegram, error) {
	if strings.TrimSpace(opts.Token) == "" {
		return nil, ErrMissingToken
	}
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = "https://api.telegram.org"
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Telegram{
		token:      strings.TrimSpace(opts.Token),
		baseURL:    base,
		httpClient: httpClient,
		logger:     opts.Logger,
	}, nil
}

type sendMessageRequest struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

type editMessageRequest struct {
	ChatID    string `json:"chat_id"`
	MessageID string `json:"message_id"`
	Text      string `json:"text"`
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Description string          `json:"description,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`
}

type messageResult struct {
	MessageID int64 `json:"message_id"`
}

// Send delivers a text message and returns its message id for later edits.
func (t *Telegram) Send(ctx context.Context, ownerRef, text string) (string, error) {
	resp, err := t.call(ctx, "sendMessage", sendMessageRequest{ChatID: ownerRef, Text: text})
	if err != nil {
		return "", err
	}
	var msg messageResult
	if err := json.Unmarshal(resp.Result, &msg); err != nil {
		return "", fmt.Errorf("notify: decode message: %w", err)
	}
	return fmt.Sprintf("%d", msg.MessageID), nil
}

// EditProgress rewrites a previously sent message in place.
func (t *Telegram) EditProgress(ctx context.Context, ownerRef, messageRef, text string) error {
	_, err := t.call(ctx, "editMessageText", editMessageRequest{ChatID: ownerRef, MessageID: messageRef, Text: text})
	return err
}

func (t *Telegram) call(ctx context.Context, method string, payload any) (*apiResponse, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("notify: encode request: %w", err)
	}
	endpoint := fmt.Sprintf("%s/bot%s/%s", t.baseURL, t.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("notify: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	httpResp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("notify: %s: %w", method, err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("notify: read response: %w", err)
	}
	var resp apiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("notify: decode response: %w", err)
	}
	if !resp.OK {
		t.logger.Warn().Str("method", method).Str("description", resp.Description).Msg("telegram call rejected")
		return nil, fmt.Errorf("notify: %s: %s", method, resp.Description)
	}
	return &resp, nil
}

var _ domain.Notifier = (*Telegram)(nil)
