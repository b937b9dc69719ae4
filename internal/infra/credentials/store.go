package credentials

import (
	"context"
	"errors"
	"strings"

	"motionlab/internal/infra"
	"motionlab/internal/sqlinline"
)

const (
	ProviderGemini   = "gemini"
	ProviderWanx     = "wanx"
	ProviderTelegram = "telegram"
)

// Store resolves provider API keys from the database when they are not
// supplied through the environment.
type Store struct {
	sql infra.SQLExecutor
}

func NewStore(sql infra.SQLExecutor) *Store {
	return &Store{sql: sql}
}

// Token returns the stored API key for a provider, or empty when none exists.
func (s *Store) Token(ctx context.Context, provider string) (string, error) {
	row := s.sql.QueryRow(ctx, sqlinline.QSelectProviderKey, provider)
	var token string
	if err := row.Scan(&token); err != nil {
		if infra.IsNoRows(err) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(token), nil
}

// SetToken stores or replaces the API key for a provider.
func (s *Store) SetToken(ctx context.Context, provider, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("api key is required")
	}
	_, err := s.sql.Exec(ctx, sqlinline.QUpsertProviderKey, provider, token)
	return err
}
