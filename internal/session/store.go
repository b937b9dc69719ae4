// Package session keeps per-owner conversation state while an order is being
// assembled: which input the flow is waiting for and what was collected so
// far. State is keyed by owner id, expires on a TTL, and lives in redis so it
// survives process restarts.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound indicates no live session exists for the owner.
var ErrNotFound = errors.New("session: not found")

// Stage is the tagged variant of what the flow awaits next.
type Stage string

const (
	StageAwaitingPhoto       Stage = "awaiting_photo"
	StageAwaitingPrompt      Stage = "awaiting_prompt"
	StageAwaitingSecondPhoto Stage = "awaiting_second_photo"
)

// State is one owner's in-flight order assembly.
type State struct {
	Stage          Stage     `json:"stage"`
	PhotoRef       string    `json:"photo_ref,omitempty"`
	SecondPhotoRef string    `json:"second_photo_ref,omitempty"`
	Prompt         string    `json:"prompt,omitempty"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Store reads and writes session state with expiry.
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewStore creates a session store. A non-positive ttl defaults to 30 minutes.
func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Store{rdb: rdb, ttl: ttl}
}

func key(ownerID string) string {
	return "session:" + ownerID
}

// Get returns the owner's live session, or ErrNotFound when none exists or it
// expired.
func (s *Store) Get(ctx context.Context, ownerID string) (*State, error) {
	raw, err := s.rdb.Get(ctx, key(ownerID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("session: get: %w", err)
	}
	var state State
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("session: decode: %w", err)
	}
	return &state, nil
}

// Put stores the owner's session and refreshes the TTL.
func (s *Store) Put(ctx context.Context, ownerID string, state *State) error {
	state.UpdatedAt = time.Now().UTC()
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("session: encode: %w", err)
	}
	if err := s.rdb.Set(ctx, key(ownerID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("session: put: %w", err)
	}
	return nil
}

// Delete purges the owner's session, typically on a terminal order transition.
func (s *Store) Delete(ctx context.Context, ownerID string) error {
	if err := s.rdb.Del(ctx, key(ownerID)).Err(); err != nil {
		return fmt.Errorf("session: delete: %w", err)
	}
	return nil
}
