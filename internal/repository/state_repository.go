package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/voiceslab/annotate-backend/internal/config"
)

// stateTTL bounds how long an abandoned in-progress page survives in Redis.
// Preferences never expire; mirrored form state does.
const stateTTL = 7 * 24 * time.Hour

// PageState is the mirrored in-progress form state for one stimulus.
type PageState struct {
	Values map[string]string `json:"values"`
	Notes  string            `json:"notes,omitempty"`
	Unsure bool              `json:"unsure,omitempty"`
}

// StateRepository mirrors in-progress engine state into Redis so a page
// reload restores the answers already given.
type StateRepository struct {
	rdb *redis.Client
}

// NewStateRepository creates a StateRepository.
func NewStateRepository(rdb *redis.Client) *StateRepository {
	return &StateRepository{rdb: rdb}
}

// Save overwrites the mirrored state for (client, task, stimulus).
func (r *StateRepository) Save(ctx context.Context, clientID, taskName, stimulusID string, state PageState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal page state: %w", err)
	}
	key := config.CacheKey.FormStateKey(clientID, taskName, stimulusID)
	return r.rdb.Set(ctx, key, raw, stateTTL).Err()
}

// Load returns the mirrored state, or ok=false when none is stored.
func (r *StateRepository) Load(ctx context.Context, clientID, taskName, stimulusID string) (PageState, bool, error) {
	key := config.CacheKey.FormStateKey(clientID, taskName, stimulusID)
	raw, err := r.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return PageState{}, false, nil
	}
	if err != nil {
		return PageState{}, false, err
	}

	var state PageState
	if err := json.Unmarshal(raw, &state); err != nil {
		return PageState{}, false, fmt.Errorf("unmarshal page state: %w", err)
	}
	return state, true, nil
}

// Clear drops the mirrored state after a successful submission.
func (r *StateRepository) Clear(ctx context.Context, clientID, taskName, stimulusID string) error {
	return r.rdb.Del(ctx, config.CacheKey.FormStateKey(clientID, taskName, stimulusID)).Err()
}
