package repository

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/voiceslab/annotate-backend/internal/config"
	"github.com/voiceslab/annotate-backend/internal/formstate"
)

// PreferenceRepository stores each browser client's persisted preferences in
// a Redis hash. Values never expire; every write is a whole-value
// last-writer-wins update, matching the durable client-side storage the page
// relies on.
type PreferenceRepository struct {
	rdb *redis.Client
	log zerolog.Logger
}

// NewPreferenceRepository creates a PreferenceRepository.
func NewPreferenceRepository(rdb *redis.Client, log zerolog.Logger) *PreferenceRepository {
	return &PreferenceRepository{
		rdb: rdb,
		log: log.With().Str("component", "preference_repository").Logger(),
	}
}

// GetAll returns every stored preference of a client.
func (r *PreferenceRepository) GetAll(ctx context.Context, clientID string) (map[string]string, error) {
	return r.rdb.HGetAll(ctx, config.CacheKey.ClientPrefsKey(clientID)).Result()
}

// Set writes one preference key.
func (r *PreferenceRepository) Set(ctx context.Context, clientID, key, value string) error {
	return r.rdb.HSet(ctx, config.CacheKey.ClientPrefsKey(clientID), key, value).Err()
}

// Bind loads a client's preferences once and returns a PreferenceStore over
// them. Reads come from the loaded snapshot (the engine reads preferences
// only at page initialization); writes go through to Redis immediately.
func (r *PreferenceRepository) Bind(ctx context.Context, clientID string) formstate.PreferenceStore {
	snapshot, err := r.GetAll(ctx, clientID)
	if err != nil {
		r.log.Error().Err(err).Str("client_id", clientID).Msg("load preferences failed")
		snapshot = map[string]string{}
	}
	return &boundStore{ctx: ctx, repo: r, clientID: clientID, values: snapshot}
}

type boundStore struct {
	ctx      context.Context
	repo     *PreferenceRepository
	clientID string
	values   map[string]string
}

func (s *boundStore) Get(key string) (string, bool) {
	v, ok := s.values[key]
	return v, ok
}

func (s *boundStore) Set(key, value string) {
	s.values[key] = value
	if err := s.repo.Set(s.ctx, s.clientID, key, value); err != nil {
		s.repo.log.Error().Err(err).
			Str("client_id", s.clientID).
			Str("key", key).
			Msg("save preference failed")
	}
}
