package service

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/voiceslab/annotate-backend/internal/config"
	"github.com/voiceslab/annotate-backend/internal/model"
)

// MonitorService fans submission events out to observers through Redis
// Pub/Sub, one channel per task.
type MonitorService struct {
	rdb *redis.Client
	log zerolog.Logger
}

// NewMonitorService creates a MonitorService.
func NewMonitorService(rdb *redis.Client, log zerolog.Logger) *MonitorService {
	return &MonitorService{
		rdb: rdb,
		log: log.With().Str("component", "monitor_service").Logger(),
	}
}

// PublishSubmission broadcasts one submission event. Delivery is best
// effort; a failed publish is logged and dropped.
func (s *MonitorService) PublishSubmission(ctx context.Context, ev model.MonitorEvent) {
	raw, err := json.Marshal(ev)
	if err != nil {
		s.log.Error().Err(err).Msg("marshal monitor event")
		return
	}
	channel := config.CacheKey.TaskMonitorChannel(ev.Task)
	if err := s.rdb.Publish(ctx, channel, raw).Err(); err != nil {
		s.log.Error().Err(err).Str("channel", channel).Msg("publish monitor event")
	}
}

// Subscribe attaches to a task's monitor channel. The caller owns the
// returned subscription and must close it.
func (s *MonitorService) Subscribe(ctx context.Context, taskName string) *redis.PubSub {
	return s.rdb.Subscribe(ctx, config.CacheKey.TaskMonitorChannel(taskName))
}
