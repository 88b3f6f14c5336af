package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/voiceslab/annotate-backend/internal/config"
	"github.com/voiceslab/annotate-backend/internal/model"
	"github.com/voiceslab/annotate-backend/internal/service"
	"github.com/voiceslab/annotate-backend/internal/task"
)

// FrameWorker consumes extract_frames_queue and pre-extracts video frames so
// pages never wait on ffmpeg.
type FrameWorker struct {
	rdb      *redis.Client
	media    *service.MediaService
	registry *task.Registry
	log      zerolog.Logger
}

// NewFrameWorker creates a new FrameWorker.
func NewFrameWorker(rdb *redis.Client, media *service.MediaService, registry *task.Registry, log zerolog.Logger) *FrameWorker {
	return &FrameWorker{
		rdb:      rdb,
		media:    media,
		registry: registry,
		log:      log.With().Str("component", "frame_worker").Logger(),
	}
}

type framePayload struct {
	Task       string `json:"task"`
	StimulusID string `json:"stimulus_id"`
}

// EnqueueAll pushes every video stimulus onto the extraction queue. Called
// once at startup to warm the frame cache.
func (w *FrameWorker) EnqueueAll(ctx context.Context) {
	queued := 0
	for _, t := range w.registry.Tasks() {
		if t.Def.Renderer != model.RendererVideoFrames {
			continue
		}
		for _, st := range t.Stimuli {
			payload, _ := json.Marshal(framePayload{Task: t.Name(), StimulusID: st.ID})
			if err := w.rdb.RPush(ctx, config.WorkerKey.ExtractFramesQueue, payload).Err(); err != nil {
				w.log.Error().Err(err).Msg("Enqueue error")
				return
			}
			queued++
		}
	}
	if queued > 0 {
		w.log.Info().Int("count", queued).Msg("Queued stimuli for frame extraction")
	}
}

// Start begins the infinite worker loop. Call in a goroutine.
func (w *FrameWorker) Start(ctx context.Context) {
	w.log.Info().Msg("Worker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopped")
			return
		default:
			w.processNext(ctx)
		}
	}
}

func (w *FrameWorker) processNext(ctx context.Context) {
	// BLPop blocks until an item is available or timeout (1 second).
	result, err := w.rdb.BLPop(ctx, time.Second, config.WorkerKey.ExtractFramesQueue).Result()
	if err != nil {
		if err != redis.Nil && ctx.Err() == nil {
			w.log.Error().Err(err).Msg("BLPop error")
		}
		return
	}

	if len(result) < 2 {
		return
	}

	var payload framePayload
	if err := json.Unmarshal([]byte(result[1]), &payload); err != nil {
		w.log.Error().Err(err).Msg("Unmarshal error")
		return
	}

	if err := w.extract(ctx, &payload); err != nil {
		w.log.Error().Err(err).
			Str("task", payload.Task).
			Str("stimulus_id", payload.StimulusID).
			Msg("Extraction error, retrying in 5s")
		// Push back to queue for retry.
		w.rdb.RPush(ctx, config.WorkerKey.ExtractFramesQueue, result[1])
		time.Sleep(5 * time.Second)
	}
}

func (w *FrameWorker) extract(ctx context.Context, p *framePayload) error {
	t, ok := w.registry.Get(p.Task)
	if !ok {
		// Dropped tasks leave stale queue entries behind; skip them.
		w.log.Warn().Str("task", p.Task).Msg("Unknown task in queue")
		return nil
	}
	st, ok := t.StimulusByID(p.StimulusID)
	if !ok {
		w.log.Warn().Str("stimulus_id", p.StimulusID).Msg("Unknown stimulus in queue")
		return nil
	}

	_, err := w.media.EnsureFrames(ctx, p.Task, st)
	return err
}
