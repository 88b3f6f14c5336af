package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/voiceslab/annotate-backend/internal/config"
	"github.com/voiceslab/annotate-backend/internal/model"
	"github.com/voiceslab/annotate-backend/internal/task"
)

// ErrFrameExtraction wraps ffmpeg/ffprobe failures.
var ErrFrameExtraction = errors.New("frame extraction failed")

// MediaService turns stimuli into renderables. Video stimuli are sampled
// into evenly spaced JPEG frames with ffmpeg, cached on disk, and served
// statically under /media; images and text are served as-is.
type MediaService struct {
	cfg *config.Config
	log zerolog.Logger
}

// NewMediaService creates a MediaService.
func NewMediaService(cfg *config.Config, log zerolog.Logger) *MediaService {
	return &MediaService{
		cfg: cfg,
		log: log.With().Str("component", "media_service").Logger(),
	}
}

// Renderables resolves the displayable pieces of one stimulus.
func (s *MediaService) Renderables(ctx context.Context, t *task.Task, st model.Stimulus) ([]model.Renderable, error) {
	switch t.Def.Renderer {
	case model.RendererText:
		raw, err := os.ReadFile(st.Path)
		if err != nil {
			return nil, fmt.Errorf("read text stimulus: %w", err)
		}
		return []model.Renderable{{Kind: "text", Text: string(raw)}}, nil

	case model.RendererImage:
		return []model.Renderable{{Kind: "image", URL: stimulusFileURL(t.Name(), st.ID)}}, nil

	case model.RendererVideoFrames:
		n, err := s.EnsureFrames(ctx, t.Name(), st)
		if err != nil {
			return nil, err
		}
		out := make([]model.Renderable, 0, n)
		for i := 0; i < n; i++ {
			out = append(out, model.Renderable{
				Kind: "image",
				URL:  fmt.Sprintf("/media/%s/%s/%s", t.Name(), st.ID, frameName(i)),
			})
		}
		return out, nil

	default:
		return nil, fmt.Errorf("unknown renderer %q", t.Def.Renderer)
	}
}

// EnsureFrames extracts the configured number of frames for a video stimulus
// into the frame cache, skipping work already done. Timestamps are spaced at
// (i+1)/(n+1) of the duration so the very end of the clip is never sampled.
func (s *MediaService) EnsureFrames(ctx context.Context, taskName string, st model.Stimulus) (int, error) {
	n := s.cfg.FrameCount
	dir := filepath.Join(s.cfg.FrameCache, taskName, st.ID)

	if framesPresent(dir, n) {
		return n, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("create frame cache dir: %w", err)
	}

	duration, err := s.probeDuration(ctx, st.Path)
	if err != nil {
		return 0, err
	}

	for i := 0; i < n; i++ {
		ts := duration * float64(i+1) / float64(n+1)
		out := filepath.Join(dir, frameName(i))
		cmd := exec.CommandContext(ctx, s.cfg.FFmpegPath,
			"-y",
			"-loglevel", "error",
			"-ss", fmt.Sprintf("%.3f", ts),
			"-i", st.Path,
			"-frames:v", "1",
			"-q:v", "2",
			out,
		)
		if raw, err := cmd.CombinedOutput(); err != nil {
			return 0, fmt.Errorf("%w: ffmpeg %s @%.3fs: %v: %s",
				ErrFrameExtraction, st.Path, ts, err, strings.TrimSpace(string(raw)))
		}
	}

	s.log.Debug().
		Str("task", taskName).
		Str("stimulus_id", st.ID).
		Int("frames", n).
		Msg("Frames extracted")
	return n, nil
}

func (s *MediaService) probeDuration(ctx context.Context, path string) (float64, error) {
	cmd := exec.CommandContext(ctx, s.cfg.FFprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	raw, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("%w: ffprobe %s: %v", ErrFrameExtraction, path, err)
	}
	d, err := strconv.ParseFloat(strings.TrimSpace(string(raw)), 64)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%w: ffprobe %s: bad duration %q", ErrFrameExtraction, path, strings.TrimSpace(string(raw)))
	}
	return d, nil
}

func framesPresent(dir string, n int) bool {
	for i := 0; i < n; i++ {
		if _, err := os.Stat(filepath.Join(dir, frameName(i))); err != nil {
			return false
		}
	}
	return true
}

func frameName(i int) string { return fmt.Sprintf("frame_%02d.jpg", i) }

func stimulusFileURL(taskName, stimulusID string) string {
	return fmt.Sprintf("/api/v1/tasks/%s/stimuli/%s/file", taskName, stimulusID)
}
