package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/voiceslab/annotate-backend/internal/model"
	"github.com/voiceslab/annotate-backend/internal/repository"
	"github.com/voiceslab/annotate-backend/internal/task"
)

// Sentinel errors for submissions.
var (
	ErrTaskNotFound      = errors.New("unknown task")
	ErrStimulusNotFound  = errors.New("unknown stimulus")
	ErrAnnotatorRequired = errors.New("annotator name required")
)

// RequiredFieldError reports which required question was left unanswered.
type RequiredFieldError struct {
	Label string
}

func (e *RequiredFieldError) Error() string {
	return fmt.Sprintf("missing required field: %s", e.Label)
}

// EventPublisher receives an event after every successful submission.
type EventPublisher interface {
	PublishSubmission(ctx context.Context, ev model.MonitorEvent)
}

// SubmitOutcome tells the page where to go after a submission.
type SubmitOutcome struct {
	NextStimulusID string `json:"next_stimulus_id,omitempty"`
	Progress       string `json:"progress,omitempty"`
	Finished       bool   `json:"finished"`
}

// SubmissionService validates incoming records, appends them to the
// annotator's results file, and resolves the next stimulus.
type SubmissionService struct {
	registry *task.Registry
	results  *repository.ResultsRepository
	monitor  EventPublisher // may be nil
	log      zerolog.Logger
}

// NewSubmissionService creates a SubmissionService.
func NewSubmissionService(registry *task.Registry, results *repository.ResultsRepository, monitor EventPublisher, log zerolog.Logger) *SubmissionService {
	return &SubmissionService{
		registry: registry,
		results:  results,
		monitor:  monitor,
		log:      log.With().Str("component", "submission_service").Logger(),
	}
}

// Submit appends one record and computes the next stimulus. The record is
// rejected when the annotator name is empty or a required field is blank;
// otherwise no validation happens here — whatever the page sent is stored.
func (s *SubmissionService) Submit(ctx context.Context, taskName, stimulusID string, req model.SubmitRequest) (*SubmitOutcome, error) {
	t, ok := s.registry.Get(taskName)
	if !ok {
		return nil, ErrTaskNotFound
	}
	if _, ok := t.StimulusByID(stimulusID); !ok {
		return nil, ErrStimulusNotFound
	}

	annotator := strings.TrimSpace(req.Annotator)
	if annotator == "" {
		return nil, ErrAnnotatorRequired
	}

	labels := make([]string, 0, len(t.Questions))
	for _, q := range t.Questions {
		labels = append(labels, q.Label)
		if q.Required && strings.TrimSpace(req.Values[q.Label]) == "" {
			return nil, &RequiredFieldError{Label: q.Label}
		}
	}

	if err := s.results.Append(annotator, taskName, labels, stimulusID, req.Values, req.Notes, req.Unsure); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("task", taskName).
		Str("stimulus_id", stimulusID).
		Str("annotator", annotator).
		Msg("Submission recorded")

	s.publish(ctx, taskName, stimulusID, annotator)

	next, finished, err := t.NextID(stimulusID, req.Prev)
	if err != nil {
		return nil, err
	}
	out := &SubmitOutcome{Finished: finished}
	if !finished {
		out.NextStimulusID = next
		out.Progress = t.Progress(next)
	}
	return out, nil
}

func (s *SubmissionService) publish(ctx context.Context, taskName, stimulusID, annotator string) {
	if s.monitor == nil {
		return
	}
	count, err := s.results.CountRows(annotator, taskName)
	if err != nil {
		s.log.Error().Err(err).Msg("count rows for monitor event")
		return
	}
	s.monitor.PublishSubmission(ctx, model.MonitorEvent{
		Task:       taskName,
		Annotator:  annotator,
		StimulusID: stimulusID,
		Submitted:  count,
		Timestamp:  time.Now().UTC(),
	})
}
