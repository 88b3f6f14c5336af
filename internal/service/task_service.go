package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/voiceslab/annotate-backend/internal/repository"
	"github.com/voiceslab/annotate-backend/internal/task"
)

// Unfilled-search scopes: look for stimuli the requesting annotator has not
// submitted, or stimuli nobody has submitted yet.
const (
	ScopeSelf   = "self"
	ScopeAnyone = "anyone"
)

// ErrMalformedStart rejects a start index that is not a non-negative integer.
var ErrMalformedStart = errors.New("malformed start index")

// TaskService answers task-level queries that need both the registry and the
// results on disk.
type TaskService struct {
	registry *task.Registry
	results  *repository.ResultsRepository
	log      zerolog.Logger
}

// NewTaskService creates a TaskService.
func NewTaskService(registry *task.Registry, results *repository.ResultsRepository, log zerolog.Logger) *TaskService {
	return &TaskService{
		registry: registry,
		results:  results,
		log:      log.With().Str("component", "task_service").Logger(),
	}
}

// FindUnfilled searches forward from the start index for the first stimulus
// not yet annotated under the given scope. Returns found=false when every
// remaining stimulus is covered.
func (s *TaskService) FindUnfilled(ctx context.Context, taskName, start, scope, annotator string) (id string, found bool, err error) {
	t, ok := s.registry.Get(taskName)
	if !ok {
		return "", false, ErrTaskNotFound
	}

	startIdx := 0
	if start != "" {
		n, err := strconv.Atoi(start)
		if err != nil || n < 0 {
			return "", false, fmt.Errorf("%w: start index %q", ErrMalformedStart, start)
		}
		startIdx = n
	}

	covered, err := s.coveredIDs(taskName, scope, annotator)
	if err != nil {
		return "", false, err
	}

	for idx := startIdx; idx < len(t.Stimuli); idx++ {
		id := task.FormatID(idx)
		if !covered[id] {
			return id, true, nil
		}
	}
	return "", false, nil
}

func (s *TaskService) coveredIDs(taskName, scope, annotator string) (map[string]bool, error) {
	if scope != ScopeAnyone {
		return s.results.AnnotatedIDs(annotator, taskName)
	}

	annotators, err := s.results.Annotators(taskName)
	if err != nil {
		return nil, err
	}
	covered := make(map[string]bool)
	for _, a := range annotators {
		ids, err := s.results.AnnotatedIDs(a, taskName)
		if err != nil {
			return nil, err
		}
		for id := range ids {
			covered[id] = true
		}
	}
	return covered, nil
}

// Counts returns submitted-record counts per annotator for a task, used as
// the monitor's initial snapshot.
func (s *TaskService) Counts(ctx context.Context, taskName string) (map[string]int, error) {
	annotators, err := s.results.Annotators(taskName)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int, len(annotators))
	for _, a := range annotators {
		n, err := s.results.CountRows(a, taskName)
		if err != nil {
			return nil, err
		}
		counts[a] = n
	}
	return counts, nil
}
