package service

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/voiceslab/annotate-backend/internal/formstate"
	"github.com/voiceslab/annotate-backend/internal/model"
	"github.com/voiceslab/annotate-backend/internal/repository"
	"github.com/voiceslab/annotate-backend/internal/task"
)

// PreferenceBinder loads a client's persisted preferences into a store the
// engine can read and write.
type PreferenceBinder interface {
	Bind(ctx context.Context, clientID string) formstate.PreferenceStore
}

// StateMirror persists in-progress page state across reloads.
type StateMirror interface {
	Save(ctx context.Context, clientID, taskName, stimulusID string, state repository.PageState) error
	Load(ctx context.Context, clientID, taskName, stimulusID string) (repository.PageState, bool, error)
	Clear(ctx context.Context, clientID, taskName, stimulusID string) error
}

// Session is one live page: a form-state engine bound to a client, task, and
// stimulus. Events are applied one at a time under the session mutex,
// mirroring the page's single-threaded event loop.
type Session struct {
	ClientID   string
	TaskName   string
	StimulusID string
	Engine     *formstate.Engine

	mu        sync.Mutex
	task      *task.Task
	submitted bool // the engine fired the designated submit action
	handled   bool // the fired submission has been appended
}

// StateSnapshot is the engine state echoed back after every applied event.
type StateSnapshot struct {
	Values        map[string]string `json:"values"`
	Notes         string            `json:"notes"`
	Unsure        bool              `json:"unsure"`
	Annotator     string            `json:"annotator"`
	AutoSubmit    bool              `json:"auto_submit"`
	Complete      bool              `json:"complete"`
	Submitting    bool              `json:"submitting"`
	ConfirmUnload bool              `json:"confirm_unload"`
}

// EventResult is what one applied event produced: the new snapshot and, when
// the event completed a submission, its outcome.
type EventResult struct {
	Snapshot StateSnapshot  `json:"snapshot"`
	Outcome  *SubmitOutcome `json:"outcome,omitempty"`
}

// SessionService builds engine sessions for connected pages and runs events
// through them.
type SessionService struct {
	registry    *task.Registry
	prefs       PreferenceBinder
	states      StateMirror
	submissions *SubmissionService
	log         zerolog.Logger
}

// NewSessionService creates a SessionService.
func NewSessionService(registry *task.Registry, prefs PreferenceBinder, states StateMirror, submissions *SubmissionService, log zerolog.Logger) *SessionService {
	return &SessionService{
		registry:    registry,
		prefs:       prefs,
		states:      states,
		submissions: submissions,
		log:         log.With().Str("component", "session_service").Logger(),
	}
}

// Attach creates the engine for one page load: questions from the task,
// answers restored from the state mirror, preferences loaded once from the
// client's store. The engine's submit action is bound to the submission
// service, and its validity predicate requires a non-blank annotator name.
func (s *SessionService) Attach(ctx context.Context, clientID, taskName, stimulusID string) (*Session, error) {
	t, ok := s.registry.Get(taskName)
	if !ok {
		return nil, ErrTaskNotFound
	}
	if _, ok := t.StimulusByID(stimulusID); !ok {
		return nil, ErrStimulusNotFound
	}

	e := formstate.New(t.Questions)

	if s.states != nil {
		if state, ok, err := s.states.Load(ctx, clientID, taskName, stimulusID); err != nil {
			s.log.Error().Err(err).Str("client_id", clientID).Msg("load mirrored state")
		} else if ok {
			e.Restore(state.Values)
			e.SetNotes(state.Notes)
			e.SetUnsure(state.Unsure)
		}
	}

	if s.prefs != nil {
		e.LoadPreferences(s.prefs.Bind(ctx, clientID))
	}

	sess := &Session{
		ClientID:   clientID,
		TaskName:   taskName,
		StimulusID: stimulusID,
		Engine:     e,
		task:       t,
	}
	e.SetValidityCheck(func() bool {
		return strings.TrimSpace(e.Annotator()) != ""
	})
	e.OnSubmit(func() { sess.submitted = true })

	return sess, nil
}

// Apply runs one UI event against the session's engine. Each event fully
// updates answers, bound values, and the completion check before the next
// one is processed. When the event fired the submit action (directly or via
// auto-submit), the record is appended and the outcome returned.
func (s *SessionService) Apply(ctx context.Context, sess *Session, event func(e *formstate.Engine)) (*EventResult, error) {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	event(sess.Engine)

	if sess.submitted && !sess.handled {
		outcome, err := s.finishSubmission(ctx, sess)
		if err != nil {
			// The collaborator rejected the record; re-arm the page so the
			// annotator can fix it and submit again.
			sess.submitted = false
			sess.Engine.AbortSubmit()
			return nil, err
		}
		sess.handled = true
		return &EventResult{Snapshot: s.snapshot(sess), Outcome: outcome}, nil
	}

	s.mirror(ctx, sess)
	return &EventResult{Snapshot: s.snapshot(sess)}, nil
}

// Snapshot returns the current engine state without applying an event.
func (s *SessionService) Snapshot(sess *Session) StateSnapshot {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return s.snapshot(sess)
}

// RestoredState exposes the mirrored page state for the page-load payload.
func (s *SessionService) RestoredState(ctx context.Context, clientID, taskName, stimulusID string) (repository.PageState, bool, error) {
	if s.states == nil {
		return repository.PageState{}, false, nil
	}
	return s.states.Load(ctx, clientID, taskName, stimulusID)
}

func (s *SessionService) finishSubmission(ctx context.Context, sess *Session) (*SubmitOutcome, error) {
	rec := sess.Engine.Record()
	outcome, err := s.submissions.Submit(ctx, sess.TaskName, sess.StimulusID, model.SubmitRequest{
		Annotator: sess.Engine.Annotator(),
		Values:    rec.Values,
		Notes:     rec.Notes,
		Unsure:    rec.Unsure,
	})
	if err != nil {
		return nil, err
	}
	if s.states != nil {
		if err := s.states.Clear(ctx, sess.ClientID, sess.TaskName, sess.StimulusID); err != nil {
			s.log.Error().Err(err).Msg("clear mirrored state")
		}
	}
	return outcome, nil
}

func (s *SessionService) mirror(ctx context.Context, sess *Session) {
	if s.states == nil {
		return
	}
	rec := sess.Engine.Record()
	err := s.states.Save(ctx, sess.ClientID, sess.TaskName, sess.StimulusID, repository.PageState{
		Values: rec.Values,
		Notes:  rec.Notes,
		Unsure: rec.Unsure,
	})
	if err != nil {
		s.log.Error().Err(err).Str("client_id", sess.ClientID).Msg("mirror state")
	}
}

func (s *SessionService) snapshot(sess *Session) StateSnapshot {
	e := sess.Engine
	return StateSnapshot{
		Values:        e.Values(),
		Notes:         e.Notes(),
		Unsure:        e.Unsure(),
		Annotator:     e.Annotator(),
		AutoSubmit:    e.AutoSubmitEnabled(),
		Complete:      e.EvaluateCompletion(),
		Submitting:    e.Submitting(),
		ConfirmUnload: e.ShouldConfirmUnload(),
	}
}
