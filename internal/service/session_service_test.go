package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/voiceslab/annotate-backend/internal/formstate"
	"github.com/voiceslab/annotate-backend/internal/repository"
)

type fakeBinder struct {
	store formstate.MapStore
}

func (f *fakeBinder) Bind(_ context.Context, _ string) formstate.PreferenceStore {
	return f.store
}

type fakeMirror struct {
	states map[string]repository.PageState
}

func newFakeMirror() *fakeMirror {
	return &fakeMirror{states: make(map[string]repository.PageState)}
}

func (f *fakeMirror) key(clientID, taskName, stimulusID string) string {
	return clientID + "/" + taskName + "/" + stimulusID
}

func (f *fakeMirror) Save(_ context.Context, clientID, taskName, stimulusID string, state repository.PageState) error {
	f.states[f.key(clientID, taskName, stimulusID)] = state
	return nil
}

func (f *fakeMirror) Load(_ context.Context, clientID, taskName, stimulusID string) (repository.PageState, bool, error) {
	state, ok := f.states[f.key(clientID, taskName, stimulusID)]
	return state, ok, nil
}

func (f *fakeMirror) Clear(_ context.Context, clientID, taskName, stimulusID string) error {
	delete(f.states, f.key(clientID, taskName, stimulusID))
	return nil
}

func newTestSessionService(t *testing.T, binder *fakeBinder, mirror *fakeMirror) *SessionService {
	t.Helper()
	registry := newTestRegistry(t)
	results := repository.NewResultsRepository(t.TempDir())
	submissions := NewSubmissionService(registry, results, nil, zerolog.Nop())
	return NewSessionService(registry, binder, mirror, submissions, zerolog.Nop())
}

func TestAttachRestoresMirroredState(t *testing.T) {
	mirror := newFakeMirror()
	mirror.states["client-1/emotion/00000"] = repository.PageState{
		Values: map[string]string{"Emotion": "happy"},
		Notes:  "second take",
		Unsure: true,
	}
	svc := newTestSessionService(t, &fakeBinder{store: formstate.MapStore{}}, mirror)

	sess, err := svc.Attach(context.Background(), "client-1", "emotion", "00000")
	if err != nil {
		t.Fatal(err)
	}

	if got := sess.Engine.Value("Emotion"); got != "happy" {
		t.Fatalf("restored value = %q, want happy", got)
	}
	if sess.Engine.Notes() != "second take" || !sess.Engine.Unsure() {
		t.Fatalf("notes/unsure not restored: %q %v", sess.Engine.Notes(), sess.Engine.Unsure())
	}
	if sess.Engine.Touched() {
		t.Fatal("restore must not mark the page touched")
	}
}

func TestAttachUnknownTarget(t *testing.T) {
	svc := newTestSessionService(t, &fakeBinder{store: formstate.MapStore{}}, newFakeMirror())
	ctx := context.Background()

	if _, err := svc.Attach(ctx, "c", "nope", "00000"); !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("err = %v, want ErrTaskNotFound", err)
	}
	if _, err := svc.Attach(ctx, "c", "emotion", "99999"); !errors.Is(err, ErrStimulusNotFound) {
		t.Fatalf("err = %v, want ErrStimulusNotFound", err)
	}
}

func TestApplyMirrorsState(t *testing.T) {
	mirror := newFakeMirror()
	svc := newTestSessionService(t, &fakeBinder{store: formstate.MapStore{}}, mirror)
	ctx := context.Background()

	sess, err := svc.Attach(ctx, "client-1", "emotion", "00000")
	if err != nil {
		t.Fatal(err)
	}

	result, err := svc.Apply(ctx, sess, func(e *formstate.Engine) {
		e.SelectSingle("Emotion", "sad")
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.Outcome != nil {
		t.Fatal("plain event must not produce a submit outcome")
	}
	if result.Snapshot.Values["Emotion"] != "sad" {
		t.Fatalf("snapshot values = %v", result.Snapshot.Values)
	}

	state, ok := mirror.states["client-1/emotion/00000"]
	if !ok || state.Values["Emotion"] != "sad" {
		t.Fatalf("mirror state = %+v ok=%v", state, ok)
	}
}

func TestApplySubmitCompletesAndClearsMirror(t *testing.T) {
	mirror := newFakeMirror()
	svc := newTestSessionService(t, &fakeBinder{store: formstate.MapStore{}}, mirror)
	ctx := context.Background()

	sess, err := svc.Attach(ctx, "client-1", "emotion", "00000")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.Apply(ctx, sess, func(e *formstate.Engine) { e.SetAnnotator("alice") }); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Apply(ctx, sess, func(e *formstate.Engine) { e.SelectSingle("Emotion", "happy") }); err != nil {
		t.Fatal(err)
	}

	result, err := svc.Apply(ctx, sess, func(e *formstate.Engine) { e.Submit() })
	if err != nil {
		t.Fatal(err)
	}
	if result.Outcome == nil {
		t.Fatal("submit must produce an outcome")
	}
	if result.Outcome.NextStimulusID != "00001" {
		t.Fatalf("outcome = %+v", result.Outcome)
	}
	if result.Snapshot.ConfirmUnload {
		t.Fatal("unload guard must be off after submit")
	}

	if _, ok := mirror.states["client-1/emotion/00000"]; ok {
		t.Fatal("mirror must be cleared after a completed submission")
	}
}

func TestApplySubmitRejectedReArms(t *testing.T) {
	svc := newTestSessionService(t, &fakeBinder{store: formstate.MapStore{}}, newFakeMirror())
	ctx := context.Background()

	sess, err := svc.Attach(ctx, "client-1", "emotion", "00000")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.Apply(ctx, sess, func(e *formstate.Engine) { e.SelectSingle("Emotion", "happy") }); err != nil {
		t.Fatal(err)
	}

	// No annotator yet: the submission collaborator rejects the record.
	_, err = svc.Apply(ctx, sess, func(e *formstate.Engine) { e.Submit() })
	if !errors.Is(err, ErrAnnotatorRequired) {
		t.Fatalf("err = %v, want ErrAnnotatorRequired", err)
	}
	if sess.Engine.Submitting() {
		t.Fatal("rejected submission must re-arm the engine")
	}

	if _, err := svc.Apply(ctx, sess, func(e *formstate.Engine) { e.SetAnnotator("alice") }); err != nil {
		t.Fatal(err)
	}
	result, err := svc.Apply(ctx, sess, func(e *formstate.Engine) { e.Submit() })
	if err != nil {
		t.Fatal(err)
	}
	if result.Outcome == nil {
		t.Fatal("retry after fixing the annotator must succeed")
	}
}

func TestAutoSubmitFromStoredPreferences(t *testing.T) {
	binder := &fakeBinder{store: formstate.MapStore{
		formstate.PrefAnnotator:  "alice",
		formstate.PrefAutoSubmit: "true",
	}}
	svc := newTestSessionService(t, binder, newFakeMirror())
	ctx := context.Background()

	sess, err := svc.Attach(ctx, "client-1", "emotion", "00000")
	if err != nil {
		t.Fatal(err)
	}
	if !sess.Engine.AutoSubmitEnabled() || sess.Engine.Annotator() != "alice" {
		t.Fatalf("preferences not loaded: auto=%v annotator=%q",
			sess.Engine.AutoSubmitEnabled(), sess.Engine.Annotator())
	}

	if _, err := svc.Apply(ctx, sess, func(e *formstate.Engine) { e.SelectSingle("Emotion", "happy") }); err != nil {
		t.Fatal(err)
	}

	// Answering the last open question flips the page complete and fires
	// the submit action without an explicit submit event.
	result, err := svc.Apply(ctx, sess, func(e *formstate.Engine) { e.ToggleMany("Artifacts", "noise") })
	if err != nil {
		t.Fatal(err)
	}
	if result.Outcome == nil {
		t.Fatal("auto-submit must produce an outcome")
	}
}
