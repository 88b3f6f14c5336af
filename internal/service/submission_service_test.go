package service

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/voiceslab/annotate-backend/internal/model"
	"github.com/voiceslab/annotate-backend/internal/repository"
	"github.com/voiceslab/annotate-backend/internal/task"
	"github.com/voiceslab/annotate-backend/internal/validator"
)

func TestMain(m *testing.M) {
	validator.Setup()
	os.Exit(m.Run())
}

// newTestRegistry builds a registry with one text task of three stimuli.
func newTestRegistry(t *testing.T) *task.Registry {
	t.Helper()

	dir := t.TempDir()
	for _, n := range []string{"a.txt", "b.txt", "c.txt"} {
		if err := os.WriteFile(filepath.Join(dir, n), []byte("stim"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	defs := []model.TaskDefinition{{
		Name:       "emotion",
		Title:      "Label the emotion",
		StimuliDir: dir,
		Renderer:   model.RendererText,
		Questions: []model.QuestionDef{
			{Label: "Emotion", Kind: "single-choice", Choices: []string{"happy", "sad"}, Required: true},
			{Label: "Artifacts", Kind: "multi-choice", Choices: []string{"noise", "clipping"}},
		},
	}}
	raw, err := json.Marshal(defs)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "tasks.json")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatal(err)
	}

	r, err := task.LoadRegistry(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("load registry: %v", err)
	}
	return r
}

type capturedEvents struct {
	events []model.MonitorEvent
}

func (c *capturedEvents) PublishSubmission(_ context.Context, ev model.MonitorEvent) {
	c.events = append(c.events, ev)
}

func validRequest() model.SubmitRequest {
	return model.SubmitRequest{
		Annotator: "alice",
		Values:    map[string]string{"Emotion": "happy"},
	}
}

func TestSubmitValidation(t *testing.T) {
	registry := newTestRegistry(t)
	results := repository.NewResultsRepository(t.TempDir())
	svc := NewSubmissionService(registry, results, nil, zerolog.Nop())
	ctx := context.Background()

	t.Run("unknown task", func(t *testing.T) {
		_, err := svc.Submit(ctx, "nope", "00000", validRequest())
		if !errors.Is(err, ErrTaskNotFound) {
			t.Fatalf("err = %v, want ErrTaskNotFound", err)
		}
	})

	t.Run("unknown stimulus", func(t *testing.T) {
		_, err := svc.Submit(ctx, "emotion", "99999", validRequest())
		if !errors.Is(err, ErrStimulusNotFound) {
			t.Fatalf("err = %v, want ErrStimulusNotFound", err)
		}
	})

	t.Run("blank annotator", func(t *testing.T) {
		req := validRequest()
		req.Annotator = "   "
		_, err := svc.Submit(ctx, "emotion", "00000", req)
		if !errors.Is(err, ErrAnnotatorRequired) {
			t.Fatalf("err = %v, want ErrAnnotatorRequired", err)
		}
	})

	t.Run("missing required field", func(t *testing.T) {
		req := validRequest()
		req.Values = map[string]string{"Emotion": "  "}
		_, err := svc.Submit(ctx, "emotion", "00000", req)
		var reqErr *RequiredFieldError
		if !errors.As(err, &reqErr) || reqErr.Label != "Emotion" {
			t.Fatalf("err = %v, want RequiredFieldError for Emotion", err)
		}
	})

	t.Run("optional field may be blank", func(t *testing.T) {
		if _, err := svc.Submit(ctx, "emotion", "00000", validRequest()); err != nil {
			t.Fatalf("submit: %v", err)
		}
	})
}

func TestSubmitOutcomeNavigation(t *testing.T) {
	registry := newTestRegistry(t)
	results := repository.NewResultsRepository(t.TempDir())
	svc := NewSubmissionService(registry, results, nil, zerolog.Nop())
	ctx := context.Background()

	out, err := svc.Submit(ctx, "emotion", "00000", validRequest())
	if err != nil {
		t.Fatal(err)
	}
	if out.Finished || out.NextStimulusID != "00001" || out.Progress != "2/3" {
		t.Fatalf("forward outcome = %+v", out)
	}

	req := validRequest()
	req.Prev = true
	out, err = svc.Submit(ctx, "emotion", "00001", req)
	if err != nil {
		t.Fatal(err)
	}
	if out.Finished || out.NextStimulusID != "00000" {
		t.Fatalf("prev outcome = %+v", out)
	}

	out, err = svc.Submit(ctx, "emotion", "00002", validRequest())
	if err != nil {
		t.Fatal(err)
	}
	if !out.Finished || out.NextStimulusID != "" {
		t.Fatalf("final outcome = %+v", out)
	}
}

func TestSubmitPublishesMonitorEvent(t *testing.T) {
	registry := newTestRegistry(t)
	results := repository.NewResultsRepository(t.TempDir())
	monitor := &capturedEvents{}
	svc := NewSubmissionService(registry, results, monitor, zerolog.Nop())
	ctx := context.Background()

	if _, err := svc.Submit(ctx, "emotion", "00000", validRequest()); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Submit(ctx, "emotion", "00001", validRequest()); err != nil {
		t.Fatal(err)
	}

	if len(monitor.events) != 2 {
		t.Fatalf("got %d events, want 2", len(monitor.events))
	}
	ev := monitor.events[1]
	if ev.Task != "emotion" || ev.Annotator != "alice" || ev.StimulusID != "00001" {
		t.Fatalf("event = %+v", ev)
	}
	if ev.Submitted != 2 {
		t.Fatalf("submitted count = %d, want 2", ev.Submitted)
	}
}

func TestFindUnfilled(t *testing.T) {
	registry := newTestRegistry(t)
	results := repository.NewResultsRepository(t.TempDir())
	subSvc := NewSubmissionService(registry, results, nil, zerolog.Nop())
	taskSvc := NewTaskService(registry, results, zerolog.Nop())
	ctx := context.Background()

	// alice covers the first stimulus, bob the second.
	if _, err := subSvc.Submit(ctx, "emotion", "00000", validRequest()); err != nil {
		t.Fatal(err)
	}
	bob := validRequest()
	bob.Annotator = "bob"
	if _, err := subSvc.Submit(ctx, "emotion", "00001", bob); err != nil {
		t.Fatal(err)
	}

	t.Run("scope self skips own submissions only", func(t *testing.T) {
		id, found, err := taskSvc.FindUnfilled(ctx, "emotion", "", ScopeSelf, "alice")
		if err != nil || !found || id != "00001" {
			t.Fatalf("id=%q found=%v err=%v", id, found, err)
		}
	})

	t.Run("scope anyone skips all submissions", func(t *testing.T) {
		id, found, err := taskSvc.FindUnfilled(ctx, "emotion", "", ScopeAnyone, "alice")
		if err != nil || !found || id != "00002" {
			t.Fatalf("id=%q found=%v err=%v", id, found, err)
		}
	})

	t.Run("start index bounds the search", func(t *testing.T) {
		id, found, err := taskSvc.FindUnfilled(ctx, "emotion", "2", ScopeSelf, "alice")
		if err != nil || !found || id != "00002" {
			t.Fatalf("id=%q found=%v err=%v", id, found, err)
		}
	})

	t.Run("everything covered", func(t *testing.T) {
		if _, err := subSvc.Submit(ctx, "emotion", "00001", validRequest()); err != nil {
			t.Fatal(err)
		}
		if _, err := subSvc.Submit(ctx, "emotion", "00002", validRequest()); err != nil {
			t.Fatal(err)
		}
		_, found, err := taskSvc.FindUnfilled(ctx, "emotion", "", ScopeSelf, "alice")
		if err != nil || found {
			t.Fatalf("found=%v err=%v, want no unfilled stimulus", found, err)
		}
	})

	t.Run("malformed start", func(t *testing.T) {
		_, _, err := taskSvc.FindUnfilled(ctx, "emotion", "junk", ScopeSelf, "alice")
		if !errors.Is(err, ErrMalformedStart) {
			t.Fatalf("err = %v, want ErrMalformedStart", err)
		}
	})
}
