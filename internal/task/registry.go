package task

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/voiceslab/annotate-backend/internal/formstate"
	"github.com/voiceslab/annotate-backend/internal/model"
	"github.com/voiceslab/annotate-backend/internal/validator"
)

// defaultPatterns maps a renderer to the stimulus glob used when the task
// definition does not set one.
var defaultPatterns = map[model.RendererKind]string{
	model.RendererVideoFrames: "*.mp4",
	model.RendererImage:       "*.jpg",
	model.RendererText:        "*.txt",
}

// Task is a loaded annotation task: its definition, the engine question list
// derived from it, and the stimuli found in its directory at startup.
type Task struct {
	Def       model.TaskDefinition
	Questions []formstate.Question
	Stimuli   []model.Stimulus
}

// Name returns the task's URL name.
func (t *Task) Name() string { return t.Def.Name }

// StimulusByID resolves a zero-padded stimulus ID.
func (t *Task) StimulusByID(id string) (model.Stimulus, bool) {
	idx, err := t.index(id)
	if err != nil {
		return model.Stimulus{}, false
	}
	return t.Stimuli[idx], true
}

// FirstID returns the ID the task starts at.
func (t *Task) FirstID() string { return FormatID(0) }

// NextID computes where the form submission navigates: backwards clamps at
// the first stimulus, forwards past the last one finishes the task.
func (t *Task) NextID(current string, prev bool) (next string, finished bool, err error) {
	idx, err := t.index(current)
	if err != nil {
		return "", false, err
	}
	if prev {
		if idx > 0 {
			idx--
		}
		return FormatID(idx), false, nil
	}
	idx++
	if idx >= len(t.Stimuli) {
		return "", true, nil
	}
	return FormatID(idx), false, nil
}

// Progress renders the 1-based position of a stimulus, e.g. "3/120".
func (t *Task) Progress(id string) string {
	idx, err := t.index(id)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("%d/%d", idx+1, len(t.Stimuli))
}

func (t *Task) index(id string) (int, error) {
	idx, err := strconv.Atoi(id)
	if err != nil {
		return 0, fmt.Errorf("malformed stimulus id %q", id)
	}
	if idx < 0 || idx >= len(t.Stimuli) {
		return 0, fmt.Errorf("stimulus id %q out of range", id)
	}
	return idx, nil
}

// FormatID renders the canonical zero-padded stimulus ID for an index.
func FormatID(idx int) string { return fmt.Sprintf("%05d", idx) }

// Registry holds all tasks loaded from the definitions file, in file order.
type Registry struct {
	tasks map[string]*Task
	order []string
}

// LoadRegistry reads the task definitions file, validates it, and scans each
// task's stimulus directory once. Stimuli get sequential zero-padded IDs in
// sorted filename order.
func LoadRegistry(path string, log zerolog.Logger) (*Registry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tasks file: %w", err)
	}

	var defs []model.TaskDefinition
	if err := json.Unmarshal(raw, &defs); err != nil {
		return nil, fmt.Errorf("parse tasks file: %w", err)
	}
	if len(defs) == 0 {
		return nil, fmt.Errorf("tasks file %s defines no tasks", path)
	}

	r := &Registry{tasks: make(map[string]*Task, len(defs))}
	for _, def := range defs {
		if fields := validator.Struct(def); fields != nil {
			return nil, fmt.Errorf("task %q: invalid definition: %v", def.Name, fields)
		}
		if _, dup := r.tasks[def.Name]; dup {
			return nil, fmt.Errorf("duplicate task name %q", def.Name)
		}

		t, err := buildTask(def)
		if err != nil {
			return nil, err
		}

		r.tasks[def.Name] = t
		r.order = append(r.order, def.Name)

		log.Info().
			Str("task", def.Name).
			Str("renderer", string(def.Renderer)).
			Int("stimuli", len(t.Stimuli)).
			Int("questions", len(t.Questions)).
			Msg("Task loaded")
	}

	return r, nil
}

func buildTask(def model.TaskDefinition) (*Task, error) {
	seen := make(map[string]bool, len(def.Questions))
	questions := make([]formstate.Question, 0, len(def.Questions))
	for _, qd := range def.Questions {
		if seen[qd.Label] {
			return nil, fmt.Errorf("task %q: duplicate question label %q", def.Name, qd.Label)
		}
		seen[qd.Label] = true
		questions = append(questions, qd.ToQuestion())
	}

	stimuli, err := scanStimuli(def)
	if err != nil {
		return nil, fmt.Errorf("task %q: %w", def.Name, err)
	}

	return &Task{Def: def, Questions: questions, Stimuli: stimuli}, nil
}

func scanStimuli(def model.TaskDefinition) ([]model.Stimulus, error) {
	pattern := def.Pattern
	if pattern == "" {
		pattern = defaultPatterns[def.Renderer]
	}

	matches, err := filepath.Glob(filepath.Join(def.StimuliDir, pattern))
	if err != nil {
		return nil, fmt.Errorf("scan stimuli dir: %w", err)
	}
	sort.Strings(matches)

	stimuli := make([]model.Stimulus, 0, len(matches))
	for i, p := range matches {
		stimuli = append(stimuli, model.Stimulus{ID: FormatID(i), Path: p})
	}
	return stimuli, nil
}

// Get resolves a task by name.
func (r *Registry) Get(name string) (*Task, bool) {
	t, ok := r.tasks[name]
	return t, ok
}

// Tasks returns all tasks in definition-file order.
func (r *Registry) Tasks() []*Task {
	out := make([]*Task, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tasks[name])
	}
	return out
}
