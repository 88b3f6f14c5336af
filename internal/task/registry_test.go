package task

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/voiceslab/annotate-backend/internal/model"
	"github.com/voiceslab/annotate-backend/internal/validator"
)

func TestMain(m *testing.M) {
	validator.Setup()
	os.Exit(m.Run())
}

func writeTasksFile(t *testing.T, defs []model.TaskDefinition) string {
	t.Helper()
	raw, err := json.Marshal(defs)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "tasks.json")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func makeStimuliDir(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, n := range names {
		if err := os.WriteFile(filepath.Join(dir, n), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func countDef(dir string) model.TaskDefinition {
	return model.TaskDefinition{
		Name:       "count_subjects",
		Title:      "Count the subjects",
		StimuliDir: dir,
		Renderer:   model.RendererVideoFrames,
		Questions: []model.QuestionDef{
			{Label: "Number of Subjects", Kind: "single-choice", Choices: []string{"1", "2", "3"}, Required: true},
		},
	}
}

func TestLoadRegistryAssignsSequentialIDs(t *testing.T) {
	dir := makeStimuliDir(t, "b.mp4", "a.mp4", "c.mp4", "notes.txt")
	path := writeTasksFile(t, []model.TaskDefinition{countDef(dir)})

	r, err := LoadRegistry(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("load registry: %v", err)
	}

	tk, ok := r.Get("count_subjects")
	if !ok {
		t.Fatal("task not registered")
	}
	if len(tk.Stimuli) != 3 {
		t.Fatalf("got %d stimuli, want 3 (txt file must be ignored)", len(tk.Stimuli))
	}
	if tk.Stimuli[0].ID != "00000" || filepath.Base(tk.Stimuli[0].Path) != "a.mp4" {
		t.Fatalf("stimuli not in sorted order: %+v", tk.Stimuli[0])
	}
	if tk.Stimuli[2].ID != "00002" {
		t.Fatalf("last stimulus ID = %q, want 00002", tk.Stimuli[2].ID)
	}
}

func TestNextIDNavigation(t *testing.T) {
	dir := makeStimuliDir(t, "a.mp4", "b.mp4")
	path := writeTasksFile(t, []model.TaskDefinition{countDef(dir)})
	r, err := LoadRegistry(path, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	tk, _ := r.Get("count_subjects")

	next, finished, err := tk.NextID("00000", false)
	if err != nil || finished || next != "00001" {
		t.Fatalf("forward: next=%q finished=%v err=%v", next, finished, err)
	}

	// Backwards from the first stimulus clamps at zero.
	next, finished, err = tk.NextID("00000", true)
	if err != nil || finished || next != "00000" {
		t.Fatalf("prev clamp: next=%q finished=%v err=%v", next, finished, err)
	}

	// Forward past the last stimulus finishes the task.
	_, finished, err = tk.NextID("00001", false)
	if err != nil || !finished {
		t.Fatalf("finish: finished=%v err=%v", finished, err)
	}

	if _, _, err := tk.NextID("junk", false); err == nil {
		t.Fatal("malformed stimulus id accepted")
	}
}

func TestProgress(t *testing.T) {
	dir := makeStimuliDir(t, "a.mp4", "b.mp4", "c.mp4")
	path := writeTasksFile(t, []model.TaskDefinition{countDef(dir)})
	r, err := LoadRegistry(path, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	tk, _ := r.Get("count_subjects")

	if got := tk.Progress("00001"); got != "2/3" {
		t.Fatalf("progress = %q, want 2/3", got)
	}
}

func TestLoadRegistryRejectsDuplicateLabels(t *testing.T) {
	dir := makeStimuliDir(t, "a.mp4")
	def := countDef(dir)
	def.Questions = append(def.Questions, def.Questions[0])
	path := writeTasksFile(t, []model.TaskDefinition{def})

	if _, err := LoadRegistry(path, zerolog.Nop()); err == nil {
		t.Fatal("duplicate question label accepted")
	}
}

func TestLoadRegistryRejectsDelimiterInChoice(t *testing.T) {
	dir := makeStimuliDir(t, "a.mp4")
	def := countDef(dir)
	def.Questions[0].Choices = []string{"one, maybe two"}
	path := writeTasksFile(t, []model.TaskDefinition{def})

	if _, err := LoadRegistry(path, zerolog.Nop()); err == nil {
		t.Fatal("choice containing the delimiter accepted")
	}
}
