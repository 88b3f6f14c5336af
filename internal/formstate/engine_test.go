package formstate

import "testing"

func pageQuestions() []Question {
	return []Question{
		{Label: "Number of Subjects", Kind: SingleChoice, Choices: []string{"1", "2", "3", "Do not use"}, Required: true},
		{Label: "Artifacts", Kind: MultiChoice, Choices: []string{"blur", "occlusion", "cut"}},
		{Label: "Description", Kind: FreeText},
	}
}

func TestSelectSingleExclusivity(t *testing.T) {
	e := New(pageQuestions())

	e.SelectSingle("Number of Subjects", "1")
	e.SelectSingle("Number of Subjects", "3")

	if got := e.Value("Number of Subjects"); got != "3" {
		t.Fatalf("bound value = %q, want %q", got, "3")
	}

	st := e.states["Number of Subjects"]
	if len(st.selected) != 1 || !st.selected["3"] {
		t.Fatalf("active controls = %v, want only %q", st.selected, "3")
	}
}

func TestSelectSingleIdempotent(t *testing.T) {
	e := New(pageQuestions())
	e.SelectSingle("Number of Subjects", "2")
	e.SelectSingle("Number of Subjects", "2")

	if got := e.Value("Number of Subjects"); got != "2" {
		t.Fatalf("bound value = %q, want %q", got, "2")
	}
}

func TestSelectSingleUnknownChoiceIgnored(t *testing.T) {
	e := New(pageQuestions())
	e.SelectSingle("Number of Subjects", "99")
	if got := e.Value("Number of Subjects"); got != "" {
		t.Fatalf("bound value = %q, want unset", got)
	}
}

func TestToggleManyRoundTrip(t *testing.T) {
	e := New(pageQuestions())
	e.ToggleMany("Artifacts", "blur")
	before := e.Value("Artifacts")

	e.ToggleMany("Artifacts", "occlusion")
	e.ToggleMany("Artifacts", "occlusion")

	if got := e.Value("Artifacts"); got != before {
		t.Fatalf("bound value after double toggle = %q, want %q", got, before)
	}
}

func TestToggleManyStableOrder(t *testing.T) {
	e := New(pageQuestions())
	// Toggle in reverse display order; serialization follows display order.
	e.ToggleMany("Artifacts", "cut")
	e.ToggleMany("Artifacts", "blur")

	if got := e.Value("Artifacts"); got != "blur,cut" {
		t.Fatalf("bound value = %q, want %q", got, "blur,cut")
	}
}

func TestEvaluateCompletion(t *testing.T) {
	e := New(pageQuestions())
	if e.EvaluateCompletion() {
		t.Fatal("fresh page reported complete")
	}

	e.SelectSingle("Number of Subjects", "1")
	e.ToggleMany("Artifacts", "blur")
	if e.EvaluateCompletion() {
		t.Fatal("complete with free-text unset")
	}

	e.SetFreeText("Description", "  ")
	if e.EvaluateCompletion() {
		t.Fatal("blank free text counted as set")
	}

	e.SetFreeText("Description", "two people")
	if !e.EvaluateCompletion() {
		t.Fatal("all questions answered but not complete")
	}

	// A new unset question flips completion back to false.
	qs := append(pageQuestions(), Question{Label: "Lighting", Kind: SingleChoice, Choices: []string{"day", "night"}, Required: true})
	e2 := New(qs)
	e2.Restore(e.Values())
	e2.SetFreeText("Description", "two people")
	if e2.EvaluateCompletion() {
		t.Fatal("page with an extra unset question reported complete")
	}
}

// Toggling the last active choice off makes the serialized value empty, which
// is indistinguishable from unanswered. Accepted approximation, not a bug.
func TestMultiChoiceEmptySetCountsAsUnanswered(t *testing.T) {
	e := New([]Question{{Label: "Artifacts", Kind: MultiChoice, Choices: []string{"blur"}}})
	e.ToggleMany("Artifacts", "blur")
	if !e.EvaluateCompletion() {
		t.Fatal("single active choice not complete")
	}
	e.ToggleMany("Artifacts", "blur")
	if e.EvaluateCompletion() {
		t.Fatal("empty selection should read as unanswered")
	}
}

func TestAutoSubmitOncePerTransition(t *testing.T) {
	e := New(pageQuestions())
	fired := 0
	e.OnSubmit(func() { fired++ })
	e.SetAutoSubmit(true)

	// Several answers change in the same tick; only the completing one fires.
	e.SelectSingle("Number of Subjects", "2")
	e.ToggleMany("Artifacts", "blur")
	e.SetFreeText("Description", "crowd")

	if fired != 1 {
		t.Fatalf("submit fired %d times, want 1", fired)
	}
}

func TestAutoSubmitNotReentrant(t *testing.T) {
	e := New([]Question{{Label: "q", Kind: SingleChoice, Choices: []string{"a", "b"}}})
	fired := 0
	e.OnSubmit(func() {
		fired++
		// A submit action that mutates answers must not re-trigger itself.
		e.SelectSingle("q", "b")
	})
	e.SetAutoSubmit(true)

	e.SelectSingle("q", "a")
	if fired != 1 {
		t.Fatalf("submit fired %d times, want 1", fired)
	}
}

func TestAutoSubmitRespectsValidityCheck(t *testing.T) {
	e := New([]Question{{Label: "q", Kind: SingleChoice, Choices: []string{"a"}}})
	fired := 0
	e.OnSubmit(func() { fired++ })
	e.SetValidityCheck(func() bool { return false })
	e.SetAutoSubmit(true)

	e.SelectSingle("q", "a")
	if fired != 0 {
		t.Fatalf("submit fired %d times with failing validity check", fired)
	}
}

func TestAutoSubmitDisabledByDefault(t *testing.T) {
	e := New([]Question{{Label: "q", Kind: SingleChoice, Choices: []string{"a"}}})
	fired := 0
	e.OnSubmit(func() { fired++ })

	e.SelectSingle("q", "a")
	if fired != 0 {
		t.Fatalf("submit fired %d times with auto-submit off", fired)
	}
}

func TestRestoreDoesNotFireAutoSubmit(t *testing.T) {
	e := New([]Question{{Label: "q", Kind: SingleChoice, Choices: []string{"a"}}})
	fired := 0
	e.OnSubmit(func() { fired++ })
	e.SetAutoSubmit(true)

	e.Restore(map[string]string{"q": "a"})
	if fired != 0 {
		t.Fatalf("submit fired %d times on restore", fired)
	}
	if e.Touched() {
		t.Fatal("restore marked the page touched")
	}
}

func TestPreferenceRoundTrip(t *testing.T) {
	store := MapStore{}

	e := New(pageQuestions())
	e.LoadPreferences(store)
	e.SetAnnotator("alice")

	// Simulated fresh page load with a differing server-rendered default.
	e2 := New(pageQuestions())
	e2.SetServerDefaults("bob", "", "")
	e2.LoadPreferences(store)

	if got := e2.Annotator(); got != "alice" {
		t.Fatalf("annotator = %q, want persisted %q", got, "alice")
	}
}

func TestPreferencesDoNotOverrideServerValues(t *testing.T) {
	store := MapStore{
		PrefUnfilledStart: "00042",
		PrefUnfilledScope: "anyone",
	}

	e := New(pageQuestions())
	e.SetServerDefaults("", "00007", "")
	e.LoadPreferences(store)

	if got := e.UnfilledStart(); got != "00007" {
		t.Fatalf("unfilled start = %q, want server-rendered %q", got, "00007")
	}
	if got := e.UnfilledScope(); got != "anyone" {
		t.Fatalf("unfilled scope = %q, want stored %q", got, "anyone")
	}
}

func TestAutoSubmitPreferencePersists(t *testing.T) {
	store := MapStore{}

	e := New(pageQuestions())
	e.LoadPreferences(store)
	e.SetAutoSubmit(true)

	e2 := New(pageQuestions())
	e2.LoadPreferences(store)
	if !e2.AutoSubmitEnabled() {
		t.Fatal("auto-submit preference not restored")
	}
}

func TestUnloadGuard(t *testing.T) {
	t.Run("untouched", func(t *testing.T) {
		e := New(pageQuestions())
		if e.ShouldConfirmUnload() {
			t.Fatal("prompt with nothing touched")
		}
	})

	t.Run("after selection", func(t *testing.T) {
		e := New(pageQuestions())
		e.SelectSingle("Number of Subjects", "1")
		if !e.ShouldConfirmUnload() {
			t.Fatal("no prompt after touching an answer")
		}
	})

	t.Run("notes only", func(t *testing.T) {
		e := New(pageQuestions())
		e.SetNotes("hard to tell")
		if !e.ShouldConfirmUnload() {
			t.Fatal("no prompt with filled notes")
		}
	})

	t.Run("unsure only", func(t *testing.T) {
		e := New(pageQuestions())
		e.SetUnsure(true)
		if !e.ShouldConfirmUnload() {
			t.Fatal("no prompt with unsure checked")
		}
	})

	t.Run("suppressed while submitting", func(t *testing.T) {
		e := New(pageQuestions())
		e.SelectSingle("Number of Subjects", "1")
		e.Submit()
		if e.ShouldConfirmUnload() {
			t.Fatal("prompt after submission started")
		}
	})
}

func TestDigitKeyShortcut(t *testing.T) {
	e := New([]Question{
		{Label: "count", Kind: SingleChoice, Choices: []string{"0", "1", "2"}},
	})

	if !e.HandleKey("1", FocusDefault) {
		t.Fatal("digit key not consumed")
	}
	if got := e.Value("count"); got != "1" {
		t.Fatalf("bound value = %q, want %q", got, "1")
	}
	st := e.states["count"]
	if len(st.selected) != 1 || !st.selected["1"] {
		t.Fatalf("active controls = %v, want only %q", st.selected, "1")
	}

	// Digits typed into a text field must not select anything.
	if e.HandleKey("2", FocusTextField) {
		t.Fatal("digit consumed while focus was in a text field")
	}
	if got := e.Value("count"); got != "1" {
		t.Fatalf("bound value changed to %q while typing in a text field", got)
	}
}

func TestEnterSubmits(t *testing.T) {
	e := New(pageQuestions())
	fired := 0
	e.OnSubmit(func() { fired++ })

	if e.HandleKey("Enter", FocusTextArea) {
		t.Fatal("Enter consumed inside the notes field")
	}
	if !e.HandleKey("Enter", FocusTextField) {
		t.Fatal("Enter not consumed in a single-line field")
	}
	if fired != 1 {
		t.Fatalf("submit fired %d times, want 1", fired)
	}
}
