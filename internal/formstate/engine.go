package formstate

import (
	"strconv"
	"strings"
)

// Engine owns the in-page answer state for a fixed list of questions: it keeps
// answers in sync with their serialized bound values, mirrors a small set of
// preferences into a PreferenceStore, computes page completion, and triggers
// the designated submit action when auto-submit is enabled and the page
// transitions to complete.
//
// The engine is not safe for concurrent use. Events are applied one at a time,
// and each operation fully updates answer, bound value, and completion before
// the next one is processed.
type Engine struct {
	questions []Question
	states    map[string]*questionState

	notesText  string
	unsureFlag bool

	annotator     string
	unfilledStart string
	unfilledScope string
	autoSubmit    bool

	store    PreferenceStore
	submitFn func()
	validFn  func() bool

	touched     bool
	submitting  bool
	wasComplete bool
}

// New creates an engine for the given page-defined question list.
// All questions start unset; use Restore for server-prepopulated values.
func New(questions []Question) *Engine {
	e := &Engine{
		questions: questions,
		states:    make(map[string]*questionState, len(questions)),
	}
	for _, q := range questions {
		e.states[q.Label] = newQuestionState(q)
	}
	e.wasComplete = e.EvaluateCompletion()
	return e
}

// OnSubmit binds the page's single designated submit action.
func (e *Engine) OnSubmit(fn func()) { e.submitFn = fn }

// SetValidityCheck binds the externally supplied form-validity predicate
// consulted before auto-submitting. Nil means always valid.
func (e *Engine) SetValidityCheck(fn func() bool) { e.validFn = fn }

// Restore applies server-prepopulated serialized values without counting as
// user interaction and without evaluating auto-submit.
func (e *Engine) Restore(values map[string]string) {
	for label, v := range values {
		st, ok := e.states[label]
		if !ok || v == "" {
			continue
		}
		switch st.q.Kind {
		case SingleChoice:
			st.selected = map[string]bool{v: true}
		case MultiChoice:
			st.selected = make(map[string]bool)
			for _, c := range strings.Split(v, Delimiter) {
				if st.hasChoice(c) {
					st.selected[c] = true
				}
			}
		case FreeText:
			st.text = v
		}
		st.serialize()
	}
	e.wasComplete = e.EvaluateCompletion()
}

// SelectSingle activates one choice of a single-choice question and
// deactivates every other choice sharing the question's label. Selecting the
// already-active choice leaves state unchanged. Unknown labels and choices
// are ignored; they cannot occur when controls are generated from the
// question list.
func (e *Engine) SelectSingle(label, choice string) {
	st, ok := e.states[label]
	if !ok || st.q.Kind != SingleChoice || !st.hasChoice(choice) {
		return
	}
	e.touched = true
	st.selected = map[string]bool{choice: true}
	st.serialize()
	e.evaluateAutoSubmit()
}

// ToggleMany flips one choice of a multi-choice question. The serialized
// value is the active choices joined with Delimiter in display order, so
// toggling the same choice twice restores the previous value exactly.
func (e *Engine) ToggleMany(label, choice string) {
	st, ok := e.states[label]
	if !ok || st.q.Kind != MultiChoice || !st.hasChoice(choice) {
		return
	}
	e.touched = true
	if st.selected[choice] {
		delete(st.selected, choice)
	} else {
		st.selected[choice] = true
	}
	st.serialize()
	e.evaluateAutoSubmit()
}

// SetFreeText assigns a free-text answer. Called on every input event, not
// just on blur, so completion reflects live typing.
func (e *Engine) SetFreeText(label, value string) {
	st, ok := e.states[label]
	if !ok || st.q.Kind != FreeText {
		return
	}
	e.touched = true
	st.text = value
	st.serialize()
	e.evaluateAutoSubmit()
}

// SetNotes updates the free-form notes field attached to the whole page.
// Notes do not participate in completion.
func (e *Engine) SetNotes(s string) { e.notesText = s }

// SetUnsure flips the page-level "unsure" flag.
func (e *Engine) SetUnsure(b bool) { e.unsureFlag = b }

// EvaluateCompletion reports whether every rendered question has a non-empty
// answer. Required-ness is not consulted here; it only matters to the
// submission collaborator.
func (e *Engine) EvaluateCompletion() bool {
	for _, q := range e.questions {
		if !e.states[q.Label].set() {
			return false
		}
	}
	return true
}

// evaluateAutoSubmit fires the submit action at most once per
// incomplete→complete transition, and only while the auto-submit preference
// is on and the external validity predicate passes.
func (e *Engine) evaluateAutoSubmit() {
	complete := e.EvaluateCompletion()
	defer func() { e.wasComplete = complete }()

	if !complete || e.wasComplete || e.submitting {
		return
	}
	if !e.autoSubmit {
		return
	}
	if e.validFn != nil && !e.validFn() {
		return
	}
	e.Submit()
}

// Submit invokes the designated submit action once. Further calls, including
// re-entrant ones from inside the action, are no-ops, and the unload guard is
// suppressed from this point on.
func (e *Engine) Submit() {
	if e.submitting {
		return
	}
	e.submitting = true
	if e.submitFn != nil {
		e.submitFn()
	}
}

// AbortSubmit cancels an in-flight submission after the submit action was
// rejected downstream. The unload guard re-arms and Submit may fire again.
func (e *Engine) AbortSubmit() {
	e.submitting = false
}

// ShouldConfirmUnload reports whether navigating away warrants the browser's
// unload confirmation: something was touched and no submission is in flight.
func (e *Engine) ShouldConfirmUnload() bool {
	if e.submitting {
		return false
	}
	return e.touched || strings.TrimSpace(e.notesText) != "" || e.unsureFlag
}

// Value returns the serialized bound value for a question label.
func (e *Engine) Value(label string) string {
	if st, ok := e.states[label]; ok {
		return st.value
	}
	return ""
}

// Values returns the serialized bound values of all questions.
func (e *Engine) Values() map[string]string {
	out := make(map[string]string, len(e.questions))
	for _, q := range e.questions {
		out[q.Label] = e.states[q.Label].value
	}
	return out
}

// Record is the completed key/value record handed to the submission
// collaborator.
type Record struct {
	Values map[string]string
	Notes  string
	Unsure bool
}

// Record snapshots the current answers plus notes and the unsure flag.
func (e *Engine) Record() Record {
	return Record{Values: e.Values(), Notes: e.notesText, Unsure: e.unsureFlag}
}

func (e *Engine) Questions() []Question   { return e.questions }
func (e *Engine) Touched() bool           { return e.touched }
func (e *Engine) Submitting() bool        { return e.submitting }
func (e *Engine) AutoSubmitEnabled() bool { return e.autoSubmit }
func (e *Engine) Annotator() string       { return e.annotator }
func (e *Engine) UnfilledStart() string   { return e.unfilledStart }
func (e *Engine) UnfilledScope() string   { return e.unfilledScope }
func (e *Engine) Notes() string           { return e.notesText }
func (e *Engine) Unsure() bool            { return e.unsureFlag }

// SetServerDefaults seeds control values rendered by the server. Call before
// LoadPreferences.
func (e *Engine) SetServerDefaults(annotator, unfilledStart, unfilledScope string) {
	e.annotator = annotator
	e.unfilledStart = unfilledStart
	e.unfilledScope = unfilledScope
}

// LoadPreferences reads the persisted preferences once, at page
// initialization. A server-rendered control value is never overwritten by a
// disagreeing stored one — except the annotator name, where the persisted
// value always wins.
func (e *Engine) LoadPreferences(store PreferenceStore) {
	e.store = store
	if store == nil {
		return
	}
	if v, ok := store.Get(PrefAnnotator); ok && v != "" {
		e.annotator = v
	}
	if v, ok := store.Get(PrefUnfilledStart); ok && e.unfilledStart == "" {
		e.unfilledStart = v
	}
	if v, ok := store.Get(PrefUnfilledScope); ok && e.unfilledScope == "" {
		e.unfilledScope = v
	}
	if v, ok := store.Get(PrefAutoSubmit); ok {
		e.autoSubmit = v == "true"
	}
}

// SetAnnotator updates the annotator name control and persists it.
func (e *Engine) SetAnnotator(v string) {
	e.annotator = v
	e.savePreference(PrefAnnotator, v)
}

// SetUnfilledStart updates the unfilled-search start index control and
// persists it.
func (e *Engine) SetUnfilledStart(v string) {
	e.unfilledStart = v
	e.savePreference(PrefUnfilledStart, v)
}

// SetUnfilledScope updates the unfilled-scope selection and persists it.
func (e *Engine) SetUnfilledScope(v string) {
	e.unfilledScope = v
	e.savePreference(PrefUnfilledScope, v)
}

// SetAutoSubmit flips the auto-submit preference, persists it, and
// re-evaluates auto-submission. A page that was already complete before the
// flag went on does not fire; only a fresh incomplete→complete transition
// does.
func (e *Engine) SetAutoSubmit(on bool) {
	e.autoSubmit = on
	e.savePreference(PrefAutoSubmit, strconv.FormatBool(on))
	e.evaluateAutoSubmit()
}

// savePreference writes one key whole-value, last writer wins.
func (e *Engine) savePreference(key, value string) {
	if e.store != nil {
		e.store.Set(key, value)
	}
}
