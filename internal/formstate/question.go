package formstate

import "strings"

// Kind identifies how a question is answered.
type Kind string

const (
	SingleChoice Kind = "single-choice"
	MultiChoice  Kind = "multi-choice"
	FreeText     Kind = "free-text"
)

// Delimiter joins the selected choices of a multi-choice answer into its
// serialized value. Choice values must not contain it; task definitions are
// checked for this at load time, not here.
const Delimiter = ","

// Question is one entry in the fixed, page-defined list of inputs.
// Labels are unique within a page.
type Question struct {
	Label       string   `json:"label"`
	Kind        Kind     `json:"kind"`
	Choices     []string `json:"choices,omitempty"`
	Placeholder string   `json:"placeholder,omitempty"`
	Required    bool     `json:"required"`
}

// questionState is the live answer bound to one question.
type questionState struct {
	q        Question
	selected map[string]bool
	text     string
	value    string // serialized bound value, mirrors the page's hidden field
}

func newQuestionState(q Question) *questionState {
	return &questionState{q: q, selected: make(map[string]bool)}
}

// set reports whether the question counts as answered for completion:
// choice kinds need a non-empty serialized value, free text a non-blank one.
// An empty multi-choice set is indistinguishable from unanswered.
func (st *questionState) set() bool {
	if st.q.Kind == FreeText {
		return strings.TrimSpace(st.text) != ""
	}
	return st.value != ""
}

// serialize recomputes the bound value from the selection. Multi-choice
// selections are joined in display order of the active choices, which keeps
// the value stable regardless of toggle order.
func (st *questionState) serialize() {
	switch st.q.Kind {
	case MultiChoice:
		var active []string
		for _, c := range st.q.Choices {
			if st.selected[c] {
				active = append(active, c)
			}
		}
		st.value = strings.Join(active, Delimiter)
	case SingleChoice:
		st.value = ""
		for _, c := range st.q.Choices {
			if st.selected[c] {
				st.value = c
				break
			}
		}
	case FreeText:
		st.value = st.text
	}
}

func (st *questionState) hasChoice(choice string) bool {
	for _, c := range st.q.Choices {
		if c == choice {
			return true
		}
	}
	return false
}
