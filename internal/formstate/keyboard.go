package formstate

// Focus describes where keyboard focus is when a key event arrives.
type Focus int

const (
	// FocusDefault means focus is outside any text input.
	FocusDefault Focus = iota
	// FocusTextField means focus is inside a single-line text input.
	FocusTextField
	// FocusTextArea means focus is inside the multi-line notes field.
	FocusTextArea
)

// HandleKey applies the page's keyboard shortcuts. Enter outside the
// multi-line notes field invokes the submit action. A digit key pressed while
// focus is not inside a text field clicks the first choice control whose
// visible label equals that digit. Returns true when the key was consumed.
func (e *Engine) HandleKey(key string, focus Focus) bool {
	if key == "Enter" {
		if focus == FocusTextArea {
			return false
		}
		e.Submit()
		return true
	}

	if focus != FocusDefault {
		return false
	}
	if len(key) != 1 || key[0] < '0' || key[0] > '9' {
		return false
	}

	for _, q := range e.questions {
		for _, c := range q.Choices {
			if c != key {
				continue
			}
			switch q.Kind {
			case SingleChoice:
				e.SelectSingle(q.Label, c)
			case MultiChoice:
				e.ToggleMany(q.Label, c)
			}
			return true
		}
	}
	return false
}
