package model

import "time"

// SubmitRequest is the payload of a form submission. Annotator and required
// fields are validated by the submission service, mirroring the page's own
// lack of hard validation.
type SubmitRequest struct {
	Annotator string            `json:"annotator"`
	Values    map[string]string `json:"values"`
	Notes     string            `json:"notes"`
	Unsure    bool              `json:"unsure"`
	Prev      bool              `json:"prev"`
}

// Submission is a completed record appended to the annotator's results file.
type Submission struct {
	Task       string
	StimulusID string
	Annotator  string
	Values     map[string]string
	Notes      string
	Unsure     bool
}

// UpdatePreferencesRequest is the payload for saving persisted preferences.
type UpdatePreferencesRequest struct {
	Preferences map[string]string `json:"preferences" binding:"required"`
}

// MonitorEvent is published on the task monitor channel after every
// successful submission.
type MonitorEvent struct {
	Task       string    `json:"task"`
	Annotator  string    `json:"annotator"`
	StimulusID string    `json:"stimulus_id"`
	Submitted  int       `json:"submitted"`
	Timestamp  time.Time `json:"timestamp"`
}
