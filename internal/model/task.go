package model

import "github.com/voiceslab/annotate-backend/internal/formstate"

// RendererKind selects how a task's stimuli are turned into renderables.
type RendererKind string

const (
	// RendererVideoFrames extracts evenly spaced frames from a video file.
	RendererVideoFrames RendererKind = "video-frames"
	// RendererImage serves the stimulus file as a single image.
	RendererImage RendererKind = "image"
	// RendererText inlines the stimulus file content as text.
	RendererText RendererKind = "text"
)

// TaskDefinition is one entry of the tasks file. Definitions are validated on
// load with the same validator used for request binding.
type TaskDefinition struct {
	Name       string        `json:"name" binding:"required,max=64,excludes=/"`
	Title      string        `json:"title"`
	StimuliDir string        `json:"stimuli_dir" binding:"required"`
	Pattern    string        `json:"pattern"`
	Renderer   RendererKind  `json:"renderer" binding:"required,oneof=video-frames image text"`
	Questions  []QuestionDef `json:"questions" binding:"required,min=1,dive"`
}

// QuestionDef describes one on-page input of a task.
type QuestionDef struct {
	Label       string   `json:"label" binding:"required,max=200"`
	Kind        string   `json:"kind" binding:"required,oneof=single-choice multi-choice free-text"`
	Choices     []string `json:"choices" binding:"dive,nodelim"`
	Placeholder string   `json:"placeholder"`
	Required    bool     `json:"required"`
}

// ToQuestion converts the definition into the form-state engine's question
// descriptor.
func (d QuestionDef) ToQuestion() formstate.Question {
	return formstate.Question{
		Label:       d.Label,
		Kind:        formstate.Kind(d.Kind),
		Choices:     d.Choices,
		Placeholder: d.Placeholder,
		Required:    d.Required,
	}
}
