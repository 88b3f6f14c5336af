package model

// Stimulus is one item of a task, identified by a zero-padded sequential ID
// assigned in sorted filename order.
type Stimulus struct {
	ID   string `json:"id"`
	Path string `json:"-"`
}

// Renderable is one displayable piece of a stimulus: an image URL or an
// inline text block.
type Renderable struct {
	Kind string `json:"kind"` // "image" or "text"
	URL  string `json:"url,omitempty"`
	Text string `json:"text,omitempty"`
}
