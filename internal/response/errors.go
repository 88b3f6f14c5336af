package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation        ErrCode = "VALIDATION_ERROR"
	ErrInvalidPayload    ErrCode = "INVALID_PAYLOAD"
	ErrAnnotatorRequired ErrCode = "ANNOTATOR_REQUIRED"
	ErrFieldRequired     ErrCode = "REQUIRED_FIELD_MISSING"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound         ErrCode = "NOT_FOUND"
	ErrTaskNotFound     ErrCode = "TASK_NOT_FOUND"
	ErrStimulusNotFound ErrCode = "STIMULUS_NOT_FOUND"
	ErrNoStimuli        ErrCode = "NO_STIMULI"

	// ─── Preferences ───────────────────────────────────────────────────
	ErrUnknownPreference ErrCode = "UNKNOWN_PREFERENCE_KEY"

	// ─── Media ─────────────────────────────────────────────────────────
	ErrFrameExtraction ErrCode = "FRAME_EXTRACTION_FAILED"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidPayload:
		return "The request payload is invalid."
	case ErrAnnotatorRequired:
		return "Annotator name required."
	case ErrFieldRequired:
		return "A required field is missing."
	case ErrNotFound:
		return "Resource not found."
	case ErrTaskNotFound:
		return "Unknown annotation task."
	case ErrStimulusNotFound:
		return "Unknown stimulus for this task."
	case ErrNoStimuli:
		return "No stimuli configured for this task."
	case ErrUnknownPreference:
		return "Unknown preference key."
	case ErrFrameExtraction:
		return "Could not extract frames from the stimulus video."
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."
	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
