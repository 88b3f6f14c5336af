package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/voiceslab/annotate-backend/internal/middleware"
	"github.com/voiceslab/annotate-backend/internal/model"
	"github.com/voiceslab/annotate-backend/internal/repository"
	"github.com/voiceslab/annotate-backend/internal/response"
	"github.com/voiceslab/annotate-backend/internal/service"
	"github.com/voiceslab/annotate-backend/internal/validator"
)

// SubmissionHandler accepts annotation records over plain HTTP. Pages without
// a WebSocket connection post here directly.
type SubmissionHandler struct {
	submissions *service.SubmissionService
	states      *repository.StateRepository
	log         zerolog.Logger
}

// NewSubmissionHandler creates a new SubmissionHandler.
func NewSubmissionHandler(submissions *service.SubmissionService, states *repository.StateRepository, log zerolog.Logger) *SubmissionHandler {
	return &SubmissionHandler{
		submissions: submissions,
		states:      states,
		log:         log.With().Str("component", "submission_handler").Logger(),
	}
}

// Submit godoc
// POST /api/v1/tasks/:task/stimuli/:stimulus_id/submit
// Appends one annotation record and returns the next stimulus to show.
func (h *SubmissionHandler) Submit(c *gin.Context) {
	var req model.SubmitRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	taskName := c.Param("task")
	stimulusID := c.Param("stimulus_id")

	outcome, err := h.submissions.Submit(c.Request.Context(), taskName, stimulusID, req)
	if err != nil {
		h.failSubmit(c, err)
		return
	}

	// The record is on disk; drop any mirrored in-progress state.
	if clientID := middleware.GetClientID(c); clientID != "" && h.states != nil {
		if err := h.states.Clear(c.Request.Context(), clientID, taskName, stimulusID); err != nil {
			h.log.Error().Err(err).Str("client_id", clientID).Msg("Clear mirrored state error")
		}
	}

	response.Success(c, http.StatusOK, outcome)
}

func (h *SubmissionHandler) failSubmit(c *gin.Context, err error) {
	var reqErr *service.RequiredFieldError
	switch {
	case errors.Is(err, service.ErrTaskNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrTaskNotFound)
	case errors.Is(err, service.ErrStimulusNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrStimulusNotFound)
	case errors.Is(err, service.ErrAnnotatorRequired):
		response.Fail(c, http.StatusBadRequest, response.ErrAnnotatorRequired)
	case errors.Is(err, repository.ErrUnsafeAnnotator):
		response.Fail(c, http.StatusBadRequest, response.ErrAnnotatorRequired)
	case errors.As(err, &reqErr):
		response.FailWithFields(c, http.StatusBadRequest, response.ErrFieldRequired, map[string]string{
			reqErr.Label: response.GetMessage(response.ErrFieldRequired),
		})
	default:
		h.log.Error().Err(err).Msg("Submit error")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
