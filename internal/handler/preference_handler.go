package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/voiceslab/annotate-backend/internal/formstate"
	"github.com/voiceslab/annotate-backend/internal/middleware"
	"github.com/voiceslab/annotate-backend/internal/model"
	"github.com/voiceslab/annotate-backend/internal/repository"
	"github.com/voiceslab/annotate-backend/internal/response"
	"github.com/voiceslab/annotate-backend/internal/validator"
)

// PreferenceHandler reads and writes a browser client's persisted control
// preferences.
type PreferenceHandler struct {
	prefs *repository.PreferenceRepository
	log   zerolog.Logger
}

// NewPreferenceHandler creates a new PreferenceHandler.
func NewPreferenceHandler(prefs *repository.PreferenceRepository, log zerolog.Logger) *PreferenceHandler {
	return &PreferenceHandler{
		prefs: prefs,
		log:   log.With().Str("component", "preference_handler").Logger(),
	}
}

// GetPreferences godoc
// GET /api/v1/preferences
func (h *PreferenceHandler) GetPreferences(c *gin.Context) {
	clientID := middleware.GetClientID(c)

	prefs, err := h.prefs.GetAll(c.Request.Context(), clientID)
	if err != nil {
		h.log.Error().Err(err).Str("client_id", clientID).Msg("Get preferences error")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"preferences": prefs})
}

// UpdatePreferences godoc
// PUT /api/v1/preferences
// Accepts a partial map; unknown keys are rejected before anything is saved.
func (h *PreferenceHandler) UpdatePreferences(c *gin.Context) {
	var req model.UpdatePreferencesRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	for key := range req.Preferences {
		if !formstate.KnownPreference(key) {
			response.Fail(c, http.StatusBadRequest, response.ErrUnknownPreference)
			return
		}
	}

	clientID := middleware.GetClientID(c)
	for key, value := range req.Preferences {
		if err := h.prefs.Set(c.Request.Context(), clientID, key, value); err != nil {
			h.log.Error().Err(err).Str("client_id", clientID).Msg("Set preference error")
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
			return
		}
	}

	response.Success(c, http.StatusOK, gin.H{"saved": len(req.Preferences)})
}
