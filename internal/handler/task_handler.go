package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/voiceslab/annotate-backend/internal/middleware"
	"github.com/voiceslab/annotate-backend/internal/repository"
	"github.com/voiceslab/annotate-backend/internal/response"
	"github.com/voiceslab/annotate-backend/internal/service"
	"github.com/voiceslab/annotate-backend/internal/task"
)

// TaskHandler serves task listings and stimulus pages.
type TaskHandler struct {
	registry     *task.Registry
	taskService  *service.TaskService
	mediaService *service.MediaService
	sessions     *service.SessionService
	prefs        *repository.PreferenceRepository
	log          zerolog.Logger
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(
	registry *task.Registry,
	taskService *service.TaskService,
	mediaService *service.MediaService,
	sessions *service.SessionService,
	prefs *repository.PreferenceRepository,
	log zerolog.Logger,
) *TaskHandler {
	return &TaskHandler{
		registry:     registry,
		taskService:  taskService,
		mediaService: mediaService,
		sessions:     sessions,
		prefs:        prefs,
		log:          log.With().Str("component", "task_handler").Logger(),
	}
}

// ListTasks godoc
// GET /api/v1/tasks
func (h *TaskHandler) ListTasks(c *gin.Context) {
	tasks := h.registry.Tasks()
	out := make([]gin.H, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, gin.H{
			"name":           t.Def.Name,
			"title":          t.Def.Title,
			"renderer":       t.Def.Renderer,
			"stimulus_count": len(t.Stimuli),
			"first_id":       t.FirstID(),
		})
	}
	response.Success(c, http.StatusOK, gin.H{"tasks": out})
}

// GetStimulus godoc
// GET /api/v1/tasks/:task/stimuli/:stimulus_id
// Returns everything one page needs: questions, renderable media, progress,
// the client's restored answers, and its persisted preferences.
func (h *TaskHandler) GetStimulus(c *gin.Context) {
	t, ok := h.registry.Get(c.Param("task"))
	if !ok {
		response.Fail(c, http.StatusNotFound, response.ErrTaskNotFound)
		return
	}

	stimulusID := c.Param("stimulus_id")
	st, ok := t.StimulusByID(stimulusID)
	if !ok {
		response.Fail(c, http.StatusNotFound, response.ErrStimulusNotFound)
		return
	}

	renderables, err := h.mediaService.Renderables(c.Request.Context(), t, st)
	if err != nil {
		h.log.Error().Err(err).Str("stimulus_id", stimulusID).Msg("Render stimulus error")
		response.Fail(c, http.StatusInternalServerError, response.ErrFrameExtraction)
		return
	}

	clientID := middleware.GetClientID(c)

	state, restored, err := h.sessions.RestoredState(c.Request.Context(), clientID, t.Name(), stimulusID)
	if err != nil {
		h.log.Error().Err(err).Str("client_id", clientID).Msg("Load restored state error")
	}

	prefs, err := h.prefs.GetAll(c.Request.Context(), clientID)
	if err != nil {
		h.log.Error().Err(err).Str("client_id", clientID).Msg("Load preferences error")
		prefs = map[string]string{}
	}

	payload := gin.H{
		"task": gin.H{
			"name":  t.Def.Name,
			"title": t.Def.Title,
		},
		"stimulus_id": stimulusID,
		"progress":    t.Progress(stimulusID),
		"questions":   t.Questions,
		"renderables": renderables,
		"preferences": prefs,
	}
	if restored {
		payload["restored"] = state
	}

	response.Success(c, http.StatusOK, payload)
}

// GetStimulusFile godoc
// GET /api/v1/tasks/:task/stimuli/:stimulus_id/file
// Streams the raw stimulus file (image or video) from disk.
func (h *TaskHandler) GetStimulusFile(c *gin.Context) {
	t, ok := h.registry.Get(c.Param("task"))
	if !ok {
		response.Fail(c, http.StatusNotFound, response.ErrTaskNotFound)
		return
	}

	st, ok := t.StimulusByID(c.Param("stimulus_id"))
	if !ok {
		response.Fail(c, http.StatusNotFound, response.ErrStimulusNotFound)
		return
	}

	c.File(st.Path)
}

// FindUnfilled godoc
// GET /api/v1/tasks/:task/unfilled?start=00042&scope=self&annotator=alice
// Returns the first stimulus at or after start with no recorded annotation.
func (h *TaskHandler) FindUnfilled(c *gin.Context) {
	taskName := c.Param("task")
	start := c.Query("start")
	scope := c.DefaultQuery("scope", service.ScopeSelf)
	annotator := c.Query("annotator")

	id, found, err := h.taskService.FindUnfilled(c.Request.Context(), taskName, start, scope, annotator)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTaskNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrTaskNotFound)
		case errors.Is(err, service.ErrMalformedStart):
			response.Fail(c, http.StatusBadRequest, response.ErrValidation)
		default:
			h.log.Error().Err(err).Str("task", taskName).Msg("Find unfilled error")
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"stimulus_id": id,
		"found":       found,
	})
}
