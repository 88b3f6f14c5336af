package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/voiceslab/annotate-backend/internal/response"
	"github.com/voiceslab/annotate-backend/internal/service"
	"github.com/voiceslab/annotate-backend/internal/task"
)

const keepAliveInterval = 30 * time.Second

// MonitorHandler streams live submission activity for a task over SSE.
type MonitorHandler struct {
	registry       *task.Registry
	taskService    *service.TaskService
	monitorService *service.MonitorService
	log            zerolog.Logger
}

// NewMonitorHandler creates a new MonitorHandler.
func NewMonitorHandler(
	registry *task.Registry,
	taskService *service.TaskService,
	monitorService *service.MonitorService,
	log zerolog.Logger,
) *MonitorHandler {
	return &MonitorHandler{
		registry:       registry,
		taskService:    taskService,
		monitorService: monitorService,
		log:            log.With().Str("component", "monitor_handler").Logger(),
	}
}

// MonitorTaskSSE godoc
// GET /api/v1/tasks/:task/monitor
// Sends a per-annotator progress snapshot, then forwards each submission
// event as it is published.
func (h *MonitorHandler) MonitorTaskSSE(c *gin.Context) {
	taskName := c.Param("task")
	t, ok := h.registry.Get(taskName)
	if !ok {
		response.Fail(c, http.StatusNotFound, response.ErrTaskNotFound)
		return
	}

	reqCtx := c.Request.Context()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("Access-Control-Allow-Origin", "*")

	h.sendInitialSnapshot(c, taskName, len(t.Stimuli))

	pubsub := h.monitorService.Subscribe(reqCtx, taskName)
	defer pubsub.Close()

	ch := pubsub.Channel()

	keepAliveTicker := time.NewTicker(keepAliveInterval)
	defer keepAliveTicker.Stop()

	h.log.Info().Str("task", taskName).Msg("Monitor attached to SSE")

	// Pre-allocate a reusable ping payload (never changes)
	pingPayload, _ := json.Marshal(map[string]string{"type": "ping"})

	for {
		select {
		case <-reqCtx.Done():
			h.log.Info().Str("task", taskName).Msg("Monitor disconnected from SSE")
			return

		case msg := <-ch:
			// Forward raw JSON directly, no deserialization needed
			c.Writer.Write([]byte("data: "))
			c.Writer.Write([]byte(msg.Payload))
			c.Writer.Write([]byte("\n\n"))
			c.Writer.Flush()

		case <-keepAliveTicker.C:
			c.Writer.Write([]byte("data: "))
			c.Writer.Write(pingPayload)
			c.Writer.Write([]byte("\n\n"))
			c.Writer.Flush()
		}
	}
}

// sendInitialSnapshot writes the first SSE event: submitted-row counts per
// annotator against the task's stimulus total.
func (h *MonitorHandler) sendInitialSnapshot(c *gin.Context, taskName string, totalStimuli int) {
	counts, err := h.taskService.Counts(c.Request.Context(), taskName)
	if err != nil {
		h.log.Warn().Err(err).Str("task", taskName).Msg("Failed to build monitor snapshot")
		counts = map[string]int{}
	}

	annotators := make([]map[string]interface{}, 0, len(counts))
	for name, n := range counts {
		annotators = append(annotators, map[string]interface{}{
			"annotator": name,
			"submitted": n,
		})
	}

	c.SSEvent("message", map[string]interface{}{
		"type": "snapshot",
		"data": map[string]interface{}{
			"task":            taskName,
			"total_stimuli":   totalStimuli,
			"annotators":      annotators,
			"annotator_count": len(annotators),
		},
	})
	c.Writer.Flush()
}
