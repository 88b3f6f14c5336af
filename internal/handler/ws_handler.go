package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/voiceslab/annotate-backend/internal/formstate"
	"github.com/voiceslab/annotate-backend/internal/middleware"
	"github.com/voiceslab/annotate-backend/internal/service"
	ws "github.com/voiceslab/annotate-backend/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams page events into a form-state session.
type WSHandler struct {
	sessions *service.SessionService
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(sessions *service.SessionService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		sessions: sessions,
		log:      log.With().Str("component", "ws_handler").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
	}
}

// PageStream godoc
// WS /ws/v1/tasks/:task/stimuli/:stimulus_id/stream
// Upgrades to WebSocket and applies page events to the stimulus form state.
func (h *WSHandler) PageStream(c *gin.Context) {
	clientID := middleware.GetClientID(c)
	if clientID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "client cookie required"})
		return
	}

	taskName := c.Param("task")
	stimulusID := c.Param("stimulus_id")

	sess, err := h.sessions.Attach(c.Request.Context(), clientID, taskName, stimulusID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().
		Str("client_id", clientID).
		Str("task", taskName).
		Str("stimulus_id", stimulusID).
		Logger()

	wsLog.Info().Msg("Page connected")

	// Initial state so the page can render restored answers and controls.
	ws.WriteTyped(conn, ws.StateResponse{
		Event:    ws.EventState,
		Snapshot: h.sessions.Snapshot(sess),
	})

	for {
		var msg ws.EventRequest
		err := ws.ReadJSON(conn, &msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			break
		}

		if msg.Action == ws.ActionPing {
			ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})
			continue
		}

		apply, ok := buildEvent(&msg)
		if !ok {
			wsLog.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
			ws.WriteError(conn, "unknown action: "+string(msg.Action))
			continue
		}

		result, err := h.sessions.Apply(c.Request.Context(), sess, apply)
		if err != nil {
			h.writeApplyError(conn, wsLog, err)
			continue
		}

		event := ws.EventState
		if result.Outcome != nil {
			event = ws.EventSubmitted
		}
		ws.WriteTyped(conn, ws.StateResponse{
			Event:    event,
			Snapshot: result.Snapshot,
			Outcome:  result.Outcome,
		})
	}
}

// buildEvent maps a decoded message onto an engine mutation.
func buildEvent(msg *ws.EventRequest) (func(e *formstate.Engine), bool) {
	switch msg.Action {
	case ws.ActionSelect:
		return func(e *formstate.Engine) { e.SelectSingle(msg.Label, msg.Choice) }, true
	case ws.ActionToggle:
		return func(e *formstate.Engine) { e.ToggleMany(msg.Label, msg.Choice) }, true
	case ws.ActionSetText:
		return func(e *formstate.Engine) { e.SetFreeText(msg.Label, msg.Value) }, true
	case ws.ActionSetNotes:
		return func(e *formstate.Engine) { e.SetNotes(msg.Value) }, true
	case ws.ActionSetUnsure:
		return func(e *formstate.Engine) { e.SetUnsure(msg.On) }, true
	case ws.ActionSetAnnotator:
		return func(e *formstate.Engine) { e.SetAnnotator(msg.Value) }, true
	case ws.ActionSetUnfilledStart:
		return func(e *formstate.Engine) { e.SetUnfilledStart(msg.Value) }, true
	case ws.ActionSetUnfilledScope:
		return func(e *formstate.Engine) { e.SetUnfilledScope(msg.Value) }, true
	case ws.ActionSetAutoSubmit:
		return func(e *formstate.Engine) { e.SetAutoSubmit(msg.On) }, true
	case ws.ActionKey:
		return func(e *formstate.Engine) { e.HandleKey(msg.Key, parseFocus(msg.Focus)) }, true
	case ws.ActionSubmit:
		return func(e *formstate.Engine) { e.Submit() }, true
	}
	return nil, false
}

func parseFocus(focus string) formstate.Focus {
	switch focus {
	case "text-field":
		return formstate.FocusTextField
	case "text-area":
		return formstate.FocusTextArea
	default:
		return formstate.FocusDefault
	}
}

func (h *WSHandler) writeApplyError(conn *websocket.Conn, wsLog zerolog.Logger, err error) {
	var reqErr *service.RequiredFieldError
	switch {
	case errors.As(err, &reqErr):
		ws.WriteError(conn, "answer required: "+reqErr.Label)
	case errors.Is(err, service.ErrAnnotatorRequired):
		ws.WriteError(conn, "annotator name required")
	default:
		wsLog.Error().Err(err).Msg("Apply event error")
		ws.WriteError(conn, "submission failed")
	}
}
