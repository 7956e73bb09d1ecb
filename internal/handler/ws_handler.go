package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/quizdeck/quizdeck-backend/internal/middleware"
	"github.com/quizdeck/quizdeck-backend/internal/service"
	"github.com/quizdeck/quizdeck-backend/internal/session"
	ws "github.com/quizdeck/quizdeck-backend/internal/websocket"
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

// WSHandler streams a live attempt over WebSocket.
type WSHandler struct {
	attemptService *service.AttemptService
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(attemptService *service.AttemptService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		attemptService: attemptService,
		log:            log.With().Str("component", "ws_handler").Logger(),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// AttemptStream godoc
// WS /ws/v1/attempts/:attempt_id/stream?token=...
// Upgrades to WebSocket for live attempt interaction. Every action answers
// with a fresh snapshot; a countdown auto-submit pushes a graded event even
// when the client sent nothing.
func (h *WSHandler) AttemptStream(c *gin.Context) {
	attemptID, err := uuid.Parse(c.Param("attempt_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid attempt ID"})
		return
	}

	sess, ok := h.attemptService.Get(attemptID, middleware.UserID(c))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "attempt not found"})
		return
	}

	raw, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	conn := ws.Wrap(raw)
	defer conn.Close()

	wsLog := h.log.With().
		Str("attempt_id", attemptID.String()).
		Logger()

	wsLog.Info().Msg("Attempt stream connected")

	// Push the graded event the moment the clock releases, independent of
	// client traffic. Covers the countdown-reaches-zero auto-submit.
	streamDone := make(chan struct{})
	defer close(streamDone)
	go watchAutoSubmit(conn, sess, streamDone)

	conn.WriteTyped(ws.StateResponse{Event: ws.EventState, State: sess.Snapshot()})

	for {
		msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		var envelope ws.RequestEnvelope
		if err := json.Unmarshal(msg, &envelope); err != nil {
			conn.WriteError("malformed message")
			continue
		}

		switch envelope.Action {
		case ws.ActionGoto:
			var req ws.GotoRequest
			if err := json.Unmarshal(msg, &req); err != nil {
				conn.WriteError("malformed goto payload")
				continue
			}
			sess.GoTo(req.Index)
			conn.WriteTyped(ws.StateResponse{Event: ws.EventState, State: sess.Snapshot()})

		case ws.ActionAnswer:
			var req ws.AnswerRequest
			if err := json.Unmarshal(msg, &req); err != nil {
				conn.WriteError("malformed answer payload")
				continue
			}
			if err := sess.SelectAnswer(req.Option); err != nil {
				conn.WriteError("option does not belong to this question")
				continue
			}
			conn.WriteTyped(ws.StateResponse{Event: ws.EventState, State: sess.Snapshot()})

		case ws.ActionMark:
			sess.ToggleMarkForReview()
			conn.WriteTyped(ws.StateResponse{Event: ws.EventState, State: sess.Snapshot()})

		case ws.ActionSubmit:
			result := sess.Submit()
			wsLog.Info().Int("score", result.Score).Bool("passed", result.Passed).Msg("Attempt submitted")
			conn.WriteTyped(ws.GradedResponse{Event: ws.EventGraded, Result: result})

		case ws.ActionPing:
			conn.WriteTyped(ws.PongResponse{Event: ws.EventPong})

		default:
			wsLog.Warn().Str("action", string(envelope.Action)).Msg("Unknown action")
			conn.WriteError("unknown action: " + string(envelope.Action))
		}
	}
}

// watchAutoSubmit pushes the graded result when the session clock releases.
// A manual submit also closes Done; the duplicate graded event is harmless.
func watchAutoSubmit(conn *ws.Conn, sess *session.Session, streamDone <-chan struct{}) {
	select {
	case <-streamDone:
	case <-sess.Done():
		if result := sess.Result(); result != nil {
			conn.WriteTyped(ws.GradedResponse{Event: ws.EventGraded, Result: result})
		}
	}
}
