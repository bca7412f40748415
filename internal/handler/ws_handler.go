package handler

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/assessly/assessly-backend/internal/service"
	ws "github.com/assessly/assessly-backend/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation. An
// empty allow list permits all origins (development mode).
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

// WSHandler streams live session state: countdown ticks and integrity
// warnings flow down, autosave and submit actions flow up.
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

// SessionStream godoc
// WS /ws/v1/sessions/:sessionId/stream
func (h *WSHandler) SessionStream(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("sessionId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session ID"})
		return
	}

	done, err := h.sessions.Done(sessionID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	rawConn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	conn := ws.NewConn(rawConn)
	defer conn.Close()

	wsLog := h.log.With().Str("session_id", sessionID.String()).Logger()
	wsLog.Info().Msg("Taker connected")

	pushCtx, cancelPush := context.WithCancel(context.Background())
	defer cancelPush()

	var gradedOnce sync.Once
	go h.pushLoop(pushCtx, conn, sessionID, done, &gradedOnce, wsLog)

	for {
		var msg ws.RequestPayload
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		switch msg.Action {
		case ws.ActionAutosave:
			h.handleAutosave(conn, sessionID, &msg)
		case ws.ActionSubmit:
			h.handleSubmit(c.Request.Context(), conn, sessionID, &gradedOnce, wsLog)
		case ws.ActionPing:
			conn.WriteTyped(ws.PongResponse{Event: ws.EventPong})
		default:
			wsLog.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
			conn.WriteError("unknown action: " + string(msg.Action))
		}
	}
}

// pushLoop sends a tick every second plus any warnings raised since the
// last tick, and announces the result when the session terminates.
func (h *WSHandler) pushLoop(ctx context.Context, conn *ws.Conn, sessionID uuid.UUID, done <-chan struct{}, gradedOnce *sync.Once, wsLog zerolog.Logger) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	sentWarnings := 0

	for {
		select {
		case <-ctx.Done():
			return

		case <-done:
			if result, ok := h.sessions.LiveResult(sessionID); ok {
				gradedOnce.Do(func() {
					conn.WriteTyped(ws.GradedResponse{Event: ws.EventGraded, Score: result.Score})
				})
			}
			return

		case <-ticker.C:
			view, err := h.sessions.State(sessionID)
			if err != nil {
				return
			}

			if err := conn.WriteTyped(ws.TickResponse{
				Event:            ws.EventTick,
				RemainingSeconds: view.RemainingSeconds,
				Status:           string(view.Status),
			}); err != nil {
				wsLog.Debug().Err(err).Msg("Tick write failed")
				return
			}

			for ; sentWarnings < len(view.Warnings); sentWarnings++ {
				w := view.Warnings[sentWarnings]
				conn.WriteTyped(ws.WarningResponse{
					Event:     ws.EventWarning,
					Kind:      w.Kind,
					Message:   w.Message,
					Timestamp: w.Timestamp,
				})
			}
		}
	}
}

func (h *WSHandler) handleAutosave(conn *ws.Conn, sessionID uuid.UUID, msg *ws.RequestPayload) {
	if msg.Index == nil {
		conn.WriteError("index is required")
		return
	}

	if _, err := h.sessions.Answer(sessionID, *msg.Index, msg.Value); err != nil {
		conn.WriteError(err.Error())
		return
	}

	conn.WriteTyped(ws.SavedResponse{Event: ws.EventSaved, Index: *msg.Index})
}

func (h *WSHandler) handleSubmit(ctx context.Context, conn *ws.Conn, sessionID uuid.UUID, gradedOnce *sync.Once, wsLog zerolog.Logger) {
	result, err := h.sessions.Submit(ctx, sessionID)
	if err != nil {
		wsLog.Error().Err(err).Msg("Submit over WebSocket failed")
		conn.WriteError("submit failed")
		return
	}

	gradedOnce.Do(func() {
		conn.WriteTyped(ws.GradedResponse{Event: ws.EventGraded, Score: result.Score})
	})
}
