package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/noah-isme/adaptive-learning-portal/internal/quiz"
	"github.com/noah-isme/adaptive-learning-portal/pkg/response"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	tickPeriod = time.Second
)

// QuizStreamHandler pushes attempt snapshots over a websocket so pages can render
// the countdown without polling.
type QuizStreamHandler struct {
	service  quizService
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewQuizStreamHandler constructs the handler. A nil checkOrigin accepts any origin.
func NewQuizStreamHandler(svc quizService, checkOrigin func(r *http.Request) bool, logger *zap.Logger) *QuizStreamHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if checkOrigin == nil {
		checkOrigin = func(r *http.Request) bool { return true }
	}
	return &QuizStreamHandler{
		service: svc,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
		logger: logger,
	}
}

// Stream godoc
// @Summary Live attempt stream
// @Description Upgrades to a websocket carrying a snapshot on every change and once per second
// @Tags Quiz
// @Param id path string true "Attempt ID"
// @Success 101
// @Failure 404 {object} response.Envelope
// @Router /quiz/attempts/{id}/ws [get]
func (h *QuizStreamHandler) Stream(c *gin.Context) {
	attempt, err := h.service.Attempt(c.Param("id"), ownerID(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.String("attempt_id", attempt.ID()), zap.Error(err))
		return
	}

	updates, unsubscribe := attempt.Subscribe()
	defer unsubscribe()

	closed := make(chan struct{})
	go h.readPump(conn, closed)
	h.writePump(conn, attempt, updates, closed)
}

// readPump discards client frames and reports when the peer goes away.
func (h *QuizStreamHandler) readPump(conn *websocket.Conn, closed chan<- struct{}) {
	defer close(closed)
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Debug("websocket closed", zap.Error(err))
			}
			return
		}
	}
}

func (h *QuizStreamHandler) writePump(conn *websocket.Conn, attempt *quiz.Attempt, updates <-chan quiz.Snapshot, closed <-chan struct{}) {
	ticker := time.NewTicker(tickPeriod)
	pinger := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		pinger.Stop()
		_ = conn.Close()
	}()

	if err := h.send(conn, attempt.Snapshot()); err != nil {
		return
	}
	for {
		select {
		case <-closed:
			return
		case snap, ok := <-updates:
			if !ok {
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := h.send(conn, snap); err != nil {
				return
			}
			if snap.State.Terminal() {
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, string(snap.State)))
				return
			}
		case <-ticker.C:
			if err := h.send(conn, attempt.Snapshot()); err != nil {
				return
			}
		case <-pinger.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *QuizStreamHandler) send(conn *websocket.Conn, snap quiz.Snapshot) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(snap); err != nil {
		h.logger.Debug("websocket write failed", zap.String("attempt_id", snap.ID), zap.Error(err))
		return err
	}
	return nil
}
