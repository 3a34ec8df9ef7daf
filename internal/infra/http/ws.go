package http

import (
	"net/http"
	"time"

	"github.com/LexatoBR/lexato-extension-sub001/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

const (
	wsWriteTimeout = 10 * time.Second
	wsPingInterval = 30 * time.Second

	// A slow reader that falls this far behind is dropped rather than
	// allowed to block the tracker fan-out.
	wsSendBuffer = 64
)

// handleStreamProgress upgrades the connection and pushes every progress
// update for the requested evidence id until the client disconnects or the
// item reaches a terminal status.
func (s *Server) handleStreamProgress(c *gin.Context) {
	id := c.Param("id")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	updates := make(chan domain.PipelineProgress, wsSendBuffer)
	unsubscribe := s.tracker.Subscribe(func(progress domain.PipelineProgress) {
		if progress.EvidenceID != id {
			return
		}
		select {
		case updates <- progress:
		default:
		}
	})
	defer unsubscribe()

	// Current snapshot first so a late subscriber starts from the truth.
	if current, ok := s.tracker.Get(id); ok {
		if err := writeProgress(conn, current); err != nil {
			return
		}
		if isTerminal(current) {
			return
		}
	}

	// Reader goroutine: surfaces client disconnects.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(wsPingInterval)
	defer ping.Stop()

	for {
		select {
		case progress := <-updates:
			if err := writeProgress(conn, progress); err != nil {
				return
			}
			if isTerminal(progress) {
				return
			}
		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		case <-c.Request.Context().Done():
			return
		}
	}
}

func writeProgress(conn *websocket.Conn, progress domain.PipelineProgress) error {
	conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return conn.WriteJSON(progress)
}

func isTerminal(progress domain.PipelineProgress) bool {
	return progress.Status == domain.StatusCertificateIssued || progress.Status.IsFailure()
}
