// README: Live board stream (server-sent events) for kitchen, delivery and monitor screens.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"yoake/internal/board"
)

const (
	boardBuffer    = 32
	boardHeartbeat = 25 * time.Second
)

type BoardHub interface {
	Register(c *board.Client)
	Unregister(c *board.Client)
}

type BoardHandler struct {
	hub       BoardHub
	heartbeat time.Duration
}

func NewBoardHandler(hub BoardHub) *BoardHandler {
	return &BoardHandler{hub: hub, heartbeat: boardHeartbeat}
}

// Stream handles GET /api/boards/:bucket/stream. Each message is a hint to
// refetch the bucket's list; clients that fall behind miss hints, not state.
func (h *BoardHandler) Stream(c *gin.Context) {
	bucket, ok := board.ParseBucket(c.Param("bucket"))
	if !ok {
		writeError(c, http.StatusNotFound, "unknown board")
		return
	}
	client := board.NewClient(uuid.NewString(), bucket, boardBuffer)
	h.hub.Register(client)
	defer h.hub.Unregister(client)

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent("ready", gin.H{"bucket": bucket})
	c.Writer.Flush()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case m, open := <-client.Send:
			if !open {
				return
			}
			c.SSEvent(string(m.Kind), m)
		case <-ticker.C:
			c.SSEvent("ping", time.Now().UTC().Format(time.RFC3339))
		}
		c.Writer.Flush()
	}
}
