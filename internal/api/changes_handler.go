package api

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/opsdesk-api/internal/realtime"
)

// ChangesHandler streams table change events to dashboard clients
type ChangesHandler struct {
	hub       *realtime.Hub
	keepalive time.Duration
	log       zerolog.Logger
}

// NewChangesHandler creates a new ChangesHandler
func NewChangesHandler(hub *realtime.Hub, log zerolog.Logger) *ChangesHandler {
	return &ChangesHandler{
		hub:       hub,
		keepalive: 25 * time.Second,
		log:       log.With().Str("handler", "changes").Logger(),
	}
}

// Stream handles GET /v1/changes?tables=a,b as server-sent events. Each
// event names a table and operation; clients refetch what they show.
func (h *ChangesHandler) Stream(c *gin.Context) {
	if h.hub == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "change feed disabled"})
		return
	}

	var tables []string
	if v := c.Query("tables"); v != "" {
		tables = strings.Split(v, ",")
	}

	sub := h.hub.Subscribe(tables)
	defer h.hub.Unsubscribe(sub)

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")

	ticker := time.NewTicker(h.keepalive)
	defer ticker.Stop()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case ev, ok := <-sub.C:
			if !ok {
				return false
			}
			c.SSEvent("change", ev)
			return true
		case <-ticker.C:
			c.SSEvent("ping", time.Now().UTC().Format(time.RFC3339))
			return true
		}
	})

	h.log.Debug().Strs("tables", tables).Msg("Change stream closed")
}
