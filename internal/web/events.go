package web

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

// streamEvents relays bus events as server-sent events until the client
// goes away. A "ready" event is sent once the subscription is live.
func (s *Server) streamEvents(c *gin.Context) {
	if s.cfg.Bus == nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "event stream disabled"})
		return
	}
	ch, cancel := s.cfg.Bus.Subscribe()
	defer cancel()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent("ready", gin.H{"request_id": c.GetString("request_id")})
	c.Writer.Flush()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case ev, open := <-ch:
			if !open {
				return false
			}
			c.SSEvent(string(ev.Topic), ev)
			return true
		}
	})
}
