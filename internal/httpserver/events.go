package httpserver

import (
	"time"

	"github.com/gin-gonic/gin"

	"raices-verdes/internal/domain"
)

// cartEvents streams the actor's cart change feed as Server-Sent Events. A
// "ready" event is sent once the subscription is registered. The stream ends
// when the client disconnects, the feed closes, or the session signs out.
func (h *handlers) cartEvents(c *gin.Context) {
	actor, ok := requireSession(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	feed, cancel, err := h.deps.Cart.Subscribe(ctx, actor)
	if err != nil {
		writeError(c, err)
		return
	}
	defer cancel()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	c.SSEvent("ready", gin.H{"key": actor.ID})
	c.Writer.Flush()

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			c.SSEvent("ping", time.Now().UTC().Format(time.RFC3339))
			c.Writer.Flush()
		case ev, open := <-feed:
			if !open {
				return
			}
			c.SSEvent("change", ev)
			c.Writer.Flush()
			if ev.Kind == domain.ChangeSignOut {
				h.logger.Debug().Str("client_id", actor.ID).Msg("event stream closed by signout")
				return
			}
		}
	}
}
