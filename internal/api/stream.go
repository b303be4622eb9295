package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"github.com/dyluth/warren/pkg/board"
)

const heartbeatInterval = 15 * time.Second

// streamEvents forwards board events to the client as server-sent events.
// Delivery is best-effort: a client that connects late or reads slowly
// misses events and is expected to re-fetch state.
func streamEvents(client *board.Client, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		sub, err := client.SubscribeEvents(ctx)
		if err != nil {
			c.Logger().Error(err)
			return c.JSON(http.StatusInternalServerError, errorResponse{Message: "failed to subscribe to board events"})
		}
		defer sub.Close()

		c.Response().Header().Set(echo.HeaderContentType, "text/event-stream")
		c.Response().Header().Set(echo.HeaderCacheControl, "no-cache")
		c.Response().Header().Set(echo.HeaderConnection, "keep-alive")
		c.Response().Header().Set("X-Accel-Buffering", "no")
		c.Response().WriteHeader(http.StatusOK)

		flusher, ok := c.Response().Writer.(http.Flusher)
		if !ok {
			return c.String(http.StatusInternalServerError, "stream unsupported")
		}

		// Initial comment forces the headers out to the client.
		if _, err := fmt.Fprint(c.Response(), ": connected\n\n"); err != nil {
			return nil
		}
		flusher.Flush()

		heartbeat := time.NewTicker(heartbeatInterval)
		defer heartbeat.Stop()

		for {
			select {
			case <-ctx.Done():
				return nil
			case event, ok := <-sub.Events():
				if !ok {
					return nil
				}
				if _, err := fmt.Fprintf(c.Response(), "event: %s\ndata: %s\n\n", event.Name, event.Payload); err != nil {
					return nil
				}
				flusher.Flush()
			case err, ok := <-sub.Errors():
				if !ok {
					return nil
				}
				logger.WithError(err).Warn("dropped malformed board event")
			case <-heartbeat.C:
				if _, err := fmt.Fprint(c.Response(), ": ping\n\n"); err != nil {
					return nil
				}
				flusher.Flush()
			}
		}
	}
}
