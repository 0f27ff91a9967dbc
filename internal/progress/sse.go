package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"frameworks/herald/pkg/logging"
)

// Source yields events until io.EOF.
type Source interface {
	Next(ctx context.Context) (Event, error)
}

// StreamingFailed is sent when the transport breaks mid-stream.
const StreamingFailed = "Streaming failed"

// WriteSSE writes initial then every event from src as SSE data frames until
// a terminal event, client disconnect or transport failure.
func WriteSSE(c *gin.Context, src Source, logger logging.Logger, initial ...Event) {
	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming unavailable"})
		return
	}
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	sseStreams.Inc()
	defer sseStreams.Dec()

	send := func(ev Event) error {
		data, err := json.Marshal(ev)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(c.Writer, "data: %s\n\n", data); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	for _, ev := range initial {
		if err := send(ev); err != nil {
			return
		}
	}

	ctx := c.Request.Context()
	for {
		ev, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.WithError(err).Warn("Progress stream failed")
			_ = send(Error(StreamingFailed))
			return
		}
		if err := send(ev); err != nil {
			return
		}
		if ev.Terminal() {
			return
		}
	}
}
