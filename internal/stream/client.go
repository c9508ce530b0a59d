package stream

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/star/tlecat/internal/metrics"
)

const writeTimeout = 30 * time.Second

// client wraps a single SSE connection's writes.
type client struct {
	w       http.ResponseWriter
	flusher http.Flusher
	rc      *http.ResponseController
	logger  *slog.Logger
}

// sendJSON writes v as one "data:" event.
func (c *client) sendJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("json marshal: %w", err)
	}
	err = c.write(fmt.Sprintf("data: %s\n\n", data))
	metrics.RecordStreamMessage(err)
	return err
}

// sendRetry tells the client how long to wait before reconnecting.
func (c *client) sendRetry(ms int) error {
	return c.write(fmt.Sprintf("retry: %d\n\n", ms))
}

// sendKeepalive writes an SSE comment line.
func (c *client) sendKeepalive() error {
	return c.write(":\n\n")
}

func (c *client) write(s string) error {
	// The deadline moves forward per write so only a stalled client times out.
	if err := c.rc.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		c.logger.Debug("could not set write deadline", "component", "stream", "error", err)
	}
	if _, err := fmt.Fprint(c.w, s); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	c.flusher.Flush()
	return nil
}
