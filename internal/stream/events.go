// Package stream publishes run catalog changes to HTTP clients as
// Server-Sent Events. Clients connect via GET /api/v1/events and receive a
// catalog message immediately and again every time the store is reloaded.
//
// SSE message format:
//
//	data: {"type":"catalog","source":"run_cat.json","loaded_at":"...","objects":3,"records":7}\n\n
//
// Keep-alive comments (:\n\n) are sent every KeepaliveInterval. Before a
// catalog has been loaded the first message is {"type":"waiting"}.
package stream

import (
	"encoding/json"
	"log/slog"
	"math/rand"
	"net/http"
	"time"

	"github.com/star/tlecat/internal/catalog"
	"github.com/star/tlecat/internal/httputil"
	"github.com/star/tlecat/internal/metrics"
)

// Config holds streaming limits.
type Config struct {
	MaxConcurrentPerIP int           // Max concurrent streams per client (default: 10).
	KeepaliveInterval  time.Duration // Keep-alive ping interval (default: 30s).
	TrustProxy         bool          // Identify clients by X-Forwarded-For / X-Real-IP.
}

// DefaultConfig returns the limits used by tlecat serve.
func DefaultConfig() Config {
	return Config{MaxConcurrentPerIP: 10, KeepaliveInterval: 30 * time.Second}
}

// Handler serves the catalog event stream.
type Handler struct {
	store   *catalog.Store
	config  Config
	limiter *streamLimiter
	logger  *slog.Logger
}

// NewHandler creates a new streaming handler. Zero config fields take their
// defaults.
func NewHandler(store *catalog.Store, config Config, logger *slog.Logger) *Handler {
	def := DefaultConfig()
	if config.MaxConcurrentPerIP <= 0 {
		config.MaxConcurrentPerIP = def.MaxConcurrentPerIP
	}
	if config.KeepaliveInterval <= 0 {
		config.KeepaliveInterval = def.KeepaliveInterval
	}
	return &Handler{
		store:   store,
		config:  config,
		limiter: newStreamLimiter(config.MaxConcurrentPerIP),
		logger:  logger,
	}
}

// HandleEvents serves GET /api/v1/events.
func (h *Handler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	ip := httputil.ClientIP(r, h.config.TrustProxy)
	if !h.limiter.acquire(ip) {
		metrics.IncStreamRejected()
		h.logger.Warn("stream limit exceeded",
			"component", "stream",
			"remote_ip", ip,
			"current_count", h.limiter.count(ip),
		)
		writeError(w, http.StatusTooManyRequests, "too many concurrent streams", "30")
		return
	}
	defer h.limiter.release(ip)

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported", "")
		return
	}

	metrics.StreamConnected()
	start := time.Now()
	h.logger.Info("stream connected",
		"component", "stream",
		"remote_ip", ip,
		"user_agent", r.Header.Get("User-Agent"),
	)
	defer func() {
		metrics.StreamDisconnected()
		h.logger.Info("stream disconnected",
			"component", "stream",
			"remote_ip", ip,
			"duration_seconds", int(time.Since(start).Seconds()),
		)
	}()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	// Long-lived: lift the server's WriteTimeout for this connection.
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		h.logger.Debug("could not clear write deadline", "component", "stream", "error", err)
	}

	c := &client{w: w, flusher: flusher, rc: rc, logger: h.logger}

	// Jittered reconnect delay (3-7s) spreads reconnects after a restart.
	if err := c.sendRetry(3000 + rand.Intn(4000)); err != nil {
		h.logger.Warn("stream send error", "component", "stream", "remote_ip", ip, "error", err)
		return
	}

	// Take the wake-up channel before reading the snapshot so a Set between
	// the two is not missed.
	changed := h.store.Changed()
	if err := c.sendJSON(snapshotMessage(h.store.Get())); err != nil {
		h.logger.Warn("stream send error", "component", "stream", "remote_ip", ip, "error", err)
		return
	}

	keepalive := time.NewTicker(h.config.KeepaliveInterval)
	defer keepalive.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return

		case <-changed:
			changed = h.store.Changed()
			if err := c.sendJSON(snapshotMessage(h.store.Get())); err != nil {
				h.logger.Warn("stream send error", "component", "stream", "remote_ip", ip, "error", err)
				return
			}
			keepalive.Reset(h.config.KeepaliveInterval)

		case <-keepalive.C:
			if err := c.sendKeepalive(); err != nil {
				h.logger.Warn("stream keepalive error", "component", "stream", "remote_ip", ip, "error", err)
				return
			}
		}
	}
}

type catalogMessage struct {
	Type     string `json:"type"`
	Source   string `json:"source,omitempty"`
	LoadedAt string `json:"loaded_at,omitempty"`
	Objects  int    `json:"objects"`
	Records  int    `json:"records"`
}

func snapshotMessage(snap *catalog.Snapshot) catalogMessage {
	if snap == nil || snap.Catalog == nil {
		return catalogMessage{Type: "waiting"}
	}
	return catalogMessage{
		Type:     "catalog",
		Source:   snap.Source,
		LoadedAt: snap.LoadedAt.UTC().Format(time.RFC3339),
		Objects:  snap.Catalog.Len(),
		Records:  snap.Catalog.Records(),
	}
}

func writeError(w http.ResponseWriter, code int, msg, retryAfter string) {
	w.Header().Set("Content-Type", "application/json")
	if retryAfter != "" {
		w.Header().Set("Retry-After", retryAfter)
	}
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
