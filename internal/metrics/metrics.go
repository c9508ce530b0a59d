package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tlecat_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"path", "method", "code"},
	)

	httpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tlecat_http_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)

	recordsParsedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tlecat_records_parsed_total",
			Help: "Element records parsed into run catalogs.",
		},
	)

	recordsMalformedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tlecat_records_malformed_total",
			Help: "Element triplets rejected as malformed.",
		},
	)

	chunksPlannedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tlecat_chunks_planned_total",
			Help: "Query windows produced by the date-range chunker.",
		},
		[]string{"regime"},
	)

	chunkFetchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tlecat_chunk_fetches_total",
			Help: "Chunk retrieval attempts by outcome.",
		},
		[]string{"outcome"},
	)

	chunkFetchDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tlecat_chunk_fetch_duration_seconds",
			Help:    "Duration of successful chunk retrievals in seconds.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	epochSelectionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tlecat_epoch_selections_total",
			Help: "Epoch catalogs built from a run catalog.",
		},
	)

	catalogObjects = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tlecat_catalog_objects",
			Help: "Objects in the most recently built or loaded run catalog.",
		},
	)

	catalogRecords = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tlecat_catalog_records",
			Help: "Records in the most recently built or loaded run catalog.",
		},
	)

	catalogReloadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tlecat_catalog_reloads_total",
			Help: "Run catalog reloads triggered by file changes, by outcome.",
		},
		[]string{"outcome"},
	)

	streamConnectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tlecat_stream_connections_total",
			Help: "Catalog event stream connects and disconnects.",
		},
		[]string{"event"},
	)

	streamsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tlecat_streams_active",
			Help: "Open catalog event streams.",
		},
	)

	streamMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tlecat_stream_messages_total",
			Help: "Messages written to catalog event streams, by outcome.",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpDurationSeconds,
		recordsParsedTotal,
		recordsMalformedTotal,
		chunksPlannedTotal,
		chunkFetchesTotal,
		chunkFetchDurationSeconds,
		epochSelectionsTotal,
		catalogObjects,
		catalogRecords,
		catalogReloadsTotal,
		streamConnectionsTotal,
		streamsActive,
		streamMessagesTotal,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// AddRecordsParsed counts records accepted by the organizer.
func AddRecordsParsed(n int) { recordsParsedTotal.Add(float64(n)) }

// IncRecordsMalformed counts one rejected triplet.
func IncRecordsMalformed() { recordsMalformedTotal.Inc() }

// AddChunksPlanned counts query windows planned for a regime.
func AddChunksPlanned(regime string, n int) {
	chunksPlannedTotal.WithLabelValues(regime).Add(float64(n))
}

// RecordChunkFetch records one retrieval attempt. Duration is observed only
// for successes.
func RecordChunkFetch(d time.Duration, err error) {
	if err != nil {
		chunkFetchesTotal.WithLabelValues("error").Inc()
		return
	}
	chunkFetchesTotal.WithLabelValues("ok").Inc()
	chunkFetchDurationSeconds.Observe(d.Seconds())
}

// IncEpochSelections counts one epoch catalog build.
func IncEpochSelections() { epochSelectionsTotal.Inc() }

// SetCatalogSize publishes the size of the current run catalog.
func SetCatalogSize(objects, records int) {
	catalogObjects.Set(float64(objects))
	catalogRecords.Set(float64(records))
}

// IncCatalogReload counts a reload attempt.
func IncCatalogReload(err error) {
	if err != nil {
		catalogReloadsTotal.WithLabelValues("error").Inc()
		return
	}
	catalogReloadsTotal.WithLabelValues("ok").Inc()
}

// StreamConnected tracks a new event stream.
func StreamConnected() {
	streamConnectionsTotal.WithLabelValues("connect").Inc()
	streamsActive.Inc()
}

// StreamDisconnected tracks a closed event stream.
func StreamDisconnected() {
	streamConnectionsTotal.WithLabelValues("disconnect").Inc()
	streamsActive.Dec()
}

// IncStreamRejected counts a stream refused by the per-client limit.
func IncStreamRejected() {
	streamConnectionsTotal.WithLabelValues("rejected").Inc()
}

// RecordStreamMessage counts one stream write.
func RecordStreamMessage(err error) {
	if err != nil {
		streamMessagesTotal.WithLabelValues("error").Inc()
		return
	}
	streamMessagesTotal.WithLabelValues("ok").Inc()
}

// normalizeRoute collapses parameterised paths so label cardinality stays
// bounded regardless of how many object ids are requested.
func normalizeRoute(path string) string {
	switch path {
	case "/", "/healthz", "/readyz", "/metrics", "/api/v1/catalog", "/api/v1/epoch", "/api/v1/events":
		return path
	}
	if rest, ok := strings.CutPrefix(path, "/api/v1/objects/"); ok && rest != "" && !strings.Contains(rest, "/") {
		return "/api/v1/objects/{norad_id}"
	}
	return "other"
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Flush lets streaming handlers flush through the wrapper.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Middleware records request count and duration for each request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		code := strconv.Itoa(rw.statusCode)
		route := normalizeRoute(r.URL.Path)

		httpRequestsTotal.WithLabelValues(route, r.Method, code).Inc()
		httpDurationSeconds.WithLabelValues(route, r.Method).Observe(duration)
	})
}
