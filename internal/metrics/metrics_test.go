package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNormalizeRoute(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		// Known exact routes.
		{"/healthz", "/healthz"},
		{"/readyz", "/readyz"},
		{"/metrics", "/metrics"},
		{"/", "/"},
		{"/api/v1/catalog", "/api/v1/catalog"},
		{"/api/v1/epoch", "/api/v1/epoch"},
		{"/api/v1/events", "/api/v1/events"},

		// Parameterized object routes collapse to one label.
		{"/api/v1/objects/25544", "/api/v1/objects/{norad_id}"},
		{"/api/v1/objects/44713", "/api/v1/objects/{norad_id}"},
		{"/api/v1/objects/1", "/api/v1/objects/{norad_id}"},

		// Unknown/bot paths collapse to "other".
		{"/api/v1/objects/", "other"},
		{"/api/v1/objects/1/extra", "other"},
		{"/wp-admin", "other"},
		{"/robots.txt", "other"},
		{"/api/v2/something", "other"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got := normalizeRoute(tt.path)
			if got != tt.want {
				t.Errorf("normalizeRoute(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

// TestMetricsCardinality verifies that 100 unique object ids produce
// exactly 1 distinct path label, not 100.
func TestMetricsCardinality(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		label := normalizeRoute("/api/v1/objects/" + string(rune('0'+i%10)) + string(rune('0'+i/10)))
		seen[label] = true
	}
	if len(seen) != 1 {
		t.Errorf("expected 1 unique label for parameterized paths, got %d: %v", len(seen), seen)
	}
}

func TestRecordChunkFetch(t *testing.T) {
	okBefore := testutil.ToFloat64(chunkFetchesTotal.WithLabelValues("ok"))
	errBefore := testutil.ToFloat64(chunkFetchesTotal.WithLabelValues("error"))

	RecordChunkFetch(time.Second, nil)
	RecordChunkFetch(0, errors.New("boom"))
	RecordChunkFetch(0, errors.New("boom"))

	if got := testutil.ToFloat64(chunkFetchesTotal.WithLabelValues("ok")) - okBefore; got != 1 {
		t.Errorf("ok fetches = %v, want 1", got)
	}
	if got := testutil.ToFloat64(chunkFetchesTotal.WithLabelValues("error")) - errBefore; got != 2 {
		t.Errorf("error fetches = %v, want 2", got)
	}
}

func TestSetCatalogSize(t *testing.T) {
	SetCatalogSize(3, 7)
	if got := testutil.ToFloat64(catalogObjects); got != 3 {
		t.Errorf("catalog objects = %v, want 3", got)
	}
	if got := testutil.ToFloat64(catalogRecords); got != 7 {
		t.Errorf("catalog records = %v, want 7", got)
	}
}

func TestMiddlewareRecordsNormalizedRoute(t *testing.T) {
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("/api/v1/objects/{norad_id}", "GET", "404"))
	req := httptest.NewRequest(http.MethodGet, "/api/v1/objects/99999", nil)
	h.ServeHTTP(httptest.NewRecorder(), req)

	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("/api/v1/objects/{norad_id}", "GET", "404"))
	if after-before != 1 {
		t.Errorf("request counter delta = %v, want 1", after-before)
	}
}

func TestStreamGauges(t *testing.T) {
	before := testutil.ToFloat64(streamsActive)
	connects := testutil.ToFloat64(streamConnectionsTotal.WithLabelValues("connect"))

	StreamConnected()
	StreamConnected()
	StreamDisconnected()

	if got := testutil.ToFloat64(streamsActive) - before; got != 1 {
		t.Errorf("active streams delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(streamConnectionsTotal.WithLabelValues("connect")) - connects; got != 2 {
		t.Errorf("connects delta = %v, want 2", got)
	}
}

func TestMiddlewarePassesFlush(t *testing.T) {
	var flushed bool
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f, ok := w.(http.Flusher)
		if !ok {
			t.Fatal("wrapped writer does not implement http.Flusher")
		}
		f.Flush()
		flushed = true
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/events", nil))
	if !flushed || !rec.Flushed {
		t.Error("flush did not reach the underlying recorder")
	}
}
