// Package health serves liveness and readiness probes.
package health

import (
	"net/http"

	"github.com/star/tlecat/internal/catalog"
)

// Healthz returns 200 "ok\n" unconditionally.
func Healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok\n"))
}

// Readyz returns 200 "ready\n" once store holds a run catalog and 503
// "no catalog loaded\n" before that.
func Readyz(store *catalog.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		if snap := store.Get(); snap == nil || snap.Catalog == nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("no catalog loaded\n"))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ready\n"))
	}
}
