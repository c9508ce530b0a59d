package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/star/tlecat/internal/catalog"
	"github.com/star/tlecat/internal/config"
	"github.com/star/tlecat/internal/orbit"
	"github.com/star/tlecat/internal/pipeline"
	"github.com/star/tlecat/internal/regime"
	"github.com/star/tlecat/internal/tle"
)

type catalogSummary struct {
	Source     string  `json:"source"`
	LoadedAt   string  `json:"loaded_at"`
	AgeSeconds float64 `json:"age_seconds"`
	Objects    int     `json:"objects"`
	Records    int     `json:"records"`
	IDs        []int   `json:"norad_ids"`
}

type recordPayload struct {
	Name           string  `json:"name,omitempty"`
	EpochYearDay   float64 `json:"epoch_year_day"`
	Epoch          string  `json:"epoch,omitempty"`
	InclinationDeg float64 `json:"inclination_deg"`
	Eccentricity   float64 `json:"eccentricity"`
	MeanMotion     float64 `json:"mean_motion_rev_per_day"`
	Line1          string  `json:"line1"`
	Line2          string  `json:"line2"`
}

type geometryPayload struct {
	Epoch           string  `json:"epoch"`
	PeriodMinutes   float64 `json:"period_minutes"`
	SemiMajorAxisKm float64 `json:"semi_major_axis_km"`
	PerigeeAltKm    float64 `json:"perigee_alt_km"`
	ApogeeAltKm     float64 `json:"apogee_alt_km"`
	AltitudeKm      float64 `json:"altitude_km"`
	LatDeg          float64 `json:"lat_deg"`
	LonDeg          float64 `json:"lon_deg"`
	SpeedKmS        float64 `json:"speed_km_s"`
}

// objectResponse carries either Geometry or GeometryError, never both.
type objectResponse struct {
	NoradID       int              `json:"norad_id"`
	Records       []recordPayload  `json:"records"`
	Regimes       []regime.Kind    `json:"regimes"`
	Geometry      *geometryPayload `json:"geometry,omitempty"`
	GeometryError string           `json:"geometry_error,omitempty"`
}

// catalogHandler serves GET /api/v1/catalog.
func catalogHandler(store *catalog.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, ok := loaded(w, store)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, catalogSummary{
			Source:     snap.Source,
			LoadedAt:   snap.LoadedAt.UTC().Format(time.RFC3339),
			AgeSeconds: store.AgeSeconds(),
			Objects:    snap.Catalog.Len(),
			Records:    snap.Catalog.Records(),
			IDs:        snap.Catalog.IDs(),
		})
	}
}

// objectHandler serves GET /api/v1/objects/{norad_id}: the object's record
// history in arrival order plus geometry derived from its last record.
func objectHandler(store *catalog.Store, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.Atoi(r.PathValue("norad_id"))
		if err != nil || id <= 0 {
			writeError(w, http.StatusBadRequest, "invalid norad_id")
			return
		}
		snap, ok := loaded(w, store)
		if !ok {
			return
		}
		history, ok := snap.Catalog.History(id)
		if !ok {
			writeError(w, http.StatusNotFound, "object not in catalog")
			return
		}

		resp := objectResponse{NoradID: id, Records: make([]recordPayload, len(history))}
		for i, rec := range history {
			resp.Records[i] = toRecordPayload(rec)
		}

		last := history[len(history)-1]
		resp.Regimes = admittingRegimes(last)

		geo, err := orbit.Derive(last)
		if err != nil {
			logger.Warn("geometry derivation failed",
				"component", "api",
				"norad_id", id,
				"error", err,
			)
			resp.GeometryError = err.Error()
		} else {
			resp.Geometry = toGeometryPayload(geo)
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// epochHandler serves GET /api/v1/epoch?at=: the epoch catalog for the
// instant, in the persisted mapping form.
func epochHandler(store *catalog.Store, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		at := r.URL.Query().Get("at")
		if at == "" {
			writeError(w, http.StatusBadRequest, "missing at parameter")
			return
		}
		target, err := config.ParseInstant(at)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		snap, ok := loaded(w, store)
		if !ok {
			return
		}

		ec := pipeline.Epoch(snap.Catalog, target, logger)
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Target-Year-Day", strconv.FormatFloat(ec.TargetYearDay(), 'f', 8, 64))
		if err := catalog.WriteEpoch(w, ec, catalog.JSON); err != nil {
			logger.Warn("writing epoch catalog", "component", "api", "error", err)
		}
	}
}

// loaded returns the current snapshot or answers 503.
func loaded(w http.ResponseWriter, store *catalog.Store) (*catalog.Snapshot, bool) {
	snap := store.Get()
	if snap == nil || snap.Catalog == nil {
		writeError(w, http.StatusServiceUnavailable, "no catalog loaded")
		return nil, false
	}
	return snap, true
}

func admittingRegimes(rec tle.Record) []regime.Kind {
	kinds := []regime.Kind{}
	for _, k := range regime.Kinds() {
		if k == regime.ALL {
			continue
		}
		r, err := regime.Classify(string(k))
		if err == nil && r.Admits(rec) {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

func toRecordPayload(rec tle.Record) recordPayload {
	p := recordPayload{
		Name:           rec.Name,
		EpochYearDay:   rec.EpochYearDay,
		InclinationDeg: rec.InclinationDeg,
		Eccentricity:   rec.Eccentricity,
		MeanMotion:     rec.MeanMotionRevPerDay,
		Line1:          rec.Line1,
		Line2:          rec.Line2,
	}
	if t, err := rec.EpochTime(); err == nil {
		p.Epoch = t.Format(time.RFC3339)
	}
	return p
}

func toGeometryPayload(g orbit.Geometry) *geometryPayload {
	return &geometryPayload{
		Epoch:           g.Epoch.UTC().Format(time.RFC3339),
		PeriodMinutes:   g.PeriodMinutes,
		SemiMajorAxisKm: g.SemiMajorAxisKm,
		PerigeeAltKm:    g.PerigeeAltKm,
		ApogeeAltKm:     g.ApogeeAltKm,
		AltitudeKm:      g.AtEpoch.AltitudeKm,
		LatDeg:          g.AtEpoch.LatDeg,
		LonDeg:          g.AtEpoch.LonDeg,
		SpeedKmS:        g.AtEpoch.SpeedKmS,
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
