package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"strings"

	"verenigingsloket.org/internal/auth"
	"verenigingsloket.org/internal/job"
	"verenigingsloket.org/internal/obs"
	"verenigingsloket.org/internal/stream"
)

// ReadyProbe checks downstream readiness (DB ping when configured).
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// Options toggles the optional parts of the HTTP surface.
type Options struct {
	Version string
	// DebugEndpoints enables the gate-bypassing job endpoint. Never
	// expose it to the internet.
	DebugEndpoints bool
}

// API is the HTTP layer.
type API struct {
	mux        *http.ServeMux
	readyProbe ReadyProbe
	version    string

	gate      *auth.Gate
	runner    *job.Runner
	assembler job.Assembler
	events    *stream.Stream
	exports   *exportRefs
}

func New(gate *auth.Gate, runner *job.Runner, assembler job.Assembler, events *stream.Stream, rp ReadyProbe, opts Options) *API {
	a := &API{
		mux:        http.NewServeMux(),
		readyProbe: rp,
		version:    opts.Version,
		gate:       gate,
		runner:     runner,
		assembler:  assembler,
		events:     events,
		exports:    newExportRefs(),
	}

	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.Handle("/metrics", obs.Handler())

	a.mux.HandleFunc("/sensitive-data-jobs", a.handleJobsCollection)
	a.mux.HandleFunc("/sensitive-data-jobs/", a.handleJobResource)

	a.mux.HandleFunc("/v1/exports", a.handleExportsCollection)
	a.mux.HandleFunc("/v1/exports/download", a.handleExportDownload)
	a.mux.HandleFunc("/v1/jobs/events", a.Stream)

	if opts.DebugEndpoints {
		a.mux.HandleFunc("/jobs", a.handleDebugJobs)
	}

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler returns the wrapped handler for the server.
func (a *API) Handler() http.Handler {
	h := http.Handler(a.mux)
	h = MaxBodyBytes(h, 1<<20)
	h = SecurityHeaders(h)
	h = RateLimit(h, 20, 10)
	h = Logging(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "verenigingsloket-export",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"error": msg,
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}
