// Package handler serves heimdall's HTTP API: alert history, on-demand error
// extraction from execution trees, and manual poll cycles.
package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"heimdall/config"
	"heimdall/errtree"
	"heimdall/model"
	"heimdall/platform"
	"heimdall/sensor"
	"heimdall/store"
)

// Platform is the slice of the platform client the handlers use.
type Platform interface {
	Execution(ctx context.Context, id string) (*model.Execution, error)
	Healthy(ctx context.Context) error
}

type Handler struct {
	db       *store.DB
	platform Platform
	sensor   *sensor.Sensor
	cfg      *config.Config
	profiles map[string]errtree.Options
}

func New(db *store.DB, p Platform, s *sensor.Sensor, cfg *config.Config, profiles map[string]errtree.Options) *Handler {
	if profiles == nil {
		profiles = map[string]errtree.Options{}
	}
	return &Handler{db: db, platform: p, sensor: s, cfg: cfg, profiles: profiles}
}

type componentHealth struct {
	Status  string `json:"status"`
	Details string `json:"details,omitempty"`
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	checks := map[string]componentHealth{
		"database": h.checkDatabase(r.Context()),
		"platform": h.checkPlatform(r.Context()),
	}

	status := "ok"
	for _, c := range checks {
		if c.Status == "error" {
			status = "degraded"
		}
	}
	writeJSON(w, map[string]any{"status": status, "checks": checks})
}

func (h *Handler) checkDatabase(ctx context.Context) componentHealth {
	if h.db == nil {
		return componentHealth{Status: "unknown", Details: "not configured"}
	}
	if err := h.db.Healthy(ctx); err != nil {
		return componentHealth{Status: "error", Details: err.Error()}
	}
	return componentHealth{Status: "ok"}
}

func (h *Handler) checkPlatform(ctx context.Context) componentHealth {
	if h.platform == nil {
		return componentHealth{Status: "unknown", Details: "not configured"}
	}
	if err := h.platform.Healthy(ctx); err != nil {
		return componentHealth{Status: "error", Details: err.Error()}
	}
	return componentHealth{Status: "ok"}
}

func (h *Handler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	if h.db == nil {
		writeError(w, http.StatusServiceUnavailable, "history store not configured")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	alerts, err := h.db.ListAlerts(r.Context(), r.URL.Query().Get("rule"), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if alerts == nil {
		alerts = []model.AlertRecord{}
	}
	writeJSON(w, alerts)
}

// ExecutionError extracts and formats the actionable failure of one
// execution tree. Rendering is controlled by ?profile=<name> or by ?html=.
func (h *Handler) ExecutionError(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	exec, ok := h.fetchExecution(w, r, id)
	if !ok {
		return
	}

	opts := h.resolveOptions(r)
	walker := errtree.NewWalker(h.platform, opts.IgnoredTasks)
	res, err := walker.Walk(r.Context(), exec)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	writeJSON(w, map[string]any{
		"executionId": id,
		"failed":      res.Failed(),
		"formatted":   errtree.Format(res, opts),
	})
}

func (h *Handler) ExecutionTree(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	exec, ok := h.fetchExecution(w, r, id)
	if !ok {
		return
	}

	rows, err := errtree.BuildTree(r.Context(), h.platform, exec)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, rows)
}

func (h *Handler) ExecutionStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	exec, err := h.platform.Execution(r.Context(), id)
	if err != nil {
		if platform.IsNotFound(err) {
			writeJSON(w, errtree.Summary{
				ExecutionID: id,
				Status:      "unknown",
				Comments:    "Could not find execution in database",
			})
			return
		}
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	opts := h.resolveOptions(r)
	walker := errtree.NewWalker(h.platform, opts.IgnoredTasks)
	summary, err := walker.Summarize(r.Context(), exec, opts)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, summary)
}

// RunPoll runs one reconciliation cycle immediately.
func (h *Handler) RunPoll(w http.ResponseWriter, r *http.Request) {
	if h.sensor == nil {
		writeError(w, http.StatusServiceUnavailable, "sensor not configured")
		return
	}
	if err := h.sensor.Poll(r.Context()); err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, map[string]string{"status": "completed"})
}

func (h *Handler) fetchExecution(w http.ResponseWriter, r *http.Request, id string) (*model.Execution, bool) {
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing execution id")
		return nil, false
	}
	exec, err := h.platform.Execution(r.Context(), id)
	if err != nil {
		if platform.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "execution not found")
			return nil, false
		}
		writeError(w, http.StatusBadGateway, err.Error())
		return nil, false
	}
	return exec, true
}

// resolveOptions picks formatter options for a request: a named profile when
// ?profile= matches one, otherwise the service defaults with ?html= applied.
func (h *Handler) resolveOptions(r *http.Request) errtree.Options {
	if name := r.URL.Query().Get("profile"); name != "" {
		if opts, ok := h.profiles[name]; ok {
			return opts
		}
	}
	html := r.URL.Query().Get("html")
	return errtree.Options{
		HTMLTags:     html == "true" || html == "1",
		IgnoredTasks: h.cfg.IgnoredTasks,
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
