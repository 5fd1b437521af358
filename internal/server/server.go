// Package server exposes the generated page and its JSON data over HTTP.
//
// Routes:
//
//	GET /health              → liveness probe
//	GET /                    → rendered index.html
//	GET /jobs.json           → full persisted document
//	GET /jobs_history.json   → history by date
//	GET /jobs_today.json     → today's list
//	GET /api/results         → per-source status of the last run
//	GET /api/jobs            → today's jobs, filtered by tag, source, q, az, new
package server

import (
	"encoding/json"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"pilotjobs/internal/model"
	"pilotjobs/internal/render"
	"pilotjobs/internal/store"
)

// Version is reported by /health.
const Version = "1.0.0"

// Handler holds shared dependencies.
type Handler struct {
	store *store.Store
}

// NewRouter returns the chi router serving files from st's directory.
func NewRouter(st *store.Store) http.Handler {
	h := &Handler{store: st}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", healthHandler)
	r.Get("/", h.serveFile(render.IndexFile, "text/html; charset=utf-8"))
	r.Get("/"+store.DocumentFile, h.serveFile(store.DocumentFile, "application/json"))
	r.Get("/"+store.HistoryFile, h.serveFile(store.HistoryFile, "application/json"))
	r.Get("/"+store.TodayFile, h.serveFile(store.TodayFile, "application/json"))

	r.Route("/api", func(r chi.Router) {
		r.Get("/results", h.handleResults)
		r.Get("/jobs", h.handleJobs)
	})
	return r
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "pilotjobs",
		"version": Version,
	})
}

func (h *Handler) serveFile(name, contentType string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := h.store.Path(name)
		if _, err := os.Stat(path); err != nil {
			jsonError(w, name+" not generated yet", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", contentType)
		http.ServeFile(w, r, path)
	}
}

// handleResults handles GET /api/results
func (h *Handler) handleResults(w http.ResponseWriter, _ *http.Request) {
	doc, err := h.store.Load()
	if err != nil {
		log.Printf("[server] load document: %v", err)
		jsonError(w, "document unreadable", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"run_id":     doc.RunID,
		"updated_at": doc.UpdatedAt,
		"results":    doc.Results,
	})
}

// handleJobs handles GET /api/jobs?tag=&source=&q=&az=&new=
func (h *Handler) handleJobs(w http.ResponseWriter, r *http.Request) {
	doc, err := h.store.Load()
	if err != nil {
		log.Printf("[server] load document: %v", err)
		jsonError(w, "document unreadable", http.StatusInternalServerError)
		return
	}

	f, err := parseFilter(r)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	jobs := make([]model.Job, 0, len(doc.Today))
	for _, j := range doc.Today {
		if f.match(j) {
			jobs = append(jobs, j)
		}
	}
	writeJSON(w, http.StatusOK, jobs)
}

type filter struct {
	tag, source, query string
	azOnly, newOnly    bool
}

func parseFilter(r *http.Request) (filter, error) {
	q := r.URL.Query()
	f := filter{
		tag:    q.Get("tag"),
		source: q.Get("source"),
		query:  strings.ToLower(strings.TrimSpace(q.Get("q"))),
	}
	var err error
	if v := q.Get("az"); v != "" {
		if f.azOnly, err = strconv.ParseBool(v); err != nil {
			return f, &paramError{name: "az", value: v}
		}
	}
	if v := q.Get("new"); v != "" {
		if f.newOnly, err = strconv.ParseBool(v); err != nil {
			return f, &paramError{name: "new", value: v}
		}
	}
	return f, nil
}

func (f filter) match(j model.Job) bool {
	if f.azOnly && !j.LocationMatch {
		return false
	}
	if f.newOnly && !j.New {
		return false
	}
	if f.tag != "" && !containsFold(j.Tags, f.tag) {
		return false
	}
	if f.source != "" {
		sources := j.Sources
		if len(sources) == 0 {
			sources = []string{j.Source}
		}
		if !containsFold(sources, f.source) {
			return false
		}
	}
	if f.query != "" {
		hay := strings.ToLower(j.Title + " " + j.Company + " " + j.Summary)
		if !strings.Contains(hay, f.query) {
			return false
		}
	}
	return true
}

func containsFold(list []string, want string) bool {
	for _, s := range list {
		if strings.EqualFold(s, want) {
			return true
		}
	}
	return false
}

type paramError struct {
	name, value string
}

func (e *paramError) Error() string {
	return "invalid " + e.name + " parameter: " + strconv.Quote(e.value)
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[server] encode response: %v", err)
	}
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}
