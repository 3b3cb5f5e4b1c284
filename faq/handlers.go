package faq

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hazyhaar/vraagbaak/kit"
)

// Routes returns the HTTP surface of the service. Admin routes require
// the bearer token; an empty token disables them entirely.
func (s *Service) Routes(adminToken string) chi.Router {
	r := chi.NewRouter()
	r.Use(s.requestLogger)

	r.Get("/api/faq/{context}", s.handleItems)
	r.Post("/api/faq/hit", s.handleHit)

	if adminToken != "" {
		r.Group(func(r chi.Router) {
			r.Use(requireBearer(adminToken))
			r.Post("/api/admin/contexts", s.handleCreateContext)
			r.Get("/api/admin/contexts", s.handleListContexts)
			r.Post("/api/admin/contexts/{context}/sources", s.handleAddSource)
			r.Get("/api/admin/contexts/{context}/sources", s.handleListSources)
			r.Delete("/api/admin/contexts/{context}/sources/{sourceID}", s.handleDeleteSource)
			r.Post("/api/admin/contexts/{context}/extract", s.handleExtract)
			r.Get("/api/admin/contexts/{context}/stats", s.handleStats)
		})
	}

	return r
}

// requestLogger tags each request with an ID and logs its outcome.
func (s *Service) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id := s.newID()
		ctx := kit.WithRequestID(r.Context(), id)
		next.ServeHTTP(w, r.WithContext(ctx))
		s.logger.Debug("http request",
			"request_id", id,
			"method", r.Method,
			"path", r.URL.Path,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

// requireBearer guards admin routes with a constant-time token check.
func requireBearer(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			got, ok := strings.CutPrefix(auth, "Bearer ")
			if !ok || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				jsonErr(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Service) handleItems(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "context")
	query := r.URL.Query().Get("q")

	if r.URL.Query().Get("crawl") == "1" {
		if _, err := s.RunExtraction(r.Context(), slug); err != nil {
			if errors.Is(err, ErrContextNotFound) {
				jsonErr(w, err.Error(), http.StatusNotFound)
				return
			}
			// Serve what the store has; the run failure is logged.
			s.logger.Warn("crawl on read failed", "slug", slug, "error", err)
		}
	}

	result, err := s.Items(r.Context(), slug, query)
	if err != nil {
		jsonErr(w, err.Error(), errStatus(err))
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Service) handleHit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 32*1024)

	var req struct {
		Context string `json:"context"`
		Type    string `json:"type"`
		Query   string `json:"query"`
		ItemID  string `json:"item_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonErr(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Context == "" {
		jsonErr(w, "context is required", http.StatusBadRequest)
		return
	}

	if err := s.RecordHit(r.Context(), req.Context, req.Type, req.Query, req.ItemID); err != nil {
		jsonErr(w, err.Error(), errStatus(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Service) handleCreateContext(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 32*1024)

	var req struct {
		Slug string `json:"slug"`
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonErr(w, "invalid request body", http.StatusBadRequest)
		return
	}

	c, err := s.CreateContext(r.Context(), req.Slug, req.Name)
	if err != nil {
		jsonErr(w, err.Error(), errStatus(err))
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *Service) handleListContexts(w http.ResponseWriter, r *http.Request) {
	contexts, err := s.ListContexts(r.Context())
	if err != nil {
		jsonErr(w, "internal error", http.StatusInternalServerError)
		return
	}
	if contexts == nil {
		contexts = []*Context{}
	}
	writeJSON(w, http.StatusOK, contexts)
}

func (s *Service) handleAddSource(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 32*1024)
	slug := chi.URLParam(r, "context")

	var req struct {
		Name string `json:"name"`
		URL  string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonErr(w, "invalid request body", http.StatusBadRequest)
		return
	}

	src, err := s.AddSource(r.Context(), slug, req.Name, req.URL)
	if err != nil {
		jsonErr(w, err.Error(), errStatus(err))
		return
	}
	writeJSON(w, http.StatusCreated, src)
}

func (s *Service) handleListSources(w http.ResponseWriter, r *http.Request) {
	sources, err := s.ListSources(r.Context(), chi.URLParam(r, "context"))
	if err != nil {
		jsonErr(w, err.Error(), errStatus(err))
		return
	}
	if sources == nil {
		sources = []*Source{}
	}
	writeJSON(w, http.StatusOK, sources)
}

func (s *Service) handleDeleteSource(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "context")
	sourceID := chi.URLParam(r, "sourceID")

	if err := s.DeleteSource(r.Context(), slug, sourceID); err != nil {
		jsonErr(w, err.Error(), errStatus(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Service) handleExtract(w http.ResponseWriter, r *http.Request) {
	result, err := s.RunExtraction(r.Context(), chi.URLParam(r, "context"))
	if err != nil {
		jsonErr(w, err.Error(), errStatus(err))
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Service) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.Stats(r.Context(), chi.URLParam(r, "context"))
	if err != nil {
		jsonErr(w, err.Error(), errStatus(err))
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// errStatus maps service sentinels to HTTP status codes.
func errStatus(err error) int {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrContextNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicateSource):
		return http.StatusConflict
	case errors.Is(err, ErrQuotaExceeded):
		return http.StatusTooManyRequests
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonErr(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
