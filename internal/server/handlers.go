package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tableforge-labs/tableforge/internal/export"
	"github.com/tableforge-labs/tableforge/internal/join"
	"github.com/tableforge-labs/tableforge/internal/pipeline"
	"github.com/tableforge-labs/tableforge/internal/schema"
	"github.com/tableforge-labs/tableforge/pkg/table"
	"github.com/tableforge-labs/tableforge/pkg/transform"
)

// requestID tags every request with a generated id for log correlation.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// transformRequest is the ad-hoc run request: a full transform config plus
// the page to return.
type transformRequest struct {
	Config *transform.Config `json:"config"`
	Offset int               `json:"offset"`
	Limit  int               `json:"limit"`
}

func (s *Server) handleTransform(w http.ResponseWriter, r *http.Request) {
	var req transformRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, pipeline.Failure(err))
		return
	}
	if req.Config == nil {
		writeJSON(w, http.StatusBadRequest, pipeline.Envelope{Status: "error", Message: "config is required"})
		return
	}
	s.runAndWrite(w, r, req.Config, pipeline.Page{Offset: req.Offset, Limit: req.Limit})
}

func (s *Server) handleRunConfig(w http.ResponseWriter, r *http.Request) {
	cfg, ok := s.store.Get(chi.URLParam(r, "name"))
	if !ok {
		writeJSON(w, http.StatusNotFound, pipeline.Envelope{Status: "error", Message: "config not found"})
		return
	}
	page := pipeline.Page{
		Offset: queryInt(r, "offset", 0),
		Limit:  queryInt(r, "limit", 0),
	}
	s.runAndWrite(w, r, cfg, page)
}

func (s *Server) runAndWrite(w http.ResponseWriter, r *http.Request, cfg *transform.Config, page pipeline.Page) {
	res, err := s.runner.Run(r.Context(), cfg, page)
	if err != nil {
		s.logger.Warn("run failed", "config", cfg.Name, "error", err)
		writeJSON(w, statusFor(err), pipeline.Failure(err))
		return
	}
	writeJSON(w, http.StatusOK, pipeline.Success(res))
}

func (s *Server) handleListConfigs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"configs": s.store.Names()})
}

func (s *Server) handleDescribeConfig(w http.ResponseWriter, r *http.Request) {
	cfg, ok := s.store.Get(chi.URLParam(r, "name"))
	if !ok {
		writeJSON(w, http.StatusNotFound, pipeline.Envelope{Status: "error", Message: "config not found"})
		return
	}
	artifact, err := export.Describe(r.Context(), s.resolver, cfg)
	if err != nil {
		writeJSON(w, statusFor(err), pipeline.Failure(err))
		return
	}
	var buf bytes.Buffer
	if err := artifact.WriteYAML(&buf); err != nil {
		writeJSON(w, http.StatusInternalServerError, pipeline.Failure(err))
		return
	}
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleValidateConfig(w http.ResponseWriter, r *http.Request) {
	cfg, ok := s.store.Get(chi.URLParam(r, "name"))
	if !ok {
		writeJSON(w, http.StatusNotFound, pipeline.Envelope{Status: "error", Message: "config not found"})
		return
	}
	if err := cfg.Validate(); err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"valid": false, "errors": []string{err.Error()}})
		return
	}

	base, err := s.resolver.Resolve(r.Context(), string(cfg.Primary()))
	if err != nil {
		writeJSON(w, statusFor(err), pipeline.Failure(err))
		return
	}
	joined, _, err := join.Execute(base, cfg.Joins, func(ref string) (*table.Table, error) {
		return s.resolver.Resolve(r.Context(), ref)
	})
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"valid": false, "errors": []string{err.Error()}})
		return
	}
	review := transform.ReviewAgainst(cfg, joined.ColumnNames())
	writeJSON(w, http.StatusOK, map[string]any{
		"valid":    review.OK(),
		"errors":   review.Errors,
		"warnings": review.Warnings,
	})
}

func (s *Server) handleListDatasets(w http.ResponseWriter, r *http.Request) {
	names, err := s.resolver.Names(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, pipeline.Failure(err))
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"datasets": names})
}

func (s *Server) handleDatasetSchema(w http.ResponseWriter, r *http.Request) {
	t, err := s.resolver.Resolve(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		writeJSON(w, statusFor(err), pipeline.Failure(err))
		return
	}
	writeJSON(w, http.StatusOK, schema.Inspect(t))
}

func statusFor(err error) int {
	switch pipeline.Classify(err) {
	case pipeline.KindNotFound:
		return http.StatusNotFound
	case pipeline.KindInvalid:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
