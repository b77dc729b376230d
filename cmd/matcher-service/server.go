// cmd/matcher-service/server.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"school-matcher/internal/common/config"
	"school-matcher/internal/common/errors"
	"school-matcher/internal/common/logger"
	"school-matcher/internal/common/metrics"
	"school-matcher/internal/common/validation"
	"school-matcher/internal/directory"
	"school-matcher/internal/engine"
	"school-matcher/internal/models"
	"school-matcher/internal/warehouse"
	"school-matcher/pkg/catalog"
)

const maxRequestBody = 1 << 20 // 1 MiB

// Server holds the HTTP surface over the matching engine, the school
// directory, and the named analytics queries.
type Server struct {
	cfg       *config.Config
	engine    *engine.Engine
	directory *directory.Directory
	source    warehouse.Source
	catalog   *catalog.QueryCatalog
	errors    *errors.ErrorHandler
	logger    logger.Logger
}

func NewServer(cfg *config.Config, eng *engine.Engine, dir *directory.Directory, source warehouse.Source, cat *catalog.QueryCatalog, log logger.Logger) *Server {
	return &Server{
		cfg:       cfg,
		engine:    eng,
		directory: dir,
		source:    source,
		catalog:   cat,
		errors:    errors.NewErrorHandler(log),
		logger:    log.WithFields(map[string]interface{}{"component": "http"}),
	}
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/match", s.handleMatch)
	mux.HandleFunc("GET /api/v1/schools/search", s.handleSearch)
	mux.HandleFunc("GET /api/v1/analytics", s.handleAnalyticsList)
	mux.HandleFunc("GET /api/v1/analytics/{name}", s.handleAnalytics)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ready", s.handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())
	return mux
}

type matchRequest struct {
	Profile json.RawMessage `json:"profile"`
	Limit   int             `json:"limit"`
}

func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	metrics.ActiveRequests.Inc()
	defer metrics.ActiveRequests.Dec()

	start := time.Now()
	requestID := uuid.New().String()

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err != nil {
		s.errors.HandleRequestError(w, requestID, errors.NewValidationError([]string{"request body unreadable or too large"}))
		return
	}

	var req matchRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.errors.HandleRequestError(w, requestID, errors.NewValidationError([]string{"invalid JSON"}))
		return
	}
	if len(req.Profile) == 0 {
		s.errors.HandleRequestError(w, requestID, errors.NewValidationError([]string{"profile is required"}))
		return
	}

	if result := validation.ValidateProfileJSON(req.Profile); !result.Valid {
		s.errors.HandleRequestError(w, requestID, errors.NewValidationError(result.GetErrorMessages()))
		return
	}

	var profile models.StudentProfile
	if err := json.Unmarshal(req.Profile, &profile); err != nil {
		s.errors.HandleRequestError(w, requestID, errors.NewValidationError([]string{"profile does not match the expected shape"}))
		return
	}

	bundle := s.engine.Recommend(r.Context(), &profile, req.Limit)
	if bundle.Status == models.StatusError {
		s.errors.HandleRequestError(w, bundle.RequestID, bundle.Err)
		return
	}

	s.logger.Info("Match request served", map[string]interface{}{
		"requestId":    bundle.RequestID,
		"status":       string(bundle.Status),
		"totalMatches": bundle.TotalMatches,
		"durationMs":   time.Since(start).Milliseconds(),
	})
	writeJSON(w, http.StatusOK, bundle)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.New().String()

	query, err := parseSearchQuery(r)
	if err != nil {
		s.errors.HandleRequestError(w, requestID, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), config.GetDuration(s.cfg.Matching.QueryTimeout))
	defer cancel()

	result, err := s.directory.Search(ctx, query)
	if err != nil {
		s.errors.HandleRequestError(w, requestID, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleAnalyticsList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.catalog)
}

type analyticsResponse struct {
	Status string `json:"status"`
	*warehouse.QueryResult
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.New().String()
	name := r.PathValue("name")

	entry := s.catalog.Lookup(name)
	if entry == nil {
		s.errors.HandleRequestError(w, requestID, errors.NewQueryNotFoundError(name))
		return
	}

	params, err := parseAnalyticsParams(r, entry)
	if err != nil {
		s.errors.HandleRequestError(w, requestID, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), config.GetDuration(s.cfg.Matching.QueryTimeout))
	defer cancel()

	result, err := s.source.Run(ctx, models.QueryType(name), params)
	if err != nil {
		s.errors.HandleRequestError(w, requestID, err)
		return
	}

	s.logger.Info("Analytics query completed", map[string]interface{}{
		"requestId":  requestID,
		"query":      name,
		"rows":       result.RowCount,
		"durationMs": result.Duration,
	})
	writeJSON(w, http.StatusOK, analyticsResponse{Status: "success", QueryResult: result})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": s.cfg.App.Version,
		"time":    time.Now().Format(time.RFC3339),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.source.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not_ready",
			"reason": "warehouse unreachable",
		})
		return
	}
	if err := s.directory.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not_ready",
			"reason": "directory unreachable",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// parseSearchQuery reads the directory filters from the query string.
// Numeric and boolean values that fail to parse are a validation error,
// not a silent default.
func parseSearchQuery(r *http.Request) (directory.SchoolSearch, error) {
	q := r.URL.Query()
	search := directory.SchoolSearch{
		Keywords: q.Get("q"),
		City:     q.Get("city"),
		State:    q.Get("state"),
		SortBy:   q.Get("sort"),
	}

	var problems []string

	if v := q.Get("level"); v != "" {
		level, err := strconv.Atoi(v)
		if err != nil || level < 0 || level > int(models.LevelHigh) {
			problems = append(problems, "level must be an integer between 0 and 3")
		} else {
			search.Level = models.SchoolLevel(level)
		}
	}
	if v := q.Get("charter"); v != "" {
		charter, err := strconv.ParseBool(v)
		if err != nil {
			problems = append(problems, "charter must be true or false")
		} else {
			search.Charter = &charter
		}
	}
	if v := q.Get("min_enrollment"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			problems = append(problems, "min_enrollment must be a non-negative integer")
		} else {
			search.MinEnrollment = n
		}
	}
	if v := q.Get("max_enrollment"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			problems = append(problems, "max_enrollment must be a non-negative integer")
		} else {
			search.MaxEnrollment = n
		}
	}
	if v := q.Get("from"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			problems = append(problems, "from must be a non-negative integer")
		} else {
			search.From = n
		}
	}
	if v := q.Get("size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			problems = append(problems, "size must be a non-negative integer")
		} else {
			search.Size = n
		}
	}

	if len(problems) > 0 {
		return directory.SchoolSearch{}, errors.NewValidationError(problems)
	}
	return search, nil
}

// parseAnalyticsParams coerces query-string values using the catalog's
// declared parameter types, then validates the assembled map against
// the entry.
func parseAnalyticsParams(r *http.Request, entry *catalog.QueryEntry) (map[string]interface{}, error) {
	declared := make(map[string]catalog.Parameter, len(entry.Parameters))
	for _, p := range entry.Parameters {
		declared[p.Name] = p
	}

	params := make(map[string]interface{})
	var problems []string

	for key, values := range r.URL.Query() {
		if len(values) == 0 || values[0] == "" {
			continue
		}
		raw := values[0]

		p, known := declared[key]
		if !known {
			problems = append(problems, fmt.Sprintf("unknown parameter %q", key))
			continue
		}

		switch p.Type {
		case "number":
			f, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				problems = append(problems, fmt.Sprintf("parameter %q must be a number", key))
				continue
			}
			params[key] = f
		case "integer":
			n, err := strconv.Atoi(raw)
			if err != nil {
				problems = append(problems, fmt.Sprintf("parameter %q must be an integer", key))
				continue
			}
			params[key] = n
		default:
			params[key] = raw
		}
	}

	problems = append(problems, entry.ValidateParams(params)...)
	if len(problems) > 0 {
		return nil, errors.NewValidationError(problems)
	}
	return params, nil
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
