// internal/engine/engine.go

// Package engine orchestrates the matching pipeline: query build,
// warehouse fetch, ranking, and recommendation assembly. It owns the
// request-scoped concerns (request ids, stage timing, timeouts, retry)
// so the matching packages stay pure.
package engine

import (
	"context"
	stderrors "errors"
	"math"
	"time"

	"github.com/google/uuid"

	"school-matcher/internal/common/config"
	"school-matcher/internal/common/errors"
	"school-matcher/internal/common/logger"
	"school-matcher/internal/common/metrics"
	"school-matcher/internal/common/observability"
	"school-matcher/internal/matching/querybuilder"
	"school-matcher/internal/matching/ranking"
	"school-matcher/internal/matching/recommend"
	"school-matcher/internal/models"
	"school-matcher/internal/warehouse"
)

const retryBaseDelay = 500 * time.Millisecond

// Engine wires the pipeline stages together. All dependencies are
// injected so tests can swap the warehouse source.
type Engine struct {
	source  warehouse.Source
	builder *querybuilder.Builder
	cfg     *config.MatchingConfig
	obs     *observability.Observability
	logger  logger.Logger
}

func New(source warehouse.Source, builder *querybuilder.Builder, cfg *config.MatchingConfig, obs *observability.Observability, log logger.Logger) *Engine {
	return &Engine{
		source:  source,
		builder: builder,
		cfg:     cfg,
		obs:     obs,
		logger:  log.WithFields(map[string]interface{}{"component": "engine"}),
	}
}

// Match runs the candidate stage: query build, warehouse fetch with
// timeout and bounded retry, dedup (at the source), typed result. It
// never returns a Go error; failures come back as Status error with
// Err set for callers that need the typed cause.
func (e *Engine) Match(ctx context.Context, profile *models.StudentProfile, limit int) *models.MatchResult {
	requestID := uuid.New().String()
	start := time.Now()

	result := e.match(ctx, requestID, profile, limit)

	e.recordOutcome(ctx, requestID, start, result.Status)
	return result
}

// Recommend runs the full pipeline and assembles the tiered bundle.
// A ranking failure degrades to warehouse order instead of failing
// the request.
func (e *Engine) Recommend(ctx context.Context, profile *models.StudentProfile, limit int) *models.RecommendationBundle {
	requestID := uuid.New().String()
	start := time.Now()

	result := e.match(ctx, requestID, profile, limit)

	if result.Status == models.StatusError {
		bundle := &models.RecommendationBundle{
			Status:    models.StatusError,
			Message:   result.Message,
			Profile:   profile,
			RequestID: requestID,
			Err:       result.Err,
		}
		e.recordOutcome(ctx, requestID, start, bundle.Status)
		return bundle
	}

	var ranked []models.ScoredSchool
	degraded := false
	if result.Status == models.StatusSuccess {
		rankStart := time.Now()
		var err error
		ranked, err = ranking.Rank(result.Schools, profile)
		e.observeStage(requestID, "rank", rankStart)
		if err != nil {
			e.logger.Error("Ranking failed, serving warehouse order", map[string]interface{}{
				"requestId": requestID,
				"error":     err.Error(),
			})
			ranked = fallbackOrder(result.Schools)
			degraded = true
		}
	}

	assembleStart := time.Now()
	bundle := recommend.Assemble(ranked, profile)
	e.observeStage(requestID, "assemble", assembleStart)

	bundle.Degraded = degraded
	bundle.RequestID = requestID

	e.recordOutcome(ctx, requestID, start, bundle.Status)
	return bundle
}

func (e *Engine) match(ctx context.Context, requestID string, profile *models.StudentProfile, limit int) *models.MatchResult {
	if profile == nil {
		err := errors.NewValidationError([]string{"profile is required"})
		return &models.MatchResult{
			Status:    models.StatusError,
			Message:   "Error matching schools: " + err.Error(),
			RequestID: requestID,
			Err:       err,
		}
	}
	if limit <= 0 {
		limit = e.cfg.DefaultLimit
	}

	e.logger.Info("Match started", map[string]interface{}{
		"requestId":   requestID,
		"schoolLevel": profile.SchoolLevel.String(),
		"homeCity":    profile.HomeCity(),
		"limit":       limit,
	})

	buildStart := time.Now()
	spec := e.builder.Build(profile, limit)
	e.observeStage(requestID, "build", buildStart)

	echo := &models.QueryEcho{SQL: spec.SQL, Args: spec.Args}

	fetchStart := time.Now()
	records, err := e.fetchWithRetry(ctx, requestID, spec)
	e.observeStage(requestID, "fetch", fetchStart)
	if err != nil {
		e.logger.Error("Warehouse fetch failed", map[string]interface{}{
			"requestId": requestID,
			"error":     err.Error(),
		})
		return &models.MatchResult{
			Status:    models.StatusError,
			Message:   "Error matching schools: " + err.Error(),
			Query:     echo,
			Profile:   profile,
			RequestID: requestID,
			Err:       err,
		}
	}

	if len(records) == 0 {
		return &models.MatchResult{
			Status:    models.StatusNoMatches,
			Schools:   []models.SchoolRecord{},
			Message:   "No schools found matching criteria",
			Query:     echo,
			Profile:   profile,
			RequestID: requestID,
		}
	}

	return &models.MatchResult{
		Status:    models.StatusSuccess,
		Schools:   records,
		Count:     len(records),
		Query:     echo,
		Profile:   profile,
		RequestID: requestID,
	}
}

// fetchWithRetry executes the warehouse query under the configured
// timeout. The retry budget comes from the error taxonomy, capped by
// config, with exponential backoff from a 500ms base.
func (e *Engine) fetchWithRetry(ctx context.Context, requestID string, spec *models.QuerySpec) ([]models.SchoolRecord, error) {
	var lastErr error
	for attempt := 0; ; attempt++ {
		queryCtx, cancel := context.WithTimeout(ctx, config.GetDuration(e.cfg.QueryTimeout))
		records, err := e.source.Match(queryCtx, spec)
		cancel()
		if err == nil {
			return records, nil
		}
		lastErr = err

		budget := e.retryBudget(err)
		if attempt >= budget {
			return nil, lastErr
		}

		delay := retryBaseDelay * time.Duration(math.Pow(2, float64(attempt)))
		e.logger.Warn("Warehouse query failed, retrying", map[string]interface{}{
			"requestId":  requestID,
			"attempt":    attempt + 1,
			"maxRetries": budget,
			"delayMs":    delay.Milliseconds(),
			"error":      err.Error(),
		})

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, lastErr
		}
	}
}

func (e *Engine) retryBudget(err error) int {
	var matchErr *errors.MatchError
	if !stderrors.As(err, &matchErr) {
		return 0
	}
	budget := errors.GetRetryCount(matchErr.Code)
	if budget > e.cfg.MaxRetries {
		budget = e.cfg.MaxRetries
	}
	return budget
}

func (e *Engine) observeStage(requestID, stage string, start time.Time) {
	elapsed := time.Since(start)
	metrics.MatchStageDuration.WithLabelValues(stage).Observe(elapsed.Seconds())
	if elapsed > config.GetDuration(e.cfg.SlowStageThreshold) {
		e.logger.Warn("Slow pipeline stage", map[string]interface{}{
			"requestId":  requestID,
			"stage":      stage,
			"durationMs": elapsed.Milliseconds(),
		})
	}
}

func (e *Engine) recordOutcome(ctx context.Context, requestID string, start time.Time, status models.MatchStatus) {
	elapsed := time.Since(start)
	metrics.MatchRequestsTotal.WithLabelValues(string(status)).Inc()
	if e.obs != nil {
		e.obs.RecordMatchProcessed(ctx, string(status))
		e.obs.RecordMatchDuration(ctx, elapsed, string(status))
	}
	e.logger.Info("Match request completed", map[string]interface{}{
		"requestId":  requestID,
		"status":     string(status),
		"durationMs": elapsed.Milliseconds(),
	})
}

// fallbackOrder wraps raw records in warehouse order when ranking is
// unavailable. Scores stay on the base scale and no reasoning is
// attached; Degraded on the bundle tells the caller what happened.
func fallbackOrder(records []models.SchoolRecord) []models.ScoredSchool {
	out := make([]models.ScoredSchool, 0, len(records))
	for i := range records {
		admission := models.AdmissionPublic
		if records[i].Charter {
			admission = models.AdmissionCharter
		}
		out = append(out, models.ScoredSchool{
			SchoolRecord:  records[i],
			MatchScore:    math.Round(records[i].BaseScore*1000) / 10,
			AdmissionType: admission,
			Rank:          i + 1,
		})
	}
	return out
}
