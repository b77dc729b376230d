// cmd/matcher-service/server_test.go
package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"school-matcher/internal/common/config"
	"school-matcher/internal/common/errors"
	"school-matcher/internal/common/logger"
	"school-matcher/internal/directory"
	"school-matcher/internal/engine"
	"school-matcher/internal/matching/querybuilder"
	"school-matcher/internal/models"
	"school-matcher/internal/warehouse"
	"school-matcher/pkg/catalog"
)

// ==========================
// Test Helper Functions
// ==========================

type stubSource struct {
	records   []models.SchoolRecord
	matchErr  error
	runResult *warehouse.QueryResult
	runErr    error
	pingErr   error

	runName   models.QueryType
	runParams map[string]interface{}
}

func (s *stubSource) Match(ctx context.Context, spec *models.QuerySpec) ([]models.SchoolRecord, error) {
	if s.matchErr != nil {
		return nil, s.matchErr
	}
	return s.records, nil
}

func (s *stubSource) Run(ctx context.Context, name models.QueryType, params map[string]interface{}) (*warehouse.QueryResult, error) {
	s.runName = name
	s.runParams = params
	if s.runErr != nil {
		return nil, s.runErr
	}
	return s.runResult, nil
}

func (s *stubSource) Ping(ctx context.Context) error { return s.pingErr }

// esStub answers as Elasticsearch, including the product header the v8
// client validates.
func esStub(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if r.Method != http.MethodHead {
			io.WriteString(w, body)
		}
	}
}

func testCatalog() *catalog.QueryCatalog {
	return &catalog.QueryCatalog{
		Version: "1.0.0",
		Queries: []catalog.QueryEntry{{
			Name:        "high_need_low_tech",
			DisplayName: "High Need, Low Tech Spending",
			Parameters: []catalog.Parameter{
				{Name: "county", Type: "string"},
				{Name: "state", Type: "string"},
				{Name: "limit", Type: "integer", Default: 5},
			},
			MaxLimit: 100,
		}},
	}
}

func newTestServer(t *testing.T, src *stubSource, es http.HandlerFunc) *Server {
	t.Helper()

	esServer := httptest.NewServer(es)
	t.Cleanup(esServer.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{esServer.URL},
	})
	require.NoError(t, err)

	log := logger.NewTestLogger(t)
	cfg := &config.Config{
		App: config.AppConfig{Name: "school-matcher", Version: "test"},
		Matching: config.MatchingConfig{
			DefaultLimit:       20,
			QueryTimeout:       2000,
			MaxRetries:         0,
			SlowStageThreshold: 500,
		},
	}

	eng := engine.New(src, querybuilder.New("education_data"), &cfg.Matching, nil, log)
	dir := directory.New(client, "schools", log)

	return NewServer(cfg, eng, dir, src, testCatalog(), log)
}

func doRequest(t *testing.T, server *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	server.Routes().ServeHTTP(rec, req)
	return rec
}

type errorEnvelope struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		Details   string `json:"details"`
		Retryable bool   `json:"retryable"`
	} `json:"error"`
	RequestID string `json:"request_id"`
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorEnvelope {
	t.Helper()
	var resp errorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func matchRecords() []models.SchoolRecord {
	return []models.SchoolRecord{
		{
			NCESSchoolID:        "250279000331",
			Name:                "Springfield Central High School",
			District:            "Springfield SD",
			City:                "SPRINGFIELD",
			State:               "MA",
			Level:               models.LevelHigh,
			Enrollment:          1800,
			StudentTeacherRatio: 16,
			BaseScore:           0.95,
		},
		{
			NCESSchoolID:        "250843001122",
			Name:                "Shelbyville Middle School",
			District:            "Shelbyville SD",
			City:                "SHELBYVILLE",
			State:               "MA",
			Level:               models.LevelMiddle,
			Enrollment:          600,
			StudentTeacherRatio: 18,
			BaseScore:           0.72,
		},
	}
}

const searchPayload = `{
	"took": 3,
	"hits": {
		"total": {"value": 2},
		"max_score": 5.5,
		"hits": [
			{"_source": {"ncessch": "250279000331", "school_name": "Springfield Central High School"}},
			{"_source": {"ncessch": "250843001122", "school_name": "Shelbyville Middle School"}}
		]
	}
}`

// ==========================
// Match Endpoint Tests
// ==========================

func TestHandleMatch_Success(t *testing.T) {
	server := newTestServer(t, &stubSource{records: matchRecords()}, esStub(http.StatusOK, searchPayload))

	body := `{"profile": {"school_level": 3, "location": {"city": "Springfield"}}, "limit": 5}`
	rec := doRequest(t, server, http.MethodPost, "/api/v1/match", body)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var bundle struct {
		Status       string                   `json:"status"`
		TotalMatches int                      `json:"total_matches"`
		Top10        []map[string]interface{} `json:"top_10"`
		RequestID    string                   `json:"request_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &bundle))
	assert.Equal(t, "success", bundle.Status)
	assert.Equal(t, 2, bundle.TotalMatches)
	require.Len(t, bundle.Top10, 2)
	assert.Equal(t, "250279000331", bundle.Top10[0]["ncessch"])
	assert.NotEmpty(t, bundle.RequestID)
}

func TestHandleMatch_InvalidJSON(t *testing.T) {
	server := newTestServer(t, &stubSource{}, esStub(http.StatusOK, searchPayload))

	rec := doRequest(t, server, http.MethodPost, "/api/v1/match", `{"profile": `)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
	assert.Contains(t, resp.Error.Details, "invalid JSON")
}

func TestHandleMatch_MissingProfile(t *testing.T) {
	server := newTestServer(t, &stubSource{}, esStub(http.StatusOK, searchPayload))

	rec := doRequest(t, server, http.MethodPost, "/api/v1/match", `{"limit": 5}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeError(t, rec)
	assert.Contains(t, resp.Error.Details, "profile is required")
}

func TestHandleMatch_SchemaViolation(t *testing.T) {
	server := newTestServer(t, &stubSource{}, esStub(http.StatusOK, searchPayload))

	body := `{"profile": {"school_level": 9}}`
	rec := doRequest(t, server, http.MethodPost, "/api/v1/match", body)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
	assert.Contains(t, resp.Error.Details, "school_level")
}

func TestHandleMatch_UnknownProfileField(t *testing.T) {
	server := newTestServer(t, &stubSource{}, esStub(http.StatusOK, searchPayload))

	body := `{"profile": {"favorite_color": "blue"}}`
	rec := doRequest(t, server, http.MethodPost, "/api/v1/match", body)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeError(t, rec)
	assert.Contains(t, resp.Error.Details, "favorite_color")
}

func TestHandleMatch_OversizedBody(t *testing.T) {
	server := newTestServer(t, &stubSource{}, esStub(http.StatusOK, searchPayload))

	huge := `{"profile": {}, "pad": "` + strings.Repeat("x", maxRequestBody) + `"}`
	rec := doRequest(t, server, http.MethodPost, "/api/v1/match", huge)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeError(t, rec)
	assert.Contains(t, resp.Error.Details, "request body unreadable or too large")
}

func TestHandleMatch_WarehouseDownMapsToBadGateway(t *testing.T) {
	src := &stubSource{matchErr: errors.NewWarehouseError("match_schools", io.ErrUnexpectedEOF)}
	server := newTestServer(t, src, esStub(http.StatusOK, searchPayload))

	body := `{"profile": {"school_level": 2}}`
	rec := doRequest(t, server, http.MethodPost, "/api/v1/match", body)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, "WAREHOUSE_ERROR", resp.Error.Code)
	assert.True(t, resp.Error.Retryable)
	assert.NotEmpty(t, resp.RequestID)
}

func TestHandleMatch_MethodNotAllowed(t *testing.T) {
	server := newTestServer(t, &stubSource{}, esStub(http.StatusOK, searchPayload))

	rec := doRequest(t, server, http.MethodGet, "/api/v1/match", "")

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

// ==========================
// Search Endpoint Tests
// ==========================

func TestHandleSearch_Success(t *testing.T) {
	server := newTestServer(t, &stubSource{}, esStub(http.StatusOK, searchPayload))

	rec := doRequest(t, server, http.MethodGet, "/api/v1/schools/search?q=springfield&size=2", "")

	assert.Equal(t, http.StatusOK, rec.Code)

	var result struct {
		Schools   []map[string]interface{} `json:"schools"`
		TotalHits int64                    `json:"total_hits"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, int64(2), result.TotalHits)
	require.Len(t, result.Schools, 2)
	assert.Equal(t, "Springfield Central High School", result.Schools[0]["school_name"])
}

func TestHandleSearch_BadParams(t *testing.T) {
	server := newTestServer(t, &stubSource{}, esStub(http.StatusOK, searchPayload))

	tests := []struct {
		name    string
		target  string
		problem string
	}{
		{"level out of range", "/api/v1/schools/search?level=9", "level must be an integer between 0 and 3"},
		{"level not numeric", "/api/v1/schools/search?level=high", "level must be an integer between 0 and 3"},
		{"charter not boolean", "/api/v1/schools/search?charter=maybe", "charter must be true or false"},
		{"negative enrollment", "/api/v1/schools/search?min_enrollment=-5", "min_enrollment must be a non-negative integer"},
		{"negative from", "/api/v1/schools/search?from=-1", "from must be a non-negative integer"},
		{"size not numeric", "/api/v1/schools/search?size=lots", "size must be a non-negative integer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, server, http.MethodGet, tt.target, "")

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			resp := decodeError(t, rec)
			assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
			assert.Contains(t, resp.Error.Details, tt.problem)
		})
	}
}

func TestHandleSearch_CollectsAllProblems(t *testing.T) {
	server := newTestServer(t, &stubSource{}, esStub(http.StatusOK, searchPayload))

	rec := doRequest(t, server, http.MethodGet, "/api/v1/schools/search?level=9&charter=maybe", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeError(t, rec)
	assert.Contains(t, resp.Error.Details, "level must be an integer between 0 and 3")
	assert.Contains(t, resp.Error.Details, "charter must be true or false")
}

func TestHandleSearch_DirectoryDown(t *testing.T) {
	server := newTestServer(t, &stubSource{}, esStub(http.StatusInternalServerError, `{"error":{}}`))

	rec := doRequest(t, server, http.MethodGet, "/api/v1/schools/search?q=springfield", "")

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, "DIRECTORY_ERROR", resp.Error.Code)
}

// ==========================
// Analytics Endpoint Tests
// ==========================

func TestHandleAnalyticsList(t *testing.T) {
	server := newTestServer(t, &stubSource{}, esStub(http.StatusOK, searchPayload))

	rec := doRequest(t, server, http.MethodGet, "/api/v1/analytics", "")

	assert.Equal(t, http.StatusOK, rec.Code)

	var cat catalog.QueryCatalog
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cat))
	assert.Equal(t, "1.0.0", cat.Version)
	require.Len(t, cat.Queries, 1)
	assert.Equal(t, "high_need_low_tech", cat.Queries[0].Name)
}

func TestHandleAnalytics_Success(t *testing.T) {
	src := &stubSource{runResult: &warehouse.QueryResult{
		Name:     models.QueryTypeHighNeedLowTech,
		Data:     []map[string]interface{}{{"school_name": "Springfield Central High School"}},
		RowCount: 1,
		Duration: 12,
	}}
	server := newTestServer(t, src, esStub(http.StatusOK, searchPayload))

	rec := doRequest(t, server, http.MethodGet, "/api/v1/analytics/high_need_low_tech?state=MA&limit=5", "")

	assert.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, models.QueryTypeHighNeedLowTech, src.runName)
	assert.Equal(t, map[string]interface{}{"state": "MA", "limit": 5}, src.runParams)

	var resp struct {
		Status   string                   `json:"status"`
		Name     string                   `json:"name"`
		Data     []map[string]interface{} `json:"data"`
		RowCount int                      `json:"row_count"`
		Duration int64                    `json:"query_execution_time_ms"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, "high_need_low_tech", resp.Name)
	assert.Equal(t, 1, resp.RowCount)
	assert.Equal(t, int64(12), resp.Duration)
	require.Len(t, resp.Data, 1)
}

func TestHandleAnalytics_UnknownQuery(t *testing.T) {
	server := newTestServer(t, &stubSource{}, esStub(http.StatusOK, searchPayload))

	rec := doRequest(t, server, http.MethodGet, "/api/v1/analytics/census_rollup", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, "QUERY_NOT_FOUND", resp.Error.Code)
	assert.Contains(t, resp.Error.Details, "census_rollup")
}

func TestHandleAnalytics_BadParams(t *testing.T) {
	server := newTestServer(t, &stubSource{}, esStub(http.StatusOK, searchPayload))

	tests := []struct {
		name    string
		target  string
		problem string
	}{
		{"unknown parameter", "/api/v1/analytics/high_need_low_tech?zip=01101", `unknown parameter "zip"`},
		{"integer coercion", "/api/v1/analytics/high_need_low_tech?limit=ten", `parameter "limit" must be an integer`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, server, http.MethodGet, tt.target, "")

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			resp := decodeError(t, rec)
			assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
			assert.Contains(t, resp.Error.Details, tt.problem)
		})
	}
}

func TestHandleAnalytics_SourceError(t *testing.T) {
	src := &stubSource{runErr: errors.NewQueryTimeoutError("high_need_low_tech")}
	server := newTestServer(t, src, esStub(http.StatusOK, searchPayload))

	rec := doRequest(t, server, http.MethodGet, "/api/v1/analytics/high_need_low_tech", "")

	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, "QUERY_TIMEOUT", resp.Error.Code)
}

// ==========================
// Health Endpoint Tests
// ==========================

func TestHandleHealth(t *testing.T) {
	server := newTestServer(t, &stubSource{}, esStub(http.StatusOK, searchPayload))

	rec := doRequest(t, server, http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp["status"])
	assert.Equal(t, "test", resp["version"])
	assert.NotEmpty(t, resp["time"])
}

func TestHandleReady(t *testing.T) {
	server := newTestServer(t, &stubSource{}, esStub(http.StatusOK, ""))

	rec := doRequest(t, server, http.MethodGet, "/ready", "")

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ready", resp["status"])
}

func TestHandleReady_WarehouseDown(t *testing.T) {
	src := &stubSource{pingErr: errors.NewWarehouseError("ping", io.ErrUnexpectedEOF)}
	server := newTestServer(t, src, esStub(http.StatusOK, ""))

	rec := doRequest(t, server, http.MethodGet, "/ready", "")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "not_ready", resp["status"])
	assert.Equal(t, "warehouse unreachable", resp["reason"])
}

func TestHandleReady_DirectoryDown(t *testing.T) {
	server := newTestServer(t, &stubSource{}, esStub(http.StatusInternalServerError, ""))

	rec := doRequest(t, server, http.MethodGet, "/ready", "")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "not_ready", resp["status"])
	assert.Equal(t, "directory unreachable", resp["reason"])
}
