// internal/warehouse/postgres_test.go
package warehouse

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"school-matcher/internal/common/errors"
	"school-matcher/internal/common/logger"
	"school-matcher/internal/models"
)

// ==========================
// Test Helper Functions
// ==========================

func setupMockDB(t *testing.T) (*PostgresSource, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("failed to create mock db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewPostgresSource(db, "education_data", logger.NewTestLogger(t)), mock
}

func matchSpec() *models.QuerySpec {
	return &models.QuerySpec{
		SQL:      "SELECT * FROM scored_schools",
		Args:     []interface{}{20},
		Limit:    20,
		PreLimit: 100,
	}
}

func matchColumns() []string {
	return []string{
		"ncessch", "school_name", "district_name", "leaid", "city_location",
		"state_location", "county_code", "school_level", "enrollment", "teachers_fte",
		"student_teacher_ratio", "low_income_pct", "graduation_rate", "ap_courses", "ap_enrollment",
		"has_gifted_program", "charter", "latitude", "longitude", "per_pupil_total",
		"per_pupil_instruction", "base_match_score", "match_category",
	}
}

func addSchoolRow(rows *sqlmock.Rows, id, name string, base float64) *sqlmock.Rows {
	return rows.AddRow(
		id, name, "Springfield SD", "3600077", "SPRINGFIELD",
		"MA", "25013", 3, 450, 28.1,
		16.0, 42.5, 92.5, 8, 120,
		1, 0, 42.1, -72.59, 15200.0,
		9100.0, base, "Excellent Match",
	)
}

func asMatchError(t *testing.T, err error) *errors.MatchError {
	var matchErr *errors.MatchError
	if !stderrors.As(err, &matchErr) {
		t.Fatalf("expected MatchError, got %T: %v", err, err)
	}
	return matchErr
}

// ==========================
// Match Tests
// ==========================

func TestMatch_ScansTypedRecords(t *testing.T) {
	source, mock := setupMockDB(t)

	rows := sqlmock.NewRows(matchColumns())
	addSchoolRow(rows, "360007702877", "Springfield High", 0.92)
	addSchoolRow(rows, "360007702878", "Springfield Middle", 0.81)
	mock.ExpectQuery(`SELECT \* FROM scored_schools`).
		WithArgs(20).
		WillReturnRows(rows)

	records, err := source.Match(context.Background(), matchSpec())

	assert.NoError(t, err)
	assert.Len(t, records, 2)
	assert.NoError(t, mock.ExpectationsWereMet())

	rec := records[0]
	assert.Equal(t, "360007702877", rec.NCESSchoolID)
	assert.Equal(t, "Springfield High", rec.Name)
	assert.Equal(t, "Springfield SD", rec.District)
	assert.Equal(t, "SPRINGFIELD", rec.City)
	assert.Equal(t, "MA", rec.State)
	assert.Equal(t, models.LevelHigh, rec.Level)
	assert.Equal(t, 450, rec.Enrollment)
	assert.InDelta(t, 16.0, rec.StudentTeacherRatio, 1e-9)
	if assert.NotNil(t, rec.GraduationRate) {
		assert.InDelta(t, 92.5, *rec.GraduationRate, 1e-9)
	}
	if assert.NotNil(t, rec.APCourses) {
		assert.Equal(t, 8, *rec.APCourses)
	}
	assert.True(t, rec.HasGiftedProgram)
	assert.False(t, rec.Charter)
	assert.InDelta(t, 0.92, rec.BaseScore, 1e-9)
	assert.Equal(t, models.CategoryExcellent, rec.Category)
}

func TestMatch_NullColumnsBecomeZeroValues(t *testing.T) {
	source, mock := setupMockDB(t)

	rows := sqlmock.NewRows(matchColumns()).AddRow(
		"360007702001", "Sparse Elementary", nil, nil, nil,
		nil, nil, nil, 300, 20.0,
		nil, nil, nil, nil, nil,
		nil, nil, nil, nil, nil,
		nil, 0.55, "Fair Match",
	)
	mock.ExpectQuery(`SELECT \* FROM scored_schools`).WillReturnRows(rows)

	records, err := source.Match(context.Background(), matchSpec())

	assert.NoError(t, err)
	assert.Len(t, records, 1)

	rec := records[0]
	assert.Empty(t, rec.District)
	assert.Empty(t, rec.City)
	assert.Equal(t, models.LevelUnspecified, rec.Level)
	assert.Zero(t, rec.StudentTeacherRatio)
	assert.Nil(t, rec.GraduationRate)
	assert.Nil(t, rec.APCourses)
	assert.Nil(t, rec.Latitude)
	assert.Nil(t, rec.PerPupilTotal)
	assert.False(t, rec.HasGiftedProgram)
	assert.False(t, rec.Charter)
	assert.Equal(t, models.CategoryFair, rec.Category)
}

func TestMatch_DeduplicatesKeepingFirst(t *testing.T) {
	source, mock := setupMockDB(t)

	rows := sqlmock.NewRows(matchColumns())
	addSchoolRow(rows, "360007702877", "First Occurrence", 0.92)
	addSchoolRow(rows, "360007702878", "Other School", 0.85)
	addSchoolRow(rows, "360007702877", "Duplicate Occurrence", 0.80)
	mock.ExpectQuery(`SELECT \* FROM scored_schools`).WillReturnRows(rows)

	records, err := source.Match(context.Background(), matchSpec())

	assert.NoError(t, err)
	assert.Len(t, records, 2)
	assert.Equal(t, "First Occurrence", records[0].Name)
	assert.Equal(t, "Other School", records[1].Name)
}

func TestMatch_ZeroRowsIsNotAnError(t *testing.T) {
	source, mock := setupMockDB(t)

	mock.ExpectQuery(`SELECT \* FROM scored_schools`).
		WillReturnRows(sqlmock.NewRows(matchColumns()))

	records, err := source.Match(context.Background(), matchSpec())

	assert.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestMatch_QueryErrorIsRetryableWarehouseError(t *testing.T) {
	source, mock := setupMockDB(t)

	mock.ExpectQuery(`SELECT \* FROM scored_schools`).
		WillReturnError(stderrors.New("connection refused"))

	records, err := source.Match(context.Background(), matchSpec())

	assert.Nil(t, records)
	matchErr := asMatchError(t, err)
	assert.Equal(t, errors.ErrCodeWarehouseError, matchErr.Code)
	assert.True(t, matchErr.Retryable)
	assert.Contains(t, matchErr.Details, "connection refused")
}

func TestMatch_ExpiredContextMapsToTimeout(t *testing.T) {
	source, _ := setupMockDB(t)

	ctx, cancel := context.WithTimeout(context.Background(), 0)
	defer cancel()

	records, err := source.Match(ctx, matchSpec())

	assert.Nil(t, records)
	matchErr := asMatchError(t, err)
	assert.Equal(t, errors.ErrCodeQueryTimeout, matchErr.Code)
	assert.True(t, matchErr.Retryable)
}

func TestMatch_ScanFailureIsWarehouseError(t *testing.T) {
	source, mock := setupMockDB(t)

	// Short row: the scan expects the full column set.
	rows := sqlmock.NewRows([]string{"ncessch", "school_name"}).
		AddRow("360007702877", "Springfield High")
	mock.ExpectQuery(`SELECT \* FROM scored_schools`).WillReturnRows(rows)

	records, err := source.Match(context.Background(), matchSpec())

	assert.Nil(t, records)
	matchErr := asMatchError(t, err)
	assert.Equal(t, errors.ErrCodeWarehouseError, matchErr.Code)
}

// ==========================
// Run Tests
// ==========================

func TestRun_UnknownQueryName(t *testing.T) {
	source, _ := setupMockDB(t)

	result, err := source.Run(context.Background(), models.QueryType("no_such_query"), nil)

	assert.Nil(t, result)
	matchErr := asMatchError(t, err)
	assert.Equal(t, errors.ErrCodeQueryNotFound, matchErr.Code)
	assert.False(t, matchErr.Retryable)
}

func TestRun_InvalidParamIsBuildFailure(t *testing.T) {
	source, _ := setupMockDB(t)

	result, err := source.Run(context.Background(), models.QueryTypeHighNeedLowTech, map[string]interface{}{
		"county": 42,
	})

	assert.Nil(t, result)
	matchErr := asMatchError(t, err)
	assert.Equal(t, errors.ErrCodeQueryBuildFailed, matchErr.Code)
	assert.Contains(t, matchErr.Details, "county")
}

func TestRun_ExecutesRegisteredQuery(t *testing.T) {
	source, mock := setupMockDB(t)

	rows := sqlmock.NewRows([]string{
		"school_name", "district", "state", "county",
		"low_income_pct", "tech_spending_per_pupil", "total_enrollment", "need_score",
	}).AddRow(
		"Springfield High", "Springfield SD", "MA", "Hampden",
		0.72, 112.5, 450, 59.5,
	)
	mock.ExpectQuery(`FROM "education_data".synthetic_school_demo_fund_perf`).
		WithArgs("Hampden", "MA", 5).
		WillReturnRows(rows)

	result, err := source.Run(context.Background(), models.QueryTypeHighNeedLowTech, map[string]interface{}{
		"county": "Hampden",
		"state":  "MA",
	})

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, models.QueryTypeHighNeedLowTech, result.Name)
	assert.Equal(t, 1, result.RowCount)
	assert.GreaterOrEqual(t, result.Duration, int64(0))

	data := result.Data.([]map[string]interface{})
	assert.Equal(t, "Springfield High", data[0]["school_name"])
	assert.Equal(t, "Hampden", data[0]["county"])
}

func TestRun_QueryErrorIsWarehouseError(t *testing.T) {
	source, mock := setupMockDB(t)

	mock.ExpectQuery(`FROM "education_data".synthetic_school_demo_fund_perf`).
		WillReturnError(stderrors.New("relation does not exist"))

	result, err := source.Run(context.Background(), models.QueryTypeHighGradLowFunding, nil)

	assert.Nil(t, result)
	matchErr := asMatchError(t, err)
	assert.Equal(t, errors.ErrCodeWarehouseError, matchErr.Code)
}

// ==========================
// Ping Tests
// ==========================

func TestPing(t *testing.T) {
	source, mock := setupMockDB(t)

	mock.ExpectPing()
	assert.NoError(t, source.Ping(context.Background()))

	mock.ExpectPing().WillReturnError(stderrors.New("no route to host"))
	err := source.Ping(context.Background())
	matchErr := asMatchError(t, err)
	assert.Equal(t, errors.ErrCodeWarehouseError, matchErr.Code)
}
