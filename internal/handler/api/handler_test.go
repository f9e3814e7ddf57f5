package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinScout/internal/domain/models"
	"FinScout/internal/repository"
	"FinScout/internal/services/classify"
	"FinScout/internal/usecase"
	"FinScout/pkg/logger"
)

type fakeRunner struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeRunner) RunAsync(context.Context, bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.err
}

type fakeRater struct {
	store    *repository.MemoryStore
	at       time.Time
	stats    *models.SignalStatistics
	statsErr error
}

func (f *fakeRater) Rate(ctx context.Context, id string, stars int) error {
	return f.store.Rate(ctx, id, stars, f.at)
}

func (f *fakeRater) Statistics(context.Context) (*models.SignalStatistics, error) {
	return f.stats, f.statsErr
}

type fakeDiagnoser struct {
	diag    models.ClassifierDiagnostics
	quality classify.QualityReport
	checks  int
}

func (f *fakeDiagnoser) Diagnostics() models.ClassifierDiagnostics { return f.diag }

func (f *fakeDiagnoser) QualityCheck(context.Context) classify.QualityReport {
	f.checks++
	return f.quality
}

type failingHealthStore struct {
	*repository.MemoryStore
}

func (failingHealthStore) Health(context.Context) error {
	return errors.New("store offline")
}

type apiFixture struct {
	store  *repository.MemoryStore
	runner *fakeRunner
	rater  *fakeRater
	diag   *fakeDiagnoser
	echo   *echo.Echo
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	f := &apiFixture{
		store:  repository.NewMemoryStore(),
		runner: &fakeRunner{},
		diag: &fakeDiagnoser{
			diag:    models.ClassifierDiagnostics{TotalRequests: 12, ParseSuccesses: 10, SuccessRate: 10.0 / 12.0},
			quality: classify.QualityReport{Accuracy: 1, Score: "5/5", Status: classify.QualityOK},
		},
		echo: echo.New(),
	}
	f.rater = &fakeRater{
		store: f.store,
		at:    time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC),
		stats: &models.SignalStatistics{Total: 4, Rated: 1, Unrated: 3},
	}
	h := New(f.runner, f.rater, f.store, f.diag, logger.Nop())
	h.RegisterRoutes(f.echo)
	return f
}

func (f *apiFixture) seed(t *testing.T, id, symbol string, created time.Time) {
	t.Helper()
	require.NoError(t, f.store.Save(context.Background(), &models.SignalRecord{
		ID:         id,
		Symbol:     symbol,
		CreatedAt:  created,
		Scores:     map[string]float64{models.ScoreMacro: 1, models.ScoreMarket: 1},
		TotalScore: 7.5,
		Confidence: 0.8,
	}))
}

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (f *apiFixture) request(t *testing.T, method, target, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	f.echo.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func TestHealthz(t *testing.T) {
	f := newAPIFixture(t)

	rec := httptest.NewRecorder()
	f.echo.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)

	h := New(f.runner, f.rater, failingHealthStore{f.store}, f.diag, logger.Nop())
	e := echo.New()
	h.RegisterRoutes(e)
	rec2 := httptest.NewRecorder()
	e.ServeHTTP(rec2, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec2.Code)
	assert.Contains(t, rec2.Body.String(), "store offline")
}

func TestListSignals(t *testing.T) {
	f := newAPIFixture(t)
	base := time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)
	f.seed(t, "sig-a", "AAPL", base)
	f.seed(t, "sig-b", "MSFT", base.Add(time.Hour))
	f.seed(t, "sig-c", "NVDA", base.Add(2*time.Hour))

	rec, env := f.request(t, http.MethodGet, "/api/signals?limit=2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, http.StatusOK, env.Status)

	var list struct {
		Rows  []*models.SignalRecord `json:"rows"`
		Total int64                  `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list.Rows, 2)
	assert.Equal(t, "sig-c", list.Rows[0].ID, "newest first")
	assert.Equal(t, "sig-b", list.Rows[1].ID)
	assert.Equal(t, int64(2), list.Total)
}

func TestListSignalsRejectsBadLimit(t *testing.T) {
	f := newAPIFixture(t)

	rec, env := f.request(t, http.MethodGet, "/api/signals?limit=1000", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, http.StatusBadRequest, env.Status)
	assert.Contains(t, string(env.Data), "ERR_LTE")
}

func TestGetSignal(t *testing.T) {
	f := newAPIFixture(t)
	f.seed(t, "sig-a", "AAPL", time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC))

	rec, env := f.request(t, http.MethodGet, "/api/signals/sig-a", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got models.SignalRecord
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, "AAPL", got.Symbol)

	rec, env = f.request(t, http.MethodGet, "/api/signals/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, http.StatusNotFound, env.Status)
	assert.Contains(t, string(env.Data), "ERR_NOT_FOUND")
}

func TestRateSignal(t *testing.T) {
	f := newAPIFixture(t)
	f.seed(t, "sig-a", "AAPL", time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC))

	rec, env := f.request(t, http.MethodPost, "/api/signals/sig-a/rating", `{"rating":4}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var got models.SignalRecord
	require.NoError(t, json.Unmarshal(env.Data, &got))
	require.NotNil(t, got.Rating)
	assert.Equal(t, 4, *got.Rating)

	stored, err := f.store.Get(context.Background(), "sig-a")
	require.NoError(t, err)
	require.NotNil(t, stored.RatedAt)
	assert.Equal(t, f.rater.at, stored.RatedAt.UTC())
}

func TestRateSignalValidation(t *testing.T) {
	f := newAPIFixture(t)
	f.seed(t, "sig-a", "AAPL", time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC))

	rec, env := f.request(t, http.MethodPost, "/api/signals/sig-a/rating", `{"rating":9}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, string(env.Data), "ERR_LTE")

	rec, env = f.request(t, http.MethodPost, "/api/signals/sig-a/rating", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, string(env.Data), "ERR_REQUIRED")

	rec, _ = f.request(t, http.MethodPost, "/api/signals/nope/rating", `{"rating":3}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStats(t *testing.T) {
	f := newAPIFixture(t)

	rec, env := f.request(t, http.MethodGet, "/api/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got models.SignalStatistics
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, 4, got.Total)
	assert.Equal(t, 3, got.Unrated)

	f.rater.statsErr = errors.New("scan failed")
	rec, _ = f.request(t, http.MethodGet, "/api/stats", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestDiagnostics(t *testing.T) {
	f := newAPIFixture(t)

	rec, env := f.request(t, http.MethodGet, "/api/diagnostics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(env.Data), `"total_requests":12`)
	assert.NotContains(t, string(env.Data), `"quality"`)
	assert.Equal(t, 0, f.diag.checks)
}

func TestDiagnosticsQualityIsRateLimited(t *testing.T) {
	f := newAPIFixture(t)

	for i := 0; i < 2; i++ {
		rec, env := f.request(t, http.MethodGet, "/api/diagnostics?quality=true", "")
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i)
		assert.Contains(t, string(env.Data), `"accuracy":1`)
	}
	rec, _ := f.request(t, http.MethodGet, "/api/diagnostics?quality=true", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, 2, f.diag.checks, "limited request must not reach the classifier")
}

func TestTriggerRun(t *testing.T) {
	f := newAPIFixture(t)

	rec, env := f.request(t, http.MethodPost, "/api/runs", "")
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, http.StatusAccepted, env.Status)
	assert.Equal(t, 1, f.runner.calls)

	f.runner.err = usecase.ErrRunInFlight
	rec, env = f.request(t, http.MethodPost, "/api/runs", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, string(env.Data), "ERR_CONFLICT")
}

func TestTriggerRunRateLimited(t *testing.T) {
	f := newAPIFixture(t)

	for i := 0; i < 3; i++ {
		rec, _ := f.request(t, http.MethodPost, "/api/runs", "")
		require.Equal(t, http.StatusAccepted, rec.Code, "request %d", i)
	}
	rec, _ := f.request(t, http.MethodPost, "/api/runs", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, 3, f.runner.calls)
}
