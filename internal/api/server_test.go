package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anc-caregap-server/internal/domain"
	"github.com/anc-caregap-server/internal/metrics"
	"github.com/anc-caregap-server/internal/outcome"
	"github.com/anc-caregap-server/internal/service"
)

// staticConfig is a ConfigManager over a fixed Config.
type staticConfig struct{ cfg *domain.Config }

func (s staticConfig) GetConfig() *domain.Config               { return s.cfg }
func (s staticConfig) GetServerConfig() *domain.ServerConfig   { return &s.cfg.Server }
func (s staticConfig) GetScoringConfig() *domain.ScoringConfig { return &s.cfg.Scoring }
func (s staticConfig) GetStorageConfig() *domain.StorageConfig { return &s.cfg.Storage }
func (s staticConfig) GetCacheConfig() *domain.CacheConfig     { return &s.cfg.Cache }
func (s staticConfig) GetLoggingConfig() *domain.LoggingConfig { return &s.cfg.Logging }
func (s staticConfig) Validate() error                         { return nil }

func testConfig() *domain.Config {
	return &domain.Config{
		Server: domain.ServerConfig{
			Port:           8080,
			RequestTimeout: 5 * time.Second,
			AllowedOrigins: []string{"*"},
		},
		Scoring:   domain.ScoringConfig{Strategy: domain.StrategyHeuristic, Heuristic: domain.BalancedWeights()},
		RateLimit: domain.RateLimitConfig{Enabled: false},
		Logging:   domain.LoggingConfig{Level: "info"},
		Metrics:   domain.MetricsConfig{Enabled: true, Path: "/metrics"},
	}
}

func newTestServer(t *testing.T, cfg *domain.Config) *Server {
	t.Helper()
	logger, _ := test.NewNullLogger()

	h, err := service.NewHeuristicScorer(cfg.Scoring.Heuristic)
	require.NoError(t, err)
	m := metrics.New()
	assessments := service.NewAssessmentService(h, h, logger, service.WithMetrics(m))

	store, err := outcome.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	outcomes := service.NewOutcomeService(store, assessments, logger)

	s := NewServer(staticConfig{cfg}, assessments, outcomes, m, logger)
	gin.SetMode(gin.TestMode)
	return s
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

const highRiskBody = `{"age":17,"parity":5,"late_initiator":true,"education":"NONE",
	"has_insurance":false,"ever_given_birth":true,"marital_status":"NOT_IN_UNION"}`

const balancedBody = `{"age":28,"parity":1,"late_initiator":false,"education":"Higher",
	"has_insurance":true,"ever_given_birth":true,"marital_status":"Married"}`

func TestHealth(t *testing.T) {
	s := newTestServer(t, testConfig())

	w := do(t, s, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, Version, body["version"])
	scorer := body["scorer"].(map[string]interface{})
	assert.Equal(t, "heuristic", scorer["name"])
	assert.NotEmpty(t, w.Header().Get("X-Correlation-ID"))
}

func TestForm(t *testing.T) {
	s := newTestServer(t, testConfig())

	w := do(t, s, http.MethodGet, "/api/v1/form", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Fields []FormField `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Fields, 7)
	assert.Equal(t, "age", body.Fields[0].Name)
	assert.Equal(t, 15, *body.Fields[0].Min)
	assert.Equal(t, 49, *body.Fields[0].Max)
	assert.Equal(t, 25.0, body.Fields[0].Default)
	assert.Len(t, body.Fields[3].Options, 4)
	assert.Len(t, body.Fields[6].Options, 3)
}

func TestAssessHighRisk(t *testing.T) {
	s := newTestServer(t, testConfig())

	w := do(t, s, http.MethodPost, "/api/v1/assessments", highRiskBody)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var a domain.RiskAssessment
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &a))
	assert.Equal(t, domain.HIGH_RISK, a.Tier)
	assert.Equal(t, "🔴 HIGH RISK", a.TierLabel)
	assert.Equal(t, "95.0%", a.ScorePercent)
	assert.NotEmpty(t, a.ID)
	assert.Len(t, a.Recommendations, 4)
}

func TestAssessAcceptsFormLabels(t *testing.T) {
	s := newTestServer(t, testConfig())

	w := do(t, s, http.MethodPost, "/api/v1/assessments", balancedBody)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var a domain.RiskAssessment
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &a))
	assert.Equal(t, domain.LOW_RISK, a.Tier)
	assert.Contains(t, a.ContributingFactors, domain.NoRiskFactorsMessage)
}

func TestAssessErrors(t *testing.T) {
	s := newTestServer(t, testConfig())

	tests := []struct {
		name string
		body string
	}{
		{"malformed", `{"age":`},
		{"age out of range", `{"age":50,"parity":1,"education":"NONE","marital_status":"MARRIED"}`},
		{"unknown education", `{"age":30,"parity":1,"education":"PHD","marital_status":"MARRIED"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, s, http.MethodPost, "/api/v1/assessments", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)

			var se domain.ServiceError
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &se))
			assert.Equal(t, domain.CodeInvalidInput, se.Code)
			assert.NotEmpty(t, se.RequestID)
		})
	}
}

func TestDescribeFactorsRoute(t *testing.T) {
	s := newTestServer(t, testConfig())

	w := do(t, s, http.MethodPost, "/api/v1/factors", highRiskBody)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), domain.FactorLateInitiation)
}

func TestOutcomeLifecycle(t *testing.T) {
	s := newTestServer(t, testConfig())

	body := strings.Replace(highRiskBody, "{", `{"components_received":2,"components_tracked":5,"notes":"no HIV test",`, 1)
	w := do(t, s, http.MethodPost, "/api/v1/outcomes", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var o outcome.Outcome
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &o))
	assert.True(t, o.CareGap)
	assert.Equal(t, domain.HIGH_RISK, o.PredictedTier)

	w = do(t, s, http.MethodGet, "/api/v1/outcomes?limit=10", "")
	require.Equal(t, http.StatusOK, w.Code)
	var page service.OutcomePage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Equal(t, int64(1), page.Total)
	assert.Equal(t, 10, page.Limit)

	w = do(t, s, http.MethodGet, "/api/v1/outcomes/export", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")
	exported := w.Body.String()

	w = do(t, s, http.MethodDelete, "/api/v1/outcomes/"+strconv.FormatInt(o.ID, 10), "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = do(t, s, http.MethodGet, "/api/v1/outcomes/"+strconv.FormatInt(o.ID, 10), "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = do(t, s, http.MethodDelete, "/api/v1/outcomes/"+strconv.FormatInt(o.ID, 10), "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, s, http.MethodPost, "/api/v1/outcomes/import", exported)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"imported":1,"skipped":0}`, w.Body.String())
}

func TestOutcomeErrors(t *testing.T) {
	s := newTestServer(t, testConfig())

	body := strings.Replace(highRiskBody, "{", `{"components_received":7,"components_tracked":5,`, 1)
	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodPost, "/api/v1/outcomes", body).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodGet, "/api/v1/outcomes?limit=ten", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodDelete, "/api/v1/outcomes/abc", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodPost, "/api/v1/outcomes/import", "[").Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, testConfig())
	do(t, s, http.MethodPost, "/api/v1/assessments", highRiskBody)

	w := do(t, s, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `anc_assessments_total{scorer="heuristic",tier="HIGH_RISK"} 1`)
}

func TestRateLimitEnabled(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit = domain.RateLimitConfig{Enabled: true, RequestsPerSecond: 0.001, Burst: 1}
	s := newTestServer(t, cfg)

	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/health", "").Code)
	w := do(t, s, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	var body domain.ServiceError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, domain.CodeRateLimit, body.Code)
	assert.NotEmpty(t, body.RequestID)
}

func TestStatusForCode(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, StatusForCode(domain.CodeInvalidInput))
	assert.Equal(t, http.StatusNotFound, StatusForCode(domain.CodeNotFound))
	assert.Equal(t, http.StatusTooManyRequests, StatusForCode(domain.CodeRateLimit))
	assert.Equal(t, http.StatusServiceUnavailable, StatusForCode(domain.CodeModelUnavailable))
	assert.Equal(t, http.StatusInternalServerError, StatusForCode(domain.CodeStorage))
	assert.Equal(t, http.StatusInternalServerError, StatusForCode(domain.CodeInternal))
}
