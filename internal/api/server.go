// Package api exposes the assessment service and the outcome store over HTTP.
package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/anc-caregap-server/internal/domain"
	"github.com/anc-caregap-server/internal/metrics"
	"github.com/anc-caregap-server/internal/middleware"
	"github.com/anc-caregap-server/internal/service"
)

// Version is reported by /health.
const Version = "1.0.0"

// maxBodyBytes bounds request bodies; imports are the largest.
const maxBodyBytes = 32 << 20

// Server represents the HTTP server
type Server struct {
	configManager domain.ConfigManager
	assessments   *service.AssessmentService
	outcomes      *service.OutcomeService
	metrics       *metrics.Metrics
	logger        *logrus.Logger
	router        *gin.Engine
	server        *http.Server
}

// NewServer creates a new HTTP server instance. outcomes and m may be nil, in
// which case the outcome routes or the metrics endpoint are not registered.
func NewServer(
	configManager domain.ConfigManager,
	assessments *service.AssessmentService,
	outcomes *service.OutcomeService,
	m *metrics.Metrics,
	logger *logrus.Logger,
) *Server {
	cfg := configManager.GetConfig()

	// Set Gin mode based on environment
	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.CorrelationID())
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.AuditLogger(logger))
	router.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.RequestTimeout(cfg.Server.RequestTimeout))
	if cfg.RateLimit.Enabled {
		limiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
		router.Use(limiter.Middleware())
	}

	server := &Server{
		configManager: configManager,
		assessments:   assessments,
		outcomes:      outcomes,
		metrics:       m,
		logger:        logger,
		router:        router,
	}

	server.setupRoutes()

	return server
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	cfg := s.configManager.GetServerConfig()
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", addr).Info("HTTP server listening")
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s.logger.Info("Shutting down HTTP server")
	return s.server.Shutdown(shutdownCtx)
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	cfg := s.configManager.GetConfig()
	if cfg.Metrics.Enabled && s.metrics != nil {
		path := cfg.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		s.router.GET(path, gin.WrapH(s.metrics.Handler()))
	}

	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/form", s.handleForm)
		v1.POST("/assessments", s.handleAssess)
		v1.POST("/factors", s.handleDescribeFactors)

		if s.outcomes != nil {
			v1.POST("/outcomes", s.handleRecordOutcome)
			v1.GET("/outcomes", s.handleListOutcomes)
			v1.GET("/outcomes/export", s.handleExportOutcomes)
			v1.POST("/outcomes/import", s.handleImportOutcomes)
			v1.GET("/outcomes/:id", s.handleGetOutcome)
			v1.DELETE("/outcomes/:id", s.handleDeleteOutcome)
		}
	}
}

// handleHealth reports scorer identity and dependency health. A failing outcome
// store makes the service unhealthy; a failing cache only degrades it.
func (s *Server) handleHealth(c *gin.Context) {
	ctx := c.Request.Context()
	status := "healthy"
	code := http.StatusOK
	checks := gin.H{}

	if err := s.assessments.CacheHealth(ctx); err != nil {
		status = "degraded"
		checks["cache"] = err.Error()
	} else {
		checks["cache"] = "ok"
	}

	if s.outcomes != nil {
		if err := s.outcomes.Health(ctx); err != nil {
			status = "unhealthy"
			code = http.StatusServiceUnavailable
			checks["store"] = err.Error()
		} else {
			checks["store"] = "ok"
		}
	}

	c.JSON(code, gin.H{
		"status":    status,
		"timestamp": time.Now().UTC(),
		"version":   Version,
		"scorer":    s.assessments.ScorerInfo(),
		"checks":    checks,
	})
}

func (s *Server) handleAssess(c *gin.Context) {
	var profile domain.PatientProfile
	if !s.bind(c, &profile) {
		return
	}

	assessment, err := s.assessments.Assess(c.Request.Context(), profile)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, assessment)
}

func (s *Server) handleDescribeFactors(c *gin.Context) {
	var profile domain.PatientProfile
	if !s.bind(c, &profile) {
		return
	}

	factors, err := s.assessments.DescribeFactors(profile)
	if err != nil {
		s.writeError(c, err)
		return
	}
	if factors == nil {
		factors = []domain.Factor{}
	}
	c.JSON(http.StatusOK, gin.H{"factors": factors})
}

// outcomeRequest is a profile plus the observed component counts.
type outcomeRequest struct {
	domain.PatientProfile
	ComponentsReceived int    `json:"components_received"`
	ComponentsTracked  int    `json:"components_tracked"`
	Notes              string `json:"notes"`
}

func (s *Server) handleRecordOutcome(c *gin.Context) {
	var req outcomeRequest
	if !s.bind(c, &req) {
		return
	}

	o, err := s.outcomes.Record(c.Request.Context(), req.PatientProfile, req.ComponentsReceived, req.ComponentsTracked, req.Notes)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, o)
}

func (s *Server) handleListOutcomes(c *gin.Context) {
	limit, err1 := queryInt(c, "limit", service.DefaultOutcomePageSize)
	offset, err2 := queryInt(c, "offset", 0)
	if err := errors.Join(err1, err2); err != nil {
		s.writeError(c, domain.InvalidInput(err))
		return
	}

	page, err := s.outcomes.List(c.Request.Context(), limit, offset)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (s *Server) handleGetOutcome(c *gin.Context) {
	id, ok := s.pathID(c)
	if !ok {
		return
	}
	o, err := s.outcomes.Get(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (s *Server) handleDeleteOutcome(c *gin.Context) {
	id, ok := s.pathID(c)
	if !ok {
		return
	}
	if err := s.outcomes.Delete(c.Request.Context(), id); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleExportOutcomes(c *gin.Context) {
	var buf bytes.Buffer
	if err := s.outcomes.Export(c.Request.Context(), &buf); err != nil {
		s.writeError(c, err)
		return
	}
	filename := fmt.Sprintf("outcomes-%s.json", time.Now().UTC().Format("20060102-150405"))
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/json; charset=utf-8", buf.Bytes())
}

func (s *Server) handleImportOutcomes(c *gin.Context) {
	body := http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)
	imported, skipped, err := s.outcomes.Import(c.Request.Context(), body)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"imported": imported, "skipped": skipped})
}

// bind decodes the JSON body into v and writes a 400 on failure.
func (s *Server) bind(c *gin.Context, v interface{}) bool {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)
	if err := c.ShouldBindJSON(v); err != nil {
		s.writeError(c, domain.InvalidInput(fmt.Errorf("malformed JSON body: %w", err)))
		return false
	}
	return true
}

func (s *Server) pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		s.writeError(c, domain.InvalidInput(domain.NewValidationError("id", "must be a positive integer", c.Param("id"))))
		return 0, false
	}
	return id, true
}

func queryInt(c *gin.Context, key string, def int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.NewValidationError(key, "must be an integer", raw)
	}
	return n, nil
}

// writeError renders err as a ServiceError with the status its code maps to.
func (s *Server) writeError(c *gin.Context, err error) {
	var se *domain.ServiceError
	if !errors.As(err, &se) {
		se = domain.Internal(err)
	}
	out := *se
	out.RequestID = c.GetString(middleware.CorrelationIDKey)

	status := StatusForCode(out.Code)
	if status >= http.StatusInternalServerError {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"code":           out.Code,
			"correlation_id": out.RequestID,
		}).Error("Request failed")
	}
	c.AbortWithStatusJSON(status, &out)
}

// StatusForCode maps a service error code to its HTTP status.
func StatusForCode(code string) int {
	switch code {
	case domain.CodeInvalidInput:
		return http.StatusBadRequest
	case domain.CodeNotFound:
		return http.StatusNotFound
	case domain.CodeRateLimit:
		return http.StatusTooManyRequests
	case domain.CodeModelUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
