// Package httpapi provides the HTTP API for affectd.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/affectlab/affectd/internal/crisis"
	"github.com/affectlab/affectd/internal/emotion"
	"github.com/affectlab/affectd/internal/fusion"
	"github.com/affectlab/affectd/internal/service"
	"github.com/affectlab/affectd/internal/wellness"
)

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
}

// Server exposes the affectd operations over HTTP.
type Server struct {
	echo    *echo.Echo
	svc     *service.Service
	logger  *zap.Logger
	metrics *Metrics
	config  Config
}

// NewServer creates the HTTP server around an application service.
func NewServer(svc *service.Service, logger *zap.Logger, cfg Config) (*Server, error) {
	if svc == nil {
		return nil, fmt.Errorf("service is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 8005
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:    e,
		svc:     svc,
		logger:  logger,
		metrics: NewMetrics(),
		config:  cfg,
	}

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(s.instrument)

	s.registerRoutes()
	return s, nil
}

// instrument logs each request and records the request metrics. The
// route path keeps parameterized segments so metric cardinality stays
// bounded.
func (s *Server) instrument(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		duration := time.Since(start)

		path := c.Path()
		if path == "" {
			path = c.Request().URL.Path
		}
		status := c.Response().Status
		if err != nil {
			var httpErr *echo.HTTPError
			if errors.As(err, &httpErr) {
				status = httpErr.Code
			}
		}

		s.metrics.RequestsTotal.WithLabelValues(c.Request().Method, path, strconv.Itoa(status)).Inc()
		s.metrics.RequestDuration.WithLabelValues(c.Request().Method, path).Observe(duration.Seconds())

		s.logger.Info("http request",
			zap.String("method", c.Request().Method),
			zap.String("uri", c.Request().RequestURI),
			zap.Int("status", status),
			zap.Duration("duration", duration),
			zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
		)
		return err
	}
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/api/v1")
	v1.POST("/records", s.handleIngestRecord)
	v1.POST("/analyze/fusion", s.handleFusion)
	v1.POST("/analyze/message", s.handleAnalyzeMessage)
	v1.GET("/subjects/:id/patterns", s.handlePatterns)
	v1.POST("/wellness/score", s.handleWellnessScore)
}

// IngestRecordRequest is the request body for POST /api/v1/records.
type IngestRecordRequest struct {
	SubjectID  string    `json:"subject_id"`
	Modality   string    `json:"modality"`
	Emotion    string    `json:"emotion"`
	Score      float64   `json:"score"`
	Confidence float64   `json:"confidence"`
	Timestamp  time.Time `json:"timestamp"`
	SourceText string    `json:"source_text"`
}

// AnalyzeMessageRequest is the request body for POST /api/v1/analyze/message.
type AnalyzeMessageRequest struct {
	SubjectID string `json:"subject_id"`
	Message   string `json:"message"`
}

// FusionRequest is the request body for POST /api/v1/analyze/fusion.
type FusionRequest struct {
	Readings map[string]fusion.Reading `json:"readings"`
}

// WellnessScoreRequest is the request body for POST /api/v1/wellness/score.
type WellnessScoreRequest struct {
	SubjectID string           `json:"subject_id"`
	Factors   wellness.Factors `json:"factors"`
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status    string            `json:"status"`
	Inference map[string]string `json:"inference"`
}

// handleHealth reports liveness plus the reachability of the modality
// inference services.
func (s *Server) handleHealth(c echo.Context) error {
	inference := make(map[string]string)
	for modality, status := range s.svc.InferenceHealth(c.Request().Context()) {
		inference[string(modality)] = status
	}
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok", Inference: inference})
}

// handleIngestRecord normalizes and stores one emotion record.
func (s *Server) handleIngestRecord(c echo.Context) error {
	var req IngestRecordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	rec, err := s.svc.Ingest(req.SubjectID, emotion.Modality(req.Modality), emotion.Reading{
		Emotion:    emotion.Label(req.Emotion),
		Score:      req.Score,
		Confidence: req.Confidence,
		Timestamp:  req.Timestamp,
		SourceText: req.SourceText,
	})
	if err != nil {
		if errors.Is(err, emotion.ErrInvalidRecord) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to ingest record")
	}

	s.metrics.RecordsIngestedTotal.WithLabelValues(string(rec.Modality)).Inc()
	return c.JSON(http.StatusCreated, rec)
}

// handleFusion fuses simultaneous per-modality readings.
func (s *Server) handleFusion(c echo.Context) error {
	var req FusionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	input := make(fusion.Input, len(req.Readings))
	for name, reading := range req.Readings {
		input[emotion.Modality(name)] = reading
	}

	result, err := s.svc.Fuse(input)
	if err != nil {
		if errors.Is(err, fusion.ErrInvalidInput) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "fusion failed")
	}

	s.metrics.FusionsTotal.Inc()
	return c.JSON(http.StatusOK, result)
}

// handleAnalyzeMessage runs text inference plus crisis screening on one
// message.
func (s *Server) handleAnalyzeMessage(c echo.Context) error {
	var req AnalyzeMessageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Message == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "message field is required")
	}

	analysis, err := s.svc.AnalyzeMessage(c.Request().Context(), req.SubjectID, req.Message)
	if err != nil {
		if errors.Is(err, emotion.ErrInvalidRecord) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "message analysis failed")
	}

	s.metrics.RecordsIngestedTotal.WithLabelValues(string(analysis.Record.Modality)).Inc()
	if analysis.Crisis.Level != crisis.LevelNone {
		s.metrics.CrisisDetectedTotal.WithLabelValues(string(analysis.Crisis.Level)).Inc()
	}
	return c.JSON(http.StatusOK, analysis)
}

// handlePatterns returns the temporal pattern report for a subject.
func (s *Server) handlePatterns(c echo.Context) error {
	subjectID := c.Param("id")
	if subjectID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "subject id is required")
	}
	return c.JSON(http.StatusOK, s.svc.Patterns(subjectID))
}

// handleWellnessScore computes a subject's composite wellness score.
func (s *Server) handleWellnessScore(c echo.Context) error {
	var req WellnessScoreRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.SubjectID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "subject_id field is required")
	}

	score, err := s.svc.ScoreWellness(req.SubjectID, req.Factors)
	if err != nil {
		if errors.Is(err, wellness.ErrInvalidFactors) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "wellness scoring failed")
	}

	s.metrics.WellnessScoresTotal.Inc()
	return c.JSON(http.StatusOK, score)
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
