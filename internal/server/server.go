// Package server exposes the idea service as a JSON API.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/letieu/strategia/internal/analysis"
	"github.com/letieu/strategia/internal/library"
	"github.com/letieu/strategia/internal/license"
)

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

type Server struct {
	echo     *echo.Echo
	analyzer *analysis.Analyzer
	library  *library.Library
	licenses *license.Manager
	logger   *zap.Logger
	apiKey   string
	now      func() time.Time
}

type Option func(*Server)

// WithAPIKey requires every /api request to carry the key in X-API-Key.
func WithAPIKey(key string) Option {
	return func(s *Server) { s.apiKey = key }
}

func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

func New(analyzer *analysis.Analyzer, lib *library.Library, licenses *license.Manager, logger *zap.Logger, opts ...Option) *Server {
	s := &Server{
		echo:     echo.New(),
		analyzer: analyzer,
		library:  lib,
		licenses: licenses,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.HTTPErrorHandler = s.handleError
	s.echo.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			s.logger.Info("request",
				zap.String("id", v.RequestID),
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
			)
			return nil
		},
	}))
	s.routes()
	return s
}

func (s *Server) routes() {
	s.echo.GET("/healthz", s.handleHealthCheck)

	api := s.echo.Group("/api/v1", s.auth)

	api.POST("/ideas/generate", s.handleGenerate)
	api.POST("/ideas/refine", s.handleRefine)
	api.GET("/ideas", s.handleListCurrent)
	api.POST("/ideas/images", s.handleImages)
	api.POST("/ideas/:id/analysis", s.handleAnalyze)
	api.POST("/ideas/:id/names", s.handleNames)
	api.POST("/ideas/:id/marketing", s.handleMarketing)
	api.POST("/ideas/:id/mvp", s.handleMVP)
	api.GET("/analysis", s.handleSelectedAnalysis)
	api.POST("/compare", s.handleCompare)

	api.GET("/saved", s.handleListSaved)
	api.PUT("/saved/:id", s.handleSave)
	api.DELETE("/saved/:id", s.handleUnsave)
	api.GET("/saved/:id/similar", s.handleSimilar)

	api.GET("/export", s.handleExport)

	api.GET("/license", s.handleLicense)
	api.POST("/license", s.handleActivate)
	api.DELETE("/license", s.handleDeactivate)
	api.GET("/usage", s.handleUsage)

	api.GET("/preferences/theme", s.handleTheme)
	api.PUT("/preferences/theme", s.handleSetTheme)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("addr", addr))
		errc <- s.echo.Start(addr)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// auth checks X-API-Key when a key is configured.
func (s *Server) auth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if s.apiKey == "" {
			return next(c)
		}
		if c.Request().Header.Get("X-API-Key") != s.apiKey {
			return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized: Invalid API key")
		}
		return next(c)
	}
}

// handleError writes every error as an ErrorResponse.
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code, msg := http.StatusInternalServerError, "internal server error"
	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		code = he.Code
		if m, ok := he.Message.(string); ok {
			msg = m
		} else {
			msg = http.StatusText(code)
		}
	case errors.Is(err, license.ErrQuotaExceeded):
		code, msg = http.StatusPaymentRequired, err.Error()
	case errors.Is(err, license.ErrFeatureLocked):
		code, msg = http.StatusForbidden, err.Error()
	case errors.Is(err, library.ErrNotFound):
		code, msg = http.StatusNotFound, err.Error()
	case errors.Is(err, license.ErrInvalidKey), errors.Is(err, analysis.ErrCompareCount):
		code, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, library.ErrSimilarityDisabled), errors.Is(err, analysis.ErrImagesDisabled):
		code, msg = http.StatusNotImplemented, err.Error()
	case errors.Is(err, errNoResult):
		code, msg = http.StatusBadGateway, err.Error()
	case errors.Is(err, context.Canceled):
		// Client went away.
		return
	}

	if code >= http.StatusInternalServerError && code != http.StatusNotImplemented && code != http.StatusBadGateway {
		s.logger.Error("request failed",
			zap.String("id", c.Response().Header().Get(echo.HeaderXRequestID)),
			zap.Error(err),
		)
	}

	if err := c.JSON(code, ErrorResponse{Error: msg, Code: code}); err != nil {
		s.logger.Debug("write error response", zap.Error(err))
	}
}

func (s *Server) handleHealthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
