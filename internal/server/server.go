// Package server exposes the suggestion engine over HTTP.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"bank-reconciliation-engine/internal/reconciler"
	"bank-reconciliation-engine/pkg/errors"
	"bank-reconciliation-engine/pkg/logger"
)

// Runner is the service surface the HTTP layer needs.
type Runner interface {
	Run(ctx context.Context, req *reconciler.RunRequest) (*reconciler.RunResult, error)
}

// Server wires the HTTP routes around a suggestion service.
type Server struct {
	service Runner
	log     logger.Logger
	engine  *gin.Engine
}

// New builds the HTTP server around the given service.
func New(service Runner, log logger.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		service: service,
		log:     logger.OrDiscard(log).WithComponent("server"),
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(s.requestLogger())
	r.Use(corsMiddleware())

	r.GET("/healthz", s.handleHealth)

	v1 := r.Group("/v1")
	{
		v1.POST("/reconciliation/runs", s.handleRun)
	}

	s.engine = r
	return s
}

// Handler returns the http.Handler for serving or for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run starts listening on addr and blocks until the server stops.
func (s *Server) Run(addr string) error {
	s.log.WithField("addr", addr).Info("http server listening")
	return s.engine.Run(addr)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleRun(c *gin.Context) {
	var req reconciler.RunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, errors.Wrap(err, errors.CategoryValidation,
			errors.CodeInvalidRequest, "malformed request body"))
		return
	}

	result, err := s.service.Run(c.Request.Context(), &req)
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    result,
	})
}

func (s *Server) respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	body := gin.H{
		"code":    string(errors.CodeUnexpected),
		"message": err.Error(),
	}

	if engineErr, ok := errors.AsEngineError(err); ok {
		status = statusFor(engineErr.Category)
		body = gin.H{
			"category": string(engineErr.Category),
			"code":     string(engineErr.Code),
			"message":  engineErr.Message,
		}
		if engineErr.Suggestion != "" {
			body["suggestion"] = engineErr.Suggestion
		}
	}

	s.log.WithError(err).WithFields(logger.Fields{
		"status": status,
		"path":   c.Request.URL.Path,
	}).Warn("request failed")

	c.JSON(status, gin.H{
		"success": false,
		"error":   body,
	})
}

// statusFor maps error categories to HTTP status codes. Caller mistakes are
// 400s; everything else is the server's problem.
func statusFor(category errors.ErrorCategory) int {
	switch category {
	case errors.CategoryPrecondition, errors.CategoryValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.WithFields(logger.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		}).Debug("request handled")
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
