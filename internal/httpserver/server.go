// Package httpserver exposes the gallery's search, stats and delete
// operations over a small JSON API for the UI.
package httpserver

import (
	"context"
	"crypto/rand"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/promptkeep/promptkeep/internal/conf"
	"github.com/promptkeep/promptkeep/internal/gallery"
	"github.com/promptkeep/promptkeep/internal/logging"
)

// Server wires the echo instance and routes over one gallery service.
type Server struct {
	Echo     *echo.Echo
	Settings *conf.Settings

	gallery *gallery.Service
	logger  *slog.Logger
}

// New configures routes and middleware; the server is not listening yet.
func New(settings *conf.Settings, svc *gallery.Service) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	s := &Server{
		Echo:     e,
		Settings: settings,
		gallery:  svc,
		logger:   logging.ForService("httpserver"),
	}
	s.initRoutes()
	return s
}

func (s *Server) initRoutes() {
	g := s.Echo.Group("/api/v1")

	g.GET("/images", s.SearchImages)
	g.DELETE("/images/:id", s.DeleteImage)
	g.GET("/stats/totals", s.StatsTotals)
	g.GET("/stats/groupby/:field", s.StatsGroupBy)
	g.GET("/choices/:field", s.FieldChoices)
	g.GET("/health", s.Health)
}

// Start listens on the configured port and blocks until the server stops.
func (s *Server) Start() error {
	addr := ":" + s.Settings.WebServer.Port
	s.logger.Info("starting web server", "address", addr)
	return s.Echo.Start(addr)
}

// Shutdown stops the server, waiting for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.Echo.Shutdown(ctx)
}

// ErrorResponse is the JSON error body for every failed API call.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	Code          int    `json:"code"`
	CorrelationID string `json:"correlation_id"`
}

// HandleError logs an error with a correlation ID and writes the JSON
// error response.
func (s *Server) HandleError(ctx echo.Context, err error, message string, code int) error {
	resp := &ErrorResponse{
		Error:         err.Error(),
		Message:       message,
		Code:          code,
		CorrelationID: generateCorrelationID(),
	}

	s.logger.Error("API error",
		"correlation_id", resp.CorrelationID,
		"message", message,
		"path", ctx.Request().URL.Path,
		"ip", ctx.RealIP(),
		"error", err)

	return ctx.JSON(code, resp)
}

// generateCorrelationID creates a short random identifier for error
// tracking across logs and responses.
func generateCorrelationID() string {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "ERR-RAND"
	}
	for i := range b {
		b[i] = charset[int(b[i])%len(charset)]
	}
	return string(b)
}

// Health reports liveness.
func (s *Server) Health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, map[string]any{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}
