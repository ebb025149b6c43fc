package server

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/ppiankov/hazardscore/internal/model"
	"github.com/ppiankov/hazardscore/internal/worker"
)

// Service is the scoring surface the HTTP layer exposes
type Service interface {
	Submit(ctx context.Context, sub model.Submission) (*model.SubmitResult, error)
	Dashboard(ctx context.Context) ([]model.DashboardEntry, error)
	Ready(ctx context.Context) bool
}

// ErrorResp is the body of every non-2xx response
type ErrorResp struct {
	Error string `json:"error"`
}

// Server wires the HTTP routes to a Service
type Server struct {
	app        *fiber.App
	service    Service
	limiter    *worker.Limiter
	strict     bool
	timeout    time.Duration
	requestLog bool
	logger     *slog.Logger
}

// Option customises a Server
type Option func(*Server)

// WithLogger sets the logger (defaults to slog.Default)
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithoutRequestLog disables the per-request access log
func WithoutRequestLog() Option {
	return func(s *Server) { s.requestLog = false }
}

// New builds the fiber app with middleware and routes
func New(cfg model.ServerConfig, rl model.RateLimitingConfig, service Service, opts ...Option) *Server {
	s := &Server{
		service:    service,
		limiter:    worker.NewLimiter(rl.RequestsPerSecond, rl.BurstSize),
		strict:     cfg.StrictCoordinates,
		timeout:    cfg.RequestTimeout,
		requestLog: true,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "hazardscore",
		DisableStartupMessage: true,
		ErrorHandler:          s.errorHandler,
	})
	s.app.Use(recover.New())

	if s.requestLog {
		s.app.Use(logger.New(logger.Config{
			TimeFormat: "15:04:05",
			Output:     os.Stderr,
		}))
	}

	s.app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(originsOrDefault(cfg.AllowOrigins), ","),
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "*",
		MaxAge:       int((12 * time.Hour).Seconds()),
	}))

	s.app.Get("/healthz", func(c *fiber.Ctx) error { return c.SendString("ok") })
	s.app.Get("/readyz", s.handleReady)
	s.app.Post("/report", s.handleReport)
	s.app.Get("/dashboard", s.handleDashboard)

	return s
}

// App exposes the underlying fiber app (used by tests)
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves until Shutdown is called
func (s *Server) Listen(addr string) error {
	s.logger.Info("API listening", "addr", addr)
	return s.app.Listen(addr)
}

// Shutdown stops the server, waiting for in-flight requests until ctx expires
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) handleReport(c *fiber.Ctx) error {
	var sub model.Submission
	if err := c.BodyParser(&sub); err != nil {
		return badReq(c, "invalid JSON")
	}
	if err := sub.Validate(s.strict); err != nil {
		return badReq(c, err.Error())
	}

	if !s.limiter.Allow(sub.UserID) {
		return c.Status(fiber.StatusTooManyRequests).JSON(ErrorResp{Error: "rate limit exceeded"})
	}

	ctx := c.UserContext()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	res, err := s.service.Submit(ctx, sub)
	if err != nil {
		s.logger.Error("submit report", "user", sub.UserID, "error", err)
		return serverErr(c, err)
	}

	return c.JSON(res)
}

func (s *Server) handleDashboard(c *fiber.Ctx) error {
	entries, err := s.service.Dashboard(c.UserContext())
	if err != nil {
		s.logger.Error("load dashboard", "error", err)
		return serverErr(c, err)
	}
	return c.JSON(entries)
}

func (s *Server) handleReady(c *fiber.Ctx) error {
	if !s.service.Ready(c.UserContext()) {
		return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResp{Error: "classifier unavailable"})
	}
	return c.SendString("ready")
}

func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(ErrorResp{Error: err.Error()})
}

func badReq(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(ErrorResp{Error: msg})
}

func serverErr(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusInternalServerError).JSON(ErrorResp{Error: err.Error()})
}

func originsOrDefault(origins []string) []string {
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}
