// Package api serves the PDF, credential, suggestion and transcription
// endpoints over fiber.
package api

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"pdfscribe/internal/credential"
	"pdfscribe/internal/domain"
	"pdfscribe/internal/logging"
	"pdfscribe/internal/pdfstore"
	"pdfscribe/internal/ports"
)

// GrantIssuer mints ephemeral transcription credentials for browsers.
type GrantIssuer interface {
	Issue(ctx context.Context) (credential.Grant, error)
}

// Transcription is the session surface the API drives.
type Transcription interface {
	FetchCredential(ctx context.Context) error
	Connect(ctx context.Context) error
	Disconnect()
	StartRecording(ctx context.Context) error
	StopRecording()
	ClearTranscript()
	ClearLogs()
	ClearError()
	Snapshot() domain.Snapshot
}

// Assist is the AI mode surface.
type Assist interface {
	Start(ctx context.Context)
	Stop()
	Active() bool
	SetFocus(focus *domain.FieldFocus)
	SubmitFrame(dataURL string) error
}

// AudioFeed accepts browser-captured audio frames.
type AudioFeed interface {
	Attach() (detach func(), err error)
	Write(frame []byte) bool
}

type Deps struct {
	Store     *pdfstore.Store
	Issuer    GrantIssuer
	Suggester ports.Suggester
	Session   Transcription
	Assistant Assist
	Feed      AudioFeed
	Hub       *Hub
}

type Config struct {
	MaxUploadBytes int
	// BaseContext outlives requests; long-running work started by a request
	// (recording, AI mode) derives from it.
	BaseContext context.Context
}

// Server owns the fiber application.
type Server struct {
	deps   Deps
	cfg    Config
	app    *fiber.App
	logger *slog.Logger
}

func New(deps Deps, cfg Config) *Server {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 50 * 1024 * 1024
	}
	if cfg.BaseContext == nil {
		cfg.BaseContext = context.Background()
	}
	if deps.Hub == nil {
		deps.Hub = NewHub()
	}

	s := &Server{deps: deps, cfg: cfg, logger: logging.For("api")}
	s.app = fiber.New(fiber.Config{
		AppName:               "pdfscribe",
		BodyLimit:             cfg.MaxUploadBytes + 1024*1024,
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})
	s.app.Use(s.logRequests)
	s.routes()
	return s
}

// App exposes the fiber application for listeners and adapters.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) Listen(addr string) error {
	s.logger.Info("listening", "addr", addr)
	return s.app.Listen(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) routes() {
	api := s.app.Group("/api")
	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	if s.deps.Store != nil {
		api.Get("/pdfs", s.listPDFs)
		api.Get("/pdfs/:name", s.getPDF)
		api.Post("/pdfs/:name/save", s.savePDF)
		api.Post("/upload", s.uploadPDF)
	}
	if s.deps.Issuer != nil {
		api.Get("/session", s.issueSession)
	}
	if s.deps.Suggester != nil {
		api.Post("/suggestions", s.suggest)
	}

	if s.deps.Session != nil {
		tr := api.Group("/transcription")
		tr.Get("/", s.snapshot)
		tr.Post("/credential", s.fetchCredential)
		tr.Post("/connect", s.connect)
		tr.Post("/disconnect", s.disconnect)
		tr.Post("/recording/start", s.startRecording)
		tr.Post("/recording/stop", s.stopRecording)
		tr.Delete("/transcript", s.clearTranscript)
		tr.Delete("/logs", s.clearLogs)
		tr.Delete("/error", s.clearError)
		tr.Use("/ws", requireUpgrade)
		tr.Get("/ws", s.socket())
	}

	if s.deps.Assistant != nil {
		as := api.Group("/assist")
		as.Post("/start", s.startAssist)
		as.Post("/stop", s.stopAssist)
		as.Post("/frame", s.submitFrame)
		as.Put("/focus", s.setFocus)
	}
}

func (s *Server) logRequests(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	s.logger.Debug("request",
		"method", c.Method(),
		"path", c.Path(),
		"status", c.Response().StatusCode(),
		"duration", time.Since(start),
	)
	return err
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	if code >= fiber.StatusInternalServerError {
		s.logger.Error("request failed", "path", c.Path(), "error", err)
		return c.Status(code).JSON(fiber.Map{"error": "Internal Server Error"})
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}

func jsonError(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{"error": message})
}
