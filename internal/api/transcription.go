package api

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"pdfscribe/internal/domain"
	"pdfscribe/internal/usecase"
)

func (s *Server) issueSession(c *fiber.Ctx) error {
	grant, err := s.deps.Issuer.Issue(c.UserContext())
	if err != nil {
		s.logger.Error("issue transcription session failed", "error", err)
		return jsonError(c, fiber.StatusInternalServerError, "Internal Server Error")
	}
	return c.JSON(grant)
}

func (s *Server) suggest(c *fiber.Ctx) error {
	var req domain.SuggestionRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid JSON")
	}
	if strings.TrimSpace(req.Transcript) == "" && req.ScreenImage == "" {
		return jsonError(c, fiber.StatusBadRequest, "Either transcript or screen image is required")
	}

	suggestion, err := s.deps.Suggester.Suggest(c.UserContext(), req)
	if err != nil {
		s.logger.Error("suggestion failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "Internal Server Error",
			"details": err.Error(),
		})
	}
	return c.JSON(fiber.Map{
		"suggestion": suggestion.Text,
		"none":       suggestion.None,
		"success":    true,
	})
}

func (s *Server) snapshot(c *fiber.Ctx) error {
	return c.JSON(s.deps.Session.Snapshot())
}

func (s *Server) fetchCredential(c *fiber.Ctx) error {
	return s.sessionResult(c, s.deps.Session.FetchCredential(c.UserContext()))
}

func (s *Server) connect(c *fiber.Ctx) error {
	return s.sessionResult(c, s.deps.Session.Connect(c.UserContext()))
}

func (s *Server) disconnect(c *fiber.Ctx) error {
	s.deps.Session.Disconnect()
	return s.snapshot(c)
}

func (s *Server) startRecording(c *fiber.Ctx) error {
	return s.sessionResult(c, s.deps.Session.StartRecording(s.cfg.BaseContext))
}

func (s *Server) stopRecording(c *fiber.Ctx) error {
	s.deps.Session.StopRecording()
	return s.snapshot(c)
}

func (s *Server) clearTranscript(c *fiber.Ctx) error {
	s.deps.Session.ClearTranscript()
	return s.snapshot(c)
}

func (s *Server) clearLogs(c *fiber.Ctx) error {
	s.deps.Session.ClearLogs()
	return s.snapshot(c)
}

func (s *Server) clearError(c *fiber.Ctx) error {
	s.deps.Session.ClearError()
	return s.snapshot(c)
}

// sessionResult answers with the snapshot, or with the failure and the
// snapshot it left behind.
func (s *Server) sessionResult(c *fiber.Ctx, err error) error {
	if err == nil {
		return s.snapshot(c)
	}
	kind, _ := domain.KindOf(err)
	return c.Status(sessionStatusCode(err)).JSON(fiber.Map{
		"error":    err.Error(),
		"kind":     kind,
		"snapshot": s.deps.Session.Snapshot(),
	})
}

func sessionStatusCode(err error) int {
	switch {
	case errors.Is(err, domain.ErrMissingCredential),
		errors.Is(err, domain.ErrAlreadyConnected),
		errors.Is(err, domain.ErrAlreadyRecording):
		return fiber.StatusConflict
	}
	switch kind, _ := domain.KindOf(err); kind {
	case domain.ErrorKindCredential, domain.ErrorKindConnection:
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

type frameRequest struct {
	Image string `json:"image"`
}

func (s *Server) startAssist(c *fiber.Ctx) error {
	s.deps.Assistant.Start(s.cfg.BaseContext)
	return c.JSON(fiber.Map{"active": s.deps.Assistant.Active()})
}

func (s *Server) stopAssist(c *fiber.Ctx) error {
	s.deps.Assistant.Stop()
	return c.JSON(fiber.Map{"active": s.deps.Assistant.Active()})
}

func (s *Server) submitFrame(c *fiber.Ctx) error {
	var req frameRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid JSON")
	}
	if err := s.deps.Assistant.SubmitFrame(req.Image); err != nil {
		if errors.Is(err, usecase.ErrInvalidFrame) {
			return jsonError(c, fiber.StatusBadRequest, err.Error())
		}
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) setFocus(c *fiber.Ctx) error {
	body := c.Body()
	if len(strings.TrimSpace(string(body))) == 0 || strings.TrimSpace(string(body)) == "null" {
		s.deps.Assistant.SetFocus(nil)
		return c.SendStatus(fiber.StatusNoContent)
	}
	var focus domain.FieldFocus
	if err := c.BodyParser(&focus); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid JSON")
	}
	s.deps.Assistant.SetFocus(&focus)
	return c.SendStatus(fiber.StatusNoContent)
}
