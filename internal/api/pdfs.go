package api

import (
	"errors"
	"io"
	"mime/multipart"
	"strings"

	"github.com/gofiber/fiber/v2"

	"pdfscribe/internal/pdfstore"
)

const pdfContentType = "application/pdf"

var (
	errNoFile     = errors.New("no file provided")
	errNotPDF     = errors.New("only PDF files are allowed")
	errFileTooBig = errors.New("file exceeds upload limit")
)

func (s *Server) listPDFs(c *fiber.Ctx) error {
	pdfs, err := s.deps.Store.List()
	if err != nil {
		s.logger.Error("list pdfs failed", "error", err)
		return jsonError(c, fiber.StatusInternalServerError, "Failed to list PDFs")
	}
	return c.JSON(fiber.Map{"pdfs": pdfs})
}

func (s *Server) getPDF(c *fiber.Ctx) error {
	data, filename, err := s.deps.Store.Read(c.Params("name"))
	if err != nil {
		return s.storeError(c, err, "Failed to serve PDF")
	}
	c.Set(fiber.HeaderContentType, pdfContentType)
	c.Set(fiber.HeaderContentDisposition, `inline; filename="`+filename+`"`)
	return c.Send(data)
}

func (s *Server) savePDF(c *fiber.Ctx) error {
	data, _, err := s.readPDFPart(c)
	if err != nil {
		return s.uploadError(c, err)
	}
	filename, err := s.deps.Store.Save(c.Params("name"), data)
	if err != nil {
		if errors.Is(err, pdfstore.ErrNotFound) {
			return jsonError(c, fiber.StatusNotFound, "Original PDF not found")
		}
		return s.storeError(c, err, "Failed to save PDF")
	}
	return c.JSON(fiber.Map{"message": "PDF saved successfully", "filename": filename})
}

func (s *Server) uploadPDF(c *fiber.Ctx) error {
	data, original, err := s.readPDFPart(c)
	if err != nil {
		return s.uploadError(c, err)
	}
	result, err := s.deps.Store.Upload(original, data)
	if err != nil {
		return s.storeError(c, err, "Upload failed")
	}
	return c.JSON(fiber.Map{
		"message":      "File uploaded successfully",
		"filename":     result.Filename,
		"originalName": result.OriginalName,
	})
}

// readPDFPart returns the "file" form part, which must declare application/pdf.
func (s *Server) readPDFPart(c *fiber.Ctx) ([]byte, string, error) {
	header, err := c.FormFile("file")
	if err != nil {
		return nil, "", errNoFile
	}
	if !isPDFPart(header) {
		return nil, "", errNotPDF
	}
	if header.Size > int64(s.cfg.MaxUploadBytes) {
		return nil, "", errFileTooBig
	}
	file, err := header.Open()
	if err != nil {
		return nil, "", err
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, int64(s.cfg.MaxUploadBytes)+1))
	if err != nil {
		return nil, "", err
	}
	if len(data) > s.cfg.MaxUploadBytes {
		return nil, "", errFileTooBig
	}
	return data, header.Filename, nil
}

func isPDFPart(header *multipart.FileHeader) bool {
	declared := header.Header.Get(fiber.HeaderContentType)
	mediaType, _, _ := strings.Cut(declared, ";")
	return strings.EqualFold(strings.TrimSpace(mediaType), pdfContentType)
}

func (s *Server) uploadError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, errNoFile):
		return jsonError(c, fiber.StatusBadRequest, "No file uploaded")
	case errors.Is(err, errNotPDF):
		return jsonError(c, fiber.StatusBadRequest, "Only PDF files are allowed")
	case errors.Is(err, errFileTooBig):
		return jsonError(c, fiber.StatusRequestEntityTooLarge, "File is too large")
	default:
		s.logger.Error("read upload failed", "error", err)
		return jsonError(c, fiber.StatusInternalServerError, "Upload failed")
	}
}

func (s *Server) storeError(c *fiber.Ctx, err error, fallback string) error {
	switch {
	case errors.Is(err, pdfstore.ErrNotFound):
		return jsonError(c, fiber.StatusNotFound, "PDF not found")
	case errors.Is(err, pdfstore.ErrInvalidName):
		return jsonError(c, fiber.StatusBadRequest, "Invalid PDF name")
	default:
		s.logger.Error(fallback, "error", err)
		return jsonError(c, fiber.StatusInternalServerError, fallback)
	}
}
