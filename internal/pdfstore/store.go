// Package pdfstore keeps uploaded PDF documents in a flat directory.
package pdfstore

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"pdfscribe/internal/domain"
	"pdfscribe/internal/logging"
)

var (
	ErrNotFound    = errors.New("PDF not found")
	ErrInvalidName = errors.New("invalid PDF name")
)

// UploadResult names the stored file and the name it was uploaded with.
type UploadResult struct {
	Filename     string `json:"filename"`
	OriginalName string `json:"originalName"`
}

// Store reads and writes PDFs under one directory. Names never escape it.
type Store struct {
	dir    string
	logger *slog.Logger
}

func New(dir string) *Store {
	if dir == "" {
		dir = filepath.Join("public", "pdfs")
	}
	return &Store{dir: dir, logger: logging.For("pdfstore")}
}

// List returns the stored PDFs, newest first. A missing directory is empty.
func (s *Store) List() ([]domain.PDFInfo, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return []domain.PDFInfo{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list PDFs: %w", err)
	}

	pdfs := make([]domain.PDFInfo, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(strings.ToLower(name), ".pdf") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, fmt.Errorf("failed to stat %q: %w", name, err)
		}
		pdfs = append(pdfs, domain.PDFInfo{
			Name:         name,
			DisplayName:  DisplayName(name),
			Size:         info.Size(),
			LastModified: info.ModTime().UTC(),
		})
	}

	sort.SliceStable(pdfs, func(i, j int) bool {
		return pdfs[i].LastModified.After(pdfs[j].LastModified)
	})
	return pdfs, nil
}

// Read returns the document and its resolved filename.
func (s *Store) Read(name string) ([]byte, string, error) {
	filename, path, err := s.resolve(name)
	if err != nil {
		return nil, "", err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, filename, ErrNotFound
	}
	if err != nil {
		return nil, filename, fmt.Errorf("failed to read %q: %w", filename, err)
	}
	return data, filename, nil
}

// Save overwrites an existing document. It never creates one.
func (s *Store) Save(name string, data []byte) (string, error) {
	filename, path, err := s.resolve(name)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return filename, ErrNotFound
	} else if err != nil {
		return filename, fmt.Errorf("failed to stat %q: %w", filename, err)
	}
	if err := s.write(path, data); err != nil {
		return filename, err
	}
	s.logger.Info("pdf saved", "name", filename, "bytes", len(data))
	return filename, nil
}

// Upload stores a new document under a URL-safe version of filename,
// replacing any document with the same safe name.
func (s *Store) Upload(filename string, data []byte) (UploadResult, error) {
	safe := SafeFilename(filename)
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return UploadResult{}, fmt.Errorf("failed to create upload directory: %w", err)
	}
	if err := s.write(filepath.Join(s.dir, safe), data); err != nil {
		return UploadResult{}, err
	}
	s.logger.Info("pdf uploaded", "name", safe, "original", filename, "bytes", len(data))
	return UploadResult{Filename: safe, OriginalName: filename}, nil
}

func (s *Store) write(path string, data []byte) error {
	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write PDF: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write PDF: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to store PDF: %w", err)
	}
	return nil
}

func (s *Store) resolve(name string) (string, string, error) {
	filename := name
	if !strings.HasSuffix(filename, ".pdf") {
		filename += ".pdf"
	}
	if filename == ".pdf" || strings.ContainsAny(filename, `/\`) || strings.Contains(filename, "..") ||
		filepath.Base(filename) != filename {
		return "", "", ErrInvalidName
	}
	return filename, filepath.Join(s.dir, filename), nil
}

var unsafeRun = regexp.MustCompile(`[^a-z0-9]+`)

// SafeFilename lowercases the base name, collapses every run of other
// characters to a hyphen and keeps the extension.
func SafeFilename(filename string) string {
	base := filepath.Base(strings.ReplaceAll(filename, `\`, "/"))
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	safe := strings.Trim(unsafeRun.ReplaceAllString(strings.ToLower(stem), "-"), "-")
	if safe == "" {
		safe = "document"
	}
	if ext == "" || unsafeRun.MatchString(strings.ToLower(ext[1:])) {
		ext = ".pdf"
	}
	return safe + ext
}

// DisplayName strips the extension and turns hyphens into spaces.
func DisplayName(filename string) string {
	name := filename
	if strings.HasSuffix(strings.ToLower(name), ".pdf") {
		name = name[:len(name)-len(".pdf")]
	}
	return strings.ReplaceAll(name, "-", " ")
}
