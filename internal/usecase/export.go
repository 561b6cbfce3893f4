package usecase

import (
	"context"
	"errors"
	"strings"

	"pdfscribe/internal/domain"
	"pdfscribe/internal/ports"
)

var ErrEmptyTranscript = errors.New("no transcript captured")

// TranscriptExporter applies substitution rules and copies the result to the
// clipboard.
type TranscriptExporter struct {
	rules     ports.RulesEngine
	clipboard ports.Clipboard
}

func NewTranscriptExporter(rules ports.RulesEngine, clipboard ports.Clipboard) TranscriptExporter {
	return TranscriptExporter{rules: rules, clipboard: clipboard}
}

// Export returns the transformed transcript. A failed clipboard write is not
// an error; Copied reports it.
func (e TranscriptExporter) Export(ctx context.Context, raw string) (domain.ExportResult, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return domain.ExportResult{}, ErrEmptyTranscript
	}

	transformed := raw
	if e.rules != nil {
		var err error
		transformed, err = e.rules.Apply(raw)
		if err != nil {
			return domain.ExportResult{}, err
		}
	}

	result := domain.ExportResult{RawTranscript: raw, FinalTranscript: transformed}
	if e.clipboard != nil {
		result.Copied = e.clipboard.SetText(ctx, transformed) == nil
	}
	return result, nil
}
