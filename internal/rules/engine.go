// Package rules rewrites dictated transcripts with deterministic substitutions.
package rules

import (
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"pdfscribe/internal/logging"
)

//go:embed dictation.rules
var dictationRules string

// Rule is one compiled substitution.
type Rule interface {
	Apply(input string) (output string, changed bool)
}

// Parser turns one rules-file line into a Rule.
type Parser interface {
	CanParse(line string) bool
	Parse(line string) (Rule, error)
}

// Engine applies its rules repeatedly until the text stops changing or the
// iteration limit is reached.
type Engine struct {
	rules  []Rule
	limit  int
	logger *slog.Logger
}

// NewEngine loads rules from path. An empty path selects the built-in
// dictation rules; a missing file falls back to them as well.
func NewEngine(path string, limit int) (*Engine, error) {
	return NewEngineWithParsers(path, limit, DefaultParsers())
}

func NewEngineWithParsers(path string, limit int, parsers []Parser) (*Engine, error) {
	logger := logging.For("rules")
	source := "built-in"
	contents := dictationRules

	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			source = path
			contents = string(data)
		case errors.Is(err, os.ErrNotExist):
			logger.Warn("rules file not found, using built-in dictation rules", "path", path)
		default:
			return nil, fmt.Errorf("failed to read rules file %q: %w", path, err)
		}
	}

	engine, err := Compile(contents, limit, parsers)
	if err != nil {
		return nil, fmt.Errorf("failed to parse rules from %s: %w", source, err)
	}
	engine.logger = logger
	logger.Debug("rules loaded", "source", source, "count", len(engine.rules))
	return engine, nil
}

// Compile builds an engine from rules text.
func Compile(contents string, limit int, parsers []Parser) (*Engine, error) {
	if limit <= 0 {
		limit = 30
	}
	if len(parsers) == 0 {
		parsers = DefaultParsers()
	}
	rules, err := parseRules(contents, parsers)
	if err != nil {
		return nil, err
	}
	return &Engine{rules: rules, limit: limit, logger: logging.For("rules")}, nil
}

// Len reports the number of compiled rules.
func (e *Engine) Len() int {
	return len(e.rules)
}

// Apply transforms text. Rules that keep rewriting each other stop at the
// iteration limit with the last result.
func (e *Engine) Apply(text string) (string, error) {
	if len(e.rules) == 0 {
		return text, nil
	}

	result := text
	for pass := 0; pass < e.limit; pass++ {
		changed := false
		for _, rule := range e.rules {
			if next, ok := rule.Apply(result); ok {
				result = next
				changed = true
			}
		}
		if !changed {
			return result, nil
		}
	}

	e.logger.Debug("rules did not settle", "limit", e.limit)
	return result, nil
}

func parseRules(contents string, parsers []Parser) ([]Rule, error) {
	lines := strings.Split(contents, "\n")
	rules := make([]Rule, 0, len(lines))

	for index, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		rule, err := parseLine(line, parsers)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", index+1, err)
		}
		rules = append(rules, rule)
	}

	return rules, nil
}

func parseLine(line string, parsers []Parser) (Rule, error) {
	for _, parser := range parsers {
		if parser.CanParse(line) {
			return parser.Parse(line)
		}
	}
	return nil, errors.New("unsupported rule format")
}
