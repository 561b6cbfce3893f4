package rules

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultParsers tries regex rules before literal ones so that a literal
// source starting with "s" is not mistaken for an expression.
func DefaultParsers() []Parser {
	return []Parser{RegexParser{}, LiteralParser{}}
}

// LiteralParser handles "spoken words => replacement" lines.
type LiteralParser struct{}

func (LiteralParser) CanParse(line string) bool {
	return strings.Contains(line, "=>")
}

func (LiteralParser) Parse(line string) (Rule, error) {
	return parseLiteral(line)
}

type literalRule struct {
	re          *regexp.Regexp
	replacement string
}

func parseLiteral(line string) (Rule, error) {
	from, to, ok := strings.Cut(line, "=>")
	if !ok {
		return nil, errors.New("invalid literal rule")
	}
	from = strings.TrimSpace(from)
	to = strings.TrimSpace(to)
	if from == "" {
		return nil, errors.New("literal rule source cannot be empty")
	}

	pattern := regexp.QuoteMeta(from)
	if startsWithWord(from) {
		pattern = `\b` + pattern
	}
	if endsWithWord(from) {
		pattern += `\b`
	}
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid literal source: %w", err)
	}
	return literalRule{re: re, replacement: to}, nil
}

func (r literalRule) Apply(input string) (string, bool) {
	output := r.re.ReplaceAllLiteralString(input, r.replacement)
	return output, output != input
}

// RegexParser handles sed-style "s/pattern/replacement/flags" lines. Matching
// is case-insensitive unless the I flag is given; g replaces every match.
type RegexParser struct{}

func (RegexParser) CanParse(line string) bool {
	return len(line) > 1 && line[0] == 's' && !isWordOrSpace(line[1])
}

func (RegexParser) Parse(line string) (Rule, error) {
	return parseRegex(line)
}

type regexRule struct {
	re          *regexp.Regexp
	replacement string
	global      bool
}

func parseRegex(line string) (Rule, error) {
	if len(line) < 2 {
		return nil, errors.New("invalid regex rule")
	}
	delim := line[1]
	if isWordOrSpace(delim) {
		return nil, errors.New("regex delimiter must be non-alphanumeric")
	}

	pattern, pos, err := scanDelimited(line, 2, delim)
	if err != nil {
		return nil, fmt.Errorf("invalid regex pattern: %w", err)
	}
	replacement, pos, err := scanDelimited(line, pos, delim)
	if err != nil {
		return nil, fmt.Errorf("invalid regex replacement: %w", err)
	}

	ignoreCase, global := true, false
	var modes strings.Builder
	for _, flag := range strings.TrimSpace(line[pos:]) {
		switch flag {
		case 'i':
			ignoreCase = true
		case 'I':
			ignoreCase = false
		case 'g':
			global = true
		case 'm', 's':
			modes.WriteRune(flag)
		default:
			return nil, fmt.Errorf("unsupported regex flag %q", flag)
		}
	}
	prefix := modes.String()
	if ignoreCase {
		prefix = "i" + prefix
	}
	if prefix != "" {
		pattern = "(?" + prefix + ")" + pattern
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid regex: %w", err)
	}
	return regexRule{re: re, replacement: replacement, global: global}, nil
}

func (r regexRule) Apply(input string) (string, bool) {
	if r.global {
		output := r.re.ReplaceAllString(input, r.replacement)
		return output, output != input
	}

	loc := r.re.FindStringSubmatchIndex(input)
	if loc == nil {
		return input, false
	}
	expanded := r.re.ExpandString(nil, r.replacement, input, loc)
	output := input[:loc[0]] + string(expanded) + input[loc[1]:]
	return output, output != input
}

// scanDelimited reads up to the next unescaped delim. An escaped delimiter
// loses its backslash; other escapes are kept for the regex compiler.
func scanDelimited(line string, start int, delim byte) (string, int, error) {
	if start >= len(line) {
		return "", 0, errors.New("unexpected end of expression")
	}

	var builder strings.Builder
	for index := start; index < len(line); index++ {
		char := line[index]
		if char == '\\' && index+1 < len(line) {
			next := line[index+1]
			if next != delim {
				builder.WriteByte(char)
			}
			builder.WriteByte(next)
			index++
			continue
		}
		if char == delim {
			return builder.String(), index + 1, nil
		}
		builder.WriteByte(char)
	}
	return "", 0, errors.New("unterminated expression")
}

func isWordOrSpace(char byte) bool {
	return (char >= 'a' && char <= 'z') ||
		(char >= 'A' && char <= 'Z') ||
		(char >= '0' && char <= '9') ||
		char == '_' || char == ' ' || char == '\t'
}

func startsWithWord(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return isWordRune(r)
}

func endsWithWord(s string) bool {
	r, _ := utf8.DecodeLastRuneInString(s)
	return isWordRune(r)
}

// isWordRune mirrors RE2's ASCII-only \b.
func isWordRune(r rune) bool {
	return r < utf8.RuneSelf && (unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_')
}
