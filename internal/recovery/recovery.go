// Package recovery coerces malformed LLM output into valid JSON. Large
// multi-file generations routinely come back wrapped in markdown fences,
// carrying raw control bytes inside string values, or structurally damaged
// (truncated objects, trailing commas); this package runs an escalating
// sequence of repairs and surfaces a typed error when all of them fail.
package recovery

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"nexusai-api/internal/logging"
)

// snippetRadius bounds the diagnostic excerpt around a parse failure. The
// full payload is never attached to an error: responses can run to hundreds
// of kilobytes.
const snippetRadius = 80

// Error reports that every repair strategy failed. Label names the call site
// (e.g. the generation phase) so operators can tell model garbage apart from
// network failures.
type Error struct {
	Label   string
	Offset  int64
	Snippet string
	cause   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("json recovery failed for %s at offset %d (near %q): %v",
		e.Label, e.Offset, e.Snippet, e.cause)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Document recovers text into generic JSON. See Into.
func Document(text, label string) (map[string]interface{}, error) {
	var doc map[string]interface{}
	if err := Into(text, label, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Into parses possibly-malformed JSON text into v. Strategy, in order:
// markdown fence stripping, direct parse, control-character remediation,
// structural repair. Valid input always decodes exactly as the standard
// library would. The input string is never mutated.
func Into(text, label string, v interface{}) error {
	cleaned := stripFence(strings.TrimSpace(text))

	directErr := json.Unmarshal([]byte(cleaned), v)
	if directErr == nil {
		return nil
	}

	offset := syntaxOffset(directErr, cleaned)

	escaped := escapeControlBytes(cleaned)
	if escaped != cleaned {
		if err := json.Unmarshal([]byte(escaped), v); err == nil {
			logging.S().Infow("recovered JSON via control-character remediation", "context", label)
			return nil
		}
	}

	repaired, repairErr := jsonrepair.JSONRepair(escaped)
	if repairErr == nil {
		if err := json.Unmarshal([]byte(repaired), v); err == nil {
			logging.S().Warnw("recovered JSON via structural repair", "context", label)
			return nil
		}
	}

	logging.S().Errorw("json recovery exhausted all strategies",
		"context", label, "offset", offset)

	return &Error{
		Label:   label,
		Offset:  offset,
		Snippet: snippetAt(cleaned, offset),
		cause:   directErr,
	}
}

// stripFence removes one leading/trailing markdown code fence, with or
// without a language tag.
func stripFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	body := s[3:]
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		// Drop the fence line itself ("```" or "```json").
		body = body[nl+1:]
	} else {
		return s
	}
	body = strings.TrimRight(body, " \t\n")
	if strings.HasSuffix(body, "```") {
		body = strings.TrimRight(body[:len(body)-3], " \t\n")
	}
	return body
}

// escapeControlBytes rewrites raw tab/newline/carriage-return bytes inside
// string values to their escaped forms and drops every other control byte.
// Outside string values, structural whitespace is kept and stray control
// bytes are dropped.
func escapeControlBytes(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 16)

	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		ch := s[i]

		if inString {
			if escaped {
				b.WriteByte(ch)
				escaped = false
				continue
			}
			switch {
			case ch == '\\':
				b.WriteByte(ch)
				escaped = true
			case ch == '"':
				b.WriteByte(ch)
				inString = false
			case ch == '\n':
				b.WriteString(`\n`)
			case ch == '\t':
				b.WriteString(`\t`)
			case ch == '\r':
				b.WriteString(`\r`)
			case ch < 0x20:
				// Unescapable control byte: drop.
			default:
				b.WriteByte(ch)
			}
			continue
		}

		switch {
		case ch == '"':
			b.WriteByte(ch)
			inString = true
		case ch == '\n' || ch == '\t' || ch == '\r' || ch >= 0x20:
			b.WriteByte(ch)
		default:
			// Stray control byte between tokens: drop.
		}
	}

	return b.String()
}

func syntaxOffset(err error, text string) int64 {
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return syntaxErr.Offset
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return typeErr.Offset
	}
	return int64(len(text))
}

func snippetAt(text string, offset int64) string {
	if len(text) == 0 {
		return ""
	}
	pos := int(offset)
	if pos > len(text) {
		pos = len(text)
	}
	lo := pos - snippetRadius
	if lo < 0 {
		lo = 0
	}
	hi := pos + snippetRadius
	if hi > len(text) {
		hi = len(text)
	}
	return text[lo:hi]
}
