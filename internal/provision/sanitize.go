package provision

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/alfredjeanlab/cfgseed/internal/policy"
)

// emptySettings is stored when a settings payload cannot be sanitized.
var emptySettings = json.RawMessage(`{}`)

// Sanitizer blanks credential-like keys in a settings payload.
type Sanitizer struct {
	policy *policy.Policy
	logger *slog.Logger
}

// NewSanitizer returns a Sanitizer bound to one policy snapshot.
func NewSanitizer(p *policy.Policy, logger *slog.Logger) *Sanitizer {
	return &Sanitizer{policy: p, logger: logger}
}

// Sanitize returns a new map holding the top-level pairs of settings with
// every sensitive key set to "". Nested values are carried over by reference
// and are not inspected. The input is never modified or returned.
func (s *Sanitizer) Sanitize(settings map[string]any) (out map[string]any) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("sanitize settings failed, using empty settings", "error", fmt.Sprint(r))
			out = map[string]any{}
		}
	}()

	out = make(map[string]any, len(settings))
	for k, v := range settings {
		if s.policy.IsSensitive(k) {
			out[k] = ""
			continue
		}
		out[k] = v
	}
	return out
}

// SanitizeJSON sanitizes a stored settings document. A null or empty
// document yields {}. A document that is not a JSON object is logged and
// replaced with {}. Numbers keep their original textual form.
func (s *Sanitizer) SanitizeJSON(raw json.RawMessage) json.RawMessage {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return cloneEmpty()
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var settings map[string]any
	if err := dec.Decode(&settings); err != nil {
		s.logger.Error("decode settings failed, using empty settings", "error", err)
		return cloneEmpty()
	}
	if dec.More() {
		s.logger.Error("decode settings failed, using empty settings", "error", "trailing data after object")
		return cloneEmpty()
	}
	if settings == nil {
		return cloneEmpty()
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s.Sanitize(settings)); err != nil {
		s.logger.Error("encode settings failed, using empty settings", "error", err)
		return cloneEmpty()
	}
	return json.RawMessage(bytes.TrimRight(buf.Bytes(), "\n"))
}

func cloneEmpty() json.RawMessage {
	return append(json.RawMessage(nil), emptySettings...)
}
