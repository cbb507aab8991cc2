package extraction

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"billscan/internal/domain"
	"billscan/internal/normalize"
)

// DefaultConfidence is used when a model omits its self-reported confidence.
const DefaultConfidence = 0.5

var nullish = map[string]bool{
	"":        true,
	"null":    true,
	"none":    true,
	"n/a":     true,
	"na":      true,
	"unknown": true,
	"-":       true,
}

// DecodeModelOutput reads a model's raw reply into extracted data and its
// self-reported confidence. Code fences and surrounding prose are stripped.
// Values of the wrong shape are coerced where possible and otherwise treated
// as absent. Data is nil when the reply carries no fields.
func DecodeModelOutput(raw string) (*domain.ExtractedDocumentData, float64, error) {
	body := stripFences(raw)
	if body == "" {
		return nil, 0, errors.New("empty model output")
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal([]byte(body), &envelope); err != nil {
		return nil, 0, fmt.Errorf("parsing LLM JSON output: %w (raw: %s)", err, truncate(raw, 500))
	}

	confidence := DefaultConfidence
	if c, ok := lookup(envelope, "confidence"); ok {
		if v, ok := decodeNumber(c); ok {
			confidence = domain.ClampConfidence(v)
		}
	}

	fields := envelope
	if d, ok := lookup(envelope, "data"); ok {
		var inner map[string]json.RawMessage
		if err := json.Unmarshal(d, &inner); err != nil {
			return nil, 0, fmt.Errorf("parsing data object: %w", err)
		}
		fields = inner
	}

	data := &domain.ExtractedDocumentData{}
	for _, f := range domain.Fields {
		v, ok := lookup(fields, f.Name)
		if !ok {
			continue
		}
		switch f.Kind {
		case domain.FieldKindText:
			if s, ok := decodeText(v); ok {
				*f.Text(data) = &s
			}
		case domain.FieldKindNumeric:
			if n, ok := decodeNumber(v); ok {
				*f.Numeric(data) = &n
			}
		case domain.FieldKindList:
			*f.List(data) = decodeList(v)
		}
	}

	if domain.CountPresent(data) == 0 {
		return nil, confidence, nil
	}
	return data, confidence, nil
}

// stripFences removes markdown code fences and any prose around the outermost
// JSON object.
func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		if i := strings.IndexByte(s, '\n'); i >= 0 {
			s = s[i+1:]
		} else {
			s = strings.TrimPrefix(s, "```")
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end < start {
		return strings.TrimSpace(s)
	}
	return s[start : end+1]
}

// lookup finds key in m, falling back to a case-insensitive match.
func lookup(m map[string]json.RawMessage, key string) (json.RawMessage, bool) {
	if v, ok := m[key]; ok {
		return v, !isNull(v)
	}
	for k, v := range m {
		if strings.EqualFold(k, key) {
			return v, !isNull(v)
		}
	}
	return nil, false
}

func isNull(v json.RawMessage) bool {
	return len(bytes.TrimSpace(v)) == 0 || bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}

func decodeText(v json.RawMessage) (string, bool) {
	var val interface{}
	if err := json.Unmarshal(v, &val); err != nil {
		return "", false
	}
	var s string
	switch t := val.(type) {
	case string:
		s = strings.TrimSpace(t)
	case float64:
		s = strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		s = strconv.FormatBool(t)
	default:
		return "", false
	}
	if nullish[strings.ToLower(s)] {
		return "", false
	}
	return s, true
}

func decodeNumber(v json.RawMessage) (float64, bool) {
	var val interface{}
	if err := json.Unmarshal(v, &val); err != nil {
		return 0, false
	}
	switch t := val.(type) {
	case float64:
		return t, true
	case string:
		return normalize.ParseAmount(t)
	}
	return 0, false
}

// decodeList accepts an array of strings, numbers or {"code": ...} objects,
// or a single delimited string.
func decodeList(v json.RawMessage) []string {
	var val interface{}
	if err := json.Unmarshal(v, &val); err != nil {
		return nil
	}

	var items []string
	switch t := val.(type) {
	case string:
		items = strings.FieldsFunc(t, func(r rune) bool { return r == ',' || r == ';' || r == '\n' })
	case []interface{}:
		for _, e := range t {
			switch ev := e.(type) {
			case string:
				items = append(items, ev)
			case float64:
				items = append(items, strconv.FormatFloat(ev, 'f', -1, 64))
			case map[string]interface{}:
				if code, ok := ev["code"].(string); ok {
					items = append(items, code)
				}
			}
		}
	}

	var out []string
	for _, it := range items {
		it = strings.TrimSpace(it)
		if !nullish[strings.ToLower(it)] {
			out = append(out, it)
		}
	}
	return out
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
