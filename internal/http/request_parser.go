package http

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"bajeti/internal/core"
	"bajeti/internal/services"
)

// RequestBodyParser reads a body that is either JSON or form encoded. The
// login endpoint accepts both.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser reads at most 1 MiB of the request body.
func NewRequestBodyParser(w http.ResponseWriter, r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{contentType: r.Header.Get("Content-Type")}
	p.body, p.err = io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	return p
}

// Parse decodes the body as JSON when the content type says so or the body
// looks like an object, as form data otherwise.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true
	if p.err != nil {
		return p.err
	}

	trimmed := strings.TrimSpace(string(p.body))
	if strings.HasPrefix(p.contentType, "application/json") || strings.HasPrefix(trimmed, "{") {
		p.jsonData = make(map[string]any)
		if err := json.Unmarshal(p.body, &p.jsonData); err != nil {
			p.err = err
		}
		return p.err
	}

	p.formData, p.err = url.ParseQuery(trimmed)
	return p.err
}

// Get returns the sanitized value of key, checking each name in order.
func (p *RequestBodyParser) Get(keys ...string) string {
	for _, key := range keys {
		if p.jsonData != nil {
			if v := sanitizeInput(stringValue(p.jsonData[key])); v != "" {
				return v
			}
		}
		if p.formData != nil {
			if v := sanitizeInput(p.formData.Get(key)); v != "" {
				return v
			}
		}
	}
	return ""
}

// Raw returns the unmodified value of key. Secrets must not be trimmed.
func (p *RequestBodyParser) Raw(key string) string {
	if p.jsonData != nil {
		return stringValue(p.jsonData[key])
	}
	return p.formData.Get(key)
}

func (p *RequestBodyParser) IsJSON() bool { return p.jsonData != nil }

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// parseExpenseQuery reads the month, category_id and type filters.
func parseExpenseQuery(q url.Values) (services.ExpenseQuery, error) {
	out := services.ExpenseQuery{
		Month: strings.TrimSpace(q.Get("month")),
		Type:  core.ExpenseType(strings.TrimSpace(q.Get("type"))),
	}
	if v := strings.TrimSpace(q.Get("category_id")); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			return services.ExpenseQuery{}, core.Invalid("invalid category_id: " + strconv.Quote(v))
		}
		out.CategoryID = id
	}
	return out, nil
}
