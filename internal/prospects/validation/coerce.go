package validation

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"prospect_backend/internal/prospects/domain"
	"prospect_backend/platform/sanitize"
)

const dateOnly = "2006-01-02"

// reader pulls typed values out of an untyped record, collecting type errors
// and remembering which optional fields were supplied.
type reader struct {
	raw     map[string]any
	index   int
	prefix  string
	errs    Errors
	present domain.FieldMask
}

func (r *reader) fail(key, reason string) {
	r.errs = append(r.errs, FieldError{Index: r.index, Field: r.prefix + key, Reason: reason})
}

func (r *reader) mark(f domain.Field) {
	if f != 0 {
		r.present = r.present.With(f)
	}
}

// text returns a trimmed string. Blank strings count as absent.
func (r *reader) text(key string, f domain.Field) string {
	value, ok := r.raw[key]
	if !ok || value == nil {
		return ""
	}
	s, ok := value.(string)
	if !ok {
		r.fail(key, "must be a string")
		return ""
	}
	s = strings.TrimSpace(s)
	if s != "" {
		r.mark(f)
	}
	return s
}

// integer accepts JSON numbers with no fractional part and numeric strings.
func (r *reader) integer(key string, f domain.Field) *int {
	value, ok := r.raw[key]
	if !ok || value == nil {
		return nil
	}

	var n int
	switch typed := value.(type) {
	case int:
		n = typed
	case int64:
		n = int(typed)
	case float64:
		if typed != math.Trunc(typed) || math.IsInf(typed, 0) {
			r.fail(key, "must be an integer")
			return nil
		}
		n = int(typed)
	case json.Number:
		parsed, err := strconv.Atoi(typed.String())
		if err != nil {
			r.fail(key, "must be an integer")
			return nil
		}
		n = parsed
	case string:
		trimmed := strings.TrimSpace(typed)
		if trimmed == "" {
			return nil
		}
		parsed, err := strconv.Atoi(trimmed)
		if err != nil {
			r.fail(key, "must be an integer")
			return nil
		}
		n = parsed
	default:
		r.fail(key, "must be a number")
		return nil
	}

	r.mark(f)
	return &n
}

// list accepts a JSON array of strings or a single string split on | or ;.
func (r *reader) list(key string, f domain.Field) []string {
	value, ok := r.raw[key]
	if !ok || value == nil {
		return nil
	}

	var out []string
	switch typed := value.(type) {
	case []string:
		out = typed
	case []any:
		out = make([]string, 0, len(typed))
		for i, item := range typed {
			s, ok := item.(string)
			if !ok {
				r.fail(fmt.Sprintf("%s[%d]", key, i), "must be a string")
				continue
			}
			out = append(out, s)
		}
	case string:
		out = SplitList(typed)
	default:
		r.fail(key, "must be a list of strings")
		return nil
	}

	r.mark(f)
	return out
}

// timestamp accepts RFC 3339 or YYYY-MM-DD (midnight UTC).
func (r *reader) timestamp(key string, f domain.Field) *time.Time {
	value, ok := r.raw[key]
	if !ok || value == nil {
		return nil
	}

	switch typed := value.(type) {
	case time.Time:
		t := typed.UTC()
		r.mark(f)
		return &t
	case string:
		trimmed := strings.TrimSpace(typed)
		if trimmed == "" {
			return nil
		}
		t, err := ParseTimestamp(trimmed)
		if err != nil {
			r.fail(key, "must be an RFC 3339 timestamp or YYYY-MM-DD date")
			return nil
		}
		r.mark(f)
		return &t
	default:
		r.fail(key, "must be an RFC 3339 timestamp or YYYY-MM-DD date")
		return nil
	}
}

func (r *reader) objects(key string) []map[string]any {
	value, ok := r.raw[key]
	if !ok || value == nil {
		return nil
	}

	switch typed := value.(type) {
	case map[string]any:
		return []map[string]any{typed}
	case []map[string]any:
		return typed
	case []any:
		out := make([]map[string]any, 0, len(typed))
		for i, item := range typed {
			obj, ok := item.(map[string]any)
			if !ok {
				r.fail(fmt.Sprintf("%s[%d]", key, i), "must be an object")
				continue
			}
			out = append(out, obj)
		}
		return out
	default:
		r.fail(key, "must be a list of objects")
		return nil
	}
}

func (r *reader) child(key string, i int, obj map[string]any) *reader {
	return &reader{raw: obj, index: r.index, prefix: fmt.Sprintf("%s%s[%d].", r.prefix, key, i)}
}

func (r *reader) contacts(key string) []contactInput {
	objs := r.objects(key)
	out := make([]contactInput, 0, len(objs))
	for i, obj := range objs {
		c := r.child(key, i, obj)
		out = append(out, contactInput{
			Name:  sanitize.Text(c.text("name", 0)),
			Title: sanitize.Text(c.text("title", 0)),
			Email: c.text("email", 0),
			Phone: c.text("phone", 0),
			Role:  sanitize.Text(c.text("role", 0)),
		})
		r.errs = append(r.errs, c.errs...)
	}
	return out
}

func (r *reader) signals(key string) []signalInput {
	objs := r.objects(key)
	out := make([]signalInput, 0, len(objs))
	for i, obj := range objs {
		s := r.child(key, i, obj)
		out = append(out, signalInput{
			Type:   s.text("type", 0),
			Title:  sanitize.Text(s.text("title", 0)),
			Date:   s.timestamp("date", 0),
			Source: sanitize.Text(s.text("source", 0)),
		})
		r.errs = append(r.errs, s.errs...)
	}
	return out
}

// SplitList splits a delimited list cell on | or ; and trims every item.
func SplitList(value string) []string {
	parts := strings.FieldsFunc(value, func(r rune) bool { return r == '|' || r == ';' })
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// ParseTimestamp parses RFC 3339 first, then a bare date.
func ParseTimestamp(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(dateOnly, value)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
