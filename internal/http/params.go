package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/example/parish-roster/internal/application"
)

// decodeJSON reads the request body into v. An empty body leaves v untouched.
func decodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// monthQuery reads the year and month query parameters. With optional set,
// both may be omitted and zero is returned.
func monthQuery(r *http.Request, optional bool) (int, int, error) {
	q := r.URL.Query()
	rawYear, rawMonth := strings.TrimSpace(q.Get("year")), strings.TrimSpace(q.Get("month"))
	if optional && rawYear == "" && rawMonth == "" {
		return 0, 0, nil
	}

	vErr := &application.ValidationError{FieldErrors: map[string]string{}}
	year, err := strconv.Atoi(rawYear)
	if err != nil {
		vErr.FieldErrors["year"] = "informe o ano"
	}
	month, err := strconv.Atoi(rawMonth)
	if err != nil {
		vErr.FieldErrors["month"] = "informe o mês"
	}
	if vErr.HasErrors() {
		return 0, 0, vErr
	}
	return year, month, nil
}

// parseTimestamp accepts RFC 3339 timestamps. Empty input yields the zero time.
func parseTimestamp(field, value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	ts, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, &application.ValidationError{FieldErrors: map[string]string{field: "data e hora inválidas, use RFC 3339"}}
	}
	return ts, nil
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}
