// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data:
// the dashboard selection from query strings and report requests from
// JSON or form bodies.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"salesdash/internal/core"
)

// maxBodyBytes bounds report request bodies.
const maxBodyBytes = 1 << 16

// SelectionParams holds the parsed dashboard controls.
type SelectionParams struct {
	Selection core.Selection
	ShowRaw   bool
}

// ParseSelectionParams reads year, month and raw from values. A missing
// year falls back to the dataset default; every parsed selection is
// checked against the values present in the dataset.
func ParseSelectionParams(ds *core.Dataset, values url.Values) (SelectionParams, error) {
	var params SelectionParams
	params.ShowRaw = parseBool(values.Get("raw"))

	year := sanitizeInput(values.Get("year"))
	month := sanitizeInput(values.Get("month"))
	if year == "" {
		def := ds.DefaultSelection()
		year = strconv.Itoa(def.Year)
	}

	sel, err := core.ParseSelection(year, month)
	if err != nil {
		return params, err
	}
	if err := ds.Validate(sel); err != nil {
		return params, err
	}
	params.Selection = sel
	return params, nil
}

// selectionErrorMessage turns a selection error into a user-facing message.
func selectionErrorMessage(err error) string {
	switch {
	case errors.Is(err, core.ErrUnknownYear):
		return "Selected year is not present in the dataset"
	case errors.Is(err, core.ErrUnknownMonth):
		return "Selected month is not present in the dataset"
	default:
		return "Invalid year or month"
	}
}

// isSelectionError reports whether err came from parsing or validating a selection.
func isSelectionError(err error) bool {
	return errors.Is(err, core.ErrInvalidSelection) ||
		errors.Is(err, core.ErrUnknownYear) ||
		errors.Is(err, core.ErrUnknownMonth)
}

// parseBool accepts the checkbox and query spellings of true.
func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON and form-encoded data, commonly used with HTMX.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]interface{}
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser creates a parser for the given request.
// It reads the body once and stores it for subsequent parsing.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	if r.Body == nil {
		return p
	}
	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	if len(p.body) == 0 {
		p.formData = url.Values{}
		return nil
	}

	// Try JSON first if content looks like JSON
	if p.body[0] == '{' {
		p.jsonData = make(map[string]interface{})
		if err := json.Unmarshal(p.body, &p.jsonData); err != nil {
			p.err = fmt.Errorf("decode json body: %w", err)
			return p.err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(string(p.body))
	return p.err
}

// Get returns a string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// Values returns the parsed fields as url.Values.
func (p *RequestBodyParser) Values(keys ...string) url.Values {
	out := url.Values{}
	for _, k := range keys {
		if v := p.Get(k); v != "" {
			out.Set(k, v)
		}
	}
	return out
}

// ContentType returns the Content-Type header value.
func (p *RequestBodyParser) ContentType() string {
	return p.contentType
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

// stringValue converts an interface{} to string.
func stringValue(v interface{}) string {
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
