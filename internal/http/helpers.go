package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"salesdash/internal/core"
)

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// isHTMX reports whether the request was issued by htmx.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// selectionFilename builds a download name such as "orders-2017-march.xlsx".
func selectionFilename(sel core.Selection, ext string) string {
	month := "all"
	if !sel.AllMonths() {
		month = strings.ToLower(sel.Month.String())
	}
	return "orders-" + strconv.Itoa(sel.Year) + "-" + month + "." + ext
}

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		InternalServerError("Encoding error").Write(w)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// writeErrorResponse writes resp as an HTML fragment, or as {"error": msg} for API clients.
func writeErrorResponse(w http.ResponseWriter, resp *HTMXResponseBuilder, asJSON bool) {
	if asJSON {
		resp.JSON()
	}
	resp.Write(w)
}

// writeBytes writes a fully rendered payload with its content type.
func writeBytes(w http.ResponseWriter, contentType string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(body)
}
