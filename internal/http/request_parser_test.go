package http

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"salesdash/internal/core"
)

func TestParseSelectionParams(t *testing.T) {
	ds := testDataset(t)

	tests := []struct {
		name    string
		query   url.Values
		want    core.Selection
		wantRaw bool
		wantErr error
	}{
		{
			name:  "empty query uses dataset default",
			query: url.Values{},
			want:  core.Selection{Year: 2017},
		},
		{
			name:    "month name and raw checkbox",
			query:   url.Values{"year": {"2018"}, "month": {"March"}, "raw": {"on"}},
			want:    core.Selection{Year: 2018, Month: time.March},
			wantRaw: true,
		},
		{
			name:  "month valid in another year",
			query: url.Values{"year": {"2018"}, "month": {"1"}},
			want:  core.Selection{Year: 2018, Month: time.January},
		},
		{
			name:  "all months label",
			query: url.Values{"year": {"2017"}, "month": {"All Months"}},
			want:  core.Selection{Year: 2017},
		},
		{
			name:    "unknown year",
			query:   url.Values{"year": {"2016"}},
			wantErr: core.ErrUnknownYear,
		},
		{
			name:    "month absent from dataset",
			query:   url.Values{"year": {"2017"}, "month": {"July"}},
			wantErr: core.ErrUnknownMonth,
		},
		{
			name:    "non numeric year",
			query:   url.Values{"year": {"twenty"}},
			wantErr: core.ErrInvalidSelection,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSelectionParams(ds, tt.query)
			if tt.wantErr != nil {
				if !isSelectionError(err) {
					t.Fatalf("err = %v, want selection error %v", err, tt.wantErr)
				}
				if msg := selectionErrorMessage(err); msg == "" {
					t.Fatal("empty error message")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Selection != tt.want {
				t.Errorf("Selection = %+v, want %+v", got.Selection, tt.want)
			}
			if got.ShowRaw != tt.wantRaw {
				t.Errorf("ShowRaw = %v, want %v", got.ShowRaw, tt.wantRaw)
			}
		})
	}
}

func TestRequestBodyParser_JSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/reports", strings.NewReader(`{"year": 2017, "month": "\tMarch ", "raw": true}`))
	req.Header.Set("Content-Type", "application/json")

	p := NewRequestBodyParser(req)
	if err := p.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if !p.IsJSON() {
		t.Error("IsJSON() = false, want true")
	}
	if got := p.Get("year"); got != "2017" {
		t.Errorf("Get(year) = %q", got)
	}
	if got := p.Get("month"); got != "March" {
		t.Errorf("Get(month) = %q", got)
	}
	if got := p.Get("raw"); got != "true" {
		t.Errorf("Get(raw) = %q", got)
	}

	vals := p.Values("year", "month", "missing")
	if vals.Get("year") != "2017" || vals.Has("missing") {
		t.Errorf("Values() = %v", vals)
	}
}

func TestRequestBodyParser_Form(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/reports", strings.NewReader("year=2018&month=all"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	p := NewRequestBodyParser(req)
	if err := p.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if p.IsJSON() {
		t.Error("IsJSON() = true, want false")
	}
	if p.Get("year") != "2018" || p.Get("month") != "all" {
		t.Errorf("got year=%q month=%q", p.Get("year"), p.Get("month"))
	}
}

func TestRequestBodyParser_Errors(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/reports", strings.NewReader(`{"year":`))
	p := NewRequestBodyParser(req)
	if err := p.Parse(); err == nil {
		t.Fatal("expected error for truncated JSON")
	}
	// Parse is memoised
	if err := p.Parse(); err == nil {
		t.Fatal("expected memoised error")
	}

	empty := NewRequestBodyParser(httptest.NewRequest(http.MethodPost, "/reports", nil))
	if err := empty.Parse(); err != nil {
		t.Fatalf("empty body error = %v", err)
	}
	if empty.Get("year") != "" {
		t.Error("empty body must yield empty values")
	}
}

func TestSanitizeInput(t *testing.T) {
	tests := []struct{ in, want string }{
		{"  2017  ", "2017"},
		{"Mar\x00ch", "March"},
		{"line\tbreak", "line\tbreak"},
	}
	for _, tt := range tests {
		if got := sanitizeInput(tt.in); got != tt.want {
			t.Errorf("sanitizeInput(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSelectionFilename(t *testing.T) {
	if got := selectionFilename(core.Selection{Year: 2017}, "csv"); got != "orders-2017-all.csv" {
		t.Errorf("got %q", got)
	}
	if got := selectionFilename(core.Selection{Year: 2018, Month: time.March}, "xlsx"); got != "orders-2018-march.xlsx" {
		t.Errorf("got %q", got)
	}
}
