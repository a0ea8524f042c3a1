package http

import (
	"bytes"
	"context"
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"strconv"

	"salesdash/internal/charts"
	"salesdash/internal/core"
	"salesdash/internal/export"
	"salesdash/internal/log"
)

const (
	pageTitle      = "Sales Data Visualization"
	noDataMessage  = "No data for this selection"
	allMonthsValue = "all"
)

type monthOption struct {
	Value   string
	Label   string
	Checked bool
}

type pageData struct {
	Title    string
	Years    []int
	Selected int
	Months   []monthOption
	ShowRaw  bool
	Summary  summaryView
}

// summaryView is the render payload of one selection.
type summaryView struct {
	Year         int
	MonthLabel   string
	Empty        bool
	NoData       string
	Total        int
	Most         *core.CategoryCount
	Least        *core.CategoryCount
	ExtremesName string
	MonthlyTitle string
	HasMonthly   bool

	ExtremesURL template.URL
	MonthlyURL  template.URL
	CSVURL      template.URL
	XLSXURL     template.URL

	ShowRaw   bool
	Columns   []string
	Rows      [][]string
	RawShown  int
	Truncated bool

	ReportsEnabled bool
}

// selectionQuery encodes sel the way the controls submit it.
func selectionQuery(sel core.Selection) string {
	month := allMonthsValue
	if !sel.AllMonths() {
		month = sel.Month.String()
	}
	return url.Values{"year": {strconv.Itoa(sel.Year)}, "month": {month}}.Encode()
}

func (s *Server) buildSummaryView(res core.Result, showRaw bool) summaryView {
	sel := res.Selection
	q := selectionQuery(sel)

	v := summaryView{
		Year:           sel.Year,
		MonthLabel:     sel.MonthLabel(),
		Empty:          res.Empty,
		NoData:         noDataMessage,
		Total:          res.Total(),
		ExtremesName:   charts.ExtremesTitle,
		MonthlyTitle:   charts.MonthlyTitle(sel.Year, res.TopN),
		HasMonthly:     len(res.Monthly) > 0,
		ExtremesURL:    template.URL("/charts/extremes.png?" + q),
		MonthlyURL:     template.URL("/charts/monthly-top.png?" + q),
		CSVURL:         template.URL("/export/rows.csv?" + q),
		XLSXURL:        template.URL("/export/rows.xlsx?" + q),
		ShowRaw:        showRaw,
		ReportsEnabled: s.reports.Enabled(),
	}
	if res.Extremes != nil {
		most, least := res.Extremes.Most, res.Extremes.Least
		v.Most, v.Least = &most, &least
	}

	if showRaw && !res.Empty {
		cols := s.ds.Columns()
		v.Columns = export.Header(cols)
		limit := min(len(res.Rows), s.opts.RawRowLimit)
		v.Rows = make([][]string, limit)
		for i := range limit {
			v.Rows[i] = export.Row(res.Rows[i], cols)
		}
		v.RawShown = limit
		v.Truncated = limit < len(res.Rows)
	}
	return v
}

func (s *Server) monthOptions(sel core.Selection) []monthOption {
	opts := []monthOption{{Value: allMonthsValue, Label: core.AllMonthsLabel, Checked: sel.AllMonths()}}
	for _, m := range s.ds.Months() {
		opts = append(opts, monthOption{Value: m.String(), Label: m.String(), Checked: m == sel.Month})
	}
	return opts
}

// handleIndex renders the full dashboard page for the requested (or default) selection.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r)
	defer cancel()

	params, err := ParseSelectionParams(s.ds, r.URL.Query())
	if err != nil {
		s.writeError(ctx, w, r, err, false)
		return
	}
	res, err := s.summary(ctx, params.Selection)
	if err != nil {
		s.writeError(ctx, w, r, err, false)
		return
	}

	data := pageData{
		Title:    pageTitle,
		Years:    s.ds.Years(),
		Selected: params.Selection.Year,
		Months:   s.monthOptions(params.Selection),
		ShowRaw:  params.ShowRaw,
		Summary:  s.buildSummaryView(res, params.ShowRaw),
	}
	s.render(ctx, w, "index", data, NewHTMXResponse())
}

// handleSummaryPartial renders the summary fragment swapped in by htmx
// whenever a control changes.
func (s *Server) handleSummaryPartial(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r)
	defer cancel()

	params, err := ParseSelectionParams(s.ds, r.URL.Query())
	if err != nil {
		s.writeError(ctx, w, r, err, false)
		return
	}
	res, err := s.summary(ctx, params.Selection)
	if err != nil {
		s.writeError(ctx, w, r, err, false)
		return
	}

	s.render(ctx, w, "summary", s.buildSummaryView(res, params.ShowRaw),
		NewHTMXResponse().TriggerSelectionChanged(params.Selection))
}

// render executes a template into a buffer so a failure never produces a
// half-written page.
func (s *Server) render(ctx context.Context, w http.ResponseWriter, name string, data any, b *HTMXResponseBuilder) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		s.sl.LogError(ctx, "Template execution failed", err, log.OpRender, log.NewFields().WithComponent(log.ComponentTemplate))
		InternalServerError("Rendering failed").Write(w)
		return
	}
	b.BodyHTML(buf.String()).Write(w)
}

// writeError maps pipeline and selection errors to HTTP responses.
func (s *Server) writeError(ctx context.Context, w http.ResponseWriter, r *http.Request, err error, asJSON bool) {
	var resp *HTMXResponseBuilder
	switch {
	case isSelectionError(err):
		resp = UnprocessableEntityError(selectionErrorMessage(err))
	case errors.Is(err, context.DeadlineExceeded):
		resp = GatewayTimeoutError("Request timed out")
	case errors.Is(err, context.Canceled):
		return
	default:
		resp = InternalServerError("Internal error")
	}

	if resp.StatusCode() >= http.StatusInternalServerError {
		s.sl.LogError(ctx, "Request failed", err, log.OpSummary, log.NewFields().WithComponent(log.ComponentHTTP))
	} else {
		log.FromContext(ctx).DebugContext(ctx, "Rejected selection", "error", err, "query", r.URL.RawQuery)
	}
	writeErrorResponse(w, resp, asJSON)
}
