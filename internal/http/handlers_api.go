package http

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"

	"salesdash/internal/amqp"
	"salesdash/internal/charts"
	"salesdash/internal/core"
	"salesdash/internal/export"
	"salesdash/internal/log"
)

// apiSummary is the JSON render payload for one selection.
type apiSummary struct {
	Year   int    `json:"year"`
	Month  string `json:"month"`
	Orders int    `json:"total"`
	core.Result

	Columns   []string   `json:"columns,omitempty"`
	Rows      [][]string `json:"rows,omitempty"`
	Truncated bool       `json:"truncated,omitempty"`
}

// resolve parses the query and runs the pipeline, writing the error response itself on failure.
func (s *Server) resolve(ctx context.Context, w http.ResponseWriter, r *http.Request, asJSON bool) (SelectionParams, core.Result, bool) {
	params, err := ParseSelectionParams(s.ds, r.URL.Query())
	if err != nil {
		s.writeError(ctx, w, r, err, asJSON)
		return params, core.Result{}, false
	}
	res, err := s.summary(ctx, params.Selection)
	if err != nil {
		s.writeError(ctx, w, r, err, asJSON)
		return params, core.Result{}, false
	}
	return params, res, true
}

func (s *Server) handleAPISummary(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r)
	defer cancel()

	params, res, ok := s.resolve(ctx, w, r, true)
	if !ok {
		return
	}

	payload := apiSummary{
		Year:   res.Selection.Year,
		Month:  res.Selection.MonthLabel(),
		Orders: res.Total(),
		Result: res,
	}
	if params.ShowRaw {
		view := s.buildSummaryView(res, true)
		payload.Columns, payload.Rows, payload.Truncated = view.Columns, view.Rows, view.Truncated
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleExtremesChart(w http.ResponseWriter, r *http.Request) {
	s.renderChart(w, r, "extremes", func(out io.Writer, res core.Result) error {
		return charts.Extremes(out, res.Extremes, charts.ExtremesSize)
	})
}

func (s *Server) handleMonthlyChart(w http.ResponseWriter, r *http.Request) {
	s.renderChart(w, r, "monthly_top", func(out io.Writer, res core.Result) error {
		title := charts.MonthlyTitle(res.Selection.Year, res.TopN)
		return charts.MonthlyTop(out, title, res.Monthly, charts.MonthlySize)
	})
}

func (s *Server) renderChart(w http.ResponseWriter, r *http.Request, name string, draw func(io.Writer, core.Result) error) {
	ctx, cancel := withTimeout(r)
	defer cancel()

	_, res, ok := s.resolve(ctx, w, r, false)
	if !ok {
		return
	}
	if res.Empty {
		NotFoundError(noDataMessage).Write(w)
		return
	}

	var buf bytes.Buffer
	err := draw(&buf, res)
	s.metrics.ChartRendered(name, err)
	switch {
	case errors.Is(err, charts.ErrNoData):
		NotFoundError(noDataMessage).Write(w)
		return
	case err != nil:
		s.sl.LogError(ctx, "Chart rendering failed", err, log.OpRender,
			log.NewFields().WithComponent(log.ComponentCharts).WithSelection(res.Selection.Year, res.Selection.MonthLabel()))
		InternalServerError("Chart rendering failed").Write(w)
		return
	}
	writeBytes(w, "image/png", buf.Bytes())
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	s.writeExport(w, r, "csv", "text/csv; charset=utf-8", func(out io.Writer, res core.Result) error {
		return export.CSV(out, s.ds.Columns(), res.Rows)
	})
}

func (s *Server) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	s.writeExport(w, r, "xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", func(out io.Writer, res core.Result) error {
		return export.XLSX(out, s.ds.Columns(), res.Rows, &res)
	})
}

// writeExport streams the full filtered view, not the raw-table preview.
func (s *Server) writeExport(w http.ResponseWriter, r *http.Request, format, contentType string, write func(io.Writer, core.Result) error) {
	ctx, cancel := withTimeout(r)
	defer cancel()

	_, res, ok := s.resolve(ctx, w, r, false)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := write(&buf, res); err != nil {
		s.sl.LogError(ctx, "Export failed", err, log.OpExport,
			log.NewFields().WithComponent(log.ComponentExport).WithSelection(res.Selection.Year, res.Selection.MonthLabel()))
		InternalServerError("Export failed").Write(w)
		return
	}
	s.metrics.ExportWritten(format)

	w.Header().Set("Content-Disposition", `attachment; filename="`+selectionFilename(res.Selection, format)+`"`)
	writeBytes(w, contentType, buf.Bytes())
}

// handleCreateReport enqueues an offline report for the selection in the body.
func (s *Server) handleCreateReport(w http.ResponseWriter, r *http.Request) {
	htmx := isHTMX(r)
	fail := func(resp *HTMXResponseBuilder) {
		if htmx {
			resp.TriggerErrorNotification()
		}
		writeErrorResponse(w, resp, !htmx)
	}

	if !s.reports.Enabled() {
		fail(ServiceUnavailableError("Report generation is disabled"))
		return
	}

	ctx, cancel := withTimeout(r)
	defer cancel()

	body := NewRequestBodyParser(r)
	if err := body.Parse(); err != nil {
		fail(BadRequestError("Malformed request body"))
		return
	}
	params, err := ParseSelectionParams(s.ds, body.Values("year", "month"))
	if err != nil {
		fail(UnprocessableEntityError(selectionErrorMessage(err)))
		return
	}

	msg, err := s.reports.RequestReport(ctx, params.Selection)
	if err != nil {
		s.sl.LogError(ctx, "Report request publish failed", err, log.OpPublish,
			log.NewFields().WithComponent(log.ComponentAMQP).WithSelection(params.Selection.Year, params.Selection.MonthLabel()))
		if errors.Is(err, amqp.ErrCircuitOpen) {
			fail(ServiceUnavailableError("Report queue unavailable, try again later"))
			return
		}
		fail(BadGatewayError("Could not queue report"))
		return
	}

	if htmx {
		NewHTMXResponse().
			Status(http.StatusAccepted).
			TriggerReportQueued(msg.ID).
			TriggerSuccessNotification("Report queued").
			BodyHTML(`<span class="report-status">Report ` + msg.ID + ` queued</span>`).
			Write(w)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"id":     msg.ID,
		"status": "queued",
		"year":   msg.Year,
		"month":  params.Selection.MonthLabel(),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	reports := "disabled"
	if s.reports.Enabled() {
		reports = "enabled"
		if !s.reports.Healthy() {
			reports = "degraded"
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ready",
		"orders":  s.ds.Len(),
		"years":   s.ds.Years(),
		"reports": reports,
	})
}
