package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"salesdash/internal/amqp"
	"salesdash/internal/charts"
	"salesdash/internal/core"
	"salesdash/internal/export"

	"golang.org/x/sync/errgroup"
)

// Output file names inside a report directory.
const (
	ExtremesFile   = "extremes.png"
	MonthlyTopFile = "monthly_top.png"
	RowsFile       = "rows.xlsx"
	SummaryFile    = "summary.json"
)

// Observer receives the outcome of every processed report.
type Observer interface {
	ReportProcessed(err error)
}

// Summary is the JSON document written next to the report artifacts.
type Summary struct {
	ID          string      `json:"id"`
	Year        int         `json:"year"`
	Month       string      `json:"month"`
	RequestedAt time.Time   `json:"requested_at"`
	GeneratedAt time.Time   `json:"generated_at"`
	Total       int         `json:"total"`
	Result      core.Result `json:"result"`
	Files       []string    `json:"files"`
}

// ReportWorker renders report bundles for report requests.
type ReportWorker struct {
	ds        *core.Dataset
	outputDir string
	opts      core.Options
	observer  Observer
	now       func() time.Time
}

func NewReportWorker(ds *core.Dataset, outputDir string, topN int, observer Observer) *ReportWorker {
	return &ReportWorker{
		ds:        ds,
		outputDir: outputDir,
		opts:      core.Options{TopN: topN},
		observer:  observer,
		now:       time.Now,
	}
}

// HandleReportRequest processes a single report request from AMQP.
// Selections that do not exist in the dataset fail permanently.
func (w *ReportWorker) HandleReportRequest(ctx context.Context, msg *amqp.ReportRequestMessage) (err error) {
	start := w.now()
	defer func() {
		if w.observer != nil {
			w.observer.ReportProcessed(err)
		}
	}()

	sel := msg.Selection()
	slog.InfoContext(ctx, "Processing report request",
		"component", "worker",
		"report_id", msg.ID,
		"year", sel.Year,
		"month", sel.MonthLabel())

	res, err := core.Run(w.ds, sel, w.opts)
	if err != nil {
		return fmt.Errorf("run pipeline: %w: %w", err, amqp.ErrPermanent)
	}

	dir := filepath.Join(w.outputDir, msg.ID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create report directory: %w", err)
	}

	files, err := w.render(ctx, dir, res)
	if err != nil {
		return err
	}

	summary := Summary{
		ID:          msg.ID,
		Year:        sel.Year,
		Month:       sel.MonthLabel(),
		RequestedAt: msg.RequestedAt,
		GeneratedAt: w.now().UTC(),
		Total:       res.Total(),
		Result:      res,
		Files:       append(files, SummaryFile),
	}
	if err := writeFile(filepath.Join(dir, SummaryFile), func(wr io.Writer) error {
		enc := json.NewEncoder(wr)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	}); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}

	slog.InfoContext(ctx, "Report written",
		"component", "worker",
		"report_id", msg.ID,
		"dir", dir,
		"files", len(summary.Files),
		"empty", res.Empty,
		"duration_ms", time.Since(start).Milliseconds())
	return nil
}

// render writes the artifacts concurrently and returns the written names.
// Charts are skipped for an empty selection.
func (w *ReportWorker) render(ctx context.Context, dir string, res core.Result) ([]string, error) {
	g, ctx := errgroup.WithContext(ctx)

	files := []string{RowsFile}
	g.Go(func() error {
		return writeFile(filepath.Join(dir, RowsFile), func(wr io.Writer) error {
			return export.XLSX(wr, w.ds.Columns(), res.Rows, &res)
		})
	})

	if !res.Empty {
		files = append(files, ExtremesFile, MonthlyTopFile)
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return writeFile(filepath.Join(dir, ExtremesFile), func(wr io.Writer) error {
				return charts.Extremes(wr, res.Extremes, charts.ExtremesSize)
			})
		})
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			title := charts.MonthlyTitle(res.Selection.Year, res.TopN)
			return writeFile(filepath.Join(dir, MonthlyTopFile), func(wr io.Writer) error {
				return charts.MonthlyTop(wr, title, res.Monthly, charts.MonthlySize)
			})
		})
	}

	if err := g.Wait(); err != nil {
		if errors.Is(err, charts.ErrNoData) {
			return nil, fmt.Errorf("render report: %w: %w", err, amqp.ErrPermanent)
		}
		return nil, fmt.Errorf("render report: %w", err)
	}
	return files, nil
}

// writeFile renders into memory and then atomically replaces path.
func writeFile(path string, render func(io.Writer) error) error {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		return fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return nil
}
