package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"salesdash/internal/core"
	"salesdash/internal/sources"
)

// TableStore persists a raw order table.
type TableStore interface {
	ImportTable(ctx context.Context, source string, t core.Table) error
}

// ImportService copies an order source into a TableStore, refusing tables
// the dashboard could not load.
type ImportService struct {
	store TableStore
	cols  sources.Columns
}

// NewImportService creates the service.
func NewImportService(store TableStore, cols sources.Columns) *ImportService {
	return &ImportService{store: store, cols: cols}
}

// ImportResult summarizes one import.
type ImportResult struct {
	Stats    sources.LoadStats
	Years    []int
	Duration time.Duration
}

// Import reads the whole of src and replaces the stored table with it.
func (s *ImportService) Import(ctx context.Context, name string, src sources.OrderSource) (ImportResult, error) {
	start := time.Now()

	table, err := src.LoadOrders(ctx)
	if err != nil {
		return ImportResult{}, fmt.Errorf("read %s: %w", name, err)
	}
	ds, stats, err := sources.BuildDataset(table, s.cols)
	if err != nil {
		return ImportResult{Stats: stats}, fmt.Errorf("validate %s: %w", name, err)
	}
	if err := s.store.ImportTable(ctx, name, table); err != nil {
		return ImportResult{Stats: stats}, fmt.Errorf("store %s: %w", name, err)
	}

	res := ImportResult{Stats: stats, Years: ds.Years(), Duration: time.Since(start)}
	slog.InfoContext(ctx, "Import complete",
		"component", "services", "source", name,
		"rows", stats.Rows, "loaded", stats.Loaded, "skipped", stats.Skipped,
		"duration_ms", res.Duration.Milliseconds())
	return res, nil
}
