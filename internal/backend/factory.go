package backend

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"salesdash/internal/core"
	"salesdash/internal/sources"
	"salesdash/internal/sources/csvfile"
	gsheet "salesdash/internal/sources/google"
	"salesdash/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case CSVBackend:
		f.logger.Info("Initialized CSV backend", "path", config.DatasetPath)
		return &BackendResult{Source: csvfile.New(config.DatasetPath, config.CSVDelimiter)}, nil
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath, config.Columns)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
		return &BackendResult{Source: repo, Cleanup: repo.Close}, nil
	case SheetsBackend:
		cli, err := gsheet.New(ctx, gsheet.Options{
			SpreadsheetID: config.GoogleSpreadsheetID,
			SheetName:     config.GoogleSheetName,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
		}
		f.logger.Info("Initialized Google Sheets backend", "sheet", config.GoogleSheetName)
		return &BackendResult{Source: cli}, nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

// LoadDataset reads the whole table from src and builds the dataset.
func LoadDataset(ctx context.Context, logger *slog.Logger, src sources.OrderSource, cols sources.Columns) (*core.Dataset, sources.LoadStats, error) {
	if logger == nil {
		logger = slog.Default()
	}
	start := time.Now()

	table, err := src.LoadOrders(ctx)
	if err != nil {
		return nil, sources.LoadStats{}, fmt.Errorf("load orders: %w", err)
	}
	ds, stats, err := sources.BuildDataset(table, cols)
	if err != nil {
		return nil, stats, fmt.Errorf("build dataset: %w", err)
	}

	if stats.Skipped > 0 {
		logger.Warn("Skipped rows without order id or category", "component", "backend", "skipped", stats.Skipped)
	}
	logger.Info("Dataset loaded",
		"component", "backend",
		"rows", stats.Loaded,
		"years", ds.Years(),
		"months", len(ds.Months()),
		"duration_ms", time.Since(start).Milliseconds())
	return ds, stats, nil
}

// Open creates the configured source, loads the dataset and releases the
// source. The dataset is immutable so the source is not needed afterwards.
func Open(ctx context.Context, logger *slog.Logger, f Factory, config Config) (*core.Dataset, sources.LoadStats, error) {
	res, err := f.CreateBackend(ctx, config)
	if err != nil {
		return nil, sources.LoadStats{}, err
	}
	if res.Cleanup != nil {
		defer res.Cleanup()
	}
	return LoadDataset(ctx, logger, res.Source, config.Columns)
}
