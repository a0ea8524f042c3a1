package backend

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"salesdash/internal/config"
	"salesdash/internal/core"
	"salesdash/internal/sources"
	"salesdash/internal/sources/memory"
	"salesdash/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var header = []string{"order_id", "order_purchase_timestamp", "product_category_name_english"}

func TestOpenCSVBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orders.csv")
	csv := "order_id;order_purchase_timestamp;product_category_name_english\n" +
		"o1;2017-01-05 10:00:00;toys\n" +
		"o2;2017-02-05 10:00:00;\n"
	require.NoError(t, os.WriteFile(path, []byte(csv), 0o644))

	ds, stats, err := Open(context.Background(), nil, NewFactory(nil), Config{
		Type:         CSVBackend,
		Columns:      sources.DefaultColumns(),
		DatasetPath:  path,
		CSVDelimiter: ';',
	})
	require.NoError(t, err)
	assert.Equal(t, 1, ds.Len())
	assert.Equal(t, 1, stats.Skipped)
}

func TestOpenSQLiteBackend(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "orders.db")
	repo, err := storage.NewSQLiteRepository(dbPath, sources.DefaultColumns())
	require.NoError(t, err)
	require.NoError(t, repo.ImportTable(context.Background(), "test", core.Table{
		Header: header,
		Rows:   [][]string{{"o1", "2018-03-01 08:00:00", "auto"}},
	}))
	require.NoError(t, repo.Close())

	ds, _, err := Open(context.Background(), nil, NewFactory(nil), Config{
		Type:         SQLiteBackend,
		Columns:      sources.DefaultColumns(),
		SQLiteDBPath: dbPath,
	})
	require.NoError(t, err)
	assert.Equal(t, []int{2018}, ds.Years())
}

func TestLoadDatasetPropagatesErrors(t *testing.T) {
	src := memory.New([]string{"order_id", "category"}, [][]string{{"o1", "toys"}})
	_, _, err := LoadDataset(context.Background(), nil, src, sources.DefaultColumns())
	require.ErrorIs(t, err, sources.ErrMissingColumn)
}

func TestCreateBackendRejectsInvalidConfig(t *testing.T) {
	_, err := NewFactory(nil).CreateBackend(context.Background(), Config{Type: "memory"})
	require.Error(t, err)

	_, err = NewFactory(nil).CreateBackend(context.Background(), Config{Type: CSVBackend})
	require.Error(t, err)
}

func TestFromAppConfig(t *testing.T) {
	cfg := &config.Config{
		DataBackend:     "csv",
		DatasetPath:     "orders.csv",
		CSVDelimiter:    "tab",
		OrderIDColumn:   "id",
		TimestampColumn: "ts",
		CategoryColumn:  "cat",
	}
	bc, err := FromAppConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, CSVBackend, bc.Type)
	assert.Equal(t, '\t', bc.CSVDelimiter)
	assert.Equal(t, sources.Columns{OrderID: "id", Timestamp: "ts", Category: "cat"}, bc.Columns)

	_, err = FromAppConfig(&config.Config{DataBackend: "memory"})
	require.Error(t, err)
}
