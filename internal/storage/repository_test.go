package storage

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"salesdash/internal/core"
	ports "salesdash/internal/sources"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "orders.db"), ports.DefaultColumns())
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func sampleTable() core.Table {
	return core.Table{
		Header: []string{"order_id", "order_purchase_timestamp", "product_category_name_english"},
		Rows: [][]string{
			{"o1", "2017-01-05 10:00:00", "toys"},
			{"o2", "2017-01-07 12:30:00", "auto"},
			{"o3", "2018-03-01 08:00:00", "toys"},
		},
	}
}

func TestLoadBeforeImport(t *testing.T) {
	repo := newTestRepo(t)
	_, err := repo.LoadOrders(context.Background())
	require.ErrorIs(t, err, ports.ErrSourceUnavailable)

	_, err = repo.LastImport(context.Background())
	require.ErrorIs(t, err, sql.ErrNoRows)
}

func TestImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	require.NoError(t, repo.ImportTable(ctx, "orders.csv", sampleTable()))

	got, err := repo.LoadOrders(ctx)
	require.NoError(t, err)
	assert.Equal(t, sampleTable(), got)

	info, err := repo.LastImport(ctx)
	require.NoError(t, err)
	assert.Equal(t, "orders.csv", info.Source)
	assert.Equal(t, 3, info.Rows)

	counts, err := repo.CategoryCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"toys": 2, "auto": 1}, counts)
}

func TestImportReplacesPreviousTable(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	require.NoError(t, repo.ImportTable(ctx, "first", sampleTable()))

	second := core.Table{
		Header: []string{"order_id", "order_purchase_timestamp", "product_category_name_english", "extra"},
		Rows:   [][]string{{"x1", "2019-05-01", "garden", "1"}},
	}
	require.NoError(t, repo.ImportTable(ctx, "second", second))

	got, err := repo.LoadOrders(ctx)
	require.NoError(t, err)
	assert.Equal(t, second, got)
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orders.db")
	require.NoError(t, RunMigrations(path))
	require.NoError(t, RunMigrations(path))
}

func TestImportRejectsHeaderlessTable(t *testing.T) {
	repo := newTestRepo(t)
	require.Error(t, repo.ImportTable(context.Background(), "x", core.Table{}))
}

func TestImportMatchesHeaderLikeTheLoader(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	table := core.Table{
		Header: []string{"\ufefforder_id", "order_purchase_timestamp", "Product_Category_Name_English"},
		Rows: [][]string{
			{"o1", "2017-01-05 10:00:00", "toys"},
			{" o2 ", "2017-01-07 12:30:00", " toys "},
		},
	}
	_, _, err := ports.BuildDataset(table, ports.DefaultColumns())
	require.NoError(t, err)

	require.NoError(t, repo.ImportTable(ctx, "bom.csv", table))

	counts, err := repo.CategoryCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"toys": 2}, counts)

	got, err := repo.LoadOrders(ctx)
	require.NoError(t, err)
	assert.Equal(t, table, got, "stored rows keep their original text")
}
