package sources

import (
	"testing"
	"time"

	"salesdash/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTable() core.Table {
	return core.Table{
		Header: []string{"\ufefforder_id", "order_purchase_timestamp", "Product_Category_Name_English"},
		Rows: [][]string{
			{"o1", "2017-01-05 10:00:00", "toys"},
			{"o2", "2017-01-07 12:30:00", "auto"},
			{"o3", "2018-03-01 08:00:00", "toys"},
			{"o4", "2018-03-02 08:00:00", ""},
			{"", "2018-03-02 08:00:00", "auto"},
		},
	}
}

func TestBuildDataset(t *testing.T) {
	ds, stats, err := BuildDataset(sampleTable(), DefaultColumns())
	require.NoError(t, err)
	assert.Equal(t, LoadStats{Rows: 5, Loaded: 3, Skipped: 2}, stats)
	assert.Equal(t, 3, ds.Len())
	assert.Equal(t, []int{2017, 2018}, ds.Years())
	assert.Equal(t, []time.Month{time.January, time.March}, ds.Months())
	assert.Equal(t, "order_id", ds.Columns()[0], "BOM stripped from header")
}

func TestBuildDatasetMissingColumn(t *testing.T) {
	tbl := sampleTable()
	tbl.Header = []string{"order_id", "when", "product_category_name_english"}

	_, _, err := BuildDataset(tbl, DefaultColumns())
	require.ErrorIs(t, err, ErrMissingColumn)
	assert.Contains(t, err.Error(), "order_purchase_timestamp")
}

func TestBuildDatasetBadTimestamp(t *testing.T) {
	tbl := sampleTable()
	tbl.Rows[1][1] = "yesterday"

	_, _, err := BuildDataset(tbl, DefaultColumns())
	require.ErrorIs(t, err, ErrBadTimestamp)
	assert.Contains(t, err.Error(), "line 3")
}

func TestBuildDatasetAllRowsSkipped(t *testing.T) {
	tbl := core.Table{
		Header: []string{"order_id", "order_purchase_timestamp", "product_category_name_english"},
		Rows:   [][]string{{"o1", "2017-01-05 10:00:00", ""}},
	}
	_, stats, err := BuildDataset(tbl, DefaultColumns())
	require.ErrorIs(t, err, core.ErrEmptyDataset)
	assert.Equal(t, 1, stats.Skipped)
}

func TestBuildDatasetShortRowsPadded(t *testing.T) {
	tbl := core.Table{
		Header: []string{"order_id", "order_purchase_timestamp", "product_category_name_english", "price"},
		Rows:   [][]string{{"o1", "2017-01-05", "toys"}},
	}
	ds, _, err := BuildDataset(tbl, DefaultColumns())
	require.NoError(t, err)
	view := core.Filter(ds, core.Selection{Year: 2017})
	require.Len(t, view.Rows, 1)
	assert.Len(t, view.Rows[0].Values, 4)
}

func TestParseTimestamp(t *testing.T) {
	for _, in := range []string{
		"2017-10-02 10:56:33",
		"2017-10-02T10:56:33Z",
		"2017-10-02T10:56:33",
		"2017-10-02",
		"10/02/2017",
	} {
		ts, err := ParseTimestamp(in)
		require.NoError(t, err, in)
		assert.Equal(t, 2017, ts.Year(), in)
		assert.Equal(t, time.October, ts.Month(), in)
	}

	_, err := ParseTimestamp("02.10.2017")
	require.ErrorIs(t, err, ErrBadTimestamp)
}

func TestColumnIndexIgnoresCaseAfterNormalizing(t *testing.T) {
	header := NormalizeHeader([]string{"\ufeff Order_ID ", "category"})
	assert.Equal(t, []string{"Order_ID", "category"}, header)

	idx, err := ColumnIndex(header, "order_id")
	require.NoError(t, err)
	assert.Equal(t, 0, idx)

	_, err = ColumnIndex(header, "order_purchase_timestamp")
	require.ErrorIs(t, err, ErrMissingColumn)
}
