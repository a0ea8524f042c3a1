package export

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"salesdash/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var columns = []string{"order_id", "order_purchase_timestamp", "product_category_name_english"}

func sampleRows() []core.Order {
	return []core.Order{
		{
			ID:          "o1",
			Category:    "toys",
			PurchasedAt: time.Date(2017, time.January, 5, 10, 0, 0, 0, time.UTC),
			Values:      []string{"o1", "2017-01-05 10:00:00", "toys"},
		},
		{
			ID:          "o2",
			Category:    "bed, bath",
			PurchasedAt: time.Date(2017, time.March, 1, 8, 0, 0, 0, time.UTC),
			Values:      []string{"o2", "2017-03-01 08:00:00", "bed, bath"},
		},
	}
}

func TestCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, CSV(&buf, columns, sampleRows()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, append(append([]string{}, columns...), "month"), records[0])
	assert.Equal(t, []string{"o1", "2017-01-05 10:00:00", "toys", "January"}, records[1])
	assert.Equal(t, "bed, bath", records[2][2])
	assert.Equal(t, "March", records[2][3])
}

func TestXLSX(t *testing.T) {
	ds, err := core.NewDataset(columns, sampleRows())
	require.NoError(t, err)
	res, err := core.Run(ds, core.Selection{Year: 2017}, core.Options{})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, XLSX(&buf, columns, res.Rows, &res))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(rowsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "month", rows[0][3])
	assert.Equal(t, "January", rows[1][3])

	summary, err := f.GetRows(summarySheet)
	require.NoError(t, err)
	assert.Equal(t, []string{"Year", "2017", "Month", "All Months"}, summary[0])
	assert.Equal(t, "Most Sold Category", summary[1][0])
}

func TestXLSXWithoutSummary(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, XLSX(&buf, columns, nil, nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{rowsSheet}, f.GetSheetList())
}

func TestRowPadsShortValues(t *testing.T) {
	o := sampleRows()[0]
	o.Values = o.Values[:1]
	assert.Equal(t, []string{"o1", "", "", "January"}, Row(o, []string{"a", "b", "c"}))
}

func TestExistingMonthColumnIsNotDuplicated(t *testing.T) {
	columns := []string{"order_id", "Month", "product_category_name_english"}
	assert.Equal(t, columns, Header(columns))

	o := sampleRows()[0]
	o.Values = []string{"o1", "January", "toys"}
	assert.Equal(t, []string{"o1", "January", "toys"}, Row(o, columns))

	var buf bytes.Buffer
	require.NoError(t, CSV(&buf, columns, []core.Order{o}))
	assert.Equal(t, "order_id,Month,product_category_name_english\no1,January,toys\n", buf.String())
}
