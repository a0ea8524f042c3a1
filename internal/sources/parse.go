package sources

import (
	"fmt"
	"strings"
	"time"

	"salesdash/internal/core"
)

// Columns names the header fields the dataset needs.
type Columns struct {
	OrderID   string
	Timestamp string
	Category  string
}

// DefaultColumns matches the exported sales table.
func DefaultColumns() Columns {
	return Columns{
		OrderID:   "order_id",
		Timestamp: "order_purchase_timestamp",
		Category:  "product_category_name_english",
	}
}

// LoadStats reports how a table was turned into a dataset.
type LoadStats struct {
	Rows    int
	Loaded  int
	Skipped int
}

var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"01/02/2006 15:04",
	"01/02/2006",
}

// ParseTimestamp parses a purchase timestamp using the supported layouts.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrBadTimestamp, s)
}

// BuildDataset turns a raw table into an immutable dataset.
// A missing column or an unparsable timestamp fails the whole load; rows
// without an order id or category are skipped and counted.
func BuildDataset(t core.Table, cols Columns) (*core.Dataset, LoadStats, error) {
	header := NormalizeHeader(t.Header)

	idIdx, err := ColumnIndex(header, cols.OrderID)
	if err != nil {
		return nil, LoadStats{}, err
	}
	tsIdx, err := ColumnIndex(header, cols.Timestamp)
	if err != nil {
		return nil, LoadStats{}, err
	}
	catIdx, err := ColumnIndex(header, cols.Category)
	if err != nil {
		return nil, LoadStats{}, err
	}

	stats := LoadStats{Rows: len(t.Rows)}
	orders := make([]core.Order, 0, len(t.Rows))
	for i, row := range t.Rows {
		id := strings.TrimSpace(safeGet(row, idIdx))
		cat := strings.TrimSpace(safeGet(row, catIdx))
		if id == "" || cat == "" {
			stats.Skipped++
			continue
		}
		ts, err := ParseTimestamp(safeGet(row, tsIdx))
		if err != nil {
			// Header is line 1.
			return nil, stats, fmt.Errorf("line %d: %w", i+2, err)
		}
		values := make([]string, len(header))
		copy(values, row)
		orders = append(orders, core.Order{
			ID:          id,
			PurchasedAt: ts,
			Category:    cat,
			Values:      values,
		})
	}
	stats.Loaded = len(orders)

	ds, err := core.NewDataset(header, orders)
	if err != nil {
		return nil, stats, err
	}
	return ds, stats, nil
}

// NormalizeHeader strips a leading byte-order mark and surrounding spaces
// from every column name.
func NormalizeHeader(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		out[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}
	return out
}

// ColumnIndex finds name in a normalized header, ignoring case.
func ColumnIndex(header []string, name string) (int, error) {
	for i, h := range header {
		if strings.EqualFold(h, name) {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %q (have %v)", ErrMissingColumn, name, header)
}

func safeGet(arr []string, idx int) string {
	if idx >= 0 && idx < len(arr) {
		return arr[idx]
	}
	return ""
}
