// Package export writes the filtered order rows as spreadsheets.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"salesdash/internal/core"

	"github.com/xuri/excelize/v2"
)

// MonthColumn is the derived column appended to exported rows unless the
// source already carries one.
const MonthColumn = "month"

const (
	rowsSheet    = "Orders"
	summarySheet = "Summary"
)

// Header returns the export header for a dataset's columns.
func Header(columns []string) []string {
	out := make([]string, 0, len(columns)+1)
	out = append(out, columns...)
	if hasMonthColumn(columns) {
		return out
	}
	return append(out, MonthColumn)
}

// Row returns the export cells for one order, padded to the header width.
func Row(o core.Order, columns []string) []string {
	width := len(columns)
	if hasMonthColumn(columns) {
		out := make([]string, width)
		copy(out, o.Values)
		return out
	}
	out := make([]string, width+1)
	copy(out, o.Values)
	out[width] = o.MonthName()
	return out
}

func hasMonthColumn(columns []string) bool {
	for _, c := range columns {
		if strings.EqualFold(strings.TrimSpace(c), MonthColumn) {
			return true
		}
	}
	return false
}

// CSV writes the rows as comma separated values with a header line.
func CSV(w io.Writer, columns []string, rows []core.Order) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header(columns)); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, o := range rows {
		if err := cw.Write(Row(o, columns)); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// XLSX writes a workbook with the rows on one sheet and, when res is not
// nil, the per-category counts and monthly ranking on a second sheet.
func XLSX(w io.Writer, columns []string, rows []core.Order, res *core.Result) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", rowsSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	header := Header(columns)
	if err := setRow(f, rowsSheet, 1, header); err != nil {
		return err
	}
	for i, o := range rows {
		if err := setRow(f, rowsSheet, i+2, Row(o, columns)); err != nil {
			return err
		}
	}
	if len(header) > 0 {
		last, _ := excelize.ColumnNumberToName(len(header))
		if err := f.SetColWidth(rowsSheet, "A", last, 20); err != nil {
			return fmt.Errorf("column width: %w", err)
		}
	}

	if res != nil {
		if err := writeSummary(f, res); err != nil {
			return err
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeSummary(f *excelize.File, res *core.Result) error {
	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("new sheet: %w", err)
	}

	r := 1
	put := func(vals ...any) error {
		cell, err := excelize.CoordinatesToCellName(1, r)
		if err != nil {
			return err
		}
		r++
		if err := f.SetSheetRow(summarySheet, cell, &vals); err != nil {
			return fmt.Errorf("summary row %d: %w", r-1, err)
		}
		return nil
	}

	if err := put("Year", res.Selection.Year, "Month", res.Selection.MonthLabel()); err != nil {
		return err
	}
	if res.Extremes != nil {
		if err := put("Most Sold Category", res.Extremes.Most.Category, res.Extremes.Most.Count); err != nil {
			return err
		}
		if err := put("Least Sold Category", res.Extremes.Least.Category, res.Extremes.Least.Count); err != nil {
			return err
		}
	}
	r++
	if err := put("Category", "Sales"); err != nil {
		return err
	}
	for _, c := range res.Counts {
		if err := put(c.Category, c.Count); err != nil {
			return err
		}
	}
	r++
	if err := put("Month", "Rank", "Category", "Sales"); err != nil {
		return err
	}
	for _, mr := range res.Monthly {
		for i, c := range mr.Top {
			if err := put(mr.Name, i+1, c.Category, c.Count); err != nil {
				return err
			}
		}
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("cell name: %w", err)
	}
	vals := make([]any, len(values))
	for i, v := range values {
		vals[i] = v
	}
	if err := f.SetSheetRow(sheet, cell, &vals); err != nil {
		return fmt.Errorf("row %d: %w", row, err)
	}
	return nil
}
