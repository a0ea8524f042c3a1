package core

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Dataset is the immutable set of orders loaded at startup.
// Accessors return copies so callers cannot mutate the underlying rows.
type Dataset struct {
	columns []string
	orders  []Order
	years   []int
	months  []time.Month
}

// NewDataset validates and freezes the given orders.
func NewDataset(columns []string, orders []Order) (*Dataset, error) {
	if len(orders) == 0 {
		return nil, ErrEmptyDataset
	}

	ds := &Dataset{
		columns: slices.Clone(columns),
		orders:  make([]Order, len(orders)),
	}

	yearSet := map[int]struct{}{}
	monthSet := map[time.Month]struct{}{}
	for i, o := range orders {
		if err := o.Validate(); err != nil {
			return nil, fmt.Errorf("order %d (%s): %w", i, o.ID, err)
		}
		o.Values = slices.Clone(o.Values)
		ds.orders[i] = o
		yearSet[o.Year()] = struct{}{}
		monthSet[o.Month()] = struct{}{}
	}

	for y := range yearSet {
		ds.years = append(ds.years, y)
	}
	slices.Sort(ds.years)
	for m := range monthSet {
		ds.months = append(ds.months, m)
	}
	slices.Sort(ds.months)

	return ds, nil
}

// Len returns the number of orders.
func (d *Dataset) Len() int {
	return len(d.orders)
}

// Columns returns the source header.
func (d *Dataset) Columns() []string {
	return slices.Clone(d.columns)
}

// Years returns the distinct purchase years, ascending.
func (d *Dataset) Years() []int {
	return slices.Clone(d.years)
}

// Months returns the distinct purchase months across all years, in calendar order.
func (d *Dataset) Months() []time.Month {
	return slices.Clone(d.months)
}

// MonthNames returns Months as English labels.
func (d *Dataset) MonthNames() []string {
	names := make([]string, len(d.months))
	for i, m := range d.months {
		names[i] = m.String()
	}
	return names
}

// HasYear reports whether any order was placed in the given year.
func (d *Dataset) HasYear(year int) bool {
	_, found := slices.BinarySearch(d.years, year)
	return found
}

// HasMonth reports whether any order was placed in the given month (any year).
func (d *Dataset) HasMonth(m time.Month) bool {
	_, found := slices.BinarySearch(d.months, m)
	return found
}

// Validate checks that a selection is drawn from the values present in the dataset.
func (d *Dataset) Validate(sel Selection) error {
	if !d.HasYear(sel.Year) {
		return fmt.Errorf("%w: %d", ErrUnknownYear, sel.Year)
	}
	if !sel.AllMonths() && !d.HasMonth(sel.Month) {
		return fmt.Errorf("%w: %s", ErrUnknownMonth, sel.Month)
	}
	return nil
}

// DefaultSelection returns the first year with no month filter.
func (d *Dataset) DefaultSelection() Selection {
	return Selection{Year: d.years[0], Month: AllMonths}
}

// ParseSelection parses raw year/month strings. The month accepts "all",
// "All Months" or empty for the sentinel, full or three-letter English names
// (case-insensitive) and numbers 1-12.
func ParseSelection(year, month string) (Selection, error) {
	y, err := strconv.Atoi(strings.TrimSpace(year))
	if err != nil {
		return Selection{}, fmt.Errorf("%w: year %q", ErrInvalidSelection, year)
	}
	m, err := ParseMonth(month)
	if err != nil {
		return Selection{}, err
	}
	return Selection{Year: y, Month: m}, nil
}

// ParseMonth parses a month filter value.
func ParseMonth(v string) (time.Month, error) {
	v = strings.TrimSpace(v)
	if v == "" || strings.EqualFold(v, "all") || strings.EqualFold(v, AllMonthsLabel) {
		return AllMonths, nil
	}
	if n, err := strconv.Atoi(v); err == nil {
		if n < 1 || n > 12 {
			return 0, fmt.Errorf("%w: month %d out of range", ErrInvalidSelection, n)
		}
		return time.Month(n), nil
	}
	for m := time.January; m <= time.December; m++ {
		name := m.String()
		if strings.EqualFold(v, name) || strings.EqualFold(v, name[:3]) {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: month %q", ErrInvalidSelection, v)
}
