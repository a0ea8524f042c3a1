package core

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

// AllMonths is the Selection month sentinel meaning "no month filter".
const AllMonths time.Month = 0

// AllMonthsLabel is how the sentinel is presented to users.
const AllMonthsLabel = "All Months"

type (
	// Order is a single row of the sales dataset.
	Order struct {
		ID          string
		PurchasedAt time.Time
		Category    string
		// Values holds every source column in header order.
		Values []string
	}

	// Selection is the (year, month-or-all) pair chosen by the user.
	Selection struct {
		Year  int
		Month time.Month // AllMonths for no month filter
	}

	// Table is the raw tabular form produced by a source before parsing.
	Table struct {
		Header []string
		Rows   [][]string
	}
)

var (
	ErrInvalidSelection = errors.New("invalid selection")
	ErrUnknownYear      = errors.New("year not present in dataset")
	ErrUnknownMonth     = errors.New("month not present in dataset")
	ErrEmptyDataset     = errors.New("dataset has no orders")
)

// Year returns the calendar year of the purchase.
func (o Order) Year() int {
	return o.PurchasedAt.Year()
}

// Month returns the calendar month of the purchase.
func (o Order) Month() time.Month {
	return o.PurchasedAt.Month()
}

// MonthName returns the English month label, e.g. "January".
func (o Order) MonthName() string {
	return o.PurchasedAt.Month().String()
}

// Validate checks the record invariants.
func (o Order) Validate() error {
	if strings.TrimSpace(o.ID) == "" {
		return errors.New("empty order id")
	}
	if strings.TrimSpace(o.Category) == "" {
		return errors.New("empty category")
	}
	if o.PurchasedAt.IsZero() {
		return errors.New("purchase timestamp cannot be zero")
	}
	return nil
}

// AllMonths reports whether the selection has no month filter.
func (s Selection) AllMonths() bool {
	return s.Month == AllMonths
}

// MonthLabel returns the month name, or AllMonthsLabel for the sentinel.
func (s Selection) MonthLabel() string {
	if s.AllMonths() {
		return AllMonthsLabel
	}
	return s.Month.String()
}

// Key returns a stable string usable as a cache key.
func (s Selection) Key() string {
	return strconv.Itoa(s.Year) + "-" + strconv.Itoa(int(s.Month))
}
