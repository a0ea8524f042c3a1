package core

// View is the subset of dataset rows matching a selection.
// Rows share their Values with the dataset and must be treated as read-only.
type View struct {
	Selection Selection
	Rows      []Order
}

// Empty reports whether no row matched the selection.
func (v View) Empty() bool {
	return len(v.Rows) == 0
}

// Filter returns the rows whose year matches the selection and, unless the
// selection covers all months, whose month matches too. Dataset order is kept.
func Filter(ds *Dataset, sel Selection) View {
	var rows []Order
	for _, o := range ds.orders {
		if o.Year() != sel.Year {
			continue
		}
		if !sel.AllMonths() && o.Month() != sel.Month {
			continue
		}
		rows = append(rows, o)
	}
	return View{Selection: sel, Rows: rows}
}
