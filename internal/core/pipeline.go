package core

import "fmt"

// Options tunes the pipeline.
type Options struct {
	TopN int
}

// Result is everything the presentation layer renders for one selection.
type Result struct {
	Selection Selection       `json:"-"`
	Rows      []Order         `json:"-"`
	Counts    []CategoryCount `json:"counts"`
	Extremes  *Extremes       `json:"extremes,omitempty"`
	Monthly   []MonthRanking  `json:"monthly"`
	Empty     bool            `json:"empty"`
	TopN      int             `json:"top_n"`
}

// Total returns the number of rows in the filtered view.
func (r Result) Total() int {
	return len(r.Rows)
}

// Run validates the selection, filters the dataset and computes every aggregate.
// An empty view is not an error: Result.Empty is set and Extremes is nil.
func Run(ds *Dataset, sel Selection, opts Options) (Result, error) {
	if ds == nil {
		return Result{}, ErrEmptyDataset
	}
	if err := ds.Validate(sel); err != nil {
		return Result{}, fmt.Errorf("validate selection: %w", err)
	}
	if opts.TopN <= 0 {
		opts.TopN = DefaultTopN
	}

	view := Filter(ds, sel)
	res := Result{
		Selection: sel,
		Rows:      view.Rows,
		Empty:     view.Empty(),
		TopN:      opts.TopN,
	}
	if res.Empty {
		res.Counts = []CategoryCount{}
		res.Monthly = []MonthRanking{}
		return res, nil
	}

	res.Counts = CountByCategory(view.Rows)
	if ext, ok := FindExtremes(res.Counts); ok {
		res.Extremes = &ext
	}
	res.Monthly = MonthlyTopN(view.Rows, opts.TopN)
	return res, nil
}
