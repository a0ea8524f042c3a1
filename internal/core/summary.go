package core

import (
	"cmp"
	"slices"
	"time"
)

// DefaultTopN is the number of categories kept per month in the monthly ranking.
const DefaultTopN = 3

// CategoryCount is the number of orders for one category label.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// Extremes holds the most and least sold categories of an aggregate.
type Extremes struct {
	Most  CategoryCount `json:"most"`
	Least CategoryCount `json:"least"`
}

// MonthRanking is the top categories of one month, best first.
type MonthRanking struct {
	Month time.Month      `json:"-"`
	Name  string          `json:"month"`
	Top   []CategoryCount `json:"top"`
}

// compareRank orders by count descending, then category ascending.
// It is the single tie-break used by the aggregate, the extremes and the ranking.
func compareRank(a, b CategoryCount) int {
	if c := cmp.Compare(b.Count, a.Count); c != 0 {
		return c
	}
	return cmp.Compare(a.Category, b.Category)
}

// CountByCategory groups the rows by category label and counts them.
// The result has unique keys and is sorted by count desc, category asc.
func CountByCategory(rows []Order) []CategoryCount {
	counts := map[string]int{}
	for _, o := range rows {
		counts[o.Category]++
	}
	return toSortedCounts(counts)
}

func toSortedCounts(counts map[string]int) []CategoryCount {
	out := make([]CategoryCount, 0, len(counts))
	for cat, n := range counts {
		out = append(out, CategoryCount{Category: cat, Count: n})
	}
	slices.SortFunc(out, compareRank)
	return out
}

// FindExtremes returns the most and least sold categories. Ties on the maximum
// or minimum count resolve to the lexicographically smallest category label.
// ok is false when counts is empty.
func FindExtremes(counts []CategoryCount) (ext Extremes, ok bool) {
	if len(counts) == 0 {
		return Extremes{}, false
	}
	most, least := counts[0], counts[0]
	for _, c := range counts[1:] {
		if c.Count > most.Count || (c.Count == most.Count && c.Category < most.Category) {
			most = c
		}
		if c.Count < least.Count || (c.Count == least.Count && c.Category < least.Category) {
			least = c
		}
	}
	return Extremes{Most: most, Least: least}, true
}

// MonthlyTopN counts rows per (month, category) and keeps, for every month,
// the n best categories ranked by count desc, category asc.
// Months are returned in calendar order.
func MonthlyTopN(rows []Order, n int) []MonthRanking {
	if n <= 0 {
		return nil
	}
	byMonth := map[time.Month]map[string]int{}
	for _, o := range rows {
		m := o.Month()
		if byMonth[m] == nil {
			byMonth[m] = map[string]int{}
		}
		byMonth[m][o.Category]++
	}

	months := make([]time.Month, 0, len(byMonth))
	for m := range byMonth {
		months = append(months, m)
	}
	slices.Sort(months)

	out := make([]MonthRanking, 0, len(months))
	for _, m := range months {
		top := newTopK(n, compareRank)
		for cat, count := range byMonth[m] {
			top.Add(CategoryCount{Category: cat, Count: count})
		}
		out = append(out, MonthRanking{Month: m, Name: m.String(), Top: top.Result()})
	}
	return out
}
