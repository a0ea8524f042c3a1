package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"salesdash/internal/charts"
	"salesdash/internal/cli"
	"salesdash/internal/core"
)

func summaryCmd() *cobra.Command {
	var (
		year  int
		month string
		topN  int
	)

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print category counts, extremes and the monthly ranking for a selection",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			ds, _, err := cli.OpenDataset(cmd.Context(), logger, cfg)
			if err != nil {
				return err
			}

			sel := ds.DefaultSelection()
			if year != 0 {
				sel.Year = year
			}
			if sel.Month, err = core.ParseMonth(month); err != nil {
				return err
			}
			if topN == 0 {
				topN = cfg.TopN
			}

			res, err := core.Run(ds, sel, core.Options{TopN: topN})
			if err != nil {
				return err
			}
			printSummary(cmd.OutOrStdout(), res)
			return nil
		},
	}

	cmd.Flags().IntVar(&year, "year", 0, "purchase year (default: first year in the dataset)")
	cmd.Flags().StringVar(&month, "month", "all", `month name, number or "all"`)
	cmd.Flags().IntVar(&topN, "top", 0, "categories per month in the ranking (default TOP_N)")
	return cmd
}

// printSummary renders a pipeline result as terminal tables.
func printSummary(w io.Writer, res core.Result) {
	sel := res.Selection
	fmt.Fprintf(w, "%d / %s: %d orders\n\n", sel.Year, sel.MonthLabel(), res.Total())
	if res.Empty {
		fmt.Fprintln(w, "No data for this selection")
		return
	}

	fmt.Fprintf(w, "Most Sold Category: %s with %d sales\n", res.Extremes.Most.Category, res.Extremes.Most.Count)
	fmt.Fprintf(w, "Least Sold Category: %s with %d sales\n\n", res.Extremes.Least.Category, res.Extremes.Least.Count)

	counts := tablewriter.NewWriter(w)
	counts.SetHeader([]string{"Product Category", "Number of Sales"})
	for _, c := range res.Counts {
		counts.Append([]string{c.Category, strconv.Itoa(c.Count)})
	}
	counts.Render()

	fmt.Fprintf(w, "\n%s\n", charts.MonthlyTitle(sel.Year, res.TopN))
	ranking := tablewriter.NewWriter(w)
	ranking.SetHeader([]string{"Month", "Rank", "Product Category", "Number of Sales"})
	for _, mr := range res.Monthly {
		for i, c := range mr.Top {
			ranking.Append([]string{mr.Name, strconv.Itoa(i + 1), c.Category, strconv.Itoa(c.Count)})
		}
	}
	ranking.Render()
}
