package main

import (
	"cmp"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"salesdash/internal/storage"
)

func statusCmd() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the last import and stored category totals of the SQLite store",
		RunE: func(cmd *cobra.Command, args []string) error {
			if dbPath == "" {
				dbPath = cfg.SQLiteDBPath
			}
			repo, err := storage.NewSQLiteRepository(dbPath, columns())
			if err != nil {
				return err
			}
			defer repo.Close()

			ctx := cmd.Context()
			info, err := repo.LastImport(ctx)
			if errors.Is(err, sql.ErrNoRows) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s is empty, run `salesdash-cli import` first\n", dbPath)
				return nil
			}
			if err != nil {
				return err
			}
			counts, err := repo.CategoryCounts(ctx)
			if err != nil {
				return err
			}
			printStatus(cmd.OutOrStdout(), info, counts)
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database path (default SQLITE_DB_PATH)")
	return cmd
}

func printStatus(w io.Writer, info storage.ImportInfo, counts map[string]int) {
	fmt.Fprintf(w, "last import: %s (%d rows) at %s\n\n", info.Source, info.Rows, info.ImportedAt.Format(time.RFC3339))

	type row struct {
		cat string
		n   int
	}
	rows := make([]row, 0, len(counts))
	for cat, n := range counts {
		rows = append(rows, row{cat, n})
	}
	slices.SortFunc(rows, func(a, b row) int {
		if c := cmp.Compare(b.n, a.n); c != 0 {
			return c
		}
		return cmp.Compare(a.cat, b.cat)
	})

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Product Category", "Stored Rows"})
	for _, r := range rows {
		cat := r.cat
		if cat == "" {
			cat = "(empty)"
		}
		table.Append([]string{cat, strconv.Itoa(r.n)})
	}
	table.Render()
}
