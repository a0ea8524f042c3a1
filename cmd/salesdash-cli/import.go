package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"salesdash/internal/services"
	"salesdash/internal/sources"
	"salesdash/internal/sources/csvfile"
	gsheet "salesdash/internal/sources/google"
	"salesdash/internal/storage"
)

func columns() sources.Columns {
	return sources.Columns{
		OrderID:   cfg.OrderIDColumn,
		Timestamp: cfg.TimestampColumn,
		Category:  cfg.CategoryColumn,
	}
}

func importCmd() *cobra.Command {
	var csvPath, dbPath, delimiter string
	var fromSheet bool

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load a CSV file or the configured Google Sheet into the SQLite store",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if dbPath == "" {
				dbPath = cfg.SQLiteDBPath
			}
			if delimiter != "" {
				cfg.CSVDelimiter = delimiter
			}

			var (
				src  sources.OrderSource
				name string
			)
			switch {
			case fromSheet && csvPath != "":
				return fmt.Errorf("--csv and --sheet are mutually exclusive")
			case fromSheet:
				client, err := gsheet.New(ctx, gsheet.Options{
					SpreadsheetID: cfg.GoogleSpreadsheetID,
					SheetName:     cfg.GoogleSheetName,
				})
				if err != nil {
					return err
				}
				src, name = client, "sheets:"+cfg.GoogleSpreadsheetID+"/"+cfg.GoogleSheetName
			case csvPath != "":
				src, name = csvfile.New(csvPath, cfg.Delimiter()), "csv:"+csvPath
			default:
				return fmt.Errorf("one of --csv or --sheet is required")
			}

			repo, err := storage.NewSQLiteRepository(dbPath, columns())
			if err != nil {
				return err
			}
			defer repo.Close()

			res, err := services.NewImportService(repo, columns()).Import(ctx, name, src)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "imported %d rows (%d usable, %d skipped) covering years %v into %s\n",
				res.Stats.Rows, res.Stats.Loaded, res.Stats.Skipped, res.Years, dbPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&csvPath, "csv", "", "path of the CSV file to import")
	cmd.Flags().BoolVar(&fromSheet, "sheet", false, "import GOOGLE_SHEET_NAME from GOOGLE_SPREADSHEET_ID")
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database path (default SQLITE_DB_PATH)")
	cmd.Flags().StringVar(&delimiter, "delimiter", "", "CSV delimiter (default CSV_DELIMITER)")
	return cmd
}
