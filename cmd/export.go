package main

import (
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/shelfwatch/shelfwatch/internal/report"
)

var (
	exportOut  string
	exportDays int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write a territory report workbook",
	Long:  "Builds active-count aggregates, recent territory gains, and the scan run log into an xlsx workbook.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if exportDays <= 0 {
			return eris.New("--days must be positive")
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		since := time.Now().UTC().AddDate(0, 0, -exportDays)
		r, err := report.Build(ctx, st, since)
		if err != nil {
			return err
		}
		if err := report.WriteXLSX(r, exportOut); err != nil {
			return err
		}

		fmt.Printf("wrote %s: %d brands, %d states, %d new locations since %s\n",
			exportOut, len(r.ByBrand), len(r.ByState), len(r.NewLocations),
			since.Format("2006-01-02"))
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportOut, "out", "territory.xlsx", "output workbook path")
	exportCmd.Flags().IntVar(&exportDays, "days", 30, "new-location window in days")
	rootCmd.AddCommand(exportCmd)
}
