package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/shelfwatch/shelfwatch/internal/feed"
	"github.com/shelfwatch/shelfwatch/internal/fetcher"
)

var (
	importRetailer string
	importURL      string
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import a retailer location feed",
	Long:  "Downloads a retailer's CSV location feed over FTP and replaces that retailer's rows in the feed table. Postgres only.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("feed"); err != nil {
			return err
		}

		st, err := openPostgres(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return err
		}

		ftpFetcher := fetcher.NewFTPFetcher(fetcher.FTPOptions{
			Timeout:  60 * time.Second,
			User:     cfg.Feed.FTPUser,
			Password: cfg.Feed.FTPPass,
		})
		im := feed.NewImporter(st.Pool(), ftpFetcher, feedStreamer)

		res, err := im.Import(ctx, importRetailer, importURL)
		if err != nil {
			return err
		}
		fmt.Printf("imported %d rows for %s (%d skipped)\n", res.Rows, res.Retailer, res.Skipped)
		return nil
	},
}

// feedStreamer adapts the shared CSV streamer to the feed file layout.
func feedStreamer(ctx context.Context, r io.Reader) (<-chan []string, <-chan error) {
	return fetcher.StreamCSV(ctx, r, fetcher.CSVOptions{HasHeader: true, TrimSpace: true})
}

func init() {
	importCmd.Flags().StringVar(&importRetailer, "retailer", "", "retailer slug (required)")
	importCmd.Flags().StringVar(&importURL, "url", "", "ftp:// feed URL (required)")
	_ = importCmd.MarkFlagRequired("retailer")
	_ = importCmd.MarkFlagRequired("url")
	rootCmd.AddCommand(importCmd)
}
