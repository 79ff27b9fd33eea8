package main

import (
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shelfwatch/shelfwatch/internal/model"
	"github.com/shelfwatch/shelfwatch/internal/notify"
	"github.com/shelfwatch/shelfwatch/internal/registry"
	"github.com/shelfwatch/shelfwatch/pkg/notion"
)

var (
	scanSkipSync bool
	scanDigest   bool
)

var scanCmd = &cobra.Command{
	Use:   "scan [brand-id...]",
	Short: "Scan brand locators and update territory",
	Long:  "Syncs the brand registry, runs the strategy cascade against each brand's locator, and records territory changes. With no arguments, scans every enabled brand.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if !scanSkipSync {
			if _, err := registry.Sync(ctx, st, cfg.Registry.Path); err != nil {
				return err
			}
		}

		var brands []model.Brand
		if len(args) == 0 {
			brands, err = st.ListBrands(ctx, true)
			if err != nil {
				return err
			}
		} else {
			for _, id := range args {
				b, err := st.GetBrand(ctx, id)
				if err != nil {
					return err
				}
				brands = append(brands, *b)
			}
		}
		if len(brands) == 0 {
			return eris.New("no brands to scan")
		}

		eng, err := buildEngine(st)
		if err != nil {
			return err
		}
		outcomes := eng.ScanAll(ctx, brands)
		printOutcomes(outcomes)

		if scanDigest {
			if err := cfg.Validate("notion"); err != nil {
				return err
			}
			notifier := notify.New(notion.NewClient(cfg.Notion.Token), cfg.Notion.DigestDB)
			if err := notifier.PublishDigest(ctx, outcomes); err != nil {
				zap.L().Error("digest publish failed", zap.Error(err))
			}
		}

		return nil
	},
}

// fmtElapsed rounds per-brand timings for the summary line.
const fmtElapsed = 100 * time.Millisecond

func printOutcomes(outcomes []model.ScanOutcome) {
	var succeeded int
	for _, o := range outcomes {
		switch o.Status {
		case model.ScanSucceeded:
			succeeded++
			fmt.Printf("%-24s %-14s %4d locations  +%d -%d ~%d  (%s, %s)\n",
				o.BrandID, o.Status, o.Locations,
				o.Added, o.Removed, o.Reactivated,
				o.Strategy, o.Elapsed.Round(fmtElapsed))
		default:
			fmt.Printf("%-24s %-14s %s\n", o.BrandID, o.Status, o.Reason)
		}
	}
	fmt.Printf("\n%d/%d brands succeeded\n", succeeded, len(outcomes))
}

func init() {
	scanCmd.Flags().BoolVar(&scanSkipSync, "skip-sync", false, "skip registry sync before scanning")
	scanCmd.Flags().BoolVar(&scanDigest, "digest", false, "publish a Notion territory digest after the run")
	rootCmd.AddCommand(scanCmd)
}
