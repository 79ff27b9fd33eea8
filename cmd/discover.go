package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shelfwatch/shelfwatch/internal/discovery"
	"github.com/shelfwatch/shelfwatch/pkg/anthropic"
)

var (
	discoverCaptures  string
	discoverNoAdvisor bool
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Classify captured locator traffic into provider families",
	Long:  "Reads a JSON-lines capture of a locator page's network calls, matches calls against known provider hosts, and asks the advisor model about the rest. Use it to onboard brands whose locator the scan cascade does not recognize.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		calls, err := discovery.LoadCaptures(discoverCaptures)
		if err != nil {
			return err
		}

		matched, unmatched := discovery.Classify(calls)

		if !discoverNoAdvisor && len(unmatched) > 0 {
			if err := cfg.Validate("discovery"); err != nil {
				return err
			}
			aiClient := anthropic.NewClient(cfg.Anthropic.Key)
			advised, err := discovery.Advise(ctx, aiClient, cfg.Anthropic, unmatched)
			if err != nil {
				return err
			}
			matched = append(matched, advised...)
			unmatched = nil
		}

		for _, s := range matched {
			strat := string(s.Strategy)
			if strat == "" {
				strat = "unknown"
			}
			fmt.Printf("%-14s %4.0f%%  %-9s  %s\n", strat, s.Confidence*100, s.Source, s.Endpoint)
		}
		for _, c := range unmatched {
			fmt.Printf("%-14s             %s\n", "unmatched", c.URL)
		}
		return nil
	},
}

func init() {
	discoverCmd.Flags().StringVar(&discoverCaptures, "captures", "", "JSON-lines capture file (required)")
	discoverCmd.Flags().BoolVar(&discoverNoAdvisor, "no-advisor", false, "skip the advisor model, host rules only")
	_ = discoverCmd.MarkFlagRequired("captures")
	rootCmd.AddCommand(discoverCmd)
}
