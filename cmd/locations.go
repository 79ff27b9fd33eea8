package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/shelfwatch/shelfwatch/internal/store"
)

var (
	locBrand   string
	locState   string
	locSince   string
	locAll     bool
	locLimit   int
	locByState bool
	locByBrand bool
)

var locationsCmd = &cobra.Command{
	Use:   "locations",
	Short: "Query tracked retail locations",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if locByBrand {
			aggs, err := st.ActiveCountByBrand(ctx)
			if err != nil {
				return err
			}
			for _, a := range aggs {
				fmt.Printf("%-24s %6d\n", a.BrandID, a.ActiveCount)
			}
			return nil
		}

		if locByState {
			aggs, err := st.ActiveCountByState(ctx, locBrand)
			if err != nil {
				return err
			}
			for _, a := range aggs {
				fmt.Printf("%-4s %6d\n", a.State, a.ActiveCount)
			}
			return nil
		}

		filter := store.LocationFilter{
			BrandID:    locBrand,
			State:      strings.ToUpper(locState),
			ActiveOnly: !locAll,
			Limit:      locLimit,
		}
		if locSince != "" {
			t, err := time.Parse("2006-01-02", locSince)
			if err != nil {
				return eris.Wrap(err, "parse --since (want YYYY-MM-DD)")
			}
			filter.FirstSeenAfter = &t
		}

		locs, err := st.ListLocations(ctx, filter)
		if err != nil {
			return err
		}

		for _, l := range locs {
			flag := " "
			if !l.IsActive {
				flag = "x"
			}
			fmt.Printf("%s %-24s %-32s %-20s %-2s %s\n",
				flag, l.BrandID, l.Name, l.City, l.State,
				l.FirstSeenAt.Format("2006-01-02"))
		}
		fmt.Printf("\n%d locations\n", len(locs))
		return nil
	},
}

func init() {
	locationsCmd.Flags().StringVar(&locBrand, "brand", "", "filter by brand ID")
	locationsCmd.Flags().StringVar(&locState, "state", "", "filter by US state code")
	locationsCmd.Flags().StringVar(&locSince, "since", "", "only locations first seen after this date (YYYY-MM-DD)")
	locationsCmd.Flags().BoolVar(&locAll, "all", false, "include deactivated locations")
	locationsCmd.Flags().IntVar(&locLimit, "limit", 200, "max rows")
	locationsCmd.Flags().BoolVar(&locByState, "by-state", false, "print active counts grouped by state")
	locationsCmd.Flags().BoolVar(&locByBrand, "by-brand", false, "print active counts grouped by brand")
	rootCmd.AddCommand(locationsCmd)
}
