package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shelfwatch/shelfwatch/internal/registry"
)

var brandsCmd = &cobra.Command{
	Use:   "brands",
	Short: "Manage the brand registry",
}

var brandsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered brands",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		brands, err := st.ListBrands(ctx, false)
		if err != nil {
			return err
		}

		for _, b := range brands {
			state := "enabled"
			if !b.Enabled {
				state = "disabled"
			}
			locator := b.LocatorURL
			if locator == "" {
				locator = "(auto-discover)"
			}
			fmt.Printf("%-24s %-9s %-40s %s\n", b.ID, state, b.Website, locator)
		}
		fmt.Printf("\n%d brands\n", len(brands))
		return nil
	},
}

var brandsSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Load the registry file into the store",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		brands, err := registry.Sync(ctx, st, cfg.Registry.Path)
		if err != nil {
			return err
		}
		fmt.Printf("synced %d brands from %s\n", len(brands), cfg.Registry.Path)
		return nil
	},
}

func init() {
	brandsCmd.AddCommand(brandsListCmd)
	brandsCmd.AddCommand(brandsSyncCmd)
	rootCmd.AddCommand(brandsCmd)
}
