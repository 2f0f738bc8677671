package main

import (
	"fmt"

	"github.com/rpggio/benefits-portal/internal/seed"
	"github.com/spf13/cobra"
)

func runSeed(cmd *cobra.Command, _ []string) error {
	cfg, logger, cleanup, err := loadRuntime(true)
	if err != nil {
		return err
	}
	defer cleanup()

	dir := seedDir
	if dir == "" {
		dir = cfg.Seeds.Dir
	}

	a, err := newApp(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	stats, err := seed.New(a.tenants, cfg.Auth.DemoPassword, logger).LoadDir(cmd.Context(), dir)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "loaded %d companies, %d plans, %d members from %s\n",
		stats.Companies, stats.Plans, stats.Members, dir)
	return nil
}
