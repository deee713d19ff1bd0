package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/atelier-labs/campaign-engine/internal/catalog"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List active models and their published rates",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		// The static catalog needs no database; only the db source does.
		var cat catalog.Catalog = catalog.Default()
		if cfg.Catalog.Source == "db" {
			env, err := initEnv(ctx)
			if err != nil {
				return err
			}
			defer env.Close()
			cat = env.Catalog
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tPROVIDER\tTIER\tIN $/MTOK\tOUT $/MTOK\tLABEL")
		for _, m := range cat.Active() {
			fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\t%.2f\t%s\n",
				m.ID, m.Provider, m.Tier, m.InputPerMTok, m.OutputPerMTok, m.Label)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}
