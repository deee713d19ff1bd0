package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/atelier-labs/campaign-engine/internal/model"
)

var planFlags struct {
	Depth       string
	ClientID    string
	TemplateIDs []string
}

var planCmd = &cobra.Command{
	Use:   "plan <topic>",
	Short: "Preview the research queries for a topic before running it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		depth := model.Depth(planFlags.Depth)
		if !depth.Valid() {
			return eris.Errorf("unknown depth: %s (want quick|standard|comprehensive)", planFlags.Depth)
		}

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		if err := env.requireResearch(); err != nil {
			return err
		}

		plan, err := env.Planner.GeneratePlan(ctx, args[0], depth, planFlags.TemplateIDs, planFlags.ClientID)
		if err != nil {
			return err
		}

		fmt.Printf("Research plan for %q (%s)\n", args[0], depth)
		fmt.Printf("Estimated time: %s, ~%d sources\n\n", plan.EstimatedTime, plan.EstimatedSources)
		for i, item := range plan.Items {
			fmt.Printf("%d. %s\n", i+1, item)
		}

		return nil
	},
}

func init() {
	planCmd.Flags().StringVar(&planFlags.Depth, "depth", string(model.DepthStandard), "research depth (quick|standard|comprehensive)")
	planCmd.Flags().StringVar(&planFlags.ClientID, "client", "", "client ID for context-aware planning")
	planCmd.Flags().StringSliceVar(&planFlags.TemplateIDs, "template", nil, "prompt template IDs to steer the plan")
	rootCmd.AddCommand(planCmd)
}
