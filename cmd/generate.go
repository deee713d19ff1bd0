package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/atelier-labs/campaign-engine/internal/model"
)

var generateFlags struct {
	Prompt      string
	File        string
	System      string
	TaskType    string
	Complexity  string
	Priority    string
	Model       string
	UserID      string
	ClientID    string
	MaxTokens   int64
	Temperature float64
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Run one generation task through the model orchestrator",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		prompt := generateFlags.Prompt
		if generateFlags.File != "" {
			data, err := os.ReadFile(generateFlags.File)
			if err != nil {
				return eris.Wrap(err, "read prompt file")
			}
			prompt = string(data)
		}
		if prompt == "" {
			return eris.New("either --prompt or --file is required")
		}

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		task := model.Task{
			Type:       model.TaskType(generateFlags.TaskType),
			Complexity: model.Complexity(generateFlags.Complexity),
			Priority:   model.Priority(generateFlags.Priority),
			ForceModel: generateFlags.Model,
			UserID:     generateFlags.UserID,
			ClientID:   generateFlags.ClientID,
			System:     generateFlags.System,
			Messages:   []model.Message{{Role: "user", Content: prompt}},
			MaxTokens:  generateFlags.MaxTokens,
		}
		if cmd.Flags().Changed("temperature") {
			temp := generateFlags.Temperature
			task.Temperature = &temp
		}

		result, err := env.Orchestrator.Execute(ctx, task)
		if err != nil {
			return err
		}

		fmt.Println(result.Content)

		zap.L().Info("generation complete",
			zap.String("model", result.Model.ID),
			zap.Bool("used_fallback", result.UsedFallback),
			zap.Int64("input_tokens", result.InputTokens),
			zap.Int64("output_tokens", result.OutputTokens),
			zap.Float64("cost_usd", result.CostUSD),
		)

		return nil
	},
}

func init() {
	generateCmd.Flags().StringVar(&generateFlags.Prompt, "prompt", "", "prompt text")
	generateCmd.Flags().StringVar(&generateFlags.File, "file", "", "file containing the prompt")
	generateCmd.Flags().StringVar(&generateFlags.System, "system", "", "system prompt")
	generateCmd.Flags().StringVar(&generateFlags.TaskType, "type", string(model.TaskContentGeneration), "task type")
	generateCmd.Flags().StringVar(&generateFlags.Complexity, "complexity", string(model.ComplexityMedium), "task complexity (simple|medium|complex)")
	generateCmd.Flags().StringVar(&generateFlags.Priority, "priority", string(model.PriorityQuality), "selection priority (cost|speed|quality)")
	generateCmd.Flags().StringVar(&generateFlags.Model, "model", "", "force a specific model, no fallback")
	generateCmd.Flags().StringVar(&generateFlags.UserID, "user", "cli", "user ID recorded on the execution")
	generateCmd.Flags().StringVar(&generateFlags.ClientID, "client", "", "client ID for context ownership")
	generateCmd.Flags().Int64Var(&generateFlags.MaxTokens, "max-tokens", 0, "max output tokens (0 = provider default)")
	generateCmd.Flags().Float64Var(&generateFlags.Temperature, "temperature", 0, "sampling temperature")
	rootCmd.AddCommand(generateCmd)
}
