package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/atelier-labs/campaign-engine/internal/model"
	"github.com/atelier-labs/campaign-engine/internal/retrieval"
)

var frameworksCmd = &cobra.Command{
	Use:   "frameworks",
	Short: "Manage and search the marketing framework corpus",
}

var frameworksSearchFlags struct {
	Threshold float64
	Limit     int
}

var frameworksSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Vector-search framework chunks by semantic similarity",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		chunks := env.Searcher.Search(ctx, args[0], frameworksSearchFlags.Threshold, frameworksSearchFlags.Limit)
		if len(chunks) == 0 {
			fmt.Println("no matching chunks")
			return nil
		}

		for _, c := range chunks {
			fmt.Printf("[%.3f] framework=%s\n%s\n\n", c.Similarity, c.FrameworkID, c.Content)
		}

		return nil
	},
}

var frameworksLoadFlags struct {
	Dir      string
	Category string
	Workers  int
}

var frameworksLoadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load framework documents from a directory and index them",
	Long:  "Reads every .md file in the directory, upserts a framework per file (name from the filename), and rebuilds its chunk embeddings.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		entries, err := os.ReadDir(frameworksLoadFlags.Dir)
		if err != nil {
			return eris.Wrap(err, "read frameworks dir")
		}

		indexer := retrieval.NewIndexer(env.Embedder, env.Store)

		g, ctx := errgroup.WithContext(ctx)
		g.SetLimit(frameworksLoadFlags.Workers)

		var loaded int
		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
				continue
			}
			loaded++
			name := strings.TrimSuffix(entry.Name(), ".md")
			path := filepath.Join(frameworksLoadFlags.Dir, entry.Name())

			g.Go(func() error {
				data, err := os.ReadFile(path)
				if err != nil {
					return eris.Wrapf(err, "read %s", path)
				}

				fw := model.Framework{
					Name:     name,
					Category: frameworksLoadFlags.Category,
					Content:  string(data),
				}
				id, err := env.Store.UpsertFramework(ctx, &fw)
				if err != nil {
					return err
				}
				fw.ID = id

				n, err := indexer.Index(ctx, fw)
				if err != nil {
					return err
				}
				zap.L().Info("framework indexed",
					zap.String("name", fw.Name),
					zap.Int("chunks", n),
				)
				return nil
			})
		}

		if err := g.Wait(); err != nil {
			return err
		}

		zap.L().Info("frameworks loaded", zap.Int("count", loaded))
		return nil
	},
}

var frameworksIndexFlags struct {
	Workers int
}

var frameworksIndexCmd = &cobra.Command{
	Use:   "index",
	Short: "Rebuild chunk embeddings for every active framework",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		frameworks, err := env.Store.ListFrameworks(ctx)
		if err != nil {
			return err
		}

		indexer := retrieval.NewIndexer(env.Embedder, env.Store)

		g, ctx := errgroup.WithContext(ctx)
		g.SetLimit(frameworksIndexFlags.Workers)

		for _, fw := range frameworks {
			g.Go(func() error {
				n, err := indexer.Index(ctx, fw)
				if err != nil {
					return eris.Wrapf(err, "index %s", fw.Name)
				}
				zap.L().Info("framework indexed",
					zap.String("name", fw.Name),
					zap.Int("chunks", n),
				)
				return nil
			})
		}

		if err := g.Wait(); err != nil {
			return err
		}

		zap.L().Info("reindex complete", zap.Int("frameworks", len(frameworks)))
		return nil
	},
}

func init() {
	frameworksSearchCmd.Flags().Float64Var(&frameworksSearchFlags.Threshold, "threshold", retrieval.DefaultThreshold, "minimum cosine similarity")
	frameworksSearchCmd.Flags().IntVar(&frameworksSearchFlags.Limit, "limit", retrieval.DefaultLimit, "max chunks to return")

	frameworksLoadCmd.Flags().StringVar(&frameworksLoadFlags.Dir, "dir", "frameworks", "directory of .md framework documents")
	frameworksLoadCmd.Flags().StringVar(&frameworksLoadFlags.Category, "category", "", "category assigned to loaded frameworks")
	frameworksLoadCmd.Flags().IntVar(&frameworksLoadFlags.Workers, "workers", 4, "concurrent embedding workers")

	frameworksIndexCmd.Flags().IntVar(&frameworksIndexFlags.Workers, "workers", 4, "concurrent embedding workers")

	frameworksCmd.AddCommand(frameworksSearchCmd, frameworksLoadCmd, frameworksIndexCmd)
	rootCmd.AddCommand(frameworksCmd)
}
