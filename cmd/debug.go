package cmd

import (
	"github.com/spf13/cobra"

	"github.com/naka-gawa/github-timeline/internal/gateway"
	"github.com/naka-gawa/github-timeline/internal/metrics"
	"github.com/naka-gawa/github-timeline/internal/report"
	"github.com/naka-gawa/github-timeline/internal/storage"
	"github.com/naka-gawa/github-timeline/internal/usecase"
)

var debugCmd = &cobra.Command{
	Use:   "debug",
	Short: "Prints the aggregated daily activity without generating or writing anything",
	Long: `Fetches and aggregates the user's recent push activity exactly like generate does, then
prints one row per day. With --verbose the commit messages of every day are listed as well.
No generation credential is needed and the timeline file is not touched.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.RequireUser(); err != nil {
			return err
		}
		ctx := cmd.Context()

		githubGateway, err := gateway.NewGitHubGateway(gateway.Options{
			Token:   cfg.GitHubToken,
			BaseURL: cfg.GitHubBaseURL,
			Timeout: cfg.RequestTimeout,
		}, logger)
		if err != nil {
			return err
		}
		cache, err := storage.OpenStatsCache(cfg.CacheDB)
		if err != nil {
			return err
		}
		defer func() { _ = cache.Close() }()

		events, err := githubGateway.FetchEvents(ctx, cfg.User)
		if err != nil {
			return err
		}
		aggregator := usecase.NewAggregator(githubGateway, metrics.New(), logger,
			usecase.WithStatsCache(cache),
			usecase.WithConcurrency(cfg.Concurrency),
			usecase.WithRetries(cfg.Retries),
		)
		activity, err := aggregator.Aggregate(ctx, events)
		if err != nil {
			return err
		}
		verbose, _ := cmd.Flags().GetBool("verbose")
		return report.PrintActivity(cmd.OutOrStdout(), activity, verbose)
	},
}

func init() {
	rootCmd.AddCommand(debugCmd)
}
