package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/naka-gawa/github-timeline/internal/gateway"
	"github.com/naka-gawa/github-timeline/internal/metrics"
	"github.com/naka-gawa/github-timeline/internal/storage"
	"github.com/naka-gawa/github-timeline/internal/usecase"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Updates the timeline file with summaries of new or changed days",
	Long: `Fetches the user's recent GitHub events, aggregates pushed commits per day, generates a
narrative summary for every day whose stats changed since the last run, and writes the timeline
file when anything changed. Running it again without new activity does not touch the file.`,
	RunE: runGenerate,
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	if err := cfg.RequireUser(); err != nil {
		return err
	}
	// The generation key is checked before any network activity.
	apiKey, err := cfg.GenerationKey()
	if err != nil {
		logger.Error().Err(err).Msg("cannot generate summaries")
		return err
	}

	ctx := cmd.Context()
	start := time.Now()
	m := metrics.New()

	githubGateway, err := gateway.NewGitHubGateway(gateway.Options{
		Token:   cfg.GitHubToken,
		BaseURL: cfg.GitHubBaseURL,
		Timeout: cfg.RequestTimeout,
	}, logger)
	if err != nil {
		return err
	}
	completer, err := gateway.NewCompleter(ctx, gateway.CompleterOptions{
		Provider: cfg.Provider,
		APIKey:   apiKey,
		Model:    cfg.Model,
		BaseURL:  cfg.GenerationBaseURL(),
	})
	if err != nil {
		return err
	}
	cache, err := storage.OpenStatsCache(cfg.CacheDB)
	if err != nil {
		return err
	}
	defer func() { _ = cache.Close() }()

	aggregator := usecase.NewAggregator(githubGateway, m, logger,
		usecase.WithStatsCache(cache),
		usecase.WithConcurrency(cfg.Concurrency),
		usecase.WithRetries(cfg.Retries),
	)
	narrator := usecase.NewPromptNarrator(completer, resolveAuthor(ctx, githubGateway), cfg.RequestTimeout)
	timeline := usecase.NewTimeline(
		githubGateway,
		aggregator,
		usecase.NewMerger(cfg.MaxDays, logger),
		narrator,
		storage.NewHistoryStore(cfg.HistoryFile),
		m,
		cfg.Retries,
		logger,
	)

	result, err := timeline.Run(ctx, cfg.User)
	m.ObserveRun(start, err == nil)
	if pushErr := m.Push(cfg.Pushgateway, cfg.User, cfg.RequestTimeout); pushErr != nil {
		logger.Warn().Err(pushErr).Msg("metrics were not pushed")
	}
	if err != nil {
		return err
	}

	logger.Info().
		Int("days", result.Days).
		Int("dirty", result.Dirty).
		Int("updated", result.Updated).
		Int("failed", result.Failed).
		Bool("written", result.Written).
		Dur("took", time.Since(start)).
		Msg("done")
	return nil
}

// resolveAuthor picks the name the narrator uses: the configured name, the GitHub profile
// name, or the login.
func resolveAuthor(ctx context.Context, g *gateway.GitHubGateway) string {
	if cfg.AuthorName != "" {
		return cfg.AuthorName
	}
	name, err := g.FetchDisplayName(ctx, cfg.User)
	if err != nil {
		logger.Debug().Err(err).Msg("using login as author name")
	}
	return name
}

func init() {
	rootCmd.AddCommand(generateCmd)
	flags := generateCmd.Flags()
	flags.Int("max-days", 0, "Number of active days kept in the timeline (default 7)")
	flags.String("provider", "", "Text generation provider: gemini or openai (default gemini)")
	flags.String("model", "", "Model name (default gemini-flash-latest / gpt-4.1-mini)")
	flags.String("author-name", "", "Name used in summaries (default GitHub profile name)")
	flags.String("pushgateway", "", "Prometheus Pushgateway URL for run metrics")
	flags.String("gemini-base-url", "", "Gemini API endpoint override")
	flags.String("openai-base-url", "", "OpenAI-compatible API endpoint override")
}
