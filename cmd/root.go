// Package cmd contains all the CLI commands for the application,
// built using the Cobra library.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/naka-gawa/github-timeline/internal/config"
	"github.com/naka-gawa/github-timeline/internal/logging"
)

// v holds flags, environment and config file values for all commands.
var v = viper.New()

// cfg is the validated configuration, set before any command runs.
var cfg *config.Config

var logger = zerolog.Nop()

var rootCmd = &cobra.Command{
	Use:   "github-timeline",
	Short: "A CLI tool to turn GitHub push activity into a daily narrative timeline.",
	Long: `github-timeline reads a user's recent GitHub events, groups the pushed commits by day,
and asks a text generation service for a short narrative of each new or changed day.
The result is a small JSON timeline capped at the most recent active days.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: initConfig,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func initConfig(cmd *cobra.Command, _ []string) error {
	verbose, _ := cmd.Flags().GetBool("verbose")
	logger = logging.New(os.Stderr, verbose)

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("failed to bind flags: %w", err)
	}
	configFile, _ := cmd.Flags().GetString("config")
	if err := config.ReadFile(v, configFile); err != nil {
		return err
	}
	loaded, err := config.Load(v)
	if err != nil {
		return err
	}
	cfg = loaded
	return nil
}

func init() {
	config.SetDefaults(v)

	flags := rootCmd.PersistentFlags()
	// Add a persistent flag for verbose output, available to all commands.
	flags.BoolP("verbose", "v", false, "Enable verbose/debug logging")
	flags.String("config", "", "Config file (default .timeline.yaml in . or $HOME)")
	flags.StringP("user", "u", "", "GitHub user whose activity is summarized")
	flags.String("history-file", "", "Timeline JSON file (default src/timeline.json)")
	flags.Duration("request-timeout", 0, "Timeout of each GitHub request (default 30s)")
	flags.String("github-base-url", "", "GitHub REST API root, for GitHub Enterprise or proxies")
	flags.Int("concurrency", 0, "Parallel commit detail requests per push (default 4)")
	flags.Int("retries", -1, "Retries for compare, commit and generation calls (default 2)")
	flags.String("cache-db", "", "SQLite file caching commit stats between runs")
}
