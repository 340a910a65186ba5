package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/verdin/sagecycle/audit"
	"github.com/verdin/sagecycle/config"
	"github.com/verdin/sagecycle/providers"
	awsprovider "github.com/verdin/sagecycle/providers/aws"
	"github.com/verdin/sagecycle/telemetry"
)

var (
	version = "0.1.0"

	flagConfig  string
	flagRegion  string
	flagProject string
	flagDebug   bool

	rootCmd = &cobra.Command{
		Use:   "sagecycle",
		Short: "SageMaker Lifecycle Janitor",
		Long: `Sagecycle - SageMaker Lifecycle Janitor

Sagecycle keeps ML pipelines tidy: it waits for training jobs and
endpoints to settle, retires resources past their retention window,
and packages reproducible release bundles with immutable metadata.

Built for CI/CD stages; every destructive pass supports dry-run and
writes an append-only journal of what it decided and did.`,
		Version: version,
	}
)

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// init sets up the root command
func init() {
	rootCmd.SetVersionTemplate(`Sagecycle {{.Version}} - SageMaker Lifecycle Janitor
`)
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to sagecycle.yaml")
	rootCmd.PersistentFlags().StringVar(&flagRegion, "region", "", "AWS region (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagProject, "project", "", "Project slug used to scope names and prefixes")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")
}

// loadConfig reads the config file, falling back to defaults, and
// applies the global flag overrides.
func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if flagConfig != "" {
		loaded, err := config.Load(flagConfig)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if flagRegion != "" {
		cfg.Region = flagRegion
	}
	if flagProject != "" {
		cfg.Project = flagProject
	}
	return cfg, cfg.Validate()
}

// newLogger builds the CLI-edge logger: console output, debug level
// behind the flag.
func newLogger() *telemetry.Logger {
	if flagDebug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	return telemetry.NewLoggerTo("sagecycle", zerolog.ConsoleWriter{Out: os.Stderr})
}

// newProvider wires the cloud provider from config.
func newProvider(ctx context.Context, cfg *config.Config) (providers.Provider, error) {
	return providers.Get(ctx, "aws", providers.Config{
		Region:        cfg.Region,
		Project:       cfg.Project,
		DataBucket:    cfg.Buckets.Data,
		ReleaseBucket: cfg.Buckets.Releases,
	})
}

// awsObjects returns the release-bucket object store when the provider
// is the AWS implementation and a bucket is configured.
func awsObjects(p providers.Provider, bucket string) *awsprovider.ObjectStore {
	ap, ok := p.(*awsprovider.Provider)
	if !ok || bucket == "" {
		return nil
	}
	return ap.Objects(bucket)
}

// openJournal opens the append-only audit journal under the configured
// directory.
func openJournal(cfg *config.Config, log *telemetry.Logger) *audit.Journal {
	journal, err := audit.Open(cfg.JournalDir)
	if err != nil {
		log.Warn().Err(err).Str("dir", cfg.JournalDir).Msg("journal disabled")
		return nil
	}
	return journal
}
