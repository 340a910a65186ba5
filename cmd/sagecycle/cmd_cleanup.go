package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/verdin/sagecycle/config"
	"github.com/verdin/sagecycle/providers"
	"github.com/verdin/sagecycle/retention"
	"github.com/verdin/sagecycle/types"
)

var (
	cleanupDryRun        bool
	cleanupRetentionDays int
	cleanupTypes         []string
	cleanupOut           string
)

// cleanupCmd represents the cleanup command
var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Retire resources past their retention window",
	Long: `Walk the configured resource types, evaluate each item against its
retention policy, and delete the eligible ones.

Eligibility is strict: a resource must be older than the retention
window AND in an explicitly allowed terminal status. Unknown statuses
are never eligible. A failing delete is reported and skipped, never
fatal; the run always finishes with an aggregate summary written to
cleanup_results.json.`,
	Example: `  sagecycle cleanup --dry-run                  # Preview only, no deletes
  sagecycle cleanup --project churn            # One project's resources
  sagecycle cleanup --retention-days 30        # Override the window
  sagecycle cleanup --types training-job,model # Subset of types`,
	RunE: runCleanup,
}

func init() {
	rootCmd.AddCommand(cleanupCmd)

	cleanupCmd.Flags().BoolVar(&cleanupDryRun, "dry-run", false, "Evaluate and report without deleting")
	cleanupCmd.Flags().IntVar(&cleanupRetentionDays, "retention-days", -1, "Override the configured retention window for all types")
	cleanupCmd.Flags().StringSliceVar(&cleanupTypes, "types", nil, "Resource types to clean (default: all configured)")
	cleanupCmd.Flags().StringVar(&cleanupOut, "out", "cleanup_results.json", "Summary file path")
}

func runCleanup(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger()

	targets, err := cleanupTargets(cfg)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	provider, err := newProvider(ctx, cfg)
	if err != nil {
		return err
	}

	journal := openJournal(cfg, log)
	if journal != nil {
		defer func() { _ = journal.Close() }()
	}

	engine := retention.NewEngine(log, journal, nil)
	run := retention.NewRunResult(cfg.Project, cleanupDryRun, time.Now().UTC())

	for _, rt := range targets {
		result, err := cleanupOneType(ctx, cfg, provider, engine, rt)
		if err != nil {
			// A type that cannot be listed is reported and skipped; the
			// rest of the run proceeds.
			log.Error().Err(err).Str("resource_type", string(rt)).Msg("cleanup pass failed")
			run.Add(result)
			continue
		}
		run.Add(result)
	}
	run.FinishedAt = time.Now().UTC()

	if err := run.WriteSummary(cleanupOut); err != nil {
		return err
	}

	mode := "deleted"
	if cleanupDryRun {
		mode = "would delete"
	}
	fmt.Printf("cleanup finished: %s %d resources, %d failures (summary: %s)\n",
		mode, run.TotalAffected(), run.TotalFailed(), cleanupOut)
	return nil
}

// cleanupTargets resolves the --types flag against the configured
// retention table.
func cleanupTargets(cfg *config.Config) ([]types.ResourceType, error) {
	if len(cleanupTypes) == 0 {
		var targets []types.ResourceType
		for _, rt := range types.AllResourceTypes {
			if _, ok := cfg.Retention[rt]; ok {
				targets = append(targets, rt)
			}
		}
		return targets, nil
	}

	var targets []types.ResourceType
	for _, s := range cleanupTypes {
		rt, err := types.ParseResourceType(s)
		if err != nil {
			return nil, err
		}
		targets = append(targets, rt)
	}
	return targets, nil
}

func cleanupOneType(
	ctx context.Context,
	cfg *config.Config,
	provider providers.Provider,
	engine *retention.Engine,
	rt types.ResourceType,
) (retention.TypeResult, error) {
	result := retention.TypeResult{ResourceType: rt, DryRun: cleanupDryRun}

	policy, err := cfg.PolicyFor(rt, cleanupRetentionDays)
	if err != nil {
		return result, err
	}
	lister, err := provider.Lister(rt)
	if err != nil {
		return result, err
	}
	deleter, err := provider.Deleter(rt)
	if err != nil {
		return result, err
	}

	filter := types.ResourceFilter{Project: cfg.Project, Type: rt}
	return engine.Cleanup(ctx, rt, policy,
		func(ctx context.Context) ([]types.Resource, error) { return lister.List(ctx, filter) },
		deleter.Delete,
		time.Now().UTC(),
		cleanupDryRun,
	)
}
