package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/verdin/sagecycle/poller"
	"github.com/verdin/sagecycle/telemetry"
	"github.com/verdin/sagecycle/types"
)

var (
	waitType     string
	waitInterval time.Duration
	waitTimeout  time.Duration
)

// waitStatusSets maps a pollable resource type to the raw statuses
// that end the wait. Anything outside both sets keeps the loop going.
var waitStatusSets = map[types.ResourceType]struct {
	terminal []string
	failure  []string
}{
	types.TypeTrainingJob:  {terminal: []string{"Completed", "Stopped"}, failure: []string{"Failed"}},
	types.TypeEndpoint:     {terminal: []string{"InService", "OutOfService"}, failure: []string{"Failed"}},
	types.TypeModelPackage: {terminal: []string{"Completed"}, failure: []string{"Failed"}},
}

// waitCmd represents the wait command
var waitCmd = &cobra.Command{
	Use:   "wait <resource-id>",
	Short: "Block until a resource reaches a terminal state",
	Long: `Poll a training job, endpoint, or model package until it settles.

The wait exits non-zero when the resource ends in a failure status or
the timeout budget runs out, so pipeline stages can gate on it.`,
	Example: `  sagecycle wait churn-train-42 --type training-job
  sagecycle wait churn-staging --type endpoint --timeout 30m
  sagecycle wait churn-train-42 --type training-job --interval 15s`,
	Args: cobra.ExactArgs(1),
	RunE: runWait,
}

func init() {
	rootCmd.AddCommand(waitCmd)

	waitCmd.Flags().StringVar(&waitType, "type", "training-job", "Resource type (training-job, endpoint, model-package)")
	waitCmd.Flags().DurationVar(&waitInterval, "interval", 0, "Poll interval (default from config)")
	waitCmd.Flags().DurationVar(&waitTimeout, "timeout", 0, "Total wait budget (default from config)")
}

func runWait(cmd *cobra.Command, args []string) error {
	resourceID := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger()

	rt, err := types.ParseResourceType(waitType)
	if err != nil {
		return err
	}
	sets, ok := waitStatusSets[rt]
	if !ok {
		return fmt.Errorf("resource type %s has no pollable status", rt)
	}

	ctx := cmd.Context()

	metrics, err := telemetry.NewProvider(ctx, telemetry.ProviderConfig{
		ServiceName:   "sagecycle",
		TraceEndpoint: cfg.OTEL.TraceEndpoint,
		Insecure:      cfg.OTEL.Insecure,
	})
	if err != nil {
		return fmt.Errorf("failed to init telemetry: %w", err)
	}
	defer func() { _ = metrics.Shutdown(context.Background()) }()

	provider, err := newProvider(ctx, cfg)
	if err != nil {
		return err
	}
	describer, err := provider.Describer(rt)
	if err != nil {
		return err
	}

	interval := cfg.Poll.Interval
	if waitInterval > 0 {
		interval = waitInterval
	}
	timeout := cfg.Poll.Timeout
	if waitTimeout > 0 {
		timeout = waitTimeout
	}

	p := poller.New(log, rt, metrics)
	outcome, err := p.WaitForTerminal(ctx, func(ctx context.Context) (string, error) {
		return describer.Describe(ctx, resourceID)
	}, poller.Options{
		ResourceID: resourceID,
		Terminal:   sets.terminal,
		Failure:    sets.failure,
		Interval:   interval,
		Timeout:    timeout,
	})
	if err != nil {
		return err
	}

	if outcome.TimedOut {
		return fmt.Errorf("%s did not reach a terminal state within %v (last status %s after %d polls)",
			resourceID, timeout, outcome.RawStatus, outcome.Polls)
	}
	if outcome.Failed {
		return fmt.Errorf("%s ended in failure status %s after %v", resourceID, outcome.RawStatus, outcome.Elapsed.Round(time.Second))
	}

	fmt.Printf("%s reached %s after %v (%d polls)\n", resourceID, outcome.RawStatus, outcome.Elapsed.Round(time.Second), outcome.Polls)
	return nil
}
