// Package poller implements the blocking wait for asynchronously
// provisioned resources to reach a terminal state.
package poller

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/verdin/sagecycle/telemetry"
	"github.com/verdin/sagecycle/types"
)

// QueryFunc fetches the current raw status of a resource. It must be
// idempotent and side-effect free. A transport failure is returned as
// an error and is never interpreted as a status.
type QueryFunc func(ctx context.Context) (string, error)

// Options configures a single wait call.
type Options struct {
	ResourceID string
	// Terminal raw statuses that end the wait successfully.
	Terminal []string
	// Failure raw statuses that end the wait as a business failure.
	// Must be disjoint from Terminal.
	Failure  []string
	Interval time.Duration
	Timeout  time.Duration
}

// Outcome is the result of a wait: either a terminal status or a
// timeout. Exactly one of the two shapes applies.
type Outcome struct {
	TimedOut  bool          `json:"timed_out"`
	RawStatus string        `json:"raw_status,omitempty"`
	Status    types.Status  `json:"status,omitempty"`
	Failed    bool          `json:"failed"`
	Polls     int           `json:"polls"`
	Elapsed   time.Duration `json:"elapsed"`
}

// Poller runs wait-for-terminal loops. The zero value is not usable;
// construct with New.
type Poller struct {
	log          *telemetry.Logger
	metrics      *telemetry.Provider
	resourceType types.ResourceType
	now          func() time.Time
	sleep        func(ctx context.Context, d time.Duration) error
}

// New creates a poller for one resource type. metrics may be nil when
// instrumentation is not wanted.
func New(log *telemetry.Logger, rt types.ResourceType, metrics *telemetry.Provider) *Poller {
	return &Poller{
		log:          log,
		metrics:      metrics,
		resourceType: rt,
		now:          time.Now,
		sleep:        sleepCtx,
	}
}

// sleepCtx blocks for d or until ctx is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// validate rejects configuration errors before any query is issued.
func (o Options) validate() error {
	if o.Interval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %v", o.Interval)
	}
	if o.Timeout < o.Interval {
		return fmt.Errorf("timeout %v is shorter than poll interval %v", o.Timeout, o.Interval)
	}
	if len(o.Terminal) == 0 {
		return fmt.Errorf("terminal status set is empty")
	}
	for _, t := range o.Terminal {
		for _, f := range o.Failure {
			if t == f {
				return fmt.Errorf("status %q is in both terminal and failure sets", t)
			}
		}
	}
	return nil
}

// WaitForTerminal queries the resource status until it reaches a
// terminal or failure status, or the timeout budget is exhausted. A
// terminal answer returns immediately without a trailing sleep; the
// boundary query is still issued, but no query ever starts past the
// timeout, so the wait returns once elapsed reaches the budget. Transport
// errors from query abort the wait and are returned to the caller.
func (p *Poller) WaitForTerminal(ctx context.Context, query QueryFunc, opts Options) (Outcome, error) {
	if err := opts.validate(); err != nil {
		return Outcome{}, fmt.Errorf("invalid poll options: %w", err)
	}

	if p.metrics != nil {
		var span trace.Span
		ctx, span = p.metrics.StartSpan(ctx, "wait_for_terminal")
		defer span.End()
	}

	start := p.now()
	outcome := Outcome{}

	for {
		raw, err := query(ctx)
		if err != nil {
			return Outcome{}, fmt.Errorf("describe %s: %w", opts.ResourceID, err)
		}
		outcome.Polls++
		outcome.RawStatus = raw

		if contains(opts.Terminal, raw) || contains(opts.Failure, raw) {
			outcome.Status = types.MapRawStatus(p.resourceType, raw)
			outcome.Failed = contains(opts.Failure, raw)
			outcome.Elapsed = p.now().Sub(start)
			p.log.LogPollOutcome(ctx, opts.ResourceID, raw, false, outcome.Polls, outcome.Elapsed)
			if p.metrics != nil {
				p.metrics.RecordPollDuration(ctx, string(p.resourceType), false, outcome.Elapsed)
			}
			return outcome, nil
		}

		elapsed := p.now().Sub(start)
		if elapsed+opts.Interval > opts.Timeout {
			outcome.TimedOut = true
			outcome.Elapsed = elapsed
			p.log.LogPollOutcome(ctx, opts.ResourceID, raw, true, outcome.Polls, outcome.Elapsed)
			if p.metrics != nil {
				p.metrics.RecordPollDuration(ctx, string(p.resourceType), true, outcome.Elapsed)
			}
			return outcome, nil
		}

		p.log.LogPollTick(ctx, opts.ResourceID, raw, elapsed)
		if err := p.sleep(ctx, opts.Interval); err != nil {
			return Outcome{}, fmt.Errorf("wait for %s cancelled: %w", opts.ResourceID, err)
		}
	}
}

func contains(set []string, s string) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}
