package retention

import (
	"context"
	"fmt"
	"time"

	"github.com/verdin/sagecycle/audit"
	"github.com/verdin/sagecycle/telemetry"
	"github.com/verdin/sagecycle/types"
)

// Lister enumerates all resources of one type.
type Lister func(ctx context.Context) ([]types.Resource, error)

// Deleter removes a single resource by identifier.
type Deleter func(ctx context.Context, id string) error

// ItemFailure records one isolated delete failure.
type ItemFailure struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

// TypeResult is the outcome of one cleanup pass for one resource type.
// Dry-run and live results are structurally distinct: a dry run fills
// WouldDelete and leaves Deleted empty, a live run does the opposite.
type TypeResult struct {
	ResourceType types.ResourceType `json:"resource_type"`
	DryRun       bool               `json:"dry_run"`
	Listed       int                `json:"listed"`
	Skipped      int                `json:"skipped"`
	WouldDelete  []string           `json:"would_delete,omitempty"`
	Deleted      []string           `json:"deleted,omitempty"`
	Failed       []ItemFailure      `json:"failed,omitempty"`
}

// Affected returns the identifiers this pass acted on (or would act
// on), regardless of mode.
func (r TypeResult) Affected() []string {
	if r.DryRun {
		return r.WouldDelete
	}
	return r.Deleted
}

// Engine runs retention cleanup passes. It owns no policy: retention
// days and eligible statuses arrive per call so differential retention
// across types stays a caller choice.
type Engine struct {
	log     *telemetry.Logger
	journal *audit.Journal
	metrics *telemetry.Provider
}

// NewEngine creates a cleanup engine. journal and metrics may be nil
// when auditing or instrumentation is not wanted (tests).
func NewEngine(log *telemetry.Logger, journal *audit.Journal, metrics *telemetry.Provider) *Engine {
	return &Engine{log: log, journal: journal, metrics: metrics}
}

// Cleanup lists resources of one type, evaluates each against the
// policy, and deletes the eligible ones. In dry-run mode no deleter
// call is ever issued. A delete failure is isolated to its item and
// never aborts the pass; listing failures do abort, since there is
// nothing to act on.
func (e *Engine) Cleanup(
	ctx context.Context,
	resourceType types.ResourceType,
	policy Policy,
	lister Lister,
	deleter Deleter,
	now time.Time,
	dryRun bool,
) (TypeResult, error) {
	result := TypeResult{ResourceType: resourceType, DryRun: dryRun}

	if err := policy.Validate(); err != nil {
		return result, fmt.Errorf("invalid policy for %s: %w", resourceType, err)
	}

	resources, err := lister(ctx)
	if err != nil {
		return result, fmt.Errorf("list %s: %w", resourceType, err)
	}
	result.Listed = len(resources)

	for _, res := range resources {
		decision := Evaluate(res, policy, now)
		e.log.LogCleanupDecision(ctx, res.ID, decision.Eligible, decision.Reason)
		e.journalAppend(audit.EntryDecided, res.ID, decision)

		if !decision.Eligible {
			result.Skipped++
			continue
		}

		if dryRun {
			result.WouldDelete = append(result.WouldDelete, res.ID)
			e.journalAppend(audit.EntrySkipped, res.ID, decision)
			continue
		}

		if err := deleter(ctx, res.ID); err != nil {
			result.Failed = append(result.Failed, ItemFailure{ID: res.ID, Error: err.Error()})
			e.log.LogDeleteFailed(ctx, res.ID, err)
			e.journalAppendError(audit.EntryDeleteFailed, res.ID, decision, err)
			continue
		}
		result.Deleted = append(result.Deleted, res.ID)
		e.journalAppend(audit.EntryDeleted, res.ID, decision)
	}

	e.log.LogCleanupResult(ctx, string(resourceType), result.Listed, len(result.Deleted), len(result.Failed), dryRun)
	if e.metrics != nil {
		e.metrics.RecordCleanup(ctx, string(resourceType), result.Listed, len(result.Deleted), len(result.Failed))
	}

	return result, nil
}

func (e *Engine) journalAppend(t audit.EntryType, id string, data interface{}) {
	if e.journal == nil {
		return
	}
	if err := e.journal.Append(t, id, data); err != nil {
		e.log.Warn().Err(err).Str("resource_id", id).Msg("journal append failed")
	}
}

func (e *Engine) journalAppendError(t audit.EntryType, id string, data interface{}, cause error) {
	if e.journal == nil {
		return
	}
	if err := e.journal.AppendError(t, id, data, cause); err != nil {
		e.log.Warn().Err(err).Str("resource_id", id).Msg("journal append failed")
	}
}
