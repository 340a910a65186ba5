package retention

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/verdin/sagecycle/types"
)

// RunResult aggregates one cleanup invocation across resource types.
type RunResult struct {
	StartedAt  time.Time                         `json:"started_at"`
	FinishedAt time.Time                         `json:"finished_at"`
	DryRun     bool                              `json:"dry_run"`
	Project    string                            `json:"project,omitempty"`
	Types      map[types.ResourceType]TypeResult `json:"types"`
}

// NewRunResult starts an empty aggregate.
func NewRunResult(project string, dryRun bool, startedAt time.Time) *RunResult {
	return &RunResult{
		StartedAt: startedAt,
		DryRun:    dryRun,
		Project:   project,
		Types:     make(map[types.ResourceType]TypeResult),
	}
}

// Add records the result of one per-type pass.
func (r *RunResult) Add(result TypeResult) {
	r.Types[result.ResourceType] = result
}

// TotalAffected counts identifiers acted on (or reported) across types.
func (r *RunResult) TotalAffected() int {
	total := 0
	for _, tr := range r.Types {
		total += len(tr.Affected())
	}
	return total
}

// TotalFailed counts isolated per-item failures across types.
func (r *RunResult) TotalFailed() int {
	total := 0
	for _, tr := range r.Types {
		total += len(tr.Failed)
	}
	return total
}

// summaryFile is the persisted shape of cleanup_results.json: resource
// type to affected identifiers, plus enough context to read it later.
type summaryFile struct {
	StartedAt  time.Time                            `json:"started_at"`
	FinishedAt time.Time                            `json:"finished_at"`
	DryRun     bool                                 `json:"dry_run"`
	Project    string                               `json:"project,omitempty"`
	Affected   map[types.ResourceType][]string      `json:"affected"`
	Failures   map[types.ResourceType][]ItemFailure `json:"failures,omitempty"`
}

// WriteSummary persists the run summary as JSON at path.
func (r *RunResult) WriteSummary(path string) error {
	out := summaryFile{
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		DryRun:     r.DryRun,
		Project:    r.Project,
		Affected:   make(map[types.ResourceType][]string, len(r.Types)),
		Failures:   make(map[types.ResourceType][]ItemFailure),
	}
	for rt, tr := range r.Types {
		out.Affected[rt] = tr.Affected()
		if len(tr.Failed) > 0 {
			out.Failures[rt] = tr.Failed
		}
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal cleanup summary: %w", err)
	}
	if err := os.WriteFile(path, data, 0640); err != nil {
		return fmt.Errorf("write cleanup summary: %w", err)
	}
	return nil
}
