package retention

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verdin/sagecycle/telemetry"
	"github.com/verdin/sagecycle/types"
)

func testEngine() *Engine {
	return NewEngine(telemetry.NewLoggerTo("test", &bytes.Buffer{}), nil, nil)
}

func fixedLister(resources []types.Resource) Lister {
	return func(ctx context.Context) ([]types.Resource, error) {
		return resources, nil
	}
}

func trainingJobs(now time.Time) []types.Resource {
	mk := func(id string, ageDays int, status types.Status) types.Resource {
		return types.Resource{
			ID:        id,
			Type:      types.TypeTrainingJob,
			Status:    status,
			CreatedAt: now.AddDate(0, 0, -ageDays),
		}
	}
	return []types.Resource{
		mk("job-old-succeeded", 10, types.StatusSucceeded),
		mk("job-old-running", 10, types.StatusRunning),
		mk("job-fresh-succeeded", 2, types.StatusSucceeded),
		mk("job-old-stopped", 30, types.StatusStopped),
	}
}

func TestCleanup_DryRunIssuesNoDeletes(t *testing.T) {
	now := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	policy := Policy{RetentionDays: 7, EligibleStatuses: terminalSet}

	deletes := 0
	deleter := func(ctx context.Context, id string) error {
		deletes++
		return nil
	}

	result, err := testEngine().Cleanup(context.Background(), types.TypeTrainingJob, policy,
		fixedLister(trainingJobs(now)), deleter, now, true)
	require.NoError(t, err)

	assert.Zero(t, deletes, "dry run must never call the deleter")
	assert.True(t, result.DryRun)
	assert.ElementsMatch(t, []string{"job-old-succeeded", "job-old-stopped"}, result.WouldDelete)
	assert.Empty(t, result.Deleted)
	assert.Equal(t, 4, result.Listed)
	assert.Equal(t, 2, result.Skipped)
}

func TestCleanup_DryRunAndLiveComputeSameEligibleSet(t *testing.T) {
	now := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	policy := Policy{RetentionDays: 7, EligibleStatuses: terminalSet}
	resources := trainingJobs(now)

	dry, err := testEngine().Cleanup(context.Background(), types.TypeTrainingJob, policy,
		fixedLister(resources), func(ctx context.Context, id string) error { return nil }, now, true)
	require.NoError(t, err)

	live, err := testEngine().Cleanup(context.Background(), types.TypeTrainingJob, policy,
		fixedLister(resources), func(ctx context.Context, id string) error { return nil }, now, false)
	require.NoError(t, err)

	wouldDelete := append([]string(nil), dry.WouldDelete...)
	deleted := append([]string(nil), live.Deleted...)
	sort.Strings(wouldDelete)
	sort.Strings(deleted)
	assert.Equal(t, wouldDelete, deleted)
}

func TestCleanup_FaultIsolation(t *testing.T) {
	// Deleting the 2nd of 3 eligible jobs fails; jobs 1 and 3 are
	// still deleted and the run returns normally.
	now := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	policy := Policy{RetentionDays: 7, EligibleStatuses: terminalSet}

	var resources []types.Resource
	for i := 1; i <= 3; i++ {
		resources = append(resources, types.Resource{
			ID:        fmt.Sprintf("job-%d", i),
			Type:      types.TypeTrainingJob,
			Status:    types.StatusSucceeded,
			CreatedAt: now.AddDate(0, 0, -10),
		})
	}

	attempts := make(map[string]int)
	deleter := func(ctx context.Context, id string) error {
		attempts[id]++
		if id == "job-2" {
			return errors.New("provider throttled")
		}
		return nil
	}

	result, err := testEngine().Cleanup(context.Background(), types.TypeTrainingJob, policy,
		fixedLister(resources), deleter, now, false)
	require.NoError(t, err, "per-item failures must not abort the run")

	assert.ElementsMatch(t, []string{"job-1", "job-3"}, result.Deleted)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, "job-2", result.Failed[0].ID)
	assert.Contains(t, result.Failed[0].Error, "throttled")

	for id, n := range attempts {
		assert.Equal(t, 1, n, "each eligible item attempted exactly once, %s attempted %d times", id, n)
	}
	assert.Len(t, attempts, 3)
}

func TestCleanup_ListerErrorAborts(t *testing.T) {
	now := time.Now()
	policy := Policy{RetentionDays: 7, EligibleStatuses: terminalSet}
	lister := func(ctx context.Context) ([]types.Resource, error) {
		return nil, errors.New("provider unreachable")
	}

	_, err := testEngine().Cleanup(context.Background(), types.TypeTrainingJob, policy,
		lister, func(ctx context.Context, id string) error { return nil }, now, false)
	require.Error(t, err)
}

func TestCleanup_InvalidPolicyFailsBeforeListing(t *testing.T) {
	listed := false
	lister := func(ctx context.Context) ([]types.Resource, error) {
		listed = true
		return nil, nil
	}

	_, err := testEngine().Cleanup(context.Background(), types.TypeTrainingJob,
		Policy{RetentionDays: -1, EligibleStatuses: terminalSet},
		lister, func(ctx context.Context, id string) error { return nil }, time.Now(), false)
	require.Error(t, err)
	assert.False(t, listed, "configuration errors fail before any external call")
}

func TestRunResult_WriteSummary(t *testing.T) {
	now := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	run := NewRunResult("churn-model", false, now)
	run.Add(TypeResult{
		ResourceType: types.TypeTrainingJob,
		Deleted:      []string{"job-1", "job-3"},
		Failed:       []ItemFailure{{ID: "job-2", Error: "throttled"}},
		Listed:       3,
	})
	run.Add(TypeResult{
		ResourceType: types.TypeEndpoint,
		DryRun:       false,
		Listed:       1,
		Skipped:      1,
	})
	run.FinishedAt = now.Add(time.Minute)

	path := filepath.Join(t.TempDir(), "cleanup_results.json")
	require.NoError(t, run.WriteSummary(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded struct {
		DryRun   bool                `json:"dry_run"`
		Project  string              `json:"project"`
		Affected map[string][]string `json:"affected"`
		Failures map[string][]ItemFailure `json:"failures"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, "churn-model", decoded.Project)
	assert.Equal(t, []string{"job-1", "job-3"}, decoded.Affected["training-job"])
	assert.Empty(t, decoded.Affected["endpoint"])
	require.Len(t, decoded.Failures["training-job"], 1)
	assert.Equal(t, "job-2", decoded.Failures["training-job"][0].ID)

	assert.Equal(t, 2, run.TotalAffected())
	assert.Equal(t, 1, run.TotalFailed())
}
