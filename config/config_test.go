package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/verdin/sagecycle/types"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sagecycle.yaml")
	if err := os.WriteFile(path, []byte(content), 0640); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
version: "1"
project: churn-model
region: us-west-2
buckets:
  data: churn-data
  releases: churn-releases
poll:
  interval: 15s
  timeout: 30m
retention:
  training-job:
    days: 3
    statuses: [Succeeded, Failed, Stopped]
  model:
    days: 12
    statuses: [Succeeded]
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Project != "churn-model" {
		t.Errorf("Project = %q", cfg.Project)
	}
	if cfg.Region != "us-west-2" {
		t.Errorf("Region = %q", cfg.Region)
	}
	if cfg.Poll.Interval != 15*time.Second {
		t.Errorf("Poll.Interval = %v", cfg.Poll.Interval)
	}
	if cfg.Buckets.Releases != "churn-releases" {
		t.Errorf("Buckets.Releases = %q", cfg.Buckets.Releases)
	}

	jobPolicy := cfg.Retention[types.TypeTrainingJob]
	if jobPolicy.RetentionDays != 3 {
		t.Errorf("training-job retention days = %d, want 3 (file overrides default)", jobPolicy.RetentionDays)
	}
	modelPolicy := cfg.Retention[types.TypeModel]
	if modelPolicy.RetentionDays != 12 {
		t.Errorf("model retention days = %d, want 12", modelPolicy.RetentionDays)
	}
}

func TestLoad_InvalidConfigs(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"missing region", "version: \"1\"\nregion: \"\"\n"},
		{"timeout below interval", "version: \"1\"\nregion: us-east-1\npoll:\n  interval: 1m\n  timeout: 10s\n"},
		{"unknown resource type", "version: \"1\"\nregion: us-east-1\nretention:\n  volume:\n    days: 7\n    statuses: [Stopped]\n"},
		{"non-terminal eligible status", "version: \"1\"\nregion: us-east-1\nretention:\n  training-job:\n    days: 7\n    statuses: [Running]\n"},
		{"not yaml", "{{{{"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.content)); err == nil {
				t.Error("Load() should fail")
			}
		})
	}
}

func TestDefaultRetentionIsDifferentialButValid(t *testing.T) {
	table := DefaultRetention()

	for rt, policy := range table {
		if err := policy.Validate(); err != nil {
			t.Errorf("default policy for %s invalid: %v", rt, err)
		}
	}

	if table[types.TypeModel].RetentionDays <= table[types.TypeTrainingJob].RetentionDays {
		t.Error("models should default to a longer retention window than training jobs")
	}
}

func TestPolicyFor(t *testing.T) {
	cfg := Default()

	policy, err := cfg.PolicyFor(types.TypeTrainingJob, -1)
	if err != nil {
		t.Fatalf("PolicyFor() error = %v", err)
	}
	if policy.RetentionDays != 7 {
		t.Errorf("RetentionDays = %d, want default 7", policy.RetentionDays)
	}

	policy, err = cfg.PolicyFor(types.TypeTrainingJob, 30)
	if err != nil {
		t.Fatalf("PolicyFor() error = %v", err)
	}
	if policy.RetentionDays != 30 {
		t.Errorf("RetentionDays = %d, want override 30", policy.RetentionDays)
	}

	delete(cfg.Retention, types.TypeEndpoint)
	if _, err := cfg.PolicyFor(types.TypeEndpoint, -1); err == nil {
		t.Error("PolicyFor() should fail for a type with no configured policy")
	}
}
