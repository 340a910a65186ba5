package types

import "testing"

func TestMapRawStatus(t *testing.T) {
	tests := []struct {
		name string
		rt   ResourceType
		raw  string
		want Status
	}{
		{"training in progress", TypeTrainingJob, "InProgress", StatusRunning},
		{"training completed", TypeTrainingJob, "Completed", StatusSucceeded},
		{"training failed", TypeTrainingJob, "Failed", StatusFailed},
		{"training stopping is not terminal", TypeTrainingJob, "Stopping", StatusRunning},
		{"training stopped", TypeTrainingJob, "Stopped", StatusStopped},
		{"endpoint creating", TypeEndpoint, "Creating", StatusPending},
		{"endpoint in service", TypeEndpoint, "InService", StatusRunning},
		{"endpoint out of service", TypeEndpoint, "OutOfService", StatusStopped},
		{"endpoint failed", TypeEndpoint, "Failed", StatusFailed},
		{"model package completed", TypeModelPackage, "Completed", StatusSucceeded},
		{"model has no provider status", TypeModel, "", StatusSucceeded},
		{"storage object has no provider status", TypeStorageObject, "whatever", StatusSucceeded},
		{"unmapped raw status is unknown", TypeTrainingJob, "Hibernating", StatusUnknown},
		{"unknown type is unknown", ResourceType("volume"), "available", StatusUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MapRawStatus(tt.rt, tt.raw); got != tt.want {
				t.Errorf("MapRawStatus(%q, %q) = %v, want %v", tt.rt, tt.raw, got, tt.want)
			}
		})
	}
}

func TestStatus_IsTerminal(t *testing.T) {
	terminal := []Status{StatusSucceeded, StatusFailed, StatusStopped}
	for _, s := range terminal {
		if !s.IsTerminal() {
			t.Errorf("%v should be terminal", s)
		}
	}
	for _, s := range []Status{StatusPending, StatusRunning, StatusUnknown} {
		if s.IsTerminal() {
			t.Errorf("%v should not be terminal", s)
		}
	}
}
