package types

// Status is the canonical lifecycle state a raw provider status maps to.
type Status string

const (
	StatusPending   Status = "Pending"
	StatusRunning   Status = "Running"
	StatusSucceeded Status = "Succeeded"
	StatusFailed    Status = "Failed"
	StatusStopped   Status = "Stopped"
	StatusUnknown   Status = "Unknown"
)

// IsTerminal reports whether the provider will make no further
// transitions from this status.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusSucceeded, StatusFailed, StatusStopped:
		return true
	default:
		return false
	}
}

// rawStatusMap translates SageMaker status strings per resource type.
// Anything absent maps to StatusUnknown so it can never match a cleanup
// allow-list by accident.
var rawStatusMap = map[ResourceType]map[string]Status{
	TypeTrainingJob: {
		"InProgress": StatusRunning,
		"Completed":  StatusSucceeded,
		"Failed":     StatusFailed,
		"Stopping":   StatusRunning,
		"Stopped":    StatusStopped,
	},
	TypeEndpoint: {
		"Creating":       StatusPending,
		"Updating":       StatusRunning,
		"SystemUpdating": StatusRunning,
		"RollingBack":    StatusRunning,
		"InService":      StatusRunning,
		"Deleting":       StatusRunning,
		"Failed":         StatusFailed,
		"OutOfService":   StatusStopped,
	},
	TypeModelPackage: {
		"Pending":    StatusPending,
		"InProgress": StatusRunning,
		"Completed":  StatusSucceeded,
		"Failed":     StatusFailed,
		"Deleting":   StatusRunning,
	},
}

// MapRawStatus converts a provider-reported status string to the
// canonical Status. Models and storage objects have no provider status;
// they report Succeeded because existing is their only state.
func MapRawStatus(rt ResourceType, raw string) Status {
	if rt == TypeModel || rt == TypeStorageObject {
		return StatusSucceeded
	}
	if m, ok := rawStatusMap[rt]; ok {
		if s, ok := m[raw]; ok {
			return s
		}
	}
	return StatusUnknown
}
