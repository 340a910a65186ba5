package types

import (
	"fmt"
	"strings"
	"time"
)

// ResourceType identifies a kind of externally provisioned ML resource.
type ResourceType string

const (
	TypeTrainingJob   ResourceType = "training-job"
	TypeEndpoint      ResourceType = "endpoint"
	TypeModel         ResourceType = "model"
	TypeModelPackage  ResourceType = "model-package"
	TypeStorageObject ResourceType = "storage-object"
)

// AllResourceTypes lists every type the cleanup engine can process,
// in the order cleanup runs walk them.
var AllResourceTypes = []ResourceType{
	TypeTrainingJob,
	TypeEndpoint,
	TypeModel,
	TypeModelPackage,
	TypeStorageObject,
}

// ParseResourceType converts a CLI/config string to a ResourceType.
func ParseResourceType(s string) (ResourceType, error) {
	rt := ResourceType(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllResourceTypes {
		if rt == known {
			return known, nil
		}
	}
	return "", fmt.Errorf("unknown resource type %q", s)
}

// Resource represents one externally provisioned item subject to
// polling or cleanup. ID is the provider name, ARN, or object key and
// is immutable once created.
type Resource struct {
	ID        string       `json:"id"`
	Type      ResourceType `json:"type"`
	Project   string       `json:"project,omitempty"`
	Region    string       `json:"region,omitempty"`
	RawStatus string       `json:"raw_status"`
	Status    Status       `json:"status"`
	CreatedAt time.Time    `json:"created_at"`
}

// Age returns how long the resource has existed as of now.
func (r *Resource) Age(now time.Time) time.Duration {
	return now.Sub(r.CreatedAt)
}

// ResourceFilter narrows listings to one project's resources.
type ResourceFilter struct {
	Project string       `json:"project,omitempty"`
	Type    ResourceType `json:"type,omitempty"`
}

// Matches checks if a resource matches the filter criteria.
func (r *Resource) Matches(filter ResourceFilter) bool {
	if filter.Type != "" && r.Type != filter.Type {
		return false
	}
	if filter.Project != "" && r.Project != filter.Project && !strings.HasPrefix(r.ID, filter.Project) {
		return false
	}
	return true
}
