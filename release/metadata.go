// Package release assembles versioned, reproducible artifact bundles
// and records immutable metadata for each packaging event.
package release

import (
	"fmt"
	"time"
)

// Type distinguishes pre-merge candidates from stable releases.
type Type string

const (
	TypeCandidate Type = "candidate"
	TypeStable    Type = "stable"
)

// ParseType converts a CLI string to a release Type.
func ParseType(s string) (Type, error) {
	switch Type(s) {
	case TypeCandidate:
		return TypeCandidate, nil
	case TypeStable:
		return TypeStable, nil
	default:
		return "", fmt.Errorf("unknown release type %q (want candidate or stable)", s)
	}
}

// GroupEntry records one logical source group in the manifest.
type GroupEntry struct {
	Name     string `json:"name"`
	Files    int    `json:"files"`
	Included bool   `json:"included"`
}

// Manifest is the ordered record of which groups went into a release.
// It is computed before the artifact is written and persisted with the
// metadata, so the bundle contents can be audited without opening it.
type Manifest []GroupEntry

// IncludedGroups returns the names of groups that contributed files.
func (m Manifest) IncludedGroups() []string {
	var names []string
	for _, g := range m {
		if g.Included {
			names = append(names, g.Name)
		}
	}
	return names
}

// Metadata is the immutable record of one packaging event. The
// (ReleaseType, Version) pair is its natural identifier; the backing
// store rejects duplicates.
type Metadata struct {
	ReleaseType  Type      `json:"release_type"`
	Version      string    `json:"version"`
	ArtifactName string    `json:"artifact_name"`
	Manifest     Manifest  `json:"content_manifest"`
	Project      string    `json:"project,omitempty"`
	CommitID     string    `json:"commit_id,omitempty"`
	PipelineID   string    `json:"pipeline_id,omitempty"`
	EndpointName string    `json:"endpoint_name,omitempty"`
	ModelName    string    `json:"model_name,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Key returns the store key for the (type, version) identifier.
func (m *Metadata) Key() string {
	return fmt.Sprintf("%s/%s", m.ReleaseType, m.Version)
}

// RecordFilename is the on-disk JSON record name for this release.
func (m *Metadata) RecordFilename() string {
	return fmt.Sprintf("release_%s_%s.json", m.ReleaseType, m.Version)
}
