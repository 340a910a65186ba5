package release

import (
	"archive/zip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/verdin/sagecycle/audit"
	"github.com/verdin/sagecycle/telemetry"
)

// ObjectStore replicates release metadata to a durable remote store.
// Replication is best effort: the local release is the primary record.
type ObjectStore interface {
	Put(ctx context.Context, key string, body []byte) error
}

// Request describes one packaging invocation.
type Request struct {
	ReleaseType  Type
	Version      string
	Groups       []SourceGroup
	OutDir       string
	Project      string
	CommitID     string
	PipelineID   string
	EndpointName string
	ModelName    string
}

// Packager assembles release bundles. Construct with NewPackager.
type Packager struct {
	store   *Store
	objects ObjectStore         // optional
	log     *telemetry.Logger
	journal *audit.Journal      // optional
	metrics *telemetry.Provider // optional
	now     func() time.Time
}

// NewPackager creates a release packager backed by the given store.
func NewPackager(store *Store, objects ObjectStore, log *telemetry.Logger, journal *audit.Journal, metrics *telemetry.Provider) *Packager {
	return &Packager{
		store:   store,
		objects: objects,
		log:     log,
		journal: journal,
		metrics: metrics,
		now:     time.Now,
	}
}

// Create assembles the artifact bundle and records its metadata. The
// identifier (release type, version) must be unused; a duplicate fails
// with ErrConflict before any artifact is produced. The metadata
// record is written last and acts as the commit marker.
func (p *Packager) Create(ctx context.Context, req Request) (*Metadata, error) {
	if err := p.validate(req); err != nil {
		return nil, err
	}

	exists, err := p.store.Exists(req.ReleaseType, req.Version)
	if err != nil {
		return nil, fmt.Errorf("check release index: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("%w: %s/%s", ErrConflict, req.ReleaseType, req.Version)
	}

	manifest, files, err := p.resolveGroups(req.Groups)
	if err != nil {
		return nil, err
	}

	meta := &Metadata{
		ReleaseType:  req.ReleaseType,
		Version:      req.Version,
		ArtifactName: fmt.Sprintf("%s-%s.zip", req.ReleaseType, req.Version),
		Manifest:     manifest,
		Project:      req.Project,
		CommitID:     req.CommitID,
		PipelineID:   req.PipelineID,
		EndpointName: req.EndpointName,
		ModelName:    req.ModelName,
		CreatedAt:    p.now().UTC(),
	}

	if err := os.MkdirAll(req.OutDir, 0750); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	artifactPath := filepath.Join(req.OutDir, meta.ArtifactName)
	if err := p.writeArtifact(artifactPath, meta, files); err != nil {
		return nil, err
	}

	notesPath := filepath.Join(req.OutDir, fmt.Sprintf("release_notes_%s_%s.txt", meta.ReleaseType, meta.Version))
	if err := os.WriteFile(notesPath, []byte(p.releaseNotes(meta)), 0640); err != nil {
		return nil, fmt.Errorf("write release notes: %w", err)
	}

	// Commit marker: only a recorded release counts as complete.
	if err := p.store.Record(meta); err != nil {
		_ = os.Remove(artifactPath)
		_ = os.Remove(notesPath)
		return nil, err
	}

	p.replicate(ctx, meta)

	p.log.LogReleaseCreated(ctx, string(meta.ReleaseType), meta.Version, meta.ArtifactName)
	if p.journal != nil {
		if err := p.journal.Append(audit.EntryReleased, meta.Key(), meta); err != nil {
			p.log.Warn().Err(err).Str("release", meta.Key()).Msg("journal append failed")
		}
	}
	if p.metrics != nil {
		p.metrics.RecordRelease(ctx, string(meta.ReleaseType))
	}

	return meta, nil
}

func (p *Packager) validate(req Request) error {
	if req.ReleaseType != TypeCandidate && req.ReleaseType != TypeStable {
		return fmt.Errorf("invalid release type %q", req.ReleaseType)
	}
	if strings.TrimSpace(req.Version) == "" {
		return fmt.Errorf("version is required")
	}
	if strings.ContainsAny(req.Version, "/\\") {
		return fmt.Errorf("version %q must not contain path separators", req.Version)
	}
	if len(req.Groups) == 0 {
		return fmt.Errorf("at least one content source group is required")
	}
	return nil
}

// resolveGroups computes the manifest before any artifact is written.
// Groups that resolve to zero files are recorded as absent, not
// errors.
func (p *Packager) resolveGroups(groups []SourceGroup) (Manifest, []bundleFile, error) {
	manifest := make(Manifest, 0, len(groups))
	var all []bundleFile

	for _, g := range groups {
		files, err := g.resolve()
		if err != nil {
			return nil, nil, fmt.Errorf("resolve group %q: %w", g.Name, err)
		}
		manifest = append(manifest, GroupEntry{
			Name:     g.Name,
			Files:    len(files),
			Included: len(files) > 0,
		})
		all = append(all, files...)
	}

	return manifest, all, nil
}

// writeArtifact builds the zip bundle: the resolved files plus an
// embedded metadata.json and RELEASE_NOTES.md, matching the layout
// consumers of earlier bundles already expect.
func (p *Packager) writeArtifact(path string, meta *Metadata, files []bundleFile) error {
	out, err := os.Create(path) // #nosec G304 -- path built from caller-chosen out dir
	if err != nil {
		return fmt.Errorf("create artifact: %w", err)
	}
	defer func() { _ = out.Close() }()

	zw := zip.NewWriter(out)

	for _, f := range files {
		if err := addFileToZip(zw, f); err != nil {
			_ = zw.Close()
			return err
		}
	}

	metaJSON, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		_ = zw.Close()
		return fmt.Errorf("marshal embedded metadata: %w", err)
	}
	if err := addBytesToZip(zw, "metadata.json", metaJSON); err != nil {
		_ = zw.Close()
		return err
	}
	if err := addBytesToZip(zw, "RELEASE_NOTES.md", []byte(p.releaseNotes(meta))); err != nil {
		_ = zw.Close()
		return err
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalize artifact: %w", err)
	}
	return out.Sync()
}

func addFileToZip(zw *zip.Writer, f bundleFile) error {
	src, err := os.Open(f.Path) // #nosec G304 -- resolved from caller-chosen roots
	if err != nil {
		return fmt.Errorf("open %s: %w", f.Path, err)
	}
	defer func() { _ = src.Close() }()

	w, err := zw.Create(f.ArchivePath)
	if err != nil {
		return fmt.Errorf("add %s to bundle: %w", f.ArchivePath, err)
	}
	if _, err := io.Copy(w, src); err != nil {
		return fmt.Errorf("copy %s into bundle: %w", f.ArchivePath, err)
	}
	return nil
}

func addBytesToZip(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("add %s to bundle: %w", name, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write %s into bundle: %w", name, err)
	}
	return nil
}

// releaseNotes renders the human-readable release document.
func (p *Packager) releaseNotes(meta *Metadata) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s release %s\n\n", meta.ReleaseType, meta.Version)
	fmt.Fprintf(&b, "Created: %s\n", meta.CreatedAt.Format(time.RFC3339))
	if meta.Project != "" {
		fmt.Fprintf(&b, "Project: %s\n", meta.Project)
	}
	if meta.CommitID != "" {
		fmt.Fprintf(&b, "Commit: %s\n", meta.CommitID)
	}
	if meta.PipelineID != "" {
		fmt.Fprintf(&b, "Pipeline: %s\n", meta.PipelineID)
	}
	if meta.EndpointName != "" {
		fmt.Fprintf(&b, "Endpoint: %s\n", meta.EndpointName)
	}
	if meta.ModelName != "" {
		fmt.Fprintf(&b, "Model: %s\n", meta.ModelName)
	}

	b.WriteString("\n## Contents\n")
	for _, g := range meta.Manifest {
		if g.Included {
			fmt.Fprintf(&b, "- %s (%d files)\n", g.Name, g.Files)
		} else {
			fmt.Fprintf(&b, "- %s (absent)\n", g.Name)
		}
	}

	b.WriteString("\nExtract the bundle and review metadata.json for the full record.\n")
	return b.String()
}

// replicate uploads the metadata record to the object store under
// releases/<type>/<version>/metadata.json. Failure is reported but
// never invalidates the completed local release.
func (p *Packager) replicate(ctx context.Context, meta *Metadata) {
	if p.objects == nil {
		return
	}

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		p.log.LogReplicationFailed(ctx, meta.Key(), err)
		return
	}

	key := fmt.Sprintf("releases/%s/%s/metadata.json", meta.ReleaseType, meta.Version)
	if err := p.objects.Put(ctx, key, data); err != nil {
		p.log.LogReplicationFailed(ctx, key, err)
	}
}
