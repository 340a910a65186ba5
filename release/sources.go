package release

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// SourceGroup is one logical group of files to bundle, e.g. "source"
// or "training-output". A group whose roots are missing or empty
// resolves to zero files, which skips the group without error.
type SourceGroup struct {
	// Name appears in the manifest and prefixes archive paths for
	// groups with Prefix set.
	Name string `yaml:"name"`
	// Roots are files or directories to collect, relative to the
	// working directory or absolute.
	Roots []string `yaml:"roots"`
	// Extensions optionally restricts directory walks to matching
	// suffixes (".py", ".yaml", ...). Empty means all files.
	Extensions []string `yaml:"extensions,omitempty"`
	// Prefix rewrites archive paths under this directory name, the
	// way training artifacts land under model_artifacts/.
	Prefix string `yaml:"prefix,omitempty"`
}

// bundleFile is one resolved file with its path inside the archive.
type bundleFile struct {
	Path        string
	ArchivePath string
}

// resolve walks the group's roots and returns the files to include,
// sorted by archive path so bundles are deterministic.
func (g SourceGroup) resolve() ([]bundleFile, error) {
	var files []bundleFile

	for _, root := range g.Roots {
		info, err := os.Stat(root)
		if os.IsNotExist(err) {
			// Absent roots are a valid state: the training-output
			// directory does not exist before the first training run.
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", root, err)
		}

		if !info.IsDir() {
			files = append(files, bundleFile{Path: root, ArchivePath: g.archivePath(filepath.Base(root))})
			continue
		}

		walked, err := g.walkDir(root)
		if err != nil {
			return nil, err
		}
		files = append(files, walked...)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].ArchivePath < files[j].ArchivePath })
	return files, nil
}

func (g SourceGroup) walkDir(root string) ([]bundleFile, error) {
	var files []bundleFile

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !g.matchesExtension(path) {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		arc := filepath.ToSlash(rel)
		if g.Prefix == "" {
			// Keep the root directory name so source trees stay
			// recognizable inside the bundle.
			arc = filepath.ToSlash(filepath.Join(filepath.Base(root), rel))
		}
		files = append(files, bundleFile{Path: path, ArchivePath: g.archivePath(arc)})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}

	return files, nil
}

func (g SourceGroup) matchesExtension(path string) bool {
	if len(g.Extensions) == 0 {
		return true
	}
	for _, ext := range g.Extensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}

func (g SourceGroup) archivePath(rel string) string {
	if g.Prefix == "" {
		return rel
	}
	return filepath.ToSlash(filepath.Join(g.Prefix, rel))
}

// DefaultGroups is the standard layout a pipeline run packages:
// source code, training output, deployment config, documentation.
func DefaultGroups(trainingOutputDir string) []SourceGroup {
	return []SourceGroup{
		{
			Name:       "source",
			Roots:      []string{"src", "scripts", "tests"},
			Extensions: []string{".py", ".go", ".yml", ".yaml", ".json", ".txt", ".md"},
		},
		{
			Name:   "training-output",
			Roots:  []string{trainingOutputDir},
			Prefix: "model_artifacts",
		},
		{
			Name:  "deployment-config",
			Roots: []string{"deployment_config.json", "endpoint_config.json"},
		},
		{
			Name:  "documentation",
			Roots: []string{"README.md", "docs"},
		},
	}
}
