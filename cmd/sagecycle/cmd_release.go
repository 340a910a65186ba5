package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/verdin/sagecycle/release"
)

var (
	releaseType      string
	releaseVersion   string
	releaseOut       string
	releaseTrainDir  string
	releaseCommit    string
	releasePipeline  string
	releaseEndpoint  string
	releaseModelName string
)

// releaseCmd represents the release command
var releaseCmd = &cobra.Command{
	Use:   "release",
	Short: "Package a release bundle with immutable metadata",
	Long: `Assemble the project's source, training output, deployment config and
documentation into one zip artifact, and record its metadata under an
immutable (type, version) identifier.

A version that was already released is a conflict, never an overwrite.
When a releases bucket is configured the metadata is replicated there
as well; replication is best effort and never invalidates a recorded
release.`,
	Example: `  sagecycle release --type candidate --version pr-42-ab12cd3
  sagecycle release --type stable --version 1.4.0 --commit ab12cd3
  sagecycle release --type stable --version 1.4.0 --training-output out/`,
	RunE: runRelease,
}

func init() {
	rootCmd.AddCommand(releaseCmd)

	releaseCmd.Flags().StringVar(&releaseType, "type", "", "Release type (candidate, stable)")
	releaseCmd.Flags().StringVar(&releaseVersion, "version", "", "Release version identifier")
	releaseCmd.Flags().StringVar(&releaseOut, "out", "", "Artifact output directory (default from config)")
	releaseCmd.Flags().StringVar(&releaseTrainDir, "training-output", "training_output", "Directory holding training outputs")
	releaseCmd.Flags().StringVar(&releaseCommit, "commit", "", "Commit identifier recorded in metadata")
	releaseCmd.Flags().StringVar(&releasePipeline, "pipeline", "", "Pipeline run identifier recorded in metadata")
	releaseCmd.Flags().StringVar(&releaseEndpoint, "endpoint-name", "", "Endpoint name recorded in metadata")
	releaseCmd.Flags().StringVar(&releaseModelName, "model-name", "", "Model name recorded in metadata")

	_ = releaseCmd.MarkFlagRequired("type")
	_ = releaseCmd.MarkFlagRequired("version")
}

func runRelease(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger()

	rt, err := release.ParseType(releaseType)
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	store, err := release.OpenStore(cfg.Release.StoreDir)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	// Replication needs a provider; packaging alone does not. A broken
	// AWS setup should not block a local release, so the object store is
	// attached only when it can be built.
	var objects release.ObjectStore
	if provider, err := newProvider(ctx, cfg); err != nil {
		log.Warn().Err(err).Msg("metadata replication disabled")
	} else if objStore := awsObjects(provider, cfg.Buckets.Releases); objStore != nil {
		objects = objStore
	}

	journal := openJournal(cfg, log)
	if journal != nil {
		defer func() { _ = journal.Close() }()
	}

	outDir := cfg.Release.OutDir
	if releaseOut != "" {
		outDir = releaseOut
	}

	packager := release.NewPackager(store, objects, log, journal, nil)
	meta, err := packager.Create(ctx, release.Request{
		ReleaseType:  rt,
		Version:      releaseVersion,
		Groups:       release.DefaultGroups(releaseTrainDir),
		OutDir:       outDir,
		Project:      cfg.Project,
		CommitID:     releaseCommit,
		PipelineID:   releasePipeline,
		EndpointName: releaseEndpoint,
		ModelName:    releaseModelName,
	})
	if err != nil {
		return err
	}

	fmt.Printf("release %s/%s packaged: %s (groups: %v)\n",
		meta.ReleaseType, meta.Version, meta.ArtifactName, meta.Manifest.IncludedGroups())
	return nil
}
