package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/verdin/sagecycle/notify"
)

var (
	notifyStage   string
	notifyStatus  string
	notifyMessage string
	notifyVersion string
	notifyURL     string
)

// notifyCmd represents the notify command
var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Post a pipeline status event to the webhook",
	Long: `Send one JSON status event to the configured webhook. Receivers do
their own formatting; the payload carries project, stage, status and an
optional message and version.`,
	Example: `  sagecycle notify --stage train --status success
  sagecycle notify --stage release --status failed --message "conflict on 1.4.0"
  sagecycle notify --stage deploy --status success --release-version 1.4.0`,
	RunE: runNotify,
}

func init() {
	rootCmd.AddCommand(notifyCmd)

	notifyCmd.Flags().StringVar(&notifyStage, "stage", "", "Pipeline stage name")
	notifyCmd.Flags().StringVar(&notifyStatus, "status", "", "Stage outcome (success, failed)")
	notifyCmd.Flags().StringVar(&notifyMessage, "message", "", "Free-form detail")
	notifyCmd.Flags().StringVar(&notifyVersion, "release-version", "", "Release version the event refers to")
	notifyCmd.Flags().StringVar(&notifyURL, "url", "", "Webhook URL (overrides config)")

	_ = notifyCmd.MarkFlagRequired("stage")
	_ = notifyCmd.MarkFlagRequired("status")
}

func runNotify(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger()

	url := cfg.Notify.WebhookURL
	if notifyURL != "" {
		url = notifyURL
	}

	journal := openJournal(cfg, log)
	if journal != nil {
		defer func() { _ = journal.Close() }()
	}

	n := notify.New(url, log, journal)
	if err := n.Send(cmd.Context(), notify.Event{
		Project: cfg.Project,
		Stage:   notifyStage,
		Status:  notifyStatus,
		Message: notifyMessage,
		Version: notifyVersion,
	}); err != nil {
		return err
	}

	fmt.Printf("notified %s/%s\n", notifyStage, notifyStatus)
	return nil
}
