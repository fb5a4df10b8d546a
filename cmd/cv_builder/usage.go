package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jonathan/cv-builder/internal/observability"
	"github.com/jonathan/cv-builder/internal/storage"
	"github.com/jonathan/cv-builder/internal/usage"
	"github.com/spf13/cobra"
)

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Show or change the daily usage and subscription of a session",
	Long:  "Reads the usage counters of a session from the configured storage backend. --activate and --cancel change its premium subscription.",
	RunE:  runUsage,
}

var (
	usageSession  string
	usageActivate int
	usageCancel   bool
)

func init() {
	usageCmd.Flags().StringVarP(&usageSession, "session", "s", "", "Session ID (required)")
	usageCmd.Flags().IntVar(&usageActivate, "activate", 0, "Activate premium for this many months")
	usageCmd.Flags().BoolVar(&usageCancel, "cancel", false, "Cancel the premium subscription")
	_ = usageCmd.MarkFlagRequired("session")
	rootCmd.AddCommand(usageCmd)
}

func runUsage(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	if usageActivate != 0 && usageCancel {
		return fmt.Errorf("--activate and --cancel are mutually exclusive")
	}
	if usageActivate < 0 || usageActivate > 24 {
		return fmt.Errorf("--activate must be between 1 and 24 months")
	}

	cfg, err := loadSettings(os.Getenv)
	if err != nil {
		return err
	}
	store, err := storage.Open(ctx, cfg.StorageOptions())
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer func() { _ = storage.Close(store) }()

	return printUsage(ctx, cmd, usage.NewTracker(storage.Namespaced(store, usageSession)))
}

// printUsage applies the subscription flags and prints the summary
func printUsage(ctx context.Context, cmd *cobra.Command, tracker *usage.Tracker) error {
	switch {
	case usageActivate > 0:
		if _, err := tracker.ActivatePremium(ctx, usageActivate); err != nil {
			return err
		}
	case usageCancel:
		if err := tracker.CancelPremium(ctx); err != nil {
			return err
		}
	}

	summary, err := tracker.Summary(ctx)
	if err != nil {
		return err
	}
	observability.NewPrinter(cmd.OutOrStdout()).PrintUsage(&summary)
	return nil
}
