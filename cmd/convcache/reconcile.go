package main

import (
	"fmt"

	"github.com/spf13/cobra"

	convcache "github.com/svoer/FhirConverter-sub001"
)

var (
	reconcileMaxEntries int
	reconcilePolicy     string
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Sweep expired and excess records from a cache directory",
	Long: `Delete expired records, then evict the lowest-ranked live records until
the directory holds at most --max-entries.

A running converter reconciles on its own schedule; this command exists
for directories left behind by a stopped converter and for tightening
limits before a redeploy.`,
	RunE: runReconcile,
}

func init() {
	reconcileCmd.Flags().IntVar(&reconcileMaxEntries, "max-entries", 10000, "maximum records to keep")
	reconcileCmd.Flags().StringVar(&reconcilePolicy, "policy", "lru", "eviction policy: lru or lfu")
	rootCmd.AddCommand(reconcileCmd)
}

func runReconcile(cmd *cobra.Command, args []string) error {
	if reconcileMaxEntries < 1 {
		return fmt.Errorf("--max-entries must be at least 1")
	}
	policy, err := convcache.ParsePolicy(reconcilePolicy)
	if err != nil {
		return err
	}

	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	s, err := openStore(logger)
	if err != nil {
		return err
	}
	defer s.Close()

	res, err := s.Reconcile(cmd.Context(), reconcileMaxEntries, policy)
	if err != nil {
		return fmt.Errorf("reconciling cache: %w", err)
	}

	fmt.Printf("Expired: %d\n", res.Expired)
	fmt.Printf("Evicted: %d\n", res.Evicted)
	fmt.Printf("Kept:    %d\n", res.Remaining)
	return nil
}
