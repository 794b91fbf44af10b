package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show statistics about a cache directory",
	Long: `Display statistics about the disk tier of a cache directory:
- Number of persisted records
- Total size on disk`,
	RunE: runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
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

	count, bytes, err := s.Stats()
	if err != nil {
		return fmt.Errorf("reading cache directory: %w", err)
	}

	if count == 0 {
		fmt.Println("Cache directory is empty.")
		return nil
	}

	fmt.Printf("Directory: %s\n", s.Dir())
	fmt.Printf("Records:   %d\n", count)
	fmt.Printf("Size:      %s (%d bytes)\n", humanize.Bytes(uint64(bytes)), bytes)
	return nil
}
