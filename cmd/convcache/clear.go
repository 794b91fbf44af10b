package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var clearYes bool

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every record in a cache directory",
	Long: `Delete every persisted conversion record in a cache directory.

The converter repopulates the cache on demand, so clearing is safe; the
cost is a cold cache until the working set converts again.`,
	RunE: runClear,
}

func init() {
	clearCmd.Flags().BoolVarP(&clearYes, "yes", "y", false, "skip confirmation")
	rootCmd.AddCommand(clearCmd)
}

func runClear(cmd *cobra.Command, args []string) error {
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

	count, _, err := s.Stats()
	if err != nil {
		return fmt.Errorf("reading cache directory: %w", err)
	}
	if count == 0 {
		fmt.Println("Cache directory is already empty.")
		return nil
	}

	if !clearYes {
		fmt.Printf("Delete %d records from %s? [y/N] ", count, s.Dir())
		var answer string
		fmt.Scanln(&answer)
		if answer != "y" && answer != "Y" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	if err := s.Clear(); err != nil {
		return fmt.Errorf("clearing cache: %w", err)
	}
	fmt.Printf("Deleted %d records.\n", count)
	return nil
}
