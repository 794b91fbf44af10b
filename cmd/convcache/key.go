package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/svoer/FhirConverter-sub001/internal/key"
)

var keyCmd = &cobra.Command{
	Use:   "key [file]",
	Short: "Compute the cache key for a message",
	Long: `Compute the content-derived cache key for an HL7 message read from a
file, or from stdin when no file is given.

The key is the SHA-256 of the normalized message, so the same message
with different line endings yields the same key. Useful for finding a
specific message's record in the cache directory.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runKey,
}

func init() {
	rootCmd.AddCommand(keyCmd)
}

func runKey(cmd *cobra.Command, args []string) error {
	var raw []byte
	var err error

	if len(args) == 1 {
		raw, err = os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading message: %w", err)
		}
	} else {
		raw, err = io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("reading stdin: %w", err)
		}
	}

	fmt.Println(key.Derive(raw))
	return nil
}
