// Package main provides the convcache CLI tool for inspecting and
// maintaining a conversion cache directory.
package main

import (
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
