package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/svoer/FhirConverter-sub001/internal/codec"
	"github.com/svoer/FhirConverter-sub001/internal/codec/gzipcodec"
	"github.com/svoer/FhirConverter-sub001/internal/codec/noopcodec"
	"github.com/svoer/FhirConverter-sub001/internal/codec/zstdcodec"
	"github.com/svoer/FhirConverter-sub001/internal/store/diskstore"
)

var (
	// Global flags.
	cacheDir  string
	codecName string
	verbose   bool
)

var rootCmd = &cobra.Command{
	Use:   "convcache",
	Short: "Inspect and maintain a conversion cache directory",
	Long: `convcache manages the on-disk tier of the HL7-to-FHIR conversion cache.

The disk tier stores one compressed record per cache key. These commands
operate directly on a cache directory while the converter is stopped; a
running converter holds the directory lock and the commands fail fast.

Examples:
  # Show what a cache directory holds
  convcache stats --cache-dir /var/lib/fhirhub/cache

  # Sweep expired records and trim to 5000 entries
  convcache reconcile --cache-dir /var/lib/fhirhub/cache --max-entries 5000

  # Compute the cache key for an HL7 message
  convcache key message.hl7`,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cacheDir, "cache-dir", "d", "./cache", "cache directory")
	rootCmd.PersistentFlags().StringVar(&codecName, "codec", "zstd", "record compression: zstd, gzip, or none")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
}

// newLogger builds the CLI logger; verbose enables debug output.
func newLogger() (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	return cfg.Build()
}

func newCodec() (codec.Codec, error) {
	switch codecName {
	case "zstd":
		return zstdcodec.New(), nil
	case "gzip":
		return gzipcodec.New(), nil
	case "none":
		return noopcodec.New(), nil
	default:
		return nil, fmt.Errorf("unknown codec %q (want zstd, gzip, or none)", codecName)
	}
}

// openStore opens the cache directory, failing when it does not exist or
// is held by a running converter.
func openStore(logger *zap.Logger) (*diskstore.Store, error) {
	if _, err := os.Stat(cacheDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("cache directory %q does not exist", cacheDir)
	}

	c, err := newCodec()
	if err != nil {
		return nil, err
	}

	s, err := diskstore.New(cacheDir, c, diskstore.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("opening cache directory: %w", err)
	}
	return s, nil
}
