// Package codec provides compression for persisted cache records.
package codec

import "io"

// Codec compresses and decompresses record payloads on their way to and
// from disk.
type Codec interface {
	// Reader wraps r to decompress data read from it.
	Reader(r io.Reader) (io.ReadCloser, error)
	// Writer wraps w to compress data written to it.
	Writer(w io.Writer) (io.WriteCloser, error)
	// Extension returns the file extension without dot (e.g. "zst").
	// Empty means uncompressed.
	Extension() string
}
