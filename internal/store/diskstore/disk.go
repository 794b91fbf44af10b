// Package diskstore implements the persistent overflow tier: one compressed
// JSON record per key inside a flat cache directory.
//
// The store is best-effort by contract. Reads that hit an absent, corrupt,
// or expired record report store.ErrNotFound; corrupt records are deleted
// as a side effect. The caller decides what to do with write failures.
package diskstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"go.uber.org/zap"

	"github.com/svoer/FhirConverter-sub001/internal/codec"
	"github.com/svoer/FhirConverter-sub001/internal/evict"
	"github.com/svoer/FhirConverter-sub001/internal/key"
	"github.com/svoer/FhirConverter-sub001/internal/store"
)

// ErrLocked indicates another process holds the cache directory.
var ErrLocked = errors.New("diskstore: cache directory locked by another process")

// lockName is the advisory lock file guarding the directory. The cache is
// single-process; two processes sharing a directory would race each other's
// reconciliation, so the second one fails fast at construction.
const lockName = ".lock"

// Store persists cache entries as individual record files named by key.
type Store struct {
	dir    string
	codec  codec.Codec
	suffix string
	lock   *flock.Flock

	logger *zap.Logger
	now    func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithNow sets the clock. Defaults to time.Now.
func WithNow(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates a disk store rooted at dir, creating the directory if needed
// and taking an advisory lock on it. Returns ErrLocked when another
// process already owns the directory.
func New(dir string, c codec.Codec, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	suffix := ".json"
	if ext := c.Extension(); ext != "" {
		suffix += "." + ext
	}

	s := &Store{
		dir:    dir,
		codec:  c,
		suffix: suffix,
		lock:   flock.New(filepath.Join(dir, lockName)),
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	locked, err := s.lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("locking cache directory: %w", err)
	}
	if !locked {
		return nil, ErrLocked
	}

	return s, nil
}

// Read returns the live entry persisted under k. Absent, unreadable,
// corrupt, and expired records all return store.ErrNotFound; corrupt
// records are deleted on the way out.
func (s *Store) Read(ctx context.Context, k string) (*store.Entry, error) {
	// Check for cancellation before starting I/O.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path(k))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, store.ErrNotFound
		}
		s.logger.Warn("disk read failed", zap.String("key", k), zap.Error(err))
		return nil, store.ErrNotFound
	}

	entry, err := s.decode(k, data)
	if err != nil {
		s.logger.Warn("deleting corrupt cache record",
			zap.String("key", k),
			zap.Error(err),
		)
		if rmErr := os.Remove(s.path(k)); rmErr != nil && !os.IsNotExist(rmErr) {
			s.logger.Warn("removing corrupt record failed", zap.String("key", k), zap.Error(rmErr))
		}
		return nil, store.ErrNotFound
	}

	// Expired records are logically absent; reconciliation sweeps the file.
	if entry.Expired(s.now()) {
		return nil, store.ErrNotFound
	}

	return entry, nil
}

// Write persists entry, replacing any previous record for its key. The
// record is written to a temp file and renamed into place so a crash never
// leaves a half-written record under a valid name.
func (s *Store) Write(ctx context.Context, entry *store.Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	raw, err := encodeRecord(entry)
	if err != nil {
		return fmt.Errorf("encoding record: %w", err)
	}

	var buf bytes.Buffer
	w, err := s.codec.Writer(&buf)
	if err != nil {
		return fmt.Errorf("creating compressor: %w", err)
	}
	if _, err := w.Write(raw); err != nil {
		w.Close()
		return fmt.Errorf("compressing record: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("compressing record: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp record: %w", err)
	}
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("writing record: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path(entry.Key)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("publishing record: %w", err)
	}
	return nil
}

// Delete removes the record for k. Deleting an absent record is not an
// error.
func (s *Store) Delete(k string) error {
	if err := os.Remove(s.path(k)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting record: %w", err)
	}
	return nil
}

// Clear removes every record in the directory.
func (s *Store) Clear() error {
	keys, err := s.keys()
	if err != nil {
		return err
	}
	var firstErr error
	for _, k := range keys {
		if err := s.Delete(k); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Len returns the number of persisted records.
func (s *Store) Len() (int, error) {
	keys, err := s.keys()
	if err != nil {
		return 0, err
	}
	return len(keys), nil
}

// Stats returns the record count and total bytes on disk.
func (s *Store) Stats() (count int, bytes int64, err error) {
	dirents, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, 0, fmt.Errorf("listing cache directory: %w", err)
	}
	for _, d := range dirents {
		if _, ok := s.keyFor(d.Name()); !ok {
			continue
		}
		count++
		if info, err := d.Info(); err == nil {
			bytes += info.Size()
		}
	}
	return count, bytes, nil
}

// ReconcileResult reports what a reconciliation sweep removed.
type ReconcileResult struct {
	// Expired is the number of records deleted because their lifetime
	// had passed, plus any corrupt records deleted along the way.
	Expired int

	// Evicted is the number of live records deleted to bring the tier
	// back under its maximum entry count.
	Evicted int

	// Remaining is the record count after the sweep.
	Remaining int
}

// Reconcile deletes expired records. If more than maxEntries live records
// remain afterward, it evicts the lowest-ranked records per policy until
// the tier fits. It takes no lock shared with the memory tier; a write
// landing mid-sweep is kept or picked up next time.
func (s *Store) Reconcile(ctx context.Context, maxEntries int, policy evict.Policy) (ReconcileResult, error) {
	keys, err := s.keys()
	if err != nil {
		return ReconcileResult{}, err
	}

	var res ReconcileResult
	now := s.now()
	live := make([]evict.Candidate, 0, len(keys))

	for _, k := range keys {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		data, err := os.ReadFile(s.path(k))
		if err != nil {
			// Raced with a concurrent delete; nothing to do.
			continue
		}
		entry, err := s.decode(k, data)
		if err != nil {
			s.logger.Warn("deleting corrupt cache record",
				zap.String("key", k),
				zap.Error(err),
			)
			if s.Delete(k) == nil {
				res.Expired++
			}
			continue
		}
		if entry.Expired(now) {
			if err := s.Delete(k); err == nil {
				res.Expired++
			}
			continue
		}
		live = append(live, evict.Candidate{
			Key:          k,
			LastAccessed: entry.LastAccessed,
			AccessCount:  entry.AccessCount,
		})
	}

	if len(live) > maxEntries {
		evict.Rank(policy, live)
		for _, c := range live[:len(live)-maxEntries] {
			if err := s.Delete(c.Key); err == nil {
				res.Evicted++
			}
		}
	}

	res.Remaining = len(live) - res.Evicted
	return res, nil
}

// Close releases the directory lock.
func (s *Store) Close() error {
	return s.lock.Unlock()
}

// Dir returns the cache directory path.
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) path(k string) string {
	return filepath.Join(s.dir, k+s.suffix)
}

// keyFor maps a directory entry name back to a cache key, rejecting lock
// files, temp files, and anything else that is not a record.
func (s *Store) keyFor(name string) (string, bool) {
	if !strings.HasSuffix(name, s.suffix) {
		return "", false
	}
	k := strings.TrimSuffix(name, s.suffix)
	if !key.Valid(k) {
		return "", false
	}
	return k, true
}

func (s *Store) keys() ([]string, error) {
	dirents, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("listing cache directory: %w", err)
	}
	keys := make([]string, 0, len(dirents))
	for _, d := range dirents {
		if k, ok := s.keyFor(d.Name()); ok {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (s *Store) decode(k string, data []byte) (*store.Entry, error) {
	r, err := s.codec.Reader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("creating decompressor: %w", err)
	}
	defer r.Close()

	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("decompressing record: %w", err)
	}
	return decodeRecord(k, raw)
}
