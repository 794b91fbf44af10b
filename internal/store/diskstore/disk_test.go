package diskstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/svoer/FhirConverter-sub001/internal/codec/noopcodec"
	"github.com/svoer/FhirConverter-sub001/internal/codec/zstdcodec"
	"github.com/svoer/FhirConverter-sub001/internal/evict/lru"
	"github.com/svoer/FhirConverter-sub001/internal/key"
	"github.com/svoer/FhirConverter-sub001/internal/store"
)

func newTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	s, err := New(t.TempDir(), zstdcodec.New(), opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testEntry(raw string, now time.Time, ttl time.Duration) *store.Entry {
	k := key.Derive([]byte(raw))
	return store.New(k, []byte("payload:"+raw), now, ttl)
}

func TestStore_WriteRead(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	e := testEntry("MSH|1", time.Now(), time.Hour)
	if err := s.Write(ctx, e); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, err := s.Read(ctx, e.Key)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if string(got.Payload) != "payload:MSH|1" {
		t.Errorf("payload = %q, want %q", got.Payload, "payload:MSH|1")
	}
	if got.AccessCount != e.AccessCount {
		t.Errorf("AccessCount = %d, want %d", got.AccessCount, e.AccessCount)
	}
	if got.ExpiresAt.UnixMilli() != e.ExpiresAt.UnixMilli() {
		t.Errorf("ExpiresAt = %v, want %v", got.ExpiresAt, e.ExpiresAt)
	}
}

func TestStore_ReadAbsent(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Read(context.Background(), key.Derive([]byte("missing")))
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Read() error = %v, want ErrNotFound", err)
	}
}

func TestStore_ReadExpired(t *testing.T) {
	now := time.Now()
	s := newTestStore(t, WithNow(func() time.Time { return now.Add(2 * time.Hour) }))
	ctx := context.Background()

	e := testEntry("MSH|1", now, time.Hour)
	if err := s.Write(ctx, e); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	if _, err := s.Read(ctx, e.Key); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Read() of expired record error = %v, want ErrNotFound", err)
	}
}

func TestStore_ReadCorruptDeletesRecord(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	e := testEntry("MSH|1", time.Now(), time.Hour)
	if err := s.Write(ctx, e); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	// Clobber the record on disk.
	path := s.path(e.Key)
	if err := os.WriteFile(path, []byte("not a record"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	if _, err := s.Read(ctx, e.Key); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Read() of corrupt record error = %v, want ErrNotFound", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("corrupt record still on disk, want deleted")
	}
}

func TestStore_WriteReplaces(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	k := key.Derive([]byte("MSH|1"))
	s.Write(ctx, store.New(k, []byte("old"), time.Now(), time.Hour))
	s.Write(ctx, store.New(k, []byte("new"), time.Now(), time.Hour))

	got, err := s.Read(ctx, k)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if string(got.Payload) != "new" {
		t.Errorf("payload = %q, want %q", got.Payload, "new")
	}

	n, err := s.Len()
	if err != nil {
		t.Fatalf("Len() error = %v", err)
	}
	if n != 1 {
		t.Errorf("Len() = %d, want 1 (replace, not duplicate)", n)
	}
}

func TestStore_DeleteClear(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := testEntry("a", time.Now(), time.Hour)
	b := testEntry("b", time.Now(), time.Hour)
	s.Write(ctx, a)
	s.Write(ctx, b)

	if err := s.Delete(a.Key); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	// Deleting twice is fine.
	if err := s.Delete(a.Key); err != nil {
		t.Errorf("Delete() of absent record error = %v, want nil", err)
	}

	if err := s.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	n, _ := s.Len()
	if n != 0 {
		t.Errorf("Len() after Clear = %d, want 0", n)
	}
}

func TestStore_LenIgnoresForeignFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir, noopcodec.New())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer s.Close()

	s.Write(context.Background(), testEntry("a", time.Now(), time.Hour))
	os.WriteFile(filepath.Join(dir, "README.json"), []byte("{}"), 0o644)

	n, err := s.Len()
	if err != nil {
		t.Fatalf("Len() error = %v", err)
	}
	// The lock file and the foreign file must not count.
	if n != 1 {
		t.Errorf("Len() = %d, want 1", n)
	}
}

func TestStore_Stats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.Write(ctx, testEntry("a", time.Now(), time.Hour))
	s.Write(ctx, testEntry("b", time.Now(), time.Hour))

	count, bytes, err := s.Stats()
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
	if bytes <= 0 {
		t.Errorf("bytes = %d, want > 0", bytes)
	}
}

func TestStore_Reconcile_ExpiredFirst(t *testing.T) {
	base := time.Now()
	now := base
	s := newTestStore(t, WithNow(func() time.Time { return now }))
	ctx := context.Background()

	s.Write(ctx, testEntry("short", base, time.Minute))
	s.Write(ctx, testEntry("long", base, time.Hour))

	now = base.Add(10 * time.Minute)
	res, err := s.Reconcile(ctx, 10, lru.New())
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if res.Expired != 1 {
		t.Errorf("Expired = %d, want 1", res.Expired)
	}
	if res.Evicted != 0 {
		t.Errorf("Evicted = %d, want 0", res.Evicted)
	}
	if res.Remaining != 1 {
		t.Errorf("Remaining = %d, want 1", res.Remaining)
	}
}

func TestStore_Reconcile_EvictsByPolicy(t *testing.T) {
	base := time.Now()
	s := newTestStore(t, WithNow(func() time.Time { return base }))
	ctx := context.Background()

	// Five live entries with distinct LastAccessed; LRU keeps the two
	// most recently accessed.
	var keys []string
	for i := 0; i < 5; i++ {
		e := testEntry(fmt.Sprintf("msg-%d", i), base, time.Hour)
		e.LastAccessed = base.Add(time.Duration(i) * time.Minute)
		if err := s.Write(ctx, e); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		keys = append(keys, e.Key)
	}

	res, err := s.Reconcile(ctx, 2, lru.New())
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if res.Evicted != 3 {
		t.Errorf("Evicted = %d, want 3", res.Evicted)
	}
	if res.Remaining != 2 {
		t.Errorf("Remaining = %d, want 2", res.Remaining)
	}

	for i, k := range keys {
		_, err := s.Read(ctx, k)
		surviving := i >= 3
		if surviving && err != nil {
			t.Errorf("entry %d evicted, want kept", i)
		}
		if !surviving && !errors.Is(err, store.ErrNotFound) {
			t.Errorf("entry %d kept, want evicted", i)
		}
	}
}

func TestStore_Reconcile_DeletesCorrupt(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir, noopcodec.New())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer s.Close()
	ctx := context.Background()

	e := testEntry("good", time.Now(), time.Hour)
	s.Write(ctx, e)

	badKey := key.Derive([]byte("bad"))
	os.WriteFile(filepath.Join(dir, badKey+".json"), []byte("garbage"), 0o644)

	res, err := s.Reconcile(ctx, 10, lru.New())
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if res.Expired != 1 {
		t.Errorf("Expired (corrupt counted) = %d, want 1", res.Expired)
	}
	if res.Remaining != 1 {
		t.Errorf("Remaining = %d, want 1", res.Remaining)
	}
}

func TestNew_SecondProcessLockedOut(t *testing.T) {
	dir := t.TempDir()
	first, err := New(dir, zstdcodec.New())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer first.Close()

	if _, err := New(dir, zstdcodec.New()); !errors.Is(err, ErrLocked) {
		t.Errorf("second New() error = %v, want ErrLocked", err)
	}
}

func TestNew_ReleaseOnClose(t *testing.T) {
	dir := t.TempDir()
	first, err := New(dir, zstdcodec.New())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	second, err := New(dir, zstdcodec.New())
	if err != nil {
		t.Fatalf("New() after Close error = %v", err)
	}
	second.Close()
}

func TestStore_Read_CancelledContext(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := s.Read(ctx, key.Derive([]byte("x"))); !errors.Is(err, context.Canceled) {
		t.Errorf("Read() with cancelled ctx error = %v, want context.Canceled", err)
	}
}
