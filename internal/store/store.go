// Package store provides a thin bbolt wrapper for the departures history
// database.
//
// The store remembers every origin and destination code the user has
// searched with, so the search screen can offer them as suggestions. Codes
// are written on each accepted search and are never removed except through
// an explicit `departures history clear`.
//
// Buckets:
//
//	origin_history      — origin codes, value = first-seen timestamp
//	destination_history — destination codes, value = first-seen timestamp
//	session             — the locally signed-in user
//	_meta               — internal: schema version, created_at
package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Current schema version. Bump when bucket layout or key format changes.
const schemaVersion = 1

// Bucket name constants.
var (
	bucketOrigins      = []byte("origin_history")
	bucketDestinations = []byte("destination_history")
	bucketSession      = []byte("session")
	bucketInternal     = []byte("_meta")
)

// AllBuckets lists every user-facing bucket for stats and clear operations.
var AllBuckets = []string{"origin_history", "destination_history", "session"}

// Store wraps a bbolt database.
type Store struct {
	db *bolt.DB

	mu   sync.Mutex
	subs map[string]map[chan []string]struct{} // bucket name → subscribers
}

// Open opens (or creates) the bbolt database at path.
// Parent directories are created automatically.
// Runs schema migrations on every open.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating db directory: %w", err)
	}

	db, err := openDB(path)
	if err != nil {
		return nil, err
	}

	s := &Store{db: db, subs: make(map[string]map[chan []string]struct{})}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration: %w", err)
	}
	return s, nil
}

func openDB(path string) (*bolt.DB, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening db %s: %w", path, err)
	}
	return db, nil
}

// Close closes the database and every open observation stream.
func (s *Store) Close() error {
	s.mu.Lock()
	for _, set := range s.subs {
		for ch := range set {
			close(ch)
		}
	}
	s.subs = make(map[string]map[chan []string]struct{})
	s.mu.Unlock()
	return s.db.Close()
}

// Path returns the filesystem path of the open database.
func (s *Store) Path() string {
	return s.db.Path()
}

// ─── Migrations ───────────────────────────────────────────────────────────────

// migrate ensures all buckets exist and schema is current.
func (s *Store) migrate() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketOrigins, bucketDestinations, bucketSession, bucketInternal} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("creating bucket %s: %w", name, err)
			}
		}

		meta := tx.Bucket(bucketInternal)
		if meta.Get([]byte("schema_version")) == nil {
			if err := meta.Put([]byte("schema_version"), []byte(fmt.Sprintf("%d", schemaVersion))); err != nil {
				return err
			}
			if err := meta.Put([]byte("created_at"), []byte(time.Now().UTC().Format(time.RFC3339))); err != nil {
				return err
			}
		}
		return nil
	})
}

// ─── History ──────────────────────────────────────────────────────────────────

// SaveOrigin adds code to the origin history. Saving an existing code is a
// no-op.
func (s *Store) SaveOrigin(code string) error {
	return s.save(bucketOrigins, code)
}

// SaveDestination adds code to the destination history. Saving an existing
// code is a no-op.
func (s *Store) SaveDestination(code string) error {
	return s.save(bucketDestinations, code)
}

// OriginHistory returns every remembered origin code in key order.
func (s *Store) OriginHistory() ([]string, error) {
	return s.list(bucketOrigins)
}

// DestinationHistory returns every remembered destination code in key order.
func (s *Store) DestinationHistory() ([]string, error) {
	return s.list(bucketDestinations)
}

// ObserveOrigins streams the origin history: the current set first, then
// the full set again after every change. The channel closes when ctx ends
// or the store is closed.
func (s *Store) ObserveOrigins(ctx context.Context) <-chan []string {
	return s.observe(ctx, bucketOrigins)
}

// ObserveDestinations is ObserveOrigins for the destination history.
func (s *Store) ObserveDestinations(ctx context.Context) <-chan []string {
	return s.observe(ctx, bucketDestinations)
}

func (s *Store) save(bucket []byte, code string) error {
	if code == "" {
		return nil
	}
	changed := false
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b.Get([]byte(code)) != nil {
			return nil
		}
		changed = true
		return b.Put([]byte(code), []byte(time.Now().UTC().Format(time.RFC3339)))
	})
	if err != nil {
		return fmt.Errorf("saving %s to %s: %w", code, bucket, err)
	}
	if changed {
		s.publish(bucket)
	}
	return nil
}

func (s *Store) list(bucket []byte) ([]string, error) {
	codes := []string{}
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).ForEach(func(k, _ []byte) error {
			codes = append(codes, string(k))
			return nil
		})
	})
	return codes, err
}

// ─── Observation ──────────────────────────────────────────────────────────────

func (s *Store) observe(ctx context.Context, bucket []byte) <-chan []string {
	ch := make(chan []string, 1)
	name := string(bucket)

	s.mu.Lock()
	if s.subs[name] == nil {
		s.subs[name] = make(map[chan []string]struct{})
	}
	s.subs[name][ch] = struct{}{}
	if codes, err := s.list(bucket); err == nil {
		offer(ch, codes)
	}
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.subs[name][ch]; ok {
			delete(s.subs[name], ch)
			close(ch)
		}
	}()
	return ch
}

// publish sends the current contents of bucket to its subscribers.
func (s *Store) publish(bucket []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.subs[string(bucket)]) == 0 {
		return
	}
	codes, err := s.list(bucket)
	if err != nil {
		return
	}
	for ch := range s.subs[string(bucket)] {
		offer(ch, codes)
	}
}

// offer delivers codes on a one-slot channel, replacing an unread older set.
func offer(ch chan []string, codes []string) {
	for {
		select {
		case ch <- codes:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

// ─── Session ──────────────────────────────────────────────────────────────────

// PutSession records user as the locally signed-in identity.
func (s *Store) PutSession(user string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSession)
		if err := b.Put([]byte("user"), []byte(user)); err != nil {
			return err
		}
		return b.Put([]byte("signed_in_at"), []byte(time.Now().UTC().Format(time.RFC3339)))
	})
}

// Session returns the signed-in user, or "" when nobody is signed in.
func (s *Store) Session() (string, error) {
	var user string
	err := s.db.View(func(tx *bolt.Tx) error {
		user = string(tx.Bucket(bucketSession).Get([]byte("user")))
		return nil
	})
	return user, err
}

// SignOut forgets the signed-in user. Signing out twice is not an error.
func (s *Store) SignOut(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.ClearBucket(string(bucketSession))
}

// ─── Stats & Maintenance ──────────────────────────────────────────────────────

// BucketStats holds row count and byte size for a single bucket.
type BucketStats struct {
	Name  string
	Count int
	Bytes int64
}

// Stats returns row counts and approximate sizes for all buckets.
func (s *Store) Stats() ([]BucketStats, error) {
	var stats []BucketStats
	err := s.db.View(func(tx *bolt.Tx) error {
		for _, name := range AllBuckets {
			b := tx.Bucket([]byte(name))
			if b == nil {
				continue
			}
			var count int
			var bytes int64
			b.ForEach(func(k, v []byte) error {
				count++
				bytes += int64(len(k) + len(v))
				return nil
			})
			stats = append(stats, BucketStats{Name: name, Count: count, Bytes: bytes})
		}
		return nil
	})
	return stats, err
}

// ClearBucket deletes all entries in the named bucket.
func (s *Store) ClearBucket(name string) error {
	if !isUserBucket(name) {
		return fmt.Errorf("unknown bucket %q", name)
	}
	bname := []byte(name)
	err := s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(bname); err != nil {
			return fmt.Errorf("clearing bucket %s: %w", name, err)
		}
		_, err := tx.CreateBucket(bname)
		return err
	})
	if err != nil {
		return err
	}
	s.publish(bname)
	return nil
}

// ClearAll deletes all entries from every user-facing bucket.
func (s *Store) ClearAll() error {
	for _, name := range AllBuckets {
		if err := s.ClearBucket(name); err != nil {
			return err
		}
	}
	return nil
}

// Compact rewrites the database into a fresh file and swaps it in place,
// returning the file sizes before and after.
func (s *Store) Compact() (before, after int64, err error) {
	path := s.db.Path()
	if fi, statErr := os.Stat(path); statErr == nil {
		before = fi.Size()
	}

	tmpPath := path + ".compact"
	_ = os.Remove(tmpPath)
	dst, err := openDB(tmpPath)
	if err != nil {
		return before, 0, err
	}
	if err := bolt.Compact(dst, s.db, 0); err != nil {
		dst.Close()
		os.Remove(tmpPath)
		return before, 0, fmt.Errorf("compacting: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(tmpPath)
		return before, 0, err
	}
	if err := s.db.Close(); err != nil {
		os.Remove(tmpPath)
		return before, 0, err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return before, 0, fmt.Errorf("replacing db: %w", err)
	}
	db, err := openDB(path)
	if err != nil {
		return before, 0, err
	}
	s.db = db

	if fi, statErr := os.Stat(path); statErr == nil {
		after = fi.Size()
	}
	return before, after, nil
}

func isUserBucket(name string) bool {
	for _, b := range AllBuckets {
		if b == name {
			return true
		}
	}
	return false
}
