/*
MIT License

Copyright (c) 2025 Advanced Micro Devices, Inc.

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in all
copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
SOFTWARE.
*/

// Package modelcache is a content-addressed local store for model weights,
// keyed by model_id, with a JSON index tracking size/commit-hash/timestamp
// metadata and at-most-once population per entry.
package modelcache

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"golang.org/x/sync/singleflight"

	"github.com/amd-enterprise-ai/aim-runtime/internal/coreerr"
)

// CacheEntry is persisted metadata for one model's cache population.
type CacheEntry struct {
	ModelID    string    `json:"model_id"`
	Cached     bool      `json:"cached"`
	CachePath  string    `json:"cache_path"`
	CommitHash *string   `json:"commit_hash,omitempty"`
	CachedAt   time.Time `json:"cached_at"`
	ByteSize   int64     `json:"size"`
}

// FetchFunc populates targetDir with a model's artifacts. It may optionally
// return a commit hash; commit_hash is optional metadata and the store
// never rejects an entry for lacking one.
type FetchFunc func(ctx context.Context, targetDir string) (commitHash *string, err error)

// Mount is a read-only (or read-write) bind mount request, consumed by the
// Config Materializer when building a LaunchSpec.
type Mount struct {
	HostPath      string
	ContainerPath string
	ReadOnly      bool
}

// Stats summarizes the whole store.
type Stats struct {
	Count      int
	TotalBytes int64
	Entries    []CacheEntry
}

// Store is a thread-safe facade over an on-disk index plus the per-model
// directories it describes. The index is guarded by a single RWMutex and
// written atomically (write-temp-then-rename); distinct models populate
// concurrently because Ensure's cross-process lock is per-model, not
// store-wide.
type Store struct {
	Root    string
	Logger  logr.Logger
	LockTTL time.Duration

	mu    sync.RWMutex
	index map[string]CacheEntry
	sf    singleflight.Group

	metrics *storeMetrics
}

const indexFileName = "cache_index.json"

// DefaultLockTTL is how old an advisory lock file must be before it is
// considered abandoned by a crashed process and reclaimed.
const DefaultLockTTL = 10 * time.Minute

// Open loads (or initializes) the on-disk index at root. A reader that
// finds a corrupt index file treats the store as empty and proceeds; the
// next successful write repairs it.
func Open(root string, logger logr.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Join(root, "models"), 0o755); err != nil {
		return nil, coreerr.NewIOError(err, "creating cache root %s", root)
	}

	s := &Store{
		Root:    root,
		Logger:  logger,
		LockTTL: DefaultLockTTL,
		index:   map[string]CacheEntry{},
		metrics: newStoreMetrics(),
	}

	data, err := os.ReadFile(filepath.Join(root, indexFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, coreerr.NewIOError(err, "reading cache index")
	}

	var idx map[string]CacheEntry
	if err := json.Unmarshal(data, &idx); err != nil {
		logger.Error(err, "cache index is corrupt, treating store as empty")
		return s, nil
	}
	s.index = idx
	s.refreshMetrics()
	return s, nil
}

// PathOf returns the deterministic on-disk path for modelID, derived by
// replacing '/' with '--' under <root>/models.
func (s *Store) PathOf(modelID string) string {
	return filepath.Join(s.Root, "models", Slug(modelID))
}

// Slug derives the on-disk directory name for a model_id.
func Slug(modelID string) string {
	return strings.ReplaceAll(modelID, "/", "--")
}

// IsCached reports whether modelID is marked cached in the index AND its
// directory exists on disk.
func (s *Store) IsCached(modelID string) bool {
	s.mu.RLock()
	entry, ok := s.index[modelID]
	s.mu.RUnlock()
	if !ok || !entry.Cached {
		return false
	}
	info, err := os.Stat(entry.CachePath)
	return err == nil && info.IsDir()
}

// Entry returns the raw index entry for modelID, if any.
func (s *Store) Entry(modelID string) (CacheEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.index[modelID]
	return e, ok
}

// Ensure guarantees modelID is present in the cache, invoking fetch exactly
// once per concurrent population regardless of how many callers race on the
// same model_id, across goroutines in this process via singleflight and
// across processes sharing Root via a file lock.
func (s *Store) Ensure(ctx context.Context, modelID string, fetch FetchFunc) (string, error) {
	if s.IsCached(modelID) {
		return s.PathOf(modelID), nil
	}

	v, err, _ := s.sf.Do(modelID, func() (any, error) {
		return s.ensureLocked(ctx, modelID, fetch)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (s *Store) ensureLocked(ctx context.Context, modelID string, fetch FetchFunc) (string, error) {
	target := s.PathOf(modelID)

	unlock, err := acquireFileLock(target, s.LockTTL)
	if err != nil {
		return "", coreerr.NewIOError(err, "acquiring cache lock for %s", modelID)
	}
	defer unlock()

	// Double-check: another process may have populated this entry while we
	// waited for the lock.
	if s.reloadIsCached(modelID) {
		return target, nil
	}

	if err := os.MkdirAll(target, 0o755); err != nil {
		return "", coreerr.NewIOError(err, "creating target dir for %s", modelID)
	}

	commitHash, fetchErr := fetch(ctx, target)
	if fetchErr != nil {
		_ = os.RemoveAll(target)
		s.metrics.fetchFailures.Inc()
		return "", coreerr.NewFetchFailed(fetchErr, "populating cache for %s", modelID)
	}

	size, err := dirSize(target)
	if err != nil {
		_ = os.RemoveAll(target)
		return "", coreerr.NewIOError(err, "computing cache size for %s", modelID)
	}

	entry := CacheEntry{
		ModelID:    modelID,
		Cached:     true,
		CachePath:  target,
		CommitHash: commitHash,
		CachedAt:   time.Now().UTC(),
		ByteSize:   size,
	}

	if err := s.writeEntry(entry); err != nil {
		_ = os.RemoveAll(target)
		return "", err
	}

	s.metrics.fetchesTotal.Inc()
	return target, nil
}

func (s *Store) reloadIsCached(modelID string) bool {
	data, err := os.ReadFile(filepath.Join(s.Root, indexFileName))
	if err != nil {
		return s.IsCached(modelID)
	}
	var idx map[string]CacheEntry
	if err := json.Unmarshal(data, &idx); err != nil {
		return s.IsCached(modelID)
	}
	s.mu.Lock()
	s.index = idx
	s.mu.Unlock()
	return s.IsCached(modelID)
}

// writeEntry updates the index with entry and writes it atomically
// (write-temp-then-rename) while holding the store-wide index mutex.
func (s *Store) writeEntry(entry CacheEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.index == nil {
		s.index = map[string]CacheEntry{}
	}
	s.index[entry.ModelID] = entry
	if err := s.persistIndexLocked(); err != nil {
		return err
	}
	s.refreshMetricsLocked()
	return nil
}

func (s *Store) persistIndexLocked() error {
	data, err := json.MarshalIndent(s.index, "", "  ")
	if err != nil {
		return coreerr.NewIOError(err, "marshalling cache index")
	}

	final := filepath.Join(s.Root, indexFileName)
	tmp := final + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return coreerr.NewIOError(err, "writing cache index temp file")
	}
	if err := os.Rename(tmp, final); err != nil {
		return coreerr.NewIOError(err, "renaming cache index into place")
	}
	return nil
}

// Evict removes modelID's directory and index entry. Safe to call on an
// absent entry.
func (s *Store) Evict(modelID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.index[modelID]
	if !ok {
		return nil
	}
	if err := os.RemoveAll(entry.CachePath); err != nil {
		return coreerr.NewIOError(err, "evicting %s", modelID)
	}
	delete(s.index, modelID)
	if err := s.persistIndexLocked(); err != nil {
		return err
	}
	s.refreshMetricsLocked()
	return nil
}

// EvictOlderThan removes every entry whose CachedAt predates now-duration.
func (s *Store) EvictOlderThan(d time.Duration) error {
	s.mu.Lock()
	cutoff := time.Now().Add(-d)
	var stale []string
	for id, e := range s.index {
		if e.CachedAt.Before(cutoff) {
			stale = append(stale, id)
		}
	}
	s.mu.Unlock()

	for _, id := range stale {
		if err := s.Evict(id); err != nil {
			return err
		}
	}
	return nil
}

// Stats reports the current size of the store.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := Stats{}
	for _, e := range s.index {
		out.Entries = append(out.Entries, e)
		out.Count++
		out.TotalBytes += e.ByteSize
	}
	return out
}

func (s *Store) refreshMetrics() {
	s.mu.RLock()
	defer s.mu.RUnlock()
	s.refreshMetricsLocked()
}

func (s *Store) refreshMetricsLocked() {
	var total int64
	for _, e := range s.index {
		total += e.ByteSize
	}
	s.metrics.entryCount.Set(float64(len(s.index)))
	s.metrics.totalBytes.Set(float64(total))
}

func dirSize(root string) (int64, error) {
	var total int64
	err := filepath.Walk(root, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		// The advisory lock file held during Ensure is not model content.
		if !info.IsDir() && info.Name() != ".lock" {
			total += info.Size()
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}
