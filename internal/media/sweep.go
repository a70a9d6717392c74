package media

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/artifold/service/internal/storage"
)

// KeyIndex reports which of a candidate set of base keys one owning-entity
// type still references. Implementations must issue a single batched query
// per call, never one query per key.
type KeyIndex interface {
	ExistingKeys(ctx context.Context, baseKeys []string) (map[string]struct{}, error)
}

// ReferenceIndex fans one existence query out to every owning-entity index.
// A key referenced by any one of them is referenced.
type ReferenceIndex struct {
	indexes []KeyIndex
}

// NewReferenceIndex combines per-entity key indexes into one.
func NewReferenceIndex(indexes ...KeyIndex) *ReferenceIndex {
	return &ReferenceIndex{indexes: indexes}
}

// ExistingKeys returns the union of every index's referenced subset of baseKeys.
func (r *ReferenceIndex) ExistingKeys(ctx context.Context, baseKeys []string) (map[string]struct{}, error) {
	existing := make(map[string]struct{})
	for _, idx := range r.indexes {
		found, err := idx.ExistingKeys(ctx, baseKeys)
		if err != nil {
			return nil, err
		}
		for k := range found {
			existing[k] = struct{}{}
		}
	}
	return existing, nil
}

// SweepConfig are the orphan-sweep policy knobs.
type SweepConfig struct {
	// GraceWindow must exceed the presign TTL plus any plausible client
	// delay, so an in-flight upload is never mistaken for an orphan.
	GraceWindow time.Duration
	// BatchSize caps keys per reference query and per batched delete.
	BatchSize int
	// Prefixes are the base-key prefixes scanned, e.g. "user/", "artifact/".
	Prefixes []string
}

// Sweeper reclaims private objects whose keys no persisted record references.
// Runs are serialized with respect to each other; a partial run is safe
// because the next run re-discovers anything still old and unreferenced.
//
// Only originals are candidates: renditions follow their original's
// lifecycle and exist pre-publish only for referenced keys, so private
// orphans have none to chase. If renditions are ever produced before
// publish, this assumption breaks and the sweep will leak them.
type Sweeper struct {
	store storage.Storage
	paths Paths
	refs  *ReferenceIndex
	cfg   SweepConfig

	mu  sync.Mutex
	now func() time.Time
}

// NewSweeper creates a Sweeper.
func NewSweeper(store storage.Storage, paths Paths, refs *ReferenceIndex, cfg SweepConfig) *Sweeper {
	return &Sweeper{
		store: store,
		paths: paths,
		refs:  refs,
		cfg:   cfg,
		now:   time.Now,
	}
}

// Sweep scans the configured private prefixes and deletes unreferenced
// originals older than the grace window. It returns the number of objects
// deleted. A listing failure aborts the run; a failed reference check or
// batch delete is logged and skipped so one poisoned page cannot block
// reclamation of the rest.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.cfg.GraceWindow)

	var (
		deleted int
		page    []string // private keys awaiting a reference check
		pending []string // confirmed orphans awaiting deletion
	)

	flush := func() {
		if len(pending) == 0 {
			return
		}
		if err := s.store.RemoveBatch(ctx, pending); err != nil {
			log.Printf("sweep: batch delete of %d objects failed: %v", len(pending), err)
		} else {
			deleted += len(pending)
		}
		pending = pending[:0]
	}

	checkPage := func() {
		if len(page) == 0 {
			return
		}
		orphans := s.orphansIn(ctx, page)
		page = page[:0]

		for _, key := range orphans {
			pending = append(pending, key)
			if len(pending) >= s.cfg.BatchSize {
				flush()
			}
		}
	}

	for _, prefix := range s.cfg.Prefixes {
		err := s.store.Walk(ctx, s.paths.Private(prefix), func(e storage.Entry) error {
			if !e.LastModified.Before(cutoff) {
				return nil // still inside the grace window
			}
			if !IsOriginal(e.Key) {
				return nil // renditions are owned by their original
			}
			page = append(page, e.Key)
			if len(page) >= s.cfg.BatchSize {
				checkPage()
			}
			return nil
		})
		if err != nil {
			flush()
			return deleted, fmt.Errorf("sweep prefix %q: %w", prefix, err)
		}
		checkPage()
	}

	flush()
	return deleted, nil
}

// orphansIn batches one reference query for the page and returns the private
// keys absent from every index. A failed query forfeits only this page.
func (s *Sweeper) orphansIn(ctx context.Context, privateKeys []string) []string {
	baseKeys := make([]string, 0, len(privateKeys))
	for _, key := range privateKeys {
		if baseKey, ok := s.paths.BaseKey(key); ok {
			baseKeys = append(baseKeys, baseKey)
		}
	}
	if len(baseKeys) == 0 {
		return nil
	}

	referenced, err := s.refs.ExistingKeys(ctx, baseKeys)
	if err != nil {
		log.Printf("sweep: reference check for %d keys failed, skipping page: %v", len(baseKeys), err)
		return nil
	}

	var orphans []string
	for _, key := range privateKeys {
		baseKey, ok := s.paths.BaseKey(key)
		if !ok {
			continue
		}
		if _, ok := referenced[baseKey]; !ok {
			log.Printf("sweep: orphan scheduled for deletion: %s", key)
			orphans = append(orphans, key)
		}
	}
	return orphans
}

// Run sweeps once per interval until ctx is cancelled. Intended to be
// launched as a single background goroutine.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.Sweep(ctx)
			if err != nil {
				log.Printf("sweep: aborted after deleting %d objects: %v", n, err)
				continue
			}
			log.Printf("sweep: completed, %d orphaned objects deleted", n)
		}
	}
}
