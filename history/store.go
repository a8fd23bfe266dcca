// Package history persists executed cells through Lode.
//
// Records are JSONL, Hive-partitioned by session and day, and stored on
// the local filesystem, in memory, or in S3.
package history

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/justapithecus/lode/lode"
)

// DefaultDataset is the dataset ID used when none is configured.
const DefaultDataset = "ikernel"

// Backends.
const (
	BackendFS     = "fs"
	BackendMemory = "memory"
	BackendS3     = "s3"
)

// partitionKeys is the Hive layout shared by the write and read paths.
var partitionKeys = []string{"session", "day"}

// Config selects and configures a storage backend.
type Config struct {
	Backend string
	// Path is the root directory (fs) or "bucket/prefix" (s3).
	Path    string
	Dataset string
	S3      S3Config
}

// Store appends and lists execution history.
type Store struct {
	dataset lode.Dataset
	backend string

	mu sync.Mutex // serializes writes
}

// Open creates a store for the configured backend.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Dataset == "" {
		cfg.Dataset = DefaultDataset
	}
	switch cfg.Backend {
	case BackendFS, "":
		if cfg.Path == "" {
			return nil, fmt.Errorf("history: fs backend requires a path")
		}
		return NewWithFactory(cfg.Dataset, BackendFS, lode.NewFSFactory(cfg.Path))
	case BackendMemory:
		return NewWithFactory(cfg.Dataset, BackendMemory, lode.NewMemoryFactory())
	case BackendS3:
		s3cfg := cfg.S3
		if s3cfg.Bucket == "" {
			s3cfg.Bucket, s3cfg.Prefix = ParseS3Path(cfg.Path)
		}
		factory, err := NewS3Factory(ctx, s3cfg)
		if err != nil {
			return nil, err
		}
		return NewWithFactory(cfg.Dataset, BackendS3, factory)
	default:
		return nil, fmt.Errorf("history: unknown backend %q (want fs, memory or s3)", cfg.Backend)
	}
}

// NewWithFactory creates a store over a custom Lode store factory.
// Use lode.NewMemoryFactory() for testing.
func NewWithFactory(dataset, backend string, factory lode.StoreFactory) (*Store, error) {
	ds, err := lode.NewDataset(
		lode.DatasetID(dataset),
		factory,
		lode.WithHiveLayout(partitionKeys...),
		lode.WithCodec(lode.NewJSONLCodec()),
	)
	if err != nil {
		return nil, storageErr(OpInit, dataset, err)
	}
	return &Store{dataset: ds, backend: backend}, nil
}

// Backend returns the backend name.
func (s *Store) Backend() string {
	return s.backend
}

// Append writes one entry as its own snapshot.
func (s *Store) Append(ctx context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.dataset.Write(ctx, []any{toRecordMap(e)}, lode.Metadata{}); err != nil {
		return storageErr(OpWrite, fmt.Sprintf("%s/session=%s", s.dataset.ID(), e.Session), err)
	}
	return nil
}

// Filter narrows List results.
type Filter struct {
	// Session keeps only entries of one kernel session.
	Session string
	// Limit keeps only the most recent entries; zero means all.
	Limit int
}

// List returns matching entries, oldest first.
func (s *Store) List(ctx context.Context, f Filter) ([]Entry, error) {
	snapshots, err := s.dataset.Snapshots(ctx)
	if err != nil {
		return nil, storageErr(OpRead, string(s.dataset.ID())+"/snapshots", err)
	}

	var entries []Entry
	seen := make(map[string]struct{})
	for _, snap := range snapshots {
		if !snapshotMatchesFilter(snap, "session", f.Session) {
			continue
		}
		data, err := s.dataset.Read(ctx, snap.ID)
		if err != nil {
			return nil, storageErr(OpRead, fmt.Sprintf("%s/snapshot/%s", s.dataset.ID(), snap.ID), err)
		}
		for _, item := range data {
			record, ok := item.(map[string]any)
			if !ok {
				continue
			}
			e, ok := fromRecordMap(record)
			if !ok {
				continue
			}
			// Manifest paths are a coarse pre-filter; record fields are
			// authoritative.
			if f.Session != "" && e.Session != f.Session {
				continue
			}
			key := fmt.Sprintf("%s/%d/%d", e.Session, e.ExecutionCount, e.StartedAt.UnixNano())
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			entries = append(entries, e)
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].StartedAt.Before(entries[j].StartedAt)
	})
	if f.Limit > 0 && len(entries) > f.Limit {
		entries = entries[len(entries)-f.Limit:]
	}
	return entries, nil
}

// Close releases store resources.
func (s *Store) Close() error {
	return nil
}

// snapshotMatchesFilter checks if a snapshot's file paths match
// the given partition key=value filter.
func snapshotMatchesFilter(snap *lode.DatasetSnapshot, key, value string) bool {
	if value == "" {
		return true
	}
	for _, f := range snap.Manifest.Files {
		if matchesPartitionValue(f.Path, key, value) {
			return true
		}
	}
	return false
}

// matchesPartitionValue checks if a Hive-partitioned path contains an exact
// key=value segment, so session=a does not match session=ab.
func matchesPartitionValue(path, key, value string) bool {
	segment := key + "=" + value
	for _, part := range strings.Split(path, "/") {
		if part == segment {
			return true
		}
	}
	return false
}
