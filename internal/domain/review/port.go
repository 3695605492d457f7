package review

import "context"

// Staged is a local copy of an artifact ready to be served from disk.
// Transient copies live in the staging area and must be reclaimed after the
// response has been sent; non-transient paths point at the backing store
// itself and are never deleted.
type Staged struct {
	Path      string
	Transient bool
}

// ArtifactStore port (interface for the blob backends)
type ArtifactStore interface {
	// List returns the object names (full keys) under prefix.
	List(ctx context.Context, prefix string) ([]string, error)
	// Stage makes the blob at key available as a local file under dir.
	Stage(ctx context.Context, key, dir string) (Staged, error)
	// Get reads the whole blob at key into memory.
	Get(ctx context.Context, key string) ([]byte, error)
	// Put atomically replaces the blob at key. Readers observe either the
	// old or the new content, never a partial write.
	Put(ctx context.Context, key string, data []byte, contentType string) error
}
