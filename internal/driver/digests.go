package driver

import (
	"errors"
	"io/fs"
	"os"
	"sync"
	"time"

	"kernlower/internal/project"
)

// per-process cache of file digests, invalidated by size and mtime
type cachedDigest struct {
	size    int64
	modTime time.Time
	digest  project.Digest
}

// digestCache avoids rehashing the support library for every input of a
// batch.
type digestCache struct {
	mu     sync.RWMutex
	byPath map[string]cachedDigest
}

func newDigestCache(capHint int) *digestCache {
	return &digestCache{byPath: make(map[string]cachedDigest, capHint)}
}

// Get returns the digest of path. A missing file hashes to the zero digest
// so an absent optional library still yields a stable key.
func (c *digestCache) Get(path string) (project.Digest, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return project.Digest{}, nil
		}
		return project.Digest{}, err
	}
	c.mu.RLock()
	rec, ok := c.byPath[path]
	c.mu.RUnlock()
	if ok && rec.size == info.Size() && rec.modTime.Equal(info.ModTime()) {
		return rec.digest, nil
	}
	d, err := project.HashFile(path)
	if err != nil {
		return project.Digest{}, err
	}
	c.mu.Lock()
	c.byPath[path] = cachedDigest{size: info.Size(), modTime: info.ModTime(), digest: d}
	c.mu.Unlock()
	return d, nil
}
