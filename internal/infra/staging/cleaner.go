package staging

import (
	"errors"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/jingelab/pathreview/internal/middleware"
)

// Cleaner reclaims transient staged files on a bounded worker queue. Handlers
// enqueue a path only after the response body has been fully written, so no
// delay is needed before deleting. Removal is delete-if-exists; failures are
// logged and swallowed, never surfaced to a client.
type Cleaner struct {
	queue chan string
	wg    sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

func NewCleaner(workers, queueSize int) *Cleaner {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	c := &Cleaner{queue: make(chan string, queueSize)}
	c.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer c.wg.Done()
			for path := range c.queue {
				remove(path)
			}
		}()
	}
	return c
}

// Enqueue schedules path for removal. A full queue falls back to removing
// inline rather than blocking the request handler.
func (c *Cleaner) Enqueue(path string) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		remove(path)
		return
	}
	select {
	case c.queue <- path:
		c.mu.Unlock()
	default:
		c.mu.Unlock()
		remove(path)
	}
}

// Close drains the queue and stops the workers.
func (c *Cleaner) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.queue)
	c.mu.Unlock()
	c.wg.Wait()
}

func remove(path string) {
	err := os.Remove(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return
	}
	middleware.IncrementCleanupFailed()
	log.Printf("staging cleanup failed for %s: %v", path, err)
}

// Sweep clears files left in the staging dir by a previous run. Called once
// at startup; errors are non-fatal.
func Sweep(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(dir, e.Name())); err != nil {
			log.Printf("staging sweep failed for %s: %v", e.Name(), err)
		}
	}
}
