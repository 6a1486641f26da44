// Package dashboard serves dashboard.md from memory, rereading it only when
// the file changes.
package dashboard

import (
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/zeebo/blake3"
)

// Cache holds the last read content of one markdown file. A change is
// detected either by an fsnotify event or by a modification time or size
// that differs from the cached one, so the cache stays correct when
// fsnotify is unavailable.
type Cache struct {
	path string

	mu      sync.Mutex
	loaded  bool
	modTime time.Time
	size    int64
	content string
	etag    string
	reads   int

	dirty   atomic.Bool
	watcher *fsnotify.Watcher
	done    chan struct{}
}

func New(path string) *Cache {
	return &Cache{path: path}
}

func (c *Cache) Path() string {
	return c.path
}

// Entry is a content and the validator computed from that same content.
type Entry struct {
	Content string
	ETag    string
}

// Read returns the file content. A missing file yields "".
func (c *Cache) Read() (string, error) {
	e, err := c.Snapshot()
	return e.Content, err
}

// Snapshot returns the file content together with its ETag, both taken
// under one lock. A missing file yields an empty Entry.
func (c *Cache) Snapshot() (Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	info, err := os.Stat(c.path)
	if errors.Is(err, os.ErrNotExist) {
		c.reset()
		return Entry{}, nil
	}
	if err != nil {
		return Entry{}, fmt.Errorf("stat dashboard: %w", err)
	}

	dirty := c.dirty.Swap(false)
	stale := !c.loaded || dirty ||
		!info.ModTime().Equal(c.modTime) ||
		info.Size() != c.size
	if !stale {
		return Entry{Content: c.content, ETag: c.etag}, nil
	}

	data, err := os.ReadFile(c.path)
	if errors.Is(err, os.ErrNotExist) {
		c.reset()
		return Entry{}, nil
	}
	if err != nil {
		return Entry{}, fmt.Errorf("reading dashboard: %w", err)
	}

	sum := blake3.Sum256(data)
	c.loaded = true
	c.modTime = info.ModTime()
	c.size = info.Size()
	c.content = string(data)
	c.etag = `"` + hex.EncodeToString(sum[:16]) + `"`
	c.reads++
	return Entry{Content: c.content, ETag: c.etag}, nil
}

func (c *Cache) reset() {
	c.loaded = false
	c.content = ""
	c.etag = ""
	c.modTime = time.Time{}
	c.size = 0
}

// ETag returns the strong validator of the content returned by the last
// Read, or "" when the file is missing.
func (c *Cache) ETag() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.etag
}

// Invalidate forces the next Read to reload the file.
func (c *Cache) Invalidate() {
	c.dirty.Store(true)
}

// Watch subscribes to changes of the file's directory. The directory is
// watched instead of the file so editors that replace the file by rename
// are still seen.
func (c *Cache) Watch() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	dir := filepath.Dir(c.path)
	if err := w.Add(dir); err != nil {
		w.Close()
		return fmt.Errorf("watching %s: %w", dir, err)
	}

	c.mu.Lock()
	c.watcher = w
	c.done = make(chan struct{})
	c.mu.Unlock()

	go c.run(w, c.done)
	return nil
}

func (c *Cache) run(w *fsnotify.Watcher, done chan struct{}) {
	defer close(done)
	name := filepath.Clean(c.path)
	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) == name {
				c.dirty.Store(true)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			log.Printf("dashboard watcher error: %v", err)
		}
	}
}

// Close stops the watcher, if any.
func (c *Cache) Close() error {
	c.mu.Lock()
	w, done := c.watcher, c.done
	c.watcher = nil
	c.mu.Unlock()

	if w == nil {
		return nil
	}
	err := w.Close()
	<-done
	return err
}
