package speech

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"sync"

	"github.com/hammamikhairi/recipevoice/internal/logger"
)

// AudioCache keeps synthesized audio in memory and, optionally, on disk.
// Keys are sha256(voice + ":" + text), so switching voices just misses.
// The disk layer is always read when a directory is set; diskWrite only
// controls whether new entries are persisted.
type AudioCache struct {
	voice     string
	dir       string
	diskWrite bool
	log       *logger.Logger

	mu      sync.RWMutex
	entries map[string][]byte
	hits    int64
	misses  int64
}

// NewAudioCache creates an audio cache. An empty dir disables the disk
// layer.
func NewAudioCache(voice, dir string, diskWrite bool, log *logger.Logger) *AudioCache {
	if dir != "" && diskWrite {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Error("cache: failed to create cache dir %s: %v", dir, err)
		}
	}
	return &AudioCache{
		voice:     voice,
		dir:       dir,
		diskWrite: diskWrite,
		log:       log,
		entries:   make(map[string][]byte),
	}
}

// Get returns cached audio for text, checking memory then disk. Disk hits
// are promoted to memory.
func (c *AudioCache) Get(text string) ([]byte, bool) {
	key := c.key(text)

	c.mu.RLock()
	data, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok && c.dir != "" {
		if disk, err := os.ReadFile(c.path(key)); err == nil {
			data, ok = disk, true
			c.log.Debug("cache hit (disk): %s", truncate(text, 40))
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !ok {
		c.misses++
		return nil, false
	}
	c.entries[key] = data
	c.hits++
	return data, true
}

// Put stores audio for text in memory, and on disk when enabled.
func (c *AudioCache) Put(text string, audio []byte) {
	key := c.key(text)

	c.mu.Lock()
	c.entries[key] = audio
	c.mu.Unlock()

	if c.dir == "" || !c.diskWrite {
		return
	}
	// Write then rename so a crash never leaves a truncated WAV behind.
	tmp := c.path(key) + ".tmp"
	if err := os.WriteFile(tmp, audio, 0o644); err != nil {
		c.log.Error("cache: disk write failed: %v", err)
		return
	}
	if err := os.Rename(tmp, c.path(key)); err != nil {
		c.log.Error("cache: disk rename failed: %v", err)
		os.Remove(tmp)
	}
}

// Has reports whether audio for text is cached in either layer.
func (c *AudioCache) Has(text string) bool {
	key := c.key(text)

	c.mu.RLock()
	_, ok := c.entries[key]
	c.mu.RUnlock()
	if ok || c.dir == "" {
		return ok
	}
	_, err := os.Stat(c.path(key))
	return err == nil
}

// Len returns the number of in-memory entries.
func (c *AudioCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats returns hit and miss counts.
func (c *AudioCache) Stats() (hits, misses int64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}

func (c *AudioCache) key(text string) string {
	h := sha256.Sum256([]byte(c.voice + ":" + text))
	return hex.EncodeToString(h[:])
}

func (c *AudioCache) path(key string) string {
	return filepath.Join(c.dir, key+".wav")
}
