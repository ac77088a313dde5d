package titles

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
)

// Cache remembers transcriptions by fingerprint and asks Next on a miss.
// It is safe for concurrent use by page workers.
type Cache struct {
	Next Source

	mu      sync.RWMutex
	entries map[Fingerprint]string
	hits    int
}

// NewCache returns an empty cache in front of next.
func NewCache(next Source) *Cache {
	return &Cache{Next: next, entries: make(map[Fingerprint]string)}
}

func (c *Cache) Transcribe(ctx context.Context, r Region) (string, bool, error) {
	if !r.Fingerprint.IsZero() {
		c.mu.Lock()
		text, ok := c.entries[r.Fingerprint]
		if ok {
			c.hits++
		}
		c.mu.Unlock()
		if ok {
			return text, true, nil
		}
	}
	if c.Next == nil {
		return "", false, nil
	}
	text, ok, err := c.Next.Transcribe(ctx, r)
	if err != nil || !ok {
		return text, ok, err
	}
	c.Put(r.Fingerprint, text)
	return text, true, nil
}

// Put stores a transcription; zero fingerprints are ignored.
func (c *Cache) Put(f Fingerprint, text string) {
	if f.IsZero() {
		return
	}
	c.mu.Lock()
	if c.entries == nil {
		c.entries = make(map[Fingerprint]string)
	}
	c.entries[f] = text
	c.mu.Unlock()
}

// Len returns the number of cached transcriptions.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Hits returns how many lookups were answered from the cache.
func (c *Cache) Hits() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits
}

type cacheFile struct {
	Version int               `json:"version"`
	Titles  map[string]string `json:"titles"`
}

// Save writes the cache as JSON keyed by hex fingerprint.
func (c *Cache) Save(w io.Writer) error {
	c.mu.RLock()
	out := cacheFile{Version: 1, Titles: make(map[string]string, len(c.entries))}
	for f, text := range c.entries {
		out.Titles[f.String()] = text
	}
	c.mu.RUnlock()
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// Load merges a file written by Save into the cache.
func (c *Cache) Load(r io.Reader) error {
	var in cacheFile
	if err := json.NewDecoder(r).Decode(&in); err != nil {
		return fmt.Errorf("title cache: %w", err)
	}
	if in.Version != 1 {
		return fmt.Errorf("title cache: unsupported version %d", in.Version)
	}
	for k, text := range in.Titles {
		f, ok := ParseFingerprint(k)
		if !ok {
			return fmt.Errorf("title cache: bad fingerprint %q", k)
		}
		c.Put(f, text)
	}
	return nil
}
