package discord

import (
	"sync"
	"time"
)

// DedupeCache remembers recently handled message IDs so events replayed by
// a gateway resume are not answered twice. Entries expire after ttl and are
// pruned lazily.
type DedupeCache struct {
	mu      sync.Mutex
	entries map[string]time.Time
	ttl     time.Duration
	maxSize int
	now     func() time.Time
}

// NewDedupeCache creates a cache keeping at most maxSize IDs for ttl.
func NewDedupeCache(ttl time.Duration, maxSize int) *DedupeCache {
	return &DedupeCache{
		entries: make(map[string]time.Time, 256),
		ttl:     ttl,
		maxSize: maxSize,
		now:     time.Now,
	}
}

// IsDuplicate reports whether id was seen within the TTL and records it
// otherwise.
func (d *DedupeCache) IsDuplicate(id string) bool {
	now := d.now()
	cutoff := now.Add(-d.ttl)

	d.mu.Lock()
	defer d.mu.Unlock()

	if seen, ok := d.entries[id]; ok && !seen.Before(cutoff) {
		return true
	}
	d.prune(cutoff)
	d.entries[id] = now
	return false
}

// prune drops expired IDs, then the oldest ones while over capacity.
// d.mu must be held.
func (d *DedupeCache) prune(cutoff time.Time) {
	for id, seen := range d.entries {
		if seen.Before(cutoff) {
			delete(d.entries, id)
		}
	}
	for d.maxSize > 0 && len(d.entries) >= d.maxSize {
		var oldestID string
		var oldest time.Time
		for id, seen := range d.entries {
			if oldestID == "" || seen.Before(oldest) {
				oldestID, oldest = id, seen
			}
		}
		delete(d.entries, oldestID)
	}
}
