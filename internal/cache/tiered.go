package cache

import (
	"errors"

	"github.com/charmbracelet/log"
)

// Tiered puts a MemoryCache in front of a DiskCache. Disk hits are promoted
// to memory; writes go to both.
type Tiered struct {
	memory *MemoryCache
	disk   *DiskCache
}

// NewTiered layers memory over disk. A nil memory cache disables the first
// tier.
func NewTiered(memory *MemoryCache, disk *DiskCache) *Tiered {
	return &Tiered{memory: memory, disk: disk}
}

// Get looks in memory first, then on disk.
func (t *Tiered) Get(key string) ([]byte, bool) {
	if t.memory != nil {
		if value, ok := t.memory.Get(key); ok {
			return value, true
		}
	}

	value, ok := t.disk.Get(key)
	if ok && t.memory != nil {
		if err := t.memory.Put(key, value); err != nil && !errors.Is(err, ErrItemTooLarge) {
			log.Debug("Unable to promote cache entry", "key", key, "err", err)
		}
	}
	return value, ok
}

// Put stores value in both tiers. Only a disk failure is reported; an item
// too large for memory still lands on disk.
func (t *Tiered) Put(key string, value []byte) error {
	if t.memory != nil {
		_ = t.memory.Put(key, value)
	}
	return t.disk.Put(key, value)
}

// Stats returns the statistics of each tier.
func (t *Tiered) Stats() (memory, disk CacheStats) {
	if t.memory != nil {
		memory = t.memory.Stats()
	}
	return memory, t.disk.Stats()
}

// Close flushes the disk index and drops the memory tier.
func (t *Tiered) Close() error {
	if t.memory != nil {
		t.memory.Clear()
	}
	return t.disk.Close()
}
