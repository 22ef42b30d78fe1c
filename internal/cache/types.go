package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"
)

// Common errors for cache operations
var (
	// ErrItemTooLarge is returned when an item exceeds the cache capacity
	ErrItemTooLarge = errors.New("item too large for cache")

	// ErrCacheClosed is returned when the cache is used after Close
	ErrCacheClosed = errors.New("cache closed")
)

// CacheStats holds cache performance metrics
type CacheStats struct {
	// Configuration
	Capacity int64 // Maximum capacity in bytes

	// Current state
	Size      int64 // Current size on disk in bytes
	ItemCount int64 // Number of items in cache

	// Performance metrics
	Hits      int64   // Number of cache hits
	Misses    int64   // Number of cache misses
	Evictions int64   // Number of evictions
	HitRate   float64 // Calculated hit rate (hits / (hits + misses))

	// Timing
	LastAccess time.Time // Last access time
	LastEvict  time.Time // Last eviction time
}

// CacheConfig holds configuration for a disk cache
type CacheConfig struct {
	// Directory for cache files
	DiskPath string

	// Capacity in bytes
	DiskCapacity int64

	// Zstd compression level (1-22, 0 disables compression)
	CompressionLevel int
}

// DefaultCacheConfig returns default cache configuration
func DefaultCacheConfig() *CacheConfig {
	return &CacheConfig{
		DiskCapacity:     100 * 1024 * 1024, // 100MB
		CompressionLevel: 3,
	}
}

// GenerateCacheKey derives a stable key from everything that changes the
// synthesized audio: engine, voice, and the text itself.
func GenerateCacheKey(engine, voice, text string) string {
	data := strings.Join([]string{engine, voice, text}, "\x1f")
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:16]) // Use first 16 bytes for shorter keys
}
