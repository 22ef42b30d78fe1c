// Package cache stores synthesized narration audio on disk so that re-running
// a batch over the same spreadsheet does not call the speech engine again.
// Entries are zstd compressed and evicted least-recently-used first once the
// capacity is reached.
package cache
