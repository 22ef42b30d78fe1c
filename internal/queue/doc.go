// Package queue synthesizes sentences ahead of playback so the next piece of
// audio is ready when the current one ends.
package queue
