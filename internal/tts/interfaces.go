package tts

import (
	"context"
)

// Engine defines the contract for text-to-speech engines.
// Implementations include gTTS and Edge (online), Piper (offline) and
// Google Cloud TTS (online, authenticated).
type Engine interface {
	// Synthesize converts text to a complete audio file in the format
	// reported by Info. Implementations apply their own timeout.
	Synthesize(ctx context.Context, text string) ([]byte, error)

	// Info returns engine capabilities and configuration.
	Info() EngineInfo

	// Validate checks if the engine is properly configured and available.
	// It must not perform a synthesis.
	Validate() error

	// Close releases any resources held by the engine.
	Close() error
}

// EngineInfo describes engine capabilities and configuration.
type EngineInfo struct {
	Name        string      // Engine name (e.g., "gtts", "piper")
	Voice       string      // Voice or language identity, part of the cache key
	Format      AudioFormat // Container of the synthesized audio
	SampleRate  int         // Audio sample rate in Hz, 0 when unknown
	MaxTextSize int         // Maximum text size in characters, 0 for no limit
	IsOnline    bool        // Whether the engine requires internet
}

// AudioCache stores synthesized audio between runs.
type AudioCache interface {
	// Get retrieves cached audio for the given key.
	Get(key string) ([]byte, bool)

	// Put stores audio data with the given key.
	Put(key string, audio []byte) error
}
