package engines

import (
	"context"
	"hash/fnv"
	"os"
	"sync"

	"github.com/dgnsrekt/pokedex/internal/tts"
)

const mockSampleRate = 16000

// MockEngine produces a short silent WAV per call. It needs no external
// tools and is used for dry runs and tests.
type MockEngine struct {
	// FailWith, when set, decides per text whether synthesis fails.
	FailWith func(text string) error

	mu    sync.Mutex
	calls []string
}

// NewMockEngine creates a mock engine that always succeeds.
func NewMockEngine() *MockEngine {
	return &MockEngine{}
}

// Synthesize returns a deterministic WAV whose length depends on the text.
func (e *MockEngine) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, tts.NewTTSError(tts.ErrorCodeCanceled, "synthesis cancelled", err)
	}
	if err := checkText(text, 0); err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.calls = append(e.calls, text)
	e.mu.Unlock()

	if e.FailWith != nil {
		if err := e.FailWith(text); err != nil {
			return nil, err
		}
	}

	h := fnv.New32a()
	_, _ = h.Write([]byte(text))
	return writeWAV(os.TempDir(), mockSampleRate, make([]int, 800+int(h.Sum32()%800)))
}

// Calls returns the texts synthesized so far.
func (e *MockEngine) Calls() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.calls...)
}

// Info returns engine capabilities.
func (e *MockEngine) Info() tts.EngineInfo {
	return tts.EngineInfo{
		Name:       "mock",
		Voice:      "silence",
		Format:     tts.FormatWAV,
		SampleRate: mockSampleRate,
	}
}

// Validate always succeeds.
func (e *MockEngine) Validate() error { return nil }

// Close releases resources.
func (e *MockEngine) Close() error { return nil }
