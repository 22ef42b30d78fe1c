package audio

import (
	"context"
	"errors"
	"sync"
)

// MockPlayer records clips instead of playing them.
type MockPlayer struct {
	mu     sync.Mutex
	played []*Clip
	closed bool
}

// NewMockPlayer creates a silent player for tests.
func NewMockPlayer() *MockPlayer {
	return &MockPlayer{}
}

// Play records clip.
func (m *MockPlayer) Play(ctx context.Context, clip *Clip) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if clip == nil || len(clip.PCM) == 0 {
		return errors.New("audio data is empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return errors.New("player is closed")
	}
	m.played = append(m.played, clip)
	return nil
}

// Played returns the clips played so far.
func (m *MockPlayer) Played() []*Clip {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*Clip(nil), m.played...)
}

// Close marks the player closed.
func (m *MockPlayer) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
