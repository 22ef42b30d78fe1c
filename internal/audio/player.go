//go:build !nocgo

package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

// oto allows a single context per process.
var (
	otoOnce sync.Once
	otoCtx  *oto.Context
	otoRate int
	otoErr  error
)

func otoContext(sampleRate, channels int) (*oto.Context, error) {
	otoOnce.Do(func() {
		ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
			SampleRate:   sampleRate,
			ChannelCount: channels,
			Format:       oto.FormatSignedInt16LE,
		})
		if err != nil {
			otoErr = fmt.Errorf("failed to create oto context: %w", err)
			return
		}
		<-ready
		otoCtx, otoRate = ctx, sampleRate
	})
	if otoErr != nil {
		return nil, otoErr
	}
	if sampleRate != otoRate {
		return nil, fmt.Errorf("device opened at %d Hz, clip is %d Hz", otoRate, sampleRate)
	}
	return otoCtx, nil
}

// Player plays clips on the default output device.
type Player struct {
	volume float64

	mu     sync.Mutex
	closed bool
}

// NewPlayer returns a player at the given volume (0.0 to 1.0). The device
// is opened on the first Play, at that clip's format.
func NewPlayer(volume float64) (*Player, error) {
	if volume < 0 || volume > 1 {
		return nil, fmt.Errorf("volume must be between 0.0 and 1.0, got %f", volume)
	}
	return &Player{volume: volume}, nil
}

// Play blocks until clip has finished or ctx is done.
func (p *Player) Play(ctx context.Context, clip *Clip) error {
	if clip == nil || len(clip.PCM) == 0 {
		return errors.New("audio data is empty")
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return errors.New("player is closed")
	}

	c, err := otoContext(clip.SampleRate, clip.Channels)
	if err != nil {
		return err
	}

	// The reader must outlive playback; oto reads it from its own goroutine.
	player := c.NewPlayer(bytes.NewReader(clip.PCM))
	defer player.Close() //nolint:errcheck
	player.SetVolume(p.volume)
	player.Play()

	tick := time.NewTicker(20 * time.Millisecond)
	defer tick.Stop()
	for player.IsPlaying() {
		select {
		case <-ctx.Done():
			player.Pause()
			return ctx.Err()
		case <-tick.C:
		}
	}
	return player.Err()
}

// Close releases the player. The oto context itself lives for the process.
func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}
