package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/go-audio/wav"
)

// ErrNotWAV is returned for data that is not a PCM WAV file.
var ErrNotWAV = errors.New("not a PCM wav file")

// Clip is decoded audio ready for the device: signed 16-bit little endian
// interleaved PCM.
type Clip struct {
	PCM        []byte
	SampleRate int
	Channels   int
}

// Duration returns the playing time of the clip.
func (c *Clip) Duration() time.Duration {
	frames := len(c.PCM) / (2 * max(1, c.Channels))
	if c.SampleRate <= 0 {
		return 0
	}
	return time.Duration(frames) * time.Second / time.Duration(c.SampleRate)
}

// Speaker plays clips. Play blocks until the clip ends or ctx is done.
type Speaker interface {
	Play(ctx context.Context, clip *Clip) error
	Close() error
}

// Decode reads a WAV file of any common bit depth into a 16-bit Clip.
func Decode(data []byte) (*Clip, error) {
	if !wav.NewDecoder(bytes.NewReader(data)).IsValidFile() {
		return nil, ErrNotWAV
	}

	dec := wav.NewDecoder(bytes.NewReader(data))
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("unable to decode wav: %w", err)
	}
	if buf.Format == nil || buf.Format.SampleRate <= 0 || buf.Format.NumChannels <= 0 {
		return nil, fmt.Errorf("%w: missing format", ErrNotWAV)
	}

	pcm := make([]byte, 2*len(buf.Data))
	for i, v := range buf.Data {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(to16(v, int(dec.BitDepth)))) //nolint:gosec
	}

	return &Clip{
		PCM:        pcm,
		SampleRate: buf.Format.SampleRate,
		Channels:   buf.Format.NumChannels,
	}, nil
}

// to16 rescales a sample of the given depth to int16 range. 8-bit WAV is
// unsigned.
func to16(v, depth int) int16 {
	switch depth {
	case 8:
		return int16((v - 128) << 8) //nolint:gosec
	case 24:
		return int16(v >> 8) //nolint:gosec
	case 32:
		return int16(v >> 16) //nolint:gosec
	default:
		return int16(v) //nolint:gosec
	}
}
