// Package camera provides frames for the classifier: live frames from a
// webcam through ffmpeg, or a still image from disk.
package camera

import (
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // register decoders for ImageSource
	_ "image/png"
	"os"
)

// DefaultStaleFrames is how many buffered frames Fresh throws away.
const DefaultStaleFrames = 5

// ErrClosed is returned when reading from a closed source.
var ErrClosed = errors.New("camera source closed")

// Source yields frames.
type Source interface {
	// Read blocks until the next frame is available.
	Read() (image.Image, error)
	Close() error
}

// Fresh discards stale frames queued up while nobody was reading and
// returns the next one. Capture devices buffer a few frames, so without
// this the result would show the scene from before the trigger.
func Fresh(src Source, stale int) (image.Image, error) {
	if stale < 0 {
		stale = 0
	}
	for i := 0; i < stale; i++ {
		if _, err := src.Read(); err != nil {
			return nil, err
		}
	}
	return src.Read()
}

// ImageSource serves one decoded still image on every Read.
type ImageSource struct {
	img    image.Image
	closed bool
}

// OpenImage decodes a PNG or JPEG file.
func OpenImage(path string) (*ImageSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open image: %w", err)
	}
	defer f.Close() //nolint:errcheck

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("unable to decode %s: %w", path, err)
	}
	return &ImageSource{img: img}, nil
}

// NewImageSource wraps an already decoded image.
func NewImageSource(img image.Image) *ImageSource {
	return &ImageSource{img: img}
}

// Read returns the image.
func (s *ImageSource) Read() (image.Image, error) {
	if s.closed {
		return nil, ErrClosed
	}
	return s.img, nil
}

// Close marks the source closed.
func (s *ImageSource) Close() error {
	s.closed = true
	return nil
}
