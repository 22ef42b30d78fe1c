package camera

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
)

// Config describes the capture device.
type Config struct {
	// FFmpeg is the ffmpeg executable
	FFmpeg string `mapstructure:"ffmpeg"`

	// Device is the input device, e.g. /dev/video0
	Device string `mapstructure:"device"`

	// InputFormat is the ffmpeg demuxer, e.g. v4l2 or avfoundation
	InputFormat string `mapstructure:"input_format"`

	Width     int `mapstructure:"width"`
	Height    int `mapstructure:"height"`
	FrameRate int `mapstructure:"framerate"`

	// Warmup is how long to wait after opening before frames are trusted
	Warmup time.Duration `mapstructure:"warmup"`

	// StaleFrames is the number of buffered frames discarded per capture
	StaleFrames int `mapstructure:"stale_frames"`
}

// DefaultConfig returns settings for a USB webcam on Linux.
func DefaultConfig() Config {
	c := Config{
		FFmpeg:      "ffmpeg",
		Device:      "/dev/video0",
		InputFormat: "v4l2",
		Width:       640,
		Height:      480,
		FrameRate:   30,
		Warmup:      2 * time.Second,
		StaleFrames: DefaultStaleFrames,
	}
	switch runtime.GOOS {
	case "darwin":
		c.InputFormat = "avfoundation"
		c.Device = "0"
	case "windows":
		c.InputFormat = "dshow"
		c.Device = "video=Integrated Camera"
	}
	return c
}

// FFmpegSource reads raw RGB frames from an ffmpeg capture process.
type FFmpegSource struct {
	config Config
	cmd    *exec.Cmd
	stdout *bufio.Reader
	stderr *tailBuffer
	frame  []byte

	// mu serializes reads; Close does not take it so it can interrupt a
	// blocked Read.
	mu        sync.Mutex
	closed    atomic.Bool
	closeOnce sync.Once
}

// OpenFFmpeg starts capturing. The process keeps running until Close.
func OpenFFmpeg(ctx context.Context, config Config) (*FFmpegSource, error) {
	if config.Width <= 0 || config.Height <= 0 {
		return nil, fmt.Errorf("invalid frame size %dx%d", config.Width, config.Height)
	}
	if config.FFmpeg == "" {
		config.FFmpeg = "ffmpeg"
	}

	cmd := exec.Command(config.FFmpeg, ffmpegArgs(config)...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("unable to attach to ffmpeg: %w", err)
	}
	stderr := &tailBuffer{max: 4096}
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, fmt.Errorf("ffmpeg not found in PATH, it is needed for camera capture: %w", err)
		}
		return nil, fmt.Errorf("unable to start ffmpeg: %w", err)
	}
	log.Debug("Camera opened", "device", config.Device, "format", config.InputFormat,
		"size", fmt.Sprintf("%dx%d", config.Width, config.Height), "pid", cmd.Process.Pid)

	s := &FFmpegSource{
		config: config,
		cmd:    cmd,
		stdout: bufio.NewReaderSize(stdout, config.Width*config.Height*3),
		stderr: stderr,
		frame:  make([]byte, config.Width*config.Height*3),
	}

	if config.Warmup > 0 {
		if err := s.warmup(ctx); err != nil {
			_ = s.Close()
			return nil, err
		}
	}
	return s, nil
}

func ffmpegArgs(c Config) []string {
	args := []string{"-hide_banner", "-loglevel", "error", "-nostdin"}
	if c.InputFormat != "" {
		args = append(args, "-f", c.InputFormat)
	}
	args = append(args, "-video_size", fmt.Sprintf("%dx%d", c.Width, c.Height))
	if c.FrameRate > 0 {
		args = append(args, "-framerate", strconv.Itoa(c.FrameRate))
	}
	return append(args,
		"-i", c.Device,
		// Scale in case the device ignored the requested size.
		"-vf", fmt.Sprintf("scale=%d:%d", c.Width, c.Height),
		"-f", "rawvideo",
		"-pix_fmt", "rgb24",
		"-",
	)
}

// warmup reads and drops frames until the warmup period is over, letting
// auto exposure settle.
func (s *FFmpegSource) warmup(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.Warmup)
	defer cancel()

	for ctx.Err() == nil {
		if _, err := io.ReadFull(s.stdout, s.frame); err != nil {
			return s.readError(err)
		}
	}
	if errors.Is(ctx.Err(), context.Canceled) {
		return ctx.Err()
	}
	return nil
}

// Read returns the next frame.
func (s *FFmpegSource) Read() (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed.Load() {
		return nil, ErrClosed
	}
	if _, err := io.ReadFull(s.stdout, s.frame); err != nil {
		if s.closed.Load() {
			return nil, ErrClosed
		}
		return nil, s.readError(err)
	}
	return rgbToImage(s.frame, s.config.Width, s.config.Height), nil
}

func (s *FFmpegSource) readError(err error) error {
	if msg := strings.TrimSpace(s.stderr.String()); msg != "" {
		return fmt.Errorf("camera read failed: %w: %s", err, msg)
	}
	return fmt.Errorf("camera read failed: %w", err)
}

// Close stops the capture process.
func (s *FFmpegSource) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)

		// Try graceful shutdown first
		_ = s.cmd.Process.Signal(os.Interrupt)
		done := make(chan error, 1)
		go func() {
			done <- s.cmd.Wait()
		}()
		select {
		case <-done:
		case <-time.After(500 * time.Millisecond):
			_ = s.cmd.Process.Kill()
			<-done
		}
		log.Debug("Camera closed", "device", s.config.Device)
	})
	return nil
}

// rgbToImage converts packed rgb24 pixels.
func rgbToImage(pix []byte, w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i, j := 0, 0; i+2 < len(pix) && j+3 < len(img.Pix); i, j = i+3, j+4 {
		img.Pix[j] = pix[i]
		img.Pix[j+1] = pix[i+1]
		img.Pix[j+2] = pix[i+2]
		img.Pix[j+3] = 0xff
	}
	return img
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	mu  sync.Mutex
	buf []byte
	max int
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.buf = append(b.buf, p...)
	if over := len(b.buf) - b.max; over > 0 {
		b.buf = b.buf[over:]
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}
