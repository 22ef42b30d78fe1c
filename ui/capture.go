package ui

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/pokedex/internal/camera"
	"github.com/dgnsrekt/pokedex/internal/vision"
)

// Classifier labels a frame. *vision.Classifier satisfies it.
type Classifier interface {
	Classify(img image.Image) (vision.Result, error)
}

// Capture is the outcome of one trigger.
type Capture struct {
	Result vision.Result

	// Snapshot is the annotated PNG written for this capture, if any
	Snapshot string

	At time.Time
}

// Capturer grabs a fresh frame and classifies it. Both interactive front
// ends share it.
type Capturer struct {
	source     camera.Source
	classifier Classifier
	cfg        Config

	mu    sync.Mutex
	count int
}

// NewCapturer ties a frame source to a classifier.
func NewCapturer(source camera.Source, classifier Classifier, cfg Config) (*Capturer, error) {
	if source == nil {
		return nil, errors.New("frame source is required")
	}
	if classifier == nil {
		return nil, errors.New("classifier is required")
	}
	if cfg.SnapshotDir != "" {
		if err := os.MkdirAll(cfg.SnapshotDir, 0o755); err != nil {
			return nil, fmt.Errorf("unable to create snapshot directory: %w", err)
		}
	}
	return &Capturer{source: source, classifier: classifier, cfg: cfg}, nil
}

// Capture flushes stale frames, classifies the next one and saves a
// snapshot when configured. A failed snapshot is logged, not returned.
func (c *Capturer) Capture() (Capture, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	img, err := camera.Fresh(c.source, c.cfg.StaleFrames)
	if err != nil {
		return Capture{}, fmt.Errorf("unable to read frame: %w", err)
	}

	result, err := c.classifier.Classify(img)
	if err != nil {
		return Capture{}, fmt.Errorf("unable to classify frame: %w", err)
	}

	c.count++
	capture := Capture{Result: result, At: time.Now()}
	log.Debug("Captured", "n", c.count, "label", result.Label, "confidence", result.Confidence, "elapsed", result.Elapsed)

	if c.cfg.SnapshotDir != "" {
		path, err := c.saveSnapshot(img, capture)
		if err != nil {
			log.Warn("Unable to save snapshot", "err", err)
		} else {
			capture.Snapshot = path
		}
	}
	return capture, nil
}

func (c *Capturer) saveSnapshot(img image.Image, capture Capture) (string, error) {
	name := fmt.Sprintf("%s-%03d.png", capture.At.Format("20060102-150405"), c.count)
	path := filepath.Join(c.cfg.SnapshotDir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", err
	}

	annotated := vision.Overlay(img, vision.Caption(capture.Result, c.cfg.threshold()))
	if err := png.Encode(f, annotated); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", err
	}
	return path, f.Close()
}
