package engines

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/dgnsrekt/pokedex/internal/tts"
)

const edgeMaxText = 5000

// EdgeEngine implements tts.Engine using the Microsoft Edge online voices
// through the edge-tts command line tool.
type EdgeEngine struct {
	binary  string
	voice   string
	rate    string
	pitch   string
	volume  string
	tempDir string
	timeout time.Duration
}

// EdgeConfig holds configuration for the Edge engine.
type EdgeConfig struct {
	Binary string

	// Voice name - defaults to "ko-KR-SunHiNeural"
	Voice string

	// Speed multiplier (0.5 to 2.0) and pitch in semitones
	Speed float64
	Pitch float64

	// Volume offset in percent
	Volume int

	TempDir string
	Timeout time.Duration
}

// NewEdgeEngine creates a new Edge TTS engine.
func NewEdgeEngine(config EdgeConfig) (*EdgeEngine, error) {
	if config.Binary == "" {
		config.Binary = "edge-tts"
	}
	if config.Voice == "" {
		config.Voice = "ko-KR-SunHiNeural"
	}
	if config.Speed == 0 {
		config.Speed = 1.0
	}
	if err := tts.ValidateSpeed(config.Speed); err != nil {
		return nil, err
	}
	if err := tts.ValidatePitch(config.Pitch); err != nil {
		return nil, err
	}
	if config.Volume < -100 || config.Volume > 100 {
		return nil, fmt.Errorf("volume must be between -100 and 100, got %d", config.Volume)
	}
	if config.TempDir == "" {
		config.TempDir = os.TempDir()
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}

	return &EdgeEngine{
		binary:  config.Binary,
		voice:   config.Voice,
		rate:    tts.ToEdgeRate(config.Speed),
		pitch:   tts.ToEdgePitch(config.Pitch),
		volume:  tts.ToEdgeVolume(config.Volume),
		tempDir: config.TempDir,
		timeout: config.Timeout,
	}, nil
}

// Synthesize converts text to MP3 audio. edge-tts always writes media to a
// file, so the audio goes through a temp file.
func (e *EdgeEngine) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if err := checkText(text, edgeMaxText); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(e.tempDir, 0o755); err != nil {
		return nil, tts.NewTTSError(tts.ErrorCodeOutputFailure, "unable to create temp directory", err)
	}
	tmp, err := os.CreateTemp(e.tempDir, "edge-*.mp3")
	if err != nil {
		return nil, tts.NewTTSError(tts.ErrorCodeOutputFailure, "unable to create temp file", err)
	}
	mediaPath := tmp.Name()
	_ = tmp.Close()
	defer os.Remove(mediaPath) //nolint:errcheck

	_, err = command{
		name:    e.binary,
		args:    e.args(mediaPath),
		stdin:   strings.NewReader(text),
		timeout: e.timeout,
	}.run(ctx)
	if err != nil {
		if s := strings.ToLower(stderrOf(err)); strings.Contains(s, "noaudioreceived") {
			return nil, fmt.Errorf("voice %q returned no audio, check the voice name with: edge-tts --list-voices: %w", e.voice, err)
		}
		return nil, err
	}

	audio, err := os.ReadFile(mediaPath)
	if err != nil {
		return nil, tts.NewTTSError(tts.ErrorCodeEngineFailure, "unable to read edge-tts output", err)
	}
	if len(audio) == 0 {
		return nil, tts.NewTTSError(tts.ErrorCodeEngineFailure, "edge-tts produced no audio", tts.ErrSynthesisFailed)
	}
	return audio, nil
}

func (e *EdgeEngine) args(mediaPath string) []string {
	// The "=" form keeps negative offsets from being parsed as flags.
	return []string{
		"--voice=" + e.voice,
		"--rate=" + e.rate,
		"--pitch=" + e.pitch,
		"--volume=" + e.volume,
		"--file", "-",
		"--write-media", mediaPath,
	}
}

// Info returns engine capabilities.
func (e *EdgeEngine) Info() tts.EngineInfo {
	return tts.EngineInfo{
		Name:        "edge",
		Voice:       fmt.Sprintf("%s/%s/%s/%s", e.voice, e.rate, e.pitch, e.volume),
		Format:      tts.FormatMP3,
		SampleRate:  24000,
		MaxTextSize: edgeMaxText,
		IsOnline:    true,
	}
}

// Validate checks that edge-tts is installed.
func (e *EdgeEngine) Validate() error {
	if _, err := exec.LookPath(e.binary); err != nil {
		return tts.NewTTSError(tts.ErrorCodeEngineUnavailable,
			"edge-tts not found in PATH, install with: pip install edge-tts", err)
	}
	return nil
}

// Close releases resources.
func (e *EdgeEngine) Close() error {
	return nil
}
