package engines

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/pokedex/internal/tts"
	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	piperMaxText           = 5000
	piperDefaultSampleRate = 22050
)

// PiperEngine implements tts.Engine using Piper (offline TTS).
// Each synthesis runs a fresh process with pre-configured stdin; the raw
// 16-bit mono PCM it prints is wrapped into a WAV container.
type PiperEngine struct {
	binary      string
	modelPath   string
	configPath  string
	speakerID   int
	sampleRate  int
	lengthScale string
	tempDir     string
	timeout     time.Duration
}

// PiperConfig holds configuration for the Piper engine.
type PiperConfig struct {
	Binary string

	// Model file path (required)
	ModelPath string

	// Config file path (optional, defaults to model path + ".json")
	ConfigPath string

	// SpeakerID for multi-speaker models, 0 uses the model default
	SpeakerID int

	// SampleRate (optional, read from the model config, else 22050)
	SampleRate int

	Speed   float64
	TempDir string
	Timeout time.Duration
}

// piperModelConfig is the part of a Piper voice config we read.
type piperModelConfig struct {
	Audio struct {
		SampleRate int `json:"sample_rate"`
	} `json:"audio"`
}

// NewPiperEngine creates a new Piper TTS engine.
func NewPiperEngine(config PiperConfig) (*PiperEngine, error) {
	if config.ModelPath == "" {
		return nil, errors.New("model path is required")
	}
	if _, err := os.Stat(config.ModelPath); err != nil {
		return nil, fmt.Errorf("model file not found: %w", err)
	}

	if config.ConfigPath == "" {
		config.ConfigPath = config.ModelPath + ".json"
		if _, err := os.Stat(config.ConfigPath); err != nil {
			// Some voices ship "voice.json" next to "voice.onnx"
			config.ConfigPath = strings.TrimSuffix(config.ModelPath, filepath.Ext(config.ModelPath)) + ".json"
		}
	}

	if config.SampleRate == 0 {
		config.SampleRate = readPiperSampleRate(config.ConfigPath)
	}
	if config.Binary == "" {
		config.Binary = "piper"
	}
	if config.Speed == 0 {
		config.Speed = 1.0
	}
	if err := tts.ValidateSpeed(config.Speed); err != nil {
		return nil, err
	}
	if config.TempDir == "" {
		config.TempDir = os.TempDir()
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}

	return &PiperEngine{
		binary:      config.Binary,
		modelPath:   config.ModelPath,
		configPath:  config.ConfigPath,
		speakerID:   config.SpeakerID,
		sampleRate:  config.SampleRate,
		lengthScale: tts.ToPiperScale(config.Speed),
		tempDir:     config.TempDir,
		timeout:     config.Timeout,
	}, nil
}

func readPiperSampleRate(path string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		return piperDefaultSampleRate
	}
	var cfg piperModelConfig
	if err := json.Unmarshal(data, &cfg); err != nil || cfg.Audio.SampleRate <= 0 {
		log.Debug("Unable to read sample rate from piper config", "path", path, "err", err)
		return piperDefaultSampleRate
	}
	return cfg.Audio.SampleRate
}

// Synthesize converts text to WAV audio.
func (e *PiperEngine) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if err := checkText(text, piperMaxText); err != nil {
		return nil, err
	}

	pcm, err := command{
		name:    e.binary,
		args:    e.args(),
		stdin:   strings.NewReader(text),
		timeout: e.timeout,
	}.run(ctx)
	if err != nil {
		return nil, err
	}
	if len(pcm) == 0 {
		return nil, tts.NewTTSError(tts.ErrorCodeEngineFailure, "piper produced no audio", tts.ErrSynthesisFailed)
	}

	return e.encodeWAV(pcm)
}

func (e *PiperEngine) args() []string {
	args := []string{
		"--model", e.modelPath,
		"--output-raw",
		"--length-scale", e.lengthScale,
	}
	if _, err := os.Stat(e.configPath); err == nil {
		args = append(args, "--config", e.configPath)
	}
	if e.speakerID > 0 {
		args = append(args, "--speaker", strconv.Itoa(e.speakerID))
	}
	return args
}

// encodeWAV wraps little-endian 16-bit mono PCM in a WAV container.
func (e *PiperEngine) encodeWAV(pcm []byte) ([]byte, error) {
	samples := make([]int, len(pcm)/2)
	for i := range samples {
		samples[i] = int(int16(binary.LittleEndian.Uint16(pcm[i*2:]))) //nolint:gosec
	}
	return writeWAV(e.tempDir, e.sampleRate, samples)
}

// writeWAV encodes 16-bit mono samples as a WAV file. wav.Encoder needs to
// seek back to patch the header sizes, so it writes through a temp file.
func writeWAV(tempDir string, sampleRate int, samples []int) ([]byte, error) {
	tmp, err := os.CreateTemp(tempDir, "pcm-*.wav")
	if err != nil {
		return nil, tts.NewTTSError(tts.ErrorCodeOutputFailure, "unable to create temp file", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck
	defer tmp.Close()           //nolint:errcheck

	enc := wav.NewEncoder(tmp, sampleRate, 16, 1, 1)
	buf := &audio.IntBuffer{
		Data:           samples,
		Format:         &audio.Format{SampleRate: sampleRate, NumChannels: 1},
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return nil, tts.NewTTSError(tts.ErrorCodeEngineFailure, "unable to encode wav", err)
	}
	if err := enc.Close(); err != nil {
		return nil, tts.NewTTSError(tts.ErrorCodeEngineFailure, "unable to finalize wav", err)
	}

	return os.ReadFile(tmp.Name())
}

// Info returns engine capabilities.
func (e *PiperEngine) Info() tts.EngineInfo {
	return tts.EngineInfo{
		Name:        "piper",
		Voice:       fmt.Sprintf("%s#%d/%s", filepath.Base(e.modelPath), e.speakerID, e.lengthScale),
		Format:      tts.FormatWAV,
		SampleRate:  e.sampleRate,
		MaxTextSize: piperMaxText,
		IsOnline:    false,
	}
}

// Validate checks if the engine is properly configured.
func (e *PiperEngine) Validate() error {
	if _, err := exec.LookPath(e.binary); err != nil {
		return tts.NewTTSError(tts.ErrorCodeEngineUnavailable, "piper not found in PATH", err)
	}
	if _, err := os.Stat(e.modelPath); err != nil {
		return tts.NewTTSError(tts.ErrorCodeEngineUnavailable, "model file not accessible", err)
	}
	return nil
}

// Close releases resources.
func (e *PiperEngine) Close() error {
	return nil
}
