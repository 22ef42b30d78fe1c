package tts

import (
	"time"
)

// EngineType represents the TTS engine selection
type EngineType string

const (
	// EngineGTTS is the free Google Translate voice driven through gtts-cli
	EngineGTTS EngineType = "gtts"

	// EngineEdge is the Microsoft Edge online voice driven through edge-tts
	EngineEdge EngineType = "edge"

	// EnginePiper is the offline Piper engine
	EnginePiper EngineType = "piper"

	// EngineCloud is the Google Cloud Text-to-Speech REST API
	EngineCloud EngineType = "cloud"

	// EngineMock generates silent audio without external tools
	EngineMock EngineType = "mock"

	// EngineNone represents no engine selected
	EngineNone EngineType = ""
)

// Format returns the container the engine type produces.
func (t EngineType) Format() AudioFormat {
	switch t {
	case EnginePiper, EngineMock:
		return FormatWAV
	default:
		return FormatMP3
	}
}

// AudioFormat is the container an engine produces.
type AudioFormat string

const (
	FormatMP3 AudioFormat = "mp3"
	FormatWAV AudioFormat = "wav"
)

// Extension returns the file extension for the format, without the dot.
func (f AudioFormat) Extension() string {
	if f == "" {
		return string(FormatMP3)
	}
	return string(f)
}

// RowFailure records a row that could not be narrated.
type RowFailure struct {
	Row      int
	Name     string
	Filename string
	Err      error
}

// Summary describes the outcome of a batch run.
type Summary struct {
	Total   int
	Written int
	Skipped int
	Cached  int
	Failed  int

	// AudioBytes is the total size of the files written
	AudioBytes int64

	// SynthesisTime is the time spent inside the engine
	SynthesisTime time.Duration

	Failures []RowFailure
}

// Config represents TTS configuration
type Config struct {
	// Engine is the selected TTS engine
	Engine EngineType `mapstructure:"engine"`

	// Language is the language code shared by the engines ("ko", "ko-KR")
	Language string `mapstructure:"language"`

	// Speed is the speaking rate multiplier (0.5 to 2.0)
	Speed float64 `mapstructure:"speed"`

	// Pitch is a pitch shift in semitones (-20 to 20)
	Pitch float64 `mapstructure:"pitch"`

	// Timeout bounds a single synthesis call
	Timeout time.Duration `mapstructure:"timeout"`

	// TempDir holds intermediate files
	TempDir string `mapstructure:"temp_dir"`

	Output OutputConfig      `mapstructure:"output"`
	GTTS   GTTSConfigSection `mapstructure:"gtts"`
	Edge   EdgeConfig        `mapstructure:"edge"`
	Piper  PiperConfig       `mapstructure:"piper"`
	Cloud  CloudConfig       `mapstructure:"cloud"`
	Cache  CacheConfig       `mapstructure:"cache"`
}

// OutputConfig controls where and how narrations are written.
type OutputConfig struct {
	// Dir receives one audio file per row; created if absent
	Dir string `mapstructure:"dir"`

	// Extension overrides the engine's native extension
	Extension string `mapstructure:"extension"`

	// TypeSuffix is appended to bare type tags
	TypeSuffix string `mapstructure:"type_suffix"`

	// SkipExisting leaves rows whose file already exists untouched
	SkipExisting bool `mapstructure:"skip_existing"`

	// Delay is the minimum spacing between engine calls
	Delay time.Duration `mapstructure:"delay"`
}

// GTTSConfigSection contains gTTS configuration for the TTS config
type GTTSConfigSection struct {
	// Binary is the gtts-cli executable
	Binary string `mapstructure:"binary"`

	// Slow enables slower speech pace
	Slow bool `mapstructure:"slow"`

	// TLD selects the regional Google host ("com", "co.kr")
	TLD string `mapstructure:"tld"`
}

// EdgeConfig contains edge-tts configuration
type EdgeConfig struct {
	Binary string `mapstructure:"binary"`

	// Voice is the neural voice name, e.g. "ko-KR-SunHiNeural"
	Voice string `mapstructure:"voice"`

	// Volume is a percentage offset (-100 to 100)
	Volume int `mapstructure:"volume"`
}

// PiperConfig contains Piper engine configuration
type PiperConfig struct {
	Binary string `mapstructure:"binary"`

	// ModelPath is the path to the Piper model file
	ModelPath string `mapstructure:"model"`

	// ConfigPath is the path to the model config file
	ConfigPath string `mapstructure:"config"`

	// SpeakerID is the speaker ID for multi-speaker models
	SpeakerID int `mapstructure:"speaker_id"`

	// SampleRate overrides the rate read from the model config
	SampleRate int `mapstructure:"sample_rate"`
}

// CloudConfig contains Google Cloud Text-to-Speech configuration
type CloudConfig struct {
	// APIKey authenticates REST calls; falls back to application default credentials
	APIKey string `mapstructure:"api_key"`

	// CredentialsFile is a service account JSON file
	CredentialsFile string `mapstructure:"credentials_file"`

	// Voice is the voice name, e.g. "ko-KR-Wavenet-A"
	Voice string `mapstructure:"voice"`

	// VolumeGain in dB (-96 to 16)
	VolumeGain float64 `mapstructure:"volume_gain"`

	// Endpoint overrides the API base URL
	Endpoint string `mapstructure:"endpoint"`
}

// CacheConfig controls the synthesized audio cache
type CacheConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Dir     string `mapstructure:"dir"`

	// MaxSize is the cache capacity in MB
	MaxSize int `mapstructure:"max_size"`

	// Memory is the in-process tier in MB, 0 disables it
	Memory int `mapstructure:"memory"`

	// MaxAge drops entries older than this when the cache opens, 0 keeps them
	MaxAge time.Duration `mapstructure:"max_age"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		Engine:   EngineNone,
		Language: "ko",
		Speed:    1.0,
		Timeout:  30 * time.Second,
		Output: OutputConfig{
			Dir:        "pokemon_tts_output",
			TypeSuffix: "타입",
			Delay:      time.Second,
		},
		GTTS: GTTSConfigSection{
			Binary: "gtts-cli",
			TLD:    "com",
		},
		Edge: EdgeConfig{
			Binary: "edge-tts",
			Voice:  "ko-KR-SunHiNeural",
		},
		Piper: PiperConfig{
			Binary: "piper",
		},
		Cloud: CloudConfig{
			Voice: "ko-KR-Standard-A",
		},
		Cache: CacheConfig{
			MaxSize: 100,
			Memory:  32,
		},
	}
}
