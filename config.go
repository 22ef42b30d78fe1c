package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/dgnsrekt/pokedex/internal/camera"
	"github.com/dgnsrekt/pokedex/internal/quantize"
	"github.com/dgnsrekt/pokedex/internal/tts"
	"github.com/dgnsrekt/pokedex/internal/vision"
	"github.com/dgnsrekt/pokedex/utils"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Config is the whole configuration file.
type Config struct {
	// Input is the spreadsheet narrate reads when no argument is given
	Input string `mapstructure:"input"`

	TTS      tts.Config     `mapstructure:"tts"`
	Vision   VisionConfig   `mapstructure:"vision"`
	Camera   camera.Config  `mapstructure:"camera"`
	Watch    WatchConfig    `mapstructure:"watch"`
	Quantize QuantizeConfig `mapstructure:"quantize"`
}

// VisionConfig selects the model shared by classify and watch.
type VisionConfig struct {
	Model  string `mapstructure:"model"`
	Labels string `mapstructure:"labels"`

	// Library is the onnxruntime shared library, see runtimeEnv
	Library string `mapstructure:"library"`

	// InputSize is used when the model input is dynamic
	InputSize int `mapstructure:"input_size"`

	Threads   int     `mapstructure:"threads"`
	Threshold float32 `mapstructure:"threshold"`
	Top       int     `mapstructure:"top"`
}

// WatchConfig controls the interactive loop.
type WatchConfig struct {
	Snapshots string `mapstructure:"snapshots"`

	// Enter uses line mode instead of raw keys
	Enter bool `mapstructure:"enter"`
}

// QuantizeConfig controls the quantizer subprocess.
type QuantizeConfig struct {
	Python     string        `mapstructure:"python"`
	WeightType string        `mapstructure:"weight_type"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// runtimeEnv is the process environment the ONNX runtime honours.
type runtimeEnv struct {
	LibraryPath string `env:"ONNXRUNTIME_SHARED_LIBRARY_PATH"`
}

func defaultConfig() Config {
	return Config{
		Input: "pokemon_1_to_898.csv",
		TTS:   tts.DefaultConfig(),
		Vision: VisionConfig{
			Model:     "pokemon.onnx",
			Labels:    "labels.txt",
			InputSize: vision.DefaultInputSize,
			Threads:   1,
			Threshold: vision.DefaultThreshold,
			Top:       3,
		},
		Camera: camera.DefaultConfig(),
		Quantize: QuantizeConfig{
			Python:     "python3",
			WeightType: string(quantize.UInt8),
			Timeout:    10 * time.Minute,
		},
	}
}

// setDefaults registers every key so POKEDEX_* variables reach it through
// AutomaticEnv. Output delay is left unset; narrate checks IsSet on it.
func setDefaults(c Config) {
	viper.SetDefault("input", c.Input)
	viper.SetDefault("tts.engine", string(c.TTS.Engine))
	viper.SetDefault("tts.language", c.TTS.Language)
	viper.SetDefault("tts.speed", c.TTS.Speed)
	viper.SetDefault("tts.pitch", c.TTS.Pitch)
	viper.SetDefault("tts.timeout", c.TTS.Timeout)
	viper.SetDefault("tts.temp_dir", c.TTS.TempDir)
	viper.SetDefault("tts.output.dir", c.TTS.Output.Dir)
	viper.SetDefault("tts.output.type_suffix", c.TTS.Output.TypeSuffix)
	viper.SetDefault("tts.gtts.tld", c.TTS.GTTS.TLD)
	viper.SetDefault("tts.edge.voice", c.TTS.Edge.Voice)
	viper.SetDefault("tts.piper.model", c.TTS.Piper.ModelPath)
	viper.SetDefault("tts.cloud.api_key", c.TTS.Cloud.APIKey)
	viper.SetDefault("tts.cloud.voice", c.TTS.Cloud.Voice)
	viper.SetDefault("tts.cache.enabled", c.TTS.Cache.Enabled)
	viper.SetDefault("tts.cache.dir", c.TTS.Cache.Dir)
	viper.SetDefault("tts.cache.max_size", c.TTS.Cache.MaxSize)
	viper.SetDefault("tts.cache.memory", c.TTS.Cache.Memory)
	viper.SetDefault("tts.cache.max_age", c.TTS.Cache.MaxAge)
	viper.SetDefault("vision.model", c.Vision.Model)
	viper.SetDefault("vision.labels", c.Vision.Labels)
	viper.SetDefault("vision.library", c.Vision.Library)
	viper.SetDefault("vision.input_size", c.Vision.InputSize)
	viper.SetDefault("vision.threads", c.Vision.Threads)
	viper.SetDefault("vision.threshold", c.Vision.Threshold)
	viper.SetDefault("vision.top", c.Vision.Top)
	viper.SetDefault("camera.ffmpeg", c.Camera.FFmpeg)
	viper.SetDefault("camera.device", c.Camera.Device)
	viper.SetDefault("camera.input_format", c.Camera.InputFormat)
	viper.SetDefault("camera.width", c.Camera.Width)
	viper.SetDefault("camera.height", c.Camera.Height)
	viper.SetDefault("camera.framerate", c.Camera.FrameRate)
	viper.SetDefault("camera.warmup", c.Camera.Warmup)
	viper.SetDefault("camera.stale_frames", c.Camera.StaleFrames)
	viper.SetDefault("watch.snapshots", c.Watch.Snapshots)
	viper.SetDefault("watch.enter", c.Watch.Enter)
	viper.SetDefault("quantize.python", c.Quantize.Python)
	viper.SetDefault("quantize.weight_type", c.Quantize.WeightType)
	viper.SetDefault("quantize.timeout", c.Quantize.Timeout)
}

// loadConfig merges defaults, the config file, POKEDEX_* variables and the
// flags bound by the running command.
func loadConfig() (Config, error) {
	cfg := defaultConfig()
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("unable to parse configuration: %w", err)
	}

	cfg.Input = utils.ExpandPath(cfg.Input)
	cfg.TTS.Output.Dir = utils.ExpandPath(cfg.TTS.Output.Dir)
	cfg.TTS.Piper.ModelPath = utils.ExpandPath(cfg.TTS.Piper.ModelPath)
	cfg.TTS.Piper.ConfigPath = utils.ExpandPath(cfg.TTS.Piper.ConfigPath)
	cfg.TTS.Cloud.CredentialsFile = utils.ExpandPath(cfg.TTS.Cloud.CredentialsFile)
	cfg.TTS.Cache.Dir = utils.ExpandPath(cfg.TTS.Cache.Dir)
	cfg.Vision.Model = utils.ExpandPath(cfg.Vision.Model)
	cfg.Vision.Labels = utils.ExpandPath(cfg.Vision.Labels)
	cfg.Watch.Snapshots = utils.ExpandPath(cfg.Watch.Snapshots)

	if cfg.Vision.Library == "" {
		renv, err := env.ParseAs[runtimeEnv]()
		if err != nil {
			return cfg, fmt.Errorf("error parsing environment: %w", err)
		}
		cfg.Vision.Library = renv.LibraryPath
	}
	cfg.Vision.Library = utils.ExpandPath(cfg.Vision.Library)

	return cfg, nil
}

// bindFlags binds the running command's flags to config keys. Commands
// share keys (vision.top), so binding happens per run, not in init.
func bindFlags(cmd *cobra.Command, keys map[string]string) error {
	for flag, key := range keys {
		if err := viper.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return fmt.Errorf("unable to bind --%s: %w", flag, err)
		}
	}
	return nil
}

// cacheDir is where synthesized audio is kept between runs.
func cacheDir(configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	dir, err := gap.NewScope(gap.User, "pokedex").CacheDir()
	if err != nil {
		return "", fmt.Errorf("unable to find cache directory: %w", err)
	}
	return dir, nil
}

func envKeyReplacer() *strings.Replacer {
	return strings.NewReplacer(".", "_", "-", "_")
}
