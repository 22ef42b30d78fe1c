package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/charmbracelet/x/editor"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const defaultConfigYAML = `# spreadsheet narrated when no argument is given
input: "pokemon_1_to_898.csv"

# Text-to-speech (pokedex narrate, pokedex say)
tts:
  # engine: gtts, edge, piper, cloud or mock (required, or pass --engine)
  engine: ""
  language: "ko"
  # speaking rate multiplier (0.5 to 2.0) and pitch in semitones
  speed: 1.0
  pitch: 0
  timeout: "30s"

  output:
    dir: "pokemon_tts_output"
    # appended to bare type tags: "풀" is read as "풀 타입"
    type_suffix: "타입"
    skip_existing: false
    # minimum spacing between requests, keeps online engines from blocking us
    # delay: "1s"
    # extension: "mp3"

  gtts:
    binary: "gtts-cli"
    tld: "com"
    slow: false

  edge:
    binary: "edge-tts"
    voice: "ko-KR-SunHiNeural"
    volume: 0

  piper:
    binary: "piper"
    # model: "~/piper/ko_KR-voice.onnx"
    speaker_id: 0

  cloud:
    # api_key: "your-api-key-here"
    # credentials_file: "~/service-account.json"
    voice: "ko-KR-Standard-A"
    volume_gain: 0

  # synthesized audio is reused across runs
  cache:
    enabled: true
    # dir: "~/.cache/pokedex"
    max_size: 100
    # MB kept in memory for --watch reruns, 0 disables
    memory: 32
    # drop entries older than this, e.g. "720h"; 0 keeps them
    max_age: 0

# Image classification (pokedex classify, pokedex watch)
vision:
  model: "pokemon.onnx"
  labels: "labels.txt"
  # onnxruntime shared library; ONNXRUNTIME_SHARED_LIBRARY_PATH also works
  # library: "/usr/lib/libonnxruntime.so"
  threads: 1
  threshold: 0.5
  top: 3

camera:
  ffmpeg: "ffmpeg"
  device: "/dev/video0"
  input_format: "v4l2"
  width: 640
  height: 480
  framerate: 30
  warmup: "2s"
  stale_frames: 5

watch:
  # annotated captures are saved here when set
  # snapshots: "~/Pictures/pokedex"
  enter: false

quantize:
  python: "python3"
  weight_type: "QUInt8"
`

var configCmd = &cobra.Command{
	Use:     "config",
	Hidden:  false,
	Short:   "Edit the pokedex config file",
	Long:    paragraph(fmt.Sprintf("\n%s the pokedex config file. We’ll use EDITOR to determine which editor to use. If the config file doesn't exist, it will be created.", keyword("Edit"))),
	Example: paragraph("pokedex config\npokedex config --config path/to/config.yml"),
	Args:    cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		if err := ensureConfigFile(); err != nil {
			return err
		}

		c, err := editor.Cmd("Pokedex", configFile)
		if err != nil {
			return fmt.Errorf("unable to set config file: %w", err)
		}
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		if err := c.Run(); err != nil {
			return fmt.Errorf("unable to run command: %w", err)
		}

		fmt.Println("Wrote config file to:", configFile)
		return nil
	},
}

func ensureConfigFile() error {
	if configFile == "" {
		configFile = viper.GetViper().ConfigFileUsed()
		if err := os.MkdirAll(filepath.Dir(configFile), 0o755); err != nil { //nolint:gosec
			return fmt.Errorf("could not write configuration file: %w", err)
		}
	}

	if ext := path.Ext(configFile); ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("'%s' is not a supported configuration type: use '%s' or '%s'", ext, ".yaml", ".yml")
	}

	if _, err := os.Stat(configFile); errors.Is(err, fs.ErrNotExist) {
		// File doesn't exist yet, create all necessary directories and
		// write the default config file
		if err := os.MkdirAll(filepath.Dir(configFile), 0o700); err != nil {
			return fmt.Errorf("unable create directory: %w", err)
		}

		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("unable to create config file: %w", err)
		}
		defer func() { _ = f.Close() }()

		if _, err := f.WriteString(defaultConfigYAML); err != nil {
			return fmt.Errorf("unable to write config file: %w", err)
		}
	} else if err != nil { // some other error occurred
		return fmt.Errorf("unable to stat config file: %w", err)
	}
	return nil
}
