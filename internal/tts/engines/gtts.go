package engines

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/dgnsrekt/pokedex/internal/tts"
)

// gttsMaxText is the longest text gtts-cli is handed in one call. gTTS
// splits long text itself, but a Pokédex entry never comes close.
const gttsMaxText = 5000

// GTTSEngine implements tts.Engine using gTTS (Google Translate TTS).
// It runs gtts-cli with the text on stdin and MP3 on stdout, which needs
// no API key.
type GTTSEngine struct {
	binary   string
	language string
	tld      string
	slow     bool
	timeout  time.Duration
}

// GTTSConfig holds configuration for the gTTS engine.
type GTTSConfig struct {
	// Binary is the gtts-cli executable - defaults to "gtts-cli"
	Binary string

	// Language code (e.g., "ko", "en") - defaults to "ko"
	Language string

	// TLD selects the Google host, e.g. "co.kr" - defaults to "com"
	TLD string

	// Slow speech (--slow flag)
	Slow bool

	// Timeout bounds one call - defaults to 30s
	Timeout time.Duration
}

// NewGTTSEngine creates a new gTTS TTS engine.
func NewGTTSEngine(config GTTSConfig) (*GTTSEngine, error) {
	if config.Binary == "" {
		config.Binary = "gtts-cli"
	}
	if config.Language == "" {
		config.Language = "ko"
	}
	if config.TLD == "" {
		config.TLD = "com"
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.Timeout < 0 {
		return nil, fmt.Errorf("timeout cannot be negative: %s", config.Timeout)
	}

	return &GTTSEngine{
		binary:   config.Binary,
		language: config.Language,
		tld:      config.TLD,
		slow:     config.Slow,
		timeout:  config.Timeout,
	}, nil
}

// Synthesize converts text to MP3 audio.
func (e *GTTSEngine) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if err := checkText(text, gttsMaxText); err != nil {
		return nil, err
	}

	audio, err := command{
		name:    e.binary,
		args:    e.args(),
		stdin:   strings.NewReader(text),
		timeout: e.timeout,
	}.run(ctx)
	if err != nil {
		return nil, e.explain(err)
	}
	if len(audio) == 0 {
		return nil, tts.NewTTSError(tts.ErrorCodeEngineFailure, "gtts-cli produced no audio", tts.ErrSynthesisFailed)
	}
	return audio, nil
}

func (e *GTTSEngine) args() []string {
	// "-" reads the text from stdin, "-o -" writes MP3 to stdout
	args := []string{"-", "--lang", e.language, "--tld", e.tld}
	if e.slow {
		args = append(args, "--slow")
	}
	return append(args, "--output", "-")
}

// explain adds hints for the failures people actually hit with gTTS.
func (e *GTTSEngine) explain(err error) error {
	stderr := strings.ToLower(stderrOf(err))
	switch {
	case strings.Contains(stderr, "429") || strings.Contains(stderr, "too many requests"):
		return fmt.Errorf("rate limited by Google, increase tts.output.delay: %w", err)
	case strings.Contains(stderr, "connection") || strings.Contains(stderr, "network"):
		return fmt.Errorf("network error, gTTS requires an internet connection: %w", err)
	case strings.Contains(stderr, "language not supported"):
		return fmt.Errorf("language %q is not supported by gTTS: %w", e.language, err)
	}
	return err
}

// Info returns engine capabilities.
func (e *GTTSEngine) Info() tts.EngineInfo {
	voice := e.language + "@" + e.tld
	if e.slow {
		voice += "/slow"
	}
	return tts.EngineInfo{
		Name:        "gtts",
		Voice:       voice,
		Format:      tts.FormatMP3,
		MaxTextSize: gttsMaxText,
		IsOnline:    true,
	}
}

// Validate checks that gtts-cli is installed.
func (e *GTTSEngine) Validate() error {
	if _, err := exec.LookPath(e.binary); err != nil {
		return tts.NewTTSError(tts.ErrorCodeEngineUnavailable,
			"gtts-cli not found in PATH, install with: pip install gTTS", err)
	}
	if len(e.language) < 2 {
		return errors.New("language code must be at least 2 characters")
	}
	return nil
}

// Close releases resources. gTTS holds none.
func (e *GTTSEngine) Close() error {
	return nil
}
