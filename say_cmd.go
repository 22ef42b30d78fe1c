package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/dgnsrekt/pokedex/internal/audio"
	"github.com/dgnsrekt/pokedex/internal/queue"
	"github.com/dgnsrekt/pokedex/internal/tts"
	"github.com/dgnsrekt/pokedex/internal/tts/engines"
	"github.com/dgnsrekt/pokedex/internal/tts/sentence"
)

var (
	sayEngine    string
	sayVoice     string
	sayOut       string
	sayVolume    float64
	sayLookahead int

	sayCmd = &cobra.Command{
		Use:   "say [TEXT]",
		Short: "Speak a line with the configured engine",
		Long: paragraph(fmt.Sprintf("\n%s a single line to try an engine and voice before a long run. "+
			"WAV engines play through the sound card sentence by sentence; MP3 engines need --out.", keyword("Synthesize"))),
		Example: paragraph("pokedex say -e piper \"피카츄. 쥐포켓몬. 전기 타입.\"\n" +
			"echo 안녕 | pokedex say -e edge --voice ko-KR-InJoonNeural --out hello.mp3"),
		Args: cobra.ArbitraryArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return bindFlags(cmd, map[string]string{
				"lang":  "tts.language",
				"rate":  "tts.speed",
				"pitch": "tts.pitch",
				"model": "tts.piper.model",
			})
		},
		RunE: runSay,
	}
)

func runSay(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	text := strings.TrimSpace(strings.Join(args, " "))
	if text == "" && !isTerminal(os.Stdin) {
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("unable to read stdin: %w", err)
		}
		text = strings.TrimSpace(string(b))
	}
	if text == "" {
		return errors.New("nothing to say: pass text as arguments or on stdin")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("voice") {
		cfg.TTS.Edge.Voice = sayVoice
		cfg.TTS.Cloud.Voice = sayVoice
	}

	engineType, err := tts.ValidateEngineSelection(sayEngine, cfg.TTS)
	if err != nil {
		return err //nolint:wrapcheck
	}
	if engineType.Format() != tts.FormatWAV && sayOut == "" {
		return fmt.Errorf("%s produces mp3, which cannot be played back here: use --out FILE or a wav engine such as piper", engineType)
	}

	engine, err := engines.New(ctx, engineType, cfg.TTS)
	if err != nil {
		return fmt.Errorf("unable to create %s engine: %w", engineType, err)
	}
	defer engine.Close() //nolint:errcheck

	if sayOut != "" {
		data, err := engine.Synthesize(ctx, text)
		if err != nil {
			return err //nolint:wrapcheck
		}
		if err := os.WriteFile(sayOut, data, 0o644); err != nil { //nolint:gosec
			return fmt.Errorf("unable to write %s: %w", sayOut, err)
		}
		log.Info("Saved", "file", sayOut, "size", humanize.Bytes(uint64(len(data))))
		return nil
	}

	player, err := audio.NewPlayer(sayVolume)
	if err != nil {
		return err //nolint:wrapcheck
	}
	defer player.Close() //nolint:errcheck

	return speakAll(ctx, engine, player, sentence.Split(text), sayLookahead)
}

// speakAll plays sentences in order while the queue synthesizes the next
// ones. A sentence that fails to synthesize is skipped unless the engine
// is unusable.
func speakAll(ctx context.Context, engine queue.Synthesizer, speaker audio.Speaker, sentences []string, lookahead int) error {
	q := queue.NewAudioQueue(ctx, engine, queue.Options{Lookahead: lookahead, MaxSize: len(sentences) + 1})
	defer q.Close() //nolint:errcheck

	if err := q.EnqueueBatch(sentences); err != nil {
		return err //nolint:wrapcheck
	}
	q.Finish()

	for {
		item, err := q.Dequeue(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if errors.Is(err, context.Canceled) {
			return nil
		}
		if err != nil {
			return err //nolint:wrapcheck
		}

		if item.Err != nil {
			if tts.IsFatal(item.Err) || errors.Is(item.Err, context.Canceled) {
				return item.Err //nolint:wrapcheck
			}
			log.Warn("Skipping sentence", "n", item.Index+1, "err", item.Err)
			continue
		}
		log.Debug("Synthesized", "n", item.Index+1, "elapsed", item.Elapsed)
		if err := speak(ctx, speaker, item.Audio); err != nil {
			return err
		}
	}

	stats := q.GetStats()
	log.Debug("Done speaking", "sentences", stats.TotalDequeued, "failed", stats.TotalFailed, "synthesis", stats.SynthesisTime)
	return nil
}

// speak decodes a WAV narration and plays it to the end, or until ctx is
// cancelled.
func speak(ctx context.Context, speaker audio.Speaker, data []byte) error {
	clip, err := audio.Decode(data)
	if err != nil {
		return err //nolint:wrapcheck
	}

	log.Info("Playing", "duration", clip.Duration().Round(time.Millisecond), "rate", clip.SampleRate)
	if err := speaker.Play(ctx, clip); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("playback failed: %w", err)
	}
	return nil
}

func init() {
	defaults := defaultConfig().TTS

	f := sayCmd.Flags()
	f.StringVarP(&sayEngine, "engine", "e", "", "TTS engine: gtts, edge, piper, cloud")
	f.StringP("lang", "l", defaults.Language, "language code")
	f.StringVar(&sayVoice, "voice", "", "voice name (edge, cloud)")
	f.Float64("rate", defaults.Speed, "speaking rate, 0.5 to 2.0")
	f.Float64("pitch", defaults.Pitch, "pitch shift in semitones")
	f.String("model", "", "piper voice model")
	f.StringVarP(&sayOut, "out", "o", "", "save to this file instead of playing")
	f.Float64Var(&sayVolume, "volume", 1.0, "playback volume, 0.0 to 1.0")
	f.IntVar(&sayLookahead, "lookahead", 2, "sentences synthesized ahead of playback")
}
