package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dgnsrekt/pokedex/internal/cache"
	"github.com/dgnsrekt/pokedex/internal/pokedex"
	"github.com/dgnsrekt/pokedex/internal/tts"
	"github.com/dgnsrekt/pokedex/internal/tts/engines"
	"github.com/dgnsrekt/pokedex/utils"
)

var (
	narrateEngine     string
	narrateVoice      string
	narrateSheet      string
	narrateOnly       string
	narrateHeaderless bool
	narrateWatch      bool
	narrateNoCache    bool
	narrateDryRun     bool

	narrateCmd = &cobra.Command{
		Use:   "narrate [FILE|DIR]",
		Short: "Narrate every row of a Pokédex spreadsheet into an audio file",
		Long: paragraph(fmt.Sprintf("\n%s each row of a CSV or XLSX file as \"name. category. type. description\" and save it as NUMBER_NAME.mp3. "+
			"With --headerless the first column of every row is read as is. A directory narrates every spreadsheet in it.", keyword("Read"))),
		Example: paragraph("pokedex narrate --engine gtts pokemon.csv\n" +
			"pokedex narrate -e edge --voice ko-KR-InJoonNeural --rate 1.2 pokemon.xlsx\n" +
			"pokedex narrate -e piper --model ko_KR.onnx --headerless lines.xlsx\n" +
			"pokedex narrate -e gtts --only 피카츄 --dry-run"),
		Args: cobra.MaximumNArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return bindFlags(cmd, map[string]string{
				"out":           "tts.output.dir",
				"lang":          "tts.language",
				"rate":          "tts.speed",
				"pitch":         "tts.pitch",
				"delay":         "tts.output.delay",
				"skip-existing": "tts.output.skip_existing",
				"type-suffix":   "tts.output.type_suffix",
				"ext":           "tts.output.extension",
				"timeout":       "tts.timeout",
				"model":         "tts.piper.model",
			})
		},
		RunE: runNarrate,
	}
)

func runNarrate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("voice") {
		cfg.TTS.Edge.Voice = narrateVoice
		cfg.TTS.Cloud.Voice = narrateVoice
	}

	engineType, err := tts.ValidateEngineSelection(narrateEngine, cfg.TTS)
	if err != nil {
		return err //nolint:wrapcheck
	}

	paths, err := inputPaths(args, cfg.Input)
	if err != nil {
		return err
	}
	if narrateWatch && len(paths) != 1 {
		return errors.New("--watch needs a single input file")
	}

	opts := pokedex.LoadOptions{Headerless: narrateHeaderless, Sheet: narrateSheet}
	records, err := loadRecords(paths, opts)
	if err != nil {
		return err
	}

	if narrateDryRun {
		ext := cfg.TTS.Output.Extension
		if ext == "" {
			ext = engineType.Format().Extension()
		}
		return render(os.Stdout, planMarkdown(records, ext, cfg.TTS.Output.TypeSuffix))
	}

	if res := tts.ValidateEngine(engineType, cfg.TTS); !res.Available {
		return fmt.Errorf("%w\n\n%s", res.Error, res.Guidance)
	}

	engine, err := engines.New(ctx, engineType, cfg.TTS)
	if err != nil {
		return fmt.Errorf("unable to create %s engine: %w", engineType, err)
	}
	defer engine.Close() //nolint:errcheck

	// Offline engines need no pacing unless asked for.
	if !engine.Info().IsOnline && !viper.IsSet("tts.output.delay") {
		cfg.TTS.Output.Delay = 0
	}

	var runnerOpts []tts.RunnerOption
	if cfg.TTS.Cache.Enabled && !narrateNoCache {
		dc, err := openCache(cfg.TTS.Cache)
		if err != nil {
			log.Warn("Audio cache disabled", "err", err)
		} else {
			defer dc.Close() //nolint:errcheck
			runnerOpts = append(runnerOpts, tts.WithCache(dc))
		}
	}

	runner, err := tts.NewRunner(engine, cfg.TTS.Output, runnerOpts...)
	if err != nil {
		return err //nolint:wrapcheck
	}

	run := func(records []pokedex.Record) error {
		start := time.Now()
		summary, err := runner.Run(ctx, records)
		if rerr := render(os.Stdout, summaryMarkdown(summary, time.Since(start), cfg.TTS.Output.Dir)); rerr != nil {
			log.Debug("Unable to render summary", "err", rerr)
		}
		return err
	}

	if err := run(records); err != nil {
		return err
	}
	if !narrateWatch {
		return nil
	}

	return pokedex.Watch(ctx, paths[0], func() error { //nolint:wrapcheck
		records, err := loadRecords(paths, opts)
		if err != nil {
			return err
		}
		return run(records)
	})
}

// inputPaths resolves the narrate argument: a file, a directory of
// spreadsheets, or the configured default.
func inputPaths(args []string, fallback string) ([]string, error) {
	arg := fallback
	if len(args) > 0 {
		arg = utils.ExpandPath(args[0])
	}

	if st, err := os.Stat(arg); err == nil && st.IsDir() {
		return pokedex.FindInputs(arg) //nolint:wrapcheck
	}
	return []string{arg}, nil
}

func loadRecords(paths []string, opts pokedex.LoadOptions) ([]pokedex.Record, error) {
	records, err := pokedex.LoadAll(paths, opts)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	if narrateOnly != "" {
		filtered := pokedex.Filter(records, narrateOnly)
		log.Info("Filtered rows", "query", narrateOnly, "matched", len(filtered), "of", len(records))
		records = filtered
	}
	if len(records) == 0 {
		return nil, errors.New("nothing to narrate")
	}
	return records, nil
}

// openCache opens the audio cache: the disk cache under the user cache
// directory, fronted by a memory tier when one is configured.
func openCache(c tts.CacheConfig) (*cache.Tiered, error) {
	dir, err := cacheDir(c.Dir)
	if err != nil {
		return nil, err
	}

	config := cache.DefaultCacheConfig()
	config.DiskPath = dir
	config.DiskCapacity = int64(c.MaxSize) * 1024 * 1024
	disk, err := cache.NewDiskCache(config)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	if c.MaxAge > 0 {
		if n := disk.RemoveOlderThan(time.Now().Add(-c.MaxAge)); n > 0 {
			log.Debug("Expired cached audio", "entries", n)
		}
	}

	var memory *cache.MemoryCache
	if c.Memory > 0 {
		memory = cache.NewMemoryCache(int64(c.Memory) * 1024 * 1024)
	}
	log.Debug("Audio cache", "dir", dir, "entries", disk.Stats().ItemCount)
	return cache.NewTiered(memory, disk), nil
}

func init() {
	defaults := defaultConfig().TTS

	f := narrateCmd.Flags()
	f.StringVarP(&narrateEngine, "engine", "e", "", "TTS engine: gtts, edge, piper, cloud")
	f.StringP("out", "o", defaults.Output.Dir, "output directory")
	f.StringP("lang", "l", defaults.Language, "language code")
	f.StringVar(&narrateVoice, "voice", "", "voice name (edge, cloud)")
	f.Float64("rate", defaults.Speed, "speaking rate, 0.5 to 2.0")
	f.Float64("pitch", defaults.Pitch, "pitch shift in semitones")
	f.Duration("delay", defaults.Output.Delay, "minimum time between requests (online engines)")
	f.Duration("timeout", defaults.Timeout, "timeout for a single row")
	f.String("model", "", "piper voice model")
	f.BoolVar(&narrateHeaderless, "headerless", false, "read the first column of every row, no header")
	f.StringVar(&narrateSheet, "sheet", "", "worksheet to read (default: first)")
	f.Bool("skip-existing", false, "keep files that already exist")
	f.String("type-suffix", defaults.Output.TypeSuffix, "word appended to bare type tags")
	f.String("ext", "", "file extension (default: the engine's format)")
	f.StringVar(&narrateOnly, "only", "", "narrate only rows fuzzily matching this name or number")
	f.BoolVarP(&narrateWatch, "watch", "w", false, "narrate again whenever the input file changes")
	f.BoolVar(&narrateNoCache, "no-cache", false, "bypass the audio cache")
	f.BoolVarP(&narrateDryRun, "dry-run", "n", false, "list files and narrations without synthesizing")
}
