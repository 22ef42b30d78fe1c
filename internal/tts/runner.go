package tts

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/pokedex/internal/cache"
	"github.com/dgnsrekt/pokedex/internal/pokedex"
	"github.com/dustin/go-humanize"
	"golang.org/x/time/rate"
)

// Runner narrates a list of records into one audio file each.
type Runner struct {
	engine Engine
	cache  AudioCache
	output OutputConfig
	logger *log.Logger

	// limiter spaces engine calls to avoid being blocked by online services
	limiter *rate.Limiter
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithCache enables the audio cache.
func WithCache(c AudioCache) RunnerOption {
	return func(r *Runner) {
		r.cache = c
	}
}

// WithLogger replaces the default logger.
func WithLogger(l *log.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = l
	}
}

// NewRunner creates a batch runner writing into output.Dir.
func NewRunner(engine Engine, output OutputConfig, opts ...RunnerOption) (*Runner, error) {
	if engine == nil {
		return nil, ErrNoEngineConfigured
	}
	if output.Dir == "" {
		return nil, errors.New("output directory is required")
	}
	if output.Delay < 0 {
		return nil, fmt.Errorf("delay cannot be negative: %s", output.Delay)
	}

	limit := rate.Inf
	if output.Delay > 0 {
		limit = rate.Every(output.Delay)
	}

	r := &Runner{
		engine:  engine,
		output:  output,
		logger:  log.Default(),
		limiter: rate.NewLimiter(limit, 1),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Run narrates records in order. Per-row failures are logged and counted;
// only fatal engine errors and context cancellation stop the run early.
func (r *Runner) Run(ctx context.Context, records []pokedex.Record) (Summary, error) {
	summary := Summary{Total: len(records)}

	if err := os.MkdirAll(r.output.Dir, 0o755); err != nil {
		return summary, NewTTSError(ErrorCodeOutputFailure, "unable to create output directory", err).
			WithContext("dir", r.output.Dir)
	}

	info := r.engine.Info()
	ext := r.output.Extension
	if ext == "" {
		ext = info.Format.Extension()
	}

	r.logger.Info("Starting narration", "engine", info.Name, "rows", len(records), "out", r.output.Dir)

	filenames := pokedex.Filenames(records, ext)
	for i, record := range records {
		if err := ctx.Err(); err != nil {
			return summary, NewTTSError(ErrorCodeCanceled, "narration interrupted", err)
		}

		filename := filenames[i]
		path := filepath.Join(r.output.Dir, filename)
		progress := fmt.Sprintf("[%d/%d]", i+1, len(records))

		if r.output.SkipExisting && fileExists(path) {
			summary.Skipped++
			r.logger.Debug(progress+" skipped, file exists", "file", filename)
			continue
		}

		size, cached, elapsed, err := r.narrate(ctx, record, info, path)
		summary.SynthesisTime += elapsed
		if err != nil {
			summary.Failed++
			summary.Failures = append(summary.Failures, RowFailure{
				Row:      record.Row,
				Name:     record.Name,
				Filename: filename,
				Err:      err,
			})
			r.logger.Warn(progress+" failed", "name", displayName(record), "err", err)

			if IsFatal(err) {
				return summary, err
			}
			continue
		}

		summary.Written++
		summary.AudioBytes += int64(size)
		if cached {
			summary.Cached++
		}
		r.logger.Info(progress+" saved", "file", filename, "size", humanize.Bytes(uint64(size)), "cached", cached) //nolint:gosec
	}

	return summary, nil
}

// narrate produces a single file. It returns the audio size, whether it came
// from the cache, and the time spent in the engine.
func (r *Runner) narrate(ctx context.Context, record pokedex.Record, info EngineInfo, path string) (int, bool, time.Duration, error) {
	text := pokedex.Narration(record, r.output.TypeSuffix)
	if text == "" {
		return 0, false, 0, NewTTSError(ErrorCodeInvalidInput, "nothing to narrate", ErrEmptyText).
			WithContext("row", record.Row)
	}
	if info.MaxTextSize > 0 && len([]rune(text)) > info.MaxTextSize {
		return 0, false, 0, NewTTSError(ErrorCodeTextTooLong,
			fmt.Sprintf("text too long: %d characters (max %d)", len([]rune(text)), info.MaxTextSize), nil)
	}

	key := cache.GenerateCacheKey(info.Name, info.Voice, text)
	if r.cache != nil {
		if audio, ok := r.cache.Get(key); ok {
			if err := writeAtomic(path, audio); err != nil {
				return 0, true, 0, err
			}
			return len(audio), true, 0, nil
		}
	}

	if err := r.limiter.Wait(ctx); err != nil {
		return 0, false, 0, NewTTSError(ErrorCodeCanceled, "rate limit wait cancelled", err)
	}

	start := time.Now()
	audio, err := r.engine.Synthesize(ctx, text)
	elapsed := time.Since(start)
	if err != nil {
		return 0, false, elapsed, err
	}
	if len(audio) == 0 {
		return 0, false, elapsed, NewTTSError(ErrorCodeEngineFailure, "engine returned no audio", ErrSynthesisFailed)
	}
	r.logger.Debug("Synthesis completed", "engine", info.Name, "chars", len(text), "bytes", len(audio), "duration", elapsed)

	if r.cache != nil {
		// Cache errors are non-fatal
		if err := r.cache.Put(key, audio); err != nil {
			r.logger.Debug("Unable to cache audio", "err", err)
		}
	}

	if err := writeAtomic(path, audio); err != nil {
		return 0, false, elapsed, err
	}
	return len(audio), false, elapsed, nil
}

func displayName(r pokedex.Record) string {
	if r.Name != "" {
		return r.Name
	}
	return fmt.Sprintf("row %d", r.Row)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return !errors.Is(err, fs.ErrNotExist)
}

// writeAtomic writes data next to path and renames it into place so an
// interrupted run never leaves a truncated audio file behind.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".narration-*")
	if err != nil {
		return NewTTSError(ErrorCodeOutputFailure, "unable to create temp file", err)
	}

	_, err = tmp.Write(data)
	closeErr := tmp.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil {
		err = os.Chmod(tmp.Name(), 0o644)
	}
	if err == nil {
		err = os.Rename(tmp.Name(), path)
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		return NewTTSError(ErrorCodeOutputFailure, "unable to write audio file", err).WithContext("path", path)
	}
	return nil
}
