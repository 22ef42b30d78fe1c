package engines

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/pokedex/internal/tts"
)

// maxOutputSize caps what a subprocess may write to stdout.
var maxOutputSize = 50 * 1024 * 1024 // 50MB

// interruptGrace is how long a timed out process gets to exit after
// os.Interrupt before it is killed.
const interruptGrace = 100 * time.Millisecond

// command describes a single subprocess invocation.
type command struct {
	name    string
	args    []string
	stdin   io.Reader
	timeout time.Duration
}

// run executes c and returns its stdout. Errors are classified so the batch
// runner can tell a missing binary (fatal) from a failed row.
func (c command) run(ctx context.Context) ([]byte, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	cmd := exec.Command(c.name, c.args...) //nolint:gosec

	// Pre-configure stdin so the process never races us for input.
	if c.stdin != nil {
		cmd.Stdin = c.stdin
	} else {
		cmd.Stdin = strings.NewReader("")
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// Grandchildren holding stdout open must not block Wait forever.
	cmd.WaitDelay = time.Second

	start := time.Now()
	if err := cmd.Start(); err != nil {
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
			return nil, tts.NewTTSError(tts.ErrorCodeEngineUnavailable,
				fmt.Sprintf("%s not found", c.name), err)
		}
		return nil, tts.NewTTSError(tts.ErrorCodeEngineFailure,
			fmt.Sprintf("unable to start %s", c.name), err)
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	select {
	case err := <-done:
		log.Debug("Subprocess executed", "command", c.name, "duration", time.Since(start), "err", err)
		if err != nil {
			return nil, tts.NewTTSError(tts.ErrorCodeEngineFailure,
				fmt.Sprintf("%s failed", c.name), err).
				WithContext("stderr", strings.TrimSpace(stderr.String()))
		}

	case <-ctx.Done():
		// Try graceful shutdown first
		_ = cmd.Process.Signal(os.Interrupt)
		select {
		case <-done:
		case <-time.After(interruptGrace):
			_ = cmd.Process.Kill()
			<-done
		}

		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, tts.NewTTSError(tts.ErrorCodeEngineTimeout,
				fmt.Sprintf("%s timed out after %s", c.name, c.timeout), ctx.Err())
		}
		return nil, tts.NewTTSError(tts.ErrorCodeCanceled,
			fmt.Sprintf("%s cancelled", c.name), ctx.Err())
	}

	if stdout.Len() > maxOutputSize {
		return nil, tts.NewTTSError(tts.ErrorCodeEngineFailure,
			fmt.Sprintf("%s output too large: %d bytes (max %d)", c.name, stdout.Len(), maxOutputSize), nil)
	}
	return stdout.Bytes(), nil
}

// stderrOf extracts captured stderr from an error produced by run.
func stderrOf(err error) string {
	var ttsErr *tts.TTSError
	if errors.As(err, &ttsErr) {
		if s, ok := ttsErr.Context["stderr"].(string); ok {
			return s
		}
	}
	return ""
}

// checkText enforces the engine-independent text rules.
func checkText(text string, maxSize int) error {
	if strings.TrimSpace(text) == "" {
		return tts.NewTTSError(tts.ErrorCodeInvalidInput, "nothing to synthesize", tts.ErrEmptyText)
	}
	if n := len([]rune(text)); maxSize > 0 && n > maxSize {
		return tts.NewTTSError(tts.ErrorCodeTextTooLong,
			fmt.Sprintf("text too long: %d characters (max %d)", n, maxSize), nil)
	}
	return nil
}
