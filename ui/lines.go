package ui

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/dgnsrekt/pokedex/internal/vision"
)

// RunLines is the capture loop for terminals without raw key input: every
// line read from in triggers a capture, "q" or EOF ends the loop. It
// returns nil when ctx is cancelled.
func RunLines(ctx context.Context, in io.Reader, out io.Writer, capturer *Capturer, cfg Config) error {
	lines := make(chan string)
	readErr := make(chan error, 1)
	stop := make(chan struct{})
	defer close(stop)

	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-stop:
				return
			}
		}
		readErr <- scanner.Err()
	}()

	fmt.Fprintln(out, "Press Enter to capture, q then Enter or Ctrl+C to quit.") //nolint:errcheck

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-readErr:
					return err
				default:
					return nil
				}
			}
			if strings.EqualFold(strings.TrimSpace(line), "q") {
				return nil
			}

			c, err := capturer.Capture()
			if err != nil {
				fmt.Fprintln(out, errorStyle.Render("error: "+err.Error())) //nolint:errcheck
				continue
			}
			WriteResult(out, c.Result, cfg)
			if c.Snapshot != "" {
				fmt.Fprintln(out, helpStyle.Render("saved "+c.Snapshot)) //nolint:errcheck
			}
		}
	}
}

// WriteResult prints the headline and, when cfg.Top asks for more than
// one, the ranked predictions.
func WriteResult(w io.Writer, r vision.Result, cfg Config) {
	fmt.Fprintln(w, resultLine(r, cfg.threshold())) //nolint:errcheck
	if cfg.Top > 1 {
		for _, line := range rankTable(topN(r.Top, cfg.Top)) {
			fmt.Fprintln(w, "  "+line) //nolint:errcheck
		}
	}
}

func topN(preds []vision.Prediction, n int) []vision.Prediction {
	if n < len(preds) {
		return preds[:n]
	}
	return preds
}
