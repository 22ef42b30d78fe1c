// Package quantize shrinks a float32 ONNX model to 8-bit integer weights
// with onnxruntime's dynamic quantizer.
package quantize

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// WeightType is the integer type weights are quantized to.
type WeightType string

const (
	UInt8 WeightType = "QUInt8"
	Int8  WeightType = "QInt8"
)

// ErrInputNotFound is returned when the model to quantize does not exist.
var ErrInputNotFound = errors.New("input model not found")

// script runs the quantizer; paths and the weight type are passed as
// arguments so nothing needs quoting.
const script = `import sys
from onnxruntime.quantization import quantize_dynamic, QuantType
quantize_dynamic(sys.argv[1], sys.argv[2], weight_type=getattr(QuantType, sys.argv[3]))
`

// Options configures a quantization run.
type Options struct {
	// Input is the float32 model
	Input string

	// Output defaults to Input with a "_quant" suffix
	Output string

	// Python is the interpreter with onnxruntime installed
	Python string

	WeightType WeightType

	Timeout time.Duration
}

// Report describes a finished run.
type Report struct {
	Input      string
	Output     string
	InputSize  int64
	OutputSize int64
	Duration   time.Duration
}

// Reduction returns the fraction of the input size saved, e.g. 0.74.
func (r Report) Reduction() float64 {
	if r.InputSize == 0 {
		return 0
	}
	return 1 - float64(r.OutputSize)/float64(r.InputSize)
}

// DefaultOutput returns "model_quant.onnx" for "model.onnx".
func DefaultOutput(input string) string {
	ext := filepath.Ext(input)
	return strings.TrimSuffix(input, ext) + "_quant" + ext
}

// Quantize converts opts.Input and writes opts.Output.
func Quantize(ctx context.Context, opts Options) (Report, error) {
	info, err := os.Stat(opts.Input)
	if errors.Is(err, fs.ErrNotExist) {
		return Report{}, fmt.Errorf("%w: %s", ErrInputNotFound, opts.Input)
	} else if err != nil {
		return Report{}, fmt.Errorf("unable to read input model: %w", err)
	}
	if info.IsDir() {
		return Report{}, fmt.Errorf("input model is a directory: %s", opts.Input)
	}

	if opts.Output == "" {
		opts.Output = DefaultOutput(opts.Input)
	}
	if filepath.Clean(opts.Output) == filepath.Clean(opts.Input) {
		return Report{}, errors.New("output must differ from input")
	}
	if opts.Python == "" {
		opts.Python = "python3"
	}
	switch opts.WeightType {
	case "":
		opts.WeightType = UInt8
	case UInt8, Int8:
	default:
		return Report{}, fmt.Errorf("unsupported weight type %q, use %s or %s", opts.WeightType, UInt8, Int8)
	}
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	log.Info("Quantizing model", "input", opts.Input, "output", opts.Output, "weights", opts.WeightType)

	start := time.Now()
	cmd := exec.CommandContext(ctx, opts.Python, "-c", script, //nolint:gosec
		opts.Input, opts.Output, string(opts.WeightType))
	cmd.Cancel = func() error {
		return cmd.Process.Signal(os.Interrupt)
	}
	cmd.WaitDelay = 5 * time.Second

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return Report{}, fmt.Errorf("%s not found, install Python with: pip install onnxruntime onnx: %w", opts.Python, err)
		}
		if ctx.Err() != nil {
			return Report{}, fmt.Errorf("quantization interrupted: %w", ctx.Err())
		}
		msg := strings.TrimSpace(stderr.String())
		if strings.Contains(msg, "No module named") {
			return Report{}, fmt.Errorf("onnxruntime is not installed for %s, run: pip install onnxruntime onnx: %w", opts.Python, err)
		}
		return Report{}, fmt.Errorf("quantization failed: %w: %s", err, lastLine(msg))
	}

	out, err := os.Stat(opts.Output)
	if err != nil {
		return Report{}, fmt.Errorf("quantizer did not write %s: %w", opts.Output, err)
	}

	report := Report{
		Input:      opts.Input,
		Output:     opts.Output,
		InputSize:  info.Size(),
		OutputSize: out.Size(),
		Duration:   time.Since(start),
	}
	log.Debug("Quantization finished", "duration", report.Duration, "reduction", report.Reduction())
	return report, nil
}

// lastLine returns the last line of a traceback, which carries the message.
func lastLine(s string) string {
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
