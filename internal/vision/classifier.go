package vision

import (
	"errors"
	"fmt"
	"image"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	ort "github.com/yalue/onnxruntime_go"
)

// DefaultThreshold is the confidence below which a result is reported as
// uncertain.
const DefaultThreshold = 0.5

// ErrLabelMismatch is returned when the label list and the model output
// disagree on the number of classes.
var ErrLabelMismatch = errors.New("label count does not match model outputs")

// ClassifierConfig configures a Classifier.
type ClassifierConfig struct {
	// ModelPath is the ONNX model file (required)
	ModelPath string

	// Labels are the class names, indexed by output position (required)
	Labels []string

	// LibraryPath points at the onnxruntime shared library; empty uses the
	// platform default lookup
	LibraryPath string

	// InputSize overrides the square input side when the model input is
	// dynamic
	InputSize int

	// Threads limits intra-op parallelism, 0 means 1
	Threads int

	// Top is how many ranked predictions a Result carries, 0 means 3
	Top int
}

// Result is the outcome of one classification.
type Result struct {
	Label      string
	Confidence float32
	Index      int

	// Top holds the best predictions, highest first
	Top []Prediction

	Elapsed time.Duration
}

// Confident reports whether the confidence is strictly above threshold.
func (r Result) Confident(threshold float32) bool {
	return r.Confidence > threshold
}

// Format renders the result for display, flagging uncertain ones.
func (r Result) Format(threshold float32) string {
	if !r.Confident(threshold) {
		return fmt.Sprintf("not confident (%s?)", r.Label)
	}
	return fmt.Sprintf("%s (%.1f%%)", r.Label, r.Confidence*100)
}

// Classifier runs an ONNX image classifier. It is safe for concurrent use;
// calls to Classify are serialized.
type Classifier struct {
	labels    []string
	inputSize int
	top       int

	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]

	mu     sync.Mutex
	closed bool
}

// The onnxruntime environment is process-wide; classifiers share it.
var (
	envMu    sync.Mutex
	envUsers int
)

func acquireEnvironment(libraryPath string) error {
	envMu.Lock()
	defer envMu.Unlock()

	if envUsers == 0 && !ort.IsInitialized() {
		if libraryPath != "" {
			ort.SetSharedLibraryPath(libraryPath)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			return fmt.Errorf("failed to initialize ONNX environment: %w", err)
		}
	}
	envUsers++
	return nil
}

func releaseEnvironment() {
	envMu.Lock()
	defer envMu.Unlock()

	envUsers--
	if envUsers == 0 {
		if err := ort.DestroyEnvironment(); err != nil {
			log.Debug("Unable to destroy ONNX environment", "err", err)
		}
	}
}

// NewClassifier loads the model and prepares its input and output tensors.
func NewClassifier(config ClassifierConfig) (*Classifier, error) {
	if config.ModelPath == "" {
		return nil, errors.New("model path is required")
	}
	if _, err := os.Stat(config.ModelPath); err != nil {
		return nil, fmt.Errorf("model file not accessible: %w", err)
	}
	if len(config.Labels) == 0 {
		return nil, errors.New("labels are required")
	}
	if config.Threads <= 0 {
		config.Threads = 1
	}
	if config.Top <= 0 {
		config.Top = 3
	}

	if err := acquireEnvironment(config.LibraryPath); err != nil {
		return nil, err
	}

	c, err := newClassifier(config)
	if err != nil {
		releaseEnvironment()
		return nil, err
	}
	return c, nil
}

func newClassifier(config ClassifierConfig) (*Classifier, error) {
	start := time.Now()

	inputs, outputs, err := ort.GetInputOutputInfo(config.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read model info: %w", err)
	}
	if len(inputs) != 1 || len(outputs) < 1 {
		return nil, fmt.Errorf("expected one input and at least one output, model has %d and %d", len(inputs), len(outputs))
	}
	in, out := inputs[0], outputs[0]

	size := inputSize(in.Dimensions, config.InputSize)
	classes, err := outputClasses(out.Dimensions, len(config.Labels))
	if err != nil {
		return nil, err
	}

	input, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 3, int64(size), int64(size)))
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}

	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(classes)))
	if err != nil {
		_ = input.Destroy()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		_ = input.Destroy()
		_ = output.Destroy()
		return nil, fmt.Errorf("failed to create session options: %w", err)
	}
	defer options.Destroy() //nolint:errcheck

	// Small boards like a Raspberry Pi choke on thread oversubscription.
	if err := options.SetIntraOpNumThreads(config.Threads); err != nil {
		log.Debug("Unable to set intra-op threads", "err", err)
	}
	if err := options.SetInterOpNumThreads(1); err != nil {
		log.Debug("Unable to set inter-op threads", "err", err)
	}

	session, err := ort.NewAdvancedSession(config.ModelPath,
		[]string{in.Name}, []string{out.Name},
		[]ort.ArbitraryTensor{input}, []ort.ArbitraryTensor{output},
		options)
	if err != nil {
		_ = input.Destroy()
		_ = output.Destroy()
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	log.Debug("Model loaded", "path", config.ModelPath, "input", in.Name, "size", size,
		"classes", classes, "duration", time.Since(start))

	return &Classifier{
		labels:    config.Labels,
		inputSize: size,
		top:       config.Top,
		session:   session,
		input:     input,
		output:    output,
	}, nil
}

// inputSize returns the square side of a static [N,3,H,W] input, or
// fallback (DefaultInputSize when unset) for dynamic inputs.
func inputSize(dims ort.Shape, fallback int) int {
	if fallback <= 0 {
		fallback = DefaultInputSize
	}
	if len(dims) != 4 {
		return fallback
	}
	h, w := dims[2], dims[3]
	if h > 0 && h == w {
		return int(h)
	}
	return fallback
}

// outputClasses returns the class count of a [N,C] or [C] output and checks
// it against the label count.
func outputClasses(dims ort.Shape, labels int) (int, error) {
	if len(dims) == 0 {
		return 0, errors.New("model output has no dimensions")
	}
	classes := dims[len(dims)-1]
	if classes <= 0 {
		return labels, nil
	}
	if int(classes) != labels {
		return 0, fmt.Errorf("%w: %d labels, %d outputs", ErrLabelMismatch, labels, classes)
	}
	return int(classes), nil
}

// InputSize returns the side of the square model input.
func (c *Classifier) InputSize() int {
	return c.inputSize
}

// Labels returns the class names.
func (c *Classifier) Labels() []string {
	return c.labels
}

// Classify runs img through the model.
func (c *Classifier) Classify(img image.Image) (Result, error) {
	if img == nil {
		return Result{}, errors.New("no image")
	}
	data := Preprocess(img, c.inputSize)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return Result{}, errors.New("classifier is closed")
	}

	start := time.Now()
	copy(c.input.GetData(), data)
	if err := c.session.Run(); err != nil {
		return Result{}, fmt.Errorf("inference failed: %w", err)
	}
	scores := append([]float32(nil), c.output.GetData()...)

	return newResult(scores, c.labels, c.top, time.Since(start)), nil
}

func newResult(scores []float32, labels []string, top int, elapsed time.Duration) Result {
	idx, conf := ArgMax(scores)
	return Result{
		Label:      labelAt(labels, idx),
		Confidence: conf,
		Index:      idx,
		Top:        TopK(scores, labels, top),
		Elapsed:    elapsed,
	}
}

// Close releases the session and tensors.
func (c *Classifier) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	err := errors.Join(
		c.session.Destroy(),
		c.input.Destroy(),
		c.output.Destroy(),
	)
	releaseEnvironment()
	return err
}
