package vision

import (
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	ort "github.com/yalue/onnxruntime_go"
)

func solid(w, h int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestPreprocess_ShapeAndRange(t *testing.T) {
	tests := []struct {
		name string
		w, h int
		size int
	}{
		{"square", 224, 224, 224},
		{"webcam", 640, 480, 224},
		{"pi lite", 320, 240, 224},
		{"tiny", 3, 7, 32},
		{"default size", 100, 50, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := image.NewRGBA(image.Rect(0, 0, tt.w, tt.h))
			for i := range img.Pix {
				img.Pix[i] = uint8(i * 31) //nolint:gosec
			}

			data := Preprocess(img, tt.size)
			size := tt.size
			if size == 0 {
				size = DefaultInputSize
			}
			if len(data) != 3*size*size {
				t.Fatalf("len = %d, want %d", len(data), 3*size*size)
			}
			for i, v := range data {
				if v < 0 || v > 1 {
					t.Fatalf("value %d out of range: %v", i, v)
				}
			}
		})
	}
}

func TestPreprocess_ChannelPlanes(t *testing.T) {
	data := Preprocess(solid(10, 10, color.RGBA{R: 255, G: 0, B: 51, A: 255}), 4)
	plane := 16

	near := func(got, want float32) bool {
		return got > want-0.01 && got < want+0.01
	}
	for i := 0; i < plane; i++ {
		if !near(data[i], 1) {
			t.Fatalf("red plane[%d] = %v, want 1", i, data[i])
		}
		if !near(data[plane+i], 0) {
			t.Fatalf("green plane[%d] = %v, want 0", i, data[plane+i])
		}
		if !near(data[2*plane+i], 0.2) {
			t.Fatalf("blue plane[%d] = %v, want 0.2", i, data[2*plane+i])
		}
	}
}

func TestPreprocess_Transparency(t *testing.T) {
	tests := []struct {
		name string
		c    color.NRGBA
	}{
		{"fully transparent", color.NRGBA{R: 255, G: 255, B: 255, A: 0}},
		{"half transparent", color.NRGBA{R: 255, G: 102, B: 0, A: 128}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := image.NewNRGBA(image.Rect(0, 0, 6, 6))
			for y := 0; y < 6; y++ {
				for x := 0; x < 6; x++ {
					img.SetNRGBA(x, y, tt.c)
				}
			}

			data := Preprocess(img, 3)
			plane := 9
			want := []float32{float32(tt.c.R) / 255, float32(tt.c.G) / 255, float32(tt.c.B) / 255}
			for ch, w := range want {
				for i := 0; i < plane; i++ {
					if got := data[ch*plane+i]; got < w-0.01 || got > w+0.01 {
						t.Fatalf("channel %d [%d] = %v, want %v", ch, i, got, w)
					}
				}
			}
		})
	}
}

func TestPreprocess_NonZeroOrigin(t *testing.T) {
	img := solid(20, 20, color.White).(*image.RGBA).SubImage(image.Rect(5, 5, 15, 15))
	for i, v := range Preprocess(img, 8) {
		if v < 0.99 {
			t.Fatalf("value %d = %v, want 1", i, v)
		}
	}
}

func TestArgMax(t *testing.T) {
	tests := []struct {
		name    string
		scores  []float32
		wantIdx int
		wantVal float32
	}{
		{"empty", nil, -1, 0},
		{"single", []float32{0.3}, 0, 0.3},
		{"max in middle", []float32{0.1, 0.7, 0.2}, 1, 0.7},
		{"tie goes to lowest index", []float32{0.2, 0.4, 0.4}, 1, 0.4},
		{"all equal", []float32{0.5, 0.5, 0.5}, 0, 0.5},
		{"negative logits", []float32{-3, -1, -2}, 1, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx, val := ArgMax(tt.scores)
			if idx != tt.wantIdx || val != tt.wantVal {
				t.Errorf("ArgMax(%v) = (%d, %v), want (%d, %v)", tt.scores, idx, val, tt.wantIdx, tt.wantVal)
			}
		})
	}
}

func TestTopK(t *testing.T) {
	labels := []string{"이상해씨", "파이리", "꼬부기", "피카츄"}
	scores := []float32{0.1, 0.3, 0.3, 0.25}

	top := TopK(scores, labels, 3)
	want := []int{1, 2, 3}
	if len(top) != len(want) {
		t.Fatalf("len = %d, want %d", len(top), len(want))
	}
	for i, idx := range want {
		if top[i].Index != idx || top[i].Label != labels[idx] {
			t.Errorf("top[%d] = %+v, want index %d", i, top[i], idx)
		}
	}

	if got := TopK(scores, labels, 10); len(got) != 4 {
		t.Errorf("k larger than scores should clamp, got %d", len(got))
	}
	if got := TopK(scores, labels, 0); got != nil {
		t.Errorf("k=0 should return nil, got %v", got)
	}
	if got := TopK([]float32{1}, nil, 1); got[0].Label != "class 0" {
		t.Errorf("missing label = %q", got[0].Label)
	}
}

func TestPrediction_String(t *testing.T) {
	p := Prediction{Label: "피카츄", Score: 0.875}
	if got := p.String(); got != "피카츄 (87.5%)" {
		t.Errorf("String() = %q", got)
	}
}

func TestLoadLabels(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "labels.txt")
	content := "\ufeff이상해씨\n 파이리 \n\n꼬부기\r\n\n\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil { //nolint:gosec
		t.Fatal(err)
	}

	labels, err := LoadLabels(path)
	if err != nil {
		t.Fatalf("LoadLabels failed: %v", err)
	}
	want := []string{"이상해씨", "파이리", "", "꼬부기"}
	if strings.Join(labels, "|") != strings.Join(want, "|") {
		t.Errorf("labels = %q, want %q", labels, want)
	}
}

func TestLoadLabels_Errors(t *testing.T) {
	if _, err := LoadLabels(filepath.Join(t.TempDir(), "missing.txt")); !errors.Is(err, ErrLabelsNotFound) {
		t.Errorf("expected ErrLabelsNotFound, got %v", err)
	}

	empty := filepath.Join(t.TempDir(), "empty.txt")
	if err := os.WriteFile(empty, []byte("\n\n"), 0o644); err != nil { //nolint:gosec
		t.Fatal(err)
	}
	if _, err := LoadLabels(empty); err == nil {
		t.Error("expected error for empty labels")
	}
}

func TestInputSize(t *testing.T) {
	tests := []struct {
		name     string
		dims     ort.Shape
		fallback int
		want     int
	}{
		{"static", ort.NewShape(1, 3, 160, 160), 0, 160},
		{"dynamic batch", ort.NewShape(-1, 3, 299, 299), 0, 299},
		{"dynamic spatial", ort.NewShape(1, 3, -1, -1), 0, DefaultInputSize},
		{"dynamic spatial with override", ort.NewShape(1, 3, -1, -1), 128, 128},
		{"non square", ort.NewShape(1, 3, 224, 256), 0, DefaultInputSize},
		{"unexpected rank", ort.NewShape(1, 224), 0, DefaultInputSize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := inputSize(tt.dims, tt.fallback); got != tt.want {
				t.Errorf("inputSize(%v) = %d, want %d", tt.dims, got, tt.want)
			}
		})
	}
}

func TestOutputClasses(t *testing.T) {
	if n, err := outputClasses(ort.NewShape(1, 151), 151); err != nil || n != 151 {
		t.Errorf("outputClasses = (%d, %v)", n, err)
	}
	if n, err := outputClasses(ort.NewShape(-1, -1), 10); err != nil || n != 10 {
		t.Errorf("dynamic output should use label count, got (%d, %v)", n, err)
	}
	if _, err := outputClasses(ort.NewShape(1, 151), 150); !errors.Is(err, ErrLabelMismatch) {
		t.Errorf("expected ErrLabelMismatch, got %v", err)
	}
}

func TestResult(t *testing.T) {
	labels := []string{"이상해씨", "파이리", "꼬부기"}

	r := newResult([]float32{0.1, 0.8, 0.1}, labels, 3, 0)
	if r.Label != "파이리" || r.Index != 1 || r.Confidence != 0.8 {
		t.Errorf("unexpected result: %+v", r)
	}
	if len(r.Top) != 3 || r.Top[0].Index != 1 {
		t.Errorf("unexpected top: %+v", r.Top)
	}
	if got := r.Format(DefaultThreshold); got != "파이리 (80.0%)" {
		t.Errorf("Format = %q", got)
	}

	unsure := newResult([]float32{0.5, 0.3, 0.2}, labels, 3, 0)
	if unsure.Confident(DefaultThreshold) {
		t.Error("confidence equal to the threshold is not confident")
	}
	if got := unsure.Format(DefaultThreshold); got != "not confident (이상해씨?)" {
		t.Errorf("Format = %q", got)
	}
}

func TestOverlay(t *testing.T) {
	src := solid(200, 100, color.White)
	out := Overlay(src, "Pikachu (91.2%)")

	if out.Bounds() != src.Bounds() {
		t.Fatalf("bounds changed: %v", out.Bounds())
	}
	if r, g, b, _ := src.At(10, 10).RGBA(); r != 0xffff || g != 0xffff || b != 0xffff {
		t.Error("source image was modified")
	}

	changed := 0
	for y := 0; y < 30; y++ {
		for x := 0; x < 120; x++ {
			if out.RGBAAt(x, y) != (color.RGBA{R: 255, G: 255, B: 255, A: 255}) {
				changed++
			}
		}
	}
	if changed == 0 {
		t.Error("overlay drew nothing")
	}
	if out.RGBAAt(199, 99) != (color.RGBA{R: 255, G: 255, B: 255, A: 255}) {
		t.Error("overlay should not touch the far corner")
	}
}

func TestCaption(t *testing.T) {
	tests := []struct {
		result Result
		want   string
	}{
		{Result{Label: "Pikachu", Index: 24, Confidence: 0.9}, "Pikachu (90.0%)"},
		{Result{Label: "피카츄", Index: 24, Confidence: 0.9}, "#24 (90.0%)"},
		{Result{Label: "Pikachu", Index: 24, Confidence: 0.4}, "Pikachu? (40.0%)"},
	}
	for _, tt := range tests {
		if got := Caption(tt.result, DefaultThreshold); got != tt.want {
			t.Errorf("Caption(%+v) = %q, want %q", tt.result, got, tt.want)
		}
	}
}

// TestClassifier_Model runs a real model when one is provided through the
// environment, since it needs the onnxruntime shared library.
func TestClassifier_Model(t *testing.T) {
	model := os.Getenv("POKEDEX_TEST_MODEL")
	labelsPath := os.Getenv("POKEDEX_TEST_LABELS")
	if model == "" || labelsPath == "" {
		t.Skip("set POKEDEX_TEST_MODEL and POKEDEX_TEST_LABELS to run")
	}

	labels, err := LoadLabels(labelsPath)
	if err != nil {
		t.Fatal(err)
	}
	c, err := NewClassifier(ClassifierConfig{
		ModelPath:   model,
		Labels:      labels,
		LibraryPath: os.Getenv("ONNXRUNTIME_SHARED_LIBRARY_PATH"),
	})
	if err != nil {
		t.Fatalf("NewClassifier failed: %v", err)
	}
	defer c.Close() //nolint:errcheck

	res, err := c.Classify(solid(640, 480, color.Gray{Y: 128}))
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if res.Index < 0 || res.Index >= len(labels) || res.Label != labels[res.Index] {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestNewClassifier_Validation(t *testing.T) {
	if _, err := NewClassifier(ClassifierConfig{}); err == nil {
		t.Error("expected error without model")
	}
	if _, err := NewClassifier(ClassifierConfig{ModelPath: "/nonexistent.onnx", Labels: []string{"a"}}); err == nil {
		t.Error("expected error for missing model")
	}
}
