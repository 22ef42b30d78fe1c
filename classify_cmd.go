package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/dgnsrekt/pokedex/internal/camera"
	"github.com/dgnsrekt/pokedex/internal/vision"
	"github.com/dgnsrekt/pokedex/ui"
)

const defaultTestImage = "test.png"

var (
	classifySnapshots string

	classifyCmd = &cobra.Command{
		Use:   "classify [IMAGE...]",
		Short: "Identify the Pokémon in still images",
		Long: paragraph(fmt.Sprintf("\n%s PNG or JPEG images with the ONNX model and print the best guess "+
			"with its confidence, followed by the runners-up.", keyword("Classify"))),
		Example: paragraph("pokedex classify test.png\n" +
			"pokedex classify --top 5 --model pokemon_quant.onnx shots/*.jpg\n" +
			"pokedex classify --snapshots annotated/ pikachu.png"),
		Args: cobra.ArbitraryArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return bindFlags(cmd, map[string]string{
				"model":     "vision.model",
				"labels":    "vision.labels",
				"top":       "vision.top",
				"threshold": "vision.threshold",
				"threads":   "vision.threads",
			})
		},
		RunE: runClassify,
	}
)

func runClassify(_ *cobra.Command, args []string) error {
	if len(args) == 0 {
		args = []string{defaultTestImage}
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	classifier, err := openClassifier(cfg.Vision)
	if err != nil {
		return err
	}
	defer classifier.Close() //nolint:errcheck

	uiCfg := ui.Config{
		Threshold:   cfg.Vision.Threshold,
		Top:         cfg.Vision.Top,
		SnapshotDir: classifySnapshots,
	}
	if uiCfg.SnapshotDir != "" {
		if err := os.MkdirAll(uiCfg.SnapshotDir, 0o755); err != nil { //nolint:gosec
			return fmt.Errorf("unable to create snapshot directory: %w", err)
		}
	}

	var errs []error
	for _, path := range args {
		if len(args) > 1 {
			fmt.Println(keyword(path))
		}
		if err := classifyImage(path, classifier, uiCfg); err != nil {
			log.Error("Unable to classify", "path", path, "err", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func classifyImage(path string, classifier ui.Classifier, cfg ui.Config) error {
	src, err := camera.OpenImage(path)
	if err != nil {
		return err //nolint:wrapcheck
	}
	defer src.Close() //nolint:errcheck

	capturer, err := ui.NewCapturer(src, classifier, cfg)
	if err != nil {
		return err //nolint:wrapcheck
	}
	c, err := capturer.Capture()
	if err != nil {
		return err //nolint:wrapcheck
	}

	ui.WriteResult(os.Stdout, c.Result, cfg)
	if c.Snapshot != "" {
		log.Info("Saved snapshot", "path", c.Snapshot)
	}
	return nil
}

// openClassifier loads the labels and the model named by v.
func openClassifier(v VisionConfig) (*vision.Classifier, error) {
	labels, err := vision.LoadLabels(v.Labels)
	if err != nil {
		return nil, fmt.Errorf("unable to load labels: %w", err)
	}

	classifier, err := vision.NewClassifier(vision.ClassifierConfig{
		ModelPath:   v.Model,
		Labels:      labels,
		LibraryPath: v.Library,
		InputSize:   v.InputSize,
		Threads:     v.Threads,
		Top:         v.Top,
	})
	if err != nil {
		return nil, fmt.Errorf("unable to load model %s: %w", v.Model, err)
	}
	log.Debug("Classifier ready", "model", v.Model, "classes", len(labels), "input", classifier.InputSize())
	return classifier, nil
}

func init() {
	defaults := defaultConfig().Vision

	f := classifyCmd.Flags()
	f.String("model", defaults.Model, "ONNX model file")
	f.String("labels", defaults.Labels, "class names, one per line")
	f.Int("top", defaults.Top, "number of ranked predictions to show")
	f.Float32("threshold", defaults.Threshold, "confidence a result must exceed to be trusted")
	f.Int("threads", defaults.Threads, "inference threads")
	f.StringVar(&classifySnapshots, "snapshots", "", "save annotated copies of the images to this directory")
}
