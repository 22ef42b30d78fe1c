package main

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/dgnsrekt/pokedex/internal/camera"
	"github.com/dgnsrekt/pokedex/ui"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Identify Pokémon live from a camera",
	Long: paragraph(fmt.Sprintf("\n%s frames from a camera through ffmpeg. Press space to identify what is in front "+
		"of the lens, c to copy the last result, q to quit. With --enter, or when stdin is not a terminal, "+
		"each line read triggers a capture instead.", keyword("Read"))),
	Example: paragraph("pokedex watch\n" +
		"pokedex watch --device /dev/video2 --width 1280 --height 720\n" +
		"pokedex watch --enter --snapshots shots/ --top 5"),
	Args: cobra.NoArgs,
	PreRunE: func(cmd *cobra.Command, _ []string) error {
		return bindFlags(cmd, map[string]string{
			"model":     "vision.model",
			"labels":    "vision.labels",
			"top":       "vision.top",
			"threshold": "vision.threshold",
			"device":    "camera.device",
			"format":    "camera.input_format",
			"width":     "camera.width",
			"height":    "camera.height",
			"framerate": "camera.framerate",
			"stale":     "camera.stale_frames",
			"snapshots": "watch.snapshots",
			"enter":     "watch.enter",
		})
	},
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	uiCfg, err := env.ParseAs[ui.Config]()
	if err != nil {
		return fmt.Errorf("error parsing environment: %w", err)
	}
	uiCfg.Threshold = cfg.Vision.Threshold
	uiCfg.Top = cfg.Vision.Top
	uiCfg.StaleFrames = cfg.Camera.StaleFrames
	if cfg.Watch.Snapshots != "" {
		uiCfg.SnapshotDir = cfg.Watch.Snapshots
	}
	if uiCfg.SnapshotDir != "" {
		if err := os.MkdirAll(uiCfg.SnapshotDir, 0o755); err != nil { //nolint:gosec
			return fmt.Errorf("unable to create snapshot directory: %w", err)
		}
	}

	classifier, err := openClassifier(cfg.Vision)
	if err != nil {
		return err
	}
	defer classifier.Close() //nolint:errcheck

	log.Info("Opening camera", "device", cfg.Camera.Device, "size", fmt.Sprintf("%dx%d", cfg.Camera.Width, cfg.Camera.Height))
	src, err := camera.OpenFFmpeg(ctx, cfg.Camera)
	if err != nil {
		return fmt.Errorf("unable to open camera: %w", err)
	}
	defer src.Close() //nolint:errcheck

	capturer, err := ui.NewCapturer(src, classifier, uiCfg)
	if err != nil {
		return err //nolint:wrapcheck
	}

	if cfg.Watch.Enter || !isTerminal(os.Stdin) || !isTerminal(os.Stdout) {
		return ui.RunLines(ctx, os.Stdin, os.Stdout, capturer, uiCfg) //nolint:wrapcheck
	}

	p := ui.NewProgram(uiCfg, capturer)
	go func() {
		<-ctx.Done()
		p.Quit()
	}()
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("unable to run ui: %w", err)
	}
	return nil
}

func init() {
	defaults := defaultConfig()

	f := watchCmd.Flags()
	f.String("model", defaults.Vision.Model, "ONNX model file")
	f.String("labels", defaults.Vision.Labels, "class names, one per line")
	f.Int("top", defaults.Vision.Top, "number of ranked predictions to show")
	f.Float32("threshold", defaults.Vision.Threshold, "confidence a result must exceed to be trusted")
	f.String("device", defaults.Camera.Device, "capture device")
	f.String("format", defaults.Camera.InputFormat, "ffmpeg input format")
	f.Int("width", defaults.Camera.Width, "frame width")
	f.Int("height", defaults.Camera.Height, "frame height")
	f.Int("framerate", defaults.Camera.FrameRate, "frames per second")
	f.Int("stale", defaults.Camera.StaleFrames, "buffered frames discarded before each capture")
	f.String("snapshots", defaults.Watch.Snapshots, "save an annotated PNG of every capture to this directory")
	f.Bool("enter", defaults.Watch.Enter, "capture on Enter instead of raw keys")
}
