package main

import (
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/dgnsrekt/pokedex/internal/quantize"
	"github.com/dgnsrekt/pokedex/utils"
)

var quantizeCmd = &cobra.Command{
	Use:   "quantize [MODEL] [OUTPUT]",
	Short: "Shrink the ONNX model to 8-bit weights",
	Long: paragraph(fmt.Sprintf("\n%s the float32 classifier with onnxruntime's dynamic quantizer so it loads "+
		"and runs faster on small boards. Needs Python with the onnxruntime and onnx packages.", keyword("Quantize"))),
	Example: paragraph("pokedex quantize\n" +
		"pokedex quantize pokemon.onnx pokemon_quant.onnx --weight-type QInt8"),
	Args: cobra.MaximumNArgs(2),
	PreRunE: func(cmd *cobra.Command, _ []string) error {
		return bindFlags(cmd, map[string]string{
			"python":      "quantize.python",
			"weight-type": "quantize.weight_type",
			"timeout":     "quantize.timeout",
		})
	},
	RunE: runQuantize,
}

func runQuantize(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	opts := quantize.Options{
		Input:      cfg.Vision.Model,
		Python:     cfg.Quantize.Python,
		WeightType: quantize.WeightType(cfg.Quantize.WeightType),
		Timeout:    cfg.Quantize.Timeout,
	}
	if len(args) > 0 {
		opts.Input = utils.ExpandPath(args[0])
	}
	if len(args) > 1 {
		opts.Output = utils.ExpandPath(args[1])
	}

	report, err := quantize.Quantize(cmd.Context(), opts)
	if err != nil {
		return err //nolint:wrapcheck
	}

	log.Info("Model quantized",
		"output", report.Output,
		"before", humanize.Bytes(uint64(report.InputSize)),  //nolint:gosec
		"after", humanize.Bytes(uint64(report.OutputSize)), //nolint:gosec
		"saved", fmt.Sprintf("%.0f%%", report.Reduction()*100),
		"took", report.Duration.Round(100*time.Millisecond))
	return nil
}

func init() {
	defaults := defaultConfig().Quantize

	f := quantizeCmd.Flags()
	f.String("python", defaults.Python, "Python interpreter with onnxruntime installed")
	f.String("weight-type", defaults.WeightType, "weight type: QUInt8 or QInt8")
	f.Duration("timeout", defaults.Timeout, "give up after this long")
}
