package ui

import "github.com/dgnsrekt/pokedex/internal/vision"

// Config contains capture-loop configuration.
type Config struct {
	// Threshold is the confidence a result must exceed to be trusted
	Threshold float32

	// Top is how many ranked predictions to show, 0 shows only the winner
	Top int

	// StaleFrames are discarded before each capture
	StaleFrames int

	// SnapshotDir receives annotated PNGs of every capture when set
	SnapshotDir string `env:"POKEDEX_SNAPSHOT_DIR"`

	// History is how many earlier results stay on screen
	History int `env:"POKEDEX_HISTORY" envDefault:"5"`
}

func (c Config) threshold() float32 {
	if c.Threshold <= 0 {
		return vision.DefaultThreshold
	}
	return c.Threshold
}
