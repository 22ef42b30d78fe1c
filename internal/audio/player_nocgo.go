//go:build nocgo

package audio

import (
	"context"
	"errors"
)

// ErrUnavailable is returned by builds without cgo audio support.
var ErrUnavailable = errors.New("audio not available in nocgo build")

// Player is a stub for builds without cgo.
type Player struct{}

// NewPlayer always fails in nocgo builds.
func NewPlayer(float64) (*Player, error) {
	return nil, ErrUnavailable
}

// Play always fails in nocgo builds.
func (p *Player) Play(context.Context, *Clip) error {
	return ErrUnavailable
}

// Close does nothing.
func (p *Player) Close() error {
	return nil
}
