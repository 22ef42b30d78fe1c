package tts

import (
	"fmt"
	"math"
)

const (
	MinSpeed = 0.5
	MaxSpeed = 2.0
	MinPitch = -20.0
	MaxPitch = 20.0
)

// ValidateSpeed checks that speed is within the supported range.
func ValidateSpeed(speed float64) error {
	if speed < MinSpeed || speed > MaxSpeed {
		return fmt.Errorf("%w, got %.2f", ErrInvalidSpeed, speed)
	}
	return nil
}

// ValidatePitch checks that pitch (in semitones) is within the supported range.
func ValidatePitch(pitch float64) error {
	if pitch < MinPitch || pitch > MaxPitch {
		return fmt.Errorf("%w, got %.1f", ErrInvalidPitch, pitch)
	}
	return nil
}

// ToPiperScale converts speed to Piper's length-scale parameter.
// Piper uses inverse scaling: faster speed = smaller length-scale.
func ToPiperScale(speed float64) string {
	if speed <= 0 {
		speed = 1.0
	}
	return fmt.Sprintf("%.2f", 1.0/speed)
}

// ToGoogleRate converts speed to Google's speaking_rate parameter, which
// scales directly.
func ToGoogleRate(speed float64) float64 {
	if speed <= 0 {
		return 1.0
	}
	return speed
}

// ToGTTSSlow returns whether gTTS should use slow mode.
// gTTS only supports normal and slow speeds, so we consider
// anything below 0.8x as "slow".
func ToGTTSSlow(speed float64) bool {
	return speed > 0 && speed < 0.8
}

// ToEdgeRate converts speed to edge-tts' signed percentage, e.g. 1.25 -> "+25%".
func ToEdgeRate(speed float64) string {
	if speed <= 0 {
		speed = 1.0
	}
	return signed(int(math.Round((speed-1.0)*100)), "%")
}

// ToEdgePitch converts semitones to edge-tts' Hz offset. Edge expresses
// pitch in Hz; one semitone is roughly 6% of a ~200Hz speaking voice.
func ToEdgePitch(semitones float64) string {
	return signed(int(math.Round(semitones*12)), "Hz")
}

// ToEdgeVolume formats a volume offset as edge-tts expects.
func ToEdgeVolume(percent int) string {
	return signed(percent, "%")
}

func signed(v int, unit string) string {
	if v < 0 {
		return fmt.Sprintf("%d%s", v, unit)
	}
	return fmt.Sprintf("+%d%s", v, unit)
}
