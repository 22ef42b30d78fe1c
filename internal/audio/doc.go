// Package audio previews narrations on the local sound device. It decodes
// WAV files with go-audio and plays them through oto/v3.
package audio
