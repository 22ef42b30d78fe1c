package vision

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"
	"unicode"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var (
	overlayText       = color.RGBA{R: 0, G: 255, B: 0, A: 255}
	overlayBackground = color.RGBA{A: 160}
)

// Overlay returns a copy of img with text drawn in a banner across the top
// left corner.
func Overlay(img image.Image, text string) *image.RGBA {
	bounds := img.Bounds()
	dst := image.NewRGBA(bounds)
	draw.Draw(dst, bounds, img, bounds.Min, draw.Src)

	face := basicfont.Face7x13
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(overlayText),
		Face: face,
	}

	const pad = 6
	width := d.MeasureString(text).Ceil()
	banner := image.Rect(bounds.Min.X, bounds.Min.Y,
		bounds.Min.X+width+2*pad, bounds.Min.Y+face.Height+2*pad).Intersect(bounds)
	draw.Draw(dst, banner, image.NewUniform(overlayBackground), image.Point{}, draw.Over)

	d.Dot = fixed.P(bounds.Min.X+pad, bounds.Min.Y+pad+face.Ascent)
	d.DrawString(text)
	return dst
}

// Caption is the overlay text for r. The built-in font only has ASCII
// glyphs, so labels in other scripts are replaced by their class number.
func Caption(r Result, threshold float32) string {
	label := r.Label
	if !isASCII(label) {
		label = fmt.Sprintf("#%d", r.Index)
	}
	if !r.Confident(threshold) {
		return fmt.Sprintf("%s? (%.1f%%)", label, r.Confidence*100)
	}
	return fmt.Sprintf("%s (%.1f%%)", label, r.Confidence*100)
}

func isASCII(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool { return r > unicode.MaxASCII }) < 0
}
