package vision

import (
	"image"
	"image/color"

	"github.com/nfnt/resize"
)

// DefaultInputSize is the square input side used when the model does not
// declare a static one.
const DefaultInputSize = 224

// Preprocess resizes img to size×size and returns the pixels as three
// channel planes (R, G, B) scaled to [0,1]. The result always holds
// 3*size*size values, whatever the source resolution.
func Preprocess(img image.Image, size int) []float32 {
	if size <= 0 {
		size = DefaultInputSize
	}

	resized := resize.Resize(uint(size), uint(size), dropAlpha(img), resize.Bilinear) //nolint:gosec
	bounds := resized.Bounds()
	plane := size * size
	data := make([]float32, 3*plane)

	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			r, g, b, _ := resized.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()

			i := y*size + x
			data[i] = float32(r>>8) / 255.0
			data[plane+i] = float32(g>>8) / 255.0
			data[2*plane+i] = float32(b>>8) / 255.0
		}
	}
	return data
}

// dropAlpha returns img with every pixel made opaque, keeping the stored
// colour. Transparent PNG backgrounds keep the RGB written in the file
// instead of turning black.
func dropAlpha(img image.Image) image.Image {
	if o, ok := img.(interface{ Opaque() bool }); ok && o.Opaque() {
		return img
	}

	b := img.Bounds()
	out := image.NewNRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA) //nolint:forcetypeassert
			c.A = 0xff
			out.SetNRGBA(x, y, c)
		}
	}
	return out
}
