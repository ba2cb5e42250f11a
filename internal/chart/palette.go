package chart

import (
	"image/color"

	"gonum.org/v1/plot/palette"
)

// ramp is a linear color palette between two endpoints.
type ramp []color.Color

func (r ramp) Colors() []color.Color { return r }

func newRamp(from, to color.RGBA, steps int) palette.Palette {
	out := make(ramp, steps)
	for i := 0; i < steps; i++ {
		t := float64(i) / float64(steps-1)
		out[i] = color.RGBA{
			R: lerp(from.R, to.R, t),
			G: lerp(from.G, to.G, t),
			B: lerp(from.B, to.B, t),
			A: 255,
		}
	}
	return out
}

func lerp(a, b uint8, t float64) uint8 {
	return uint8(float64(a) + (float64(b)-float64(a))*t + 0.5)
}

// Sequential palettes for count heatmaps.
var (
	Reds  = newRamp(color.RGBA{R: 255, G: 245, B: 240, A: 255}, color.RGBA{R: 103, G: 0, B: 13, A: 255}, 64)
	Blues = newRamp(color.RGBA{R: 247, G: 251, B: 255, A: 255}, color.RGBA{R: 8, G: 48, B: 107, A: 255}, 64)
)

var (
	barColor  = color.RGBA{R: 76, G: 114, B: 176, A: 255}
	lineColor = color.RGBA{R: 196, G: 78, B: 82, A: 255}
)
