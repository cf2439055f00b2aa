// Package colormap maps scalar values to colours for point display.
package colormap

import (
	"image/color"
	"math"
)

// Turbo evaluates the turbo colormap at v, clamped to [0, 1].
// Polynomial fit by Google (Mikhailov, 2019).
func Turbo(v float64) color.RGBA {
	if math.IsNaN(v) {
		v = 0
	}
	x := math.Max(0, math.Min(1, v))
	x2 := x * x
	x3 := x2 * x
	x4 := x3 * x
	x5 := x4 * x
	r := 0.13572138 + 4.61539260*x - 42.66032258*x2 + 132.13108234*x3 - 152.94239396*x4 + 59.28637943*x5
	g := 0.09140261 + 2.19418839*x + 4.84296658*x2 - 14.18503333*x3 + 4.27729857*x4 + 2.82956604*x5
	b := 0.10667330 + 12.64194608*x - 60.58204836*x2 + 110.36276771*x3 - 89.90310912*x4 + 27.34824973*x5
	return color.RGBA{R: channel(r), G: channel(g), B: channel(b), A: 0xff}
}

func channel(c float64) uint8 {
	return uint8(math.Round(255 * math.Max(0, math.Min(1, c))))
}

// Scaled colours value/max, treating max below 1 as 1.
func Scaled(value, max float64) color.RGBA {
	if max < 1 {
		max = 1
	}
	return Turbo(value / max)
}
