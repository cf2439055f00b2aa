package colormap

import (
	"image/color"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTurboEnds(t *testing.T) {
	// dark blue at 0, dark red at 1
	lo := Turbo(0)
	assert.Equal(t, color.RGBA{R: 35, G: 23, B: 27, A: 255}, lo)
	hi := Turbo(1)
	assert.Greater(t, hi.R, hi.B)
	assert.Greater(t, hi.R, hi.G)

	assert.Equal(t, lo, Turbo(-3))
	assert.Equal(t, hi, Turbo(7))
	assert.Equal(t, lo, Turbo(math.NaN()))
}

func TestTurboMidGreen(t *testing.T) {
	mid := Turbo(0.5)
	assert.Greater(t, mid.G, mid.R)
	assert.Greater(t, mid.G, mid.B)
}

func TestScaled(t *testing.T) {
	assert.Equal(t, Turbo(0.5), Scaled(2, 4))
	assert.Equal(t, Turbo(0.5), Scaled(0.5, 0))
}
