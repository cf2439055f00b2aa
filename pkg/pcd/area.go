package pcd

import (
	"math"

	"github.com/golang/geo/r3"
)

// XYArea approximates the area covered by points on the xy plane by counting
// occupied grid cells. precision is cells per metre; 1 gives m² cells.
func XYArea(points []DecodedPoint, precision float64) float64 {
	if precision <= 0 {
		return 0
	}
	cells := make(map[[2]int]struct{})
	for _, p := range points {
		cells[[2]int{int(math.Floor(p.X * precision)), int(math.Floor(p.Y * precision))}] = struct{}{}
	}
	return float64(len(cells)) / precision / precision
}

// Box is an object box standing on the xy plane, rotated by Yaw around z.
// Length runs along the yaw direction.
type Box struct {
	Center                r3.Vector
	Length, Width, Height float64
	Yaw                   float64
}

// NewBox builds a Box from a label row: cx cy cz length width height yaw.
func NewBox(v [7]float64) Box {
	return Box{
		Center: r3.Vector{X: v[0], Y: v[1], Z: v[2]},
		Length: v[3],
		Width:  v[4],
		Height: v[5],
		Yaw:    v[6],
	}
}

func (b Box) Contains(v r3.Vector) bool {
	d := v.Sub(b.Center)
	if math.Abs(d.Z) > b.Height/2 {
		return false
	}
	sin, cos := math.Sincos(b.Yaw)
	along := d.X*cos + d.Y*sin
	across := -d.X*sin + d.Y*cos
	return math.Abs(along) <= b.Length/2 && math.Abs(across) <= b.Width/2
}

// XYAreaPointCount counts the points inside box.
func XYAreaPointCount(points []DecodedPoint, box Box) int {
	var count int
	for _, p := range points {
		if box.Contains(p.Position()) {
			count++
		}
	}
	return count
}
