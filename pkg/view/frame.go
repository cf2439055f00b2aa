// Package view turns decoded points into coloured frames and streams them
// to browser clients over websocket.
package view

import (
	"math"
	"strings"

	"sensorview/pkg/colormap"
	"sensorview/pkg/pcd"
)

// ColorBy selects how points are coloured. The zero value leaves them
// uncoloured.
type ColorBy struct {
	Cluster bool
	Field   string
}

// ParseColorBy accepts "cluster", "field:<name>" or "none".
func ParseColorBy(s string) (ColorBy, bool) {
	switch {
	case s == "" || s == "none":
		return ColorBy{}, true
	case s == "cluster":
		return ColorBy{Cluster: true}, true
	case strings.HasPrefix(s, "field:") && len(s) > len("field:"):
		return ColorBy{Field: strings.TrimPrefix(s, "field:")}, true
	}
	return ColorBy{}, false
}

type Frame struct {
	Topic     string       `json:"topic"`
	Positions [][3]float32 `json:"positions"`
	Colors    [][3]uint8   `json:"colors,omitempty"`
}

// NewFrame builds a frame from points. Cluster colouring scales ids by the
// largest id; field colouring scales by max(field, 1). Points missing the
// field get the colour of 0.
func NewFrame(topic string, points []pcd.DecodedPoint, by ColorBy) Frame {
	f := Frame{Topic: topic, Positions: make([][3]float32, len(points))}
	for i, p := range points {
		f.Positions[i] = [3]float32{float32(p.X), float32(p.Y), float32(p.Z)}
	}

	var value func(pcd.DecodedPoint) float64
	var max float64
	switch {
	case by.Cluster:
		max = float64(pcd.MaxID(points))
		value = func(p pcd.DecodedPoint) float64 { return float64(p.ID) }
	case by.Field != "":
		r, ok := pcd.FieldRange(points, by.Field)
		if ok {
			max = r.Max
		}
		value = func(p pcd.DecodedPoint) float64 {
			v, _ := p.Value(by.Field)
			return v
		}
	default:
		return f
	}

	max = math.Max(max, 1)
	f.Colors = make([][3]uint8, len(points))
	for i, p := range points {
		c := colormap.Scaled(value(p), max)
		f.Colors[i] = [3]uint8{c.R, c.G, c.B}
	}
	return f
}
