package pcd

import (
	"fmt"
	"math"
	"sort"
)

// Clustered keeps the points that carry a positive cluster id.
func Clustered(points []DecodedPoint) []DecodedPoint {
	var out []DecodedPoint
	for _, p := range points {
		if p.HasID && p.ID > 0 {
			out = append(out, p)
		}
	}
	return out
}

// MaxID is the largest id among points, at least 1.
func MaxID(points []DecodedPoint) int64 {
	var max int64 = 1
	for _, p := range points {
		if p.HasID && p.ID > max {
			max = p.ID
		}
	}
	return max
}

type Range struct {
	Min, Max float64
}

func (r Range) String() string {
	return fmt.Sprintf("[%.3f, %.3f]", r.Min, r.Max)
}

// FieldRange reports the min and max of the named value over points.
// ok is false when no point carries it.
func FieldRange(points []DecodedPoint, name string) (r Range, ok bool) {
	r = Range{Min: math.Inf(1), Max: math.Inf(-1)}
	for _, p := range points {
		v, has := p.Value(name)
		if !has {
			continue
		}
		ok = true
		r.Min = math.Min(r.Min, v)
		r.Max = math.Max(r.Max, v)
	}
	if !ok {
		return Range{}, false
	}
	return
}

type Summary struct {
	Points    int
	Clustered int
	X, Y, Z   Range
	Fields    map[string]Range
}

// Summarize collects the value ranges of every coordinate and extra field.
func Summarize(points []DecodedPoint) Summary {
	s := Summary{Points: len(points), Fields: map[string]Range{}}
	if len(points) == 0 {
		return s
	}
	s.Clustered = len(Clustered(points))
	s.X, _ = FieldRange(points, "x")
	s.Y, _ = FieldRange(points, "y")
	s.Z, _ = FieldRange(points, "z")
	for _, name := range FieldNames(points) {
		s.Fields[name], _ = FieldRange(points, name)
	}
	return s
}

// FieldNames lists the extra field names present in points, sorted.
func FieldNames(points []DecodedPoint) []string {
	seen := map[string]bool{}
	var names []string
	for _, p := range points {
		for name := range p.Fields {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	sort.Strings(names)
	return names
}
