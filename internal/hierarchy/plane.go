package hierarchy

import "gonum.org/v1/gonum/floats"

// BoxIntersectsPlane reports whether the plane normal·x = d touches the box.
//
// Each of the 8 corners is evaluated; a corner lying exactly on the plane
// counts as an intersection, otherwise corners must fall on both sides.
func BoxIntersectsPlane(b Bounds, normal [3]float64, d float64) bool {
	var negative, positive bool
	corner := make([]float64, 3)
	for c := 0; c < 8; c++ {
		for a := 0; a < 3; a++ {
			if c&(1<<a) == 0 {
				corner[a] = b.Min[a]
			} else {
				corner[a] = b.Max[a]
			}
		}
		v := floats.Dot(normal[:], corner) - d
		switch {
		case v == 0:
			return true
		case v < 0:
			negative = true
		default:
			positive = true
		}
		if negative && positive {
			return true
		}
	}
	return false
}

// AxisNormal returns the unit normal of axis a.
func AxisNormal(a int) [3]float64 {
	var n [3]float64
	n[a] = 1
	return n
}
