package features

import "math"

const (
	eps = 1e-6

	// MeshSize is the number of points in a full face mesh. Landmark sets with
	// fewer points are ignored by the landmark-derived features.
	MeshSize = 468
)

// Mesh indices used for head orientation.
const (
	idxRightEyeOuter = 33
	idxLeftEyeOuter  = 263
	idxRightEar      = 234
	idxLeftEar       = 454
	idxForehead      = 10
	idxChin          = 152
)

type vec2 struct{ x, y float64 }

// canvas maps normalized landmarks to pixel space.
type canvas struct {
	w, h float64
}

func canvasFor(f Frame) canvas {
	if f.ImageWidth <= 0 || f.ImageHeight <= 0 {
		return canvas{w: 1, h: 1}
	}
	return canvas{w: float64(f.ImageWidth), h: float64(f.ImageHeight)}
}

func (c canvas) px(p Point) vec2 {
	return vec2{x: p.X * c.w, y: p.Y * c.h}
}

func dist(a, b vec2) float64 {
	return math.Hypot(a.x-b.x, a.y-b.y)
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func hasMesh(f Frame) bool {
	return len(f.Landmarks) >= MeshSize
}
