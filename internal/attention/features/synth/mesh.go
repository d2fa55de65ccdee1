// Package synth builds synthetic face meshes with known geometry. The mock
// detector serves them and the attention tests use them as fixtures.
package synth

import (
	"math"

	"github.com/yungbote/rtc-attention/internal/attention/features"
)

// Face describes the geometry of a synthetic mesh. Offsets are in normalized
// image units; zero values give a centered, level face with open eyes.
type Face struct {
	// EAR applies to both eyes unless LeftEAR or RightEAR is set.
	EAR      float64
	LeftEAR  float64
	RightEAR float64

	// Yaw and Pitch move the ear and forehead/chin midpoints off center by
	// the given fraction of the half image.
	Yaw   float64
	Pitch float64
	Roll  float64 // degrees

	// Scale shrinks or grows the face about the image center. Default 1.
	Scale float64

	// Aspect is the target image's width/height. Horizontal offsets are
	// divided by it so the face keeps its proportions in pixel space.
	// Default 1.
	Aspect float64
}

const (
	eyeWidth    = 0.08
	eyeOffsetX  = 0.1
	eyeOffsetY  = -0.05
	earOffsetX  = 0.2
	browChinY   = 0.2
	defaultEAR  = 0.4
	rightEyeOut = 33
	leftEyeOut  = 263
	rightEarIdx = 234
	leftEarIdx  = 454
	foreheadIdx = 10
	chinIdx     = 152
)

// Mesh returns a full features.MeshSize landmark set.
func Mesh(f Face) []features.Point {
	s := f.Scale
	if s <= 0 {
		s = 1
	}
	aspect := f.Aspect
	if aspect <= 0 {
		aspect = 1
	}
	left, right := f.LeftEAR, f.RightEAR
	if left == 0 && right == 0 {
		left, right = f.EAR, f.EAR
		if f.EAR == 0 {
			left, right = defaultEAR, defaultEAR
		}
	}

	at := func(dx, dy float64) features.Point {
		return features.Point{X: 0.5 + dx*s/aspect, Y: 0.5 + dy*s}
	}

	pts := make([]features.Point, features.MeshSize)
	for i := range pts {
		pts[i] = at(0, 0)
	}

	placeEye(pts, features.RightEyeIndices[:6], at, -eyeOffsetX, right)
	placeEye(pts, features.LeftEyeIndices[:6], at, eyeOffsetX, left)

	// Outer-eye line for roll, anchored on the right eye's outer corner.
	anchor := pts[rightEyeOut]
	span := (2*eyeOffsetX + eyeWidth) * s
	theta := f.Roll * math.Pi / 180
	pts[leftEyeOut] = features.Point{
		X: anchor.X + span*math.Cos(theta)/aspect,
		Y: anchor.Y + span*math.Sin(theta),
	}

	pts[rightEarIdx] = at(-earOffsetX, 0)
	pts[leftEarIdx] = at(earOffsetX, 0)
	pts[rightEarIdx].X += f.Yaw * 0.5
	pts[leftEarIdx].X += f.Yaw * 0.5

	pts[foreheadIdx] = at(0, -browChinY)
	pts[chinIdx] = at(0, browChinY)
	pts[foreheadIdx].Y += f.Pitch * 0.5
	pts[chinIdx].Y += f.Pitch * 0.5

	return pts
}

// placeEye lays out p0..p5 so that the contour's aspect ratio equals ear.
func placeEye(pts []features.Point, idx []int, at func(dx, dy float64) features.Point, cx, ear float64) {
	half := eyeWidth / 2
	lid := ear * eyeWidth / 2
	pts[idx[0]] = at(cx-half, eyeOffsetY)
	pts[idx[3]] = at(cx+half, eyeOffsetY)
	pts[idx[1]] = at(cx-eyeWidth/6, eyeOffsetY-lid)
	pts[idx[5]] = at(cx-eyeWidth/6, eyeOffsetY+lid)
	pts[idx[2]] = at(cx+eyeWidth/6, eyeOffsetY-lid)
	pts[idx[4]] = at(cx+eyeWidth/6, eyeOffsetY+lid)
}
