package features

import "math"

// Eye contours from the face mesh. Only the first six points of each take
// part in the aspect ratio: p0/p3 span the eye, p1-p5 and p2-p4 cross it.
var (
	LeftEyeIndices  = [...]int{362, 382, 381, 380, 374, 373, 390, 249, 263, 466, 388, 387, 386, 385, 384, 398}
	RightEyeIndices = [...]int{33, 7, 163, 144, 145, 153, 154, 155, 133, 173, 157, 158, 159, 160, 161, 246}
)

const (
	asymmetryLimit   = 0.3
	asymmetryPenalty = 0.8
)

// opennessSegments maps an average EAR to a 0-100 openness score. Each
// segment starts at ear and grows linearly with slope.
var opennessSegments = []struct {
	ear, base, slope float64
}{
	{ear: 0, base: 0, slope: 5 / 0.15},
	{ear: 0.15, base: 5, slope: 150},
	{ear: 0.25, base: 20, slope: 300},
	{ear: 0.35, base: 50, slope: 250},
}

// EyeAspectRatio computes the EAR for one eye contour, or 0 when the mesh is
// incomplete.
func EyeAspectRatio(f Frame, indices []int) float64 {
	if !hasMesh(f) || len(indices) < 6 {
		return 0
	}
	c := canvasFor(f)
	p := make([]vec2, 6)
	for i := range p {
		p[i] = c.px(f.Landmarks[indices[i]])
	}
	v1 := dist(p[1], p[5])
	v2 := dist(p[2], p[4])
	h := dist(p[0], p[3])
	return (v1 + v2) / (2*h + eps)
}

// EyeRatios returns the left and right EAR.
func EyeRatios(f Frame) (left, right float64) {
	return EyeAspectRatio(f, LeftEyeIndices[:]), EyeAspectRatio(f, RightEyeIndices[:])
}

// OpennessFromRatios maps a pair of EARs to the 0-100 eye openness score,
// attenuating strongly asymmetric pairs (usually a sideways glance).
func OpennessFromRatios(left, right float64) float64 {
	avg := (left + right) / 2

	seg := opennessSegments[0]
	for _, s := range opennessSegments {
		if avg >= s.ear {
			seg = s
		}
	}
	score := clamp(seg.base+(avg-seg.ear)*seg.slope, 0, 100)

	if asymmetryRatio(left, right) > asymmetryLimit {
		score *= asymmetryPenalty
	}
	return score
}

// EyeOpenness scores how open the eyes are, 0-100.
func EyeOpenness(f Frame) float64 {
	if !hasMesh(f) {
		return 0
	}
	return OpennessFromRatios(EyeRatios(f))
}

func asymmetryRatio(left, right float64) float64 {
	return math.Abs(left-right) / math.Max(math.Max(left, right), 0.01)
}
