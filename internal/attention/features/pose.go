package features

import "math"

// HeadOrientation estimates yaw and pitch as the face midpoint's offset from
// the image center (both in [-1,1]) and roll as the tilt of the outer-eye
// line in degrees, folded into (-90, 90]. These are 2-D proxies, not a real
// 3-D pose.
func HeadOrientation(f Frame) HeadPose {
	if !hasMesh(f) {
		return HeadPose{}
	}
	c := canvasFor(f)
	lm := f.Landmarks

	rightEar := c.px(lm[idxRightEar])
	leftEar := c.px(lm[idxLeftEar])
	forehead := c.px(lm[idxForehead])
	chin := c.px(lm[idxChin])
	rightEye := c.px(lm[idxRightEyeOuter])
	leftEye := c.px(lm[idxLeftEyeOuter])

	faceX := (rightEar.x + leftEar.x) / 2
	faceY := (forehead.y + chin.y) / 2

	yaw := clamp((faceX-c.w/2)/(c.w/2), -1, 1)
	pitch := clamp((faceY-c.h/2)/(c.h/2), -1, 1)

	roll := math.Atan2(leftEye.y-rightEye.y, leftEye.x-rightEye.x) * 180 / math.Pi
	switch {
	case roll > 90:
		roll -= 180
	case roll <= -90:
		roll += 180
	}

	return HeadPose{Yaw: yaw, Pitch: pitch, Roll: roll}
}

type band struct {
	below  float64
	factor float64
}

var (
	yawBands   = []band{{0.15, 1.0}, {0.3, 0.7}, {0.5, 0.4}}
	pitchBands = []band{{0.15, 1.0}, {0.3, 0.6}, {0.5, 0.3}}
	rollBands  = []band{{10, 1.0}, {20, 0.7}, {35, 0.4}}
)

const (
	bandFloor = 0.1

	yawWeight   = 0.6
	pitchWeight = 0.25
	rollWeight  = 0.15

	extremeYaw     = 0.6
	extremePitch   = 0.6
	extremeRoll    = 45
	extremePenalty = 0.5
)

func stepDown(v float64, bands []band) float64 {
	for _, b := range bands {
		if v < b.below {
			return b.factor
		}
	}
	return bandFloor
}

// LookingScore rates how squarely the head faces the camera, 0-1.
func LookingScore(p HeadPose) float64 {
	yaw := math.Abs(p.Yaw)
	pitch := math.Abs(p.Pitch)
	roll := math.Abs(p.Roll)

	score := stepDown(yaw, yawBands)*yawWeight +
		stepDown(pitch, pitchBands)*pitchWeight +
		stepDown(roll, rollBands)*rollWeight

	if yaw > extremeYaw || pitch > extremePitch || roll > extremeRoll {
		score *= extremePenalty
	}
	return clamp(score, 0, 1)
}
