package features

import "math"

type stepUp struct {
	above  float64
	factor float64
}

// Tables are ordered strictest first; the first threshold exceeded wins.
var (
	headDropSteps  = []stepUp{{0.3, 1.0}, {0.2, 0.6}, {0.1, 0.3}}
	headTiltSteps  = []stepUp{{25, 1.0}, {15, 0.5}}
	eyeGapSteps    = []stepUp{{0.05, 1.0}, {0.03, 0.5}}
	eyeClosedSteps = []struct {
		below  float64
		factor float64
	}{{0.15, 1.0}, {0.25, 0.7}, {0.35, 0.3}}
)

const (
	eyeClosureWeight = 0.4
	headDropWeight   = 0.3
	headTiltWeight   = 0.2
	eyeGapWeight     = 0.1

	sleepEyeOpenness = 5
	sleepPitch       = 0.3
	sleepRoll        = 30
	sleepThreshold   = 0.6
)

func stepFactor(v float64, steps []stepUp) float64 {
	for _, s := range steps {
		if v > s.above {
			return s.factor
		}
	}
	return 0
}

// Drowsiness combines eye closure, head drop, head tilt and eye asymmetry
// into a 0-100 score.
func Drowsiness(leftEAR, rightEAR float64, pose HeadPose) float64 {
	avg := (leftEAR + rightEAR) / 2

	eyeFactor := 0.0
	for _, s := range eyeClosedSteps {
		if avg < s.below {
			eyeFactor = s.factor
			break
		}
	}

	score := eyeFactor*eyeClosureWeight +
		stepFactor(pose.Pitch, headDropSteps)*headDropWeight +
		stepFactor(math.Abs(pose.Roll), headTiltSteps)*headTiltWeight +
		stepFactor(math.Abs(leftEAR-rightEAR), eyeGapSteps)*eyeGapWeight

	return clamp(score*100, 0, 100)
}

// SleepingLikelihood scores closed eyes, a dropped head and a strong tilt.
// The flag is set once the score passes 0.6.
func SleepingLikelihood(eyeOpenness float64, pose HeadPose) (float64, bool) {
	score := 0.0
	if eyeOpenness < sleepEyeOpenness {
		score += 0.4
	}
	if pose.Pitch > sleepPitch {
		score += 0.3
	}
	if math.Abs(pose.Roll) > sleepRoll {
		score += 0.2
	}
	score = clamp(score, 0, 1)
	return score, score > sleepThreshold
}
