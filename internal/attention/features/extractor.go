package features

import "time"

// Extract derives the full feature vector for a frame. It never fails: a
// frame without a usable mesh yields zero for every landmark-derived signal.
func Extract(f Frame) FeatureVector {
	fv := FeatureVector{
		FacePresence: FacePresence(f),
		Brightness:   clamp(f.Brightness, 0, 255),
		Contrast:     clamp(f.Contrast, 0, 255),
		CapturedAt:   time.Now(),
	}
	if !hasMesh(f) {
		return fv
	}

	left, right := EyeRatios(f)
	pose := HeadOrientation(f)

	fv.LeftEAR = left
	fv.RightEAR = right
	fv.Pose = pose
	fv.EyeOpenness = OpennessFromRatios(left, right)
	fv.LookingScore = LookingScore(pose)
	fv.DrowsinessScore = Drowsiness(left, right, pose)
	fv.SleepingScore, fv.Sleeping = SleepingLikelihood(fv.EyeOpenness, pose)
	return fv
}
