package classifier

import "github.com/yungbote/rtc-attention/internal/attention/features"

const (
	// FirstConfidence is reported for a user's first measurement.
	FirstConfidence = 0.7

	// WindowSize is how many recent vectors Confidence looks at.
	WindowSize = 3

	baseConfidence = 0.5
	minConfidence  = 0.3
	maxConfidence  = 1.0

	boost   = 0.1
	penalty = 0.2

	strongPresence = 30
	strongEyes     = 30
	strongLooking  = 0.9

	weakPresence = 15
	weakEyes     = 10

	closingEyes = 12
)

// Confidence scores how much the latest vector in window supports state
// under the canonical cascade. window is ordered oldest first; an empty
// window means this is the user's first measurement.
func Confidence(window []features.FeatureVector, state State) float64 {
	return ConfidenceFor(ModeCanonical, window, state)
}

// ConfidenceFor is Confidence with the evidence bars of the cascade that
// produced state.
func ConfidenceFor(m Mode, window []features.FeatureVector, state State) float64 {
	if len(window) == 0 {
		return FirstConfidence
	}
	fv := window[len(window)-1]

	c := evidence(m, fv, state)

	if fv.FacePresence > strongPresence {
		c += boost
	}
	if fv.EyeOpenness > strongEyes {
		c += boost
	}
	if fv.LookingScore > strongLooking {
		c += boost
	}

	if fv.FacePresence < weakPresence && state != Absent && state != Darkness {
		c -= penalty
	}
	if fv.EyeOpenness < weakEyes {
		switch state {
		case Drowsy, Sleeping, Absent, Darkness:
		default:
			c -= penalty
		}
	}

	switch {
	case c < minConfidence:
		return minConfidence
	case c > maxConfidence:
		return maxConfidence
	}
	return c
}

// evidence is the base confidence: high when the vector clearly shows the
// signal behind the state.
func evidence(m Mode, fv features.FeatureVector, state State) float64 {
	switch state {
	case Darkness:
		if fv.Brightness < darknessBrightness {
			return 0.95
		}
	case Absent:
		if fv.FacePresence < absentPresence {
			return 0.9
		}
	case Sleeping:
		if fv.EyeOpenness < sleepingEyes || fv.SleepingScore > sleepingScore {
			return 0.85
		}
	case Drowsy:
		if fv.EyeOpenness < closingEyes {
			return 0.85
		}
	case LookingAway:
		if fv.LookingScore < lookingAwayScore {
			return 0.8
		}
	case Attentive:
		bar := meetsAttentiveBar
		if m == ModeLegacy {
			bar = meetsLegacyAttentiveBar
		}
		if bar(fv) {
			return 0.9
		}
	case Active:
		if meetsActiveBar(fv) {
			return 0.85
		}
	}
	return baseConfidence
}
