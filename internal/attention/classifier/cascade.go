package classifier

import "github.com/yungbote/rtc-attention/internal/attention/features"

const (
	darknessBrightness = 15
	absentPresence     = 8

	sleepingEyes  = 5
	sleepingScore = 0.7

	drowsyEyes  = 20
	drowsyScore = 50

	lookingAwayScore = 0.6

	attentivePresence   = 30
	attentiveEyes       = 30
	attentiveLooking    = 0.8
	attentiveDrowsiness = 30
)

// Classify runs the canonical cascade. Rules are evaluated in order and the
// first match wins; darkness and absence take precedence over any signal
// derived from the face.
func Classify(fv features.FeatureVector) State {
	switch {
	case fv.Brightness < darknessBrightness:
		return Darkness
	case fv.FacePresence < absentPresence:
		return Absent
	case fv.EyeOpenness < sleepingEyes || fv.SleepingScore > sleepingScore:
		return Sleeping
	case fv.EyeOpenness < drowsyEyes || fv.DrowsinessScore > drowsyScore:
		return Drowsy
	case fv.LookingScore < lookingAwayScore:
		return LookingAway
	case meetsAttentiveBar(fv):
		return Attentive
	default:
		return LookingAway
	}
}

func meetsAttentiveBar(fv features.FeatureVector) bool {
	return fv.FacePresence > attentivePresence &&
		fv.EyeOpenness > attentiveEyes &&
		fv.LookingScore > attentiveLooking &&
		fv.DrowsinessScore < attentiveDrowsiness
}

const (
	legacyDrowsyEyes = 12

	legacyAttentivePresence = 25
	legacyAttentiveEyes     = 25
	legacyAttentiveLooking  = 0.85

	legacyActivePresence = 15
	legacyActiveEyes     = 15
	legacyActiveLooking  = 0.7
)

// ClassifyLegacy is the earlier cascade with an Active tier between
// Attentive and LookingAway. Anything that clears no tier is Absent. It
// ignores the sleeping signals.
func ClassifyLegacy(fv features.FeatureVector) State {
	switch {
	case fv.Brightness < darknessBrightness:
		return Darkness
	case fv.FacePresence < absentPresence:
		return Absent
	case fv.EyeOpenness < legacyDrowsyEyes:
		return Drowsy
	case fv.LookingScore < lookingAwayScore:
		return LookingAway
	case meetsLegacyAttentiveBar(fv):
		return Attentive
	case meetsActiveBar(fv):
		return Active
	default:
		return Absent
	}
}

func meetsLegacyAttentiveBar(fv features.FeatureVector) bool {
	return fv.FacePresence > legacyAttentivePresence &&
		fv.EyeOpenness > legacyAttentiveEyes &&
		fv.LookingScore > legacyAttentiveLooking
}

func meetsActiveBar(fv features.FeatureVector) bool {
	return fv.FacePresence > legacyActivePresence &&
		fv.EyeOpenness > legacyActiveEyes &&
		fv.LookingScore > legacyActiveLooking
}

// Cascade returns the classification function for a mode.
func Cascade(m Mode) func(features.FeatureVector) State {
	if m == ModeLegacy {
		return ClassifyLegacy
	}
	return Classify
}
