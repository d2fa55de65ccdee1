// Package session keeps the bounded, per-user attention history.
package session

import (
	"errors"
	"time"

	"github.com/yungbote/rtc-attention/internal/attention/classifier"
	"github.com/yungbote/rtc-attention/internal/attention/features"
)

var ErrUnknownUser = errors.New("session: unknown user")

// CalibrationBaseline is the lighting baseline captured from the first frame
// with a clearly visible face. It never changes once set.
type CalibrationBaseline struct {
	Brightness float64   `json:"brightness"`
	Contrast   float64   `json:"contrast"`
	CapturedAt time.Time `json:"capturedAt"`
}

// TransitionRecord is a completed stay in one state.
type TransitionRecord struct {
	State           classifier.State `json:"state"`
	StartMs         int64            `json:"startMs"`
	EndMs           int64            `json:"endMs"`
	DurationSeconds float64          `json:"durationSeconds"`
}

// Snapshot is a consistent copy of one user's session.
type Snapshot struct {
	UserID       string                   `json:"userId"`
	State        classifier.State         `json:"state"`
	StateSinceMs int64                    `json:"stateSince"`
	LastActivity time.Time                `json:"lastActivity"`
	Measurements []features.FeatureVector `json:"measurements"`
	Transitions  []TransitionRecord       `json:"transitions"`
	Calibration  *CalibrationBaseline     `json:"calibration,omitempty"`
}

// Recorded is what Record observed while holding the session lock.
type Recorded struct {
	Created bool

	// PriorMeasurements is the buffer length before this vector was added.
	PriorMeasurements int
	// Window holds up to classifier.WindowSize recent vectors, newest last.
	Window []features.FeatureVector

	Previous     classifier.State
	State        classifier.State
	StateSinceMs int64
	Transition   *TransitionRecord

	Calibrated bool
}

// Changed reports whether the state differs from the one before the update.
func (r Recorded) Changed() bool { return r.Previous != r.State }

type EvictionReport struct {
	Ran       bool
	At        time.Time
	Idle      int
	Overflow  int
	Remaining int
}

type Stats struct {
	Users        int       `json:"usersTracked"`
	Calibrated   int       `json:"calibratedUsers"`
	LastEviction time.Time `json:"lastEviction"`
}
