// Package classifier maps feature vectors to discrete attention states and
// estimates how much to trust each decision.
package classifier

import (
	"fmt"
	"strings"
)

type State string

const (
	Attentive   State = "attentive"
	LookingAway State = "looking_away"
	Absent      State = "absent"
	Drowsy      State = "drowsy"
	Sleeping    State = "sleeping"
	Darkness    State = "darkness"

	// Active is produced only by the legacy cascade.
	Active State = "active"
)

// States lists the states of the canonical cascade.
var States = []State{Attentive, LookingAway, Absent, Drowsy, Sleeping, Darkness}

// Percentage is the fixed attention percentage shown for a state.
func (s State) Percentage() int {
	switch s {
	case Attentive:
		return 95
	case Active:
		return 75
	case LookingAway:
		return 40
	case Drowsy:
		return 25
	case Sleeping:
		return 5
	default:
		return 0
	}
}

type Category string

const (
	CategoryAttentive  Category = "attentive"
	CategoryDistracted Category = "distracted"
	CategoryInactive   Category = "inactive"
	CategorySleeping   Category = "sleeping"
)

// Category collapses a state into the coarse bucket used by room views.
func (s State) Category() Category {
	switch s {
	case Sleeping:
		return CategorySleeping
	case LookingAway, Drowsy:
		return CategoryDistracted
	case Absent, Darkness:
		return CategoryInactive
	default:
		return CategoryAttentive
	}
}

func (s State) String() string { return string(s) }

// Mode selects the cascade.
type Mode string

const (
	ModeCanonical Mode = "canonical"
	ModeLegacy    Mode = "legacy"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeCanonical:
		return ModeCanonical, nil
	case ModeLegacy:
		return ModeLegacy, nil
	default:
		return "", fmt.Errorf("unknown classifier mode %q", s)
	}
}
