package pipeline

import (
	"math"

	"github.com/yungbote/rtc-attention/internal/attention/classifier"
	"github.com/yungbote/rtc-attention/internal/attention/features"
	"github.com/yungbote/rtc-attention/internal/attention/session"
)

// RoomEntry is one participant in a room snapshot.
type RoomEntry struct {
	AttentionState      classifier.State    `json:"attentionState"`
	AttentionCategory   classifier.Category `json:"attentionCategory"`
	StateSince          int64               `json:"stateSince"`
	AttentionPercentage int                 `json:"attentionPercentage"`
	// Confidence is in [0,1].
	Confidence float64 `json:"confidence"`
}

const unknownUserConfidence = 1.0

// Room snapshots every requested user. Users without a session are
// reported absent with full confidence.
func (p *Pipeline) Room(userIDs []string) map[string]RoomEntry {
	snaps := p.store.Room(userIDs)
	nowMs := p.now().UnixMilli()

	out := make(map[string]RoomEntry, len(userIDs))
	for _, id := range userIDs {
		snap, ok := snaps[id]
		if !ok {
			out[id] = RoomEntry{
				AttentionState:      classifier.Absent,
				AttentionCategory:   classifier.Absent.Category(),
				StateSince:          nowMs,
				AttentionPercentage: 0,
				Confidence:          unknownUserConfidence,
			}
			continue
		}
		out[id] = entryFor(p.mode, snap)
	}
	return out
}

func entryFor(m classifier.Mode, snap session.Snapshot) RoomEntry {
	var window []features.FeatureVector
	if n := len(snap.Measurements); n > 0 {
		window = snap.Measurements[max(0, n-classifier.WindowSize):]
	}
	return RoomEntry{
		AttentionState:      snap.State,
		AttentionCategory:   snap.State.Category(),
		StateSince:          snap.StateSinceMs,
		AttentionPercentage: snap.State.Percentage(),
		Confidence:          classifier.ConfidenceFor(m, window, snap.State),
	}
}

// History returns the user's session, or session.ErrUnknownUser.
func (p *Pipeline) History(userID string) (session.Snapshot, error) {
	return p.store.Snapshot(userID)
}

func (p *Pipeline) Stats() session.Stats { return p.store.Stats() }

// PresentConfidence scales a [0,1] confidence to a percentage with one
// decimal, the form clients display.
func PresentConfidence(c float64) float64 {
	return math.Round(c*1000) / 10
}
