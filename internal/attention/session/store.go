package session

import (
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yungbote/rtc-attention/internal/attention/classifier"
	"github.com/yungbote/rtc-attention/internal/attention/features"
)

type Options struct {
	MaxUsers         int
	MaxHistory       int
	MaxMeasurements  int
	IdleTimeout      time.Duration
	EvictionInterval time.Duration

	// CalibrationPresence is the face presence a frame needs to become the
	// calibration baseline.
	CalibrationPresence float64

	// MinDwell is how long a state must have lasted to be logged when it ends.
	MinDwell time.Duration

	Now func() time.Time
}

func DefaultOptions() Options {
	return Options{
		MaxUsers:            1000,
		MaxHistory:          20,
		MaxMeasurements:     5,
		IdleTimeout:         600 * time.Second,
		EvictionInterval:    300 * time.Second,
		CalibrationPresence: 20,
		MinDwell:            time.Second,
		Now:                 time.Now,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.MaxUsers <= 0 {
		o.MaxUsers = d.MaxUsers
	}
	if o.MaxHistory <= 0 {
		o.MaxHistory = d.MaxHistory
	}
	if o.MaxMeasurements <= 0 {
		o.MaxMeasurements = d.MaxMeasurements
	}
	if o.IdleTimeout <= 0 {
		o.IdleTimeout = d.IdleTimeout
	}
	if o.EvictionInterval <= 0 {
		o.EvictionInterval = d.EvictionInterval
	}
	if o.CalibrationPresence <= 0 {
		o.CalibrationPresence = d.CalibrationPresence
	}
	if o.MinDwell <= 0 {
		o.MinDwell = d.MinDwell
	}
	if o.Now == nil {
		o.Now = d.Now
	}
	return o
}

type entry struct {
	mu      sync.Mutex
	evicted bool

	userID       string
	state        classifier.State
	stateSince   int64
	lastActivity time.Time
	measurements []features.FeatureVector
	transitions  []TransitionRecord
	calibration  *CalibrationBaseline
}

// Store is safe for concurrent use. The registry lock guards the map and is
// always taken before a session lock; a session removed by Evict while a
// writer waited on it is marked evicted and the writer starts over.
type Store struct {
	opts Options

	mu       sync.RWMutex
	sessions map[string]*entry

	// lastEviction is unix nanoseconds, read without the registry lock so
	// frames that find no pass due never take it exclusively.
	lastEviction atomic.Int64
}

func NewStore(opts Options) *Store {
	opts = opts.withDefaults()
	s := &Store{
		opts:     opts,
		sessions: make(map[string]*entry),
	}
	s.lastEviction.Store(opts.Now().UnixNano())
	return s
}

func (s *Store) lookup(userID string) *entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions[userID]
}

func (s *Store) lookupOrCreate(userID string) (*entry, bool) {
	if e := s.lookup(userID); e != nil {
		return e, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.sessions[userID]; ok {
		return e, false
	}
	now := s.opts.Now()
	e := &entry{
		userID:       userID,
		state:        classifier.Absent,
		stateSince:   now.UnixMilli(),
		lastActivity: now,
		measurements: make([]features.FeatureVector, 0, s.opts.MaxMeasurements),
	}
	s.sessions[userID] = e
	return e, true
}

// with runs fn under the user's session lock, creating the session first.
func (s *Store) with(userID string, fn func(e *entry, created bool)) {
	for {
		e, created := s.lookupOrCreate(userID)
		e.mu.Lock()
		if e.evicted {
			e.mu.Unlock()
			continue
		}
		fn(e, created)
		e.mu.Unlock()
		return
	}
}

// GetOrCreate returns the user's session, creating it in the Absent state.
func (s *Store) GetOrCreate(userID string) Snapshot {
	var snap Snapshot
	s.with(userID, func(e *entry, _ bool) { snap = e.snapshot() })
	return snap
}

// Update refreshes activity and moves the session to state. The state being
// left is logged only if it lasted longer than the minimum dwell.
func (s *Store) Update(userID string, state classifier.State) *TransitionRecord {
	var tr *TransitionRecord
	s.with(userID, func(e *entry, _ bool) { tr = s.update(e, state) })
	return tr
}

// AppendMeasurement adds fv to the user's bounded measurement buffer.
func (s *Store) AppendMeasurement(userID string, fv features.FeatureVector) {
	s.with(userID, func(e *entry, _ bool) { s.append(e, fv) })
}

// Calibrate stores the baseline once, when the face is clear enough. It
// reports whether this call set it.
func (s *Store) Calibrate(userID string, fv features.FeatureVector) bool {
	var ok bool
	s.with(userID, func(e *entry, _ bool) { ok = s.calibrate(e, fv) })
	return ok
}

// Record calibrates, appends and updates in one critical section.
func (s *Store) Record(userID string, fv features.FeatureVector, state classifier.State) Recorded {
	var rec Recorded
	s.with(userID, func(e *entry, created bool) {
		rec.Created = created
		rec.Calibrated = s.calibrate(e, fv)
		rec.PriorMeasurements = len(e.measurements)
		s.append(e, fv)
		rec.Previous = e.state
		rec.Transition = s.update(e, state)
		rec.State = e.state
		rec.StateSinceMs = e.stateSince

		n := min(len(e.measurements), classifier.WindowSize)
		rec.Window = slices.Clone(e.measurements[len(e.measurements)-n:])
	})
	return rec
}

func (s *Store) update(e *entry, state classifier.State) *TransitionRecord {
	now := s.opts.Now()
	e.lastActivity = now
	if state == e.state {
		return nil
	}

	nowMs := now.UnixMilli()
	var tr *TransitionRecord
	dwell := time.Duration(nowMs-e.stateSince) * time.Millisecond
	if dwell > s.opts.MinDwell {
		rec := TransitionRecord{
			State:           e.state,
			StartMs:         e.stateSince,
			EndMs:           nowMs,
			DurationSeconds: dwell.Seconds(),
		}
		e.transitions = appendBounded(e.transitions, rec, s.opts.MaxHistory)
		tr = &rec
	}
	e.state = state
	e.stateSince = nowMs
	return tr
}

func (s *Store) append(e *entry, fv features.FeatureVector) {
	e.measurements = appendBounded(e.measurements, fv, s.opts.MaxMeasurements)
}

func (s *Store) calibrate(e *entry, fv features.FeatureVector) bool {
	if e.calibration != nil || fv.FacePresence <= s.opts.CalibrationPresence {
		return false
	}
	e.calibration = &CalibrationBaseline{
		Brightness: fv.Brightness,
		Contrast:   fv.Contrast,
		CapturedAt: s.opts.Now(),
	}
	return true
}

// appendBounded appends v, dropping the oldest items beyond limit.
func appendBounded[T any](buf []T, v T, limit int) []T {
	if len(buf) < limit {
		return append(buf, v)
	}
	n := copy(buf, buf[len(buf)-limit+1:])
	buf = buf[:n]
	return append(buf, v)
}

func (e *entry) snapshot() Snapshot {
	snap := Snapshot{
		UserID:       e.userID,
		State:        e.state,
		StateSinceMs: e.stateSince,
		LastActivity: e.lastActivity,
		Measurements: slices.Clone(e.measurements),
		Transitions:  slices.Clone(e.transitions),
	}
	if e.calibration != nil {
		c := *e.calibration
		snap.Calibration = &c
	}
	return snap
}

// Snapshot returns a copy of a known user's session.
func (s *Store) Snapshot(userID string) (Snapshot, error) {
	e := s.lookup(userID)
	if e == nil {
		return Snapshot{}, ErrUnknownUser
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.evicted {
		return Snapshot{}, ErrUnknownUser
	}
	return e.snapshot(), nil
}

// Room snapshots the known users among userIDs. Unknown users are absent
// from the result.
func (s *Store) Room(userIDs []string) map[string]Snapshot {
	out := make(map[string]Snapshot, len(userIDs))
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range userIDs {
		e, ok := s.sessions[id]
		if !ok {
			continue
		}
		e.mu.Lock()
		out[id] = e.snapshot()
		e.mu.Unlock()
	}
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := Stats{Users: len(s.sessions), LastEviction: time.Unix(0, s.lastEviction.Load())}
	for _, e := range s.sessions {
		e.mu.Lock()
		if e.calibration != nil {
			st.Calibrated++
		}
		e.mu.Unlock()
	}
	return st
}
