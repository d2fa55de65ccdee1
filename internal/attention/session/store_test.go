package session

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/yungbote/rtc-attention/internal/attention/classifier"
	"github.com/yungbote/rtc-attention/internal/attention/features"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestStore(clk *fakeClock) *Store {
	opts := DefaultOptions()
	opts.Now = clk.Now
	return NewStore(opts)
}

func TestGetOrCreateStartsAbsent(t *testing.T) {
	clk := newFakeClock()
	s := newTestStore(clk)

	snap := s.GetOrCreate("u1")
	if snap.State != classifier.Absent {
		t.Fatalf("state=%s", snap.State)
	}
	if snap.StateSinceMs != clk.Now().UnixMilli() {
		t.Fatalf("stateSince=%d", snap.StateSinceMs)
	}
	if s.Len() != 1 {
		t.Fatalf("len=%d", s.Len())
	}

	clk.Advance(time.Minute)
	again := s.GetOrCreate("u1")
	if again.StateSinceMs != snap.StateSinceMs {
		t.Fatalf("GetOrCreate reset the session")
	}
}

func TestMeasurementBufferIsBounded(t *testing.T) {
	s := newTestStore(newFakeClock())
	for i := 0; i < 12; i++ {
		s.AppendMeasurement("u1", features.FeatureVector{Brightness: float64(i)})
	}
	snap, err := s.Snapshot("u1")
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(snap.Measurements) != 5 {
		t.Fatalf("len=%d", len(snap.Measurements))
	}
	for i, m := range snap.Measurements {
		if want := float64(7 + i); m.Brightness != want {
			t.Fatalf("measurements[%d]=%v want %v", i, m.Brightness, want)
		}
	}
}

func TestTransitionLogIsBounded(t *testing.T) {
	clk := newFakeClock()
	s := newTestStore(clk)
	states := []classifier.State{classifier.Attentive, classifier.LookingAway}
	for i := 0; i < 30; i++ {
		clk.Advance(2 * time.Second)
		s.Update("u1", states[i%2])
	}
	snap, _ := s.Snapshot("u1")
	if len(snap.Transitions) != 20 {
		t.Fatalf("len=%d", len(snap.Transitions))
	}
	last := snap.Transitions[len(snap.Transitions)-1]
	if last.State != states[28%2] || last.EndMs != snap.StateSinceMs {
		t.Fatalf("last transition=%+v stateSince=%d", last, snap.StateSinceMs)
	}
}

func TestShortDwellIsNotLogged(t *testing.T) {
	clk := newFakeClock()
	s := newTestStore(clk)
	s.GetOrCreate("u1")

	clk.Advance(500 * time.Millisecond)
	if tr := s.Update("u1", classifier.Attentive); tr != nil {
		t.Fatalf("unexpected transition %+v", tr)
	}

	clk.Advance(1500 * time.Millisecond)
	tr := s.Update("u1", classifier.Drowsy)
	if tr == nil {
		t.Fatalf("expected transition")
	}
	if tr.State != classifier.Attentive || tr.DurationSeconds != 1.5 {
		t.Fatalf("transition=%+v", tr)
	}

	clk.Advance(time.Second)
	if tr := s.Update("u1", classifier.Attentive); tr != nil {
		t.Fatalf("dwell of exactly 1s must not be logged: %+v", tr)
	}

	snap, _ := s.Snapshot("u1")
	if len(snap.Transitions) != 1 {
		t.Fatalf("transitions=%d", len(snap.Transitions))
	}
	if snap.StateSinceMs != clk.Now().UnixMilli() {
		t.Fatalf("stateSince not reset on change")
	}
}

func TestUpdateSameStateIsIdempotent(t *testing.T) {
	clk := newFakeClock()
	s := newTestStore(clk)
	s.Update("u1", classifier.Attentive)
	first, _ := s.Snapshot("u1")

	for i := 0; i < 3; i++ {
		clk.Advance(5 * time.Second)
		if tr := s.Update("u1", classifier.Attentive); tr != nil {
			t.Fatalf("unexpected transition %+v", tr)
		}
	}
	snap, _ := s.Snapshot("u1")
	if snap.StateSinceMs != first.StateSinceMs {
		t.Fatalf("stateSince moved: %d -> %d", first.StateSinceMs, snap.StateSinceMs)
	}
	if len(snap.Transitions) != len(first.Transitions) {
		t.Fatalf("transitions grew")
	}
	if !snap.LastActivity.Equal(clk.Now()) {
		t.Fatalf("activity not refreshed")
	}
}

func TestCalibrationIsSetOnce(t *testing.T) {
	s := newTestStore(newFakeClock())

	if s.Calibrate("u1", features.FeatureVector{FacePresence: 10, Brightness: 90}) {
		t.Fatalf("calibrated with a weak face")
	}
	if !s.Calibrate("u1", features.FeatureVector{FacePresence: 80, Brightness: 120, Contrast: 30}) {
		t.Fatalf("expected calibration")
	}
	if s.Calibrate("u1", features.FeatureVector{FacePresence: 95, Brightness: 200, Contrast: 60}) {
		t.Fatalf("calibrated twice")
	}

	snap, _ := s.Snapshot("u1")
	if snap.Calibration == nil || snap.Calibration.Brightness != 120 || snap.Calibration.Contrast != 30 {
		t.Fatalf("calibration=%+v", snap.Calibration)
	}

	snap.Calibration.Brightness = 1
	again, _ := s.Snapshot("u1")
	if again.Calibration.Brightness != 120 {
		t.Fatalf("snapshot aliases the stored baseline")
	}
}

func TestRecordWindow(t *testing.T) {
	clk := newFakeClock()
	s := newTestStore(clk)
	fv := func(b float64) features.FeatureVector { return features.FeatureVector{FacePresence: 50, Brightness: b} }

	rec := s.Record("u1", fv(1), classifier.Attentive)
	if !rec.Created || rec.PriorMeasurements != 0 || len(rec.Window) != 1 {
		t.Fatalf("first record=%+v", rec)
	}
	if !rec.Calibrated || rec.Previous != classifier.Absent || !rec.Changed() {
		t.Fatalf("first record=%+v", rec)
	}

	for i := 2; i <= 6; i++ {
		clk.Advance(time.Second)
		rec = s.Record("u1", fv(float64(i)), classifier.Attentive)
	}
	if rec.Created || rec.Calibrated || rec.Changed() {
		t.Fatalf("record=%+v", rec)
	}
	if rec.PriorMeasurements != 5 || len(rec.Window) != 3 {
		t.Fatalf("prior=%d window=%d", rec.PriorMeasurements, len(rec.Window))
	}
	if rec.Window[0].Brightness != 4 || rec.Window[2].Brightness != 6 {
		t.Fatalf("window=%v,%v", rec.Window[0].Brightness, rec.Window[2].Brightness)
	}
}

func TestSnapshotUnknownUser(t *testing.T) {
	s := newTestStore(newFakeClock())
	if _, err := s.Snapshot("ghost"); !errors.Is(err, ErrUnknownUser) {
		t.Fatalf("err=%v", err)
	}
}

func TestRoomSkipsUnknownUsers(t *testing.T) {
	s := newTestStore(newFakeClock())
	s.Update("a", classifier.Attentive)
	s.Update("b", classifier.Drowsy)

	room := s.Room([]string{"a", "b", "c"})
	if len(room) != 2 {
		t.Fatalf("len=%d", len(room))
	}
	if room["a"].State != classifier.Attentive || room["b"].State != classifier.Drowsy {
		t.Fatalf("room=%+v", room)
	}
	if _, ok := room["c"]; ok {
		t.Fatalf("unknown user in room")
	}
}

func TestEvictionOverflowAndIdle(t *testing.T) {
	clk := newFakeClock()
	s := newTestStore(clk)

	for i := 0; i < 1001; i++ {
		clk.Advance(time.Millisecond)
		s.Update(fmt.Sprintf("user-%d", i), classifier.Attentive)
	}

	if rep := s.Evict(); rep.Ran || rep.Remaining != 1001 {
		t.Fatalf("eviction ran inside the interval: %+v", rep)
	}

	clk.Advance(301 * time.Second)
	rep := s.Evict()
	if !rep.Ran || rep.Overflow != 1 || rep.Idle != 0 || rep.Remaining != 1000 {
		t.Fatalf("report=%+v", rep)
	}
	if _, err := s.Snapshot("user-0"); !errors.Is(err, ErrUnknownUser) {
		t.Fatalf("least recently active user survived")
	}
	if _, err := s.Snapshot("user-1"); err != nil {
		t.Fatalf("user-1: %v", err)
	}

	clk.Advance(601 * time.Second)
	s.Update("user-500", classifier.Drowsy)
	rep = s.Evict()
	if !rep.Ran || rep.Idle != 999 || rep.Remaining != 1 {
		t.Fatalf("report=%+v", rep)
	}
	if st := s.Stats(); st.Users != 1 || !st.LastEviction.Equal(clk.Now()) {
		t.Fatalf("stats=%+v", st)
	}
}

func TestWritersSurviveConcurrentEviction(t *testing.T) {
	clk := newFakeClock()
	opts := DefaultOptions()
	opts.Now = clk.Now
	opts.MaxUsers = 4
	s := NewStore(opts)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				id := fmt.Sprintf("u%d", (w+i)%10)
				rec := s.Record(id, features.FeatureVector{FacePresence: 40}, classifier.Attentive)
				if len(rec.Window) == 0 || len(rec.Window) > classifier.WindowSize {
					t.Errorf("window=%d", len(rec.Window))
					return
				}
			}
		}(w)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			s.EvictNow()
		}
	}()
	wg.Wait()

	if rep := s.EvictNow(); rep.Remaining > 4 {
		t.Fatalf("remaining=%d", rep.Remaining)
	}
	for id, snap := range s.Room([]string{"u0", "u1", "u2", "u3", "u4", "u5", "u6", "u7", "u8", "u9"}) {
		if len(snap.Measurements) > 5 {
			t.Fatalf("%s measurements=%d", id, len(snap.Measurements))
		}
	}
}

func TestEvictNotDueSkipsRegistryWriteLock(t *testing.T) {
	clk := newFakeClock()
	s := newTestStore(clk)
	s.GetOrCreate("u1")
	clk.Advance(time.Second)

	// A held read lock blocks any writer, so Evict only returns while it
	// is held if the not-due path stays shared.
	s.mu.RLock()
	done := make(chan EvictionReport, 1)
	go func() { done <- s.Evict() }()

	select {
	case rep := <-done:
		s.mu.RUnlock()
		if rep.Ran || rep.Remaining != 1 {
			t.Fatalf("report=%+v", rep)
		}
	case <-time.After(time.Second):
		s.mu.RUnlock()
		<-done
		t.Fatal("Evict took the registry write lock although no pass was due")
	}

	clk.Advance(300 * time.Second)
	if rep := s.Evict(); !rep.Ran {
		t.Fatalf("pass due after interval, report=%+v", rep)
	}
}
