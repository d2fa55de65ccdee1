package session

import (
	"cmp"
	"slices"
	"time"
)

// Evict runs an eviction pass unless one ran within the eviction interval.
func (s *Store) Evict() EvictionReport {
	return s.evict(false)
}

// EvictNow runs an eviction pass regardless of when the last one ran.
func (s *Store) EvictNow() EvictionReport {
	return s.evict(true)
}

func (s *Store) due(now time.Time) bool {
	return now.Sub(time.Unix(0, s.lastEviction.Load())) >= s.opts.EvictionInterval
}

func (s *Store) evict(force bool) EvictionReport {
	now := s.opts.Now()

	if !force && !s.due(now) {
		return EvictionReport{Remaining: s.Len()}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !force && !s.due(now) {
		return EvictionReport{Remaining: len(s.sessions)}
	}
	s.lastEviction.Store(now.UnixNano())
	report := EvictionReport{Ran: true, At: now}

	type candidate struct {
		e    *entry
		seen time.Time
	}
	live := make([]candidate, 0, len(s.sessions))
	for id, e := range s.sessions {
		e.mu.Lock()
		if now.Sub(e.lastActivity) > s.opts.IdleTimeout {
			e.evicted = true
			delete(s.sessions, id)
			report.Idle++
		} else {
			live = append(live, candidate{e: e, seen: e.lastActivity})
		}
		e.mu.Unlock()
	}

	if over := len(live) - s.opts.MaxUsers; over > 0 {
		slices.SortFunc(live, func(a, b candidate) int { return cmp.Compare(a.seen.UnixNano(), b.seen.UnixNano()) })
		for _, c := range live[:over] {
			c.e.mu.Lock()
			c.e.evicted = true
			c.e.mu.Unlock()
			delete(s.sessions, c.e.userID)
			report.Overflow++
		}
		live = live[over:]
	}

	for _, c := range live {
		c.e.mu.Lock()
		c.e.trim(s.opts.MaxMeasurements, s.opts.MaxHistory)
		c.e.mu.Unlock()
	}

	report.Remaining = len(s.sessions)
	return report
}

func (e *entry) trim(maxMeasurements, maxHistory int) {
	if n := len(e.measurements); n > maxMeasurements {
		e.measurements = slices.Clone(e.measurements[n-maxMeasurements:])
	}
	if n := len(e.transitions); n > maxHistory {
		e.transitions = slices.Clone(e.transitions[n-maxHistory:])
	}
}
