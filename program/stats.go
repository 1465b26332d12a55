package main

import (
	"sync/atomic"
	"time"
)

type durationRing struct {
	buf   []time.Duration
	idx   int
	count int
}

func newDurationRing(n int) *durationRing {
	if n < 1 {
		n = 1
	}
	return &durationRing{buf: make([]time.Duration, n)}
}

func (r *durationRing) add(d time.Duration) {
	if len(r.buf) == 0 {
		return
	}
	r.buf[r.idx] = d
	r.idx++
	if r.idx >= len(r.buf) {
		r.idx = 0
	}
	if r.count < len(r.buf) {
		r.count++
	}
}

type durationStats struct {
	last time.Duration
	max  time.Duration
	avg  time.Duration
	n    int
}

func (r *durationRing) snapshot() durationStats {
	if r.count == 0 {
		return durationStats{}
	}
	var sum time.Duration
	var longest time.Duration
	for i := 0; i < r.count; i++ {
		d := r.buf[i]
		sum += d
		if d > longest {
			longest = d
		}
	}

	lastIdx := r.idx - 1
	if lastIdx < 0 {
		lastIdx = len(r.buf) - 1
	}

	return durationStats{
		last: r.buf[lastIdx],
		max:  longest,
		avg:  sum / time.Duration(r.count),
		n:    r.count,
	}
}

// requestStats tracks backend round trips for the stats block. The ring is
// only fed from the UI loop; the counters may be read from anywhere.
type requestStats struct {
	enabled atomic.Bool

	startedNs atomic.Int64
	requests  atomic.Uint64
	failures  atomic.Uint64
	lastNs    atomic.Int64

	latency *durationRing
}

func newRequestStats(window int) *requestStats {
	s := &requestStats{
		latency: newDurationRing(window),
	}
	s.startedNs.Store(time.Now().UnixNano())
	return s
}

func (s *requestStats) setEnabled(v bool) { s.enabled.Store(v) }
func (s *requestStats) isEnabled() bool   { return s.enabled.Load() }

// observe records one finished request.
func (s *requestStats) observe(d time.Duration, err error, now time.Time) {
	if !s.isEnabled() {
		return
	}
	if now.IsZero() {
		now = time.Now()
	}
	s.requests.Add(1)
	if err != nil {
		s.failures.Add(1)
	}
	s.lastNs.Store(now.UnixNano())
	s.latency.add(d)
}

type statsSnapshot struct {
	started  time.Time
	last     time.Time
	requests uint64
	failures uint64
	latency  durationStats
}

func (s *requestStats) snapshot() statsSnapshot {
	if !s.isEnabled() {
		return statsSnapshot{}
	}
	snap := statsSnapshot{
		requests: s.requests.Load(),
		failures: s.failures.Load(),
		latency:  s.latency.snapshot(),
	}
	if ns := s.startedNs.Load(); ns != 0 {
		snap.started = time.Unix(0, ns)
	}
	if ns := s.lastNs.Load(); ns != 0 {
		snap.last = time.Unix(0, ns)
	}
	return snap
}
