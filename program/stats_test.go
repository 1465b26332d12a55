package main

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDurationRing(t *testing.T) {
	r := newDurationRing(3)
	assert.Equal(t, durationStats{}, r.snapshot())

	for _, ms := range []int{10, 40, 20, 30} {
		r.add(time.Duration(ms) * time.Millisecond)
	}
	s := r.snapshot()
	assert.Equal(t, 3, s.n)
	assert.Equal(t, 30*time.Millisecond, s.last)
	assert.Equal(t, 40*time.Millisecond, s.max)
	assert.Equal(t, 30*time.Millisecond, s.avg)
}

func TestRequestStats(t *testing.T) {
	s := newRequestStats(4)
	s.observe(time.Second, nil, time.Time{})
	assert.Zero(t, s.snapshot().requests, "disabled stats ignore requests")

	s.setEnabled(true)
	now := time.Unix(1700000000, 0)
	s.observe(100*time.Millisecond, nil, now)
	s.observe(300*time.Millisecond, errors.New("down"), now.Add(time.Second))

	snap := s.snapshot()
	assert.EqualValues(t, 2, snap.requests)
	assert.EqualValues(t, 1, snap.failures)
	assert.Equal(t, now.Add(time.Second).UnixNano(), snap.last.UnixNano())
	assert.Equal(t, 200*time.Millisecond, snap.latency.avg)
	assert.False(t, snap.started.IsZero())
}
