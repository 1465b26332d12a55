package main

import (
	"errors"
	"fmt"
)

// chartHandle is a live chart bound to one slot. Destroy releases whatever
// the chart holds and must be called exactly once.
type chartHandle interface {
	View(width, height int) string
	Destroy()
}

type chartSlot int

const (
	slotDistribution chartSlot = iota
	slotSecurity
	numChartSlots
)

func (s chartSlot) String() string {
	switch s {
	case slotDistribution:
		return "distribution"
	case slotSecurity:
		return "security"
	}
	return fmt.Sprintf("slot(%d)", int(s))
}

var errNilHandle = errors.New("chart factory returned no handle")

// chartManager owns the chart handles. A slot never holds more than one
// live handle: the previous one is destroyed before a factory runs.
type chartManager struct {
	slots [numChartSlots]chartHandle
}

func (m *chartManager) Set(slot chartSlot, factory func() (chartHandle, error)) error {
	if slot < 0 || slot >= numChartSlots {
		return fmt.Errorf("unknown chart slot %v", slot)
	}
	m.Clear(slot)
	h, err := factory()
	if err != nil {
		return fmt.Errorf("create %s chart: %w", slot, err)
	}
	if h == nil {
		return fmt.Errorf("create %s chart: %w", slot, errNilHandle)
	}
	m.slots[slot] = h
	return nil
}

func (m *chartManager) Clear(slot chartSlot) {
	if slot < 0 || slot >= numChartSlots {
		return
	}
	if h := m.slots[slot]; h != nil {
		m.slots[slot] = nil
		h.Destroy()
	}
}

func (m *chartManager) ClearAll() {
	for s := range numChartSlots {
		m.Clear(s)
	}
}

func (m *chartManager) Handle(slot chartSlot) chartHandle {
	if slot < 0 || slot >= numChartSlots {
		return nil
	}
	return m.slots[slot]
}

// Live counts installed handles.
func (m *chartManager) Live() int {
	n := 0
	for _, h := range m.slots {
		if h != nil {
			n++
		}
	}
	return n
}
