package main

import (
	"sort"

	"github.com/keilerkonzept/topk/heap"
	"github.com/keilerkonzept/topk/sliding"
)

// repeatRanker finds the output values an S-Box produces more than once.
// A bijective table has none.
type repeatRanker struct {
	k     int
	width int
	depth int
}

func newRepeatRanker(k int) *repeatRanker {
	if k < 1 {
		k = 1
	}
	return &repeatRanker{
		k:     k,
		width: sboxSize * 4,
		depth: 3,
	}
}

// Rank feeds the bucket counts through a fresh sketch and returns the top
// repeated values, highest count first and lowest value first on ties. The
// sketch holds every value, and counts are taken from counts, not from the
// sketch estimate.
func (r *repeatRanker) Rank(counts [sboxSize]int) []heap.Item {
	sketch := sliding.New(sboxSize, 1,
		sliding.WithWidth(r.width),
		sliding.WithDepth(r.depth),
	)
	byName := make(map[string]int)
	for v, n := range counts {
		if n < 2 {
			continue
		}
		name := hexByte(v)
		byName[name] = v
		sketch.Add(name, uint32(n))
	}

	out := make([]heap.Item, 0, len(byName))
	for _, it := range sketch.SortedSlice() {
		v, ok := byName[it.Item]
		if !ok {
			continue
		}
		delete(byName, it.Item)
		it.Count = uint32(counts[v])
		out = append(out, it)
	}
	for name, v := range byName {
		debugf("ranking: %s missing from sketch", name)
		out = append(out, heap.Item{Item: name, Count: uint32(counts[v])})
	}
	sort.SliceStable(out, func(i, j int) bool {
		li := out[i]
		lj := out[j]
		if li.Count != lj.Count {
			return li.Count > lj.Count
		}
		return li.Item < lj.Item
	})
	if len(out) > r.k {
		out = out[:r.k]
	}
	return out
}
