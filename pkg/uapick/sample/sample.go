// Package sample turns a frequency table into a fixed-size weighted sample
// and persists it as a line file plus a byte-offset index.
package sample

import (
	"math/bits"
	"sort"

	"github.com/cognicore/uapick/pkg/uapick/aggregate"
)

// Share is how many times one user agent appears in a sample
type Share struct {
	Agent       string
	Occurrences int
}

// Allocation is an ordered list of shares. Every share has Occurrences >= 1
// and agents are unique.
type Allocation []Share

// Total returns the number of lines the allocation expands to
func (a Allocation) Total() int {
	n := 0
	for _, s := range a {
		n += s.Occurrences
	}
	return n
}

// Map returns the allocation as agent -> occurrences
func (a Allocation) Map() map[string]int {
	m := make(map[string]int, len(a))
	for _, s := range a {
		m[s.Agent] = s.Occurrences
	}
	return m
}

type remainder struct {
	index int    // position in the base allocation
	rem   uint64 // numerator over total; same denominator for all records
	count int64
	agent string
}

// Build apportions size sample slots across the table proportionally to each
// count using the largest-remainder method.
//
// Each agent first gets floor(count/total*size) slots. Leftover slots go one
// each to the agents with the largest fractional remainder, ties broken by
// higher count and then by agent in ascending byte order, so the result is
// fully determined by the input. Agents left with zero slots are dropped.
// The result is ordered by count descending, then agent ascending.
//
// Shares are computed in exact integer arithmetic: the remainder of
// count*size/total is compared as a numerator over the common denominator
// total, so no floating-point rounding can reorder ties.
func Build(counts aggregate.FrequencyTable, size int) Allocation {
	if size <= 0 || len(counts) == 0 {
		return Allocation{}
	}

	var total uint64
	for _, c := range counts {
		if c > 0 {
			total += uint64(c)
		}
	}
	if total == 0 {
		return Allocation{}
	}

	entries := counts.Sorted()

	base := make([]Share, 0, len(entries))
	rems := make([]remainder, 0, len(entries))
	assigned := 0

	for _, e := range entries {
		if e.Count <= 0 {
			continue
		}
		hi, lo := bits.Mul64(uint64(e.Count), uint64(size))
		quo, rem := bits.Div64(hi, lo, total)

		base = append(base, Share{Agent: e.Agent, Occurrences: int(quo)})
		assigned += int(quo)
		rems = append(rems, remainder{
			index: len(base) - 1,
			rem:   rem,
			count: e.Count,
			agent: e.Agent,
		})
	}

	slotsRemaining := size - assigned
	if slotsRemaining > 0 {
		sort.Slice(rems, func(i, j int) bool {
			if rems[i].rem != rems[j].rem {
				return rems[i].rem > rems[j].rem
			}
			if rems[i].count != rems[j].count {
				return rems[i].count > rems[j].count
			}
			return rems[i].agent < rems[j].agent
		})

		for i := 0; i < slotsRemaining && i < len(rems); i++ {
			base[rems[i].index].Occurrences++
		}
	}

	out := make(Allocation, 0, len(base))
	for _, s := range base {
		if s.Occurrences > 0 {
			out = append(out, s)
		}
	}
	return out
}
