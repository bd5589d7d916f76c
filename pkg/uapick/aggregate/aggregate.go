package aggregate

import (
	"sort"
	"strings"
)

// BotDetector decides whether a user agent belongs to an automated client
type BotDetector interface {
	IsBot(userAgent string) bool
}

// Classifier assigns a category label to a user agent
type Classifier interface {
	Classify(userAgent string) string
}

// FrequencyTable maps a normalized user agent to how often it was seen.
// Keys are never empty and counts are always >= 1.
type FrequencyTable map[string]int64

// Entry is one row of a FrequencyTable
type Entry struct {
	Agent string
	Count int64
}

// Total returns the sum of all counts
func (ft FrequencyTable) Total() int64 {
	var total int64
	for _, c := range ft {
		total += c
	}
	return total
}

// Sorted returns the rows ordered by count descending, then agent ascending
func (ft FrequencyTable) Sorted() []Entry {
	entries := make([]Entry, 0, len(ft))
	for ua, c := range ft {
		entries = append(entries, Entry{Agent: ua, Count: c})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return entries[i].Agent < entries[j].Agent
	})
	return entries
}

// Clone returns an independent copy
func (ft FrequencyTable) Clone() FrequencyTable {
	out := make(FrequencyTable, len(ft))
	for k, v := range ft {
		out[k] = v
	}
	return out
}

// RejectStats counts raw strings that were not added, by reason
type RejectStats struct {
	Empty    int64
	NotAgent int64 // does not start with "Mozilla/"
	Bot      int64
}

// Total returns the number of rejected strings
func (r RejectStats) Total() int64 {
	return r.Empty + r.NotAgent + r.Bot
}

// Aggregator accumulates raw user agents into a FrequencyTable
type Aggregator struct {
	detector BotDetector
	counts   FrequencyTable
	total    int64
	rejected RejectStats
}

// New creates an aggregator. A nil detector disables bot filtering.
func New(detector BotDetector) *Aggregator {
	return &Aggregator{
		detector: detector,
		counts:   make(FrequencyTable),
	}
}

// Add normalizes a raw user agent and counts it unless it is filtered out.
// It reports whether the value was counted.
func (a *Aggregator) Add(userAgent string) bool {
	normalized := Normalize(userAgent)

	switch {
	case normalized == "":
		a.rejected.Empty++
		return false
	case !hasPrefixFold(normalized, "mozilla/"), strings.EqualFold(normalized, "Google"):
		a.rejected.NotAgent++
		return false
	case a.detector != nil && a.detector.IsBot(normalized):
		a.rejected.Bot++
		return false
	}

	a.counts[normalized]++
	a.total++
	return true
}

// Merge adds every count of another table. Keys are assumed to be normalized
// and filtered already.
func (a *Aggregator) Merge(ft FrequencyTable) {
	for ua, c := range ft {
		if ua == "" || c <= 0 {
			continue
		}
		a.counts[ua] += c
		a.total += c
	}
}

// Absorb merges the counts and rejection counters of other
func (a *Aggregator) Absorb(other *Aggregator) {
	a.Merge(other.counts)
	a.rejected.Empty += other.rejected.Empty
	a.rejected.NotAgent += other.rejected.NotAgent
	a.rejected.Bot += other.rejected.Bot
}

// Counts returns a copy of the accumulated table
func (a *Aggregator) Counts() FrequencyTable {
	return a.counts.Clone()
}

// Total returns the number of counted entries
func (a *Aggregator) Total() int64 {
	return a.total
}

// Unique returns the number of distinct user agents
func (a *Aggregator) Unique() int {
	return len(a.counts)
}

// Rejected returns the rejection counters
func (a *Aggregator) Rejected() RejectStats {
	return a.rejected
}

// Normalize trims a user agent and collapses internal runs of ASCII
// whitespace to a single space. Other Unicode spaces such as U+00A0 are part
// of the value and kept.
func Normalize(userAgent string) string {
	return strings.Join(strings.FieldsFunc(userAgent, isASCIISpace), " ")
}

func isASCIISpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}

// Partition splits a table by category. Labels outside known fall back to
// defaultLabel. Every label in known is present in the result, possibly empty.
func Partition(counts FrequencyTable, classifier Classifier, known []string, defaultLabel string) map[string]FrequencyTable {
	parts := make(map[string]FrequencyTable, len(known))
	for _, label := range known {
		parts[label] = make(FrequencyTable)
	}

	for ua, c := range counts {
		label := classifier.Classify(ua)
		if _, ok := parts[label]; !ok {
			label = defaultLabel
			if _, ok := parts[label]; !ok {
				parts[label] = make(FrequencyTable)
			}
		}
		parts[label][ua] = c
	}
	return parts
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}
