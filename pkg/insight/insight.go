// Package insight computes read-only aggregations over a sequenced claims log:
// activity and case duration distributions, case complexity, sequence mining,
// agent delay ranking and metadata-segmented case durations.
//
// Every function here is a pure function of its inputs and may run in any
// order or concurrently.
package insight

import (
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/logflow/claimflow/internal/model"
	"github.com/logflow/claimflow/pkg/sequence"
)

// DefaultSeparator joins activity names into a sequence key.
const DefaultSeparator = "->"

// ActivityDuration is the duration distribution of one activity.
type ActivityDuration struct {
	Activity string  `json:"activity"`
	Summary  Summary `json:"summary"`
	// HighVariance is set when the coefficient of variation reaches the
	// configured threshold.
	HighVariance bool `json:"high_variance"`
}

// ActivityDurations groups activity durations by activity name. Rows whose
// duration is missing (last of their case or unparseable timestamps) count
// as Missing. Results are ordered by median descending, then name.
func ActivityDurations(s *sequence.Sequenced, highVarianceCV float64) []ActivityDuration {
	type acc struct {
		values  []float64
		missing int
	}
	groups := make(map[string]*acc)
	for i := range s.Rows {
		r := &s.Rows[i]
		a, ok := groups[r.Event.Activity]
		if !ok {
			a = &acc{}
			groups[r.Event.Activity] = a
		}
		if v, ok := r.ActivityDuration.Seconds(); ok {
			a.values = append(a.values, v)
		} else {
			a.missing++
		}
	}

	out := make([]ActivityDuration, 0, len(groups))
	for name, a := range groups {
		sum := Summarize(a.values, a.missing)
		out = append(out, ActivityDuration{
			Activity:     name,
			Summary:      sum,
			HighVariance: sum.Count > 1 && highVarianceCV > 0 && sum.CV >= highVarianceCV,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Summary.Median != out[j].Summary.Median {
			return out[i].Summary.Median > out[j].Summary.Median
		}
		return out[i].Activity < out[j].Activity
	})
	return out
}

// CaseDurationReport is the distribution of case durations.
type CaseDurationReport struct {
	Summary   Summary `json:"summary"`
	Histogram []Bin   `json:"histogram"`
	// SinglePoint counts cases with exactly one valid timestamp (duration 0).
	SinglePoint int `json:"single_point"`
	// Undefined counts cases without any valid timestamp (duration missing).
	Undefined int `json:"undefined"`
}

// CaseDurations summarizes per-case durations in seconds.
func CaseDurations(s *sequence.Sequenced, bins int) CaseDurationReport {
	var rep CaseDurationReport
	values := make([]float64, 0, len(s.Cases))
	for i := range s.Cases {
		c := &s.Cases[i]
		switch c.Status {
		case model.DurationUndefined:
			rep.Undefined++
			continue
		case model.DurationSinglePoint:
			rep.SinglePoint++
		}
		values = append(values, c.Duration.Value.Seconds())
	}
	rep.Histogram = Histogram(values, bins)
	rep.Summary = Summarize(values, rep.Undefined)
	return rep
}

// CountFrequency is how many cases have a given number of events.
type CountFrequency struct {
	Events int `json:"events"`
	Cases  int `json:"cases"`
}

// ComplexityReport is the distribution of events per case.
type ComplexityReport struct {
	Summary     Summary          `json:"summary"`
	Histogram   []Bin            `json:"histogram"`
	Frequencies []CountFrequency `json:"frequencies"`
}

// CaseComplexity counts events per case.
func CaseComplexity(s *sequence.Sequenced, bins int) ComplexityReport {
	values := make([]float64, len(s.Cases))
	freq := make(map[int]int)
	for i := range s.Cases {
		n := s.Cases[i].Len()
		values[i] = float64(n)
		freq[n]++
	}

	var rep ComplexityReport
	rep.Histogram = Histogram(values, bins)
	rep.Summary = Summarize(values, 0)
	for n, c := range freq {
		rep.Frequencies = append(rep.Frequencies, CountFrequency{Events: n, Cases: c})
	}
	sort.Slice(rep.Frequencies, func(i, j int) bool {
		return rep.Frequencies[i].Events < rep.Frequencies[j].Events
	})
	return rep
}

// SequenceCount is the number of cases following one exact activity sequence.
type SequenceCount struct {
	Sequence string  `json:"activity_sequence"`
	Count    int     `json:"count"`
	Percent  float64 `json:"percent"`
}

// SequenceKey joins activity names in order. Two cases share a sequence iff
// their keys are equal.
func SequenceKey(activities []string, sep string) string {
	return strings.Join(activities, sep)
}

// Sequences counts distinct sequence keys across cases, ordered by count
// descending then key ascending. Counts sum to the number of cases.
func Sequences(s *sequence.Sequenced, sep string) []SequenceCount {
	if sep == "" {
		sep = DefaultSeparator
	}
	counts := make(map[string]int)
	for i := range s.Cases {
		counts[SequenceKey(s.Activities(i), sep)]++
	}

	total := len(s.Cases)
	out := make([]SequenceCount, 0, len(counts))
	for key, n := range counts {
		out = append(out, SequenceCount{
			Sequence: key,
			Count:    n,
			Percent:  percent(n, total),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Sequence < out[j].Sequence
	})
	return out
}

// HappyPath returns the most frequent sequence.
func HappyPath(counts []SequenceCount) (SequenceCount, bool) {
	if len(counts) == 0 {
		return SequenceCount{}, false
	}
	return counts[0], true
}

// Rare returns the sequences followed by at most threshold cases, keeping
// the input order. threshold 1 selects sequences seen exactly once.
func Rare(counts []SequenceCount, threshold int) []SequenceCount {
	var out []SequenceCount
	for _, c := range counts {
		if c.Count <= threshold {
			out = append(out, c)
		}
	}
	return out
}

// Top returns at most n leading entries.
func Top[T any](items []T, n int) []T {
	if n < 0 || n >= len(items) {
		return items
	}
	return items[:n]
}

// AgentDelay is the mean activity duration of one agent.
type AgentDelay struct {
	Agent string `json:"agent_name"`
	// Mean is in seconds and only meaningful when Measured > 0.
	Mean     float64 `json:"mean_activity_duration"`
	Measured int     `json:"measured"`
	Events   int     `json:"events"`
}

// AgentDelays ranks agents by mean activity duration, descending. Missing
// durations are ignored; agents with no defined duration rank last.
func AgentDelays(s *sequence.Sequenced, topN int) []AgentDelay {
	type acc struct {
		values []float64
		events int
	}
	groups := make(map[string]*acc)
	for i := range s.Rows {
		r := &s.Rows[i]
		a, ok := groups[r.Event.Agent]
		if !ok {
			a = &acc{}
			groups[r.Event.Agent] = a
		}
		a.events++
		if v, ok := r.ActivityDuration.Seconds(); ok {
			a.values = append(a.values, v)
		}
	}

	out := make([]AgentDelay, 0, len(groups))
	for name, a := range groups {
		d := AgentDelay{Agent: name, Measured: len(a.values), Events: a.events}
		if d.Measured > 0 {
			d.Mean = stat.Mean(a.values, nil)
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		mi, mj := out[i].Measured > 0, out[j].Measured > 0
		if mi != mj {
			return mi
		}
		if out[i].Mean != out[j].Mean {
			return out[i].Mean > out[j].Mean
		}
		return out[i].Agent < out[j].Agent
	})
	return Top(out, topN)
}

// ActivityFrequency is how often an activity occurs across the log.
type ActivityFrequency struct {
	Activity string  `json:"activity"`
	Count    int     `json:"count"`
	Percent  float64 `json:"percent"`
}

// ActivityFrequencies counts activity occurrences, most frequent first.
func ActivityFrequencies(s *sequence.Sequenced) []ActivityFrequency {
	counts := make(map[string]int)
	for i := range s.Rows {
		counts[s.Rows[i].Event.Activity]++
	}
	out := make([]ActivityFrequency, 0, len(counts))
	for name, n := range counts {
		out = append(out, ActivityFrequency{Activity: name, Count: n, Percent: percent(n, len(s.Rows))})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Activity < out[j].Activity
	})
	return out
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) * 100 / float64(total)
}
