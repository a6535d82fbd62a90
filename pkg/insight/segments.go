package insight

import (
	"sort"

	"github.com/logflow/claimflow/internal/model"
	"github.com/logflow/claimflow/pkg/sequence"
)

// CaseMetadata is the single metadata row kept for a case.
type CaseMetadata struct {
	CaseID string `json:"case_id"`
	model.Metadata
}

// DedupMetadata keeps the first metadata row of every case in sorted row
// order, so each case id appears exactly once regardless of how many events
// repeat it.
func DedupMetadata(rows []sequence.Row) []CaseMetadata {
	seen := make(map[string]struct{})
	var out []CaseMetadata
	for i := range rows {
		ev := rows[i].Event
		if _, ok := seen[ev.CaseID]; ok {
			continue
		}
		seen[ev.CaseID] = struct{}{}
		out = append(out, CaseMetadata{CaseID: ev.CaseID, Metadata: model.MetadataOf(ev)})
	}
	return out
}

// CaseSummary is one row of the case-level table.
type CaseSummary struct {
	CaseID   string               `json:"case_id"`
	Min      model.Elapsed        `json:"-"`
	Max      model.Elapsed        `json:"-"`
	Duration model.Elapsed        `json:"-"`
	Status   model.DurationStatus `json:"-"`
	Events   int                  `json:"events"`
	model.Metadata
}

// JoinCases inner-joins case aggregates with deduplicated metadata on case
// id, preserving case order. Metadata must hold at most one row per case id.
func JoinCases(cases []sequence.Case, meta []CaseMetadata) []CaseSummary {
	byID := make(map[string]model.Metadata, len(meta))
	for _, m := range meta {
		byID[m.CaseID] = m.Metadata
	}

	out := make([]CaseSummary, 0, len(cases))
	for i := range cases {
		c := &cases[i]
		md, ok := byID[c.ID]
		if !ok {
			continue
		}
		out = append(out, CaseSummary{
			CaseID:   c.ID,
			Min:      c.Min,
			Max:      c.Max,
			Duration: c.Duration,
			Status:   c.Status,
			Events:   c.Len(),
			Metadata: md,
		})
	}
	return out
}

// CaseSummaries deduplicates metadata and joins it with the case aggregates.
func CaseSummaries(s *sequence.Sequenced) []CaseSummary {
	return JoinCases(s.Cases, DedupMetadata(s.Rows))
}

// Segmentation dimensions.
const (
	DimPolicyType   = model.ColPolicyType
	DimAccidentType = model.ColAccidentType
	DimCarYear      = model.ColCarYear
)

// SegmentGroup is the case duration distribution of one dimension value.
type SegmentGroup struct {
	Value   string  `json:"value"`
	Cases   int     `json:"cases"`
	Summary Summary `json:"summary"`
}

// Segment groups cases by one metadata dimension.
type Segment struct {
	Dimension string         `json:"dimension"`
	Groups    []SegmentGroup `json:"groups"`
}

// Segments compares case durations across policy type, accident type and car
// year independently. Cases with undefined duration count as Missing in their
// group. Groups are ordered by mean descending, then value.
func Segments(summaries []CaseSummary) []Segment {
	dims := []struct {
		name string
		key  func(*CaseSummary) string
	}{
		{DimPolicyType, func(c *CaseSummary) string { return c.PolicyType }},
		{DimAccidentType, func(c *CaseSummary) string { return c.AccidentType }},
		{DimCarYear, func(c *CaseSummary) string { return c.CarYear }},
	}

	out := make([]Segment, 0, len(dims))
	for _, d := range dims {
		out = append(out, Segment{Dimension: d.name, Groups: segmentBy(summaries, d.key)})
	}
	return out
}

func segmentBy(summaries []CaseSummary, key func(*CaseSummary) string) []SegmentGroup {
	type acc struct {
		values  []float64
		missing int
		cases   int
	}
	groups := make(map[string]*acc)
	for i := range summaries {
		c := &summaries[i]
		k := key(c)
		a, ok := groups[k]
		if !ok {
			a = &acc{}
			groups[k] = a
		}
		a.cases++
		if v, ok := c.Duration.Seconds(); ok {
			a.values = append(a.values, v)
		} else {
			a.missing++
		}
	}

	out := make([]SegmentGroup, 0, len(groups))
	for value, a := range groups {
		out = append(out, SegmentGroup{Value: value, Cases: a.cases, Summary: Summarize(a.values, a.missing)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Summary.Mean != out[j].Summary.Mean {
			return out[i].Summary.Mean > out[j].Summary.Mean
		}
		return out[i].Value < out[j].Value
	})
	return out
}
