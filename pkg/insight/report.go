package insight

import (
	"time"

	"github.com/logflow/claimflow/pkg/sequence"
)

// Options tunes Build.
type Options struct {
	TopAgents      int
	TopSequences   int
	RareThreshold  int
	Separator      string
	CaseBins       int
	ComplexityBins int
	HighVarianceCV float64
}

// DefaultOptions mirrors the reference analysis: top 10 agents and
// sequences, sequences seen once are rare, 50 case-duration bins and 5
// complexity bins.
func DefaultOptions() Options {
	return Options{
		TopAgents:      10,
		TopSequences:   10,
		RareThreshold:  1,
		Separator:      DefaultSeparator,
		CaseBins:       50,
		ComplexityBins: 5,
		HighVarianceCV: 1.0,
	}
}

// Report bundles every aggregation of one run as plain data for renderers
// and exporters.
type Report struct {
	RunID       string    `json:"run_id"`
	Input       string    `json:"input"`
	GeneratedAt time.Time `json:"generated_at"`

	Events            int `json:"events"`
	Cases             int `json:"cases"`
	MissingTimestamps int `json:"missing_timestamps"`

	Activities        []ActivityFrequency `json:"activities"`
	ActivityDurations []ActivityDuration  `json:"activity_durations"`
	CaseDurations     CaseDurationReport  `json:"case_durations"`
	Complexity        ComplexityReport    `json:"case_complexity"`

	// Sequences holds every distinct sequence, most frequent first.
	Sequences     []SequenceCount `json:"sequences"`
	HappyPath     *SequenceCount  `json:"happy_path,omitempty"`
	RareSequences []SequenceCount `json:"rare_sequences"`
	RareThreshold int             `json:"rare_threshold"`
	TopSequences  int             `json:"top_sequences"`

	Agents   []AgentDelay  `json:"agent_delays"`
	Segments []Segment     `json:"segments"`
	Summary  []CaseSummary `json:"-"`
}

// Build runs every aggregation over s.
func Build(s *sequence.Sequenced, opts Options) *Report {
	def := DefaultOptions()
	if opts.TopAgents <= 0 {
		opts.TopAgents = def.TopAgents
	}
	if opts.TopSequences <= 0 {
		opts.TopSequences = def.TopSequences
	}
	if opts.RareThreshold <= 0 {
		opts.RareThreshold = def.RareThreshold
	}
	if opts.Separator == "" {
		opts.Separator = def.Separator
	}
	if opts.CaseBins <= 0 {
		opts.CaseBins = def.CaseBins
	}
	if opts.ComplexityBins <= 0 {
		opts.ComplexityBins = def.ComplexityBins
	}

	r := &Report{
		GeneratedAt:   time.Now().UTC(),
		Events:        len(s.Rows),
		Cases:         len(s.Cases),
		RareThreshold: opts.RareThreshold,
		TopSequences:  opts.TopSequences,
	}
	for i := range s.Rows {
		if !s.Rows[i].Stamp.Valid {
			r.MissingTimestamps++
		}
	}

	r.Activities = ActivityFrequencies(s)
	r.ActivityDurations = ActivityDurations(s, opts.HighVarianceCV)
	r.CaseDurations = CaseDurations(s, opts.CaseBins)
	r.Complexity = CaseComplexity(s, opts.ComplexityBins)

	r.Sequences = Sequences(s, opts.Separator)
	if hp, ok := HappyPath(r.Sequences); ok {
		r.HappyPath = &hp
	}
	r.RareSequences = Rare(r.Sequences, opts.RareThreshold)

	r.Agents = AgentDelays(s, opts.TopAgents)
	r.Summary = CaseSummaries(s)
	r.Segments = Segments(r.Summary)
	return r
}
