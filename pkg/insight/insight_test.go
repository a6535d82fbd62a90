package insight

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logflow/claimflow/internal/elapsed"
	"github.com/logflow/claimflow/internal/model"
	"github.com/logflow/claimflow/pkg/sequence"
)

type row struct {
	caseID, activity, ts, agent, policy, accident, year string
}

func sequenced(t *testing.T, rows ...row) *sequence.Sequenced {
	t.Helper()
	table := &model.Table{}
	for i, r := range rows {
		table.Events = append(table.Events, model.Event{
			Row:          i,
			CaseID:       r.caseID,
			Activity:     r.activity,
			Timestamp:    r.ts,
			Agent:        r.agent,
			PolicyType:   r.policy,
			AccidentType: r.accident,
			CarYear:      r.year,
		})
	}
	stamps, _ := elapsed.Normalize(table)
	s, err := sequence.Sequence(context.Background(), table, stamps, sequence.Options{})
	require.NoError(t, err)
	return s
}

func TestSequences_HappyPathAndRare(t *testing.T) {
	s := sequenced(t,
		row{caseID: "1", activity: "A", ts: "0:01.000"},
		row{caseID: "1", activity: "B", ts: "0:02.000"},
		row{caseID: "1", activity: "C", ts: "0:03.000"},
		row{caseID: "2", activity: "A", ts: "0:01.000"},
		row{caseID: "2", activity: "B", ts: "0:02.000"},
		row{caseID: "2", activity: "C", ts: "0:03.000"},
		row{caseID: "3", activity: "A", ts: "0:01.000"},
		row{caseID: "3", activity: "C", ts: "0:09.000"},
	)

	counts := Sequences(s, DefaultSeparator)
	require.Len(t, counts, 2)
	assert.Equal(t, "A->B->C", counts[0].Sequence)
	assert.Equal(t, 2, counts[0].Count)
	assert.Equal(t, "A->C", counts[1].Sequence)
	assert.Equal(t, 1, counts[1].Count)

	total := 0
	for _, c := range counts {
		total += c.Count
	}
	assert.Equal(t, len(s.Cases), total, "every case contributes to exactly one sequence")

	rare := Rare(counts, 1)
	require.Len(t, rare, 1)
	assert.Equal(t, "A->C", rare[0].Sequence)

	hp, ok := HappyPath(counts)
	require.True(t, ok)
	assert.Equal(t, "A->B->C", hp.Sequence)
	assert.InDelta(t, 66.667, hp.Percent, 0.001)
}

func TestRare_Threshold(t *testing.T) {
	counts := []SequenceCount{{"a", 5, 0}, {"b", 2, 0}, {"c", 1, 0}}
	assert.Len(t, Rare(counts, 1), 1)
	assert.Len(t, Rare(counts, 2), 2)
	assert.Empty(t, Rare(nil, 1))
}

func TestSequenceKey_OrderMatters(t *testing.T) {
	assert.NotEqual(t, SequenceKey([]string{"A", "B"}, "->"), SequenceKey([]string{"B", "A"}, "->"))
	assert.Equal(t, "A|B", SequenceKey([]string{"A", "B"}, "|"))
}

func TestCaseSummaries_DuplicateMetadataRows(t *testing.T) {
	s := sequenced(t,
		row{"5", "A", "0:01.000", "ann", "Gold", "Rear", "2018"},
		row{"5", "B", "0:04.000", "bob", "Gold", "Rear", "2018"},
		row{"5", "C", "0:09.500", "ann", "Gold", "Rear", "2018"},
		row{"6", "A", "0:00.000", "bob", "Basic", "Side", "2020"},
	)

	meta := DedupMetadata(s.Rows)
	require.Len(t, meta, 2, "one metadata row per case")
	assert.Equal(t, "5", meta[0].CaseID)
	assert.Equal(t, "Gold", meta[0].PolicyType)

	sum := JoinCases(s.Cases, meta)
	require.Len(t, sum, 2, "join must not multiply rows")
	assert.Equal(t, "5", sum[0].CaseID)
	assert.Equal(t, 3, sum[0].Events)
	v, ok := sum[0].Duration.Seconds()
	require.True(t, ok)
	assert.InDelta(t, 8.5, v, 1e-9)
	assert.Equal(t, "2018", sum[0].CarYear)
}

func TestDedupMetadata_FirstOccurrenceWins(t *testing.T) {
	s := sequenced(t,
		row{"1", "A", "0:02.000", "x", "Late", "Rear", "2019"},
		row{"1", "B", "0:01.000", "x", "Early", "Rear", "2019"},
	)
	meta := DedupMetadata(s.Rows)
	require.Len(t, meta, 1)
	// First in sorted order, which is the earlier timestamp.
	assert.Equal(t, "Early", meta[0].PolicyType)
}

func TestJoinCases_SkipsCasesWithoutMetadata(t *testing.T) {
	cases := []sequence.Case{{ID: "1"}, {ID: "2"}}
	meta := []CaseMetadata{{CaseID: "2"}}
	sum := JoinCases(cases, meta)
	require.Len(t, sum, 1)
	assert.Equal(t, "2", sum[0].CaseID)
}

func TestActivityDurations(t *testing.T) {
	s := sequenced(t,
		row{caseID: "1", activity: "Report", ts: "0:00.000"},
		row{caseID: "1", activity: "Review", ts: "0:10.000"},
		row{caseID: "1", activity: "Pay", ts: "0:12.000"},
		row{caseID: "2", activity: "Report", ts: "0:00.000"},
		row{caseID: "2", activity: "Review", ts: "0:30.000"},
		row{caseID: "2", activity: "Pay", ts: "0:31.000"},
	)

	got := ActivityDurations(s, 1.0)
	require.Len(t, got, 3)

	byName := map[string]ActivityDuration{}
	for _, a := range got {
		byName[a.Activity] = a
	}
	report := byName["Report"].Summary
	assert.Equal(t, 2, report.Count)
	assert.InDelta(t, 20.0, report.Mean, 1e-9)
	assert.InDelta(t, 10.0, report.Min, 1e-9)
	assert.InDelta(t, 30.0, report.Max, 1e-9)

	pay := byName["Pay"].Summary
	assert.Equal(t, 0, pay.Count)
	assert.Equal(t, 2, pay.Missing, "last event of every case has no duration")

	assert.Equal(t, "Report", got[0].Activity, "ordered by median descending")
}

func TestCaseDurations_CountsStatuses(t *testing.T) {
	s := sequenced(t,
		row{caseID: "1", activity: "A", ts: "0:00.000"},
		row{caseID: "1", activity: "B", ts: "0:10.000"},
		row{caseID: "2", activity: "A", ts: "0:05.000"},
		row{caseID: "3", activity: "A", ts: "bad"},
	)

	rep := CaseDurations(s, 50)
	assert.Equal(t, 2, rep.Summary.Count)
	assert.Equal(t, 1, rep.Summary.Missing)
	assert.Equal(t, 1, rep.SinglePoint)
	assert.Equal(t, 1, rep.Undefined)
	assert.InDelta(t, 5.0, rep.Summary.Mean, 1e-9)
	assert.Len(t, rep.Histogram, 50)
}

func TestCaseComplexity(t *testing.T) {
	s := sequenced(t,
		row{caseID: "1", activity: "A", ts: "0:00.000"},
		row{caseID: "1", activity: "B", ts: "0:01.000"},
		row{caseID: "2", activity: "A", ts: "0:00.000"},
		row{caseID: "3", activity: "A", ts: "0:00.000"},
	)
	rep := CaseComplexity(s, 5)
	assert.Equal(t, []CountFrequency{{Events: 1, Cases: 2}, {Events: 2, Cases: 1}}, rep.Frequencies)
	assert.InDelta(t, 4.0/3.0, rep.Summary.Mean, 1e-9)
}

func TestAgentDelays(t *testing.T) {
	s := sequenced(t,
		row{caseID: "1", activity: "A", ts: "0:00.000", agent: "slow"},
		row{caseID: "1", activity: "B", ts: "0:50.000", agent: "fast"},
		row{caseID: "1", activity: "C", ts: "0:51.000", agent: "idle"},
		row{caseID: "2", activity: "A", ts: "0:00.000", agent: "slow"},
		row{caseID: "2", activity: "B", ts: "0:30.000", agent: "fast"},
		row{caseID: "2", activity: "C", ts: "0:35.000", agent: "fast"},
	)

	got := AgentDelays(s, 10)
	require.Len(t, got, 3)
	assert.Equal(t, "slow", got[0].Agent)
	assert.InDelta(t, 40.0, got[0].Mean, 1e-9)
	assert.Equal(t, "fast", got[1].Agent)
	assert.InDelta(t, 3.0, got[1].Mean, 1e-9)
	assert.Equal(t, 3, got[1].Events)
	assert.Equal(t, 2, got[1].Measured)
	assert.Equal(t, "idle", got[2].Agent, "agents without durations rank last")
	assert.Equal(t, 0, got[2].Measured)

	assert.Len(t, AgentDelays(s, 1), 1)
}

func TestSegments(t *testing.T) {
	s := sequenced(t,
		row{"1", "A", "0:00.000", "a", "Gold", "Rear", "2018"},
		row{"1", "B", "0:20.000", "a", "Gold", "Rear", "2018"},
		row{"2", "A", "0:00.000", "a", "Gold", "Side", "2020"},
		row{"2", "B", "0:10.000", "a", "Gold", "Side", "2020"},
		row{"3", "A", "0:00.000", "a", "Basic", "Rear", "2018"},
		row{"3", "B", "0:02.000", "a", "Basic", "Rear", "2018"},
	)

	segs := Segments(CaseSummaries(s))
	require.Len(t, segs, 3)
	assert.Equal(t, DimPolicyType, segs[0].Dimension)
	assert.Equal(t, DimAccidentType, segs[1].Dimension)
	assert.Equal(t, DimCarYear, segs[2].Dimension)

	policy := segs[0].Groups
	require.Len(t, policy, 2)
	assert.Equal(t, "Gold", policy[0].Value)
	assert.Equal(t, 2, policy[0].Cases)
	assert.InDelta(t, 15.0, policy[0].Summary.Mean, 1e-9)
	assert.Equal(t, "Basic", policy[1].Value)

	accident := segs[1].Groups
	require.Len(t, accident, 2)
	assert.Equal(t, "Rear", accident[0].Value)
	assert.InDelta(t, 11.0, accident[0].Summary.Mean, 1e-9)
	assert.Equal(t, 2, accident[0].Cases)
}

func TestBuild(t *testing.T) {
	s := sequenced(t,
		row{"1", "A", "0:00.000", "a", "Gold", "Rear", "2018"},
		row{"1", "B", "0:20.000", "b", "Gold", "Rear", "2018"},
		row{"2", "A", "bad", "a", "Basic", "Side", "2020"},
	)
	r := Build(s, Options{})
	assert.Equal(t, 3, r.Events)
	assert.Equal(t, 2, r.Cases)
	assert.Equal(t, 1, r.MissingTimestamps)
	require.NotNil(t, r.HappyPath)
	assert.Equal(t, 1, r.RareThreshold)
	assert.Len(t, r.Summary, 2)
	assert.Len(t, r.Segments, 3)
	assert.Len(t, r.RareSequences, 2)
}
