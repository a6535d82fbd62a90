package sequence

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logflow/claimflow/internal/elapsed"
	"github.com/logflow/claimflow/internal/model"
)

type ev struct {
	caseID, activity, ts string
}

func buildTable(events ...ev) (*model.Table, []model.Elapsed) {
	t := &model.Table{Header: []string{model.ColCaseID, model.ColActivity, model.ColTimestamp}}
	for i, e := range events {
		t.Events = append(t.Events, model.Event{
			Row:       i,
			CaseID:    e.caseID,
			Activity:  e.activity,
			Timestamp: e.ts,
			Extra:     []string{e.caseID, e.activity, e.ts},
		})
	}
	stamps, _ := elapsed.Normalize(t)
	return t, stamps
}

func run(t *testing.T, opts Options, events ...ev) *Sequenced {
	t.Helper()
	table, stamps := buildTable(events...)
	s, err := Sequence(context.Background(), table, stamps, opts)
	require.NoError(t, err)
	return s
}

func ms(n int64) time.Duration { return time.Duration(n) * time.Millisecond }

func TestSequence_TwoEventCase(t *testing.T) {
	s := run(t, Options{},
		ev{"1", "A", "0:10.000"},
		ev{"1", "B", "0:25.500"},
	)

	require.Len(t, s.Cases, 1)
	require.Len(t, s.Rows, 2)

	a := s.Rows[0]
	assert.Equal(t, "A", a.Event.Activity)
	require.True(t, a.ActivityDuration.Valid)
	assert.Equal(t, ms(15500), a.ActivityDuration.Value)

	assert.False(t, s.Rows[1].ActivityDuration.Valid, "last event has no next event")

	c := s.Cases[0]
	require.True(t, c.Duration.Valid)
	assert.Equal(t, ms(15500), c.Duration.Value)
	assert.Equal(t, model.DurationSpan, c.Status)
}

func TestSequence_SingleValidPoint(t *testing.T) {
	s := run(t, Options{},
		ev{"2", "X", "bad"},
		ev{"2", "Y", "1:00.000"},
	)

	require.Len(t, s.Rows, 2)
	// Missing timestamps sort last within the case.
	assert.Equal(t, "Y", s.Rows[0].Event.Activity)
	assert.Equal(t, "X", s.Rows[1].Event.Activity)
	assert.False(t, s.Rows[1].Stamp.Valid)

	// Y is followed by a missing stamp, X is last: neither has a duration.
	assert.False(t, s.Rows[0].ActivityDuration.Valid)
	assert.False(t, s.Rows[1].ActivityDuration.Valid)

	c := s.Cases[0]
	assert.Equal(t, model.DurationSinglePoint, c.Status)
	require.True(t, c.Duration.Valid)
	assert.Equal(t, time.Duration(0), c.Duration.Value)
}

func TestSequence_AllMissingIsUndefined(t *testing.T) {
	s := run(t, Options{},
		ev{"3", "X", "bad"},
		ev{"3", "Y", ""},
	)
	c := s.Cases[0]
	assert.Equal(t, model.DurationUndefined, c.Status)
	assert.False(t, c.Duration.Valid)
	assert.False(t, c.Min.Valid)
	assert.False(t, c.Max.Valid)
}

func TestSequence_SingleEventCase(t *testing.T) {
	s := run(t, Options{}, ev{"9", "Only", "0:05.000"})
	c := s.Cases[0]
	assert.Equal(t, model.DurationSinglePoint, c.Status)
	assert.Equal(t, model.Some(0), c.Duration)
	assert.False(t, s.Rows[0].ActivityDuration.Valid)
}

func TestSequence_OrdersCasesAndTimestamps(t *testing.T) {
	s := run(t, Options{},
		ev{"10", "C", "0:30.000"},
		ev{"2", "B", "0:20.000"},
		ev{"10", "A", "0:10.000"},
		ev{"2", "A", "0:05.000"},
		ev{"abc", "Z", "0:01.000"},
	)

	var got []string
	for _, r := range s.Rows {
		got = append(got, r.Event.CaseID+"/"+r.Event.Activity)
	}
	assert.Equal(t, []string{"2/A", "2/B", "10/A", "10/C", "abc/Z"}, got)

	require.Len(t, s.Cases, 3)
	assert.Equal(t, "2", s.Cases[0].ID)
	assert.Equal(t, "10", s.Cases[1].ID)
	assert.Equal(t, "abc", s.Cases[2].ID)
	assert.Equal(t, []string{"A", "C"}, s.Activities(1))
	for i, r := range s.Rows {
		assert.Equal(t, r.Event.CaseID, s.Cases[r.Case].ID, "row %d case index", i)
	}
}

func TestSequence_StableForTies(t *testing.T) {
	s := run(t, Options{},
		ev{"1", "first", "0:10.000"},
		ev{"1", "second", "0:10.000"},
		ev{"1", "third", "0:10.000"},
	)
	assert.Equal(t, []string{"first", "second", "third"}, s.Activities(0))
	assert.Equal(t, model.Some(0), s.Rows[0].ActivityDuration)
}

func TestSequence_NMinusOneDefinedDurations(t *testing.T) {
	events := []ev{
		{"7", "A", "0:01.000"},
		{"7", "B", "0:03.250"},
		{"7", "C", "0:02.000"},
		{"7", "D", "1:00.000"},
		{"8", "A", "0:00.000"},
		{"8", "B", "0:00.001"},
	}
	s := run(t, Options{}, events...)

	for ci := range s.Cases {
		rows := s.CaseRows(ci)
		defined := 0
		for _, r := range rows {
			if r.ActivityDuration.Valid {
				defined++
				assert.GreaterOrEqual(t, r.ActivityDuration.Value, time.Duration(0))
			}
		}
		assert.Equal(t, len(rows)-1, defined, "case %s", s.Cases[ci].ID)
		assert.False(t, rows[len(rows)-1].ActivityDuration.Valid)
		assert.GreaterOrEqual(t, s.Cases[ci].Duration.Value, time.Duration(0))
	}
	assert.Equal(t, ms(59000), s.Cases[0].Duration.Value)
}

func TestSequence_ParallelMatchesSequential(t *testing.T) {
	var events []ev
	for c := 0; c < 40; c++ {
		for k := 5; k > 0; k-- {
			events = append(events, ev{
				caseID:   string(rune('a'+c%26)) + string(rune('a'+c/26)),
				activity: string(rune('A' + k)),
				ts:       "0:" + string(rune('0'+k)) + "0.000",
			})
		}
	}

	seq := run(t, Options{}, events...)
	par := run(t, Options{Workers: 4}, events...)

	require.Equal(t, len(seq.Rows), len(par.Rows))
	for i := range seq.Rows {
		assert.Equal(t, seq.Rows[i].Event, par.Rows[i].Event)
		assert.Equal(t, seq.Rows[i].ActivityDuration, par.Rows[i].ActivityDuration)
	}
	assert.Equal(t, seq.Cases, par.Cases)
}

func TestSequence_LengthMismatch(t *testing.T) {
	table, _ := buildTable(ev{"1", "A", "0:01.000"})
	_, err := Sequence(context.Background(), table, nil, Options{})
	assert.Error(t, err)
}

func TestSequence_Canceled(t *testing.T) {
	table, stamps := buildTable(ev{"1", "A", "0:01.000"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Sequence(ctx, table, stamps, Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCompareCaseIDs(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"2", "10", -1},
		{"10", "2", 1},
		{"007", "7", -1}, // numeric tie falls back to byte order
		{"5", "abc", -1},
		{"abc", "5", 1},
		{"abc", "abd", -1},
		{"x", "x", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CompareCaseIDs(tt.a, tt.b), "CompareCaseIDs(%q, %q)", tt.a, tt.b)
	}
}
