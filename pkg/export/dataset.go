package export

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/logflow/claimflow/internal/model"
	"github.com/logflow/claimflow/pkg/insight"
	"github.com/logflow/claimflow/pkg/sequence"
)

// Kind is the logical type of a dataset column.
type Kind uint8

const (
	KindString Kind = iota
	KindFloat
	KindInt
)

// Column describes one output column.
type Column struct {
	Name string
	Kind Kind
}

// Cell holds one value. Only the field matching the column kind is read;
// Null marks a missing numeric value.
type Cell struct {
	S    string
	F    float64
	I    int64
	Null bool
}

// Dataset is a rectangular table shared by every output format.
type Dataset struct {
	Name    string
	Columns []Column
	Rows    [][]Cell
}

// Text renders a cell for text formats. Floats keep millisecond precision
// and missing values are empty.
func (d *Dataset) Text(row, col int) string {
	c := d.Rows[row][col]
	switch d.Columns[col].Kind {
	case KindFloat:
		if c.Null {
			return ""
		}
		return strconv.FormatFloat(roundMillis(c.F), 'f', -1, 64)
	case KindInt:
		if c.Null {
			return ""
		}
		return strconv.FormatInt(c.I, 10)
	default:
		return c.S
	}
}

// Header returns the column names.
func (d *Dataset) Header() []string {
	out := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		out[i] = c.Name
	}
	return out
}

func roundMillis(v float64) float64 {
	return math.Round(v*1000) / 1000
}

func seconds(e model.Elapsed) Cell {
	v, ok := e.Seconds()
	if !ok {
		return Cell{Null: true}
	}
	return Cell{F: v}
}

// Derived event columns appended after the input columns.
const (
	ColParsedTimestamp  = "parsed_timestamp"
	ColNextTimestamp    = "next_timestamp"
	ColActivityDuration = "activity_duration"
)

// EventDataset is the event-level table: every input column in input order
// followed by the parsed timestamp, the next timestamp of the case and the
// activity duration, all in seconds. Rows follow the sequenced order.
// Column names are made unique, see uniqueNames.
func EventDataset(s *sequence.Sequenced) *Dataset {
	d := &Dataset{Name: "events"}
	for _, h := range s.Header {
		d.Columns = append(d.Columns, Column{Name: h, Kind: KindString})
	}
	d.Columns = append(d.Columns,
		Column{Name: ColParsedTimestamp, Kind: KindFloat},
		Column{Name: ColNextTimestamp, Kind: KindFloat},
		Column{Name: ColActivityDuration, Kind: KindFloat},
	)
	names := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		names[i] = c.Name
	}
	for i, name := range uniqueNames(names) {
		d.Columns[i].Name = name
	}

	width := len(s.Header)
	d.Rows = make([][]Cell, len(s.Rows))
	for i := range s.Rows {
		r := &s.Rows[i]
		row := make([]Cell, width+3)
		for j := 0; j < width && j < len(r.Event.Extra); j++ {
			row[j] = Cell{S: r.Event.Extra[j]}
		}
		row[width] = seconds(r.Stamp)
		row[width+1] = seconds(r.Next)
		row[width+2] = seconds(r.ActivityDuration)
		d.Rows[i] = row
	}
	return d
}

// uniqueNames makes names usable as table columns. A blank name becomes
// "Unnamed: <index>"; a name already taken, compared case-insensitively,
// gets the first free ".<n>" suffix.
func uniqueNames(names []string) []string {
	out := make([]string, len(names))
	taken := make(map[string]bool, len(names))
	for i, name := range names {
		if strings.TrimSpace(name) == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		candidate := name
		for n := 1; taken[strings.ToLower(candidate)]; n++ {
			candidate = fmt.Sprintf("%s.%d", name, n)
		}
		taken[strings.ToLower(candidate)] = true
		out[i] = candidate
	}
	return out
}

// CaseDataset is the case-level table, one row per case.
func CaseDataset(summaries []insight.CaseSummary) *Dataset {
	d := &Dataset{
		Name: "cases",
		Columns: []Column{
			{Name: model.ColCaseID, Kind: KindString},
			{Name: "min", Kind: KindFloat},
			{Name: "max", Kind: KindFloat},
			{Name: "case_duration_sec", Kind: KindFloat},
			{Name: model.ColPolicyType, Kind: KindString},
			{Name: model.ColAccidentType, Kind: KindString},
			{Name: model.ColCarYear, Kind: KindString},
		},
	}
	d.Rows = make([][]Cell, len(summaries))
	for i := range summaries {
		c := &summaries[i]
		d.Rows[i] = []Cell{
			{S: c.CaseID},
			seconds(c.Min),
			seconds(c.Max),
			seconds(c.Duration),
			{S: c.PolicyType},
			{S: c.AccidentType},
			{S: c.CarYear},
		}
	}
	return d
}

// SequenceDataset lists every distinct activity sequence with its count.
func SequenceDataset(counts []insight.SequenceCount) *Dataset {
	d := &Dataset{
		Name: "sequences",
		Columns: []Column{
			{Name: "activity_sequence", Kind: KindString},
			{Name: "count", Kind: KindInt},
			{Name: "percent", Kind: KindFloat},
		},
	}
	for _, c := range counts {
		d.Rows = append(d.Rows, []Cell{{S: c.Sequence}, {I: int64(c.Count)}, {F: c.Percent}})
	}
	return d
}

// AgentDataset lists the ranked agents.
func AgentDataset(agents []insight.AgentDelay) *Dataset {
	d := &Dataset{
		Name: "agents",
		Columns: []Column{
			{Name: model.ColAgent, Kind: KindString},
			{Name: "mean_activity_duration", Kind: KindFloat},
			{Name: "measured", Kind: KindInt},
			{Name: "events", Kind: KindInt},
		},
	}
	for _, a := range agents {
		mean := Cell{F: a.Mean}
		if a.Measured == 0 {
			mean = Cell{Null: true}
		}
		d.Rows = append(d.Rows, []Cell{{S: a.Agent}, mean, {I: int64(a.Measured)}, {I: int64(a.Events)}})
	}
	return d
}

// SegmentDataset flattens the metadata segments into one long table.
func SegmentDataset(segments []insight.Segment) *Dataset {
	d := &Dataset{
		Name: "segments",
		Columns: []Column{
			{Name: "dimension", Kind: KindString},
			{Name: "value", Kind: KindString},
			{Name: "cases", Kind: KindInt},
			{Name: "mean_case_duration", Kind: KindFloat},
			{Name: "median_case_duration", Kind: KindFloat},
			{Name: "max_case_duration", Kind: KindFloat},
		},
	}
	for _, seg := range segments {
		for _, g := range seg.Groups {
			stat := func(v float64) Cell {
				if g.Summary.Count == 0 {
					return Cell{Null: true}
				}
				return Cell{F: v}
			}
			d.Rows = append(d.Rows, []Cell{
				{S: seg.Dimension},
				{S: g.Value},
				{I: int64(g.Cases)},
				stat(g.Summary.Mean),
				stat(g.Summary.Median),
				stat(g.Summary.Max),
			})
		}
	}
	return d
}
