// Package sequence orders an event log by case and elapsed time and derives
// activity and case durations.
//
// Ordering policy: cases ascend by case id (numeric when both ids are base-10
// integers, numeric ids first, otherwise byte order). Within a case rows ascend
// by normalized timestamp with missing timestamps last; equal and missing
// timestamps keep input order. Because missing timestamps trail their case, a
// row is followed by a missing timestamp only when it is the last valid one,
// and its activity duration is then missing.
package sequence

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/logflow/claimflow/internal/model"
)

// Row is one event with its derived timing.
type Row struct {
	Event *model.Event

	// Stamp is the normalized timestamp.
	Stamp model.Elapsed

	// Next is the normalized timestamp of the following row in the same case.
	Next model.Elapsed

	// ActivityDuration is Next - Stamp.
	ActivityDuration model.Elapsed

	// Case indexes Sequenced.Cases.
	Case int
}

// Case is the aggregate view of one claim.
type Case struct {
	ID string

	// Start and End delimit the case's rows in Sequenced.Rows.
	Start, End int

	Min, Max model.Elapsed

	// Duration is Max - Min over valid timestamps; see Status.
	Duration model.Elapsed
	Status   model.DurationStatus
}

// Len returns the number of events in the case.
func (c *Case) Len() int {
	return c.End - c.Start
}

// Sequenced is the ordered event log with derived durations.
type Sequenced struct {
	Header []string
	Rows   []Row
	Cases  []Case
}

// CaseRows returns the ordered rows of case i.
func (s *Sequenced) CaseRows(i int) []Row {
	c := &s.Cases[i]
	return s.Rows[c.Start:c.End]
}

// Activities returns the ordered activity names of case i.
func (s *Sequenced) Activities(i int) []string {
	rows := s.CaseRows(i)
	out := make([]string, len(rows))
	for k := range rows {
		out[k] = rows[k].Event.Activity
	}
	return out
}

// Options tunes sequencing.
type Options struct {
	// Workers bounds per-case parallelism; values below 2 run sequentially.
	Workers int
}

// Sequence sorts t and derives per-row and per-case durations. stamps must
// hold one normalized timestamp per event, in table order.
func Sequence(ctx context.Context, t *model.Table, stamps []model.Elapsed, opts Options) (*Sequenced, error) {
	if len(stamps) != t.Len() {
		return nil, fmt.Errorf("sequence: %d timestamps for %d events", len(stamps), t.Len())
	}

	groups := partition(t, stamps)

	if opts.Workers > 1 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(opts.Workers)
		for i := range groups {
			grp := groups[i]
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				grp.derive()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	} else {
		for i := range groups {
			if i%1024 == 0 {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
			}
			groups[i].derive()
		}
	}

	return assemble(t.Header, groups), nil
}

// caseGroup holds the rows of one case while they are being derived.
type caseGroup struct {
	id   string
	rows []Row
	agg  Case
}

// partition splits the table into case groups ordered by case id, each
// holding its rows in input order.
func partition(t *model.Table, stamps []model.Elapsed) []*caseGroup {
	byID := make(map[string]*caseGroup)
	var groups []*caseGroup

	for i := range t.Events {
		ev := &t.Events[i]
		g, ok := byID[ev.CaseID]
		if !ok {
			g = &caseGroup{id: ev.CaseID}
			byID[ev.CaseID] = g
			groups = append(groups, g)
		}
		g.rows = append(g.rows, Row{Event: ev, Stamp: stamps[i]})
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return CompareCaseIDs(groups[i].id, groups[j].id) < 0
	})
	return groups
}

// derive orders the group's rows and computes its durations.
func (g *caseGroup) derive() {
	sort.SliceStable(g.rows, func(i, j int) bool {
		return stampLess(g.rows[i].Stamp, g.rows[j].Stamp)
	})

	n := len(g.rows)
	for k := 0; k < n; k++ {
		if k+1 < n {
			g.rows[k].Next = g.rows[k+1].Stamp
			g.rows[k].ActivityDuration = g.rows[k+1].Stamp.Sub(g.rows[k].Stamp)
		} else {
			g.rows[k].Next = model.Missing
			g.rows[k].ActivityDuration = model.Missing
		}
	}

	g.agg = aggregate(g.id, g.rows)
}

// aggregate computes min, max and duration over the valid timestamps of
// rows, which must already be sorted.
func aggregate(id string, rows []Row) Case {
	c := Case{ID: id}

	valid := 0
	for _, r := range rows {
		if !r.Stamp.Valid {
			continue
		}
		if valid == 0 || r.Stamp.Value < c.Min.Value {
			c.Min = r.Stamp
		}
		if valid == 0 || r.Stamp.Value > c.Max.Value {
			c.Max = r.Stamp
		}
		valid++
	}

	switch valid {
	case 0:
		c.Duration = model.Missing
		c.Status = model.DurationUndefined
	case 1:
		c.Duration = model.Some(0)
		c.Status = model.DurationSinglePoint
	default:
		c.Duration = c.Max.Sub(c.Min)
		c.Status = model.DurationSpan
	}
	return c
}

// assemble concatenates the derived groups into a Sequenced table.
func assemble(header []string, groups []*caseGroup) *Sequenced {
	total := 0
	for _, g := range groups {
		total += len(g.rows)
	}

	s := &Sequenced{
		Header: header,
		Rows:   make([]Row, 0, total),
		Cases:  make([]Case, 0, len(groups)),
	}
	for ci, g := range groups {
		c := g.agg
		c.Start = len(s.Rows)
		for _, r := range g.rows {
			r.Case = ci
			s.Rows = append(s.Rows, r)
		}
		c.End = len(s.Rows)
		s.Cases = append(s.Cases, c)
	}
	return s
}

// stampLess orders defined stamps ascending and missing stamps last.
func stampLess(a, b model.Elapsed) bool {
	switch {
	case a.Valid && b.Valid:
		return a.Value < b.Value
	case a.Valid:
		return true
	default:
		return false
	}
}

// CompareCaseIDs orders case ids: base-10 integers numerically and before
// any other id, everything else in byte order.
func CompareCaseIDs(a, b string) int {
	na, errA := strconv.ParseInt(a, 10, 64)
	nb, errB := strconv.ParseInt(b, 10, 64)

	switch {
	case errA == nil && errB == nil:
		if na != nb {
			if na < nb {
				return -1
			}
			return 1
		}
	case errA == nil:
		return -1
	case errB == nil:
		return 1
	}

	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
