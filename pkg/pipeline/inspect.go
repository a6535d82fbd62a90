package pipeline

import (
	"context"

	"github.com/logflow/claimflow/internal/elapsed"
)

// Inspection is a quality summary of an input: what the loader and the
// timestamp normalizer make of it, without any analysis.
type Inspection struct {
	Input          string
	Format         string
	Columns        []string
	Rows           int
	Cases          int
	Activities     int
	Agents         int
	MissingStamps  int
	MissingSamples []string
}

// Inspect loads the input and normalizes its timestamps.
func (r *Runner) Inspect(ctx context.Context) (*Inspection, error) {
	table, info, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	_, stats := elapsed.Normalize(table)

	cases := make(map[string]struct{})
	activities := make(map[string]struct{})
	agents := make(map[string]struct{})
	for i := range table.Events {
		ev := &table.Events[i]
		cases[ev.CaseID] = struct{}{}
		activities[ev.Activity] = struct{}{}
		agents[ev.Agent] = struct{}{}
	}

	return &Inspection{
		Input:          r.cfg.Input.Path,
		Format:         info.format.String(),
		Columns:        table.Header,
		Rows:           table.Len(),
		Cases:          len(cases),
		Activities:     len(activities),
		Agents:         len(agents),
		MissingStamps:  stats.Missing,
		MissingSamples: stats.Samples,
	}, nil
}
