package tui

import (
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/logflow/claimflow/pkg/insight"
)

// chartWidth is the widest bar in cells.
const chartWidth = 30

// labelWidth bounds row labels in tables and charts.
const labelWidth = 48

// Render writes the full analysis report to w.
func Render(w io.Writer, rep *insight.Report) {
	p := &printer{w: w}

	p.header(rep)
	p.overview(rep)
	p.sequences(rep)
	p.activityDurations(rep)
	p.histogram("CASE DURATION", rep.CaseDurations.Histogram, formatSeconds)
	p.complexity(rep)
	p.agents(rep)
	p.segments(rep)
	p.line("")
}

type printer struct {
	w io.Writer
}

func (p *printer) line(format string, args ...interface{}) {
	fmt.Fprintf(p.w, format+"\n", args...)
}

func (p *printer) section(title string) {
	p.line("")
	p.line("%s", accentStyle.Render("▸ "+title))
}

func (p *printer) field(name, value string) {
	p.line("  %s %s", mutedStyle.Render(pad(name+":", 20)), titleStyle.Render(value))
}

func (p *printer) header(rep *insight.Report) {
	p.line("")
	p.line("%s", titleStyle.Render("  CLAIMFLOW")+mutedStyle.Render(" claims process analysis"))
	if rep.Input != "" {
		p.line("  %s %s", mutedStyle.Render("Input:"), codeStyle.Render(filepath.Base(rep.Input)))
	}
	if rep.RunID != "" {
		p.line("  %s", mutedStyle.Render("run "+rep.RunID))
	}
}

func (p *printer) overview(rep *insight.Report) {
	p.section("OVERVIEW")
	p.field("Events", formatNumber(int64(rep.Events)))
	p.field("Cases", formatNumber(int64(rep.Cases)))
	p.field("Activities", fmt.Sprintf("%d", len(rep.Activities)))
	p.field("Missing timestamps", fmt.Sprintf("%d", rep.MissingTimestamps))

	cd := rep.CaseDurations
	if cd.Summary.Count > 0 {
		p.field("Mean case duration", formatSeconds(cd.Summary.Mean))
		p.field("Median case duration", formatSeconds(cd.Summary.Median))
	}
	if cd.SinglePoint > 0 || cd.Undefined > 0 {
		p.line("  %s", mutedStyle.Render(fmt.Sprintf(
			"%d single-point cases counted as 0s, %d cases without a valid timestamp excluded",
			cd.SinglePoint, cd.Undefined)))
	}
}

func (p *printer) sequences(rep *insight.Report) {
	p.section("ACTIVITY SEQUENCES")
	if rep.HappyPath != nil {
		p.line("  %s %s", successStyle.Render("Happy path"),
			mutedStyle.Render(fmt.Sprintf("(%d cases, %.1f%%)", rep.HappyPath.Count, rep.HappyPath.Percent)))
		p.line("  %s", titleStyle.Render(rep.HappyPath.Sequence))
	}
	p.line("  %s", mutedStyle.Render(fmt.Sprintf("%d distinct sequences, %d rare (seen by at most %d case(s))",
		len(rep.Sequences), len(rep.RareSequences), rep.RareThreshold)))
	p.line("")

	top := insight.Top(rep.Sequences, rep.TopSequences)
	max := 0.0
	if len(top) > 0 {
		max = float64(top[0].Count)
	}
	for _, s := range top {
		p.barRow(s.Sequence, float64(s.Count), max, fmt.Sprintf("%d", s.Count))
	}
}

func (p *printer) activityDurations(rep *insight.Report) {
	p.section("ACTIVITY DURATIONS")
	p.line("  %s", mutedStyle.Render(pad("activity", 28)+pad("median", 10)+pad("mean", 10)+pad("std", 10)+"n"))
	for _, a := range rep.ActivityDurations {
		s := a.Summary
		row := pad(truncate(a.Activity, 27), 28)
		if s.Count == 0 {
			p.line("  %s%s", row, mutedStyle.Render("no measured durations"))
			continue
		}
		text := pad(formatSeconds(s.Median), 10) + pad(formatSeconds(s.Mean), 10) +
			pad(formatSeconds(s.Std), 10) + fmt.Sprintf("%d", s.Count)
		if a.HighVariance {
			p.line("  %s%s %s", row, text, accentStyle.Render("high variance"))
		} else {
			p.line("  %s%s", row, text)
		}
	}
}

func (p *printer) complexity(rep *insight.Report) {
	p.section("CASE COMPLEXITY")
	c := rep.Complexity
	if c.Summary.Count > 0 {
		p.field("Events per case", fmt.Sprintf("mean %.1f, median %.0f, max %.0f",
			c.Summary.Mean, c.Summary.Median, c.Summary.Max))
	}
	max := 0.0
	for _, f := range c.Frequencies {
		if float64(f.Cases) > max {
			max = float64(f.Cases)
		}
	}
	for _, f := range c.Frequencies {
		p.barRow(fmt.Sprintf("%d events", f.Events), float64(f.Cases), max, fmt.Sprintf("%d cases", f.Cases))
	}
}

func (p *printer) agents(rep *insight.Report) {
	p.section("AGENT DELAYS")
	max := 0.0
	for _, a := range rep.Agents {
		if a.Measured > 0 && a.Mean > max {
			max = a.Mean
		}
	}
	for _, a := range rep.Agents {
		if a.Measured == 0 {
			p.line("  %s %s", pad(truncate(a.Agent, labelWidth), labelWidth), mutedStyle.Render("no measured durations"))
			continue
		}
		p.barRow(a.Agent, a.Mean, max, formatSeconds(a.Mean))
	}
}

func (p *printer) segments(rep *insight.Report) {
	for _, seg := range rep.Segments {
		p.section("CASE DURATION BY " + seg.Dimension)
		max := 0.0
		for _, g := range seg.Groups {
			if g.Summary.Mean > max {
				max = g.Summary.Mean
			}
		}
		for _, g := range seg.Groups {
			label := g.Value
			if label == "" {
				label = "(empty)"
			}
			p.barRow(label, g.Summary.Mean, max,
				fmt.Sprintf("%s  %s", formatSeconds(g.Summary.Mean), mutedStyle.Render(fmt.Sprintf("%d cases", g.Cases))))
		}
	}
}

// histogram renders non-empty bins only.
func (p *printer) histogram(title string, bins []insight.Bin, format func(float64) string) {
	p.section(title)
	max := 0
	for _, b := range bins {
		if b.Count > max {
			max = b.Count
		}
	}
	if max == 0 {
		p.line("  %s", mutedStyle.Render("no data"))
		return
	}
	for _, b := range bins {
		if b.Count == 0 {
			continue
		}
		label := format(b.Lo) + " - " + format(b.Hi)
		p.barRow(label, float64(b.Count), float64(max), fmt.Sprintf("%d", b.Count))
	}
}

func (p *printer) barRow(label string, value, max float64, annotation string) {
	p.line("  %s %s %s",
		pad(truncate(label, labelWidth), labelWidth),
		barStyle.Render(pad(bar(value, max, chartWidth), chartWidth)),
		annotation)
}

// RunSummary describes a completed run for the closing banner.
type RunSummary struct {
	Events    int
	Cases     int
	InputSize int64
	Files     []string
	Uploaded  []string
	Duration  time.Duration
}

// PrintRunSummary prints the files produced by a run.
func PrintRunSummary(w io.Writer, s *RunSummary) {
	p := &printer{w: w}
	p.line("")
	p.line("%s", successStyle.Render("  ✓ ANALYSIS COMPLETE"))
	p.line("")
	p.field("Events", formatNumber(int64(s.Events)))
	p.field("Cases", formatNumber(int64(s.Cases)))
	if s.InputSize > 0 {
		p.field("Input size", formatBytes(s.InputSize))
	}
	if s.Duration > 0 {
		throughput := float64(s.Events) / s.Duration.Seconds()
		p.line("  %s %s %s", mutedStyle.Render(pad("Time:", 20)), titleStyle.Render(formatDuration(s.Duration)),
			mutedStyle.Render(fmt.Sprintf("(%s events/sec)", formatNumber(int64(throughput)))))
	}
	if len(s.Files) > 0 {
		p.line("  %s", mutedStyle.Render(rule))
		for _, f := range s.Files {
			p.line("  %s %s", successStyle.Render("✓"), f)
		}
	}
	for _, u := range s.Uploaded {
		p.line("  %s %s", successStyle.Render("↑"), u)
	}
	p.line("")
}

// InspectSummary is the loader and normalizer quality report of an input.
type InspectSummary struct {
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

// PrintInspect prints an input quality summary.
func PrintInspect(w io.Writer, s *InspectSummary) {
	p := &printer{w: w}
	p.line("")
	p.line("  %s %s", titleStyle.Render("INSPECT"), codeStyle.Render(filepath.Base(s.Input)))
	p.line("  %s", mutedStyle.Render(rule))
	p.field("Format", s.Format)
	p.field("Rows", formatNumber(int64(s.Rows)))
	p.field("Cases", formatNumber(int64(s.Cases)))
	p.field("Activities", fmt.Sprintf("%d", s.Activities))
	p.field("Agents", fmt.Sprintf("%d", s.Agents))

	pct := 0.0
	if s.Rows > 0 {
		pct = float64(s.MissingStamps) * 100 / float64(s.Rows)
	}
	stamps := fmt.Sprintf("%d unparseable (%.1f%%)", s.MissingStamps, pct)
	if s.MissingStamps == 0 {
		p.field("Timestamps", successStyle.Render("all parsed"))
	} else {
		p.field("Timestamps", accentStyle.Render(stamps))
		for _, v := range s.MissingSamples {
			p.line("    %s %q", mutedStyle.Render("e.g."), v)
		}
	}

	p.section("COLUMNS")
	for i, c := range s.Columns {
		p.line("  %s %s", mutedStyle.Render(fmt.Sprintf("%2d", i+1)), c)
	}
	p.line("")
}
