package elapsed

import (
	"fmt"
	"testing"
	"time"

	"github.com/logflow/claimflow/internal/model"
)

func TestParse_RoundTrip(t *testing.T) {
	for _, m := range []int64{0, 1, 7, 59, 125, 100000} {
		for _, s := range []int64{0, 1, 30, 59, 75} {
			for _, ms := range []int64{0, 1, 42, 500, 999} {
				raw := fmt.Sprintf("%d:%d.%03d", m, s, ms)
				got := Parse(raw)
				if !got.Valid {
					t.Fatalf("Parse(%q) returned missing", raw)
				}
				want := m*60000 + s*1000 + ms
				if got.Value.Milliseconds() != want {
					t.Errorf("Parse(%q) = %dms, want %dms", raw, got.Value.Milliseconds(), want)
				}
			}
		}
	}
}

func TestParse_Valid(t *testing.T) {
	tests := []struct {
		input string
		want  time.Duration
	}{
		{"0:10.000", 10 * time.Second},
		{"0:25.500", 25*time.Second + 500*time.Millisecond},
		{"1:00.000", time.Minute},
		{"12:03.007", 12*time.Minute + 3*time.Second + 7*time.Millisecond},
		{"  3:04.050 ", 3*time.Minute + 4*time.Second + 50*time.Millisecond},
		// Fragments are integers: ".5" means five milliseconds.
		{"0:10.5", 10*time.Second + 5*time.Millisecond},
		// Each fragment is an integer on its own: sign, padding and digit
		// separators are allowed per fragment.
		{"-1:00.000", -time.Minute},
		{"0: 10.000", 10 * time.Second},
		{"0:+1.000", time.Second},
		{"1 : 02 . 003", time.Minute + 2*time.Second + 3*time.Millisecond},
		{"1:-30.000", 30 * time.Second},
		{"-0:30.000", 30 * time.Second},
		{"0:1_000.000", 1000 * time.Second},
	}

	for _, tt := range tests {
		got := Parse(tt.input)
		if !got.Valid {
			t.Errorf("Parse(%q) returned missing", tt.input)
			continue
		}
		if got.Value != tt.want {
			t.Errorf("Parse(%q) = %v, want %v", tt.input, got.Value, tt.want)
		}
	}
}

func TestParse_Malformed(t *testing.T) {
	inputs := []string{
		"",
		"   ",
		"bad",
		"10.000",      // missing colon
		"0:10",        // missing dot
		"1:2:3.000",   // too many colons
		"0:10.000.1",  // too many dots
		"1.5:10",      // dot before colon
		"a:10.000",    // non-numeric minutes
		"0:x.000",     // non-numeric seconds
		"0:10.abc",    // non-numeric millis
		":10.000",     // empty minutes
		"0:.000",      // empty seconds
		"0:10.",       // empty millis
		"0:- 1.000",   // space after sign
		"0:+-1.000",   // two signs
		"0:1__0.000",  // doubled separator
		"0:_1.000",    // leading separator
		"0:1_.000",    // trailing separator
		"-:10.000",    // sign without digits
		"99999999999999999999:00.000", // overflow
		"153722867280912:00.000",      // beyond the duration range
	}

	for _, in := range inputs {
		got := Parse(in)
		if got.Valid {
			t.Errorf("Parse(%q) = %v, want missing", in, got.Value)
		}
		if got != model.Missing {
			t.Errorf("Parse(%q) should equal the missing sentinel", in)
		}
	}
}

func TestNormalize(t *testing.T) {
	table := &model.Table{
		Events: []model.Event{
			{Timestamp: "0:10.000"},
			{Timestamp: "bad"},
			{Timestamp: "1:00.000"},
			{Timestamp: ""},
		},
	}

	stamps, stats := Normalize(table)
	if len(stamps) != 4 {
		t.Fatalf("Expected 4 stamps, got %d", len(stamps))
	}
	if stats.Total != 4 || stats.Missing != 2 {
		t.Errorf("Expected total=4 missing=2, got total=%d missing=%d", stats.Total, stats.Missing)
	}
	if len(stats.Samples) != 2 || stats.Samples[0] != "bad" {
		t.Errorf("Unexpected samples: %v", stats.Samples)
	}
	if !stamps[0].Valid || stamps[1].Valid || !stamps[2].Valid || stamps[3].Valid {
		t.Errorf("Unexpected validity pattern: %+v", stamps)
	}
}

func TestNormalize_SampleLimit(t *testing.T) {
	table := &model.Table{}
	for i := 0; i < MaxSamples+3; i++ {
		table.Events = append(table.Events, model.Event{Timestamp: fmt.Sprintf("junk-%d", i)})
	}

	_, stats := Normalize(table)
	if stats.Missing != MaxSamples+3 {
		t.Errorf("Expected %d missing, got %d", MaxSamples+3, stats.Missing)
	}
	if len(stats.Samples) != MaxSamples {
		t.Errorf("Expected %d samples, got %d", MaxSamples, len(stats.Samples))
	}
}

func TestFormat(t *testing.T) {
	tests := []struct {
		in   model.Elapsed
		want string
	}{
		{model.Missing, ""},
		{model.Some(15500 * time.Millisecond), "0:15.500"},
		{model.Some(61*time.Second + 7*time.Millisecond), "1:01.007"},
		{model.Some(-2 * time.Second), "-0:02.000"},
	}
	for _, tt := range tests {
		if got := Format(tt.in); got != tt.want {
			t.Errorf("Format(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
