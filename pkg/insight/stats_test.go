package insight

import (
	"math"
	"testing"
)

func TestSummarize(t *testing.T) {
	s := Summarize([]float64{4, 1, 3, 2}, 2)
	if s.Count != 4 || s.Missing != 2 {
		t.Fatalf("Expected count=4 missing=2, got %+v", s)
	}
	if s.Mean != 2.5 || s.Min != 1 || s.Max != 4 || s.Median != 2.5 {
		t.Errorf("Unexpected summary: %+v", s)
	}
	if s.P25 != 1.75 || s.P75 != 3.25 {
		t.Errorf("Expected p25=1.75 p75=3.25, got %v %v", s.P25, s.P75)
	}
	wantStd := math.Sqrt(5.0 / 3.0)
	if math.Abs(s.Std-wantStd) > 1e-12 {
		t.Errorf("Expected sample std %v, got %v", wantStd, s.Std)
	}
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil, 3)
	if s.Count != 0 || s.Missing != 3 || s.Mean != 0 {
		t.Errorf("Unexpected empty summary: %+v", s)
	}
}

func TestSummarize_SingleValue(t *testing.T) {
	s := Summarize([]float64{7}, 0)
	if s.Std != 0 || s.CV != 0 || s.Median != 7 {
		t.Errorf("Unexpected single-value summary: %+v", s)
	}
}

func TestQuantile(t *testing.T) {
	values := []float64{10, 20, 30, 40, 50}
	tests := []struct {
		q    float64
		want float64
	}{
		{0, 10},
		{0.5, 30},
		{0.9, 46},
		{1, 50},
	}
	for _, tt := range tests {
		if got := Quantile(values, tt.q); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("Quantile(%v) = %v, want %v", tt.q, got, tt.want)
		}
	}
}

func TestHistogram(t *testing.T) {
	bins := Histogram([]float64{0, 1, 2, 3, 4, 10}, 5)
	if len(bins) != 5 {
		t.Fatalf("Expected 5 bins, got %d", len(bins))
	}
	total := 0
	for _, b := range bins {
		total += b.Count
	}
	if total != 6 {
		t.Errorf("Expected 6 values binned, got %d", total)
	}
	if bins[0].Count != 2 || bins[4].Count != 1 {
		t.Errorf("Unexpected bin counts: %+v", bins)
	}
	if bins[4].Hi != 10 {
		t.Errorf("Last bin must end at max, got %v", bins[4].Hi)
	}
}

func TestHistogram_Degenerate(t *testing.T) {
	bins := Histogram([]float64{3, 3, 3}, 4)
	if len(bins) != 4 {
		t.Fatalf("Expected 4 bins, got %d", len(bins))
	}
	total := 0
	for _, b := range bins {
		total += b.Count
	}
	if total != 3 {
		t.Errorf("Expected 3 values binned, got %d", total)
	}
	if Histogram(nil, 4) != nil {
		t.Error("Expected nil histogram for no values")
	}
}

func TestQuantile_MatchesDescribe(t *testing.T) {
	// Quartiles of 1, 2, 3, 4, 100 as reported by a pandas describe().
	values := []float64{1, 2, 3, 4, 100}
	tests := []struct {
		q    float64
		want float64
	}{
		{0.25, 2},
		{0.5, 3},
		{0.75, 4},
		{0.1, 1.4},
		{-1, 1},
		{2, 100},
	}
	for _, tt := range tests {
		if got := Quantile(values, tt.q); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("Quantile(%v) = %v, want %v", tt.q, got, tt.want)
		}
	}
	if got := Quantile([]float64{7}, 0.75); got != 7 {
		t.Errorf("Quantile of one value = %v, want 7", got)
	}
	if got := Quantile(nil, 0.5); got != 0 {
		t.Errorf("Quantile of no values = %v, want 0", got)
	}
}

func TestHistogram_ClosedLastBinUnsortedInput(t *testing.T) {
	values := []float64{10, 0, 5}
	bins := Histogram(values, 2)
	if len(bins) != 2 {
		t.Fatalf("Expected 2 bins, got %d", len(bins))
	}
	if bins[0].Count != 1 || bins[1].Count != 2 {
		t.Errorf("Expected counts [1 2], got %+v", bins)
	}
	if bins[0].Lo != 0 || bins[0].Hi != 5 || bins[1].Hi != 10 {
		t.Errorf("Unexpected edges: %+v", bins)
	}
	if values[0] != 10 || values[1] != 0 {
		t.Errorf("Histogram reordered its input: %v", values)
	}
}
