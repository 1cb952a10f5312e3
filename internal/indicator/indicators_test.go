package indicator

import (
	"math"
	"testing"
)

func TestSma_MasksWarmup(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}
	out := Sma(values, 3)

	if len(out) != len(values) {
		t.Fatalf("expected %d values, got %d", len(values), len(out))
	}
	for i := 0; i < 2; i++ {
		if !math.IsNaN(out[i]) {
			t.Errorf("expected NaN at index %d, got %f", i, out[i])
		}
	}
	want := []float64{2, 3, 4}
	for i, w := range want {
		if diff := math.Abs(out[i+2] - w); diff > 1e-9 {
			t.Errorf("index %d: got %f want %f", i+2, out[i+2], w)
		}
	}
}

func TestSma_ShortInput(t *testing.T) {
	out := Sma([]float64{1, 2}, 5)
	for i, v := range out {
		if !math.IsNaN(v) {
			t.Errorf("expected NaN at index %d, got %f", i, v)
		}
	}

	if out := Sma(nil, 3); len(out) != 0 {
		t.Errorf("expected empty output for empty input, got %d values", len(out))
	}
}

func TestSma_WindowOne(t *testing.T) {
	values := []float64{3, 1, 4}
	out := Sma(values, 1)
	for i, v := range values {
		if out[i] != v {
			t.Errorf("index %d: got %f want %f", i, out[i], v)
		}
	}
}

func TestRsi_WilderRecursion(t *testing.T) {
	// 手算：period=2，alpha=0.5。
	values := []float64{10, 11, 10.5, 10.8}
	out := Rsi(values, 2)

	want := []float64{50, 50, 100 - 100/3.0, 100 - 100/4.2}
	for i, w := range want {
		if diff := math.Abs(out[i] - w); diff > 1e-9 {
			t.Errorf("index %d: got %f want %f", i, out[i], w)
		}
	}
}

func TestRsi_AllLossesHitsZero(t *testing.T) {
	values := []float64{5, 4, 3, 2, 1}
	out := Rsi(values, 2)

	for i := 0; i < 2; i++ {
		if out[i] != NeutralRSI {
			t.Errorf("warmup index %d: got %f want %f", i, out[i], NeutralRSI)
		}
	}
	for i := 2; i < len(out); i++ {
		if diff := math.Abs(out[i] - 0); diff > 1e-9 {
			t.Errorf("index %d: got %f want 0", i, out[i])
		}
	}
}

func TestRsi_ZeroLossStaysNeutral(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}
	out := Rsi(values, 2)
	for i, v := range out {
		if v != NeutralRSI {
			t.Errorf("index %d: got %f want neutral %f", i, v, NeutralRSI)
		}
	}
}

func TestRsi_ShortInput(t *testing.T) {
	out := Rsi([]float64{42}, 14)
	if len(out) != 1 || out[0] != NeutralRSI {
		t.Fatalf("expected single neutral value, got %v", out)
	}
}
