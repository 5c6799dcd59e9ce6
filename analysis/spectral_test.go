package analysis

import (
	"math"
	"testing"
)

// makeDecaySine returns durationSec seconds of a unit sine at freq Hz with
// an exponential envelope of time constant tauSec.
func makeDecaySine(sampleRate int, freq, durationSec, tauSec float64) []float64 {
	n := int(durationSec * float64(sampleRate))
	out := make([]float64, n)
	for i := range out {
		t := float64(i) / float64(sampleRate)
		out[i] = math.Sin(2*math.Pi*freq*t) * math.Exp(-t/tauSec)
	}
	return out
}

func TestCompareSpectralIdenticalSignalsHasNearZeroRMSE(t *testing.T) {
	sr := 48000
	x := makeDecaySine(sr, 440.0, 0.3, 0.2)
	m, err := CompareSpectral(x, x, sr)
	if err != nil {
		t.Fatalf("CompareSpectral: %v", err)
	}
	if m.RMSEDB > 1e-6 {
		t.Fatalf("expected near-zero RMSE for identical signals, got %f dB", m.RMSEDB)
	}
	if m.SampleRate != sr {
		t.Fatalf("expected sample rate echoed back, got %d", m.SampleRate)
	}
}

func TestCompareSpectralDifferentTonesHaveHigherRMSE(t *testing.T) {
	sr := 48000
	a := makeDecaySine(sr, 220.0, 0.3, 0.2)
	b := makeDecaySine(sr, 3000.0, 0.3, 0.2)
	m, err := CompareSpectral(a, b, sr)
	if err != nil {
		t.Fatalf("CompareSpectral: %v", err)
	}
	if m.RMSEDB < 1.0 {
		t.Fatalf("expected meaningfully higher RMSE for different tones, got %f dB", m.RMSEDB)
	}
}

func TestCompareSpectralRejectsTooShortSignals(t *testing.T) {
	a := make([]float64, 100)
	b := make([]float64, 100)
	if _, err := CompareSpectral(a, b, 48000); err == nil {
		t.Fatalf("expected error for signals shorter than the minimum window")
	}
}
