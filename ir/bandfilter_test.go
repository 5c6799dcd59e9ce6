package ir

import (
	"math"
	"testing"
)

func dB(mag float64) float64 {
	if mag <= 1e-12 {
		return -300
	}
	return 20 * math.Log10(mag)
}

// TestDesignBandpassPassesCenterAndRejectsOctaves covers the kernel
// frequency-response property: magnitude at fc exceeds -6dB (normalized to
// 0dB at fc), while fc/8 and 8*fc are attenuated below -30dB.
func TestDesignBandpassPassesCenterAndRejectsOctaves(t *testing.T) {
	const sampleRate = 48000
	for _, fc := range []float64{200, 800, 3200} {
		kernel := designBandpass(fc, sampleRate)

		center := dB(magnitudeResponse(kernel, fc, sampleRate))
		if center < -6 {
			t.Fatalf("fc=%f: expected center response above -6dB, got %fdB", fc, center)
		}

		low := dB(magnitudeResponse(kernel, fc/8, sampleRate))
		if low > -30 {
			t.Fatalf("fc=%f: expected fc/8 response below -30dB, got %fdB", fc, low)
		}

		high := dB(magnitudeResponse(kernel, 8*fc, sampleRate))
		if high > -30 {
			t.Fatalf("fc=%f: expected 8*fc response below -30dB, got %fdB", fc, high)
		}
	}
}

func TestDesignBandpassProducesOddLengthLinearPhaseKernel(t *testing.T) {
	kernel := designBandpass(1000, 48000)
	if len(kernel) != numTaps {
		t.Fatalf("expected %d taps, got %d", numTaps, len(kernel))
	}
	mid := (numTaps - 1) / 2
	for i := 1; i <= mid; i++ {
		if diff := kernel[mid-i] - kernel[mid+i]; diff > 1e-9 || diff < -1e-9 {
			t.Fatalf("expected symmetric kernel around tap %d, diverged at offset %d", mid, i)
		}
	}
}
