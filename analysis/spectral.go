// Package analysis compares two impulse responses in the frequency
// domain. It deliberately covers only the spectral-shape term of a
// fuller perceptual distance metric — there is no reference recording in
// this pipeline to anchor time alignment, envelope decay, or RT60
// comparisons against, so only the part that is meaningful standalone
// is implemented.
package analysis

import (
	"fmt"
	"math"
	"math/cmplx"

	algofft "github.com/cwbudde/algo-fft"
)

// SpectralMetrics is the result of comparing two signals' magnitude
// spectra.
type SpectralMetrics struct {
	SampleRate int
	Bins       int
	RMSEDB     float64
}

// CompareSpectral windows the leading min(len(a), len(b), 4096) samples of
// each signal with a Hann window, takes their real FFTs, and returns the
// RMS of the per-bin magnitude difference in dB.
func CompareSpectral(a, b []float64, sampleRate int) (SpectralMetrics, error) {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	if n > 4096 {
		n = 4096
	}
	if n%2 != 0 {
		n--
	}
	if n < 512 {
		return SpectralMetrics{}, fmt.Errorf("analysis: need at least 512 overlapping samples, got %d", n)
	}

	aw := windowed(a[:n])
	bw := windowed(b[:n])

	plan, err := algofft.NewPlanReal64(n)
	if err != nil {
		return SpectralMetrics{}, fmt.Errorf("analysis: fft plan: %w", err)
	}

	bins := n/2 + 1
	specA := make([]complex128, bins)
	specB := make([]complex128, bins)
	if err := plan.Forward(specA, aw); err != nil {
		return SpectralMetrics{}, fmt.Errorf("analysis: forward fft: %w", err)
	}
	if err := plan.Forward(specB, bw); err != nil {
		return SpectralMetrics{}, fmt.Errorf("analysis: forward fft: %w", err)
	}

	var sum float64
	count := 0
	for k := 1; k < bins; k++ {
		d := linToDB(cmplx.Abs(specA[k])) - linToDB(cmplx.Abs(specB[k]))
		sum += d * d
		count++
	}
	if count == 0 {
		return SpectralMetrics{}, fmt.Errorf("analysis: no usable spectral bins")
	}

	return SpectralMetrics{
		SampleRate: sampleRate,
		Bins:       bins,
		RMSEDB:     math.Sqrt(sum / float64(count)),
	}, nil
}

func windowed(x []float64) []float64 {
	n := len(x)
	out := make([]float64, n)
	for i, v := range x {
		w := 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n-1))
		out[i] = v * w
	}
	return out
}

func linToDB(x float64) float64 {
	if x < 1e-12 {
		x = 1e-12
	}
	return 20 * math.Log10(x)
}
