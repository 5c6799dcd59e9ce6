// Package ir turns the arrivals a simulation produces into a sample-rate
// time-domain impulse response: per-band fractional-sample accumulation
// (this file) followed by bandpass filtering and mixdown (bandfilter.go).
package ir

import (
	"math"

	"github.com/cwbudde/algo-dsp/dsp/core"

	"github.com/cwbudde/roomray/raytrace"
)

// Band is one band's raw (pre-filter) impulse response buffer.
type Band struct {
	CenterHz   float64
	Samples    []float64
}

// Assemble builds one raw IR buffer per band from arrivals, at sample rate
// sampleRate. Buffer length is derived from the latest arrival across all
// bands so every band shares a common length before filtering.
func Assemble(arrivals raytrace.ArrivalsByBand, sampleRate int) []Band {
	maxTau := 0.0
	for _, list := range arrivals.PerBand {
		for _, a := range list {
			if a.TimeSec > maxTau {
				maxTau = a.TimeSec
			}
		}
	}
	duration := math.Max(maxTau+0.5, 1.0)
	n := int(math.Ceil(duration * float64(sampleRate)))

	bands := make([]Band, len(arrivals.Bands))
	for b, band := range arrivals.Bands {
		buf := make([]float64, n)
		for _, a := range arrivals.PerBand[b] {
			placeFractional(buf, a.TimeSec, a.Amplitude, sampleRate)
		}
		normalizePeak(buf)
		bands[b] = Band{CenterHz: band.CenterHz, Samples: buf}
	}
	return bands
}

// placeFractional splits an arrival's energy between the two nearest
// samples in proportion to its fractional sample position: x = τ·f_s,
// i = ⌊x⌋ gets a·(1−f), i+1 gets a·f.
func placeFractional(buf []float64, tau, amplitude float64, sampleRate int) {
	x := tau * float64(sampleRate)
	i := int(math.Floor(x))
	f := x - float64(i)
	if i >= 0 && i < len(buf) {
		buf[i] += amplitude * (1 - f)
	}
	if i+1 >= 0 && i+1 < len(buf) {
		buf[i+1] += amplitude * f
	}
}

// normalizePeak scales buf down so its peak absolute sample does not
// exceed 1.0. Buffers already within range are untouched.
func normalizePeak(buf []float64) {
	peak := 0.0
	for _, v := range buf {
		if a := math.Abs(v); a > peak {
			peak = a
		}
	}
	if peak <= 1.0 {
		return
	}
	for i := range buf {
		buf[i] = core.Clamp(buf[i]/peak, -1, 1)
	}
}
