package raytrace

import "math"

// applyRadiosityTail converts the accumulated per-band energy histograms
// into synthesized late-arrival pulses, appends them to result's arrival
// lists, and returns the total pulse count across all bands. Histograms
// are consumed and not retained afterward — once synthesis runs, only the
// arrival lists matter.
func applyRadiosityTail(result *Result, histograms []EnergyHistogram, bands []FrequencyBand, rr RayRadiosityConfig, seed string) int {
	total := 0
	for b := range bands {
		rng := radiosityStream(seed, b)
		hist := histograms[b]
		for i, energy := range hist.Bins {
			if energy <= rr.MinEnergyThreshold {
				continue
			}
			lambda := energy * rr.PoissonDensity
			k := poissonSample(rng, lambda)
			if k < 1 {
				k = 1
			}
			perPulseEnergy := energy / float64(k)
			amplitude := math.Sqrt(perPulseEnergy)
			binStart := float64(i) * hist.BinWidthSec
			for j := 0; j < k; j++ {
				t := binStart + rng.Float64()*hist.BinWidthSec
				sign := 1.0
				if rng.Float64() < 0.5 {
					sign = -1.0
				}
				result.Arrivals.PerBand[b] = append(result.Arrivals.PerBand[b], Arrival{
					TimeSec:   t,
					Amplitude: amplitude * sign,
				})
				total++
			}
		}
	}
	return total
}
