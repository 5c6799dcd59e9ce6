package raytrace

import (
	"context"
	"math"
	"math/rand"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Progress describes one batch's worth of driver activity, emitted after
// every completed batch.
type Progress struct {
	FractionDone   float64
	RaysPerSecond  float64
	TotalArrivals  int
}

// ProgressFunc receives a Progress snapshot between batches. It must
// return quickly; the driver does not run it concurrently with ray
// tracing.
type ProgressFunc func(Progress)

// Result is everything Simulate produces for a completed run. Histograms
// are consumed during radiosity synthesis and never surface here;
// LateArrivalCount reports how many pulses were synthesized from them.
type Result struct {
	Arrivals         ArrivalsByBand
	LateArrivalCount int
	AbortedRays      int
}

// Simulate runs the full ray-tracing driver (component D) against a built
// mesh and receiver, honoring ctx for cooperative cancellation between
// batches. onProgress may be nil.
func Simulate(ctx context.Context, mesh *Mesh, receiver ReceiverSphere, params SimulationParams, onProgress ProgressFunc) (Result, error) {
	if mesh == nil || receiver.Radius <= 0 {
		return Result{}, newError(KindNotReady, "simulate called before geometry and receiver were set")
	}
	if err := params.Validate(); err != nil {
		return Result{}, err
	}

	bands := sortedBands(params.Bands)
	numBands := len(bands)

	shards := make([][]Arrival, numBands)
	var histograms []EnergyHistogram
	if params.Radiosity.Enabled {
		histograms = make([]EnergyHistogram, numBands)
		for b := range histograms {
			histograms[b] = EnergyHistogram{
				BinWidthSec: params.Radiosity.HistogramResolution,
				Bins:        make([]float64, params.Radiosity.bins()),
			}
		}
	}

	workers := runtime.GOMAXPROCS(0)
	if workers < 1 {
		workers = 1
	}
	if workers > params.batchSize() {
		workers = params.batchSize()
	}

	var abortedRays int64
	batchSize := params.batchSize()
	totalArrivals := 0
	start := time.Now()

	for batchStart := 0; batchStart < params.NumRays; batchStart += batchSize {
		select {
		case <-ctx.Done():
			return Result{}, newError(KindCancelled, "simulation cancelled after %d/%d rays", batchStart, params.NumRays)
		default:
		}

		batchEnd := batchStart + batchSize
		if batchEnd > params.NumRays {
			batchEnd = params.NumRays
		}
		batchLen := batchEnd - batchStart

		perWorkerArrivals := make([][][]Arrival, workers)
		perWorkerHistograms := make([][]EnergyHistogram, workers)
		for w := 0; w < workers; w++ {
			perWorkerArrivals[w] = make([][]Arrival, numBands)
			if params.Radiosity.Enabled {
				perWorkerHistograms[w] = make([]EnergyHistogram, numBands)
				for b := range perWorkerHistograms[w] {
					perWorkerHistograms[w][b] = EnergyHistogram{
						BinWidthSec: params.Radiosity.HistogramResolution,
						Bins:        make([]float64, params.Radiosity.bins()),
					}
				}
			}
		}

		chunk := (batchLen + workers - 1) / workers
		var wg sync.WaitGroup
		for w := 0; w < workers; w++ {
			lo := batchStart + w*chunk
			hi := lo + chunk
			if hi > batchEnd {
				hi = batchEnd
			}
			if lo >= hi {
				continue
			}
			wg.Add(1)
			go func(workerID, lo, hi int) {
				defer wg.Done()
				var hist []EnergyHistogram
				if params.Radiosity.Enabled {
					hist = perWorkerHistograms[workerID]
				}
				for rayIdx := lo; rayIdx < hi; rayIdx++ {
					rng := rayStream(params.Seed, rayIdx)
					amp, tau, hit, aborted := traceRay(mesh, receiver, bands, params, rng, hist)
					if aborted {
						atomic.AddInt64(&abortedRays, 1)
						continue
					}
					if hit {
						for b := range bands {
							perWorkerArrivals[workerID][b] = append(perWorkerArrivals[workerID][b], Arrival{
								TimeSec:   tau,
								Amplitude: amp[b],
							})
						}
					}
				}
			}(w, lo, hi)
		}
		wg.Wait()

		for w := 0; w < workers; w++ {
			for b := 0; b < numBands; b++ {
				shards[b] = append(shards[b], perWorkerArrivals[w][b]...)
				totalArrivals += len(perWorkerArrivals[w][b])
				if params.Radiosity.Enabled {
					dst := histograms[b].Bins
					src := perWorkerHistograms[w][b].Bins
					for i := range dst {
						dst[i] += src[i]
					}
				}
			}
		}

		if onProgress != nil {
			elapsed := time.Since(start).Seconds()
			rps := 0.0
			if elapsed > 0 {
				rps = float64(batchEnd) / elapsed
			}
			onProgress(Progress{
				FractionDone:  float64(batchEnd) / float64(params.NumRays),
				RaysPerSecond: rps,
				TotalArrivals: totalArrivals,
			})
		}
	}

	if params.NumRays > 0 && float64(atomic.LoadInt64(&abortedRays))/float64(params.NumRays) > 0.01 {
		return Result{}, newError(KindInternal, "%d/%d rays aborted on numerical failure", abortedRays, params.NumRays)
	}

	result := Result{
		Arrivals: ArrivalsByBand{
			Bands:   bands,
			PerBand: shards,
		},
		AbortedRays: int(abortedRays),
	}

	if params.Radiosity.Enabled {
		result.LateArrivalCount = applyRadiosityTail(&result, histograms, bands, params.Radiosity, params.Seed)
	}

	for b := range result.Arrivals.PerBand {
		list := result.Arrivals.PerBand[b]
		sort.SliceStable(list, func(i, j int) bool { return list[i].TimeSec < list[j].TimeSec })
	}

	return result, nil
}

// traceRay follows a single emitted ray through up to MaxBounces
// reflections, recording radiosity contributions into hist (if non-nil)
// and returning the receiver arrival, if any.
func traceRay(mesh *Mesh, receiver ReceiverSphere, bands []FrequencyBand, params SimulationParams, rng *rand.Rand, hist []EnergyHistogram) (amplitude []float64, tau float64, hit bool, aborted bool) {
	amp := make([]float64, len(bands))
	for b := range amp {
		amp[b] = 1
	}

	origin := Vec3{}
	dir := unitSphereDirection(rng)
	totalDistance := 0.0
	rr := params.Radiosity

	for bounce := 0; bounce < params.MaxBounces; bounce++ {
		tR, hasReceiver := intersectSphere(origin, dir, receiver.Center, receiver.Radius)
		meshHit, hasMesh := mesh.ClosestHit(origin, dir)

		if hasReceiver && (!hasMesh || tR < meshHit.Distance) {
			totalDistance += tR
			t := totalDistance / params.SpeedOfSound
			if !isFiniteF(t) {
				return nil, 0, false, true
			}
			if params.RandomizePhase && bounce > params.PhaseRandomizeBounceThreshold {
				sign := 1.0
				if rng.Float64() < 0.5 {
					sign = -1.0
				}
				for b := range amp {
					amp[b] *= sign
				}
			}
			return amp, t, true, false
		}

		if !hasMesh {
			return nil, 0, false, false
		}

		totalDistance += meshHit.Distance
		if !isFiniteF(totalDistance) || !meshHit.Point.isFinite() || !meshHit.Normal.isFinite() {
			return nil, 0, false, true
		}

		alive := false
		for b, band := range bands {
			amp[b] *= math.Max(0, 1-band.Absorption)
			if amp[b] > 0 {
				alive = true
			}
		}
		if !alive {
			return nil, 0, false, false // fully absorbed in every band
		}

		if rr.Enabled && bounce >= rr.HybridBounceThreshold && hist != nil {
			toReceiver := meshHit.Point.Sub(receiver.Center)
			floor := math.Max(receiver.Radius/2, 0.01)
			dRx := math.Max(toReceiver.Length(), floor)
			tauRx := (totalDistance + dRx) / params.SpeedOfSound
			if tauRx <= rr.MaxTime {
				bin := int(tauRx / rr.HistogramResolution)
				intensity := 1 / math.Max(4*math.Pi*dRx*dRx, 1e-6)
				s := math.Max(rr.ScatteringCoeff, 1e-3)
				for b := range bands {
					if amp[b] <= 0 {
						continue
					}
					e := amp[b] * amp[b] * rr.DiffuseGain * intensity * s
					if e > rr.MinEnergyThreshold && bin < len(hist[b].Bins) {
						hist[b].Bins[bin] += e
					}
				}
			}
		}

		specular := dir.Reflect(meshHit.Normal)
		var diffuse Vec3
		if rr.ScatteringCoeff > 0 {
			diffuse = cosineWeightedHemisphere(rng, meshHit.Normal)
		}
		newDir := mixReflection(rr.ScatteringCoeff, specular, diffuse)
		if !newDir.isFinite() {
			return nil, 0, false, true
		}

		origin = meshHit.Point.Add(newDir.Scale(offsetEps))
		dir = newDir
	}

	return nil, 0, false, false
}
