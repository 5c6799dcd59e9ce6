package raytrace

import (
	"context"
	"errors"
	"testing"
)

func boxMesh(t *testing.T, half float64) *Mesh {
	t.Helper()
	mesh, err := BuildMesh(cubePositions(half), cubeIndices())
	if err != nil {
		t.Fatalf("BuildMesh: %v", err)
	}
	return mesh
}

func noRadiosityParams(seed string, numRays int) SimulationParams {
	p := DefaultSimulationParams()
	p.Seed = seed
	p.NumRays = numRays
	p.MaxBounces = 8
	p.Bands = []FrequencyBand{{CenterHz: 1000, Absorption: 1.0}}
	p.Radiosity.Enabled = false
	return p
}

func TestSimulateRejectsMissingGeometry(t *testing.T) {
	_, err := Simulate(context.Background(), nil, ReceiverSphere{Radius: 1}, DefaultSimulationParams(), nil)
	if !errors.Is(err, ErrNotReady) {
		t.Fatalf("expected NotReady, got %v", err)
	}
}

func TestSimulateRejectsInvalidParams(t *testing.T) {
	mesh := boxMesh(t, 50)
	receiver := ReceiverSphere{Center: Vec3{X: 5}, Radius: 1}
	params := DefaultSimulationParams()
	params.NumRays = 0
	_, err := Simulate(context.Background(), mesh, receiver, params, nil)
	if !errors.Is(err, ErrInvalidParams) {
		t.Fatalf("expected InvalidParams, got %v", err)
	}
}

// TestAnechoicSanity mirrors a fully-absorptive 100m cube: every arrival
// that does occur must carry amplitude 1 with no later bounces.
func TestAnechoicSanity(t *testing.T) {
	mesh := boxMesh(t, 50)
	receiver := ReceiverSphere{Center: Vec3{X: 5}, Radius: 1}
	params := noRadiosityParams("anechoic", 2000)

	result, err := Simulate(context.Background(), mesh, receiver, params, nil)
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	arrivals := result.Arrivals.PerBand[0]
	if len(arrivals) == 0 {
		t.Fatalf("expected at least one ray to reach the receiver directly")
	}
	for _, a := range arrivals {
		if a.Amplitude != 1 {
			t.Fatalf("expected amplitude 1 for a fully-absorptive enclosure's direct hit, got %f", a.Amplitude)
		}
	}
}

// TestDeterministicSeedProducesIdenticalArrivalCounts checks property 1/S2:
// identical seed, mesh, and params yield identical per-band arrival counts.
func TestDeterministicSeedProducesIdenticalArrivalCounts(t *testing.T) {
	mesh := boxMesh(t, 5)
	receiver := ReceiverSphere{Center: Vec3{X: 1}, Radius: 0.5}
	params := noRadiosityParams("abcdef", 500)

	r1, err := Simulate(context.Background(), mesh, receiver, params, nil)
	if err != nil {
		t.Fatalf("Simulate run 1: %v", err)
	}
	r2, err := Simulate(context.Background(), mesh, receiver, params, nil)
	if err != nil {
		t.Fatalf("Simulate run 2: %v", err)
	}
	if len(r1.Arrivals.PerBand[0]) != len(r2.Arrivals.PerBand[0]) {
		t.Fatalf("expected identical arrival counts, got %d vs %d", len(r1.Arrivals.PerBand[0]), len(r2.Arrivals.PerBand[0]))
	}
	for i := range r1.Arrivals.PerBand[0] {
		a, b := r1.Arrivals.PerBand[0][i], r2.Arrivals.PerBand[0][i]
		if a.TimeSec != b.TimeSec || a.Amplitude != b.Amplitude {
			t.Fatalf("expected bitwise-identical arrival %d, got %+v vs %+v", i, a, b)
		}
	}
}

// TestDirectPathCorrectness matches the cube scenario: source at the
// origin, receiver radius 0.5 at (3,0,0), c=343 — a straight ray along
// +X must register inside the expected travel-time bracket.
func TestDirectPathCorrectness(t *testing.T) {
	mesh := boxMesh(t, 5)
	receiver := ReceiverSphere{Center: Vec3{X: 3}, Radius: 0.5}
	params := noRadiosityParams("direct", 20000)

	result, err := Simulate(context.Background(), mesh, receiver, params, nil)
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	const lo, hi = 2.5 / 343.0, 3.5 / 343.0
	found := false
	for _, a := range result.Arrivals.PerBand[0] {
		if a.TimeSec >= lo && a.TimeSec <= hi {
			found = true
			break
		}
	}
	if !found {
		t.Fatalf("expected at least one arrival with time in [%f, %f]", lo, hi)
	}
}

func TestSimulateHonorsCancellation(t *testing.T) {
	mesh := boxMesh(t, 50)
	receiver := ReceiverSphere{Center: Vec3{X: 5}, Radius: 1}
	params := noRadiosityParams("cancel", 1_000_000)
	params.BatchSize = 64

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Simulate(ctx, mesh, receiver, params, nil)
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("expected Cancelled, got %v", err)
	}
}

func TestFrequencyDependentDecayScalesByAbsorption(t *testing.T) {
	mesh := boxMesh(t, 50)
	receiver := ReceiverSphere{Center: Vec3{X: 5}, Radius: 1}
	params := DefaultSimulationParams()
	params.Seed = "freqdep"
	params.NumRays = 4000
	params.MaxBounces = 10
	params.Radiosity.Enabled = false
	params.Bands = []FrequencyBand{
		{CenterHz: 200, Absorption: 0.1},
		{CenterHz: 10000, Absorption: 0.5},
	}

	result, err := Simulate(context.Background(), mesh, receiver, params, nil)
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	low := result.Arrivals.PerBand[0]
	high := result.Arrivals.PerBand[1]
	if len(low) == 0 || len(high) != len(low) {
		t.Fatalf("expected matching per-band arrival counts (same rays hit), got %d vs %d", len(low), len(high))
	}
	for i := range low {
		if low[i].TimeSec != high[i].TimeSec {
			t.Fatalf("expected both bands to share arrival times for the same ray, got %f vs %f", low[i].TimeSec, high[i].TimeSec)
		}
		if low[i].Amplitude < high[i].Amplitude {
			t.Fatalf("expected the more-absorptive band to attenuate at least as much, low=%f high=%f", low[i].Amplitude, high[i].Amplitude)
		}
	}
}
