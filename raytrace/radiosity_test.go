package raytrace

import (
	"context"
	"testing"
)

// TestRadiosityPoissonDensityIncreasesLateArrivalCount covers the
// monotonicity property: for a fixed seed and mesh, raising poissonDensity
// strictly increases the expected late-arrival count.
func TestRadiosityPoissonDensityIncreasesLateArrivalCount(t *testing.T) {
	mesh, err := BuildMesh(cubePositions(5), cubeIndices())
	if err != nil {
		t.Fatalf("BuildMesh: %v", err)
	}
	receiver := ReceiverSphere{Center: Vec3{X: 1}, Radius: 0.5}

	base := func(density float64, seed string) int {
		p := DefaultSimulationParams()
		p.Seed = seed
		p.NumRays = 3000
		p.MaxBounces = 16
		p.Bands = []FrequencyBand{{CenterHz: 1000, Absorption: 0.2}}
		p.Radiosity.Enabled = true
		p.Radiosity.HybridBounceThreshold = 1
		p.Radiosity.PoissonDensity = density
		result, err := Simulate(context.Background(), mesh, receiver, p, nil)
		if err != nil {
			t.Fatalf("Simulate: %v", err)
		}
		return result.LateArrivalCount
	}

	lowTotal, highTotal := 0, 0
	const trials = 12
	for i := 0; i < trials; i++ {
		seed := "density-trial-" + string(rune('a'+i))
		lowTotal += base(5, seed)
		highTotal += base(50, seed)
	}
	if highTotal <= lowTotal {
		t.Fatalf("expected higher poissonDensity to increase total late arrivals across trials, low=%d high=%d", lowTotal, highTotal)
	}
}
