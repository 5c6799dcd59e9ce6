package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/cwbudde/roomray/ir"
	"github.com/cwbudde/roomray/internal/wavio"
	"github.com/cwbudde/roomray/raytrace"
)

// geometryFile is the on-disk JSON shape accepted by -geometry: a flat
// position list (x,y,z per vertex) and an optional index list.
type geometryFile struct {
	Positions []float64 `json:"positions"`
	Indices   []int     `json:"indices,omitempty"`
}

func main() {
	geometryPath := flag.String("geometry", "", "Path to a JSON file with {positions:[...], indices:[...]}")
	output := flag.String("output", "out/ir.wav", "Output mono WAV path")
	bandsOutput := flag.String("bands-output", "", "Optional per-band breakdown WAV path")
	sampleRate := flag.Int("sample-rate", 48000, "Output sample rate")
	numRays := flag.Int("rays", 200000, "Number of rays to emit")
	maxBounces := flag.Int("max-bounces", 128, "Maximum bounces per ray")
	seed := flag.String("seed", "roomray", "PRNG seed")
	speedOfSound := flag.Float64("speed-of-sound", 343.0, "Speed of sound, m/s")
	rxX := flag.Float64("receiver-x", 1, "Receiver center X")
	rxY := flag.Float64("receiver-y", 0, "Receiver center Y")
	rxZ := flag.Float64("receiver-z", 0, "Receiver center Z")
	rxRadius := flag.Float64("receiver-radius", 0.5, "Receiver sphere radius")
	radiosityEnabled := flag.Bool("radiosity", true, "Enable the late radiosity tail")
	scattering := flag.Float64("scattering", 0.25, "Scattering coefficient s in [0,1]")
	poissonDensity := flag.Float64("poisson-density", 10, "Radiosity Poisson density")
	flag.Parse()

	if *geometryPath == "" {
		fmt.Fprintln(os.Stderr, "raytrace-render: -geometry is required")
		os.Exit(1)
	}

	mesh, err := loadMesh(*geometryPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "raytrace-render: %v\n", err)
		os.Exit(1)
	}

	receiver := raytrace.ReceiverSphere{
		Center: raytrace.Vec3{X: *rxX, Y: *rxY, Z: *rxZ},
		Radius: *rxRadius,
	}

	params := raytrace.DefaultSimulationParams()
	params.Seed = *seed
	params.NumRays = *numRays
	params.MaxBounces = *maxBounces
	params.SpeedOfSound = *speedOfSound
	params.Radiosity.Enabled = *radiosityEnabled
	params.Radiosity.ScatteringCoeff = *scattering
	params.Radiosity.PoissonDensity = *poissonDensity

	start := time.Now()
	result, err := raytrace.Simulate(context.Background(), mesh, receiver, params, func(p raytrace.Progress) {
		fmt.Fprintf(os.Stderr, "\rprogress %.1f%% (%.0f rays/s)", p.FractionDone*100, p.RaysPerSecond)
	})
	fmt.Fprintln(os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "raytrace-render: simulation failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "simulated %d rays in %s, %d aborted\n", params.NumRays, time.Since(start), result.AbortedRays)

	bands := ir.Assemble(result.Arrivals, *sampleRate)
	mixed, filtered, err := ir.FilterAndMix(bands, *sampleRate)
	if err != nil {
		fmt.Fprintf(os.Stderr, "raytrace-render: filter/mix failed: %v\n", err)
		os.Exit(1)
	}

	if err := wavio.WriteMono(*output, mixed, *sampleRate); err != nil {
		fmt.Fprintf(os.Stderr, "raytrace-render: write wav: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "wrote %s (%d samples, %.3fs)\n", *output, len(mixed), float64(len(mixed))/float64(*sampleRate))

	if *bandsOutput != "" {
		perBand := make([][]float64, len(filtered))
		for i, b := range filtered {
			perBand[i] = b.Samples
		}
		if err := wavio.WriteMultiChannel(*bandsOutput, perBand, *sampleRate); err != nil {
			fmt.Fprintf(os.Stderr, "raytrace-render: write band breakdown: %v\n", err)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "wrote %s (%d channels)\n", *bandsOutput, len(perBand))
	}
}

// loadMesh reads a flat position/index geometry file. The source is always
// emitted from the coordinate-frame origin, so geometry must be authored
// with the source position baked into the mesh's local coordinates.
func loadMesh(path string) (*raytrace.Mesh, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read geometry: %w", err)
	}
	var g geometryFile
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("parse geometry: %w", err)
	}
	positions := make([]raytrace.Vec3, len(g.Positions)/3)
	for i := range positions {
		positions[i] = raytrace.Vec3{X: g.Positions[i*3], Y: g.Positions[i*3+1], Z: g.Positions[i*3+2]}
	}
	return raytrace.BuildMesh(positions, g.Indices)
}
