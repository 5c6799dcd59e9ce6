package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/cwbudde/roomray/raytrace"
)

// state tracks which commands are currently legal, mirroring the
// orchestrator's lifecycle: geometry must be set before a simulation can
// run, and a recoverable error leaves the previous state untouched.
type state int

const (
	stateUninitialized state = iota
	stateReady
	stateGeometrySet
)

// Orchestrator drives the ray-tracing engine off the caller's goroutine.
// It is not safe for concurrent use by multiple goroutines issuing
// commands at once; serialize calls to Handle.
type Orchestrator struct {
	state    state
	mesh     *raytrace.Mesh
	receiver raytrace.ReceiverSphere
}

// New returns an orchestrator in its uninitialized state.
func New() *Orchestrator {
	return &Orchestrator{state: stateUninitialized}
}

// Handle processes one command, emitting zero or more events on events.
// For CommandSimulate, Handle blocks until the simulation completes, is
// cancelled via ctx, or fails; progress events are delivered as they are
// produced. events must accept sends without blocking indefinitely, or be
// serviced by a concurrently reading caller.
func (o *Orchestrator) Handle(ctx context.Context, cmd Command, events chan<- Event) {
	switch cmd.Type {
	case CommandInit:
		o.state = stateReady
		events <- Event{Type: EventReady}

	case CommandSetGeometry:
		if cmd.SetGeometry == nil {
			events <- Event{Type: EventError, Error: "setGeometry: missing data"}
			return
		}
		if err := o.applyGeometry(cmd.SetGeometry); err != nil {
			events <- Event{Type: EventError, Error: err.Error()}
			return
		}
		o.state = stateGeometrySet
		events <- Event{Type: EventGeometrySet}

	case CommandSimulate:
		if o.state != stateGeometrySet {
			events <- Event{Type: EventError, Error: raytrace.ErrNotReady.Error()}
			return
		}
		if cmd.Simulate == nil {
			events <- Event{Type: EventError, Error: "simulate: missing data"}
			return
		}
		o.runSimulation(ctx, cmd.Simulate, events)

	case CommandTerminate:
		o.mesh = nil
		o.state = stateUninitialized

	default:
		events <- Event{Type: EventError, Error: fmt.Sprintf("unknown command type %q", cmd.Type)}
	}
}

func (o *Orchestrator) applyGeometry(data *SetGeometryData) error {
	positions := toVec3Slice(data.RoomGeometry.Positions)
	var indices []int
	if data.RoomGeometry.Indices != nil {
		indices = data.RoomGeometry.Indices
	}
	mesh, err := raytrace.BuildMesh(positions, indices)
	if err != nil {
		return err
	}
	o.mesh = mesh
	o.receiver = raytrace.ReceiverSphere{
		Center: raytrace.Vec3{X: data.EmitterPosition.X, Y: data.EmitterPosition.Y, Z: data.EmitterPosition.Z},
		Radius: data.EmitterRadius,
	}
	return nil
}

func toVec3Slice(flat []float64) []raytrace.Vec3 {
	out := make([]raytrace.Vec3, len(flat)/3)
	for i := range out {
		out[i] = raytrace.Vec3{X: flat[i*3], Y: flat[i*3+1], Z: flat[i*3+2]}
	}
	return out
}

func (o *Orchestrator) runSimulation(ctx context.Context, wire *SimulationParamsWire, events chan<- Event) {
	params, err := fromWire(wire)
	if err != nil {
		events <- Event{Type: EventError, Error: err.Error()}
		return
	}

	lastRPS := 0
	result, err := raytrace.Simulate(ctx, o.mesh, o.receiver, params, func(p raytrace.Progress) {
		lastRPS = int(p.RaysPerSecond)
		events <- Event{Type: EventProgress, Progress: &ProgressEvent{
			Progress:        p.FractionDone,
			RaysPerSecond:   lastRPS,
			CurrentArrivals: p.TotalArrivals,
		}}
	})
	if err != nil {
		var rtErr *raytrace.Error
		if errors.As(err, &rtErr) && rtErr.Kind == raytrace.KindCancelled {
			return // cancellation is silent: no complete, no error event
		}
		events <- Event{Type: EventError, Error: err.Error()}
		return
	}

	complete := toCompleteEvent(result, params, wire)
	complete.AvgRaysPerSecond = lastRPS
	events <- Event{Type: EventComplete, Complete: complete}
}

func fromWire(wire *SimulationParamsWire) (raytrace.SimulationParams, error) {
	bands := make([]raytrace.FrequencyBand, 0, len(wire.AbsorptionCoeffs))
	for hzStr, alpha := range wire.AbsorptionCoeffs {
		hz, err := strconv.ParseFloat(hzStr, 64)
		if err != nil {
			return raytrace.SimulationParams{}, fmt.Errorf("orchestrator: invalid band key %q: %w", hzStr, err)
		}
		bands = append(bands, raytrace.FrequencyBand{CenterHz: hz, Absorption: alpha})
	}
	sort.Slice(bands, func(i, j int) bool { return bands[i].CenterHz < bands[j].CenterHz })

	speed := wire.SpeedOfSound
	if speed <= 0 {
		speed = 343.0
	}

	params := raytrace.SimulationParams{
		Seed:         wire.Seed,
		NumRays:      wire.NumRays,
		MaxBounces:   wire.MaxBounces,
		SpeedOfSound: speed,
		Bands:        bands,
		BatchSize:    wire.BatchSize,
		Radiosity: raytrace.RayRadiosityConfig{
			Enabled:               wire.RRConfig.Enabled,
			ScatteringCoeff:       wire.RRConfig.ScatteringCoeff,
			HistogramResolution:   wire.RRConfig.HistogramResolution,
			MaxTime:               wire.RRConfig.MaxTime,
			HybridBounceThreshold: wire.RRConfig.HybridBounceThreshold,
			PoissonDensity:        wire.RRConfig.PoissonDensity,
			DiffuseGain:           wire.RRConfig.DiffuseGain,
			MinEnergyThreshold:    wire.RRConfig.MinEnergyThreshold,
		},
	}
	return params, params.Validate()
}

func toCompleteEvent(result raytrace.Result, params raytrace.SimulationParams, wire *SimulationParamsWire) *CompleteEvent {
	freqBands := make([]int, len(result.Arrivals.Bands))
	totalArrivals := 0
	for i, b := range result.Arrivals.Bands {
		freqBands[i] = int(b.CenterHz)
		totalArrivals += len(result.Arrivals.PerBand[i])
	}

	evt := &CompleteEvent{
		FreqBands:     freqBands,
		TotalArrivals: totalArrivals,
		RayRadiosity: CompleteRadiosity{
			Enabled:          params.Radiosity.Enabled,
			LateArrivalCount: result.LateArrivalCount,
			HistogramBins:    histogramBinCount(params.Radiosity),
			RRConfig:         wire.RRConfig,
		},
	}

	if wire.UseFreqDependent {
		evt.ArrivalsByBand = make(map[string][]ArrivalWire, len(result.Arrivals.Bands))
		for i, b := range result.Arrivals.Bands {
			key := strconv.Itoa(int(b.CenterHz))
			evt.ArrivalsByBand[key] = toArrivalWire(result.Arrivals.PerBand[i])
		}
	} else if len(result.Arrivals.PerBand) > 0 {
		evt.Arrivals = toArrivalWire(result.Arrivals.PerBand[0])
	}

	return evt
}

func toArrivalWire(arrivals []raytrace.Arrival) []ArrivalWire {
	out := make([]ArrivalWire, len(arrivals))
	for i, a := range arrivals {
		out[i] = ArrivalWire{Time: a.TimeSec, Amplitude: a.Amplitude}
	}
	return out
}

func histogramBinCount(rr raytrace.RayRadiosityConfig) int {
	if !rr.Enabled {
		return 0
	}
	return int(rr.MaxTime/rr.HistogramResolution) + 1
}
