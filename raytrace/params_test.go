package raytrace

import (
	"errors"
	"testing"
)

func TestSimulationParamsValidateRejectsZeroRays(t *testing.T) {
	p := DefaultSimulationParams()
	p.NumRays = 0
	if err := p.Validate(); !errors.Is(err, ErrInvalidParams) {
		t.Fatalf("expected InvalidParams, got %v", err)
	}
}

func TestSimulationParamsValidateRejectsEmptyBands(t *testing.T) {
	p := DefaultSimulationParams()
	p.Bands = nil
	if err := p.Validate(); !errors.Is(err, ErrInvalidParams) {
		t.Fatalf("expected InvalidParams, got %v", err)
	}
}

func TestSimulationParamsValidateRejectsOutOfRangeAbsorption(t *testing.T) {
	p := DefaultSimulationParams()
	p.Bands = []FrequencyBand{{CenterHz: 500, Absorption: 1.5}}
	if err := p.Validate(); !errors.Is(err, ErrInvalidParams) {
		t.Fatalf("expected InvalidParams, got %v", err)
	}
}

func TestRayRadiosityConfigValidateChecksHistogramBounds(t *testing.T) {
	c := DefaultRayRadiosityConfig()
	c.HistogramResolution = 1e-5
	if err := c.Validate(true); !errors.Is(err, ErrInvalidParams) {
		t.Fatalf("expected InvalidParams for too-fine histogram resolution, got %v", err)
	}
}

func TestRayRadiosityConfigValidateIgnoresHistogramBoundsWhenDisabled(t *testing.T) {
	c := DefaultRayRadiosityConfig()
	c.HistogramResolution = 1e-5 // invalid if enabled, irrelevant if not
	if err := c.Validate(false); err != nil {
		t.Fatalf("expected no error when radiosity is disabled, got %v", err)
	}
}

func TestSortedBandsOrdersAscendingByCenter(t *testing.T) {
	bands := []FrequencyBand{{CenterHz: 3200}, {CenterHz: 200}, {CenterHz: 800}}
	sorted := sortedBands(bands)
	for i := 1; i < len(sorted); i++ {
		if sorted[i].CenterHz < sorted[i-1].CenterHz {
			t.Fatalf("expected ascending order, got %v", sorted)
		}
	}
}
