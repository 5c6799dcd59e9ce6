package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/cwbudde/roomray/analysis"
	"github.com/cwbudde/roomray/internal/wavio"
)

func main() {
	flag.Parse()
	args := flag.Args()
	if len(args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: raytrace-compare <a.wav> <b.wav>")
		os.Exit(1)
	}

	a, rateA, err := wavio.ReadMono(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "raytrace-compare: %v\n", err)
		os.Exit(1)
	}
	b, rateB, err := wavio.ReadMono(args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "raytrace-compare: %v\n", err)
		os.Exit(1)
	}
	if rateA != rateB {
		fmt.Fprintf(os.Stderr, "raytrace-compare: sample rate mismatch: %d vs %d\n", rateA, rateB)
		os.Exit(1)
	}

	metrics, err := analysis.CompareSpectral(a, b, rateA)
	if err != nil {
		fmt.Fprintf(os.Stderr, "raytrace-compare: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("sample_rate=%d bins=%d spectral_rmse_db=%.3f\n", metrics.SampleRate, metrics.Bins, metrics.RMSEDB)
}
