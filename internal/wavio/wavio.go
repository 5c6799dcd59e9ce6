// Package wavio reads and writes mono PCM16 WAV files using the same
// encoder/decoder pair the rest of the toolchain uses for audio I/O.
package wavio

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/cwbudde/wav"
	"github.com/go-audio/audio"
)

// WriteMono writes samples as a PCM16 mono WAV file, creating parent
// directories as needed. Samples are clamped to [-1,1] and rounded before
// quantization, per round(clamp(x,-1,1) * 32767).
func WriteMono(path string, samples []float64, sampleRate int) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, 16, 1, 1)
	defer enc.Close()

	data := make([]float32, len(samples))
	for i, s := range samples {
		data[i] = float32(quantizeSample(s))
	}

	buf := &audio.Float32Buffer{
		Format: &audio.Format{
			SampleRate:  sampleRate,
			NumChannels: 1,
		},
		Data:           data,
		SourceBitDepth: 16,
	}
	return enc.Write(buf)
}

// quantizeSample mirrors the PCM16 round-trip: it returns the float32-scale
// value that writing through 16-bit PCM and reading it back would produce.
func quantizeSample(x float64) float64 {
	c := math.Max(-1, math.Min(1, x))
	q := math.Round(c * 32767)
	return q / 32767
}

// ReadMono decodes a WAV file to mono float64 samples, downmixing by
// channel average if the file is not already mono.
func ReadMono(path string) ([]float64, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, 0, fmt.Errorf("wavio: invalid wav file: %s", path)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, err
	}
	if buf == nil || buf.Format == nil || buf.Format.NumChannels < 1 {
		return nil, 0, fmt.Errorf("wavio: invalid wav buffer: %s", path)
	}

	ch := buf.Format.NumChannels
	frames := len(buf.Data) / ch
	out := make([]float64, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for c := 0; c < ch; c++ {
			sum += float64(buf.Data[i*ch+c])
		}
		out[i] = sum / float64(ch) / 32768.0
	}
	return out, buf.Format.SampleRate, nil
}

// WriteMultiChannel writes a per-band breakdown as a multi-channel PCM16
// WAV, one channel per band, for inspection alongside the mixed output.
func WriteMultiChannel(path string, bands [][]float64, sampleRate int) error {
	if len(bands) == 0 {
		return fmt.Errorf("wavio: no bands to write")
	}
	n := len(bands[0])
	for _, b := range bands {
		if len(b) != n {
			return fmt.Errorf("wavio: band length mismatch")
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	numCh := len(bands)
	enc := wav.NewEncoder(f, sampleRate, 16, numCh, 1)
	defer enc.Close()

	data := make([]float32, n*numCh)
	for i := 0; i < n; i++ {
		for c, band := range bands {
			data[i*numCh+c] = float32(quantizeSample(band[i]))
		}
	}

	buf := &audio.Float32Buffer{
		Format: &audio.Format{
			SampleRate:  sampleRate,
			NumChannels: numCh,
		},
		Data:           data,
		SourceBitDepth: 16,
	}
	return enc.Write(buf)
}
