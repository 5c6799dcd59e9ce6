package raytrace

import (
	"hash/fnv"
	"math"
	"math/rand"

	"github.com/cwbudde/algo-approx"
)

// seedStream derives a deterministic per-substream, per-index seed from a
// string seed. Two calls with the same (seed, tag, index) always produce
// the same stream, on any platform, regardless of thread count — the
// substream is keyed by the caller's logical index, not by which goroutine
// happened to service it.
func seedStream(seed string, tag string, index int) *rand.Rand {
	h := fnv.New64a()
	_, _ = h.Write([]byte(seed))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(tag))
	_, _ = h.Write([]byte{0})
	var idxBytes [8]byte
	v := uint64(index)
	for i := 0; i < 8; i++ {
		idxBytes[i] = byte(v >> (8 * i))
	}
	_, _ = h.Write(idxBytes[:])
	return rand.New(rand.NewSource(int64(h.Sum64())))
}

// rayStream returns the main-driver substream for ray rayIndex.
func rayStream(seed string, rayIndex int) *rand.Rand {
	return seedStream(seed, "ray", rayIndex)
}

// radiosityStream returns the auxiliary substream used for late-pulse
// synthesis for band bandIndex, kept distinct from the per-ray streams so
// radiosity density changes never perturb early-arrival reproducibility.
func radiosityStream(seed string, bandIndex int) *rand.Rand {
	return seedStream(seed, "radiosity", bandIndex)
}

// unitSphereDirection draws a direction uniform on S² via the standard
// inverse-CDF construction: z = 2u-1, φ = 2π u'.
func unitSphereDirection(rng *rand.Rand) Vec3 {
	z := 2*rng.Float64() - 1
	phi := 2 * math.Pi * rng.Float64()
	r := math.Sqrt(math.Max(0, 1-z*z))
	return Vec3{X: r * math.Cos(phi), Y: r * math.Sin(phi), Z: z}
}

// orthonormalBasis builds a tangent frame around unit normal n, seeding
// the tangent with the X axis, or with the Y axis when |n.X| >= 0.9, to
// avoid degeneracy when n is close to X.
func orthonormalBasis(n Vec3) (t, b Vec3) {
	var helper Vec3
	if math.Abs(n.X) < 0.9 {
		helper = Vec3{X: 1}
	} else {
		helper = Vec3{Y: 1}
	}
	t = helper.Cross(n).Normalize()
	b = n.Cross(t)
	return t, b
}

// cosineWeightedHemisphere samples a direction from the cosine-weighted
// hemisphere over unit normal n: r = √u1, φ = 2π u2, with the result
// expressed in the (t, b, n) frame and renormalized.
func cosineWeightedHemisphere(rng *rand.Rand, n Vec3) Vec3 {
	u1 := rng.Float64()
	u2 := rng.Float64()
	r := math.Sqrt(u1)
	phi := 2 * math.Pi * u2
	t, b := orthonormalBasis(n)
	x := r * math.Cos(phi)
	y := r * math.Sin(phi)
	z := math.Sqrt(math.Max(0, 1-u1))
	dir := t.Scale(x).Add(b.Scale(y)).Add(n.Scale(z))
	return dir.Normalize()
}

// poissonSample draws a Poisson(λ) count using Knuth's multiplicative
// algorithm. It is intended for the small-to-moderate λ the radiosity tail
// produces per histogram bin; algo-approx's fast exponential keeps the
// per-bin e^-λ term cheap since this runs once per non-empty bin.
func poissonSample(rng *rand.Rand, lambda float64) int {
	if lambda <= 0 {
		return 0
	}
	l := approx.FastExp(float32(-lambda))
	k := 0
	p := float32(1.0)
	for {
		k++
		p *= float32(rng.Float64())
		if p <= l {
			return k - 1
		}
	}
}
