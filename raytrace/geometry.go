package raytrace

import "math"

// epsHit is the minimum intersection distance accepted from a mesh or
// receiver query, avoiding self-intersection immediately after a reflection.
const epsHit = 1e-3

// offsetEps is the distance a reflected ray's origin is advanced along its
// new direction to escape the surface it just left.
const offsetEps = 1e-3

// Vec3 is a 64-bit three-component vector, closed under the operations
// the engine needs: add, sub, scale, dot, cross, normalize, reflect, length.
type Vec3 struct {
	X, Y, Z float64
}

func (a Vec3) Add(b Vec3) Vec3 { return Vec3{a.X + b.X, a.Y + b.Y, a.Z + b.Z} }
func (a Vec3) Sub(b Vec3) Vec3 { return Vec3{a.X - b.X, a.Y - b.Y, a.Z - b.Z} }
func (a Vec3) Scale(s float64) Vec3 {
	return Vec3{a.X * s, a.Y * s, a.Z * s}
}
func (a Vec3) Dot(b Vec3) float64 { return a.X*b.X + a.Y*b.Y + a.Z*b.Z }
func (a Vec3) Cross(b Vec3) Vec3 {
	return Vec3{
		a.Y*b.Z - a.Z*b.Y,
		a.Z*b.X - a.X*b.Z,
		a.X*b.Y - a.Y*b.X,
	}
}
func (a Vec3) LengthSq() float64 { return a.Dot(a) }
func (a Vec3) Length() float64   { return math.Sqrt(a.LengthSq()) }

func (a Vec3) Normalize() Vec3 {
	l := a.Length()
	if l < 1e-12 {
		return Vec3{}
	}
	return a.Scale(1.0 / l)
}

// Reflect mirrors a about unit normal n: d' = d - 2(d·n)n.
func (a Vec3) Reflect(n Vec3) Vec3 {
	return a.Sub(n.Scale(2 * a.Dot(n)))
}

func (a Vec3) isFinite() bool {
	return isFiniteF(a.X) && isFiniteF(a.Y) && isFiniteF(a.Z)
}

func isFiniteF(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

func minVec(a, b Vec3) Vec3 {
	return Vec3{math.Min(a.X, b.X), math.Min(a.Y, b.Y), math.Min(a.Z, b.Z)}
}

func maxVec(a, b Vec3) Vec3 {
	return Vec3{math.Max(a.X, b.X), math.Max(a.Y, b.Y), math.Max(a.Z, b.Z)}
}

// intersectTriangle implements the Möller–Trumbore ray/triangle test and
// returns the intersection distance along dir (direction need not be unit
// length; the returned t scales it) and whether it lies strictly beyond
// epsHit.
func intersectTriangle(origin, dir, v0, v1, v2 Vec3) (float64, bool) {
	const eps = 1e-9
	edge1 := v1.Sub(v0)
	edge2 := v2.Sub(v0)
	pvec := dir.Cross(edge2)
	det := edge1.Dot(pvec)
	if det > -eps && det < eps {
		return 0, false
	}
	invDet := 1.0 / det
	tvec := origin.Sub(v0)
	u := tvec.Dot(pvec) * invDet
	if u < 0 || u > 1 {
		return 0, false
	}
	qvec := tvec.Cross(edge1)
	v := dir.Dot(qvec) * invDet
	if v < 0 || u+v > 1 {
		return 0, false
	}
	t := edge2.Dot(qvec) * invDet
	if t <= epsHit {
		return 0, false
	}
	return t, true
}

// intersectSphere returns the nearest positive root beyond epsHit of the
// ray/sphere quadratic, or false if the ray misses or the sphere is fully
// behind the ray origin.
func intersectSphere(origin, dir Vec3, center Vec3, radius float64) (float64, bool) {
	oc := origin.Sub(center)
	a := dir.Dot(dir)
	if a < 1e-18 {
		return 0, false
	}
	b := 2 * oc.Dot(dir)
	c := oc.Dot(oc) - radius*radius
	disc := b*b - 4*a*c
	if disc < 0 {
		return 0, false
	}
	sq := math.Sqrt(disc)
	t0 := (-b - sq) / (2 * a)
	t1 := (-b + sq) / (2 * a)
	if t0 > epsHit {
		return t0, true
	}
	if t1 > epsHit {
		return t1, true
	}
	return 0, false
}

// mixReflection blends a pure specular direction with a cosine-weighted
// diffuse direction by scattering coefficient s ∈ [0,1]: s=0 is pure
// specular, s=1 is pure diffuse.
func mixReflection(s float64, specular, diffuse Vec3) Vec3 {
	if s <= 0 {
		return specular
	}
	if s >= 1 {
		return diffuse.Normalize()
	}
	return specular.Scale(1 - s).Add(diffuse.Scale(s)).Normalize()
}
