package raytrace

import "math"

// Triangle is a mesh face: three vertices, a precomputed unit face normal,
// and axis-aligned bounds used by the BVH build.
type Triangle struct {
	V0, V1, V2 Vec3
	Normal     Vec3
	Bounds     aabb
}

type aabb struct {
	Min, Max Vec3
}

func emptyAABB() aabb {
	inf := math.Inf(1)
	return aabb{Min: Vec3{X: inf, Y: inf, Z: inf}, Max: Vec3{X: -inf, Y: -inf, Z: -inf}}
}

func (b aabb) extend(p Vec3) aabb {
	return aabb{Min: minVec(b.Min, p), Max: maxVec(b.Max, p)}
}

func (b aabb) union(o aabb) aabb {
	return aabb{Min: minVec(b.Min, o.Min), Max: maxVec(b.Max, o.Max)}
}

func (b aabb) centroid() Vec3 {
	return b.Min.Add(b.Max).Scale(0.5)
}

// intersect runs the slab test, clipped to [epsHit, tMax], and returns the
// entry distance along the ray and whether the box is hit in that range.
func (b aabb) intersect(origin, invDir Vec3, tMax float64) (float64, bool) {
	tMin := epsHit
	for axis := 0; axis < 3; axis++ {
		var o, inv, lo, hi float64
		switch axis {
		case 0:
			o, inv, lo, hi = origin.X, invDir.X, b.Min.X, b.Max.X
		case 1:
			o, inv, lo, hi = origin.Y, invDir.Y, b.Min.Y, b.Max.Y
		default:
			o, inv, lo, hi = origin.Z, invDir.Z, b.Min.Z, b.Max.Z
		}
		t0 := (lo - o) * inv
		t1 := (hi - o) * inv
		if inv < 0 {
			t0, t1 = t1, t0
		}
		if t0 > tMin {
			tMin = t0
		}
		if t1 < tMax {
			tMax = t1
		}
		if tMin > tMax {
			return 0, false
		}
	}
	return tMin, true
}

func triangleBounds(v0, v1, v2 Vec3) aabb {
	return emptyAABB().extend(v0).extend(v1).extend(v2)
}

// Hit is the result of a successful mesh query.
type Hit struct {
	Distance   float64
	Point      Vec3
	Normal     Vec3
	TriangleID int
}

// Mesh owns an immutable BVH over its triangles. Built once per geometry
// change; read-only during ray tracing.
type Mesh struct {
	triangles []Triangle
	tree      *bvhTree
}

// BuildMesh constructs a Mesh from a flat vertex list and optional index
// list. If indices is nil, every consecutive triple of positions forms a
// triangle. BuildMesh takes no vertex normals: face normals are always
// recomputed from geometry, following the vertex winding. Degenerate triangles (near
// zero area) are skipped; a mesh with no surviving triangles is rejected.
func BuildMesh(positions []Vec3, indices []int) (*Mesh, error) {
	if len(positions) == 0 {
		return nil, newError(KindInvalidGeometry, "no vertices supplied")
	}
	for _, p := range positions {
		if !p.isFinite() {
			return nil, newError(KindInvalidGeometry, "non-finite vertex position")
		}
	}

	var idx []int
	if indices != nil {
		idx = indices
	} else {
		idx = make([]int, len(positions))
		for i := range idx {
			idx[i] = i
		}
	}
	if len(idx)%3 != 0 {
		return nil, newError(KindInvalidGeometry, "index/position count is not a multiple of 3")
	}

	tris := make([]Triangle, 0, len(idx)/3)
	for i := 0; i+2 < len(idx); i += 3 {
		ia, ib, ic := idx[i], idx[i+1], idx[i+2]
		if ia < 0 || ib < 0 || ic < 0 || ia >= len(positions) || ib >= len(positions) || ic >= len(positions) {
			return nil, newError(KindInvalidGeometry, "triangle index out of range")
		}
		v0, v1, v2 := positions[ia], positions[ib], positions[ic]
		e1 := v1.Sub(v0)
		e2 := v2.Sub(v0)
		n := e1.Cross(e2)
		area2 := n.Length()
		if area2 < 1e-12 {
			continue // degenerate triangle, skip at build time
		}
		tris = append(tris, Triangle{
			V0: v0, V1: v1, V2: v2,
			Normal: n.Scale(1 / area2),
			Bounds: triangleBounds(v0, v1, v2),
		})
	}
	if len(tris) == 0 {
		return nil, newError(KindInvalidGeometry, "mesh has no non-degenerate triangles")
	}

	return &Mesh{triangles: tris, tree: buildBVH(tris)}, nil
}

// ClosestHit returns the nearest intersection beyond epsHit along the ray,
// or false if the ray misses the mesh entirely.
func (m *Mesh) ClosestHit(origin, dir Vec3) (Hit, bool) {
	if m == nil || m.tree == nil {
		return Hit{}, false
	}
	return m.tree.closestHit(m.triangles, origin, dir)
}
