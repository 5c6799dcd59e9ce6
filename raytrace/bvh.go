package raytrace

import (
	"math"
	"sort"
)

// leafSize bounds how many triangles a BVH leaf may hold before the build
// splits further.
const leafSize = 4

// bvhNode is a node in the binary AABB tree. Leaves have count > 0 and
// reference a contiguous range [start, start+count) of the triangle order;
// interior nodes have count == 0 and index into nodes via left/right.
type bvhNode struct {
	bounds      aabb
	left, right int32
	start       int32
	count       int32
}

func (n *bvhNode) isLeaf() bool { return n.count > 0 }

// bvhTree is the immutable BVH built once per geometry change. triOrder
// maps traversal order back to original triangle indices so leaves can
// reference contiguous ranges after the build's spatial partitioning.
type bvhTree struct {
	nodes    []bvhNode
	triOrder []int32
}

// buildBVH constructs a top-down BVH over tris using a midpoint split on
// the longest axis of each node's centroid bounds — simple, branch-free to
// reason about, and sufficient for the traversal-order guarantee the spec
// requires (SAH is an allowed but not mandated refinement).
func buildBVH(tris []Triangle) *bvhTree {
	order := make([]int32, len(tris))
	for i := range order {
		order[i] = int32(i)
	}
	t := &bvhTree{nodes: make([]bvhNode, 0, 2*len(tris)), triOrder: order}
	t.build(tris, 0, int32(len(order)))
	return t
}

// build recursively partitions triOrder[start:end] and returns the index of
// the node it created.
func (t *bvhTree) build(tris []Triangle, start, end int32) int32 {
	bounds := emptyAABB()
	centroidBounds := emptyAABB()
	for i := start; i < end; i++ {
		tb := tris[t.triOrder[i]].Bounds
		bounds = bounds.union(tb)
		centroidBounds = centroidBounds.extend(tb.centroid())
	}

	nodeIdx := int32(len(t.nodes))
	t.nodes = append(t.nodes, bvhNode{bounds: bounds})

	count := end - start
	if count <= leafSize {
		t.nodes[nodeIdx].start = start
		t.nodes[nodeIdx].count = count
		return nodeIdx
	}

	extent := centroidBounds.Max.Sub(centroidBounds.Min)
	axis := 0
	if extent.Y > extent.X {
		axis = 1
	}
	if axis == 0 && extent.Z > extent.X {
		axis = 2
	}
	if axis == 1 && extent.Z > extent.Y {
		axis = 2
	}

	mid := componentAt(centroidBounds.centroid(), axis)
	order := t.triOrder[start:end]
	sort.Slice(order, func(i, j int) bool {
		return componentAt(tris[order[i]].Bounds.centroid(), axis) < componentAt(tris[order[j]].Bounds.centroid(), axis)
	})

	splitPos := start + count/2
	for i := start; i < end; i++ {
		if componentAt(tris[t.triOrder[i]].Bounds.centroid(), axis) >= mid {
			splitPos = i
			break
		}
	}
	if splitPos == start || splitPos == end {
		splitPos = start + count/2
	}

	left := t.build(tris, start, splitPos)
	right := t.build(tris, splitPos, end)
	t.nodes[nodeIdx].left = left
	t.nodes[nodeIdx].right = right
	return nodeIdx
}

func componentAt(v Vec3, axis int) float64 {
	switch axis {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}

// closestHit traverses the tree nearest-first, pushing the nearer child
// last so it is popped first, and pruning any child whose entry distance
// exceeds the current best hit.
func (t *bvhTree) closestHit(tris []Triangle, origin, dir Vec3) (Hit, bool) {
	if len(t.nodes) == 0 {
		return Hit{}, false
	}
	invDir := Vec3{X: safeInv(dir.X), Y: safeInv(dir.Y), Z: safeInv(dir.Z)}

	best := Hit{}
	bestDist := infFloat()
	found := false

	type stackEntry struct {
		node int32
		tMin float64
	}
	stack := make([]stackEntry, 0, 64)
	stack = append(stack, stackEntry{node: 0, tMin: 0})

	for len(stack) > 0 {
		e := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if e.tMin > bestDist {
			continue
		}
		n := &t.nodes[e.node]

		if n.isLeaf() {
			for i := n.start; i < n.start+n.count; i++ {
				tri := tris[t.triOrder[i]]
				d, ok := intersectTriangle(origin, dir, tri.V0, tri.V1, tri.V2)
				if !ok || d >= bestDist {
					continue
				}
				if !isFiniteF(d) {
					continue
				}
				bestDist = d
				best = Hit{
					Distance:   d,
					Point:      origin.Add(dir.Scale(d)),
					Normal:     tri.Normal,
					TriangleID: int(t.triOrder[i]),
				}
				found = true
			}
			continue
		}

		leftNode := &t.nodes[n.left]
		rightNode := &t.nodes[n.right]
		tL, hitL := leftNode.bounds.intersect(origin, invDir, bestDist)
		tR, hitR := rightNode.bounds.intersect(origin, invDir, bestDist)

		switch {
		case hitL && hitR:
			if tL <= tR {
				stack = append(stack, stackEntry{node: n.right, tMin: tR})
				stack = append(stack, stackEntry{node: n.left, tMin: tL})
			} else {
				stack = append(stack, stackEntry{node: n.left, tMin: tL})
				stack = append(stack, stackEntry{node: n.right, tMin: tR})
			}
		case hitL:
			stack = append(stack, stackEntry{node: n.left, tMin: tL})
		case hitR:
			stack = append(stack, stackEntry{node: n.right, tMin: tR})
		}
	}

	return best, found
}

func safeInv(x float64) float64 {
	if x == 0 {
		return math.Inf(1)
	}
	return 1 / x
}

func infFloat() float64 {
	return math.Inf(1)
}
