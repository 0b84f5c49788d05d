package geom

import (
	"github.com/chewxy/math32"
)

const (
	// Direction components smaller than this fraction of the direction
	// length are treated as parallel to the corresponding slab.
	Epsilon float32 = 1e-6

	// Tolerance applied to barycentric bounds so that rays through a shared
	// edge are reported by at least one of the adjacent triangles.
	baryEpsilon float32 = 1e-6
)

// The result of a ray-triangle intersection.
type TriangleHit struct {
	// Distance along the ray, in units of the ray direction length.
	Distance float32

	// Barycentric coordinates of the hit point relative to B and C.
	U, V float32
}

// RayAABBEntry runs the slab test and returns the distance at which the ray
// enters the box, clamped to 0 when the origin lies inside it. The test
// fails if the box is empty or is not reached within maxDistance.
func RayAABBEntry(ray Ray, box AABB, maxDistance float32) (float32, bool) {
	if box.IsEmpty() {
		return 0, false
	}

	// Rays moved into object space keep world-length directions, which may
	// be far from unit length under large scales.
	parallel := Epsilon * ray.Dir.Len()

	tMin := float32(0)
	tMax := maxDistance
	for axis := 0; axis < 3; axis++ {
		o := ray.Origin[axis]
		d := ray.Dir[axis]

		// Parallel to this slab; the origin must lie between the planes.
		if math32.Abs(d) <= parallel {
			if o < box.Min[axis] || o > box.Max[axis] {
				return 0, false
			}
			continue
		}

		invD := 1.0 / d
		t1 := (box.Min[axis] - o) * invD
		t2 := (box.Max[axis] - o) * invD
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		if t1 > tMin {
			tMin = t1
		}
		if t2 < tMax {
			tMax = t2
		}
		if tMin > tMax {
			return 0, false
		}
	}

	return tMin, true
}

// RayIntersectsAABB returns true if the ray reaches the box within maxDistance.
func RayIntersectsAABB(ray Ray, box AABB, maxDistance float32) bool {
	_, hit := RayAABBEntry(ray, box, maxDistance)
	return hit
}

// RayIntersectsTriangle runs a Möller–Trumbore test against tri. Degenerate
// triangles never report a hit.
func RayIntersectsTriangle(ray Ray, tri Triangle, maxDistance float32) (TriangleHit, bool) {
	return RayIntersectsPreparedTriangle(ray, tri, tri.Normal().Len(), maxDistance)
}

// RayIntersectsPreparedTriangle is RayIntersectsTriangle with the length of
// the triangle's unnormalized normal supplied by the caller.
func RayIntersectsPreparedTriangle(ray Ray, tri Triangle, normalLen, maxDistance float32) (TriangleHit, bool) {
	if !(normalLen >= DegenerateEpsilon) {
		return TriangleHit{}, false
	}

	edge1 := tri.B.Sub(tri.A)
	edge2 := tri.C.Sub(tri.A)
	h := ray.Dir.Cross(edge2)
	det := edge1.Dot(h)

	// |det| = |dir . N|; reject rays parallel to the triangle plane.
	if math32.Abs(det) <= Epsilon*normalLen*ray.Dir.Len() {
		return TriangleHit{}, false
	}

	f := 1.0 / det
	s := ray.Origin.Sub(tri.A)
	u := f * s.Dot(h)
	if u < -baryEpsilon || u > 1+baryEpsilon {
		return TriangleHit{}, false
	}

	q := s.Cross(edge1)
	v := f * ray.Dir.Dot(q)
	if v < -baryEpsilon || u+v > 1+baryEpsilon {
		return TriangleHit{}, false
	}

	t := f * edge2.Dot(q)
	if !(t > Epsilon && t <= maxDistance) {
		return TriangleHit{}, false
	}

	return TriangleHit{Distance: t, U: u, V: v}, true
}
