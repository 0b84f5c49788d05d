package geom

import (
	"github.com/chewxy/math32"
	"github.com/jonit-dev/vibe-coder-3d-sub004/types"
)

// A plane in Hessian normal form. Points with Normal.p + D >= 0 lie on the
// inside of the plane.
type Plane struct {
	Normal types.Vec3
	D      float32
}

// Create a plane from the (a, b, c, d) coefficients of ax + by + cz + d = 0.
// The coefficients are scaled so the normal has unit length; a zero normal is
// kept as-is.
func NewPlane(a, b, c, d float32) Plane {
	n := types.XYZ(a, b, c)
	l := n.Len()
	if l < floatEpsilon || math32.IsNaN(l) || math32.IsInf(l, 0) {
		return Plane{Normal: n, D: d}
	}
	inv := 1.0 / l
	return Plane{Normal: n.Mul(inv), D: d * inv}
}

// Signed distance from p to the plane.
func (p Plane) DistanceTo(pt types.Vec3) float32 {
	return p.Normal.Dot(pt) + p.D
}

// Returns true if all plane coefficients are finite.
func (p Plane) IsFinite() bool {
	return p.Normal.IsFinite() && !math32.IsNaN(p.D) && !math32.IsInf(p.D, 0)
}

// Indices of the frustum planes.
const (
	PlaneLeft = iota
	PlaneRight
	PlaneBottom
	PlaneTop
	PlaneNear
	PlaneFar
)

// Frustum is a convex volume bounded by six inward-facing planes.
type Frustum [6]Plane

const floatEpsilon = 1e-12

// Create a frustum from six (a, b, c, d) plane tuples in left, right, bottom,
// top, near, far order.
func FrustumFromPlanes(planes [6][4]float32) Frustum {
	var f Frustum
	for i, p := range planes {
		f[i] = NewPlane(p[0], p[1], p[2], p[3])
	}
	return f
}

// Extract the frustum planes from a combined view-projection matrix using
// the Gribb/Hartmann method. The matrix is expected to map to OpenGL clip
// space (z in [-w, w]).
func FrustumFromMatrix(vp types.Mat4) Frustum {
	r0, r1, r2, r3 := vp.Row(0), vp.Row(1), vp.Row(2), vp.Row(3)

	var f Frustum
	f[PlaneLeft] = NewPlane(r3[0]+r0[0], r3[1]+r0[1], r3[2]+r0[2], r3[3]+r0[3])
	f[PlaneRight] = NewPlane(r3[0]-r0[0], r3[1]-r0[1], r3[2]-r0[2], r3[3]-r0[3])
	f[PlaneBottom] = NewPlane(r3[0]+r1[0], r3[1]+r1[1], r3[2]+r1[2], r3[3]+r1[3])
	f[PlaneTop] = NewPlane(r3[0]-r1[0], r3[1]-r1[1], r3[2]-r1[2], r3[3]-r1[3])
	f[PlaneNear] = NewPlane(r3[0]+r2[0], r3[1]+r2[1], r3[2]+r2[2], r3[3]+r2[3])
	f[PlaneFar] = NewPlane(r3[0]-r2[0], r3[1]-r2[1], r3[2]-r2[2], r3[3]-r2[3])
	return f
}

// Validate returns ErrNumericInstability if any plane has non-finite
// coefficients.
func (f *Frustum) Validate() error {
	for _, p := range f {
		if !p.IsFinite() {
			return ErrNumericInstability
		}
	}
	return nil
}

// IntersectsAABB returns false only if the box lies completely outside one of
// the planes. Boxes straddling a plane or the frustum corners are reported as
// intersecting.
func (f *Frustum) IntersectsAABB(box AABB) bool {
	if box.IsEmpty() {
		return false
	}

	for i := range f {
		n := f[i].Normal

		// Select the box corner furthest along the plane normal.
		var pv types.Vec3
		for axis := 0; axis < 3; axis++ {
			if n[axis] >= 0 {
				pv[axis] = box.Max[axis]
			} else {
				pv[axis] = box.Min[axis]
			}
		}

		if f[i].DistanceTo(pv) < 0 {
			return false
		}
	}

	return true
}

// ContainsPoint returns true if p is on the inside of every plane.
func (f *Frustum) ContainsPoint(p types.Vec3) bool {
	for i := range f {
		if f[i].DistanceTo(p) < 0 {
			return false
		}
	}
	return true
}
