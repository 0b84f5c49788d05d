package geom

import (
	"github.com/jonit-dev/vibe-coder-3d-sub004/types"
)

// Triangles with a normal shorter than this are treated as degenerate.
const DegenerateEpsilon float32 = 1e-10

// A triangle defined by three vertices in the space of the geometry that owns it.
type Triangle struct {
	A, B, C types.Vec3
}

// Get the unnormalized face normal. Its length is twice the triangle area.
func (t Triangle) Normal() types.Vec3 {
	return t.B.Sub(t.A).Cross(t.C.Sub(t.A))
}

// Get the triangle area.
func (t Triangle) Area() float32 {
	return 0.5 * t.Normal().Len()
}

// Get the triangle centroid.
func (t Triangle) Centroid() types.Vec3 {
	return t.A.Add(t.B).Add(t.C).Mul(1.0 / 3.0)
}

// Get the box enclosing the triangle.
func (t Triangle) BBox() AABB {
	return AABBFromPoints(t.A, t.B, t.C)
}

// Returns true if any vertex has a NaN or Inf component.
func (t Triangle) IsFinite() bool {
	return t.A.IsFinite() && t.B.IsFinite() && t.C.IsFinite()
}

// Returns true if the triangle has (near) zero area or non-finite vertices.
func (t Triangle) IsDegenerate() bool {
	if !t.IsFinite() {
		return true
	}
	return !(t.Normal().Len() >= DegenerateEpsilon)
}

// BoxTriangles tessellates the surface of box into 12 outward-facing
// triangles.
func BoxTriangles(box AABB) []Triangle {
	lo, hi := box.Min, box.Max
	v := [8]types.Vec3{
		{lo[0], lo[1], lo[2]}, {hi[0], lo[1], lo[2]}, {hi[0], hi[1], lo[2]}, {lo[0], hi[1], lo[2]},
		{lo[0], lo[1], hi[2]}, {hi[0], lo[1], hi[2]}, {hi[0], hi[1], hi[2]}, {lo[0], hi[1], hi[2]},
	}
	faces := [12][3]int{
		{0, 2, 1}, {0, 3, 2}, // -z
		{4, 5, 6}, {4, 6, 7}, // +z
		{0, 1, 5}, {0, 5, 4}, // -y
		{3, 7, 6}, {3, 6, 2}, // +y
		{0, 4, 7}, {0, 7, 3}, // -x
		{1, 2, 6}, {1, 6, 5}, // +x
	}

	tris := make([]Triangle, len(faces))
	for i, f := range faces {
		tris[i] = Triangle{A: v[f[0]], B: v[f[1]], C: v[f[2]]}
	}
	return tris
}
