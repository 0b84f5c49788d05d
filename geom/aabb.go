package geom

import (
	"fmt"

	"github.com/chewxy/math32"
	"github.com/jonit-dev/vibe-coder-3d-sub004/types"
)

// AABB is an axis-aligned bounding box. The zero-volume box returned by
// EmptyAABB (min = +Inf, max = -Inf) represents "no bounds"; Union and
// Include treat it as the identity element.
type AABB struct {
	Min types.Vec3
	Max types.Vec3
}

// Create an empty box that contains no points.
func EmptyAABB() AABB {
	inf := math32.Inf(1)
	return AABB{
		Min: types.Vec3{inf, inf, inf},
		Max: types.Vec3{-inf, -inf, -inf},
	}
}

// Create a box spanning [-MaxFloat32, MaxFloat32] on every axis. It is used
// as a stand-in for entities whose bounds cannot be computed.
func UnboundedAABB() AABB {
	return AABB{
		Min: types.Splat3(-math32.MaxFloat32),
		Max: types.Splat3(math32.MaxFloat32),
	}
}

// Create a box from two corners. The corners are sorted per axis.
func NewAABB(a, b types.Vec3) AABB {
	return AABB{Min: types.MinVec3(a, b), Max: types.MaxVec3(a, b)}
}

// Create the smallest box containing all points.
func AABBFromPoints(points ...types.Vec3) AABB {
	box := EmptyAABB()
	for _, p := range points {
		box = box.Include(p)
	}
	return box
}

// Returns true if the box has no bounds.
func (b AABB) IsEmpty() bool {
	return b.Min[0] > b.Max[0] || b.Min[1] > b.Max[1] || b.Min[2] > b.Max[2]
}

// Returns true if the box is non-empty and all corners are finite.
func (b AABB) IsFinite() bool {
	return !b.IsEmpty() && b.Min.IsFinite() && b.Max.IsFinite()
}

// Expand the box to include point p.
func (b AABB) Include(p types.Vec3) AABB {
	return AABB{Min: types.MinVec3(b.Min, p), Max: types.MaxVec3(b.Max, p)}
}

// Union returns the smallest box containing both boxes.
func (b AABB) Union(o AABB) AABB {
	if o.IsEmpty() {
		return b
	}
	if b.IsEmpty() {
		return o
	}
	return AABB{Min: types.MinVec3(b.Min, o.Min), Max: types.MaxVec3(b.Max, o.Max)}
}

// Get the box center.
func (b AABB) Center() types.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// Get the box dimensions. Empty boxes have zero size.
func (b AABB) Size() types.Vec3 {
	if b.IsEmpty() {
		return types.Vec3{}
	}
	return b.Max.Sub(b.Min)
}

// Get the box surface area.
func (b AABB) SurfaceArea() float32 {
	s := b.Size()
	return 2 * (s[0]*s[1] + s[1]*s[2] + s[2]*s[0])
}

// Get the index of the longest axis.
func (b AABB) LongestAxis() int {
	return b.Size().MaxAxis()
}

// Grow the box by d on every side. Empty boxes stay empty.
func (b AABB) Pad(d float32) AABB {
	if b.IsEmpty() {
		return b
	}
	return AABB{Min: b.Min.Sub(types.Splat3(d)), Max: b.Max.Add(types.Splat3(d))}
}

// Returns true if p lies inside the box (boundary included).
func (b AABB) Contains(p types.Vec3) bool {
	return p[0] >= b.Min[0] && p[0] <= b.Max[0] &&
		p[1] >= b.Min[1] && p[1] <= b.Max[1] &&
		p[2] >= b.Min[2] && p[2] <= b.Max[2]
}

// Returns true if o lies entirely inside the box. Every box contains the
// empty box.
func (b AABB) ContainsAABB(o AABB) bool {
	if o.IsEmpty() {
		return true
	}
	if b.IsEmpty() {
		return false
	}
	return b.Contains(o.Min) && b.Contains(o.Max)
}

// Returns true if the two boxes overlap (touching counts).
func (b AABB) Overlaps(o AABB) bool {
	if b.IsEmpty() || o.IsEmpty() {
		return false
	}
	return b.Min[0] <= o.Max[0] && b.Max[0] >= o.Min[0] &&
		b.Min[1] <= o.Max[1] && b.Max[1] >= o.Min[1] &&
		b.Min[2] <= o.Max[2] && b.Max[2] >= o.Min[2]
}

// Transform the box by m and return the box enclosing the 8 transformed
// corners. Empty boxes stay empty.
func (b AABB) Transform(m types.Mat4) AABB {
	if b.IsEmpty() {
		return b
	}

	out := EmptyAABB()
	for corner := 0; corner < 8; corner++ {
		p := b.Min
		if corner&1 != 0 {
			p[0] = b.Max[0]
		}
		if corner&2 != 0 {
			p[1] = b.Max[1]
		}
		if corner&4 != 0 {
			p[2] = b.Max[2]
		}
		out = out.Include(types.TransformPoint(m, p))
	}
	return out
}

func (b AABB) String() string {
	if b.IsEmpty() {
		return "AABB(empty)"
	}
	return fmt.Sprintf("AABB(%.3f, %.3f, %.3f -> %.3f, %.3f, %.3f)",
		b.Min[0], b.Min[1], b.Min[2], b.Max[0], b.Max[1], b.Max[2])
}
