package geom

import (
	"github.com/jonit-dev/vibe-coder-3d-sub004/types"
)

// A ray with an origin and a direction. Queries expect a normalized
// direction; rays transformed into object space keep the scaled direction so
// that hit distances stay in world units.
type Ray struct {
	Origin types.Vec3
	Dir    types.Vec3
}

// Create a new ray. The direction is normalized.
func NewRay(origin, dir types.Vec3) Ray {
	return Ray{Origin: origin, Dir: dir.Normalize()}
}

// Get the point at distance t along the ray.
func (r Ray) PointAt(t float32) types.Vec3 {
	return r.Origin.Add(r.Dir.Mul(t))
}

// Transform the ray by m without renormalizing the direction.
func (r Ray) Transform(m types.Mat4) Ray {
	return Ray{
		Origin: types.TransformPoint(m, r.Origin),
		Dir:    types.TransformDir(m, r.Dir),
	}
}

// Validate returns ErrNumericInstability if the ray contains NaN/Inf
// components or has a zero-length direction.
func (r Ray) Validate() error {
	if !r.Origin.IsFinite() || !r.Dir.IsFinite() || r.Dir.Dot(r.Dir) == 0 {
		return ErrNumericInstability
	}
	return nil
}
