package types

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

const floatCmpEpsilon = 1e-6

// Matrices are stored in column-major order (mgl32 layout).
type Mat4 = mgl32.Mat4

// Create an identity matrix.
func Ident4() Mat4 {
	return mgl32.Ident4()
}

// Create a translation matrix.
func Translate4(v Vec3) Mat4 {
	return mgl32.Translate3D(v[0], v[1], v[2])
}

// Create a scale matrix.
func Scale4(v Vec3) Mat4 {
	return mgl32.Scale3D(v[0], v[1], v[2])
}

// Create a rotation matrix from yaw, pitch and roll angles (radians) around
// the X, Y and Z axis respectively. Rotations are applied in X, Y, Z order.
func Rotate4(yaw, pitch, roll float32) Mat4 {
	yawQuat := mgl32.QuatRotate(yaw, mgl32.Vec3{1, 0, 0})
	pitchQuat := mgl32.QuatRotate(pitch, mgl32.Vec3{0, 1, 0})
	rollQuat := mgl32.QuatRotate(roll, mgl32.Vec3{0, 0, 1})
	return rollQuat.Mul(pitchQuat.Mul(yawQuat)).Normalize().Mat4()
}

// Compose a TRS matrix: M = T * R * S.
func TRS(translation, rotation, scale Vec3) Mat4 {
	return Translate4(translation).Mul4(Rotate4(rotation[0], rotation[1], rotation[2])).Mul4(Scale4(scale))
}

// Create a right-handed perspective projection matrix. FOV is in radians.
func Perspective4(fov, aspect, near, far float32) Mat4 {
	return mgl32.Perspective(fov, aspect, near, far)
}

// Create a view matrix looking from eye towards center.
func LookAtV(eye, center, up Vec3) Mat4 {
	return mgl32.LookAtV(mgl32.Vec3(eye), mgl32.Vec3(center), mgl32.Vec3(up))
}

// Transform a point (w = 1) by m.
func TransformPoint(m Mat4, p Vec3) Vec3 {
	return Vec3(m.Mul4x1(mgl32.Vec4{p[0], p[1], p[2], 1}).Vec3())
}

// Transform a direction (w = 0) by m. The result is not normalized.
func TransformDir(m Mat4, d Vec3) Vec3 {
	return Vec3(m.Mul4x1(mgl32.Vec4{d[0], d[1], d[2], 0}).Vec3())
}

// Invert m. Returns false if the matrix is singular or not finite.
func Invert4(m Mat4) (Mat4, bool) {
	if !IsFiniteMat4(m) {
		return Mat4{}, false
	}
	det := m.Det()
	if math32.Abs(det) < 1e-12 || math32.IsNaN(det) || math32.IsInf(det, 0) {
		return Mat4{}, false
	}
	inv := m.Inv()
	return inv, IsFiniteMat4(inv)
}

// Returns true if no matrix element is NaN or Inf.
func IsFiniteMat4(m Mat4) bool {
	for _, c := range m {
		if math32.IsNaN(c) || math32.IsInf(c, 0) {
			return false
		}
	}
	return true
}
