package asset

import (
	"github.com/jonit-dev/vibe-coder-3d-sub004/geom"
	"github.com/jonit-dev/vibe-coder-3d-sub004/types"
)

// A Mesh is an indexed triangle list. Every 3 consecutive entries in Indices
// define a triangle.
type Mesh struct {
	Name      string
	Positions []types.Vec3
	Indices   []uint32

	// Dynamic meshes deform at runtime and are only tracked by their bounds.
	Dynamic bool
}

// Get the number of triangles in the mesh.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// Get the local space bounds of the mesh.
func (m *Mesh) Bounds() geom.AABB {
	return geom.AABBFromPoints(m.Positions...)
}

// An Instance places a mesh in the world. Instances are assigned entity ids
// in declaration order starting at 1.
type Instance struct {
	Entity    uint64
	MeshIndex int
	Transform types.Mat4
}

// Camera settings declared by a scene file.
type Camera struct {
	// Vertical field of view in degrees.
	FOV float32

	Eye  types.Vec3
	Look types.Vec3
	Up   types.Vec3
}

// Get the camera view-projection matrix for the given aspect ratio and clip
// distances.
func (c Camera) ViewProjection(aspect, near, far float32) types.Mat4 {
	fov := c.FOV
	if fov <= 0 {
		fov = DefaultCameraFOV
	}
	up := c.Up
	if up.Dot(up) == 0 {
		up = types.XYZ(0, 1, 0)
	}

	proj := types.Perspective4(fov*degToRad, aspect, near, far)
	return proj.Mul4(types.LookAtV(c.Eye, c.Look, up))
}

const (
	DefaultCameraFOV float32 = 45
	degToRad         float32 = 0.017453292519943295
)

// A Scene is the geometry and layout loaded from a scene file.
type Scene struct {
	Meshes    []*Mesh
	Instances []*Instance
	Camera    Camera
}

// Get the total number of triangles over all meshes.
func (s *Scene) TriangleCount() int {
	total := 0
	for _, m := range s.Meshes {
		total += m.TriangleCount()
	}
	return total
}
