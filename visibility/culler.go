package visibility

import (
	"github.com/jonit-dev/vibe-coder-3d-sub004/geom"
	"github.com/jonit-dev/vibe-coder-3d-sub004/manager"
	"github.com/jonit-dev/vibe-coder-3d-sub004/types"
)

// A Culler selects the draw list entries that may be visible from a camera.
// The returned slice holds positions into drawList in ascending order.
type Culler interface {
	VisibleIndices(f geom.Frustum, drawList []uint64) []int
}

// An IndexCuller answers visibility queries using the scene index of an index
// manager.
type IndexCuller struct {
	mgr *manager.Manager
}

// Create a new culler backed by mgr.
func NewIndexCuller(mgr *manager.Manager) *IndexCuller {
	return &IndexCuller{mgr: mgr}
}

// VisibleIndices returns the positions of the draw list entries whose world
// bounds intersect f. Entries that are not registered with the manager are
// always included. If culling is disabled or the scene index has not been
// built yet every position is returned.
func (c *IndexCuller) VisibleIndices(f geom.Frustum, drawList []uint64) []int {
	if !c.mgr.Options().EnableCulling || !c.mgr.Ready() {
		return allIndices(drawList)
	}

	visible := c.mgr.CullFrustum(f)
	visibleSet := make(map[uint64]struct{}, len(visible))
	for _, id := range visible {
		visibleSet[id] = struct{}{}
	}

	out := make([]int, 0, len(visible))
	for index, id := range drawList {
		if _, isVisible := visibleSet[id]; isVisible || !c.mgr.IsRegistered(id) {
			out = append(out, index)
		}
	}
	return out
}

// VisibleFromMatrix extracts the frustum planes from a view-projection matrix
// and returns the visible draw list positions.
func (c *IndexCuller) VisibleFromMatrix(viewProj types.Mat4, drawList []uint64) []int {
	return c.VisibleIndices(geom.FrustumFromMatrix(viewProj), drawList)
}

// A FallbackCuller performs no culling.
type FallbackCuller struct{}

// VisibleIndices returns every position in the draw list.
func (FallbackCuller) VisibleIndices(_ geom.Frustum, drawList []uint64) []int {
	return allIndices(drawList)
}

func allIndices(drawList []uint64) []int {
	out := make([]int, len(drawList))
	for i := range out {
		out[i] = i
	}
	return out
}
