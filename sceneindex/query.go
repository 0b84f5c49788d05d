package sceneindex

import (
	"github.com/jonit-dev/vibe-coder-3d-sub004/geom"
)

// QueryFrustum appends to out the entities whose boxes intersect the frustum
// and returns the extended slice. Results are conservative: an entity may be
// reported even if it is not visible, but a visible entity is never dropped.
func (ix *Index) QueryFrustum(f *geom.Frustum, out []uint64) []uint64 {
	if ix.tree.Empty() {
		return out
	}

	nodes := ix.tree.Nodes
	var buf [64]int32
	stack := append(buf[:0], 0)
	for len(stack) > 0 {
		idx := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		node := &nodes[idx]
		if !f.IntersectsAABB(node.Box) {
			continue
		}

		if !node.IsLeaf() {
			stack = append(stack, node.Right, node.Left)
			continue
		}

		for _, id := range ix.tree.LeafItems(node) {
			if f.IntersectsAABB(ix.refs[id].Box) {
				out = append(out, ix.refs[id].Entity)
			}
		}
	}

	return out
}

// QueryRay appends to out the entities whose boxes are hit by the ray within
// maxDistance and returns the extended slice. The result is unsorted.
func (ix *Index) QueryRay(ray geom.Ray, maxDistance float32, out []uint64) []uint64 {
	if ix.tree.Empty() {
		return out
	}

	nodes := ix.tree.Nodes
	var buf [64]int32
	stack := append(buf[:0], 0)
	for len(stack) > 0 {
		idx := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		node := &nodes[idx]
		if !geom.RayIntersectsAABB(ray, node.Box, maxDistance) {
			continue
		}

		if !node.IsLeaf() {
			stack = append(stack, node.Right, node.Left)
			continue
		}

		for _, id := range ix.tree.LeafItems(node) {
			if geom.RayIntersectsAABB(ray, ix.refs[id].Box, maxDistance) {
				out = append(out, ix.refs[id].Entity)
			}
		}
	}

	return out
}

// Entities appends every indexed entity to out in leaf order.
func (ix *Index) Entities(out []uint64) []uint64 {
	for _, id := range ix.tree.Order {
		out = append(out, ix.refs[id].Entity)
	}
	return out
}
