package bvh

import (
	"fmt"

	"github.com/jonit-dev/vibe-coder-3d-sub004/geom"
	"github.com/jonit-dev/vibe-coder-3d-sub004/types"
)

// An Item is a bounded volume that can be partitioned by the BVH builder.
type Item struct {
	Box    geom.AABB
	Center types.Vec3
}

// Create an item from a box, using the box center as its centroid. Empty
// boxes are placed at the origin.
func ItemFromBox(box geom.AABB) Item {
	if box.IsEmpty() {
		return Item{Box: box}
	}
	return Item{Box: box, Center: box.Center()}
}

// A BVH node. Internal nodes reference their children by index into the
// tree's node array; leaf nodes reference the contiguous range
// Order[First:First+Count].
type Node struct {
	Box geom.AABB

	// Child node indices. Left is -1 for leaf nodes.
	Left  int32
	Right int32

	// Item range for leaf nodes.
	First uint32
	Count uint32
}

// Returns true if this is a leaf node.
func (n *Node) IsLeaf() bool {
	return n.Left < 0
}

// A Tree is a BVH stored as a flat node array. The root is at index 0 and
// every child is stored at a higher index than its parent.
type Tree struct {
	Nodes []Node

	// Item ids in leaf order.
	Order []uint32

	// The depth of the deepest node. Traversals use it to pre-size their
	// stacks.
	MaxDepth int
}

// Returns true if the tree contains no nodes.
func (t *Tree) Empty() bool {
	return t == nil || len(t.Nodes) == 0
}

// Get the root bounds or an empty box if the tree is empty.
func (t *Tree) Bounds() geom.AABB {
	if t.Empty() {
		return geom.EmptyAABB()
	}
	return t.Nodes[0].Box
}

// Get the item ids stored in a leaf.
func (t *Tree) LeafItems(n *Node) []uint32 {
	return t.Order[n.First : n.First+n.Count]
}

// Get a stack large enough for a depth-first traversal of the tree.
func (t *Tree) NewStack() []int32 {
	return make([]int32, 0, t.MaxDepth+2)
}

// Refit recomputes node bounds bottom-up without changing the topology.
// Leaf bounds are taken from boxOf; internal bounds are the union of their
// children.
func (t *Tree) Refit(boxOf func(id uint32) geom.AABB) {
	if t.Empty() {
		return
	}

	for i := len(t.Nodes) - 1; i >= 0; i-- {
		node := &t.Nodes[i]
		if node.IsLeaf() {
			box := geom.EmptyAABB()
			for _, id := range t.LeafItems(node) {
				box = box.Union(boxOf(id))
			}
			node.Box = box
			continue
		}
		node.Box = t.Nodes[node.Left].Box.Union(t.Nodes[node.Right].Box)
	}
}

// Verify checks that every leaf contains the boxes of its items and every
// internal node contains the boxes of its children.
func (t *Tree) Verify(boxOf func(id uint32) geom.AABB) error {
	if t.Empty() {
		return nil
	}

	for i := range t.Nodes {
		node := &t.Nodes[i]
		if node.IsLeaf() {
			for _, id := range t.LeafItems(node) {
				if box := boxOf(id); !node.Box.ContainsAABB(box) {
					return fmt.Errorf("bvh: leaf %d %v does not contain item %d %v", i, node.Box, id, box)
				}
			}
			continue
		}

		if int(node.Left) <= i || int(node.Right) <= i {
			return fmt.Errorf("bvh: node %d references child stored before it", i)
		}
		for _, child := range []int32{node.Left, node.Right} {
			if cbox := t.Nodes[child].Box; !node.Box.ContainsAABB(cbox) {
				return fmt.Errorf("bvh: node %d %v does not contain child %d %v", i, node.Box, child, cbox)
			}
		}
	}
	return nil
}
