package meshindex

import (
	"github.com/jonit-dev/vibe-coder-3d-sub004/geom"
)

type stackEntry struct {
	node  int32
	entry float32
}

// RaycastFirst returns the closest hit within maxDistance. Hits at the same
// distance are resolved in favor of the lowest triangle index.
func (ix *Index) RaycastFirst(ray geom.Ray, maxDistance float32) (Hit, bool) {
	return ix.RaycastFirstCounted(ray, maxDistance, nil)
}

// RaycastFirstCounted is RaycastFirst with traversal statistics accumulated
// into c (which may be nil).
func (ix *Index) RaycastFirstCounted(ray geom.Ray, maxDistance float32, c *Counters) (Hit, bool) {
	var best Hit
	found := false

	if ix.Empty() {
		return best, false
	}

	bestDist := maxDistance
	nodes := ix.tree.Nodes

	rootEntry, hit := geom.RayAABBEntry(ray, nodes[0].Box, bestDist)
	if !hit {
		return best, false
	}

	var buf [64]stackEntry
	stack := append(buf[:0], stackEntry{0, rootEntry})
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		// A closer hit may have been found since this node was pushed
		if top.entry > bestDist {
			continue
		}

		node := &nodes[top.node]
		if c != nil {
			c.NodesVisited++
		}

		if node.IsLeaf() {
			for pos := node.First; pos < node.First+node.Count; pos++ {
				if c != nil {
					c.TriangleTests++
				}
				triHit, ok := geom.RayIntersectsPreparedTriangle(ray, ix.tris[pos], ix.normalLens[pos], bestDist)
				if !ok {
					continue
				}

				id := ix.ids[pos]
				if !found || triHit.Distance < bestDist || id < best.Triangle {
					best = Hit{Distance: triHit.Distance, U: triHit.U, V: triHit.V, Triangle: id}
					bestDist = triHit.Distance
					found = true
				}
			}
			continue
		}

		leftEntry, leftHit := geom.RayAABBEntry(ray, nodes[node.Left].Box, bestDist)
		rightEntry, rightHit := geom.RayAABBEntry(ray, nodes[node.Right].Box, bestDist)

		// Push the farther child first so the nearer child is visited first
		switch {
		case leftHit && rightHit:
			if leftEntry <= rightEntry {
				stack = append(stack, stackEntry{node.Right, rightEntry}, stackEntry{node.Left, leftEntry})
			} else {
				stack = append(stack, stackEntry{node.Left, leftEntry}, stackEntry{node.Right, rightEntry})
			}
		case leftHit:
			stack = append(stack, stackEntry{node.Left, leftEntry})
		case rightHit:
			stack = append(stack, stackEntry{node.Right, rightEntry})
		}
	}

	return best, found
}

// RaycastAll returns every hit within maxDistance in no particular order.
func (ix *Index) RaycastAll(ray geom.Ray, maxDistance float32) []Hit {
	return ix.RaycastAllCounted(ray, maxDistance, nil)
}

// RaycastAllCounted is RaycastAll with traversal statistics accumulated
// into c (which may be nil).
func (ix *Index) RaycastAllCounted(ray geom.Ray, maxDistance float32, c *Counters) []Hit {
	if ix.Empty() {
		return nil
	}

	var hits []Hit
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
		if c != nil {
			c.NodesVisited++
		}

		if !node.IsLeaf() {
			stack = append(stack, node.Right, node.Left)
			continue
		}

		for pos := node.First; pos < node.First+node.Count; pos++ {
			if c != nil {
				c.TriangleTests++
			}
			triHit, ok := geom.RayIntersectsPreparedTriangle(ray, ix.tris[pos], ix.normalLens[pos], maxDistance)
			if ok {
				hits = append(hits, Hit{Distance: triHit.Distance, U: triHit.U, V: triHit.V, Triangle: ix.ids[pos]})
			}
		}
	}

	return hits
}
