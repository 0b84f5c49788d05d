package manager

import (
	"sort"

	"github.com/chewxy/math32"
	"github.com/jonit-dev/vibe-coder-3d-sub004/geom"
	"github.com/jonit-dev/vibe-coder-3d-sub004/meshindex"
	"github.com/jonit-dev/vibe-coder-3d-sub004/types"
)

// A raycast hit in world space.
type Hit struct {
	Entity   uint64
	Distance float32
	Point    types.Vec3

	// The triangle index within the entity's geometry or -1 for dynamic
	// entities.
	Triangle int32

	// Barycentric coordinates of the hit point. Zero for dynamic entities.
	U, V float32
}

// Returns true if h sorts before o: by distance, then entity, then triangle.
func (h Hit) Less(o Hit) bool {
	if h.Distance != o.Distance {
		return h.Distance < o.Distance
	}
	if h.Entity != o.Entity {
		return h.Entity < o.Entity
	}
	return h.Triangle < o.Triangle
}

// CullFrustum returns the ids of all entities whose world box intersects the
// frustum, in ascending order. The result may contain entities that are not
// actually visible but never omits a visible one. If culling is disabled or
// the frustum contains NaN/Inf values every registered entity is returned.
func (m *Manager) CullFrustum(f geom.Frustum) []uint64 {
	if !m.opts.EnableCulling {
		return m.recordCull(m.Entities(), len(m.entries))
	}
	if err := f.Validate(); err != nil {
		m.logger.Warningf("cull: %v; returning all entities", err)
		return m.recordCull(m.Entities(), len(m.entries))
	}

	candidates := m.scene.QueryFrustum(&f, m.scratch[:0])
	visible := make([]uint64, 0, len(candidates)+len(m.fresh)+len(m.moved))
	for _, id := range candidates {
		if m.servedByTree(id) {
			visible = append(visible, id)
		}
	}
	tested := len(candidates)
	tested += m.appendLoose(m.fresh, &visible, func(box geom.AABB) bool { return f.IntersectsAABB(box) })
	tested += m.appendLoose(m.moved, &visible, func(box geom.AABB) bool { return f.IntersectsAABB(box) })
	m.scratch = candidates[:0]

	sort.Slice(visible, func(i, j int) bool { return visible[i] < visible[j] })
	return m.recordCull(visible, tested)
}

func (m *Manager) recordCull(visible []uint64, candidates int) []uint64 {
	m.metrics.VisibleLastFrame = len(visible)
	m.metrics.CulledLastFrame = len(m.entries) - len(visible)
	m.metrics.CullCandidatesLastFrame += candidates
	return visible
}

// Returns true if a candidate reported by the scene tree should be accepted
// as-is: it must still be registered and its tree box must be current.
// Entities in the fresh or moved sets are tested separately.
func (m *Manager) servedByTree(id uint64) bool {
	if _, exists := m.entries[id]; !exists {
		return false
	}
	if _, isFresh := m.fresh[id]; isFresh {
		return false
	}
	_, isMoved := m.moved[id]
	return !isMoved
}

// Test the current world box of every entity in set and append the ones that
// pass. It returns the number of tested entities.
func (m *Manager) appendLoose(set map[uint64]struct{}, out *[]uint64, test func(geom.AABB) bool) int {
	for id := range set {
		if test(m.entries[id].worldBox) {
			*out = append(*out, id)
		}
	}
	return len(set)
}

// Collect the coarse raycast candidates. When raycasts are disabled every
// entity box is tested linearly.
func (m *Manager) rayCandidates(ray geom.Ray, maxDistance float32) []uint64 {
	hitsBox := func(box geom.AABB) bool { return geom.RayIntersectsAABB(ray, box, maxDistance) }

	var out []uint64
	if !m.opts.EnableRaycasts {
		for id, e := range m.entries {
			if hitsBox(e.worldBox) {
				out = append(out, id)
			}
		}
		m.metrics.RayCandidatesLastFrame += len(out)
		return out
	}

	candidates := m.scene.QueryRay(ray, maxDistance, m.scratch[:0])
	for _, id := range candidates {
		if m.servedByTree(id) {
			out = append(out, id)
		}
	}
	m.scratch = candidates[:0]
	m.appendLoose(m.fresh, &out, hitsBox)
	m.appendLoose(m.moved, &out, hitsBox)

	m.metrics.RayCandidatesLastFrame += len(out)
	return out
}

// Validate the query ray and clamp maxDistance. It returns false if the query
// cannot produce any hits.
func (m *Manager) prepareRay(ray geom.Ray, maxDistance float32) (float32, bool) {
	m.metrics.RaycastsLastFrame++

	if err := ray.Validate(); err != nil {
		m.logger.Warningf("raycast: %v; ignoring query", err)
		return 0, false
	}
	if math32.IsNaN(maxDistance) {
		maxDistance = math32.Inf(1)
	}
	return maxDistance, maxDistance >= 0
}

// Move the ray into the local space of an indexed entity. Directions are not
// renormalized so local hit distances are world distances.
func (e *entry) localRay(ray geom.Ray) geom.Ray {
	return ray.Transform(e.inverse)
}

// RaycastFirst returns the nearest hit within maxDistance. Hits at the same
// distance are resolved in favor of the lowest entity id.
func (m *Manager) RaycastFirst(ray geom.Ray, maxDistance float32) (Hit, bool) {
	var best Hit
	found := false

	maxDistance, ok := m.prepareRay(ray, maxDistance)
	if !ok {
		return best, false
	}

	var counters meshindex.Counters
	for _, id := range m.rayCandidates(ray, maxDistance) {
		e := m.entries[id]

		if e.dynamic() {
			if t, hit := geom.RayAABBEntry(ray, e.worldBox, maxDistance); hit {
				h := Hit{Entity: id, Distance: t, Point: ray.PointAt(t), Triangle: -1}
				if !found || h.Less(best) {
					best, found = h, true
				}
			}
			continue
		}
		if !e.invertible {
			continue
		}

		limit := maxDistance
		if found {
			limit = best.Distance
		}
		meshHit, hit := e.index.RaycastFirstCounted(e.localRay(ray), limit, &counters)
		if !hit {
			continue
		}
		h := Hit{
			Entity:   id,
			Distance: meshHit.Distance,
			Point:    ray.PointAt(meshHit.Distance),
			Triangle: int32(meshHit.Triangle),
			U:        meshHit.U,
			V:        meshHit.V,
		}
		if !found || h.Less(best) {
			best, found = h, true
		}
	}

	m.metrics.RayTriangleTestsLastFrame += counters.TriangleTests
	return best, found
}

// RaycastAll returns every hit within maxDistance sorted by distance, then
// entity id, then triangle index.
func (m *Manager) RaycastAll(ray geom.Ray, maxDistance float32) []Hit {
	maxDistance, ok := m.prepareRay(ray, maxDistance)
	if !ok {
		return nil
	}

	var hits []Hit
	var counters meshindex.Counters
	for _, id := range m.rayCandidates(ray, maxDistance) {
		e := m.entries[id]

		if e.dynamic() {
			if t, hit := geom.RayAABBEntry(ray, e.worldBox, maxDistance); hit {
				hits = append(hits, Hit{Entity: id, Distance: t, Point: ray.PointAt(t), Triangle: -1})
			}
			continue
		}
		if !e.invertible {
			continue
		}

		for _, meshHit := range e.index.RaycastAllCounted(e.localRay(ray), maxDistance, &counters) {
			hits = append(hits, Hit{
				Entity:   id,
				Distance: meshHit.Distance,
				Point:    ray.PointAt(meshHit.Distance),
				Triangle: int32(meshHit.Triangle),
				U:        meshHit.U,
				V:        meshHit.V,
			})
		}
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].Less(hits[j]) })
	m.metrics.RayTriangleTestsLastFrame += counters.TriangleTests
	return hits
}
