package manager

import (
	"github.com/jonit-dev/vibe-coder-3d-sub004/meshindex"
	"github.com/jonit-dev/vibe-coder-3d-sub004/metrics"
	"github.com/jonit-dev/vibe-coder-3d-sub004/sceneindex"
)

// Metrics returns a snapshot of index sizes, build timings and the query
// counters accumulated since the last ResetFrameMetrics call.
func (m *Manager) Metrics() metrics.Snapshot {
	s := m.metrics

	seen := make(map[*meshindex.Index]struct{})
	for _, e := range m.entries {
		if e.dynamic() {
			s.DynamicObjects++
			continue
		}
		if _, counted := seen[e.index]; counted {
			continue
		}
		seen[e.index] = struct{}{}

		s.MeshIndices++
		s.MeshTriangles += e.index.TriangleCount()
		s.MeshNodes += e.index.NodeCount()
		s.MeshBuildTime += e.index.Stats().BuildTime
	}

	sceneStats := m.scene.Stats()
	s.SceneRefs = m.scene.Len()
	s.SceneNodes = m.scene.NodeCount()
	s.SceneDepth = sceneStats.MaxDepth
	return s
}

// ResetFrameMetrics clears the per-frame query counters. It should be called
// once at the start of every frame.
func (m *Manager) ResetFrameMetrics() {
	m.metrics.VisibleLastFrame = 0
	m.metrics.CulledLastFrame = 0
	m.metrics.CullCandidatesLastFrame = 0
	m.metrics.RaycastsLastFrame = 0
	m.metrics.RayCandidatesLastFrame = 0
	m.metrics.RayTriangleTestsLastFrame = 0
}

// Statistics returns the build statistics of the committed scene tree.
func (m *Manager) Statistics() sceneindex.Stats {
	return m.scene.Stats()
}

// Verify checks the containment invariant of the committed scene tree.
func (m *Manager) Verify() error {
	return m.scene.Verify()
}
