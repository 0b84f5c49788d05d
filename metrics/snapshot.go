package metrics

import (
	"time"
)

// A Snapshot captures index sizes, build timings and per-frame query counters.
type Snapshot struct {
	// Object index totals over all registered entities. Shared indices are
	// counted once.
	MeshIndices    int
	MeshTriangles  int
	MeshNodes      int
	MeshBuildTime  time.Duration
	DynamicObjects int

	// Scene index.
	SceneRefs      int
	SceneNodes     int
	SceneDepth     int
	SceneBuildTime time.Duration
	RefitTime      time.Duration
	Rebuilds       int
	Refits         int
	BudgetOverruns int

	// Per-frame counters, cleared by the manager's ResetFrameMetrics.
	VisibleLastFrame          int
	CulledLastFrame           int
	CullCandidatesLastFrame   int
	RaycastsLastFrame         int
	RayCandidatesLastFrame    int
	RayTriangleTestsLastFrame int
}

// Get the fraction of culling candidates found visible during the last
// frame. It returns 0 if no culling query ran.
func (s Snapshot) VisibleRatio() float64 {
	total := s.VisibleLastFrame + s.CulledLastFrame
	if total == 0 {
		return 0
	}
	return float64(s.VisibleLastFrame) / float64(total)
}

// Get the average number of coarse candidates per raycast during the last
// frame.
func (s Snapshot) CandidatesPerRay() float64 {
	if s.RaycastsLastFrame == 0 {
		return 0
	}
	return float64(s.RayCandidatesLastFrame) / float64(s.RaycastsLastFrame)
}
