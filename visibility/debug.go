package visibility

import (
	"time"

	"github.com/jonit-dev/vibe-coder-3d-sub004/log"
	"github.com/jonit-dev/vibe-coder-3d-sub004/manager"
)

// The default interval between two statistics reports.
const DefaultDebugInterval = 5 * time.Second

// A DebugLogger periodically logs the index statistics of a manager.
type DebugLogger struct {
	logger   log.Logger
	interval time.Duration
	elapsed  time.Duration
	enabled  bool
}

// Create a new debug logger that reports every interval. A non-positive
// interval selects DefaultDebugInterval.
func NewDebugLogger(interval time.Duration, enabled bool) *DebugLogger {
	if interval <= 0 {
		interval = DefaultDebugInterval
	}
	return &DebugLogger{
		logger:   log.New("visibility"),
		interval: interval,
		enabled:  enabled,
	}
}

// Enable or disable periodic reports.
func (d *DebugLogger) SetEnabled(enabled bool) {
	d.enabled = enabled
	d.elapsed = 0
}

// Returns true if periodic reports are enabled.
func (d *DebugLogger) Enabled() bool {
	return d.enabled
}

// Update advances the logger clock by dt and logs the statistics of mgr once
// the interval has elapsed. It returns true if a report was logged.
func (d *DebugLogger) Update(dt time.Duration, mgr *manager.Manager) bool {
	if !d.enabled {
		return false
	}

	d.elapsed += dt
	if d.elapsed < d.interval {
		return false
	}
	d.elapsed = 0
	d.LogStatistics(mgr)
	return true
}

// LogStatistics logs index sizes, build timings and query counters.
func (d *DebugLogger) LogStatistics(mgr *manager.Manager) {
	s := mgr.Metrics()
	d.logger.Infof("object indices: %d (%d triangles, %d nodes, built in %d ms), dynamic objects: %d",
		s.MeshIndices, s.MeshTriangles, s.MeshNodes, s.MeshBuildTime.Nanoseconds()/1e6, s.DynamicObjects)
	d.logger.Infof("scene index: %d refs, %d nodes, depth %d, build %d us, refit %d us (%d rebuilds, %d refits, %d over budget)",
		s.SceneRefs, s.SceneNodes, s.SceneDepth, s.SceneBuildTime.Nanoseconds()/1e3, s.RefitTime.Nanoseconds()/1e3,
		s.Rebuilds, s.Refits, s.BudgetOverruns)

	if total := s.VisibleLastFrame + s.CulledLastFrame; total > 0 {
		d.logger.Infof("culling: %d visible, %d culled (%.1f%% visible)",
			s.VisibleLastFrame, s.CulledLastFrame, 100*s.VisibleRatio())
	}
	if s.RaycastsLastFrame > 0 {
		d.logger.Infof("raycasts: %d (%.1f candidates/ray, %d triangle tests)",
			s.RaycastsLastFrame, s.CandidatesPerRay(), s.RayTriangleTestsLastFrame)
	}

	stats := mgr.Statistics()
	if stats.Leafs > 0 {
		d.logger.Infof("scene leafs: %d (refs per leaf min %d, avg %.1f, max %d)",
			stats.Leafs, stats.MinLeafItems, float64(stats.Items)/float64(stats.Leafs), stats.MaxLeafItems)
	}
}

// LogConfiguration logs the manager options.
func (d *DebugLogger) LogConfiguration(mgr *manager.Manager) {
	opts := mgr.Options()
	d.logger.Infof("leaf max tris: %d, leaf max refs: %d, split strategy: %s", opts.LeafMaxTris, opts.LeafMaxRefs, opts.Split().Name())
	d.logger.Infof("culling: %t, raycasts: %t, incremental updates: %t, rebuild budget: %.2f ms, dynamic padding: %.3f",
		opts.EnableCulling, opts.EnableRaycasts, opts.EnableIncrementalUpdates, opts.RefitBatchBudgetMs, opts.DynamicPadding)
}

// LogNow logs the configuration and statistics of mgr regardless of the
// interval and restarts the interval.
func (d *DebugLogger) LogNow(mgr *manager.Manager) {
	d.elapsed = 0
	d.LogConfiguration(mgr)
	d.LogStatistics(mgr)
}
