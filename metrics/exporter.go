package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	indexLabel = "index"

	meshIndex  = "mesh"
	sceneIndex = "scene"
)

// An Exporter publishes snapshots as prometheus metrics.
type Exporter struct {
	nodes          *prometheus.GaugeVec
	buildSeconds   *prometheus.GaugeVec
	triangles      prometheus.Gauge
	sceneRefs      prometheus.Gauge
	dynamicObjects prometheus.Gauge
	refitSeconds   prometheus.Gauge
	budgetOverruns prometheus.Gauge
	visible        prometheus.Gauge
	culled         prometheus.Gauge
	visibleRatio   prometheus.Gauge
	raycasts       prometheus.Counter
	rayCandidates  prometheus.Counter
	rayTriTests    prometheus.Counter
}

// Create an exporter whose metrics are registered with reg.
func NewExporter(reg prometheus.Registerer, namespace string) *Exporter {
	factory := promauto.With(reg)

	return &Exporter{
		nodes: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "bvh_nodes",
			Help:      "The number of BVH nodes per index kind.",
		}, []string{indexLabel}),

		buildSeconds: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "bvh_build_seconds",
			Help:      "The time spent on the last build per index kind.",
		}, []string{indexLabel}),

		triangles: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "bvh_triangles",
			Help:      "The number of triangles in all object indices.",
		}),

		sceneRefs: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "bvh_scene_refs",
			Help:      "The number of entities in the scene index.",
		}),

		dynamicObjects: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "bvh_dynamic_objects",
			Help:      "The number of entities represented by a whole-object box.",
		}),

		refitSeconds: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "bvh_refit_seconds",
			Help:      "The time spent on the last scene refit.",
		}),

		budgetOverruns: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "bvh_budget_overruns",
			Help:      "The number of frames where a rebuild exceeded its budget.",
		}),

		visible: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cull_visible",
			Help:      "The number of entities found visible during the last frame.",
		}),

		culled: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cull_culled",
			Help:      "The number of entities culled during the last frame.",
		}),

		visibleRatio: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cull_visible_ratio",
			Help:      "The visible-vs-total ratio of the last frame.",
		}),

		raycasts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "raycasts_total",
			Help:      "The number of raycast queries.",
		}),

		rayCandidates: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "raycast_candidates_total",
			Help:      "The number of coarse candidates returned by the scene index.",
		}),

		rayTriTests: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "raycast_triangle_tests_total",
			Help:      "The number of ray-triangle tests.",
		}),
	}
}

// Observe publishes a snapshot. Per-frame query counters are added to the
// running totals, so each frame should be observed exactly once before the
// frame counters are reset.
func (e *Exporter) Observe(s Snapshot) {
	e.nodes.With(prometheus.Labels{indexLabel: meshIndex}).Set(float64(s.MeshNodes))
	e.nodes.With(prometheus.Labels{indexLabel: sceneIndex}).Set(float64(s.SceneNodes))
	e.buildSeconds.With(prometheus.Labels{indexLabel: meshIndex}).Set(s.MeshBuildTime.Seconds())
	e.buildSeconds.With(prometheus.Labels{indexLabel: sceneIndex}).Set(s.SceneBuildTime.Seconds())

	e.triangles.Set(float64(s.MeshTriangles))
	e.sceneRefs.Set(float64(s.SceneRefs))
	e.dynamicObjects.Set(float64(s.DynamicObjects))
	e.refitSeconds.Set(s.RefitTime.Seconds())
	e.budgetOverruns.Set(float64(s.BudgetOverruns))

	e.visible.Set(float64(s.VisibleLastFrame))
	e.culled.Set(float64(s.CulledLastFrame))
	e.visibleRatio.Set(s.VisibleRatio())

	e.raycasts.Add(float64(s.RaycastsLastFrame))
	e.rayCandidates.Add(float64(s.RayCandidatesLastFrame))
	e.rayTriTests.Add(float64(s.RayTriangleTestsLastFrame))
}
