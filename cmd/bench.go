package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"net"
	"net/http"
	"time"

	"github.com/jonit-dev/vibe-coder-3d-sub004/geom"
	"github.com/jonit-dev/vibe-coder-3d-sub004/metrics"
	"github.com/jonit-dev/vibe-coder-3d-sub004/sceneindex"
	"github.com/jonit-dev/vibe-coder-3d-sub004/types"
	"github.com/jonit-dev/vibe-coder-3d-sub004/visibility"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli"
)

// Totals collected over all benchmark frames.
type benchStats struct {
	frames     int
	frameTime  time.Duration
	updateTime time.Duration
	cullTime   time.Duration
	rayTime    time.Duration
	visible    int
	rays       int
	hits       int
}

// Simulate a frame loop over the scene: move a share of the entities, bring
// the scene index up to date, cull and cast random rays.
func Bench(ctx *cli.Context) error {
	setupLogging(ctx)

	is, err := loadScene(ctx)
	if err != nil {
		return err
	}
	f, err := cameraFrustum(ctx, is.scene)
	if err != nil {
		return err
	}

	if addr := ctx.String("metrics-addr"); addr != "" {
		reg := prometheus.NewRegistry()
		exporter := metrics.NewExporter(reg, "bvh")
		stop, err := serveMetrics(addr, reg)
		if err != nil {
			return err
		}
		defer stop()
		return runBench(ctx, is, f, exporter)
	}
	return runBench(ctx, is, f, nil)
}

func serveMetrics(addr string, reg *prometheus.Registry) (func(), error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	var mux http.ServeMux
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	server := &http.Server{Handler: &mux}
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("metrics server: %v", err)
		}
	}()

	logger.Noticef("serving metrics on http://%s/metrics", listener.Addr())
	return func() { server.Close() }, nil
}

func runBench(ctx *cli.Context, is *indexedScene, f geom.Frustum, exporter *metrics.Exporter) error {
	frames := ctx.Int("frames")
	raysPerFrame := ctx.Int("rays")
	moveShare := ctx.Float64("move")
	if frames < 1 || raysPerFrame < 0 || moveShare < 0 || moveShare > 1 {
		return fmt.Errorf("invalid benchmark settings: frames=%d rays=%d move=%f", frames, raysPerFrame, moveShare)
	}

	rng := rand.New(rand.NewSource(ctx.Int64("seed")))
	mgr := is.mgr
	culler := visibility.NewIndexCuller(mgr)
	debugLogger := visibility.NewDebugLogger(ctx.Duration("report-interval"), ctx.Bool("report"))
	debugLogger.LogConfiguration(mgr)

	drawList := mgr.Entities()
	bounds := geom.EmptyAABB()
	for _, id := range drawList {
		box, _ := mgr.WorldBounds(id)
		if box.IsFinite() {
			bounds = bounds.Union(box)
		}
	}
	if bounds.IsEmpty() {
		return errors.New("scene contains no indexed geometry")
	}

	base := make(map[uint64]types.Mat4, len(is.scene.Instances))
	for _, inst := range is.scene.Instances {
		base[inst.Entity] = inst.Transform
	}
	amplitude := 0.05 * bounds.Size().Len()

	var stats benchStats
	for frame := 0; frame < frames; frame++ {
		frameStart := time.Now()
		mgr.ResetFrameMetrics()

		// Move entities along a circle around their initial position
		for _, id := range drawList {
			if rng.Float64() >= moveShare {
				continue
			}
			phase := float64(frame)*0.1 + float64(id)
			offset := types.XYZ(float32(math.Cos(phase)), 0, float32(math.Sin(phase))).Mul(amplitude)
			mgr.UpdateTransform(id, types.Translate4(offset).Mul4(base[id]))
		}

		start := time.Now()
		if err := mgr.RebuildSceneIfNeeded(); err != nil && !errors.Is(err, sceneindex.ErrBudgetExceeded) {
			return err
		}
		stats.updateTime += time.Since(start)

		start = time.Now()
		stats.visible += len(culler.VisibleIndices(f, drawList))
		stats.cullTime += time.Since(start)

		start = time.Now()
		for i := 0; i < raysPerFrame; i++ {
			if _, hit := mgr.RaycastFirst(randomRay(rng, bounds), math.MaxFloat32); hit {
				stats.hits++
			}
		}
		stats.rays += raysPerFrame
		stats.rayTime += time.Since(start)

		frameTime := time.Since(frameStart)
		stats.frameTime += frameTime
		stats.frames++

		if exporter != nil {
			exporter.Observe(mgr.Metrics())
		}
		debugLogger.Update(frameTime, mgr)
	}

	logger.Noticef("benchmark results\n%s", benchTable(stats))
	logger.Noticef("index statistics (last frame)\n%s", snapshotTable(mgr.Metrics(), mgr.Options()))
	return nil
}

// Generate a ray from a random point on the bounds shell towards a random
// point inside the bounds.
func randomRay(rng *rand.Rand, bounds geom.AABB) geom.Ray {
	size := bounds.Size()
	point := func() types.Vec3 {
		return types.XYZ(
			bounds.Min[0]+rng.Float32()*size[0],
			bounds.Min[1]+rng.Float32()*size[1],
			bounds.Min[2]+rng.Float32()*size[2],
		)
	}

	origin := point()
	axis := rng.Intn(3)
	if rng.Intn(2) == 0 {
		origin[axis] = bounds.Min[axis] - 1
	} else {
		origin[axis] = bounds.Max[axis] + 1
	}
	return geom.NewRay(origin, point().Sub(origin))
}

func benchTable(s benchStats) string {
	perFrame := func(d time.Duration) string {
		return millis(d / time.Duration(s.frames))
	}

	var buf bytes.Buffer
	table := newTable(&buf, "Stage", "Total", "Per frame")
	table.AppendBulk([][]string{
		{"index update", millis(s.updateTime), perFrame(s.updateTime)},
		{"culling", millis(s.cullTime), perFrame(s.cullTime)},
		{"raycasts", millis(s.rayTime), perFrame(s.rayTime)},
	})
	table.SetFooter([]string{
		fmt.Sprintf("%d FRAMES", s.frames),
		millis(s.frameTime),
		perFrame(s.frameTime),
	})
	table.Render()

	var summary bytes.Buffer
	summary.WriteString(buf.String())
	fmt.Fprintf(&summary, "avg visible entities: %.1f, rays: %d, hits: %d", float64(s.visible)/float64(s.frames), s.rays, s.hits)
	return summary.String()
}
