package manager

import (
	"errors"
	"math/rand"
	"sort"
	"testing"

	"github.com/chewxy/math32"
	"github.com/jonit-dev/vibe-coder-3d-sub004/geom"
	"github.com/jonit-dev/vibe-coder-3d-sub004/meshindex"
	"github.com/jonit-dev/vibe-coder-3d-sub004/sceneindex"
	"github.com/jonit-dev/vibe-coder-3d-sub004/types"
	"github.com/stretchr/testify/require"
)

var inf = math32.Inf(1)

func unitBox() geom.AABB {
	return geom.NewAABB(types.XYZ(-1, -1, -1), types.XYZ(1, 1, 1))
}

func cubeIndex() *meshindex.Index {
	return meshindex.Build("cube", geom.BoxTriangles(unitBox()), meshindex.DefaultOptions())
}

func planeIndex() *meshindex.Index {
	return meshindex.Build("plane", []geom.Triangle{
		{A: types.XYZ(-1, -1, 0), B: types.XYZ(1, -1, 0), C: types.XYZ(1, 1, 0)},
		{A: types.XYZ(-1, -1, 0), B: types.XYZ(1, 1, 0), C: types.XYZ(-1, 1, 0)},
	}, meshindex.DefaultOptions())
}

func boxFrustum(lo, hi types.Vec3) geom.Frustum {
	return geom.FrustumFromPlanes([6][4]float32{
		{1, 0, 0, -lo[0]},
		{-1, 0, 0, hi[0]},
		{0, 1, 0, -lo[1]},
		{0, -1, 0, hi[1]},
		{0, 0, 1, -lo[2]},
		{0, 0, -1, hi[2]},
	})
}

func newManager(t *testing.T, opts Options) *Manager {
	m, err := New(opts)
	require.NoError(t, err)
	return m
}

func unbudgeted() Options {
	opts := DefaultOptions()
	opts.RefitBatchBudgetMs = 0
	return opts
}

func TestRaycastUnitCube(t *testing.T) {
	m := newManager(t, unbudgeted())
	require.NoError(t, m.RegisterObject(1, cubeIndex(), geom.EmptyAABB()))
	require.NoError(t, m.RebuildSceneIfNeeded())

	ray := geom.NewRay(types.XYZ(0, 0, -5), types.XYZ(0, 0, 1))
	hit, ok := m.RaycastFirst(ray, inf)
	require.True(t, ok)
	require.Equal(t, uint64(1), hit.Entity)
	require.InDelta(t, 4.0, hit.Distance, 1e-5)
	require.InDelta(t, -1.0, hit.Point[2], 1e-5)
	require.GreaterOrEqual(t, hit.Triangle, int32(0))
}

func TestRaycastUsesWorldDistances(t *testing.T) {
	m := newManager(t, unbudgeted())
	world := types.TRS(types.XYZ(0, 0, 10), types.XYZ(0.3, 0.2, 0), types.XYZ(3, 3, 3))
	require.NoError(t, m.RegisterObjectWithTransform(7, cubeIndex(), world))
	require.NoError(t, m.RebuildSceneIfNeeded())

	// A scaled and rotated cube still contains its center; the ray enters
	// the cube at least 3 units before the center.
	ray := geom.NewRay(types.XYZ(0, 0, 0), types.XYZ(0, 0, 1))
	hit, ok := m.RaycastFirst(ray, inf)
	require.True(t, ok)
	require.Less(t, hit.Distance, float32(7.0001))
	require.Greater(t, hit.Distance, float32(10-3*math32.Sqrt(3)))

	// The reported point must lie on the ray at the reported distance
	require.InDelta(t, hit.Distance, hit.Point[2], 1e-4)
}

func randomWorld(rng *rand.Rand) types.Mat4 {
	t := types.XYZ(rng.Float32()*200-100, rng.Float32()*200-100, rng.Float32()*200-100)
	s := types.XYZ(rng.Float32()*2+0.2, rng.Float32()*2+0.2, rng.Float32()*2+0.2)
	return types.Translate4(t).Mul4(types.Scale4(s))
}

// World space triangles of a cube placed with translation + scale.
func worldCube(world types.Mat4) []geom.Triangle {
	tris := geom.BoxTriangles(unitBox())
	for i := range tris {
		tris[i].A = types.TransformPoint(world, tris[i].A)
		tris[i].B = types.TransformPoint(world, tris[i].B)
		tris[i].C = types.TransformPoint(world, tris[i].C)
	}
	return tris
}

func TestThousandBoxesMatchBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(1000))
	cube := cubeIndex()

	for _, enableRaycasts := range []bool{true, false} {
		opts := unbudgeted()
		opts.EnableRaycasts = enableRaycasts
		m := newManager(t, opts)

		worlds := make(map[uint64]types.Mat4)
		for id := uint64(1); id <= 1000; id++ {
			worlds[id] = randomWorld(rng)
			require.NoError(t, m.RegisterObjectWithTransform(id, cube, worlds[id]))
		}
		require.NoError(t, m.RebuildSceneIfNeeded())
		require.NoError(t, m.Verify())

		for q := 0; q < 50; q++ {
			c := types.XYZ(rng.Float32()*160-80, rng.Float32()*160-80, rng.Float32()*160-80)
			h := types.Splat3(rng.Float32()*30 + 1)
			f := boxFrustum(c.Sub(h), c.Add(h))

			exp := []uint64{}
			for id := uint64(1); id <= 1000; id++ {
				box, _ := m.WorldBounds(id)
				if f.IntersectsAABB(box) {
					exp = append(exp, id)
				}
			}
			require.Equal(t, exp, m.CullFrustum(f), "frustum %d", q)

			origin := types.XYZ(rng.Float32()*300-150, rng.Float32()*300-150, rng.Float32()*300-150)
			ray := geom.NewRay(origin, c.Sub(origin))

			bestDist := inf
			hitEntities := make(map[uint64]bool)
			for id, world := range worlds {
				for _, tri := range worldCube(world) {
					if h, ok := geom.RayIntersectsTriangle(ray, tri, inf); ok {
						hitEntities[id] = true
						if h.Distance < bestDist {
							bestDist = h.Distance
						}
					}
				}
			}

			hit, ok := m.RaycastFirst(ray, inf)
			require.Equal(t, len(hitEntities) > 0, ok, "ray %d", q)
			if ok {
				require.InDelta(t, bestDist, hit.Distance, 1e-3, "ray %d", q)
			}

			gotEntities := make(map[uint64]bool)
			for _, h := range m.RaycastAll(ray, inf) {
				gotEntities[h.Entity] = true
			}
			require.Equal(t, hitEntities, gotEntities, "ray %d", q)
		}
	}
}

func TestEntityCrossingFrustumBoundary(t *testing.T) {
	m := newManager(t, unbudgeted())
	require.NoError(t, m.RegisterObject(1, cubeIndex(), geom.EmptyAABB()))
	require.NoError(t, m.RebuildSceneIfNeeded())

	f := boxFrustum(types.XYZ(-10, -10, -10), types.XYZ(10, 10, 10))
	for frame := 0; frame < 20; frame++ {
		x := float32(-20 + 2*frame)
		require.NoError(t, m.UpdateTransform(1, types.Translate4(types.XYZ(x, 0, 0))))
		require.Equal(t, TransformDirty, m.State())

		expVisible := x-1 <= 10 && x+1 >= -10

		// Queries issued before the per-frame rebuild stay conservative
		visible := m.CullFrustum(f)
		if expVisible {
			require.Equal(t, []uint64{1}, visible, "frame %d (before rebuild)", frame)
		}

		require.NoError(t, m.RebuildSceneIfNeeded())
		require.Equal(t, Clean, m.State())
		require.NoError(t, m.Verify())

		visible = m.CullFrustum(f)
		if expVisible {
			require.Equal(t, []uint64{1}, visible, "frame %d", frame)
		} else {
			require.Empty(t, visible, "frame %d", frame)
		}
	}
	require.Equal(t, 1, m.Metrics().Rebuilds)
	require.Equal(t, 20, m.Metrics().Refits)
}

func TestDegenerateGeometryEntity(t *testing.T) {
	m := newManager(t, unbudgeted())
	flat := meshindex.Build("flat", []geom.Triangle{
		{A: types.XYZ(0, 0, 0), B: types.XYZ(1, 1, 1), C: types.XYZ(2, 2, 2)},
	}, meshindex.DefaultOptions())
	require.True(t, errors.Is(flat.Err(), meshindex.ErrInvalidGeometry))

	require.NoError(t, m.RegisterObjectWithTransform(1, flat, types.Translate4(types.XYZ(1, 2, 3))))
	require.NoError(t, m.RegisterObject(2, cubeIndex(), geom.EmptyAABB()))
	require.NoError(t, m.RebuildSceneIfNeeded())
	require.NoError(t, m.Verify())

	box, ok := m.WorldBounds(1)
	require.True(t, ok)
	require.True(t, box.IsEmpty())
	for axis := 0; axis < 3; axis++ {
		require.False(t, math32.IsNaN(box.Min[axis]) || math32.IsNaN(box.Max[axis]))
	}

	hits := m.RaycastAll(geom.NewRay(types.XYZ(1, 1, -10), types.XYZ(0, 0, 1)), inf)
	for _, h := range hits {
		require.NotEqual(t, uint64(1), h.Entity)
		require.False(t, math32.IsNaN(h.Distance))
	}

	// A zero-area triangle among valid ones: only the valid faces are hit
	mixed := meshindex.Build("plane+sliver", []geom.Triangle{
		{A: types.XYZ(-1, -1, 0), B: types.XYZ(1, -1, 0), C: types.XYZ(1, 1, 0)},
		{A: types.XYZ(-1, -1, 0), B: types.XYZ(1, 1, 0), C: types.XYZ(-1, 1, 0)},
		{A: types.XYZ(3, 0, 0), B: types.XYZ(4, 0, 0), C: types.XYZ(5, 0, 0)},
	}, meshindex.DefaultOptions())
	require.NoError(t, mixed.Err())
	require.NoError(t, m.RegisterObjectWithTransform(3, mixed, types.Translate4(types.XYZ(0, 0, 20))))
	require.NoError(t, m.RebuildSceneIfNeeded())

	sliverRay := geom.NewRay(types.XYZ(3.5, -5, 20), types.XYZ(0, 1, 0))
	_, ok = m.RaycastFirst(sliverRay, inf)
	require.False(t, ok)
	require.Empty(t, m.RaycastAll(sliverRay, inf))

	hit, ok := m.RaycastFirst(geom.NewRay(types.XYZ(0.5, 0.25, 15), types.XYZ(0, 0, 1)), inf)
	require.True(t, ok)
	require.Equal(t, uint64(3), hit.Entity)
	require.InDelta(t, 5.0, hit.Distance, 1e-5)
	require.False(t, math32.IsNaN(hit.U) || math32.IsNaN(hit.V))
}

func TestRaycastLargeScale(t *testing.T) {
	for _, s := range []float32{1e3, 1e5, 1e6, 2e6} {
		m := newManager(t, unbudgeted())
		require.NoError(t, m.RegisterObjectWithTransform(1, cubeIndex(), types.Scale4(types.Splat3(s))))
		require.NoError(t, m.RebuildSceneIfNeeded())

		ray := geom.NewRay(types.XYZ(-3*s, 0.25*s, 0.5*s), types.XYZ(1, 0, 0))
		hit, ok := m.RaycastFirst(ray, inf)
		require.True(t, ok, "scale %g: expected a hit", s)
		require.Equal(t, uint64(1), hit.Entity)
		require.InEpsilon(t, 2*s, hit.Distance, 1e-4, "scale %g", s)

		hits := m.RaycastAll(ray, inf)
		require.Len(t, hits, 2, "scale %g: expected entry and exit hits", s)
		require.InEpsilon(t, 4*s, hits[1].Distance, 1e-4, "scale %g", s)
	}
}

// Fail if any entity id is reported more than once.
func requireUnique(t *testing.T, ids []uint64) {
	t.Helper()
	seen := make(map[uint64]struct{}, len(ids))
	for _, id := range ids {
		_, dup := seen[id]
		require.False(t, dup, "entity %d reported more than once in %v", id, ids)
		seen[id] = struct{}{}
	}
}

// Fail if the same triangle of an entity is reported more than once.
func requireUniqueHits(t *testing.T, hits []Hit) {
	t.Helper()
	type key struct {
		entity   uint64
		triangle int32
	}
	seen := make(map[key]struct{}, len(hits))
	for _, h := range hits {
		k := key{h.Entity, h.Triangle}
		_, dup := seen[k]
		require.False(t, dup, "entity %d triangle %d reported more than once", h.Entity, h.Triangle)
		seen[k] = struct{}{}
	}
}

func TestReRegistrationBeforeRebuild(t *testing.T) {
	m := newManager(t, unbudgeted())
	require.NoError(t, m.RegisterObject(1, cubeIndex(), geom.EmptyAABB()))
	require.NoError(t, m.RegisterObjectWithTransform(2, cubeIndex(), types.Translate4(types.XYZ(0, 0, 10))))
	require.NoError(t, m.RebuildSceneIfNeeded())

	all := boxFrustum(types.Splat3(-50), types.Splat3(50))
	ray := geom.NewRay(types.XYZ(0.5, 0.25, -5), types.XYZ(0, 0, 1))
	require.Len(t, m.RaycastAll(ray, inf), 4)

	// Register an id that is already present in the scene tree
	require.NoError(t, m.RegisterObject(1, cubeIndex(), geom.EmptyAABB()))
	require.Equal(t, []uint64{1, 2}, m.CullFrustum(all))
	hits := m.RaycastAll(ray, inf)
	requireUniqueHits(t, hits)
	require.Len(t, hits, 4)

	// Unregister and register again; the old tree still holds entity 2
	require.NoError(t, m.UnregisterObject(2))
	require.NoError(t, m.RegisterObjectWithTransform(2, cubeIndex(), types.Translate4(types.XYZ(0, 0, 20))))
	require.Equal(t, []uint64{1, 2}, m.CullFrustum(all))
	hits = m.RaycastAll(ray, inf)
	requireUniqueHits(t, hits)
	require.Len(t, hits, 4)
	require.InDelta(t, 24.0, hits[2].Distance, 1e-4)

	// Moving a re-registered entity keeps it in a single set
	require.NoError(t, m.UpdateTransform(2, types.Translate4(types.XYZ(0, 0, 30))))
	require.Equal(t, []uint64{1, 2}, m.CullFrustum(all))
	require.Len(t, m.RaycastAll(ray, inf), 4)

	require.NoError(t, m.RebuildSceneIfNeeded())
	require.Equal(t, []uint64{1, 2}, m.CullFrustum(all))
	require.Len(t, m.RaycastAll(ray, inf), 4)
	require.NoError(t, m.Verify())
}

func TestReRegistrationDuringBudgetedRebuild(t *testing.T) {
	opts := DefaultOptions()
	opts.RefitBatchBudgetMs = 1e-6
	opts.LeafMaxRefs = 1
	m := newManager(t, opts)

	rng := rand.New(rand.NewSource(11))
	cube := cubeIndex()
	for id := uint64(1); id <= 3000; id++ {
		require.NoError(t, m.RegisterObjectWithTransform(id, cube, randomWorld(rng)))
	}
	m.ForceRebuild()
	require.True(t, m.Ready())

	far := types.XYZ(900, 900, 900)
	require.NoError(t, m.UnregisterObject(1))
	require.NoError(t, m.RegisterObjectWithTransform(1, cube, types.Translate4(far)))

	err := m.RebuildSceneIfNeeded()
	require.True(t, errors.Is(err, sceneindex.ErrBudgetExceeded))

	all := boxFrustum(types.Splat3(-1000), types.Splat3(1000))
	farRay := geom.NewRay(types.XYZ(900.5, 900.25, 800), types.XYZ(0, 0, 1))
	check := func() {
		visible := m.CullFrustum(all)
		requireUnique(t, visible)
		require.Len(t, visible, 3000)

		hits := m.RaycastAll(farRay, inf)
		requireUniqueHits(t, hits)
		require.Len(t, hits, 2)
		require.Equal(t, uint64(1), hits[0].Entity)
	}
	check()

	// Register the id again while the build is pending
	require.NoError(t, m.RegisterObjectWithTransform(1, cube, types.Translate4(far)))
	for frames := 0; errors.Is(m.RebuildSceneIfNeeded(), sceneindex.ErrBudgetExceeded); frames++ {
		require.Less(t, frames, 100000)
		check()
	}
	check()
	require.NoError(t, m.Verify())

	m.ForceRebuild()
	check()
}

func TestStackedPlanesSortedHits(t *testing.T) {
	m := newManager(t, unbudgeted())
	plane := planeIndex()

	// Registered out of order
	for id, z := range map[uint64]float32{3: 9, 1: 2, 2: 5} {
		require.NoError(t, m.RegisterObjectWithTransform(id, plane, types.Translate4(types.XYZ(0, 0, z))))
	}
	require.NoError(t, m.RebuildSceneIfNeeded())

	ray := geom.NewRay(types.XYZ(0.3, -0.6, 0), types.XYZ(0, 0, 1))
	hits := m.RaycastAll(ray, inf)
	require.Len(t, hits, 3)
	for i, exp := range []float32{2, 5, 9} {
		require.InDelta(t, exp, hits[i].Distance, 1e-5)
		require.Equal(t, uint64(i+1), hits[i].Entity)
	}

	first, ok := m.RaycastFirst(ray, inf)
	require.True(t, ok)
	require.Equal(t, uint64(1), first.Entity)

	// Max distance between the first and second plane
	hits = m.RaycastAll(ray, 3)
	require.Len(t, hits, 1)
}

func TestDistanceTiesBreakOnEntityId(t *testing.T) {
	m := newManager(t, unbudgeted())
	cube := cubeIndex()
	for _, id := range []uint64{42, 7, 19} {
		require.NoError(t, m.RegisterObject(id, cube, geom.EmptyAABB()))
	}
	require.NoError(t, m.RebuildSceneIfNeeded())

	ray := geom.NewRay(types.XYZ(0.5, 0.25, -5), types.XYZ(0, 0, 1))
	first, ok := m.RaycastFirst(ray, inf)
	require.True(t, ok)
	require.Equal(t, uint64(7), first.Entity)

	hits := m.RaycastAll(ray, inf)
	require.True(t, sort.SliceIsSorted(hits, func(i, j int) bool { return hits[i].Less(hits[j]) }))
	require.Equal(t, uint64(7), hits[0].Entity)
	require.Equal(t, uint64(19), hits[1].Entity)
	require.Equal(t, uint64(42), hits[2].Entity)
}

func TestDirtyStateMachine(t *testing.T) {
	m := newManager(t, unbudgeted())
	require.Equal(t, Clean, m.State())
	require.False(t, m.Ready())

	require.NoError(t, m.RegisterObject(1, cubeIndex(), geom.EmptyAABB()))
	require.Equal(t, StructurallyDirty, m.State())

	// Structural changes supersede transform changes
	require.NoError(t, m.UpdateTransform(1, types.Translate4(types.XYZ(1, 0, 0))))
	require.Equal(t, StructurallyDirty, m.State())

	require.NoError(t, m.RebuildSceneIfNeeded())
	require.Equal(t, Clean, m.State())
	require.True(t, m.Ready())
	require.Equal(t, 1, m.Metrics().Rebuilds)

	require.NoError(t, m.UpdateTransform(1, types.Translate4(types.XYZ(2, 0, 0))))
	require.NoError(t, m.UpdateTransform(1, types.Translate4(types.XYZ(3, 0, 0))))
	require.Equal(t, TransformDirty, m.State())
	require.NoError(t, m.RebuildSceneIfNeeded())
	require.Equal(t, Clean, m.State())
	require.Equal(t, 1, m.Metrics().Refits)

	// No-op when clean
	require.NoError(t, m.RebuildSceneIfNeeded())
	require.Equal(t, 1, m.Metrics().Rebuilds)
	require.Equal(t, 1, m.Metrics().Refits)

	require.NoError(t, m.UnregisterObject(1))
	require.Equal(t, StructurallyDirty, m.State())
	require.NoError(t, m.RebuildSceneIfNeeded())
	require.Equal(t, 2, m.Metrics().Rebuilds)
	require.Equal(t, 0, m.Count())
}

func TestIncrementalUpdatesDisabled(t *testing.T) {
	opts := unbudgeted()
	opts.EnableIncrementalUpdates = false
	m := newManager(t, opts)

	require.NoError(t, m.RegisterObject(1, cubeIndex(), geom.EmptyAABB()))
	require.NoError(t, m.RebuildSceneIfNeeded())
	require.NoError(t, m.UpdateTransform(1, types.Translate4(types.XYZ(5, 0, 0))))
	require.NoError(t, m.RebuildSceneIfNeeded())

	require.Equal(t, 2, m.Metrics().Rebuilds)
	require.Equal(t, 0, m.Metrics().Refits)
	require.NoError(t, m.Verify())
}

func TestMissingEntity(t *testing.T) {
	m := newManager(t, unbudgeted())
	require.True(t, errors.Is(m.UpdateTransform(99, types.Ident4()), ErrMissingEntity))
	require.True(t, errors.Is(m.UnregisterObject(99), ErrMissingEntity))
	require.Equal(t, ErrNilIndex, m.RegisterObject(1, nil, geom.EmptyAABB()))

	// An entity removed after the last rebuild is excluded from queries
	require.NoError(t, m.RegisterObject(1, cubeIndex(), geom.EmptyAABB()))
	require.NoError(t, m.RegisterObject(2, cubeIndex(), geom.EmptyAABB()))
	require.NoError(t, m.RebuildSceneIfNeeded())
	require.NoError(t, m.UnregisterObject(1))

	f := boxFrustum(types.Splat3(-5), types.Splat3(5))
	require.Equal(t, []uint64{2}, m.CullFrustum(f))

	hit, ok := m.RaycastFirst(geom.NewRay(types.XYZ(0, 0, -5), types.XYZ(0, 0, 1)), inf)
	require.True(t, ok)
	require.Equal(t, uint64(2), hit.Entity)
}

func TestBudgetedRebuild(t *testing.T) {
	opts := DefaultOptions()
	opts.RefitBatchBudgetMs = 1e-6
	opts.LeafMaxRefs = 1
	m := newManager(t, opts)

	rng := rand.New(rand.NewSource(3))
	cube := cubeIndex()
	for id := uint64(1); id <= 3000; id++ {
		require.NoError(t, m.RegisterObjectWithTransform(id, cube, randomWorld(rng)))
	}

	err := m.RebuildSceneIfNeeded()
	require.True(t, errors.Is(err, sceneindex.ErrBudgetExceeded))
	require.False(t, m.Ready())

	// Queries stay complete while the build is pending
	f := boxFrustum(types.Splat3(-40), types.Splat3(40))
	exp := []uint64{}
	for _, id := range m.Entities() {
		box, _ := m.WorldBounds(id)
		if f.IntersectsAABB(box) {
			exp = append(exp, id)
		}
	}
	require.Equal(t, exp, m.CullFrustum(f))

	// Mutations during the build are picked up once it completes
	require.NoError(t, m.UpdateTransform(1, types.Translate4(types.XYZ(500, 500, 500))))
	require.NoError(t, m.RegisterObject(5000, cube, geom.EmptyAABB()))

	for frames := 0; errors.Is(m.RebuildSceneIfNeeded(), sceneindex.ErrBudgetExceeded); frames++ {
		require.Less(t, frames, 100000)
		require.Contains(t, m.CullFrustum(boxFrustum(types.Splat3(-1), types.Splat3(1))), uint64(5000))
	}
	require.True(t, m.Ready())
	require.NoError(t, m.Verify())
	require.Greater(t, m.Metrics().BudgetOverruns, 0)

	box, _ := m.WorldBounds(1)
	require.True(t, box.Contains(types.XYZ(500, 500, 500)))
	require.Contains(t, m.CullFrustum(boxFrustum(types.Splat3(490), types.Splat3(510))), uint64(1))
	require.Contains(t, m.CullFrustum(boxFrustum(types.Splat3(-1), types.Splat3(1))), uint64(5000))

	// The registration made during the build still needs a rebuild
	require.Equal(t, StructurallyDirty, m.State())
	m.ForceRebuild()
	require.Equal(t, Clean, m.State())
	require.Equal(t, 3001, m.Metrics().SceneRefs)
}

func TestNumericInstability(t *testing.T) {
	m := newManager(t, unbudgeted())
	require.NoError(t, m.RegisterObject(1, cubeIndex(), geom.EmptyAABB()))
	require.NoError(t, m.RegisterObjectWithTransform(2, cubeIndex(), types.Translate4(types.XYZ(50, 0, 0))))
	require.NoError(t, m.RebuildSceneIfNeeded())

	// NaN planes: everything is a candidate
	f := boxFrustum(types.Splat3(-1), types.Splat3(1))
	f[geom.PlaneNear].D = math32.NaN()
	require.Equal(t, []uint64{1, 2}, m.CullFrustum(f))

	// NaN ray: no hits and no panic
	_, ok := m.RaycastFirst(geom.Ray{Origin: types.XYZ(math32.NaN(), 0, 0), Dir: types.XYZ(0, 0, 1)}, inf)
	require.False(t, ok)
	require.Empty(t, m.RaycastAll(geom.Ray{Origin: types.XYZ(0, 0, -5)}, inf))

	// NaN max distance is treated as unbounded
	_, ok = m.RaycastFirst(geom.NewRay(types.XYZ(0, 0, -5), types.XYZ(0, 0, 1)), math32.NaN())
	require.True(t, ok)

	// NaN transform: unbounded for culling, raycasts keep the last valid matrix
	bad := types.Translate4(types.XYZ(0, 0, 0))
	bad[12] = math32.Inf(1)
	err := m.UpdateTransform(2, bad)
	require.True(t, errors.Is(err, geom.ErrNumericInstability))
	require.NoError(t, m.RebuildSceneIfNeeded())
	require.NoError(t, m.Verify())

	far := boxFrustum(types.XYZ(-1000, 900, -1000), types.XYZ(1000, 1000, 1000))
	require.Equal(t, []uint64{2}, m.CullFrustum(far))

	hit, ok := m.RaycastFirst(geom.NewRay(types.XYZ(50, 0, -5), types.XYZ(0, 0, 1)), inf)
	require.True(t, ok)
	require.Equal(t, uint64(2), hit.Entity)
	require.InDelta(t, 4.0, hit.Distance, 1e-4)
}

func TestCullingDisabled(t *testing.T) {
	opts := unbudgeted()
	opts.EnableCulling = false
	m := newManager(t, opts)

	require.NoError(t, m.RegisterObject(2, cubeIndex(), geom.EmptyAABB()))
	require.NoError(t, m.RegisterObjectWithTransform(1, cubeIndex(), types.Translate4(types.XYZ(100, 0, 0))))

	f := boxFrustum(types.Splat3(-5), types.Splat3(5))
	require.Equal(t, []uint64{1, 2}, m.CullFrustum(f))
	require.Equal(t, 2, m.Metrics().VisibleLastFrame)
}

func TestDynamicEntity(t *testing.T) {
	opts := unbudgeted()
	opts.DynamicPadding = 0.5
	m := newManager(t, opts)

	require.NoError(t, m.RegisterDynamic(1, unitBox(), types.Translate4(types.XYZ(0, 0, 10))))
	require.NoError(t, m.RebuildSceneIfNeeded())

	hit, ok := m.RaycastFirst(geom.NewRay(types.XYZ(0, 0, 0), types.XYZ(0, 0, 1)), inf)
	require.True(t, ok)
	require.Equal(t, int32(-1), hit.Triangle)
	require.InDelta(t, 8.5, hit.Distance, 1e-5)
	require.Equal(t, 1, m.Metrics().DynamicObjects)
}

func TestMetricsAndReset(t *testing.T) {
	m := newManager(t, unbudgeted())
	cube := cubeIndex()
	require.NoError(t, m.RegisterObject(1, cube, geom.EmptyAABB()))
	require.NoError(t, m.RegisterObjectWithTransform(2, cube, types.Translate4(types.XYZ(100, 0, 0))))
	require.NoError(t, m.RebuildSceneIfNeeded())

	m.CullFrustum(boxFrustum(types.Splat3(-5), types.Splat3(5)))
	m.RaycastFirst(geom.NewRay(types.XYZ(0, 0, -5), types.XYZ(0, 0, 1)), inf)

	s := m.Metrics()
	require.Equal(t, 1, s.MeshIndices)
	require.Equal(t, 12, s.MeshTriangles)
	require.Equal(t, 2, s.SceneRefs)
	require.Equal(t, 1, s.VisibleLastFrame)
	require.Equal(t, 1, s.CulledLastFrame)
	require.InDelta(t, 0.5, s.VisibleRatio(), 1e-9)
	require.Equal(t, 1, s.RaycastsLastFrame)
	require.Equal(t, 1, s.RayCandidatesLastFrame)
	require.NotZero(t, s.RayTriangleTestsLastFrame)

	m.ResetFrameMetrics()
	s = m.Metrics()
	require.Zero(t, s.RaycastsLastFrame)
	require.Zero(t, s.VisibleLastFrame)
	require.Equal(t, 1, s.Rebuilds)

	m.Clear()
	require.Equal(t, 0, m.Count())
	require.False(t, m.Ready())
}
