package sceneindex

import (
	"errors"
	"math/rand"
	"sort"
	"testing"
	"time"

	"github.com/chewxy/math32"
	"github.com/jonit-dev/vibe-coder-3d-sub004/bvh"
	"github.com/jonit-dev/vibe-coder-3d-sub004/geom"
	"github.com/jonit-dev/vibe-coder-3d-sub004/types"
	"github.com/stretchr/testify/require"
)

func randomRefs(rng *rand.Rand, count int) []Ref {
	refs := make([]Ref, count)
	for i := range refs {
		c := types.XYZ(rng.Float32()*200-100, rng.Float32()*200-100, rng.Float32()*200-100)
		h := types.XYZ(rng.Float32()*2+0.1, rng.Float32()*2+0.1, rng.Float32()*2+0.1)
		refs[i] = Ref{Entity: uint64(i + 1), Box: geom.NewAABB(c.Sub(h), c.Add(h))}
	}
	return refs
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

func sorted(ids []uint64) []uint64 {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func bruteFrustum(refs []Ref, f *geom.Frustum) []uint64 {
	var out []uint64
	for _, ref := range refs {
		if f.IntersectsAABB(ref.Box) {
			out = append(out, ref.Entity)
		}
	}
	return sorted(out)
}

func bruteRay(refs []Ref, ray geom.Ray, maxDist float32) []uint64 {
	var out []uint64
	for _, ref := range refs {
		if geom.RayIntersectsAABB(ray, ref.Box, maxDist) {
			out = append(out, ref.Entity)
		}
	}
	return sorted(out)
}

func TestQueriesMatchBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(21))
	refs := randomRefs(rng, 1000)

	for _, split := range []bvh.SplitStrategy{bvh.SurfaceAreaHeuristic, bvh.Median, bvh.CentroidAverage} {
		ix := New(Options{LeafMaxRefs: 16, Split: split})
		ix.Build(refs)
		require.NoError(t, ix.Verify())
		require.Equal(t, len(refs), ix.Len())

		for i := 0; i < 50; i++ {
			c := types.XYZ(rng.Float32()*160-80, rng.Float32()*160-80, rng.Float32()*160-80)
			h := types.Splat3(rng.Float32()*40 + 1)
			f := boxFrustum(c.Sub(h), c.Add(h))
			require.Equal(t, bruteFrustum(refs, &f), sorted(ix.QueryFrustum(&f, nil)), "[%s frustum %d]", split.Name(), i)

			origin := types.XYZ(rng.Float32()*300-150, rng.Float32()*300-150, rng.Float32()*300-150)
			ray := geom.NewRay(origin, c.Sub(origin))
			maxDist := math32.Inf(1)
			if i%2 == 0 {
				maxDist = rng.Float32() * 200
			}
			require.Equal(t, bruteRay(refs, ray, maxDist), sorted(ix.QueryRay(ray, maxDist, nil)), "[%s ray %d]", split.Name(), i)
		}
	}
}

func TestRefitMatchesRebuild(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	refs := randomRefs(rng, 500)

	refitted := New(DefaultOptions())
	refitted.Build(refs)

	for frame := 0; frame < 10; frame++ {
		moved := make([]Ref, 0, len(refs)/4)
		for i := range refs {
			if rng.Intn(4) != 0 {
				continue
			}
			offset := types.XYZ(rng.Float32()*30-15, rng.Float32()*30-15, rng.Float32()*30-15)
			refs[i].Box = geom.NewAABB(refs[i].Box.Min.Add(offset), refs[i].Box.Max.Add(offset))
			moved = append(moved, refs[i])
		}
		refitted.Refit(moved)
		require.NoError(t, refitted.Verify(), "frame %d", frame)

		rebuilt := New(DefaultOptions())
		rebuilt.Build(refs)

		for q := 0; q < 20; q++ {
			c := types.XYZ(rng.Float32()*160-80, rng.Float32()*160-80, rng.Float32()*160-80)
			f := boxFrustum(c.Sub(types.Splat3(30)), c.Add(types.Splat3(30)))
			require.Equal(t, sorted(rebuilt.QueryFrustum(&f, nil)), sorted(refitted.QueryFrustum(&f, nil)))

			ray := geom.NewRay(types.XYZ(-200, 0, 0), c.Sub(types.XYZ(-200, 0, 0)))
			require.Equal(t, sorted(rebuilt.QueryRay(ray, 1000, nil)), sorted(refitted.QueryRay(ray, 1000, nil)))
		}
	}
	require.Equal(t, 10, refitted.Stats().Refits)
}

func TestRefitFuncKeepsMissingEntities(t *testing.T) {
	refs := []Ref{
		{Entity: 1, Box: geom.NewAABB(types.XYZ(0, 0, 0), types.XYZ(1, 1, 1))},
		{Entity: 2, Box: geom.NewAABB(types.XYZ(5, 0, 0), types.XYZ(6, 1, 1))},
	}
	ix := New(Options{LeafMaxRefs: 1})
	ix.Build(refs)

	moved := geom.NewAABB(types.XYZ(10, 0, 0), types.XYZ(11, 1, 1))
	ix.RefitFunc(func(entity uint64) (geom.AABB, bool) {
		if entity == 1 {
			return moved, true
		}
		return geom.AABB{}, false
	})
	require.NoError(t, ix.Verify())

	box, ok := ix.Box(1)
	require.True(t, ok)
	require.Equal(t, moved, box)

	box, ok = ix.Box(2)
	require.True(t, ok)
	require.Equal(t, refs[1].Box, box)

	_, ok = ix.Box(3)
	require.False(t, ok)
}

func TestBudgetedBuild(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	first := randomRefs(rng, 10)
	second := randomRefs(rng, 5000)

	ix := New(Options{LeafMaxRefs: 2, Split: bvh.Median})
	ix.Build(first)

	ix.BeginBuild(second)
	require.True(t, ix.Pending())
	require.Len(t, ix.PendingRefs(), len(second))

	// An expired deadline leaves the previous tree in place
	err := ix.Advance(time.Now().Add(-time.Second))
	require.True(t, errors.Is(err, ErrBudgetExceeded))
	require.Equal(t, len(first), ix.Len())
	require.NoError(t, ix.Verify())

	for ix.Advance(time.Now().Add(-time.Second)) != nil {
	}
	require.False(t, ix.Pending())
	require.Equal(t, len(second), ix.Len())
	require.NoError(t, ix.Verify())
	require.Nil(t, ix.Advance(time.Time{}))
}

func TestEmptyIndex(t *testing.T) {
	ix := New(DefaultOptions())
	f := boxFrustum(types.Splat3(-1), types.Splat3(1))
	require.Empty(t, ix.QueryFrustum(&f, nil))
	require.Empty(t, ix.QueryRay(geom.NewRay(types.XYZ(0, 0, -5), types.XYZ(0, 0, 1)), 100, nil))
	require.True(t, ix.Bounds().IsEmpty())

	ix.Build(nil)
	require.Equal(t, 0, ix.Len())
	ix.Refit(nil)
	require.NoError(t, ix.Verify())
}

func BenchmarkQueryFrustum(b *testing.B) {
	rng := rand.New(rand.NewSource(1))
	ix := New(DefaultOptions())
	ix.Build(randomRefs(rng, 10000))
	f := boxFrustum(types.Splat3(-30), types.Splat3(30))

	var out []uint64
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		out = ix.QueryFrustum(&f, out[:0])
	}
}
