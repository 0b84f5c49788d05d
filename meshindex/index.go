package meshindex

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/jonit-dev/vibe-coder-3d-sub004/bvh"
	"github.com/jonit-dev/vibe-coder-3d-sub004/geom"
	"github.com/jonit-dev/vibe-coder-3d-sub004/log"
	"github.com/jonit-dev/vibe-coder-3d-sub004/types"
)

var (
	ErrInvalidGeometry = errors.New("meshindex: geometry contains no valid triangles")
)

// Default maximum number of triangles per leaf.
const DefaultLeafMaxTris = 8

var logger = log.New("meshindex")

// Index build options.
type Options struct {
	// The maximum number of triangles stored in a leaf.
	LeafMaxTris int

	// The strategy used to split nodes.
	Split bvh.SplitStrategy
}

// Get the default build options.
func DefaultOptions() Options {
	return Options{
		LeafMaxTris: DefaultLeafMaxTris,
		Split:       bvh.SurfaceAreaHeuristic,
	}
}

// A ray hit against an indexed triangle. Distances are expressed in units of
// the query ray's direction length.
type Hit struct {
	Distance float32

	// Barycentric coordinates of the hit point.
	U, V float32

	// The index of the triangle in the geometry it was built from.
	Triangle uint32
}

// Counters collect traversal statistics for a single query.
type Counters struct {
	NodesVisited  int
	TriangleTests int
}

// An Index is an immutable BVH over the triangles of a single geometry.
// It is safe to share an Index between any number of readers.
type Index struct {
	name string
	err  error

	tree *bvh.Tree

	// Triangles in leaf order together with their original index and
	// the length of their unnormalized normal.
	tris       []geom.Triangle
	ids        []uint32
	normalLens []float32

	inputTris int
	stats     bvh.Stats
}

// Build an index over a triangle list. Degenerate and non-finite triangles
// are skipped. If no valid triangle remains the returned index is empty and
// Err reports ErrInvalidGeometry.
func Build(name string, tris []geom.Triangle, opts Options) *Index {
	if opts.LeafMaxTris < 1 {
		opts.LeafMaxTris = DefaultLeafMaxTris
	}

	start := time.Now()
	ix := &Index{
		name:      name,
		inputTris: len(tris),
	}

	items := make([]bvh.Item, 0, len(tris))
	valid := make([]uint32, 0, len(tris))
	for id, tri := range tris {
		if tri.IsDegenerate() {
			continue
		}
		items = append(items, bvh.Item{Box: tri.BBox(), Center: tri.Centroid()})
		valid = append(valid, uint32(id))
	}

	if len(items) == 0 {
		ix.err = fmt.Errorf("%w: %q (%d input triangles)", ErrInvalidGeometry, name, len(tris))
		ix.tree = &bvh.Tree{}
		logger.Warningf("%v", ix.err)
		return ix
	}

	builder := bvh.NewBuilder(items, opts.LeafMaxTris, opts.Split)
	builder.Step(time.Time{})
	ix.tree = builder.Tree()
	ix.stats = builder.Stats()

	// Store triangles in leaf order
	ix.tris = make([]geom.Triangle, len(ix.tree.Order))
	ix.ids = make([]uint32, len(ix.tree.Order))
	ix.normalLens = make([]float32, len(ix.tree.Order))
	for pos, item := range ix.tree.Order {
		id := valid[item]
		ix.tris[pos] = tris[id]
		ix.ids[pos] = id
		ix.normalLens[pos] = tris[id].Normal().Len()
	}

	if skipped := len(tris) - len(items); skipped > 0 {
		logger.Infof("geometry %q: skipped %d degenerate triangles", name, skipped)
	}
	logger.Debugf("built index for %q in %d ms: %d triangles, %d nodes", name, time.Since(start).Nanoseconds()/1e6, len(items), len(ix.tree.Nodes))

	return ix
}

// Build an index from a position buffer and a triangle list index buffer.
// Triangles referencing out-of-range vertices are skipped; the triangle
// index reported by hits is the position of the triangle in the index buffer.
func BuildIndexed(name string, positions []types.Vec3, indices []uint32, opts Options) *Index {
	tris := make([]geom.Triangle, len(indices)/3)
	nan := float32(math.NaN())
	for i := range tris {
		i0, i1, i2 := indices[3*i], indices[3*i+1], indices[3*i+2]
		if int(i0) >= len(positions) || int(i1) >= len(positions) || int(i2) >= len(positions) {
			// Mark as degenerate so Build skips it while keeping triangle ids stable.
			tris[i] = geom.Triangle{A: types.Splat3(nan), B: types.Splat3(nan), C: types.Splat3(nan)}
			continue
		}
		tris[i] = geom.Triangle{A: positions[i0], B: positions[i1], C: positions[i2]}
	}
	return Build(name, tris, opts)
}

// Get the geometry name.
func (ix *Index) Name() string {
	return ix.name
}

// Err returns ErrInvalidGeometry (wrapped) if the index was built from
// geometry without any valid triangles.
func (ix *Index) Err() error {
	return ix.err
}

// Returns true if the index contains no triangles.
func (ix *Index) Empty() bool {
	return ix.tree.Empty()
}

// Get the local space bounds of all indexed triangles.
func (ix *Index) Bounds() geom.AABB {
	return ix.tree.Bounds()
}

// Get the number of indexed triangles.
func (ix *Index) TriangleCount() int {
	return len(ix.tris)
}

// Get the number of triangles the index was built from, including skipped
// ones.
func (ix *Index) InputTriangleCount() int {
	return ix.inputTris
}

// Get the number of BVH nodes.
func (ix *Index) NodeCount() int {
	return len(ix.tree.Nodes)
}

// Get the build statistics.
func (ix *Index) Stats() bvh.Stats {
	return ix.stats
}
