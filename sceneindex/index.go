package sceneindex

import (
	"errors"
	"time"

	"github.com/jonit-dev/vibe-coder-3d-sub004/bvh"
	"github.com/jonit-dev/vibe-coder-3d-sub004/geom"
	"github.com/jonit-dev/vibe-coder-3d-sub004/log"
)

var (
	ErrBudgetExceeded = errors.New("sceneindex: rebuild exceeded the frame budget")
)

// Default maximum number of references per leaf.
const DefaultLeafMaxRefs = 16

// A Ref places an entity in the scene index.
type Ref struct {
	Entity uint64
	Box    geom.AABB
}

// Scene index options.
type Options struct {
	// The maximum number of references stored in a leaf.
	LeafMaxRefs int

	// The strategy used to split nodes.
	Split bvh.SplitStrategy
}

// Get the default options.
func DefaultOptions() Options {
	return Options{
		LeafMaxRefs: DefaultLeafMaxRefs,
		Split:       bvh.SurfaceAreaHeuristic,
	}
}

// Statistics for the committed tree.
type Stats struct {
	bvh.Stats

	// Number of completed refits since the last rebuild.
	Refits int

	// Duration of the last refit.
	RefitTime time.Duration
}

type pendingBuild struct {
	refs    []Ref
	builder *bvh.Builder
}

// An Index is a BVH over entity bounds. Queries always run against the last
// committed tree; a budgeted rebuild only replaces it once it completes.
type Index struct {
	logger log.Logger
	opts   Options

	refs  []Ref
	slots map[uint64]uint32
	tree  *bvh.Tree
	stats Stats

	pending *pendingBuild
}

// Create an empty scene index.
func New(opts Options) *Index {
	if opts.LeafMaxRefs < 1 {
		opts.LeafMaxRefs = DefaultLeafMaxRefs
	}
	if opts.Split == nil {
		opts.Split = bvh.SurfaceAreaHeuristic
	}
	return &Index{
		logger: log.New("sceneindex"),
		opts:   opts,
		slots:  make(map[uint64]uint32),
		tree:   &bvh.Tree{},
	}
}

// Build replaces the index contents with refs. Any pending budgeted build is
// discarded.
func (ix *Index) Build(refs []Ref) {
	ix.BeginBuild(refs)
	ix.pending.builder.Step(time.Time{})
	ix.commit()
}

// BeginBuild starts a rebuild that can be spread over several frames using
// Advance. The committed tree keeps serving queries until the build
// completes. The refs slice is copied.
func (ix *Index) BeginBuild(refs []Ref) {
	snapshot := make([]Ref, len(refs))
	copy(snapshot, refs)

	items := make([]bvh.Item, len(snapshot))
	for i, ref := range snapshot {
		items[i] = bvh.ItemFromBox(ref.Box)
	}

	ix.pending = &pendingBuild{
		refs:    snapshot,
		builder: bvh.NewBuilder(items, ix.opts.LeafMaxRefs, ix.opts.Split),
	}
}

// Advance continues a pending build until it completes or the deadline
// passes. It returns ErrBudgetExceeded if work remains, in which case the
// previously committed tree keeps serving queries.
func (ix *Index) Advance(deadline time.Time) error {
	if ix.pending == nil {
		return nil
	}
	if !ix.pending.builder.Step(deadline) {
		return ErrBudgetExceeded
	}
	ix.commit()
	return nil
}

// Returns true if a budgeted build is in progress.
func (ix *Index) Pending() bool {
	return ix.pending != nil
}

// Get the references of the pending build. It returns nil if no build is
// in progress.
func (ix *Index) PendingRefs() []Ref {
	if ix.pending == nil {
		return nil
	}
	return ix.pending.refs
}

// Discard a pending build.
func (ix *Index) CancelBuild() {
	ix.pending = nil
}

func (ix *Index) commit() {
	p := ix.pending
	ix.pending = nil

	ix.refs = p.refs
	ix.tree = p.builder.Tree()
	ix.stats = Stats{Stats: p.builder.Stats()}

	ix.slots = make(map[uint64]uint32, len(ix.refs))
	for i, ref := range ix.refs {
		ix.slots[ref.Entity] = uint32(i)
	}
}

// Refit updates the boxes of the given references and recomputes node
// bounds without changing the tree topology. References to entities that
// are not part of the tree are ignored.
func (ix *Index) Refit(refs []Ref) {
	for _, ref := range refs {
		if slot, exists := ix.slots[ref.Entity]; exists {
			ix.refs[slot].Box = ref.Box
		}
	}
	ix.refitTree()
}

// RefitFunc refreshes every reference box using lookup and refits the tree.
// Entities for which lookup returns false keep their previous box.
func (ix *Index) RefitFunc(lookup func(entity uint64) (geom.AABB, bool)) {
	for i := range ix.refs {
		if box, ok := lookup(ix.refs[i].Entity); ok {
			ix.refs[i].Box = box
		}
	}
	ix.refitTree()
}

func (ix *Index) refitTree() {
	start := time.Now()
	ix.tree.Refit(ix.boxOf)
	ix.stats.Refits++
	ix.stats.RefitTime = time.Since(start)
}

func (ix *Index) boxOf(id uint32) geom.AABB {
	return ix.refs[id].Box
}

// Get the number of indexed references.
func (ix *Index) Len() int {
	return len(ix.refs)
}

// Returns true if the committed tree contains entity.
func (ix *Index) Contains(entity uint64) bool {
	_, exists := ix.slots[entity]
	return exists
}

// Get the box stored for entity in the committed tree.
func (ix *Index) Box(entity uint64) (geom.AABB, bool) {
	slot, exists := ix.slots[entity]
	if !exists {
		return geom.EmptyAABB(), false
	}
	return ix.refs[slot].Box, true
}

// Get the bounds of all indexed references.
func (ix *Index) Bounds() geom.AABB {
	return ix.tree.Bounds()
}

// Get the number of tree nodes.
func (ix *Index) NodeCount() int {
	return len(ix.tree.Nodes)
}

// Get the statistics of the committed tree.
func (ix *Index) Stats() Stats {
	return ix.stats
}

// Verify checks the containment invariant of the committed tree.
func (ix *Index) Verify() error {
	return ix.tree.Verify(ix.boxOf)
}
