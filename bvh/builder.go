package bvh

import (
	"time"

	"github.com/jonit-dev/vibe-coder-3d-sub004/geom"
	"github.com/jonit-dev/vibe-coder-3d-sub004/log"
)

// The builder checks the deadline once every this many processed nodes.
const deadlineCheckInterval = 32

// Build statistics.
type Stats struct {
	Items    int
	Nodes    int
	Leafs    int
	MaxDepth int

	// Item count of the smallest and largest leaf.
	MinLeafItems int
	MaxLeafItems int

	// Number of splits where the strategy failed and the builder fell back
	// to an index-half split.
	FallbackSplits int

	// Accumulated time spent building, excluding any time between Step calls.
	BuildTime time.Duration
}

type buildTask struct {
	node   int32
	lo, hi int
	depth  int
}

// A Builder constructs a BVH over a list of items. The work is driven by an
// explicit task stack so that a build can be split across several Step calls.
type Builder struct {
	logger log.Logger

	items    []Item
	order    []uint32
	nodes    []Node
	tasks    []buildTask
	maxLeaf  int
	strategy SplitStrategy

	stats Stats
}

// Create a builder for items. Leaves will hold at most maxLeafItems items.
func NewBuilder(items []Item, maxLeafItems int, strategy SplitStrategy) *Builder {
	if maxLeafItems < 1 {
		maxLeafItems = 1
	}
	if strategy == nil {
		strategy = SurfaceAreaHeuristic
	}

	b := &Builder{
		logger:   log.New("bvh"),
		items:    items,
		order:    make([]uint32, len(items)),
		nodes:    make([]Node, 0, 2*len(items)/maxLeafItems+1),
		maxLeaf:  maxLeafItems,
		strategy: strategy,
		stats: Stats{
			Items: len(items),
		},
	}

	for i := range b.order {
		b.order[i] = uint32(i)
	}

	if len(items) > 0 {
		b.nodes = append(b.nodes, Node{})
		b.tasks = append(b.tasks, buildTask{node: 0, lo: 0, hi: len(items)})
	}

	return b
}

// Construct a BVH from a set of items in one go.
func Build(items []Item, maxLeafItems int, strategy SplitStrategy) *Tree {
	b := NewBuilder(items, maxLeafItems, strategy)
	b.Step(time.Time{})
	return b.Tree()
}

// Returns true when all nodes have been built.
func (b *Builder) Done() bool {
	return len(b.tasks) == 0
}

// Step processes pending nodes until the build completes or the deadline
// passes. A zero deadline means no limit. It returns true if the build is
// complete.
func (b *Builder) Step(deadline time.Time) bool {
	if b.Done() {
		return true
	}

	start := time.Now()
	for processed := 1; len(b.tasks) > 0; processed++ {
		task := b.tasks[len(b.tasks)-1]
		b.tasks = b.tasks[:len(b.tasks)-1]
		b.process(task)

		if !deadline.IsZero() && processed%deadlineCheckInterval == 0 && time.Now().After(deadline) {
			break
		}
	}
	b.stats.BuildTime += time.Since(start)

	if b.Done() {
		b.logger.Debugf(
			"BVH tree build time: %d ms, strategy: %s, items: %d, maxDepth: %d, nodes: %d, leafs: %d",
			b.stats.BuildTime.Nanoseconds()/1e6, b.strategy.Name(),
			b.stats.Items, b.stats.MaxDepth, b.stats.Nodes, b.stats.Leafs,
		)
		return true
	}
	return false
}

// Get the built tree. It must only be called once Done returns true.
func (b *Builder) Tree() *Tree {
	return &Tree{
		Nodes:    b.nodes,
		Order:    b.order,
		MaxDepth: b.stats.MaxDepth,
	}
}

// Get the build statistics.
func (b *Builder) Stats() Stats {
	return b.stats
}

// Calculate the bounds of the task's items, then either turn the node into a
// leaf or split it and schedule both children.
func (b *Builder) process(task buildTask) {
	if task.depth > b.stats.MaxDepth {
		b.stats.MaxDepth = task.depth
	}
	b.stats.Nodes++

	order := b.order[task.lo:task.hi]
	box := geom.EmptyAABB()
	for _, id := range order {
		box = box.Union(b.items[id].Box)
	}
	b.nodes[task.node].Box = box

	// Do we have few enough items for a leaf?
	if len(order) <= b.maxLeaf {
		b.createLeaf(task)
		return
	}

	mid, ok := b.strategy.Partition(b.items, order)
	if !ok || mid <= 0 || mid >= len(order) {
		b.stats.FallbackSplits++
		mid = splitHalf(b.items, order)
	}

	left := int32(len(b.nodes))
	b.nodes = append(b.nodes, Node{}, Node{})
	b.nodes[task.node].Left = left
	b.nodes[task.node].Right = left + 1

	// Push right first so the left subtree is built first.
	b.tasks = append(b.tasks,
		buildTask{node: left + 1, lo: task.lo + mid, hi: task.hi, depth: task.depth + 1},
		buildTask{node: left, lo: task.lo, hi: task.lo + mid, depth: task.depth + 1},
	)
}

func (b *Builder) createLeaf(task buildTask) {
	count := task.hi - task.lo
	node := &b.nodes[task.node]
	node.Left = -1
	node.Right = -1
	node.First = uint32(task.lo)
	node.Count = uint32(count)

	b.stats.Leafs++
	if b.stats.Leafs == 1 || count < b.stats.MinLeafItems {
		b.stats.MinLeafItems = count
	}
	if count > b.stats.MaxLeafItems {
		b.stats.MaxLeafItems = count
	}
}
