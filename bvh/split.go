package bvh

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jonit-dev/vibe-coder-3d-sub004/geom"
	"github.com/jonit-dev/vibe-coder-3d-sub004/types"
)

const (
	// The SAH strategy will not attempt to calculate split candidates
	// if the centroid bounds along an axis are less than this threshold.
	minSideLength float32 = 1e-6

	// Number of buckets evaluated per axis by the SAH strategy.
	sahBuckets = 16
)

var (
	// A split strategy that uses the surface area heuristic (SAH).
	SurfaceAreaHeuristic SplitStrategy = surfaceAreaHeuristic{}

	// A split strategy that halves the item list along the longest centroid axis.
	Median SplitStrategy = median{}

	// A split strategy that splits at the centroid mean along the axis with
	// the largest centroid variance.
	CentroidAverage SplitStrategy = centroidAverage{}
)

// A SplitStrategy partitions a node's items into two children.
type SplitStrategy interface {
	// Reorder order so that the items assigned to the left child come first
	// and return the number of left items. Returning false signals that no
	// useful split could be found.
	Partition(items []Item, order []uint32) (mid int, ok bool)

	// The strategy name as used in configuration files.
	Name() string
}

// Look up a split strategy by name. Names are case-insensitive.
func ParseSplitStrategy(name string) (SplitStrategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "sah", "surface-area-heuristic":
		return SurfaceAreaHeuristic, nil
	case "median":
		return Median, nil
	case "centroid-average", "centroidaverage", "average":
		return CentroidAverage, nil
	}
	return nil, fmt.Errorf("bvh: unknown split strategy %q", name)
}

func centroidBounds(items []Item, order []uint32) geom.AABB {
	box := geom.EmptyAABB()
	for _, id := range order {
		box = box.Include(items[id].Center)
	}
	return box
}

// Sort order by centroid along axis. Ties are broken by item id so that
// builds are deterministic.
func sortByAxis(items []Item, order []uint32, axis int) {
	sort.Slice(order, func(i, j int) bool {
		ci := items[order[i]].Center[axis]
		cj := items[order[j]].Center[axis]
		if ci != cj {
			return ci < cj
		}
		return order[i] < order[j]
	})
}

// Split order in half along the longest centroid axis. It always succeeds
// for two or more items and is used when a strategy cannot find a split.
func splitHalf(items []Item, order []uint32) int {
	axis := centroidBounds(items, order).LongestAxis()
	sortByAxis(items, order, axis)
	return len(order) / 2
}

// Move items matching pred to the front of order and return their count.
func partitionInPlace(order []uint32, pred func(id uint32) bool) int {
	mid := 0
	for i, id := range order {
		if pred(id) {
			order[i], order[mid] = order[mid], order[i]
			mid++
		}
	}
	return mid
}

type median struct{}

func (median) Name() string { return "median" }

func (median) Partition(items []Item, order []uint32) (int, bool) {
	if len(order) < 2 {
		return 0, false
	}
	return splitHalf(items, order), true
}

type centroidAverage struct{}

func (centroidAverage) Name() string { return "centroid-average" }

func (centroidAverage) Partition(items []Item, order []uint32) (int, bool) {
	if len(order) < 2 {
		return 0, false
	}

	var mean types.Vec3
	for _, id := range order {
		mean = mean.Add(items[id].Center)
	}
	mean = mean.Mul(1.0 / float32(len(order)))

	var variance types.Vec3
	for _, id := range order {
		d := items[id].Center.Sub(mean)
		variance = variance.Add(d.MulVec(d))
	}

	axis := variance.MaxAxis()
	splitPoint := mean[axis]
	mid := partitionInPlace(order, func(id uint32) bool {
		return items[id].Center[axis] < splitPoint
	})
	if mid == 0 || mid == len(order) {
		return 0, false
	}
	return mid, true
}

// A split strategy that scores bucketed split candidates using the surface
// area heuristic.
type surfaceAreaHeuristic struct{}

func (surfaceAreaHeuristic) Name() string { return "sah" }

type sahBucket struct {
	count int
	box   geom.AABB
}

// Partition evaluates sahBuckets-1 split planes along each axis and selects
// the one with the lowest score:
//
// left count * left BBOX area + right count * right BBOX area.
//
// Splits that generate empty partitions are never selected.
func (h surfaceAreaHeuristic) Partition(items []Item, order []uint32) (int, bool) {
	if len(order) < 2 {
		return 0, false
	}

	cbox := centroidBounds(items, order)
	side := cbox.Size()

	bestAxis := -1
	bestBucket := 0
	var bestScore float32

	var buckets [sahBuckets]sahBucket
	var rightScore [sahBuckets]float32
	var rightCount [sahBuckets]int
	for axis := 0; axis < 3; axis++ {
		// Skip axis if the centroid spread is too small
		if side[axis] < minSideLength {
			continue
		}

		for i := range buckets {
			buckets[i] = sahBucket{box: geom.EmptyAABB()}
		}
		for _, id := range order {
			b := bucketIndex(items[id].Center[axis], cbox.Min[axis], side[axis])
			buckets[b].count++
			buckets[b].box = buckets[b].box.Union(items[id].Box)
		}

		// Sweep from the right to accumulate the scores of the right partitions
		acc := geom.EmptyAABB()
		count := 0
		for i := sahBuckets - 1; i > 0; i-- {
			acc = acc.Union(buckets[i].box)
			count += buckets[i].count
			rightCount[i] = count
			rightScore[i] = float32(count) * halfArea(acc)
		}

		// Sweep from the left and combine
		acc = geom.EmptyAABB()
		count = 0
		for i := 0; i < sahBuckets-1; i++ {
			acc = acc.Union(buckets[i].box)
			count += buckets[i].count
			if count == 0 || rightCount[i+1] == 0 {
				continue
			}

			score := float32(count)*halfArea(acc) + rightScore[i+1]
			if bestAxis == -1 || score < bestScore {
				bestAxis, bestBucket, bestScore = axis, i, score
			}
		}
	}

	if bestAxis == -1 {
		return 0, false
	}

	mid := partitionInPlace(order, func(id uint32) bool {
		return bucketIndex(items[id].Center[bestAxis], cbox.Min[bestAxis], side[bestAxis]) <= bestBucket
	})
	return mid, mid > 0 && mid < len(order)
}

func bucketIndex(c, min, side float32) int {
	b := int((c - min) / side * sahBuckets)
	if b < 0 {
		return 0
	}
	if b >= sahBuckets {
		return sahBuckets - 1
	}
	return b
}

func halfArea(box geom.AABB) float32 {
	s := box.Size()
	return s[0]*s[1] + s[1]*s[2] + s[0]*s[2]
}
