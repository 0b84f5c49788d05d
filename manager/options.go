package manager

import (
	"fmt"
	"os"
	"time"

	"github.com/jonit-dev/vibe-coder-3d-sub004/bvh"
	"github.com/jonit-dev/vibe-coder-3d-sub004/meshindex"
	"github.com/jonit-dev/vibe-coder-3d-sub004/sceneindex"
	"gopkg.in/yaml.v3"
)

type Options struct {
	// Maximum number of triangles per object index leaf.
	LeafMaxTris int `yaml:"leaf_max_tris"`

	// Maximum number of entities per scene index leaf.
	LeafMaxRefs int `yaml:"leaf_max_refs"`

	// Split strategy name: sah, median or centroid-average.
	SplitStrategy string `yaml:"split_strategy"`

	// When disabled, culling returns every registered entity.
	EnableCulling bool `yaml:"enable_culling"`

	// When disabled, raycasts test every registered entity without using
	// the scene index.
	EnableRaycasts bool `yaml:"enable_raycasts"`

	// When disabled, transform-only changes trigger a full rebuild instead
	// of a refit.
	EnableIncrementalUpdates bool `yaml:"enable_incremental_updates"`

	// Per-frame time budget for scene rebuilds. Zero disables the budget.
	RefitBatchBudgetMs float64 `yaml:"refit_batch_budget_ms"`

	// Padding added on every side of the box of dynamic entities.
	DynamicPadding float32 `yaml:"dynamic_padding"`
}

// Get the default options.
func DefaultOptions() Options {
	return Options{
		LeafMaxTris:              meshindex.DefaultLeafMaxTris,
		LeafMaxRefs:              sceneindex.DefaultLeafMaxRefs,
		SplitStrategy:            bvh.SurfaceAreaHeuristic.Name(),
		EnableCulling:            true,
		EnableRaycasts:           true,
		EnableIncrementalUpdates: true,
		RefitBatchBudgetMs:       4,
		DynamicPadding:           0.1,
	}
}

// Validate the options.
func (o Options) Validate() error {
	if o.LeafMaxTris < 1 {
		return fmt.Errorf("%w: leaf_max_tris must be at least 1; got %d", ErrInvalidOptions, o.LeafMaxTris)
	}
	if o.LeafMaxRefs < 1 {
		return fmt.Errorf("%w: leaf_max_refs must be at least 1; got %d", ErrInvalidOptions, o.LeafMaxRefs)
	}
	if _, err := bvh.ParseSplitStrategy(o.SplitStrategy); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}
	if o.RefitBatchBudgetMs < 0 {
		return fmt.Errorf("%w: refit_batch_budget_ms must not be negative; got %f", ErrInvalidOptions, o.RefitBatchBudgetMs)
	}
	if o.DynamicPadding < 0 {
		return fmt.Errorf("%w: dynamic_padding must not be negative; got %f", ErrInvalidOptions, o.DynamicPadding)
	}
	return nil
}

// Get the split strategy. Options must have been validated.
func (o Options) Split() bvh.SplitStrategy {
	split, err := bvh.ParseSplitStrategy(o.SplitStrategy)
	if err != nil {
		return bvh.SurfaceAreaHeuristic
	}
	return split
}

// Get the object index build options.
func (o Options) MeshOptions() meshindex.Options {
	return meshindex.Options{
		LeafMaxTris: o.LeafMaxTris,
		Split:       o.Split(),
	}
}

// Get the scene index options.
func (o Options) SceneOptions() sceneindex.Options {
	return sceneindex.Options{
		LeafMaxRefs: o.LeafMaxRefs,
		Split:       o.Split(),
	}
}

// Get the rebuild budget as a duration. Zero means no budget.
func (o Options) Budget() time.Duration {
	return time.Duration(o.RefitBatchBudgetMs * float64(time.Millisecond))
}

// Load options from a YAML file. Keys missing from the file keep their
// default values.
func LoadOptions(path string) (Options, error) {
	opts := DefaultOptions()

	data, err := os.ReadFile(path)
	if err != nil {
		return opts, err
	}
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return opts, fmt.Errorf("%w: %s: %v", ErrInvalidOptions, path, err)
	}
	return opts, opts.Validate()
}
