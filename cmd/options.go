package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jonit-dev/vibe-coder-3d-sub004/manager"
	"github.com/jonit-dev/vibe-coder-3d-sub004/types"
	"github.com/urfave/cli"
)

// Flags that override the index options. Flags that are not set keep the
// value loaded from the config file or the default.
var OptionFlags = []cli.Flag{
	cli.StringFlag{
		Name:  "config, c",
		Usage: "load index options from a YAML file",
	},
	cli.IntFlag{
		Name:  "leaf-max-tris",
		Usage: "maximum number of triangles per object index leaf",
	},
	cli.IntFlag{
		Name:  "leaf-max-refs",
		Usage: "maximum number of entities per scene index leaf",
	},
	cli.StringFlag{
		Name:  "split",
		Usage: "BVH split strategy: sah, median or centroid-average",
	},
	cli.BoolFlag{
		Name:  "no-culling",
		Usage: "disable frustum culling",
	},
	cli.BoolFlag{
		Name:  "no-raycasts",
		Usage: "disable scene index accelerated raycasts",
	},
	cli.BoolFlag{
		Name:  "no-incremental",
		Usage: "rebuild the scene index instead of refitting it on transform changes",
	},
	cli.Float64Flag{
		Name:  "budget-ms",
		Usage: "per-frame scene rebuild budget in milliseconds; 0 disables the budget",
	},
	cli.Float64Flag{
		Name:  "dynamic-padding",
		Usage: "padding added around dynamic entities",
	},
}

// Assemble index options from the config file and command flags.
func indexOptions(ctx *cli.Context) (manager.Options, error) {
	opts := manager.DefaultOptions()

	if path := ctx.String("config"); path != "" {
		var err error
		if opts, err = manager.LoadOptions(path); err != nil {
			return opts, err
		}
		logger.Infof(`loaded index options from "%s"`, path)
	}

	if ctx.IsSet("leaf-max-tris") {
		opts.LeafMaxTris = ctx.Int("leaf-max-tris")
	}
	if ctx.IsSet("leaf-max-refs") {
		opts.LeafMaxRefs = ctx.Int("leaf-max-refs")
	}
	if ctx.IsSet("split") {
		opts.SplitStrategy = ctx.String("split")
	}
	if ctx.Bool("no-culling") {
		opts.EnableCulling = false
	}
	if ctx.Bool("no-raycasts") {
		opts.EnableRaycasts = false
	}
	if ctx.Bool("no-incremental") {
		opts.EnableIncrementalUpdates = false
	}
	if ctx.IsSet("budget-ms") {
		opts.RefitBatchBudgetMs = ctx.Float64("budget-ms")
	}
	if ctx.IsSet("dynamic-padding") {
		opts.DynamicPadding = float32(ctx.Float64("dynamic-padding"))
	}

	return opts, opts.Validate()
}

// Parse a vector flag in "x,y,z" format.
func parseVec3Flag(name, value string) (types.Vec3, error) {
	var v types.Vec3

	tokens := strings.Split(value, ",")
	if len(tokens) != 3 {
		return v, fmt.Errorf(`invalid value for "%s"; expected x,y,z; got "%s"`, name, value)
	}
	for index, token := range tokens {
		coord, err := strconv.ParseFloat(strings.TrimSpace(token), 32)
		if err != nil {
			return v, fmt.Errorf(`invalid value for "%s": %v`, name, err)
		}
		v[index] = float32(coord)
	}
	return v, nil
}
