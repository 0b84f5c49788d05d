package cmd

import (
	"fmt"
	"os"

	"github.com/jonit-dev/vibe-coder-3d-sub004/query"
	"github.com/segmentio/encoding/json"
	"github.com/urfave/cli"
)

// Cast a ray through the scene and list the hits.
func Raycast(ctx *cli.Context) error {
	setupLogging(ctx)

	origin, err := parseVec3Flag("origin", ctx.String("origin"))
	if err != nil {
		return err
	}
	dir, err := parseVec3Flag("dir", ctx.String("dir"))
	if err != nil {
		return err
	}

	is, err := loadScene(ctx)
	if err != nil {
		return err
	}

	req := query.Request{
		Op:     query.OpRaycastFirst,
		Origin: query.Vector{origin[0], origin[1], origin[2]},
		Dir:    query.Vector{dir[0], dir[1], dir[2]},
	}
	if ctx.IsSet("max-distance") {
		maxDist := float32(ctx.Float64("max-distance"))
		req.MaxDistance = &maxDist
	}
	if ctx.Bool("all") {
		req.Op = query.OpRaycastAll
	}

	adapter := query.NewAdapter(is.mgr)

	// Scripts talk to the adapter through encoded requests; --json shows the
	// exact script-facing payload.
	if ctx.Bool("json") {
		payload, err := json.Marshal(req)
		if err != nil {
			return err
		}
		res, err := adapter.Handle(payload)
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, string(res))
		return nil
	}

	maxDist := query.DefaultMaxDistance
	if req.MaxDistance != nil {
		maxDist = *req.MaxDistance
	}

	var hits []query.Hit
	if req.Op == query.OpRaycastAll {
		hits = adapter.RaycastAll(req.Origin, req.Dir, maxDist)
	} else if hit, ok := adapter.RaycastFirst(req.Origin, req.Dir, maxDist); ok {
		hits = append(hits, hit)
	}

	logger.Noticef("raycast hits\n%s", hitsTable(hits, is.meshNames))
	return nil
}
