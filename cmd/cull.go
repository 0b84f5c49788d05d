package cmd

import (
	"bytes"
	"fmt"

	"github.com/jonit-dev/vibe-coder-3d-sub004/asset"
	"github.com/jonit-dev/vibe-coder-3d-sub004/geom"
	"github.com/jonit-dev/vibe-coder-3d-sub004/visibility"
	"github.com/urfave/cli"
)

// Flags that select the camera used for culling. Unset flags fall back to
// the camera declared by the scene file.
var CameraFlags = []cli.Flag{
	cli.StringFlag{
		Name:  "eye",
		Usage: "camera position as x,y,z",
	},
	cli.StringFlag{
		Name:  "look",
		Usage: "camera target as x,y,z",
	},
	cli.Float64Flag{
		Name:  "fov",
		Usage: "vertical field of view in degrees",
	},
	cli.Float64Flag{
		Name:  "aspect",
		Value: 16.0 / 9.0,
		Usage: "viewport aspect ratio",
	},
	cli.Float64Flag{
		Name:  "near",
		Value: 0.1,
		Usage: "near clip distance",
	},
	cli.Float64Flag{
		Name:  "far",
		Value: 1000,
		Usage: "far clip distance",
	},
}

// Assemble the culling camera frustum from the scene camera and flags.
func cameraFrustum(ctx *cli.Context, sc *asset.Scene) (geom.Frustum, error) {
	cam := sc.Camera

	var err error
	if ctx.IsSet("eye") {
		if cam.Eye, err = parseVec3Flag("eye", ctx.String("eye")); err != nil {
			return geom.Frustum{}, err
		}
	}
	if ctx.IsSet("look") {
		if cam.Look, err = parseVec3Flag("look", ctx.String("look")); err != nil {
			return geom.Frustum{}, err
		}
	}
	if ctx.IsSet("fov") {
		cam.FOV = float32(ctx.Float64("fov"))
	}
	if cam.Eye == cam.Look {
		return geom.Frustum{}, fmt.Errorf("camera eye and look-at point must differ; got %v", cam.Eye)
	}

	vp := cam.ViewProjection(float32(ctx.Float64("aspect")), float32(ctx.Float64("near")), float32(ctx.Float64("far")))
	f := geom.FrustumFromMatrix(vp)
	return f, f.Validate()
}

// Cull the scene against the camera frustum and list the visible entities.
func Cull(ctx *cli.Context) error {
	setupLogging(ctx)

	is, err := loadScene(ctx)
	if err != nil {
		return err
	}

	f, err := cameraFrustum(ctx, is.scene)
	if err != nil {
		return err
	}

	drawList := is.mgr.Entities()
	visible := visibility.NewIndexCuller(is.mgr).VisibleIndices(f, drawList)

	if ctx.Bool("verify") {
		if err = verifyCull(is, f, drawList, visible); err != nil {
			return err
		}
		logger.Notice("verified culling result against a linear scan")
	}

	var buf bytes.Buffer
	table := newTable(&buf, "Entity", "Mesh", "World bounds")
	for _, index := range visible {
		id := drawList[index]
		box, _ := is.mgr.WorldBounds(id)
		table.Append([]string{fmt.Sprint(id), is.meshNames[id], box.String()})
	}
	table.SetFooter([]string{"", "VISIBLE", fmt.Sprintf("%d / %d", len(visible), len(drawList))})
	table.Render()

	logger.Noticef("visible entities\n%s", buf.String())
	logger.Noticef("index statistics\n%s", snapshotTable(is.mgr.Metrics(), is.mgr.Options()))
	return nil
}

// Ensure that no entity whose world box intersects f was culled.
func verifyCull(is *indexedScene, f geom.Frustum, drawList []uint64, visible []int) error {
	reported := make(map[int]struct{}, len(visible))
	for _, index := range visible {
		reported[index] = struct{}{}
	}

	for index, id := range drawList {
		box, _ := is.mgr.WorldBounds(id)
		if !f.IntersectsAABB(box) {
			continue
		}
		if _, found := reported[index]; !found {
			return fmt.Errorf("entity %d intersects the frustum but was culled", id)
		}
	}
	return nil
}
