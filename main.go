package main

import (
	"fmt"
	"os"
	"time"

	"github.com/jonit-dev/vibe-coder-3d-sub004/cmd"
	"github.com/urfave/cli"
)

func main() {
	cli.VersionFlag = cli.BoolFlag{
		Name:  "version",
		Usage: "print only the version",
	}

	app := cli.NewApp()
	app.Name = "bvhtool"
	app.Usage = "build and query spatial indices for scene geometry"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable verbose logging",
		},
		cli.BoolFlag{
			Name:  "vv",
			Usage: "enable even more verbose logging",
		},
		cli.StringFlag{
			Name:  "log-level",
			Usage: "log level: debug, info, notice, warning or error",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:  "stats",
			Usage: "build the object and scene indices and display their statistics",
			Description: `
Parse a scene definition from a wavefront obj file, build an object index for
every unique mesh and a scene index over all mesh instances and display build
statistics.`,
			ArgsUsage: "scene_file.obj",
			Flags:     cmd.OptionFlags,
			Action:    cmd.ShowStats,
		},
		{
			Name:  "cull",
			Usage: "list the scene entities inside the camera frustum",
			Description: `
Cull the scene against a camera frustum. The camera declared in the scene file
is used unless overridden by flags.`,
			ArgsUsage: "scene_file.obj",
			Flags: concatFlags(cmd.OptionFlags, cmd.CameraFlags, []cli.Flag{
				cli.BoolFlag{
					Name:  "verify",
					Usage: "check the result against a linear scan of all entities",
				},
			}),
			Action: cmd.Cull,
		},
		{
			Name:      "raycast",
			Usage:     "cast a ray through the scene",
			ArgsUsage: "scene_file.obj",
			Flags: concatFlags(cmd.OptionFlags, []cli.Flag{
				cli.StringFlag{
					Name:  "origin, o",
					Value: "0,0,0",
					Usage: "ray origin as x,y,z",
				},
				cli.StringFlag{
					Name:  "dir, d",
					Value: "0,0,1",
					Usage: "ray direction as x,y,z",
				},
				cli.Float64Flag{
					Name:  "max-distance",
					Usage: "maximum hit distance (default 1000)",
				},
				cli.BoolFlag{
					Name:  "all",
					Usage: "report every hit instead of the nearest one",
				},
				cli.BoolFlag{
					Name:  "json",
					Usage: "print the script-facing JSON response",
				},
			}),
			Action: cmd.Raycast,
		},
		{
			Name:  "bench",
			Usage: "simulate a frame loop of transform updates, culling and raycasts",
			Description: `
Animate a share of the scene entities every frame, update the scene index
within the configured budget, cull against the camera frustum and cast random
rays. Index metrics can be scraped by prometheus while the benchmark runs.`,
			ArgsUsage: "scene_file.obj",
			Flags: concatFlags(cmd.OptionFlags, cmd.CameraFlags, []cli.Flag{
				cli.IntFlag{
					Name:  "frames",
					Value: 300,
					Usage: "number of frames to simulate",
				},
				cli.IntFlag{
					Name:  "rays",
					Value: 100,
					Usage: "random rays per frame",
				},
				cli.Float64Flag{
					Name:  "move",
					Value: 0.1,
					Usage: "share of entities moved every frame",
				},
				cli.Int64Flag{
					Name:  "seed",
					Value: 1,
					Usage: "random seed",
				},
				cli.BoolFlag{
					Name:  "report",
					Usage: "periodically log index statistics",
				},
				cli.DurationFlag{
					Name:  "report-interval",
					Value: time.Second,
					Usage: "interval between statistics reports",
				},
				cli.StringFlag{
					Name:  "metrics-addr",
					Usage: "serve prometheus metrics on this address while running",
				},
			}),
			Action: cmd.Bench,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func concatFlags(groups ...[]cli.Flag) []cli.Flag {
	var out []cli.Flag
	for _, group := range groups {
		out = append(out, group...)
	}
	return out
}
