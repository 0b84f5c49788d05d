package cmd

import (
	"github.com/urfave/cli"
)

// Build the indices for a scene and display their statistics.
func ShowStats(ctx *cli.Context) error {
	setupLogging(ctx)

	is, err := loadScene(ctx)
	if err != nil {
		return err
	}

	if err = is.mgr.Verify(); err != nil {
		return err
	}

	logger.Noticef("object index statistics\n%s", meshStatsTable(is))
	logger.Noticef("index statistics\n%s", snapshotTable(is.mgr.Metrics(), is.mgr.Options()))
	return nil
}
