// Demo driver: runs pick-and-place episodes against the built-in simulated
// world and prints per-episode results.
package main

import (
	"context"
	"flag"

	"github.com/golang/geo/r3"
	"go.viam.com/rdk/logging"
	goutils "go.viam.com/utils"

	pickplace "so_pickplace"
)

func main() {
	goutils.ContextualMain(mainWithArgs, logging.NewLogger("pickplace-cli"))
}

func mainWithArgs(ctx context.Context, args []string, logger logging.Logger) error {
	fs := flag.NewFlagSet(args[0], flag.ContinueOnError)
	successGoal := fs.Int("episodes", 3, "number of successful placements to collect")
	debug := fs.Bool("debug", false, "enable debug logging")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}
	if *debug {
		logger.SetLevel(logging.DEBUG)
	}

	cfg := &pickplace.Config{Logger: logger}
	if _, _, err := cfg.Validate(""); err != nil {
		return err
	}

	world := pickplace.NewSimWorld(cfg.HomePosition, 0)
	world.AddObject("orange1", r3.Vector{X: 0.15, Y: 0.08, Z: 0.025})
	world.AddObject("orange2", r3.Vector{X: 0.12, Y: 0.18, Z: 0.025})
	world.AddObject("orange3", r3.Vector{X: 0.18, Y: 0.13, Z: 0.025})

	machine := pickplace.NewStateMachine(
		cfg, world, world, world, world, nil, pickplace.NewPlacementLedger(), logger)

	runner := pickplace.NewRunner(machine, world, nil, logger)
	stats, err := runner.Run(ctx, []string{"orange1", "orange2", "orange3"}, *successGoal)
	if err != nil {
		return err
	}

	logger.Infof("done: %d episodes, %d successes, %d failures, %d frames",
		stats.Episodes, stats.Successes, stats.Failures, stats.TotalFrames)
	for i, rec := range machine.Ledger().Records() {
		logger.Infof("  placement %d: %s at (%.3f, %.3f) success=%t",
			i+1, rec.ObjectID, rec.Position.X, rec.Position.Y, rec.Success)
	}
	return nil
}
