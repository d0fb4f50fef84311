package pickplace

import (
	"context"

	"github.com/pkg/errors"
	"go.viam.com/rdk/logging"
)

// FrameStepper advances the host world one physics frame. The engine never
// steps the world itself; the runner interleaves world frames with engine
// frames exactly like the original driver loop.
type FrameStepper interface {
	StepFrame()
}

// SceneResetter restores the scene after the region-moved watchdog fires.
// Optional; without one the runner stops on a scene reset request.
type SceneResetter interface {
	ResetScene()
}

// RunnerStats summarizes a run of episodes.
type RunnerStats struct {
	Episodes    int
	Successes   int
	Failures    int
	SceneResets int
	TotalFrames int
}

// Runner drives the state machine through repeated episodes until the
// success goal is met, the frame budget is spent, or the context ends.
type Runner struct {
	machine *StateMachine
	world   FrameStepper
	resets  SceneResetter
	logger  logging.Logger

	// MaxEpisodeFrames bounds a single episode; an episode exceeding it is
	// abandoned and counted as a failure. Defaults to 3600 (one minute at
	// 60 Hz), matching the original driver's per-attempt timeout.
	MaxEpisodeFrames int

	// MaxEpisodes bounds the total number of attempts. Zero means unlimited.
	MaxEpisodes int
}

func NewRunner(machine *StateMachine, world FrameStepper, resets SceneResetter, logger logging.Logger) *Runner {
	return &Runner{
		machine:          machine,
		world:            world,
		resets:           resets,
		logger:           logger,
		MaxEpisodeFrames: 3600,
	}
}

// Run attempts episodes against the given targets round-robin until
// successGoal placements succeed. Cancellation is frame-granular.
func (r *Runner) Run(ctx context.Context, targets []string, successGoal int) (RunnerStats, error) {
	var stats RunnerStats
	if len(targets) == 0 {
		return stats, errors.New("no targets to run")
	}

	for stats.Successes < successGoal {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if r.MaxEpisodes > 0 && stats.Episodes >= r.MaxEpisodes {
			return stats, errors.Errorf("success goal not reached after %d episodes", stats.Episodes)
		}

		target := targets[stats.Episodes%len(targets)]
		stats.Episodes++
		r.logger.Infof("run %d: attempting %q (%d/%d successes)",
			stats.Episodes, target, stats.Successes, successGoal)

		if err := r.machine.Start(target); err != nil {
			return stats, errors.Wrapf(err, "episode %d", stats.Episodes)
		}

		frames, err := r.runEpisode(ctx)
		stats.TotalFrames += frames
		if err != nil {
			return stats, err
		}

		outcome, reason := r.machine.LastOutcome()
		if outcome == OutcomeSuccess {
			stats.Successes++
		} else {
			stats.Failures++
			r.logger.Infof("episode failed: %s", reason)
		}

		if r.machine.ConsumeSceneResetFlag() {
			stats.SceneResets++
			if r.resets == nil {
				r.logger.Warnf("scene reset requested but no resetter wired, stopping")
				return stats, errors.New("scene reset required")
			}
			r.logger.Infof("region displaced, resetting scene")
			r.resets.ResetScene()
		}
	}

	return stats, nil
}

// runEpisode steps world and machine in lockstep until a terminal phase or
// the per-episode frame budget.
func (r *Runner) runEpisode(ctx context.Context) (int, error) {
	frames := 0
	for !r.machine.CurrentPhase().Terminal() {
		if err := ctx.Err(); err != nil {
			return frames, err
		}
		if frames >= r.MaxEpisodeFrames {
			r.logger.Warnf("episode exceeded %d frames, abandoning", r.MaxEpisodeFrames)
			return frames, nil
		}

		if r.world != nil {
			r.world.StepFrame()
		}
		if _, err := r.machine.Step(); err != nil {
			return frames, err
		}
		frames++
	}
	return frames, nil
}
