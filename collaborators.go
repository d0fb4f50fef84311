package pickplace

import (
	"github.com/golang/geo/r3"
	"go.viam.com/rdk/referenceframe"
	"go.viam.com/rdk/spatialmath"
)

// PoseQuery resolves object poses and velocities from the host scene. The
// engine treats it as a cheap synchronous lookup, called several times per
// frame.
type PoseQuery interface {
	Pose(objectID string) (spatialmath.Pose, error)
	LinearVelocity(objectID string) (r3.Vector, error)
}

// Solver resolves an end-effector position target into a joint state. A
// failed solve is not retried within the frame; it ends the episode with
// ReasonIKFailure.
type Solver interface {
	Solve(target r3.Vector, current []referenceframe.Input) ([]referenceframe.Input, bool)
}

// HomeOverride is an optional capability of a Solver: drive the arm straight
// to a pose bypassing normal interpolation. The failure path uses it for the
// emergency return when available.
type HomeOverride interface {
	OverridePose(target r3.Vector)
}

// GripperActuator receives gripper intent. Position 0 is fully open; the
// configured closed position is the other extremum. The engine forwards a
// target whenever it changes and never reads back.
type GripperActuator interface {
	SetTarget(position float64)
}

// PostureCheck gates the descend phase: the object must present a graspable
// orientation before the gripper is committed.
type PostureCheck interface {
	Graspable(orientation spatialmath.Orientation) bool
}

// EpisodeSink receives episode lifecycle notifications for external data
// recording. The engine owns no storage itself. May be nil.
type EpisodeSink interface {
	EpisodeStarted(objectID string)
	EpisodeEnded(objectID string, success bool)
}
