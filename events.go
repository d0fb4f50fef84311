package pickplace

import "github.com/golang/geo/r3"

// StepEvent is the immutable per-frame record emitted by Step. It replaces
// ad hoc console output: the driver decides what to log or persist.
type StepEvent struct {
	Frame        int
	Phase        Phase
	PhaseChanged bool

	// ArmTarget is the end-effector target forwarded to the solver this
	// frame, if any.
	ArmTarget    r3.Vector
	HasArmTarget bool

	// GripperTarget is the commanded gripper position, 0 = open.
	GripperTarget float64

	// Terminal result, meaningful once Phase.Terminal() is true.
	Outcome Outcome
	Reason  Reason
}
