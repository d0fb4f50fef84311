package pickplace

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/rdk/referenceframe"
	"go.viam.com/rdk/spatialmath"
)

// Physics constants for the kinematic stub. Frame rate matches the original
// 60 Hz physics step, so per-frame displacements convert to m/s velocities.
const (
	simFPS          = 60.0
	simGravityStep  = 0.004 // m fallen per frame while airborne
	simGraspRadius  = 0.04  // gripper must be this close to attach
	simHoldOffset   = 0.02  // held object hangs this far below the gripper
	simCloseAttach  = 0.5   // gripper fraction closed before attach
	simObjectRadius = 0.025
)

// SimObject is one rigid body in the stub world.
type SimObject struct {
	Position r3.Vector
	Velocity r3.Vector
}

// SimWorld is a deterministic kinematic stand-in for the host simulator. It
// implements every collaborator contract the engine consumes, with just
// enough physics for the detectors to have something honest to measure: a
// held object tracks the gripper, a released one falls and settles, a dropped
// one stops following. Tests and the demo CLI drive it one frame at a time.
type SimWorld struct {
	objects map[string]*SimObject

	gripperPos    r3.Vector
	gripperTarget float64
	heldObject    string

	surfaceZ float64 // resting height for released objects

	// Test knobs.
	FailIK      bool // every solve reports failure
	DropHeld    bool // detach the held object next frame
	Ungraspable bool // posture check reports false
}

// NewSimWorld creates a world with the gripper parked at home.
func NewSimWorld(home r3.Vector, surfaceZ float64) *SimWorld {
	return &SimWorld{
		objects:    make(map[string]*SimObject),
		gripperPos: home,
		surfaceZ:   surfaceZ,
	}
}

// AddObject places a rigid body in the world.
func (w *SimWorld) AddObject(id string, pos r3.Vector) {
	w.objects[id] = &SimObject{Position: pos}
}

// Object returns a body for inspection, or nil.
func (w *SimWorld) Object(id string) *SimObject {
	return w.objects[id]
}

// StepFrame advances the stub physics one frame: attachment, falling,
// settling.
func (w *SimWorld) StepFrame() {
	if w.DropHeld && w.heldObject != "" {
		w.heldObject = ""
	}

	// Attach when the gripper is closed enough and near an object.
	if w.heldObject == "" && w.gripperTarget >= simCloseAttach {
		for id, obj := range w.objects {
			if obj.Position.Sub(w.gripperPos).Norm() <= simGraspRadius {
				w.heldObject = id
				break
			}
		}
	}

	// Release when the gripper opens.
	if w.heldObject != "" && w.gripperTarget < simCloseAttach {
		w.heldObject = ""
	}

	for id, obj := range w.objects {
		prev := obj.Position
		switch {
		case id == w.heldObject:
			obj.Position = r3.Vector{
				X: w.gripperPos.X,
				Y: w.gripperPos.Y,
				Z: w.gripperPos.Z - simHoldOffset,
			}
		case obj.Position.Z > w.surfaceZ+simObjectRadius:
			obj.Position.Z -= simGravityStep
			if obj.Position.Z < w.surfaceZ+simObjectRadius {
				obj.Position.Z = w.surfaceZ + simObjectRadius
			}
		}
		obj.Velocity = obj.Position.Sub(prev).Mul(simFPS)
	}
}

// --- PoseQuery ---

func (w *SimWorld) Pose(objectID string) (spatialmath.Pose, error) {
	if objectID == "gripper" {
		return spatialmath.NewPoseFromPoint(w.gripperPos), nil
	}
	obj, ok := w.objects[objectID]
	if !ok {
		return nil, errors.Errorf("no object %q in sim world", objectID)
	}
	return spatialmath.NewPoseFromPoint(obj.Position), nil
}

func (w *SimWorld) LinearVelocity(objectID string) (r3.Vector, error) {
	obj, ok := w.objects[objectID]
	if !ok {
		return r3.Vector{}, errors.Errorf("no object %q in sim world", objectID)
	}
	return obj.Velocity, nil
}

// --- Solver (plus HomeOverride) ---

// Solve accepts any target above the floor and tracks the gripper to it; the
// stub stands in for a real IK chain, so the joint state is a single synthetic
// input.
func (w *SimWorld) Solve(target r3.Vector, current []referenceframe.Input) ([]referenceframe.Input, bool) {
	if w.FailIK || target.Z < 0 {
		return nil, false
	}
	w.gripperPos = target
	return []referenceframe.Input{referenceframe.Input(target.Norm())}, true
}

// OverridePose implements the emergency return: the gripper jumps straight to
// the pose, no interpolation.
func (w *SimWorld) OverridePose(target r3.Vector) {
	w.gripperPos = target
}

// --- GripperActuator ---

func (w *SimWorld) SetTarget(position float64) {
	w.gripperTarget = position
}

// --- PostureCheck ---

func (w *SimWorld) Graspable(orientation spatialmath.Orientation) bool {
	return !w.Ungraspable
}

// GripperPosition exposes the tracked end-effector position.
func (w *SimWorld) GripperPosition() r3.Vector {
	return w.gripperPos
}

// Held reports which object the gripper currently holds, if any.
func (w *SimWorld) Held() string {
	return w.heldObject
}

// MoveObject teleports a body, for scripting scene changes mid-test.
func (w *SimWorld) MoveObject(id string, pos r3.Vector) {
	if obj, ok := w.objects[id]; ok {
		obj.Position = pos
		obj.Velocity = r3.Vector{}
	}
}
