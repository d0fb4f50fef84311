package pickplace

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/rdk/logging"
	"go.viam.com/rdk/referenceframe"
)

// Vertical offset above the object center at which the descend phase hands
// off to the grasp close.
const graspApproachOffset = 0.01

// StateMachine drives one pick-and-place episode at a time: approach the
// target, descend, close the gripper, lift, retreat, transport to a searched
// destination, release, and return home. It owns all per-episode state and is
// advanced exactly one frame per Step call by the host's physics loop.
// Single-threaded by construction; nothing here blocks.
type StateMachine struct {
	cfg    *Config
	logger logging.Logger

	poses   PoseQuery
	solver  Solver
	gripper GripperActuator
	posture PostureCheck
	sink    EpisodeSink

	graspDetector     *graspDetector
	placementDetector *placementDetector
	search            *placementSearch
	ledger            *PlacementLedger

	// Episode state, reset on every Start.
	started     bool
	targetID    string
	phase       Phase
	frame       int
	phaseFrames int
	motion      *motionCommand

	eePos         r3.Vector // commanded end-effector position
	joints        []referenceframe.Input
	gripperTarget float64

	originPos   r3.Vector // object position at episode start
	regionStart r3.Vector // region center at episode start

	destination     r3.Vector // cached placement search result
	haveDestination bool

	pendingOutcome Outcome
	outcome        Outcome
	reason         Reason

	sceneResetNeeded bool
}

// NewStateMachine wires the engine to its collaborators. The ledger is shared
// across episodes and may be shared across machines; everything else is owned
// here. sink may be nil.
func NewStateMachine(
	cfg *Config,
	poses PoseQuery,
	solver Solver,
	gripper GripperActuator,
	posture PostureCheck,
	sink EpisodeSink,
	ledger *PlacementLedger,
	logger logging.Logger,
) *StateMachine {
	if ledger == nil {
		ledger = NewPlacementLedger()
	}
	return &StateMachine{
		cfg:               cfg,
		logger:            logger,
		poses:             poses,
		solver:            solver,
		gripper:           gripper,
		posture:           posture,
		sink:              sink,
		graspDetector:     newGraspDetector(logger),
		placementDetector: newPlacementDetector(cfg, logger),
		search:            newPlacementSearch(cfg, ledger, logger),
		ledger:            ledger,
		phase:             PhaseIdle,
	}
}

// Start begins a new episode for the given target. Any in-flight episode is
// abandoned: motion commands and detector histories are discarded. Fails only
// when the pose query cannot resolve the target.
func (sm *StateMachine) Start(targetID string) error {
	pose, err := sm.poses.Pose(targetID)
	if err != nil {
		return errors.Wrapf(ErrTargetNotFound, "%q: %v", targetID, err)
	}

	if sm.started && !sm.phase.Terminal() {
		sm.logger.Warnf("abandoning episode for %q in phase %s", sm.targetID, sm.phase)
	}

	sm.started = true
	sm.targetID = targetID
	sm.phase = PhaseApproach
	sm.frame = 0
	sm.phaseFrames = 0
	sm.motion = nil
	sm.eePos = sm.cfg.HomePosition
	sm.joints = nil
	sm.gripperTarget = 0
	sm.originPos = pose.Point()
	sm.regionStart = sm.currentRegionCenter()
	sm.destination = r3.Vector{}
	sm.haveDestination = false
	sm.pendingOutcome = OutcomeNone
	sm.outcome = OutcomeNone
	sm.reason = ReasonNone

	sm.graspDetector.Reset()
	sm.placementDetector.Stop()
	sm.gripper.SetTarget(0)

	if sm.sink != nil {
		sm.sink.EpisodeStarted(targetID)
	}
	sm.logger.Infof("episode started: target=%q origin=(%.3f, %.3f, %.3f)",
		targetID, sm.originPos.X, sm.originPos.Y, sm.originPos.Z)
	return nil
}

// Step advances exactly one frame. Physical failures become Failed
// transitions, never errors; the only error here is stepping before Start.
func (sm *StateMachine) Step() (StepEvent, error) {
	if !sm.started {
		return StepEvent{}, ErrNotStarted
	}

	if sm.phase.Terminal() {
		return sm.event(sm.phase, false), nil
	}

	sm.frame++
	sm.phaseFrames++
	before := sm.phase

	// The watchdog only guards active work: once an outcome is pending the
	// episode is already on its way home and must be allowed to terminate.
	if sm.pendingOutcome == OutcomeNone && sm.regionDisplaced() {
		sm.sceneResetNeeded = true
		sm.fail(ReasonRegionMoved)
		return sm.event(before, sm.phase != before), nil
	}

	var armTarget r3.Vector
	hasTarget := false

	switch sm.phase {
	case PhaseApproach:
		armTarget, hasTarget = sm.stepApproach()
	case PhasePostureAdjust:
		// Slot kept for forward compatibility; no transition depends on it
		// doing work.
		sm.transition(PhaseDescend)
	case PhaseDescend:
		armTarget, hasTarget = sm.stepDescend()
	case PhaseGrasp:
		sm.stepGrasp()
	case PhaseGraspSettle:
		sm.stepGraspSettle()
	case PhaseLift:
		armTarget, hasTarget = sm.stepLift()
	case PhaseRetreat:
		armTarget, hasTarget = sm.stepRetreat()
	case PhaseTransport:
		armTarget, hasTarget = sm.stepTransport()
	case PhaseRelease:
		sm.stepRelease()
	case PhaseReturnHome:
		armTarget, hasTarget = sm.stepReturnHome()
	}

	if hasTarget && !sm.phase.Terminal() {
		if !sm.solveTo(armTarget) {
			hasTarget = false
		}
	}

	ev := sm.event(before, sm.phase != before)
	ev.ArmTarget = armTarget
	ev.HasArmTarget = hasTarget
	return ev, nil
}

// CurrentPhase is an observer for the driver.
func (sm *StateMachine) CurrentPhase() Phase {
	return sm.phase
}

// LastOutcome reports the terminal result of the most recent episode.
func (sm *StateMachine) LastOutcome() (Outcome, Reason) {
	return sm.outcome, sm.reason
}

// Busy reports whether an episode is in flight.
func (sm *StateMachine) Busy() bool {
	return sm.started && !sm.phase.Terminal() && sm.phase != PhaseIdle
}

// Frame returns the number of frames stepped in the current episode.
func (sm *StateMachine) Frame() int {
	return sm.frame
}

// Ledger exposes the shared placement ledger.
func (sm *StateMachine) Ledger() *PlacementLedger {
	return sm.ledger
}

// ConsumeSceneResetFlag reports whether the target region was displaced
// beyond tolerance mid-episode, clearing the flag. The host must perform a
// full scene reset when this fires; episode-level retry is not enough.
func (sm *StateMachine) ConsumeSceneResetFlag() bool {
	needed := sm.sceneResetNeeded
	sm.sceneResetNeeded = false
	return needed
}

// --- per-phase handlers ---

func (sm *StateMachine) stepApproach() (r3.Vector, bool) {
	if sm.motion == nil {
		objPos, ok := sm.objectPos()
		if !ok {
			return r3.Vector{}, false
		}
		goal := r3.Vector{X: objPos.X, Y: objPos.Y, Z: sm.cfg.ApproachHeight}
		sm.motion = newMotionCommand(sm.eePos, goal, sm.cfg.TravelSpeed)
		sm.logger.Debugf("approach: %d frame move to (%.3f, %.3f, %.3f)",
			sm.motion.duration, goal.X, goal.Y, goal.Z)
	}

	target := sm.motion.Advance()
	if sm.motion.Complete() {
		sm.motion = nil
		sm.transition(PhasePostureAdjust)
	}
	return target, true
}

func (sm *StateMachine) stepDescend() (r3.Vector, bool) {
	objPos, ok := sm.objectPos()
	if !ok {
		return r3.Vector{}, false
	}

	next := sm.eePos
	next.Z -= sm.cfg.DescendStep
	if next.Z <= sm.cfg.FloorHeight {
		sm.logger.Warnf("descend hit floor at %.3f m without a graspable posture", sm.cfg.FloorHeight)
		sm.fail(ReasonGroundCollision)
		return r3.Vector{}, false
	}

	if next.Z <= objPos.Z+graspApproachOffset && sm.postureOK() {
		sm.transition(PhaseGrasp)
	}
	return next, true
}

func (sm *StateMachine) stepGrasp() {
	// Drive the close linearly over the configured frame count; no early
	// exit, detectors take over after settling.
	closed := sm.cfg.GripperClosedPosition * sm.cfg.GraspCloseFraction
	fraction := float64(sm.phaseFrames) / float64(sm.cfg.GraspCloseFrames)
	if fraction > 1 {
		fraction = 1
	}
	sm.setGripper(closed * fraction)

	if sm.phaseFrames >= sm.cfg.GraspCloseFrames {
		sm.transition(PhaseGraspSettle)
	}
}

func (sm *StateMachine) stepGraspSettle() {
	if sm.phaseFrames < sm.cfg.GraspSettleFrames {
		return
	}

	objPos, okObj := sm.objectPos()
	gripPos, okGrip := sm.gripperPos()
	if okObj && okGrip {
		sm.graspDetector.SetBaseline(objPos, gripPos)
	}
	sm.transition(PhaseLift)
}

func (sm *StateMachine) stepLift() (r3.Vector, bool) {
	if sm.phaseFrames > sm.cfg.LiftTimeoutFrames {
		sm.logger.Warnf("lift did not reach %.3f m within %d frames",
			sm.cfg.LiftTargetHeight, sm.cfg.LiftTimeoutFrames)
		sm.fail(ReasonLiftTimeout)
		return r3.Vector{}, false
	}

	if !sm.graspStillHeld() {
		sm.fail(ReasonGraspLost)
		return r3.Vector{}, false
	}

	next := sm.eePos
	next.Z += sm.cfg.LiftStep
	if next.Z >= sm.cfg.LiftTargetHeight {
		next.Z = sm.cfg.LiftTargetHeight
		sm.transition(PhaseRetreat)
	}
	return next, true
}

func (sm *StateMachine) stepRetreat() (r3.Vector, bool) {
	if !sm.graspStillHeld() {
		sm.fail(ReasonGraspLost)
		return r3.Vector{}, false
	}

	if sm.motion == nil {
		objPos, ok := sm.objectPos()
		if !ok {
			return r3.Vector{}, false
		}
		// A waypoint partway back toward the origin keeps the transport
		// path away from the rest of the scene without path planning.
		toOrigin := sm.originPos.Sub(objPos).Mul(sm.cfg.RetreatFraction)
		waypoint := r3.Vector{
			X: objPos.X + toOrigin.X,
			Y: objPos.Y + toOrigin.Y,
			Z: sm.eePos.Z,
		}
		sm.motion = newMotionCommand(sm.eePos, waypoint, sm.cfg.TravelSpeed)
		sm.logger.Debugf("retreat: waypoint (%.3f, %.3f, %.3f)", waypoint.X, waypoint.Y, waypoint.Z)
	}

	target := sm.motion.Advance()
	if sm.motion.Complete() {
		sm.motion = nil
		sm.transition(PhaseTransport)
	}
	return target, true
}

func (sm *StateMachine) stepTransport() (r3.Vector, bool) {
	if !sm.haveDestination {
		// The search runs exactly once per episode; the destination stays
		// fixed even if the scene shifts afterwards.
		sm.destination = sm.search.Find(sm.currentRegionCenter())
		sm.haveDestination = true
		sm.logger.Infof("transport destination: (%.3f, %.3f)", sm.destination.X, sm.destination.Y)
	}

	if !sm.graspStillHeld() {
		sm.fail(ReasonGraspLost)
		return r3.Vector{}, false
	}

	goal := r3.Vector{X: sm.destination.X, Y: sm.destination.Y, Z: sm.cfg.ReleaseHeight}
	if sm.motion == nil {
		if sm.eePos.Sub(goal).Norm() <= sm.cfg.ArrivalTolerance {
			sm.transition(PhaseRelease)
			return r3.Vector{}, false
		}
		sm.motion = newMotionCommand(sm.eePos, goal, sm.cfg.TravelSpeed)
		sm.logger.Debugf("transport: %d frame move to destination", sm.motion.duration)
	}

	target := sm.motion.Advance()
	if sm.motion.Complete() {
		sm.motion = nil
		sm.transition(PhaseRelease)
	}
	return target, true
}

func (sm *StateMachine) stepRelease() {
	if sm.phaseFrames == 1 {
		sm.setGripper(0)
	}

	if sm.phaseFrames == sm.cfg.ReleaseSettleFrames {
		sm.placementDetector.StartDetection(sm.currentRegionCenter())
	}

	if sm.phaseFrames > sm.cfg.ReleaseSettleFrames {
		objPos, okObj := sm.objectPos()
		vel, okVel := sm.objectVelocity()
		if okObj && okVel && sm.placementDetector.Check(objPos, vel) {
			sm.ledger.Append(PlacedObjectRecord{
				ObjectID: sm.targetID,
				Position: objPos,
				Success:  true,
			})
			sm.placementDetector.Stop()
			sm.pendingOutcome = OutcomeSuccess
			sm.reason = ReasonCompleted
			sm.transition(PhaseReturnHome)
			return
		}
	}

	if sm.phaseFrames > sm.cfg.ReleaseTimeoutFrames {
		// Never stall: record the attempt as failed and still go home.
		pos := sm.destination
		if objPos, ok := sm.objectPos(); ok {
			pos = objPos
		}
		sm.ledger.Append(PlacedObjectRecord{
			ObjectID: sm.targetID,
			Position: pos,
			Success:  false,
		})
		sm.placementDetector.Stop()
		sm.fail(ReasonPlacementTimeout)
	}
}

func (sm *StateMachine) stepReturnHome() (r3.Vector, bool) {
	if sm.motion == nil {
		if sm.eePos.Sub(sm.cfg.HomePosition).Norm() <= sm.cfg.ArrivalTolerance {
			sm.finish()
			return r3.Vector{}, false
		}
		sm.motion = newMotionCommand(sm.eePos, sm.cfg.HomePosition, sm.cfg.TravelSpeed)
	}

	target := sm.motion.Advance()
	if sm.motion.Complete() {
		sm.motion = nil
		sm.finish()
	}
	return target, true
}

// --- transitions and failure path ---

func (sm *StateMachine) transition(next Phase) {
	sm.logger.Debugf("phase %s -> %s at frame %d", sm.phase, next, sm.frame)
	sm.phase = next
	sm.phaseFrames = 0
}

// fail runs the single failure path shared by every transient phase: stop the
// active motion, force the gripper open, attempt an emergency return, then
// route through ReturnHome semantics into Failed. No retries happen inside an
// episode; retrying means a new Start.
func (sm *StateMachine) fail(reason Reason) {
	sm.logger.Warnf("episode failing in phase %s: %s", sm.phase, reason)

	if sm.motion != nil {
		sm.motion.Stop()
		sm.motion = nil
	}
	sm.setGripper(0)
	sm.placementDetector.Stop()

	if override, ok := sm.solver.(HomeOverride); ok {
		override.OverridePose(sm.cfg.HomePosition)
		sm.eePos = sm.cfg.HomePosition
	}

	sm.pendingOutcome = OutcomeFailed
	sm.reason = reason
	sm.transition(PhaseReturnHome)
}

// finish closes the episode with whatever outcome ReturnHome was entered
// under.
func (sm *StateMachine) finish() {
	sm.outcome = sm.pendingOutcome
	if sm.outcome == OutcomeNone {
		sm.outcome = OutcomeSuccess
		sm.reason = ReasonCompleted
	}

	if sm.outcome == OutcomeSuccess {
		sm.transition(PhaseSuccess)
	} else {
		sm.transition(PhaseFailed)
	}

	if sm.sink != nil {
		sm.sink.EpisodeEnded(sm.targetID, sm.outcome == OutcomeSuccess)
	}
	sm.logger.Infof("episode ended: target=%q outcome=%s reason=%s frames=%d",
		sm.targetID, sm.outcome, sm.reason, sm.frame)
}

// --- helpers ---

func (sm *StateMachine) event(prev Phase, changed bool) StepEvent {
	return StepEvent{
		Frame:         sm.frame,
		Phase:         sm.phase,
		PhaseChanged:  changed,
		GripperTarget: sm.gripperTarget,
		Outcome:       sm.outcome,
		Reason:        sm.reason,
	}
}

// solveTo forwards an end-effector target to the kinematics solver. A failed
// solve is not retried within the frame; it ends the episode.
func (sm *StateMachine) solveTo(target r3.Vector) bool {
	joints, ok := sm.solver.Solve(target, sm.joints)
	if !ok {
		sm.logger.Warnf("IK solve failed for (%.3f, %.3f, %.3f)", target.X, target.Y, target.Z)
		sm.fail(ReasonIKFailure)
		return false
	}
	sm.joints = joints
	sm.eePos = target
	return true
}

func (sm *StateMachine) setGripper(target float64) {
	if target != sm.gripperTarget {
		sm.gripperTarget = target
		sm.gripper.SetTarget(target)
	}
}

// graspStillHeld polls the grasp detector on the configured interval. Frames
// between checks pass implicitly.
func (sm *StateMachine) graspStillHeld() bool {
	if sm.phaseFrames%sm.cfg.GraspCheckInterval != 0 {
		return true
	}
	objPos, okObj := sm.objectPos()
	gripPos, okGrip := sm.gripperPos()
	if !okObj || !okGrip {
		return true
	}
	return sm.graspDetector.Check(sm.frame, objPos, gripPos)
}

func (sm *StateMachine) postureOK() bool {
	if sm.posture == nil {
		return true
	}
	pose, err := sm.poses.Pose(sm.targetID)
	if err != nil {
		sm.logger.Warnf("posture check: pose query failed for %q: %v", sm.targetID, err)
		return false
	}
	return sm.posture.Graspable(pose.Orientation())
}

func (sm *StateMachine) objectPos() (r3.Vector, bool) {
	pose, err := sm.poses.Pose(sm.targetID)
	if err != nil {
		sm.logger.Warnf("pose query failed for %q: %v", sm.targetID, err)
		return r3.Vector{}, false
	}
	return pose.Point(), true
}

func (sm *StateMachine) gripperPos() (r3.Vector, bool) {
	pose, err := sm.poses.Pose(sm.cfg.GripperObjectID)
	if err != nil {
		// Fall back to the commanded pose when the gripper frame is not
		// published.
		return sm.eePos, true
	}
	return pose.Point(), true
}

func (sm *StateMachine) objectVelocity() (r3.Vector, bool) {
	vel, err := sm.poses.LinearVelocity(sm.targetID)
	if err != nil {
		sm.logger.Warnf("velocity query failed for %q: %v", sm.targetID, err)
		return r3.Vector{}, false
	}
	return vel, true
}

// currentRegionCenter reads the live region pose when a region object is
// configured, otherwise the configured static center.
func (sm *StateMachine) currentRegionCenter() r3.Vector {
	if sm.cfg.RegionObjectID == "" {
		return sm.cfg.RegionCenter
	}
	pose, err := sm.poses.Pose(sm.cfg.RegionObjectID)
	if err != nil {
		return sm.cfg.RegionCenter
	}
	return pose.Point()
}

// regionDisplaced fires the scene-reset watchdog when the target region has
// drifted beyond tolerance since episode start.
func (sm *StateMachine) regionDisplaced() bool {
	if sm.cfg.RegionObjectID == "" {
		return false
	}
	current := sm.currentRegionCenter()
	return current.Sub(sm.regionStart).Norm() > sm.cfg.RegionMoveTolerance
}
