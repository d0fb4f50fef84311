package pickplace

import (
	"math"

	"github.com/golang/geo/r3"
	"go.viam.com/rdk/logging"
)

const (
	graspHistorySize = 12 // ring buffer length, at least 10 usable samples

	// Signal thresholds. Distance alone is fooled by a swinging dropped
	// object and the movement ratio alone by coincidental co-motion; the
	// conjunction rejects both without contact sensing.
	relativeDriftLimit  = 0.05 // m, change in obj-gripper distance vs grasp time
	absHorizontalLimit  = 0.10 // m, fallback while history is short
	absVerticalLimit    = 0.15 // m
	minMovementRatio    = 0.7  // object must follow the gripper
	maxDistanceVariance = 1e-6 // m², variance of last 10 horizontal distances
	minHistorySamples   = 3
	varianceWindow      = 10
	gripperMoveEpsilon  = 0.001 // m, below this the ratio carries no evidence
)

// graspSample is one ring buffer entry recorded per detector check.
type graspSample struct {
	frame      int
	distance   float64 // obj-gripper distance
	objectPos  r3.Vector
	gripperPos r3.Vector
}

// graspDetector decides, per frame, whether the object is still held. All
// state is episode-scoped; Reset is called at episode start.
type graspDetector struct {
	logger logging.Logger

	history []graspSample
	next    int
	count   int

	// Obj-gripper distance captured when the grasp closed; baseline for the
	// relative drift signal.
	baselineDistance float64
	haveBaseline     bool
}

func newGraspDetector(logger logging.Logger) *graspDetector {
	return &graspDetector{
		logger:  logger,
		history: make([]graspSample, graspHistorySize),
	}
}

// Reset clears all history. Called on Start and whenever an episode is
// abandoned.
func (d *graspDetector) Reset() {
	d.next = 0
	d.count = 0
	d.haveBaseline = false
	d.baselineDistance = 0
}

// SetBaseline records the obj-gripper distance at grasp time.
func (d *graspDetector) SetBaseline(objectPos, gripperPos r3.Vector) {
	d.baselineDistance = objectPos.Sub(gripperPos).Norm()
	d.haveBaseline = true
}

func (d *graspDetector) record(frame int, objectPos, gripperPos r3.Vector) {
	d.history[d.next] = graspSample{
		frame:      frame,
		distance:   objectPos.Sub(gripperPos).Norm(),
		objectPos:  objectPos,
		gripperPos: gripperPos,
	}
	d.next = (d.next + 1) % len(d.history)
	if d.count < len(d.history) {
		d.count++
	}
}

// recent returns the last n samples, oldest first.
func (d *graspDetector) recent(n int) []graspSample {
	if n > d.count {
		n = d.count
	}
	out := make([]graspSample, 0, n)
	start := d.next - n
	for i := 0; i < n; i++ {
		idx := (start + i + len(d.history)) % len(d.history)
		out = append(out, d.history[idx])
	}
	return out
}

// Check records a sample and evaluates the four-signal conjunction:
// (relative drift OR absolute fallback) AND movement ratio AND variance.
// It never errors; uncertain readings degrade to a false verdict only when a
// gate actually fails.
func (d *graspDetector) Check(frame int, objectPos, gripperPos r3.Vector) bool {
	d.record(frame, objectPos, gripperPos)

	distanceOK := d.distanceSignal(objectPos, gripperPos)
	ratioOK := d.movementRatioSignal()
	varianceOK := d.varianceSignal()

	held := distanceOK && ratioOK && varianceOK
	if !held && d.logger != nil {
		d.logger.Debugf("grasp check failed at frame %d: distance=%t ratio=%t variance=%t",
			frame, distanceOK, ratioOK, varianceOK)
	}
	return held
}

// distanceSignal is the relative drift check once enough history exists, the
// absolute distance fallback before that.
func (d *graspDetector) distanceSignal(objectPos, gripperPos r3.Vector) bool {
	if d.haveBaseline && d.count >= minHistorySamples {
		current := objectPos.Sub(gripperPos).Norm()
		return math.Abs(current-d.baselineDistance) <= relativeDriftLimit
	}

	delta := objectPos.Sub(gripperPos)
	horizontal := math.Hypot(delta.X, delta.Y)
	vertical := math.Abs(delta.Z)
	return horizontal <= absHorizontalLimit && vertical <= absVerticalLimit
}

// movementRatioSignal passes when the object displacement over the window is
// at least minMovementRatio of the gripper displacement. A stationary gripper
// offers no evidence either way, so the signal passes.
func (d *graspDetector) movementRatioSignal() bool {
	if d.count < 2 {
		return true
	}
	window := d.recent(d.count)
	oldest, newest := window[0], window[len(window)-1]

	gripperMoved := newest.gripperPos.Sub(oldest.gripperPos).Norm()
	if gripperMoved < gripperMoveEpsilon {
		return true
	}
	objectMoved := newest.objectPos.Sub(oldest.objectPos).Norm()
	return objectMoved/gripperMoved >= minMovementRatio
}

// varianceSignal passes while the last horizontal obj-gripper distances stay
// tight. A held object tracks the gripper; a dropped one oscillates.
func (d *graspDetector) varianceSignal() bool {
	if d.count < varianceWindow {
		return true
	}
	window := d.recent(varianceWindow)

	horizontals := make([]float64, len(window))
	mean := 0.0
	for i, s := range window {
		delta := s.objectPos.Sub(s.gripperPos)
		horizontals[i] = math.Hypot(delta.X, delta.Y)
		mean += horizontals[i]
	}
	mean /= float64(len(horizontals))

	variance := 0.0
	for _, h := range horizontals {
		variance += (h - mean) * (h - mean)
	}
	variance /= float64(len(horizontals))

	return variance < maxDistanceVariance
}

// SampleCount reports how many history samples are held.
func (d *graspDetector) SampleCount() int {
	return d.count
}
