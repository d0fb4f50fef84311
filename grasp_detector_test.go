package pickplace

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/rdk/logging"
)

// feedHeld records n frames of a perfectly held object: the object tracks the
// gripper at a fixed offset below it.
func feedHeld(d *graspDetector, n int, start r3.Vector) r3.Vector {
	pos := start
	for i := 0; i < n; i++ {
		pos.Z += 0.002
		obj := r3.Vector{X: pos.X, Y: pos.Y, Z: pos.Z - 0.02}
		d.Check(i, obj, pos)
	}
	return pos
}

func TestGraspDetectorHeldObject(t *testing.T) {
	d := newGraspDetector(logging.NewTestLogger(t))
	start := r3.Vector{X: 0.15, Y: 0.08, Z: 0.05}
	d.SetBaseline(r3.Vector{X: 0.15, Y: 0.08, Z: 0.03}, start)

	pos := feedHeld(d, 15, start)

	obj := r3.Vector{X: pos.X, Y: pos.Y, Z: pos.Z - 0.02}
	if !d.Check(16, obj, pos) {
		t.Fatal("held object should pass all signals")
	}
}

func TestGraspDetectorRelativeDrift(t *testing.T) {
	d := newGraspDetector(logging.NewTestLogger(t))
	grip := r3.Vector{X: 0.15, Y: 0.08, Z: 0.10}
	d.SetBaseline(r3.Vector{X: 0.15, Y: 0.08, Z: 0.08}, grip)

	// Build history with the object held.
	for i := 0; i < 5; i++ {
		d.Check(i, r3.Vector{X: 0.15, Y: 0.08, Z: 0.08}, grip)
	}

	// Object slipped 10 cm below baseline separation: drift exceeds 5 cm.
	dropped := r3.Vector{X: 0.15, Y: 0.08, Z: -0.02}
	if d.Check(6, dropped, grip) {
		t.Fatal("drift beyond 5 cm should fail the distance signal")
	}
}

func TestGraspDetectorAbsoluteFallback(t *testing.T) {
	d := newGraspDetector(logging.NewTestLogger(t))

	// No baseline, fewer than 3 samples: fallback bounds apply.
	grip := r3.Vector{X: 0.15, Y: 0.08, Z: 0.10}
	near := r3.Vector{X: 0.18, Y: 0.08, Z: 0.02} // 3 cm horizontal, 8 cm vertical
	if !d.Check(0, near, grip) {
		t.Fatal("object within fallback bounds should pass")
	}

	d.Reset()
	far := r3.Vector{X: 0.30, Y: 0.08, Z: 0.10} // 15 cm horizontal
	if d.Check(0, far, grip) {
		t.Fatal("object beyond 10 cm horizontal should fail the fallback")
	}
}

func TestGraspDetectorMovementRatioGate(t *testing.T) {
	d := newGraspDetector(logging.NewTestLogger(t))

	// Gripper orbits a stationary object at constant separation: the
	// distance and variance signals stay clean, only the movement ratio
	// can catch it. The conjunction must reject.
	obj := r3.Vector{X: 0.15, Y: 0.08, Z: 0.10}
	radius := 0.02
	first := r3.Vector{X: obj.X + radius, Y: obj.Y, Z: obj.Z}
	d.SetBaseline(obj, first)

	result := true
	for i := 0; i < 8; i++ {
		angle := float64(i) * math.Pi / 6
		grip := r3.Vector{
			X: obj.X + radius*math.Cos(angle),
			Y: obj.Y + radius*math.Sin(angle),
			Z: obj.Z,
		}
		result = d.Check(i, obj, grip)
	}

	if result {
		t.Fatal("movement ratio below 0.7 must fail the conjunction regardless of other signals")
	}
}

func TestGraspDetectorStationaryGripper(t *testing.T) {
	d := newGraspDetector(logging.NewTestLogger(t))
	grip := r3.Vector{X: 0.15, Y: 0.08, Z: 0.10}
	obj := r3.Vector{X: 0.15, Y: 0.08, Z: 0.08}
	d.SetBaseline(obj, grip)

	// A stationary gripper offers no displacement evidence; the ratio
	// signal must not reject a held object.
	for i := 0; i < 12; i++ {
		if !d.Check(i, obj, grip) {
			t.Fatalf("stationary held object rejected at frame %d", i)
		}
	}
}

func TestGraspDetectorVarianceGate(t *testing.T) {
	d := newGraspDetector(logging.NewTestLogger(t))
	grip := r3.Vector{X: 0.15, Y: 0.08, Z: 0.20}
	d.SetBaseline(r3.Vector{X: 0.15, Y: 0.08, Z: 0.18}, grip)

	// Object swings horizontally under the gripper: distance stays near
	// baseline but the horizontal spread blows the variance bound.
	offsets := []float64{0, 0.01, -0.01, 0.012, -0.012, 0.01, -0.008, 0.011, -0.012, 0.009, -0.01, 0.012}
	result := true
	for i, off := range offsets {
		obj := r3.Vector{X: 0.15 + off, Y: 0.08, Z: 0.18}
		result = d.Check(i, obj, grip)
	}

	if result {
		t.Fatal("swinging object should fail the variance gate")
	}
}

func TestGraspDetectorReset(t *testing.T) {
	d := newGraspDetector(logging.NewTestLogger(t))
	grip := r3.Vector{X: 0.15, Y: 0.08, Z: 0.10}
	feedHeld(d, 8, grip)

	d.Reset()

	if d.SampleCount() != 0 {
		t.Fatalf("expected empty history after reset, got %d samples", d.SampleCount())
	}
	if d.haveBaseline {
		t.Fatal("baseline should be cleared on reset")
	}
}
