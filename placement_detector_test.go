package pickplace

import (
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/rdk/logging"
)

func placementTestConfig(t *testing.T) *Config {
	t.Helper()
	cfg := &Config{}
	if _, _, err := cfg.Validate(""); err != nil {
		t.Fatalf("config validation failed: %v", err)
	}
	return cfg
}

func TestPlacementRequiresConsecutiveStableFrames(t *testing.T) {
	cfg := placementTestConfig(t)
	d := newPlacementDetector(cfg, logging.NewTestLogger(t))

	center := r3.Vector{X: 0.28, Y: 0.0, Z: 0.10}
	d.StartDetection(center)

	onTarget := r3.Vector{X: 0.28, Y: 0.0, Z: 0.12}
	still := r3.Vector{}
	spike := r3.Vector{X: 0.2} // 0.2 m/s, above the 0.08 threshold

	// Two good frames, then a velocity spike: the counter must reset to
	// zero, so two more good frames are still not enough.
	if d.Check(onTarget, still) {
		t.Fatal("one stable frame should not confirm placement")
	}
	if d.Check(onTarget, still) {
		t.Fatal("two stable frames should not confirm placement")
	}
	if d.Check(onTarget, spike) {
		t.Fatal("a velocity spike should never confirm placement")
	}
	if d.StableFrames() != 0 {
		t.Fatalf("spike must reset the counter, got %d", d.StableFrames())
	}
	if d.Check(onTarget, still) {
		t.Fatal("counter must restart after a spike")
	}
	if d.Check(onTarget, still) {
		t.Fatal("still one frame short after a spike")
	}
	if !d.Check(onTarget, still) {
		t.Fatal("three consecutive stable frames should confirm placement")
	}
}

func TestPlacementPositionBounds(t *testing.T) {
	cfg := placementTestConfig(t)
	d := newPlacementDetector(cfg, logging.NewTestLogger(t))
	center := r3.Vector{X: 0.28, Y: 0.0, Z: 0.10}

	tests := []struct {
		name string
		pos  r3.Vector
		want bool
	}{
		{
			name: "at center",
			pos:  r3.Vector{X: 0.28, Y: 0.0, Z: 0.12},
			want: true,
		},
		{
			name: "inside shrunk boundary",
			pos:  r3.Vector{X: 0.28 + 0.07, Y: 0.0, Z: 0.12},
			want: true,
		},
		{
			name: "inside raw radius but within margin band",
			pos:  r3.Vector{X: 0.28 + 0.09, Y: 0.0, Z: 0.12},
			want: false,
		},
		{
			name: "outside region",
			pos:  r3.Vector{X: 0.28 + 0.15, Y: 0.0, Z: 0.12},
			want: false,
		},
		{
			name: "resting slightly above surface",
			pos:  r3.Vector{X: 0.28, Y: 0.0, Z: 0.135},
			want: true,
		},
		{
			name: "hovering too high",
			pos:  r3.Vector{X: 0.28, Y: 0.0, Z: 0.18},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d.StartDetection(center)
			// Three still frames so only position decides.
			d.Check(tt.pos, r3.Vector{})
			d.Check(tt.pos, r3.Vector{})
			got := d.Check(tt.pos, r3.Vector{})
			if got != tt.want {
				t.Fatalf("position %v: got %t, want %t", tt.pos, got, tt.want)
			}
		})
	}
}

func TestPlacementInactiveBeforeStart(t *testing.T) {
	cfg := placementTestConfig(t)
	d := newPlacementDetector(cfg, logging.NewTestLogger(t))

	onTarget := r3.Vector{X: 0.28, Y: 0.0, Z: 0.12}
	for i := 0; i < 5; i++ {
		if d.Check(onTarget, r3.Vector{}) {
			t.Fatal("detector must return no verdict before StartDetection")
		}
	}
}

func TestPlacementStartResetsEvidence(t *testing.T) {
	cfg := placementTestConfig(t)
	d := newPlacementDetector(cfg, logging.NewTestLogger(t))
	center := r3.Vector{X: 0.28, Y: 0.0, Z: 0.10}
	onTarget := r3.Vector{X: 0.28, Y: 0.0, Z: 0.12}

	d.StartDetection(center)
	d.Check(onTarget, r3.Vector{})
	d.Check(onTarget, r3.Vector{})

	d.StartDetection(center)
	if d.StableFrames() != 0 {
		t.Fatalf("StartDetection must reset evidence, got %d stable frames", d.StableFrames())
	}
	if d.Check(onTarget, r3.Vector{}) {
		t.Fatal("evidence must not carry across detection sessions")
	}
}
