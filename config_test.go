package pickplace

import (
	"testing"

	"github.com/golang/geo/r3"
	"github.com/stretchr/testify/assert"
)

func TestConfigDefaults(t *testing.T) {
	cfg := &Config{}
	_, _, err := cfg.Validate("")
	assert.NoError(t, err)

	assert.Equal(t, r3.Vector{X: 0.28, Y: 0.0, Z: 0.10}, cfg.RegionCenter)
	assert.Equal(t, r3.Vector{X: 0.30, Y: 0.0, Z: 0.15}, cfg.HomePosition)
	assert.Equal(t, 0.10, cfg.RegionRadius)
	assert.Equal(t, 0.18, cfg.ApproachHeight)
	assert.Equal(t, 0.002, cfg.DescendStep)
	assert.Equal(t, 0.015, cfg.FloorHeight)
	assert.Equal(t, 1.0, cfg.GripperClosedPosition)
	assert.Equal(t, 0.8, cfg.GraspCloseFraction)
	assert.Equal(t, 30, cfg.GraspCloseFrames)
	assert.Equal(t, 30, cfg.GraspSettleFrames)
	assert.Equal(t, 0.25, cfg.LiftTargetHeight)
	assert.Equal(t, 600, cfg.LiftTimeoutFrames)
	assert.Equal(t, 0.004, cfg.TravelSpeed)
	assert.Equal(t, 0.5, cfg.RetreatFraction)
	assert.Equal(t, 30, cfg.GraspCheckInterval)
	assert.Equal(t, 0.22, cfg.ReleaseHeight)
	assert.Equal(t, 60, cfg.ReleaseSettleFrames)
	assert.Equal(t, 360, cfg.ReleaseTimeoutFrames)
	assert.Equal(t, 0.08, cfg.StabilitySpeed)
	assert.Equal(t, 3, cfg.StableFramesRequired)
	assert.Equal(t, 0.025, cfg.PlacementMargin)
	assert.Equal(t, 0.06, cfg.MinSeparation)
	assert.Equal(t, 100, cfg.SearchAttempts)
	assert.Equal(t, 0.03, cfg.RegionMoveTolerance)
	assert.Equal(t, "gripper", cfg.GripperObjectID)
}

func TestConfigDefaultsPreserveExplicitValues(t *testing.T) {
	cfg := &Config{
		RegionRadius:      0.20,
		TravelSpeed:       0.01,
		LiftTimeoutFrames: 120,
	}
	_, _, err := cfg.Validate("")
	assert.NoError(t, err)

	assert.Equal(t, 0.20, cfg.RegionRadius)
	assert.Equal(t, 0.01, cfg.TravelSpeed)
	assert.Equal(t, 120, cfg.LiftTimeoutFrames)
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{
			name:    "negative region radius",
			cfg:     Config{RegionRadius: -0.1},
			wantErr: "region_radius must be positive",
		},
		{
			name:    "negative descend step",
			cfg:     Config{DescendStep: -0.002},
			wantErr: "descend_step must be positive",
		},
		{
			name:    "negative travel speed",
			cfg:     Config{TravelSpeed: -0.004},
			wantErr: "travel_speed must be positive",
		},
		{
			name:    "close fraction above one",
			cfg:     Config{GraspCloseFraction: 1.5},
			wantErr: "grasp_close_fraction must be between 0 and 1",
		},
		{
			name:    "retreat fraction above one",
			cfg:     Config{RetreatFraction: 2.0},
			wantErr: "retreat_fraction must be between 0 and 1",
		},
		{
			name:    "inverted reach envelope",
			cfg:     Config{ReachMinX: 0.5, ReachMaxX: 0.4},
			wantErr: "reach_min_x",
		},
		{
			name:    "margin swallows region",
			cfg:     Config{RegionRadius: 0.05, PlacementMargin: 0.05},
			wantErr: "placement_margin",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := tt.cfg.Validate("")
			if assert.Error(t, err) {
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}
