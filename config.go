package pickplace

import (
	"fmt"

	"github.com/golang/geo/r3"
	"go.viam.com/rdk/logging"
)

// Config holds every tunable of the pick-and-place engine. All distances are
// meters, all speeds meters per frame, all durations frame counts. Frame
// counts keep the state machine deterministic across simulation speeds.
type Config struct {
	// Scene geometry
	RegionCenter r3.Vector `json:"region_center"`           // target region (plate) center
	RegionRadius float64   `json:"region_radius,omitempty"` // target region radius (default: 0.10)
	RegionHeight float64   `json:"region_height,omitempty"` // surface height of the region (default: 0.02)
	HomePosition r3.Vector `json:"home_position"`           // end-effector rest pose

	// Approach / descend
	ApproachHeight float64 `json:"approach_height,omitempty"` // hover height above target (default: 0.18)
	DescendStep    float64 `json:"descend_step,omitempty"`    // per-frame descend step (default: 0.002)
	FloorHeight    float64 `json:"floor_height,omitempty"`    // hard floor, GroundCollision below (default: 0.015)

	// Grasp
	GripperClosedPosition float64 `json:"gripper_closed_position,omitempty"` // actuator extremum (default: 1.0)
	GraspCloseFraction    float64 `json:"grasp_close_fraction,omitempty"`    // fraction of extremum to close to (default: 0.8)
	GraspCloseFrames      int     `json:"grasp_close_frames,omitempty"`      // frames to drive the close (default: 30)
	GraspSettleFrames     int     `json:"grasp_settle_frames,omitempty"`     // pure wait after close (default: 30)

	// Lift / transport
	LiftStep           float64 `json:"lift_step,omitempty"`            // per-frame lift step (default: 0.002)
	LiftTargetHeight   float64 `json:"lift_target_height,omitempty"`   // lift cap (default: 0.25)
	LiftTimeoutFrames  int     `json:"lift_timeout_frames,omitempty"`  // frames before lift gives up (default: 600)
	TravelSpeed        float64 `json:"travel_speed,omitempty"`         // horizontal move speed (default: 0.004)
	RetreatFraction    float64 `json:"retreat_fraction,omitempty"`     // waypoint fraction back toward origin (default: 0.5)
	GraspCheckInterval int     `json:"grasp_check_interval,omitempty"` // frames between grasp checks (default: 30)
	ReleaseHeight      float64 `json:"release_height,omitempty"`       // hover height over destination (default: 0.22)
	ArrivalTolerance   float64 `json:"arrival_tolerance,omitempty"`    // skip moves shorter than this (default: 0.01)

	// Release / placement detection
	ReleaseSettleFrames  int     `json:"release_settle_frames,omitempty"`  // delay before detection starts (default: 60)
	ReleaseTimeoutFrames int     `json:"release_timeout_frames,omitempty"` // release budget (default: 360)
	StabilitySpeed       float64 `json:"stability_speed,omitempty"`        // max speed counted as settled (default: 0.08)
	StableFramesRequired int     `json:"stable_frames_required,omitempty"` // consecutive settled frames (default: 3)
	PlacementMargin      float64 `json:"placement_margin,omitempty"`       // region boundary shrink (default: 0.025)
	PlacementZTolerance  float64 `json:"placement_z_tolerance,omitempty"`  // allowed rest height above surface (default: 0.02)

	// Placement search
	MinSeparation  float64 `json:"min_separation,omitempty"`  // clearance from prior placements (default: 0.06)
	SearchAttempts int     `json:"search_attempts,omitempty"` // candidate cap (default: 100)
	ReachMinX      float64 `json:"reach_min_x,omitempty"`     // reachability envelope (default: 0.12)
	ReachMaxX      float64 `json:"reach_max_x,omitempty"`     // (default: 0.42)
	ReachMaxY      float64 `json:"reach_max_y,omitempty"`     // lateral half-width (default: 0.28)

	// Region displacement watchdog
	RegionMoveTolerance float64 `json:"region_move_tolerance,omitempty"` // scene reset beyond this (default: 0.03)
	RegionObjectID      string  `json:"region_object_id,omitempty"`      // pose-query ID of the region, empty disables the watchdog

	// GripperObjectID is the pose-query ID resolving to the gripper frame
	// (the original system computes it via forward kinematics).
	GripperObjectID string `json:"gripper_object_id,omitempty"` // default: "gripper"

	// Internal logger (not from JSON)
	Logger logging.Logger `json:"-"`
}

// Validate ensures all parts of the config are valid and fills defaults.
func (cfg *Config) Validate(path string) ([]string, []string, error) {
	if cfg.RegionRadius == 0 {
		cfg.RegionRadius = 0.10
	}
	if cfg.RegionRadius < 0 {
		return nil, nil, fmt.Errorf("region_radius must be positive, got %f", cfg.RegionRadius)
	}
	if cfg.RegionHeight == 0 {
		cfg.RegionHeight = 0.02
	}
	if cfg.RegionCenter == (r3.Vector{}) {
		cfg.RegionCenter = r3.Vector{X: 0.28, Y: 0.0, Z: 0.10}
	}
	if cfg.HomePosition == (r3.Vector{}) {
		cfg.HomePosition = r3.Vector{X: 0.30, Y: 0.0, Z: 0.15}
	}

	if cfg.ApproachHeight == 0 {
		cfg.ApproachHeight = 0.18
	}
	if cfg.DescendStep == 0 {
		cfg.DescendStep = 0.002
	}
	if cfg.DescendStep < 0 {
		return nil, nil, fmt.Errorf("descend_step must be positive, got %f", cfg.DescendStep)
	}
	if cfg.FloorHeight == 0 {
		cfg.FloorHeight = 0.015
	}

	if cfg.GripperClosedPosition == 0 {
		cfg.GripperClosedPosition = 1.0
	}
	if cfg.GraspCloseFraction == 0 {
		cfg.GraspCloseFraction = 0.8
	}
	if cfg.GraspCloseFraction < 0 || cfg.GraspCloseFraction > 1 {
		return nil, nil, fmt.Errorf("grasp_close_fraction must be between 0 and 1, got %f", cfg.GraspCloseFraction)
	}
	if cfg.GraspCloseFrames == 0 {
		cfg.GraspCloseFrames = 30
	}
	if cfg.GraspSettleFrames == 0 {
		cfg.GraspSettleFrames = 30
	}

	if cfg.LiftStep == 0 {
		cfg.LiftStep = 0.002
	}
	if cfg.LiftTargetHeight == 0 {
		cfg.LiftTargetHeight = 0.25
	}
	if cfg.LiftTimeoutFrames == 0 {
		cfg.LiftTimeoutFrames = 600
	}
	if cfg.TravelSpeed == 0 {
		cfg.TravelSpeed = 0.004
	}
	if cfg.TravelSpeed < 0 {
		return nil, nil, fmt.Errorf("travel_speed must be positive, got %f", cfg.TravelSpeed)
	}
	if cfg.RetreatFraction == 0 {
		cfg.RetreatFraction = 0.5
	}
	if cfg.RetreatFraction < 0 || cfg.RetreatFraction > 1 {
		return nil, nil, fmt.Errorf("retreat_fraction must be between 0 and 1, got %f", cfg.RetreatFraction)
	}
	if cfg.GraspCheckInterval == 0 {
		cfg.GraspCheckInterval = 30
	}
	if cfg.ReleaseHeight == 0 {
		cfg.ReleaseHeight = 0.22
	}
	if cfg.ArrivalTolerance == 0 {
		cfg.ArrivalTolerance = 0.01
	}

	if cfg.ReleaseSettleFrames == 0 {
		cfg.ReleaseSettleFrames = 60
	}
	if cfg.ReleaseTimeoutFrames == 0 {
		cfg.ReleaseTimeoutFrames = 360
	}
	if cfg.StabilitySpeed == 0 {
		cfg.StabilitySpeed = 0.08
	}
	if cfg.StableFramesRequired == 0 {
		cfg.StableFramesRequired = 3
	}
	if cfg.PlacementMargin == 0 {
		cfg.PlacementMargin = 0.025
	}
	if cfg.PlacementZTolerance == 0 {
		cfg.PlacementZTolerance = 0.02
	}

	if cfg.MinSeparation == 0 {
		cfg.MinSeparation = 0.06
	}
	if cfg.SearchAttempts == 0 {
		cfg.SearchAttempts = 100
	}
	if cfg.SearchAttempts < 1 {
		return nil, nil, fmt.Errorf("search_attempts must be at least 1, got %d", cfg.SearchAttempts)
	}
	if cfg.ReachMinX == 0 {
		cfg.ReachMinX = 0.12
	}
	if cfg.ReachMaxX == 0 {
		cfg.ReachMaxX = 0.42
	}
	if cfg.ReachMaxY == 0 {
		cfg.ReachMaxY = 0.28
	}
	if cfg.ReachMinX >= cfg.ReachMaxX {
		return nil, nil, fmt.Errorf("reach_min_x (%f) must be below reach_max_x (%f)", cfg.ReachMinX, cfg.ReachMaxX)
	}

	if cfg.RegionMoveTolerance == 0 {
		cfg.RegionMoveTolerance = 0.03
	}
	if cfg.GripperObjectID == "" {
		cfg.GripperObjectID = "gripper"
	}

	if cfg.PlacementMargin >= cfg.RegionRadius {
		return nil, nil, fmt.Errorf("placement_margin (%f) must be below region_radius (%f)",
			cfg.PlacementMargin, cfg.RegionRadius)
	}

	return nil, nil, nil
}
