package pickplace

import (
	"math"

	"github.com/golang/geo/r3"
	"go.viam.com/rdk/logging"
)

// placementDetector decides whether a released object has come to rest inside
// the target region. Evidence lives only during the release phase; a single
// velocity spike resets the consecutive-stable counter to zero, so success
// requires genuinely consecutive settled frames, not merely settled samples.
type placementDetector struct {
	logger logging.Logger
	cfg    *Config

	regionCenter r3.Vector
	stableFrames int
	active       bool
}

func newPlacementDetector(cfg *Config, logger logging.Logger) *placementDetector {
	return &placementDetector{
		logger: logger,
		cfg:    cfg,
	}
}

// StartDetection resets accumulated evidence and fixes the region center the
// verdict is judged against.
func (d *placementDetector) StartDetection(regionCenter r3.Vector) {
	d.regionCenter = regionCenter
	d.stableFrames = 0
	d.active = true
}

// Stop discards evidence when the release phase ends.
func (d *placementDetector) Stop() {
	d.active = false
	d.stableFrames = 0
}

// Check evaluates one frame of evidence. Returns true once the object sits
// inside the shrunk region bounds and has been slow for the required number
// of consecutive frames.
func (d *placementDetector) Check(objectPos, velocity r3.Vector) bool {
	if !d.active {
		return false
	}

	positionOK := d.positionWithinRegion(objectPos)

	speed := velocity.Norm()
	if speed <= d.cfg.StabilitySpeed {
		d.stableFrames++
	} else {
		d.stableFrames = 0
	}

	placed := positionOK && d.stableFrames >= d.cfg.StableFramesRequired
	if placed && d.logger != nil {
		d.logger.Debugf("placement confirmed: pos=(%.3f, %.3f, %.3f) stable_frames=%d",
			objectPos.X, objectPos.Y, objectPos.Z, d.stableFrames)
	}
	return placed
}

// positionWithinRegion shrinks the region radius by the safety margin and
// allows the object to rest slightly above the surface.
func (d *placementDetector) positionWithinRegion(objectPos r3.Vector) bool {
	dx := objectPos.X - d.regionCenter.X
	dy := objectPos.Y - d.regionCenter.Y
	horizontal := math.Hypot(dx, dy)
	if horizontal > d.cfg.RegionRadius-d.cfg.PlacementMargin {
		return false
	}

	surface := d.regionCenter.Z + d.cfg.RegionHeight
	return objectPos.Z <= surface+d.cfg.PlacementZTolerance
}

// StableFrames exposes the current consecutive-stable count.
func (d *placementDetector) StableFrames() int {
	return d.stableFrames
}
