package pickplace

import (
	"math"

	"github.com/golang/geo/r3"
	"go.viam.com/rdk/logging"
)

// placementCandidate is a proposed (x, y) with its validity verdict; generated
// and discarded within a single search call.
type placementCandidate struct {
	position  r3.Vector
	inBounds  bool
	clear     bool
	reachable bool
}

func (c placementCandidate) valid() bool {
	return c.inBounds && c.clear && c.reachable
}

// placementSearch finds a collision-free destination on the target region by
// walking concentric rings outward from the center. Greedy and non-optimal:
// the task only needs a collision-free spot, not an optimal packing. The
// ledger is injected so prior episodes' placements are always visible.
type placementSearch struct {
	logger logging.Logger
	cfg    *Config
	ledger *PlacementLedger
}

func newPlacementSearch(cfg *Config, ledger *PlacementLedger, logger logging.Logger) *placementSearch {
	return &placementSearch{
		logger: logger,
		cfg:    cfg,
		ledger: ledger,
	}
}

// Find returns the first valid candidate, scanning center-to-edge, or the
// region center if no candidate validates within the attempt cap.
func (s *placementSearch) Find(regionCenter r3.Vector) r3.Vector {
	usableRadius := s.cfg.RegionRadius - s.cfg.PlacementMargin
	ringStep := s.cfg.MinSeparation / 2.0
	records := s.ledger.Records()

	attempts := 0
	for radius := 0.0; radius <= usableRadius; radius += ringStep {
		for _, candidate := range s.ringCandidates(regionCenter, radius) {
			attempts++
			if attempts > s.cfg.SearchAttempts {
				if s.logger != nil {
					s.logger.Warnf("placement search exhausted %d attempts, falling back to region center", s.cfg.SearchAttempts)
				}
				return regionCenter
			}

			c := s.validate(candidate, regionCenter, records)
			if c.valid() {
				if s.logger != nil {
					s.logger.Debugf("placement found at (%.3f, %.3f) after %d attempts (ring radius %.3f)",
						c.position.X, c.position.Y, attempts, radius)
				}
				return c.position
			}
		}
	}

	if s.logger != nil {
		s.logger.Warnf("no valid placement within region, falling back to region center")
	}
	return regionCenter
}

// ringCandidates produces positions on one ring. The center ring is a single
// point; outer rings are sampled so adjacent candidates sit roughly half the
// separation distance apart.
func (s *placementSearch) ringCandidates(center r3.Vector, radius float64) []r3.Vector {
	if radius == 0 {
		return []r3.Vector{center}
	}

	circumference := 2 * math.Pi * radius
	n := int(math.Ceil(circumference / (s.cfg.MinSeparation / 2.0)))
	if n < 4 {
		n = 4
	}

	out := make([]r3.Vector, 0, n)
	for i := 0; i < n; i++ {
		angle := 2 * math.Pi * float64(i) / float64(n)
		out = append(out, r3.Vector{
			X: center.X + radius*math.Cos(angle),
			Y: center.Y + radius*math.Sin(angle),
			Z: center.Z,
		})
	}
	return out
}

// validate applies the three required predicates: inside the shrunk region
// boundary, clear of every recorded placement, and inside the manipulator's
// coarse reachability envelope.
func (s *placementSearch) validate(pos, regionCenter r3.Vector, records []PlacedObjectRecord) placementCandidate {
	c := placementCandidate{position: pos}

	dx := pos.X - regionCenter.X
	dy := pos.Y - regionCenter.Y
	c.inBounds = math.Hypot(dx, dy) <= s.cfg.RegionRadius-s.cfg.PlacementMargin

	c.clear = true
	for _, rec := range records {
		sep := math.Hypot(pos.X-rec.Position.X, pos.Y-rec.Position.Y)
		if sep < s.cfg.MinSeparation-1e-9 {
			c.clear = false
			break
		}
	}

	// Bounded offsets from the robot base stand in for a full IK
	// feasibility check.
	c.reachable = pos.X >= s.cfg.ReachMinX && pos.X <= s.cfg.ReachMaxX &&
		math.Abs(pos.Y) <= s.cfg.ReachMaxY

	return c
}
